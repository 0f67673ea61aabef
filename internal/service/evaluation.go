package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bnsite/eval-service/internal/apperrors"
	"github.com/bnsite/eval-service/internal/domain"
	"github.com/bnsite/eval-service/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	// schedulingHorizon splits active rounds into a due half (surfaced for
	// review) and a far-future half (discarded when a user exits early).
	// The two queries partition active rounds exactly.
	schedulingHorizon = 14 * 24 * time.Hour

	// followUpDeadline is how far out the deadline of a round spawned by an
	// "extend" completion lands.
	followUpDeadline = 40 * 24 * time.Hour
)

type EvaluationService interface {
	CreateRounds(ctx context.Context, actorID string, specs []domain.RoundSpec) (*domain.CreateRoundsResult, error)
	RecordReview(ctx context.Context, actorID, roundID, evaluatorID string, content domain.ReviewContent) (*domain.EvaluationRound, error)
	SetConsensus(ctx context.Context, actorID, roundID string, consensus domain.Consensus) (*domain.EvaluationRound, error)
	SetFeedback(ctx context.Context, actorID, roundID, feedback string) (*domain.EvaluationRound, error)
	SetDiscussion(ctx context.Context, actorID string, roundIDs []string, discussion bool) ([]domain.BatchOutcome, error)
	Complete(ctx context.Context, actorID string, roundIDs []string, now time.Time) ([]domain.CompleteOutcome, error)
	FindActiveEvaluations(ctx context.Context, now time.Time) ([]domain.EvaluationRound, error)
	ListActiveRounds(ctx context.Context) ([]domain.EvaluationRound, error)
	DeleteFutureActive(ctx context.Context, actorID, userID string, now time.Time) (int64, error)
}

type EvaluationServiceImpl struct {
	BaseService
	ext    sqlx.ExtContext
	rounds repository.EvaluationRepository
	users  repository.UserRepository
}

func NewEvaluationService(
	db Transactor,
	ext sqlx.ExtContext,
	log *slog.Logger,
	rounds repository.EvaluationRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
) *EvaluationServiceImpl {
	return &EvaluationServiceImpl{
		BaseService: NewBaseService(db, log, audit),
		ext:         ext,
		rounds:      rounds,
		users:       users,
	}
}

// CreateRounds inserts the given specs as new active rounds. Items referencing
// unknown users or invalid modes are reported in the result and never abort
// the rest of the batch. Nothing prevents a second active round for the same
// (user, mode); extend completions rely on that.
func (s *EvaluationServiceImpl) CreateRounds(ctx context.Context, actorID string, specs []domain.RoundSpec) (*domain.CreateRoundsResult, error) {
	const op = "internal.service.evaluation.CreateRounds"
	log := s.log.With(slog.String("op", op), slog.Int("specs", len(specs)))

	result := &domain.CreateRoundsResult{}

	for _, spec := range specs {
		if !spec.Mode.Valid() {
			result.Failed = append(result.Failed, domain.RoundSpecFailure{
				UserID: spec.UserID,
				Mode:   spec.Mode,
				Reason: fmt.Sprintf("'%s' is not a valid game mode", spec.Mode),
			})

			continue
		}

		if _, err := s.users.GetByID(ctx, s.ext, spec.UserID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				result.Failed = append(result.Failed, domain.RoundSpecFailure{
					UserID: spec.UserID,
					Mode:   spec.Mode,
					Reason: "user not found",
				})

				continue
			}

			return nil, fmt.Errorf("%s: failed to resolve user '%s': %w", op, spec.UserID, err)
		}

		round := &domain.EvaluationRound{
			ID:       uuid.NewString(),
			UserID:   spec.UserID,
			Mode:     spec.Mode,
			Deadline: spec.Deadline,
			Active:   true,
		}

		if err := s.rounds.CreateRound(ctx, s.ext, round); err != nil {
			return nil, fmt.Errorf("%s: failed to create round: %w", op, err)
		}

		result.Created = append(result.Created, *round)
	}

	log.Info("rounds created",
		slog.Int("created", len(result.Created)),
		slog.Int("failed", len(result.Failed)),
	)

	if len(result.Created) > 0 {
		s.record(actorID, fmt.Sprintf("Added evaluation rounds for %d user(s)", len(result.Created)))
	}

	return result, nil
}

// RecordReview upserts the evaluator's review on a round: a second submission
// by the same evaluator edits the existing review in place under the same id.
func (s *EvaluationServiceImpl) RecordReview(ctx context.Context, actorID, roundID, evaluatorID string, content domain.ReviewContent) (*domain.EvaluationRound, error) {
	const op = "internal.service.evaluation.RecordReview"

	if !content.Vote.Valid() {
		return nil, &apperrors.InvalidConsensusError{Consensus: string(content.Vote)}
	}

	review, err := s.rounds.UpsertReview(ctx, roundID, evaluatorID, content)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to upsert review: %w", op, err)
	}

	round, err := s.rounds.GetRoundByID(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to reload round: %w", op, err)
	}

	action := "Submitted"
	if review.UpdatedAt.After(review.CreatedAt) {
		action = "Updated"
	}
	s.record(actorID, fmt.Sprintf("%s %s evaluation review on round %s", action, round.Mode, roundID))

	return round, nil
}

// SetConsensus stores the consensus value only; side effects wait for Complete.
func (s *EvaluationServiceImpl) SetConsensus(ctx context.Context, actorID, roundID string, consensus domain.Consensus) (*domain.EvaluationRound, error) {
	const op = "internal.service.evaluation.SetConsensus"

	if !consensus.Valid() {
		return nil, &apperrors.InvalidConsensusError{Consensus: string(consensus)}
	}

	if err := s.rounds.SetConsensus(ctx, roundID, consensus); err != nil {
		return nil, fmt.Errorf("%s: failed to set consensus: %w", op, err)
	}

	round, err := s.rounds.GetRoundByID(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to reload round: %w", op, err)
	}

	s.record(actorID, fmt.Sprintf("Set consensus of %s evaluation round %s as %q", round.Mode, roundID, consensus))

	return round, nil
}

func (s *EvaluationServiceImpl) SetFeedback(ctx context.Context, actorID, roundID, feedback string) (*domain.EvaluationRound, error) {
	const op = "internal.service.evaluation.SetFeedback"

	if err := s.rounds.SetFeedback(ctx, roundID, feedback); err != nil {
		return nil, fmt.Errorf("%s: failed to set feedback: %w", op, err)
	}

	round, err := s.rounds.GetRoundByID(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to reload round: %w", op, err)
	}

	s.record(actorID, fmt.Sprintf("Edited feedback of %s evaluation round %s", round.Mode, roundID))

	return round, nil
}

// SetDiscussion toggles the group-vs-individual flag per round. Failures are
// collected per item; one bad id never aborts its siblings.
func (s *EvaluationServiceImpl) SetDiscussion(ctx context.Context, actorID string, roundIDs []string, discussion bool) ([]domain.BatchOutcome, error) {
	const op = "internal.service.evaluation.SetDiscussion"

	outcomes := make([]domain.BatchOutcome, 0, len(roundIDs))
	succeeded := 0

	for _, roundID := range roundIDs {
		err := s.rounds.SetDiscussion(ctx, roundID, discussion)
		if err == nil {
			succeeded++
		}

		outcomes = append(outcomes, domain.BatchOutcome{RoundID: roundID, Err: err})
	}

	kind := "individual"
	if discussion {
		kind = "group"
	}
	s.record(actorID, fmt.Sprintf("Set %d evaluation round(s) as %s evaluation", succeeded, kind))

	return outcomes, nil
}

// Complete applies each round's consensus side effects and deactivates it, one
// transaction per round. The round row lock plus the active re-check make the
// operation idempotent: a retry after a crash finds the round inactive and
// reports ErrNotActive instead of reapplying effects.
func (s *EvaluationServiceImpl) Complete(ctx context.Context, actorID string, roundIDs []string, now time.Time) ([]domain.CompleteOutcome, error) {
	outcomes := make([]domain.CompleteOutcome, 0, len(roundIDs))

	for _, roundID := range roundIDs {
		outcomes = append(outcomes, s.completeOne(ctx, actorID, roundID, now))
	}

	completed := 0
	for _, outcome := range outcomes {
		if outcome.Err == nil {
			completed++
		}
	}

	s.record(actorID, fmt.Sprintf("Set %d evaluation round(s) as completed", completed))

	return outcomes, nil
}

func (s *EvaluationServiceImpl) completeOne(ctx context.Context, actorID, roundID string, now time.Time) domain.CompleteOutcome {
	const op = "internal.service.evaluation.Complete"

	var (
		applied domain.Consensus
		mode    domain.GameMode
	)

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		round, err := s.rounds.GetRoundByIDWithLock(ctx, tx, roundID)
		if err != nil {
			return err
		}

		if !round.Active {
			return &apperrors.RoundNotActiveError{RoundID: roundID}
		}

		if round.Consensus == nil {
			return &apperrors.NoConsensusError{RoundID: roundID}
		}

		applied = *round.Consensus
		mode = round.Mode

		switch applied {
		case domain.ConsensusFail:
			delta := domain.MembershipDelta{RemoveMode: round.Mode}
			if _, err := s.users.ApplyMembershipDelta(ctx, tx, round.UserID, delta, now); err != nil {
				return fmt.Errorf("%s: failed to apply membership delta: %w", op, err)
			}

		case domain.ConsensusExtend:
			delta := domain.MembershipDelta{AddProbation: round.Mode}
			if _, err := s.users.ApplyMembershipDelta(ctx, tx, round.UserID, delta, now); err != nil {
				return fmt.Errorf("%s: failed to apply membership delta: %w", op, err)
			}

			followUp := &domain.EvaluationRound{
				ID:       uuid.NewString(),
				UserID:   round.UserID,
				Mode:     round.Mode,
				Deadline: now.Add(followUpDeadline),
				Active:   true,
			}
			if err := s.rounds.CreateRound(ctx, tx, followUp); err != nil {
				return fmt.Errorf("%s: failed to spawn follow-up round: %w", op, err)
			}

		case domain.ConsensusPass:
			delta := domain.MembershipDelta{RemoveProbation: round.Mode}
			if _, err := s.users.ApplyMembershipDelta(ctx, tx, round.UserID, delta, now); err != nil {
				return fmt.Errorf("%s: failed to apply membership delta: %w", op, err)
			}

		default:
			// Stored value outside the canonical set: deactivate without
			// touching membership.
		}

		return s.rounds.Deactivate(ctx, tx, roundID)
	})

	if err != nil {
		return domain.CompleteOutcome{RoundID: roundID, Err: err}
	}

	s.record(actorID, fmt.Sprintf("Set %s evaluation round %s as %q", mode, roundID, applied))

	return domain.CompleteOutcome{RoundID: roundID, Consensus: applied}
}

// FindActiveEvaluations surfaces active rounds due within the scheduling
// horizon, most urgent and least resolved first.
func (s *EvaluationServiceImpl) FindActiveEvaluations(ctx context.Context, now time.Time) ([]domain.EvaluationRound, error) {
	const op = "internal.service.evaluation.FindActiveEvaluations"

	rounds, err := s.rounds.ListActiveDue(ctx, now.Add(schedulingHorizon))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list due rounds: %w", op, err)
	}

	return rounds, nil
}

func (s *EvaluationServiceImpl) ListActiveRounds(ctx context.Context) ([]domain.EvaluationRound, error) {
	const op = "internal.service.evaluation.ListActiveRounds"

	rounds, err := s.rounds.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list active rounds: %w", op, err)
	}

	return rounds, nil
}

// DeleteFutureActive discards the user's active rounds on the far side of the
// scheduling horizon. Rounds already due are left for human resolution; the
// deletion never overlaps what FindActiveEvaluations surfaces.
func (s *EvaluationServiceImpl) DeleteFutureActive(ctx context.Context, actorID, userID string, now time.Time) (int64, error) {
	const op = "internal.service.evaluation.DeleteFutureActive"

	deleted, err := s.rounds.DeleteFutureActive(ctx, userID, now.Add(schedulingHorizon))
	if err != nil {
		return 0, fmt.Errorf("%s: failed to delete future rounds: %w", op, err)
	}

	if deleted > 0 {
		s.record(actorID, fmt.Sprintf("Deleted %d future evaluation round(s) of user %s", deleted, userID))
	}

	return deleted, nil
}
