package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/bnsite/eval-service/internal/apperrors"
	"github.com/bnsite/eval-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const pqForeignKeyViolation = "23503"

type EvaluationRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewEvaluationRepository(db *sqlx.DB, log *slog.Logger) *EvaluationRepository {
	return &EvaluationRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

type roundRow struct {
	ID         string         `db:"id"`
	UserID     string         `db:"user_id"`
	Mode       string         `db:"mode"`
	Deadline   time.Time      `db:"deadline"`
	Active     bool           `db:"active"`
	Discussion bool           `db:"discussion"`
	Consensus  sql.NullString `db:"consensus"`
	Feedback   string         `db:"feedback"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r roundRow) toDomain() domain.EvaluationRound {
	round := domain.EvaluationRound{
		ID:         r.ID,
		UserID:     r.UserID,
		Mode:       domain.GameMode(r.Mode),
		Deadline:   r.Deadline,
		Active:     r.Active,
		Discussion: r.Discussion,
		Feedback:   r.Feedback,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}

	if r.Consensus.Valid {
		consensus := domain.Consensus(r.Consensus.String)
		round.Consensus = &consensus
	}

	return round
}

type reviewRow struct {
	ID              string    `db:"id"`
	RoundID         string    `db:"round_id"`
	EvaluatorID     string    `db:"evaluator_id"`
	BehaviorComment string    `db:"behavior_comment"`
	ModdingComment  string    `db:"modding_comment"`
	Vote            string    `db:"vote"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r reviewRow) toDomain() domain.Review {
	return domain.Review{
		ID:              r.ID,
		RoundID:         r.RoundID,
		EvaluatorID:     r.EvaluatorID,
		BehaviorComment: r.BehaviorComment,
		ModdingComment:  r.ModdingComment,
		Vote:            domain.Consensus(r.Vote),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

var roundColumns = []string{
	"id", "user_id", "mode", "deadline", "active",
	"discussion", "consensus", "feedback", "created_at", "updated_at",
}

func (er *EvaluationRepository) CreateRound(ctx context.Context, ext sqlx.ExtContext, round *domain.EvaluationRound) error {
	const op = "internal.repository.postgres.CreateRound"

	var consensus interface{}
	if round.Consensus != nil {
		consensus = string(*round.Consensus)
	}

	query, args, err := er.sq.Insert("evaluation_rounds").
		Columns("id", "user_id", "mode", "deadline", "active", "discussion", "consensus", "feedback").
		Values(round.ID, round.UserID, string(round.Mode), round.Deadline, round.Active, round.Discussion, consensus, round.Feedback).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	err = ext.QueryRowxContext(ctx, query, args...).Scan(&round.CreatedAt, &round.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pqForeignKeyViolation {
			return fmt.Errorf("%s: %w: user with id '%s'", op, apperrors.ErrNotFound, round.UserID)
		}

		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return nil
}

func (er *EvaluationRepository) GetRoundByID(ctx context.Context, roundID string) (*domain.EvaluationRound, error) {
	const op = "internal.repository.postgres.GetRoundByID"

	query, args, err := er.sq.Select(roundColumns...).
		From("evaluation_rounds").
		Where(sq.Eq{"id": roundID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	var row roundRow
	if err := er.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: round with id '%s'", op, apperrors.ErrNotFound, roundID)
		}

		return nil, fmt.Errorf("%s: failed to get round: %w", op, err)
	}

	round := row.toDomain()
	if err := er.attachReviews(ctx, []*domain.EvaluationRound{&round}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &round, nil
}

func (er *EvaluationRepository) GetRoundByIDWithLock(ctx context.Context, tx *sqlx.Tx, roundID string) (*domain.EvaluationRound, error) {
	const op = "internal.repository.postgres.GetRoundByIDWithLock"

	query, args, err := er.sq.Select(roundColumns...).
		From("evaluation_rounds").
		Where(sq.Eq{"id": roundID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	var row roundRow
	if err := tx.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: round with id '%s'", op, apperrors.ErrNotFound, roundID)
		}

		return nil, fmt.Errorf("%s: failed to get round with lock: %w", op, err)
	}

	round := row.toDomain()

	return &round, nil
}

func (er *EvaluationRepository) ListActive(ctx context.Context) ([]domain.EvaluationRound, error) {
	const op = "internal.repository.postgres.ListActive"

	builder := er.sq.Select(roundColumns...).
		From("evaluation_rounds").
		Where(sq.Eq{"active": true}).
		OrderBy("deadline DESC")

	return er.listRounds(ctx, op, builder)
}

func (er *EvaluationRepository) ListActiveDue(ctx context.Context, horizon time.Time) ([]domain.EvaluationRound, error) {
	const op = "internal.repository.postgres.ListActiveDue"

	// Unresolved rounds (NULL consensus, empty feedback) sort first so
	// attention lands on them before annotated ones.
	builder := er.sq.Select(roundColumns...).
		From("evaluation_rounds").
		Where(sq.Eq{"active": true}).
		Where(sq.LtOrEq{"deadline": horizon}).
		OrderBy("deadline ASC", "consensus ASC NULLS FIRST", "feedback ASC")

	return er.listRounds(ctx, op, builder)
}

func (er *EvaluationRepository) listRounds(ctx context.Context, op string, builder sq.SelectBuilder) ([]domain.EvaluationRound, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	var rows []roundRow
	if err := er.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select rounds: %w", op, err)
	}

	rounds := make([]domain.EvaluationRound, len(rows))
	refs := make([]*domain.EvaluationRound, len(rows))

	for i, row := range rows {
		rounds[i] = row.toDomain()
		refs[i] = &rounds[i]
	}

	if err := er.attachReviews(ctx, refs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rounds, nil
}

func (er *EvaluationRepository) attachReviews(ctx context.Context, rounds []*domain.EvaluationRound) error {
	if len(rounds) == 0 {
		return nil
	}

	roundIDs := make([]string, len(rounds))
	for i, round := range rounds {
		roundIDs[i] = round.ID
	}

	query, args, err := er.sq.Select(
		"id", "round_id", "evaluator_id", "behavior_comment",
		"modding_comment", "vote", "created_at", "updated_at",
	).
		From("reviews").
		Where(sq.Eq{"round_id": roundIDs}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build select reviews query: %w", err)
	}

	var rows []reviewRow
	if err := er.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return fmt.Errorf("failed to select reviews: %w", err)
	}

	byRound := make(map[string][]domain.Review, len(rounds))
	for _, row := range rows {
		byRound[row.RoundID] = append(byRound[row.RoundID], row.toDomain())
	}

	for _, round := range rounds {
		round.Reviews = byRound[round.ID]
	}

	return nil
}

func (er *EvaluationRepository) SetConsensus(ctx context.Context, roundID string, consensus domain.Consensus) error {
	const op = "internal.repository.postgres.SetConsensus"

	return er.updateRound(ctx, op, roundID, map[string]interface{}{"consensus": string(consensus)})
}

func (er *EvaluationRepository) SetFeedback(ctx context.Context, roundID string, feedback string) error {
	const op = "internal.repository.postgres.SetFeedback"

	return er.updateRound(ctx, op, roundID, map[string]interface{}{"feedback": feedback})
}

func (er *EvaluationRepository) SetDiscussion(ctx context.Context, roundID string, discussion bool) error {
	const op = "internal.repository.postgres.SetDiscussion"

	return er.updateRound(ctx, op, roundID, map[string]interface{}{"discussion": discussion})
}

func (er *EvaluationRepository) updateRound(ctx context.Context, op, roundID string, set map[string]interface{}) error {
	builder := er.sq.Update("evaluation_rounds").
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": roundID})

	for column, value := range set {
		builder = builder.Set(column, value)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	result, err := er.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}

	if affected == 0 {
		return fmt.Errorf("%s: %w: round with id '%s'", op, apperrors.ErrNotFound, roundID)
	}

	return nil
}

func (er *EvaluationRepository) Deactivate(ctx context.Context, tx *sqlx.Tx, roundID string) error {
	const op = "internal.repository.postgres.Deactivate"

	query, args, err := er.sq.Update("evaluation_rounds").
		Set("active", false).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": roundID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}

	if affected == 0 {
		return fmt.Errorf("%s: %w: round with id '%s'", op, apperrors.ErrNotFound, roundID)
	}

	return nil
}

func (er *EvaluationRepository) UpsertReview(ctx context.Context, roundID, evaluatorID string, content domain.ReviewContent) (*domain.Review, error) {
	const op = "internal.repository.postgres.UpsertReview"

	query, args, err := er.sq.Insert("reviews").
		Columns("id", "round_id", "evaluator_id", "behavior_comment", "modding_comment", "vote").
		Values(uuid.NewString(), roundID, evaluatorID, content.BehaviorComment, content.ModdingComment, string(content.Vote)).
		Suffix(`ON CONFLICT (round_id, evaluator_id) DO UPDATE SET
            behavior_comment = EXCLUDED.behavior_comment,
            modding_comment = EXCLUDED.modding_comment,
            vote = EXCLUDED.vote,
            updated_at = now()
        RETURNING id, round_id, evaluator_id, behavior_comment, modding_comment, vote, created_at, updated_at`).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build upsert query: %w", op, err)
	}

	var row reviewRow
	if err := er.db.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pqForeignKeyViolation {
			return nil, fmt.Errorf("%s: %w: round with id '%s'", op, apperrors.ErrNotFound, roundID)
		}

		return nil, fmt.Errorf("%s: failed to execute upsert: %w", op, err)
	}

	review := row.toDomain()

	return &review, nil
}

func (er *EvaluationRepository) DeleteFutureActive(ctx context.Context, userID string, horizon time.Time) (int64, error) {
	const op = "internal.repository.postgres.DeleteFutureActive"

	query, args, err := er.sq.Delete("evaluation_rounds").
		Where(sq.Eq{"user_id": userID, "active": true}).
		Where(sq.GtOrEq{"deadline": horizon}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build delete query: %w", op, err)
	}

	result, err := er.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to execute delete: %w", op, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}

	return deleted, nil
}
