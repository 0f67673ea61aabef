// package repository defines the interfaces for the data persistence layer.
// These interfaces abstract the underlying database implementation from the service layer.
package repository

import (
	"context"
	"time"

	"github.com/bnsite/eval-service/internal/domain"
	"github.com/jmoiron/sqlx"
)

// EvaluationRepository defines the contract for evaluation rounds and their reviews.
type EvaluationRepository interface {
	// CreateRound inserts a new round. The ext argument allows this method to
	// run inside a transaction (*sqlx.Tx) or directly on a DB connection (*sqlx.DB),
	// so that follow-up rounds spawned during completion share the completion transaction.
	CreateRound(ctx context.Context, ext sqlx.ExtContext, round *domain.EvaluationRound) error

	// GetRoundByID retrieves a round with its reviews attached.
	// It returns apperrors.ErrNotFound if the round does not exist.
	GetRoundByID(ctx context.Context, roundID string) (*domain.EvaluationRound, error)

	// GetRoundByIDWithLock retrieves a round and acquires a row-level lock
	// ("FOR UPDATE"), without reviews. The lock prevents two callers from
	// completing the same round concurrently.
	// It returns apperrors.ErrNotFound if the round does not exist.
	GetRoundByIDWithLock(ctx context.Context, tx *sqlx.Tx, roundID string) (*domain.EvaluationRound, error)

	// ListActive retrieves all active rounds, most distant deadline first,
	// with reviews attached.
	ListActive(ctx context.Context) ([]domain.EvaluationRound, error)

	// ListActiveDue retrieves active rounds with deadline <= horizon, ordered by
	// (deadline asc, consensus asc nulls first, feedback asc nulls first) so the
	// most urgent, least-resolved rounds come first. Reviews are attached.
	ListActiveDue(ctx context.Context, horizon time.Time) ([]domain.EvaluationRound, error)

	// SetConsensus stores the consensus value without applying side effects.
	// It returns apperrors.ErrNotFound if the round does not exist.
	SetConsensus(ctx context.Context, roundID string, consensus domain.Consensus) error

	// SetFeedback replaces the free-text feedback of a round.
	// It returns apperrors.ErrNotFound if the round does not exist.
	SetFeedback(ctx context.Context, roundID string, feedback string) error

	// SetDiscussion toggles the group-vs-individual review flag of a round.
	// It returns apperrors.ErrNotFound if the round does not exist.
	SetDiscussion(ctx context.Context, roundID string, discussion bool) error

	// Deactivate flips active to false. Deactivation is terminal.
	Deactivate(ctx context.Context, tx *sqlx.Tx, roundID string) error

	// UpsertReview inserts a review or, when the evaluator already reviewed the
	// round, updates the existing review's content in place under the same id.
	// It returns apperrors.ErrNotFound if the round does not exist.
	UpsertReview(ctx context.Context, roundID, evaluatorID string, content domain.ReviewContent) (*domain.Review, error)

	// DeleteFutureActive removes the user's active rounds with deadline >= horizon
	// and returns the number of rounds deleted. Rounds already due stay for
	// human resolution.
	DeleteFutureActive(ctx context.Context, userID string, horizon time.Time) (int64, error)
}

// UserRepository defines the contract for the user directory mutated by round completion.
type UserRepository interface {
	// GetByID retrieves a user. The ext argument allows execution within a
	// transaction or on a direct DB connection.
	// It returns apperrors.ErrNotFound if the user does not exist.
	GetByID(ctx context.Context, ext sqlx.ExtContext, userID string) (*domain.User, error)

	// ApplyMembershipDelta applies one atomic compound update to the user's
	// modes, probation and group. When the delta empties the user's modes, the
	// group is demoted and a tenure-end record is appended within the same
	// transaction. The user row is locked first, serializing concurrent
	// completions for the same subject.
	// It returns the updated user, or apperrors.ErrNotFound.
	ApplyMembershipDelta(ctx context.Context, tx *sqlx.Tx, userID string, delta domain.MembershipDelta, now time.Time) (*domain.User, error)
}

// EventRepository defines read-only access to the append-only moderation event log.
type EventRepository interface {
	// ListNominations retrieves the user's Bubbled and Qualified events for one
	// mode since the given time, ordered by beatmapset id.
	ListNominations(ctx context.Context, userID string, mode domain.GameMode, since time.Time) ([]domain.ActivityEvent, error)

	// ListByType retrieves all events of one type since the given time,
	// regardless of user, ordered by timestamp ascending.
	ListByType(ctx context.Context, eventType domain.EventType, since time.Time) ([]domain.ActivityEvent, error)

	// ListUserByType retrieves the user's events of one type since the given
	// time, ordered by timestamp ascending.
	ListUserByType(ctx context.Context, userID string, eventType domain.EventType, since time.Time) ([]domain.ActivityEvent, error)
}

// AuditRepository is the fire-and-forget audit sink. Failures are logged by
// callers and never block the triggering operation.
type AuditRepository interface {
	Record(ctx context.Context, actorID, message string) error
}
