package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/bnsite/eval-service/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// EventRepository reads the append-only moderation event log. Nothing in this
// service writes events; they arrive from an external feed.
type EventRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewEventRepository(db *sqlx.DB, log *slog.Logger) *EventRepository {
	return &EventRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

type eventRow struct {
	ID           int64          `db:"id"`
	UserID       string         `db:"user_id"`
	BeatmapsetID int64          `db:"beatmapset_id"`
	EventType    string         `db:"event_type"`
	Modes        pq.StringArray `db:"modes"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r eventRow) toDomain() domain.ActivityEvent {
	return domain.ActivityEvent{
		ID:           r.ID,
		UserID:       r.UserID,
		BeatmapsetID: r.BeatmapsetID,
		Type:         domain.EventType(r.EventType),
		Modes:        toGameModes(r.Modes),
		Timestamp:    r.CreatedAt,
	}
}

var eventColumns = []string{
	"id", "user_id", "beatmapset_id", "event_type", "modes", "created_at",
}

func (r *EventRepository) ListNominations(ctx context.Context, userID string, mode domain.GameMode, since time.Time) ([]domain.ActivityEvent, error) {
	const op = "internal.repository.postgres.ListNominations"

	builder := r.sq.Select(eventColumns...).
		From("events").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.Eq{"event_type": []string{string(domain.EventBubbled), string(domain.EventQualified)}}).
		Where(sq.GtOrEq{"created_at": since}).
		Where(sq.Expr("?::text = ANY(modes)", string(mode))).
		OrderBy("beatmapset_id ASC")

	return r.listEvents(ctx, op, builder)
}

func (r *EventRepository) ListByType(ctx context.Context, eventType domain.EventType, since time.Time) ([]domain.ActivityEvent, error) {
	const op = "internal.repository.postgres.ListByType"

	builder := r.sq.Select(eventColumns...).
		From("events").
		Where(sq.Eq{"event_type": string(eventType)}).
		Where(sq.GtOrEq{"created_at": since}).
		OrderBy("created_at ASC")

	return r.listEvents(ctx, op, builder)
}

func (r *EventRepository) ListUserByType(ctx context.Context, userID string, eventType domain.EventType, since time.Time) ([]domain.ActivityEvent, error) {
	const op = "internal.repository.postgres.ListUserByType"

	builder := r.sq.Select(eventColumns...).
		From("events").
		Where(sq.Eq{"user_id": userID, "event_type": string(eventType)}).
		Where(sq.GtOrEq{"created_at": since}).
		OrderBy("created_at ASC")

	return r.listEvents(ctx, op, builder)
}

func (r *EventRepository) listEvents(ctx context.Context, op string, builder sq.SelectBuilder) ([]domain.ActivityEvent, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select events: %w", op, err)
	}

	events := make([]domain.ActivityEvent, len(rows))
	for i, row := range rows {
		events[i] = row.toDomain()
	}

	return events, nil
}
