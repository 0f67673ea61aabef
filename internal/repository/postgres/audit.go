package postgres

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type AuditRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewAuditRepository(db *sqlx.DB, log *slog.Logger) *AuditRepository {
	return &AuditRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (ar *AuditRepository) Record(ctx context.Context, actorID, message string) error {
	const op = "internal.repository.postgres.RecordAudit"

	query, args, err := ar.sq.Insert("audit_log").
		Columns("actor_id", "message").
		Values(actorID, message).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if _, err := ar.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return nil
}
