package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/bnsite/eval-service/internal/apperrors"
	"github.com/bnsite/eval-service/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type UserRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewUserRepository(db *sqlx.DB, log *slog.Logger) *UserRepository {
	return &UserRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

type userRow struct {
	ID        string         `db:"id"`
	Username  string         `db:"username"`
	Group     string         `db:"group"`
	Modes     pq.StringArray `db:"modes"`
	Probation pq.StringArray `db:"probation"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:        r.ID,
		Username:  r.Username,
		Group:     domain.Group(r.Group),
		Modes:     toGameModes(r.Modes),
		Probation: toGameModes(r.Probation),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toGameModes(values []string) []domain.GameMode {
	modes := make([]domain.GameMode, len(values))
	for i, v := range values {
		modes[i] = domain.GameMode(v)
	}

	return modes
}

var userColumns = []string{
	"id", "username", `"group"`, "modes", "probation", "created_at", "updated_at",
}

func (ur *UserRepository) GetByID(ctx context.Context, ext sqlx.ExtContext, userID string) (*domain.User, error) {
	const op = "internal.repository.postgres.GetUserByID"

	query, args, err := ur.sq.Select(userColumns...).
		From("users").
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	var row userRow
	if err := ext.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: user with id '%s'", op, apperrors.ErrNotFound, userID)
		}

		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	user := row.toDomain()

	return &user, nil
}

// ApplyMembershipDelta locks the user row, applies the whole delta in a single
// compound UPDATE and, when the removal emptied the user's modes, demotes the
// group and appends a tenure-end record. Running inside the caller's
// transaction with the row lock held serializes concurrent completions for the
// same subject user.
func (ur *UserRepository) ApplyMembershipDelta(ctx context.Context, tx *sqlx.Tx, userID string, delta domain.MembershipDelta, now time.Time) (*domain.User, error) {
	const op = "internal.repository.postgres.ApplyMembershipDelta"

	before, err := ur.lockUser(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	builder := ur.sq.Update("users").
		Set("updated_at", now).
		Where(sq.Eq{"id": userID}).
		Suffix("RETURNING " + strings.Join(userColumns, ", "))

	if delta.RemoveMode != "" {
		mode := string(delta.RemoveMode)
		builder = builder.
			Set("modes", sq.Expr("array_remove(modes, ?::text)", mode)).
			Set("probation", sq.Expr("array_remove(probation, ?::text)", mode)).
			Set(`"group"`, sq.Expr(
				`CASE WHEN array_length(array_remove(modes, ?::text), 1) IS NULL THEN 'user' ELSE "group" END`, mode))
	}

	if delta.AddProbation != "" {
		mode := string(delta.AddProbation)
		builder = builder.Set("probation", sq.Expr(
			"CASE WHEN ?::text = ANY(probation) THEN probation ELSE array_append(probation, ?::text) END", mode, mode))
	}

	if delta.RemoveProbation != "" {
		builder = builder.Set("probation", sq.Expr("array_remove(probation, ?::text)", string(delta.RemoveProbation)))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	var row userRow
	if err := tx.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	user := row.toDomain()

	if delta.RemoveMode != "" && len(before.Modes) > 0 && len(user.Modes) == 0 {
		if err := ur.insertTenureEnd(ctx, tx, userID, now); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return &user, nil
}

func (ur *UserRepository) lockUser(ctx context.Context, tx *sqlx.Tx, userID string) (*domain.User, error) {
	query, args, err := ur.sq.Select(userColumns...).
		From("users").
		Where(sq.Eq{"id": userID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build lock query: %w", err)
	}

	var row userRow
	if err := tx.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user with id '%s'", apperrors.ErrNotFound, userID)
		}

		return nil, fmt.Errorf("failed to lock user: %w", err)
	}

	user := row.toDomain()

	return &user, nil
}

func (ur *UserRepository) insertTenureEnd(ctx context.Context, tx *sqlx.Tx, userID string, endedAt time.Time) error {
	query, args, err := ur.sq.Insert("tenure_ends").
		Columns("user_id", "ended_at").
		Values(userID, endedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build tenure insert query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert tenure end: %w", err)
	}

	return nil
}

