package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bnsite/eval-service/internal/repository"
	"github.com/bnsite/eval-service/pkg/logger/sl"
	"github.com/jmoiron/sqlx"
)

type Transactor interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type BaseService struct {
	db    Transactor
	log   *slog.Logger
	audit repository.AuditRepository
}

func NewBaseService(db Transactor, log *slog.Logger, audit repository.AuditRepository) BaseService {
	return BaseService{
		db:    db,
		log:   log,
		audit: audit,
	}
}

func (s *BaseService) transaction(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Error("failed to rollback transaction", sl.Err(err))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return nil
}

// record writes an audit line without blocking the caller. Sink failures are
// logged and never propagated to the triggering operation.
func (s *BaseService) record(actorID, message string) {
	if s.audit == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.audit.Record(ctx, actorID, message); err != nil {
			s.log.Warn("failed to record audit entry", sl.Err(err))
		}
	}()
}
