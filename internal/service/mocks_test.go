package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/bnsite/eval-service/internal/domain"
	"github.com/bnsite/eval-service/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
)

type TransactorMock struct {
	mock.Mock
}

var _ Transactor = (*TransactorMock)(nil)

func (m *TransactorMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*sqlx.Tx), args.Error(1)
}

type EvaluationRepositoryMock struct {
	mock.Mock
}

var _ repository.EvaluationRepository = (*EvaluationRepositoryMock)(nil)

func (m *EvaluationRepositoryMock) CreateRound(ctx context.Context, ext sqlx.ExtContext, round *domain.EvaluationRound) error {
	args := m.Called(ctx, ext, round)
	return args.Error(0)
}

func (m *EvaluationRepositoryMock) GetRoundByID(ctx context.Context, roundID string) (*domain.EvaluationRound, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.EvaluationRound), args.Error(1)
}

func (m *EvaluationRepositoryMock) GetRoundByIDWithLock(ctx context.Context, tx *sqlx.Tx, roundID string) (*domain.EvaluationRound, error) {
	args := m.Called(ctx, tx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.EvaluationRound), args.Error(1)
}

func (m *EvaluationRepositoryMock) ListActive(ctx context.Context) ([]domain.EvaluationRound, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.EvaluationRound), args.Error(1)
}

func (m *EvaluationRepositoryMock) ListActiveDue(ctx context.Context, horizon time.Time) ([]domain.EvaluationRound, error) {
	args := m.Called(ctx, horizon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.EvaluationRound), args.Error(1)
}

func (m *EvaluationRepositoryMock) SetConsensus(ctx context.Context, roundID string, consensus domain.Consensus) error {
	args := m.Called(ctx, roundID, consensus)
	return args.Error(0)
}

func (m *EvaluationRepositoryMock) SetFeedback(ctx context.Context, roundID string, feedback string) error {
	args := m.Called(ctx, roundID, feedback)
	return args.Error(0)
}

func (m *EvaluationRepositoryMock) SetDiscussion(ctx context.Context, roundID string, discussion bool) error {
	args := m.Called(ctx, roundID, discussion)
	return args.Error(0)
}

func (m *EvaluationRepositoryMock) Deactivate(ctx context.Context, tx *sqlx.Tx, roundID string) error {
	args := m.Called(ctx, tx, roundID)
	return args.Error(0)
}

func (m *EvaluationRepositoryMock) UpsertReview(ctx context.Context, roundID, evaluatorID string, content domain.ReviewContent) (*domain.Review, error) {
	args := m.Called(ctx, roundID, evaluatorID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *EvaluationRepositoryMock) DeleteFutureActive(ctx context.Context, userID string, horizon time.Time) (int64, error) {
	args := m.Called(ctx, userID, horizon)
	return args.Get(0).(int64), args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

var _ repository.UserRepository = (*UserRepositoryMock)(nil)

func (m *UserRepositoryMock) GetByID(ctx context.Context, ext sqlx.ExtContext, userID string) (*domain.User, error) {
	args := m.Called(ctx, ext, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *UserRepositoryMock) ApplyMembershipDelta(ctx context.Context, tx *sqlx.Tx, userID string, delta domain.MembershipDelta, now time.Time) (*domain.User, error) {
	args := m.Called(ctx, tx, userID, delta, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.User), args.Error(1)
}

type EventRepositoryMock struct {
	mock.Mock
}

var _ repository.EventRepository = (*EventRepositoryMock)(nil)

func (m *EventRepositoryMock) ListNominations(ctx context.Context, userID string, mode domain.GameMode, since time.Time) ([]domain.ActivityEvent, error) {
	args := m.Called(ctx, userID, mode, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ActivityEvent), args.Error(1)
}

func (m *EventRepositoryMock) ListByType(ctx context.Context, eventType domain.EventType, since time.Time) ([]domain.ActivityEvent, error) {
	args := m.Called(ctx, eventType, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ActivityEvent), args.Error(1)
}

func (m *EventRepositoryMock) ListUserByType(ctx context.Context, userID string, eventType domain.EventType, since time.Time) ([]domain.ActivityEvent, error) {
	args := m.Called(ctx, userID, eventType, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ActivityEvent), args.Error(1)
}
