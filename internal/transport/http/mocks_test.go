package http

import (
	"context"
	"time"

	"github.com/bnsite/eval-service/internal/domain"
	"github.com/bnsite/eval-service/internal/service"
	"github.com/stretchr/testify/mock"
)

type EvaluationServiceMock struct {
	mock.Mock
}

var _ service.EvaluationService = (*EvaluationServiceMock)(nil)

func (m *EvaluationServiceMock) CreateRounds(ctx context.Context, actorID string, specs []domain.RoundSpec) (*domain.CreateRoundsResult, error) {
	args := m.Called(ctx, actorID, specs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.CreateRoundsResult), args.Error(1)
}

func (m *EvaluationServiceMock) RecordReview(ctx context.Context, actorID, roundID, evaluatorID string, content domain.ReviewContent) (*domain.EvaluationRound, error) {
	args := m.Called(ctx, actorID, roundID, evaluatorID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.EvaluationRound), args.Error(1)
}

func (m *EvaluationServiceMock) SetConsensus(ctx context.Context, actorID, roundID string, consensus domain.Consensus) (*domain.EvaluationRound, error) {
	args := m.Called(ctx, actorID, roundID, consensus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.EvaluationRound), args.Error(1)
}

func (m *EvaluationServiceMock) SetFeedback(ctx context.Context, actorID, roundID, feedback string) (*domain.EvaluationRound, error) {
	args := m.Called(ctx, actorID, roundID, feedback)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.EvaluationRound), args.Error(1)
}

func (m *EvaluationServiceMock) SetDiscussion(ctx context.Context, actorID string, roundIDs []string, discussion bool) ([]domain.BatchOutcome, error) {
	args := m.Called(ctx, actorID, roundIDs, discussion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.BatchOutcome), args.Error(1)
}

func (m *EvaluationServiceMock) Complete(ctx context.Context, actorID string, roundIDs []string, now time.Time) ([]domain.CompleteOutcome, error) {
	args := m.Called(ctx, actorID, roundIDs, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.CompleteOutcome), args.Error(1)
}

func (m *EvaluationServiceMock) FindActiveEvaluations(ctx context.Context, now time.Time) ([]domain.EvaluationRound, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.EvaluationRound), args.Error(1)
}

func (m *EvaluationServiceMock) ListActiveRounds(ctx context.Context) ([]domain.EvaluationRound, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.EvaluationRound), args.Error(1)
}

func (m *EvaluationServiceMock) DeleteFutureActive(ctx context.Context, actorID, userID string, now time.Time) (int64, error) {
	args := m.Called(ctx, actorID, userID, now)
	return args.Get(0).(int64), args.Error(1)
}

type ActivityServiceMock struct {
	mock.Mock
}

var _ service.ActivityService = (*ActivityServiceMock)(nil)

func (m *ActivityServiceMock) UserActivity(ctx context.Context, userID string, mode domain.GameMode, now time.Time) (*domain.UserActivity, error) {
	args := m.Called(ctx, userID, mode, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.UserActivity), args.Error(1)
}
