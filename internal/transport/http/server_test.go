package http

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bnsite/eval-service/internal/apperrors"
	"github.com/bnsite/eval-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(evaluations *EvaluationServiceMock, activity *ActivityServiceMock) *Server {
	return NewServer(
		slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		evaluations,
		activity,
		func() time.Time { return testNow },
	)
}

func consensusPtr(c domain.Consensus) *domain.Consensus {
	return &c
}

func TestServer_PostCreateRounds(t *testing.T) {
	deadline := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name                 string
		requestBody          string
		setupMocks           func(esm *EvaluationServiceMock)
		expectedStatusCode   int
		expectedResponseBody string
	}{
		{
			name:        "Success",
			requestBody: `{"rounds": [{"user_id": "user-1", "mode": "osu", "deadline": "2026-04-01T00:00:00Z"}]}`,
			setupMocks: func(esm *EvaluationServiceMock) {
				esm.On("CreateRounds", mock.Anything, "actor-1", []domain.RoundSpec{
					{UserID: "user-1", Mode: domain.ModeOsu, Deadline: deadline},
				}).Return(&domain.CreateRoundsResult{
					Created: []domain.EvaluationRound{{
						ID:       "round-1",
						UserID:   "user-1",
						Mode:     domain.ModeOsu,
						Deadline: deadline,
						Active:   true,
					}},
				}, nil).Once()
			},
			expectedStatusCode: http.StatusCreated,
			expectedResponseBody: `{
				"created": [{
					"id": "round-1",
					"user_id": "user-1",
					"mode": "osu",
					"deadline": "2026-04-01T00:00:00Z",
					"active": true,
					"discussion": false,
					"consensus": null,
					"feedback": "",
					"reviews": [],
					"created_at": "0001-01-01T00:00:00Z",
					"updated_at": "0001-01-01T00:00:00Z"
				}],
				"failed": []
			}`,
		},
		{
			name:                 "Invalid mode fails validation",
			requestBody:          `{"rounds": [{"user_id": "user-1", "mode": "ctb", "deadline": "2026-04-01T00:00:00Z"}]}`,
			setupMocks:           func(esm *EvaluationServiceMock) {},
			expectedStatusCode:   http.StatusBadRequest,
			expectedResponseBody: `{"error": "field 'Mode' must be one of: osu, taiko, catch, mania"}`,
		},
		{
			name:                 "Invalid JSON body",
			requestBody:          `{invalid json}`,
			setupMocks:           func(esm *EvaluationServiceMock) {},
			expectedStatusCode:   http.StatusBadRequest,
			expectedResponseBody: `{"error": "invalid request body"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			evaluations := new(EvaluationServiceMock)
			tc.setupMocks(evaluations)

			server := newTestServer(evaluations, new(ActivityServiceMock))

			req := httptest.NewRequest(http.MethodPost, "/evaluations", strings.NewReader(tc.requestBody))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Actor-ID", "actor-1")

			rr := httptest.NewRecorder()
			server.Routes().ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
			assert.JSONEq(t, tc.expectedResponseBody, rr.Body.String())
			evaluations.AssertExpectations(t)
		})
	}
}

func TestServer_PostSubmitReview(t *testing.T) {
	content := domain.ReviewContent{
		BehaviorComment: "communicates well",
		ModdingComment:  "thorough checks",
		Vote:            domain.ConsensusPass,
	}

	testCases := []struct {
		name                 string
		requestBody          string
		setupMocks           func(esm *EvaluationServiceMock)
		expectedStatusCode   int
		expectedResponseBody string
	}{
		{
			name:        "Success",
			requestBody: `{"evaluator_id": "evaluator-1", "behavior_comment": "communicates well", "modding_comment": "thorough checks", "vote": "pass"}`,
			setupMocks: func(esm *EvaluationServiceMock) {
				esm.On("RecordReview", mock.Anything, "actor-1", "round-1", "evaluator-1", content).
					Return(&domain.EvaluationRound{
						ID:     "round-1",
						UserID: "user-1",
						Mode:   domain.ModeOsu,
						Active: true,
						Reviews: []domain.Review{{
							ID:              "review-1",
							RoundID:         "round-1",
							EvaluatorID:     "evaluator-1",
							BehaviorComment: "communicates well",
							ModdingComment:  "thorough checks",
							Vote:            domain.ConsensusPass,
						}},
					}, nil).Once()
			},
			expectedStatusCode: http.StatusOK,
			expectedResponseBody: `{
				"round": {
					"id": "round-1",
					"user_id": "user-1",
					"mode": "osu",
					"deadline": "0001-01-01T00:00:00Z",
					"active": true,
					"discussion": false,
					"consensus": null,
					"feedback": "",
					"reviews": [{
						"id": "review-1",
						"evaluator_id": "evaluator-1",
						"behavior_comment": "communicates well",
						"modding_comment": "thorough checks",
						"vote": "pass",
						"created_at": "0001-01-01T00:00:00Z",
						"updated_at": "0001-01-01T00:00:00Z"
					}],
					"created_at": "0001-01-01T00:00:00Z",
					"updated_at": "0001-01-01T00:00:00Z"
				}
			}`,
		},
		{
			name:                 "Invalid vote fails validation",
			requestBody:          `{"evaluator_id": "evaluator-1", "vote": "maybe"}`,
			setupMocks:           func(esm *EvaluationServiceMock) {},
			expectedStatusCode:   http.StatusBadRequest,
			expectedResponseBody: `{"error": "field 'Vote' must be one of: pass, extend, fail"}`,
		},
		{
			name:        "Unknown round",
			requestBody: `{"evaluator_id": "evaluator-1", "behavior_comment": "communicates well", "modding_comment": "thorough checks", "vote": "pass"}`,
			setupMocks: func(esm *EvaluationServiceMock) {
				esm.On("RecordReview", mock.Anything, "actor-1", "round-1", "evaluator-1", content).
					Return(nil, apperrors.ErrNotFound).Once()
			},
			expectedStatusCode:   http.StatusNotFound,
			expectedResponseBody: `{"error": "resource not found"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			evaluations := new(EvaluationServiceMock)
			tc.setupMocks(evaluations)

			server := newTestServer(evaluations, new(ActivityServiceMock))

			req := httptest.NewRequest(http.MethodPost, "/evaluations/round-1/reviews", strings.NewReader(tc.requestBody))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Actor-ID", "actor-1")

			rr := httptest.NewRecorder()
			server.Routes().ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
			assert.JSONEq(t, tc.expectedResponseBody, rr.Body.String())
			evaluations.AssertExpectations(t)
		})
	}
}

func TestServer_PostComplete(t *testing.T) {
	roundIDs := []string{
		"5f1c9d2e-3a4b-4c5d-8e6f-0a1b2c3d4e5f",
		"6a2d0e3f-4b5c-4d6e-9f70-1b2c3d4e5f60",
	}

	evaluations := new(EvaluationServiceMock)
	evaluations.On("Complete", mock.Anything, "actor-1", roundIDs, testNow).
		Return([]domain.CompleteOutcome{
			{RoundID: roundIDs[0], Consensus: domain.ConsensusFail},
			{RoundID: roundIDs[1], Err: &apperrors.RoundNotActiveError{RoundID: roundIDs[1]}},
		}, nil).Once()

	server := newTestServer(evaluations, new(ActivityServiceMock))

	body := `{"round_ids": ["5f1c9d2e-3a4b-4c5d-8e6f-0a1b2c3d4e5f", "6a2d0e3f-4b5c-4d6e-9f70-1b2c3d4e5f60"]}`
	req := httptest.NewRequest(http.MethodPost, "/evaluations/complete", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", "actor-1")

	rr := httptest.NewRecorder()
	server.Routes().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{
		"outcomes": [
			{"round_id": "5f1c9d2e-3a4b-4c5d-8e6f-0a1b2c3d4e5f", "consensus": "fail"},
			{"round_id": "6a2d0e3f-4b5c-4d6e-9f70-1b2c3d4e5f60", "error": "evaluation round '6a2d0e3f-4b5c-4d6e-9f70-1b2c3d4e5f60' is not active"}
		]
	}`, rr.Body.String())
	evaluations.AssertExpectations(t)
}

func TestServer_PostSetConsensus(t *testing.T) {
	evaluations := new(EvaluationServiceMock)
	evaluations.On("SetConsensus", mock.Anything, "actor-1", "round-1", domain.ConsensusExtend).
		Return(&domain.EvaluationRound{
			ID:        "round-1",
			UserID:    "user-1",
			Mode:      domain.ModeTaiko,
			Active:    true,
			Consensus: consensusPtr(domain.ConsensusExtend),
		}, nil).Once()

	server := newTestServer(evaluations, new(ActivityServiceMock))

	req := httptest.NewRequest(http.MethodPost, "/evaluations/round-1/consensus", strings.NewReader(`{"consensus": "extend"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", "actor-1")

	rr := httptest.NewRecorder()
	server.Routes().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{
		"round": {
			"id": "round-1",
			"user_id": "user-1",
			"mode": "taiko",
			"deadline": "0001-01-01T00:00:00Z",
			"active": true,
			"discussion": false,
			"consensus": "extend",
			"feedback": "",
			"reviews": [],
			"created_at": "0001-01-01T00:00:00Z",
			"updated_at": "0001-01-01T00:00:00Z"
		}
	}`, rr.Body.String())
	evaluations.AssertExpectations(t)
}

func TestServer_DeleteFutureRounds(t *testing.T) {
	evaluations := new(EvaluationServiceMock)
	evaluations.On("DeleteFutureActive", mock.Anything, "actor-1", "user-1", testNow).
		Return(int64(3), nil).Once()

	server := newTestServer(evaluations, new(ActivityServiceMock))

	req := httptest.NewRequest(http.MethodDelete, "/users/user-1/evaluations/future", nil)
	req.Header.Set("X-Actor-ID", "actor-1")

	rr := httptest.NewRecorder()
	server.Routes().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"deleted": 3}`, rr.Body.String())
	evaluations.AssertExpectations(t)
}

func TestServer_GetDueRounds(t *testing.T) {
	evaluations := new(EvaluationServiceMock)
	evaluations.On("FindActiveEvaluations", mock.Anything, testNow).
		Return([]domain.EvaluationRound{{
			ID:       "round-1",
			UserID:   "user-1",
			Mode:     domain.ModeMania,
			Deadline: testNow.Add(24 * time.Hour),
			Active:   true,
		}}, nil).Once()

	server := newTestServer(evaluations, new(ActivityServiceMock))

	req := httptest.NewRequest(http.MethodGet, "/evaluations/due", nil)

	rr := httptest.NewRecorder()
	server.Routes().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{
		"rounds": [{
			"id": "round-1",
			"user_id": "user-1",
			"mode": "mania",
			"deadline": "2026-03-02T12:00:00Z",
			"active": true,
			"discussion": false,
			"consensus": null,
			"feedback": "",
			"reviews": [],
			"created_at": "0001-01-01T00:00:00Z",
			"updated_at": "0001-01-01T00:00:00Z"
		}]
	}`, rr.Body.String())
	evaluations.AssertExpectations(t)
}

func TestServer_GetUserActivity(t *testing.T) {
	testCases := []struct {
		name                 string
		mode                 string
		setupMocks           func(asm *ActivityServiceMock)
		expectedStatusCode   int
		expectedResponseBody string
	}{
		{
			name: "Success",
			mode: "osu",
			setupMocks: func(asm *ActivityServiceMock) {
				asm.On("UserActivity", mock.Anything, "user-1", domain.ModeOsu, testNow).
					Return(&domain.UserActivity{
						Nominations: []domain.ActivityEvent{{
							UserID:       "user-1",
							BeatmapsetID: 100,
							Type:         domain.EventQualified,
							Timestamp:    time.Date(2026, time.February, 10, 9, 0, 0, 0, time.UTC),
						}},
						DisqualifiedNominations: []domain.ActivityEvent{},
						PoppedNominations:       []domain.ActivityEvent{},
						Disqualifications:       []domain.ActivityEvent{},
						Pops:                    []domain.ActivityEvent{},
					}, nil).Once()
			},
			expectedStatusCode: http.StatusOK,
			expectedResponseBody: `{
				"nominations": [{
					"user_id": "user-1",
					"beatmapset_id": 100,
					"event_type": "Qualified",
					"timestamp": "2026-02-10T09:00:00Z"
				}],
				"disqualified_nominations": [],
				"popped_nominations": [],
				"disqualifications": [],
				"pops": []
			}`,
		},
		{
			name: "Invalid mode",
			mode: "ctb",
			setupMocks: func(asm *ActivityServiceMock) {
				asm.On("UserActivity", mock.Anything, "user-1", domain.GameMode("ctb"), testNow).
					Return(nil, &apperrors.InvalidModeError{Mode: "ctb"}).Once()
			},
			expectedStatusCode:   http.StatusBadRequest,
			expectedResponseBody: `{"error": "'ctb' is not a valid game mode"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			activity := new(ActivityServiceMock)
			tc.setupMocks(activity)

			server := newTestServer(new(EvaluationServiceMock), activity)

			req := httptest.NewRequest(http.MethodGet, "/users/user-1/activity/"+tc.mode, nil)

			rr := httptest.NewRecorder()
			server.Routes().ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
			assert.JSONEq(t, tc.expectedResponseBody, rr.Body.String())
			activity.AssertExpectations(t)
		})
	}
}
