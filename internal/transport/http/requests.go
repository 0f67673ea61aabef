package http

import (
	"time"

	"github.com/bnsite/eval-service/internal/domain"
)

type createRoundsRequest struct {
	Rounds []struct {
		UserID   string    `json:"user_id" validate:"required,min=1,max=100"`
		Mode     string    `json:"mode" validate:"required,gamemode"`
		Deadline time.Time `json:"deadline" validate:"required"`
	} `json:"rounds" validate:"required,min=1,dive"`
}

type submitReviewRequest struct {
	EvaluatorID     string `json:"evaluator_id" validate:"required,min=1,max=100"`
	BehaviorComment string `json:"behavior_comment" validate:"max=5000"`
	ModdingComment  string `json:"modding_comment" validate:"max=5000"`
	Vote            string `json:"vote" validate:"required,consensus"`
}

type setConsensusRequest struct {
	Consensus string `json:"consensus" validate:"required,consensus"`
}

type setFeedbackRequest struct {
	Feedback string `json:"feedback" validate:"max=10000"`
}

type setDiscussionRequest struct {
	RoundIDs   []string `json:"round_ids" validate:"required,min=1,dive,uuid4"`
	Discussion bool     `json:"discussion"`
}

type completeRoundsRequest struct {
	RoundIDs []string `json:"round_ids" validate:"required,min=1,dive,uuid4"`
}

type reviewResponse struct {
	ID              string    `json:"id"`
	EvaluatorID     string    `json:"evaluator_id"`
	BehaviorComment string    `json:"behavior_comment"`
	ModdingComment  string    `json:"modding_comment"`
	Vote            string    `json:"vote"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type roundResponse struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Mode       string           `json:"mode"`
	Deadline   time.Time        `json:"deadline"`
	Active     bool             `json:"active"`
	Discussion bool             `json:"discussion"`
	Consensus  *string          `json:"consensus"`
	Feedback   string           `json:"feedback"`
	Reviews    []reviewResponse `json:"reviews"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

type roundFailureResponse struct {
	UserID string `json:"user_id"`
	Mode   string `json:"mode"`
	Reason string `json:"reason"`
}

type createRoundsResponse struct {
	Created []roundResponse        `json:"created"`
	Failed  []roundFailureResponse `json:"failed"`
}

type outcomeResponse struct {
	RoundID   string `json:"round_id"`
	Consensus string `json:"consensus,omitempty"`
	Error     string `json:"error,omitempty"`
}

type eventResponse struct {
	UserID       string    `json:"user_id"`
	BeatmapsetID int64     `json:"beatmapset_id"`
	EventType    string    `json:"event_type"`
	Timestamp    time.Time `json:"timestamp"`
}

type userActivityResponse struct {
	Nominations             []eventResponse `json:"nominations"`
	DisqualifiedNominations []eventResponse `json:"disqualified_nominations"`
	PoppedNominations       []eventResponse `json:"popped_nominations"`
	Disqualifications       []eventResponse `json:"disqualifications"`
	Pops                    []eventResponse `json:"pops"`
}

func toRoundResponse(round *domain.EvaluationRound) roundResponse {
	reviews := make([]reviewResponse, len(round.Reviews))
	for i, review := range round.Reviews {
		reviews[i] = reviewResponse{
			ID:              review.ID,
			EvaluatorID:     review.EvaluatorID,
			BehaviorComment: review.BehaviorComment,
			ModdingComment:  review.ModdingComment,
			Vote:            string(review.Vote),
			CreatedAt:       review.CreatedAt,
			UpdatedAt:       review.UpdatedAt,
		}
	}

	var consensus *string
	if round.Consensus != nil {
		value := string(*round.Consensus)
		consensus = &value
	}

	return roundResponse{
		ID:         round.ID,
		UserID:     round.UserID,
		Mode:       string(round.Mode),
		Deadline:   round.Deadline,
		Active:     round.Active,
		Discussion: round.Discussion,
		Consensus:  consensus,
		Feedback:   round.Feedback,
		Reviews:    reviews,
		CreatedAt:  round.CreatedAt,
		UpdatedAt:  round.UpdatedAt,
	}
}

func toRoundResponses(rounds []domain.EvaluationRound) []roundResponse {
	responses := make([]roundResponse, len(rounds))
	for i := range rounds {
		responses[i] = toRoundResponse(&rounds[i])
	}

	return responses
}

func toEventResponses(events []domain.ActivityEvent) []eventResponse {
	responses := make([]eventResponse, len(events))
	for i, event := range events {
		responses[i] = eventResponse{
			UserID:       event.UserID,
			BeatmapsetID: event.BeatmapsetID,
			EventType:    string(event.Type),
			Timestamp:    event.Timestamp,
		}
	}

	return responses
}
