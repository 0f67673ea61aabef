// package http implements the HTTP transport layer for the service.
// It handles incoming requests, decodes them, calls the appropriate service methods,
// and encodes the responses. Authentication is the reverse proxy's concern;
// the acting user arrives in the X-Actor-ID header.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bnsite/eval-service/internal/apperrors"
	"github.com/bnsite/eval-service/internal/domain"
	"github.com/bnsite/eval-service/internal/service"
	"github.com/bnsite/eval-service/internal/validation"
	"github.com/bnsite/eval-service/pkg/logger/sl"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const actorIDHeader = "X-Actor-ID"

// Server holds the dependencies for the HTTP server, including the logger and service interfaces.
type Server struct {
	log         *slog.Logger
	evaluations service.EvaluationService
	activity    service.ActivityService
	now         func() time.Time
}

// NewServer creates a new instance of the HTTP server. The clock is injected
// so tests can pin "now" for the scheduler and correlator endpoints.
func NewServer(
	log *slog.Logger,
	evaluations service.EvaluationService,
	activity service.ActivityService,
	now func() time.Time,
) *Server {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Server{
		log:         log,
		evaluations: evaluations,
		activity:    activity,
		now:         now,
	}
}

// Routes sets up the router with all middleware and API endpoints.
func (s *Server) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(s.requestID)
	mux.Use(s.logRequest)
	mux.Use(s.metricsMiddleware)

	mux.Handle("/metrics", promhttp.Handler())

	mux.Route("/evaluations", func(r chi.Router) {
		r.Post("/", s.PostCreateRounds)
		r.Get("/active", s.GetActiveRounds)
		r.Get("/due", s.GetDueRounds)
		r.Post("/discussion", s.PostSetDiscussion)
		r.Post("/complete", s.PostComplete)
		r.Post("/{roundID}/reviews", s.PostSubmitReview)
		r.Post("/{roundID}/consensus", s.PostSetConsensus)
		r.Post("/{roundID}/feedback", s.PostSetFeedback)
	})

	mux.Route("/users/{userID}", func(r chi.Router) {
		r.Delete("/evaluations/future", s.DeleteFutureRounds)
		r.Get("/activity/{mode}", s.GetUserActivity)
	})

	return mux
}

func (s *Server) PostCreateRounds(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.PostCreateRounds"

	var req createRoundsRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	specs := make([]domain.RoundSpec, len(req.Rounds))
	for i, item := range req.Rounds {
		specs[i] = domain.RoundSpec{
			UserID:   item.UserID,
			Mode:     domain.GameMode(item.Mode),
			Deadline: item.Deadline,
		}
	}

	result, err := s.evaluations.CreateRounds(r.Context(), s.actorID(r), specs)
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	resp := createRoundsResponse{
		Created: toRoundResponses(result.Created),
		Failed:  make([]roundFailureResponse, len(result.Failed)),
	}
	for i, failure := range result.Failed {
		resp.Failed[i] = roundFailureResponse{
			UserID: failure.UserID,
			Mode:   string(failure.Mode),
			Reason: failure.Reason,
		}
	}

	s.respond(w, http.StatusCreated, resp)
}

func (s *Server) GetActiveRounds(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.GetActiveRounds"

	rounds, err := s.evaluations.ListActiveRounds(r.Context())
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string][]roundResponse{"rounds": toRoundResponses(rounds)})
}

func (s *Server) GetDueRounds(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.GetDueRounds"

	rounds, err := s.evaluations.FindActiveEvaluations(r.Context(), s.now())
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string][]roundResponse{"rounds": toRoundResponses(rounds)})
}

func (s *Server) PostSubmitReview(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.PostSubmitReview"

	var req submitReviewRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	round, err := s.evaluations.RecordReview(r.Context(), s.actorID(r), chi.URLParam(r, "roundID"), req.EvaluatorID, domain.ReviewContent{
		BehaviorComment: req.BehaviorComment,
		ModdingComment:  req.ModdingComment,
		Vote:            domain.Consensus(req.Vote),
	})
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]roundResponse{"round": toRoundResponse(round)})
}

func (s *Server) PostSetConsensus(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.PostSetConsensus"

	var req setConsensusRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	round, err := s.evaluations.SetConsensus(r.Context(), s.actorID(r), chi.URLParam(r, "roundID"), domain.Consensus(req.Consensus))
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]roundResponse{"round": toRoundResponse(round)})
}

func (s *Server) PostSetFeedback(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.PostSetFeedback"

	var req setFeedbackRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	round, err := s.evaluations.SetFeedback(r.Context(), s.actorID(r), chi.URLParam(r, "roundID"), req.Feedback)
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]roundResponse{"round": toRoundResponse(round)})
}

func (s *Server) PostSetDiscussion(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.PostSetDiscussion"

	var req setDiscussionRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	outcomes, err := s.evaluations.SetDiscussion(r.Context(), s.actorID(r), req.RoundIDs, req.Discussion)
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	resp := make([]outcomeResponse, len(outcomes))
	for i, outcome := range outcomes {
		resp[i] = outcomeResponse{RoundID: outcome.RoundID}
		if outcome.Err != nil {
			resp[i].Error = outcome.Err.Error()
		}
	}

	s.respond(w, http.StatusOK, map[string][]outcomeResponse{"outcomes": resp})
}

func (s *Server) PostComplete(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.PostComplete"

	var req completeRoundsRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	outcomes, err := s.evaluations.Complete(r.Context(), s.actorID(r), req.RoundIDs, s.now())
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	resp := make([]outcomeResponse, len(outcomes))
	for i, outcome := range outcomes {
		resp[i] = outcomeResponse{
			RoundID:   outcome.RoundID,
			Consensus: string(outcome.Consensus),
		}
		if outcome.Err != nil {
			resp[i].Error = outcome.Err.Error()
		}
	}

	s.respond(w, http.StatusOK, map[string][]outcomeResponse{"outcomes": resp})
}

func (s *Server) DeleteFutureRounds(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.DeleteFutureRounds"

	deleted, err := s.evaluations.DeleteFutureActive(r.Context(), s.actorID(r), chi.URLParam(r, "userID"), s.now())
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (s *Server) GetUserActivity(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.GetUserActivity"

	activity, err := s.activity.UserActivity(
		r.Context(),
		chi.URLParam(r, "userID"),
		domain.GameMode(chi.URLParam(r, "mode")),
		s.now(),
	)
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.respond(w, http.StatusOK, userActivityResponse{
		Nominations:             toEventResponses(activity.Nominations),
		DisqualifiedNominations: toEventResponses(activity.DisqualifiedNominations),
		PoppedNominations:       toEventResponses(activity.PoppedNominations),
		Disqualifications:       toEventResponses(activity.Disqualifications),
		Pops:                    toEventResponses(activity.Pops),
	})
}

func (s *Server) actorID(r *http.Request) string {
	if actor := r.Header.Get(actorIDHeader); actor != "" {
		return actor
	}

	return "unknown"
}

// respond is a helper function to encode data to JSON and write it to the response.
// It centralizes setting the Content-Type header and writing the status code.
func (s *Server) respond(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.log.Error("failed to encode response", sl.Err(err))
		}
	}
}

// respondError is a convenience wrapper around respond for sending simple error messages.
func (s *Server) respondError(w http.ResponseWriter, code int, message string) {
	s.respond(w, code, map[string]string{"error": message})
}

// decodeAndValidate is a helper that deserializes a JSON request body into a struct
// and then runs validation checks on it.
func (s *Server) decodeAndValidate(r *http.Request, v interface{}) error {
	if err := s.decode(r.Body, v); err != nil {
		return err
	}

	if err := validation.ValidateStruct(v); err != nil {
		return err
	}

	return nil
}

// decode is a helper function to decode a JSON request body.
func (s *Server) decode(body io.ReadCloser, v interface{}) error {
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, err)
	}

	return nil
}

// handleServiceError provides centralized error handling for all HTTP handlers.
// It logs the internal error and maps it to a user-friendly HTTP response.
func (s *Server) handleServiceError(w http.ResponseWriter, op string, err error) {
	log := s.log.With(slog.String("op", op))
	log.Error("service error occurred", sl.Err(err))

	var validationErr *validation.ValidationError

	switch {
	case errors.As(err, &validationErr):
		s.respondError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, apperrors.ErrInvalidRequest):
		s.respondError(w, http.StatusBadRequest, "invalid request body")
	case errors.Is(err, apperrors.ErrValidation):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, apperrors.ErrNotActive):
		s.respondError(w, http.StatusConflict, apperrors.ErrNotActive.Error())
	case errors.Is(err, apperrors.ErrNoConsensus):
		s.respondError(w, http.StatusConflict, apperrors.ErrNoConsensus.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
