package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bnsite/eval-service/internal/apperrors"
	"github.com/bnsite/eval-service/internal/domain"
	"github.com/bnsite/eval-service/internal/repository"
)

// activityWindow bounds how far back the correlator looks in the event log.
const activityWindow = 90 * 24 * time.Hour

type ActivityService interface {
	UserActivity(ctx context.Context, userID string, mode domain.GameMode, now time.Time) (*domain.UserActivity, error)
}

// ActivityServiceImpl correlates a user's recent nominations against the
// global disqualification and pop streams. It only reads the event log.
type ActivityServiceImpl struct {
	log    *slog.Logger
	events repository.EventRepository
}

func NewActivityService(log *slog.Logger, events repository.EventRepository) *ActivityServiceImpl {
	return &ActivityServiceImpl{
		log:    log,
		events: events,
	}
}

func (s *ActivityServiceImpl) UserActivity(ctx context.Context, userID string, mode domain.GameMode, now time.Time) (*domain.UserActivity, error) {
	const op = "internal.service.activity.UserActivity"

	if !mode.Valid() {
		return nil, &apperrors.InvalidModeError{Mode: string(mode)}
	}

	since := now.Add(-activityWindow)

	nominations, err := s.events.ListNominations(ctx, userID, mode, since)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list nominations: %w", op, err)
	}

	nominations = dedupAdjacent(nominations)

	disqualifiedNoms, err := s.matchReversals(ctx, nominations, domain.EventDisqualified, since, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	poppedNoms, err := s.matchReversals(ctx, nominations, domain.EventPopped, since, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	disqualifications, err := s.events.ListUserByType(ctx, userID, domain.EventDisqualified, since)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list disqualifications: %w", op, err)
	}

	pops, err := s.events.ListUserByType(ctx, userID, domain.EventPopped, since)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list pops: %w", op, err)
	}

	return &domain.UserActivity{
		Nominations:             nominations,
		DisqualifiedNominations: disqualifiedNoms,
		PoppedNominations:       poppedNoms,
		Disqualifications:       disqualifications,
		Pops:                    pops,
	}, nil
}

// matchReversals fetches all events of the given type in the window and keeps
// those hitting one of the user's nominated beatmapsets. When afterOnly is
// set, the reversal must be strictly later than the matched nomination
// (disqualifications of a qualification that predates the nomination don't
// count); pops match regardless of ordering.
func (s *ActivityServiceImpl) matchReversals(
	ctx context.Context,
	nominations []domain.ActivityEvent,
	eventType domain.EventType,
	since time.Time,
	afterOnly bool,
) ([]domain.ActivityEvent, error) {
	reversals, err := s.events.ListByType(ctx, eventType, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s events: %w", eventType, err)
	}

	matched := make([]domain.ActivityEvent, 0, len(reversals))

	for _, reversal := range reversals {
		for _, nomination := range nominations {
			if nomination.BeatmapsetID != reversal.BeatmapsetID {
				continue
			}

			if afterOnly && !nomination.Timestamp.Before(reversal.Timestamp) {
				continue
			}

			matched = append(matched, reversal)

			break
		}
	}

	return matched, nil
}

// dedupAdjacent collapses immediately repeated beatmapset ids in a slice
// ordered by beatmapset id, keeping the latest entry of each adjacent run.
// Non-adjacent repeats survive on purpose: the dedup is order-dependent, not
// a general uniqueness pass, and downstream matching relies on exactly this
// behavior.
func dedupAdjacent(events []domain.ActivityEvent) []domain.ActivityEvent {
	deduped := make([]domain.ActivityEvent, 0, len(events))

	for i, event := range events {
		if i+1 < len(events) && events[i+1].BeatmapsetID == event.BeatmapsetID {
			continue
		}

		deduped = append(deduped, event)
	}

	return deduped
}
