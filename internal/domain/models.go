package domain

import (
	"time"
)

// GameMode is one of the fixed disciplines a BN can hold.
type GameMode string

const (
	ModeOsu   GameMode = "osu"
	ModeTaiko GameMode = "taiko"
	ModeCatch GameMode = "catch"
	ModeMania GameMode = "mania"
)

func (m GameMode) Valid() bool {
	switch m {
	case ModeOsu, ModeTaiko, ModeCatch, ModeMania:
		return true
	}

	return false
}

// Group is the membership tier of a user. Demotion always lands on GroupUser.
type Group string

const (
	GroupUser Group = "user"
	GroupBN   Group = "bn"
	GroupNAT  Group = "nat"
)

// Consensus is the resolved human judgment on a round. It drives the
// membership side effects applied on completion. A round without consensus
// stores NULL, not an empty string.
type Consensus string

const (
	ConsensusPass   Consensus = "pass"
	ConsensusExtend Consensus = "extend"
	ConsensusFail   Consensus = "fail"
)

func (c Consensus) Valid() bool {
	switch c {
	case ConsensusPass, ConsensusExtend, ConsensusFail:
		return true
	}

	return false
}

// EventType classifies a moderation event in the append-only event log.
type EventType string

const (
	EventBubbled      EventType = "Bubbled"
	EventQualified    EventType = "Qualified"
	EventDisqualified EventType = "Disqualified"
	EventPopped       EventType = "Popped"
)

type User struct {
	ID        string     `db:"id"`
	Username  string     `db:"username"`
	Group     Group      `db:"group"`
	Modes     []GameMode `db:"modes"`
	Probation []GameMode `db:"probation"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

func (u *User) HasMode(m GameMode) bool {
	for _, held := range u.Modes {
		if held == m {
			return true
		}
	}

	return false
}

func (u *User) OnProbation(m GameMode) bool {
	for _, held := range u.Probation {
		if held == m {
			return true
		}
	}

	return false
}

// EvaluationRound is one evaluation cycle for a user in one mode.
// Once Active flips to false the round is terminal and never reactivated.
type EvaluationRound struct {
	ID         string     `db:"id"`
	UserID     string     `db:"user_id"`
	Mode       GameMode   `db:"mode"`
	Deadline   time.Time  `db:"deadline"`
	Active     bool       `db:"active"`
	Discussion bool       `db:"discussion"`
	Consensus  *Consensus `db:"consensus"`
	Feedback   string     `db:"feedback"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
	Reviews    []Review
}

// Review is a single evaluator's judgment on a round. At most one review per
// evaluator per round; content is edited in place under the same id.
type Review struct {
	ID              string    `db:"id"`
	RoundID         string    `db:"round_id"`
	EvaluatorID     string    `db:"evaluator_id"`
	BehaviorComment string    `db:"behavior_comment"`
	ModdingComment  string    `db:"modding_comment"`
	Vote            Consensus `db:"vote"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// ReviewContent is the author-editable part of a review.
type ReviewContent struct {
	BehaviorComment string
	ModdingComment  string
	Vote            Consensus
}

// ActivityEvent is one entry of the external moderation event log.
// This service never writes events.
type ActivityEvent struct {
	ID           int64      `db:"id"`
	UserID       string     `db:"user_id"`
	BeatmapsetID int64      `db:"beatmapset_id"`
	Type         EventType  `db:"event_type"`
	Modes        []GameMode `db:"modes"`
	Timestamp    time.Time  `db:"created_at"`
}

// RoundSpec describes one round to create in a batch.
type RoundSpec struct {
	UserID   string
	Mode     GameMode
	Deadline time.Time
}

// RoundSpecFailure reports one item of a creation batch that was skipped.
type RoundSpecFailure struct {
	UserID string
	Mode   GameMode
	Reason string
}

// CreateRoundsResult is the per-item outcome summary of a creation batch.
type CreateRoundsResult struct {
	Created []EvaluationRound
	Failed  []RoundSpecFailure
}

// BatchOutcome reports the result of one item in a bulk round operation.
type BatchOutcome struct {
	RoundID string
	Err     error
}

// CompleteOutcome reports the result of completing one round, including the
// consensus that was applied when the completion succeeded.
type CompleteOutcome struct {
	RoundID   string
	Consensus Consensus
	Err       error
}

// MembershipDelta describes one atomic change to a user's membership state.
// Zero-valued fields are no-ops. RemoveMode removes the mode from both modes
// and probation, and demotes the user to GroupUser with a tenure-end record
// when it empties modes. AddProbation is a no-op if the mode is already on
// probation.
type MembershipDelta struct {
	RemoveMode      GameMode
	AddProbation    GameMode
	RemoveProbation GameMode
}

// UserActivity is the correlated 90-day view of a user's nomination history.
//
// Nominations are deduplicated by adjacency only: the source events are
// ordered by beatmapset id and immediately repeated ids are collapsed. A
// beatmapset appearing twice with another one in between is kept twice; this
// mirrors the order-dependent behavior callers rely on.
type UserActivity struct {
	Nominations             []ActivityEvent
	DisqualifiedNominations []ActivityEvent
	PoppedNominations       []ActivityEvent
	Disqualifications       []ActivityEvent
	Pops                    []ActivityEvent
}
