package domain

import (
	"time"

	"github.com/google/uuid"
)

// ResolutionStrategy is the policy applied to a detected belief conflict.
type ResolutionStrategy string

const (
	StrategyNewerWins        ResolutionStrategy = "newer_wins"
	StrategyHigherConfidence ResolutionStrategy = "higher_confidence"
	StrategyMerge            ResolutionStrategy = "merge"
	StrategyManual           ResolutionStrategy = "manual"
)

func ValidResolutionStrategy(s string) bool {
	switch ResolutionStrategy(s) {
	case StrategyNewerWins, StrategyHigherConfidence, StrategyMerge, StrategyManual:
		return true
	}
	return false
}

// ConflictStatus tracks whether a conflict still awaits resolution.
type ConflictStatus string

const (
	ConflictUnresolved ConflictStatus = "unresolved"
	ConflictResolved   ConflictStatus = "resolved"
)

// BeliefConflict records a detected contradiction between two beliefs of the
// same agent. Resolved conflicts are retained as an audit trail; the
// unresolved set is a query filter, not a separate table.
type BeliefConflict struct {
	ID                  uuid.UUID           `json:"id"`
	AgentID             string              `json:"agent_id"`
	BeliefID            uuid.UUID           `json:"belief_id"`
	ConflictingBeliefID uuid.UUID           `json:"conflicting_belief_id"`
	Category            BeliefCategory      `json:"category"`
	DetectedAt          time.Time           `json:"detected_at"`
	Status              ConflictStatus      `json:"status"`
	Strategy            *ResolutionStrategy `json:"strategy,omitempty"`
	WinnerBeliefID      *uuid.UUID          `json:"winner_belief_id,omitempty"`
	ResolvedAt          *time.Time          `json:"resolved_at,omitempty"`
	Details             string              `json:"details,omitempty"`
}
