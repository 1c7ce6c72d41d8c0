package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/credohq/credo/internal/domain"
	"github.com/credohq/credo/internal/extraction"
	"github.com/credohq/credo/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultSimilarityThreshold = 0.7
	defaultCandidateLimit      = 10
	reinforcementFactor        = 0.1
	fallbackConfidence         = 0.5
	mergeDiscount              = 0.5
)

// BeliefConfig tunes the conflict and reinforcement engine. Two thresholds
// are kept distinct: SimilarityThreshold gates "same topic" matching, while
// ContradictionThreshold gates conflict detection among opposite-polarity
// pairs. ContradictionThreshold defaults to SimilarityThreshold.
type BeliefConfig struct {
	SimilarityThreshold    float64
	ContradictionThreshold float64
	CandidateLimit         int
	DefaultStrategy        domain.ResolutionStrategy
	StrategyByCategory     map[domain.BeliefCategory]domain.ResolutionStrategy
}

func (c *BeliefConfig) withDefaults() BeliefConfig {
	out := *c
	if out.SimilarityThreshold <= 0 {
		out.SimilarityThreshold = defaultSimilarityThreshold
	}
	if out.ContradictionThreshold <= 0 {
		out.ContradictionThreshold = out.SimilarityThreshold
	}
	if out.CandidateLimit <= 0 {
		out.CandidateLimit = defaultCandidateLimit
	}
	if out.DefaultStrategy == "" {
		out.DefaultStrategy = domain.StrategyNewerWins
	}
	return out
}

// AnalyzeAction describes what the engine did with one extracted statement.
type AnalyzeAction string

const (
	ActionCreated            AnalyzeAction = "created"
	ActionReinforced         AnalyzeAction = "reinforced"
	ActionConflictResolved   AnalyzeAction = "conflict_resolved"
	ActionConflictUnresolved AnalyzeAction = "conflict_unresolved"
)

// AnalyzeOutcome is the per-statement result of an ingest analysis.
type AnalyzeOutcome struct {
	Action       AnalyzeAction              `json:"action"`
	Belief       *domain.Belief             `json:"belief"`
	ConflictID   *uuid.UUID                 `json:"conflict_id,omitempty"`
	Strategy     *domain.ResolutionStrategy `json:"strategy,omitempty"`
	WinnerID     *uuid.UUID                 `json:"winner_id,omitempty"`
	LoserID      *uuid.UUID                 `json:"loser_id,omitempty"`
	MatchedScore float64                    `json:"matched_score,omitempty"`
}

// EngineStats counts what the engine has done since start.
type EngineStats struct {
	Analyzed          int64 `json:"analyzed"`
	Created           int64 `json:"created"`
	Reinforced        int64 `json:"reinforced"`
	ConflictsDetected int64 `json:"conflicts_detected"`
	ConflictsResolved int64 `json:"conflicts_resolved"`
}

// BeliefService is the conflict and reinforcement engine. For each statement
// extracted from new content it either creates a belief, reinforces an
// existing agreeing one, or detects a conflict and resolves it per the
// category's strategy.
type BeliefService struct {
	beliefs       domain.BeliefStore
	conflicts     domain.ConflictStore
	relationships domain.RelationshipStore
	extractor     extraction.Extractor
	embedding     domain.EmbeddingClient
	logger        *zap.Logger
	cfg           BeliefConfig

	analyzed          atomic.Int64
	created           atomic.Int64
	reinforced        atomic.Int64
	conflictsDetected atomic.Int64
	conflictsResolved atomic.Int64
}

func NewBeliefService(
	beliefs domain.BeliefStore,
	conflicts domain.ConflictStore,
	relationships domain.RelationshipStore,
	extractor extraction.Extractor,
	embedding domain.EmbeddingClient,
	cfg BeliefConfig,
	logger *zap.Logger,
) *BeliefService {
	return &BeliefService{
		beliefs:       beliefs,
		conflicts:     conflicts,
		relationships: relationships,
		extractor:     extractor,
		embedding:     embedding,
		logger:        logger,
		cfg:           cfg.withDefaults(),
	}
}

// Analyze ingests one piece of content for an agent. The optional memoryID is
// recorded as evidence on every belief the content touches. Each extracted
// statement is processed independently; a failure on one does not roll back
// the others.
func (s *BeliefService) Analyze(ctx context.Context, agentID, content string, category domain.BeliefCategory, memoryID *uuid.UUID) ([]AnalyzeOutcome, error) {
	if agentID == "" {
		return nil, fmt.Errorf("%w: agent id required", ErrInvalidInput)
	}
	if content == "" {
		return nil, fmt.Errorf("%w: content required", ErrInvalidInput)
	}

	candidates := s.extractor.Extract(ctx, content, agentID, category)
	if len(candidates) == 0 {
		// Nothing pattern-shaped in the content; keep a low-confidence general
		// belief so the ingest is never silently lost.
		candidates = []extraction.ExtractedBelief{{
			Statement:  "general: " + content,
			AgentID:    agentID,
			Category:   domain.CategoryGeneral,
			Confidence: fallbackConfidence,
			Positive:   true,
			Tags:       []string{"general"},
		}}
	}

	s.analyzed.Add(1)

	outcomes := make([]AnalyzeOutcome, 0, len(candidates))
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcome, err := s.processCandidate(ctx, cand, memoryID)
		if err != nil {
			s.logger.Warn("candidate processing failed",
				zap.String("agent_id", agentID),
				zap.String("statement", cand.Statement),
				zap.Error(err))
			continue
		}
		outcomes = append(outcomes, *outcome)
	}
	return outcomes, nil
}

func (s *BeliefService) processCandidate(ctx context.Context, cand extraction.ExtractedBelief, memoryID *uuid.UUID) (*AnalyzeOutcome, error) {
	match, score, err := s.findBestMatch(ctx, cand)
	if err != nil {
		return nil, err
	}

	if match == nil {
		b, err := s.createBelief(ctx, cand, memoryID)
		if err != nil {
			return nil, err
		}
		return &AnalyzeOutcome{Action: ActionCreated, Belief: b}, nil
	}

	if match.Positive == cand.Positive {
		b, err := s.reinforce(ctx, match, cand, memoryID)
		if err != nil {
			return nil, err
		}
		return &AnalyzeOutcome{Action: ActionReinforced, Belief: b, MatchedScore: score}, nil
	}

	if score < s.cfg.ContradictionThreshold {
		// Same topic but not similar enough to call a contradiction; the two
		// beliefs coexist.
		b, err := s.createBelief(ctx, cand, memoryID)
		if err != nil {
			return nil, err
		}
		return &AnalyzeOutcome{Action: ActionCreated, Belief: b, MatchedScore: score}, nil
	}

	return s.handleConflict(ctx, match, cand, memoryID, score)
}

// findBestMatch returns the most similar active belief of the candidate's
// agent and category at or above the similarity threshold, or nil. Vector
// search is used when an embedding client is wired; otherwise the extractor's
// lexical similarity scores the category's beliefs.
func (s *BeliefService) findBestMatch(ctx context.Context, cand extraction.ExtractedBelief) (*domain.Belief, float64, error) {
	if s.embedding != nil {
		vec, err := s.embedding.Embed(ctx, cand.Statement)
		if err == nil {
			scored, err := s.beliefs.SearchSimilar(ctx, cand.AgentID, vec, s.cfg.SimilarityThreshold, s.cfg.CandidateLimit)
			if err != nil {
				return nil, 0, err
			}
			// Vector search is agent-wide; keep matching scoped to the
			// candidate's category like the lexical path.
			for i := range scored {
				if scored[i].Category == cand.Category {
					return &scored[i].Belief, scored[i].Score, nil
				}
			}
			return nil, 0, nil
		}
		s.logger.Debug("embedding unavailable, using lexical matching", zap.Error(err))
	}

	existing, err := s.beliefs.GetByCategory(ctx, cand.AgentID, cand.Category, false)
	if err != nil {
		return nil, 0, err
	}

	var best *domain.Belief
	var bestScore float64
	for i := range existing {
		score := s.extractor.Similarity(ctx, cand.Statement, existing[i].Statement)
		if score >= s.cfg.SimilarityThreshold && score > bestScore {
			best = &existing[i]
			bestScore = score
		}
	}
	return best, bestScore, nil
}

func (s *BeliefService) createBelief(ctx context.Context, cand extraction.ExtractedBelief, memoryID *uuid.UUID) (*domain.Belief, error) {
	b := &domain.Belief{
		AgentID:    cand.AgentID,
		Statement:  cand.Statement,
		Category:   cand.Category,
		Positive:   cand.Positive,
		Confidence: domain.ClampConfidence(cand.Confidence),
		Tags:       cand.Tags,
	}
	if memoryID != nil {
		b.AddEvidence(*memoryID)
	}
	if s.embedding != nil {
		if vec, err := s.embedding.Embed(ctx, cand.Statement); err == nil {
			b.Embedding = vec
		}
	}
	if err := s.beliefs.Create(ctx, b); err != nil {
		return nil, err
	}
	s.created.Add(1)
	s.logger.Info("belief created",
		zap.String("agent_id", b.AgentID),
		zap.String("belief_id", b.ID.String()),
		zap.String("category", string(b.Category)),
		zap.Float64("confidence", b.Confidence))
	return b, nil
}

// reinforce bumps an agreeing belief's confidence with diminishing returns
// and records the new evidence. Retries once on a lost optimistic write.
func (s *BeliefService) reinforce(ctx context.Context, match *domain.Belief, cand extraction.ExtractedBelief, memoryID *uuid.UUID) (*domain.Belief, error) {
	apply := func(b *domain.Belief) {
		b.Confidence = domain.ClampConfidence(b.Confidence + (1-b.Confidence)*reinforcementFactor)
		b.ReinforcementCount++
		if memoryID != nil {
			b.AddEvidence(*memoryID)
		}
	}

	apply(match)
	err := s.beliefs.Update(ctx, match)
	if errors.Is(err, store.ErrVersionConflict) {
		fresh, getErr := s.beliefs.GetByID(ctx, match.ID)
		if getErr != nil {
			return nil, getErr
		}
		apply(fresh)
		if err = s.beliefs.Update(ctx, fresh); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				return nil, ErrConcurrentUpdate
			}
			return nil, err
		}
		match = fresh
	} else if err != nil {
		return nil, err
	}

	s.reinforced.Add(1)
	s.logger.Info("belief reinforced",
		zap.String("agent_id", match.AgentID),
		zap.String("belief_id", match.ID.String()),
		zap.Float64("confidence", match.Confidence),
		zap.Int("reinforcement_count", match.ReinforcementCount))
	return match, nil
}

func (s *BeliefService) strategyFor(category domain.BeliefCategory) domain.ResolutionStrategy {
	if st, ok := s.cfg.StrategyByCategory[category]; ok {
		return st
	}
	return s.cfg.DefaultStrategy
}

// handleConflict records the contradiction and applies the category's
// resolution strategy. The conflict row is always created first so that a
// failure mid-resolution leaves an unresolved conflict, never a silent loss.
func (s *BeliefService) handleConflict(ctx context.Context, match *domain.Belief, cand extraction.ExtractedBelief, memoryID *uuid.UUID, score float64) (*AnalyzeOutcome, error) {
	newBelief, err := s.createBelief(ctx, cand, memoryID)
	if err != nil {
		return nil, err
	}

	conflict := &domain.BeliefConflict{
		AgentID:             cand.AgentID,
		BeliefID:            newBelief.ID,
		ConflictingBeliefID: match.ID,
		Category:            cand.Category,
		Status:              domain.ConflictUnresolved,
		Details:             fmt.Sprintf("similarity %.2f, opposite polarity", score),
	}
	if err := s.conflicts.Create(ctx, conflict); err != nil {
		return nil, err
	}
	s.conflictsDetected.Add(1)

	strategy := s.strategyFor(cand.Category)
	outcome := &AnalyzeOutcome{
		Belief:       newBelief,
		ConflictID:   &conflict.ID,
		Strategy:     &strategy,
		MatchedScore: score,
	}

	switch strategy {
	case domain.StrategyNewerWins:
		if err := s.supersede(ctx, newBelief, match, "newer belief wins"); err != nil {
			return nil, err
		}
		outcome.WinnerID = &newBelief.ID
		outcome.LoserID = &match.ID

	case domain.StrategyHigherConfidence:
		winner, loser := newBelief, match
		if match.Confidence > newBelief.Confidence {
			winner, loser = match, newBelief
		}
		if err := s.supersede(ctx, winner, loser, "higher confidence wins"); err != nil {
			return nil, err
		}
		outcome.WinnerID = &winner.ID
		outcome.LoserID = &loser.ID

	case domain.StrategyMerge:
		if err := s.merge(ctx, newBelief, match); err != nil {
			return nil, err
		}

	case domain.StrategyManual:
		// Both beliefs stay active; the conflict waits for an operator.
		if err := s.linkContradiction(ctx, newBelief, match, score); err != nil {
			return nil, err
		}
		outcome.Action = ActionConflictUnresolved
		s.logger.Info("conflict queued for manual resolution",
			zap.String("agent_id", cand.AgentID),
			zap.String("conflict_id", conflict.ID.String()))
		return outcome, nil
	}

	now := time.Now()
	conflict.Status = domain.ConflictResolved
	conflict.Strategy = &strategy
	conflict.WinnerBeliefID = outcome.WinnerID
	conflict.ResolvedAt = &now
	if err := s.conflicts.Update(ctx, conflict); err != nil {
		return nil, err
	}
	s.conflictsResolved.Add(1)

	outcome.Action = ActionConflictResolved
	s.logger.Info("conflict resolved",
		zap.String("agent_id", cand.AgentID),
		zap.String("conflict_id", conflict.ID.String()),
		zap.String("strategy", string(strategy)))
	return outcome, nil
}

// supersede deactivates the loser and records a full-strength supersedes edge
// from winner to loser, with the reason on the edge.
func (s *BeliefService) supersede(ctx context.Context, winner, loser *domain.Belief, reason string) error {
	if loser.Active {
		loser.Active = false
		err := s.beliefs.Update(ctx, loser)
		if errors.Is(err, store.ErrVersionConflict) {
			fresh, getErr := s.beliefs.GetByID(ctx, loser.ID)
			if getErr != nil {
				return getErr
			}
			fresh.Active = false
			if err := s.beliefs.Update(ctx, fresh); err != nil {
				return ErrConcurrentUpdate
			}
		} else if err != nil {
			return err
		}
	}

	edge := &domain.BeliefRelationship{
		AgentID:           winner.AgentID,
		SourceBeliefID:    winner.ID,
		TargetBeliefID:    loser.ID,
		Type:              domain.RelSupersedes,
		Strength:          1.0,
		DeprecationReason: reason,
	}
	if err := s.relationships.Create(ctx, edge); err != nil && !errors.Is(err, store.ErrDuplicateEdge) {
		return err
	}
	return nil
}

// merge keeps both beliefs active with confidence discounted by the other
// side, linked by mutual weakens edges.
func (s *BeliefService) merge(ctx context.Context, a, b *domain.Belief) error {
	aConf, bConf := a.Confidence, b.Confidence
	a.Confidence = domain.ClampConfidence(aConf * (1 - bConf*mergeDiscount))
	b.Confidence = domain.ClampConfidence(bConf * (1 - aConf*mergeDiscount))

	if err := s.beliefs.Update(ctx, a); err != nil {
		return err
	}
	if err := s.beliefs.Update(ctx, b); err != nil {
		return err
	}

	for _, pair := range [][2]*domain.Belief{{a, b}, {b, a}} {
		edge := &domain.BeliefRelationship{
			AgentID:        pair[0].AgentID,
			SourceBeliefID: pair[0].ID,
			TargetBeliefID: pair[1].ID,
			Type:           domain.RelWeakens,
			Strength:       mergeDiscount,
		}
		if err := s.relationships.Create(ctx, edge); err != nil && !errors.Is(err, store.ErrDuplicateEdge) {
			return err
		}
	}
	return nil
}

func (s *BeliefService) linkContradiction(ctx context.Context, a, b *domain.Belief, score float64) error {
	edge := &domain.BeliefRelationship{
		AgentID:        a.AgentID,
		SourceBeliefID: a.ID,
		TargetBeliefID: b.ID,
		Type:           domain.RelContradicts,
		Strength:       domain.ClampConfidence(score),
	}
	if err := s.relationships.Create(ctx, edge); err != nil && !errors.Is(err, store.ErrDuplicateEdge) {
		return err
	}
	return nil
}

// ResolveManually settles a queued conflict with an operator-chosen winner.
// The loser is deactivated and superseded by the winner.
func (s *BeliefService) ResolveManually(ctx context.Context, conflictID, winnerID uuid.UUID) (*domain.BeliefConflict, error) {
	conflict, err := s.conflicts.GetByID(ctx, conflictID)
	if err != nil {
		return nil, err
	}
	if conflict.Status == domain.ConflictResolved {
		return nil, fmt.Errorf("%w: conflict already resolved", ErrInvalidInput)
	}

	var loserID uuid.UUID
	switch winnerID {
	case conflict.BeliefID:
		loserID = conflict.ConflictingBeliefID
	case conflict.ConflictingBeliefID:
		loserID = conflict.BeliefID
	default:
		return nil, fmt.Errorf("%w: winner must be one of the conflicting beliefs", ErrInvalidInput)
	}

	winner, err := s.beliefs.GetByID(ctx, winnerID)
	if err != nil {
		return nil, err
	}
	loser, err := s.beliefs.GetByID(ctx, loserID)
	if err != nil {
		return nil, err
	}
	if err := s.supersede(ctx, winner, loser, "manual resolution"); err != nil {
		return nil, err
	}

	now := time.Now()
	strategy := domain.StrategyManual
	conflict.Status = domain.ConflictResolved
	conflict.Strategy = &strategy
	conflict.WinnerBeliefID = &winnerID
	conflict.ResolvedAt = &now
	if err := s.conflicts.Update(ctx, conflict); err != nil {
		return nil, err
	}
	s.conflictsResolved.Add(1)
	return conflict, nil
}

// ReviewAgent runs a pairwise scan over an agent's active beliefs and files
// unresolved conflicts for contradictions that slipped past ingest-time
// detection. It never resolves; the report is for operators.
func (s *BeliefService) ReviewAgent(ctx context.Context, agentID string) ([]domain.BeliefConflict, error) {
	beliefs, err := s.beliefs.GetByAgent(ctx, agentID, false)
	if err != nil {
		return nil, err
	}

	known, err := s.conflicts.GetUnresolved(ctx, agentID)
	if err != nil {
		return nil, err
	}
	seen := make(map[[2]uuid.UUID]bool, len(known))
	for _, c := range known {
		seen[pairKey(c.BeliefID, c.ConflictingBeliefID)] = true
	}

	var found []domain.BeliefConflict
	for i := 0; i < len(beliefs); i++ {
		for j := i + 1; j < len(beliefs); j++ {
			if err := ctx.Err(); err != nil {
				return found, err
			}
			a, b := &beliefs[i], &beliefs[j]
			if a.Category != b.Category || a.Positive == b.Positive {
				continue
			}
			if seen[pairKey(a.ID, b.ID)] {
				continue
			}
			score := s.extractor.Similarity(ctx, a.Statement, b.Statement)
			if score < s.cfg.ContradictionThreshold {
				continue
			}

			conflict := &domain.BeliefConflict{
				AgentID:             agentID,
				BeliefID:            a.ID,
				ConflictingBeliefID: b.ID,
				Category:            a.Category,
				Status:              domain.ConflictUnresolved,
				Details:             fmt.Sprintf("review scan: similarity %.2f, opposite polarity", score),
			}
			if err := s.conflicts.Create(ctx, conflict); err != nil {
				return found, err
			}
			if err := s.linkContradiction(ctx, a, b, score); err != nil {
				return found, err
			}
			s.conflictsDetected.Add(1)
			found = append(found, *conflict)
		}
	}

	s.logger.Info("agent review complete",
		zap.String("agent_id", agentID),
		zap.Int("beliefs", len(beliefs)),
		zap.Int("new_conflicts", len(found)))
	return found, nil
}

func pairKey(a, b uuid.UUID) [2]uuid.UUID {
	if a.String() > b.String() {
		a, b = b, a
	}
	return [2]uuid.UUID{a, b}
}

// UpdateConfidence sets a belief's confidence directly, for operator
// corrections. Retries once on a lost optimistic write.
func (s *BeliefService) UpdateConfidence(ctx context.Context, id uuid.UUID, confidence float64, reason string) (*domain.Belief, error) {
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("%w: confidence must be within [0,1]", ErrInvalidInput)
	}

	for attempt := 0; attempt < 2; attempt++ {
		b, err := s.beliefs.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		b.Confidence = confidence
		err = s.beliefs.Update(ctx, b)
		if err == nil {
			s.logger.Info("confidence updated",
				zap.String("belief_id", id.String()),
				zap.Float64("confidence", confidence),
				zap.String("reason", reason))
			return b, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, err
		}
	}
	return nil, ErrConcurrentUpdate
}

// Deactivate retires a belief without archiving it. The belief stays
// addressable by id for audit and graph purposes.
func (s *BeliefService) Deactivate(ctx context.Context, id uuid.UUID, reason string) (*domain.Belief, error) {
	for attempt := 0; attempt < 2; attempt++ {
		b, err := s.beliefs.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !b.Active {
			return b, nil
		}
		b.Active = false
		err = s.beliefs.Update(ctx, b)
		if err == nil {
			s.logger.Info("belief deactivated",
				zap.String("belief_id", id.String()),
				zap.String("reason", reason))
			return b, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, err
		}
	}
	return nil, ErrConcurrentUpdate
}

// FindRelated returns active beliefs of the same agent ranked by similarity
// to the given belief's statement.
func (s *BeliefService) FindRelated(ctx context.Context, id uuid.UUID, limit int) ([]domain.BeliefWithScore, error) {
	if limit <= 0 {
		limit = s.cfg.CandidateLimit
	}
	b, err := s.beliefs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.embedding != nil && len(b.Embedding) > 0 {
		scored, err := s.beliefs.SearchSimilar(ctx, b.AgentID, b.Embedding, 0, limit+1)
		if err != nil {
			return nil, err
		}
		return dropSelf(scored, id, limit), nil
	}

	all, err := s.beliefs.GetByAgent(ctx, b.AgentID, false)
	if err != nil {
		return nil, err
	}
	var scored []domain.BeliefWithScore
	for i := range all {
		if all[i].ID == id {
			continue
		}
		score := s.extractor.Similarity(ctx, b.Statement, all[i].Statement)
		if score > 0 {
			scored = append(scored, domain.BeliefWithScore{Belief: all[i], Score: score})
		}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func dropSelf(scored []domain.BeliefWithScore, self uuid.UUID, limit int) []domain.BeliefWithScore {
	out := scored[:0]
	for _, s := range scored {
		if s.ID != self {
			out = append(out, s)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Search ranks an agent's active beliefs against a free-text query. The score
// is statement similarity weighted by the belief's confidence, so a weakly
// held belief does not outrank a strong one on wording alone.
func (s *BeliefService) Search(ctx context.Context, agentID, query string, limit int) ([]domain.BeliefWithScore, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = s.cfg.CandidateLimit
	}

	if s.embedding != nil {
		if vec, err := s.embedding.Embed(ctx, query); err == nil {
			scored, err := s.beliefs.SearchSimilar(ctx, agentID, vec, 0, limit)
			if err != nil {
				return nil, err
			}
			for i := range scored {
				scored[i].Score *= scored[i].Confidence
			}
			sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
			return scored, nil
		}
	}

	all, err := s.beliefs.GetByAgent(ctx, agentID, false)
	if err != nil {
		return nil, err
	}
	var scored []domain.BeliefWithScore
	for i := range all {
		score := s.extractor.Similarity(ctx, query, all[i].Statement) * all[i].Confidence
		if score > 0 {
			scored = append(scored, domain.BeliefWithScore{Belief: all[i], Score: score})
		}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// Stats combines store aggregates with the engine's own counters.
func (s *BeliefService) Stats(ctx context.Context, agentID string) (*domain.BeliefStats, *EngineStats, error) {
	stats, err := s.beliefs.Stats(ctx, agentID)
	if err != nil {
		return nil, nil, err
	}
	engine := &EngineStats{
		Analyzed:          s.analyzed.Load(),
		Created:           s.created.Load(),
		Reinforced:        s.reinforced.Load(),
		ConflictsDetected: s.conflictsDetected.Load(),
		ConflictsResolved: s.conflictsResolved.Load(),
	}
	return stats, engine, nil
}
