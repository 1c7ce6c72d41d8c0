package service

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/credohq/credo/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ForgettingStrategy selects which factors drive eviction decisions.
type ForgettingStrategy string

const (
	StrategyAgeBased   ForgettingStrategy = "age_based"
	StrategyUsageBased ForgettingStrategy = "usage_based"
	StrategyHybrid     ForgettingStrategy = "hybrid"
)

func ValidForgettingStrategy(s string) bool {
	switch ForgettingStrategy(s) {
	case StrategyAgeBased, StrategyUsageBased, StrategyHybrid:
		return true
	}
	return false
}

// RelevanceWeights distribute the relevance score over its factors. The
// defaults favor recency and frequency over declared importance.
type RelevanceWeights struct {
	Recency       float64
	Frequency     float64
	Importance    float64
	BeliefSupport float64
}

var DefaultRelevanceWeights = RelevanceWeights{
	Recency:       0.3,
	Frequency:     0.3,
	Importance:    0.2,
	BeliefSupport: 0.2,
}

// ForgettingConfig tunes the relevance and forgetting engine.
type ForgettingConfig struct {
	Strategy ForgettingStrategy
	Weights  RelevanceWeights

	// Memories scoring below this are archived.
	RelevanceThreshold float64
	// Archived items older than this are hard-deleted.
	GracePeriod time.Duration
	// Half-life of the recency factor.
	RecencyHalfLife time.Duration
	// Access count at which the frequency factor saturates.
	FrequencySaturation int
	// Beliefs with an active incoming edge at or above this strength are
	// protected from eviction.
	ProtectionStrength float64
	// Inactive beliefs below this confidence are eligible for archival.
	BeliefConfidenceFloor float64
	// Interval of the background cycle; zero disables the worker.
	Interval time.Duration
}

func (c *ForgettingConfig) withDefaults() ForgettingConfig {
	out := *c
	if out.Strategy == "" {
		out.Strategy = StrategyHybrid
	}
	if out.Weights == (RelevanceWeights{}) {
		out.Weights = DefaultRelevanceWeights
	}
	if out.RelevanceThreshold <= 0 {
		out.RelevanceThreshold = 0.2
	}
	if out.GracePeriod <= 0 {
		out.GracePeriod = 7 * 24 * time.Hour
	}
	if out.RecencyHalfLife <= 0 {
		out.RecencyHalfLife = 30 * 24 * time.Hour
	}
	if out.FrequencySaturation <= 0 {
		out.FrequencySaturation = 10
	}
	if out.ProtectionStrength <= 0 {
		out.ProtectionStrength = 0.8
	}
	if out.BeliefConfidenceFloor <= 0 {
		out.BeliefConfidenceFloor = 0.1
	}
	return out
}

// ForgettingReport summarizes one forgetting cycle.
type ForgettingReport struct {
	StartedAt         time.Time     `json:"started_at"`
	Duration          time.Duration `json:"duration"`
	AgentsScanned     int           `json:"agents_scanned"`
	MemoriesEvaluated int           `json:"memories_evaluated"`
	MemoriesArchived  int           `json:"memories_archived"`
	MemoriesDeleted   int           `json:"memories_deleted"`
	MemoriesProtected int           `json:"memories_protected"`
	BeliefsEvaluated  int           `json:"beliefs_evaluated"`
	BeliefsArchived   int           `json:"beliefs_archived"`
	BeliefsDeleted    int           `json:"beliefs_deleted"`
	BeliefsProtected  int           `json:"beliefs_protected"`
}

// ForgettingService relevance-scores memories and beliefs and evicts what
// falls below the threshold. Eviction is two-phase: items are archived first and only
// hard-deleted after the grace period, during which Restore cancels the
// eviction. At most one cycle runs at a time.
type ForgettingService struct {
	beliefs       domain.BeliefStore
	memories      domain.MemoryRecordStore
	relationships domain.RelationshipStore
	logger        *zap.Logger
	cfg           ForgettingConfig

	running atomic.Bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewForgettingService(
	beliefs domain.BeliefStore,
	memories domain.MemoryRecordStore,
	relationships domain.RelationshipStore,
	cfg ForgettingConfig,
	logger *zap.Logger,
) *ForgettingService {
	return &ForgettingService{
		beliefs:       beliefs,
		memories:      memories,
		relationships: relationships,
		logger:        logger,
		cfg:           cfg.withDefaults(),
		stopCh:        make(chan struct{}),
	}
}

// Relevance computes the weighted relevance score for one memory record.
// Every factor lies in [0,1], so the score does too. The strategy masks
// factors: age_based uses recency only, usage_based frequency and importance,
// hybrid all four.
func (s *ForgettingService) Relevance(m *domain.MemoryRecord, supported bool, now time.Time) (float64, domain.RelevanceFactors) {
	ref := m.CreatedAt
	if m.LastAccessedAt != nil && m.LastAccessedAt.After(ref) {
		ref = *m.LastAccessedAt
	}
	factors := domain.RelevanceFactors{
		Recency:    decayFactor(now.Sub(ref), s.cfg.RecencyHalfLife),
		Frequency:  frequencyFactor(m.AccessCount, s.cfg.FrequencySaturation),
		Importance: domain.ClampConfidence(m.Importance),
	}
	if supported {
		factors.BeliefSupport = 1
	}
	return s.weigh(factors), factors
}

// BeliefRelevance scores a belief with the same weighted model: age is taken
// from the last update, reinforcement count stands in for access frequency,
// confidence for declared importance, and evidence citations for support.
func (s *ForgettingService) BeliefRelevance(b *domain.Belief, now time.Time) (float64, domain.RelevanceFactors) {
	ref := b.CreatedAt
	if b.LastUpdated.After(ref) {
		ref = b.LastUpdated
	}
	factors := domain.RelevanceFactors{
		Recency:    decayFactor(now.Sub(ref), s.cfg.RecencyHalfLife),
		Frequency:  frequencyFactor(b.ReinforcementCount, s.cfg.FrequencySaturation),
		Importance: domain.ClampConfidence(b.Confidence),
	}
	if len(b.EvidenceMemoryIDs) > 0 {
		factors.BeliefSupport = 1
	}
	return s.weigh(factors), factors
}

func (s *ForgettingService) weigh(factors domain.RelevanceFactors) float64 {
	w := s.cfg.Weights
	switch s.cfg.Strategy {
	case StrategyAgeBased:
		w = RelevanceWeights{Recency: 1}
	case StrategyUsageBased:
		w = RelevanceWeights{Frequency: 0.6, Importance: 0.4}
	}

	total := w.Recency + w.Frequency + w.Importance + w.BeliefSupport
	if total == 0 {
		return 1
	}
	return (w.Recency*factors.Recency +
		w.Frequency*factors.Frequency +
		w.Importance*factors.Importance +
		w.BeliefSupport*factors.BeliefSupport) / total
}

// decayFactor halves per half-life of age; zero or negative age scores 1.
func decayFactor(age, halfLife time.Duration) float64 {
	if age <= 0 {
		return 1
	}
	return math.Exp2(-float64(age) / float64(halfLife))
}

func frequencyFactor(accessCount, saturation int) float64 {
	if accessCount >= saturation {
		return 1
	}
	return float64(accessCount) / float64(saturation)
}

// RunCycle executes one full forgetting pass over every agent. Returns
// ErrForgettingInProgress when a cycle is already running.
func (s *ForgettingService) RunCycle(ctx context.Context) (*ForgettingReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrForgettingInProgress
	}
	defer s.running.Store(false)

	report := &ForgettingReport{StartedAt: time.Now()}

	agentIDs, err := s.collectAgentIDs(ctx)
	if err != nil {
		return nil, err
	}
	report.AgentsScanned = len(agentIDs)

	for _, agentID := range agentIDs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := s.evaluateAgent(ctx, agentID, report); err != nil {
			s.logger.Warn("forgetting evaluation failed",
				zap.String("agent_id", agentID), zap.Error(err))
		}
	}

	if err := s.purgeExpired(ctx, report); err != nil {
		s.logger.Warn("purge of expired archives failed", zap.Error(err))
	}

	report.Duration = time.Since(report.StartedAt)
	s.logger.Info("forgetting cycle complete",
		zap.Int("agents", report.AgentsScanned),
		zap.Int("memories_archived", report.MemoriesArchived),
		zap.Int("memories_deleted", report.MemoriesDeleted),
		zap.Int("beliefs_archived", report.BeliefsArchived),
		zap.Int("beliefs_deleted", report.BeliefsDeleted),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (s *ForgettingService) collectAgentIDs(ctx context.Context) ([]string, error) {
	fromMemories, err := s.memories.ListAgentIDs(ctx)
	if err != nil {
		return nil, err
	}
	fromBeliefs, err := s.beliefs.ListAgentIDs(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(fromMemories))
	ids := make([]string, 0, len(fromMemories))
	for _, id := range fromMemories {
		seen[id] = true
		ids = append(ids, id)
	}
	for _, id := range fromBeliefs {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *ForgettingService) evaluateAgent(ctx context.Context, agentID string, report *ForgettingReport) error {
	supported, err := s.evidenceMemoryIDs(ctx, agentID)
	if err != nil {
		return err
	}

	records, err := s.memories.GetByAgent(ctx, agentID, false)
	if err != nil {
		return err
	}

	now := time.Now()
	for i := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		m := &records[i]
		report.MemoriesEvaluated++

		if m.Pinned || supported[m.ID] {
			report.MemoriesProtected++
			continue
		}

		score, _ := s.Relevance(m, false, now)
		if score >= s.cfg.RelevanceThreshold {
			continue
		}
		if err := s.memories.Archive(ctx, m.ID); err != nil {
			s.logger.Warn("memory archive failed",
				zap.String("memory_id", m.ID.String()), zap.Error(err))
			continue
		}
		report.MemoriesArchived++
	}

	return s.evaluateBeliefs(ctx, agentID, report)
}

// evaluateBeliefs relevance-scores every unpinned belief that no strong active
// edge protects and archives those below the threshold. Inactive beliefs whose
// confidence has fallen under the floor are archived regardless of score.
func (s *ForgettingService) evaluateBeliefs(ctx context.Context, agentID string, report *ForgettingReport) error {
	beliefs, err := s.beliefs.GetByAgent(ctx, agentID, true)
	if err != nil {
		return err
	}

	now := time.Now()
	for i := range beliefs {
		if err := ctx.Err(); err != nil {
			return err
		}
		b := &beliefs[i]
		report.BeliefsEvaluated++

		if b.Pinned {
			report.BeliefsProtected++
			continue
		}
		protected, err := s.hasStrongInEdge(ctx, b.ID)
		if err != nil {
			return err
		}
		if protected {
			report.BeliefsProtected++
			continue
		}

		score, _ := s.BeliefRelevance(b, now)
		evict := score < s.cfg.RelevanceThreshold
		if !evict && !b.Active && b.Confidence < s.cfg.BeliefConfidenceFloor {
			evict = true
		}
		if !evict {
			continue
		}

		if err := s.beliefs.Archive(ctx, b.ID); err != nil {
			s.logger.Warn("belief archive failed",
				zap.String("belief_id", b.ID.String()), zap.Error(err))
			continue
		}
		report.BeliefsArchived++
	}
	return nil
}

func (s *ForgettingService) hasStrongInEdge(ctx context.Context, beliefID uuid.UUID) (bool, error) {
	edges, err := s.relationships.GetForBelief(ctx, beliefID, domain.DirectionIncoming, false)
	if err != nil {
		return false, err
	}
	for _, e := range edges {
		if e.Strength >= s.cfg.ProtectionStrength {
			return true, nil
		}
	}
	return false, nil
}

// evidenceMemoryIDs collects the memory ids cited as evidence by an agent's
// active beliefs; those memories are protected from eviction.
func (s *ForgettingService) evidenceMemoryIDs(ctx context.Context, agentID string) (map[uuid.UUID]bool, error) {
	beliefs, err := s.beliefs.GetByAgent(ctx, agentID, false)
	if err != nil {
		return nil, err
	}
	cited := make(map[uuid.UUID]bool)
	for _, b := range beliefs {
		for _, id := range b.EvidenceMemoryIDs {
			cited[id] = true
		}
	}
	return cited, nil
}

// purgeExpired hard-deletes archived items older than the grace period.
func (s *ForgettingService) purgeExpired(ctx context.Context, report *ForgettingReport) error {
	cutoff := time.Now().Add(-s.cfg.GracePeriod)

	memories, err := s.memories.ListArchivedBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, m := range memories {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.memories.Delete(ctx, m.ID); err != nil {
			s.logger.Warn("memory delete failed",
				zap.String("memory_id", m.ID.String()), zap.Error(err))
			continue
		}
		report.MemoriesDeleted++
	}

	beliefs, err := s.beliefs.ListArchivedBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, b := range beliefs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.beliefs.Delete(ctx, b.ID); err != nil {
			s.logger.Warn("belief delete failed",
				zap.String("belief_id", b.ID.String()), zap.Error(err))
			continue
		}
		report.BeliefsDeleted++
	}
	return nil
}

// RestoreMemory cancels a pending eviction during the grace period.
func (s *ForgettingService) RestoreMemory(ctx context.Context, id uuid.UUID) error {
	if err := s.memories.Restore(ctx, id); err != nil {
		return err
	}
	s.logger.Info("memory restored", zap.String("memory_id", id.String()))
	return nil
}

// RestoreBelief cancels a pending belief eviction during the grace period.
// The belief comes back active.
func (s *ForgettingService) RestoreBelief(ctx context.Context, id uuid.UUID) error {
	if err := s.beliefs.Restore(ctx, id); err != nil {
		return err
	}
	s.logger.Info("belief restored", zap.String("belief_id", id.String()))
	return nil
}

// Start launches the periodic background cycle. No-op when the configured
// interval is zero.
func (s *ForgettingService) Start() {
	if s.cfg.Interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		s.logger.Info("forgetting worker started", zap.Duration("interval", s.cfg.Interval))
		for {
			select {
			case <-ticker.C:
				if _, err := s.RunCycle(context.Background()); err != nil {
					s.logger.Warn("scheduled forgetting cycle failed", zap.Error(err))
				}
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop halts the background cycle and waits for it to finish.
func (s *ForgettingService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("forgetting worker stopped")
}
