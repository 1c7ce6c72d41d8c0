package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/credohq/credo/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

const beliefColumns = `id, agent_id, statement, category, positive, confidence, reinforcement_count,
	 evidence_memory_ids, tags, active, pinned, archived_at, created_at, last_updated, version`

type BeliefStore struct {
	db *pgxpool.Pool
}

func NewBeliefStore(db *pgxpool.Pool) *BeliefStore {
	return &BeliefStore{db: db}
}

func (s *BeliefStore) Create(ctx context.Context, b *domain.Belief) error {
	var embedding *pgvector.Vector
	if len(b.Embedding) > 0 {
		v := pgvector.NewVector(b.Embedding)
		embedding = &v
	}

	err := s.db.QueryRow(ctx,
		`INSERT INTO beliefs (agent_id, statement, category, positive, confidence, reinforcement_count, evidence_memory_ids, tags, embedding, active, pinned)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, $10)
		 RETURNING id, created_at, last_updated, version`,
		b.AgentID, b.Statement, b.Category, b.Positive, b.Confidence, b.ReinforcementCount,
		evidenceStrings(b.EvidenceMemoryIDs), b.Tags, embedding, b.Pinned,
	).Scan(&b.ID, &b.CreatedAt, &b.LastUpdated, &b.Version)
	if err != nil {
		return fmt.Errorf("create belief: %w", err)
	}
	b.Active = true
	return nil
}

// CreateBatch stores each belief independently; one failure never drops or
// corrupts the others.
func (s *BeliefStore) CreateBatch(ctx context.Context, beliefs []*domain.Belief) []domain.BatchResult {
	results := make([]domain.BatchResult, 0, len(beliefs))
	for _, b := range beliefs {
		if err := ctx.Err(); err != nil {
			results = append(results, domain.BatchResult{ID: b.ID, Err: err})
			continue
		}
		err := s.Create(ctx, b)
		results = append(results, domain.BatchResult{ID: b.ID, Err: err})
	}
	return results
}

// Update applies an optimistic write: the row must still carry the caller's
// version. On success the belief's Version and LastUpdated are refreshed.
func (s *BeliefStore) Update(ctx context.Context, b *domain.Belief) error {
	err := s.db.QueryRow(ctx,
		`UPDATE beliefs
		 SET statement = $3, category = $4, positive = $5, confidence = $6,
		     reinforcement_count = $7, evidence_memory_ids = $8, tags = $9,
		     active = $10, pinned = $11, last_updated = NOW(), version = version + 1
		 WHERE id = $1 AND version = $2
		 RETURNING version, last_updated`,
		b.ID, b.Version, b.Statement, b.Category, b.Positive, b.Confidence,
		b.ReinforcementCount, evidenceStrings(b.EvidenceMemoryIDs), b.Tags, b.Active, b.Pinned,
	).Scan(&b.Version, &b.LastUpdated)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("update belief %s: %w", b.ID, err)
	}

	// Distinguish a stale version from a missing row.
	var exists bool
	if checkErr := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM beliefs WHERE id = $1)`, b.ID,
	).Scan(&exists); checkErr != nil {
		return fmt.Errorf("update belief %s: %w", b.ID, checkErr)
	}
	if exists {
		return ErrVersionConflict
	}
	return ErrNotFound
}

func (s *BeliefStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Belief, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+beliefColumns+` FROM beliefs WHERE id = $1`, id)
	b, err := scanBelief(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get belief %s: %w", id, err)
	}
	return b, nil
}

func (s *BeliefStore) GetByAgent(ctx context.Context, agentID string, includeInactive bool) ([]domain.Belief, error) {
	query := `SELECT ` + beliefColumns + ` FROM beliefs WHERE agent_id = $1 AND archived_at IS NULL`
	if !includeInactive {
		query += ` AND active`
	}
	query += ` ORDER BY created_at DESC`
	return s.queryBeliefs(ctx, query, agentID)
}

func (s *BeliefStore) GetByCategory(ctx context.Context, agentID string, category domain.BeliefCategory, includeInactive bool) ([]domain.Belief, error) {
	query := `SELECT ` + beliefColumns + ` FROM beliefs WHERE agent_id = $1 AND category = $2 AND archived_at IS NULL`
	if !includeInactive {
		query += ` AND active`
	}
	query += ` ORDER BY created_at DESC`
	return s.queryBeliefs(ctx, query, agentID, category)
}

func (s *BeliefStore) GetLowConfidence(ctx context.Context, agentID string, threshold float64) ([]domain.Belief, error) {
	return s.queryBeliefs(ctx,
		`SELECT `+beliefColumns+` FROM beliefs
		 WHERE agent_id = $1 AND active AND archived_at IS NULL AND confidence < $2
		 ORDER BY confidence ASC`,
		agentID, threshold)
}

func (s *BeliefStore) SearchSimilar(ctx context.Context, agentID string, embedding []float32, threshold float64, limit int) ([]domain.BeliefWithScore, error) {
	if limit <= 0 {
		limit = 10
	}
	vec := pgvector.NewVector(embedding)
	rows, err := s.db.Query(ctx,
		`SELECT `+beliefColumns+`, 1 - (embedding <=> $2) AS score
		 FROM beliefs
		 WHERE agent_id = $1 AND active AND archived_at IS NULL AND embedding IS NOT NULL
		   AND 1 - (embedding <=> $2) >= $3
		 ORDER BY embedding <=> $2
		 LIMIT $4`,
		agentID, vec, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("search similar beliefs: %w", err)
	}
	defer rows.Close()

	var scored []domain.BeliefWithScore
	for rows.Next() {
		var bs domain.BeliefWithScore
		var evidence []string
		if err := rows.Scan(&bs.ID, &bs.AgentID, &bs.Statement, &bs.Category, &bs.Positive,
			&bs.Confidence, &bs.ReinforcementCount, &evidence, &bs.Tags, &bs.Active, &bs.Pinned,
			&bs.ArchivedAt, &bs.CreatedAt, &bs.LastUpdated, &bs.Version, &bs.Score); err != nil {
			return nil, err
		}
		bs.EvidenceMemoryIDs = parseEvidence(evidence)
		scored = append(scored, bs)
	}
	return scored, rows.Err()
}

func (s *BeliefStore) SearchText(ctx context.Context, agentID string, query string, limit int) ([]domain.Belief, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryBeliefs(ctx,
		`SELECT `+beliefColumns+` FROM beliefs
		 WHERE agent_id = $1 AND active AND archived_at IS NULL AND statement ILIKE '%' || $2 || '%'
		 ORDER BY confidence DESC
		 LIMIT $3`,
		agentID, query, limit)
}

func (s *BeliefStore) Stats(ctx context.Context, agentID string) (*domain.BeliefStats, error) {
	beliefs, err := s.GetByAgent(ctx, agentID, true)
	if err != nil {
		return nil, err
	}
	return domain.ComputeBeliefStats(beliefs), nil
}

func (s *BeliefStore) ListAgentIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT agent_id FROM beliefs`)
	if err != nil {
		return nil, fmt.Errorf("list agent ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *BeliefStore) Archive(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE beliefs SET active = FALSE, archived_at = NOW(), last_updated = NOW(), version = version + 1
		 WHERE id = $1 AND archived_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("archive belief %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *BeliefStore) Restore(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE beliefs SET active = TRUE, archived_at = NULL, last_updated = NOW(), version = version + 1
		 WHERE id = $1 AND archived_at IS NOT NULL`, id)
	if err != nil {
		return fmt.Errorf("restore belief %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *BeliefStore) ListArchivedBefore(ctx context.Context, cutoff time.Time) ([]domain.Belief, error) {
	return s.queryBeliefs(ctx,
		`SELECT `+beliefColumns+` FROM beliefs WHERE archived_at IS NOT NULL AND archived_at < $1`,
		cutoff)
}

func (s *BeliefStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM beliefs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete belief %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *BeliefStore) queryBeliefs(ctx context.Context, query string, args ...any) ([]domain.Belief, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query beliefs: %w", err)
	}
	defer rows.Close()

	var beliefs []domain.Belief
	for rows.Next() {
		b, err := scanBelief(rows)
		if err != nil {
			return nil, err
		}
		beliefs = append(beliefs, *b)
	}
	return beliefs, rows.Err()
}

func scanBelief(row pgx.Row) (*domain.Belief, error) {
	b := &domain.Belief{}
	var evidence []string
	err := row.Scan(&b.ID, &b.AgentID, &b.Statement, &b.Category, &b.Positive,
		&b.Confidence, &b.ReinforcementCount, &evidence, &b.Tags, &b.Active, &b.Pinned,
		&b.ArchivedAt, &b.CreatedAt, &b.LastUpdated, &b.Version)
	if err != nil {
		return nil, err
	}
	b.EvidenceMemoryIDs = parseEvidence(evidence)
	return b, nil
}

func evidenceStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func parseEvidence(raw []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		if id, err := uuid.Parse(s); err == nil {
			out = append(out, id)
		}
	}
	return out
}
