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
)

const memoryColumns = `id, agent_id, content, category, importance, pinned,
	 access_count, last_accessed_at, archived_at, created_at`

// MemoryRecordStore is the Postgres implementation of the external memory
// collaborator the forgetting engine reads from and evicts against.
type MemoryRecordStore struct {
	db *pgxpool.Pool
}

func NewMemoryRecordStore(db *pgxpool.Pool) *MemoryRecordStore {
	return &MemoryRecordStore{db: db}
}

func (s *MemoryRecordStore) Create(ctx context.Context, m *domain.MemoryRecord) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO memory_records (agent_id, content, category, importance, pinned)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		m.AgentID, m.Content, m.Category, m.Importance, m.Pinned,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create memory record: %w", err)
	}
	return nil
}

func (s *MemoryRecordStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.MemoryRecord, error) {
	row := s.db.QueryRow(ctx, `SELECT `+memoryColumns+` FROM memory_records WHERE id = $1`, id)
	m, err := scanMemory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get memory record %s: %w", id, err)
	}
	return m, nil
}

func (s *MemoryRecordStore) GetByAgent(ctx context.Context, agentID string, includeArchived bool) ([]domain.MemoryRecord, error) {
	query := `SELECT ` + memoryColumns + ` FROM memory_records WHERE agent_id = $1`
	if !includeArchived {
		query += ` AND archived_at IS NULL`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("query memory records: %w", err)
	}
	defer rows.Close()

	var records []domain.MemoryRecord
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *m)
	}
	return records, rows.Err()
}

func (s *MemoryRecordStore) RecordAccess(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE memory_records SET access_count = access_count + 1, last_accessed_at = NOW()
		 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("record access %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryRecordStore) ListAgentIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT agent_id FROM memory_records`)
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

func (s *MemoryRecordStore) Archive(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE memory_records SET archived_at = NOW() WHERE id = $1 AND archived_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("archive memory record %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryRecordStore) Restore(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE memory_records SET archived_at = NULL WHERE id = $1 AND archived_at IS NOT NULL`, id)
	if err != nil {
		return fmt.Errorf("restore memory record %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryRecordStore) ListArchivedBefore(ctx context.Context, cutoff time.Time) ([]domain.MemoryRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+memoryColumns+` FROM memory_records WHERE archived_at IS NOT NULL AND archived_at < $1`,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("list archived memory records: %w", err)
	}
	defer rows.Close()

	var records []domain.MemoryRecord
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *m)
	}
	return records, rows.Err()
}

func (s *MemoryRecordStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM memory_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete memory record %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMemory(row pgx.Row) (*domain.MemoryRecord, error) {
	m := &domain.MemoryRecord{}
	err := row.Scan(&m.ID, &m.AgentID, &m.Content, &m.Category, &m.Importance,
		&m.Pinned, &m.AccessCount, &m.LastAccessedAt, &m.ArchivedAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}
