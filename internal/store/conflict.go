package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/credohq/credo/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const conflictColumns = `id, agent_id, belief_id, conflicting_belief_id, category, detected_at,
	 status, strategy, winner_belief_id, resolved_at, details`

type ConflictStore struct {
	db *pgxpool.Pool
}

func NewConflictStore(db *pgxpool.Pool) *ConflictStore {
	return &ConflictStore{db: db}
}

func (s *ConflictStore) Create(ctx context.Context, c *domain.BeliefConflict) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO belief_conflicts (agent_id, belief_id, conflicting_belief_id, category, status, details)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, detected_at`,
		c.AgentID, c.BeliefID, c.ConflictingBeliefID, c.Category, c.Status, c.Details,
	).Scan(&c.ID, &c.DetectedAt)
	if err != nil {
		return fmt.Errorf("create conflict: %w", err)
	}
	return nil
}

func (s *ConflictStore) Update(ctx context.Context, c *domain.BeliefConflict) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE belief_conflicts
		 SET status = $2, strategy = $3, winner_belief_id = $4, resolved_at = $5, details = $6
		 WHERE id = $1`,
		c.ID, c.Status, c.Strategy, c.WinnerBeliefID, c.ResolvedAt, c.Details)
	if err != nil {
		return fmt.Errorf("update conflict %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ConflictStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.BeliefConflict, error) {
	row := s.db.QueryRow(ctx, `SELECT `+conflictColumns+` FROM belief_conflicts WHERE id = $1`, id)
	c, err := scanConflict(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get conflict %s: %w", id, err)
	}
	return c, nil
}

func (s *ConflictStore) GetUnresolved(ctx context.Context, agentID string) ([]domain.BeliefConflict, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+conflictColumns+` FROM belief_conflicts
		 WHERE agent_id = $1 AND status = $2
		 ORDER BY detected_at ASC`,
		agentID, domain.ConflictUnresolved)
	if err != nil {
		return nil, fmt.Errorf("list unresolved conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []domain.BeliefConflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, *c)
	}
	return conflicts, rows.Err()
}

func scanConflict(row pgx.Row) (*domain.BeliefConflict, error) {
	c := &domain.BeliefConflict{}
	err := row.Scan(&c.ID, &c.AgentID, &c.BeliefID, &c.ConflictingBeliefID, &c.Category,
		&c.DetectedAt, &c.Status, &c.Strategy, &c.WinnerBeliefID, &c.ResolvedAt, &c.Details)
	if err != nil {
		return nil, err
	}
	return c, nil
}
