package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/credohq/credo/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const relationshipColumns = `id, agent_id, source_belief_id, target_belief_id, relationship_type,
	 strength, effective_from, effective_until, deprecation_reason, active, created_at, last_updated, version`

type RelationshipStore struct {
	db *pgxpool.Pool
}

func NewRelationshipStore(db *pgxpool.Pool) *RelationshipStore {
	return &RelationshipStore{db: db}
}

func (s *RelationshipStore) Create(ctx context.Context, r *domain.BeliefRelationship) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO belief_relationships
		 (agent_id, source_belief_id, target_belief_id, relationship_type, strength, effective_from, effective_until, deprecation_reason, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		 RETURNING id, created_at, last_updated, version`,
		r.AgentID, r.SourceBeliefID, r.TargetBeliefID, r.Type, r.Strength,
		r.EffectiveFrom, r.EffectiveUntil, r.DeprecationReason,
	).Scan(&r.ID, &r.CreatedAt, &r.LastUpdated, &r.Version)
	if err != nil {
		// The partial unique index on active rows enforces the at-most-one
		// active edge invariant; surface it as a typed error.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEdge
		}
		return fmt.Errorf("create relationship: %w", err)
	}
	r.Active = true
	return nil
}

func (s *RelationshipStore) Update(ctx context.Context, r *domain.BeliefRelationship) error {
	err := s.db.QueryRow(ctx,
		`UPDATE belief_relationships
		 SET strength = $3, effective_from = $4, effective_until = $5,
		     deprecation_reason = $6, active = $7, last_updated = NOW(), version = version + 1
		 WHERE id = $1 AND version = $2
		 RETURNING version, last_updated`,
		r.ID, r.Version, r.Strength, r.EffectiveFrom, r.EffectiveUntil,
		r.DeprecationReason, r.Active,
	).Scan(&r.Version, &r.LastUpdated)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("update relationship %s: %w", r.ID, err)
	}

	var exists bool
	if checkErr := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM belief_relationships WHERE id = $1)`, r.ID,
	).Scan(&exists); checkErr != nil {
		return fmt.Errorf("update relationship %s: %w", r.ID, checkErr)
	}
	if exists {
		return ErrVersionConflict
	}
	return ErrNotFound
}

func (s *RelationshipStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.BeliefRelationship, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+relationshipColumns+` FROM belief_relationships WHERE id = $1`, id)
	r, err := scanRelationship(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get relationship %s: %w", id, err)
	}
	return r, nil
}

func (s *RelationshipStore) GetForBelief(ctx context.Context, beliefID uuid.UUID, direction domain.Direction, includeInactive bool) ([]domain.BeliefRelationship, error) {
	var cond string
	switch direction {
	case domain.DirectionOutgoing:
		cond = `source_belief_id = $1`
	case domain.DirectionIncoming:
		cond = `target_belief_id = $1`
	default:
		cond = `(source_belief_id = $1 OR target_belief_id = $1)`
	}

	query := `SELECT ` + relationshipColumns + ` FROM belief_relationships WHERE ` + cond
	if !includeInactive {
		query += ` AND active`
	}
	query += ` ORDER BY strength DESC`

	return s.queryRelationships(ctx, query, beliefID)
}

func (s *RelationshipStore) GetByAgent(ctx context.Context, agentID string, includeInactive bool) ([]domain.BeliefRelationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM belief_relationships WHERE agent_id = $1`
	if !includeInactive {
		query += ` AND active`
	}
	return s.queryRelationships(ctx, query, agentID)
}

// Deactivate retires an edge while preserving it for audit. Never deletes.
func (s *RelationshipStore) Deactivate(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE belief_relationships
		 SET active = FALSE, effective_until = NOW(), deprecation_reason = $2,
		     last_updated = NOW(), version = version + 1
		 WHERE id = $1 AND active`,
		id, reason)
	if err != nil {
		return fmt.Errorf("deactivate relationship %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RelationshipStore) queryRelationships(ctx context.Context, query string, args ...any) ([]domain.BeliefRelationship, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	defer rows.Close()

	var rels []domain.BeliefRelationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		rels = append(rels, *r)
	}
	return rels, rows.Err()
}

func scanRelationship(row pgx.Row) (*domain.BeliefRelationship, error) {
	r := &domain.BeliefRelationship{}
	err := row.Scan(&r.ID, &r.AgentID, &r.SourceBeliefID, &r.TargetBeliefID, &r.Type,
		&r.Strength, &r.EffectiveFrom, &r.EffectiveUntil, &r.DeprecationReason,
		&r.Active, &r.CreatedAt, &r.LastUpdated, &r.Version)
	if err != nil {
		return nil, err
	}
	return r, nil
}
