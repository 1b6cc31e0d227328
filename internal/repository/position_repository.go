package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/proximity-backend-go/internal/models"
)

// PositionRepository handles database operations for positions
type PositionRepository struct {
	db *sql.DB
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// CreatePosition appends a position
func (r *PositionRepository) CreatePosition(ctx context.Context, p *models.Position) error {
	query := `INSERT INTO positions (id, position_key, kind, x, y, captured_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, p.ID, p.Key, p.Kind, p.X, p.Y, p.CapturedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert position: %w", err)
	}
	return nil
}

// LatestPosition retrieves the current position of key within kind
func (r *PositionRepository) LatestPosition(ctx context.Context, kind, key string) (*models.Position, error) {
	query := `SELECT id, position_key, kind, x, y, captured_at FROM positions
		WHERE kind = ? AND position_key = ? ORDER BY captured_at DESC, seq DESC LIMIT 1`

	p, err := scanPosition(r.db.QueryRowContext(ctx, query, kind, key))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return p, nil
}

// LatestPositions retrieves the current position of every key of kind
func (r *PositionRepository) LatestPositions(ctx context.Context, kind string) ([]models.Position, error) {
	query := `SELECT id, position_key, kind, x, y, captured_at FROM positions p
		WHERE kind = ? AND seq = (
			SELECT p2.seq FROM positions p2
			WHERE p2.kind = p.kind AND p2.position_key = p.position_key
			ORDER BY p2.captured_at DESC, p2.seq DESC LIMIT 1
		)
		ORDER BY position_key ASC`

	rows, err := r.db.QueryContext(ctx, query, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	positions := []models.Position{}
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, *p)
	}
	return positions, rows.Err()
}

func scanPosition(s scanner) (*models.Position, error) {
	var (
		p  models.Position
		at int64
	)
	if err := s.Scan(&p.ID, &p.Key, &p.Kind, &p.X, &p.Y, &at); err != nil {
		return nil, err
	}
	p.CapturedAt = time.Unix(0, at)
	return &p, nil
}
