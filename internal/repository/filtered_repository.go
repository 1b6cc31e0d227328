package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/proximity-backend-go/internal/models"
)

// FilteredRepository handles the filtered reading series
type FilteredRepository struct {
	db *sql.DB
}

// NewFilteredRepository creates a new filtered reading repository
func NewFilteredRepository(db *sql.DB) *FilteredRepository {
	return &FilteredRepository{db: db}
}

// CreateFiltered appends f and sets its insertion sequence
func (r *FilteredRepository) CreateFiltered(ctx context.Context, f *models.FilteredReading) error {
	query := `INSERT INTO filtered_readings (id, reading_id, reading_key, value, date, time, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		f.ID, f.ReadingID, f.Key, f.Value, f.Date, f.Time, f.RecordedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert filtered reading: %w", err)
	}
	if seq, err := res.LastInsertId(); err == nil {
		f.Seq = seq
	}
	return nil
}

// LastFiltered retrieves the filtered entry of key with the greatest timestamp
func (r *FilteredRepository) LastFiltered(ctx context.Context, key string) (*models.FilteredReading, error) {
	query := `SELECT seq, id, reading_id, reading_key, value, date, time, recorded_at
		FROM filtered_readings WHERE reading_key = ?
		ORDER BY recorded_at DESC, seq DESC LIMIT 1`

	f, err := scanFiltered(r.db.QueryRowContext(ctx, query, key))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last filtered reading: %w", err)
	}
	return f, nil
}

// ListFiltered retrieves the whole series in insertion order
func (r *FilteredRepository) ListFiltered(ctx context.Context) ([]models.FilteredReading, error) {
	query := `SELECT seq, id, reading_id, reading_key, value, date, time, recorded_at
		FROM filtered_readings ORDER BY seq ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query filtered readings: %w", err)
	}
	defer rows.Close()

	series := []models.FilteredReading{}
	for rows.Next() {
		f, err := scanFiltered(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan filtered reading: %w", err)
		}
		series = append(series, *f)
	}
	return series, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFiltered(s scanner) (*models.FilteredReading, error) {
	var (
		f  models.FilteredReading
		at int64
	)
	if err := s.Scan(&f.Seq, &f.ID, &f.ReadingID, &f.Key, &f.Value, &f.Date, &f.Time, &at); err != nil {
		return nil, err
	}
	f.RecordedAt = time.Unix(0, at)
	return &f, nil
}
