package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jengzang/proximity-backend-go/internal/models"
)

// ReadingRepository handles database operations for raw readings
type ReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository creates a new reading repository
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// CreateReading appends a reading
func (r *ReadingRepository) CreateReading(ctx context.Context, reading *models.Reading) error {
	query := `INSERT INTO readings (id, reading_key, value, date, time, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		reading.ID, reading.Key, reading.Value, reading.Date, reading.Time, reading.RecordedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

// ListReadings retrieves readings, newest first
func (r *ReadingRepository) ListReadings(ctx context.Context, filter models.ReadingFilter) ([]models.Reading, error) {
	query := `SELECT id, reading_key, value, date, time, recorded_at FROM readings`

	var conditions []string
	var args []interface{}

	if filter.Key != "" {
		conditions = append(conditions, "reading_key = ?")
		args = append(args, filter.Key)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY recorded_at DESC, seq DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	return r.query(ctx, query, args...)
}

// LatestReadings retrieves the newest reading of every key, ordered by key
func (r *ReadingRepository) LatestReadings(ctx context.Context) ([]models.Reading, error) {
	query := `SELECT id, reading_key, value, date, time, recorded_at FROM readings r
		WHERE seq = (
			SELECT r2.seq FROM readings r2
			WHERE r2.reading_key = r.reading_key
			ORDER BY r2.recorded_at DESC, r2.seq DESC LIMIT 1
		)
		ORDER BY reading_key ASC`

	return r.query(ctx, query)
}

func (r *ReadingRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.Reading, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	readings := []models.Reading{}
	for rows.Next() {
		var (
			rd models.Reading
			at int64
		)
		if err := rows.Scan(&rd.ID, &rd.Key, &rd.Value, &rd.Date, &rd.Time, &at); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		rd.RecordedAt = time.Unix(0, at)
		readings = append(readings, rd)
	}
	return readings, rows.Err()
}
