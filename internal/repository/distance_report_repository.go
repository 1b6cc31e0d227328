package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/proximity-backend-go/internal/models"
)

// DistanceReportRepository handles the per-pair distance reports
type DistanceReportRepository struct {
	db *sql.DB
}

// NewDistanceReportRepository creates a new distance report repository
func NewDistanceReportRepository(db *sql.DB) *DistanceReportRepository {
	return &DistanceReportRepository{db: db}
}

// UpsertDistanceReport inserts or replaces the report of d's pair in one statement
func (r *DistanceReportRepository) UpsertDistanceReport(ctx context.Context, d *models.DistanceReport) error {
	query := `INSERT INTO distance_reports (machine_key, tracked_key, distance, unit, computed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(machine_key, tracked_key) DO UPDATE SET
			distance = excluded.distance,
			unit = excluded.unit,
			computed_at = excluded.computed_at`

	_, err := r.db.ExecContext(ctx, query, d.MachineKey, d.TrackedKey, d.Distance, d.Unit, d.ComputedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert distance report: %w", err)
	}
	return nil
}

// ListDistanceReports retrieves all reports ordered by machine then tracked key
func (r *DistanceReportRepository) ListDistanceReports(ctx context.Context) ([]models.DistanceReport, error) {
	query := `SELECT machine_key, tracked_key, distance, unit, computed_at
		FROM distance_reports ORDER BY machine_key ASC, tracked_key ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query distance reports: %w", err)
	}
	defer rows.Close()

	reports := []models.DistanceReport{}
	for rows.Next() {
		var (
			d  models.DistanceReport
			at int64
		)
		if err := rows.Scan(&d.MachineKey, &d.TrackedKey, &d.Distance, &d.Unit, &at); err != nil {
			return nil, fmt.Errorf("failed to scan distance report: %w", err)
		}
		d.ComputedAt = time.Unix(0, at)
		reports = append(reports, d)
	}
	return reports, rows.Err()
}
