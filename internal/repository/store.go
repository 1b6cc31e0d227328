package repository

import (
	"context"

	"github.com/jengzang/proximity-backend-go/internal/models"
)

// ReadingStore is the append-only raw reading log
type ReadingStore interface {
	CreateReading(ctx context.Context, r *models.Reading) error
	// ListReadings returns readings newest first
	ListReadings(ctx context.Context, filter models.ReadingFilter) ([]models.Reading, error)
	// LatestReadings returns the newest reading of every key, ordered by key
	LatestReadings(ctx context.Context) ([]models.Reading, error)
}

// FilteredStore is the append-only filtered series
type FilteredStore interface {
	CreateFiltered(ctx context.Context, f *models.FilteredReading) error
	// LastFiltered returns the filtered entry of key with the greatest timestamp, nil if none
	LastFiltered(ctx context.Context, key string) (*models.FilteredReading, error)
	// ListFiltered returns the series in insertion order
	ListFiltered(ctx context.Context) ([]models.FilteredReading, error)
}

// PositionStore is the append-only position log
type PositionStore interface {
	CreatePosition(ctx context.Context, p *models.Position) error
	// LatestPosition returns the position of (kind, key) with the greatest capture time, nil if none.
	// Tracked and machine ids are separate key spaces.
	LatestPosition(ctx context.Context, kind, key string) (*models.Position, error)
	// LatestPositions returns the latest position of every key of kind, ordered by key
	LatestPositions(ctx context.Context, kind string) ([]models.Position, error)
}

// DistanceReportStore holds one report per (machine, tracked) pair
type DistanceReportStore interface {
	UpsertDistanceReport(ctx context.Context, d *models.DistanceReport) error
	ListDistanceReports(ctx context.Context) ([]models.DistanceReport, error)
}

// EmployeeStore holds employee documents with their machine sub-documents
type EmployeeStore interface {
	// GetEmployee returns nil when the employee does not exist
	GetEmployee(ctx context.Context, name string) (*models.Employee, error)
	// SaveEmployee inserts or replaces the whole document
	SaveEmployee(ctx context.Context, e *models.Employee) error
	ListEmployees(ctx context.Context) ([]models.Employee, error)
}

// Store is the persistence contract shared by the sqlite and badger drivers
type Store interface {
	ReadingStore
	FilteredStore
	PositionStore
	DistanceReportStore
	EmployeeStore
	Close() error
}
