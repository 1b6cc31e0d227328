package service

import (
	"context"

	"github.com/jengzang/proximity-backend-go/internal/apperr"
	"github.com/jengzang/proximity-backend-go/internal/models"
	"github.com/jengzang/proximity-backend-go/internal/repository"
)

const maxListLimit = 10000

// ReadingService serves the read side: raw feed, latest view, filtered series,
// positions and distance reports
type ReadingService struct {
	store repository.Store
}

// NewReadingService creates a new reading service
func NewReadingService(store repository.Store) *ReadingService {
	return &ReadingService{store: store}
}

// ListReadings returns stored readings newest first
func (s *ReadingService) ListReadings(ctx context.Context, filter models.ReadingFilter) ([]models.Reading, error) {
	if filter.Limit < 0 {
		return nil, apperr.Validation("limit must not be negative")
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	readings, err := s.store.ListReadings(ctx, filter)
	if err != nil {
		return nil, apperr.Store("list readings", err)
	}
	return readings, nil
}

// LatestReadings returns the newest reading of every key, ordered by key
func (s *ReadingService) LatestReadings(ctx context.Context) ([]models.Reading, error) {
	readings, err := s.store.LatestReadings(ctx)
	if err != nil {
		return nil, apperr.Store("list latest readings", err)
	}
	return readings, nil
}

// FilteredSeries returns the filtered series in insertion order
func (s *ReadingService) FilteredSeries(ctx context.Context) ([]models.FilteredReading, error) {
	series, err := s.store.ListFiltered(ctx)
	if err != nil {
		return nil, apperr.Store("list filtered readings", err)
	}
	return series, nil
}

// FilteredValues returns only the values of the filtered series
func (s *ReadingService) FilteredValues(ctx context.Context) ([]float64, error) {
	series, err := s.FilteredSeries(ctx)
	if err != nil {
		return nil, err
	}
	values := make([]float64, 0, len(series))
	for _, f := range series {
		values = append(values, f.Value)
	}
	return values, nil
}

// GetPosition returns the current position of key; kind defaults to tracked
func (s *ReadingService) GetPosition(ctx context.Context, kind, key string) (*models.Position, error) {
	if kind == "" {
		kind = models.KindTracked
	}
	if kind != models.KindTracked && kind != models.KindMachine {
		return nil, apperr.Validation("kind must be %q or %q", models.KindTracked, models.KindMachine)
	}

	p, err := s.store.LatestPosition(ctx, kind, key)
	if err != nil {
		return nil, apperr.Store("get position", err)
	}
	if p == nil {
		return nil, apperr.NotFound("no %s position recorded for %q", kind, key)
	}
	return p, nil
}

// DistanceReports returns every (machine, tracked) report
func (s *ReadingService) DistanceReports(ctx context.Context) ([]models.DistanceReport, error) {
	reports, err := s.store.ListDistanceReports(ctx)
	if err != nil {
		return nil, apperr.Store("list distance reports", err)
	}
	return reports, nil
}
