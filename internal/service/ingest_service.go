package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jengzang/proximity-backend-go/internal/apperr"
	"github.com/jengzang/proximity-backend-go/internal/config"
	"github.com/jengzang/proximity-backend-go/internal/events"
	"github.com/jengzang/proximity-backend-go/internal/ingest"
	"github.com/jengzang/proximity-backend-go/internal/metrics"
	"github.com/jengzang/proximity-backend-go/internal/models"
	"github.com/jengzang/proximity-backend-go/internal/repository"
	"github.com/jengzang/proximity-backend-go/internal/tracker"
)

// IngestResult lists what one batch created or updated
type IngestResult struct {
	Shape     config.IngestShape       `json:"shape"`
	Employee  *models.Employee         `json:"employee,omitempty"`
	Readings  []models.Reading         `json:"readings,omitempty"`
	Filtered  []models.FilteredReading `json:"filtered,omitempty"`
	Positions []models.Position        `json:"positions,omitempty"`
	Reports   []models.DistanceReport  `json:"reports,omitempty"`
}

// IngestService orchestrates persistence, distance computation and the
// windowed filter for one decoded batch. Records of a batch are processed
// sequentially; a store failure stops the batch and leaves earlier records committed.
type IngestService struct {
	store      repository.Store
	locks      *tracker.KeyedMutex
	window     tracker.Window
	staleAfter time.Duration
	unit       config.DistanceUnit
	rawKey     string
	publisher  events.Publisher
	metrics    *metrics.Metrics
	log        *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewIngestService creates a new ingest service
func NewIngestService(store repository.Store, locks *tracker.KeyedMutex, cfg *config.Config,
	publisher events.Publisher, m *metrics.Metrics, log *slog.Logger) *IngestService {
	return &IngestService{
		store:      store,
		locks:      locks,
		window:     tracker.NewWindow(cfg.FilterWindow),
		staleAfter: cfg.StaleAfter,
		unit:       cfg.Unit,
		rawKey:     cfg.RawKey,
		publisher:  publisher,
		metrics:    m,
		log:        log,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Ingest applies batch
func (s *IngestService) Ingest(ctx context.Context, batch ingest.Batch) (*IngestResult, error) {
	result := &IngestResult{Shape: batch.Shape()}

	var err error
	switch b := batch.(type) {
	case ingest.EmployeeMachinesBatch:
		err = s.ingestEmployeeMachines(ctx, b, result)
	case ingest.CoordinatesBatch:
		err = s.ingestCoordinates(ctx, b, result)
	case ingest.SingleBatch:
		err = s.ingestReading(ctx, models.Reading{
			Key:        b.Name,
			Value:      *b.Distance,
			Date:       b.Date,
			Time:       b.Time,
			RecordedAt: b.RecordedAt(),
		}, result)
	case ingest.RawArrayBatch:
		now := s.now()
		for _, v := range b.Distances {
			if err = s.ingestReading(ctx, models.Reading{Key: s.rawKey, Value: v, RecordedAt: now}, result); err != nil {
				break
			}
		}
	default:
		return nil, apperr.Validation("unsupported batch type %T", batch)
	}

	s.metrics.ReadingsIngested.WithLabelValues(string(result.Shape)).Add(float64(len(result.Readings) + len(result.Positions)))
	if err != nil {
		s.metrics.IngestFailures.WithLabelValues(apperr.KindOf(err).String()).Inc()
		return nil, err
	}
	return result, nil
}

func (s *IngestService) ingestReading(ctx context.Context, r models.Reading, result *IngestResult) error {
	r.ID = s.newID()
	if err := s.store.CreateReading(ctx, &r); err != nil {
		return apperr.Store("create reading", err)
	}
	result.Readings = append(result.Readings, r)

	f, err := s.filter(ctx, r)
	if err != nil {
		return err
	}
	if f != nil {
		result.Filtered = append(result.Filtered, *f)
	}
	return nil
}

// filter appends r to the filtered series when the window admits it
func (s *IngestService) filter(ctx context.Context, r models.Reading) (*models.FilteredReading, error) {
	if !s.window.Enabled() {
		return nil, nil
	}

	unlock := s.locks.Lock("filtered:" + r.Key)
	defer unlock()

	last, err := s.store.LastFiltered(ctx, r.Key)
	if err != nil {
		return nil, apperr.Store("get last filtered reading", err)
	}

	var lastAt time.Time
	if last != nil {
		lastAt = last.RecordedAt
	}
	if !s.window.Admit(r.RecordedAt, lastAt, last != nil) {
		s.metrics.FilterDecisions.WithLabelValues("rejected").Inc()
		s.log.Debug("reading outside filter window", "key", r.Key, "recordedAt", r.RecordedAt, "lastFiltered", lastAt)
		return nil, nil
	}

	f := models.NewFilteredReading(s.newID(), r)
	if err := s.store.CreateFiltered(ctx, &f); err != nil {
		return nil, apperr.Store("create filtered reading", err)
	}
	s.metrics.FilterDecisions.WithLabelValues("admitted").Inc()
	s.publisher.PublishFiltered(ctx, f)
	return &f, nil
}

func (s *IngestService) ingestEmployeeMachines(ctx context.Context, b ingest.EmployeeMachinesBatch, result *IngestResult) error {
	unlock := s.locks.Lock("employee:" + b.Name)
	defer unlock()

	emp, err := s.store.GetEmployee(ctx, b.Name)
	if err != nil {
		return apperr.Store("get employee", err)
	}
	if emp == nil {
		emp = &models.Employee{Name: b.Name, Machines: []models.Machine{}}
	}

	now := s.now()
	for _, m := range b.Machines {
		reading := models.Reading{
			Key:        models.ReadingKey(b.Name, m.Name),
			Value:      *m.LastDistance,
			RecordedAt: now,
		}
		if err := s.ingestReading(ctx, reading, result); err != nil {
			return err
		}
		emp.UpsertMachine(m.Name, *m.LastDistance, now)
	}

	if err := s.store.SaveEmployee(ctx, emp); err != nil {
		return apperr.Store("save employee", err)
	}
	result.Employee = emp
	return nil
}

func (s *IngestService) ingestCoordinates(ctx context.Context, b ingest.CoordinatesBatch, result *IngestResult) error {
	now := s.now()

	var trackedKeys, machineKeys []string
	for _, e := range b.Employees {
		p := models.Position{Key: string(e.EmployeeID), Kind: models.KindTracked, X: *e.X, Y: *e.Y, CapturedAt: e.At()}
		if err := s.createPosition(ctx, &p, now, result); err != nil {
			return err
		}
		trackedKeys = append(trackedKeys, p.Key)
	}
	for _, m := range b.Machines {
		p := models.Position{Key: string(m.MachineID), Kind: models.KindMachine, X: *m.X, Y: *m.Y, CapturedAt: m.At()}
		if err := s.createPosition(ctx, &p, now, result); err != nil {
			return err
		}
		machineKeys = append(machineKeys, p.Key)
	}

	pairs, err := s.affectedPairs(ctx, trackedKeys, machineKeys)
	if err != nil {
		return err
	}
	for _, pair := range pairs {
		report, err := s.recompute(ctx, pair[0], pair[1], now)
		if err != nil {
			return err
		}
		if report != nil {
			result.Reports = append(result.Reports, *report)
		}
	}
	return nil
}

func (s *IngestService) createPosition(ctx context.Context, p *models.Position, now time.Time, result *IngestResult) error {
	p.ID = s.newID()
	if p.CapturedAt.IsZero() {
		p.CapturedAt = now
	}
	if err := s.store.CreatePosition(ctx, p); err != nil {
		return apperr.Store("create position", err)
	}
	result.Positions = append(result.Positions, *p)
	return nil
}

// affectedPairs returns (machine, tracked) pairs touched by the batch:
// every known machine against each tracked key in the batch, and each
// machine in the batch against every known tracked key.
func (s *IngestService) affectedPairs(ctx context.Context, trackedKeys, machineKeys []string) ([][2]string, error) {
	seen := make(map[[2]string]bool)
	var pairs [][2]string
	add := func(machine, tracked string) {
		p := [2]string{machine, tracked}
		if !seen[p] {
			seen[p] = true
			pairs = append(pairs, p)
		}
	}

	if len(trackedKeys) > 0 {
		machines, err := s.store.LatestPositions(ctx, models.KindMachine)
		if err != nil {
			return nil, apperr.Store("list machine positions", err)
		}
		for _, m := range machines {
			for _, t := range trackedKeys {
				add(m.Key, t)
			}
		}
	}
	if len(machineKeys) > 0 {
		tracked, err := s.store.LatestPositions(ctx, models.KindTracked)
		if err != nil {
			return nil, apperr.Store("list tracked positions", err)
		}
		for _, m := range machineKeys {
			for _, t := range tracked {
				add(m, t.Key)
			}
		}
	}
	return pairs, nil
}

// recompute upserts the report of one pair from the latest positions.
// A missing or stale tracked position leaves the pair's report untouched.
func (s *IngestService) recompute(ctx context.Context, machineKey, trackedKey string, now time.Time) (*models.DistanceReport, error) {
	unlock := s.locks.Lock("pair:" + machineKey + "|" + trackedKey)
	defer unlock()

	machine, err := s.store.LatestPosition(ctx, models.KindMachine, machineKey)
	if err != nil {
		return nil, apperr.Store("get machine position", err)
	}
	tracked, err := s.store.LatestPosition(ctx, models.KindTracked, trackedKey)
	if err != nil {
		return nil, apperr.Store("get tracked position", err)
	}
	if machine == nil {
		return nil, nil
	}

	var seenAt time.Time
	if tracked != nil {
		seenAt = tracked.CapturedAt
	}
	if tracked == nil || tracker.IsStale(now, seenAt, s.staleAfter) {
		s.metrics.StalePairs.Inc()
		s.log.Debug("stale position, report skipped", "machine", machineKey, "tracked", trackedKey, "lastSeen", seenAt)
		return nil, nil
	}

	d := tracker.Distance(machine.X, machine.Y, tracked.X, tracked.Y)
	if s.unit == config.UnitCentimeters {
		d = tracker.MetersToCentimeters(d)
	} else {
		d = tracker.Round2(d)
	}

	report := &models.DistanceReport{
		MachineKey: machineKey,
		TrackedKey: trackedKey,
		Distance:   d,
		Unit:       string(s.unit),
		ComputedAt: now,
	}
	if err := s.store.UpsertDistanceReport(ctx, report); err != nil {
		return nil, apperr.Store("upsert distance report", err)
	}
	s.metrics.DistanceReports.Inc()
	s.publisher.PublishDistanceReport(ctx, *report)
	return report, nil
}
