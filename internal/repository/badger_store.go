package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/jengzang/proximity-backend-go/internal/models"
)

const (
	prefixReading      = "reading/"
	prefixFiltered     = "filtered/"
	prefixFilteredLast = "filtered-last/"
	prefixPosition     = "position/"
	prefixPositionLast = "position-last/"
	prefixReport       = "report/"
	prefixEmployee     = "employee/"
)

// BadgerStore implements Store on an embedded badger key-value store,
// one msgpack document per key.
type BadgerStore struct {
	db *badger.DB

	readingSeq  *badger.Sequence
	filteredSeq *badger.Sequence
	positionSeq *badger.Sequence
}

// OpenBadger opens (or creates) a badger directory; an empty dir means in-memory
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return NewBadgerStore(db)
}

// NewBadgerStore wraps an opened badger database
func NewBadgerStore(db *badger.DB) (*BadgerStore, error) {
	s := &BadgerStore{db: db}
	var err error
	if s.readingSeq, err = db.GetSequence([]byte("seq/reading"), 1000); err != nil {
		return nil, fmt.Errorf("failed to lease reading sequence: %w", err)
	}
	if s.filteredSeq, err = db.GetSequence([]byte("seq/filtered"), 1000); err != nil {
		return nil, fmt.Errorf("failed to lease filtered sequence: %w", err)
	}
	if s.positionSeq, err = db.GetSequence([]byte("seq/position"), 1000); err != nil {
		return nil, fmt.Errorf("failed to lease position sequence: %w", err)
	}
	return s, nil
}

// Close releases the sequences and closes the database
func (s *BadgerStore) Close() error {
	for _, seq := range []*badger.Sequence{s.readingSeq, s.filteredSeq, s.positionSeq} {
		if seq != nil {
			_ = seq.Release()
		}
	}
	return s.db.Close()
}

func seqKey(prefix string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefix, seq))
}

func (s *BadgerStore) put(txn *badger.Txn, key []byte, value interface{}) error {
	buf, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return txn.Set(key, buf)
}

// get decodes key into out and reports whether it existed
func (s *BadgerStore) get(txn *badger.Txn, key []byte, out interface{}) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, out)
	})
}

// scan decodes every value under prefix in key order
func scan[T any](db *badger.DB, prefix string) ([]T, error) {
	out := []T{}
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			var v T
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &v)
			}); err != nil {
				return err
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

type storedReading struct {
	Seq     uint64         `msgpack:"seq"`
	Reading models.Reading `msgpack:"reading"`
}

// CreateReading appends a reading
func (s *BadgerStore) CreateReading(_ context.Context, r *models.Reading) error {
	seq, err := s.readingSeq.Next()
	if err != nil {
		return fmt.Errorf("failed to allocate reading sequence: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return s.put(txn, seqKey(prefixReading, seq), storedReading{Seq: seq, Reading: *r})
	})
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

func (s *BadgerStore) allReadings() ([]storedReading, error) {
	rows, err := scan[storedReading](s.db, prefixReading)
	if err != nil {
		return nil, fmt.Errorf("failed to scan readings: %w", err)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.Reading.RecordedAt.Equal(b.Reading.RecordedAt) {
			return a.Reading.RecordedAt.After(b.Reading.RecordedAt)
		}
		return a.Seq > b.Seq
	})
	return rows, nil
}

// ListReadings returns readings newest first
func (s *BadgerStore) ListReadings(_ context.Context, filter models.ReadingFilter) ([]models.Reading, error) {
	rows, err := s.allReadings()
	if err != nil {
		return nil, err
	}
	readings := []models.Reading{}
	for _, row := range rows {
		if filter.Key != "" && row.Reading.Key != filter.Key {
			continue
		}
		readings = append(readings, row.Reading)
		if filter.Limit > 0 && len(readings) == filter.Limit {
			break
		}
	}
	return readings, nil
}

// LatestReadings returns the newest reading of every key, ordered by key
func (s *BadgerStore) LatestReadings(_ context.Context) ([]models.Reading, error) {
	rows, err := s.allReadings()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	latest := []models.Reading{}
	for _, row := range rows {
		if seen[row.Reading.Key] {
			continue
		}
		seen[row.Reading.Key] = true
		latest = append(latest, row.Reading)
	}
	sort.Slice(latest, func(i, j int) bool { return latest[i].Key < latest[j].Key })
	return latest, nil
}

// CreateFiltered appends f and moves the per-key pointer when f is the newest
func (s *BadgerStore) CreateFiltered(_ context.Context, f *models.FilteredReading) error {
	seq, err := s.filteredSeq.Next()
	if err != nil {
		return fmt.Errorf("failed to allocate filtered sequence: %w", err)
	}
	f.Seq = int64(seq)

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := s.put(txn, seqKey(prefixFiltered, seq), f); err != nil {
			return err
		}
		var last models.FilteredReading
		lastKey := []byte(prefixFilteredLast + f.Key)
		ok, err := s.get(txn, lastKey, &last)
		if err != nil {
			return err
		}
		if !ok || !f.RecordedAt.Before(last.RecordedAt) {
			return s.put(txn, lastKey, f)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert filtered reading: %w", err)
	}
	return nil
}

// LastFiltered returns the filtered entry of key with the greatest timestamp
func (s *BadgerStore) LastFiltered(_ context.Context, key string) (*models.FilteredReading, error) {
	var (
		f  models.FilteredReading
		ok bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		ok, err = s.get(txn, []byte(prefixFilteredLast+key), &f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get last filtered reading: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &f, nil
}

// ListFiltered returns the series in insertion order
func (s *BadgerStore) ListFiltered(_ context.Context) ([]models.FilteredReading, error) {
	series, err := scan[models.FilteredReading](s.db, prefixFiltered)
	if err != nil {
		return nil, fmt.Errorf("failed to scan filtered readings: %w", err)
	}
	return series, nil
}

type storedPosition struct {
	Seq      uint64          `msgpack:"seq"`
	Position models.Position `msgpack:"position"`
}

// CreatePosition appends p and moves the per-key pointer when p is the newest
func (s *BadgerStore) CreatePosition(_ context.Context, p *models.Position) error {
	seq, err := s.positionSeq.Next()
	if err != nil {
		return fmt.Errorf("failed to allocate position sequence: %w", err)
	}
	row := storedPosition{Seq: seq, Position: *p}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := s.put(txn, seqKey(prefixPosition, seq), row); err != nil {
			return err
		}
		var last storedPosition
		lastKey := positionLastKey(p.Kind, p.Key)
		ok, err := s.get(txn, lastKey, &last)
		if err != nil {
			return err
		}
		if !ok || !p.CapturedAt.Before(last.Position.CapturedAt) {
			return s.put(txn, lastKey, row)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert position: %w", err)
	}
	return nil
}

// LatestPosition returns the current position of key within kind
func (s *BadgerStore) LatestPosition(_ context.Context, kind, key string) (*models.Position, error) {
	var (
		row storedPosition
		ok  bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		ok, err = s.get(txn, positionLastKey(kind, key), &row)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &row.Position, nil
}

// LatestPositions returns the current position of every key of kind, ordered by key
func (s *BadgerStore) LatestPositions(_ context.Context, kind string) ([]models.Position, error) {
	rows, err := scan[storedPosition](s.db, prefixPositionLast+kind+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to scan positions: %w", err)
	}
	positions := make([]models.Position, 0, len(rows))
	for _, row := range rows {
		positions = append(positions, row.Position)
	}
	return positions, nil
}

// Tracked and machine ids live in separate key spaces
func positionLastKey(kind, key string) []byte {
	return []byte(prefixPositionLast + kind + "/" + key)
}

func reportKey(machine, tracked string) []byte {
	return []byte(prefixReport + machine + "\x00" + tracked)
}

// UpsertDistanceReport overwrites the report of d's pair
func (s *BadgerStore) UpsertDistanceReport(_ context.Context, d *models.DistanceReport) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return s.put(txn, reportKey(d.MachineKey, d.TrackedKey), d)
	})
	if err != nil {
		return fmt.Errorf("failed to upsert distance report: %w", err)
	}
	return nil
}

// ListDistanceReports returns reports ordered by machine then tracked key
func (s *BadgerStore) ListDistanceReports(_ context.Context) ([]models.DistanceReport, error) {
	reports, err := scan[models.DistanceReport](s.db, prefixReport)
	if err != nil {
		return nil, fmt.Errorf("failed to scan distance reports: %w", err)
	}
	return reports, nil
}

// GetEmployee returns nil when the employee does not exist
func (s *BadgerStore) GetEmployee(_ context.Context, name string) (*models.Employee, error) {
	var (
		e  models.Employee
		ok bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		ok, err = s.get(txn, []byte(prefixEmployee+name), &e)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	if !ok {
		return nil, nil
	}
	if e.Machines == nil {
		e.Machines = []models.Machine{}
	}
	return &e, nil
}

// SaveEmployee inserts or replaces the whole document
func (s *BadgerStore) SaveEmployee(_ context.Context, e *models.Employee) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return s.put(txn, []byte(prefixEmployee+e.Name), e)
	})
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// ListEmployees returns all employees ordered by name
func (s *BadgerStore) ListEmployees(_ context.Context) ([]models.Employee, error) {
	employees, err := scan[models.Employee](s.db, prefixEmployee)
	if err != nil {
		return nil, fmt.Errorf("failed to scan employees: %w", err)
	}
	for i := range employees {
		if employees[i].Machines == nil {
			employees[i].Machines = []models.Machine{}
		}
	}
	return employees, nil
}

var _ Store = (*BadgerStore)(nil)
