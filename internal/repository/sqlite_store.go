package repository

import "database/sql"

// SQLiteStore implements Store over one sqlite database
type SQLiteStore struct {
	*ReadingRepository
	*FilteredRepository
	*PositionRepository
	*DistanceReportRepository
	*EmployeeRepository

	db *sql.DB
}

// NewSQLiteStore wraps an opened and migrated database
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		ReadingRepository:        NewReadingRepository(db),
		FilteredRepository:       NewFilteredRepository(db),
		PositionRepository:       NewPositionRepository(db),
		DistanceReportRepository: NewDistanceReportRepository(db),
		EmployeeRepository:       NewEmployeeRepository(db),
		db:                       db,
	}
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
