package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/proximity-backend-go/internal/database"
	"github.com/jengzang/proximity-backend-go/internal/models"
)

// EmployeeRepository stores employee documents across two tables
type EmployeeRepository struct {
	db *sql.DB
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *sql.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// GetEmployee retrieves one employee with its machines
func (r *EmployeeRepository) GetEmployee(ctx context.Context, name string) (*models.Employee, error) {
	var found string
	err := r.db.QueryRowContext(ctx, `SELECT name FROM employees WHERE name = ?`, name).Scan(&found)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	byName, err := r.machines(ctx, `WHERE employee_name = ?`, name)
	if err != nil {
		return nil, err
	}

	e := &models.Employee{Name: found, Machines: byName[found]}
	if e.Machines == nil {
		e.Machines = []models.Machine{}
	}
	return e, nil
}

// SaveEmployee replaces the employee document in one transaction
func (r *EmployeeRepository) SaveEmployee(ctx context.Context, e *models.Employee) error {
	return database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO employees (name) VALUES (?)`, e.Name); err != nil {
			return fmt.Errorf("failed to insert employee: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM employee_machines WHERE employee_name = ?`, e.Name); err != nil {
			return fmt.Errorf("failed to clear employee machines: %w", err)
		}
		for i, m := range e.Machines {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO employee_machines (employee_name, machine_name, position, last_distance, updated_at)
				VALUES (?, ?, ?, ?, ?)`,
				e.Name, m.Name, i, m.LastDistance, m.UpdatedAt.UnixNano())
			if err != nil {
				return fmt.Errorf("failed to insert employee machine: %w", err)
			}
		}
		return nil
	})
}

// ListEmployees retrieves all employees ordered by name
func (r *EmployeeRepository) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM employees ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byName, err := r.machines(ctx, "")
	if err != nil {
		return nil, err
	}

	employees := make([]models.Employee, 0, len(names))
	for _, name := range names {
		machines := byName[name]
		if machines == nil {
			machines = []models.Machine{}
		}
		employees = append(employees, models.Employee{Name: name, Machines: machines})
	}
	return employees, nil
}

func (r *EmployeeRepository) machines(ctx context.Context, where string, args ...interface{}) (map[string][]models.Machine, error) {
	query := `SELECT employee_name, machine_name, last_distance, updated_at FROM employee_machines ` +
		where + ` ORDER BY employee_name, position`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employee machines: %w", err)
	}
	defer rows.Close()

	byName := make(map[string][]models.Machine)
	for rows.Next() {
		var (
			owner string
			m     models.Machine
			at    int64
		)
		if err := rows.Scan(&owner, &m.Name, &m.LastDistance, &at); err != nil {
			return nil, fmt.Errorf("failed to scan employee machine: %w", err)
		}
		m.UpdatedAt = time.Unix(0, at)
		byName[owner] = append(byName[owner], m)
	}
	return byName, rows.Err()
}
