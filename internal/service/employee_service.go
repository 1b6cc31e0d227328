package service

import (
	"context"

	"github.com/jengzang/proximity-backend-go/internal/apperr"
	"github.com/jengzang/proximity-backend-go/internal/models"
	"github.com/jengzang/proximity-backend-go/internal/repository"
	"github.com/jengzang/proximity-backend-go/internal/tracker"
)

// EmployeeService manages employee documents and their machine sub-documents
type EmployeeService struct {
	store repository.Store
	locks *tracker.KeyedMutex
}

// NewEmployeeService creates a new employee service; locks must be shared with IngestService
func NewEmployeeService(store repository.Store, locks *tracker.KeyedMutex) *EmployeeService {
	return &EmployeeService{store: store, locks: locks}
}

// ListEmployees returns all employees
func (s *EmployeeService) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	employees, err := s.store.ListEmployees(ctx)
	if err != nil {
		return nil, apperr.Store("list employees", err)
	}
	return employees, nil
}

// GetEmployee returns one employee by name
func (s *EmployeeService) GetEmployee(ctx context.Context, name string) (*models.Employee, error) {
	e, err := s.store.GetEmployee(ctx, name)
	if err != nil {
		return nil, apperr.Store("get employee", err)
	}
	if e == nil {
		return nil, apperr.NotFound("employee %q not found", name)
	}
	return e, nil
}

// DeleteMachine removes a machine from an employee and persists the document
func (s *EmployeeService) DeleteMachine(ctx context.Context, name, machine string) (*models.Employee, error) {
	unlock := s.locks.Lock("employee:" + name)
	defer unlock()

	e, err := s.GetEmployee(ctx, name)
	if err != nil {
		return nil, err
	}
	if !e.RemoveMachine(machine) {
		return nil, apperr.NotFound("machine %q not found for employee %q", machine, name)
	}
	if err := s.store.SaveEmployee(ctx, e); err != nil {
		return nil, apperr.Store("save employee", err)
	}
	return e, nil
}
