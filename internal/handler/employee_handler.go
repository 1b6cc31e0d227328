package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/proximity-backend-go/internal/service"
	"github.com/jengzang/proximity-backend-go/pkg/response"
)

// EmployeeHandler handles employee documents
type EmployeeHandler struct {
	employees *service.EmployeeService
	log       *slog.Logger
}

// NewEmployeeHandler creates a new employee handler
func NewEmployeeHandler(employees *service.EmployeeService, log *slog.Logger) *EmployeeHandler {
	return &EmployeeHandler{employees: employees, log: log}
}

// ListEmployees handles GET /api/v1/employees
func (h *EmployeeHandler) ListEmployees(c *gin.Context) {
	employees, err := h.employees.ListEmployees(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, employees)
}

// GetEmployee handles GET /api/v1/employees/:name
func (h *EmployeeHandler) GetEmployee(c *gin.Context) {
	e, err := h.employees.GetEmployee(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, e)
}

// DeleteMachine handles DELETE /api/v1/employees/:name/machines/:machine
func (h *EmployeeHandler) DeleteMachine(c *gin.Context) {
	e, err := h.employees.DeleteMachine(c.Request.Context(), c.Param("name"), c.Param("machine"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, e)
}
