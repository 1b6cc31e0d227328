package ingest

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jengzang/proximity-backend-go/internal/config"
)

// Batch is one decoded ingest request. Exactly one concrete type is
// produced per deployment, chosen by the configured shape.
type Batch interface {
	Shape() config.IngestShape
	Len() int
}

// EmployeeMachinesBatch is the per-employee shape: {name, machines: [{name, lastDistance}]}
type EmployeeMachinesBatch struct {
	Name     string         `json:"name" binding:"required"`
	Machines []MachineInput `json:"machines" binding:"required,dive"`
}

// MachineInput is one machine sub-document with its last measured distance
type MachineInput struct {
	Name         string   `json:"name" binding:"required"`
	LastDistance *float64 `json:"lastDistance" binding:"required,min=0"`
}

func (EmployeeMachinesBatch) Shape() config.IngestShape { return config.ShapeEmployeeMachines }
func (b EmployeeMachinesBatch) Len() int                { return len(b.Machines) }

// CoordinatesBatch is the position shape: {employees: [{employeeId, x, y}], machines: [{machineId, x, y}]}
type CoordinatesBatch struct {
	Employees []PositionInput        `json:"employees" binding:"required,dive"`
	Machines  []MachinePositionInput `json:"machines" binding:"omitempty,dive"`
}

// PositionInput is the position of one tracked employee
type PositionInput struct {
	EmployeeID ID       `json:"employeeId" binding:"required"`
	X          *float64 `json:"x" binding:"required"`
	Y          *float64 `json:"y" binding:"required"`
	CapturedAt string   `json:"capturedAt,omitempty"` // ISO-8601, defaults to receive time

	capturedAt time.Time
}

// MachinePositionInput is the position of one machine
type MachinePositionInput struct {
	MachineID  ID       `json:"machineId" binding:"required"`
	X          *float64 `json:"x" binding:"required"`
	Y          *float64 `json:"y" binding:"required"`
	CapturedAt string   `json:"capturedAt,omitempty"`

	capturedAt time.Time
}

// At returns the parsed capture time, zero when the client sent none
func (p PositionInput) At() time.Time        { return p.capturedAt }
func (p MachinePositionInput) At() time.Time { return p.capturedAt }

func (CoordinatesBatch) Shape() config.IngestShape { return config.ShapeCoordinates }
func (b CoordinatesBatch) Len() int                { return len(b.Employees) + len(b.Machines) }

// SingleBatch is one named reading with a wall-clock timestamp: {name, distance, time, date}
type SingleBatch struct {
	Name     string   `json:"name" binding:"required"`
	Distance *float64 `json:"distance" binding:"required,min=0"`
	Time     string   `json:"time" binding:"required"`
	Date     string   `json:"date" binding:"required"`

	recordedAt time.Time
}

// RecordedAt is the instant combined from Date and Time
func (b SingleBatch) RecordedAt() time.Time { return b.recordedAt }

func (SingleBatch) Shape() config.IngestShape { return config.ShapeSingle }
func (SingleBatch) Len() int                  { return 1 }

// RawArrayBatch is a bare list of distances: {distances: [number, ...]}
type RawArrayBatch struct {
	Distances []float64 `json:"distances" binding:"required,dive,min=0"`
}

func (RawArrayBatch) Shape() config.IngestShape { return config.ShapeRawArray }
func (b RawArrayBatch) Len() int                { return len(b.Distances) }

// ID accepts both JSON strings and JSON numbers; sensors tend to send either.
// Numbers are canonicalised so 1, 1.0 and 1e0 name the same entity.
type ID string

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return err
	}
	*id = ID(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}
