package ingest

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/relvacode/iso8601"

	"github.com/jengzang/proximity-backend-go/internal/apperr"
	"github.com/jengzang/proximity-backend-go/internal/config"
	"github.com/jengzang/proximity-backend-go/internal/tracker"
)

// Accepted wall-clock layouts for SingleBatch
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Fractional seconds are accepted after the seconds field.
var timeLayouts = []string{TimeLayout, "15:04"}

// Instants are stored as unix nanoseconds
var (
	minInstant = time.Unix(0, math.MinInt64)
	maxInstant = time.Unix(0, math.MaxInt64)
)

func inRange(at time.Time) bool {
	return !at.Before(minInstant) && !at.After(maxInstant)
}

// Decoder turns a raw request body into the Batch of the configured shape.
// Validation is strict: one malformed record rejects the whole batch.
type Decoder struct {
	shape config.IngestShape
	loc   *time.Location
}

// NewDecoder creates a decoder for shape; loc is used for (date, time) pairs
func NewDecoder(shape config.IngestShape, loc *time.Location) *Decoder {
	if loc == nil {
		loc = time.Local
	}
	return &Decoder{shape: shape, loc: loc}
}

// Shape returns the active shape
func (d *Decoder) Shape() config.IngestShape {
	return d.shape
}

// Decode parses and validates body
func (d *Decoder) Decode(body []byte) (Batch, error) {
	switch d.shape {
	case config.ShapeEmployeeMachines:
		var b EmployeeMachinesBatch
		if err := bind(body, &b); err != nil {
			return nil, err
		}
		return b, nil

	case config.ShapeCoordinates:
		var b CoordinatesBatch
		if err := bind(body, &b); err != nil {
			return nil, err
		}
		for i := range b.Employees {
			p := &b.Employees[i]
			at, err := d.position(string(p.EmployeeID), *p.X, *p.Y, p.CapturedAt)
			if err != nil {
				return nil, err
			}
			p.capturedAt = at
		}
		for i := range b.Machines {
			m := &b.Machines[i]
			at, err := d.position(string(m.MachineID), *m.X, *m.Y, m.CapturedAt)
			if err != nil {
				return nil, err
			}
			m.capturedAt = at
		}
		return b, nil

	case config.ShapeSingle:
		var b SingleBatch
		if err := bind(body, &b); err != nil {
			return nil, err
		}
		at, err := ParseDateTime(b.Date, b.Time, d.loc)
		if err != nil {
			return nil, err
		}
		b.recordedAt = at
		return b, nil

	case config.ShapeRawArray:
		var b RawArrayBatch
		if err := bind(body, &b); err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, apperr.Config("unsupported ingest shape %q", d.shape)
}

func (d *Decoder) position(key string, x, y float64, capturedAt string) (time.Time, error) {
	if strings.TrimSpace(key) == "" {
		return time.Time{}, apperr.Validation("position id must not be empty")
	}
	if !tracker.IsFinite(x) || !tracker.IsFinite(y) {
		return time.Time{}, apperr.Validation("position %q has non-finite coordinates", key)
	}
	if capturedAt == "" {
		return time.Time{}, nil
	}
	at, err := iso8601.ParseString(capturedAt)
	if err != nil {
		return time.Time{}, apperr.Validation("position %q: capturedAt %q is not ISO-8601", key, capturedAt)
	}
	if !inRange(at) {
		return time.Time{}, apperr.Validation("position %q: capturedAt %q is out of range", key, capturedAt)
	}
	return at, nil
}

// ParseDateTime combines a date and a wall-clock time into one instant in loc
func ParseDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	for _, layout := range timeLayouts {
		at, err := time.ParseInLocation(DateLayout+" "+layout, date+" "+clock, loc)
		if err != nil {
			continue
		}
		if !inRange(at) {
			return time.Time{}, apperr.Validation("date/time %q %q is out of range", date, clock)
		}
		return at, nil
	}
	return time.Time{}, apperr.Validation("invalid date/time %q %q, expected %s %s", date, clock, DateLayout, TimeLayout)
}

func bind(body []byte, obj interface{}) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return apperr.Validation("request body is empty")
	}
	if err := binding.JSON.BindBody(body, obj); err != nil {
		return apperr.Validation("Invalid input: %s", describe(err))
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
		return strings.Join(fields, "; ")
	}
	return err.Error()
}
