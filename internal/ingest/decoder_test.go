package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/proximity-backend-go/internal/apperr"
	"github.com/jengzang/proximity-backend-go/internal/config"
)

func TestDecodeEmployeeMachines(t *testing.T) {
	d := NewDecoder(config.ShapeEmployeeMachines, time.UTC)

	b, err := d.Decode([]byte(`{"name":"ana","machines":[{"name":"lathe","lastDistance":42.5},{"name":"press","lastDistance":0}]}`))
	require.NoError(t, err)

	batch, ok := b.(EmployeeMachinesBatch)
	require.True(t, ok)
	assert.Equal(t, "ana", batch.Name)
	assert.Equal(t, 2, batch.Len())
	assert.Equal(t, 42.5, *batch.Machines[0].LastDistance)
	assert.Equal(t, 0.0, *batch.Machines[1].LastDistance)
}

func TestDecodeEmployeeMachinesAllowsEmptyBatch(t *testing.T) {
	d := NewDecoder(config.ShapeEmployeeMachines, time.UTC)
	b, err := d.Decode([]byte(`{"name":"ana","machines":[]}`))
	require.NoError(t, err)
	assert.Zero(t, b.Len())
}

func TestDecodeRejectsWholeBatch(t *testing.T) {
	cases := []struct {
		shape config.IngestShape
		body  string
	}{
		{config.ShapeEmployeeMachines, ``},
		{config.ShapeEmployeeMachines, `[]`},
		{config.ShapeEmployeeMachines, `{"name":"ana"}`},
		{config.ShapeEmployeeMachines, `{"name":"ana","machines":{"name":"lathe"}}`},
		{config.ShapeEmployeeMachines, `{"machines":[]}`},
		{config.ShapeEmployeeMachines, `{"name":"ana","machines":[{"name":"lathe","lastDistance":1},{"name":"press"}]}`},
		{config.ShapeEmployeeMachines, `{"name":"ana","machines":[{"name":"lathe","lastDistance":-3}]}`},
		{config.ShapeEmployeeMachines, `{"name":"ana","machines":[{"name":"lathe","lastDistance":"12"}]}`},
		{config.ShapeCoordinates, `{"employees":[{"employeeId":"e1","x":1}]}`},
		{config.ShapeCoordinates, `{"employees":[{"employeeId":"e1","x":1,"y":2,"capturedAt":"yesterday"}]}`},
		{config.ShapeCoordinates, `{"employees":[{"employeeId":true,"x":1,"y":2}]}`},
		{config.ShapeCoordinates, `{"employees":[{"employeeId":"e1","x":1,"y":2,"capturedAt":"2300-01-01T00:00:00Z"}]}`},
		{config.ShapeCoordinates, `{"employees":[{"employeeId":"e1","x":1,"y":2,"capturedAt":"1600-01-01T00:00:00Z"}]}`},
		{config.ShapeSingle, `{"name":"s1","distance":10,"date":"2024-05-01"}`},
		{config.ShapeSingle, `{"name":"s1","distance":10,"date":"01/05/2024","time":"08:00:00"}`},
		{config.ShapeSingle, `{"name":"s1","distance":10,"date":"2024-05-01","time":"25:00:00"}`},
		{config.ShapeSingle, `{"name":"s1","distance":10,"date":"2300-01-01","time":"08:00:00"}`},
		{config.ShapeRawArray, `{"distances":[1,"two",3]}`},
		{config.ShapeRawArray, `{"distances":[1,-2]}`},
		{config.ShapeRawArray, `{}`},
	}
	for _, tc := range cases {
		t.Run(string(tc.shape)+" "+tc.body, func(t *testing.T) {
			_, err := NewDecoder(tc.shape, time.UTC).Decode([]byte(tc.body))
			require.Error(t, err)
			assert.True(t, apperr.IsValidation(err), "got %v", err)
		})
	}
}

func TestDecodeCoordinates(t *testing.T) {
	d := NewDecoder(config.ShapeCoordinates, time.UTC)

	b, err := d.Decode([]byte(`{
		"employees":[{"employeeId":7,"x":3,"y":4,"capturedAt":"2024-05-01T08:00:00Z"},{"employeeId":"e2","x":-1.5,"y":0}],
		"machines":[{"machineId":"m1","x":0,"y":0}]
	}`))
	require.NoError(t, err)

	batch := b.(CoordinatesBatch)
	assert.Equal(t, 3, batch.Len())
	assert.Equal(t, ID("7"), batch.Employees[0].EmployeeID)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), batch.Employees[0].At().UTC())
	assert.True(t, batch.Employees[1].At().IsZero())
	assert.Equal(t, ID("m1"), batch.Machines[0].MachineID)
}

func TestDecodeSingleCombinesDateAndTime(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	d := NewDecoder(config.ShapeSingle, loc)

	b, err := d.Decode([]byte(`{"name":"s1","distance":12.5,"date":"2024-05-01","time":"08:00:10.1"}`))
	require.NoError(t, err)

	batch := b.(SingleBatch)
	want := time.Date(2024, 5, 1, 8, 0, 10, 100_000_000, loc)
	assert.True(t, want.Equal(batch.RecordedAt()), "got %s", batch.RecordedAt())
	assert.Equal(t, 12.5, *batch.Distance)
}

func TestDecodeRawArray(t *testing.T) {
	b, err := NewDecoder(config.ShapeRawArray, nil).Decode([]byte(`{"distances":[10, 20.5, 0]}`))
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20.5, 0}, b.(RawArrayBatch).Distances)
}

func TestParseDateTimeAcceptsShortClock(t *testing.T) {
	at, err := ParseDateTime("2024-05-01", "08:15", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 15, 0, 0, time.UTC), at)
}

func TestParseDateTimeRejectsUnstorableInstant(t *testing.T) {
	_, err := ParseDateTime("2300-01-01", "00:00:00", time.UTC)
	assert.True(t, apperr.IsValidation(err), "got %v", err)

	at, err := ParseDateTime("2262-01-01", "00:00:00", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2262, at.Year())
}

func TestNumericIDsAreCanonical(t *testing.T) {
	d := NewDecoder(config.ShapeCoordinates, time.UTC)

	b, err := d.Decode([]byte(`{"employees":[{"employeeId":1,"x":0,"y":0},{"employeeId":1.0,"x":0,"y":0},{"employeeId":1e0,"x":0,"y":0},{"employeeId":2.5,"x":0,"y":0}]}`))
	require.NoError(t, err)

	batch := b.(CoordinatesBatch)
	assert.Equal(t, ID("1"), batch.Employees[0].EmployeeID)
	assert.Equal(t, ID("1"), batch.Employees[1].EmployeeID)
	assert.Equal(t, ID("1"), batch.Employees[2].EmployeeID)
	assert.Equal(t, ID("2.5"), batch.Employees[3].EmployeeID)
}

func TestDecoderShape(t *testing.T) {
	assert.Equal(t, config.ShapeSingle, NewDecoder(config.ShapeSingle, nil).Shape())
}
