package models

import "time"

// Position kinds
const (
	KindTracked = "tracked"
	KindMachine = "machine"
)

// Position is one reported location of a device or tracked person
type Position struct {
	ID         string    `json:"id" msgpack:"id"`
	Key        string    `json:"key" msgpack:"key"`
	Kind       string    `json:"kind" msgpack:"kind"`
	X          float64   `json:"x" msgpack:"x"`
	Y          float64   `json:"y" msgpack:"y"`
	CapturedAt time.Time `json:"capturedAt" msgpack:"captured_at"`
}

// DistanceReport is the last computed distance for a (machine, tracked) pair
type DistanceReport struct {
	MachineKey string    `json:"machineKey" msgpack:"machine_key"`
	TrackedKey string    `json:"trackedKey" msgpack:"tracked_key"`
	Distance   float64   `json:"distance" msgpack:"distance"`
	Unit       string    `json:"unit" msgpack:"unit"`
	ComputedAt time.Time `json:"computedAt" msgpack:"computed_at"`
}

// PairKey is the composite identifier of the report
func (d DistanceReport) PairKey() string {
	return d.MachineKey + "|" + d.TrackedKey
}
