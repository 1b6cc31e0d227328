package models

import "time"

// Employee holds the latest distance to every machine it has been seen near
type Employee struct {
	Name     string    `json:"name" msgpack:"name"`
	Machines []Machine `json:"machines" msgpack:"machines"`
}

// Machine is a sub-document of Employee
type Machine struct {
	Name         string    `json:"name" msgpack:"name"`
	LastDistance float64   `json:"lastDistance" msgpack:"last_distance"`
	UpdatedAt    time.Time `json:"updatedAt" msgpack:"updated_at"`
}

// UpsertMachine overwrites the machine with the same name or appends a new one
func (e *Employee) UpsertMachine(name string, distance float64, now time.Time) {
	for i := range e.Machines {
		if e.Machines[i].Name == name {
			e.Machines[i].LastDistance = distance
			e.Machines[i].UpdatedAt = now
			return
		}
	}
	e.Machines = append(e.Machines, Machine{Name: name, LastDistance: distance, UpdatedAt: now})
}

// RemoveMachine deletes the named machine and reports whether it existed
func (e *Employee) RemoveMachine(name string) bool {
	for i := range e.Machines {
		if e.Machines[i].Name == name {
			e.Machines = append(e.Machines[:i], e.Machines[i+1:]...)
			return true
		}
	}
	return false
}

// ReadingKey is the key under which a machine entry is stored as a Reading
func ReadingKey(employee, machine string) string {
	return employee + "/" + machine
}
