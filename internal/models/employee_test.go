package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEmployeeUpsertMachine(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e := Employee{Name: "ana"}

	e.UpsertMachine("lathe", 120, t0)
	e.UpsertMachine("press", 80, t0)
	e.UpsertMachine("lathe", 95.5, t0.Add(time.Second))

	assert.Len(t, e.Machines, 2)
	assert.Equal(t, 95.5, e.Machines[0].LastDistance)
	assert.Equal(t, t0.Add(time.Second), e.Machines[0].UpdatedAt)
	assert.Equal(t, "press", e.Machines[1].Name)
}

func TestEmployeeRemoveMachine(t *testing.T) {
	e := Employee{Name: "ana", Machines: []Machine{{Name: "lathe"}, {Name: "press"}}}

	assert.True(t, e.RemoveMachine("lathe"))
	assert.False(t, e.RemoveMachine("lathe"))
	assert.Equal(t, []Machine{{Name: "press"}}, e.Machines)
}
