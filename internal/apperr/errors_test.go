package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKinds(t *testing.T) {
	assert.True(t, IsValidation(Validation("bad %s", "input")))
	assert.True(t, IsNotFound(NotFound("employee %q not found", "bob")))
	assert.True(t, IsConfig(Config("PORT is required")))
	assert.True(t, IsStore(Store("insert reading", errors.New("disk full"))))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}

func TestStoreWrapsCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := Store("insert reading", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "insert reading", Message(err))
	assert.Contains(t, err.Error(), "database is locked")
}

func TestStoreKeepsTypedErrors(t *testing.T) {
	nf := NotFound("machine %q not found", "m1")
	err := Store("delete machine", fmt.Errorf("tx: %w", nf))

	assert.True(t, IsNotFound(err))
	assert.Nil(t, Store("noop", nil))
}
