package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad %s", "input")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("missing")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("submitting: %w", StateConflict("already decided"))
	assert.Equal(t, KindStateConflict, KindOf(err))
	assert.True(t, IsKind(err, KindStateConflict))
}

func TestExecutionKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Execution("engine call failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "engine call failed")
	assert.Contains(t, err.Error(), "connection refused")
}
