package hardware

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionReleaseRunsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	session := NewSession(KindTokenReader, func() error {
		calls++
		return nil
	})
	assert.False(t, session.Released())

	assert.NoError(t, session.Release())
	assert.NoError(t, session.Release())
	assert.NoError(t, session.Release())

	assert.Equal(t, 1, calls)
	assert.True(t, session.Released())
}

func TestSessionReleaseKeepsFirstError(t *testing.T) {
	t.Parallel()

	releaseErr := errors.New("port already closed")
	session := NewSession(KindFingerprintSensor, func() error {
		return releaseErr
	})

	assert.ErrorIs(t, session.Release(), releaseErr)
	// Later calls report the original result, not a new attempt.
	assert.ErrorIs(t, session.Release(), releaseErr)
}

func TestSessionNilHook(t *testing.T) {
	t.Parallel()

	session := NewSession(KindTokenReader, nil)
	assert.NoError(t, session.Release())
	assert.True(t, session.Released())
}
