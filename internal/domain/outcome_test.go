package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotValid(t *testing.T) {
	t.Parallel()

	assert.False(t, Slot(0).Valid())
	assert.True(t, SlotMin.Valid())
	assert.True(t, Slot(64).Valid())
	assert.True(t, SlotMax.Valid())
	assert.False(t, Slot(128).Valid())
}

func TestOutcomeConstructors(t *testing.T) {
	t.Parallel()

	success := Captured("AB12C")
	assert.True(t, success.IsSuccess())
	assert.Equal(t, TokenID("AB12C"), success.Payload)

	enrolled := CapturedSlot(12)
	assert.True(t, enrolled.IsSuccess())
	assert.Equal(t, Slot(12), enrolled.Slot)

	matched := CapturedMatch(Match{Slot: 7, Confidence: 120})
	require.NotNil(t, matched.Match)
	assert.Equal(t, Slot(7), matched.Slot)
	assert.Equal(t, uint16(120), matched.Match.Confidence)

	missing := NoCapture()
	assert.True(t, missing.IsNotFound())
	assert.False(t, missing.IsSuccess())

	failed := Faulted(FaultModelMismatch, errors.New("captures differ"))
	assert.True(t, failed.IsFailure())
	assert.Equal(t, FaultModelMismatch, failed.Reason)
}

func TestFaultChain(t *testing.T) {
	t.Parallel()

	cause := errors.New("port gone")
	fault := NewFault(FaultSession, "acquire token reader", cause)

	wrapped := fmt.Errorf("operation failed: %w", fault)
	extracted, ok := AsFault(wrapped)
	require.True(t, ok)
	assert.Equal(t, FaultSession, extracted.Reason)
	assert.ErrorIs(t, wrapped, cause)

	assert.Equal(t, FaultSession, ReasonOf(wrapped))
	assert.Equal(t, FaultInternal, ReasonOf(errors.New("untagged")))
}
