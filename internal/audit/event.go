package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/checkpoint-capture/internal/domain"
)

// CaptureEvent records one completed capture operation for the audit trail.
// It carries the outcome shape, never raw biometric data.
type CaptureEvent struct {
	ID         string            `json:"id"`
	Checkpoint string            `json:"checkpoint"`
	Op         string            `json:"op"`
	Outcome    domain.OutcomeTag `json:"outcome"`
	Payload    string            `json:"payload,omitempty"`
	Slot       uint8             `json:"slot,omitempty"`
	Confidence uint16            `json:"confidence,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	ElapsedMS  int64             `json:"elapsed_ms"`
	At         time.Time         `json:"at"`
}

// NewCaptureEvent builds an event from an operation's outcome.
func NewCaptureEvent(checkpoint, op string, outcome domain.CaptureOutcome, elapsed time.Duration) CaptureEvent {
	ev := CaptureEvent{
		ID:         uuid.NewString(),
		Checkpoint: checkpoint,
		Op:         op,
		Outcome:    outcome.Tag,
		Payload:    string(outcome.Payload),
		Slot:       uint8(outcome.Slot),
		ElapsedMS:  elapsed.Milliseconds(),
		At:         time.Now().UTC(),
	}
	if outcome.Match != nil {
		ev.Confidence = outcome.Match.Confidence
	}
	if outcome.IsFailure() {
		ev.Reason = string(outcome.Reason)
	}
	return ev
}
