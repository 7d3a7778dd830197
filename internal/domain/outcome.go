package domain

// TokenID is the opaque payload written to and read from a proximity token.
// The engine imposes no meaning beyond byte equality; interpretation belongs
// to the orchestrator that invoked the capture.
type TokenID string

// Slot addresses one entry in the fingerprint sensor's internal template store.
type Slot uint8

const (
	SlotMin Slot = 1
	SlotMax Slot = 127
)

// Valid reports whether the slot falls inside the sensor's addressable range.
func (s Slot) Valid() bool {
	return s >= SlotMin && s <= SlotMax
}

// Match is the result of a successful fingerprint search.
type Match struct {
	Slot       Slot
	Confidence uint16
}

// OutcomeTag enumerates the three result shapes every capture operation returns.
type OutcomeTag string

const (
	OutcomeSuccess  OutcomeTag = "SUCCESS"
	OutcomeNotFound OutcomeTag = "NOT_FOUND"
	OutcomeFailure  OutcomeTag = "FAILURE"
)

// CaptureOutcome is the single return shape of all public capture operations.
// Exactly one tag is set; payload fields are meaningful only on Success, and
// Reason/Err only on Failure.
type CaptureOutcome struct {
	Tag     OutcomeTag
	Payload TokenID
	Slot    Slot
	Match   *Match
	Reason  FaultReason
	Err     error
}

// Captured builds a Success outcome carrying a token payload.
func Captured(payload TokenID) CaptureOutcome {
	return CaptureOutcome{Tag: OutcomeSuccess, Payload: payload}
}

// CapturedSlot builds a Success outcome for a completed enrollment.
func CapturedSlot(slot Slot) CaptureOutcome {
	return CaptureOutcome{Tag: OutcomeSuccess, Slot: slot}
}

// CapturedMatch builds a Success outcome for a verification hit.
func CapturedMatch(m Match) CaptureOutcome {
	return CaptureOutcome{Tag: OutcomeSuccess, Slot: m.Slot, Match: &m}
}

// NoCapture builds the NotFound outcome: timeout elapsed with no tag or
// finger presented, or a search found no matching template. Expected, not
// an error.
func NoCapture() CaptureOutcome {
	return CaptureOutcome{Tag: OutcomeNotFound}
}

// Faulted builds a Failure outcome with a reason from the fault taxonomy.
func Faulted(reason FaultReason, err error) CaptureOutcome {
	return CaptureOutcome{Tag: OutcomeFailure, Reason: reason, Err: err}
}

// IsSuccess reports whether the outcome carries a payload.
func (o CaptureOutcome) IsSuccess() bool { return o.Tag == OutcomeSuccess }

// IsNotFound reports whether the operation ended without a capture.
func (o CaptureOutcome) IsNotFound() bool { return o.Tag == OutcomeNotFound }

// IsFailure reports whether the operation hit a fault.
func (o CaptureOutcome) IsFailure() bool { return o.Tag == OutcomeFailure }
