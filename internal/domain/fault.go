package domain

import (
	"errors"
	"fmt"
)

// FaultReason enumerates the non-transient ways a capture operation fails.
// Transient probe errors never surface here: they are swallowed by the
// polling loop, and an empty checkpoint resolves to NotFound, not a fault.
type FaultReason string

const (
	// FaultSession: acquisition of the device handle itself failed
	// (device absent, transport misconfigured).
	FaultSession FaultReason = "SESSION_FAULT"

	// FaultImageConversion: a captured image could not be converted into
	// the sensor's feature representation.
	FaultImageConversion FaultReason = "IMAGE_CONVERSION_FAILED"

	// FaultModelMismatch: the two enrollment captures did not correspond
	// to a consistent fingerprint.
	FaultModelMismatch FaultReason = "MODEL_MISMATCH"

	// FaultStorageRejected: the sensor refused to persist a template
	// (slot out of range, store full).
	FaultStorageRejected FaultReason = "STORAGE_REJECTED"

	// FaultSearch: the template search itself failed at the I/O level.
	// Distinct from a search that completed and found nothing.
	FaultSearch FaultReason = "SEARCH_FAULT"

	// FaultCancelled: the caller demanded early abort.
	FaultCancelled FaultReason = "CANCELLED"

	// FaultInternal: anything that escaped the taxonomy above.
	FaultInternal FaultReason = "INTERNAL"
)

// Fault is the error type carried inside a Failure outcome.
type Fault struct {
	Reason  FaultReason
	Message string
	Err     error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Reason, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Reason, f.Message)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// NewFault wraps err with a reason from the taxonomy.
func NewFault(reason FaultReason, message string, err error) *Fault {
	return &Fault{Reason: reason, Message: message, Err: err}
}

// AsFault extracts a Fault from an error chain.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// ReasonOf classifies an arbitrary error into the fault taxonomy, defaulting
// to FaultInternal for errors no layer tagged.
func ReasonOf(err error) FaultReason {
	if f, ok := AsFault(err); ok {
		return f.Reason
	}
	return FaultInternal
}
