package hardware

import "context"

// TokenReader is the boundary to a proximity token reader. One probe is a
// single short attempt; blocking-until-presented is the polling loop's job,
// not the driver's.
type TokenReader interface {
	// Probe attempts one read. present=false with a nil error means no tag
	// was in the field, which is not an error.
	Probe(ctx context.Context) (payload string, present bool, err error)

	// Write stores data on the tag currently in the field.
	Write(ctx context.Context, data string) error

	Close() error
}

// TokenProvider acquires a token reader bound to a fresh Session. Acquisition
// failure is a session fault for the calling operation.
type TokenProvider interface {
	AcquireTokenReader(ctx context.Context) (TokenReader, *Session, error)
}
