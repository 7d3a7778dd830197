package hardware

import (
	"sync"
	"sync/atomic"
)

// Kind identifies the physical device class a session is bound to.
type Kind string

const (
	KindTokenReader       Kind = "token-reader"
	KindFingerprintSensor Kind = "fingerprint-sensor"
)

// Session is a scoped handle to one hardware transport. It is owned
// exclusively by the operation that acquired it and must be released exactly
// once on every exit path; Release is idempotent and safe to call even if
// acquisition only partially completed.
type Session struct {
	kind     Kind
	release  func() error
	once     sync.Once
	released atomic.Bool
	err      error
}

// NewSession wraps a release hook. A nil hook yields a session whose Release
// is a no-op, which keeps partially failed acquisitions safe to clean up.
func NewSession(kind Kind, release func() error) *Session {
	return &Session{kind: kind, release: release}
}

// Kind returns the device class this session is bound to.
func (s *Session) Kind() Kind {
	return s.kind
}

// Release resets the transport to a safe state. Only the first call runs the
// hook; later calls return the first call's result.
func (s *Session) Release() error {
	s.once.Do(func() {
		if s.release != nil {
			s.err = s.release()
		}
		s.released.Store(true)
	})
	return s.err
}

// Released reports whether the release hook has run.
func (s *Session) Released() bool {
	return s.released.Load()
}
