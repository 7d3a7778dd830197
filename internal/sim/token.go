package sim

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/checkpoint-capture/internal/hardware"
)

// Token is an in-memory proximity token and reader in one: the tag appears
// in the field after a scripted delay, and individual probes can be made to
// fail to exercise the transient-error policy.
type Token struct {
	mu           sync.Mutex
	payload      string
	hasPayload   bool
	presentAfter time.Duration
	firstProbe   time.Time
	probeErrs    []error
	writeErr     error
	closed       bool
}

// NewToken creates a token that enters the field presentAfter the first
// probe. A zero delay means the tag is present immediately.
func NewToken(presentAfter time.Duration) *Token {
	return &Token{presentAfter: presentAfter}
}

// SetPayload preloads the tag's stored data.
func (t *Token) SetPayload(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.payload = data
	t.hasPayload = true
}

// QueueProbeErrors injects errors returned by the next probes, in order.
func (t *Token) QueueProbeErrors(errs ...error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.probeErrs = append(t.probeErrs, errs...)
}

// FailWrites makes every write attempt return err.
func (t *Token) FailWrites(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeErr = err
}

// Probe implements hardware.TokenReader.
func (t *Token) Probe(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.probeErrs) > 0 {
		err := t.probeErrs[0]
		t.probeErrs = t.probeErrs[1:]
		return "", false, err
	}
	if t.firstProbe.IsZero() {
		t.firstProbe = time.Now()
	}
	if time.Since(t.firstProbe) < t.presentAfter {
		return "", false, nil
	}
	if !t.hasPayload {
		return "", true, nil
	}
	return t.payload, true, nil
}

// Write implements hardware.TokenReader.
func (t *Token) Write(ctx context.Context, data string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeErr != nil {
		return t.writeErr
	}
	t.payload = data
	t.hasPayload = true
	return nil
}

// Close implements hardware.TokenReader.
func (t *Token) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Closed reports whether the reader's release hook ran.
func (t *Token) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// TokenProvider hands out the same simulated token under fresh sessions.
type TokenProvider struct {
	Reader     *Token
	AcquireErr error
}

// AcquireTokenReader implements hardware.TokenProvider.
func (p *TokenProvider) AcquireTokenReader(ctx context.Context) (hardware.TokenReader, *hardware.Session, error) {
	if p.AcquireErr != nil {
		return nil, hardware.NewSession(hardware.KindTokenReader, nil), p.AcquireErr
	}
	if err := ctx.Err(); err != nil {
		return nil, hardware.NewSession(hardware.KindTokenReader, nil), err
	}
	return p.Reader, hardware.NewSession(hardware.KindTokenReader, p.Reader.Close), nil
}
