package controller

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/checkpoint-capture/internal/audit"
	"github.com/spec-kit/checkpoint-capture/internal/domain"
	"github.com/spec-kit/checkpoint-capture/internal/observability"
	"github.com/spec-kit/checkpoint-capture/internal/service"
	"github.com/spec-kit/checkpoint-capture/internal/sim"
)

type fixture struct {
	ctrl   *Controller
	token  *sim.Token
	sensor *sim.Sensor
	recent *audit.MemorySink
	events *audit.Fanout
}

func newFixture(t *testing.T, frames ...[]byte) *fixture {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	token := sim.NewToken(0)
	sensor := sim.NewSensor(sim.NewQueueSource(frames...), sim.ExactMatcher{}, 50)
	recent := audit.NewMemorySink(16)
	events := audit.NewFanout(16, logger, recent)

	ctrl := New(Dependencies{
		Tokens: service.NewTokenCredentialService(service.TokenDependencies{
			Provider:     &sim.TokenProvider{Reader: token},
			PollInterval: time.Millisecond,
			Logger:       logger,
			Metrics:      metrics,
		}),
		Fingerprints: service.NewFingerprintCredentialService(service.FingerprintDependencies{
			Provider:     &sim.SensorProvider{Sensor: sensor},
			PollInterval: time.Millisecond,
			EnrollPause:  time.Millisecond,
			Logger:       logger,
			Metrics:      metrics,
		}),
		Events:     events,
		Metrics:    metrics,
		Logger:     logger,
		Checkpoint: "gate-7",
	})
	return &fixture{ctrl: ctrl, token: token, sensor: sensor, recent: recent, events: events}
}

func TestHandleTokenRoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	wrote := f.ctrl.Handle(ctx, Request{Op: OpWriteToken, TokenID: "ABC12", Timeout: time.Second})
	assert.Equal(t, "ABC12", wrote.Line)
	assert.Equal(t, ExitSuccess, wrote.ExitCode)

	read := f.ctrl.Handle(ctx, Request{Op: OpReadToken, Timeout: time.Second})
	assert.Equal(t, "ABC12", read.Line)
	assert.Equal(t, ExitSuccess, read.ExitCode)
}

func TestHandleGeneratesTokenIDWhenOmitted(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result := f.ctrl.Handle(context.Background(), Request{Op: OpWriteToken, Timeout: time.Second})
	require.Equal(t, ExitSuccess, result.ExitCode)
	assert.Len(t, result.Line, 5)
	assert.Equal(t, strings.ToUpper(result.Line), result.Line)
}

func TestHandleReadTimeout(t *testing.T) {
	t.Parallel()

	ctrl := New(Dependencies{
		Tokens: service.NewTokenCredentialService(service.TokenDependencies{
			Provider:     &sim.TokenProvider{Reader: sim.NewToken(time.Hour)},
			PollInterval: time.Millisecond,
			Logger:       zap.NewNop(),
			Metrics:      observability.NewMetrics(),
		}),
		Logger: zap.NewNop(),
	})

	result := ctrl.Handle(context.Background(), Request{Op: OpReadToken, Timeout: 10 * time.Millisecond})
	assert.Equal(t, "TIMEOUT", result.Line)
	assert.Equal(t, ExitNotFound, result.ExitCode)
}

func TestHandleVerifyRendersSlotAndConfidence(t *testing.T) {
	t.Parallel()

	finger := []byte("loop")
	f := newFixture(t, finger, finger, finger)
	ctx := context.Background()

	enrolled := f.ctrl.Handle(ctx, Request{Op: OpEnrollFingerprint, Slot: 11, Timeout: time.Second})
	require.Equal(t, ExitSuccess, enrolled.ExitCode)
	assert.Equal(t, "11", enrolled.Line)

	verified := f.ctrl.Handle(ctx, Request{Op: OpVerifyFingerprint, Timeout: time.Second})
	require.Equal(t, ExitSuccess, verified.ExitCode)
	assert.Equal(t, "11,100", verified.Line)
}

func TestHandleVerifyNoMatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []byte("loop"))
	result := f.ctrl.Handle(context.Background(), Request{Op: OpVerifyFingerprint, Timeout: time.Second})
	assert.Equal(t, "NO_MATCH", result.Line)
	assert.Equal(t, ExitNotFound, result.ExitCode)
}

func TestHandleCountAndDelete(t *testing.T) {
	t.Parallel()

	finger := []byte("loop")
	f := newFixture(t, finger, finger)
	ctx := context.Background()

	require.Equal(t, ExitSuccess, f.ctrl.Handle(ctx, Request{Op: OpEnrollFingerprint, Slot: 4, Timeout: time.Second}).ExitCode)

	count := f.ctrl.Handle(ctx, Request{Op: OpCountFingerprints})
	assert.Equal(t, "1", count.Line)
	assert.Equal(t, ExitSuccess, count.ExitCode)

	deleted := f.ctrl.Handle(ctx, Request{Op: OpDeleteFingerprint, Slot: 4})
	assert.Equal(t, "4", deleted.Line)
	assert.Equal(t, ExitSuccess, deleted.ExitCode)

	count = f.ctrl.Handle(ctx, Request{Op: OpCountFingerprints})
	assert.Equal(t, "0", count.Line)
}

func TestHandleFaultRendersErrorLine(t *testing.T) {
	t.Parallel()

	ctrl := New(Dependencies{
		Tokens: service.NewTokenCredentialService(service.TokenDependencies{
			Provider:     &sim.TokenProvider{AcquireErr: errors.New("reader unplugged")},
			PollInterval: time.Millisecond,
			Logger:       zap.NewNop(),
			Metrics:      observability.NewMetrics(),
		}),
		Logger: zap.NewNop(),
	})

	result := ctrl.Handle(context.Background(), Request{Op: OpReadToken, Timeout: time.Second})
	assert.Equal(t, ExitFault, result.ExitCode)
	assert.True(t, strings.HasPrefix(result.Line, "ERROR: "+string(domain.FaultSession)), result.Line)
}

func TestHandleUnknownOp(t *testing.T) {
	t.Parallel()

	ctrl := New(Dependencies{Logger: zap.NewNop()})
	result := ctrl.Handle(context.Background(), Request{Op: "open-gate"})
	assert.Equal(t, ExitFault, result.ExitCode)
	assert.Contains(t, result.Line, string(domain.FaultInternal))
}

func TestHandleEmitsAuditEvents(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.ctrl.Handle(context.Background(), Request{Op: OpWriteToken, TokenID: "ZZ999", Timeout: time.Second})
	f.events.Close()

	events := f.recent.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "gate-7", events[0].Checkpoint)
	assert.Equal(t, string(OpWriteToken), events[0].Op)
	assert.Equal(t, domain.OutcomeSuccess, events[0].Outcome)
	assert.Equal(t, "ZZ999", events[0].Payload)
	assert.NotEmpty(t, events[0].ID)
}
