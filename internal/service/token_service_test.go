package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/checkpoint-capture/internal/domain"
	"github.com/spec-kit/checkpoint-capture/internal/observability"
	"github.com/spec-kit/checkpoint-capture/internal/sim"
)

func newTokenService(provider *sim.TokenProvider) *TokenCredentialService {
	return NewTokenCredentialService(TokenDependencies{
		Provider:     provider,
		PollInterval: time.Millisecond,
		Logger:       zap.NewNop(),
		Metrics:      observability.NewMetrics(),
	})
}

func TestTokenWriteThenReadRoundTrip(t *testing.T) {
	t.Parallel()

	token := sim.NewToken(0)
	svc := newTokenService(&sim.TokenProvider{Reader: token})

	written := svc.Write(context.Background(), "AB12C", time.Second)
	require.True(t, written.IsSuccess())
	assert.Equal(t, domain.TokenID("AB12C"), written.Payload)

	read := svc.Read(context.Background(), time.Second)
	require.True(t, read.IsSuccess())
	assert.Equal(t, written.Payload, read.Payload)
}

func TestTokenWriteTagPresentedLate(t *testing.T) {
	t.Parallel()

	token := sim.NewToken(20 * time.Millisecond)
	svc := newTokenService(&sim.TokenProvider{Reader: token})

	outcome := svc.Write(context.Background(), "AB12C", time.Second)
	require.True(t, outcome.IsSuccess())
	assert.Equal(t, domain.TokenID("AB12C"), outcome.Payload)
}

func TestTokenReadZeroTimeoutNoTag(t *testing.T) {
	t.Parallel()

	token := sim.NewToken(time.Hour)
	svc := newTokenService(&sim.TokenProvider{Reader: token})

	start := time.Now()
	outcome := svc.Read(context.Background(), 0)
	assert.True(t, outcome.IsNotFound())
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestTokenReadTimeoutIsNotFoundNotFailure(t *testing.T) {
	t.Parallel()

	token := sim.NewToken(time.Hour)
	svc := newTokenService(&sim.TokenProvider{Reader: token})

	outcome := svc.Read(context.Background(), 10*time.Millisecond)
	assert.True(t, outcome.IsNotFound())
	assert.True(t, token.Closed())
}

func TestTokenReadSurvivesTransientProbeError(t *testing.T) {
	t.Parallel()

	token := sim.NewToken(0)
	token.SetPayload("1715000000")
	token.QueueProbeErrors(errors.New("rf collision"), errors.New("rf collision"))
	svc := newTokenService(&sim.TokenProvider{Reader: token})

	outcome := svc.Read(context.Background(), time.Second)
	require.True(t, outcome.IsSuccess())
	assert.Equal(t, domain.TokenID("1715000000"), outcome.Payload)
}

func TestTokenReadTrimsSectorPadding(t *testing.T) {
	t.Parallel()

	token := sim.NewToken(0)
	token.SetPayload("AB12C\x00\x00  ")
	svc := newTokenService(&sim.TokenProvider{Reader: token})

	outcome := svc.Read(context.Background(), time.Second)
	require.True(t, outcome.IsSuccess())
	assert.Equal(t, domain.TokenID("AB12C"), outcome.Payload)
}

func TestTokenWriteSwallowsFailedWriteUntilTimeout(t *testing.T) {
	t.Parallel()

	token := sim.NewToken(0)
	token.FailWrites(errors.New("tag left the field"))
	svc := newTokenService(&sim.TokenProvider{Reader: token})

	outcome := svc.Write(context.Background(), "AB12C", 10*time.Millisecond)
	assert.True(t, outcome.IsNotFound())
	assert.True(t, token.Closed())
}

func TestTokenSessionFault(t *testing.T) {
	t.Parallel()

	svc := newTokenService(&sim.TokenProvider{
		Reader:     sim.NewToken(0),
		AcquireErr: errors.New("spi bus unavailable"),
	})

	outcome := svc.Write(context.Background(), "AB12C", time.Second)
	require.True(t, outcome.IsFailure())
	assert.Equal(t, domain.FaultSession, outcome.Reason)
}

func TestTokenCancellationReleasesSession(t *testing.T) {
	t.Parallel()

	token := sim.NewToken(time.Hour)
	svc := newTokenService(&sim.TokenProvider{Reader: token})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	outcome := svc.Read(ctx, time.Minute)
	require.True(t, outcome.IsFailure())
	assert.Equal(t, domain.FaultCancelled, outcome.Reason)
	assert.True(t, token.Closed())
}
