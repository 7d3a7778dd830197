package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/checkpoint-capture/internal/domain"
	"github.com/spec-kit/checkpoint-capture/internal/hardware"
	"github.com/spec-kit/checkpoint-capture/internal/observability"
	"github.com/spec-kit/checkpoint-capture/pkg/util"
)

// TokenCredentialService reads and writes proximity tokens. Every operation
// acquires its own device session, polls within an explicit timeout, and
// releases the session on all exit paths.
type TokenCredentialService struct {
	provider hardware.TokenProvider
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// TokenDependencies bundles collaborators for the token service.
type TokenDependencies struct {
	Provider     hardware.TokenProvider
	PollInterval time.Duration
	Logger       *zap.Logger
	Metrics      *observability.Metrics
}

// NewTokenCredentialService constructs the service.
func NewTokenCredentialService(deps TokenDependencies) *TokenCredentialService {
	interval := deps.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &TokenCredentialService{
		provider: deps.Provider,
		interval: interval,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
	}
}

// Write commissions a token: polls until a tag enters the field, writes id
// to it, and returns Success(id). Expiry with no tag is NotFound.
func (s *TokenCredentialService) Write(ctx context.Context, id domain.TokenID, timeout time.Duration) domain.CaptureOutcome {
	reader, session, err := s.provider.AcquireTokenReader(ctx)
	if err != nil {
		if isCancellation(err) {
			return domain.Faulted(domain.FaultCancelled, err)
		}
		return domain.Faulted(domain.FaultSession, domain.NewFault(domain.FaultSession, "acquire token reader", err))
	}
	defer s.release(session, "write-token")

	err = poll(ctx, timeout, s.interval, "write-token", s.logger, s.metrics, func(ctx context.Context) (bool, error) {
		_, present, probeErr := reader.Probe(ctx)
		if probeErr != nil {
			return false, probeErr
		}
		if !present {
			return false, nil
		}
		if writeErr := reader.Write(ctx, string(id)); writeErr != nil {
			// The tag may have left the field mid-write; keep polling.
			return false, writeErr
		}
		return true, nil
	})
	return s.outcome(err, func() domain.CaptureOutcome {
		s.logger.Info("token commissioned", zap.String("token_id", string(id)))
		return domain.Captured(id)
	})
}

// Read polls until a tag's stored payload is read or the timeout elapses.
// The payload is returned verbatim apart from sector padding; parsing it is
// the caller's concern.
func (s *TokenCredentialService) Read(ctx context.Context, timeout time.Duration) domain.CaptureOutcome {
	reader, session, err := s.provider.AcquireTokenReader(ctx)
	if err != nil {
		if isCancellation(err) {
			return domain.Faulted(domain.FaultCancelled, err)
		}
		return domain.Faulted(domain.FaultSession, domain.NewFault(domain.FaultSession, "acquire token reader", err))
	}
	defer s.release(session, "read-token")

	var payload string
	err = poll(ctx, timeout, s.interval, "read-token", s.logger, s.metrics, func(ctx context.Context) (bool, error) {
		data, present, probeErr := reader.Probe(ctx)
		if probeErr != nil {
			return false, probeErr
		}
		if !present {
			return false, nil
		}
		payload = util.TrimPadding(data)
		return true, nil
	})
	return s.outcome(err, func() domain.CaptureOutcome {
		s.logger.Info("token read", zap.String("payload", payload))
		return domain.Captured(domain.TokenID(payload))
	})
}

func (s *TokenCredentialService) outcome(err error, success func() domain.CaptureOutcome) domain.CaptureOutcome {
	switch {
	case err == nil:
		return success()
	case err == errPollTimeout:
		return domain.NoCapture()
	case isCancellation(err):
		return domain.Faulted(domain.FaultCancelled, err)
	default:
		return domain.Faulted(domain.FaultInternal, err)
	}
}

func (s *TokenCredentialService) release(session *hardware.Session, op string) {
	if err := session.Release(); err != nil {
		s.logger.Warn("session release failed", zap.String("op", op), zap.Error(err))
	}
}
