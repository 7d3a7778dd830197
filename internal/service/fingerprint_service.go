package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/checkpoint-capture/internal/domain"
	"github.com/spec-kit/checkpoint-capture/internal/hardware"
	"github.com/spec-kit/checkpoint-capture/internal/observability"
)

// FingerprintCredentialService runs the two-step enrollment and single-step
// verification pipelines against a sensor that owns its own template store.
type FingerprintCredentialService struct {
	provider hardware.SensorProvider
	interval time.Duration
	pause    time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// FingerprintDependencies bundles collaborators for the fingerprint service.
type FingerprintDependencies struct {
	Provider     hardware.SensorProvider
	PollInterval time.Duration
	EnrollPause  time.Duration
	Logger       *zap.Logger
	Metrics      *observability.Metrics
}

// NewFingerprintCredentialService constructs the service.
func NewFingerprintCredentialService(deps FingerprintDependencies) *FingerprintCredentialService {
	interval := deps.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	pause := deps.EnrollPause
	if pause <= 0 {
		pause = 2 * time.Second
	}
	return &FingerprintCredentialService{
		provider: deps.Provider,
		interval: interval,
		pause:    pause,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
	}
}

// Enroll captures the same finger twice, fuses both captures into one
// template, and stores it at slot. The timeout bounds each capture wait;
// the pause between captures lets the operator lift and re-place the
// finger so the two stages never see the same raster.
func (s *FingerprintCredentialService) Enroll(ctx context.Context, slot domain.Slot, timeout time.Duration) domain.CaptureOutcome {
	if !slot.Valid() {
		return domain.Faulted(domain.FaultStorageRejected,
			fmt.Errorf("slot %d outside %d..%d", slot, domain.SlotMin, domain.SlotMax))
	}

	sensor, session, err := s.provider.AcquireSensor(ctx)
	if err != nil {
		if isCancellation(err) {
			return domain.Faulted(domain.FaultCancelled, err)
		}
		return domain.Faulted(domain.FaultSession, domain.NewFault(domain.FaultSession, "acquire fingerprint sensor", err))
	}
	defer s.release(session, "enroll-fingerprint")

	deadline := time.Now().Add(timeout)

	if outcome, ok := s.captureStage(ctx, sensor, hardware.BufferFirst, deadline); !ok {
		return outcome
	}

	// Operator cue window: the finger must be lifted and re-placed
	// between captures.
	select {
	case <-ctx.Done():
		return domain.Faulted(domain.FaultCancelled, ctx.Err())
	case <-time.After(s.pause):
	}

	if outcome, ok := s.captureStage(ctx, sensor, hardware.BufferSecond, deadline); !ok {
		return outcome
	}

	if err := sensor.CreateModel(ctx); err != nil {
		if isCancellation(err) {
			return domain.Faulted(domain.FaultCancelled, err)
		}
		return domain.Faulted(domain.FaultModelMismatch, err)
	}

	if err := sensor.StoreModel(ctx, slot); err != nil {
		if isCancellation(err) {
			return domain.Faulted(domain.FaultCancelled, err)
		}
		return domain.Faulted(domain.FaultStorageRejected, err)
	}

	s.logger.Info("fingerprint enrolled", zap.Uint8("slot", uint8(slot)))
	return domain.CapturedSlot(slot)
}

// Verify captures one image within timeout and searches the stored
// templates. No match is the expected NotFound outcome, not a fault.
func (s *FingerprintCredentialService) Verify(ctx context.Context, timeout time.Duration) domain.CaptureOutcome {
	sensor, session, err := s.provider.AcquireSensor(ctx)
	if err != nil {
		if isCancellation(err) {
			return domain.Faulted(domain.FaultCancelled, err)
		}
		return domain.Faulted(domain.FaultSession, domain.NewFault(domain.FaultSession, "acquire fingerprint sensor", err))
	}
	defer s.release(session, "verify-fingerprint")

	if err := s.awaitImage(ctx, sensor, timeout, "verify-fingerprint"); err != nil {
		switch {
		case err == errPollTimeout:
			return domain.NoCapture()
		case isCancellation(err):
			return domain.Faulted(domain.FaultCancelled, err)
		default:
			return domain.Faulted(domain.FaultInternal, err)
		}
	}

	if err := sensor.ImageToTemplate(ctx, hardware.BufferFirst); err != nil {
		if isCancellation(err) {
			return domain.Faulted(domain.FaultCancelled, err)
		}
		return domain.Faulted(domain.FaultImageConversion, err)
	}

	match, found, err := sensor.Search(ctx)
	if err != nil {
		if isCancellation(err) {
			return domain.Faulted(domain.FaultCancelled, err)
		}
		return domain.Faulted(domain.FaultSearch, err)
	}
	if !found {
		return domain.NoCapture()
	}

	s.logger.Info("fingerprint verified",
		zap.Uint8("slot", uint8(match.Slot)),
		zap.Uint16("confidence", match.Confidence))
	return domain.CapturedMatch(match)
}

// Wipe deletes the template stored at slot.
func (s *FingerprintCredentialService) Wipe(ctx context.Context, slot domain.Slot) domain.CaptureOutcome {
	if !slot.Valid() {
		return domain.Faulted(domain.FaultStorageRejected,
			fmt.Errorf("slot %d outside %d..%d", slot, domain.SlotMin, domain.SlotMax))
	}
	sensor, session, err := s.provider.AcquireSensor(ctx)
	if err != nil {
		if isCancellation(err) {
			return domain.Faulted(domain.FaultCancelled, err)
		}
		return domain.Faulted(domain.FaultSession, domain.NewFault(domain.FaultSession, "acquire fingerprint sensor", err))
	}
	defer s.release(session, "delete-fingerprint")

	if err := sensor.DeleteModel(ctx, slot); err != nil {
		if isCancellation(err) {
			return domain.Faulted(domain.FaultCancelled, err)
		}
		return domain.Faulted(domain.FaultStorageRejected, err)
	}
	s.logger.Info("fingerprint deleted", zap.Uint8("slot", uint8(slot)))
	return domain.CapturedSlot(slot)
}

// Count reports how many templates the sensor's store holds.
func (s *FingerprintCredentialService) Count(ctx context.Context) (int, domain.CaptureOutcome) {
	sensor, session, err := s.provider.AcquireSensor(ctx)
	if err != nil {
		if isCancellation(err) {
			return 0, domain.Faulted(domain.FaultCancelled, err)
		}
		return 0, domain.Faulted(domain.FaultSession, domain.NewFault(domain.FaultSession, "acquire fingerprint sensor", err))
	}
	defer s.release(session, "count-fingerprints")

	n, err := sensor.TemplateCount(ctx)
	if err != nil {
		if isCancellation(err) {
			return 0, domain.Faulted(domain.FaultCancelled, err)
		}
		return 0, domain.Faulted(domain.FaultInternal, err)
	}
	return n, domain.CaptureOutcome{Tag: domain.OutcomeSuccess}
}

// captureStage polls for one image within the shared enrollment deadline
// and converts it into the given feature buffer. Returns (outcome, false)
// when the pipeline must terminate.
func (s *FingerprintCredentialService) captureStage(ctx context.Context, sensor hardware.FingerprintSensor, buffer int, deadline time.Time) (domain.CaptureOutcome, bool) {
	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}
	if err := s.awaitImage(ctx, sensor, remaining, "enroll-fingerprint"); err != nil {
		switch {
		case err == errPollTimeout:
			return domain.NoCapture(), false
		case isCancellation(err):
			return domain.Faulted(domain.FaultCancelled, err), false
		default:
			return domain.Faulted(domain.FaultInternal, err), false
		}
	}
	if err := sensor.ImageToTemplate(ctx, buffer); err != nil {
		if isCancellation(err) {
			return domain.Faulted(domain.FaultCancelled, err), false
		}
		return domain.Faulted(domain.FaultImageConversion, err), false
	}
	return domain.CaptureOutcome{}, true
}

func (s *FingerprintCredentialService) awaitImage(ctx context.Context, sensor hardware.FingerprintSensor, timeout time.Duration, op string) error {
	return poll(ctx, timeout, s.interval, op, s.logger, s.metrics, func(ctx context.Context) (bool, error) {
		return sensor.CaptureImage(ctx)
	})
}

func (s *FingerprintCredentialService) release(session *hardware.Session, op string) {
	if err := session.Release(); err != nil {
		s.logger.Warn("session release failed", zap.String("op", op), zap.Error(err))
	}
}
