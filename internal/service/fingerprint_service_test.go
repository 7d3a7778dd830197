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

const matchThreshold = 50

func newFingerprintService(provider *sim.SensorProvider) *FingerprintCredentialService {
	return NewFingerprintCredentialService(FingerprintDependencies{
		Provider:     provider,
		PollInterval: time.Millisecond,
		EnrollPause:  time.Millisecond,
		Logger:       zap.NewNop(),
		Metrics:      observability.NewMetrics(),
	})
}

func newSensor(frames ...[]byte) *sim.Sensor {
	return sim.NewSensor(sim.NewQueueSource(frames...), sim.ExactMatcher{}, matchThreshold)
}

func TestEnrollTwoConsistentCaptures(t *testing.T) {
	t.Parallel()

	finger := []byte("ridge-pattern-a")
	sensor := newSensor(finger, finger)
	svc := newFingerprintService(&sim.SensorProvider{Sensor: sensor})

	outcome := svc.Enroll(context.Background(), 12, time.Second)
	require.True(t, outcome.IsSuccess())
	assert.Equal(t, domain.Slot(12), outcome.Slot)
	assert.True(t, sensor.Closed())
}

func TestEnrollMismatchedCapturesNeverSucceeds(t *testing.T) {
	t.Parallel()

	sensor := newSensor([]byte("ridge-pattern-a"), []byte("ridge-pattern-b"))
	svc := newFingerprintService(&sim.SensorProvider{Sensor: sensor})

	outcome := svc.Enroll(context.Background(), 12, time.Second)
	require.True(t, outcome.IsFailure())
	assert.Equal(t, domain.FaultModelMismatch, outcome.Reason)
}

func TestEnrollThenVerifySameInput(t *testing.T) {
	t.Parallel()

	finger := []byte("ridge-pattern-a")
	sensor := newSensor(finger, finger, finger)
	svc := newFingerprintService(&sim.SensorProvider{Sensor: sensor})

	enrolled := svc.Enroll(context.Background(), 12, time.Second)
	require.True(t, enrolled.IsSuccess())

	verified := svc.Verify(context.Background(), time.Second)
	require.True(t, verified.IsSuccess())
	require.NotNil(t, verified.Match)
	assert.Equal(t, domain.Slot(12), verified.Match.Slot)
	assert.GreaterOrEqual(t, verified.Match.Confidence, uint16(matchThreshold))
}

func TestVerifyEmptyStoreIsNotFound(t *testing.T) {
	t.Parallel()

	sensor := newSensor([]byte("ridge-pattern-a"))
	svc := newFingerprintService(&sim.SensorProvider{Sensor: sensor})

	outcome := svc.Verify(context.Background(), time.Second)
	assert.True(t, outcome.IsNotFound())
	assert.False(t, outcome.IsFailure())
}

func TestVerifyNoFingerTimesOutAsNotFound(t *testing.T) {
	t.Parallel()

	sensor := newSensor() // empty window forever
	svc := newFingerprintService(&sim.SensorProvider{Sensor: sensor})

	outcome := svc.Verify(context.Background(), 10*time.Millisecond)
	assert.True(t, outcome.IsNotFound())
	assert.True(t, sensor.Closed())
}

func TestEnrollConversionFailure(t *testing.T) {
	t.Parallel()

	finger := []byte("ridge-pattern-a")
	sensor := newSensor(finger, finger)
	sensor.FailConversions(errors.New("image too smudged"))
	svc := newFingerprintService(&sim.SensorProvider{Sensor: sensor})

	outcome := svc.Enroll(context.Background(), 12, time.Second)
	require.True(t, outcome.IsFailure())
	assert.Equal(t, domain.FaultImageConversion, outcome.Reason)
	assert.True(t, sensor.Closed())
}

func TestEnrollStorageRejected(t *testing.T) {
	t.Parallel()

	finger := []byte("ridge-pattern-a")
	sensor := newSensor(finger, finger)
	sensor.MarkStoreFull(true)
	svc := newFingerprintService(&sim.SensorProvider{Sensor: sensor})

	outcome := svc.Enroll(context.Background(), 12, time.Second)
	require.True(t, outcome.IsFailure())
	assert.Equal(t, domain.FaultStorageRejected, outcome.Reason)
}

func TestEnrollSlotOutOfRangeRejectedBeforeHardware(t *testing.T) {
	t.Parallel()

	svc := newFingerprintService(&sim.SensorProvider{
		AcquireErr: errors.New("should never acquire"),
	})

	outcome := svc.Enroll(context.Background(), 0, time.Second)
	require.True(t, outcome.IsFailure())
	assert.Equal(t, domain.FaultStorageRejected, outcome.Reason)
}

func TestEnrollTimeoutWaitingForFirstImage(t *testing.T) {
	t.Parallel()

	sensor := newSensor()
	svc := newFingerprintService(&sim.SensorProvider{Sensor: sensor})

	outcome := svc.Enroll(context.Background(), 12, 10*time.Millisecond)
	assert.True(t, outcome.IsNotFound())
	assert.True(t, sensor.Closed())
}

func TestVerifySearchFaultIsDistinctFromNoMatch(t *testing.T) {
	t.Parallel()

	finger := []byte("ridge-pattern-a")
	sensor := newSensor(finger, finger, finger)
	svc := newFingerprintService(&sim.SensorProvider{Sensor: sensor})

	require.True(t, svc.Enroll(context.Background(), 3, time.Second).IsSuccess())

	sensor.FailSearch(errors.New("flash read error"))
	outcome := svc.Verify(context.Background(), time.Second)
	require.True(t, outcome.IsFailure())
	assert.Equal(t, domain.FaultSearch, outcome.Reason)
}

func TestFingerprintSessionFault(t *testing.T) {
	t.Parallel()

	svc := newFingerprintService(&sim.SensorProvider{
		AcquireErr: errors.New("serial port missing"),
	})

	outcome := svc.Verify(context.Background(), time.Second)
	require.True(t, outcome.IsFailure())
	assert.Equal(t, domain.FaultSession, outcome.Reason)
}

func TestEnrollCancellationReleasesSession(t *testing.T) {
	t.Parallel()

	sensor := newSensor() // never a finger: enroll blocks in stage one
	svc := newFingerprintService(&sim.SensorProvider{Sensor: sensor})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	outcome := svc.Enroll(ctx, 12, time.Minute)
	require.True(t, outcome.IsFailure())
	assert.Equal(t, domain.FaultCancelled, outcome.Reason)
	assert.True(t, sensor.Closed())
}

func TestWipeAndCount(t *testing.T) {
	t.Parallel()

	finger := []byte("ridge-pattern-a")
	sensor := newSensor(finger, finger)
	svc := newFingerprintService(&sim.SensorProvider{Sensor: sensor})

	require.True(t, svc.Enroll(context.Background(), 5, time.Second).IsSuccess())

	n, outcome := svc.Count(context.Background())
	require.True(t, outcome.IsSuccess())
	assert.Equal(t, 1, n)

	require.True(t, svc.Wipe(context.Background(), 5).IsSuccess())

	n, outcome = svc.Count(context.Background())
	require.True(t, outcome.IsSuccess())
	assert.Equal(t, 0, n)

	wiped := svc.Wipe(context.Background(), 5)
	require.True(t, wiped.IsFailure())
	assert.Equal(t, domain.FaultStorageRejected, wiped.Reason)
}
