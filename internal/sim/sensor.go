package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spec-kit/checkpoint-capture/internal/domain"
	"github.com/spec-kit/checkpoint-capture/internal/hardware"
)

// FrameSource supplies capture frames to the simulated sensor. A nil frame
// with a nil error models an empty sensor window (no finger).
type FrameSource interface {
	NextFrame(ctx context.Context) ([]byte, error)
}

// Matcher scores two capture frames; higher is more similar.
type Matcher interface {
	Score(ctx context.Context, probe, candidate []byte) (float64, error)
}

// Sensor is a software fingerprint sensor: frames come from a FrameSource
// instead of an optical window, and template fusion/search delegate to a
// Matcher. It mirrors the hardware contract, including the two-buffer
// enrollment sequence and the internal template store.
type Sensor struct {
	mu        sync.Mutex
	source    FrameSource
	matcher   Matcher
	threshold float64

	current []byte
	buffers map[int][]byte
	model   []byte
	store   map[domain.Slot][]byte

	convertErr error
	searchErr  error
	storeFull  bool
	closed     bool
}

// NewSensor builds a sensor over the given frame source and matcher. Scores
// at or above threshold count as the same finger.
func NewSensor(source FrameSource, matcher Matcher, threshold float64) *Sensor {
	return &Sensor{
		source:    source,
		matcher:   matcher,
		threshold: threshold,
		buffers:   make(map[int][]byte),
		store:     make(map[domain.Slot][]byte),
	}
}

// FailConversions makes every template conversion return err until reset
// with nil.
func (s *Sensor) FailConversions(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convertErr = err
}

// FailSearch makes the template search itself error.
func (s *Sensor) FailSearch(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchErr = err
}

// MarkStoreFull makes StoreModel reject writes.
func (s *Sensor) MarkStoreFull(full bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeFull = full
}

// CaptureImage implements hardware.FingerprintSensor.
func (s *Sensor) CaptureImage(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	frame, err := s.source.NextFrame(ctx)
	if err != nil {
		return false, err
	}
	if frame == nil {
		return false, nil
	}
	s.mu.Lock()
	s.current = frame
	s.mu.Unlock()
	return true, nil
}

// ImageToTemplate implements hardware.FingerprintSensor.
func (s *Sensor) ImageToTemplate(ctx context.Context, buffer int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.convertErr != nil {
		return s.convertErr
	}
	if buffer != hardware.BufferFirst && buffer != hardware.BufferSecond {
		return fmt.Errorf("invalid buffer %d", buffer)
	}
	if s.current == nil {
		return errors.New("no captured image to convert")
	}
	s.buffers[buffer] = s.current
	return nil
}

// CreateModel implements hardware.FingerprintSensor. Both buffers must hold
// captures of the same finger per the matcher.
func (s *Sensor) CreateModel(ctx context.Context) error {
	s.mu.Lock()
	first := s.buffers[hardware.BufferFirst]
	second := s.buffers[hardware.BufferSecond]
	threshold := s.threshold
	s.mu.Unlock()

	if first == nil || second == nil {
		return errors.New("both feature buffers must be populated")
	}
	score, err := s.matcher.Score(ctx, first, second)
	if err != nil {
		return fmt.Errorf("fuse captures: %w", err)
	}
	if score < threshold {
		return fmt.Errorf("captures do not correspond (score %.1f below %.1f)", score, threshold)
	}
	s.mu.Lock()
	s.model = first
	s.mu.Unlock()
	return nil
}

// StoreModel implements hardware.FingerprintSensor.
func (s *Sensor) StoreModel(ctx context.Context, slot domain.Slot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slot.Valid() {
		return fmt.Errorf("slot %d out of range", slot)
	}
	if s.storeFull {
		return errors.New("template store full")
	}
	if s.model == nil {
		return errors.New("no fused template to store")
	}
	s.store[slot] = s.model
	s.model = nil
	return nil
}

// Search implements hardware.FingerprintSensor: best score across the store
// wins, below-threshold is the expected no-match result.
func (s *Sensor) Search(ctx context.Context) (domain.Match, bool, error) {
	s.mu.Lock()
	if s.searchErr != nil {
		err := s.searchErr
		s.mu.Unlock()
		return domain.Match{}, false, err
	}
	probe := s.buffers[hardware.BufferFirst]
	stored := make(map[domain.Slot][]byte, len(s.store))
	for slot, tpl := range s.store {
		stored[slot] = tpl
	}
	threshold := s.threshold
	s.mu.Unlock()

	if probe == nil {
		return domain.Match{}, false, errors.New("no probe features to search with")
	}

	var (
		bestSlot  domain.Slot
		bestScore float64
		found     bool
	)
	for slot, tpl := range stored {
		score, err := s.matcher.Score(ctx, probe, tpl)
		if err != nil {
			return domain.Match{}, false, fmt.Errorf("score slot %d: %w", slot, err)
		}
		if score >= threshold && (!found || score > bestScore) {
			bestSlot, bestScore, found = slot, score, true
		}
	}
	if !found {
		return domain.Match{}, false, nil
	}
	confidence := bestScore
	if confidence > 65535 {
		confidence = 65535
	}
	return domain.Match{Slot: bestSlot, Confidence: uint16(confidence)}, true, nil
}

// TemplateCount implements hardware.FingerprintSensor.
func (s *Sensor) TemplateCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.store), nil
}

// DeleteModel implements hardware.FingerprintSensor.
func (s *Sensor) DeleteModel(ctx context.Context, slot domain.Slot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.store[slot]; !ok {
		return fmt.Errorf("slot %d is empty", slot)
	}
	delete(s.store, slot)
	return nil
}

// Close implements hardware.FingerprintSensor.
func (s *Sensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether the sensor's release hook ran.
func (s *Sensor) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SensorProvider hands out the same simulated sensor under fresh sessions.
type SensorProvider struct {
	Sensor     *Sensor
	AcquireErr error
}

// AcquireSensor implements hardware.SensorProvider.
func (p *SensorProvider) AcquireSensor(ctx context.Context) (hardware.FingerprintSensor, *hardware.Session, error) {
	if p.AcquireErr != nil {
		return nil, hardware.NewSession(hardware.KindFingerprintSensor, nil), p.AcquireErr
	}
	if err := ctx.Err(); err != nil {
		return nil, hardware.NewSession(hardware.KindFingerprintSensor, nil), err
	}
	return p.Sensor, hardware.NewSession(hardware.KindFingerprintSensor, p.Sensor.Close), nil
}
