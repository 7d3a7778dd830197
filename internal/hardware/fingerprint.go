package hardware

import (
	"context"

	"github.com/spec-kit/checkpoint-capture/internal/domain"
)

// Template buffer identifiers used by two-stage enrollment.
const (
	BufferFirst  = 1
	BufferSecond = 2
)

// FingerprintSensor is the boundary to a sensor that owns its template store.
// Templates are never inspectable by the engine; their existence and validity
// are only observable through these calls' results.
type FingerprintSensor interface {
	// CaptureImage attempts one image capture. captured=false with a nil
	// error means no finger was on the window.
	CaptureImage(ctx context.Context) (captured bool, err error)

	// ImageToTemplate converts the last captured image into the feature
	// representation at the given buffer (BufferFirst or BufferSecond).
	ImageToTemplate(ctx context.Context, buffer int) error

	// CreateModel fuses both buffered feature sets into one template. An
	// error means the two captures did not correspond to a consistent
	// fingerprint.
	CreateModel(ctx context.Context) error

	// StoreModel persists the fused template at the given slot.
	StoreModel(ctx context.Context, slot domain.Slot) error

	// Search matches the feature set in BufferFirst against all stored
	// templates. found=false with a nil error is the expected no-match
	// result; an error is a genuine I/O fault.
	Search(ctx context.Context) (match domain.Match, found bool, err error)

	// TemplateCount reports how many templates the store holds.
	TemplateCount(ctx context.Context) (int, error)

	// DeleteModel removes the template at the given slot.
	DeleteModel(ctx context.Context, slot domain.Slot) error

	Close() error
}

// SensorProvider acquires a fingerprint sensor bound to a fresh Session.
type SensorProvider interface {
	AcquireSensor(ctx context.Context) (FingerprintSensor, *Session, error)
}
