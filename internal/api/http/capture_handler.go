package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/checkpoint-capture/internal/audit"
	"github.com/spec-kit/checkpoint-capture/internal/controller"
	"github.com/spec-kit/checkpoint-capture/internal/domain"
	"github.com/spec-kit/checkpoint-capture/internal/hardware"
	"github.com/spec-kit/checkpoint-capture/internal/observability"
)

// CaptureHandler exposes the capture operations over HTTP. HTTP callers may
// be concurrent but the hardware is not: a per-device-kind slot rejects
// overlapping operations on the same physical device instead of queueing
// them behind an unbounded wait.
type CaptureHandler struct {
	ctrl           *controller.Controller
	metrics        *observability.Metrics
	recent         *audit.MemorySink
	defaultTimeout time.Duration
	lanes          map[hardware.Kind]chan struct{}
}

// NewCaptureHandler constructs the handler.
func NewCaptureHandler(ctrl *controller.Controller, metrics *observability.Metrics, recent *audit.MemorySink, defaultTimeout time.Duration) *CaptureHandler {
	lanes := map[hardware.Kind]chan struct{}{
		hardware.KindTokenReader:       make(chan struct{}, 1),
		hardware.KindFingerprintSensor: make(chan struct{}, 1),
	}
	for _, lane := range lanes {
		lane <- struct{}{}
	}
	return &CaptureHandler{
		ctrl:           ctrl,
		metrics:        metrics,
		recent:         recent,
		defaultTimeout: defaultTimeout,
		lanes:          lanes,
	}
}

type captureRequest struct {
	TokenID        string `json:"token_id"`
	Slot           uint8  `json:"slot"`
	TimeoutSeconds *int   `json:"timeout_seconds"`
}

type captureResponse struct {
	Outcome    string `json:"outcome"`
	Line       string `json:"line"`
	Payload    string `json:"payload,omitempty"`
	Slot       uint8  `json:"slot,omitempty"`
	Confidence uint16 `json:"confidence,omitempty"`
	Reason     string `json:"reason,omitempty"`
	ElapsedMS  int64  `json:"elapsed_ms"`
}

// WriteToken POST /v1/token/write.
func (h *CaptureHandler) WriteToken(c *fiber.Ctx) error {
	req, err := h.parseBody(c)
	if err != nil {
		return err
	}
	return h.run(c, hardware.KindTokenReader, controller.Request{
		Op:      controller.OpWriteToken,
		TokenID: domain.TokenID(req.TokenID),
		Timeout: h.timeout(req),
	})
}

// ReadToken POST /v1/token/read.
func (h *CaptureHandler) ReadToken(c *fiber.Ctx) error {
	req, err := h.parseBody(c)
	if err != nil {
		return err
	}
	return h.run(c, hardware.KindTokenReader, controller.Request{
		Op:      controller.OpReadToken,
		Timeout: h.timeout(req),
	})
}

// EnrollFingerprint POST /v1/fingerprint/enroll.
func (h *CaptureHandler) EnrollFingerprint(c *fiber.Ctx) error {
	req, err := h.parseBody(c)
	if err != nil {
		return err
	}
	if req.Slot == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "slot is required")
	}
	return h.run(c, hardware.KindFingerprintSensor, controller.Request{
		Op:      controller.OpEnrollFingerprint,
		Slot:    domain.Slot(req.Slot),
		Timeout: h.timeout(req),
	})
}

// VerifyFingerprint POST /v1/fingerprint/verify.
func (h *CaptureHandler) VerifyFingerprint(c *fiber.Ctx) error {
	req, err := h.parseBody(c)
	if err != nil {
		return err
	}
	return h.run(c, hardware.KindFingerprintSensor, controller.Request{
		Op:      controller.OpVerifyFingerprint,
		Timeout: h.timeout(req),
	})
}

// DeleteFingerprint DELETE /v1/fingerprint/:slot.
func (h *CaptureHandler) DeleteFingerprint(c *fiber.Ctx) error {
	slot, err := strconv.Atoi(c.Params("slot"))
	if err != nil || slot < int(domain.SlotMin) || slot > int(domain.SlotMax) {
		return fiber.NewError(fiber.StatusBadRequest, "slot must be 1..127")
	}
	return h.run(c, hardware.KindFingerprintSensor, controller.Request{
		Op:   controller.OpDeleteFingerprint,
		Slot: domain.Slot(slot),
	})
}

// CountFingerprints GET /v1/fingerprint/count.
func (h *CaptureHandler) CountFingerprints(c *fiber.Ctx) error {
	return h.run(c, hardware.KindFingerprintSensor, controller.Request{
		Op: controller.OpCountFingerprints,
	})
}

// Metrics GET /v1/metrics.
func (h *CaptureHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.metrics.Snapshot())
}

// Events GET /v1/events: the recent capture-event ring.
func (h *CaptureHandler) Events(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.recent.Events()})
}

// Live GET /health/live.
func (h *CaptureHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "time": time.Now()})
}

// Ready GET /health/ready.
func (h *CaptureHandler) Ready(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *CaptureHandler) parseBody(c *fiber.Ctx) (*captureRequest, error) {
	var req captureRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	return &req, nil
}

func (h *CaptureHandler) timeout(req *captureRequest) time.Duration {
	if req.TimeoutSeconds != nil && *req.TimeoutSeconds >= 0 {
		return time.Duration(*req.TimeoutSeconds) * time.Second
	}
	return h.defaultTimeout
}

func (h *CaptureHandler) run(c *fiber.Ctx, kind hardware.Kind, req controller.Request) error {
	lane := h.lanes[kind]
	select {
	case <-lane:
		defer func() { lane <- struct{}{} }()
	default:
		return fiber.NewError(fiber.StatusConflict, string(kind)+" is busy")
	}

	start := time.Now()
	result := h.ctrl.Handle(c.UserContext(), req)

	resp := captureResponse{
		Outcome:   string(result.Outcome.Tag),
		Line:      result.Line,
		ElapsedMS: time.Since(start).Milliseconds(),
	}
	switch result.Outcome.Tag {
	case domain.OutcomeSuccess:
		resp.Payload = string(result.Outcome.Payload)
		resp.Slot = uint8(result.Outcome.Slot)
		if result.Outcome.Match != nil {
			resp.Confidence = result.Outcome.Match.Confidence
		}
	case domain.OutcomeFailure:
		resp.Reason = string(result.Outcome.Reason)
		c.Status(fiber.StatusInternalServerError)
	}
	return c.JSON(resp)
}
