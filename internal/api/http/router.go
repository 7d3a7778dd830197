package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/checkpoint-capture/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Capture *CaptureHandler
	Tokens  *auth.TokenManager
}

// RegisterRoutes wires the serve-mode HTTP surface.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Capture.Live)
	app.Get("/health/ready", cfg.Capture.Ready)

	v1 := app.Group("/v1", auth.Middleware(cfg.Tokens))
	v1.Post("/token/write", cfg.Capture.WriteToken)
	v1.Post("/token/read", cfg.Capture.ReadToken)
	v1.Post("/fingerprint/enroll", cfg.Capture.EnrollFingerprint)
	v1.Post("/fingerprint/verify", cfg.Capture.VerifyFingerprint)
	v1.Delete("/fingerprint/:slot", cfg.Capture.DeleteFingerprint)
	v1.Get("/fingerprint/count", cfg.Capture.CountFingerprints)
	v1.Get("/metrics", cfg.Capture.Metrics)
	v1.Get("/events", cfg.Capture.Events)
}
