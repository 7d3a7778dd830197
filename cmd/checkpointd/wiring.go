package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/checkpoint-capture/internal/audit"
	"github.com/spec-kit/checkpoint-capture/internal/config"
	"github.com/spec-kit/checkpoint-capture/internal/controller"
	"github.com/spec-kit/checkpoint-capture/internal/hardware"
	"github.com/spec-kit/checkpoint-capture/internal/observability"
	"github.com/spec-kit/checkpoint-capture/internal/service"
	"github.com/spec-kit/checkpoint-capture/internal/sim"
	"github.com/spec-kit/checkpoint-capture/pkg/util"
)

// buildEngine wires providers, services, audit sinks, and the controller.
func buildEngine(ctx context.Context, cfg *config.Config, logger *zap.Logger, simulated bool) (*engine, error) {
	tokenProvider, sensorProvider, err := buildProviders(cfg, simulated)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics()
	recent := audit.NewMemorySink(256)

	sinks := []audit.Sink{recent}
	if cfg.Audit.PostgresDSN != "" {
		pg, err := audit.NewPostgresSink(ctx, cfg.Audit, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, pg)
	}
	if cfg.Audit.RedisAddr != "" {
		sinks = append(sinks, audit.NewRedisSink(cfg.Audit, logger))
	}
	events := audit.NewFanout(cfg.Audit.BufferSize, logger, sinks...)

	tokens := service.NewTokenCredentialService(service.TokenDependencies{
		Provider:     tokenProvider,
		PollInterval: cfg.Capture.PollInterval(),
		Logger:       logger,
		Metrics:      metrics,
	})
	fingerprints := service.NewFingerprintCredentialService(service.FingerprintDependencies{
		Provider:     sensorProvider,
		PollInterval: cfg.Capture.PollInterval(),
		EnrollPause:  cfg.Capture.EnrollPause(),
		Logger:       logger,
		Metrics:      metrics,
	})

	ctrl := controller.New(controller.Dependencies{
		Tokens:       tokens,
		Fingerprints: fingerprints,
		Events:       events,
		Metrics:      metrics,
		Logger:       logger,
		Checkpoint:   cfg.App.Checkpoint,
	})

	return &engine{Controller: ctrl, Metrics: metrics, Recent: recent, events: events}, nil
}

func buildProviders(cfg *config.Config, simulated bool) (hardware.TokenProvider, hardware.SensorProvider, error) {
	if !simulated {
		return &hardware.SerialTokenProvider{
				Device:      cfg.Reader.Device,
				Baud:        cfg.Reader.Baud,
				ReadTimeout: cfg.Serial.ReadTimeout(),
			}, &hardware.SerialSensorProvider{
				Device:      cfg.Serial.Device,
				Baud:        cfg.Serial.Baud,
				ReadTimeout: cfg.Serial.ReadTimeout(),
			}, nil
	}

	// Factory payload: a bench read-token renders a code instead of the
	// empty line an unwritten tag would produce.
	token := sim.NewToken(0)
	token.SetPayload(util.GenerateTokenCode(5))

	var (
		source  sim.FrameSource
		matcher sim.Matcher
	)
	if cfg.Capture.SimImageDir != "" {
		dir, err := sim.NewDirSource(cfg.Capture.SimImageDir)
		if err != nil {
			return nil, nil, err
		}
		source = dir
		matcher = sim.NewAfisMatcher()
	} else {
		// Synthetic frames: enough identical captures for an enroll
		// followed by a verify.
		frame := []byte("sim-finger")
		source = sim.NewQueueSource(frame, frame, frame)
		matcher = sim.ExactMatcher{}
	}
	sensor := sim.NewSensor(source, matcher, cfg.Capture.MatchThreshold)

	return &sim.TokenProvider{Reader: token}, &sim.SensorProvider{Sensor: sensor}, nil
}
