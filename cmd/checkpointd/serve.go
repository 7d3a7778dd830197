package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/checkpoint-capture/internal/api/http"
	"github.com/spec-kit/checkpoint-capture/internal/auth"
	"github.com/spec-kit/checkpoint-capture/internal/config"
)

// runServe exposes the capture operations over HTTP until interrupted.
func runServe(args []string, cfg *config.Config, logger *zap.Logger) {
	fs := pflag.NewFlagSet("serve", pflag.ExitOnError)
	simulated := fs.Bool("sim", false, "run against simulated devices")
	if err := fs.Parse(args); err != nil {
		logger.Fatal("parse flags", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := buildEngine(ctx, cfg, logger, *simulated)
	if err != nil {
		logger.Fatal("failed to wire capture engine", zap.Error(err))
	}
	defer eng.Close()

	tokens := auth.NewTokenManager(cfg.API.AuthSecret, cfg.API.TokenTTLMinutes)
	handler := httptransport.NewCaptureHandler(eng.Controller, eng.Metrics, eng.Recent, cfg.Capture.DefaultTimeout())

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, cfg.API.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Capture: handler,
		Tokens:  tokens,
	})

	go func() {
		if err := app.Listen(cfg.API.Addr()); err != nil {
			logger.Fatal("http server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving capture API",
		zap.String("addr", cfg.API.Addr()),
		zap.Bool("sim", *simulated),
		zap.Bool("auth", tokens.Enabled()))

	<-ctx.Done()
	logger.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
}

// runIssueToken prints a bearer token for the serve-mode API.
func runIssueToken(args []string, cfg *config.Config) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "issue-token requires a caller name")
		return 2
	}
	tokens := auth.NewTokenManager(cfg.API.AuthSecret, cfg.API.TokenTTLMinutes)
	token, expires, err := tokens.GenerateToken(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue-token: %v\n", err)
		return 2
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expires.Format("2006-01-02 15:04:05"))
	return 0
}
