package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/checkpoint-capture/internal/audit"
	"github.com/spec-kit/checkpoint-capture/internal/config"
	"github.com/spec-kit/checkpoint-capture/internal/controller"
	"github.com/spec-kit/checkpoint-capture/internal/domain"
	"github.com/spec-kit/checkpoint-capture/internal/observability"
)

// runCapture executes one capture operation and returns its exit code.
// stdout carries exactly one machine-parsable line; everything else goes
// to the logger on stderr.
func runCapture(cmd string, args []string, cfg *config.Config, logger *zap.Logger) int {
	fs := pflag.NewFlagSet(cmd, pflag.ExitOnError)
	timeoutSec := fs.Int("timeout", cfg.Capture.DefaultTimeoutSec, "seconds to wait for a tag or finger")
	simulated := fs.Bool("sim", false, "run against simulated devices")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return controller.ExitFault
	}

	req := controller.Request{
		Op:      controller.Op(cmd),
		Timeout: time.Duration(*timeoutSec) * time.Second,
	}
	switch req.Op {
	case controller.OpWriteToken:
		if fs.NArg() > 0 {
			req.TokenID = domain.TokenID(fs.Arg(0))
		}
	case controller.OpEnrollFingerprint, controller.OpDeleteFingerprint:
		if fs.NArg() < 1 {
			fmt.Fprintf(os.Stderr, "%s requires a slot argument\n", cmd)
			return controller.ExitFault
		}
		slot, err := strconv.Atoi(fs.Arg(0))
		if err != nil || slot < int(domain.SlotMin) || slot > int(domain.SlotMax) {
			fmt.Printf("ERROR: %s: slot must be %d..%d\n", domain.FaultStorageRejected, domain.SlotMin, domain.SlotMax)
			return controller.ExitFault
		}
		req.Slot = domain.Slot(slot)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := buildEngine(ctx, cfg, logger, *simulated)
	if err != nil {
		fmt.Printf("ERROR: %s: %v\n", domain.FaultSession, err)
		return controller.ExitFault
	}
	defer engine.Close()

	result := engine.Controller.Handle(ctx, req)
	fmt.Println(result.Line)
	return result.ExitCode
}

// engine bundles the wired capture stack for one process lifetime.
type engine struct {
	Controller *controller.Controller
	Metrics    *observability.Metrics
	Recent     *audit.MemorySink
	events     *audit.Fanout
}

// Close drains the audit trail before the process exits.
func (e *engine) Close() {
	e.events.Close()
}
