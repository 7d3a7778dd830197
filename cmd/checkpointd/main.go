package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spec-kit/checkpoint-capture/internal/config"
	"github.com/spec-kit/checkpoint-capture/internal/controller"
	"github.com/spec-kit/checkpoint-capture/internal/domain"
	"github.com/spec-kit/checkpoint-capture/internal/observability"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(controller.ExitFault)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Println(initErrorLine(err))
		os.Exit(controller.ExitFault)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Println(initErrorLine(err))
		os.Exit(controller.ExitFault)
	}
	defer logger.Sync() //nolint:errcheck

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "write-token", "read-token", "enroll-fingerprint", "verify-fingerprint",
		"delete-fingerprint", "count-fingerprints":
		os.Exit(runCapture(cmd, args, cfg, logger))
	case "serve":
		runServe(args, cfg, logger)
	case "issue-token":
		os.Exit(runIssueToken(args, cfg))
	default:
		usage()
		os.Exit(controller.ExitFault)
	}
}

// initErrorLine renders a startup failure in the same machine-parsable shape
// a capture fault uses, so exit code and stdout stay uniform across the
// process lifetime. Init failures never share the not-found exit class.
func initErrorLine(err error) string {
	return fmt.Sprintf("ERROR: %s: %v", domain.FaultInternal, err)
}

func usage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, `Usage:
  %s write-token [id] [--timeout seconds] [--sim]
  %s read-token [--timeout seconds] [--sim]
  %s enroll-fingerprint <slot> [--timeout seconds] [--sim]
  %s verify-fingerprint [--timeout seconds] [--sim]
  %s delete-fingerprint <slot> [--sim]
  %s count-fingerprints [--sim]
  %s serve [--sim]
  %s issue-token <caller>
`, prog, prog, prog, prog, prog, prog, prog, prog)
}
