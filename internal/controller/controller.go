package controller

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/checkpoint-capture/internal/audit"
	"github.com/spec-kit/checkpoint-capture/internal/domain"
	"github.com/spec-kit/checkpoint-capture/internal/observability"
	"github.com/spec-kit/checkpoint-capture/internal/service"
	"github.com/spec-kit/checkpoint-capture/pkg/util"
)

// Op enumerates the external request kinds.
type Op string

const (
	OpWriteToken        Op = "write-token"
	OpReadToken         Op = "read-token"
	OpEnrollFingerprint Op = "enroll-fingerprint"
	OpVerifyFingerprint Op = "verify-fingerprint"
	OpDeleteFingerprint Op = "delete-fingerprint"
	OpCountFingerprints Op = "count-fingerprints"
)

// Exit codes of the process surface.
const (
	ExitSuccess  = 0
	ExitNotFound = 1
	ExitFault    = 2
)

// Request is one external capture request.
type Request struct {
	Op      Op
	TokenID domain.TokenID
	Slot    domain.Slot
	Timeout time.Duration
}

// Result is the rendered outcome: exactly one machine-parsable line and a
// matching exit code.
type Result struct {
	Line     string
	ExitCode int
	Outcome  domain.CaptureOutcome
}

// Controller translates one request into exactly one service call and
// renders the outcome. It performs no retry of its own; all retry and
// timeout policy lives in the services.
type Controller struct {
	tokens       *service.TokenCredentialService
	fingerprints *service.FingerprintCredentialService
	events       *audit.Fanout
	metrics      *observability.Metrics
	logger       *zap.Logger
	checkpoint   string
}

// Dependencies bundles collaborators for the controller.
type Dependencies struct {
	Tokens       *service.TokenCredentialService
	Fingerprints *service.FingerprintCredentialService
	Events       *audit.Fanout
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Checkpoint   string
}

// New constructs the controller.
func New(deps Dependencies) *Controller {
	return &Controller{
		tokens:       deps.Tokens,
		fingerprints: deps.Fingerprints,
		events:       deps.Events,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		checkpoint:   deps.Checkpoint,
	}
}

// Handle runs one capture request to completion.
func (c *Controller) Handle(ctx context.Context, req Request) Result {
	start := time.Now()

	var (
		outcome domain.CaptureOutcome
		count   int
	)
	switch req.Op {
	case OpWriteToken:
		id := req.TokenID
		if id == "" {
			id = domain.TokenID(util.GenerateTokenCode(5))
			c.logger.Info("generated token id", zap.String("token_id", string(id)))
		}
		outcome = c.tokens.Write(ctx, id, req.Timeout)
	case OpReadToken:
		outcome = c.tokens.Read(ctx, req.Timeout)
	case OpEnrollFingerprint:
		outcome = c.fingerprints.Enroll(ctx, req.Slot, req.Timeout)
	case OpVerifyFingerprint:
		outcome = c.fingerprints.Verify(ctx, req.Timeout)
	case OpDeleteFingerprint:
		outcome = c.fingerprints.Wipe(ctx, req.Slot)
	case OpCountFingerprints:
		count, outcome = c.fingerprints.Count(ctx)
	default:
		outcome = domain.Faulted(domain.FaultInternal, fmt.Errorf("unknown operation %q", req.Op))
	}

	elapsed := time.Since(start)
	c.metrics.RecordOutcome(string(req.Op), string(outcome.Tag), elapsed)
	if c.events != nil {
		c.events.Emit(audit.NewCaptureEvent(c.checkpoint, string(req.Op), outcome, elapsed))
	}

	return Result{
		Line:     render(req.Op, outcome, count),
		ExitCode: exitCode(outcome),
		Outcome:  outcome,
	}
}

func render(op Op, outcome domain.CaptureOutcome, count int) string {
	switch outcome.Tag {
	case domain.OutcomeSuccess:
		switch op {
		case OpWriteToken, OpReadToken:
			return string(outcome.Payload)
		case OpVerifyFingerprint:
			return fmt.Sprintf("%d,%d", outcome.Match.Slot, outcome.Match.Confidence)
		case OpCountFingerprints:
			return strconv.Itoa(count)
		default:
			return strconv.Itoa(int(outcome.Slot))
		}
	case domain.OutcomeNotFound:
		if op == OpVerifyFingerprint {
			return "NO_MATCH"
		}
		return "TIMEOUT"
	default:
		if outcome.Err != nil {
			return fmt.Sprintf("ERROR: %s: %v", outcome.Reason, outcome.Err)
		}
		return fmt.Sprintf("ERROR: %s", outcome.Reason)
	}
}

func exitCode(outcome domain.CaptureOutcome) int {
	switch outcome.Tag {
	case domain.OutcomeSuccess:
		return ExitSuccess
	case domain.OutcomeNotFound:
		return ExitNotFound
	default:
		return ExitFault
	}
}
