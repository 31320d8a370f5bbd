package debate

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"autonomy-core/internal/store"
)

type verifierResult string

const (
	resultApprove verifierResult = "approve"
	resultRevise  verifierResult = "revise"
	resultReject  verifierResult = "reject"
)

type verifierVerdict struct {
	result      verifierResult
	notes       string
	revisedPlan []store.PlanStep
}

// shellMetacharacters matches characters that would let a string
// escape a single argument position if interpreted by a shell.
var shellMetacharacters = regexp.MustCompile("[;&|`$(){}<>]")

var rmRfPattern = regexp.MustCompile(`\brm\s+(-\w*r\w*f\w*|-\w*f\w*r\w*)\b`)
var evalPattern = regexp.MustCompile(`\beval\b`)

// verify runs the Verifier stage: JSON action shape, argument schemas
// against the deny-list in §4.7 step 3 (shell metacharacters, absolute
// paths outside the sandbox workspace, rm -rf, eval). This is closed,
// spec-owned business logic rather than a general parsing concern, so
// it is plain Go rather than a third-party rule engine (documented in
// DESIGN.md).
func (d *Dispatcher) verify(ctx context.Context, plan []store.PlanStep) (verifierVerdict, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "debate.verify", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	if len(plan) == 0 {
		return verifierVerdict{result: resultReject, notes: "empty plan"}, nil
	}

	for i, step := range plan {
		if step.Reply != "" {
			continue
		}
		if step.Tool == "" || step.Server == "" {
			return verifierVerdict{result: resultReject, notes: fmt.Sprintf("step %d missing tool/server", i)}, nil
		}
		if violation := d.denylistViolation(step.Args); violation != "" {
			// A single offending step is dropped as a mechanical revision
			// rather than rejecting the whole plan outright, giving the
			// verifier's one revise-and-recheck pass somewhere to land.
			revised := make([]store.PlanStep, 0, len(plan)-1)
			revised = append(revised, plan[:i]...)
			revised = append(revised, plan[i+1:]...)
			if len(revised) == 0 {
				return verifierVerdict{result: resultReject, notes: fmt.Sprintf("step %d: %s", i, violation)}, nil
			}
			return verifierVerdict{result: resultRevise, notes: fmt.Sprintf("step %d: %s", i, violation), revisedPlan: revised}, nil
		}
	}

	return verifierVerdict{result: resultApprove, notes: "approved"}, nil
}

// denylistViolation walks args looking for a value that trips the
// deny-list; nested maps/slices are walked too since a planner could
// bury a dangerous string inside a nested structure.
func (d *Dispatcher) denylistViolation(args map[string]any) string {
	var walk func(v any) string
	walk = func(v any) string {
		switch t := v.(type) {
		case string:
			return d.checkString(t)
		case map[string]any:
			for _, vv := range t {
				if reason := walk(vv); reason != "" {
					return reason
				}
			}
		case []any:
			for _, vv := range t {
				if reason := walk(vv); reason != "" {
					return reason
				}
			}
		}
		return ""
	}
	return walk(map[string]any(args))
}

func (d *Dispatcher) checkString(s string) string {
	if shellMetacharacters.MatchString(s) {
		return "shell metacharacter in argument"
	}
	if rmRfPattern.MatchString(strings.ToLower(s)) {
		return "rm -rf pattern"
	}
	if evalPattern.MatchString(strings.ToLower(s)) {
		return "eval pattern"
	}
	if strings.HasPrefix(s, "/") {
		abs := filepath.Clean(s)
		if !strings.HasPrefix(abs, filepath.Clean(d.cfg.SandboxWorkspace)) {
			return "absolute path outside sandbox workspace"
		}
	}
	return ""
}
