package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"autonomy-core/internal/exprlang"
	"autonomy-core/internal/store"
)

// runWorkflow executes a workflow task's steps sequentially against a
// mutable state map seeded from the task's prior persisted state and a
// read-only source map fetched from payload.source_url when present.
func (e *Engine) runWorkflow(ctx context.Context, t *store.Task) {
	state := map[string]any{}
	for k, v := range t.State {
		state[k] = v
	}

	var source map[string]any
	if sourceURL, ok := t.Payload["source_url"].(string); ok && sourceURL != "" {
		fetched, err := e.fetchSource(ctx, sourceURL)
		if err != nil {
			e.recordStepFailure(ctx, t, fmt.Errorf("initial fetch: %w", err))
			return
		}
		source = fetched
	}

	stateChanged := false
	for _, step := range t.Steps {
		if err := e.runStep(ctx, t, step, state, &source, &stateChanged); err != nil {
			e.recordStepFailure(ctx, t, err)
			return
		}
	}

	// A completed run clears any failures accumulated on prior attempts,
	// per the Data Model's "failure_count resets on success."
	if t.FailureCount != 0 {
		t.FailureCount = 0
		stateChanged = true
	}

	if stateChanged {
		t.State = state
		if err := e.gateway.SaveTask(ctx, t); err != nil {
			e.log.Error("persist workflow state failed", "task", t.ID, "err", err)
		}
	}
}

func (e *Engine) runStep(ctx context.Context, t *store.Task, step store.WorkflowStep, state map[string]any, source *map[string]any, stateChanged *bool) error {
	env := exprlang.Env{State: state, Source: *source}

	switch step.Action {
	case store.StepFetch:
		sourceURL, _ := t.Payload["source_url"].(string)
		if step.Target != "" {
			sourceURL = step.Target
		}
		if sourceURL == "" {
			return fmt.Errorf("fetch step has no source_url")
		}
		fetched, err := e.fetchSource(ctx, sourceURL)
		if err != nil {
			return err
		}
		*source = fetched
		return nil

	case store.StepSet:
		v, err := exprlang.Eval(step.Expr, env)
		if err != nil {
			return err
		}
		state[step.Key] = v
		return nil

	case store.StepSetState:
		v, err := exprlang.Eval(step.Expr, env)
		if err != nil {
			return err
		}
		state[step.Key] = v
		*stateChanged = true
		return nil

	case store.StepNotify:
		if step.When != "" {
			cond, err := exprlang.Eval(step.When, env)
			if err != nil {
				return err
			}
			if b, ok := cond.(bool); !ok || !b {
				return nil
			}
		}
		e.deliver(t.OwnerUser, interpolate(step.Message, env), t.ID)
		return nil

	case store.StepToolCall:
		if e.registry == nil {
			return fmt.Errorf("tool_call step but no tool registry configured")
		}
		result, err := e.registry.Call(ctx, step.Server, step.Tool, step.Args, time.Now().Add(e.cfg.WorkflowHTTPTimeout))
		if err != nil {
			return err
		}
		if step.Target != "" {
			state[step.Target] = result
		}
		return nil

	default:
		return fmt.Errorf("unknown workflow step action %q", step.Action)
	}
}

// interpolate renders "{state.x} said {source.text}"-style templates.
// It is intentionally simple string substitution, not another
// expression evaluator: the closed grammar already handles computed
// values via `set` steps ahead of `notify`.
func interpolate(message string, env exprlang.Env) string {
	if !strings.Contains(message, "{") {
		return message
	}
	var b strings.Builder
	i := 0
	for i < len(message) {
		if message[i] == '{' {
			end := strings.IndexByte(message[i:], '}')
			if end < 0 {
				b.WriteString(message[i:])
				break
			}
			expr := message[i+1 : i+end]
			v, err := exprlang.Eval(expr, env)
			if err == nil {
				switch t := v.(type) {
				case float64:
					b.WriteString(exprlang.FormatFloat(t))
				default:
					fmt.Fprintf(&b, "%v", t)
				}
			}
			i += end + 1
			continue
		}
		b.WriteByte(message[i])
		i++
	}
	return b.String()
}

// fetchSource retrieves payload.source_url, bounded retry per
// WorkflowHTTPRetries, JSON-parsing the body when possible and falling
// back to {"text": body} otherwise, per §4.5.
func (e *Engine) fetchSource(ctx context.Context, url string) (map[string]any, error) {
	client := &http.Client{Timeout: e.cfg.WorkflowHTTPTimeout}

	var lastErr error
	for attempt := 0; attempt <= e.cfg.WorkflowHTTPRetries; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, e.cfg.WorkflowHTTPTimeout)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
		if err != nil {
			cancel()
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			cancel()
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		var parsed map[string]any
		if json.Unmarshal(body, &parsed) == nil {
			return parsed, nil
		}
		return map[string]any{"text": string(body)}, nil
	}
	return nil, fmt.Errorf("fetch %s failed after retries: %w", url, lastErr)
}
