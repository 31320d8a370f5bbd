// Package intent implements the Intent Classifier & Interpreter:
// normalizing an inbound utterance into chat, schedule_query,
// schedule_add, or action_request, with a regex fast path for obvious
// scheduling patterns and an LLM fallback for open-ended classification.
// Pattern extraction is grounded on
// original_source/her-core/utils/schedule_helpers.py's clock/weekday/
// interval pattern catalogue, translated into Go regexes rather than
// ported line for line; tiered regex-then-LLM dispatch is grounded on
// original_source/her-core/her_telegram/unified_interpreter.py.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"autonomy-core/internal/apperr"
	"autonomy-core/internal/llm"
	"autonomy-core/internal/store"
)

// Kind enumerates the four output classes of §4.6.
type Kind string

const (
	KindChat          Kind = "chat"
	KindScheduleQuery Kind = "schedule_query"
	KindScheduleAdd   Kind = "schedule_add"
	KindActionRequest Kind = "action_request"
)

// Result is the classifier's output for one utterance.
type Result struct {
	Kind       Kind
	Confidence float64
	Language   string
	Text       string         // chat: normalized text
	Filters    map[string]any // schedule_query
	TaskDraft  *store.Task    // schedule_add
	Goal       string         // action_request
	Constraints map[string]any
}

var errAmbiguousIntent = apperr.Domain("", "I couldn't tell exactly what to schedule or when.", "ambiguous_intent", nil)

// AmbiguousIntent is returned by Classify's schedule_add path when a
// timezone or at-time cannot be resolved with confidence, per §4.5's
// "rejects with AmbiguousIntent" contract.
func AmbiguousIntent() error { return errAmbiguousIntent }

// Classifier is the Intent Classifier & Interpreter.
type Classifier struct {
	llmClient        llm.Client
	actionThreshold  float64
	decisionSink     DecisionSink
}

// DecisionSink receives DecisionEvent records the classifier emits,
// e.g. for timezone_conversion. Kept as a narrow interface so the
// classifier doesn't need the full Gateway.
type DecisionSink interface {
	AppendDecision(ctx context.Context, ev store.DecisionEvent) error
}

// New builds a Classifier. actionThreshold is HER_ACTION_INTENT_THRESHOLD
// (default 0.8 when zero).
func New(client llm.Client, sink DecisionSink, actionThreshold float64) *Classifier {
	if actionThreshold <= 0 {
		actionThreshold = 0.8
	}
	return &Classifier{llmClient: client, actionThreshold: actionThreshold, decisionSink: sink}
}

var scheduleQueryPattern = regexp.MustCompile(`(?i)^\s*(list|show|what('?s| is)) (my )?(reminders?|tasks?|schedule)|what('?s| is) next\b`)

// Classify implements §4.6's dispatch: a regex fast path for obvious
// schedule_query utterances, then extraction for schedule_add, falling
// back to an LLM call for chat vs. action_request disambiguation.
func (c *Classifier) Classify(ctx context.Context, userID, message, userTimezone, lastLanguage string) (Result, error) {
	message = strings.TrimSpace(message)

	if scheduleQueryPattern.MatchString(message) {
		return Result{Kind: KindScheduleQuery, Confidence: 1.0, Language: lastLanguage, Filters: map[string]any{"raw": message}}, nil
	}

	if draft, tzResolved, ok := c.extractScheduleDraft(ctx, userID, message, userTimezone); ok {
		if !tzResolved {
			return Result{}, AmbiguousIntent()
		}
		return Result{Kind: KindScheduleAdd, Confidence: 0.95, Language: lastLanguage, TaskDraft: draft}, nil
	}

	return c.classifyOpenEnded(ctx, message, lastLanguage)
}

// classifyOpenEnded asks the LLM to disambiguate chat vs. action_request
// and to detect language, per the original's "strict JSON envelope"
// approach, adapted to the closed Kind set this repo uses instead of
// the original's SCHEDULE/SANDBOX/NONE command strings.
func (c *Classifier) classifyOpenEnded(ctx context.Context, message, lastLanguage string) (Result, error) {
	if c.llmClient == nil {
		return Result{Kind: KindChat, Confidence: 1.0, Language: lastLanguage, Text: message}, nil
	}

	prompt := fmt.Sprintf(
		"Classify the user message as chat or action_request. "+
			"Detect its language (ISO-ish code). "+
			"Return strict JSON only: {\"intent\":\"chat|action_request\",\"confidence\":0..1,\"language\":\"...\",\"goal\":\"...\"}\n"+
			"User message: %s", message)

	text, _, err := c.llmClient.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "You are a deterministic intent classifier. Return valid JSON only, no markdown."},
			{Role: "user", Content: prompt},
		},
		Deadline: time.Now().Add(15 * time.Second),
	})
	if err != nil {
		return Result{Kind: KindChat, Confidence: 0, Language: lastLanguage, Text: message}, nil
	}

	var parsed struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
		Language   string  `json:"language"`
		Goal       string  `json:"goal"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &parsed); err != nil {
		return Result{Kind: KindChat, Confidence: 0, Language: lastLanguage, Text: message}, nil
	}

	if parsed.Language == "" {
		parsed.Language = lastLanguage
	}

	if parsed.Intent == "action_request" && parsed.Confidence >= c.actionThreshold {
		return Result{Kind: KindActionRequest, Confidence: parsed.Confidence, Language: parsed.Language, Goal: parsed.Goal}, nil
	}
	return Result{Kind: KindChat, Confidence: parsed.Confidence, Language: parsed.Language, Text: message}, nil
}

// extractJSONObject mirrors schedule_helpers.py's extract_json_object:
// strip a fenced code block if present, else fall back to the first
// {...} span in the text.
func extractJSONObject(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "{}"
	}
	return text[start : end+1]
}

// recordTimezoneConversion logs a DecisionEvent per §4.6's "All
// extractions are logged ... when tz resolution occurred" rule.
func (c *Classifier) recordTimezoneConversion(ctx context.Context, userID, resolvedTZ string) {
	if c.decisionSink == nil {
		return
	}
	_ = c.decisionSink.AppendDecision(ctx, store.DecisionEvent{
		EventType: "timezone_conversion",
		UserID:    userID,
		Source:    "intent",
		Summary:   "resolved timezone for schedule extraction",
		Details:   map[string]any{"timezone": resolvedTZ},
	})
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
