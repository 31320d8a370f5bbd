package intent

import (
	"context"
	"testing"

	"autonomy-core/internal/llm"
	"autonomy-core/internal/store"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.Request) (string, llm.TokenUsage, error) {
	return f.response, llm.TokenUsage{}, f.err
}
func (f *fakeLLM) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamChunk, error) {
	return nil, nil
}

type fakeSink struct {
	events []store.DecisionEvent
}

func (s *fakeSink) AppendDecision(ctx context.Context, ev store.DecisionEvent) error {
	s.events = append(s.events, ev)
	return nil
}

func TestClassify_ScheduleQueryFastPath(t *testing.T) {
	c := New(nil, nil, 0)
	res, err := c.Classify(context.Background(), "u1", "list my reminders", "UTC", "en")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if res.Kind != KindScheduleQuery {
		t.Errorf("got kind %v, want schedule_query", res.Kind)
	}
}

func TestClassify_IntervalExtraction(t *testing.T) {
	c := New(nil, nil, 0)
	res, err := c.Classify(context.Background(), "u1", "every 5 minutes remind me to stretch", "UTC", "en")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if res.Kind != KindScheduleAdd {
		t.Fatalf("got kind %v, want schedule_add", res.Kind)
	}
	if res.TaskDraft.Trigger.IntervalSeconds != 300 {
		t.Errorf("got interval %d, want 300", res.TaskDraft.Trigger.IntervalSeconds)
	}
}

func TestClassify_DailyAtExtraction(t *testing.T) {
	c := New(nil, nil, 0)
	res, err := c.Classify(context.Background(), "u1", "every day at 9:30am remind me to check email", "America/New_York", "en")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if res.TaskDraft.Trigger.DailyAt != "9:30" {
		t.Errorf("got daily_at %q, want 9:30", res.TaskDraft.Trigger.DailyAt)
	}
	if res.TaskDraft.Trigger.Timezone != "America/New_York" {
		t.Errorf("got timezone %q", res.TaskDraft.Trigger.Timezone)
	}
}

func TestClassify_RelativeOneShot(t *testing.T) {
	c := New(nil, nil, 0)
	res, err := c.Classify(context.Background(), "u1", "remind me in 20 minutes to call back", "UTC", "en")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if res.TaskDraft.Kind != store.TaskKindOneShot {
		t.Errorf("got kind %v, want one_shot", res.TaskDraft.Kind)
	}
	if res.TaskDraft.Trigger.AtTimestamp == nil {
		t.Fatal("expected at_timestamp to be set")
	}
}

func TestClassify_WeekdayPattern(t *testing.T) {
	c := New(nil, nil, 0)
	res, err := c.Classify(context.Background(), "u1", "every friday at 5pm send a report", "UTC", "en")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if res.TaskDraft.Trigger.CronExpr != "0 17 * * 5" {
		t.Errorf("got cron %q, want 0 17 * * 5", res.TaskDraft.Trigger.CronExpr)
	}
}

func TestClassify_ThresholdPattern(t *testing.T) {
	c := New(nil, nil, 0)
	res, err := c.Classify(context.Background(), "u1", "when btc drops 10% from baseline notify me", "UTC", "en")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if res.TaskDraft.Kind != store.TaskKindWorkflow {
		t.Fatalf("got kind %v, want workflow", res.TaskDraft.Kind)
	}
	if len(res.TaskDraft.Steps) != 2 {
		t.Errorf("got %d steps, want 2", len(res.TaskDraft.Steps))
	}
}

func TestClassify_TimezoneConversionLoggedOnWeekdayExtraction(t *testing.T) {
	sink := &fakeSink{}
	c := New(nil, sink, 0)
	_, err := c.Classify(context.Background(), "u1", "every monday at 8am standup", "Europe/London", "en")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if len(sink.events) != 1 || sink.events[0].EventType != "timezone_conversion" {
		t.Fatalf("expected a timezone_conversion event, got %+v", sink.events)
	}
}

func TestClassify_FallsBackToLLMForActionRequest(t *testing.T) {
	fake := &fakeLLM{response: `{"intent":"action_request","confidence":0.9,"language":"en","goal":"restart the server"}`}
	c := New(fake, nil, 0.8)
	res, err := c.Classify(context.Background(), "u1", "please restart the server now", "UTC", "en")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if res.Kind != KindActionRequest {
		t.Errorf("got kind %v, want action_request", res.Kind)
	}
}

func TestClassify_BelowThresholdTreatedAsChat(t *testing.T) {
	fake := &fakeLLM{response: `{"intent":"action_request","confidence":0.5,"language":"en","goal":"maybe restart"}`}
	c := New(fake, nil, 0.8)
	res, err := c.Classify(context.Background(), "u1", "should we maybe restart?", "UTC", "en")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if res.Kind != KindChat {
		t.Errorf("got kind %v, want chat below threshold", res.Kind)
	}
}

func TestClassify_NoLLMConfiguredDefaultsToChat(t *testing.T) {
	c := New(nil, nil, 0)
	res, err := c.Classify(context.Background(), "u1", "how's it going?", "UTC", "en")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if res.Kind != KindChat {
		t.Errorf("got kind %v, want chat", res.Kind)
	}
}
