package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"autonomy-core/internal/store"
)

var (
	intervalPattern = regexp.MustCompile(`(?i)\bevery\s+(\d+)\s*(minute|minutes|min|mins|hour|hours|hr|hrs|day|days)\b`)
	dailyAtPattern  = regexp.MustCompile(`(?i)\bevery\s+day\s+at\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?(?:\s+([A-Za-z_]+/[A-Za-z_]+))?\b`)
	relativePattern = regexp.MustCompile(`(?i)\bin\s+(\d+)\s*(minute|minutes|min|mins|hour|hours|hr|hrs|day|days)\b`)
	weekdayPattern  = regexp.MustCompile(`(?i)\bevery\s+(mon|monday|tue|tuesday|wed|wednesday|thu|thursday|fri|friday|sat|saturday|sun|sunday)\b`)
	thresholdPattern = regexp.MustCompile(`(?i)\bwhen\s+(\S+)\s+(rises|drops)\s+(\d+(?:\.\d+)?)\s*%\s*(?:from\s+(current|baseline))?\b`)
	clockPattern    = regexp.MustCompile(`(?i)\bat\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
)

var weekdayIndex = map[string]int{
	"sun": 0, "sunday": 0,
	"mon": 1, "monday": 1,
	"tue": 2, "tuesday": 2,
	"wed": 3, "wednesday": 3,
	"thu": 4, "thursday": 4,
	"fri": 5, "friday": 5,
	"sat": 6, "saturday": 6,
}

// extractScheduleDraft implements §4.6's "Schedule extraction
// recognizes interval patterns, daily-at patterns, relative one-shots,
// weekday patterns, and threshold automations" rule. Returns
// (draft, timezoneResolved, matched).
func (c *Classifier) extractScheduleDraft(ctx context.Context, userID, message, userTimezone string) (*store.Task, bool, bool) {
	now := time.Now().UTC()

	if m := dailyAtPattern.FindStringSubmatch(message); m != nil {
		hour, minute, ok := normalizeClock(m[1], m[2], m[3])
		if !ok {
			return nil, false, true
		}
		tz := m[4]
		if tz == "" {
			tz = userTimezone
		}
		if tz == "" {
			tz = "UTC"
		}
		resolved := tz != ""
		if resolved {
			c.recordTimezoneConversion(ctx, userID, tz)
		}
		return &store.Task{
			ID:        uuid.NewString(),
			OwnerUser: userID,
			Kind:      store.TaskKindReminder,
			Trigger:   store.Trigger{DailyAt: formatHHMM(hour, minute), Timezone: tz},
			Enabled:   true,
			Payload:   map[string]any{"message": message},
			CreatedAt: now,
			UpdatedAt: now,
		}, resolved, true
	}

	if m := intervalPattern.FindStringSubmatch(message); m != nil {
		n := atoiOrZero(m[1])
		seconds := unitToSeconds(m[2]) * int64(n)
		if seconds <= 0 {
			return nil, false, true
		}
		return &store.Task{
			ID:        uuid.NewString(),
			OwnerUser: userID,
			Kind:      store.TaskKindInterval,
			Trigger:   store.Trigger{IntervalSeconds: seconds},
			Enabled:   true,
			Payload:   map[string]any{"message": message},
			CreatedAt: now,
			UpdatedAt: now,
		}, true, true
	}

	if m := relativePattern.FindStringSubmatch(message); m != nil {
		n := atoiOrZero(m[1])
		d := unitToSeconds(m[2]) * int64(n)
		if d <= 0 {
			return nil, false, true
		}
		at := now.Add(time.Duration(d) * time.Second)
		return &store.Task{
			ID:        uuid.NewString(),
			OwnerUser: userID,
			Kind:      store.TaskKindOneShot,
			Trigger:   store.Trigger{AtTimestamp: &at},
			Enabled:   true,
			Payload:   map[string]any{"message": message},
			CreatedAt: now,
			UpdatedAt: now,
		}, true, true
	}

	if m := weekdayPattern.FindStringSubmatch(message); m != nil {
		dow, ok := weekdayIndex[strings.ToLower(m[1])]
		if !ok {
			return nil, false, true
		}
		hour, minute := 9, 0
		if cm := clockPattern.FindStringSubmatch(message); cm != nil {
			if h, mm, ok := normalizeClock(cm[1], cm[2], cm[3]); ok {
				hour, minute = h, mm
			}
		}
		tz := userTimezone
		if tz == "" {
			tz = "UTC"
		}
		c.recordTimezoneConversion(ctx, userID, tz)
		cronExpr := cronForWeekday(dow, hour, minute)
		return &store.Task{
			ID:        uuid.NewString(),
			OwnerUser: userID,
			Kind:      store.TaskKindCron,
			Trigger:   store.Trigger{CronExpr: cronExpr, Timezone: tz},
			Enabled:   true,
			Payload:   map[string]any{"message": message},
			CreatedAt: now,
			UpdatedAt: now,
		}, true, true
	}

	if m := thresholdPattern.FindStringSubmatch(message); m != nil {
		subject := m[1]
		direction := strings.ToLower(m[2])
		pct, _ := strconv.ParseFloat(m[3], 64)
		baseline := m[4]
		if baseline == "" {
			baseline = "current"
		}
		expr := thresholdExpr(direction, pct)
		return &store.Task{
			ID:        uuid.NewString(),
			OwnerUser: userID,
			Kind:      store.TaskKindWorkflow,
			Trigger:   store.Trigger{IntervalSeconds: 300},
			Enabled:   true,
			Payload:   map[string]any{"subject": subject, "message": message},
			Steps: []store.WorkflowStep{
				{Action: store.StepFetch, Target: subject},
				{Action: store.StepNotify, When: expr, Message: "threshold triggered: " + message},
			},
			State:     map[string]any{"baseline_mode": baseline},
			CreatedAt: now,
			UpdatedAt: now,
		}, true, true
	}

	return nil, false, false
}

func normalizeClock(hourStr, minuteStr, meridian string) (int, int, bool) {
	hour := atoiOrZero(hourStr)
	minute := 0
	if minuteStr != "" {
		minute = atoiOrZero(minuteStr)
	}
	switch strings.ToLower(meridian) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

func formatHHMM(hour, minute int) string {
	return strconv.Itoa(hour) + ":" + fmtTwoDigit(minute)
}

func fmtTwoDigit(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func unitToSeconds(unit string) int64 {
	switch strings.ToLower(unit) {
	case "minute", "minutes", "min", "mins":
		return 60
	case "hour", "hours", "hr", "hrs":
		return 3600
	default:
		return 86400
	}
}

// cronForWeekday builds a 5-field cron expression for a specific
// weekday and time of day.
func cronForWeekday(dow, hour, minute int) string {
	return strconv.Itoa(minute) + " " + strconv.Itoa(hour) + " * * " + strconv.Itoa(dow)
}

// thresholdExpr builds a `when` guard for the closed expression
// language over the fetched source's percentage change fields.
func thresholdExpr(direction string, pct float64) string {
	op := ">="
	if direction == "drops" {
		op = "<="
		pct = -pct
	}
	return "source.change_pct " + op + " " + strconv.FormatFloat(pct, 'g', -1, 64)
}
