// Package clock implements the Clock & Timezone Service: a monotonic
// time source plus next_fire computation for interval, cron, and
// one-shot triggers. Time itself sits behind a narrow interface so
// next_fire computation can be exercised by deterministic tests.
package clock

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"autonomy-core/internal/apperr"
	"autonomy-core/internal/store"
)

// Clock exposes the three operations named in §4.1.
type Clock interface {
	NowUTC() time.Time
	NowIn(tz string) (time.Time, error)
	NextFire(trigger store.Trigger, after time.Time) (time.Time, bool, error)
}

// System is the production Clock, backed by the real wall clock.
type System struct {
	parser cron.Parser
}

// New builds a System clock using the standard 5-field cron parser
// (minute hour dom month dow), matching robfig/cron's default field
// set.
func New() *System {
	return &System{parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)}
}

func (c *System) NowUTC() time.Time { return time.Now().UTC() }

func (c *System) NowIn(tz string) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, apperr.Domain("", "unknown timezone", fmt.Sprintf("load location %q: %v", tz, err), err)
	}
	return time.Now().In(loc), nil
}

// NextFire computes the next instant strictly after `after` at which
// trigger fires. The bool return is false ("none" in §4.1's terms) when
// the trigger can never fire again, meaning the owning task should be
// disabled.
func (c *System) NextFire(trigger store.Trigger, after time.Time) (time.Time, bool, error) {
	switch {
	case trigger.IntervalSeconds > 0:
		return nextInterval(trigger, after), true, nil

	case trigger.DailyAt != "":
		expr, err := dailyAtToCron(trigger.DailyAt)
		if err != nil {
			return time.Time{}, false, err
		}
		return c.nextCron(expr, trigger.Timezone, after)

	case trigger.CronExpr != "":
		return c.nextCron(trigger.CronExpr, trigger.Timezone, after)

	case trigger.AtTimestamp != nil:
		if trigger.AtTimestamp.After(after) {
			return *trigger.AtTimestamp, true, nil
		}
		return time.Time{}, false, nil

	default:
		return time.Time{}, false, apperr.Domain("", "malformed trigger", "trigger has no recognized variant set", nil)
	}
}

// nextInterval computes the smallest A + k*S strictly greater than
// after, for anchor A = after's own instant when no better anchor is
// known. Anchoring to `after` itself (rather than task creation time)
// keeps the arithmetic branch-free; callers that need a fixed anchor
// pass their own `after` on each call, which is how the scheduler uses
// this (it calls with the task's last_run_at, or with the current time
// when the task has not run yet).
func nextInterval(trigger store.Trigger, after time.Time) time.Time {
	s := time.Duration(trigger.IntervalSeconds) * time.Second
	if s <= 0 {
		s = time.Second
	}
	return after.Add(s)
}

func (c *System) nextCron(expr, tz string, after time.Time) (time.Time, bool, error) {
	loc := time.UTC
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, false, apperr.Domain("", "unknown timezone", fmt.Sprintf("load location %q: %v", tz, err), err)
		}
		loc = l
	}
	schedule, err := c.parser.Parse(expr)
	if err != nil {
		return time.Time{}, false, apperr.Domain("", "malformed cron expression", fmt.Sprintf("parse cron %q: %v", expr, err), err)
	}
	// schedule.Next operates in the Location of the time it is given, and
	// an ambiguous fall-back time resolves to its earlier occurrence.
	next := schedule.Next(after.In(loc))
	if next.IsZero() {
		return time.Time{}, false, nil
	}
	// schedule.Next passes over a wall time inside a spring-forward gap.
	// Evaluating the schedule on a zone-free copy of the wall clock finds
	// it; it then fires at the same offset past the start of the gap.
	a := after.In(loc)
	wall := schedule.Next(time.Date(a.Year(), a.Month(), a.Day(), a.Hour(), a.Minute(), a.Second(), a.Nanosecond(), time.UTC))
	if !wall.IsZero() {
		local := time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), 0, 0, loc)
		if local.Hour() != wall.Hour() || local.Minute() != wall.Minute() {
			shifted := local.Add(wall.Sub(time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), 0, 0, time.UTC)))
			if shifted.After(after) && shifted.Before(next) {
				next = shifted
			}
		}
	}
	return next, true, nil
}

// dailyAtToCron turns an "HH:MM" string into the 5-field cron
// expression "MM HH * * *", per §4.1's "at=HH:MM treated as a daily
// cron" rule.
func dailyAtToCron(hhmm string) (string, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &hh, &mm); err != nil {
		return "", apperr.Domain("", "malformed daily_at time", fmt.Sprintf("parse %q: %v", hhmm, err), err)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return "", apperr.Domain("", "daily_at out of range", fmt.Sprintf("%q out of range", hhmm), nil)
	}
	return fmt.Sprintf("%d %d * * *", mm, hh), nil
}
