package scheduler

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"localcron/internal/domain"
)

// Recurrences are the named intervals understood by the host platform.
var Recurrences = map[string]time.Duration{
	"hourly":     time.Hour,
	"twicedaily": 12 * time.Hour,
	"daily":      24 * time.Hour,
	"weekly":     7 * 24 * time.Hour,
}

// ValidateCronExpression validates a cron expression
func ValidateCronExpression(expr string) error {
	_, err := cron.ParseStandard(expr)
	return err
}

// NextRunTime calculates the next run time for a cron expression
func NextRunTime(expr string, from time.Time) (time.Time, error) {
	cronSchedule, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, err
	}
	return cronSchedule.Next(from), nil
}

// ValidateRecurrence accepts a named recurrence, a cron expression or a
// descriptor such as "@every 5m". The empty string means a one-off event.
func ValidateRecurrence(recurrence string) error {
	if recurrence == "" {
		return nil
	}
	if _, ok := Recurrences[recurrence]; ok {
		return nil
	}
	if err := ValidateCronExpression(recurrence); err != nil {
		return fmt.Errorf("unknown recurrence %q: %w", recurrence, err)
	}
	return nil
}

// Signature identifies one invocation of a hook by its arguments.
func Signature(args []any) (string, error) {
	if args == nil {
		args = []any{}
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encoding args: %w", err)
	}
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:]), nil
}

// Entry describes an event to add to a schedule.
type Entry struct {
	Hook       string
	Args       []any
	Recurrence string
	At         time.Time // first run; zero means derived from Recurrence
}

// Add inserts e into s and returns the timestamp and signature it was stored under.
//
// Without an explicit At, cron recurrences start at their next fire time
// after now and everything else starts at now.
func Add(s domain.Schedule, e Entry, now time.Time) (int64, string, error) {
	hook := strings.TrimSpace(e.Hook)
	if hook == "" {
		return 0, "", fmt.Errorf("hook is required")
	}
	if err := ValidateRecurrence(e.Recurrence); err != nil {
		return 0, "", err
	}

	ev := domain.Event{Schedule: e.Recurrence, Args: e.Args}
	if ev.Args == nil {
		ev.Args = []any{}
	}

	at := e.At
	if d, ok := Recurrences[e.Recurrence]; ok {
		ev.Interval = int64(d / time.Second)
	} else if e.Recurrence != "" && at.IsZero() {
		next, err := NextRunTime(e.Recurrence, now)
		if err != nil {
			return 0, "", err
		}
		at = next
	}
	if at.IsZero() {
		at = now
	}

	sig, err := Signature(ev.Args)
	if err != nil {
		return 0, "", err
	}
	ts := at.Unix()
	s.Put(ts, hook, sig, ev)
	return ts, sig, nil
}

// ParseAt parses an RFC3339 time or a unix timestamp.
func ParseAt(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" || v == "now" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(unix, 0), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: want RFC3339 or unix seconds", v)
}
