// Package pruner removes every scheduled event registered under a set of
// hooks, regardless of the arguments each event was registered with.
package pruner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"localcron/internal/domain"
)

// TotalLabel names the aggregate record appended to every report.
const TotalLabel = "Total"

var ErrNothingScheduled = errors.New("no cron events scheduled")

// ScheduleStore is the storage the pruner reads from and writes back to.
type ScheduleStore interface {
	ReadAll(ctx context.Context) (domain.Schedule, error)
	WriteAll(ctx context.Context, s domain.Schedule) error
}

// Record reports how many timestamps one hook was removed from.
type Record struct {
	Hook    string
	Removed int
	Elapsed time.Duration
}

// Millis formats Elapsed as whole milliseconds, e.g. "12ms".
func (r Record) Millis() string {
	return fmt.Sprintf("%dms", r.Elapsed.Round(time.Millisecond).Milliseconds())
}

// Report lists one record per requested hook followed by the Total record.
type Report []Record

// Total returns the aggregate record, or a zero record for an empty report.
func (r Report) Total() Record {
	if len(r) == 0 {
		return Record{Hook: TotalLabel}
	}
	return r[len(r)-1]
}

type Pruner struct {
	now func() time.Time
}

type Option func(*Pruner)

// WithClock overrides the time source used for elapsed times.
func WithClock(now func() time.Time) Option {
	return func(p *Pruner) { p.now = now }
}

func New(opts ...Option) *Pruner {
	p := &Pruner{now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Prune removes hooks from s in place and returns s with the report.
func (p *Pruner) Prune(s domain.Schedule, hooks []string) (domain.Schedule, Report) {
	t0 := p.now()
	report := p.prune(s, hooks)
	return s, append(report, total(report, p.now().Sub(t0)))
}

// Run reads the schedule once, prunes hooks and writes the result back once.
// An empty schedule returns ErrNothingScheduled without writing.
func (p *Pruner) Run(ctx context.Context, st ScheduleStore, hooks []string) (Report, error) {
	s, err := st.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}
	if len(s) == 0 {
		return nil, ErrNothingScheduled
	}

	t0 := p.now()
	report := p.prune(s, hooks)
	if err := st.WriteAll(ctx, s); err != nil {
		return nil, fmt.Errorf("write schedule: %w", err)
	}
	return append(report, total(report, p.now().Sub(t0))), nil
}

func (p *Pruner) prune(s domain.Schedule, hooks []string) Report {
	report := make(Report, 0, len(hooks)+1)
	for _, hook := range hooks {
		t1 := p.now()
		removed := 0
		for _, b := range s {
			if _, ok := b[hook]; ok {
				delete(b, hook)
				removed++
			}
		}
		if removed > 0 {
			s.Compact()
		}
		report = append(report, Record{Hook: hook, Removed: removed, Elapsed: p.now().Sub(t1)})
	}
	return report
}

func total(report Report, elapsed time.Duration) Record {
	sum := 0
	for _, r := range report {
		sum += r.Removed
	}
	return Record{Hook: TotalLabel, Removed: sum, Elapsed: elapsed}
}
