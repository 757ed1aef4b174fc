package store

import (
	"context"
	"sync"

	"localcron/internal/domain"
)

// Memory is a process-local Store. Reads and writes copy the schedule, so
// callers see snapshot semantics like the persistent backends.
type Memory struct {
	mu       sync.Mutex
	schedule domain.Schedule
	reads    int
	writes   int
}

func NewMemory(s domain.Schedule) *Memory {
	if s == nil {
		s = domain.Schedule{}
	}
	return &Memory{schedule: s.Clone()}
}

func (m *Memory) ReadAll(ctx context.Context) (domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	return m.schedule.Clone(), nil
}

func (m *Memory) WriteAll(ctx context.Context, s domain.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.schedule = s.Clone()
	return nil
}

func (m *Memory) Close() error { return nil }

// Snapshot returns a copy of the stored schedule without counting a read.
func (m *Memory) Snapshot() domain.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schedule.Clone()
}

// Calls returns how many reads and writes the store has served.
func (m *Memory) Calls() (reads, writes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads, m.writes
}
