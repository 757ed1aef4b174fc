package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"localcron/internal/config"
	"localcron/internal/domain"
	"localcron/internal/store"
)

var fixedNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type result struct {
	code   int
	stdout string
	stderr string
}

func run(t *testing.T, st store.Store, args ...string) result {
	t.Helper()
	app := &App{
		OpenStore: func(ctx context.Context, cfg config.Store, log zerolog.Logger) (store.Store, error) {
			return st, nil
		},
		Now: func() time.Time { return fixedNow },
	}
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), app, args, &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func scenarioSchedule() domain.Schedule {
	s := domain.Schedule{}
	s.Put(100, "hookA", "sig", domain.Event{Args: []any{}})
	s.Put(200, "hookA", "sig", domain.Event{Args: []any{}})
	s.Put(200, "hookB", "sig", domain.Event{Args: []any{}})
	return s
}

// tableRows splits tabwriter output into whitespace-separated cells.
func tableRows(out string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.HasPrefix(line, "Success:") {
			continue
		}
		rows = append(rows, strings.Fields(line))
	}
	return rows
}

func TestKillallRemovesHooks(t *testing.T) {
	mem := store.NewMemory(scenarioSchedule())
	res := run(t, mem, "cron", "killall", "hookA")
	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", res.code, res.stderr)
	}

	want := [][]string{
		{"name", "removed", "time"},
		{"hookA", "2", "0ms"},
		{"Total", "2", "0ms"},
	}
	if got := tableRows(res.stdout); !reflect.DeepEqual(got, want) {
		t.Errorf("table = %v, want %v", got, want)
	}
	if !strings.HasSuffix(res.stdout, "Success: All good :)\n") {
		t.Errorf("stdout missing success notice: %q", res.stdout)
	}

	s := mem.Snapshot()
	if ts := s.Timestamps(); !reflect.DeepEqual(ts, []int64{200}) {
		t.Errorf("timestamps = %v, want [200]", ts)
	}
	if _, ok := s[200]["hookB"]; !ok {
		t.Error("hookB should survive")
	}
	reads, writes := mem.Calls()
	if reads != 1 || writes != 1 {
		t.Errorf("reads = %d, writes = %d", reads, writes)
	}
}

func TestKillallSeveralHooks(t *testing.T) {
	mem := store.NewMemory(scenarioSchedule())
	res := run(t, mem, "cron", "killall", "hookA", "hookB", "hookC")
	if res.code != 0 {
		t.Fatalf("exit code = %d", res.code)
	}
	want := [][]string{
		{"name", "removed", "time"},
		{"hookA", "2", "0ms"},
		{"hookB", "1", "0ms"},
		{"hookC", "0", "0ms"},
		{"Total", "3", "0ms"},
	}
	if got := tableRows(res.stdout); !reflect.DeepEqual(got, want) {
		t.Errorf("table = %v, want %v", got, want)
	}
	if len(mem.Snapshot()) != 0 {
		t.Errorf("schedule = %v, want empty", mem.Snapshot())
	}
}

func TestKillallEmptySchedule(t *testing.T) {
	mem := store.NewMemory(nil)
	res := run(t, mem, "cron", "killall", "hookA")
	if res.code != 0 {
		t.Fatalf("exit code = %d, want 0", res.code)
	}
	if !strings.Contains(res.stderr, "Warning: There were no cron events on the site, exiting...") {
		t.Errorf("stderr = %q", res.stderr)
	}
	if res.stdout != "" {
		t.Errorf("stdout = %q, want nothing", res.stdout)
	}
	if _, writes := mem.Calls(); writes != 0 {
		t.Errorf("writes = %d, want 0", writes)
	}
}

func TestKillallNoHooks(t *testing.T) {
	mem := store.NewMemory(scenarioSchedule())
	res := run(t, mem, "cron", "killall")
	if res.code != 0 {
		t.Fatalf("exit code = %d", res.code)
	}
	want := [][]string{{"name", "removed", "time"}, {"Total", "0", "0ms"}}
	if got := tableRows(res.stdout); !reflect.DeepEqual(got, want) {
		t.Errorf("table = %v, want %v", got, want)
	}
	if _, writes := mem.Calls(); writes != 1 {
		t.Errorf("writes = %d, want 1", writes)
	}
}

type failingStore struct {
	store.Store
	err error
}

func (f failingStore) WriteAll(ctx context.Context, s domain.Schedule) error { return f.err }

func TestKillallWriteFailureExitsNonZero(t *testing.T) {
	st := failingStore{Store: store.NewMemory(scenarioSchedule()), err: errors.New("disk full")}
	res := run(t, st, "cron", "killall", "hookA")
	if res.code != 1 {
		t.Fatalf("exit code = %d, want 1", res.code)
	}
	if !strings.Contains(res.stderr, "Error: write schedule: disk full") {
		t.Errorf("stderr = %q", res.stderr)
	}
	if strings.Contains(res.stdout, "Success") {
		t.Errorf("stdout should not report success: %q", res.stdout)
	}
}

func TestOpenStoreFailure(t *testing.T) {
	app := &App{
		OpenStore: func(ctx context.Context, cfg config.Store, log zerolog.Logger) (store.Store, error) {
			return nil, errors.New("connection refused")
		},
	}
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), app, []string{"cron", "killall", "x"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "opening sqlite store: connection refused") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestListEmpty(t *testing.T) {
	res := run(t, store.NewMemory(nil), "cron", "list")
	if res.code != 0 || res.stdout != "No cron events scheduled.\n" {
		t.Errorf("result = %+v", res)
	}
}

func TestListSorted(t *testing.T) {
	s := domain.Schedule{}
	s.Put(1704114000, "zeta", "sig", domain.Event{Args: []any{}})
	s.Put(1704110400, "beta", "sig", domain.Event{Schedule: "hourly", Interval: 3600, Args: []any{"x"}})
	s.Put(1704110400, "alpha", "sig", domain.Event{Args: []any{}})

	res := run(t, store.NewMemory(s), "cron", "list")
	if res.code != 0 {
		t.Fatalf("exit code = %d", res.code)
	}
	want := [][]string{
		{"hook", "next_run", "recurrence", "args"},
		{"alpha", "2024-01-01T12:00:00Z", "once", "[]"},
		{"beta", "2024-01-01T12:00:00Z", "hourly", `["x"]`},
		{"zeta", "2024-01-01T13:00:00Z", "once", "[]"},
	}
	if got := tableRows(res.stdout); !reflect.DeepEqual(got, want) {
		t.Errorf("table = %v, want %v", got, want)
	}
}

func TestScheduleThenKillall(t *testing.T) {
	mem := store.NewMemory(nil)

	res := run(t, mem, "cron", "schedule", "send_digest", "42", "--recurrence", "daily")
	if res.code != 0 {
		t.Fatalf("schedule exit code = %d, stderr = %q", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, "Scheduled event with hook 'send_digest' for 2024-01-01T12:00:00Z.") {
		t.Errorf("stdout = %q", res.stdout)
	}
	res = run(t, mem, "cron", "schedule", "send_digest", "43", "--at", "1704114000")
	if res.code != 0 {
		t.Fatalf("schedule exit code = %d, stderr = %q", res.code, res.stderr)
	}
	res = run(t, mem, "cron", "schedule", "keep_me", "--recurrence", "*/30 * * * *")
	if res.code != 0 {
		t.Fatalf("schedule exit code = %d, stderr = %q", res.code, res.stderr)
	}

	s := mem.Snapshot()
	ev := s[fixedNow.Unix()]["send_digest"]
	if len(ev) != 1 {
		t.Fatalf("send_digest at now = %v", ev)
	}
	if _, ok := s[fixedNow.Add(30*time.Minute).Unix()]["keep_me"]; !ok {
		t.Errorf("keep_me not at next cron fire: %v", s)
	}

	res = run(t, mem, "cron", "killall", "send_digest")
	if got := tableRows(res.stdout)[1]; !reflect.DeepEqual(got, []string{"send_digest", "2", "0ms"}) {
		t.Errorf("row = %v", got)
	}
	if counts := mem.Snapshot().HookCounts(); !reflect.DeepEqual(counts, map[string]int{"keep_me": 1}) {
		t.Errorf("HookCounts() = %v", counts)
	}
}

func TestScheduleRejectsBadInput(t *testing.T) {
	mem := store.NewMemory(nil)
	if res := run(t, mem, "cron", "schedule", "x", "--recurrence", "monthly-ish"); res.code != 1 {
		t.Errorf("bad recurrence exit = %d", res.code)
	}
	if res := run(t, mem, "cron", "schedule", "x", "--at", "soon"); res.code != 1 {
		t.Errorf("bad --at exit = %d", res.code)
	}
	if res := run(t, mem, "cron", "schedule"); res.code != 1 {
		t.Errorf("missing hook exit = %d", res.code)
	}
	if _, writes := mem.Calls(); writes != 0 {
		t.Errorf("writes = %d after rejected input", writes)
	}
}

func TestGlobalFlagsReachStore(t *testing.T) {
	var got config.Store
	app := &App{
		OpenStore: func(ctx context.Context, cfg config.Store, log zerolog.Logger) (store.Store, error) {
			got = cfg
			return store.NewMemory(nil), nil
		},
	}
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), app, []string{"--store", "file", "--path", "/tmp/cron.json", "cron", "list"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr.String())
	}
	if got.Driver != "file" || got.Path != "/tmp/cron.json" {
		t.Errorf("store config = %+v", got)
	}
}

func TestConfigFileAndValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "localcron.yaml")
	if err := os.WriteFile(path, []byte("store:\n  driver: cassandra\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := run(t, store.NewMemory(nil), "--config", path, "cron", "list")
	if res.code != 1 || !strings.Contains(res.stderr, "unknown store driver") {
		t.Errorf("result = %+v", res)
	}
}

func TestJSONLogsGoToStderr(t *testing.T) {
	mem := store.NewMemory(scenarioSchedule())
	res := run(t, mem, "--log-level", "info", "--log-format", "json", "cron", "killall", "hookA")
	if res.code != 0 {
		t.Fatalf("exit code = %d", res.code)
	}
	if !strings.Contains(res.stderr, `"run_id"`) || !strings.Contains(res.stderr, "cron schedule pruned") {
		t.Errorf("stderr = %q", res.stderr)
	}
	if strings.Contains(res.stdout, "run_id") {
		t.Errorf("logs leaked into stdout: %q", res.stdout)
	}
}
