package domain

import "sort"

// Event is the metadata of one registered invocation of a hook.
type Event struct {
	Schedule string `json:"schedule,omitempty"` // recurrence name or cron expression; empty for one-off events
	Interval int64  `json:"interval,omitempty"` // seconds
	Args     []any  `json:"args"`
}

// Invocations maps an invocation signature to its event.
type Invocations map[string]Event

// Bucket holds every hook registration due at one timestamp.
type Bucket map[string]Invocations

// Schedule maps a unix timestamp (next run time) to the hooks due then.
// Every timestamp present must map to a non-empty Bucket.
type Schedule map[int64]Bucket

// Timestamps returns the schedule keys in ascending order.
func (s Schedule) Timestamps() []int64 {
	ts := make([]int64, 0, len(s))
	for t := range s {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	return ts
}

// Compact deletes timestamps whose bucket is empty and returns how many it dropped.
func (s Schedule) Compact() int {
	n := 0
	for t, b := range s {
		if len(b) == 0 {
			delete(s, t)
			n++
		}
	}
	return n
}

// Len returns the total number of invocations across all timestamps.
func (s Schedule) Len() int {
	n := 0
	for _, b := range s {
		for _, inv := range b {
			n += len(inv)
		}
	}
	return n
}

// HookCounts returns, per hook, the number of timestamps it is scheduled at.
func (s Schedule) HookCounts() map[string]int {
	out := map[string]int{}
	for _, b := range s {
		for hook := range b {
			out[hook]++
		}
	}
	return out
}

// Put registers ev under hook and signature at ts.
func (s Schedule) Put(ts int64, hook, signature string, ev Event) {
	b, ok := s[ts]
	if !ok {
		b = Bucket{}
		s[ts] = b
	}
	inv, ok := b[hook]
	if !ok {
		inv = Invocations{}
		b[hook] = inv
	}
	inv[signature] = ev
}

// Clone returns a deep copy of the schedule. Argument values are shared.
func (s Schedule) Clone() Schedule {
	out := make(Schedule, len(s))
	for ts, b := range s {
		nb := make(Bucket, len(b))
		for hook, inv := range b {
			ni := make(Invocations, len(inv))
			for sig, ev := range inv {
				if ev.Args != nil {
					args := make([]any, len(ev.Args))
					copy(args, ev.Args)
					ev.Args = args
				}
				ni[sig] = ev
			}
			nb[hook] = ni
		}
		out[ts] = nb
	}
	return out
}

// Hooks returns the bucket's hook identifiers in lexical order.
func (b Bucket) Hooks() []string {
	hooks := make([]string, 0, len(b))
	for h := range b {
		hooks = append(hooks, h)
	}
	sort.Strings(hooks)
	return hooks
}

// Signatures returns the invocation signatures in lexical order.
func (inv Invocations) Signatures() []string {
	sigs := make([]string, 0, len(inv))
	for s := range inv {
		sigs = append(sigs, s)
	}
	sort.Strings(sigs)
	return sigs
}
