package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"localcron/internal/domain"
	"localcron/internal/pruner"
)

func warning(w io.Writer, msg string) { _, _ = fmt.Fprintf(w, "Warning: %s\n", msg) }
func success(w io.Writer, msg string) { _, _ = fmt.Fprintf(w, "Success: %s\n", msg) }

func writeReport(out io.Writer, report pruner.Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "name\tremoved\ttime\n")
	for _, r := range report {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", r.Hook, r.Removed, r.Millis())
	}
	return w.Flush()
}

func writeSchedule(out io.Writer, s domain.Schedule) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "hook\tnext_run\trecurrence\targs\n")
	for _, ts := range s.Timestamps() {
		b := s[ts]
		next := time.Unix(ts, 0).UTC().Format(time.RFC3339)
		for _, hook := range b.Hooks() {
			inv := b[hook]
			for _, sig := range inv.Signatures() {
				ev := inv[sig]
				recurrence := ev.Schedule
				if recurrence == "" {
					recurrence = "once"
				}
				args, err := json.Marshal(ev.Args)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", hook, next, recurrence, args)
			}
		}
	}
	return w.Flush()
}
