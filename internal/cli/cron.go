package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"localcron/internal/pruner"
	"localcron/internal/scheduler"
)

func newCronCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Inspect and prune scheduled cron events",
	}
	cmd.AddCommand(newKillallCmd(app), newListCmd(app), newScheduleCmd(app))
	return cmd
}

func newKillallCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "killall [<hook>...]",
		Short:   "Remove all scheduled events with the given hook names, regardless of arguments",
		Example: `  localcron cron killall deliver_webhook_async some_other_hook`,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, hooks []string) error {
			ctx := cmd.Context()
			log := app.log.With().Str("run_id", uuid.NewString()).Logger()

			st, err := app.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			report, err := pruner.New(pruner.WithClock(app.Now)).Run(ctx, st, hooks)
			if errors.Is(err, pruner.ErrNothingScheduled) {
				warning(cmd.ErrOrStderr(), "There were no cron events on the site, exiting...")
				return nil
			}
			if err != nil {
				return err
			}

			for _, r := range report {
				log.Debug().Str("hook", r.Hook).Int("removed", r.Removed).Dur("elapsed", r.Elapsed).Msg("pruned hook")
			}
			log.Info().Int("hooks", len(hooks)).Int("removed", report.Total().Removed).Msg("cron schedule pruned")

			if err := writeReport(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "All good :)")
			return nil
		},
	}
}

func newListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scheduled cron events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := app.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			s, err := st.ReadAll(ctx)
			if err != nil {
				return fmt.Errorf("reading schedule: %w", err)
			}
			if len(s) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No cron events scheduled.")
				return nil
			}
			return writeSchedule(cmd.OutOrStdout(), s)
		},
	}
}

func newScheduleCmd(app *App) *cobra.Command {
	var at, recurrence string
	cmd := &cobra.Command{
		Use:   "schedule <hook> [<arg>...]",
		Short: "Schedule a cron event",
		Example: `  localcron cron schedule cleanup_sessions --recurrence daily
  localcron cron schedule send_digest 42 --at 2024-01-01T09:00:00Z
  localcron cron schedule refresh_feeds --recurrence "*/15 * * * *"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := scheduler.ParseAt(at)
			if err != nil {
				return err
			}
			hookArgs := make([]any, 0, len(args)-1)
			for _, a := range args[1:] {
				hookArgs = append(hookArgs, a)
			}

			ctx := cmd.Context()
			st, err := app.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			s, err := st.ReadAll(ctx)
			if err != nil {
				return fmt.Errorf("reading schedule: %w", err)
			}
			ts, sig, err := scheduler.Add(s, scheduler.Entry{
				Hook:       args[0],
				Args:       hookArgs,
				Recurrence: recurrence,
				At:         start,
			}, app.Now())
			if err != nil {
				return err
			}
			if err := st.WriteAll(ctx, s); err != nil {
				return fmt.Errorf("writing schedule: %w", err)
			}

			app.log.Info().Str("hook", args[0]).Str("signature", sig).Int64("timestamp", ts).Msg("cron event scheduled")
			success(cmd.OutOrStdout(), fmt.Sprintf("Scheduled event with hook '%s' for %s.",
				args[0], time.Unix(ts, 0).UTC().Format(time.RFC3339)))
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "first run time, RFC3339 or unix seconds (default now)")
	cmd.Flags().StringVar(&recurrence, "recurrence", "", "hourly, twicedaily, daily, weekly or a cron expression")
	return cmd
}
