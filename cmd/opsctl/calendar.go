package main

import (
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apps/calendar"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/identity"
	"github.com/spf13/cobra"
)

func newSyncCalendarCmd(rt *cliEnv) *cobra.Command {
	var userID, calendarID, from, to string

	cmd := &cobra.Command{
		Use:   "sync-calendar",
		Short: "Pull remote calendar events into local appointments",
		Long: `Pull events from the user's Google Calendar into local appointments.

The user must have connected their calendar through the API first.
Without --from/--to the server's default window is used.

Examples:
  opsctl sync-calendar
  opsctl sync-calendar --user alice --calendar team@group.calendar.google.com
  opsctl sync-calendar --from 2026-01-01 --to 2026-03-31`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := calendar.SyncOptions{CalendarID: calendarID}
			var err error
			if opts.FromDate, err = parseDateFlag("from", from); err != nil {
				return err
			}
			if opts.ToDate, err = parseDateFlag("to", to); err != nil {
				return err
			}

			engine := calendar.NewEngine(rt.db, rt.tokens, calendar.GoogleClientFactory, rt.history, calendar.EngineConfig{
				TimeZone:   rt.cfg.CalendarTimeZone,
				WindowDays: rt.cfg.SyncWindowDays,
			})
			res, err := engine.SyncEvents(cmd.Context(), userID, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d events: %d imported, %d updated, %d skipped\n",
				res.Total, res.Imported, res.Updated, res.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", identity.DefaultUserID, "User whose calendar is synced")
	cmd.Flags().StringVar(&calendarID, "calendar", "", "Calendar id (default: primary)")
	cmd.Flags().StringVar(&from, "from", "", "Window start, YYYY-MM-DD or RFC3339")
	cmd.Flags().StringVar(&to, "to", "", "Window end, YYYY-MM-DD or RFC3339")
	return cmd
}

// parseDateFlag returns nil for an empty value.
func parseDateFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid --%s %q: expected YYYY-MM-DD or RFC3339", name, value)
}
