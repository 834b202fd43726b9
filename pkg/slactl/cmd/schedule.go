package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/finopscloud/sla-engine/pkg/schedule"
	"github.com/finopscloud/sla-engine/pkg/task"
)

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

func parseWeekdays(raw []string) ([]time.Weekday, error) {
	var out []time.Weekday
	for _, r := range raw {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(r))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", r)
		}
		out = append(out, wd)
	}
	return out, nil
}

// NewScheduleCommand answers whether a recurrence is active on a date.
func NewScheduleCommand() *cobra.Command {
	var (
		kind          string
		weekdays      []string
		effectiveFrom string
		date          string
		dayOfMonth    bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Check whether a recurrence is active on a date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := time.Parse("2006-01-02", effectiveFrom)
			if err != nil {
				return fmt.Errorf("invalid --effective-from date %q: %w", effectiveFrom, err)
			}

			on := time.Now()
			if date != "" {
				on, err = time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("invalid --date %q: %w", date, err)
				}
			}

			wds, err := parseWeekdays(weekdays)
			if err != nil {
				return err
			}

			rec := task.Recurrence{
				Kind:          task.RecurrenceKind(kind),
				Weekdays:      wds,
				EffectiveFrom: from,
			}
			if err := rec.Validate(); err != nil {
				return err
			}

			ev := schedule.Evaluator{MonthlyDayOfMonth: dayOfMonth}
			t := task.Task{Recurrence: rec, Active: true}
			if ev.IsActiveOn(&t, on) {
				fmt.Fprintf(cmd.OutOrStdout(), "active on %s\n", on.Format("2006-01-02"))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "not active on %s\n", on.Format("2006-01-02"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "daily", "Recurrence kind: daily, weekly, monthly")
	cmd.Flags().StringSliceVar(&weekdays, "weekdays", nil, "Weekdays for weekly recurrence (e.g. mon,thu)")
	cmd.Flags().StringVar(&effectiveFrom, "effective-from", "", "Effective-from date, YYYY-MM-DD")
	cmd.Flags().StringVar(&date, "date", "", "Date to check, YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&dayOfMonth, "monthly-day-of-month", false, "Use day-of-month matching for monthly recurrence")
	_ = cmd.MarkFlagRequired("effective-from")

	return cmd
}
