package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/finopscloud/sla-engine/pkg/sla"
	"github.com/finopscloud/sla-engine/pkg/task"
)

// NewClassifyCommand evaluates one subtask's SLA state at a given
// instant, using the same classifier as the running engine.
func NewClassifyCommand() *cobra.Command {
	var (
		startTime     string
		status        string
		at            string
		warningWindow time.Duration
		outputFormat  string
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a subtask against its start time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := task.ParseStatus(status)
			if err != nil {
				return err
			}

			now := time.Now()
			if at != "" {
				now, err = time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at timestamp %q: %w", at, err)
				}
			}

			classifier := sla.NewClassifier(warningWindow)
			c := classifier.Classify(startTime, st, now)

			if outputFormat == "json" {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(map[string]any{
					"kind":           c.Kind,
					"offsetMinutes":  c.OffsetMinutes,
					"timeSinceStart": classifier.TimeSinceStart(startTime, now),
				})
			}

			switch c.Kind {
			case sla.KindOverdue:
				fmt.Fprintf(cmd.OutOrStdout(), "overdue by %d minute(s)\n", c.OffsetMinutes)
			case sla.KindWarning:
				fmt.Fprintf(cmd.OutOrStdout(), "warning, %d minute(s) remaining\n", c.OffsetMinutes)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "none")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&startTime, "start", "", "Configured start time, HH:MM")
	cmd.Flags().StringVar(&status, "status", "pending", "Current subtask status")
	cmd.Flags().StringVar(&at, "at", "", "Evaluation instant (RFC3339, default now)")
	cmd.Flags().DurationVar(&warningWindow, "warning-window", 0, "Warning window before start (default 15m)")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format: json")
	_ = cmd.MarkFlagRequired("start")

	return cmd
}
