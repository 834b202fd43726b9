// Package cmd implements the slactl command tree: offline helpers for
// inspecting schedule activity and SLA classification the way the
// running engine would evaluate them.
package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

type Config struct {
	OutputWriter io.Writer
}

func DefaultConfig() Config {
	return Config{OutputWriter: os.Stdout}
}

func NewRootCommand(cfg Config) *cobra.Command {
	if cfg.OutputWriter == nil {
		cfg.OutputWriter = os.Stdout
	}

	root := &cobra.Command{
		Use:           "slactl",
		Short:         "SLA engine CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(cfg.OutputWriter)

	root.AddCommand(
		NewClassifyCommand(),
		NewScheduleCommand(),
		NewVersionCommand(),
	)
	return root
}
