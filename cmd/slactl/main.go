package main

import (
	"os"

	slactlcmd "github.com/finopscloud/sla-engine/pkg/slactl/cmd"
)

func main() {
	root := slactlcmd.NewRootCommand(slactlcmd.DefaultConfig())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
