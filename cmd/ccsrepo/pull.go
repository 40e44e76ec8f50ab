package main

import (
	"github.com/spf13/cobra"

	"github.com/vistore/vistore/sync"
)

var pullWorkers int

// PullCmd replicates collections from a remote repo into this one.
var PullCmd = &cobra.Command{
	Use:   "pull <remote-uri> [label...]",
	Short: "pull collections from a remote repo",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, self, err := openRepo(cmd.Context())
		if err != nil {
			return err
		}
		remote, err := openURI(ctx, args[0])
		if err != nil {
			return err
		}
		return sync.Pull(ctx, self, remote, pullWorkers, args[1:]...)
	},
}

func init() {
	PullCmd.Flags().IntVar(&pullWorkers, "workers", 0, "bounded worker pool size, 0 for the default of 8")
}
