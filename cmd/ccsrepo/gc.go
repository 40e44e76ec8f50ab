package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vistore/vistore/gc"
)

var gcWorkers int

// GCCmd runs mark-and-sweep garbage collection over a repo.
var GCCmd = &cobra.Command{
	Use:   "gc",
	Short: "reclaim blobs and revisions unreachable from any live series",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, r, err := openRepo(cmd.Context())
		if err != nil {
			return err
		}
		n, err := gc.Run(ctx, r, gcWorkers)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reclaimed %d entries\n", n)
		return nil
	},
}

func init() {
	GCCmd.Flags().IntVar(&gcWorkers, "workers", gc.DefaultWorkers, "number of series to sweep concurrently")
}
