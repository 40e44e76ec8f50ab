package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// LsCmd lists the active collections in a repo.
var LsCmd = &cobra.Command{
	Use:   "ls",
	Short: "list active collections",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, r, err := openRepo(cmd.Context())
		if err != nil {
			return err
		}
		labels, err := r.Ls(ctx)
		if err != nil {
			return err
		}
		for _, l := range labels {
			fmt.Fprintln(cmd.OutOrStdout(), l)
		}
		return nil
	},
}
