package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search all levels of the hierarchy",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := root.client().Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, it := range res.Items {
				fmt.Fprintf(out, "%-12s %8d  %s\n", it.Level, it.ID, it.Title())
			}
			for _, l := range res.Failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: search in %s failed\n", l)
			}
			if len(res.Items) == 0 {
				fmt.Fprintln(out, "no matches")
			}

			return nil
		},
	}
}
