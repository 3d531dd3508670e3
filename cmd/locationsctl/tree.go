package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pribylovaa/locations-gateway/internal/tree"
	"github.com/spf13/cobra"
)

func newTreeCmd(root *rootOptions) *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the hierarchy down to --depth levels",
		Long: `Prints countries and expands every loaded node down to --depth levels.
Only the first page of each node is shown; "…" marks nodes with more children.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if depth < 1 {
				return fmt.Errorf("--depth must be at least 1")
			}

			client := root.client()
			v, err := client.Tree(cmd.Context())
			if err != nil {
				return err
			}

			return printTree(cmd.Context(), cmd.OutOrStdout(), client, v, depth, 0)
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 1, "number of levels to print (1 = countries only)")

	return cmd
}

// printTree печатает детей v; узлы уровнем выше depth раскрываются через шлюз.
func printTree(ctx context.Context, w io.Writer, c *gatewayClient, v tree.View, depth, indent int) error {
	if v.Error != "" {
		fmt.Fprintf(w, "%s! %s\n", strings.Repeat("  ", indent), v.Error)
	}

	for _, child := range v.Children {
		fmt.Fprintf(w, "%s%s (%d)\n", strings.Repeat("  ", indent), child.Title, child.ID)

		if indent+1 >= depth || child.Leaf {
			continue
		}

		expanded, err := c.Expand(ctx, child.Level, child.ID)
		if err != nil {
			return err
		}
		if err := printTree(ctx, w, c, expanded, depth, indent+1); err != nil {
			return err
		}
	}

	if v.HasMore {
		fmt.Fprintf(w, "%s…\n", strings.Repeat("  ", indent))
	}

	return nil
}
