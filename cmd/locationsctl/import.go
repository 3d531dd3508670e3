package main

import (
	"fmt"
	"os"

	"github.com/pribylovaa/locations-gateway/internal/models"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newImportCmd(root *rootOptions) *cobra.Command {
	var parentID int64

	cmd := &cobra.Command{
		Use:   "import <level> <file.json>...",
		Short: "Bulk import JSON files into a level",
		Long: `Uploads each file to the gateway bulk endpoint of the given level.

Every level except countries needs --parent. Files are uploaded one by one;
a failed file is reported and the rest are still uploaded.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := models.ParseLevel(args[0])
			if err != nil {
				return err
			}
			if _, hasParent := level.Parent(); hasParent && parentID <= 0 {
				return fmt.Errorf("--parent is required for %s", level)
			}

			files := args[1:]
			client := root.client()
			out := cmd.OutOrStdout()

			bar := progressbar.NewOptions(len(files),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription(fmt.Sprintf("Importing %s", level)),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(cmd.ErrOrStderr())
				}),
			)

			var failed, imported int
			for _, path := range files {
				data, err := os.ReadFile(path)
				if err == nil {
					var res models.BulkResult
					res, err = client.Import(cmd.Context(), level, parentID, path, data)
					if err == nil {
						imported += res.Imported
						fmt.Fprintf(out, "%s: imported %d\n", path, res.Imported)
					}
				}
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s: %v\n", path, err)
				}
				_ = bar.Add(1)
			}

			fmt.Fprintf(out, "total imported: %d, failed files: %d\n", imported, failed)
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(files))
			}

			return nil
		},
	}

	cmd.Flags().Int64Var(&parentID, "parent", 0, "parent id (required for every level except countries)")

	return cmd
}
