package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "Manage label folders",
}

var foldersEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Load the catalog and create any missing label folders",
	Long: `Reads the label catalog, verifies every destination folder still exists
under the configured parent, creates the missing ones and writes the folder
IDs back to the catalog file.`,
	RunE: runFoldersEnsure,
}

func init() {
	foldersCmd.AddCommand(foldersEnsureCmd)
	rootCmd.AddCommand(foldersCmd)
}

func runFoldersEnsure(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		catalog, err := a.catalog.Hydrate(ctx)
		if err != nil {
			return fmt.Errorf("ensure folders: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "LABEL\tFOLDER ID")
		for _, e := range catalog.Entries() {
			fmt.Fprintf(w, "%s\t%s\n", e.Label, e.DestinationID)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		cmd.Printf("\n%d labels\n", catalog.Len())
		return nil
	})
}
