package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/naka-gawa/weekly-report/internal/history"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Lists document content archived before each sync",
	Long: `Lists the snapshots taken before sync overwrote a document. With --document,
prints the most recent snapshot of that document so it can be restored by hand.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		if a.settings.ArchivePath == "" {
			return errors.New("archive path is not configured")
		}
		store, err := history.Open(a.settings.ArchivePath)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if doc, _ := cmd.Flags().GetString("document"); doc != "" {
			snap, err := store.Latest(cmd.Context(), doc)
			if err != nil {
				return err
			}
			fmt.Print(snap.Content)
			return nil
		}

		limit, _ := cmd.Flags().GetInt("limit")
		snaps, err := store.List(cmd.Context(), limit)
		if err != nil {
			return err
		}
		return writeSnapshots(os.Stdout, snaps)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int("limit", 10, "Maximum number of snapshots to list (0 lists all)")
	historyCmd.Flags().String("document", "", "Print the latest archived content of this document ID")
}
