package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/naka-gawa/weekly-report/internal/docsync"
	"github.com/naka-gawa/weekly-report/internal/gateway"
	"github.com/naka-gawa/weekly-report/internal/history"
	"github.com/naka-gawa/weekly-report/internal/usecase"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Overwrites the shared Google Doc with the latest report",
	Long: `Finds the latest report in the output directory, looks up the weekly request
email for the period, extracts the Google Doc link from it and replaces the whole
document body with the report text. The previous content is archived first unless
--no-archive is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		label, _ := cmd.Flags().GetString("label")
		if label == "" {
			label = usecase.NewPeriod(time.Now(), a.loc).SyncLabel()
		}

		opts, err := a.googleOptions(ctx)
		if err != nil {
			return err
		}
		gmail, err := gateway.NewGmailGateway(ctx, a.loc, a.logger, opts...)
		if err != nil {
			return err
		}
		docs, err := gateway.NewDocsGateway(ctx, a.logger, opts...)
		if err != nil {
			return err
		}

		var archive docsync.Archiver
		if noArchive, _ := cmd.Flags().GetBool("no-archive"); !noArchive && a.settings.ArchivePath != "" {
			store, err := history.Open(a.settings.ArchivePath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			archive = store
		}

		correlator := docsync.NewCorrelator(gmail, docs, archive, a.settings.Mail.SyncSender, a.logger)
		result, err := correlator.Sync(ctx, a.settings.OutputDir, label)
		fmt.Printf("Sync path: %s\n", trail(result.Trail))
		if err != nil {
			return fmt.Errorf("failed to sync report: %w", err)
		}
		if result.SnapshotID != 0 {
			fmt.Printf("Previous content archived as snapshot %d\n", result.SnapshotID)
		}
		_, _ = successColor.Printf("Document %s updated from %s\n", result.Target.ExternalDocumentID, result.Target.ReportFilePath)
		return nil
	},
}

func trail(states []docsync.State) string {
	names := make([]string, 0, len(states))
	for _, s := range states {
		names = append(names, s.String())
	}
	return strings.Join(names, " -> ")
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().String("output-dir", "output", "Directory holding the generated reports")
	syncCmd.Flags().String("label", "", "Subject of the request email (default: this week's [Fill Weekly Report] label)")
	syncCmd.Flags().Bool("no-archive", false, "Do not archive the document content before overwriting it")
	bindFlag("output-dir", syncCmd.Flags().Lookup("output-dir"))
}
