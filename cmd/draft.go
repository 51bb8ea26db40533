package cmd

import (
	"fmt"
	"os"

	"github.com/naka-gawa/weekly-report/internal/docsync"
	"github.com/naka-gawa/weekly-report/internal/usecase"
	"github.com/spf13/cobra"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Creates a Gmail draft from the latest report without regenerating it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		static, err := a.userData()
		if err != nil {
			return err
		}

		path, err := docsync.LatestArtifact(a.settings.OutputDir)
		if err != nil {
			return err
		}
		text, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read report %s: %w", path, err)
		}
		period, err := usecase.PeriodFromArtifact(path, a.loc)
		if err != nil {
			return err
		}

		drafter, err := a.drafter(ctx)
		if err != nil {
			return err
		}
		id, err := drafter.Draft(ctx, usecase.DraftRequest{
			Report:        string(text),
			Period:        period,
			AuthorName:    static.AuthorName,
			EmailTemplate: static.EmailTemplate,
			To:            a.settings.Mail.SendTo,
			CC:            a.settings.Mail.SendCC,
		})
		if err != nil {
			return err
		}
		_, _ = successColor.Printf("Gmail draft %s created from %s\n", id, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(draftCmd)
}
