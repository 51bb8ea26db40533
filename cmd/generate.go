package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/naka-gawa/weekly-report/internal/render"
	"github.com/naka-gawa/weekly-report/internal/summarize"
	"github.com/naka-gawa/weekly-report/internal/usecase"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generates the weekly report and a Gmail draft of it",
	Long: `Collects the week's activity, summarizes pull requests, renders the template and
writes output/Weekly_Report_<start>_to_<end>.md. Unless --no-draft is given, a Gmail
draft addressed to the configured recipients is created from the report.`,
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

		period := usecase.NewPeriod(time.Now(), a.loc)
		if date, _ := cmd.Flags().GetString("date"); date != "" {
			if period, err = usecase.ParsePeriod(date, a.loc); err != nil {
				return err
			}
		}

		tmpl := render.Default()
		if a.settings.TemplatePath != "" {
			if tmpl, err = render.Load(a.settings.TemplatePath); err != nil {
				return err
			}
		}

		// Inject dependencies and run the main business logic.
		sources, err := a.sources(ctx)
		if err != nil {
			return err
		}
		required := a.settings.RequiredAdapters()
		collector := usecase.NewCollector(sources, required, a.logger)
		builder := usecase.NewBuilder(summarize.NewEngine(a.backends(), a.logger), required, a.logger)
		generator := usecase.NewGenerator(collector, builder, tmpl, a.settings.OutputDir, a.logger)

		fmt.Printf("Generating report for %s\n", period.DateRange())
		report, err := generator.Generate(ctx, period, static)
		if err != nil {
			return fmt.Errorf("failed to generate report: %w", err)
		}
		if err := writeAdapterSummary(os.Stdout, report.Results, report.Warnings); err != nil {
			return err
		}
		writeWarnings(os.Stderr, report.Warnings)
		_, _ = successColor.Printf("Report written to %s\n", report.Path)

		if noDraft, _ := cmd.Flags().GetBool("no-draft"); noDraft {
			return nil
		}
		drafter, err := a.drafter(ctx)
		if err != nil {
			return fmt.Errorf("report written but draft not created: %w", err)
		}
		id, err := drafter.Draft(ctx, usecase.DraftRequest{
			Report:        report.Text,
			Period:        report.Period,
			AuthorName:    static.AuthorName,
			EmailTemplate: static.EmailTemplate,
			To:            a.settings.Mail.SendTo,
			CC:            a.settings.Mail.SendCC,
		})
		if err != nil {
			return fmt.Errorf("report written but draft not created: %w", err)
		}
		_, _ = successColor.Printf("Gmail draft %s created\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().Bool("no-draft", false, "Only write the report file, do not create a Gmail draft")
	generateCmd.Flags().String("date", "", "Any date (YYYY-MM-DD) in the week to report on (default: this week)")
	generateCmd.Flags().String("template", "", "Report template file (default: built-in template)")
	bindFlag("template", generateCmd.Flags().Lookup("template"))
}
