package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/naka-gawa/weekly-report/internal/domain"
	"github.com/naka-gawa/weekly-report/internal/history"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

var reportAdapters = []domain.Adapter{
	domain.AdapterGitHub,
	domain.AdapterSonarQube,
	domain.AdapterCalendar,
	domain.AdapterForms,
}

// writeAdapterSummary prints one row per adapter with what it returned.
func writeAdapterSummary(w io.Writer, results domain.AdapterResults, warnings []domain.Warning) error {
	failed := make(map[string]bool)
	for _, warn := range warnings {
		if warn.Kind == domain.PartialDataWarning && warn.Err != nil {
			failed[warn.Subject] = true
		}
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Adapter", "Status", "Items"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.PerColumn = []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignRight}
	})

	var data [][]string
	for _, a := range reportAdapters {
		status, items := "skipped", "-"
		switch {
		case results.Has(a):
			r := results[a]
			status, items = "ok", strconv.Itoa(len(r.Records)+len(r.Coverage))
		case failed[string(a)]:
			status = warningColor.Sprint("failed")
		}
		data = append(data, []string{string(a), status, items})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeWarnings(w io.Writer, warnings []domain.Warning) {
	for _, warn := range warnings {
		_, _ = warningColor.Fprintf(w, "Warning: %s\n", warn)
	}
}

// writeSnapshots prints the archive listing without the content itself.
func writeSnapshots(w io.Writer, snaps []history.Snapshot) error {
	if len(snaps) == 0 {
		_, err := fmt.Fprintln(w, "No snapshots archived yet.")
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Document", "Period", "Archived", "Lines"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.PerColumn = []tw.Align{tw.AlignRight, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignRight}
	})

	var data [][]string
	for _, s := range snaps {
		data = append(data, []string{
			strconv.FormatInt(s.ID, 10),
			s.DocumentID,
			s.PeriodLabel,
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(strings.Count(s.Content, "\n") + 1),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
