package usecase

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/weekly-report/internal/domain"
)

const noneItem = "* None"

// formatList renders items as a Markdown bullet list, or "* None" when empty.
func formatList(items []string) string {
	if len(items) == 0 {
		return noneItem
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "* " + item
	}
	return strings.Join(lines, "\n")
}

func prLink(r domain.RawActivityRecord) string {
	return fmt.Sprintf("%s [%s#%d](%s)", r.Title, r.Repository, r.Number, r.URL)
}

func formatDeployments(records []domain.RawActivityRecord) string {
	records = slices.Clone(records)
	slices.SortStableFunc(records, func(a, b domain.RawActivityRecord) int {
		return a.End.Compare(b.End)
	})
	items := make([]string, 0, len(records))
	for _, r := range records {
		item := prLink(r)
		if r.BaseRef != "" {
			item += fmt.Sprintf(" (merged into %s)", r.BaseRef)
		}
		items = append(items, item)
	}
	return formatList(items)
}

func formatReviews(records []domain.RawActivityRecord) string {
	type key struct {
		repo   string
		number int
	}
	seen := make(map[key]bool)
	var unique []domain.RawActivityRecord
	for _, r := range records {
		k := key{r.Repository, r.Number}
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, r)
	}
	slices.SortStableFunc(unique, func(a, b domain.RawActivityRecord) int {
		if c := strings.Compare(a.Repository, b.Repository); c != 0 {
			return c
		}
		return a.Number - b.Number
	})
	items := make([]string, 0, len(unique))
	for _, r := range unique {
		items = append(items, prLink(r))
	}
	return formatList(items)
}

// isAllDay reports whether an event spans whole days.
func isAllDay(r domain.RawActivityRecord) bool {
	midnight := func(t time.Time) bool { return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 }
	return r.HasEnd() && midnight(r.Start) && midnight(r.End) && r.End.After(r.Start)
}

// formatMeetings groups events under a bold long-date bullet per day.
func formatMeetings(events []domain.RawActivityRecord, loc *time.Location) string {
	events = slices.Clone(events)
	slices.SortStableFunc(events, func(a, b domain.RawActivityRecord) int {
		return a.Start.Compare(b.Start)
	})
	var sb strings.Builder
	var currentDay string
	for _, ev := range events {
		start := ev.Start.In(loc)
		day := longDate(start)
		if day != currentDay {
			currentDay = day
			fmt.Fprintf(&sb, "* **%s**\n", day)
		}
		switch {
		case isAllDay(ev):
			fmt.Fprintf(&sb, "  * All day: %s\n", ev.Title)
		case ev.HasEnd():
			fmt.Fprintf(&sb, "  * %s – %s: %s\n", clock(start), clock(ev.End.In(loc)), ev.Title)
		default:
			fmt.Fprintf(&sb, "  * %s: %s\n", clock(start), ev.Title)
		}
	}
	if sb.Len() == 0 {
		return noneItem
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatForms(forms []domain.RawActivityRecord, loc *time.Location) string {
	items := make([]string, 0, len(forms))
	for _, f := range forms {
		at := f.Start.In(loc)
		items = append(items, fmt.Sprintf("%s (submitted on %s at %s)", f.Title, longDate(at), clock(at)))
	}
	return formatList(items)
}

func formatDays(days []int, p Period) string {
	items := make([]string, 0, len(days))
	for _, d := range days {
		items = append(items, longDate(p.Day(d)))
	}
	return formatList(items)
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// averageCoverage is the mean of the known percentages, rounded to one decimal.
func averageCoverage(metrics []domain.CoverageMetric) (string, error) {
	var known stats.Float64Data
	for _, m := range metrics {
		if m.HasValue {
			known = append(known, m.Percentage)
		}
	}
	if len(known) == 0 {
		return "N/A", nil
	}
	mean, err := stats.Mean(known)
	if err != nil {
		return "", fmt.Errorf("failed to average coverage: %w", err)
	}
	rounded, err := stats.Round(mean, 1)
	if err != nil {
		return "", fmt.Errorf("failed to round coverage: %w", err)
	}
	return formatPercent(rounded), nil
}

// formatCoverageComponents groups components under their project in first-seen order.
func formatCoverageComponents(metrics []domain.CoverageMetric) string {
	if len(metrics) == 0 {
		return noneItem
	}
	var projects []string
	byProject := make(map[string][]domain.CoverageMetric)
	for _, m := range metrics {
		if _, ok := byProject[m.Project]; !ok {
			projects = append(projects, m.Project)
		}
		byProject[m.Project] = append(byProject[m.Project], m)
	}
	var sb strings.Builder
	for _, p := range projects {
		fmt.Fprintf(&sb, "* %s\n", p)
		for _, m := range byProject[p] {
			target := strconv.FormatFloat(m.TargetPercentage, 'f', -1, 64)
			if m.HasValue {
				fmt.Fprintf(&sb, "  * %s: [%s%%](%s) (target: %s%%)\n", m.Name, formatPercent(m.Percentage), m.URL, target)
			} else {
				fmt.Fprintf(&sb, "  * %s: N/A (target: %s%%)\n", m.Name, target)
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// commitDigest renders the commits of one PR as the text the summarizer reads:
// each commit title, followed by its bulleted detail lines.
func commitDigest(commits []domain.RawActivityRecord) string {
	commits = slices.Clone(commits)
	slices.SortStableFunc(commits, func(a, b domain.RawActivityRecord) int {
		return a.Start.Compare(b.Start)
	})
	var sb strings.Builder
	for _, c := range commits {
		fmt.Fprintf(&sb, "%s\n", c.Title)
		for _, line := range strings.Split(c.Body, "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
				fmt.Fprintf(&sb, "  %s\n", line)
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
