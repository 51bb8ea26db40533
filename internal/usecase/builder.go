package usecase

import (
	"context"
	"fmt"
	"log"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/naka-gawa/weekly-report/internal/config"
	"github.com/naka-gawa/weekly-report/internal/domain"
)

// BuiltinFields are the placeholder names the builder always binds.
var BuiltinFields = []string{
	"issues", "half_year", "half_year_year", "current_month", "current_year",
	"major_bugs_current_month", "minor_bugs_current_month",
	"major_bugs_half_year", "minor_bugs_half_year",
	"test_coverage", "test_coverage_components",
	"accomplishments", "other_accomplishments", "omtm",
	"deployments", "prs_reviewed", "meetings_and_activities", "google_forms_filled",
	"wfo_days", "out_of_office_days", "next_steps", "learning",
	"period", "author_name",
}

// AllAdapters lists every adapter the builder knows how to merge.
var AllAdapters = []domain.Adapter{
	domain.AdapterGitHub, domain.AdapterSonarQube, domain.AdapterCalendar, domain.AdapterForms,
}

// Summarizer turns grouped PR records into summary blocks.
type Summarizer interface {
	Summarize(ctx context.Context, grouped map[string][]domain.RawActivityRecord) (map[string]domain.SummaryBlock, []domain.Warning, error)
}

// Builder merges adapter results and static user data into ReportData.
type Builder struct {
	summarizer Summarizer
	required   []domain.Adapter
	logger     *log.Logger
}

func NewBuilder(summarizer Summarizer, required []domain.Adapter, logger *log.Logger) *Builder {
	return &Builder{summarizer: summarizer, required: required, logger: logger}
}

// Build produces the report data of one period.
func (b *Builder) Build(ctx context.Context, results domain.AdapterResults, static config.UserData, period Period) (domain.ReportData, []domain.Warning, error) {
	for _, a := range b.required {
		if !results.Has(a) {
			return domain.ReportData{}, nil, &domain.IncompleteDataError{Adapter: a}
		}
	}
	var warnings []domain.Warning
	for _, a := range AllAdapters {
		if slices.Contains(b.required, a) {
			continue
		}
		switch r, ok := results[a]; {
		case !ok:
			warnings = append(warnings, domain.Warning{Kind: domain.PartialDataWarning, Subject: string(a)})
		case len(r.Records) == 0 && len(r.Coverage) == 0:
			warnings = append(warnings, domain.Warning{Kind: domain.PartialDataWarning, Subject: string(a), Err: domain.ErrEmptyResult})
		}
	}

	accomplishments, summaryWarnings, err := b.accomplishments(ctx, results)
	if err != nil {
		return domain.ReportData{}, nil, err
	}
	warnings = append(warnings, summaryWarnings...)

	coverage := results[domain.AdapterSonarQube].Coverage
	average, err := averageCoverage(coverage)
	if err != nil {
		return domain.ReportData{}, nil, err
	}

	loc := period.Start.Location()
	majorMonth, minorMonth := bugTotals(static.Bugs, func(tag string) bool { return tag == period.MonthTag() })
	majorHalf, minorHalf := bugTotals(static.Bugs, func(tag string) bool { return inHalfYear(tag, period) })

	fields := map[string]string{
		"issues":                   formatList(static.Issues),
		"half_year":                period.HalfYear(),
		"half_year_year":           strconv.Itoa(period.Start.Year()),
		"current_month":            period.Start.Month().String(),
		"current_year":             strconv.Itoa(period.Start.Year()),
		"major_bugs_current_month": strconv.Itoa(majorMonth),
		"minor_bugs_current_month": strconv.Itoa(minorMonth),
		"major_bugs_half_year":     strconv.Itoa(majorHalf),
		"minor_bugs_half_year":     strconv.Itoa(minorHalf),
		"test_coverage":            average,
		"test_coverage_components": formatCoverageComponents(coverage),
		"accomplishments":          accomplishments,
		"other_accomplishments":    formatList(static.OtherAccomplishments),
		"omtm":                     formatList(static.OMTM),
		"deployments":              formatDeployments(inWindowBy(results.Records(domain.SourceDeployment), period, mergedAt)),
		"prs_reviewed":             formatReviews(inWindow(results.Records(domain.SourceReview), period)),
		"meetings_and_activities":  formatMeetings(b.meetings(results, static, period), loc),
		"google_forms_filled":      formatForms(inWindow(results.Records(domain.SourceForm), period), loc),
		"wfo_days":                 formatDays(static.WFODays, period),
		"out_of_office_days":       formatDays(static.OutOfOfficeDays, period),
		"next_steps":               formatList(static.NextSteps),
		"learning":                 formatList(static.Learning),
		"period":                   period.DateRange(),
		"author_name":              static.AuthorName,
	}
	for k, v := range static.Extra {
		if _, builtin := fields[k]; !builtin {
			fields[k] = v
		}
	}
	return domain.NewReportData(fields), warnings, nil
}

// accomplishments attaches each PR's commit digest as its body and summarizes per repository.
func (b *Builder) accomplishments(ctx context.Context, results domain.AdapterResults) (string, []domain.Warning, error) {
	type prKey struct {
		repo   string
		number int
	}
	commits := make(map[prKey][]domain.RawActivityRecord)
	for _, c := range results.Records(domain.SourceCommit) {
		k := prKey{c.Repository, c.Number}
		commits[k] = append(commits[k], c)
	}

	grouped := make(map[string][]domain.RawActivityRecord)
	for _, pr := range results.Records(domain.SourcePR) {
		if linked := commits[prKey{pr.Repository, pr.Number}]; len(linked) > 0 {
			pr.Body = commitDigest(linked)
		}
		grouped[pr.Repository] = append(grouped[pr.Repository], pr)
	}
	if len(grouped) == 0 {
		return noneItem, nil, nil
	}

	b.logger.Printf("Summarizing PRs of %d repositories...", len(grouped))
	blocks, warnings, err := b.summarizer.Summarize(ctx, grouped)
	if err != nil {
		return "", nil, fmt.Errorf("failed to summarize accomplishments: %w", err)
	}
	sections := make([]string, 0, len(blocks))
	for _, repo := range slices.Sorted(maps.Keys(blocks)) {
		block := blocks[repo]
		sections = append(sections, fmt.Sprintf("**%s**\n\n%s", block.DisplayName, block.Markdown()))
	}
	return strings.Join(sections, "\n\n"), warnings, nil
}

func (b *Builder) meetings(results domain.AdapterResults, static config.UserData, period Period) []domain.RawActivityRecord {
	excluded := make(map[string]bool, len(static.ExcludedMeetings))
	for _, m := range static.ExcludedMeetings {
		excluded[strings.ToLower(strings.TrimSpace(m))] = true
	}
	var kept []domain.RawActivityRecord
	for _, ev := range inWindow(results.Records(domain.SourceEvent), period) {
		if excluded[strings.ToLower(strings.TrimSpace(ev.Title))] {
			continue
		}
		kept = append(kept, ev)
	}
	return kept
}

func inWindow(records []domain.RawActivityRecord, period Period) []domain.RawActivityRecord {
	return inWindowBy(records, period, func(r domain.RawActivityRecord) time.Time { return r.Start })
}

// mergedAt is the time a deployment reached its base branch.
func mergedAt(r domain.RawActivityRecord) time.Time { return r.End }

func inWindowBy(records []domain.RawActivityRecord, period Period, at func(domain.RawActivityRecord) time.Time) []domain.RawActivityRecord {
	var out []domain.RawActivityRecord
	for _, r := range records {
		if period.Contains(at(r)) {
			out = append(out, r)
		}
	}
	return out
}

func bugTotals(bugs []domain.BugCount, match func(tag string) bool) (major, minor int) {
	for _, bug := range bugs {
		if !match(bug.Period) {
			continue
		}
		switch bug.Severity {
		case domain.SeverityMajor:
			major += bug.Count
		case domain.SeverityMinor:
			minor += bug.Count
		}
	}
	return major, minor
}

// inHalfYear matches the half-year tag of the period and every month tag inside that half.
func inHalfYear(tag string, period Period) bool {
	if tag == period.HalfYearTag() {
		return true
	}
	year, month, ok := strings.Cut(tag, "-")
	if !ok || year != strconv.Itoa(period.Start.Year()) {
		return false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return false
	}
	return halfYear(time.Month(m)) == period.HalfYear()
}
