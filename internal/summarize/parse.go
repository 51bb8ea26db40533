package summarize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/naka-gawa/weekly-report/internal/domain"
)

// ErrMalformedResponse is returned when a backend reply does not follow the bullet format.
var ErrMalformedResponse = errors.New("malformed summary response")

var (
	// "* title [#123](url)" or "* title [repo#123](url)"
	entryLine = regexp.MustCompile(`^[*-]\s+(.*?)\s*\[[\w.-]*#(\d+)\]\(([^)\s]+)\)\s*$`)
	bulletRe  = regexp.MustCompile(`^[*-]\s+(.*)$`)
)

const (
	descriptionLabel = "**Description:**"
	statusLabel      = "**Status:**"
	changesLabel     = "**Key Changes Implemented:**"
)

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// Parse reads a backend reply into entries and checks its structure: at least one entry,
// and every entry carries a description, a status line and one or more change bullets.
func Parse(response string) ([]domain.PrSummaryEntry, error) {
	var (
		entries    []domain.PrSummaryEntry
		cur        *domain.PrSummaryEntry
		hasStatus  []bool
		inChanges  bool
		baseIndent = -1
	)

	for _, raw := range strings.Split(strings.ReplaceAll(response, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		indent := indentOf(raw)

		if m := entryLine.FindStringSubmatch(line); m != nil && (baseIndent < 0 || indent <= baseIndent) {
			if baseIndent < 0 {
				baseIndent = indent
			}
			n, _ := strconv.Atoi(m[2])
			entries = append(entries, domain.PrSummaryEntry{Title: m[1], Number: n, URL: m[3]})
			hasStatus = append(hasStatus, false)
			cur = &entries[len(entries)-1]
			inChanges = false
			continue
		}
		if cur == nil {
			// preamble before the first entry
			continue
		}

		body := line
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			body = m[1]
		}
		switch {
		case strings.HasPrefix(body, descriptionLabel):
			cur.Description = strings.TrimSpace(strings.TrimPrefix(body, descriptionLabel))
			inChanges = false
		case strings.HasPrefix(body, statusLabel):
			hasStatus[len(hasStatus)-1] = true
			cur.Status = domain.StatusSentinel
			inChanges = false
		case strings.HasPrefix(body, changesLabel):
			inChanges = true
			if rest := strings.TrimSpace(strings.TrimPrefix(body, changesLabel)); rest != "" {
				cur.ChangeBullets = append(cur.ChangeBullets, rest)
			}
		case inChanges && body != line:
			cur.ChangeBullets = append(cur.ChangeBullets, strings.TrimSpace(body))
		}
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrMalformedResponse)
	}
	var errs []error
	for i, e := range entries {
		if e.Description == "" {
			errs = append(errs, fmt.Errorf("#%d has no description", e.Number))
		}
		if !hasStatus[i] {
			errs = append(errs, fmt.Errorf("#%d has no status", e.Number))
		}
		if len(e.ChangeBullets) == 0 {
			errs = append(errs, fmt.Errorf("#%d has no key changes", e.Number))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, errors.Join(errs...))
	}
	return entries, nil
}
