// Package summarize turns pull request activity into structured summary blocks,
// failing over across an ordered list of LLM backends.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"slices"

	"github.com/naka-gawa/weekly-report/internal/domain"
)

var (
	// ErrNotPullRequest is returned when a record other than a PR is passed in.
	ErrNotPullRequest = errors.New("record is not a pull request")
	// ErrNoBackends is recorded when a group needs a backend and none is configured.
	ErrNoBackends = errors.New("no summarization backend configured")
)

// Backend is one text-generation provider.
type Backend interface {
	Name() string
	Complete(ctx context.Context, prompt domain.Prompt) (string, error)
}

// Engine summarizes grouped PR records. It holds no state between calls.
type Engine struct {
	backends []Backend
	logger   *log.Logger
}

// NewEngine returns an engine that tries backends in the given order.
func NewEngine(backends []Backend, logger *log.Logger) *Engine {
	return &Engine{backends: backends, logger: logger}
}

// Summarize returns one SummaryBlock per repository group. A group whose backends all fail
// is summarized from titles and reported as a SummarizationFallbackUsed warning.
func (e *Engine) Summarize(ctx context.Context, grouped map[string][]domain.RawActivityRecord) (map[string]domain.SummaryBlock, []domain.Warning, error) {
	for repo, recs := range grouped {
		for _, r := range recs {
			if r.Source != domain.SourcePR {
				return nil, nil, fmt.Errorf("%w: %s record %q in %s", ErrNotPullRequest, r.Source, r.Title, repo)
			}
		}
	}

	blocks := make(map[string]domain.SummaryBlock, len(grouped))
	var warnings []domain.Warning
	for _, repo := range slices.Sorted(maps.Keys(grouped)) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		block, warn := e.summarizeGroup(ctx, repo, grouped[repo])
		blocks[repo] = block
		if warn != nil {
			warnings = append(warnings, *warn)
		}
	}
	return blocks, warnings, nil
}

func (e *Engine) summarizeGroup(ctx context.Context, repo string, prs []domain.RawActivityRecord) (domain.SummaryBlock, *domain.Warning) {
	block := domain.SummaryBlock{Repository: repo, DisplayName: repo}

	var remote []domain.RawActivityRecord
	for _, pr := range prs {
		if pr.Body != "" {
			remote = append(remote, pr)
		}
	}

	var (
		generated []domain.PrSummaryEntry
		warn      *domain.Warning
	)
	if len(remote) > 0 {
		entries, err := e.complete(ctx, repo, remote)
		if err != nil {
			e.logger.Printf("Summarization of %s fell back to titles: %v", repo, err)
			block.Fallback = true
			warn = &domain.Warning{Kind: domain.SummarizationFallbackUsed, Subject: repo, Err: err}
		} else {
			generated = entries
		}
	}

	byNumber := make(map[int]domain.PrSummaryEntry, len(generated))
	for _, g := range generated {
		if _, dup := byNumber[g.Number]; !dup {
			byNumber[g.Number] = g
		}
	}
	used := make(map[int]bool)
	for _, pr := range prs {
		g, ok := byNumber[pr.Number]
		if !ok || used[pr.Number] {
			block.Entries = append(block.Entries, titleOnly(pr))
			continue
		}
		used[pr.Number] = true
		g.Title, g.URL = pr.Title, pr.URL
		block.Entries = append(block.Entries, g)
	}
	for _, g := range generated {
		if !used[g.Number] {
			used[g.Number] = true
			e.logger.Printf("Dropping summary of %s#%d: no such PR in the input", repo, g.Number)
		}
	}
	return block, warn
}

// complete tries each backend in order and returns the first reply that parses.
func (e *Engine) complete(ctx context.Context, repo string, prs []domain.RawActivityRecord) ([]domain.PrSummaryEntry, error) {
	if len(e.backends) == 0 {
		return nil, ErrNoBackends
	}
	prompt, err := BuildPrompt(repo, prs)
	if err != nil {
		return nil, err
	}
	var errs []error
	for _, b := range e.backends {
		e.logger.Printf("Summarizing %d PRs of %s with %s...", len(prs), repo, b.Name())
		reply, err := b.Complete(ctx, prompt)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		entries, err := Parse(reply)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		return entries, nil
	}
	return nil, errors.Join(errs...)
}

func titleOnly(pr domain.RawActivityRecord) domain.PrSummaryEntry {
	return domain.PrSummaryEntry{
		Title:         pr.Title,
		Number:        pr.Number,
		URL:           pr.URL,
		Description:   pr.Title,
		Status:        domain.StatusSentinel,
		ChangeBullets: []string{pr.Title},
	}
}
