// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/naka-gawa/weekly-report/internal/config"
	"github.com/naka-gawa/weekly-report/internal/domain"
	"github.com/naka-gawa/weekly-report/internal/gateway"
	"golang.org/x/sync/errgroup"
)

// FormFetcher lists form submissions received in a window.
type FormFetcher interface {
	FetchFormSubmissions(ctx context.Context, from, to time.Time) ([]domain.RawActivityRecord, error)
}

// Sources holds the configured adapters. A nil field means the adapter is not configured.
type Sources struct {
	GitHub     gateway.ActivityFetcher
	Repos      []string
	SonarQube  gateway.CoverageFetcher
	Components []config.Component
	Calendar   gateway.EventFetcher
	Forms      FormFetcher
}

// Collector is the use case for fetching every adapter of a period.
// It orchestrates concurrent fetches and joins their results.
type Collector struct {
	sources  Sources
	required []domain.Adapter
	logger   *log.Logger
}

// NewCollector creates a new Collector instance.
func NewCollector(sources Sources, required []domain.Adapter, logger *log.Logger) *Collector {
	return &Collector{sources: sources, required: required, logger: logger}
}

func (c *Collector) isRequired(a domain.Adapter) bool {
	for _, r := range c.required {
		if r == a {
			return true
		}
	}
	return false
}

type fetchFunc func(ctx context.Context) (domain.AdapterResult, error)

// Collect fetches all configured adapters concurrently. An optional adapter that fails is
// left out of the results and reported as a PartialDataWarning; a required one aborts the run
// with an AdapterUnavailableError.
func (c *Collector) Collect(ctx context.Context, period Period) (domain.AdapterResults, []domain.Warning, error) {
	c.logger.Println("Usecase: Starting data collection...")

	fetchers := map[domain.Adapter]fetchFunc{}
	if c.sources.GitHub != nil {
		fetchers[domain.AdapterGitHub] = func(ctx context.Context) (domain.AdapterResult, error) {
			return c.fetchGitHub(ctx, period)
		}
	}
	if c.sources.SonarQube != nil {
		fetchers[domain.AdapterSonarQube] = func(ctx context.Context) (domain.AdapterResult, error) {
			metrics, err := c.sources.SonarQube.FetchCoverage(ctx, c.sources.Components)
			return domain.AdapterResult{Coverage: metrics}, err
		}
	}
	if c.sources.Calendar != nil {
		fetchers[domain.AdapterCalendar] = func(ctx context.Context) (domain.AdapterResult, error) {
			events, err := c.sources.Calendar.FetchEvents(ctx, period.FetchFrom(), period.FetchTo())
			return domain.AdapterResult{Records: events}, err
		}
	}
	if c.sources.Forms != nil {
		fetchers[domain.AdapterForms] = func(ctx context.Context) (domain.AdapterResult, error) {
			forms, err := c.sources.Forms.FetchFormSubmissions(ctx, period.FetchFrom(), period.FetchTo())
			return domain.AdapterResult{Records: forms}, err
		}
	}

	for _, a := range c.required {
		if _, ok := fetchers[a]; !ok {
			return nil, nil, &domain.AdapterUnavailableError{Adapter: a, Err: errors.New("adapter is not configured")}
		}
	}

	var (
		mu       sync.Mutex
		results  = make(domain.AdapterResults)
		warnings []domain.Warning
	)
	eg, egCtx := errgroup.WithContext(ctx)
	for adapter, fetch := range fetchers {
		eg.Go(func() error {
			res, err := fetch(egCtx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if c.isRequired(adapter) {
					return &domain.AdapterUnavailableError{Adapter: adapter, Err: err}
				}
				c.logger.Printf("Usecase: optional adapter %s failed: %v", adapter, err)
				warnings = append(warnings, domain.Warning{Kind: domain.PartialDataWarning, Subject: string(adapter), Err: err})
				return nil
			}
			results[adapter] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	c.logger.Println("Usecase: All data fetched successfully.")
	return results, warnings, nil
}

// fetchGitHub fetches authored and merged PRs per repository plus reviewed PRs, concurrently.
func (c *Collector) fetchGitHub(ctx context.Context, period Period) (domain.AdapterResult, error) {
	gh := c.sources.GitHub
	authored := make([][]domain.RawActivityRecord, len(c.sources.Repos))
	merged := make([][]domain.RawActivityRecord, len(c.sources.Repos))
	var reviewed []domain.RawActivityRecord

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for i, repo := range c.sources.Repos {
		eg.Go(func() error {
			var err error
			authored[i], err = gh.FetchAuthoredPRs(egCtx, repo, period.FetchFrom(), period.FetchTo())
			return err
		})
		eg.Go(func() error {
			var err error
			merged[i], err = gh.FetchMergedPRs(egCtx, repo, period.FetchFrom())
			return err
		})
	}
	if len(c.sources.Repos) > 0 {
		eg.Go(func() error {
			var err error
			reviewed, err = gh.FetchReviewedPRs(egCtx, c.sources.Repos, period.FetchFrom())
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return domain.AdapterResult{}, fmt.Errorf("failed to fetch GitHub activity: %w", err)
	}

	var records []domain.RawActivityRecord
	for i := range c.sources.Repos {
		records = append(records, authored[i]...)
		records = append(records, merged[i]...)
	}
	records = append(records, reviewed...)
	return domain.AdapterResult{Records: records}, nil
}
