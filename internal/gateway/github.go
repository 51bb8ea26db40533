// Package gateway provides the service adapters of the report pipeline:
// GitHub, SonarQube, Google Calendar, Gmail, Google Docs and the LLM providers.
package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/weekly-report/internal/domain"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
)

// ActivityFetcher defines the behavior of a gateway for fetching activity from GitHub.
type ActivityFetcher interface {
	// FetchAuthoredPRs returns the user's PRs updated since the window start that carry
	// at least one of the user's commits inside the window, followed by those commits.
	FetchAuthoredPRs(ctx context.Context, repo string, since, until time.Time) ([]domain.RawActivityRecord, error)
	FetchMergedPRs(ctx context.Context, repo string, since time.Time) ([]domain.RawActivityRecord, error)
	FetchReviewedPRs(ctx context.Context, repos []string, since time.Time) ([]domain.RawActivityRecord, error)
}

// GitHubGateway is the concrete implementation of the ActivityFetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	owner         string
	username      string
	logger        *log.Logger
}

var _ ActivityFetcher = &GitHubGateway{}

// reviewedPRsQuery searches PRs the user reviewed but did not author.
type reviewedPRsQuery struct {
	Search struct {
		PageInfo struct {
			HasNextPage bool
			EndCursor   githubv4.String
		}
		Edges []struct {
			Node struct {
				Typename    string `graphql:"__typename"`
				PullRequest struct {
					Number     int
					Title      string
					URL        string
					UpdatedAt  githubv4.DateTime
					Repository struct {
						Name string
					}
				} `graphql:"... on PullRequest"`
			}
		}
	} `graphql:"search(query: $query, type: ISSUE, first: 100, after: $cursor)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token, owner, username string, logger *log.Logger) (*GitHubGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		owner:         owner,
		username:      username,
		logger:        logger,
	}, nil
}

func (g *GitHubGateway) prURL(repo string, number int) string {
	return fmt.Sprintf("https://github.com/%s/%s/pull/%d", g.owner, repo, number)
}

func (g *GitHubGateway) FetchAuthoredPRs(ctx context.Context, repo string, since, until time.Time) ([]domain.RawActivityRecord, error) {
	g.logger.Printf("Fetching authored PRs for %s/%s...", g.owner, repo)
	opts := &github.PullRequestListOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var prs, commits []domain.RawActivityRecord
	for {
		page, resp, err := g.restClient.PullRequests.List(ctx, g.owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests for %s: %w", repo, err)
		}
		for _, pr := range page {
			// Sorted by update time, so everything after this one is older than the window.
			if pr.GetUpdatedAt().Time.Before(since) {
				return append(prs, commits...), nil
			}
			if pr.GetUser().GetLogin() != g.username {
				continue
			}
			prCommits, err := g.fetchPRCommits(ctx, repo, pr.GetNumber(), since, until)
			if err != nil {
				return nil, err
			}
			if len(prCommits) == 0 {
				continue
			}
			prs = append(prs, g.toPRRecord(domain.SourcePR, repo, pr))
			commits = append(commits, prCommits...)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Println("  Fetching next page of pull requests...")
	}
	g.logger.Printf("Completed fetching authored PRs for %s.", repo)
	return append(prs, commits...), nil
}

func (g *GitHubGateway) fetchPRCommits(ctx context.Context, repo string, number int, since, until time.Time) ([]domain.RawActivityRecord, error) {
	opts := &github.ListOptions{PerPage: 100}
	var records []domain.RawActivityRecord
	for {
		page, resp, err := g.restClient.PullRequests.ListCommits(ctx, g.owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list commits of %s#%d: %w", repo, number, err)
		}
		for _, c := range page {
			committed := c.GetCommit().GetCommitter().GetDate().Time
			if committed.Before(since) || !committed.Before(until) {
				continue
			}
			if c.GetAuthor().GetLogin() != g.username {
				continue
			}
			title, body, _ := strings.Cut(c.GetCommit().GetMessage(), "\n")
			url := c.GetHTMLURL()
			if url == "" {
				url = fmt.Sprintf("https://github.com/%s/%s/commit/%s", g.owner, repo, c.GetSHA())
			}
			records = append(records, domain.RawActivityRecord{
				Source:     domain.SourceCommit,
				Repository: repo,
				Title:      strings.TrimSpace(title),
				Body:       strings.TrimSpace(body),
				Start:      committed,
				ExternalID: c.GetSHA(),
				URL:        url,
				Number:     number,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return records, nil
}

func (g *GitHubGateway) toPRRecord(src domain.Source, repo string, pr *github.PullRequest) domain.RawActivityRecord {
	url := pr.GetHTMLURL()
	if url == "" {
		url = g.prURL(repo, pr.GetNumber())
	}
	rec := domain.RawActivityRecord{
		Source:     src,
		Repository: repo,
		Title:      pr.GetTitle(),
		Start:      pr.GetCreatedAt().Time,
		ExternalID: strconv.Itoa(pr.GetNumber()),
		URL:        url,
		Number:     pr.GetNumber(),
		BaseRef:    pr.GetBase().GetRef(),
	}
	if pr.MergedAt != nil {
		rec.End = pr.GetMergedAt().Time
	}
	return rec
}

// FetchMergedPRs returns PRs merged into master/main since the window start, plus the user's PRs
// that reached the base branch through each merge commit. A nested PR's End is the time it
// reached the base branch, not its own merge time.
func (g *GitHubGateway) FetchMergedPRs(ctx context.Context, repo string, since time.Time) ([]domain.RawActivityRecord, error) {
	g.logger.Printf("Fetching merged PRs for %s/%s...", g.owner, repo)
	query := fmt.Sprintf("repo:%s/%s is:pr is:merged author:%s merged:>=%s base:master base:main",
		g.owner, repo, g.username, since.Format("2006-01-02"))
	opts := &github.SearchOptions{
		Sort:        "updated",
		Order:       "desc",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var issues []*github.Issue
	for {
		result, resp, err := g.restClient.Search.Issues(ctx, query, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to search merged PRs for %s: %w", repo, err)
		}
		issues = append(issues, result.Issues...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	seen := make(map[int]bool)
	var records []domain.RawActivityRecord
	add := func(pr *github.PullRequest, reachedBase time.Time) {
		if seen[pr.GetNumber()] {
			return
		}
		seen[pr.GetNumber()] = true
		rec := g.toPRRecord(domain.SourceDeployment, repo, pr)
		rec.End = reachedBase
		records = append(records, rec)
	}

	for _, issue := range issues {
		pr, _, err := g.restClient.PullRequests.Get(ctx, g.owner, repo, issue.GetNumber())
		if err != nil {
			g.logger.Printf("  Skipping %s#%d: %v", repo, issue.GetNumber(), err)
			continue
		}
		mergedAt := pr.GetMergedAt().Time
		add(pr, mergedAt)
		if pr.GetMergeCommitSHA() == "" {
			continue
		}
		nested, _, err := g.restClient.PullRequests.ListPullRequestsWithCommit(ctx, g.owner, repo, pr.GetMergeCommitSHA(), &github.ListOptions{PerPage: 100})
		if err != nil {
			g.logger.Printf("  Skipping PRs of commit %s: %v", pr.GetMergeCommitSHA(), err)
			continue
		}
		for _, n := range nested {
			if n.MergedAt != nil && n.GetUser().GetLogin() == g.username {
				add(n, mergedAt)
			}
		}
	}
	g.logger.Printf("Completed fetching merged PRs for %s.", repo)
	return records, nil
}

// FetchReviewedPRs searches PRs reviewed by the user and authored by someone else.
func (g *GitHubGateway) FetchReviewedPRs(ctx context.Context, repos []string, since time.Time) ([]domain.RawActivityRecord, error) {
	g.logger.Println("Fetching reviewed PR data...")
	qualifiers := make([]string, 0, len(repos))
	for _, r := range repos {
		qualifiers = append(qualifiers, fmt.Sprintf("repo:%s/%s", g.owner, r))
	}
	query := fmt.Sprintf("%s is:pr reviewed-by:%s -author:%s updated:>=%s",
		strings.Join(qualifiers, " "), g.username, g.username, since.Format("2006-01-02"))

	variables := map[string]interface{}{"query": githubv4.String(query), "cursor": (*githubv4.String)(nil)}
	var records []domain.RawActivityRecord
	for {
		var q reviewedPRsQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to execute GraphQL query for reviewed PRs: %w", err)
		}
		for _, edge := range q.Search.Edges {
			pr := edge.Node.PullRequest
			if edge.Node.Typename != "PullRequest" {
				continue
			}
			url := pr.URL
			if url == "" {
				url = g.prURL(pr.Repository.Name, pr.Number)
			}
			records = append(records, domain.RawActivityRecord{
				Source:     domain.SourceReview,
				Repository: pr.Repository.Name,
				Title:      pr.Title,
				Start:      pr.UpdatedAt.Time,
				ExternalID: strconv.Itoa(pr.Number),
				URL:        url,
				Number:     pr.Number,
			})
		}
		if !q.Search.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Search.PageInfo.EndCursor)
		g.logger.Println("  Fetching next page of reviewed pull requests...")
	}
	g.logger.Println("Completed fetching reviewed PR data.")
	return records, nil
}
