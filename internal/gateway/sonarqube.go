package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/naka-gawa/weekly-report/internal/config"
	"github.com/naka-gawa/weekly-report/internal/domain"
)

// CoverageFetcher reads coverage measures for a set of components.
type CoverageFetcher interface {
	FetchCoverage(ctx context.Context, components []config.Component) ([]domain.CoverageMetric, error)
}

// SonarQubeGateway reads the "coverage" measure from the SonarQube web API.
type SonarQubeGateway struct {
	client  *http.Client
	baseURL string
	token   string
	logger  *log.Logger
}

var _ CoverageFetcher = &SonarQubeGateway{}

type measuresResponse struct {
	Component struct {
		Name     string `json:"name"`
		Measures []struct {
			Metric string `json:"metric"`
			Value  string `json:"value"`
		} `json:"measures"`
	} `json:"component"`
}

func NewSonarQubeGateway(baseURL, token string, logger *log.Logger) *SonarQubeGateway {
	return &SonarQubeGateway{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		token:   token,
		logger:  logger,
	}
}

// FetchCoverage returns one metric per component, in input order. A component the server
// rejects is kept without a value; a transport failure aborts the whole fetch.
func (g *SonarQubeGateway) FetchCoverage(ctx context.Context, components []config.Component) ([]domain.CoverageMetric, error) {
	g.logger.Printf("Fetching coverage for %d components...", len(components))
	metrics := make([]domain.CoverageMetric, 0, len(components))
	for _, c := range components {
		m := domain.CoverageMetric{
			Project:          c.Project,
			ComponentPath:    c.Path,
			Name:             c.Path,
			TargetPercentage: domain.DefaultTargetCoverage,
			URL:              g.browseURL(c),
		}
		resp, err := g.fetchMeasure(ctx, c)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			if resp.Component.Name != "" {
				m.Name = resp.Component.Name
			}
			for _, measure := range resp.Component.Measures {
				if measure.Metric != "coverage" {
					continue
				}
				v, err := strconv.ParseFloat(measure.Value, 64)
				if err != nil {
					g.logger.Printf("  Ignoring coverage value %q of %s: %v", measure.Value, c.Path, err)
					continue
				}
				m.Percentage = v
				m.HasValue = true
			}
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

func (g *SonarQubeGateway) browseURL(c config.Component) string {
	q := url.Values{}
	q.Set("id", c.Project)
	q.Set("selected", c.Project+":"+c.Path)
	return fmt.Sprintf("%s/code?%s", g.baseURL, q.Encode())
}

func (g *SonarQubeGateway) fetchMeasure(ctx context.Context, c config.Component) (*measuresResponse, error) {
	q := url.Values{}
	q.Set("component", c.Project+":"+c.Path)
	q.Set("metricKeys", "coverage")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/measures/component?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build coverage request: %w", err)
	}
	req.SetBasicAuth(g.token, "")

	res, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch coverage for %s: %w", c.Path, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		g.logger.Printf("  Coverage request for %s returned %s", c.Path, res.Status)
		return nil, nil
	}
	var body measuresResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode coverage for %s: %w", c.Path, err)
	}
	return &body, nil
}
