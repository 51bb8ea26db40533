package domain

import "fmt"

// DefaultTargetCoverage is the coverage percentage every component is expected to reach.
const DefaultTargetCoverage = 97

// CoverageMetric holds the test coverage of a single tracked component.
type CoverageMetric struct {
	Project          string  `json:"project"`
	ComponentPath    string  `json:"component_path"`
	Name             string  `json:"name"`
	Percentage       float64 `json:"percentage"`
	HasValue         bool    `json:"has_value"`
	TargetPercentage float64 `json:"target_percentage"`
	URL              string  `json:"url"`
}

// Key returns the "project:path" component key used by the coverage service.
func (c CoverageMetric) Key() string {
	return fmt.Sprintf("%s:%s", c.Project, c.ComponentPath)
}

// Severity classifies a bug counter.
type Severity string

const (
	SeverityMajor Severity = "major"
	SeverityMinor Severity = "minor"
)

// BugCount is a user-supplied bug counter tagged with a month ("2026-10")
// or a half-year ("2026-H2").
type BugCount struct {
	Period   string   `toml:"period" json:"period"`
	Severity Severity `toml:"severity" json:"severity"`
	Count    int      `toml:"count" json:"count"`
}
