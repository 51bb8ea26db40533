// Package domain contains the core data structures shared by the report pipeline.
package domain

import "time"

// Source identifies which kind of activity a RawActivityRecord describes.
type Source string

const (
	SourcePR         Source = "pr"
	SourceCommit     Source = "commit"
	SourceReview     Source = "review"
	SourceDeployment Source = "deployment" // a PR merged into a base branch
	SourceForm       Source = "form"
	SourceEvent      Source = "event"
)

// RawActivityRecord is one normalized item fetched by a service adapter.
// Records are values; the builder derives modified copies instead of mutating them.
type RawActivityRecord struct {
	Source     Source    `json:"source"`
	Repository string    `json:"repository,omitempty"`
	Title      string    `json:"title"`
	Body       string    `json:"body,omitempty"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end,omitempty"`
	ExternalID string    `json:"external_id"`
	URL        string    `json:"url"`
	// Number is the PR number. For commits it is the number of the PR the commit belongs to.
	Number  int    `json:"number,omitempty"`
	BaseRef string `json:"base_ref,omitempty"`
}

// HasEnd reports whether the record carries an end timestamp.
func (r RawActivityRecord) HasEnd() bool {
	return !r.End.IsZero()
}
