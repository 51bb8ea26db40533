package domain

import (
	"fmt"
	"strings"
)

// StatusSentinel is the fixed value of the Status field; the author fills it in by hand.
const StatusSentinel = "leave_this_blank"

// PrSummaryEntry is the summarized form of one pull request.
type PrSummaryEntry struct {
	Title         string   `json:"title"`
	Number        int      `json:"number"`
	URL           string   `json:"url"`
	Description   string   `json:"description"`
	Status        string   `json:"status"`
	ChangeBullets []string `json:"change_bullets"`
}

// SummaryBlock groups the summarized PRs of one repository.
type SummaryBlock struct {
	Repository  string           `json:"repository"`
	DisplayName string           `json:"display_name"`
	Entries     []PrSummaryEntry `json:"entries"`
	// Fallback is set when the block was built from raw titles only.
	Fallback bool `json:"fallback"`
}

// Markdown renders the entries of the block in the report bullet format.
func (b SummaryBlock) Markdown() string {
	var sb strings.Builder
	for i, e := range b.Entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "* %s [#%d](%s)\n", e.Title, e.Number, e.URL)
		fmt.Fprintf(&sb, "    * **Description:** %s\n", e.Description)
		fmt.Fprintf(&sb, "    * **Status:** %s\n", e.Status)
		sb.WriteString("    * **Key Changes Implemented:**\n")
		for _, bullet := range e.ChangeBullets {
			fmt.Fprintf(&sb, "        * %s\n", bullet)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Prompt is one request to a summarization backend.
type Prompt struct {
	System string
	User   string
}
