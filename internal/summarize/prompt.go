package summarize

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/naka-gawa/weekly-report/internal/domain"
	"github.com/naka-gawa/weekly-report/internal/render"
)

var (
	//go:embed prompts/system.md
	systemPrompt string
	//go:embed prompts/user.md
	userPrompt string
)

// BuildPrompt serializes the pull requests of one repository into the prompt contract.
func BuildPrompt(repo string, prs []domain.RawActivityRecord) (domain.Prompt, error) {
	user, err := render.String(userPrompt, map[string]string{
		"repository":    repo,
		"pull_requests": serialize(repo, prs),
	})
	if err != nil {
		return domain.Prompt{}, fmt.Errorf("failed to render prompt: %w", err)
	}
	return domain.Prompt{System: strings.TrimSpace(systemPrompt), User: user}, nil
}

func serialize(repo string, prs []domain.RawActivityRecord) string {
	var sb strings.Builder
	for i, pr := range prs {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "* %s [%s#%d](%s)\n", pr.Title, repo, pr.Number, pr.URL)
		for _, line := range strings.Split(strings.TrimSpace(pr.Body), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			fmt.Fprintf(&sb, "    %s\n", strings.TrimRight(line, " \t"))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
