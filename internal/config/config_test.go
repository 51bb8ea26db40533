package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/naka-gawa/weekly-report/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleUserData = `
author_name = "Jane Doe"
issues = []
wfo_days = [1, 2, 5]
next_steps = ["Ship the exporter"]
learning = ["[Clean Architecture](https://example.com) by Robert C. Martin (Chapter 26/34)"]
excluded_meetings = ["Lunch"]

[[bugs]]
period = "2026-10"
severity = "major"
count = 1

[[bugs]]
period = "2026-H2"
severity = "minor"
count = 3

[extra]
team = "Platform"
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "user_data.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadUserData(t *testing.T) {
	data, err := LoadUserData(writeFile(t, sampleUserData))
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", data.AuthorName)
	assert.Equal(t, []int{1, 2, 5}, data.WFODays)
	assert.Equal(t, []domain.BugCount{
		{Period: "2026-10", Severity: domain.SeverityMajor, Count: 1},
		{Period: "2026-H2", Severity: domain.SeverityMinor, Count: 3},
	}, data.Bugs)
	assert.Equal(t, map[string]string{"team": "Platform"}, data.Extra)
	assert.Equal(t, DefaultEmailTemplate, data.EmailTemplate)
}

func TestLoadUserData_Invalid(t *testing.T) {
	testCases := []struct {
		name           string
		content        string
		expectedErrMsg string
	}{
		{
			name:           "weekend day",
			content:        "wfo_days = [6]",
			expectedErrMsg: "day 6",
		},
		{
			name:           "bad bug period",
			content:        "[[bugs]]\nperiod = \"October\"\nseverity = \"major\"\ncount = 1",
			expectedErrMsg: "bug period",
		},
		{
			name:           "bad severity",
			content:        "[[bugs]]\nperiod = \"2026-10\"\nseverity = \"critical\"\ncount = 1",
			expectedErrMsg: "severity",
		},
		{
			name:           "negative count",
			content:        "[[bugs]]\nperiod = \"2026-10\"\nseverity = \"minor\"\ncount = -1",
			expectedErrMsg: "negative",
		},
		{
			name:           "not toml",
			content:        "author_name = ",
			expectedErrMsg: "failed to decode",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadUserData(writeFile(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expectedErrMsg)
		})
	}
}

func TestSettings_Normalize(t *testing.T) {
	s := Settings{
		GitHub: GitHubSettings{Repos: []string{"api, web ,", "cli"}},
		Mail:   MailSettings{SendTo: []string{"a@example.com,b@example.com"}},
	}
	s.Normalize()

	assert.Equal(t, []string{"api", "web", "cli"}, s.GitHub.Repos)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, s.Mail.SendTo)
	assert.Equal(t, []domain.Adapter{domain.AdapterGitHub}, s.RequiredAdapters())
}

func TestLLMSettings_OrderedProviders(t *testing.T) {
	l := LLMSettings{
		Priority: []string{"groq", "gemini"},
		Providers: []ProviderSettings{
			{Name: "openai", Model: "gpt-4.1-mini", APIKey: "k1"},
			{Name: "gemini", Model: "gemini-2.0-flash", APIKey: "k2"},
			{Name: "groq", Model: "llama-3.3-70b-versatile", APIKey: "k3"},
			{Name: "nokey", Model: "m"},
		},
	}

	var names []string
	for _, p := range l.OrderedProviders() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"groq", "gemini", "openai"}, names)
}

func TestParseComponents(t *testing.T) {
	components, err := ParseComponents([]string{"core-api:src/main/java/personnel", "web%3Asrc%2Fapp", "invalid"})
	require.NoError(t, err)
	assert.Equal(t, []Component{
		{Project: "core-api", Path: "src/main/java/personnel"},
		{Project: "web", Path: "src/app"},
	}, components)
}
