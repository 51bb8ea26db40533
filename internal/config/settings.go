package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/naka-gawa/weekly-report/internal/domain"
)

// Settings is the resolved service configuration.
// Field tags match the keys viper resolves from flags, env and the config file.
type Settings struct {
	GitHub    GitHubSettings    `mapstructure:"github"`
	SonarQube SonarQubeSettings `mapstructure:"sonarqube"`
	Google    GoogleSettings    `mapstructure:"google"`
	Mail      MailSettings      `mapstructure:"mail"`
	LLM       LLMSettings       `mapstructure:"llm"`

	Timezone     string   `mapstructure:"timezone"`
	OutputDir    string   `mapstructure:"output-dir"`
	TemplatePath string   `mapstructure:"template"`
	UserDataPath string   `mapstructure:"user-data"`
	ArchivePath  string   `mapstructure:"archive"`
	Required     []string `mapstructure:"required"`
}

type GitHubSettings struct {
	Token    string   `mapstructure:"token"`
	Username string   `mapstructure:"username"`
	Owner    string   `mapstructure:"owner"`
	Repos    []string `mapstructure:"repos"`
}

type SonarQubeSettings struct {
	Token      string   `mapstructure:"token"`
	BaseURL    string   `mapstructure:"base-url"`
	Components []string `mapstructure:"components"`
}

type GoogleSettings struct {
	// CredentialsFile is an authorized-user token file produced by an OAuth consent flow.
	CredentialsFile string `mapstructure:"credentials-file"`
}

type MailSettings struct {
	SendTo     []string `mapstructure:"send-to"`
	SendCC     []string `mapstructure:"send-cc"`
	SyncSender string   `mapstructure:"sync-sender"`
}

type LLMSettings struct {
	Priority  []string           `mapstructure:"priority"`
	Providers []ProviderSettings `mapstructure:"providers"`
}

// ProviderSettings describes one OpenAI-compatible chat completions provider.
type ProviderSettings struct {
	Name    string `mapstructure:"name"`
	BaseURL string `mapstructure:"base-url"`
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api-key"`
}

// Normalize trims list entries that came in as comma-separated env values.
func (s *Settings) Normalize() {
	s.GitHub.Repos = cleanList(s.GitHub.Repos)
	s.SonarQube.Components = cleanList(s.SonarQube.Components)
	s.Mail.SendTo = cleanList(s.Mail.SendTo)
	s.Mail.SendCC = cleanList(s.Mail.SendCC)
	s.LLM.Priority = cleanList(s.LLM.Priority)
	s.Required = cleanList(s.Required)
}

func cleanList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// RequiredAdapters returns the adapters whose failure aborts a run.
func (s Settings) RequiredAdapters() []domain.Adapter {
	if len(s.Required) == 0 {
		return []domain.Adapter{domain.AdapterGitHub}
	}
	out := make([]domain.Adapter, 0, len(s.Required))
	for _, r := range s.Required {
		out = append(out, domain.Adapter(r))
	}
	return out
}

// OrderedProviders returns the configured providers that have an API key,
// ordered by Priority. Providers missing from Priority keep their relative order at the end.
func (l LLMSettings) OrderedProviders() []ProviderSettings {
	var usable []ProviderSettings
	for _, p := range l.Providers {
		if p.APIKey != "" && p.Model != "" {
			usable = append(usable, p)
		}
	}
	rank := func(name string) int {
		if i := slices.Index(l.Priority, name); i >= 0 {
			return i
		}
		return len(l.Priority)
	}
	slices.SortStableFunc(usable, func(a, b ProviderSettings) int {
		return rank(a.Name) - rank(b.Name)
	})
	return usable
}

// Component is a coverage component in "project:path" form.
type Component struct {
	Project string
	Path    string
}

// ParseComponents parses "project:path" entries. Entries may be URL-encoded;
// entries without a colon are skipped.
func ParseComponents(entries []string) ([]Component, error) {
	var out []Component
	for _, e := range entries {
		decoded, err := url.QueryUnescape(strings.TrimSpace(e))
		if err != nil {
			return nil, fmt.Errorf("failed to decode component %q: %w", e, err)
		}
		project, path, ok := strings.Cut(decoded, ":")
		if !ok {
			continue
		}
		out = append(out, Component{Project: strings.TrimSpace(project), Path: strings.TrimSpace(path)})
	}
	return out, nil
}
