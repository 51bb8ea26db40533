package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/naka-gawa/weekly-report/internal/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "WEEKLY_REPORT"

// settingsViper resolves flags, environment and the optional config file.
var settingsViper = viper.New()

// legacyEnv lists, per setting key, the unprefixed variable names that
// existing .env files use. The prefixed name always wins.
var legacyEnv = map[string][]string{
	"github.token":            {"GITHUB_PERSONAL_ACCESS_TOKEN", "GITHUB_TOKEN"},
	"github.username":         {"GITHUB_USERNAME"},
	"github.owner":            {"REPO_OWNER"},
	"github.repos":            {"REPOS"},
	"sonarqube.token":         {"SONARQUBE_USER_TOKEN"},
	"sonarqube.base-url":      {"SONARQUBE_BASE_URL"},
	"sonarqube.components":    {"SONARQUBE_COMPONENTS"},
	"google.credentials-file": {"GOOGLE_CREDENTIALS_FILE"},
	"mail.send-to":            {"GMAIL_SEND_TO"},
	"mail.send-cc":            {"GMAIL_SEND_CC"},
	"gemini-api-key":          {"GOOGLE_GEMINI_API_KEY"},
	"groq-api-key":            {"GROQ_API_KEY"},
	"openai-api-key":          {"OPENAI_API_KEY"},
}

var prefixedOnly = []string{
	"mail.sync-sender",
	"llm.priority",
	"timezone",
	"output-dir",
	"template",
	"archive",
	"required",
}

// builtinProviders are used when the config file declares no provider.
// Their keys come from <name>-api-key.
var builtinProviders = []config.ProviderSettings{
	{Name: "gemini", BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai/", Model: "gemini-2.0-flash"},
	{Name: "groq", BaseURL: "https://api.groq.com/openai/v1/", Model: "llama-3.3-70b-versatile"},
	{Name: "openai", Model: "gpt-4o-mini"},
}

func bindFlag(key string, flag *pflag.Flag) {
	if err := settingsViper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %s: %v", key, err))
	}
}

func envName(key string) string {
	return envPrefix + "_" + strings.NewReplacer(".", "_", "-", "_").Replace(strings.ToUpper(key))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	return configure(settingsViper)
}

func configure(v *viper.Viper) error {
	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".weekly-report")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		if err := v.BindEnv(append([]string{key, envName(key)}, names...)...); err != nil {
			return fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}
	for _, key := range prefixedOnly {
		if err := v.BindEnv(key, envName(key)); err != nil {
			return fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}

	v.SetDefault("timezone", "Asia/Jakarta")
	v.SetDefault("output-dir", "output")
	v.SetDefault("archive", ".weekly-report/history.db")
	v.SetDefault("llm.priority", []string{"gemini", "groq", "openai"})
	v.SetDefault("required", []string{"github"})

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// loadSettings unmarshals the resolved configuration.
func loadSettings(v *viper.Viper) (config.Settings, error) {
	var s config.Settings
	if err := v.Unmarshal(&s); err != nil {
		return config.Settings{}, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	s.Normalize()

	if len(s.LLM.Providers) == 0 {
		s.LLM.Providers = append([]config.ProviderSettings(nil), builtinProviders...)
	}
	for i, p := range s.LLM.Providers {
		if p.APIKey == "" {
			s.LLM.Providers[i].APIKey = v.GetString(p.Name + "-api-key")
		}
	}
	return s, nil
}

func loadLocation(s config.Settings) (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}
