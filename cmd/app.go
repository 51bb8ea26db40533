package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/naka-gawa/weekly-report/internal/config"
	"github.com/naka-gawa/weekly-report/internal/gateway"
	"github.com/naka-gawa/weekly-report/internal/summarize"
	"github.com/naka-gawa/weekly-report/internal/usecase"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"
)

// app carries what every command needs: resolved settings, the report
// timezone and the injected logger.
type app struct {
	settings config.Settings
	loc      *time.Location
	logger   *log.Logger
}

func newApp(cmd *cobra.Command) (*app, error) {
	settings, err := loadSettings(settingsViper)
	if err != nil {
		return nil, err
	}
	loc, err := loadLocation(settings)
	if err != nil {
		return nil, err
	}
	return &app{settings: settings, loc: loc, logger: newLogger(cmd)}, nil
}

func (a *app) userData() (config.UserData, error) {
	return config.LoadUserData(a.settings.UserDataPath)
}

// googleOptions authorizes the Google API clients with the stored user credentials.
func (a *app) googleOptions(ctx context.Context) ([]option.ClientOption, error) {
	if a.settings.Google.CredentialsFile == "" {
		return nil, errors.New("google.credentials-file is not configured")
	}
	client, err := gateway.NewGoogleHTTPClient(ctx, a.settings.Google.CredentialsFile)
	if err != nil {
		return nil, err
	}
	return []option.ClientOption{option.WithHTTPClient(client)}, nil
}

// sources builds every adapter that is configured. Unconfigured adapters stay nil
// so the collector can tell "not configured" from "failed".
func (a *app) sources(ctx context.Context) (usecase.Sources, error) {
	var src usecase.Sources
	gh := a.settings.GitHub
	if gh.Token != "" && gh.Owner != "" && gh.Username != "" {
		github, err := gateway.NewGitHubGateway(gh.Token, gh.Owner, gh.Username, a.logger)
		if err != nil {
			return src, fmt.Errorf("failed to create GitHub gateway: %w", err)
		}
		src.GitHub = github
		src.Repos = gh.Repos
	} else {
		a.logger.Println("GitHub is not configured (token, owner and username are required)")
	}

	sq := a.settings.SonarQube
	if sq.Token != "" && sq.BaseURL != "" {
		components, err := config.ParseComponents(sq.Components)
		if err != nil {
			return src, err
		}
		src.SonarQube = gateway.NewSonarQubeGateway(sq.BaseURL, sq.Token, a.logger)
		src.Components = components
	}

	if opts, err := a.googleOptions(ctx); err != nil {
		a.logger.Printf("Google adapters disabled: %v", err)
	} else {
		calendar, err := gateway.NewCalendarGateway(ctx, a.loc, a.logger, opts...)
		if err != nil {
			return src, err
		}
		gmail, err := gateway.NewGmailGateway(ctx, a.loc, a.logger, opts...)
		if err != nil {
			return src, err
		}
		src.Calendar = calendar
		src.Forms = gmail
	}
	return src, nil
}

// backends returns the LLM providers in priority order.
func (a *app) backends() []summarize.Backend {
	var out []summarize.Backend
	for _, p := range a.settings.LLM.OrderedProviders() {
		a.logger.Printf("LLM backend %s (%s)", p.Name, p.Model)
		out = append(out, gateway.NewChatBackend(p))
	}
	return out
}

func (a *app) drafter(ctx context.Context) (*usecase.Drafter, error) {
	opts, err := a.googleOptions(ctx)
	if err != nil {
		return nil, err
	}
	gmail, err := gateway.NewGmailGateway(ctx, a.loc, a.logger, opts...)
	if err != nil {
		return nil, err
	}
	return usecase.NewDrafter(gmail, a.logger), nil
}
