package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/gmail/v1"
)

// GoogleScopes are the scopes every Google adapter needs.
var GoogleScopes = []string{
	calendar.CalendarReadonlyScope,
	gmail.GmailReadonlyScope,
	gmail.GmailComposeScope,
	docs.DocumentsScope,
}

// NewGoogleHTTPClient builds an authorized client from a stored credentials file
// (an "authorized_user" or "service_account" JSON). The consent flow that produces it is not part of this tool.
func NewGoogleHTTPClient(ctx context.Context, credentialsFile string) (*http.Client, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read Google credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, GoogleScopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Google credentials: %w", err)
	}
	client := oauth2.NewClient(ctx, creds.TokenSource)
	client.Timeout = 60 * time.Second
	return client, nil
}
