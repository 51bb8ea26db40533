package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/naka-gawa/weekly-report/internal/config"
	"github.com/naka-gawa/weekly-report/internal/domain"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatBackend_Complete(t *testing.T) {
	testCases := []struct {
		name           string
		status         int
		responseBody   string
		expected       string
		expectedErrMsg string
	}{
		{
			name:         "happy path",
			status:       http.StatusOK,
			responseBody: `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"* summary"}}]}`,
			expected:     "* summary",
		},
		{
			name:           "no choices",
			status:         http.StatusOK,
			responseBody:   `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`,
			expectedErrMsg: "primary returned no choices",
		},
		{
			name:           "provider error",
			status:         http.StatusTooManyRequests,
			responseBody:   `{"error":{"message":"rate limited"}}`,
			expectedErrMsg: "failed to complete with primary",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

				var req struct {
					Model    string `json:"model"`
					Messages []struct {
						Role    string `json:"role"`
						Content string `json:"content"`
					} `json:"messages"`
				}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "model-a", req.Model)
				require.Len(t, req.Messages, 2)
				assert.Equal(t, "system", req.Messages[0].Role)
				assert.Equal(t, "sys", req.Messages[0].Content)
				assert.Equal(t, "user", req.Messages[1].Role)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.responseBody)
			}))
			defer server.Close()

			backend := NewChatBackend(config.ProviderSettings{
				Name:    "primary",
				BaseURL: server.URL + "/",
				Model:   "model-a",
				APIKey:  "key",
			}, option.WithMaxRetries(0))
			assert.Equal(t, "primary", backend.Name())

			got, err := backend.Complete(context.Background(), domain.Prompt{System: "sys", User: "usr"})
			if tc.expectedErrMsg != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErrMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}
