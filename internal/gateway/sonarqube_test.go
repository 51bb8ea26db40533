package gateway

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/naka-gawa/weekly-report/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSonarQubeGateway_FetchCoverage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "sonar-token", user)
		assert.Equal(t, "/api/measures/component", r.URL.Path)

		switch r.URL.Query().Get("component") {
		case "proj:src/a":
			fmt.Fprint(w, `{"component":{"name":"a","measures":[{"metric":"coverage","value":"98.5"}]}}`)
		case "proj:src/b":
			fmt.Fprint(w, `{"component":{"name":"b","measures":[]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"errors":[{"msg":"not found"}]}`)
		}
	}))
	defer server.Close()

	gw := NewSonarQubeGateway(server.URL, "sonar-token", log.New(io.Discard, "", 0))
	metrics, err := gw.FetchCoverage(context.Background(), []config.Component{
		{Project: "proj", Path: "src/a"},
		{Project: "proj", Path: "src/b"},
		{Project: "proj", Path: "src/missing"},
	})
	require.NoError(t, err)
	require.Len(t, metrics, 3)

	assert.Equal(t, "a", metrics[0].Name)
	assert.True(t, metrics[0].HasValue)
	assert.InDelta(t, 98.5, metrics[0].Percentage, 1e-9)
	assert.Equal(t, float64(97), metrics[0].TargetPercentage)
	assert.Contains(t, metrics[0].URL, server.URL+"/code?")
	assert.Contains(t, metrics[0].URL, "selected=proj%3Asrc%2Fa")

	assert.Equal(t, "b", metrics[1].Name)
	assert.False(t, metrics[1].HasValue)

	assert.Equal(t, "src/missing", metrics[2].Name)
	assert.False(t, metrics[2].HasValue)
}

func TestSonarQubeGateway_FetchCoverage_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	gw := NewSonarQubeGateway(server.URL, "t", log.New(io.Discard, "", 0))
	_, err := gw.FetchCoverage(context.Background(), []config.Component{{Project: "p", Path: "x"}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch coverage for x")
}
