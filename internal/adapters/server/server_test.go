package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/evanschultz/mailkan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopService struct{}

func (nopService) LoadBoardFiltered(context.Context, domain.BoardFilter) (domain.Board, error) {
	return domain.Board{}, nil
}
func (nopService) MoveCardTo(context.Context, string, string) error { return nil }
func (nopService) SnoozeCard(context.Context, string, string) (time.Time, error) {
	return time.Time{}, nil
}
func (nopService) ListColumns(context.Context) ([]domain.Column, error)         { return nil, nil }
func (nopService) ListGmailLabels(context.Context) ([]domain.GmailLabel, error) { return nil, nil }
func (nopService) SemanticSearch(context.Context, string, int) (domain.SemanticPage, error) {
	return domain.SemanticPage{}, nil
}
func (nopService) Statistics(context.Context, domain.Period) (domain.Statistics, error) {
	return domain.Statistics{}, nil
}

type fixedConnectivity bool

func (c fixedConnectivity) Offline() bool { return bool(c) }

func TestNormalizeConfig(t *testing.T) {
	got, err := normalizeConfig(Config{MCPEndpoint: "tools/"})
	require.NoError(t, err)
	assert.Equal(t, Config{
		HTTPBind:      defaultBindAddress,
		MCPEndpoint:   "/tools",
		ServerName:    "mailkan",
		ServerVersion: "dev",
	}, got)

	_, err = normalizeConfig(Config{MCPEndpoint: "/healthz"})
	assert.Error(t, err)
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "/mcp"},
		{"/", "/mcp"},
		{"mcp", "/mcp"},
		{"/a/b/", "/a/b"},
		{"  /x  ", "/x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeEndpoint(tt.in, "/mcp"), tt.in)
	}
}

func TestNewHandlerRequiresService(t *testing.T) {
	_, _, err := NewHandler(Config{}, Dependencies{})
	assert.Error(t, err)
}

func TestHealthAndReadiness(t *testing.T) {
	tests := []struct {
		name       string
		conn       Connectivity
		wantStatus string
	}{
		{name: "no reporter", conn: nil, wantStatus: "ok"},
		{name: "online", conn: fixedConnectivity(false), wantStatus: "ok"},
		{name: "offline", conn: fixedConnectivity(true), wantStatus: "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _, err := NewHandler(Config{}, Dependencies{Service: nopService{}, Connectivity: tt.conn})
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

			rec = httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			require.Equal(t, http.StatusOK, rec.Code)
			var body struct {
				Status  string `json:"status"`
				Offline bool   `json:"offline"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantStatus == "degraded", body.Offline)
		})
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{HTTPBind: "127.0.0.1:0"}, Dependencies{Service: nopService{}})
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
