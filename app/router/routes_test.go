package router_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amirphl/Lovelify-Dash/app/router"
	"github.com/amirphl/Lovelify-Dash/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type setupResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Status  string   `json:"status"`
		Missing []string `json:"missing"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Details struct {
			Missing      []string `json:"missing"`
			Instructions []string `json:"instructions"`
		} `json:"details"`
	} `json:"error"`
}

func newSetupRouter(t *testing.T) router.Router {
	t.Helper()
	r := router.NewSetupRequiredRouter(&config.MissingEnvError{Vars: []string{config.EnvBackendURL, config.EnvBackendKey}}, zap.NewNop())
	r.SetupRoutes()
	return r
}

func get(t *testing.T, r router.Router, method, path string) (int, setupResponse) {
	t.Helper()
	resp, err := r.GetApp().Test(httptest.NewRequest(method, path, nil))
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body setupResponse
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return resp.StatusCode, body
}

func TestSetupRequiredRouter(t *testing.T) {
	r := newSetupRouter(t)

	t.Run("HealthReportsSetupRequired", func(t *testing.T) {
		status, body := get(t, r, http.MethodGet, "/api/v1/health")

		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Equal(t, "setup_required", body.Data.Status)
		assert.ElementsMatch(t, []string{"BACKEND_URL", "BACKEND_KEY"}, body.Data.Missing)
	})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/campaigns"},
		{http.MethodPost, "/api/v1/auth/login"},
		{http.MethodPost, "/api/v1/metrics"},
		{http.MethodGet, "/no/such/route"},
	} {
		t.Run(tc.method+tc.path, func(t *testing.T) {
			status, body := get(t, r, tc.method, tc.path)

			assert.Equal(t, http.StatusServiceUnavailable, status)
			assert.False(t, body.Success)
			assert.Equal(t, "SETUP_REQUIRED", body.Error.Code)
			assert.Equal(t, []string{"BACKEND_URL", "BACKEND_KEY"}, body.Error.Details.Missing)
			assert.Len(t, body.Error.Details.Instructions, 3)
		})
	}

	t.Run("EchoesRequestID", func(t *testing.T) {
		resp, err := r.GetApp().Test(httptest.NewRequest(http.MethodGet, "/api/v1/campaigns", nil))
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	})
}
