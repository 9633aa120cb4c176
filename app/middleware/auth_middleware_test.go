package middleware_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/app/middleware"
	"github.com/amirphl/Lovelify-Dash/app/services"
	businessflow "github.com/amirphl/Lovelify-Dash/business_flow"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const serviceKey = "svc-key-0123456789"

type mockAuthFlow struct {
	mock.Mock
}

func (m *mockAuthFlow) Register(ctx context.Context, req *dto.RegisterRequest, md *businessflow.ClientMetadata) (*dto.AuthResponse, error) {
	args := m.Called(ctx, req, md)
	resp, _ := args.Get(0).(*dto.AuthResponse)
	return resp, args.Error(1)
}

func (m *mockAuthFlow) Login(ctx context.Context, req *dto.LoginRequest, md *businessflow.ClientMetadata) (*dto.AuthResponse, error) {
	args := m.Called(ctx, req, md)
	resp, _ := args.Get(0).(*dto.AuthResponse)
	return resp, args.Error(1)
}

func (m *mockAuthFlow) Refresh(ctx context.Context, req *dto.RefreshTokenRequest, md *businessflow.ClientMetadata) (*dto.AuthResponse, error) {
	args := m.Called(ctx, req, md)
	resp, _ := args.Get(0).(*dto.AuthResponse)
	return resp, args.Error(1)
}

func (m *mockAuthFlow) Logout(ctx context.Context, principal businessflow.Principal, req *dto.LogoutRequest, md *businessflow.ClientMetadata) error {
	return m.Called(ctx, principal, req, md).Error(0)
}

func (m *mockAuthFlow) Me(ctx context.Context, principal businessflow.Principal) (*dto.MeResponse, error) {
	args := m.Called(ctx, principal)
	resp, _ := args.Get(0).(*dto.MeResponse)
	return resp, args.Error(1)
}

func (m *mockAuthFlow) Authenticate(ctx context.Context, accessToken string) (*businessflow.Principal, error) {
	args := m.Called(ctx, accessToken)
	p, _ := args.Get(0).(*businessflow.Principal)
	return p, args.Error(1)
}

// whoami echoes what the middleware stored in locals
func whoami(c fiber.Ctx) error {
	p, ok := middleware.GetPrincipalFromContext(c)
	return c.JSON(fiber.Map{
		"authenticated": ok,
		"user_id":       p.UserID,
		"workspace_id":  p.WorkspaceID,
		"role":          string(p.Role),
		"machine":       middleware.IsMachineClient(c),
		"token":         middleware.GetAccessTokenFromContext(c),
	})
}

func newApp(flow *mockAuthFlow, apiKey string) *fiber.App {
	auth := middleware.NewAuthMiddleware(flow, apiKey, "")
	app := fiber.New()
	app.Get("/me", auth.Authenticate(), whoami)
	app.Post("/metrics", auth.AuthenticateOrAPIKey(), whoami)
	return app
}

func call(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return resp.StatusCode, body
}

func errorCode(body map[string]any) string {
	detail, _ := body["error"].(map[string]any)
	code, _ := detail["code"].(string)
	return code
}

func TestAuthenticate(t *testing.T) {
	principal := &businessflow.Principal{UserID: 11, WorkspaceID: 4, Role: models.UserRoleAdmin}

	t.Run("MissingHeader", func(t *testing.T) {
		flow := new(mockAuthFlow)
		status, body := call(t, newApp(flow, serviceKey), httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "MISSING_AUTHORIZATION_HEADER", errorCode(body))
		flow.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
	})

	t.Run("WrongScheme", func(t *testing.T) {
		flow := new(mockAuthFlow)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

		status, body := call(t, newApp(flow, serviceKey), req)

		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "INVALID_AUTHORIZATION_FORMAT", errorCode(body))
	})

	failures := []struct {
		name string
		err  error
		code string
	}{
		{"Expired", fmt.Errorf("validate: %w", services.ErrTokenExpired), "TOKEN_EXPIRED"},
		{"Revoked", services.ErrTokenRevoked, "TOKEN_REVOKED"},
		{"InactiveAccount", businessflow.NewBusinessError("ACCOUNT_INACTIVE", "Account is inactive", businessflow.ErrAccountInactive), "ACCOUNT_INACTIVE"},
		{"DeletedUser", businessflow.NewBusinessError("USER_NOT_FOUND", "User not found", businessflow.ErrUserNotFound), "TOKEN_INVALID"},
		{"Unexpected", fmt.Errorf("redis: connection refused"), "TOKEN_VALIDATION_FAILED"},
	}
	for _, tc := range failures {
		t.Run(tc.name, func(t *testing.T) {
			flow := new(mockAuthFlow)
			flow.On("Authenticate", mock.Anything, "tok").Return(nil, tc.err)
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set("Authorization", "Bearer tok")

			status, body := call(t, newApp(flow, serviceKey), req)

			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, tc.code, errorCode(body))
		})
	}

	t.Run("ValidTokenSetsPrincipal", func(t *testing.T) {
		flow := new(mockAuthFlow)
		flow.On("Authenticate", mock.Anything, "good").Return(principal, nil)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer good")

		status, body := call(t, newApp(flow, serviceKey), req)

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, body["authenticated"])
		assert.EqualValues(t, 11, body["user_id"])
		assert.EqualValues(t, 4, body["workspace_id"])
		assert.Equal(t, "admin", body["role"])
		assert.Equal(t, "good", body["token"])
		assert.Equal(t, false, body["machine"])
	})

	t.Run("QueryTokenForEventStreams", func(t *testing.T) {
		flow := new(mockAuthFlow)
		flow.On("Authenticate", mock.Anything, "sse").Return(principal, nil)

		status, body := call(t, newApp(flow, serviceKey), httptest.NewRequest(http.MethodGet, "/me?access_token=sse", nil))

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, body["authenticated"])
		flow.AssertExpectations(t)
	})
}

func TestAuthenticateOrAPIKey(t *testing.T) {
	t.Run("ServiceKey", func(t *testing.T) {
		flow := new(mockAuthFlow)
		req := httptest.NewRequest(http.MethodPost, "/metrics", nil)
		req.Header.Set("X-API-Key", serviceKey)

		status, body := call(t, newApp(flow, serviceKey), req)

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, body["machine"])
		assert.Equal(t, false, body["authenticated"])
		flow.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
	})

	t.Run("WrongServiceKey", func(t *testing.T) {
		flow := new(mockAuthFlow)
		req := httptest.NewRequest(http.MethodPost, "/metrics", nil)
		req.Header.Set("X-API-Key", "guess")

		status, body := call(t, newApp(flow, serviceKey), req)

		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "INVALID_API_KEY", errorCode(body))
	})

	t.Run("NoKeyConfigured", func(t *testing.T) {
		flow := new(mockAuthFlow)
		req := httptest.NewRequest(http.MethodPost, "/metrics", nil)
		req.Header.Set("X-API-Key", "anything")

		status, body := call(t, newApp(flow, ""), req)

		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "INVALID_API_KEY", errorCode(body))
	})

	t.Run("FallsBackToBearer", func(t *testing.T) {
		flow := new(mockAuthFlow)
		flow.On("Authenticate", mock.Anything, "user-token").
			Return(&businessflow.Principal{UserID: 2, WorkspaceID: 9, Role: models.UserRoleMember}, nil)
		req := httptest.NewRequest(http.MethodPost, "/metrics", nil)
		req.Header.Set("Authorization", "Bearer user-token")

		status, body := call(t, newApp(flow, serviceKey), req)

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, false, body["machine"])
		assert.EqualValues(t, 9, body["workspace_id"])
	})
}
