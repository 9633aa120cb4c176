// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/app/services"
	businessflow "github.com/amirphl/Lovelify-Dash/business_flow"
	"github.com/gofiber/fiber/v3"
)

// Locals keys set by the auth middleware
const (
	LocalUserID      = "user_id"
	LocalWorkspaceID = "workspace_id"
	LocalUserRole    = "user_role"
	LocalPrincipal   = "principal"
	LocalAccessToken = "access_token"
	LocalMachine     = "machine_client"
)

const authTimeout = 5 * time.Second

// AuthMiddleware resolves bearer tokens and service keys to request principals
type AuthMiddleware struct {
	authFlow     businessflow.AuthFlow
	apiKey       string
	apiKeyHeader string
}

// NewAuthMiddleware creates the middleware. apiKey is the service key machine clients present in apiKeyHeader.
func NewAuthMiddleware(authFlow businessflow.AuthFlow, apiKey, apiKeyHeader string) *AuthMiddleware {
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	return &AuthMiddleware{
		authFlow:     authFlow,
		apiKey:       apiKey,
		apiKeyHeader: apiKeyHeader,
	}
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

// bearerToken extracts the token from the Authorization header, or from access_token for event streams
func bearerToken(c fiber.Ctx) (string, string, string) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		// EventSource cannot set headers
		if token := c.Query("access_token"); token != "" {
			return token, "", ""
		}
		return "", "Authorization header is required", "MISSING_AUTHORIZATION_HEADER"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "Invalid authorization header format. Expected 'Bearer <token>'", "INVALID_AUTHORIZATION_FORMAT"
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", "Access token is required", "MISSING_ACCESS_TOKEN"
	}
	return token, "", ""
}

// Authenticate requires a valid access token of an active user
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, msg, code := bearerToken(c)
		if token == "" {
			return unauthorized(c, msg, code)
		}
		return m.authenticate(c, token)
	}
}

// AuthenticateOrAPIKey accepts either the service key or a user access token
func (m *AuthMiddleware) AuthenticateOrAPIKey() fiber.Handler {
	return func(c fiber.Ctx) error {
		if key := c.Get(m.apiKeyHeader); key != "" {
			if m.apiKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) != 1 {
				return unauthorized(c, "Invalid API key", "INVALID_API_KEY")
			}
			c.Locals(LocalMachine, true)
			return c.Next()
		}

		token, msg, code := bearerToken(c)
		if token == "" {
			return unauthorized(c, msg, code)
		}
		return m.authenticate(c, token)
	}
}

func (m *AuthMiddleware) authenticate(c fiber.Ctx, token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	principal, err := m.authFlow.Authenticate(ctx, token)
	if err != nil {
		var code, message string
		switch {
		case errors.Is(err, services.ErrTokenExpired):
			code, message = "TOKEN_EXPIRED", "Access token has expired"
		case errors.Is(err, services.ErrTokenRevoked):
			code, message = "TOKEN_REVOKED", "Access token has been revoked"
		case businessflow.IsAccountInactive(err):
			code, message = "ACCOUNT_INACTIVE", "Account is inactive"
		case businessflow.IsInvalidToken(err), businessflow.IsUserNotFound(err):
			code, message = "TOKEN_INVALID", "Invalid access token"
		default:
			code, message = "TOKEN_VALIDATION_FAILED", "Token validation failed"
		}
		return unauthorized(c, message, code)
	}

	c.Locals(LocalUserID, principal.UserID)
	c.Locals(LocalWorkspaceID, principal.WorkspaceID)
	c.Locals(LocalUserRole, string(principal.Role))
	c.Locals(LocalPrincipal, *principal)
	c.Locals(LocalAccessToken, token)

	if requestID := c.Get("X-Request-ID"); requestID != "" {
		c.Locals("request_id", requestID)
	}

	return c.Next()
}

// GetPrincipalFromContext returns the authenticated principal
func GetPrincipalFromContext(c fiber.Ctx) (businessflow.Principal, bool) {
	principal, ok := c.Locals(LocalPrincipal).(businessflow.Principal)
	return principal, ok && principal.UserID != 0 && principal.WorkspaceID != 0
}

// IsMachineClient reports whether the request was authenticated with the service key
func IsMachineClient(c fiber.Ctx) bool {
	machine, _ := c.Locals(LocalMachine).(bool)
	return machine
}

// GetAccessTokenFromContext returns the bearer token the request was authenticated with
func GetAccessTokenFromContext(c fiber.Ctx) string {
	token, _ := c.Locals(LocalAccessToken).(string)
	return token
}
