package handlers

import (
	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/app/middleware"
	businessflow "github.com/amirphl/Lovelify-Dash/business_flow"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Register(c fiber.Ctx) error
	Login(c fiber.Ctx) error
	Refresh(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
	Me(c fiber.Ctx) error
}

// AuthHandler handles registration, login and token lifecycle requests
type AuthHandler struct {
	baseHandler
	authFlow businessflow.AuthFlow
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authFlow businessflow.AuthFlow, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(logger),
		authFlow:    authFlow,
	}
}

// Register creates a workspace and its owner
// @Summary Register
// @Description Create a workspace together with its owner account and return a token pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration data"
// @Success 201 {object} dto.APIResponse{data=dto.AuthResponse} "Workspace created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Email already registered"
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c fiber.Ctx) error {
	var req dto.RegisterRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := requestContext(c, "/api/v1/auth/register")
	defer cancel()

	result, err := h.authFlow.Register(ctx, &req, metadataFrom(c))
	if err != nil {
		return h.handleFlowError(c, err, "Registration failed", "REGISTRATION_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Workspace created successfully", result)
}

// Login exchanges credentials for a token pair
// @Summary Login
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse} "Login successful"
// @Failure 401 {object} dto.APIResponse "Invalid credentials"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := requestContext(c, "/api/v1/auth/login")
	defer cancel()

	result, err := h.authFlow.Login(ctx, &req, metadataFrom(c))
	if err != nil {
		// unknown email and wrong password look the same to the client
		if businessflow.IsUserNotFound(err) || businessflow.IsIncorrectPassword(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid email or password", "INVALID_CREDENTIALS", nil)
		}
		return h.handleFlowError(c, err, "Login failed", "LOGIN_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}

// Refresh rotates a refresh token
// @Summary Refresh tokens
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse}
// @Failure 401 {object} dto.APIResponse "Invalid or expired refresh token"
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := requestContext(c, "/api/v1/auth/refresh")
	defer cancel()

	result, err := h.authFlow.Refresh(ctx, &req, metadataFrom(c))
	if err != nil {
		return h.handleFlowError(c, err, "Token refresh failed", "TOKEN_REFRESH_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Tokens refreshed", result)
}

// Logout revokes the access token of the request and, when given, the refresh token
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.LogoutRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}
	req.AccessToken = middleware.GetAccessTokenFromContext(c)

	ctx, cancel := requestContext(c, "/api/v1/auth/logout")
	defer cancel()

	if err := h.authFlow.Logout(ctx, principal, &req, metadataFrom(c)); err != nil {
		return h.handleFlowError(c, err, "Logout failed", "LOGOUT_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Logged out", nil)
}

// Me returns the authenticated user and workspace
func (h *AuthHandler) Me(c fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := requestContext(c, "/api/v1/auth/me")
	defer cancel()

	result, err := h.authFlow.Me(ctx, principal)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to load profile", "ME_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Profile retrieved", result)
}
