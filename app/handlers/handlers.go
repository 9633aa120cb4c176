// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/amirphl/Lovelify-Dash/analytics"
	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/app/middleware"
	businessflow "github.com/amirphl/Lovelify-Dash/business_flow"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

const (
	defaultRequestTimeout = 30 * time.Second
	// customPreset is accepted alongside explicit start and end dates
	customPreset = "custom"
)

var (
	upperRe = regexp.MustCompile(`[A-Z]`)
	digitRe = regexp.MustCompile(`[0-9]`)
)

// NewValidator returns a validator with the dashboard's custom rules registered
func NewValidator() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("password_strength", func(fl validator.FieldLevel) bool {
		password := fl.Field().String()
		return upperRe.MatchString(password) && digitRe.MatchString(password)
	})
	_ = v.RegisterValidation("delivery_status", func(fl validator.FieldLevel) bool {
		_, err := models.ParseDeliveryStatus(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("date_preset", func(fl validator.FieldLevel) bool {
		preset := fl.Field().String()
		return preset == customPreset || analytics.Preset(preset).Valid()
	})
	_ = v.RegisterValidation("call_to_action", func(fl validator.FieldLevel) bool {
		return models.IsValidCallToAction(fl.Field().String())
	})

	v.RegisterStructValidation(validateCreateCampaign, dto.CreateCampaignRequest{})
	return v
}

// validateCreateCampaign checks the objective against the platform and the flight order
func validateCreateCampaign(sl validator.StructLevel) {
	req := sl.Current().Interface().(dto.CreateCampaignRequest)

	platform := models.Platform(req.Platform)
	if platform.Valid() && req.Objective != "" && !models.IsValidObjective(platform, models.Objective(req.Objective)) {
		sl.ReportError(req.Objective, "Objective", "objective", "platform_objective", req.Platform)
	}

	if req.EndDate != nil && *req.EndDate != "" {
		start, errStart := time.Parse(analytics.DateLayout, req.StartDate)
		end, errEnd := time.Parse(analytics.DateLayout, *req.EndDate)
		if errStart == nil && errEnd == nil && end.Before(start) {
			sl.ReportError(*req.EndDate, "EndDate", "end_date", "end_after_start", "")
		}
	}
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "password_strength":
		return "Password must contain at least 1 uppercase letter and 1 number"
	case "delivery_status":
		return err.Field() + " must be one of: DRAFT ACTIVE PAUSED COMPLETED ARCHIVED"
	case "date_preset":
		return err.Field() + " is not a known date range preset"
	case "call_to_action":
		return err.Field() + " is not a supported call to action"
	case "platform_objective":
		return fmt.Sprintf("Objective is not available for platform %s", err.Param())
	case "end_after_start":
		return "End date cannot be before start date"
	case "datetime":
		return err.Field() + " must be a date formatted as " + err.Param()
	case "uuid":
		return err.Field() + " must be a valid UUID"
	case "url":
		return err.Field() + " must be a valid URL"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	case "gtefield":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// baseHandler carries what every handler needs to answer in the common envelope
type baseHandler struct {
	validator *validator.Validate
	logger    *zap.Logger
}

func newBaseHandler(logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{validator: NewValidator(), logger: logger}
}

func (h *baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// validate runs struct validation and writes a 400 on failure; the bool reports whether to go on
func (h *baseHandler) validate(c fiber.Ctx, req any) (bool, error) {
	err := h.validator.Struct(req)
	if err == nil {
		return true, nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
	}
	messages := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		messages = append(messages, getValidationErrorMessage(fe))
	}
	return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", messages)
}

// bindJSON decodes the body and validates it
func (h *baseHandler) bindJSON(c fiber.Ctx, req any) (bool, error) {
	if err := c.Bind().JSON(req); err != nil {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	return h.validate(c, req)
}

// bindQuery decodes query parameters and validates them
func (h *baseHandler) bindQuery(c fiber.Ctx, req any) (bool, error) {
	if err := c.Bind().Query(req); err != nil {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_QUERY", err.Error())
	}
	return h.validate(c, req)
}

// principal returns the authenticated user set by the auth middleware
func (h *baseHandler) principal(c fiber.Ctx) (businessflow.Principal, bool) {
	return middleware.GetPrincipalFromContext(c)
}

func (h *baseHandler) unauthenticated(c fiber.Ctx) error {
	return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
}

func metadataFrom(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if requestID := c.Get("X-Request-ID"); requestID != "" {
		metadata.SetRequestID(requestID)
	}
	return metadata
}

// requestContext creates a context with a timeout and request-scoped values
func requestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	return requestContextWithTimeout(c, endpoint, defaultRequestTimeout)
}

func requestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	if p, ok := middleware.GetPrincipalFromContext(c); ok {
		ctx = context.WithValue(ctx, utils.WorkspaceKey, p.WorkspaceID)
		ctx = context.WithValue(ctx, utils.UserKey, p.UserID)
	}

	return ctx, cancel
}

// causeMessage is the message of the error a BusinessError wraps
func causeMessage(err error) string {
	var be *businessflow.BusinessError
	if errors.As(err, &be) && be.Err != nil {
		return be.Err.Error()
	}
	return err.Error()
}

// handleFlowError maps business errors to HTTP statuses. Anything unclassified is a logged 500.
func (h *baseHandler) handleFlowError(c fiber.Ctx, err error, message, code string) error {
	switch {
	case businessflow.IsInvalidToken(err):
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid or expired token", "TOKEN_INVALID", nil)
	case businessflow.IsAccountInactive(err):
		return h.ErrorResponse(c, fiber.StatusForbidden, "Account is inactive", "ACCOUNT_INACTIVE", nil)
	case businessflow.IsForbidden(err):
		return h.ErrorResponse(c, fiber.StatusForbidden, "Insufficient permissions", "FORBIDDEN", nil)
	case businessflow.IsNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, causeMessage(err), "NOT_FOUND", nil)
	case businessflow.IsEmailAlreadyExists(err):
		return h.ErrorResponse(c, fiber.StatusConflict, "Email is already registered", "EMAIL_ALREADY_EXISTS", nil)
	case businessflow.IsConflict(err):
		return h.ErrorResponse(c, fiber.StatusConflict, causeMessage(err), "CONFLICT", nil)
	case businessflow.IsInvalidInput(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, causeMessage(err), "INVALID_INPUT", nil)
	case businessflow.IsFileTooLarge(err):
		return h.ErrorResponse(c, fiber.StatusRequestEntityTooLarge, "File exceeds the upload limit", "FILE_TOO_LARGE", nil)
	case businessflow.IsUnsupportedMedia(err):
		return h.ErrorResponse(c, fiber.StatusUnsupportedMediaType, "Unsupported media type", "UNSUPPORTED_MEDIA_TYPE", nil)
	case errors.Is(err, context.DeadlineExceeded):
		return h.ErrorResponse(c, fiber.StatusGatewayTimeout, "Request timed out", "TIMEOUT", nil)
	}

	h.logger.Error(message,
		zap.String("path", c.Path()),
		zap.String("code", businessflow.ErrorCode(err)),
		zap.Error(err))
	return h.ErrorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}
