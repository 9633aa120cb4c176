package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Auth and workspace errors
	ErrUserNotFound       = errors.New("user not found")
	ErrWorkspaceNotFound  = errors.New("workspace not found")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrWorkspaceInactive  = errors.New("workspace is inactive")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrForbidden          = errors.New("insufficient permissions")

	// Campaign hierarchy errors
	ErrCampaignNotFound        = errors.New("campaign not found")
	ErrNameRequired            = errors.New("name is required")
	ErrCampaignNotEditable     = errors.New("campaign cannot be edited in its current status")
	ErrCampaignNotDeletable    = errors.New("only draft campaigns can be deleted")
	ErrCampaignUpdateRequired  = errors.New("at least one field must be provided for update")
	ErrInvalidStatusTransition = errors.New("status transition not allowed")
	ErrStatusChanged           = errors.New("status was changed concurrently")
	ErrInvalidObjective        = errors.New("objective is not available for the platform")
	ErrEndBeforeStart          = errors.New("end date cannot be before start date")
	ErrInvalidBudget           = errors.New("budget must be greater than zero")
	ErrAdSetNotFound           = errors.New("ad set not found")
	ErrAdSetNotEditable        = errors.New("ad set cannot be edited in its current status")
	ErrParentArchived          = errors.New("parent is archived")
	ErrBidAmountRequired       = errors.New("bid amount is required for the bid strategy")
	ErrInvalidTargeting        = errors.New("invalid targeting")
	ErrAdNotFound              = errors.New("ad not found")
	ErrAdNotEditable           = errors.New("ad cannot be edited in its current status")

	// Creative errors
	ErrCreativeNotFound      = errors.New("creative not found")
	ErrCreativeInUse         = errors.New("creative is referenced by ads")
	ErrFileTooLarge          = errors.New("file exceeds the upload limit")
	ErrUnsupportedMedia      = errors.New("unsupported media type")
	ErrThumbnailNotAvailable = errors.New("thumbnail not available")

	// Metrics and dashboard errors
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrMetricScope      = errors.New("ad set or ad does not belong to the campaign")

	// Notification errors
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidCursor        = errors.New("invalid poll cursor")

	// Sync errors
	ErrSyncJobNotFound       = errors.New("sync job not found")
	ErrSyncJobNotCancellable = errors.New("only pending sync jobs can be cancelled")
	ErrSyncInProgress        = errors.New("a sync request is already being processed")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// ErrorCode returns the code of the outermost BusinessError in err's chain, or "" when there is none
func ErrorCode(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsWorkspaceNotFound(err error) bool {
	return errors.Is(err, ErrWorkspaceNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive) || errors.Is(err, ErrWorkspaceInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsNotFound matches every "not found" sentinel of the package
func IsNotFound(err error) bool {
	for _, target := range []error{
		ErrUserNotFound, ErrWorkspaceNotFound, ErrCampaignNotFound, ErrAdSetNotFound, ErrAdNotFound,
		ErrCreativeNotFound, ErrNotificationNotFound, ErrSyncJobNotFound, ErrThumbnailNotAvailable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

// IsConflict matches errors caused by the current state of a resource
func IsConflict(err error) bool {
	for _, target := range []error{
		ErrCampaignNotEditable, ErrCampaignNotDeletable, ErrInvalidStatusTransition, ErrStatusChanged,
		ErrAdSetNotEditable, ErrAdNotEditable, ErrParentArchived, ErrCreativeInUse,
		ErrSyncJobNotCancellable, ErrSyncInProgress,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func IsInvalidStatusTransition(err error) bool {
	return errors.Is(err, ErrInvalidStatusTransition)
}

// IsInvalidInput matches business rule violations on request data
func IsInvalidInput(err error) bool {
	for _, target := range []error{
		ErrNameRequired, ErrCampaignUpdateRequired, ErrInvalidObjective, ErrEndBeforeStart, ErrInvalidBudget,
		ErrBidAmountRequired, ErrInvalidTargeting, ErrInvalidDateRange, ErrMetricScope, ErrInvalidCursor,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func IsFileTooLarge(err error) bool {
	return errors.Is(err, ErrFileTooLarge)
}

func IsUnsupportedMedia(err error) bool {
	return errors.Is(err, ErrUnsupportedMedia)
}

func IsSyncInProgress(err error) bool {
	return errors.Is(err, ErrSyncInProgress)
}
