package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/app/services"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/repository"
	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Principal is the authenticated caller behind a request
type Principal struct {
	UserID      uint
	WorkspaceID uint
	Role        models.UserRole
}

// AuthFlow handles workspace registration and token based authentication
type AuthFlow interface {
	Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.AuthResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.AuthResponse, error)
	Logout(ctx context.Context, principal Principal, req *dto.LogoutRequest, metadata *ClientMetadata) error
	Me(ctx context.Context, principal Principal) (*dto.MeResponse, error)
	Authenticate(ctx context.Context, accessToken string) (*Principal, error)
}

// AuthFlowImpl implements the auth business flow
type AuthFlowImpl struct {
	workspaceRepo repository.WorkspaceRepository
	userRepo      repository.UserRepository
	auditRepo     repository.AuditLogRepository
	tokenService  services.TokenService
	bcryptCost    int
	db            *gorm.DB
}

// NewAuthFlow creates a new auth flow instance
func NewAuthFlow(
	workspaceRepo repository.WorkspaceRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	bcryptCost int,
	db *gorm.DB,
) AuthFlow {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthFlowImpl{
		workspaceRepo: workspaceRepo,
		userRepo:      userRepo,
		auditRepo:     auditRepo,
		tokenService:  tokenService,
		bcryptCost:    bcryptCost,
		db:            db,
	}
}

// Register creates a workspace and its owner, then signs the owner in
func (af *AuthFlowImpl) Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)

	var (
		workspace *models.Workspace
		user      *models.User
	)
	err := repository.WithTransaction(ctx, af.db, func(txCtx context.Context) error {
		existing, err := af.userRepo.ByEmail(txCtx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrEmailAlreadyExists
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), af.bcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		slug, err := af.uniqueSlug(txCtx, req.WorkspaceName)
		if err != nil {
			return err
		}

		workspace = &models.Workspace{
			Name:     strings.TrimSpace(req.WorkspaceName),
			Slug:     slug,
			Currency: strings.ToUpper(req.Currency),
			Timezone: req.Timezone,
		}
		if err := af.workspaceRepo.Save(txCtx, workspace); err != nil {
			return err
		}

		user = &models.User{
			WorkspaceID:  workspace.ID,
			Email:        email,
			PasswordHash: string(hash),
			FullName:     strings.TrimSpace(req.FullName),
			Role:         models.UserRoleOwner,
			LastLoginAt:  utils.UTCNowPtr(),
		}
		if err := af.userRepo.Save(txCtx, user); err != nil {
			return err
		}

		return createAuditLog(txCtx, af.auditRepo, auditEntry{
			WorkspaceID: &workspace.ID,
			UserID:      &user.ID,
			Action:      models.AuditActionRegister,
			Description: fmt.Sprintf("Workspace %s registered by %s", workspace.Slug, email),
			Success:     true,
		}, metadata)
	})
	if err != nil {
		_ = createAuditLog(ctx, af.auditRepo, failureEntry(nil, nil, models.AuditActionRegister,
			fmt.Sprintf("Registration failed for %s", email), err), metadata)
		return nil, NewBusinessError("REGISTRATION_FAILED", "Registration failed", err)
	}

	return af.issue(user, workspace)
}

// uniqueSlug derives a slug from the workspace name, suffixing it when taken
func (af *AuthFlowImpl) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := utils.Slugify(name)
	if base == "" {
		base = "workspace"
	}
	existing, err := af.workspaceRepo.BySlug(ctx, base)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return base, nil
	}
	return fmt.Sprintf("%s-%s", base, strings.ReplaceAll(uuid.NewString(), "-", "")[:6]), nil
}

// Login checks the password and issues a token pair
func (af *AuthFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)

	var (
		user      *models.User
		workspace *models.Workspace
	)
	err := repository.WithTransaction(ctx, af.db, func(txCtx context.Context) error {
		var err error
		user, err = af.userRepo.ByEmail(txCtx, email)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if !utils.IsTrue(user.IsActive) {
			return ErrAccountInactive
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			return ErrIncorrectPassword
		}

		workspace, err = af.activeWorkspace(txCtx, user.WorkspaceID)
		if err != nil {
			return err
		}

		now := utils.UTCNow()
		if err := af.userRepo.UpdateLastLogin(txCtx, user.ID, now); err != nil {
			return err
		}
		user.LastLoginAt = &now
		return nil
	})
	if err != nil {
		var workspaceID, userID *uint
		if user != nil {
			workspaceID, userID = &user.WorkspaceID, &user.ID
		}
		_ = createAuditLog(ctx, af.auditRepo, failureEntry(workspaceID, userID, models.AuditActionLoginFailed,
			fmt.Sprintf("Login failed for %s", email), err), metadata)
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	_ = createAuditLog(ctx, af.auditRepo, auditEntry{
		WorkspaceID: &workspace.ID,
		UserID:      &user.ID,
		Action:      models.AuditActionLoginSuccess,
		Description: fmt.Sprintf("User %s logged in", email),
		Success:     true,
	}, metadata)

	return af.issue(user, workspace)
}

// Refresh rotates the refresh token after checking the account is still usable
func (af *AuthFlowImpl) Refresh(ctx context.Context, req *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.AuthResponse, error) {
	claims, err := af.tokenService.ValidateToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("REFRESH_FAILED", "Token refresh failed", fmt.Errorf("%w: %v", ErrInvalidToken, err))
	}
	if claims.TokenType != services.TokenTypeRefresh {
		return nil, NewBusinessError("REFRESH_FAILED", "Token refresh failed", ErrInvalidToken)
	}

	user, workspace, err := af.loadPrincipal(ctx, claims.UserID, claims.WorkspaceID)
	if err != nil {
		return nil, NewBusinessError("REFRESH_FAILED", "Token refresh failed", err)
	}

	pair, err := af.tokenService.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("REFRESH_FAILED", "Token refresh failed", fmt.Errorf("%w: %v", ErrInvalidToken, err))
	}

	_ = createAuditLog(ctx, af.auditRepo, auditEntry{
		WorkspaceID: &workspace.ID,
		UserID:      &user.ID,
		Action:      models.AuditActionTokenRefreshed,
		Description: "Token pair rotated",
		Success:     true,
	}, metadata)

	return &dto.AuthResponse{
		User:      ToUserInfo(user),
		Workspace: ToWorkspaceInfo(workspace),
		Tokens:    toTokenInfo(pair),
	}, nil
}

// Logout revokes the access token and, when given, the refresh token
func (af *AuthFlowImpl) Logout(ctx context.Context, principal Principal, req *dto.LogoutRequest, metadata *ClientMetadata) error {
	var errs []error
	if req.AccessToken != "" {
		if err := af.tokenService.RevokeToken(ctx, req.AccessToken); err != nil {
			errs = append(errs, err)
		}
	}
	if req.RefreshToken != "" {
		if err := af.tokenService.RevokeToken(ctx, req.RefreshToken); err != nil && !errors.Is(err, services.ErrTokenInvalid) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}

	_ = createAuditLog(ctx, af.auditRepo, auditEntry{
		WorkspaceID: &principal.WorkspaceID,
		UserID:      &principal.UserID,
		Action:      models.AuditActionLogout,
		Description: "User logged out",
		Success:     true,
	}, metadata)
	return nil
}

// Me returns the authenticated user and its workspace
func (af *AuthFlowImpl) Me(ctx context.Context, principal Principal) (*dto.MeResponse, error) {
	user, workspace, err := af.loadPrincipal(ctx, principal.UserID, principal.WorkspaceID)
	if err != nil {
		return nil, NewBusinessError("GET_PROFILE_FAILED", "Failed to load profile", err)
	}
	return &dto.MeResponse{User: ToUserInfo(user), Workspace: ToWorkspaceInfo(workspace)}, nil
}

// Authenticate resolves an access token to a principal whose user and workspace are active
func (af *AuthFlowImpl) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	claims, err := af.tokenService.ValidateToken(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.TokenType != services.TokenTypeAccess {
		return nil, ErrInvalidToken
	}

	user, _, err := af.loadPrincipal(ctx, claims.UserID, claims.WorkspaceID)
	if err != nil {
		return nil, err
	}

	return &Principal{UserID: user.ID, WorkspaceID: user.WorkspaceID, Role: user.Role}, nil
}

func (af *AuthFlowImpl) loadPrincipal(ctx context.Context, userID, workspaceID uint) (*models.User, *models.Workspace, error) {
	user, err := af.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || user.WorkspaceID != workspaceID {
		return nil, nil, ErrUserNotFound
	}
	if !utils.IsTrue(user.IsActive) {
		return nil, nil, ErrAccountInactive
	}

	workspace, err := af.activeWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, nil, err
	}
	return user, workspace, nil
}

func (af *AuthFlowImpl) activeWorkspace(ctx context.Context, id uint) (*models.Workspace, error) {
	workspace, err := af.workspaceRepo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if workspace == nil {
		return nil, ErrWorkspaceNotFound
	}
	if !utils.IsTrue(workspace.IsActive) {
		return nil, ErrWorkspaceInactive
	}
	return workspace, nil
}

func (af *AuthFlowImpl) issue(user *models.User, workspace *models.Workspace) (*dto.AuthResponse, error) {
	pair, err := af.tokenService.GenerateTokens(user.ID, workspace.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}
	return &dto.AuthResponse{
		User:      ToUserInfo(user),
		Workspace: ToWorkspaceInfo(workspace),
		Tokens:    toTokenInfo(pair),
	}, nil
}

func toTokenInfo(pair *services.TokenPair) dto.TokenInfo {
	expiresIn := int(time.Until(pair.AccessExpiresAt).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	return dto.TokenInfo{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
		ExpiresAt:    pair.AccessExpiresAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
