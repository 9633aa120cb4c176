package businessflow_test

import (
	"testing"
	"time"

	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/app/services"
	businessflow "github.com/amirphl/Lovelify-Dash/business_flow"
	"github.com/amirphl/Lovelify-Dash/config"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/repository"
	testingutil "github.com/amirphl/Lovelify-Dash/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthFlow(t *testing.T) {
	tdb, fx := setupDB(t)
	ctx := testingutil.CreateTestContext()

	tokenService, err := services.NewTokenService(config.JWTConfig{
		SecretKey:       "test-secret-key-with-enough-length",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "test-issuer",
		Audience:        "test-audience",
	}, nil)
	require.NoError(t, err)

	workspaceRepo := repository.NewWorkspaceRepository(tdb.DB)
	flow := businessflow.NewAuthFlow(
		workspaceRepo,
		repository.NewUserRepository(tdb.DB),
		repository.NewAuditLogRepository(tdb.DB),
		tokenService,
		bcrypt.MinCost,
		tdb.DB,
	)

	registerReq := &dto.RegisterRequest{
		WorkspaceName: "Acme Marketing",
		Currency:      "eur",
		Timezone:      "Europe/Berlin",
		FullName:      "Jane Doe",
		Email:         " Jane@Acme.io ",
		Password:      testingutil.TestPassword,
	}

	var registered *dto.AuthResponse

	t.Run("Register", func(t *testing.T) {
		registered, err = flow.Register(ctx, registerReq, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, "jane@acme.io", registered.User.Email)
		assert.Equal(t, string(models.UserRoleOwner), registered.User.Role)
		assert.Equal(t, "EUR", registered.Workspace.Currency)
		assert.Equal(t, "Europe/Berlin", registered.Workspace.Timezone)
		assert.NotEmpty(t, registered.Workspace.Slug)
		assert.Equal(t, "Bearer", registered.Tokens.TokenType)
		assert.Positive(t, registered.Tokens.ExpiresIn)
	})

	t.Run("RegisterDuplicateEmail", func(t *testing.T) {
		_, err := flow.Register(ctx, registerReq, testMetadata())
		assert.True(t, businessflow.IsEmailAlreadyExists(err))
	})

	t.Run("RegisterSuffixesTakenSlug", func(t *testing.T) {
		req := *registerReq
		req.Email = "john@acme.io"
		second, err := flow.Register(ctx, &req, testMetadata())
		require.NoError(t, err)
		assert.NotEqual(t, registered.Workspace.Slug, second.Workspace.Slug)
		assert.Contains(t, second.Workspace.Slug, registered.Workspace.Slug+"-")
	})

	t.Run("Login", func(t *testing.T) {
		resp, err := flow.Login(ctx, &dto.LoginRequest{Email: "JANE@acme.io", Password: testingutil.TestPassword}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, registered.User.UUID, resp.User.UUID)
		require.NotNil(t, resp.User.LastLoginAt)

		_, err = flow.Login(ctx, &dto.LoginRequest{Email: "jane@acme.io", Password: "WrongPass123!"}, testMetadata())
		assert.True(t, businessflow.IsIncorrectPassword(err))

		_, err = flow.Login(ctx, &dto.LoginRequest{Email: "nobody@acme.io", Password: testingutil.TestPassword}, testMetadata())
		assert.True(t, businessflow.IsUserNotFound(err))
	})

	t.Run("LoginInactiveUser", func(t *testing.T) {
		ws, err := fx.CreateTestWorkspace()
		require.NoError(t, err)
		user, err := fx.CreateTestUser(ws.ID, models.UserRoleMember)
		require.NoError(t, err)
		require.NoError(t, tdb.DB.Model(user).Update("is_active", false).Error)

		_, err = flow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: testingutil.TestPassword}, testMetadata())
		assert.True(t, businessflow.IsAccountInactive(err))
	})

	t.Run("AuthenticateAndMe", func(t *testing.T) {
		principal, err := flow.Authenticate(ctx, registered.Tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, models.UserRoleOwner, principal.Role)

		me, err := flow.Me(ctx, *principal)
		require.NoError(t, err)
		assert.Equal(t, registered.Workspace.UUID, me.Workspace.UUID)

		_, err = flow.Authenticate(ctx, registered.Tokens.RefreshToken)
		assert.True(t, businessflow.IsInvalidToken(err), "refresh tokens are not accepted as access tokens")
	})

	t.Run("RefreshAndLogout", func(t *testing.T) {
		login, err := flow.Login(ctx, &dto.LoginRequest{Email: "jane@acme.io", Password: testingutil.TestPassword}, testMetadata())
		require.NoError(t, err)

		refreshed, err := flow.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: login.Tokens.RefreshToken}, testMetadata())
		require.NoError(t, err)
		assert.NotEqual(t, login.Tokens.AccessToken, refreshed.Tokens.AccessToken)

		_, err = flow.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: login.Tokens.AccessToken}, testMetadata())
		assert.True(t, businessflow.IsInvalidToken(err))

		principal, err := flow.Authenticate(ctx, refreshed.Tokens.AccessToken)
		require.NoError(t, err)
		require.NoError(t, flow.Logout(ctx, *principal, &dto.LogoutRequest{
			AccessToken:  refreshed.Tokens.AccessToken,
			RefreshToken: refreshed.Tokens.RefreshToken,
		}, testMetadata()))

		_, err = flow.Authenticate(ctx, refreshed.Tokens.AccessToken)
		assert.True(t, businessflow.IsInvalidToken(err))
	})
}
