package service

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidobra/kidobra-server/internal/auth"
	domainerrors "github.com/kidobra/kidobra-server/internal/errors"
	"github.com/kidobra/kidobra-server/internal/store"
)

// setupAuthTest creates auth services with temporary storage for testing.
func setupAuthTest(t *testing.T) (*AuthService, *store.Store) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "kidobra-auth-test-*")
	require.NoError(t, err)

	s, err := store.New(filepath.Join(tmpDir, "test.db"), nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
		_ = os.RemoveAll(tmpDir)
	})

	authKey, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)

	tokenService, err := auth.NewTokenService(
		hex.EncodeToString(authKey),
		15*time.Minute,
		30*24*time.Hour,
	)
	require.NoError(t, err)

	sessionService := NewSessionService(s, tokenService, nil)

	return NewAuthService(s, tokenService, sessionService, nil), s
}

func registerRequest() RegisterRequest {
	return RegisterRequest{
		Email:       "maria@example.com",
		Password:    "SenhaSegura123!",
		DisplayName: "Maria Silva",
		DeviceID:    "device-1",
	}
}

func TestAuthService_Register_Success(t *testing.T) {
	authService, _ := setupAuthTest(t)
	ctx := context.Background()

	resp, err := authService.Register(ctx, registerRequest())
	require.NoError(t, err)

	require.NotNil(t, resp.User)
	assert.Equal(t, "maria@example.com", resp.User.Email)
	assert.Equal(t, "Maria Silva", resp.User.DisplayName)
	assert.False(t, resp.User.IsSubscriber)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	authService, _ := setupAuthTest(t)
	ctx := context.Background()

	_, err := authService.Register(ctx, registerRequest())
	require.NoError(t, err)

	// Same address with different case is still a duplicate
	req := registerRequest()
	req.Email = "MARIA@example.com"
	_, err = authService.Register(ctx, req)
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrAlreadyExists))
}

func TestAuthService_Register_Validation(t *testing.T) {
	authService, _ := setupAuthTest(t)
	ctx := context.Background()

	req := registerRequest()
	req.Password = "short"
	_, err := authService.Register(ctx, req)
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

	req = registerRequest()
	req.Email = "not-an-email"
	_, err = authService.Register(ctx, req)
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestAuthService_UpdateProfile(t *testing.T) {
	authService, _ := setupAuthTest(t)
	ctx := context.Background()

	resp, err := authService.Register(ctx, registerRequest())
	require.NoError(t, err)

	updated, err := authService.UpdateProfile(ctx, resp.User.ID, UpdateProfileRequest{DisplayName: "Maria Clara"})
	require.NoError(t, err)
	assert.Equal(t, "Maria Clara", updated.DisplayName)

	// The change is persisted
	profile, err := authService.GetProfile(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maria Clara", profile.DisplayName)

	_, err = authService.UpdateProfile(ctx, resp.User.ID, UpdateProfileRequest{DisplayName: "M"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestAuthService_Login(t *testing.T) {
	authService, _ := setupAuthTest(t)
	ctx := context.Background()

	_, err := authService.Register(ctx, registerRequest())
	require.NoError(t, err)

	resp, err := authService.Login(ctx, LoginRequest{
		Email:    "maria@example.com",
		Password: "SenhaSegura123!",
		DeviceID: "device-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "maria@example.com", resp.User.Email)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	authService, _ := setupAuthTest(t)
	ctx := context.Background()

	_, err := authService.Register(ctx, registerRequest())
	require.NoError(t, err)

	_, err = authService.Login(ctx, LoginRequest{
		Email:    "maria@example.com",
		Password: "errada",
	})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvalidCredentials))

	// Unknown email gets the same error, so it can't be probed
	_, err = authService.Login(ctx, LoginRequest{
		Email:    "ninguem@example.com",
		Password: "qualquer",
	})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvalidCredentials))
}

func TestAuthService_RefreshTokens_Rotation(t *testing.T) {
	authService, _ := setupAuthTest(t)
	ctx := context.Background()

	registered, err := authService.Register(ctx, registerRequest())
	require.NoError(t, err)

	refreshed, err := authService.RefreshTokens(ctx, RefreshRequest{
		RefreshToken: registered.RefreshToken,
		DeviceID:     "device-1",
	})
	require.NoError(t, err)
	assert.NotEqual(t, registered.RefreshToken, refreshed.RefreshToken)
	assert.Equal(t, registered.SessionID, refreshed.SessionID)

	// The old refresh token no longer works after rotation
	_, err = authService.RefreshTokens(ctx, RefreshRequest{
		RefreshToken: registered.RefreshToken,
	})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrTokenExpired))
}

func TestAuthService_VerifyAccessToken(t *testing.T) {
	authService, _ := setupAuthTest(t)
	ctx := context.Background()

	registered, err := authService.Register(ctx, registerRequest())
	require.NoError(t, err)

	user, claims, err := authService.VerifyAccessToken(ctx, registered.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, user.ID)
	assert.Equal(t, registered.User.ID, claims.UserID)
	assert.Equal(t, "maria@example.com", claims.Email)

	_, _, err = authService.VerifyAccessToken(ctx, "v4.local.garbage")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
}

func TestAuthService_Logout_ClearsDeviceSelection(t *testing.T) {
	authService, s := setupAuthTest(t)
	ctx := context.Background()

	registered, err := authService.Register(ctx, registerRequest())
	require.NoError(t, err)
	userID := registered.User.ID

	require.NoError(t, s.SetSelection(ctx, userID, "device-1", "ebook_x"))
	require.NoError(t, s.SetSelection(ctx, userID, "device-2", "ebook_y"))

	require.NoError(t, authService.Logout(ctx, userID, registered.SessionID, "device-1"))

	// The logged-out device's slot is gone, the other survives
	_, err = s.GetSelection(ctx, userID, "device-1")
	require.Error(t, err)

	ebookID, err := s.GetSelection(ctx, userID, "device-2")
	require.NoError(t, err)
	assert.Equal(t, "ebook_y", ebookID)

	// Session is revoked
	_, err = s.GetSession(ctx, registered.SessionID)
	require.Error(t, err)
}
