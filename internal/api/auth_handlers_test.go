package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidobra/kidobra-server/internal/service"
)

func TestRegister_Success(t *testing.T) {
	server := setupTestServer(t)

	w := doRequest(t, server, http.MethodPost, "/api/v1/auth/register", map[string]any{
		"email":        "maria@example.com",
		"password":     "SenhaSegura123!",
		"display_name": "Maria Silva",
	}, "", "device-1")

	assert.Equal(t, http.StatusCreated, w.Code)

	envelope := decodeEnvelope[service.AuthResponse](t, w)
	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.NotEmpty(t, envelope.Data.RefreshToken)
	assert.Equal(t, "maria@example.com", envelope.Data.User.Email)
	assert.Positive(t, envelope.Data.ExpiresIn)
}

func TestRegister_ValidationErrors(t *testing.T) {
	server := setupTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{
			name: "invalid email format",
			body: map[string]any{
				"email":        "not-an-email",
				"password":     "SenhaSegura123!",
				"display_name": "Maria",
			},
		},
		{
			name: "password too short",
			body: map[string]any{
				"email":        "maria@example.com",
				"password":     "curta",
				"display_name": "Maria",
			},
		},
		{
			name: "missing display name",
			body: map[string]any{
				"email":    "maria@example.com",
				"password": "SenhaSegura123!",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, server, http.MethodPost, "/api/v1/auth/register", tt.body, "", "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestLogin_Flow(t *testing.T) {
	server := setupTestServer(t)
	registerTestUser(t, server, "maria@example.com", "device-1")

	w := doRequest(t, server, http.MethodPost, "/api/v1/auth/login", map[string]any{
		"email":    "maria@example.com",
		"password": "SenhaSegura123!",
	}, "", "device-1")
	assert.Equal(t, http.StatusOK, w.Code)

	// Wrong password gets 401 without leaking which part was wrong
	w = doRequest(t, server, http.MethodPost, "/api/v1/auth/login", map[string]any{
		"email":    "maria@example.com",
		"password": "errada123",
	}, "", "device-1")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh_RotatesTokens(t *testing.T) {
	server := setupTestServer(t)
	authResp := registerTestUser(t, server, "maria@example.com", "device-1")

	w := doRequest(t, server, http.MethodPost, "/api/v1/auth/refresh", map[string]any{
		"refresh_token": authResp.RefreshToken,
	}, "", "device-1")
	require.Equal(t, http.StatusOK, w.Code)

	refreshed := decodeEnvelope[service.AuthResponse](t, w).Data
	assert.NotEqual(t, authResp.RefreshToken, refreshed.RefreshToken)

	// Old refresh token is dead after rotation
	w = doRequest(t, server, http.MethodPost, "/api/v1/auth/refresh", map[string]any{
		"refresh_token": authResp.RefreshToken,
	}, "", "device-1")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_ClearsDeviceSelection(t *testing.T) {
	server := setupTestServer(t)
	authResp := registerTestUser(t, server, "maria@example.com", "device-1")
	token := authResp.AccessToken

	// Create and select an ebook on this device
	ebook := createTestEbook(t, server, token, "Férias")
	selectEbook(t, server, token, "device-1", ebook.ID)

	w := doRequest(t, server, http.MethodPost, "/api/v1/auth/logout", map[string]any{
		"session_id": authResp.SessionID,
	}, token, "device-1")
	assert.Equal(t, http.StatusOK, w.Code)

	// The access token is still cryptographically valid until expiry,
	// but the device's selection slot is gone.
	w = doRequest(t, server, http.MethodGet, "/api/v1/ebooks/selection/", nil, token, "device-1")
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}
