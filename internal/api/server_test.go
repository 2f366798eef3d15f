package api

import (
	"bytes"
	"encoding/json/v2"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidobra/kidobra-server/internal/auth"
	"github.com/kidobra/kidobra-server/internal/catalog"
	"github.com/kidobra/kidobra-server/internal/domain"
	"github.com/kidobra/kidobra-server/internal/export"
	"github.com/kidobra/kidobra-server/internal/search"
	"github.com/kidobra/kidobra-server/internal/service"
	"github.com/kidobra/kidobra-server/internal/store"
)

// testEnvelope mirrors the response envelope with typed data.
type testEnvelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// setupTestServer creates a test server with all dependencies, backed by
// temporary storage and a small catalog whose images are served by an
// in-process HTTP server.
func setupTestServer(t *testing.T) *Server {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "kidobra-api-test-*")
	require.NoError(t, err)

	// No-op logger for tests (discards all logs).
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := store.New(filepath.Join(tmpDir, "test.db"), logger)
	require.NoError(t, err)

	// Serve a tiny generated PNG for every activity image.
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 120, G: 180, B: 60, A: 255})
		}
	}
	var imgBuf bytes.Buffer
	require.NoError(t, png.Encode(&imgBuf, img))
	imageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(imgBuf.Bytes())
	}))

	cat := catalog.New(&catalog.Manifest{
		Categories: []domain.Category{
			{ID: "animais", Name: "Animais", Order: 1},
			{ID: "verao", Name: "Verão", Order: 2},
		},
		Activities: []domain.Activity{
			{ID: "a1", Order: 1, CategoryID: "animais", File: "leao.png", ImageURL: imageServer.URL + "/a1.png"},
			{ID: "a2", Order: 2, CategoryID: "animais", File: "girafa.png", ImageURL: imageServer.URL + "/a2.png"},
			{ID: "v1", Order: 1, CategoryID: "verao", File: "praia_sol.png", ImageURL: imageServer.URL + "/v1.png"},
		},
	})

	idx, err := search.New(logger)
	require.NoError(t, err)
	categoryNames := make(map[string]string)
	for _, c := range cat.Categories() {
		categoryNames[c.ID] = c.Name
	}
	require.NoError(t, idx.Rebuild(cat.Activities(), categoryNames))

	// Use a test key (32 bytes as hex = 64 hex chars)
	testKeyHex := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	tokenService, err := auth.NewTokenService(testKeyHex, 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)

	sessionService := service.NewSessionService(s, tokenService, logger)
	authService := service.NewAuthService(s, tokenService, sessionService, logger)
	ebookService := service.NewEbookService(s, cat, logger)
	catalogService := service.NewCatalogService(cat, idx, logger)

	exporter := export.NewExporter(export.NewImageFetcher("", 5*time.Second), logger)

	server := NewServer(s, authService, ebookService, catalogService, exporter, logger)

	t.Cleanup(func() {
		server.Close()
		imageServer.Close()
		_ = idx.Close()
		_ = s.Close()
		_ = os.RemoveAll(tmpDir)
	})

	return server
}

// doRequest performs a request against the test server.
func doRequest(t *testing.T, server *Server, method, path string, body any, token, deviceID string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if deviceID != "" {
		req.Header.Set(deviceIDHeader, deviceID)
	}

	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

// decodeEnvelope parses a typed response envelope.
func decodeEnvelope[T any](t *testing.T, w *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()

	var envelope testEnvelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

// registerTestUser registers an account and returns its auth response.
func registerTestUser(t *testing.T, server *Server, email, deviceID string) service.AuthResponse {
	t.Helper()

	w := doRequest(t, server, http.MethodPost, "/api/v1/auth/register", map[string]any{
		"email":        email,
		"password":     "SenhaSegura123!",
		"display_name": "Test User",
	}, "", deviceID)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	return decodeEnvelope[service.AuthResponse](t, w).Data
}

func TestHealthCheck(t *testing.T) {
	server := setupTestServer(t)

	w := doRequest(t, server, http.MethodGet, "/health", nil, "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope[map[string]string](t, w)
	assert.True(t, envelope.Success)
	assert.Equal(t, "healthy", envelope.Data["status"])
}

func TestProtectedRoutes_RequireAuth(t *testing.T) {
	server := setupTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/users/me"},
		{http.MethodGet, "/api/v1/catalog/categories"},
		{http.MethodGet, "/api/v1/ebooks/"},
		{http.MethodGet, "/api/v1/ebooks/selection/"},
	}

	for _, tt := range paths {
		w := doRequest(t, server, tt.method, tt.path, nil, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tt.method, tt.path)
	}
}

func TestGetCurrentUser(t *testing.T) {
	server := setupTestServer(t)
	authResp := registerTestUser(t, server, "maria@example.com", "device-1")

	w := doRequest(t, server, http.MethodGet, "/api/v1/users/me", nil, authResp.AccessToken, "")

	assert.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope[service.UserResponse](t, w)
	assert.Equal(t, "maria@example.com", envelope.Data.Email)
	assert.NotEmpty(t, envelope.Data.AvatarColor)
}

func TestUpdateCurrentUser(t *testing.T) {
	server := setupTestServer(t)
	authResp := registerTestUser(t, server, "maria@example.com", "device-1")

	w := doRequest(t, server, http.MethodPatch, "/api/v1/users/me", map[string]any{
		"display_name": "Maria Clara",
	}, authResp.AccessToken, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Maria Clara", decodeEnvelope[service.UserResponse](t, w).Data.DisplayName)

	// Too-short names are rejected
	w = doRequest(t, server, http.MethodPatch, "/api/v1/users/me", map[string]any{
		"display_name": "M",
	}, authResp.AccessToken, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
