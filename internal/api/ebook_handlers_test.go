package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidobra/kidobra-server/internal/domain"
	"github.com/kidobra/kidobra-server/internal/service"
)

// createTestEbook creates an ebook over HTTP and returns it.
func createTestEbook(t *testing.T, server *Server, token, name string) domain.Ebook {
	t.Helper()

	w := doRequest(t, server, http.MethodPost, "/api/v1/ebooks/", map[string]any{
		"name": name,
	}, token, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	return decodeEnvelope[domain.Ebook](t, w).Data
}

// selectEbook selects an ebook on the given device over HTTP.
func selectEbook(t *testing.T, server *Server, token, deviceID, ebookID string) {
	t.Helper()

	w := doRequest(t, server, http.MethodPut, "/api/v1/ebooks/selection/", map[string]any{
		"ebook_id": ebookID,
	}, token, deviceID)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestEbooks_CreateAndList(t *testing.T) {
	server := setupTestServer(t)
	token := registerTestUser(t, server, "maria@example.com", "device-1").AccessToken

	createTestEbook(t, server, token, "Primeiro")
	second := createTestEbook(t, server, token, "Segundo")

	w := doRequest(t, server, http.MethodGet, "/api/v1/ebooks/", nil, token, "")
	assert.Equal(t, http.StatusOK, w.Code)

	envelope := decodeEnvelope[service.ListResponse](t, w)
	require.Len(t, envelope.Data.Ebooks, 2)
	assert.Equal(t, second.ID, envelope.Data.Ebooks[0].ID)
	assert.Empty(t, envelope.Data.SelectedEbookID)

	// With a device header the list carries the restored selection
	selectEbook(t, server, token, "device-1", second.ID)
	w = doRequest(t, server, http.MethodGet, "/api/v1/ebooks/", nil, token, "device-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, second.ID, decodeEnvelope[service.ListResponse](t, w).Data.SelectedEbookID)
}

func TestEbooks_Create_NameTooShort(t *testing.T) {
	server := setupTestServer(t)
	token := registerTestUser(t, server, "maria@example.com", "device-1").AccessToken

	w := doRequest(t, server, http.MethodPost, "/api/v1/ebooks/", map[string]any{
		"name": "ab",
	}, token, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decodeEnvelope[any](t, w)
	assert.False(t, envelope.Success)
	assert.Equal(t, "VALIDATION", envelope.Code)
}

func TestEbooks_OwnershipIsolation(t *testing.T) {
	server := setupTestServer(t)
	ownerToken := registerTestUser(t, server, "dona@example.com", "device-1").AccessToken
	otherToken := registerTestUser(t, server, "outra@example.com", "device-2").AccessToken

	ebook := createTestEbook(t, server, ownerToken, "Privado")

	// Another user sees 404, not 403, so existence never leaks
	w := doRequest(t, server, http.MethodGet, "/api/v1/ebooks/"+ebook.ID, nil, otherToken, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEbooks_RenameAndDelete(t *testing.T) {
	server := setupTestServer(t)
	token := registerTestUser(t, server, "maria@example.com", "device-1").AccessToken
	ebook := createTestEbook(t, server, token, "Antes")

	w := doRequest(t, server, http.MethodPatch, "/api/v1/ebooks/"+ebook.ID, map[string]any{
		"name": "Depois",
	}, token, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Depois", decodeEnvelope[domain.Ebook](t, w).Data.Name)

	w = doRequest(t, server, http.MethodDelete, "/api/v1/ebooks/"+ebook.ID, nil, token, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	// Deleting again is still 204
	w = doRequest(t, server, http.MethodDelete, "/api/v1/ebooks/"+ebook.ID, nil, token, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, server, http.MethodGet, "/api/v1/ebooks/"+ebook.ID, nil, token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSelection_ActivityFlow(t *testing.T) {
	server := setupTestServer(t)
	token := registerTestUser(t, server, "maria@example.com", "device-1").AccessToken
	ebook := createTestEbook(t, server, token, "Atividades")
	selectEbook(t, server, token, "device-1", ebook.ID)

	// Add two activities
	for _, activityID := range []string{"a1", "v1"} {
		w := doRequest(t, server, http.MethodPost, "/api/v1/ebooks/selection/activities", map[string]any{
			"activity_id": activityID,
		}, token, "device-1")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.True(t, decodeEnvelope[service.AddActivityResponse](t, w).Data.Added)
	}

	// Duplicate add is a no-op, not an error
	w := doRequest(t, server, http.MethodPost, "/api/v1/ebooks/selection/activities", map[string]any{
		"activity_id": "a1",
	}, token, "device-1")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope[service.AddActivityResponse](t, w).Data
	assert.False(t, resp.Added)
	assert.Len(t, resp.Ebook.Activities, 2)

	// Reorder
	w = doRequest(t, server, http.MethodPut, "/api/v1/ebooks/selection/activities", map[string]any{
		"activity_ids": []string{"v1", "a1"},
	}, token, "device-1")
	require.Equal(t, http.StatusOK, w.Code)
	reordered := decodeEnvelope[domain.Ebook](t, w).Data
	assert.Equal(t, []string{"v1", "a1"}, reordered.ActivityIDs())

	// Non-permutation reorder is rejected
	w = doRequest(t, server, http.MethodPut, "/api/v1/ebooks/selection/activities", map[string]any{
		"activity_ids": []string{"v1"},
	}, token, "device-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Remove
	w = doRequest(t, server, http.MethodDelete, "/api/v1/ebooks/selection/activities/a1", nil, token, "device-1")
	require.Equal(t, http.StatusOK, w.Code)
	removeResp := decodeEnvelope[service.RemoveActivityResponse](t, w).Data
	assert.True(t, removeResp.Removed)
	assert.Len(t, removeResp.Ebook.Activities, 1)
}

func TestSelection_RequiredForActivityOps(t *testing.T) {
	server := setupTestServer(t)
	token := registerTestUser(t, server, "maria@example.com", "device-1").AccessToken

	// No selection on this device yet
	w := doRequest(t, server, http.MethodPost, "/api/v1/ebooks/selection/activities", map[string]any{
		"activity_id": "a1",
	}, token, "device-1")
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	envelope := decodeEnvelope[any](t, w)
	assert.Equal(t, "FAILED_PRECONDITION", envelope.Code)
}

func TestSelection_IsPerDevice(t *testing.T) {
	server := setupTestServer(t)
	token := registerTestUser(t, server, "maria@example.com", "device-1").AccessToken

	first := createTestEbook(t, server, token, "Tablet Book")
	second := createTestEbook(t, server, token, "Phone Book")

	selectEbook(t, server, token, "tablet", first.ID)
	selectEbook(t, server, token, "phone", second.ID)

	w := doRequest(t, server, http.MethodGet, "/api/v1/ebooks/selection/", nil, token, "tablet")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first.ID, decodeEnvelope[domain.Ebook](t, w).Data.ID)

	w = doRequest(t, server, http.MethodGet, "/api/v1/ebooks/selection/", nil, token, "phone")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, second.ID, decodeEnvelope[domain.Ebook](t, w).Data.ID)
}

func TestSelection_ClearedByEbookDelete(t *testing.T) {
	server := setupTestServer(t)
	token := registerTestUser(t, server, "maria@example.com", "device-1").AccessToken
	ebook := createTestEbook(t, server, token, "Descartável")
	selectEbook(t, server, token, "device-1", ebook.ID)

	w := doRequest(t, server, http.MethodDelete, "/api/v1/ebooks/"+ebook.ID, nil, token, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, server, http.MethodGet, "/api/v1/ebooks/selection/", nil, token, "device-1")
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestEbooks_Clone(t *testing.T) {
	server := setupTestServer(t)
	token := registerTestUser(t, server, "maria@example.com", "device-1").AccessToken
	ebook := createTestEbook(t, server, token, "Original")
	selectEbook(t, server, token, "device-1", ebook.ID)

	w := doRequest(t, server, http.MethodPost, "/api/v1/ebooks/selection/activities", map[string]any{
		"activity_id": "a1",
	}, token, "device-1")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, server, http.MethodPost, "/api/v1/ebooks/"+ebook.ID+"/clone", nil, token, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	clone := decodeEnvelope[domain.Ebook](t, w).Data
	assert.Equal(t, "Original (cópia)", clone.Name)
	assert.Len(t, clone.Activities, 1)
	assert.NotEqual(t, ebook.ID, clone.ID)
}

func TestEbooks_Export(t *testing.T) {
	server := setupTestServer(t)
	token := registerTestUser(t, server, "maria@example.com", "device-1").AccessToken
	ebook := createTestEbook(t, server, token, "Verão na Praia")
	selectEbook(t, server, token, "device-1", ebook.ID)

	w := doRequest(t, server, http.MethodPost, "/api/v1/ebooks/selection/activities", map[string]any{
		"activity_id": "v1",
	}, token, "device-1")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, server, http.MethodGet, "/api/v1/ebooks/"+ebook.ID+"/export", nil, token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "verao_na_praia.pdf")
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))
}

func TestEbooks_Export_EmptyEbook(t *testing.T) {
	server := setupTestServer(t)
	token := registerTestUser(t, server, "maria@example.com", "device-1").AccessToken
	ebook := createTestEbook(t, server, token, "Vazio")

	w := doRequest(t, server, http.MethodGet, "/api/v1/ebooks/"+ebook.ID+"/export", nil, token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
