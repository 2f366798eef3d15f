package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidobra/kidobra-server/internal/domain"
)

func testIndex(t *testing.T) *Index {
	t.Helper()

	idx, err := New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	activities := []domain.Activity{
		{ID: "a1", CategoryID: "animais", Folder: "animais", File: "leao_colorido.png", ImageURL: "https://cdn.example.com/a1.png"},
		{ID: "a2", CategoryID: "animais", Folder: "animais", File: "girafa.png", ImageURL: "https://cdn.example.com/a2.png"},
		{ID: "v1", CategoryID: "verao", Folder: "verao", File: "praia_sol.png", ImageURL: "https://cdn.example.com/v1.png"},
	}
	categoryNames := map[string]string{
		"animais": "Animais",
		"verao":   "Verão",
	}
	require.NoError(t, idx.Rebuild(activities, categoryNames))

	return idx
}

func TestIndex_Search_ByName(t *testing.T) {
	idx := testIndex(t)

	result, err := idx.Search(context.Background(), "leao", "", 10)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "a1", result.Hits[0].ActivityID)
}

func TestIndex_Search_FoldsDiacritics(t *testing.T) {
	idx := testIndex(t)

	// Query with accents matches the folded category name
	result, err := idx.Search(context.Background(), "Verão", "", 10)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "v1", result.Hits[0].ActivityID)
}

func TestIndex_Search_CategoryFilter(t *testing.T) {
	idx := testIndex(t)

	result, err := idx.Search(context.Background(), "", "animais", 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)

	// Aggregate category id means no filter
	result, err = idx.Search(context.Background(), "", domain.AllActivitiesCategoryID, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), result.Total)
}

func TestIndex_Rebuild_ReplacesContents(t *testing.T) {
	idx := testIndex(t)

	require.NoError(t, idx.Rebuild([]domain.Activity{
		{ID: "n1", CategoryID: "numeros", Folder: "numeros", File: "um.png", ImageURL: "https://cdn.example.com/n1.png"},
	}, map[string]string{"numeros": "Números"}))

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}
