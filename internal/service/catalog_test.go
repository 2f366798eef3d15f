package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidobra/kidobra-server/internal/catalog"
	"github.com/kidobra/kidobra-server/internal/domain"
	"github.com/kidobra/kidobra-server/internal/search"
)

func setupCatalogTest(t *testing.T) *CatalogService {
	t.Helper()

	manifest := &catalog.Manifest{
		Categories: []domain.Category{
			{ID: "animais", Name: "Animais", Order: 1},
			{ID: "verao", Name: "Verão", Order: 2},
		},
		Activities: []domain.Activity{
			{ID: "a1", Order: 1, CategoryID: "animais", File: "leao.png", ImageURL: "https://cdn.example.com/a1.png"},
			{ID: "v1", Order: 1, CategoryID: "verao", File: "praia.png", ImageURL: "https://cdn.example.com/v1.png"},
		},
	}
	cat := catalog.New(manifest)

	idx, err := search.New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	categoryNames := make(map[string]string)
	for _, c := range cat.Categories() {
		categoryNames[c.ID] = c.Name
	}
	require.NoError(t, idx.Rebuild(cat.Activities(), categoryNames))

	return NewCatalogService(cat, idx, nil)
}

func TestCatalogService_Categories_AggregateFirst(t *testing.T) {
	svc := setupCatalogTest(t)

	categories := svc.Categories(context.Background())
	require.Len(t, categories, 3)
	assert.Equal(t, domain.AllActivitiesCategoryID, categories[0].ID)
	assert.True(t, categories[0].AllActivities)
}

func TestCatalogService_Activities_AggregateReturnsAll(t *testing.T) {
	svc := setupCatalogTest(t)
	ctx := context.Background()

	activities, err := svc.Activities(ctx, domain.AllActivitiesCategoryID)
	require.NoError(t, err)
	assert.Len(t, activities, 2)

	activities, err = svc.Activities(ctx, "animais")
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "a1", activities[0].ID)
}

func TestCatalogService_Search_ResolvesActivities(t *testing.T) {
	svc := setupCatalogTest(t)

	resp, err := svc.Search(context.Background(), "verao", "", 10)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Activities)
	assert.Equal(t, "v1", resp.Activities[0].ID)
}
