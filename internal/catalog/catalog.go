package catalog

import (
	"sort"
	"sync"

	"github.com/kidobra/kidobra-server/internal/domain"
	"github.com/kidobra/kidobra-server/internal/errors"
)

// Catalog holds the activity catalog in memory.
//
// Thread safety: all public methods are safe for concurrent use. The
// watcher swaps the whole snapshot under the write lock on reload, so
// readers always see a consistent manifest.
type Catalog struct {
	mu         sync.RWMutex
	categories []domain.Category
	activities []domain.Activity
	byID       map[string]domain.Activity
	byCategory map[string][]domain.Activity
}

// New builds a catalog from a validated manifest.
func New(m *Manifest) *Catalog {
	c := &Catalog{}
	c.replace(m)
	return c
}

// Replace swaps the catalog contents for a freshly loaded manifest.
func (c *Catalog) Replace(m *Manifest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replace(m)
}

func (c *Catalog) replace(m *Manifest) {
	categories := make([]domain.Category, len(m.Categories))
	copy(categories, m.Categories)
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Order < categories[j].Order
	})

	// The synthetic all-activities category always leads the list.
	all := domain.Category{
		ID:            domain.AllActivitiesCategoryID,
		Name:          "Todas as Atividades",
		Description:   "Todas as atividades do catálogo",
		Order:         0,
		AllActivities: true,
	}
	if len(categories) > 0 {
		all.ImageURL = categories[0].ImageURL
	}
	c.categories = append([]domain.Category{all}, categories...)

	activities := make([]domain.Activity, len(m.Activities))
	copy(activities, m.Activities)

	byCategory := make(map[string][]domain.Activity)
	for _, a := range activities {
		byCategory[a.CategoryID] = append(byCategory[a.CategoryID], a)
	}
	for id := range byCategory {
		list := byCategory[id]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Order < list[j].Order
		})
		byCategory[id] = list
	}

	// The aggregate view lists activities grouped by category order,
	// then by activity order within the category.
	categoryRank := make(map[string]int, len(categories))
	for i, cat := range categories {
		categoryRank[cat.ID] = i
	}
	sort.SliceStable(activities, func(i, j int) bool {
		ri, rj := categoryRank[activities[i].CategoryID], categoryRank[activities[j].CategoryID]
		if ri != rj {
			return ri < rj
		}
		return activities[i].Order < activities[j].Order
	})

	byID := make(map[string]domain.Activity, len(activities))
	for _, a := range activities {
		byID[a.ID] = a
	}

	c.activities = activities
	c.byID = byID
	c.byCategory = byCategory
}

// Categories returns all categories, the synthetic aggregate first.
func (c *Catalog) Categories() []domain.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// GetCategory returns a category by id.
func (c *Catalog) GetCategory(id string) (domain.Category, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, cat := range c.categories {
		if cat.ID == id {
			return cat, nil
		}
	}
	return domain.Category{}, errors.NotFoundf("category %q not found", id)
}

// ActivitiesByCategory returns the ordered activities of a category.
// The synthetic aggregate id returns every activity in the catalog.
func (c *Catalog) ActivitiesByCategory(categoryID string) ([]domain.Activity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if categoryID == domain.AllActivitiesCategoryID {
		out := make([]domain.Activity, len(c.activities))
		copy(out, c.activities)
		return out, nil
	}

	list, ok := c.byCategory[categoryID]
	if !ok {
		// A category with no activities is still valid.
		for _, cat := range c.categories {
			if cat.ID == categoryID {
				return []domain.Activity{}, nil
			}
		}
		return nil, errors.NotFoundf("category %q not found", categoryID)
	}

	out := make([]domain.Activity, len(list))
	copy(out, list)
	return out, nil
}

// GetActivity returns an activity by id.
func (c *Catalog) GetActivity(id string) (domain.Activity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, ok := c.byID[id]
	if !ok {
		return domain.Activity{}, errors.NotFoundf("activity %q not found", id)
	}
	return a, nil
}

// ActivityCount returns the number of activities in the catalog.
func (c *Catalog) ActivityCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.activities)
}

// Activities returns every activity in aggregate order.
func (c *Catalog) Activities() []domain.Activity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Activity, len(c.activities))
	copy(out, c.activities)
	return out
}
