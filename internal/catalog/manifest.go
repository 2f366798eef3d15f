// Package catalog loads and serves the activity catalog.
//
// The catalog is produced by the ingestion job as a JSON manifest and is
// read-only at runtime: users browse it and copy activities into their
// ebooks, but never modify it.
package catalog

import (
	"encoding/json/v2"
	"fmt"
	"os"

	"github.com/kidobra/kidobra-server/internal/domain"
)

// Manifest is the on-disk catalog format written by the ingestion job.
type Manifest struct {
	Categories []domain.Category `json:"categories"`
	Activities []domain.Activity `json:"activities"`
}

// LoadManifest reads and validates a catalog manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- Manifest path comes from validated config
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	return &m, nil
}

// Validate checks manifest integrity: unique ids, resolvable category
// references, and image URLs present on every activity.
func (m *Manifest) Validate() error {
	if len(m.Categories) == 0 {
		return fmt.Errorf("manifest has no categories")
	}

	categoryIDs := make(map[string]bool, len(m.Categories))
	for _, c := range m.Categories {
		if c.ID == "" {
			return fmt.Errorf("category with empty id")
		}
		if c.ID == domain.AllActivitiesCategoryID {
			return fmt.Errorf("category id %q is reserved", domain.AllActivitiesCategoryID)
		}
		if categoryIDs[c.ID] {
			return fmt.Errorf("duplicate category id %q", c.ID)
		}
		categoryIDs[c.ID] = true
	}

	activityIDs := make(map[string]bool, len(m.Activities))
	for _, a := range m.Activities {
		if a.ID == "" {
			return fmt.Errorf("activity with empty id")
		}
		if activityIDs[a.ID] {
			return fmt.Errorf("duplicate activity id %q", a.ID)
		}
		activityIDs[a.ID] = true

		if !categoryIDs[a.CategoryID] {
			return fmt.Errorf("activity %q references unknown category %q", a.ID, a.CategoryID)
		}
		if a.ImageURL == "" {
			return fmt.Errorf("activity %q has no image URL", a.ID)
		}
	}

	return nil
}
