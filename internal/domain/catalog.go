package domain

// Activity is an immutable catalog entry: one printable activity image.
// Activities are produced by the external ingestion job and are read-only
// to this server. The id is unique across the entire catalog; Order is
// unique only within the activity's category.
type Activity struct {
	ID         string `json:"id"`
	Order      int    `json:"order"`
	CategoryID string `json:"category"`
	Folder     string `json:"folder"`
	File       string `json:"file"`
	ImageURL   string `json:"image_url"`
}

// AllActivitiesCategoryID is the id of the synthetic category that
// aggregates every activity in the catalog.
const AllActivitiesCategoryID = "todas"

// Category is a catalog grouping of activities.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Order       int    `json:"order"`

	// AllActivities marks the synthetic aggregate view over the whole catalog.
	AllActivities bool `json:"all_activities"`
}
