package domain

import "time"

// Project is a named collection of inspirations. It does not embed its
// inspirations inline; they reference their owning project by ProjectID.
type Project struct {
	// ID is the unique identifier, generated at creation and never changed.
	ID string `json:"id"`

	// Name is the user-visible project name. Must be non-empty.
	Name string `json:"name"`

	// Description is optional free text.
	Description string `json:"description"`

	// CreatedAt is set once at creation time (UTC).
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is bumped on every mutation. Always >= CreatedAt.
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProjectSummary is a Project enriched with its inspiration count,
// for listing surfaces that show collection sizes without loading payloads.
type ProjectSummary struct {
	Project
	InspirationCount int `json:"inspirationCount"`
}

// Inspiration is a single captured design reference belonging to exactly
// one project. Its ProjectID is immutable; re-parenting is not supported.
type Inspiration struct {
	// ID is the unique identifier, generated at creation and never changed.
	ID string `json:"id"`

	// ProjectID references the owning project. Verified at creation time.
	ProjectID string `json:"projectId"`

	// Metadata is the scraped website metadata, embedded and owned
	// exclusively by this inspiration.
	Metadata WebsiteMetadata `json:"websiteMetadata"`

	// ScreenshotURI locates the captured screenshot. Empty when capture
	// failed; treated as an opaque locator otherwise.
	ScreenshotURI string `json:"screenshotUri"`

	// Notes is user-editable free text with no length constraint.
	Notes string `json:"notes"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
