package scraper

import (
	"context"

	"moodboard/internal/domain"
)

// Scraper defines the interface for the external metadata-fetch and
// screenshot-capture collaborators. Implementations may fail; the service
// layer decides what failure means (it degrades metadata and tolerates a
// missing screenshot rather than failing inspiration creation).
type Scraper interface {
	// ScrapeMetadata fetches website metadata for a URL.
	ScrapeMetadata(ctx context.Context, url string) (domain.WebsiteMetadata, error)

	// CaptureScreenshot renders the page and stores a screenshot,
	// returning an opaque locator for it.
	CaptureScreenshot(ctx context.Context, url string) (string, error)
}
