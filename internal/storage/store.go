package storage

import (
	"context"

	"moodboard/internal/domain"
)

// Store defines the persistence interface for projects and inspirations.
// Keeping it an interface lets the service layer run against an isolated
// per-test database without touching the application's handle.
type Store interface {
	// Open is idempotent. The first call of the process lifetime creates
	// the database if absent; later calls on an open store are no-ops.
	Open() error

	// GetProject returns the project or domain.ErrNotFound. Never partial.
	GetProject(ctx context.Context, id string) (domain.Project, error)

	// PutProject upserts the whole record by ID.
	PutProject(ctx context.Context, p domain.Project) error

	// DeleteProject removes the project record only (no cascade).
	// No-op when the id is absent.
	DeleteProject(ctx context.Context, id string) error

	// ListProjects returns every project in engine key order.
	ListProjects(ctx context.Context) ([]domain.Project, error)

	// GetInspiration returns the inspiration or domain.ErrNotFound.
	GetInspiration(ctx context.Context, id string) (domain.Inspiration, error)

	// PutInspiration upserts the record and maintains its projectId index
	// entry in the same transaction.
	PutInspiration(ctx context.Context, insp domain.Inspiration) error

	// DeleteInspiration removes the record and its index entry.
	// No-op when the id is absent.
	DeleteInspiration(ctx context.Context, id string) error

	// ListInspirationsByProject scans the projectId index. Order is the
	// engine's key order, not chronological; callers needing chronological
	// order must sort on CreatedAt themselves.
	ListInspirationsByProject(ctx context.Context, projectID string) ([]domain.Inspiration, error)

	// CountInspirationsByProject counts index entries without loading
	// inspiration payloads.
	CountInspirationsByProject(ctx context.Context, projectID string) (int, error)

	// DeleteProjectCascade removes the project, all inspirations owned by
	// it and their index entries inside one transaction, so a crash can
	// never leave orphaned inspirations behind. For service-layer cascades
	// only; never handed to the driver surface.
	DeleteProjectCascade(ctx context.Context, projectID string) error

	// Close gracefully shuts down the store.
	Close() error
}
