package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"moodboard/internal/domain"
	"moodboard/internal/scraper"
	"moodboard/internal/storage"
)

// Options tunes service behaviour.
type Options struct {
	// SimulatedLatency is a pure delay applied at the start of every call,
	// to mimic networked behaviour during development. Zero disables it.
	// It never fails a call and carries no retry semantics.
	SimulatedLatency time.Duration

	// ScrapeTimeout bounds each metadata fetch and screenshot capture.
	// On expiry the service degrades rather than erroring.
	ScrapeTimeout time.Duration
}

// Service implements the domain operations over a Store, enforcing the
// invariants the store does not know about: name validation, timestamp
// stamping, foreign-key checks and the project->inspirations cascade.
// It holds no record caches; every call reads or writes through the store.
type Service struct {
	store   storage.Store
	scraper scraper.Scraper
	opts    Options
	log     logrus.FieldLogger
}

// New creates a service. The scraper may be nil when metadata enrichment
// is not needed (FetchWebsiteMetadata then always degrades).
func New(store storage.Store, scr scraper.Scraper, opts Options, logger logrus.FieldLogger) *Service {
	if opts.ScrapeTimeout <= 0 {
		opts.ScrapeTimeout = 30 * time.Second
	}
	return &Service{
		store:   store,
		scraper: scr,
		opts:    opts,
		log:     logger.WithField("component", "service"),
	}
}

// ProjectPatch carries the mutable project fields. Nil means "leave as is".
type ProjectPatch struct {
	Name        *string
	Description *string
}

// InspirationPatch carries the mutable inspiration fields. ProjectID is
// deliberately absent: re-parenting is not supported.
type InspirationPatch struct {
	Notes         *string
	ScreenshotURI *string
}

// CreateProject validates the name, stamps timestamps and persists a new
// project. CreatedAt and UpdatedAt are identical on the returned record.
func (s *Service) CreateProject(ctx context.Context, name, description string) (domain.Project, error) {
	s.simulateLatency(ctx)

	if strings.TrimSpace(name) == "" {
		return domain.Project{}, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}

	now := time.Now().UTC()
	p := domain.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.PutProject(ctx, p); err != nil {
		return domain.Project{}, err
	}
	s.log.WithField("project_id", p.ID).Info("Project created")
	return p, nil
}

// UpdateProject merges the patch into an existing project and bumps
// UpdatedAt. Missing ids are an error here, unlike delete.
func (s *Service) UpdateProject(ctx context.Context, id string, patch ProjectPatch) (domain.Project, error) {
	s.simulateLatency(ctx)

	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return domain.Project{}, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
		}
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.store.PutProject(ctx, p); err != nil {
		return domain.Project{}, err
	}
	s.log.WithField("project_id", p.ID).Info("Project updated")
	return p, nil
}

// DeleteProject removes a project and cascades to all its inspirations in
// one store transaction. Deleting an unknown id is an idempotent no-op,
// asymmetric with UpdateProject on purpose.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	s.simulateLatency(ctx)

	_, err := s.store.GetProject(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		s.log.WithField("project_id", id).Debug("Delete of unknown project ignored")
		return nil
	}
	if err != nil {
		return err
	}
	return s.store.DeleteProjectCascade(ctx, id)
}

// ListProjects returns all projects, most recently created first.
func (s *Service) ListProjects(ctx context.Context) ([]domain.Project, error) {
	s.simulateLatency(ctx)

	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	return projects, nil
}

// ListProjectSummaries is ListProjects enriched with inspiration counts.
func (s *Service) ListProjectSummaries(ctx context.Context) ([]domain.ProjectSummary, error) {
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.ProjectSummary, 0, len(projects))
	for _, p := range projects {
		count, err := s.store.CountInspirationsByProject(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, domain.ProjectSummary{Project: p, InspirationCount: count})
	}
	return summaries, nil
}

// CreateInspiration persists a new inspiration under an existing project.
// The project is checked first; domain.ErrNotFound is returned unchanged
// when it does not exist and nothing is written.
func (s *Service) CreateInspiration(ctx context.Context, projectID string, meta domain.WebsiteMetadata, screenshotURI, notes string) (domain.Inspiration, error) {
	s.simulateLatency(ctx)

	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return domain.Inspiration{}, err
	}
	if meta.OGImage == nil {
		meta.OGImage = []domain.ImageDescriptor{}
	}

	now := time.Now().UTC()
	insp := domain.Inspiration{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		Metadata:      meta,
		ScreenshotURI: screenshotURI,
		Notes:         notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.PutInspiration(ctx, insp); err != nil {
		return domain.Inspiration{}, err
	}
	s.log.WithFields(logrus.Fields{
		"inspiration_id": insp.ID,
		"project_id":     projectID,
	}).Info("Inspiration created")
	return insp, nil
}

// UpdateInspiration merges the patch and bumps UpdatedAt. The owning
// project never changes.
func (s *Service) UpdateInspiration(ctx context.Context, id string, patch InspirationPatch) (domain.Inspiration, error) {
	s.simulateLatency(ctx)

	insp, err := s.store.GetInspiration(ctx, id)
	if err != nil {
		return domain.Inspiration{}, err
	}
	if patch.Notes != nil {
		insp.Notes = *patch.Notes
	}
	if patch.ScreenshotURI != nil {
		insp.ScreenshotURI = *patch.ScreenshotURI
	}
	insp.UpdatedAt = time.Now().UTC()

	if err := s.store.PutInspiration(ctx, insp); err != nil {
		return domain.Inspiration{}, err
	}
	return insp, nil
}

// DeleteInspiration removes one inspiration. No cascade; unknown ids are
// an idempotent no-op.
func (s *Service) DeleteInspiration(ctx context.Context, id string) error {
	s.simulateLatency(ctx)
	return s.store.DeleteInspiration(ctx, id)
}

// ListInspirationsByProject returns a project's inspirations sorted by
// CreatedAt ascending, the default browsing order. The store's index scan
// order is key order, so the sort here is not optional.
func (s *Service) ListInspirationsByProject(ctx context.Context, projectID string) ([]domain.Inspiration, error) {
	s.simulateLatency(ctx)

	inspirations, err := s.store.ListInspirationsByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	sort.Slice(inspirations, func(i, j int) bool {
		return inspirations[i].CreatedAt.Before(inspirations[j].CreatedAt)
	})
	return inspirations, nil
}

// FetchWebsiteMetadata asks the scraper for metadata with the configured
// timeout. Any failure degrades to a minimal record with only the URL
// fields populated; the caller never sees a scrape error.
func (s *Service) FetchWebsiteMetadata(ctx context.Context, url string) domain.WebsiteMetadata {
	log := s.log.WithField("url", url)

	if s.scraper == nil {
		return domain.DegradedMetadata(url)
	}

	scrapeCtx, cancel := context.WithTimeout(ctx, s.opts.ScrapeTimeout)
	defer cancel()

	meta, err := s.scraper.ScrapeMetadata(scrapeCtx, url)
	if err != nil {
		log.WithError(err).Warn("Metadata scrape failed, using degraded record")
		return domain.DegradedMetadata(url)
	}
	// Required fields hold even if the scraper misbehaved.
	if meta.URL == "" {
		meta.URL = url
	}
	if meta.URLRequested == "" {
		meta.URLRequested = url
	}
	if meta.URLResolved == "" {
		meta.URLResolved = meta.URL
	}
	if meta.OGImage == nil {
		meta.OGImage = []domain.ImageDescriptor{}
	}
	return meta
}

// SaveInspirationFromURL is the one-shot flow behind "send me a URL":
// scrape (degraded on failure), capture a screenshot (empty locator on
// failure), then create the inspiration. Only storage errors and a
// missing project can fail it.
func (s *Service) SaveInspirationFromURL(ctx context.Context, projectID, url, notes string) (domain.Inspiration, error) {
	meta := s.FetchWebsiteMetadata(ctx, url)

	screenshotURI := ""
	if s.scraper != nil {
		shotCtx, cancel := context.WithTimeout(ctx, s.opts.ScrapeTimeout)
		uri, err := s.scraper.CaptureScreenshot(shotCtx, url)
		cancel()
		if err != nil {
			s.log.WithError(err).WithField("url", url).Warn("Screenshot capture failed, saving without one")
		} else {
			screenshotURI = uri
		}
	}

	return s.CreateInspiration(ctx, projectID, meta, screenshotURI, notes)
}

// simulateLatency sleeps for the configured duration, waking early if the
// context ends. It is a development aid only and never produces an error.
func (s *Service) simulateLatency(ctx context.Context) {
	if s.opts.SimulatedLatency <= 0 {
		return
	}
	timer := time.NewTimer(s.opts.SimulatedLatency)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
