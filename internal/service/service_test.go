package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodboard/internal/domain"
	"moodboard/internal/storage"
)

// stubScraper is a controllable Scraper for service tests; no browser.
type stubScraper struct {
	meta    domain.WebsiteMetadata
	metaErr error
	shot    string
	shotErr error
}

func (s *stubScraper) ScrapeMetadata(ctx context.Context, url string) (domain.WebsiteMetadata, error) {
	if s.metaErr != nil {
		return domain.WebsiteMetadata{}, s.metaErr
	}
	return s.meta, nil
}

func (s *stubScraper) CaptureScreenshot(ctx context.Context, url string) (string, error) {
	if s.shotErr != nil {
		return "", s.shotErr
	}
	return s.shot, nil
}

func newTestService(t *testing.T, scr *stubScraper, opts Options) (*Service, *storage.BadgerStore) {
	t.Helper()

	testLogger := logrus.New()
	testLogger.SetOutput(os.Stderr)
	testLogger.SetLevel(logrus.ErrorLevel)

	store, err := storage.NewBadgerStore(t.TempDir(), testLogger)
	require.NoError(t, err, "Failed to create test store")
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	var svc *Service
	if scr != nil {
		svc = New(store, scr, opts, testLogger)
	} else {
		svc = New(store, nil, opts, testLogger)
	}
	return svc, store
}

func TestCreateProject_StampsAndIdentifiers(t *testing.T) {
	svc, _ := newTestService(t, nil, Options{})
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		p, err := svc.CreateProject(ctx, "Project", "desc")
		require.NoError(t, err)

		assert.True(t, p.CreatedAt.Equal(p.UpdatedAt), "CreatedAt must equal UpdatedAt on creation")
		_, err = uuid.Parse(p.ID)
		assert.NoError(t, err, "ID should be a generated uuid")
		assert.False(t, seen[p.ID], "Identifiers must be unique within a run")
		seen[p.ID] = true
	}
}

func TestCreateProject_RejectsEmptyName(t *testing.T) {
	svc, _ := newTestService(t, nil, Options{})
	ctx := context.Background()

	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := svc.CreateProject(ctx, name, "x")
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err), "Empty name must be a ValidationError, got %v", err)
	}

	// Nothing was persisted.
	projects, err := svc.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestUpdateProject(t *testing.T) {
	svc, _ := newTestService(t, nil, Options{})
	ctx := context.Background()

	_, err := svc.UpdateProject(ctx, "missing", ProjectPatch{})
	assert.ErrorIs(t, err, domain.ErrNotFound, "Updating a missing project must error, unlike delete")

	p, err := svc.CreateProject(ctx, "Before", "old")
	require.NoError(t, err)

	newName := "After"
	newDesc := "new"
	updated, err := svc.UpdateProject(ctx, p.ID, ProjectPatch{Name: &newName, Description: &newDesc})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Name)
	assert.Equal(t, "new", updated.Description)
	assert.Equal(t, p.ID, updated.ID)
	assert.True(t, updated.CreatedAt.Equal(p.CreatedAt))
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt), "UpdatedAt must stay >= CreatedAt")

	empty := " "
	_, err = svc.UpdateProject(ctx, p.ID, ProjectPatch{Name: &empty})
	assert.True(t, domain.IsValidation(err), "Patching name to blank must be a ValidationError")

	// Patch with no fields leaves content alone but still bumps UpdatedAt.
	same, err := svc.UpdateProject(ctx, p.ID, ProjectPatch{})
	require.NoError(t, err)
	assert.Equal(t, "After", same.Name)
}

func TestDeleteProject_IdempotentForUnknownIDs(t *testing.T) {
	svc, _ := newTestService(t, nil, Options{})
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "Keeper", "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProject(ctx, "does-not-exist"), "Deleting an unknown project must not fail")

	projects, err := svc.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1, "Deleting an unknown project must not alter the list")
	assert.Equal(t, p.ID, projects[0].ID)
}

func TestCreateInspiration_RequiresExistingProject(t *testing.T) {
	svc, store := newTestService(t, nil, Options{})
	ctx := context.Background()

	_, err := svc.CreateInspiration(ctx, "no-such-project", domain.DegradedMetadata("https://example.com"), "", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	orphans, err := store.ListInspirationsByProject(ctx, "no-such-project")
	require.NoError(t, err)
	assert.Empty(t, orphans, "A failed create must persist nothing")
}

func TestPortfolioScenario(t *testing.T) {
	svc, _ := newTestService(t, nil, Options{})
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "Portfolio", "landing page ideas")
	require.NoError(t, err)

	_, err = svc.CreateInspiration(ctx, p.ID, domain.DegradedMetadata("https://site-one.test"), "", "hero layout")
	require.NoError(t, err)
	_, err = svc.CreateInspiration(ctx, p.ID, domain.DegradedMetadata("https://site-two.test"), "", "")
	require.NoError(t, err)

	projects, err := svc.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)

	summaries, err := svc.ListProjectSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].InspirationCount)

	inspirations, err := svc.ListInspirationsByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, inspirations, 2)

	require.NoError(t, svc.DeleteProject(ctx, p.ID))

	projects, err = svc.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)

	inspirations, err = svc.ListInspirationsByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, inspirations, "Cascade must leave no inspirations behind")
}

func TestListProjects_NewestFirst(t *testing.T) {
	svc, store := newTestService(t, nil, Options{})
	ctx := context.Background()

	// Write directly so creation times are controlled.
	base := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	offsets := map[string]time.Duration{"old": 0, "mid": time.Hour, "new": 2 * time.Hour}
	for _, id := range []string{"mid", "old", "new"} {
		created := base.Add(offsets[id])
		require.NoError(t, store.PutProject(ctx, domain.Project{
			ID: id, Name: id, CreatedAt: created, UpdatedAt: created,
		}))
	}

	projects, err := svc.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 3)
	assert.Equal(t, "new", projects[0].ID)
	assert.Equal(t, "mid", projects[1].ID)
	assert.Equal(t, "old", projects[2].ID)
}

func TestListInspirationsByProject_SortsByCreatedAtAscending(t *testing.T) {
	svc, store := newTestService(t, nil, Options{})
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "Ordering", "")
	require.NoError(t, err)

	t1 := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	t3 := t2.Add(time.Minute)

	// Insert out of chronological order: t2, t1, t3. The store's index
	// scan follows key order, so only the service sort can fix this.
	for _, insp := range []domain.Inspiration{
		{ID: "z-second", ProjectID: p.ID, Metadata: domain.DegradedMetadata("https://b.test"), CreatedAt: t2, UpdatedAt: t2},
		{ID: "a-first", ProjectID: p.ID, Metadata: domain.DegradedMetadata("https://a.test"), CreatedAt: t1, UpdatedAt: t1},
		{ID: "m-third", ProjectID: p.ID, Metadata: domain.DegradedMetadata("https://c.test"), CreatedAt: t3, UpdatedAt: t3},
	} {
		require.NoError(t, store.PutInspiration(ctx, insp))
	}

	inspirations, err := svc.ListInspirationsByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, inspirations, 3)
	assert.True(t, inspirations[0].CreatedAt.Equal(t1))
	assert.True(t, inspirations[1].CreatedAt.Equal(t2))
	assert.True(t, inspirations[2].CreatedAt.Equal(t3))
}

func TestUpdateAndDeleteInspiration(t *testing.T) {
	svc, _ := newTestService(t, nil, Options{})
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "Patching", "")
	require.NoError(t, err)
	insp, err := svc.CreateInspiration(ctx, p.ID, domain.DegradedMetadata("https://x.test"), "", "old notes")
	require.NoError(t, err)

	notes := "new notes"
	shot := "file:///tmp/shot.png"
	updated, err := svc.UpdateInspiration(ctx, insp.ID, InspirationPatch{Notes: &notes, ScreenshotURI: &shot})
	require.NoError(t, err)
	assert.Equal(t, "new notes", updated.Notes)
	assert.Equal(t, shot, updated.ScreenshotURI)
	assert.Equal(t, p.ID, updated.ProjectID, "ProjectID never changes after creation")
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	_, err = svc.UpdateInspiration(ctx, "missing", InspirationPatch{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.DeleteInspiration(ctx, insp.ID))
	require.NoError(t, svc.DeleteInspiration(ctx, insp.ID), "Repeated delete is a no-op")

	inspirations, err := svc.ListInspirationsByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, inspirations)
}

func TestFetchWebsiteMetadata_DegradesOnScrapeFailure(t *testing.T) {
	scr := &stubScraper{metaErr: errors.New("timeout")}
	svc, _ := newTestService(t, scr, Options{ScrapeTimeout: time.Second})
	ctx := context.Background()

	meta := svc.FetchWebsiteMetadata(ctx, "https://slow.test")
	assert.Equal(t, "https://slow.test", meta.URL)
	assert.Equal(t, "https://slow.test", meta.URLRequested)
	assert.Nil(t, meta.Title)
	assert.Nil(t, meta.Description)
	assert.Nil(t, meta.OGTitle)
	assert.NotNil(t, meta.OGImage)
	assert.Empty(t, meta.OGImage)
}

func TestSaveInspirationFromURL_SurvivesDegradedScrape(t *testing.T) {
	scr := &stubScraper{metaErr: errors.New("timeout"), shotErr: errors.New("no browser")}
	svc, _ := newTestService(t, scr, Options{ScrapeTimeout: time.Second})
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "Degraded", "")
	require.NoError(t, err)

	insp, err := svc.SaveInspirationFromURL(ctx, p.ID, "https://slow.test", "still worth keeping")
	require.NoError(t, err, "Scrape failure must not fail inspiration creation")
	assert.Equal(t, "https://slow.test", insp.Metadata.URL)
	assert.Nil(t, insp.Metadata.Title)
	assert.Empty(t, insp.ScreenshotURI)
	assert.Equal(t, "still worth keeping", insp.Notes)

	inspirations, err := svc.ListInspirationsByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, inspirations, 1)
}

func TestSaveInspirationFromURL_FullScrape(t *testing.T) {
	title := "Nice Site"
	scr := &stubScraper{
		meta: domain.WebsiteMetadata{
			URL:          "https://nice.test",
			URLRequested: "https://nice.test",
			URLResolved:  "https://www.nice.test/",
			Title:        &title,
			OGImage:      []domain.ImageDescriptor{{URL: "https://nice.test/og.png"}},
		},
		shot: "file:///tmp/nice.png",
	}
	svc, _ := newTestService(t, scr, Options{ScrapeTimeout: time.Second})
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "Full", "")
	require.NoError(t, err)

	insp, err := svc.SaveInspirationFromURL(ctx, p.ID, "https://nice.test", "")
	require.NoError(t, err)
	require.NotNil(t, insp.Metadata.Title)
	assert.Equal(t, "Nice Site", *insp.Metadata.Title)
	assert.Equal(t, "https://www.nice.test/", insp.Metadata.URLResolved)
	assert.Equal(t, "file:///tmp/nice.png", insp.ScreenshotURI)
	require.Len(t, insp.Metadata.OGImage, 1)
}

func TestSimulatedLatencyDelaysButNeverFails(t *testing.T) {
	latency := 50 * time.Millisecond
	svc, _ := newTestService(t, nil, Options{SimulatedLatency: latency})
	ctx := context.Background()

	start := time.Now()
	_, err := svc.CreateProject(ctx, "Slow", "")
	elapsed := time.Since(start)

	require.NoError(t, err, "Latency simulation must never cause a failure")
	assert.GreaterOrEqual(t, elapsed, latency)

	// A cancelled context wakes the delay early without erroring the
	// delay itself.
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	projects, err := svc.ListProjects(cancelled)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}
