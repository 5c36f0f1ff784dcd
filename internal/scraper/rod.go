package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"moodboard/internal/domain"
)

// RodScraper implements the Scraper interface using the rod library.
// Each call launches its own headless browser; simpler than keeping a
// persistent instance, at the cost of startup latency per scrape.
type RodScraper struct {
	log           logrus.FieldLogger
	screenshotDir string
}

// NewRodScraper creates a new scraper service instance. Screenshots are
// written under screenshotDir, created on first use.
func NewRodScraper(screenshotDir string, logger logrus.FieldLogger) *RodScraper {
	return &RodScraper{
		log:           logger.WithField("component", "scraper"),
		screenshotDir: screenshotDir,
	}
}

// withPage launches a browser, navigates to url and hands the loaded page
// to fn. Browser and page are torn down when fn returns. The caller's
// context bounds the whole visit, navigation included.
func (s *RodScraper) withPage(ctx context.Context, url string, fn func(page *rod.Page) error) (err error) {
	log := s.log.WithField("url", url)

	path, exists := launcher.LookPath()
	if !exists {
		log.Error("Cannot find browser executable for rod")
		return errors.New("rod browser dependency not found")
	}
	u := launcher.New().Bin(path).MustLaunch()
	browser := rod.New().ControlURL(u)
	if err = browser.Connect(); err != nil {
		log.WithError(err).Error("Failed to connect to rod browser")
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			log.WithError(closeErr).Error("Error closing rod browser instance")
			if err == nil {
				err = fmt.Errorf("error closing browser: %w", closeErr)
			}
		}
	}()

	var page *rod.Page
	page, err = browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		log.WithError(err).Error("Failed to create rod page")
		return fmt.Errorf("failed to create page: %w", err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("error closing page: %w", closeErr)
		}
	}()

	page = page.Context(ctx)
	if err = page.WaitLoad(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warn("Page visit timed out")
			return fmt.Errorf("visit timed out for %s: %w", url, ctx.Err())
		}
		log.WithError(err).Error("Failed to wait for page load")
		return fmt.Errorf("failed waiting for page load: %w", err)
	}

	return fn(page)
}

// ScrapeMetadata fetches website metadata using rod. Fields that the page
// does not carry stay nil; the required URL fields are always populated.
func (s *RodScraper) ScrapeMetadata(ctx context.Context, url string) (domain.WebsiteMetadata, error) {
	log := s.log.WithField("url", url)
	log.Info("Scraping metadata")

	meta := domain.WebsiteMetadata{
		URL:          url,
		URLRequested: url,
		URLResolved:  url,
		OGImage:      []domain.ImageDescriptor{},
	}

	err := s.withPage(ctx, url, func(page *rod.Page) error {
		if info, err := page.Info(); err == nil && info.URL != "" {
			meta.URLResolved = info.URL
		}

		meta.Title = elementText(page, "title")
		meta.Description = metaContent(page, `meta[name="description"]`)
		meta.Favicon = firstAttr(page, "href", `link[rel="icon"]`, `link[rel="shortcut icon"]`)
		meta.Author = metaContent(page, `meta[name="author"]`)
		meta.Date = firstAttr(page, "content", `meta[property="article:published_time"]`, `meta[name="date"]`)
		meta.Image = metaContent(page, `meta[property="og:image"]`)
		meta.Logo = firstAttr(page, "href", `link[rel="apple-touch-icon"]`)
		meta.Publisher = firstAttr(page, "content", `meta[property="og:site_name"]`, `meta[name="publisher"]`)
		meta.OGTitle = metaContent(page, `meta[property="og:title"]`)
		meta.OGDescription = metaContent(page, `meta[property="og:description"]`)
		meta.OGLocale = metaContent(page, `meta[property="og:locale"]`)
		meta.OGURL = metaContent(page, `meta[property="og:url"]`)
		meta.Charset = firstAttr(page, "charset", `meta[charset]`)
		meta.OGImage = ogImages(page)
		return nil
	})
	if err != nil {
		return domain.WebsiteMetadata{}, err
	}

	log.Info("Metadata scraping completed")
	return meta, nil
}

// CaptureScreenshot renders the page and writes a full-page PNG under the
// configured directory, returning a file:// locator.
func (s *RodScraper) CaptureScreenshot(ctx context.Context, url string) (string, error) {
	log := s.log.WithField("url", url)
	log.Info("Capturing screenshot")

	var shot []byte
	err := s.withPage(ctx, url, func(page *rod.Page) error {
		var err error
		shot, err = page.Screenshot(true, &proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
		})
		if err != nil {
			return fmt.Errorf("capture screenshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.screenshotDir, 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}
	name := uuid.NewString() + ".png"
	dest := filepath.Join(s.screenshotDir, name)
	if err := os.WriteFile(dest, shot, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}

	abs, err := filepath.Abs(dest)
	if err != nil {
		abs = dest
	}
	log.WithField("path", abs).Info("Screenshot captured")
	return "file://" + abs, nil
}

// elementText returns the trimmed text of the first matching element, or
// nil when the page has none.
func elementText(page *rod.Page, selector string) *string {
	has, el, err := page.Has(selector)
	if err != nil || !has {
		return nil
	}
	text, err := el.Text()
	if err != nil {
		return nil
	}
	text = strings.TrimSpace(text)
	return &text
}

// metaContent returns the content attribute of the first matching meta tag.
func metaContent(page *rod.Page, selector string) *string {
	return firstAttr(page, "content", selector)
}

// firstAttr walks selectors in order and returns the first non-empty value
// of the named attribute, or nil when none of them match.
func firstAttr(page *rod.Page, attr string, selectors ...string) *string {
	for _, selector := range selectors {
		has, el, err := page.Has(selector)
		if err != nil || !has {
			continue
		}
		val, err := el.Attribute(attr)
		if err != nil || val == nil {
			continue
		}
		v := strings.TrimSpace(*val)
		if v != "" {
			return &v
		}
	}
	return nil
}

// ogImages collects every og:image descriptor in document order, pairing
// width/height/type tags with their image by position.
func ogImages(page *rod.Page) []domain.ImageDescriptor {
	images := []domain.ImageDescriptor{}

	els, err := page.Elements(`meta[property="og:image"]`)
	if err != nil {
		return images
	}
	widths := attrList(page, `meta[property="og:image:width"]`)
	heights := attrList(page, `meta[property="og:image:height"]`)
	types := attrList(page, `meta[property="og:image:type"]`)

	for i, el := range els {
		content, err := el.Attribute("content")
		if err != nil || content == nil || strings.TrimSpace(*content) == "" {
			continue
		}
		desc := domain.ImageDescriptor{URL: strings.TrimSpace(*content)}
		if i < len(widths) {
			desc.Width = &widths[i]
		}
		if i < len(heights) {
			desc.Height = &heights[i]
		}
		if i < len(types) {
			desc.Type = &types[i]
		}
		images = append(images, desc)
	}
	return images
}

func attrList(page *rod.Page, selector string) []string {
	var vals []string
	els, err := page.Elements(selector)
	if err != nil {
		return nil
	}
	for _, el := range els {
		content, err := el.Attribute("content")
		if err != nil || content == nil {
			continue
		}
		vals = append(vals, strings.TrimSpace(*content))
	}
	return vals
}
