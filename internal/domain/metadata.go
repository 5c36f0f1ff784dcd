package domain

// WebsiteMetadata is a value object describing a scraped URL. It has no
// identity or lifecycle of its own; it lives inside an Inspiration.
//
// Optional fields are pointers WITHOUT omitempty so an unscraped field
// serializes as an explicit null. Consumers can then tell "not scraped"
// apart from "scraped and empty".
type WebsiteMetadata struct {
	// URL is the canonical URL of the page.
	URL string `json:"url"`

	// URLRequested is the URL the scrape was asked for.
	URLRequested string `json:"urlRequested"`

	// URLResolved is the final URL after redirects.
	URLResolved string `json:"urlResolved"`

	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Favicon       *string `json:"favicon"`
	Author        *string `json:"author"`
	Date          *string `json:"date"`
	Image         *string `json:"image"`
	Logo          *string `json:"logo"`
	Publisher     *string `json:"publisher"`
	OGTitle       *string `json:"ogTitle"`
	OGDescription *string `json:"ogDescription"`
	OGLocale      *string `json:"ogLocale"`
	OGURL         *string `json:"ogUrl"`
	Charset       *string `json:"charset"`

	// OGImage holds every og:image descriptor in document order.
	// May be empty.
	OGImage []ImageDescriptor `json:"ogImage"`
}

// ImageDescriptor describes one og:image entry.
type ImageDescriptor struct {
	URL    string  `json:"url"`
	Type   *string `json:"type"`
	Width  *string `json:"width"`
	Height *string `json:"height"`
}

// DegradedMetadata builds the minimal record returned when scraping fails:
// only the request URL is known, every optional field stays explicitly null.
// Degraded metadata is data, not an error.
func DegradedMetadata(url string) WebsiteMetadata {
	return WebsiteMetadata{
		URL:          url,
		URLRequested: url,
		URLResolved:  url,
		OGImage:      []ImageDescriptor{},
	}
}
