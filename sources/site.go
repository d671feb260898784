package sources

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go-openimage"
)

// SitePreset describes one government site and the license its own photos carry.
type SitePreset struct {
	Name          string // source name, stable
	Domain        string // page host; subdomains match too
	License       openimage.LicenseKind
	LicenseURL    string
	DefaultAuthor string           // used when no credit is found
	Credits       []*regexp.Regexp // first submatch is the credit text; tried in order
	Denylist      []string         // agency names rejected in credits
}

var (
	frenchCredits = []*regexp.Regexp{
		regexp.MustCompile(`(?i)crédit[:\s]*([^\n.]+)`),
		regexp.MustCompile(`(?i)photo[:\s]*([^\n.]+)`),
		regexp.MustCompile(`(?i)source[:\s]*([^\n.]+)`),
		regexp.MustCompile(`(?i)©[:\s]*([^\n.]+)`),
		regexp.MustCompile(`(?i)copyright[:\s]*([^\n.]+)`),
	}
	englishCredits = []*regexp.Regexp{
		regexp.MustCompile(`(?i)credit[:\s]*([^\n.]+)`),
		regexp.MustCompile(`(?i)photo[:\s]*([^\n.]+)`),
		regexp.MustCompile(`(?i)image[:\s]*([^\n.]+)`),
		regexp.MustCompile(`(?i)source[:\s]*([^\n.]+)`),
		regexp.MustCompile(`(?i)©[:\s]*([^\n.]+)`),
		regexp.MustCompile(`(?i)copyright[:\s]*([^\n.]+)`),
		regexp.MustCompile(`(?i)photographer[:\s]*([^\n.]+)`),
	}

	// WireAgencies are news and stock agencies whose credited photos are
	// never reusable, even on a government page.
	WireAgencies = []string{
		"ap", "associated press", "reuters", "getty", "getty images", "afp",
		"upi", "epa", "shutterstock", "alamy", "corbis",
	}
)

// Site presets.
var (
	InfoGouv = SitePreset{
		Name:       "Info.gouv.fr",
		Domain:     "info.gouv.fr",
		License:    openimage.LicenseEtalab,
		LicenseURL: "https://www.etalab.gouv.fr/licence-ouverte-open-licence/",
		Credits:    frenchCredits,
		Denylist:   []string{"afp"},
	}
	WhiteHouse = SitePreset{
		Name:          "WhiteHouse.gov",
		Domain:        "whitehouse.gov",
		License:       openimage.LicensePublicDomain,
		LicenseURL:    "https://www.usa.gov/government-works",
		DefaultAuthor: "White House",
		Credits:       englishCredits,
		Denylist:      WireAgencies,
	}
	Europa = SitePreset{
		Name:          "European Commission",
		Domain:        "commission.europa.eu",
		License:       openimage.LicenseCCBY,
		LicenseURL:    "https://commission.europa.eu/legal-notice_en#copyright-notice",
		DefaultAuthor: "European Commission",
		Credits:       englishCredits,
		Denylist:      WireAgencies,
	}
)

// Presets lists the built-in site presets by config key.
var Presets = map[string]SitePreset{
	"infogouv":   InfoGouv,
	"whitehouse": WhiteHouse,
	"europa":     Europa,
}

// overFetch is how many search hits are requested per wanted result; the
// site pipeline drops most of them.
const overFetch = 3

// Site searches one government site through a web search backend, scrapes
// each candidate page for its photo credit and keeps only images the site
// itself owns.
type Site struct {
	preset  SitePreset
	search  SearchBackend
	scraper PageScraper
	dl      *openimage.Downloader
	probe   bool
}

// SiteOption configures a Site.
type SiteOption func(*Site)

// WithScraper sets the detail-page scraper. Without one, credits come only
// from embedded image metadata.
func WithScraper(s PageScraper) SiteOption { return func(x *Site) { x.scraper = s } }

// WithDownloader enables reading embedded image metadata.
func WithDownloader(d *openimage.Downloader) SiteOption { return func(x *Site) { x.dl = d } }

// WithProbe fills dimensions by probing each image and drops unreachable ones.
// It needs a downloader.
func WithProbe(on bool) SiteOption { return func(x *Site) { x.probe = on } }

// NewSite returns a site adapter. A nil search backend makes it unavailable.
func NewSite(p SitePreset, search SearchBackend, opts ...SiteOption) *Site {
	s := &Site{preset: p, search: search}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Site) Name() string    { return s.preset.Name }
func (s *Site) Available() bool { return s.search != nil }

// Search runs the search, domain filter, relevance, credit and license steps
// and returns at most maxResults records.
func (s *Site) Search(ctx context.Context, query string, maxResults int) ([]openimage.ImageRecord, error) {
	if s.search == nil || maxResults <= 0 {
		return nil, nil
	}
	hits, err := s.search.SearchImages(ctx, query+" site:"+s.preset.Domain, maxResults*overFetch)
	if err != nil {
		return nil, err
	}

	log := slog.With("source", s.preset.Name)
	var out []openimage.ImageRecord
	for _, hit := range hits {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if !openimage.HostMatches(hit.URL, s.preset.Domain) {
			log.Debug("openimage/sources: off-site hit", "url", hit.URL)
			continue
		}
		if !mentions(hit, query) {
			log.Debug("openimage/sources: irrelevant hit", "url", hit.URL)
			continue
		}
		rec, ok := s.candidate(ctx, hit)
		if !ok {
			continue
		}
		out = append(out, rec)
		if len(out) >= maxResults {
			break
		}
	}
	return out, nil
}

// candidate turns one on-site hit into a record, or rejects it.
func (s *Site) candidate(ctx context.Context, hit SearchHit) (openimage.ImageRecord, bool) {
	log := slog.With("source", s.preset.Name, "url", hit.URL)

	var page *Page
	if s.scraper != nil {
		p, err := s.scraper.Scrape(ctx, hit.URL)
		if err != nil {
			log.Debug("openimage/sources: scrape failed", "error", err)
		} else {
			page = p
		}
	}

	img := strings.TrimSpace(hit.Thumbnail)
	if img == "" && page != nil {
		img = openimage.ExtractOGImageURL(page.HTML, hit.URL)
	}
	if img == "" {
		return openimage.ImageRecord{}, false
	}
	if openimage.CheckDomain(img, "") == openimage.DomainBlocked || openimage.IsSiteChrome(img) {
		log.Debug("openimage/sources: rejected image url", "image", img)
		return openimage.ImageRecord{}, false
	}

	credit := ""
	if page != nil {
		credit = s.findCredit(page)
	}

	var meta *openimage.ImageMetadata
	if s.dl != nil {
		if r, err := s.dl.Download(ctx, img, openimage.DownloadOpts{}); err == nil {
			meta = openimage.ExtractImageMetadata(r.Data)
		} else if errors.Is(err, openimage.ErrNotImage) {
			log.Debug("openimage/sources: not an image", "image", img)
			return openimage.ImageRecord{}, false
		}
	}
	if credit == "" && meta != nil {
		credit = meta.Credit()
	}

	verdict := openimage.AssessAttribution(img, hit.URL, credit, meta, s.preset.Denylist)
	if verdict.Verdict == openimage.DomainBlocked {
		log.Debug("openimage/sources: attribution blocked", "credit", credit, "signals", verdict.Signals)
		return openimage.ImageRecord{}, false
	}

	license, licenseURL := s.preset.License, s.preset.LicenseURL
	if page != nil {
		if ccURL := openimage.ExtractCCLicense(page.HTML); ccURL != "" {
			kind := openimage.LicenseFromCCURL(ccURL)
			if !kind.IsCommercialSafe() {
				log.Debug("openimage/sources: page license not reusable", "license", ccURL)
				return openimage.ImageRecord{}, false
			}
			license, licenseURL = kind, ccURL
		}
	}

	rec := openimage.ImageRecord{
		ImageURL:     img,
		ThumbnailURL: img,
		Source:       s.preset.Name,
		LicenseType:  license,
		LicenseURL:   licenseURL,
		Title:        hit.Title,
		Description:  openimage.TruncateRunes(hit.Content, maxDescriptionRunes),
		Author:       openimage.TruncateRunes(firstNonEmpty(credit, s.preset.DefaultAuthor, hit.Author), maxAuthorRunes),
		PageURL:      hit.URL,
		DownloadURL:  img,
	}

	if s.probe && s.dl != nil {
		probe, ok := s.dl.ProbeImage(ctx, img)
		if !ok {
			log.Debug("openimage/sources: probe rejected image", "image", img)
			return openimage.ImageRecord{}, false
		}
		rec.Width, rec.Height = probe.Width, probe.Height
	}
	return rec, true
}

// findCredit returns the first credit pattern match in the page text, then
// in the whole page when the scraper kept more than the article.
func (s *Site) findCredit(page *Page) string {
	if c := matchCredit(page.Text, s.preset.Credits); c != "" {
		return c
	}
	if page.HTML == "" {
		return ""
	}
	return matchCredit(htmlToText(page.HTML), s.preset.Credits)
}

func matchCredit(text string, patterns []*regexp.Regexp) string {
	if text == "" {
		return ""
	}
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if c := strings.TrimSpace(m[1]); c != "" {
				return c
			}
		}
	}
	return ""
}

// mentions reports whether the whole query appears in the hit's title or
// content, ignoring case.
func mentions(hit SearchHit, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	return strings.Contains(strings.ToLower(hit.Title), q) ||
		strings.Contains(strings.ToLower(hit.Content), q)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
