package sites

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/super-dl/super-dl/models"
)

// htmlVideoExtractor handles sites that embed the file directly in markup:
// schema.org contentURL metadata, <source>/<video> elements, or a download
// anchor. This is the most common pattern for simple hosts.
type htmlVideoExtractor struct{}

func (htmlVideoExtractor) Name() string { return "htmlvideo" }

// candidate selectors in preference order; attr names the attribute that
// carries the URL.
var htmlVideoSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[itemprop="contentURL"]`, "content"},
	{`source[type="video/mp4"]`, "src"},
	{`video[src]`, "src"},
	{`video source[src]`, "src"},
	{`a[href$=".mp4"]`, "href"},
}

func (h htmlVideoExtractor) Extract(ctx context.Context, pg *Page, fetch FetchFunc) (*models.MediaReference, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pg.HTML))
	if err == nil {
		for _, c := range htmlVideoSelectors {
			raw, ok := doc.Find(c.selector).First().Attr(c.attr)
			if !ok || strings.TrimSpace(raw) == "" {
				continue
			}
			// contentURL metadata sometimes points at a watch page, not
			// the file; only trust it when it names an mp4.
			if c.selector == `meta[itemprop="contentURL"]` && !strings.Contains(raw, ".mp4") {
				continue
			}
			if ref, err := resolveRef(pg, raw, models.MediaKindMP4, h.Name()); err == nil {
				return ref, nil
			}
		}
	}

	if raw := firstMP4(pg.HTML); raw != "" {
		return resolveRef(pg, raw, models.MediaKindMP4, h.Name())
	}
	return nil, errNoMedia(h.Name())
}

func init() {
	Register(htmlVideoExtractor{})
}
