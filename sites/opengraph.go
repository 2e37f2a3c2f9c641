package sites

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
	"github.com/super-dl/super-dl/models"
)

// openGraphExtractor handles sites that publish the video through OpenGraph
// metadata (og:video and friends). Parsing goes through go-opengraph first
// with a goquery pass as the safety net for non-conforming markup.
type openGraphExtractor struct{}

func (openGraphExtractor) Name() string { return "opengraph" }

func (o openGraphExtractor) Extract(ctx context.Context, pg *Page, fetch FetchFunc) (*models.MediaReference, error) {
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(strings.NewReader(pg.HTML)); err == nil {
		for _, v := range og.Videos {
			raw := v.SecureURL
			if raw == "" {
				raw = v.URL
			}
			if raw == "" {
				continue
			}
			if ref, err := resolveRef(pg, raw, kindOf(raw), o.Name()); err == nil {
				if ref.Title == "" {
					ref.Title = og.Title
				}
				return ref, nil
			}
		}
	}

	// Fallback: scan the meta tags directly. Some sites emit og:video
	// without the surrounding og:type scaffolding go-opengraph expects.
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(pg.HTML)); err == nil {
		for _, prop := range []string{"og:video:secure_url", "og:video:url", "og:video"} {
			raw, ok := doc.Find(`meta[property="` + prop + `"]`).First().Attr("content")
			if ok && strings.TrimSpace(raw) != "" {
				return resolveRef(pg, raw, kindOf(raw), o.Name())
			}
		}
	}

	if raw := firstMP4(pg.HTML); raw != "" {
		return resolveRef(pg, raw, models.MediaKindMP4, o.Name())
	}
	return nil, errNoMedia(o.Name())
}

// kindOf guesses the media kind from the URL path.
func kindOf(raw string) string {
	if strings.Contains(raw, ".m3u8") {
		return models.MediaKindHLS
	}
	return models.MediaKindMP4
}

func init() {
	Register(openGraphExtractor{})
}
