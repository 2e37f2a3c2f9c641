package sites

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/super-dl/super-dl/models"
)

// hlsEmbedExtractor handles sites that serve the video as an HLS stream
// behind an embed iframe: the page holds an iframe pointing at the player
// host, and the player document carries the .m3u8 playlist URL. The page
// itself is scanned for a direct playlist first, so sites that inline the
// stream skip the extra round trip.
type hlsEmbedExtractor struct{}

func (hlsEmbedExtractor) Name() string { return "hlsembed" }

func (h hlsEmbedExtractor) Extract(ctx context.Context, pg *Page, fetch FetchFunc) (*models.MediaReference, error) {
	if raw := firstM3U8(pg.HTML); raw != "" {
		return resolveRef(pg, raw, models.MediaKindHLS, h.Name())
	}

	iframeSrc := findIframeSrc(pg.HTML)
	if iframeSrc == "" || fetch == nil {
		return nil, errNoMedia(h.Name())
	}

	iframeURL, err := resolveURL(pg.URL, iframeSrc)
	if err != nil {
		return nil, errNoMedia(h.Name())
	}

	// A fetch failure here is a transport problem, not a markup problem;
	// it propagates as-is so it is not misreported as extraction failure.
	iframeHTML, err := fetch(ctx, iframeURL, pg.URL.String())
	if err != nil {
		return nil, err
	}

	raw := firstM3U8(iframeHTML)
	if raw == "" {
		return nil, errNoMedia(h.Name())
	}

	ref, err := resolveRef(pg, raw, models.MediaKindHLS, h.Name())
	if err != nil {
		return nil, err
	}
	// The stream host checks the player page as referer, not the page the
	// user asked for.
	ref.Referer = iframeURL
	return ref, nil
}

// findIframeSrc returns the src of the player iframe: a scoped player
// container when present, otherwise the first iframe on the page.
func findIframeSrc(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	for _, sel := range []string{
		".video-player iframe",
		".responsive-player iframe",
		".player iframe",
		"iframe",
	} {
		if src, ok := doc.Find(sel).First().Attr("src"); ok && strings.TrimSpace(src) != "" {
			return src
		}
	}
	return ""
}

func init() {
	Register(hlsEmbedExtractor{})
}
