package sites

import (
	"context"

	"github.com/super-dl/super-dl/models"
)

// genericExtractor is the lowest-common-denominator rule: the first
// absolute .mp4 URL anywhere in the document, then the first .m3u8. Every
// other extractor falls back to it, and it is selectable directly with
// --site generic.
type genericExtractor struct{}

func (genericExtractor) Name() string { return "generic" }

func (g genericExtractor) Extract(ctx context.Context, pg *Page, fetch FetchFunc) (*models.MediaReference, error) {
	if raw := firstMP4(pg.HTML); raw != "" {
		return resolveRef(pg, raw, models.MediaKindMP4, g.Name())
	}
	if raw := firstM3U8(pg.HTML); raw != "" {
		return resolveRef(pg, raw, models.MediaKindHLS, g.Name())
	}
	return nil, errNoMedia(g.Name())
}

func init() {
	Register(genericExtractor{})
}
