package sites

import (
	"context"
	"regexp"

	"github.com/super-dl/super-dl/models"
)

// kvsExtractor handles KVS-style players, which keep the file URL inside an
// inline flashvars block rather than the DOM. The classic form is
//
//	video_url: 'function/0/https://host/get_file/.../12345.mp4/'
//
// where the function/0/ prefix is player-internal routing that must be
// stripped before the URL is usable.
type kvsExtractor struct{}

func (kvsExtractor) Name() string { return "kvs" }

var (
	reKVSFunction = regexp.MustCompile(`video_url:\s*['"]function/0/(https?://[^'"]+?\.mp4[^'"]*)['"]`)
	reKVSPlain    = regexp.MustCompile(`video_url:\s*['"](https?://[^'"]+?\.mp4[^'"]*)['"]`)
)

func (k kvsExtractor) Extract(ctx context.Context, pg *Page, fetch FetchFunc) (*models.MediaReference, error) {
	if m := reKVSFunction.FindStringSubmatch(pg.HTML); m != nil {
		return resolveRef(pg, m[1], models.MediaKindMP4, k.Name())
	}
	if m := reKVSPlain.FindStringSubmatch(pg.HTML); m != nil {
		return resolveRef(pg, m[1], models.MediaKindMP4, k.Name())
	}
	if raw := firstMP4(pg.HTML); raw != "" {
		return resolveRef(pg, raw, models.MediaKindMP4, k.Name())
	}
	return nil, errNoMedia(k.Name())
}

func init() {
	Register(kvsExtractor{})
}
