package sites

import (
	"bytes"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// ApplySelector narrows the scanned document to the elements matching the
// given CSS selector, returning their concatenated outer HTML. Useful when
// a page carries several players and only one is wanted.
//
// If nothing matches, the original HTML is returned unchanged so extraction
// still has the full document to work with.
func ApplySelector(rawHTML, selector string) (string, error) {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return "", err
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	matches := cascadia.QueryAll(doc, sel)
	if len(matches) == 0 {
		return rawHTML, nil
	}

	var buf bytes.Buffer
	for _, node := range matches {
		if err := html.Render(&buf, node); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
