package scrape

import (
	"fmt"
	"net/url"
)

// ResolveURL resolves ref against base, filling in missing scheme, host
// and path components so stages may emit relative, root-relative and
// protocol-relative links. An absolute ref is returned unchanged.
func ResolveURL(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", base, err)
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", ref, err)
	}

	return baseURL.ResolveReference(refURL).String(), nil
}
