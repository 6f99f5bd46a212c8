package common

import (
	"fmt"
	"net/url"
	"strings"
)

// ResolveURL resolves ref against base. Absolute refs are returned unchanged and
// protocol-relative refs take the base scheme.
func ResolveURL(base *url.URL, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty URL reference")
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid URL reference %q: %w", ref, err)
	}

	if base == nil {
		return parsed.String(), nil
	}
	return base.ResolveReference(parsed).String(), nil
}

// JoinPath safely joins path segments, preventing duplicate slashes
func JoinPath(segments ...string) string {
	result := ""
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		if result == "" {
			result = seg
		} else if strings.HasSuffix(result, "/") {
			result += strings.TrimPrefix(seg, "/")
		} else if strings.HasPrefix(seg, "/") {
			result += seg
		} else {
			result += "/" + seg
		}
	}
	return result
}
