// Package keys derives stable cache keys for fetched documents and fixture snapshots.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const maxReadableLen = 96

// Document keys a fetched document by its URI and the media type asked for.
func Document(uri, accept string) string {
	uri = strings.TrimSpace(uri)
	accept = normalizeMediaType(accept)
	sum := xxhash.Sum64String(uri + "\x00" + accept)
	return fmt.Sprintf("doc:%s:h=%016x", readable(uri), sum)
}

// Snapshot keys a prepared fixture by the root URI of the service and the
// location of its API description. Both are hashed; only the root stays
// readable so keys can be listed per service.
func Snapshot(rootURI, apiDescription string) string {
	rootURI = strings.TrimRight(strings.TrimSpace(rootURI), "/")
	apiDescription = strings.TrimSpace(apiDescription)
	sum := xxhash.Sum64String(rootURI + "\x00" + apiDescription)
	return fmt.Sprintf("ets:fixture:%s:h=%016x", readable(rootURI), sum)
}

func normalizeMediaType(mt string) string {
	var parts []string
	for p := range strings.SplitSeq(mt, ";") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ";")
}

func readable(s string) string {
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	safe := sanitizeForKey(s)
	if len(safe) > maxReadableLen {
		safe = safe[:maxReadableLen]
	}
	return safe
}

func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '.':
			out = r
		default:
			// Any other rune (including non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
