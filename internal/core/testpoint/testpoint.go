// Package testpoint describes one resolved, executable request target.
package testpoint

import (
	"maps"
	"slices"
	"strings"
)

// ContentType is what the API description advertises about one representation.
type ContentType struct {
	MediaType string
	SchemaRef string
}

// TestPoint is immutable; maps are copied in and out.
type TestPoint struct {
	serverURL      string
	path           string
	contentTypes   map[string]ContentType
	templateValues map[string]string
}

func New(serverURL, path string, contentTypes map[string]ContentType, templateValues map[string]string) TestPoint {
	return TestPoint{
		serverURL:      strings.TrimRight(serverURL, "/"),
		path:           path,
		contentTypes:   maps.Clone(contentTypes),
		templateValues: maps.Clone(templateValues),
	}
}

func (tp TestPoint) ServerURL() string { return tp.serverURL }
func (tp TestPoint) Path() string      { return tp.path }

func (tp TestPoint) ContentTypes() map[string]ContentType {
	return maps.Clone(tp.contentTypes)
}

func (tp TestPoint) TemplateValues() map[string]string {
	return maps.Clone(tp.templateValues)
}

// MediaTypes lists the advertised media types, sorted.
func (tp TestPoint) MediaTypes() []string {
	return slices.Sorted(maps.Keys(tp.contentTypes))
}

// PreferredMediaType picks the first advertised media type accepted by ok,
// in sorted order, so probes are reproducible.
func (tp TestPoint) PreferredMediaType(ok func(string) bool) (string, bool) {
	for _, mt := range tp.MediaTypes() {
		if ok(mt) {
			return mt, true
		}
	}
	return "", false
}

// Placeholders lists the {name} segments of the path in order.
func (tp TestPoint) Placeholders() []string {
	var out []string
	for _, seg := range strings.Split(tp.path, "/") {
		if name, ok := Placeholder(seg); ok {
			out = append(out, name)
		}
	}
	return out
}

// Key identifies the request target, ignoring content types.
func (tp TestPoint) Key() string {
	var b strings.Builder
	b.WriteString(tp.serverURL)
	b.WriteString(tp.path)
	for _, k := range slices.Sorted(maps.Keys(tp.templateValues)) {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(tp.templateValues[k])
	}
	return b.String()
}

func (tp TestPoint) String() string { return tp.Key() }

// Placeholder reports whether a path segment is a {name} template variable.
func Placeholder(segment string) (string, bool) {
	if len(segment) > 2 && strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
		return segment[1 : len(segment)-1], true
	}
	return "", false
}
