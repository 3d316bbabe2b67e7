// Package conformance maps declared conformance classes to the media types
// they govern.
package conformance

import (
	"sort"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/model"
)

const (
	Core    = "http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/core"
	OAS30   = "http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/oas30"
	GeoJSON = "http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/geojson"
	HTML    = "http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/html"
	GMLSF0  = "http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/gmlsf0"
	GMLSF2  = "http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/gmlsf2"
	CRS     = "http://www.opengis.net/spec/ogcapi-features-2/1.0/conf/crs"
)

// Kind selects which media types of a class apply to a resource.
type Kind int

const (
	// KindOther covers landing page, conformance and collection metadata.
	KindOther Kind = iota
	// KindFeatures covers items and features.
	KindFeatures
	// KindAPI covers the API description.
	KindAPI
)

// RequirementClass is a known conformance class and the media types it governs.
// Empty media types mean the class does not constrain representations.
type RequirementClass struct {
	URI               string
	MediaTypeFeatures string
	MediaTypeOther    string
	// MediaTypeAPI governs the API description document.
	MediaTypeAPI string
}

var known = map[string]RequirementClass{
	Core: {URI: Core},
	OAS30: {
		URI:          OAS30,
		MediaTypeAPI: "application/vnd.oai.openapi+json;version=3.0",
	},
	GeoJSON: {
		URI:               GeoJSON,
		MediaTypeFeatures: "application/geo+json",
		MediaTypeOther:    "application/json",
	},
	HTML: {
		URI:               HTML,
		MediaTypeFeatures: "text/html",
		MediaTypeOther:    "text/html",
	},
	GMLSF0: {
		URI:               GMLSF0,
		MediaTypeFeatures: "application/gml+xml;version=3.2;profile=http://www.opengis.net/def/profile/ogc/2.0/gml-sf0",
		MediaTypeOther:    "application/xml",
	},
	GMLSF2: {
		URI:               GMLSF2,
		MediaTypeFeatures: "application/gml+xml;version=3.2;profile=http://www.opengis.net/def/profile/ogc/2.0/gml-sf2",
		MediaTypeOther:    "application/xml",
	},
	CRS: {URI: CRS},
}

func (rc RequirementClass) mediaType(kind Kind) string {
	switch kind {
	case KindFeatures:
		return rc.MediaTypeFeatures
	case KindAPI:
		return rc.MediaTypeAPI
	default:
		return rc.MediaTypeOther
	}
}

// Lookup returns the known class for uri.
func Lookup(uri string) (RequirementClass, bool) {
	rc, ok := known[uri]
	return rc, ok
}

// Set is the read-only set of requirement classes a service declared.
type Set struct {
	classes map[string]RequirementClass
}

// Parse keeps the known classes out of a conformsTo list; unknown URIs are ignored.
func Parse(conformsTo []string) Set {
	s := Set{classes: make(map[string]RequirementClass, len(conformsTo))}
	for _, uri := range conformsTo {
		if rc, ok := known[uri]; ok {
			s.classes[uri] = rc
		}
	}
	return s
}

// FromDeclaration parses a decoded conformance declaration.
func FromDeclaration(d model.ConformanceDeclaration) Set {
	return Parse(d.ConformsTo)
}

func (s Set) Has(uri string) bool {
	_, ok := s.classes[uri]
	return ok
}

func (s Set) Len() int { return len(s.classes) }

// URIs lists the declared known classes, sorted.
func (s Set) URIs() []string {
	out := make([]string, 0, len(s.classes))
	for uri := range s.classes {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}

// MediaTypes lists the media types the declared classes govern for kind,
// sorted and de-duplicated.
func (s Set) MediaTypes(kind Kind) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, rc := range s.classes {
		mt := rc.mediaType(kind)
		if mt == "" {
			continue
		}
		if _, ok := seen[mt]; ok {
			continue
		}
		seen[mt] = struct{}{}
		out = append(out, mt)
	}
	sort.Strings(out)
	return out
}

// Accepts reports whether a response media type is governed by one of the
// declared classes. With no media-type-governing class declared every type is accepted.
func (s Set) Accepts(kind Kind, mediaType string) bool {
	governed := s.MediaTypes(kind)
	if len(governed) == 0 {
		return true
	}
	base := model.MediaTypeBase(mediaType)
	for _, mt := range governed {
		if model.MediaTypeBase(mt) == base {
			return true
		}
	}
	return false
}
