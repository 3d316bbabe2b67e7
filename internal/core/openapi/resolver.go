package openapi

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/conformance"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/testpoint"
)

// well-known paths of the read-only resources
const (
	PathLandingPage    = "/"
	PathConformance    = "/conformance"
	PathAPIDescription = "/api"
	PathCollections    = "/collections"
)

// Category is a resource category a test point can be resolved for.
type Category int

const (
	CategoryLandingPage Category = iota
	CategoryConformance
	CategoryAPIDescription
	CategoryCollections
	CategoryCollection
	CategoryItems
	CategoryFeature
)

func (c Category) String() string {
	switch c {
	case CategoryLandingPage:
		return "landing-page"
	case CategoryConformance:
		return "conformance"
	case CategoryAPIDescription:
		return "api-description"
	case CategoryCollections:
		return "collections"
	case CategoryCollection:
		return "collection"
	case CategoryItems:
		return "items"
	case CategoryFeature:
		return "feature"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

func (c Category) kind() conformance.Kind {
	switch c {
	case CategoryLandingPage, CategoryConformance, CategoryCollections, CategoryCollection:
		return conformance.KindOther
	case CategoryAPIDescription:
		return conformance.KindAPI
	default:
		return conformance.KindFeatures
	}
}

// Resolver walks an API description. It holds no mutable state.
type Resolver struct {
	doc     *openapi3.T
	root    *url.URL
	classes conformance.Set
}

// NewResolver binds a parsed description to the root URI of the service
// under test. classes narrows the advertised media types; the zero Set keeps all.
func NewResolver(doc *openapi3.T, rootURI string, classes conformance.Set) (*Resolver, error) {
	if doc == nil {
		return nil, fmt.Errorf("openapi: nil document")
	}
	root, err := url.Parse(rootURI)
	if err != nil {
		return nil, fmt.Errorf("openapi: parse root uri: %w", err)
	}
	if !root.IsAbs() {
		return nil, fmt.Errorf("openapi: root uri %q is not absolute", rootURI)
	}
	return &Resolver{doc: doc, root: root, classes: classes}, nil
}

func (r *Resolver) LandingPage() []testpoint.TestPoint {
	return r.exact(PathLandingPage, CategoryLandingPage)
}

func (r *Resolver) Conformance() []testpoint.TestPoint {
	return r.exact(PathConformance, CategoryConformance)
}

func (r *Resolver) APIDescription() []testpoint.TestPoint {
	return r.exact(PathAPIDescription, CategoryAPIDescription)
}

func (r *Resolver) CollectionsMetadata() []testpoint.TestPoint {
	return r.exact(PathCollections, CategoryCollections)
}

// CollectionMetadata resolves /collections/{collectionId} or the literal path
// of collectionID. An empty collectionID returns every match unbound.
func (r *Resolver) CollectionMetadata(collectionID string) []testpoint.TestPoint {
	return r.collectionScoped(CategoryCollection, collectionID)
}

func (r *Resolver) CollectionItems(collectionID string) []testpoint.TestPoint {
	return r.collectionScoped(CategoryItems, collectionID)
}

func (r *Resolver) Feature(collectionID string) []testpoint.TestPoint {
	return r.collectionScoped(CategoryFeature, collectionID)
}

// AllCollectionItems resolves the items endpoint of every collection in ids,
// one test point per collection and server, capped at limit. A cap of zero or
// less, or one beyond the available count, returns everything. With no ids
// the collections named by literal paths or enumerated parameters are used.
func (r *Resolver) AllCollectionItems(ids []string, limit int) []testpoint.TestPoint {
	if len(ids) == 0 {
		ids = r.declaredCollectionIDs()
	}
	var out []testpoint.TestPoint
	seen := map[string]struct{}{}
	for _, id := range ids {
		for _, tp := range r.CollectionItems(id) {
			if _, dup := seen[tp.Key()]; dup {
				continue
			}
			seen[tp.Key()] = struct{}{}
			out = append(out, tp)
		}
	}
	return Cap(out, limit)
}

// Cap truncates tps to limit entries; limit <= 0 or limit >= len(tps) keeps all.
func Cap(tps []testpoint.TestPoint, limit int) []testpoint.TestPoint {
	if limit <= 0 || limit >= len(tps) {
		return tps
	}
	return tps[:limit]
}

func (r *Resolver) exact(path string, cat Category) []testpoint.TestPoint {
	if r.doc.Paths == nil {
		return nil
	}
	item := r.doc.Paths.Value(path)
	if item == nil || item.Get == nil {
		return nil
	}
	cts, ok := r.contentTypes(item.Get, cat.kind())
	if !ok {
		return nil
	}
	var out []testpoint.TestPoint
	for _, srv := range r.serverURLs() {
		out = append(out, testpoint.New(srv, path, cts, nil))
	}
	return out
}

// match is a path whose shape fits a collection-scoped category.
type match struct {
	path       string
	item       *openapi3.PathItem
	slot       string // collection segment, literal or {placeholder}
	templated  bool
	enumerated []string
}

func (r *Resolver) collectionScoped(cat Category, collectionID string) []testpoint.TestPoint {
	var literal, templated []testpoint.TestPoint
	for _, m := range r.matches(cat) {
		cts, ok := r.contentTypes(m.item.Get, cat.kind())
		if !ok {
			continue
		}
		for _, srv := range r.serverURLs() {
			switch {
			case !m.templated:
				if collectionID != "" && m.slot != collectionID {
					continue
				}
				literal = append(literal, testpoint.New(srv, m.path, cts, nil))
			case len(m.enumerated) > 0:
				name, _ := testpoint.Placeholder(m.slot)
				for _, v := range m.enumerated {
					if collectionID != "" && v != collectionID {
						continue
					}
					templated = append(templated, testpoint.New(srv, m.path, cts, map[string]string{name: v}))
				}
			default:
				var tvs map[string]string
				if collectionID != "" {
					name, _ := testpoint.Placeholder(m.slot)
					tvs = map[string]string{name: collectionID}
				}
				templated = append(templated, testpoint.New(srv, m.path, cts, tvs))
			}
		}
	}
	// a collection published under its own path shadows the shared template
	if collectionID != "" && len(literal) > 0 {
		return literal
	}
	return append(literal, templated...)
}

func (r *Resolver) matches(cat Category) []match {
	var out []match
	for _, path := range r.sortedPaths() {
		item := r.doc.Paths.Value(path)
		if item == nil || item.Get == nil {
			continue
		}
		segs := strings.Split(strings.Trim(path, "/"), "/")
		if !shapeMatches(cat, segs) {
			continue
		}
		m := match{path: path, item: item, slot: segs[1]}
		if name, ok := testpoint.Placeholder(segs[1]); ok {
			m.templated = true
			m.enumerated = pathEnum(item, name)
		}
		out = append(out, m)
	}
	return out
}

func shapeMatches(cat Category, segs []string) bool {
	if len(segs) < 2 || segs[0] != "collections" || segs[1] == "" {
		return false
	}
	switch cat {
	case CategoryCollection:
		return len(segs) == 2
	case CategoryItems:
		return len(segs) == 3 && segs[2] == "items"
	case CategoryFeature:
		return len(segs) == 4 && segs[2] == "items" && segs[3] != ""
	default:
		return false
	}
}

// declaredCollectionIDs lists collections the description names itself.
func (r *Resolver) declaredCollectionIDs() []string {
	var ids []string
	for _, m := range r.matches(CategoryItems) {
		switch {
		case !m.templated:
			ids = append(ids, m.slot)
		default:
			ids = append(ids, m.enumerated...)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

func (r *Resolver) sortedPaths() []string {
	if r.doc.Paths == nil {
		return nil
	}
	paths := make([]string, 0, r.doc.Paths.Len())
	for p := range r.doc.Paths.Map() {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// contentTypes collects the media types of the 200 response accepted by the
// declared classes. ok is false when content was advertised but none accepted.
func (r *Resolver) contentTypes(op *openapi3.Operation, kind conformance.Kind) (map[string]testpoint.ContentType, bool) {
	if op == nil || op.Responses == nil {
		return nil, true
	}
	ref := op.Responses.Status(http.StatusOK)
	if ref == nil || ref.Value == nil || len(ref.Value.Content) == 0 {
		return nil, true
	}
	out := make(map[string]testpoint.ContentType, len(ref.Value.Content))
	for mt, media := range ref.Value.Content {
		if !r.classes.Accepts(kind, mt) {
			continue
		}
		ct := testpoint.ContentType{MediaType: mt}
		if media != nil && media.Schema != nil {
			ct.SchemaRef = media.Schema.Ref
		}
		out[mt] = ct
	}
	return out, len(out) > 0
}

// serverURLs binds server variables to their defaults and resolves relative
// server URLs against the root URI.
func (r *Resolver) serverURLs() []string {
	if len(r.doc.Servers) == 0 {
		return []string{strings.TrimRight(r.root.String(), "/")}
	}
	var out []string
	for _, s := range r.doc.Servers {
		if s == nil {
			continue
		}
		raw := s.URL
		for name, v := range s.Variables {
			if v != nil {
				raw = strings.ReplaceAll(raw, "{"+name+"}", v.Default)
			}
		}
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if !u.IsAbs() {
			u = r.root.ResolveReference(u)
		}
		srv := strings.TrimRight(u.String(), "/")
		if !slices.Contains(out, srv) {
			out = append(out, srv)
		}
	}
	return out
}

// pathEnum returns the enumerated values of a path parameter, if any.
func pathEnum(item *openapi3.PathItem, name string) []string {
	params := slices.Concat(item.Parameters, item.Get.Parameters)
	for _, p := range params {
		if p == nil || p.Value == nil {
			continue
		}
		if p.Value.In != openapi3.ParameterInPath || p.Value.Name != name {
			continue
		}
		if p.Value.Schema == nil || p.Value.Schema.Value == nil {
			return nil
		}
		var out []string
		for _, v := range p.Value.Schema.Value.Enum {
			out = append(out, fmt.Sprint(v))
		}
		return out
	}
	return nil
}
