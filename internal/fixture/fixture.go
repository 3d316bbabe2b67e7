// Package fixture resolves, once per run, everything the checks share: the
// landing page, the API description, the declared conformance classes, the
// collections and the CRSs each collection supports. A Fixture is immutable
// after Prepare returns; accessors hand out copies.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/cache/keys"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/conformance"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/crscheck"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/executor"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/model"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/openapi"
	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/crs"
)

// ErrNotFound is returned when a mandatory resource of the service cannot be located.
var ErrNotFound = errors.New("fixture: resource not found")

const (
	acceptJSON    = "application/json"
	acceptOpenAPI = "application/vnd.oai.openapi+json;version=3.0, application/vnd.oai.openapi;version=3.0;q=0.9, application/json;q=0.8, application/yaml;q=0.7"
)

var serviceDescTypes = []string{
	"application/vnd.oai.openapi+json;version=3.0",
	"application/vnd.oai.openapi+json",
	"application/openapi+json",
	"application/vnd.oai.openapi;version=3.0",
	"application/vnd.oai.openapi",
	"application/yaml",
	"application/json",
}

// Prober fetches resources of the service under test.
type Prober interface {
	Get(ctx context.Context, category, uri, accept string, query url.Values) (*executor.Response, error)
	GetDocument(ctx context.Context, category, uri, accept string) ([]byte, error)
}

// SnapshotStore persists the raw documents of a prepared fixture.
type SnapshotStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

type Deps struct {
	Logger *slog.Logger
	Prober Prober

	// APIDescription overrides discovery of the API description: an http(s)
	// URL or a local file path.
	APIDescription string

	// Snapshots is optional.
	Snapshots   SnapshotStore
	SnapshotTTL time.Duration
	// SnapshotTimeout bounds each snapshot store call; zero means no bound.
	SnapshotTimeout time.Duration
}

type Fixture struct {
	rootURI     string
	apiURI      string
	landing     model.LandingPage
	conformance model.ConformanceDeclaration
	classes     conformance.Set
	doc         *openapi3.T
	resolver    *openapi.Resolver
	collections model.Collections
	defaultCRS  map[string]crs.CoordinateSystem
	validCRS    map[string][]crs.CoordinateSystem
	fromCache   bool
}

// Prepare fetches landing page, API description, conformance declaration and
// collections of the service at rootURI, or restores them from a snapshot.
func Prepare(ctx context.Context, deps Deps, rootURI string) (*Fixture, error) {
	root, err := url.Parse(strings.TrimSpace(rootURI))
	if err != nil {
		return nil, fmt.Errorf("fixture: parse root uri: %w", err)
	}
	if !root.IsAbs() {
		return nil, fmt.Errorf("fixture: root uri %q is not absolute", rootURI)
	}
	rootURI = strings.TrimRight(root.String(), "/")
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	key := keys.Snapshot(rootURI, deps.APIDescription)
	if snap, ok := loadSnapshot(ctx, deps, key, log); ok {
		fx, err := build(ctx, snap)
		if err == nil {
			fx.fromCache = true
			log.InfoContext(ctx, "fixture restored from snapshot", "key", key)
			return fx, nil
		}
		log.WarnContext(ctx, "discarding unusable fixture snapshot", "key", key, "err", err)
	}

	snap, err := fetch(ctx, deps, rootURI)
	if err != nil {
		return nil, err
	}
	fx, err := build(ctx, snap)
	if err != nil {
		return nil, err
	}
	storeSnapshot(ctx, deps, key, snap, log)
	log.InfoContext(ctx, "fixture prepared",
		"api_description", fx.apiURI,
		"conformance_classes", fx.classes.Len(),
		"collections", len(fx.collections.Collections))
	return fx, nil
}

func fetch(ctx context.Context, deps Deps, rootURI string) (*snapshot, error) {
	if deps.Prober == nil {
		return nil, errors.New("fixture: no prober configured")
	}
	snap := &snapshot{Version: snapshotVersion, RootURI: rootURI}

	landingURI := rootURI + "/"
	body, err := getDocument(ctx, deps.Prober, "landing-page", landingURI, acceptJSON)
	if err != nil {
		return nil, err
	}
	snap.Landing = body
	var landing model.LandingPage
	if err := model.Decode(body, &landing); err != nil {
		return nil, fmt.Errorf("fixture: landing page: %w", err)
	}

	snap.APIURI, snap.API, err = fetchAPIDescription(ctx, deps, rootURI, landing)
	if err != nil {
		return nil, err
	}

	confURI := linkOr(landing.Links, "conformance", rootURI, openapi.PathConformance)
	if snap.Conformance, err = getDocument(ctx, deps.Prober, "conformance", confURI, acceptJSON); err != nil {
		return nil, err
	}

	dataURI := linkOr(landing.Links, "data", rootURI, openapi.PathCollections)
	if snap.Collections, err = getDocument(ctx, deps.Prober, "collections", dataURI, acceptJSON); err != nil {
		return nil, err
	}
	return snap, nil
}

func fetchAPIDescription(ctx context.Context, deps Deps, rootURI string, landing model.LandingPage) (string, []byte, error) {
	if loc := strings.TrimSpace(deps.APIDescription); loc != "" {
		if u, err := url.Parse(loc); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
			b, err := getDocument(ctx, deps.Prober, "api-description", loc, acceptOpenAPI)
			return loc, b, err
		}
		b, err := os.ReadFile(loc)
		if err != nil {
			return "", nil, fmt.Errorf("fixture: read api description: %w", err)
		}
		return loc, b, nil
	}

	accept := acceptOpenAPI
	link, ok := landing.Links.First("service-desc", serviceDescTypes...)
	if !ok {
		link, ok = landing.Links.First("service-desc")
	}
	uri := rootURI + openapi.PathAPIDescription
	if ok {
		uri = resolveHref(rootURI, link.Href)
		if link.Type != "" {
			accept = link.Type
		}
	}
	b, err := getDocument(ctx, deps.Prober, "api-description", uri, accept)
	return uri, b, err
}

func getDocument(ctx context.Context, p Prober, category, uri, accept string) ([]byte, error) {
	b, err := p.GetDocument(ctx, category, uri, accept)
	if executor.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %s at %s", ErrNotFound, category, uri)
	}
	if err != nil {
		return nil, fmt.Errorf("fixture: %s: %w", category, err)
	}
	return b, nil
}

// linkOr resolves the first link with rel, falling back to the well-known path.
func linkOr(links model.Links, rel, rootURI, fallback string) string {
	if l, ok := links.First(rel, acceptJSON, "application/geo+json"); ok {
		return resolveHref(rootURI, l.Href)
	}
	if l, ok := links.First(rel); ok {
		return resolveHref(rootURI, l.Href)
	}
	return rootURI + fallback
}

func resolveHref(rootURI, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return href
	}
	base, err := url.Parse(rootURI + "/")
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// build derives the fixture from raw documents; it performs no I/O beyond
// resolving external references of the API description.
func build(ctx context.Context, snap *snapshot) (*Fixture, error) {
	fx := &Fixture{
		rootURI:    snap.RootURI,
		apiURI:     snap.APIURI,
		defaultCRS: map[string]crs.CoordinateSystem{},
		validCRS:   map[string][]crs.CoordinateSystem{},
	}
	if err := model.Decode(snap.Landing, &fx.landing); err != nil {
		return nil, fmt.Errorf("fixture: landing page: %w", err)
	}
	if err := model.Decode(snap.Conformance, &fx.conformance); err != nil {
		return nil, fmt.Errorf("fixture: conformance: %w", err)
	}
	fx.classes = conformance.FromDeclaration(fx.conformance)

	var loc *url.URL
	if u, err := url.Parse(snap.APIURI); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		loc = u
	}
	doc, err := openapi.Load(ctx, snap.API, loc)
	if err != nil {
		return nil, fmt.Errorf("fixture: api description %s: %w", snap.APIURI, err)
	}
	fx.doc = doc
	if fx.resolver, err = openapi.NewResolver(doc, snap.RootURI, fx.classes); err != nil {
		return nil, fmt.Errorf("fixture: %w", err)
	}

	if err := model.Decode(snap.Collections, &fx.collections); err != nil {
		return nil, fmt.Errorf("fixture: collections: %w", err)
	}
	global := fx.collections.CRS
	if global == nil {
		global = []string{}
	}
	for _, c := range fx.collections.Collections {
		list, err := crscheck.EffectiveCRS(c, global)
		if err != nil {
			continue
		}
		if def, r := crscheck.ResolveDefault(list); r.Passed() {
			fx.defaultCRS[c.ID] = def
		}
		supported, err := crscheck.SupportedCRS(c, global)
		if err != nil {
			continue
		}
		fx.validCRS[c.ID] = supported
	}
	return fx, nil
}

func (f *Fixture) RootURI() string           { return f.rootURI }
func (f *Fixture) APIDescriptionURI() string { return f.apiURI }

// FromSnapshot reports whether the fixture was restored rather than fetched.
func (f *Fixture) FromSnapshot() bool { return f.fromCache }

func (f *Fixture) LandingPage() model.LandingPage {
	lp := f.landing
	lp.Links = slices.Clone(lp.Links)
	return lp
}

func (f *Fixture) ConformsTo() []string { return slices.Clone(f.conformance.ConformsTo) }

// Classes is the set of known requirement classes the service declared.
func (f *Fixture) Classes() conformance.Set { return f.classes }

// Resolver resolves test points against the API description; it is stateless.
func (f *Fixture) Resolver() *openapi.Resolver { return f.resolver }

// GlobalCRS is the crs list of the collections document.
func (f *Fixture) GlobalCRS() []string { return slices.Clone(f.collections.CRS) }

func (f *Fixture) Collections() []model.Collection {
	out := make([]model.Collection, 0, len(f.collections.Collections))
	for _, c := range f.collections.Collections {
		out = append(out, cloneCollection(c))
	}
	return out
}

func (f *Fixture) Collection(id string) (model.Collection, bool) {
	c, ok := f.collections.Find(id)
	if !ok {
		return model.Collection{}, false
	}
	return cloneCollection(c), true
}

// CollectionIDs lists up to limit collection ids in document order; limit <= 0 lists all.
func (f *Fixture) CollectionIDs(limit int) []string {
	ids := f.collections.IDs()
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	return ids
}

// DefaultCRS returns the default CRS a collection declared, if any.
func (f *Fixture) DefaultCRS(id string) (crs.CoordinateSystem, bool) {
	c, ok := f.defaultCRS[id]
	return c, ok
}

// ValidCRS returns the valid, interpretable CRSs of a collection.
func (f *Fixture) ValidCRS(id string) []crs.CoordinateSystem {
	return slices.Clone(f.validCRS[id])
}

// DefaultCRSByCollection returns a copy of the default CRS map.
func (f *Fixture) DefaultCRSByCollection() map[string]crs.CoordinateSystem {
	return maps.Clone(f.defaultCRS)
}

func cloneCollection(c model.Collection) model.Collection {
	c.Links = slices.Clone(c.Links)
	c.CRS = slices.Clone(c.CRS)
	if c.Extent != nil {
		ext := *c.Extent
		if ext.Spatial != nil {
			sp := *ext.Spatial
			sp.BBox = make([][]float64, len(ext.Spatial.BBox))
			for i, bb := range ext.Spatial.BBox {
				sp.BBox[i] = slices.Clone(bb)
			}
			ext.Spatial = &sp
		}
		if ext.Temporal != nil {
			tmp := *ext.Temporal
			tmp.Interval = slices.Clone(tmp.Interval)
			ext.Temporal = &tmp
		}
		c.Extent = &ext
	}
	return c
}
