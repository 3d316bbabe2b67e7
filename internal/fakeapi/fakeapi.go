// Package fakeapi serves a small, configurable OGC API Features service for tests.
package fakeapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/conformance"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/model"
	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/crs"
)

type Feature struct {
	ID       string
	Lon, Lat float64
}

type Collection struct {
	ID         string
	CRS        []string
	StorageCRS string
	// BBox is the spatial extent in CRS84; nil makes the collection non-spatial.
	BBox     []float64
	Features []Feature
}

type Options struct {
	Collections []Collection
	GlobalCRS   []string
	ConformsTo  []string

	// misbehaviours
	OmitContentCrs     bool
	AcceptUnknownCRS   bool
	NoConformance      bool
	NoServiceDescLink  bool
	IgnoreBBox         bool
	WrongContentCrsFor string // collection whose Content-Crs always names CRS84
}

// DefaultOptions describes a well-behaved service with one spatial collection
// offering an extra projected CRS and one collection without geometry.
func DefaultOptions() Options {
	return Options{
		ConformsTo: []string{conformance.Core, conformance.OAS30, conformance.GeoJSON, conformance.CRS},
		GlobalCRS:  []string{crs.DefaultCRS},
		Collections: []Collection{
			{
				ID:         "water",
				CRS:        []string{crs.BackReference, "http://www.opengis.net/def/crs/EPSG/0/3163"},
				StorageCRS: crs.DefaultCRS,
				BBox:       []float64{5.6, 50.7, 7.1, 51.9},
				Features: []Feature{
					{ID: "1", Lon: 5.9, Lat: 50.9},
					{ID: "2", Lon: 6.35, Lat: 51.3},
					{ID: "3", Lon: 6.9, Lat: 51.8},
				},
			},
			{
				ID:       "registry",
				Features: []Feature{{ID: "a"}},
			},
		},
	}
}

type Service struct {
	opts Options
	mux  chi.Router
}

func New(opts Options) *Service {
	s := &Service{opts: opts}
	r := chi.NewRouter()
	r.Get("/", s.landing)
	r.Get("/api", s.api)
	r.Get("/conformance", s.conformance)
	r.Get("/collections", s.collections)
	r.Get("/collections/{collectionId}", s.collection)
	r.Get("/collections/{collectionId}/items", s.items)
	r.Get("/collections/{collectionId}/items/{featureId}", s.feature)
	s.mux = r
	return s
}

func (s *Service) Handler() http.Handler { return s.mux }

// Start serves opts on a new httptest server.
func Start(opts Options) *httptest.Server {
	return httptest.NewServer(New(opts).Handler())
}

func base(r *http.Request) string {
	return "http://" + r.Host
}

func writeJSON(w http.ResponseWriter, ct string, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func (s *Service) landing(w http.ResponseWriter, r *http.Request) {
	b := base(r)
	links := model.Links{
		{Href: b + "/", Rel: "self", Type: "application/json"},
		{Href: b + "/conformance", Rel: "conformance", Type: "application/json"},
		{Href: b + "/collections", Rel: "data", Type: "application/json"},
	}
	if !s.opts.NoServiceDescLink {
		links = append(links, model.Link{Href: b + "/api", Rel: "service-desc", Type: "application/vnd.oai.openapi+json;version=3.0"})
	}
	writeJSON(w, "application/json", http.StatusOK, model.LandingPage{Title: "fake", Links: links})
}

func (s *Service) conformance(w http.ResponseWriter, _ *http.Request) {
	if s.opts.NoConformance {
		http.NotFound(w, nil)
		return
	}
	writeJSON(w, "application/json", http.StatusOK, model.ConformanceDeclaration{ConformsTo: s.opts.ConformsTo})
}

func (s *Service) find(id string) (Collection, bool) {
	for _, c := range s.opts.Collections {
		if c.ID == id {
			return c, true
		}
	}
	return Collection{}, false
}

func (s *Service) collectionDoc(b string, c Collection) model.Collection {
	doc := model.Collection{
		ID:         c.ID,
		Title:      c.ID,
		ItemType:   "feature",
		CRS:        c.CRS,
		StorageCRS: c.StorageCRS,
		Links: model.Links{
			{Href: b + "/collections/" + c.ID, Rel: "self", Type: "application/json"},
			{Href: b + "/collections/" + c.ID + "/items", Rel: "items", Type: "application/geo+json"},
		},
	}
	if c.BBox != nil {
		doc.Extent = &model.Extent{Spatial: &model.SpatialExtent{BBox: [][]float64{c.BBox}, CRS: crs.DefaultCRS}}
	}
	return doc
}

func (s *Service) collections(w http.ResponseWriter, r *http.Request) {
	b := base(r)
	out := model.Collections{
		Links: model.Links{{Href: b + "/collections", Rel: "self", Type: "application/json"}},
		CRS:   s.opts.GlobalCRS,
	}
	for _, c := range s.opts.Collections {
		out.Collections = append(out.Collections, s.collectionDoc(b, c))
	}
	writeJSON(w, "application/json", http.StatusOK, out)
}

func (s *Service) collection(w http.ResponseWriter, r *http.Request) {
	c, ok := s.find(chi.URLParam(r, "collectionId"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	doc := s.collectionDoc(base(r), c)
	// a single collection has no global list to refer back to
	doc.CRS = s.expand(c.CRS)
	writeJSON(w, "application/json", http.StatusOK, doc)
}

func (s *Service) expand(list []string) []string {
	var out []string
	for _, code := range list {
		if crs.New(code).IsBackReference() {
			out = append(out, s.opts.GlobalCRS...)
			continue
		}
		out = append(out, code)
	}
	return out
}

// negotiateCRS returns the CRS to answer in, or false after writing a 400.
func (s *Service) negotiateCRS(w http.ResponseWriter, r *http.Request, c Collection) (string, bool) {
	requested := r.URL.Query().Get("crs")
	if requested == "" {
		return crs.DefaultCRS, true
	}
	if !s.opts.AcceptUnknownCRS && !slices.Contains(s.expand(c.CRS), requested) {
		http.Error(w, "unsupported crs", http.StatusBadRequest)
		return "", false
	}
	return requested, true
}

func (s *Service) setContentCrs(w http.ResponseWriter, c Collection, code string) {
	if s.opts.OmitContentCrs || c.BBox == nil {
		return
	}
	if c.ID == s.opts.WrongContentCrsFor {
		code = crs.DefaultCRS
	}
	w.Header().Set("Content-Crs", "<"+code+">")
}

func geoJSONFeature(c Collection, f Feature) map[string]any {
	out := map[string]any{
		"type":       "Feature",
		"id":         f.ID,
		"properties": map[string]any{"name": c.ID + "-" + f.ID},
		"geometry":   nil,
	}
	if c.BBox != nil {
		out["geometry"] = map[string]any{"type": "Point", "coordinates": []float64{f.Lon, f.Lat}}
	}
	return out
}

func parseBBox(raw string) (model.BBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return model.BBox{}, fmt.Errorf("bbox needs 4 values, got %d", len(parts))
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return model.BBox{}, fmt.Errorf("bbox value %q: %w", p, err)
		}
		v[i] = f
	}
	return model.BBox{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}, nil
}

func (s *Service) items(w http.ResponseWriter, r *http.Request) {
	c, ok := s.find(chi.URLParam(r, "collectionId"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	code, ok := s.negotiateCRS(w, r, c)
	if !ok {
		return
	}
	var filter *model.BBox
	if raw := r.URL.Query().Get("bbox"); raw != "" && !s.opts.IgnoreBBox {
		bb, err := parseBBox(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter = &bb
	}
	limit := len(c.Features)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(limit, n)
	}

	features := []map[string]any{}
	for _, f := range c.Features {
		if len(features) == limit {
			break
		}
		if filter != nil {
			if c.BBox == nil || !filter.Intersects(model.BBox{X1: f.Lon, Y1: f.Lat, X2: f.Lon, Y2: f.Lat}) {
				continue
			}
		}
		features = append(features, geoJSONFeature(c, f))
	}

	s.setContentCrs(w, c, code)
	writeJSON(w, "application/geo+json", http.StatusOK, map[string]any{
		"type":           "FeatureCollection",
		"features":       features,
		"numberReturned": len(features),
		"links": model.Links{
			{Href: base(r) + r.URL.RequestURI(), Rel: "self", Type: "application/geo+json"},
		},
	})
}

func (s *Service) feature(w http.ResponseWriter, r *http.Request) {
	c, ok := s.find(chi.URLParam(r, "collectionId"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	code, ok := s.negotiateCRS(w, r, c)
	if !ok {
		return
	}
	fid := chi.URLParam(r, "featureId")
	for _, f := range c.Features {
		if f.ID == fid {
			s.setContentCrs(w, c, code)
			writeJSON(w, "application/geo+json", http.StatusOK, geoJSONFeature(c, f))
			return
		}
	}
	http.NotFound(w, r)
}
