// Package model defines the OGC API Features documents the probes decode.
package model

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

type BBox struct {
	X1, Y1 float64
	X2, Y2 float64
	SRID   string
}

// String representation matching the bbox query parameter
func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.X1, b.Y1, b.X2, b.Y2)
}

// Intersects reports whether b and o overlap or touch. Neither box may cross
// the antimeridian.
func (b BBox) Intersects(o BBox) bool {
	return b.X1 <= o.X2 && o.X1 <= b.X2 && b.Y1 <= o.Y2 && o.Y1 <= b.Y2
}

type Link struct {
	Href  string `json:"href"`
	Rel   string `json:"rel"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
}

type Links []Link

// ByRel returns the links with the given relation in document order.
func (ls Links) ByRel(rel string) Links {
	var out Links
	for _, l := range ls {
		if l.Rel == rel {
			out = append(out, l)
		}
	}
	return out
}

// First returns the first link with rel whose type matches one of types.
// An empty types list matches any link.
func (ls Links) First(rel string, types ...string) (Link, bool) {
	for _, l := range ls.ByRel(rel) {
		if len(types) == 0 {
			return l, true
		}
		for _, t := range types {
			if MediaTypeBase(l.Type) == MediaTypeBase(t) {
				return l, true
			}
		}
	}
	return Link{}, false
}

type LandingPage struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Links       Links  `json:"links"`
}

type ConformanceDeclaration struct {
	ConformsTo []string `json:"conformsTo"`
}

type SpatialExtent struct {
	BBox [][]float64 `json:"bbox"`
	CRS  string      `json:"crs,omitempty"`
}

// First returns the overall extent, the first bbox of the list. 3D boxes
// (six values) are reduced to their horizontal part.
func (s *SpatialExtent) First() (BBox, bool) {
	if s == nil || len(s.BBox) == 0 {
		return BBox{}, false
	}
	v := s.BBox[0]
	switch len(v) {
	case 4:
		return BBox{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3], SRID: s.CRS}, true
	case 6:
		return BBox{X1: v[0], Y1: v[1], X2: v[3], Y2: v[4], SRID: s.CRS}, true
	default:
		return BBox{}, false
	}
}

type TemporalExtent struct {
	Interval [][]*string `json:"interval"`
	TRS      string      `json:"trs,omitempty"`
}

type Extent struct {
	Spatial  *SpatialExtent  `json:"spatial,omitempty"`
	Temporal *TemporalExtent `json:"temporal,omitempty"`
}

type Collection struct {
	ID          string   `json:"id"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Links       Links    `json:"links"`
	Extent      *Extent  `json:"extent,omitempty"`
	ItemType    string   `json:"itemType,omitempty"`
	CRS         []string `json:"crs,omitempty"`
	StorageCRS  string   `json:"storageCrs,omitempty"`
}

// Collections is the /collections document; CRS is the global list that
// collection entries can refer back to with "#/crs".
type Collections struct {
	Links       Links        `json:"links"`
	Collections []Collection `json:"collections"`
	CRS         []string     `json:"crs,omitempty"`
}

// Find returns the collection with id.
func (c Collections) Find(id string) (Collection, bool) {
	for _, col := range c.Collections {
		if col.ID == id {
			return col, true
		}
	}
	return Collection{}, false
}

// IDs lists collection ids in document order.
func (c Collections) IDs() []string {
	out := make([]string, 0, len(c.Collections))
	for _, col := range c.Collections {
		out = append(out, col.ID)
	}
	return out
}

type Feature struct {
	Type       string          `json:"type"`
	ID         any             `json:"id,omitempty"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
	Links      Links           `json:"links,omitempty"`
}

// IDString renders the feature id, which GeoJSON allows to be a string or a number.
func (f Feature) IDString() string {
	switch v := f.ID.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Envelope computes the horizontal bounding box of a GeoJSON geometry. ok is
// false for null or empty geometries.
func Envelope(geometry json.RawMessage) (bb BBox, ok bool, err error) {
	if len(geometry) == 0 || string(geometry) == "null" {
		return BBox{}, false, nil
	}
	var g struct {
		Type        string            `json:"type"`
		Coordinates json.RawMessage   `json:"coordinates"`
		Geometries  []json.RawMessage `json:"geometries"`
	}
	if err := json.Unmarshal(geometry, &g); err != nil {
		return BBox{}, false, fmt.Errorf("decode geometry: %w", err)
	}
	if g.Type == "GeometryCollection" {
		for _, sub := range g.Geometries {
			sb, sok, err := Envelope(sub)
			if err != nil {
				return BBox{}, false, err
			}
			if sok {
				bb, ok = extend(bb, ok, sb), true
			}
		}
		return bb, ok, nil
	}
	var coords any
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return BBox{}, false, fmt.Errorf("decode %s coordinates: %w", g.Type, err)
	}
	if _, isArr := coords.([]any); !isArr {
		return BBox{}, false, fmt.Errorf("%s coordinates are not an array", g.Type)
	}
	walkPositions(coords, func(x, y float64) {
		bb, ok = extend(bb, ok, BBox{X1: x, Y1: y, X2: x, Y2: y}), true
	})
	return bb, ok, nil
}

func walkPositions(v any, fn func(x, y float64)) {
	arr, isArr := v.([]any)
	if !isArr || len(arr) == 0 {
		return
	}
	if x, isNum := arr[0].(float64); isNum {
		if len(arr) >= 2 {
			if y, isNum := arr[1].(float64); isNum {
				fn(x, y)
			}
		}
		return
	}
	for _, e := range arr {
		walkPositions(e, fn)
	}
}

func extend(acc BBox, have bool, b BBox) BBox {
	if !have {
		return b
	}
	return BBox{
		X1: min(acc.X1, b.X1), Y1: min(acc.Y1, b.Y1),
		X2: max(acc.X2, b.X2), Y2: max(acc.Y2, b.Y2),
		SRID: acc.SRID,
	}
}

type FeatureCollection struct {
	Type           string    `json:"type"`
	Features       []Feature `json:"features"`
	Links          Links     `json:"links,omitempty"`
	NumberMatched  *int      `json:"numberMatched,omitempty"`
	NumberReturned *int      `json:"numberReturned,omitempty"`
}

// Decode unmarshals a probe body into v.
func Decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}

// MediaTypeBase strips parameters and normalises case.
func MediaTypeBase(mt string) string {
	base, _, _ := strings.Cut(mt, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// IsJSONMediaType reports whether mt is JSON or a +json structured syntax type.
func IsJSONMediaType(mt string) bool {
	b := MediaTypeBase(mt)
	return b == "application/json" || strings.HasSuffix(b, "+json")
}
