package model

import "testing"

func TestDecodeCollections_GlobalCRSAndBackReference(t *testing.T) {
	body := []byte(`{
		"links": [{"href":"http://x/collections","rel":"self","type":"application/json"}],
		"crs": ["http://www.opengis.net/def/crs/OGC/1.3/CRS84"],
		"collections": [
			{"id":"water","crs":["#/crs"],"storageCrs":"http://www.opengis.net/def/crs/OGC/1.3/CRS84",
			 "extent":{"spatial":{"bbox":[[5.6,50.7,7.1,51.9]]}},"links":[]}
		]
	}`)
	var cols Collections
	if err := Decode(body, &cols); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cols.CRS) != 1 || len(cols.Collections) != 1 {
		t.Fatalf("unexpected decode result %+v", cols)
	}
	water, ok := cols.Find("water")
	if !ok {
		t.Fatalf("water not found")
	}
	if water.CRS[0] != "#/crs" || water.Extent.Spatial.BBox[0][2] != 7.1 {
		t.Fatalf("unexpected collection %+v", water)
	}
	if got := cols.IDs(); len(got) != 1 || got[0] != "water" {
		t.Fatalf("IDs=%v", got)
	}
}

func TestLinksFirst_MatchesTypeIgnoringParameters(t *testing.T) {
	ls := Links{
		{Href: "/api.html", Rel: "service-doc", Type: "text/html"},
		{Href: "/api", Rel: "service-desc", Type: "application/vnd.oai.openapi+json;version=3.0"},
	}
	l, ok := ls.First("service-desc", "application/vnd.oai.openapi+json")
	if !ok || l.Href != "/api" {
		t.Fatalf("got %+v ok=%v", l, ok)
	}
	if _, ok := ls.First("data"); ok {
		t.Fatalf("unexpected data link")
	}
}

func TestFeatureIDString(t *testing.T) {
	var fc FeatureCollection
	if err := Decode([]byte(`{"type":"FeatureCollection","features":[{"type":"Feature","id":2},{"type":"Feature","id":"a"}]}`), &fc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := fc.Features[0].IDString(); got != "2" {
		t.Fatalf("numeric id rendered as %q", got)
	}
	if got := fc.Features[1].IDString(); got != "a" {
		t.Fatalf("string id rendered as %q", got)
	}
}

func TestIsJSONMediaType(t *testing.T) {
	for mt, want := range map[string]bool{
		"application/json":                 true,
		"application/geo+json":             true,
		"application/json; charset=utf-8":  true,
		"text/html":                        false,
		"application/gml+xml;profile=sf0":  false,
		"application/vnd.oai.openapi+json": true,
	} {
		if got := IsJSONMediaType(mt); got != want {
			t.Errorf("IsJSONMediaType(%q)=%v want %v", mt, got, want)
		}
	}
}

func TestSpatialExtentFirst(t *testing.T) {
	ext := &SpatialExtent{BBox: [][]float64{{5.6, 50.7, 0, 7.1, 51.9, 100}, {6, 51, 6.5, 51.5}}}
	bb, ok := ext.First()
	if !ok || bb.X1 != 5.6 || bb.Y1 != 50.7 || bb.X2 != 7.1 || bb.Y2 != 51.9 {
		t.Fatalf("First()=%+v ok=%v", bb, ok)
	}
	var none *SpatialExtent
	if _, ok := none.First(); ok {
		t.Fatalf("nil extent must not yield a bbox")
	}
}

func TestEnvelope(t *testing.T) {
	tests := []struct {
		geom string
		want BBox
		ok   bool
	}{
		{`{"type":"Point","coordinates":[6.1,51.2]}`, BBox{X1: 6.1, Y1: 51.2, X2: 6.1, Y2: 51.2}, true},
		{`{"type":"Polygon","coordinates":[[[5,50],[7,50],[7,52],[5,52],[5,50]]]}`, BBox{X1: 5, Y1: 50, X2: 7, Y2: 52}, true},
		{`{"type":"GeometryCollection","geometries":[{"type":"Point","coordinates":[1,2,3]},{"type":"LineString","coordinates":[[-1,4],[0,0]]}]}`, BBox{X1: -1, Y1: 0, X2: 1, Y2: 4}, true},
		{`null`, BBox{}, false},
		{`{"type":"MultiPoint","coordinates":[]}`, BBox{}, false},
	}
	for _, tt := range tests {
		got, ok, err := Envelope([]byte(tt.geom))
		if err != nil {
			t.Fatalf("Envelope(%s): %v", tt.geom, err)
		}
		if ok != tt.ok || got != tt.want {
			t.Fatalf("Envelope(%s)=%+v,%v want %+v,%v", tt.geom, got, ok, tt.want, tt.ok)
		}
	}
	if _, _, err := Envelope([]byte(`{"type":"Point","coordinates":"x"}`)); err == nil {
		t.Fatalf("expected error for malformed coordinates")
	}
}

func TestBBoxIntersects(t *testing.T) {
	a := BBox{X1: 0, Y1: 0, X2: 2, Y2: 2}
	if !a.Intersects(BBox{X1: 1, Y1: 1, X2: 3, Y2: 3}) || !a.Intersects(BBox{X1: 2, Y1: 2, X2: 4, Y2: 4}) {
		t.Fatalf("overlapping or touching boxes must intersect")
	}
	if a.Intersects(BBox{X1: 3, Y1: 0, X2: 4, Y2: 2}) {
		t.Fatalf("disjoint boxes must not intersect")
	}
}
