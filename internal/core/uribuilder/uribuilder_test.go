package uribuilder

import (
	"errors"
	"strings"
	"testing"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/testpoint"
)

const server = "http://localhost:8080/ogc"

func TestBuild_TemplatedFeaturePath(t *testing.T) {
	tp := testpoint.New(server, "/collections/{name}/items/{featureId}", nil, nil)
	got, err := Build(tp, "water", "2")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := server + "/collections/water/items/2"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestBuild_Table(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		tvs        map[string]string
		collection string
		feature    string
		want       string
		wantErr    error
	}{
		{name: "landing page", path: "/", want: server + "/"},
		{name: "conformance", path: "/conformance", want: server + "/conformance"},
		{name: "collection template", path: "/collections/{collectionId}", collection: "water", want: server + "/collections/water"},
		{name: "literal collection", path: "/collections/water/items", collection: "water", want: server + "/collections/water/items"},
		{name: "literal collection without id", path: "/collections/water/items", want: server + "/collections/water/items"},
		{name: "literal collection other id", path: "/collections/water/items", collection: "roads", wantErr: ErrIdentifierMismatch},
		{name: "concatenate collection", path: "/collections", collection: "water", want: server + "/collections/water"},
		{name: "concatenate feature", path: "/collections/water/items", feature: "7", want: server + "/collections/water/items/7"},
		{name: "concatenate items and feature", path: "/collections/{c}", collection: "water", feature: "7", want: server + "/collections/water/items/7"},
		{name: "template value bound", path: "/collections/{c}/items", tvs: map[string]string{"c": "roads"}, want: server + "/collections/roads/items"},
		{name: "escape", path: "/collections/{c}", collection: "a b", want: server + "/collections/a%20b"},
		{name: "missing collection", path: "/collections/{c}/items", wantErr: ErrMissingIdentifier},
		{name: "missing feature", path: "/collections/{c}/items/{f}", collection: "water", wantErr: ErrMissingIdentifier},
		{name: "unknown template", path: "/collections/{c}/items/{f}/{other}", collection: "water", feature: "1", wantErr: ErrMissingIdentifier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := testpoint.New(server, tt.path, nil, tt.tvs)
			got, err := Build(tp, tt.collection, tt.feature)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err=%v want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
			if strings.ContainsAny(got, "{}") {
				t.Fatalf("unresolved template in %q", got)
			}
		})
	}
}

func TestCollectionID(t *testing.T) {
	tests := []struct {
		path string
		tvs  map[string]string
		want string
		ok   bool
	}{
		{"/collections/water/items", nil, "water", true},
		{"/collections/a%20b", nil, "a b", true},
		{"/collections/{collectionId}/items", map[string]string{"collectionId": "roads"}, "roads", true},
		{"/collections/{collectionId}/items", nil, "", false},
		{"/collections", nil, "", false},
		{"/", nil, "", false},
	}
	for _, tt := range tests {
		got, ok := CollectionID(testpoint.New(server, tt.path, nil, tt.tvs))
		if got != tt.want || ok != tt.ok {
			t.Fatalf("CollectionID(%s)=%q,%v want %q,%v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}
