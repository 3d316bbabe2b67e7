package fixture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/cache/redisstore"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/conformance"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/executor"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/httpclient"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/fakeapi"
	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/crs"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func deps() Deps {
	return Deps{
		Logger: discard(),
		Prober: executor.New(discard(), httpclient.NewOutbound(5*time.Second), executor.WithDocMemo(16)),
	}
}

func TestPrepare_ResolvesServiceMetadata(t *testing.T) {
	srv := fakeapi.Start(fakeapi.DefaultOptions())
	defer srv.Close()

	fx, err := Prepare(context.Background(), deps(), srv.URL+"/")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if fx.RootURI() != srv.URL {
		t.Fatalf("root=%q want %q", fx.RootURI(), srv.URL)
	}
	if fx.APIDescriptionURI() != srv.URL+"/api" {
		t.Fatalf("api uri=%q", fx.APIDescriptionURI())
	}
	if !fx.Classes().Has(conformance.CRS) || !fx.Classes().Has(conformance.GeoJSON) {
		t.Fatalf("classes=%v", fx.Classes().URIs())
	}
	if got := fx.CollectionIDs(0); len(got) != 2 || got[0] != "water" {
		t.Fatalf("collection ids=%v", got)
	}
	if got := fx.CollectionIDs(1); len(got) != 1 {
		t.Fatalf("capped collection ids=%v", got)
	}

	def, ok := fx.DefaultCRS("water")
	if !ok || def.Code() != crs.DefaultCRS {
		t.Fatalf("default crs of water=%v ok=%v", def, ok)
	}
	if _, ok := fx.DefaultCRS("registry"); ok {
		t.Fatalf("registry declares no crs and must have no default")
	}
	valid := fx.ValidCRS("water")
	if len(valid) != 2 || valid[0].Code() != crs.DefaultCRS || valid[1].Code() != "http://www.opengis.net/def/crs/EPSG/0/3163" {
		t.Fatalf("valid crs of water=%v", valid)
	}

	items := fx.Resolver().CollectionItems("water")
	if len(items) != 1 || items[0].ServerURL() != srv.URL {
		t.Fatalf("items test points=%v", items)
	}
	if fx.FromSnapshot() {
		t.Fatalf("fixture was fetched, not restored")
	}
}

func TestPrepare_AccessorsReturnCopies(t *testing.T) {
	srv := fakeapi.Start(fakeapi.DefaultOptions())
	defer srv.Close()

	fx, err := Prepare(context.Background(), deps(), srv.URL)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	c, _ := fx.Collection("water")
	c.CRS[0] = "mutated"
	c.Extent.Spatial.BBox[0][0] = -1
	lp := fx.LandingPage()
	lp.Links[0].Href = "mutated"
	fx.ValidCRS("water")[0] = crs.New("mutated")
	fx.DefaultCRSByCollection()["water"] = crs.New("mutated")

	again, _ := fx.Collection("water")
	if again.CRS[0] != "#/crs" || again.Extent.Spatial.BBox[0][0] != 5.6 {
		t.Fatalf("collection mutated through accessor: %+v", again)
	}
	if fx.LandingPage().Links[0].Href == "mutated" {
		t.Fatalf("landing page mutated through accessor")
	}
	if fx.ValidCRS("water")[0].Code() != crs.DefaultCRS {
		t.Fatalf("valid crs mutated through accessor")
	}
	if def, _ := fx.DefaultCRS("water"); def.Code() != crs.DefaultCRS {
		t.Fatalf("default crs map mutated through accessor")
	}
}

func TestPrepare_MissingConformanceIsNotFound(t *testing.T) {
	opts := fakeapi.DefaultOptions()
	opts.NoConformance = true
	srv := fakeapi.Start(opts)
	defer srv.Close()

	_, err := Prepare(context.Background(), deps(), srv.URL)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPrepare_FallsBackToWellKnownAPIPath(t *testing.T) {
	opts := fakeapi.DefaultOptions()
	opts.NoServiceDescLink = true
	srv := fakeapi.Start(opts)
	defer srv.Close()

	fx, err := Prepare(context.Background(), deps(), srv.URL)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if fx.APIDescriptionURI() != srv.URL+"/api" {
		t.Fatalf("api uri=%q", fx.APIDescriptionURI())
	}
}

func TestPrepare_APIDescriptionFromFile(t *testing.T) {
	srv := fakeapi.Start(fakeapi.DefaultOptions())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api")
	if err != nil {
		t.Fatalf("get api: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	path := filepath.Join(t.TempDir(), "api.yaml")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	d := deps()
	d.APIDescription = path
	fx, err := Prepare(context.Background(), d, srv.URL)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if fx.APIDescriptionURI() != path {
		t.Fatalf("api uri=%q want %q", fx.APIDescriptionURI(), path)
	}

	d.APIDescription = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := Prepare(context.Background(), d, srv.URL); err == nil {
		t.Fatalf("expected error for missing api description file")
	}
}

func TestPrepare_RejectsRelativeRoot(t *testing.T) {
	if _, err := Prepare(context.Background(), deps(), "/ogc"); err == nil {
		t.Fatalf("expected error for relative root uri")
	}
}

func TestPrepare_SnapshotRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	store, err := redisstore.New(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("redisstore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	srv := fakeapi.Start(fakeapi.DefaultOptions())
	root := srv.URL

	d := deps()
	d.Snapshots = store
	d.SnapshotTTL = time.Minute
	d.SnapshotTimeout = time.Second

	first, err := Prepare(context.Background(), d, root)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(mr.Keys()) != 1 {
		t.Fatalf("expected one snapshot key, got %v", mr.Keys())
	}

	// the service is gone; the snapshot alone must rebuild the fixture
	srv.Close()
	second, err := Prepare(context.Background(), d, root)
	if err != nil {
		t.Fatalf("Prepare from snapshot: %v", err)
	}
	if !second.FromSnapshot() {
		t.Fatalf("expected fixture restored from snapshot")
	}
	if got, want := second.CollectionIDs(0), first.CollectionIDs(0); len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("restored ids=%v want %v", got, want)
	}
	if def, ok := second.DefaultCRS("water"); !ok || def.Code() != crs.DefaultCRS {
		t.Fatalf("restored default crs=%v ok=%v", def, ok)
	}

	mr.FastForward(2 * time.Minute)
	d.Prober = executor.New(discard(), nil)
	if _, err := Prepare(context.Background(), d, root); err == nil {
		t.Fatalf("expected fetch error once the snapshot expired and the service is gone")
	}
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("store down")
}

func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("store down")
}

func TestPrepare_SnapshotStoreFailuresAreNotFatal(t *testing.T) {
	srv := fakeapi.Start(fakeapi.DefaultOptions())
	defer srv.Close()

	d := deps()
	d.Snapshots = brokenStore{}
	if _, err := Prepare(context.Background(), d, srv.URL); err != nil {
		t.Fatalf("Prepare with failing store: %v", err)
	}
}
