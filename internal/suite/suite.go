// Package suite runs the conformance checks against a prepared fixture. Groups
// run one after the other; a transport failure aborts the run.
package suite

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/executor"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/model"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/testpoint"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/uribuilder"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/fixture"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/logger"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/mapper"
	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/verdict"
)

// group names
const (
	GroupLandingPage    = "landing-page"
	GroupConformance    = "conformance"
	GroupAPIDescription = "api-description"
	GroupCollections    = "collections"
	GroupCollection     = "collection"
	GroupItems          = "items"
	GroupCRS            = "crs"
	GroupBBox           = "bbox"
)

type Config struct {
	// MaxCollections caps the collections probed per group; <= 0 probes all.
	MaxCollections int
	// BBoxProbes is the number of bbox queries sent per collection.
	BBoxProbes int
}

type Deps struct {
	Logger *slog.Logger
	Prober fixture.Prober
	// Mapper is optional; without it the bbox group is skipped.
	Mapper mapper.Interface
	// Events is optional.
	Events EventSink
}

type Suite struct {
	cfg  Config
	deps Deps
	fx   *fixture.Fixture
	rec  *Recorder
}

type Report struct {
	RunID    string          `json:"run_id"`
	IUT      string          `json:"iut"`
	Started  time.Time       `json:"started"`
	Finished time.Time       `json:"finished"`
	Entries  []Entry         `json:"entries"`
	Summary  verdict.Summary `json:"summary"`
}

func New(cfg Config, deps Deps, fx *fixture.Fixture) *Suite {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.BBoxProbes <= 0 {
		cfg.BBoxProbes = 3
	}
	return &Suite{
		cfg:  cfg,
		deps: deps,
		fx:   fx,
		rec:  NewRecorder(deps.Logger, deps.Events, fx.RootURI()),
	}
}

// Run executes every group. ctx should carry a run id (logger.WithRunID).
func (s *Suite) Run(ctx context.Context) (*Report, error) {
	started := time.Now().UTC()
	groups := []struct {
		name string
		run  func(context.Context) error
	}{
		{GroupLandingPage, s.landingPage},
		{GroupConformance, s.conformance},
		{GroupAPIDescription, s.apiDescription},
		{GroupCollections, s.collections},
		{GroupCollection, s.collection},
		{GroupItems, s.items},
		{GroupCRS, s.crsQueries},
		{GroupBBox, s.bboxQueries},
	}
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		gctx := logger.WithGroup(ctx, g.name)
		s.deps.Logger.DebugContext(gctx, "group start")
		if err := g.run(gctx); err != nil {
			return nil, fmt.Errorf("group %s: %w", g.name, err)
		}
	}
	return &Report{
		RunID:    logger.RunID(ctx),
		IUT:      s.fx.RootURI(),
		Started:  started,
		Finished: time.Now().UTC(),
		Entries:  s.rec.Entries(),
		Summary:  s.rec.Summary(),
	}, nil
}

func (s *Suite) record(ctx context.Context, check string, r verdict.Result) {
	s.rec.Record(ctx, r.Named(check))
}

// collectionIDs lists the collections the groups iterate over.
func (s *Suite) collectionIDs() []string {
	return s.fx.CollectionIDs(s.cfg.MaxCollections)
}

func withCollection(ctx context.Context, id string) context.Context {
	return logger.WithCollection(ctx, id)
}

// probe builds the URI of tp and requests it with the preferred JSON media
// type. A test point that cannot be turned into a URI yields a skip verdict.
func (s *Suite) probe(ctx context.Context, category string, tp testpoint.TestPoint, collectionID, featureID string, query url.Values) (*executor.Response, verdict.Result, error) {
	uri, err := uribuilder.Build(tp, collectionID, featureID)
	if err != nil {
		return nil, verdict.Skipf("cannot build request for %s: %v", tp, err), nil
	}
	accept, ok := tp.PreferredMediaType(model.IsJSONMediaType)
	if !ok {
		accept = "application/json"
	}
	resp, err := s.deps.Prober.Get(ctx, category, uri, accept, query)
	if err != nil {
		return nil, verdict.Result{}, fmt.Errorf("%s %s: %w", category, uri, err)
	}
	return resp, verdict.Pass(), nil
}

func expectStatus(resp *executor.Response, want int) verdict.Result {
	if resp.Status != want {
		return verdict.Failf("GET %s returned status %d, expected %d", resp.URI, resp.Status, want)
	}
	return verdict.Pass()
}

func expectOK(resp *executor.Response) verdict.Result {
	return expectStatus(resp, http.StatusOK)
}

// decodeJSON decodes a JSON response body or fails naming the resource.
func decodeJSON(resp *executor.Response, v any) verdict.Result {
	if !model.IsJSONMediaType(resp.ContentType) {
		return verdict.Failf("GET %s returned content type %q, expected JSON", resp.URI, resp.ContentType)
	}
	if err := model.Decode(resp.Body, v); err != nil {
		return verdict.Failf("GET %s: %v", resp.URI, err)
	}
	return verdict.Pass()
}
