package suite

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/crscheck"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/executor"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/model"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/openapi"
	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/verdict"
)

// bboxQueries sends bbox filtered item requests around sample points of each
// spatial collection's extent and checks every returned feature intersects
// the requested box.
func (s *Suite) bboxQueries(ctx context.Context) error {
	if s.deps.Mapper == nil {
		s.record(ctx, "bbox.probes", verdict.Skipf("no bbox mapper configured"))
		return nil
	}
	for _, id := range s.collectionIDs() {
		cctx := withCollection(ctx, id)
		c, ok := s.fx.Collection(id)
		if !ok || !crscheck.IsSpatial(c) {
			s.record(cctx, "bbox.probes", verdict.Skipf("collection %q has no spatial extent", id))
			continue
		}
		extent, ok := c.Extent.Spatial.First()
		if !ok {
			s.record(cctx, "bbox.probes", verdict.Skipf("collection %q has no usable bbox", id))
			continue
		}
		boxes, err := s.deps.Mapper.ProbeBBoxes(extent, s.cfg.BBoxProbes)
		if err != nil {
			s.record(cctx, "bbox.probes", verdict.FromError(fmt.Errorf("collection %q: %w", id, err)))
			continue
		}
		if len(boxes) == 0 {
			s.record(cctx, "bbox.probes", verdict.Skipf("collection %q: no probe box fits its extent", id))
			continue
		}
		tps := s.fx.Resolver().CollectionItems(id)
		if len(tps) == 0 {
			s.record(cctx, "bbox.probes", verdict.Skipf("no path in the API description serves the items of %q", id))
			continue
		}
		for _, bb := range boxes {
			resp, r, err := s.probe(cctx, openapi.CategoryItems.String(), tps[0], id, "", url.Values{"bbox": {bb.String()}})
			if err != nil {
				return err
			}
			if resp != nil {
				r = expectOK(resp)
			}
			s.record(cctx, "bbox.status", r)
			if !r.Passed() {
				continue
			}
			s.record(cctx, "bbox.features-intersect", featuresIntersect(resp, bb))
		}
	}
	return nil
}

func featuresIntersect(resp *executor.Response, bb model.BBox) verdict.Result {
	fc, r := decodeFeatureCollection(resp)
	if !r.Passed() {
		return r
	}
	for _, f := range fc.Features {
		env, ok, err := model.Envelope(f.Geometry)
		if err != nil {
			return verdict.Failf("feature %q of %s: %v", f.IDString(), resp.URI, err)
		}
		if ok && !env.Intersects(bb) {
			return verdict.Failf("feature %q of %s lies outside bbox %s", f.IDString(), resp.URI, bb)
		}
	}
	return verdict.Pass()
}
