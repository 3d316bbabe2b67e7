package suite

import (
	"context"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/executor"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/model"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/openapi"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/uribuilder"
	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/verdict"
)

func (s *Suite) items(ctx context.Context) error {
	tps := s.fx.Resolver().AllCollectionItems(s.collectionIDs(), s.cfg.MaxCollections)
	if len(tps) == 0 {
		s.record(ctx, "items.resolved", verdict.Failf("the API description declares no items path for the collections"))
		return nil
	}
	for _, tp := range tps {
		id, ok := uribuilder.CollectionID(tp)
		if !ok {
			continue
		}
		cctx := withCollection(ctx, id)
		resp, r, err := s.probe(cctx, openapi.CategoryItems.String(), tp, id, "", nil)
		if err != nil {
			return err
		}
		if resp != nil {
			r = expectOK(resp)
		}
		s.record(cctx, "items.status", r)
		if !r.Passed() {
			continue
		}

		fc, r := decodeFeatureCollection(resp)
		s.record(cctx, "items.feature-collection", r)
		if !r.Passed() {
			continue
		}
		if err := s.feature(cctx, id, fc); err != nil {
			return err
		}
	}
	return nil
}

func decodeFeatureCollection(resp *executor.Response) (model.FeatureCollection, verdict.Result) {
	var fc model.FeatureCollection
	if r := decodeJSON(resp, &fc); !r.Passed() {
		return fc, r
	}
	if fc.Type != "FeatureCollection" {
		return fc, verdict.Failf("%s returned type %q, expected FeatureCollection", resp.URI, fc.Type)
	}
	if fc.Features == nil {
		return fc, verdict.Failf("%s has no features member", resp.URI)
	}
	return fc, verdict.Pass()
}

// firstFeatureID returns the id of the first feature that has one.
func firstFeatureID(fc model.FeatureCollection) (string, bool) {
	for _, f := range fc.Features {
		if id := f.IDString(); id != "" {
			return id, true
		}
	}
	return "", false
}

// feature fetches the first feature of fc on its own.
func (s *Suite) feature(ctx context.Context, collectionID string, fc model.FeatureCollection) error {
	fid, ok := firstFeatureID(fc)
	if !ok {
		s.record(ctx, "feature.status", verdict.Skipf("collection %q returned no feature with an id", collectionID))
		return nil
	}
	tps := s.fx.Resolver().Feature(collectionID)
	if len(tps) == 0 {
		s.record(ctx, "feature.status", verdict.Skipf("no path in the API description serves single features of %q", collectionID))
		return nil
	}
	for _, tp := range tps {
		resp, r, err := s.probe(ctx, openapi.CategoryFeature.String(), tp, collectionID, fid, nil)
		if err != nil {
			return err
		}
		if resp != nil {
			r = expectOK(resp)
		}
		s.record(ctx, "feature.status", r)
		if !r.Passed() {
			continue
		}

		var f model.Feature
		if r = decodeJSON(resp, &f); r.Passed() {
			switch {
			case f.Type != "Feature":
				r = verdict.Failf("%s returned type %q, expected Feature", resp.URI, f.Type)
			case f.IDString() != fid:
				r = verdict.Failf("%s returned feature %q, expected %q", resp.URI, f.IDString(), fid)
			}
		}
		s.record(ctx, "feature.id", r)
	}
	return nil
}
