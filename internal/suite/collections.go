package suite

import (
	"context"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/crscheck"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/model"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/openapi"
	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/verdict"
)

// collections probes /collections and cross-validates the CRS metadata of
// each listed collection against the global crs list.
func (s *Suite) collections(ctx context.Context) error {
	tps := s.fx.Resolver().CollectionsMetadata()
	if len(tps) == 0 {
		s.record(ctx, "collections.resolved", verdict.Failf("the API description declares no GET %s", openapi.PathCollections))
		return nil
	}
	for _, tp := range tps {
		resp, r, err := s.probe(ctx, openapi.CategoryCollections.String(), tp, "", "", nil)
		if err != nil {
			return err
		}
		if resp != nil {
			r = expectOK(resp)
		}
		s.record(ctx, "collections.status", r)
		if !r.Passed() {
			continue
		}

		var doc model.Collections
		if r = decodeJSON(resp, &doc); r.Passed() {
			r = collectionIDsPresent(resp.URI, doc)
		}
		s.record(ctx, "collections.ids", r)
		if !r.Passed() {
			continue
		}

		// entries of a list refer back to its crs list, which may be absent
		global := doc.CRS
		if global == nil {
			global = []string{}
		}
		entries := doc.Collections
		if s.cfg.MaxCollections > 0 && len(entries) > s.cfg.MaxCollections {
			entries = entries[:s.cfg.MaxCollections]
		}
		for _, c := range entries {
			s.crsMetadata(withCollection(ctx, c.ID), c, global)
		}
	}
	return nil
}

func collectionIDsPresent(uri string, doc model.Collections) verdict.Result {
	for i, c := range doc.Collections {
		if c.ID == "" {
			return verdict.Failf("collection #%d of %s has no id", i, uri)
		}
	}
	return verdict.Pass()
}

func (s *Suite) crsMetadata(ctx context.Context, c model.Collection, global []string) {
	s.record(ctx, "crs.default", crscheck.CheckDefaultCRS(c, global))
	s.record(ctx, "crs.storage", crscheck.CheckStorageCRS(c, global))
	s.record(ctx, "crs.identifiers", crscheck.CheckCRSIdentifiers(c, global))
}

// collection probes each collection's own metadata document. A single
// collection body has no global list to refer back to.
func (s *Suite) collection(ctx context.Context) error {
	for _, id := range s.collectionIDs() {
		cctx := withCollection(ctx, id)
		tps := s.fx.Resolver().CollectionMetadata(id)
		if len(tps) == 0 {
			s.record(cctx, "collection.resolved", verdict.Skipf("no path in the API description serves collection %q", id))
			continue
		}
		for _, tp := range tps {
			resp, r, err := s.probe(cctx, openapi.CategoryCollection.String(), tp, id, "", nil)
			if err != nil {
				return err
			}
			if resp != nil {
				r = expectOK(resp)
			}
			s.record(cctx, "collection.status", r)
			if !r.Passed() {
				continue
			}

			var c model.Collection
			if r = decodeJSON(resp, &c); r.Passed() && c.ID != id {
				r = verdict.Failf("%s describes collection %q, expected %q", resp.URI, c.ID, id)
			}
			s.record(cctx, "collection.id", r)
			if !r.Passed() {
				continue
			}
			s.crsMetadata(cctx, c, nil)
		}
	}
	return nil
}
