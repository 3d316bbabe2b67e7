package suite

import (
	"context"
	"net/http"
	"net/url"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/conformance"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/crscheck"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/openapi"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/testpoint"
	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/crs"
	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/verdict"
)

// UnsupportedCRS is requested to check that unknown CRSs are rejected.
const UnsupportedCRS = "http://www.opengis.net/def/crs/EPSG/0/0"

// crsQueries requests the items of each spatial collection in its default
// CRS and in every CRS it supports, checking the Content-Crs header.
func (s *Suite) crsQueries(ctx context.Context) error {
	if !s.fx.Classes().Has(conformance.CRS) {
		s.record(ctx, "crs.declared", verdict.Skipf("conformance class %s is not declared", conformance.CRS))
		return nil
	}
	for _, id := range s.collectionIDs() {
		cctx := withCollection(ctx, id)
		c, ok := s.fx.Collection(id)
		if !ok || !crscheck.IsSpatial(c) {
			s.record(cctx, "crs.content-crs", verdict.Skipf("collection %q has no spatial extent", id))
			continue
		}
		def, ok := s.fx.DefaultCRS(id)
		if !ok {
			s.record(cctx, "crs.content-crs", verdict.Skipf("collection %q declares no default CRS", id))
			continue
		}
		tps := s.fx.Resolver().CollectionItems(id)
		if len(tps) == 0 {
			s.record(cctx, "crs.content-crs", verdict.Skipf("no path in the API description serves the items of %q", id))
			continue
		}
		// one items path is enough to exercise the CRS negotiation
		if err := s.crsCollection(cctx, tps[0], id, def); err != nil {
			return err
		}
	}
	return nil
}

func (s *Suite) crsCollection(ctx context.Context, tp testpoint.TestPoint, id string, def crs.CoordinateSystem) error {
	cat := openapi.CategoryItems.String()

	resp, r, err := s.probe(ctx, cat, tp, id, "", nil)
	if err != nil {
		return err
	}
	if resp != nil {
		if r = expectOK(resp); r.Passed() {
			r = crscheck.CheckContentCrs(resp.Header.Get(crscheck.HeaderContentCrs), def)
		}
	}
	s.record(ctx, "crs.content-crs.default", r)

	for _, cs := range s.fx.ValidCRS(id) {
		resp, r, err := s.probe(ctx, cat, tp, id, "", url.Values{"crs": {cs.Code()}})
		if err != nil {
			return err
		}
		if resp != nil {
			if r = expectOK(resp); r.Passed() {
				r = crscheck.CheckContentCrs(resp.Header.Get(crscheck.HeaderContentCrs), cs)
			}
		}
		s.record(ctx, "crs.content-crs["+cs.Code()+"]", r)
	}

	resp, r, err = s.probe(ctx, cat, tp, id, "", url.Values{"crs": {UnsupportedCRS}})
	if err != nil {
		return err
	}
	if resp != nil {
		r = expectStatus(resp, http.StatusBadRequest)
	}
	s.record(ctx, "crs.unsupported-rejected", r)
	return nil
}
