package suite

import (
	"context"
	"slices"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/conformance"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/model"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/openapi"
	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/verdict"
)

func (s *Suite) landingPage(ctx context.Context) error {
	tps := s.fx.Resolver().LandingPage()
	if len(tps) == 0 {
		s.record(ctx, "landing-page.resolved", verdict.Failf("the API description declares no GET %s", openapi.PathLandingPage))
		return nil
	}
	for _, tp := range tps {
		resp, r, err := s.probe(ctx, openapi.CategoryLandingPage.String(), tp, "", "", nil)
		if err != nil {
			return err
		}
		if resp != nil {
			r = expectOK(resp)
		}
		s.record(ctx, "landing-page.status", r)
		if !r.Passed() {
			continue
		}

		var lp model.LandingPage
		if r = decodeJSON(resp, &lp); r.Passed() {
			r = landingLinks(resp.URI, lp.Links)
		}
		s.record(ctx, "landing-page.links", r)
	}
	return nil
}

func landingLinks(uri string, links model.Links) verdict.Result {
	var missing []string
	if len(links.ByRel("service-desc")) == 0 && len(links.ByRel("service-doc")) == 0 {
		missing = append(missing, "service-desc or service-doc")
	}
	for _, rel := range []string{"conformance", "data"} {
		if len(links.ByRel(rel)) == 0 {
			missing = append(missing, rel)
		}
	}
	if len(missing) > 0 {
		return verdict.Failf("landing page %s has no link with rel %v", uri, missing)
	}
	return verdict.Pass()
}

func (s *Suite) conformance(ctx context.Context) error {
	tps := s.fx.Resolver().Conformance()
	if len(tps) == 0 {
		s.record(ctx, "conformance.resolved", verdict.Failf("the API description declares no GET %s", openapi.PathConformance))
		return nil
	}
	for _, tp := range tps {
		resp, r, err := s.probe(ctx, openapi.CategoryConformance.String(), tp, "", "", nil)
		if err != nil {
			return err
		}
		if resp != nil {
			r = expectOK(resp)
		}
		s.record(ctx, "conformance.status", r)
		if !r.Passed() {
			continue
		}

		var decl model.ConformanceDeclaration
		if r = decodeJSON(resp, &decl); r.Passed() && !slices.Contains(decl.ConformsTo, conformance.Core) {
			r = verdict.Failf("%s does not declare %s", resp.URI, conformance.Core)
		}
		s.record(ctx, "conformance.core", r)
	}
	return nil
}

func (s *Suite) apiDescription(ctx context.Context) error {
	tps := s.fx.Resolver().APIDescription()
	if len(tps) == 0 {
		s.record(ctx, "api-description.resolved", verdict.Skipf("the API description declares no GET %s", openapi.PathAPIDescription))
		return nil
	}
	for _, tp := range tps {
		resp, r, err := s.probe(ctx, openapi.CategoryAPIDescription.String(), tp, "", "", nil)
		if err != nil {
			return err
		}
		if resp != nil {
			r = expectOK(resp)
		}
		s.record(ctx, "api-description.status", r)
		if !r.Passed() {
			continue
		}
		if _, err := openapi.Load(ctx, resp.Body, nil); err != nil {
			r = verdict.Failf("%s is not a usable OpenAPI 3 document: %v", resp.URI, err)
		}
		s.record(ctx, "api-description.parse", r)
	}
	return nil
}
