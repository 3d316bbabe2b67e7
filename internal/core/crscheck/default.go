// Package crscheck cross-validates the CRS metadata of collections: default
// CRS presence, storage CRS declaration, identifier syntax and the Content-Crs
// response header.
package crscheck

import (
	"slices"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/crs"
	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/verdict"
)

// ResolveDefault returns the first entry of list that is exactly one of the
// default CRSs, and fails when there is none.
func ResolveDefault(list []string) (crs.CoordinateSystem, verdict.Result) {
	defaults := crs.Defaults()
	for _, code := range list {
		c := crs.New(code)
		if slices.Contains(defaults, c) {
			return c, verdict.Pass()
		}
	}
	return crs.CoordinateSystem{}, verdict.Failf("none of the default CRS %s is declared in %v", defaultsList(), list)
}

// defaultsList renders the default CRSs as `"a" or "b"`.
func defaultsList() string {
	var quoted []string
	for _, d := range crs.Defaults() {
		quoted = append(quoted, strconv.Quote(d.Code()))
	}
	return strings.Join(quoted, " or ")
}
