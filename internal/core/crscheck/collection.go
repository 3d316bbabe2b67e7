package crscheck

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/model"
	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/crs"
	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/verdict"
)

// ErrNoGlobalList is returned when a collection refers back to the global CRS
// list but the document it came from has none to offer.
var ErrNoGlobalList = errors.New("collection refers to #/crs but no global crs list is available")

// IsSpatial reports whether the collection has at least one non-empty spatial bbox.
func IsSpatial(c model.Collection) bool {
	if c.Extent == nil || c.Extent.Spatial == nil {
		return false
	}
	for _, bb := range c.Extent.Spatial.BBox {
		if len(bb) >= 4 {
			return true
		}
	}
	return false
}

// EffectiveCRS expands "#/crs" entries of the collection's crs list with the
// global list, keeping order and dropping duplicates. A nil global list means
// the collection was read on its own; the shorthand cannot be expanded then.
func EffectiveCRS(c model.Collection, global []string) ([]string, error) {
	if !slices.ContainsFunc(c.CRS, isBackReference) {
		return slices.Clone(c.CRS), nil
	}
	if global == nil {
		return nil, ErrNoGlobalList
	}
	var out []string
	for _, code := range c.CRS {
		if !isBackReference(code) {
			out = appendUnique(out, code)
			continue
		}
		for _, g := range global {
			out = appendUnique(out, g)
		}
	}
	return out, nil
}

func isBackReference(code string) bool { return crs.New(code).IsBackReference() }

func appendUnique(list []string, code string) []string {
	if slices.Contains(list, code) {
		return list
	}
	return append(list, code)
}

// CheckDefaultCRS requires spatial collections to declare one of the default CRSs.
func CheckDefaultCRS(c model.Collection, global []string) verdict.Result {
	if !IsSpatial(c) {
		return verdict.Skipf("collection %q has no spatial extent", c.ID)
	}
	list, err := EffectiveCRS(c, global)
	if err != nil {
		return verdict.Skipf("collection %q: %v", c.ID, err)
	}
	if _, r := ResolveDefault(list); !r.Passed() {
		return verdict.Failf("collection with id %q does not specify one of the default CRS %s",
			c.ID, defaultsList())
	}
	return verdict.Pass()
}

// CheckStorageCRS requires a declared storageCrs to be one of the collection's CRSs.
func CheckStorageCRS(c model.Collection, global []string) verdict.Result {
	if c.StorageCRS == "" {
		return verdict.Skipf("collection %q declares no storageCrs", c.ID)
	}
	list, err := EffectiveCRS(c, global)
	if err != nil {
		return verdict.Skipf("collection %q: %v", c.ID, err)
	}
	if !slices.Contains(list, c.StorageCRS) {
		return verdict.Failf("collection with id %q declares storageCrs %q which is not in its crs list %v",
			c.ID, c.StorageCRS, list)
	}
	return verdict.Pass()
}

// CheckCRSIdentifiers requires every effective CRS and the storage CRS to be
// syntactically valid identifiers.
func CheckCRSIdentifiers(c model.Collection, global []string) verdict.Result {
	list, err := EffectiveCRS(c, global)
	if err != nil {
		return verdict.Skipf("collection %q: %v", c.ID, err)
	}
	if c.StorageCRS != "" {
		list = appendUnique(list, c.StorageCRS)
	}
	if len(list) == 0 {
		return verdict.Skipf("collection %q declares no crs", c.ID)
	}
	var bad []error
	for _, code := range list {
		if err := crs.Validate(code); err != nil {
			bad = append(bad, err)
		}
	}
	if len(bad) > 0 {
		return verdict.Failf("collection %q: %v", c.ID, errors.Join(bad...))
	}
	return verdict.Pass()
}

// SupportedCRS lists the collection's CRSs that are valid and whose code can
// be interpreted, in declaration order.
func SupportedCRS(c model.Collection, global []string) ([]crs.CoordinateSystem, error) {
	list, err := EffectiveCRS(c, global)
	if err != nil {
		return nil, fmt.Errorf("collection %q: %w", c.ID, err)
	}
	var out []crs.CoordinateSystem
	for _, code := range list {
		cs := crs.New(code)
		if !cs.IsValid() {
			continue
		}
		if _, err := cs.CodeWithAuthority(); err != nil {
			continue
		}
		out = append(out, cs)
	}
	return out, nil
}
