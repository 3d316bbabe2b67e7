// Package uribuilder turns a test point into a concrete request URI.
package uribuilder

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/testpoint"
)

var (
	ErrMissingIdentifier  = errors.New("missing identifier for path template")
	ErrIdentifierMismatch = errors.New("path is bound to a different identifier")
)

const (
	collectionsSegment = "collections"
	itemsSegment       = "items"
)

// Build resolves tp into a URI. The segment following "collections" is the
// collection slot and the segment following "items" is the feature slot,
// whatever the template variables are called. Paths published per collection
// keep their literal segments; paths that stop before a slot are extended when
// an identifier is supplied.
func Build(tp testpoint.TestPoint, collectionID, featureID string) (string, error) {
	segs := splitPath(tp.Path())
	tvs := tp.TemplateValues()
	for i, s := range segs {
		if name, ok := testpoint.Placeholder(s); ok {
			if v, bound := tvs[name]; bound {
				segs[i] = url.PathEscape(v)
			}
		}
	}

	ci := indexOf(segs, collectionsSegment)
	if ci >= 0 {
		var err error
		segs, err = fillSlot(segs, ci+1, collectionID, "collection")
		if err != nil {
			return "", fmt.Errorf("%s: %w", tp.Path(), err)
		}
		if featureID != "" && len(segs) == ci+2 {
			segs = append(segs, itemsSegment)
		}
		if len(segs) > ci+2 && segs[ci+2] == itemsSegment {
			segs, err = fillSlot(segs, ci+3, featureID, "feature")
			if err != nil {
				return "", fmt.Errorf("%s: %w", tp.Path(), err)
			}
		}
	}

	for _, s := range segs {
		if name, ok := testpoint.Placeholder(s); ok {
			return "", fmt.Errorf("%s: %w: {%s}", tp.Path(), ErrMissingIdentifier, name)
		}
	}
	return tp.ServerURL() + "/" + strings.Join(segs, "/"), nil
}

// fillSlot binds id into segs[i], appending the segment when the path ends just before it.
func fillSlot(segs []string, i int, id, what string) ([]string, error) {
	switch {
	case i == len(segs):
		if id != "" {
			segs = append(segs, url.PathEscape(id))
		}
		return segs, nil
	case i > len(segs):
		return segs, nil
	}
	if name, ok := testpoint.Placeholder(segs[i]); ok {
		if id == "" {
			return nil, fmt.Errorf("%w: %s {%s}", ErrMissingIdentifier, what, name)
		}
		segs[i] = url.PathEscape(id)
		return segs, nil
	}
	if id != "" && segs[i] != url.PathEscape(id) {
		return nil, fmt.Errorf("%w: %s %q requested, path names %q", ErrIdentifierMismatch, what, id, segs[i])
	}
	return segs, nil
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return []string{}
	}
	return strings.Split(p, "/")
}

func indexOf(segs []string, s string) int {
	for i, v := range segs {
		if v == s {
			return i
		}
	}
	return -1
}

// CollectionID returns the collection a test point is bound to, either by a
// literal path segment or by a template value. ok is false for unbound paths.
func CollectionID(tp testpoint.TestPoint) (string, bool) {
	segs := splitPath(tp.Path())
	ci := indexOf(segs, collectionsSegment)
	if ci < 0 || ci+1 >= len(segs) {
		return "", false
	}
	slot := segs[ci+1]
	name, templated := testpoint.Placeholder(slot)
	if !templated {
		id, err := url.PathUnescape(slot)
		if err != nil {
			return slot, true
		}
		return id, true
	}
	id, ok := tp.TemplateValues()[name]
	return id, ok
}
