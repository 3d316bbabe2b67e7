// Package openapi resolves test points for the resource categories of an OGC API
// Features service from its OpenAPI 3 description.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/getkin/kin-openapi/openapi3"
)

// Load parses an OpenAPI 3 document. location, when set, is used to resolve
// relative external references.
func Load(ctx context.Context, data []byte, location *url.URL) (*openapi3.T, error) {
	if len(data) == 0 {
		return nil, errors.New("openapi: empty document")
	}
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = location != nil

	var (
		doc *openapi3.T
		err error
	)
	if location != nil {
		doc, err = loader.LoadFromDataWithPath(data, location)
	} else {
		doc, err = loader.LoadFromData(data)
	}
	if err != nil {
		return nil, fmt.Errorf("openapi: load: %w", err)
	}
	if doc.Paths == nil || doc.Paths.Len() == 0 {
		return nil, errors.New("openapi: document declares no paths")
	}
	return doc, nil
}
