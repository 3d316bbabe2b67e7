package fakeapi

import (
	"fmt"
	"net/http"
)

const apiTemplate = `openapi: 3.0.3
info:
  title: fake features service
  version: "1.0"
servers:
  - url: %s
paths:
  /:
    get:
      responses:
        "200":
          description: landing page
          content:
            application/json:
              schema: {$ref: "#/components/schemas/landingPage"}
  /conformance:
    get:
      responses:
        "200":
          description: conformance declaration
          content:
            application/json:
              schema: {type: object}
  /api:
    get:
      responses:
        "200":
          description: this document
          content:
            application/vnd.oai.openapi+json;version=3.0:
              schema: {type: object}
            application/vnd.oai.openapi;version=3.0:
              schema: {type: object}
  /collections:
    get:
      responses:
        "200":
          description: collections
          content:
            application/json:
              schema: {type: object}
  /collections/{collectionId}:
    get:
      parameters:
        - $ref: "#/components/parameters/collectionId"
      responses:
        "200":
          description: collection
          content:
            application/json:
              schema: {type: object}
  /collections/{collectionId}/items:
    get:
      parameters:
        - $ref: "#/components/parameters/collectionId"
        - {name: bbox, in: query, schema: {type: array, items: {type: number}}, style: form, explode: false}
        - {name: crs, in: query, schema: {type: string, format: uri}}
        - {name: limit, in: query, schema: {type: integer, minimum: 1}}
      responses:
        "200":
          description: features
          content:
            application/geo+json:
              schema: {type: object}
  /collections/{collectionId}/items/{featureId}:
    get:
      parameters:
        - $ref: "#/components/parameters/collectionId"
        - {name: featureId, in: path, required: true, schema: {type: string}}
        - {name: crs, in: query, schema: {type: string, format: uri}}
      responses:
        "200":
          description: feature
          content:
            application/geo+json:
              schema: {type: object}
components:
  parameters:
    collectionId:
      name: collectionId
      in: path
      required: true
      schema: {type: string}
  schemas:
    landingPage: {type: object}
`

func (s *Service) api(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.oai.openapi;version=3.0")
	_, _ = fmt.Fprintf(w, apiTemplate, base(r))
}
