package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/zenazn/goji/web"
)

const raml = `
#%RAML 0.8
title: "Sculpt host-UI bridge"
version: v1
baseUri: /api
/server/info:
  get:
    description: returns version, grid layout, compute device and library information
    responses:
      200:
        body:
          application/json:
/brushes:
  get:
    description: lists every brush with its variant, state and whether it affects geometry
    responses:
      200:
        body:
          application/json:
  /{name}/select:
    post:
      description: deactivates the active brush, then selects and buffers the named brush
      responses:
        200:
        404:
          description: unknown brush
        409:
          description: the named brush is mid-stroke
  /{name}/properties:
    get:
      description: returns the property store, as msgpack if the Accept header asks for it
      responses:
        200:
          body:
            application/json:
            application/x-msgpack:
    /{id}:
      get:
        description: returns one typed property value
        responses:
          200:
            body:
              application/json:
                example: '{"Type": "float", "Value": 0.5}'
      put:
        description: sets a property from a typed value or a bare JSON value of the declared type
        responses:
          200:
          400:
            description: value does not match the declared type
          404:
            description: property not declared by the brush
  /{name}/extends:
    get:
      description: lists the property identifiers the brush declares
    /{id}:
      get:
        description: returns whether the brush declares the property
/session/deselect:
  post:
    description: deactivates the active brush and releases its transfer buffer
/session/resize:
  post:
    description: rebuilds the grid with a new chunk size, keeping every sample
    body:
      application/json:
        example: '{"chunkSize": 16}'
/stroke/start:
  post:
    description: begins a stroke with the active brush
    body:
      application/json:
        example: '{"point": [12.5, 4, 9], "normal": [0, 1, 0], "clamp": false}'
/stroke/sample:
  post:
    description: applies the active brush at a hit, returning the written chunk
    responses:
      200:
        body:
          application/json:
      400:
        description: the brush stencil reaches outside the grid
      409:
        description: no stroke in progress
/stroke/end:
  post:
    description: ends the current stroke
`

// Handler for RAML interface.
func interfaceHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/raml+yaml")
	w.WriteHeader(http.StatusOK)
	if r.Method != "HEAD" {
		io.Copy(w, strings.NewReader(raml))
	}
}

func versionHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, WebAPIVersion)
}
