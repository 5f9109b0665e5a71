/*
	This file contains functions useful for testing the host-UI bridge in other
	packages.  Due to the way Go handles compilation of *_test.go files, these functions
	cannot be in server_test.go since they will be unavailable to test files in external
	packages.  So these functions are exported and contain the "Test" keyword.
*/

package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/isoterra/sculpt/compute"
	"github.com/isoterra/sculpt/grid"
	"github.com/isoterra/sculpt/message"
	"github.com/isoterra/sculpt/property"
	"github.com/isoterra/sculpt/sculpt"
)

// NewTestServer returns a server over the built-in brush library and a small grid
// seeded with a ground plane.  Events go to the returned local publisher.
func NewTestServer(t *testing.T, config *Config) (*Server, *message.LocalPublisher) {
	if config == nil {
		config = DefaultConfig()
		config.Grid.Extent = []int32{3, 3, 3}
		config.Grid.ChunkSize = 8
	}
	extent, err := config.Extent()
	if err != nil {
		t.Fatalf("bad test config: %v\n", err)
	}
	g, err := grid.New(extent, config.Grid.ChunkSize)
	if err != nil {
		t.Fatalf("can't create test grid: %v\n", err)
	}
	g.Fill(grid.GroundPlane(float32(g.VoxelExtent()[1]) / 2))

	device := compute.NewSoftwareDevice(2)
	events := message.NewLocalPublisher(64)
	session, err := NewSession(property.DefaultLibrary(), g, device, events, sculpt.Snappy)
	if err != nil {
		t.Fatalf("can't create test session: %v\n", err)
	}
	s, err := NewServer(config, session, device)
	if err != nil {
		t.Fatalf("can't create test server: %v\n", err)
	}
	return s, events
}

// TestHTTPResponse returns a response from a test run of the server.
// Use TestHTTP if you just want the response body bytes.
func TestHTTPResponse(t *testing.T, h http.Handler, method, urlStr string, payload io.Reader) *httptest.ResponseRecorder {
	req, err := http.NewRequest(method, urlStr, payload)
	if err != nil {
		t.Fatalf("Unsuccessful %s on %q: %v\n", method, urlStr, err)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

// TestHTTP returns the response body bytes for a test request, making sure any response has
// status OK.
func TestHTTP(t *testing.T, h http.Handler, method, urlStr string, payload io.Reader) []byte {
	resp := TestHTTPResponse(t, h, method, urlStr, payload)
	if resp.Code != http.StatusOK {
		t.Fatalf("Bad server response (%d) to %s on %q: %s\n", resp.Code, method, urlStr, resp.Body.String())
	}
	return resp.Body.Bytes()
}

// TestBadHTTP expects a HTTP response with the given error status code.
func TestBadHTTP(t *testing.T, h http.Handler, method, urlStr string, payload io.Reader, status int) {
	resp := TestHTTPResponse(t, h, method, urlStr, payload)
	if resp.Code != status {
		t.Fatalf("Expected status %d to %s on %q, got %d instead: %s\n", status, method, urlStr, resp.Code, resp.Body.String())
	}
}
