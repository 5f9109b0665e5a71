/*
	This file routes the host-UI bridge: brush selection, property access and stroke
	events over HTTP.
*/

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/zenazn/goji/web"
	"github.com/zenazn/goji/web/middleware"

	"github.com/isoterra/sculpt/brush"
	"github.com/isoterra/sculpt/compute"
	"github.com/isoterra/sculpt/sculpt"
)

const (
	// WebAPIVersion is the version of the HTTP API.
	WebAPIVersion = "v1"

	// WebAPIPath is the prefix of every API route.
	WebAPIPath = "/api/"

	msgpackType = "application/x-msgpack"
)

// BadRequest writes a 400 with a message that is also logged.
func BadRequest(w http.ResponseWriter, r *http.Request, format string, args ...interface{}) {
	httpError(w, r, http.StatusBadRequest, format, args...)
}

// Unauthorized writes a 401 for missing or invalid credentials.
func Unauthorized(w http.ResponseWriter, r *http.Request, format string, args ...interface{}) {
	httpError(w, r, http.StatusUnauthorized, format, args...)
}

// Forbidden writes a 403 for valid credentials lacking the needed privilege.
func Forbidden(w http.ResponseWriter, r *http.Request, format string, args ...interface{}) {
	httpError(w, r, http.StatusForbidden, format, args...)
}

func httpError(w http.ResponseWriter, r *http.Request, status int, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	errorMsg := fmt.Sprintf("%s (%s).", message, r.URL.Path)
	sculpt.Errorf("%s\n", errorMsg)
	http.Error(w, errorMsg, status)
}

// errorStatus maps sculpting errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnknownBrush), errors.Is(err, sculpt.ErrUndeclaredProperty):
		return http.StatusNotFound
	case errors.Is(err, sculpt.ErrInvalidState), errors.Is(err, sculpt.ErrBufferReleased):
		return http.StatusConflict
	case errors.Is(err, sculpt.ErrOutOfRange), errors.Is(err, sculpt.ErrTypeMismatch),
		errors.Is(err, sculpt.ErrConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	httpError(w, r, errorStatus(err), "%v", err)
}

func writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		httpError(w, r, http.StatusInternalServerError, "can't encode response: %v", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// httpLog records each request's latency at debug level.
func httpLog(c *web.C, h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		timedLog := sculpt.NewTimeLog()
		h.ServeHTTP(w, r)
		timedLog.Debugf("HTTP %s: %s", r.Method, r.URL)
	}
	return http.HandlerFunc(fn)
}

func (s *Server) initRoutes() {
	api := web.New()
	if s.auth != nil {
		api.Use(s.auth.isAuthorized)
	}
	if s.blocks != nil {
		api.Use(s.blocks.blocked)
	}
	api.Get("/api/server/info", s.serverInfoHandler)

	api.Get("/api/brushes", s.brushesHandler)
	api.Post("/api/brushes/:name/select", s.selectHandler)
	api.Get("/api/brushes/:name/properties", s.propertiesHandler)
	api.Get("/api/brushes/:name/properties/:id", s.propertyGetHandler)
	api.Put("/api/brushes/:name/properties/:id", s.propertyPutHandler)
	api.Get("/api/brushes/:name/extends", s.extendedHandler)
	api.Get("/api/brushes/:name/extends/:id", s.extendsHandler)

	api.Post("/api/session/deselect", s.deselectHandler)
	api.Post("/api/session/resize", s.resizeHandler)

	api.Post("/api/stroke/start", s.strokeStartHandler)
	api.Post("/api/stroke/sample", s.strokeSampleHandler)
	api.Post("/api/stroke/end", s.strokeEndHandler)

	mux := web.New()
	mux.Use(middleware.EnvInit)
	mux.Use(middleware.Recoverer)
	mux.Use(httpLog)
	mux.Get("/interface", interfaceHandler)
	mux.Get("/interface/version", versionHandler)
	mux.Handle("/api/*", api)
	s.mux = mux
}

func (s *Server) serverInfoHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	g := s.session.Grid()
	info := struct {
		Version       string
		Note          string
		Session       string
		Uptime        string
		Active        string
		Library       string
		LibraryVer    string
		Extent        sculpt.ChunkPoint3d
		ChunkSize     int32
		VoxelExtent   sculpt.Point3d
		GridMemory    string
		Device        string
		LiveBuffers   int
		Kernels       []string
		BrushVariants []string
	}{
		Version:       sculpt.Version,
		Note:          s.config.Server.Note,
		Session:       s.session.ID(),
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		Active:        s.session.Active(),
		Library:       s.session.Library().Source(),
		LibraryVer:    s.session.Library().Version.String(),
		Extent:        g.Extent(),
		ChunkSize:     g.ChunkSize(),
		VoxelExtent:   g.VoxelExtent(),
		GridMemory:    humanize.Bytes(g.MemoryFootprint()),
		Kernels:       compute.Kernels(),
		BrushVariants: brush.Variants(),
	}
	if s.device != nil {
		info.Device = s.device.String()
		info.LiveBuffers = s.device.Live()
	}
	writeJSON(w, r, info)
}

func (s *Server) brushesHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.session.Brushes())
}

func (s *Server) selectHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	name := c.URLParams["name"]
	if err := s.session.SelectBrush(name); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, map[string]string{"active": name})
}

func (s *Server) deselectHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	s.session.Deselect()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) resizeHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChunkSize int32 `json:"chunkSize"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "can't decode resize request: %v", err)
		return
	}
	if err := s.session.Resize(req.ChunkSize); err != nil {
		writeError(w, r, err)
		return
	}
	g := s.session.Grid()
	writeJSON(w, r, map[string]interface{}{"Extent": g.Extent(), "ChunkSize": g.ChunkSize()})
}

func (s *Server) propertiesHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	var data []byte
	asMsgpack := strings.Contains(r.Header.Get("Accept"), msgpackType)
	err := s.session.WithBrush(c.URLParams["name"], func(b *brush.Brush) (err error) {
		if asMsgpack {
			data, err = b.Store().MarshalMsg(nil)
		} else {
			data, err = b.Store().MarshalJSON()
		}
		return
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if asMsgpack {
		w.Header().Set("Content-Type", msgpackType)
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Write(data)
}

func (s *Server) propertyGetHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	var v sculpt.Value
	err := s.session.WithBrush(c.URLParams["name"], func(b *brush.Brush) (err error) {
		v, err = b.Store().Get(c.URLParams["id"])
		return
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, v)
}

// propertyPutHandler accepts either a typed value, {"Type": "float", "Value": 0.5}, or a
// bare JSON value interpreted with the declared type of the property.
func (s *Server) propertyPutHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		BadRequest(w, r, "can't read request body: %v", err)
		return
	}
	id := c.URLParams["id"]
	err = s.session.WithBrush(c.URLParams["name"], func(b *brush.Brush) error {
		d, found := b.Store().Declared().Find(id)
		if !found {
			return fmt.Errorf("brush %q: %q is %w", b.Name(), id, sculpt.ErrUndeclaredProperty)
		}
		v, err := decodeValue(d.Type, body)
		if err != nil {
			return err
		}
		return b.Store().Set(id, v)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func decodeValue(declared sculpt.ValueType, body []byte) (sculpt.Value, error) {
	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return sculpt.Value{}, fmt.Errorf("%w: bad JSON value: %v", sculpt.ErrTypeMismatch, err)
	}
	if m, ok := raw.(map[string]interface{}); ok {
		if _, typed := m["Type"]; typed {
			var v sculpt.Value
			if err := json.Unmarshal(body, &v); err != nil {
				return v, fmt.Errorf("%w: %v", sculpt.ErrTypeMismatch, err)
			}
			if v.Type != declared {
				return v, &sculpt.TypeMismatchError{Want: declared, Got: v.Type}
			}
			return v, nil
		}
	}
	return sculpt.ValueFromInterface(declared, raw)
}

func (s *Server) extendedHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	var ids []string
	err := s.session.WithBrush(c.URLParams["name"], func(b *brush.Brush) error {
		ids = b.GetExtendedProperties()
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, ids)
}

func (s *Server) extendsHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	var extends bool
	err := s.session.WithBrush(c.URLParams["name"], func(b *brush.Brush) error {
		extends = b.ExtendsProperty(c.URLParams["id"])
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, map[string]bool{"extends": extends})
}

// strokeRequest is a hit from the host's raycast.  With Clamp set, the hit is moved by
// whole chunks until the active brush's stencil fits inside the grid.
type strokeRequest struct {
	Point  sculpt.Vector3d `json:"point"`
	Normal sculpt.Vector3d `json:"normal"`
	Clamp  bool            `json:"clamp"`
}

func (s *Server) decodeHit(w http.ResponseWriter, r *http.Request) (brush.Hit, bool) {
	var req strokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "can't decode stroke request: %v", err)
		return brush.Hit{}, false
	}
	hit := s.session.Hit(req.Point, req.Normal)
	if req.Clamp {
		hit = s.session.ClampHit(hit)
	}
	return hit, true
}

func (s *Server) strokeStartHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	hit, ok := s.decodeHit(w, r)
	if !ok {
		return
	}
	if err := s.session.StartStroke(hit); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) strokeSampleHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	hit, ok := s.decodeHit(w, r)
	if !ok {
		return
	}
	result, err := s.session.Sample(r.Context(), hit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, result)
}

func (s *Server) strokeEndHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	s.session.EndStroke()
	w.WriteHeader(http.StatusOK)
}
