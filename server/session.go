package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/twinj/uuid"

	"github.com/isoterra/sculpt/brush"
	"github.com/isoterra/sculpt/compute"
	"github.com/isoterra/sculpt/grid"
	"github.com/isoterra/sculpt/message"
	"github.com/isoterra/sculpt/property"
	"github.com/isoterra/sculpt/sculpt"
)

// ErrUnknownBrush is returned for brush names the session's library doesn't define.
var ErrUnknownBrush = errors.New("unknown brush")

// BrushInfo summarizes one brush for hosts.
type BrushInfo struct {
	Name            string
	Variant         string
	AffectsGeometry bool
	State           string
	Active          bool
}

// Session is one editing session: a grid, the device brushes dispatch on, every brush
// of the library, and at most one active brush.  All methods are serialized so only
// one dispatch runs against the grid at a time.
type Session struct {
	mu sync.Mutex

	id        string
	lib       *property.Library
	device    compute.Device
	grid      *grid.Grid
	brushes   map[string]*brush.Brush
	active    *brush.Brush
	publisher message.Publisher
	compress  sculpt.Compression
}

// NewSession builds every brush of the library.  Any brush that fails to build is a
// configuration error for the whole session.
func NewSession(lib *property.Library, g *grid.Grid, device compute.Device,
	publisher message.Publisher, compress sculpt.Compression) (*Session, error) {

	if publisher == nil {
		publisher = message.NopPublisher{}
	}
	s := &Session{
		id:        uuid.NewV4().String(),
		lib:       lib,
		device:    device,
		grid:      g,
		brushes:   make(map[string]*brush.Brush, len(lib.Brushes)),
		publisher: publisher,
		compress:  compress,
	}
	for _, name := range lib.BrushNames() {
		b, err := brush.NewFromLibrary(lib, name, device)
		if err != nil {
			return nil, err
		}
		s.brushes[name] = b
	}
	sculpt.Infof("Session %s ready with %d brushes from %s\n", s.id, len(s.brushes), lib.Source())
	return s, nil
}

// ID returns the session's unique identifier, stamped on every published event.
func (s *Session) ID() string {
	return s.id
}

// Library returns the brush library the session was built from.
func (s *Session) Library() *property.Library {
	return s.lib
}

// Grid returns the grid currently edited.  Resize replaces it.
func (s *Session) Grid() *grid.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid
}

func (s *Session) lookup(name string) (*brush.Brush, error) {
	b, found := s.brushes[name]
	if !found {
		return nil, fmt.Errorf("%w %q", ErrUnknownBrush, name)
	}
	return b, nil
}

// Brushes lists every brush by name.
func (s *Session) Brushes() []BrushInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	infos := make([]BrushInfo, 0, len(s.brushes))
	for _, name := range s.lib.BrushNames() {
		b := s.brushes[name]
		infos = append(infos, BrushInfo{
			Name:            name,
			Variant:         b.Variant(),
			AffectsGeometry: b.AffectsGeometry(),
			State:           b.State().String(),
			Active:          b == s.active,
		})
	}
	return infos
}

// Active returns the name of the active brush or "" if none is selected.
func (s *Session) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ""
	}
	return s.active.Name()
}

// SelectBrush makes the named brush active.  The previous brush is fully deactivated
// and its buffer released before the new one acquires its own.
func (s *Session) SelectBrush(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.lookup(name)
	if err != nil {
		return err
	}
	if s.active != nil && s.active != b {
		s.active.Deactivate()
		s.active = nil
	}
	if err := b.OnChooseBrush(); err != nil {
		return err
	}
	if err := b.SetBuffer(s.grid); err != nil {
		b.Deactivate()
		s.active = nil
		return err
	}
	s.active = b
	sculpt.Debugf("Session %s selected brush %q (%s)\n", s.id, name, b.Variant())
	return nil
}

// Deselect deactivates the active brush, if any.
func (s *Session) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.Deactivate()
		s.active = nil
	}
}

// Resize replaces the grid with one of a new chunk size, keeping every sample, and
// re-acquires the active brush's buffer for the new layout.  Not allowed mid-stroke.
func (s *Session) Resize(chunkSize int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil && s.active.State() == brush.Applying {
		return &sculpt.StateError{Op: "resize", State: brush.Applying}
	}
	if chunkSize == s.grid.ChunkSize() {
		return nil
	}
	g, err := s.grid.Rechunk(chunkSize)
	if err != nil {
		return err
	}
	s.grid = g
	if s.active != nil {
		if err := s.active.SetBuffer(g); err != nil {
			s.active.Deactivate()
			s.active = nil
			return err
		}
	}
	return nil
}

// WithBrush runs fn on the named brush while holding the session lock.
func (s *Session) WithBrush(name string, fn func(*brush.Brush) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.lookup(name)
	if err != nil {
		return err
	}
	return fn(b)
}

// Hit builds a hit record against the current grid.
func (s *Session) Hit(point, normal sculpt.Vector3d) brush.Hit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return brush.NewHit(point, normal, s.grid.ChunkSize())
}

// ClampHit moves a hit by whole chunks so the active brush's stencil lies inside the
// grid.  Hits already inside, and hits with no active brush, are returned unchanged.
func (s *Session) ClampHit(hit brush.Hit) brush.Hit {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return hit
	}
	info, err := brush.Lookup(s.active.Variant())
	if err != nil || len(info.Stencil) == 0 {
		return hit
	}
	var lo, hi sculpt.ChunkPoint3d
	for _, offset := range info.Stencil {
		for i := 0; i < 3; i++ {
			lo[i] = min(lo[i], offset[i])
			hi[i] = max(hi[i], offset[i])
		}
	}
	extent := s.grid.Extent()
	size := s.grid.ChunkSize()
	point := hit.Point
	moved := false
	for i := 0; i < 3; i++ {
		first, last := -lo[i], extent[i]-1-hi[i]
		if first > last {
			return hit
		}
		target := max(first, min(hit.Chunk[i], last))
		if target != hit.Chunk[i] {
			point[i] += float64((target - hit.Chunk[i]) * size)
			moved = true
		}
	}
	if !moved {
		return hit
	}
	return brush.NewHit(point, hit.Normal, size)
}

func (s *Session) activeBrush(op string) (*brush.Brush, error) {
	if s.active == nil {
		return nil, &sculpt.StateError{Op: op, State: brush.Unselected}
	}
	return s.active, nil
}

// StartStroke begins a stroke with the active brush.
func (s *Session) StartStroke(hit brush.Hit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.activeBrush("start stroke")
	if err != nil {
		return err
	}
	return b.OnStartApplyingBrush(hit)
}

// Sample applies the active brush at a hit and publishes an event for the written
// chunk.  Publishing failures are logged; they never fail the sample.
func (s *Session) Sample(ctx context.Context, hit brush.Hit) (brush.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.activeBrush("apply brush")
	if err != nil {
		return brush.Result{}, err
	}
	result, err := b.OnApplyBrush(ctx, s.grid, hit)
	if err != nil {
		return result, err
	}
	if result.Dispatched {
		s.publish(b, result)
	}
	return result, nil
}

func (s *Session) publish(b *brush.Brush, result brush.Result) {
	chunk, err := s.grid.Chunk(result.Chunk)
	if err != nil {
		sculpt.Errorf("Dispatched chunk %s not in grid: %v\n", result.Chunk, err)
		return
	}
	samples := chunk.Color
	if result.AffectsGeometry {
		samples = chunk.Iso
	}
	e, err := message.NewEvent(s.id, b.Name(), b.Variant(), result.Chunk, result.AffectsGeometry,
		samples, s.compress, sculpt.CRC32)
	if err != nil {
		sculpt.Errorf("Unable to build event for %s: %v\n", result.Chunk, err)
		return
	}
	e.Elapsed = result.Elapsed
	if err := s.publisher.Publish(e); err != nil {
		sculpt.Warningf("Unable to publish %s: %v\n", e, err)
	}
}

// EndStroke finishes the current stroke.  It does nothing outside a stroke.
func (s *Session) EndStroke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil && s.active.State() == brush.Applying {
		s.active.OnLeaveBrush()
	}
}

// Close deactivates the active brush and closes the publisher.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.Deactivate()
		s.active = nil
	}
	if s.device == nil {
		return s.publisher.Close()
	}
	if live := s.device.Live(); live != 0 {
		sculpt.Warningf("Session %s closing with %d transfer buffers still acquired\n", s.id, live)
	}
	return s.publisher.Close()
}
