package server

import (
	"context"
	"errors"
	"testing"

	"github.com/isoterra/sculpt/brush"
	"github.com/isoterra/sculpt/message"
	"github.com/isoterra/sculpt/sculpt"
)

func testSession(t *testing.T) (*Server, *Session, *message.LocalPublisher) {
	s, events := NewTestServer(t, nil)
	return s, s.Session(), events
}

// chunkCenter is the middle voxel of a chunk in the 8^3 test grid.
func chunkCenter(c sculpt.ChunkPoint3d) sculpt.Vector3d {
	return sculpt.Vector3d{float64(c[0]*8 + 4), float64(c[1]*8 + 4), float64(c[2]*8 + 4)}
}

func TestSelectBrushSwitch(t *testing.T) {
	s, session, _ := testSession(t)
	if err := session.SelectBrush("raise"); err != nil {
		t.Fatalf("%v\n", err)
	}
	if s.device.Live() != 1 {
		t.Fatalf("expected one live buffer after select, got %d\n", s.device.Live())
	}
	if err := session.SelectBrush("paint"); err != nil {
		t.Fatalf("%v\n", err)
	}
	if s.device.Live() != 1 {
		t.Errorf("switching brushes should release the previous buffer, %d live\n", s.device.Live())
	}
	if session.Active() != "paint" {
		t.Errorf("expected paint active, got %q\n", session.Active())
	}
	for _, info := range session.Brushes() {
		if info.Name == "raise" && info.State != brush.Unselected.String() {
			t.Errorf("previous brush left in state %s\n", info.State)
		}
		if info.Name == "paint" && !info.Active {
			t.Errorf("paint not reported active\n")
		}
	}
	if err := session.SelectBrush("chisel"); !errors.Is(err, ErrUnknownBrush) {
		t.Errorf("expected unknown brush error, got %v\n", err)
	}
	if session.Active() != "paint" {
		t.Errorf("failed select changed the active brush to %q\n", session.Active())
	}
	if err := session.Close(); err != nil {
		t.Fatalf("%v\n", err)
	}
	if s.device.Live() != 0 {
		t.Errorf("close leaked %d buffers\n", s.device.Live())
	}
}

func TestStrokePublishesEvents(t *testing.T) {
	_, session, events := testSession(t)
	ctx := context.Background()
	if _, err := session.Sample(ctx, session.Hit(chunkCenter(sculpt.ChunkPoint3d{1, 1, 1}), sculpt.Vector3d{})); !errors.Is(err, sculpt.ErrInvalidState) {
		t.Errorf("expected state error sampling without a brush, got %v\n", err)
	}
	if err := session.SelectBrush("raise"); err != nil {
		t.Fatalf("%v\n", err)
	}
	hit := session.Hit(chunkCenter(sculpt.ChunkPoint3d{1, 1, 1}), sculpt.UpVector)
	if _, err := session.Sample(ctx, hit); !errors.Is(err, sculpt.ErrInvalidState) {
		t.Errorf("expected state error sampling before stroke start, got %v\n", err)
	}
	if err := session.StartStroke(hit); err != nil {
		t.Fatalf("%v\n", err)
	}
	result, err := session.Sample(ctx, hit)
	if err != nil {
		t.Fatalf("%v\n", err)
	}
	if !result.Dispatched || !result.AffectsGeometry || result.Chunk != (sculpt.ChunkPoint3d{1, 1, 1}) {
		t.Fatalf("unexpected result %+v\n", result)
	}
	var e message.Event
	select {
	case e = <-events.Events():
	default:
		t.Fatalf("no event published for dispatch\n")
	}
	if e.Session != session.ID() || e.Brush != "raise" || e.Kind() != message.GeometryKind {
		t.Errorf("bad event %s\n", e)
	}
	samples, err := e.Samples()
	if err != nil {
		t.Fatalf("%v\n", err)
	}
	chunk, _ := session.Grid().Chunk(result.Chunk)
	if !equalSamples(samples, chunk.Iso) {
		t.Errorf("event payload does not match chunk iso data\n")
	}
	session.EndStroke()
	session.EndStroke()
	for _, info := range session.Brushes() {
		if info.Name == "raise" && info.State != brush.Selected.String() {
			t.Errorf("expected raise selected after stroke, got %s\n", info.State)
		}
	}
}

func equalSamples(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestColorStrokeEvent(t *testing.T) {
	_, session, events := testSession(t)
	if err := session.SelectBrush("paint"); err != nil {
		t.Fatalf("%v\n", err)
	}
	hit := session.Hit(chunkCenter(sculpt.ChunkPoint3d{2, 0, 1}), sculpt.UpVector)
	if err := session.StartStroke(hit); err != nil {
		t.Fatalf("%v\n", err)
	}
	result, err := session.Sample(context.Background(), hit)
	if err != nil {
		t.Fatalf("%v\n", err)
	}
	if result.AffectsGeometry {
		t.Errorf("paint reported a geometry change\n")
	}
	e := <-events.Events()
	samples, err := e.Samples()
	if err != nil {
		t.Fatalf("%v\n", err)
	}
	if e.Kind() != message.ColorKind || len(samples) != 4*8*8*8 {
		t.Errorf("expected color event with RGBA payload, got %s with %d samples\n", e, len(samples))
	}
}

func TestNullBrushPublishesNothing(t *testing.T) {
	_, session, events := testSession(t)
	if err := session.SelectBrush("none"); err != nil {
		t.Fatalf("%v\n", err)
	}
	hit := session.Hit(chunkCenter(sculpt.ChunkPoint3d{0, 0, 0}), sculpt.Vector3d{})
	if err := session.StartStroke(hit); err != nil {
		t.Fatalf("%v\n", err)
	}
	result, err := session.Sample(context.Background(), hit)
	if err != nil {
		t.Fatalf("%v\n", err)
	}
	if result.Dispatched {
		t.Errorf("null brush dispatched\n")
	}
	if len(events.Events()) != 0 {
		t.Errorf("null brush published an event\n")
	}
}

func TestGridEdgeAndClamp(t *testing.T) {
	_, session, _ := testSession(t)
	if err := session.SelectBrush("smooth"); err != nil {
		t.Fatalf("%v\n", err)
	}
	edge := session.Hit(chunkCenter(sculpt.ChunkPoint3d{0, 1, 2}), sculpt.UpVector)
	if err := session.StartStroke(edge); err != nil {
		t.Fatalf("%v\n", err)
	}
	before := append([]float32(nil), mustChunk(t, session, sculpt.ChunkPoint3d{0, 1, 2}).Iso...)
	if _, err := session.Sample(context.Background(), edge); !errors.Is(err, sculpt.ErrOutOfRange) {
		t.Fatalf("expected out of range at grid edge, got %v\n", err)
	}
	if !equalSamples(before, mustChunk(t, session, sculpt.ChunkPoint3d{0, 1, 2}).Iso) {
		t.Errorf("aborted dispatch modified the grid\n")
	}

	clamped := session.ClampHit(edge)
	if clamped.Chunk != (sculpt.ChunkPoint3d{1, 1, 1}) {
		t.Fatalf("expected clamp into chunk (1,1,1), got %s\n", clamped)
	}
	if clamped.Point != (sculpt.Vector3d{12, 12, 12}) {
		t.Errorf("clamped point should move by whole chunks, got %s\n", clamped.Point)
	}
	if _, err := session.Sample(context.Background(), clamped); err != nil {
		t.Errorf("clamped hit failed: %v\n", err)
	}
	inside := session.Hit(chunkCenter(sculpt.ChunkPoint3d{1, 1, 1}), sculpt.UpVector)
	if session.ClampHit(inside) != inside {
		t.Errorf("clamp moved a hit already inside the grid\n")
	}
}

func mustChunk(t *testing.T, session *Session, c sculpt.ChunkPoint3d) chunkData {
	chunk, err := session.Grid().Chunk(c)
	if err != nil {
		t.Fatalf("%v\n", err)
	}
	return chunkData{Iso: chunk.Iso, Color: chunk.Color}
}

type chunkData struct {
	Iso, Color []float32
}

func TestResize(t *testing.T) {
	s, session, _ := testSession(t)
	if err := session.SelectBrush("raise"); err != nil {
		t.Fatalf("%v\n", err)
	}
	old := session.Grid()
	voxel := sculpt.Point3d{13, 5, 20}
	want, _ := old.IsoAt(voxel)

	if err := session.Resize(4); err != nil {
		t.Fatalf("%v\n", err)
	}
	g := session.Grid()
	if g.ChunkSize() != 4 || g.Extent() != (sculpt.ChunkPoint3d{6, 6, 6}) {
		t.Fatalf("bad resized grid: %s chunks of %d\n", g.Extent(), g.ChunkSize())
	}
	if got, _ := g.IsoAt(voxel); got != want {
		t.Errorf("resize lost samples: expected %g, got %g\n", want, got)
	}
	if s.device.Live() != 1 {
		t.Errorf("expected one buffer after resize, got %d\n", s.device.Live())
	}

	hit := session.Hit(sculpt.Vector3d{10, 10, 10}, sculpt.UpVector)
	if hit.Chunk != (sculpt.ChunkPoint3d{2, 2, 2}) {
		t.Fatalf("hit not computed against the new chunk size: %s\n", hit)
	}
	if err := session.StartStroke(hit); err != nil {
		t.Fatalf("%v\n", err)
	}
	if _, err := session.Sample(context.Background(), hit); err != nil {
		t.Errorf("sample after resize failed: %v\n", err)
	}
	if err := session.Resize(8); !errors.Is(err, sculpt.ErrInvalidState) {
		t.Errorf("expected resize to be refused mid-stroke, got %v\n", err)
	}
	session.EndStroke()
	if err := session.Resize(0); !errors.Is(err, sculpt.ErrConfig) {
		t.Errorf("expected config error for zero chunk size, got %v\n", err)
	}
}
