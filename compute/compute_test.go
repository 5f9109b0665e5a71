package compute

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/isoterra/sculpt/property"
	"github.com/isoterra/sculpt/sculpt"
)

func singleSlot(chunkSize int32) Globals {
	return Globals{
		ChunkSize:   chunkSize,
		SlotOffsets: []sculpt.ChunkPoint3d{{0, 0, 0}},
	}
}

func mustKernel(t *testing.T, name string) Kernel {
	k, err := GetKernel(name)
	if err != nil {
		t.Fatalf("%v\n", err)
	}
	return k
}

func TestFalloff(t *testing.T) {
	tests := []struct {
		dist, radius, hardness float32
		expected               float32
	}{
		{0, 4, 0, 1},
		{2, 4, 0, 0.5},
		{4, 4, 0, 0},
		{5, 4, 0.9, 0},
		{2, 4, 0.5, 1},
		{3, 4, 0.5, 0.5},
		{3.9, 4, 1, 1},
		{0, 0, 0.5, 0},
	}
	for _, tc := range tests {
		if got := Falloff(tc.dist, tc.radius, tc.hardness); got != tc.expected {
			t.Errorf("Falloff(%g, %g, %g): expected %g, got %g\n", tc.dist, tc.radius, tc.hardness, tc.expected, got)
		}
	}
}

func TestBufferLifecycle(t *testing.T) {
	d := NewSoftwareDevice(2)
	a, err := d.Acquire(7, 1, 64)
	if err != nil {
		t.Fatalf("%v\n", err)
	}
	if len(a.Data) != 7*64 || len(a.Slot(3)) != 64 {
		t.Errorf("bad buffer layout: %d values, slot %d\n", len(a.Data), len(a.Slot(3)))
	}
	b, err := d.Acquire(1, 4, 64)
	if err != nil {
		t.Fatalf("%v\n", err)
	}
	if d.Live() != 2 {
		t.Errorf("expected 2 live buffers, got %d\n", d.Live())
	}
	d.Release(a)
	d.Release(a)
	if d.Live() != 1 || !a.Released() || a.Fits(7, 1, 64) {
		t.Errorf("bad release accounting: %d live\n", d.Live())
	}
	d.Release(b)
	d.Release(nil)
	if d.Live() != 0 {
		t.Errorf("expected no live buffers, got %d\n", d.Live())
	}
	err = d.Dispatch(context.Background(), mustKernel(t, "identity"), singleSlot(4), b)
	if !errors.Is(err, sculpt.ErrBufferReleased) {
		t.Errorf("expected released buffer error, got %v\n", err)
	}
	if _, err := d.Acquire(0, 1, 64); err == nil {
		t.Errorf("expected error acquiring empty buffer\n")
	}
}

func TestIdentityKernel(t *testing.T) {
	d := NewSoftwareDevice(3)
	buf, err := d.Acquire(1, 4, 4*4*4)
	if err != nil {
		t.Fatalf("%v\n", err)
	}
	defer d.Release(buf)
	r := rand.New(rand.NewSource(42))
	for i := range buf.Data {
		buf.Data[i] = r.Float32()
	}
	before := append([]float32(nil), buf.Data...)
	if err := d.Dispatch(context.Background(), mustKernel(t, "identity"), singleSlot(4), buf); err != nil {
		t.Fatalf("%v\n", err)
	}
	for i := range before {
		if before[i] != buf.Data[i] {
			t.Fatalf("identity changed value %d: %g -> %g\n", i, before[i], buf.Data[i])
		}
	}
}

func TestIsoSphereKernel(t *testing.T) {
	d := NewSoftwareDevice(2)
	buf, _ := d.Acquire(1, 1, 8*8*8)
	defer d.Release(buf)

	g := singleSlot(8)
	g.Position = sculpt.Vector3d{4, 4, 4}
	g.Size = 4
	g.Strength = 0.5
	g.Hardness = 1
	if err := d.Dispatch(context.Background(), mustKernel(t, "iso-sphere"), g, buf); err != nil {
		t.Fatalf("%v\n", err)
	}
	v := &View{ChunkSize: 8}
	if got := buf.Data[v.Index(4, 4, 4)]; got != 0.5 {
		t.Errorf("expected center raised by 0.5, got %g\n", got)
	}
	if got := buf.Data[v.Index(5, 4, 4)]; got != 0.5 {
		t.Errorf("expected hard brush to raise neighbor by 0.5, got %g\n", got)
	}
	if got := buf.Data[v.Index(0, 0, 0)]; got != 0 {
		t.Errorf("expected corner outside radius untouched, got %g\n", got)
	}

	g.Strength = -0.5
	if err := d.Dispatch(context.Background(), mustKernel(t, "iso-sphere"), g, buf); err != nil {
		t.Fatalf("%v\n", err)
	}
	if got := buf.Data[v.Index(4, 4, 4)]; got != 0 {
		t.Errorf("expected negative strength to dig back to 0, got %g\n", got)
	}
}

func TestSmoothReadsNeighborSlots(t *testing.T) {
	d := NewSoftwareDevice(2)
	buf, _ := d.Acquire(2, 1, 4*4*4)
	defer d.Release(buf)
	for i := range buf.Slot(1) {
		buf.Slot(1)[i] = 1
	}
	g := Globals{
		ChunkSize:   4,
		SlotOffsets: []sculpt.ChunkPoint3d{{0, 0, 0}, {1, 0, 0}},
		Position:    sculpt.Vector3d{2, 2, 2},
		Size:        100,
		Strength:    1,
		Hardness:    1,
	}
	if err := d.Dispatch(context.Background(), mustKernel(t, "iso-smooth"), g, buf); err != nil {
		t.Fatalf("%v\n", err)
	}
	v := &View{ChunkSize: 4}
	if got := buf.Data[v.Index(3, 1, 2)]; got != float32(1)/6 {
		t.Errorf("expected boundary cell to average in +x neighbor, got %g\n", got)
	}
	if got := buf.Data[v.Index(2, 1, 2)]; got != 0 {
		t.Errorf("expected interior cell to stay 0, got %g\n", got)
	}
	for i, val := range buf.Slot(1) {
		if val != 1 {
			t.Fatalf("neighbor slot written at %d: %g\n", i, val)
		}
	}

	// Without the neighbor slot, reads clamp into the center chunk.
	single, _ := d.Acquire(1, 1, 4*4*4)
	defer d.Release(single)
	g.SlotOffsets = g.SlotOffsets[:1]
	if err := d.Dispatch(context.Background(), mustKernel(t, "iso-smooth"), g, single); err != nil {
		t.Fatalf("%v\n", err)
	}
	if got := single.Data[v.Index(3, 1, 2)]; got != 0 {
		t.Errorf("expected clamped read to stay 0, got %g\n", got)
	}
}

func TestIsoNormalKernel(t *testing.T) {
	d := NewSoftwareDevice(4)
	buf, _ := d.Acquire(1, 1, 8*8*8)
	defer d.Release(buf)
	v := &View{ChunkSize: 8}
	fill := func() {
		for z := int32(0); z < 8; z++ {
			for y := int32(0); y < 8; y++ {
				for x := int32(0); x < 8; x++ {
					buf.Data[v.Index(x, y, z)] = 4 - float32(y)
				}
			}
		}
	}
	fill()
	g := singleSlot(8)
	g.Position = sculpt.Vector3d{4, 4, 4}
	g.Normal = sculpt.UpVector
	g.Size = 100
	g.Strength = 1
	g.Hardness = 1
	if err := d.Dispatch(context.Background(), mustKernel(t, "iso-normal"), g, buf); err != nil {
		t.Fatalf("%v\n", err)
	}
	if got := buf.Data[v.Index(3, 5, 2)]; got != 4-5+1 {
		t.Errorf("expected surface pushed up one voxel, got %g\n", got)
	}
	if got := buf.Data[v.Index(3, 0, 2)]; got != 4 {
		t.Errorf("expected bottom row clamped to own value, got %g\n", got)
	}

	g.Normal = sculpt.Vector3d{0, 2, 0}
	fill()
	if err := d.Dispatch(context.Background(), mustKernel(t, "iso-normal"), g, buf); err != nil {
		t.Fatalf("%v\n", err)
	}
	if got := buf.Data[v.Index(6, 6, 6)]; got != 4-6+1 {
		t.Errorf("expected unnormalized normal to push one voxel, got %g\n", got)
	}
}

func TestIsoNormalWithoutNormal(t *testing.T) {
	d := NewSoftwareDevice(1)
	buf, _ := d.Acquire(1, 1, 2*2*2)
	defer d.Release(buf)
	for i := range buf.Data {
		buf.Data[i] = float32(i)
	}
	g := singleSlot(2)
	g.Size, g.Strength, g.Hardness = 10, 1, 1
	if err := d.Dispatch(context.Background(), mustKernel(t, "iso-normal"), g, buf); err != nil {
		t.Fatalf("%v\n", err)
	}
	for i, val := range buf.Data {
		if val != float32(i) {
			t.Errorf("zero normal changed value %d to %g\n", i, val)
		}
	}
}

func TestColorSphereKernel(t *testing.T) {
	d := NewSoftwareDevice(2)
	buf, _ := d.Acquire(1, 4, 8*8*8)
	defer d.Release(buf)
	for i := 3; i < len(buf.Data); i += 4 {
		buf.Data[i] = 1
	}
	g := singleSlot(8)
	g.Position = sculpt.Vector3d{1, 1, 1}
	g.Size = 2
	g.Strength = 1
	g.Hardness = 1
	g.Color = sculpt.Color{1, 0, 0, 1}
	if err := d.Dispatch(context.Background(), mustKernel(t, "color-sphere"), g, buf); err != nil {
		t.Fatalf("%v\n", err)
	}
	v := &View{ChunkSize: 8}
	i := v.Index(1, 1, 1) * 4
	if got := (sculpt.Color{buf.Data[i], buf.Data[i+1], buf.Data[i+2], buf.Data[i+3]}); got != g.Color {
		t.Errorf("expected painted center, got %s\n", got)
	}
	i = v.Index(7, 7, 7) * 4
	if got := (sculpt.Color{buf.Data[i], buf.Data[i+1], buf.Data[i+2], buf.Data[i+3]}); got != (sculpt.Color{0, 0, 0, 1}) {
		t.Errorf("expected far cell unpainted, got %s\n", got)
	}
}

func TestDispatchValidation(t *testing.T) {
	d := NewSoftwareDevice(2)
	iso, _ := d.Acquire(1, 1, 4*4*4)
	color, _ := d.Acquire(1, 4, 4*4*4)
	defer d.Release(iso)
	defer d.Release(color)
	ctx := context.Background()

	if err := d.Dispatch(ctx, mustKernel(t, "iso-sphere"), singleSlot(4), color); err == nil {
		t.Errorf("expected stride mismatch error\n")
	}
	if err := d.Dispatch(ctx, mustKernel(t, "identity"), singleSlot(8), iso); err == nil {
		t.Errorf("expected chunk size mismatch error\n")
	}
	g := singleSlot(4)
	g.CenterSlot = 3
	if err := d.Dispatch(ctx, mustKernel(t, "identity"), g, iso); err == nil {
		t.Errorf("expected bad center slot error\n")
	}
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := d.Dispatch(canceled, mustKernel(t, "identity"), singleSlot(4), iso); !errors.Is(err, context.Canceled) {
		t.Errorf("expected canceled dispatch, got %v\n", err)
	}
}

func TestKernelRegistry(t *testing.T) {
	names := Kernels()
	if len(names) != 6 {
		t.Errorf("expected 6 built-in kernels, got %v\n", names)
	}
	k := mustKernel(t, "iso-normal")
	if k.Version().Major != 1 || k.Stride() != 1 {
		t.Errorf("bad kernel metadata %s %d\n", k.Version(), k.Stride())
	}
	readsColor := func(name string) bool {
		for _, r := range mustKernel(t, name).Roles() {
			if r == property.RoleColor {
				return true
			}
		}
		return false
	}
	if !readsColor("color-sphere") || readsColor("color-smooth") || readsColor("iso-sphere") {
		t.Errorf("only color-sphere should read the color role\n")
	}
	if len(mustKernel(t, "identity").Roles()) != 0 {
		t.Errorf("identity kernel reads no roles\n")
	}
	if _, err := GetKernel("marching-cubes"); !errors.Is(err, sculpt.ErrConfig) {
		t.Errorf("expected configuration error for unknown kernel, got %v\n", err)
	}
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic registering duplicate kernel\n")
		}
	}()
	RegisterKernel(k)
}
