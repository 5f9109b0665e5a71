package compute

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/isoterra/sculpt/sculpt"
)

// Device runs kernels over transfer buffers it owns.
type Device interface {
	fmt.Stringer

	// Acquire allocates a zeroed buffer for the given layout.
	Acquire(slots, stride, cellsPerChunk int) (*Buffer, error)

	// Release returns a buffer to the device.  Releasing a buffer more than once is a no-op.
	Release(buf *Buffer)

	// Dispatch runs the kernel over the center slot of the buffer and blocks until every
	// workgroup has finished.  The context is only checked before launch.
	Dispatch(ctx context.Context, k Kernel, g Globals, buf *Buffer) error

	// Live returns the number of acquired buffers not yet released.
	Live() int
}

// SoftwareDevice runs kernel workgroups on goroutines, one workgroup per z-slice.
type SoftwareDevice struct {
	workers int
	live    atomic.Int64

	mu      sync.Mutex
	scratch []float32
}

// NewSoftwareDevice returns a device running at most workers workgroups at once.  A
// non-positive worker count uses sculpt.NumCPU.
func NewSoftwareDevice(workers int) *SoftwareDevice {
	if workers <= 0 {
		workers = sculpt.NumCPU
	}
	return &SoftwareDevice{workers: workers}
}

func (d *SoftwareDevice) String() string {
	return fmt.Sprintf("software device (%d workers)", d.workers)
}

// Workers returns the maximum number of concurrent workgroups.
func (d *SoftwareDevice) Workers() int {
	return d.workers
}

func (d *SoftwareDevice) Acquire(slots, stride, cellsPerChunk int) (*Buffer, error) {
	if slots <= 0 || stride <= 0 || cellsPerChunk <= 0 {
		return nil, fmt.Errorf("bad buffer layout: %d slots, stride %d, %d cells per chunk", slots, stride, cellsPerChunk)
	}
	buf := &Buffer{
		Data:          make([]float32, slots*stride*cellsPerChunk),
		Slots:         slots,
		Stride:        stride,
		CellsPerChunk: cellsPerChunk,
	}
	n := d.live.Add(1)
	sculpt.Debugf("Acquired %s (%s), %d live\n", buf, humanize.Bytes(buf.Bytes()), n)
	return buf, nil
}

func (d *SoftwareDevice) Release(buf *Buffer) {
	if buf == nil || !buf.released.CompareAndSwap(false, true) {
		return
	}
	buf.Data = nil
	n := d.live.Add(-1)
	sculpt.Debugf("Released buffer, %d live\n", n)
}

func (d *SoftwareDevice) Live() int {
	return int(d.live.Load())
}

func (d *SoftwareDevice) Dispatch(ctx context.Context, k Kernel, g Globals, buf *Buffer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if buf == nil || buf.Released() {
		return sculpt.ErrBufferReleased
	}
	if s := k.Stride(); s != 0 && s != buf.Stride {
		return fmt.Errorf("kernel %q expects stride %d, buffer has stride %d", k.Name(), s, buf.Stride)
	}
	if g.ChunkSize <= 0 || int(g.ChunkSize*g.ChunkSize*g.ChunkSize) != buf.CellsPerChunk {
		return fmt.Errorf("chunk size %d does not match %s", g.ChunkSize, buf)
	}
	if g.CenterSlot < 0 || g.CenterSlot >= buf.Slots {
		return fmt.Errorf("center slot %d outside %s", g.CenterSlot, buf)
	}
	if len(g.SlotOffsets) != buf.Slots {
		return fmt.Errorf("%d slot offsets given for %s", len(g.SlotOffsets), buf)
	}

	// Workgroups read from a snapshot so neighbor reads never observe partial writes.
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scratch = append(d.scratch[:0], buf.Data...)
	view := newView(&g, d.scratch, buf)

	timedLog := sculpt.NewTimeLog()
	var eg errgroup.Group
	eg.SetLimit(d.workers)
	for z := int32(0); z < g.ChunkSize; z++ {
		z := z
		eg.Go(func() error {
			return k.Workgroup(&g, view, z)
		})
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("kernel %q: %w", k.Name(), err)
	}
	timedLog.Debugf("Dispatched kernel %q over %s", k.Name(), buf)
	return nil
}
