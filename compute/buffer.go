/*
	Package compute provides the transfer buffers, kernel globals, and compute devices
	used to run brush kernels over packed chunk data.
*/
package compute

import (
	"fmt"
	"sync/atomic"
)

// Buffer is a device-resident staging array holding one or more chunk slots laid out
// back to back.  Each slot holds CellsPerChunk cells of Stride float32 values.
type Buffer struct {
	Data          []float32
	Slots         int
	Stride        int
	CellsPerChunk int

	released atomic.Bool
}

// SlotLen returns the number of float32 values in one slot.
func (b *Buffer) SlotLen() int {
	return b.CellsPerChunk * b.Stride
}

// Slot returns the values of the i-th slot.  The slice aliases the buffer.
func (b *Buffer) Slot(i int) []float32 {
	n := b.SlotLen()
	return b.Data[i*n : (i+1)*n]
}

// Bytes returns the size of the buffer in bytes.
func (b *Buffer) Bytes() uint64 {
	return uint64(len(b.Data)) * 4
}

// Released returns true once the buffer was handed back to its device.
func (b *Buffer) Released() bool {
	return b.released.Load()
}

// Fits returns true if the buffer was acquired for the given layout.
func (b *Buffer) Fits(slots, stride, cellsPerChunk int) bool {
	return !b.Released() && b.Slots == slots && b.Stride == stride && b.CellsPerChunk == cellsPerChunk
}

func (b *Buffer) String() string {
	return fmt.Sprintf("buffer %d slot(s) x %d cells x %d stride", b.Slots, b.CellsPerChunk, b.Stride)
}
