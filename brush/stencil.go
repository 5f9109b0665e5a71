package brush

import "github.com/isoterra/sculpt/sculpt"

// Stencil is the ordered set of chunk offsets a variant gathers around the hit chunk.
// Slot i of the transfer buffer holds the chunk at offset i.
type Stencil []sculpt.ChunkPoint3d

var (
	// CenterStencil gathers only the hit chunk.
	CenterStencil = Stencil{{0, 0, 0}}

	// CrossStencil gathers the hit chunk and its six face neighbors in the order
	// -x, -y, -z, center, +z, +y, +x.
	CrossStencil = Stencil{
		{-1, 0, 0},
		{0, -1, 0},
		{0, 0, -1},
		{0, 0, 0},
		{0, 0, 1},
		{0, 1, 0},
		{1, 0, 0},
	}
)

// Center returns the slot index of the zero offset, or -1 for an empty stencil.
func (s Stencil) Center() int {
	for i, off := range s {
		if off == (sculpt.ChunkPoint3d{}) {
			return i
		}
	}
	return -1
}

// Chunks returns the chunk coordinates gathered around a center chunk, in slot order.
func (s Stencil) Chunks(center sculpt.ChunkPoint3d) []sculpt.ChunkPoint3d {
	chunks := make([]sculpt.ChunkPoint3d, len(s))
	for i, off := range s {
		chunks[i] = center.Add(off)
	}
	return chunks
}
