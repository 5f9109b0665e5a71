package brush

import (
	"fmt"
	"time"

	"github.com/isoterra/sculpt/sculpt"
)

// State is a brush lifecycle state.
type State uint8

const (
	Unselected State = iota
	Selected
	Applying
)

func (s State) String() string {
	switch s {
	case Unselected:
		return "unselected"
	case Selected:
		return "selected"
	case Applying:
		return "applying"
	default:
		return fmt.Sprintf("state %d", s)
	}
}

// Hit is one ray-hit sample from the input layer.
type Hit struct {
	Point  sculpt.Vector3d
	Normal sculpt.Vector3d
	Voxel  sculpt.Point3d
	Chunk  sculpt.ChunkPoint3d
}

// NewHit fills in the voxel and chunk containing a world-space hit point.
func NewHit(point, normal sculpt.Vector3d, chunkSize int32) Hit {
	voxel := point.Floor()
	return Hit{
		Point:  point,
		Normal: normal,
		Voxel:  voxel,
		Chunk:  voxel.Chunk(chunkSize),
	}
}

func (h Hit) String() string {
	return fmt.Sprintf("hit %s normal %s in chunk %s", h.Point, h.Normal, h.Chunk)
}

// Result describes the outcome of one applied sample.
type Result struct {
	// Chunk is the only chunk written by the dispatch.
	Chunk sculpt.ChunkPoint3d

	// Dispatched is false for inert samples, e.g. from the null brush.
	Dispatched bool

	// AffectsGeometry tells mesh regeneration whether it has work to do.
	AffectsGeometry bool

	Elapsed time.Duration
}
