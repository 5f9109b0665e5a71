package sculpt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point3d is an integer voxel coordinate in brush (world-aligned) space.
type Point3d [3]int32

// Bytes returns a byte representation of the Point3d in little endian format.
func (p Point3d) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, p[0])
	binary.Write(buf, binary.LittleEndian, p[1])
	binary.Write(buf, binary.LittleEndian, p[2])
	return buf.Bytes()
}

// Add returns the addition of two points.
func (p Point3d) Add(x Point3d) Point3d {
	return Point3d{p[0] + x[0], p[1] + x[1], p[2] + x[2]}
}

// Sub returns the subtraction of the passed point from the receiver.
func (p Point3d) Sub(x Point3d) Point3d {
	return Point3d{p[0] - x[0], p[1] - x[1], p[2] - x[2]}
}

// Prod returns the product of the point elements.
func (p Point3d) Prod() int64 {
	return int64(p[0]) * int64(p[1]) * int64(p[2])
}

// Vector3d returns the point as a floating point vector.
func (p Point3d) Vector3d() Vector3d {
	return Vector3d{float64(p[0]), float64(p[1]), float64(p[2])}
}

func (p Point3d) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p[0], p[1], p[2])
}

// Chunk returns the chunk space coordinate of the chunk containing the point for a cubic
// chunk of the given side.  Negative coordinates use floor division so voxel -1 falls in
// chunk -1, never chunk 0.
func (p Point3d) Chunk(size int32) ChunkPoint3d {
	var c ChunkPoint3d
	for i := 0; i < 3; i++ {
		if p[i] < 0 {
			c[i] = (p[i] - size + 1) / size
		} else {
			c[i] = p[i] / size
		}
	}
	return c
}

// PointInChunk returns the point relative to the first voxel of its containing chunk.
func (p Point3d) PointInChunk(size int32) Point3d {
	var l Point3d
	for i := 0; i < 3; i++ {
		l[i] = p[i] % size
		if l[i] < 0 {
			l[i] += size
		}
	}
	return l
}

// ChunkPoint3d handles 3d signed chunk coordinates.
type ChunkPoint3d [3]int32

var (
	MaxChunkPoint3d = ChunkPoint3d{math.MaxInt32, math.MaxInt32, math.MaxInt32}
	MinChunkPoint3d = ChunkPoint3d{math.MinInt32, math.MinInt32, math.MinInt32}
)

func (c ChunkPoint3d) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c[0], c[1], c[2])
}

// Add returns the chunk coordinate offset by the given chunk delta.
func (c ChunkPoint3d) Add(d ChunkPoint3d) ChunkPoint3d {
	return ChunkPoint3d{c[0] + d[0], c[1] + d[1], c[2] + d[2]}
}

// Prod returns the number of chunks spanned if c is an extent.
func (c ChunkPoint3d) Prod() int64 {
	return int64(c[0]) * int64(c[1]) * int64(c[2])
}

// MinPoint returns the smallest voxel coordinate of the given cubic chunk.
func (c ChunkPoint3d) MinPoint(size int32) Point3d {
	return Point3d{c[0] * size, c[1] * size, c[2] * size}
}

// MaxPoint returns the maximum voxel coordinate of the given cubic chunk.
func (c ChunkPoint3d) MaxPoint(size int32) Point3d {
	return Point3d{
		(c[0]+1)*size - 1,
		(c[1]+1)*size - 1,
		(c[2]+1)*size - 1,
	}
}

// StringToChunkPoint3d parses a separated triple, e.g., "4,2,4".
func StringToChunkPoint3d(str, separator string) (ChunkPoint3d, error) {
	elems := strings.Split(str, separator)
	if len(elems) != 3 {
		return ChunkPoint3d{}, fmt.Errorf("can't convert string %q (length %d) to ChunkPoint3d", str, len(elems))
	}
	var c ChunkPoint3d
	for i, elem := range elems {
		n, err := strconv.ParseInt(strings.TrimSpace(elem), 10, 32)
		if err != nil {
			return ChunkPoint3d{}, err
		}
		c[i] = int32(n)
	}
	return c, nil
}

// Vector3d is a 3D vector of 64-bit floats, a recommended type for math operations.
type Vector3d [3]float64

// UpVector is the +Y axis used by brushes that sculpt vertically.
var UpVector = Vector3d{0, 1, 0}

// Distance returns the distance between two points a and b.
func (v Vector3d) Distance(x Vector3d) float64 {
	dx := x[0] - v[0]
	dy := x[1] - v[1]
	dz := x[2] - v[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (v Vector3d) Subtract(x Vector3d) Vector3d {
	return Vector3d{v[0] - x[0], v[1] - x[1], v[2] - x[2]}
}

func (v Vector3d) Add(x Vector3d) Vector3d {
	return Vector3d{v[0] + x[0], v[1] + x[1], v[2] + x[2]}
}

func (v Vector3d) Scale(s float64) Vector3d {
	return Vector3d{v[0] * s, v[1] * s, v[2] * s}
}

func (v Vector3d) Dot(x Vector3d) float64 {
	return v[0]*x[0] + v[1]*x[1] + v[2]*x[2]
}

func (v Vector3d) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns the unit vector in the direction of v, or the zero vector if v
// has no length.
func (v Vector3d) Normalize() Vector3d {
	l := v.Length()
	if l == 0 {
		return Vector3d{}
	}
	return Vector3d{v[0] / l, v[1] / l, v[2] / l}
}

// Floor returns the voxel containing the point.
func (v Vector3d) Floor() Point3d {
	return Point3d{
		int32(math.Floor(v[0])),
		int32(math.Floor(v[1])),
		int32(math.Floor(v[2])),
	}
}

func (v Vector3d) String() string {
	return fmt.Sprintf("(%f,%f,%f)", v[0], v[1], v[2])
}
