package sculpt

import (
	"testing"

	. "github.com/janelia-flyem/go/gocheck"
)

// Hook up gocheck into the "go test" runner.
func Test(t *testing.T) { TestingT(t) }

type PointSuite struct{}

var _ = Suite(&PointSuite{})

func (s *PointSuite) TestPoint3d(c *C) {
	a := Point3d{10, 21, 837821}
	b := Point3d{78312, -200, 40123}
	c.Assert(a.Add(b), Equals, Point3d{a[0] + b[0], a[1] + b[1], a[2] + b[2]})
	c.Assert(a.Sub(b), Equals, Point3d{a[0] - b[0], a[1] - b[1], a[2] - b[2]})
	c.Assert(a.String(), Equals, "(10,21,837821)")
	c.Assert(Point3d{2, 3, 4}.Prod(), Equals, int64(24))
	c.Assert(len(a.Bytes()), Equals, 12)
}

func (s *PointSuite) TestChunk(c *C) {
	d := Point3d{111, 213, 678}
	c.Assert(d.Chunk(32), Equals, ChunkPoint3d{3, 6, 21})
	c.Assert(d.PointInChunk(32), Equals, Point3d{15, 21, 6})

	d = Point3d{-1, -8, -9}
	c.Assert(d.Chunk(8), Equals, ChunkPoint3d{-1, -1, -2})
	c.Assert(d.PointInChunk(8), Equals, Point3d{7, 0, 7})

	d = Point3d{-2, 0, 7}
	c.Assert(d.Chunk(8), Equals, ChunkPoint3d{-1, 0, 0})
	c.Assert(d.PointInChunk(8), Equals, Point3d{6, 0, 7})
}

func (s *PointSuite) TestChunkRoundTrip(c *C) {
	const size = 8
	for x := int32(-17); x < 17; x++ {
		p := Point3d{x, -x, x * 3}
		chunk := p.Chunk(size)
		local := p.PointInChunk(size)
		c.Assert(chunk.MinPoint(size).Add(local), Equals, p)
	}
}

func (s *PointSuite) TestChunkPoint3d(c *C) {
	cp := ChunkPoint3d{1, 2, 3}
	c.Assert(cp.Add(ChunkPoint3d{-1, 0, 1}), Equals, ChunkPoint3d{0, 2, 4})
	c.Assert(cp.MinPoint(8), Equals, Point3d{8, 16, 24})
	c.Assert(cp.MaxPoint(8), Equals, Point3d{15, 23, 31})
	c.Assert(cp.String(), Equals, "(1,2,3)")

	parsed, err := StringToChunkPoint3d("4, 2,4", ",")
	c.Assert(err, IsNil)
	c.Assert(parsed, Equals, ChunkPoint3d{4, 2, 4})

	_, err = StringToChunkPoint3d("4,2", ",")
	c.Assert(err, NotNil)
}

func (s *PointSuite) TestVector3d(c *C) {
	v := Vector3d{3, 4, 0}
	c.Assert(v.Length(), Equals, 5.0)
	c.Assert(v.Normalize(), Equals, Vector3d{0.6, 0.8, 0})
	c.Assert(Vector3d{}.Normalize(), Equals, Vector3d{})
	c.Assert(Vector3d{1, 1, 1}.Distance(Vector3d{1, 1, 4}), Equals, 3.0)
	c.Assert(Vector3d{-0.5, 1.5, 7.99}.Floor(), Equals, Point3d{-1, 1, 7})
	c.Assert(UpVector.Dot(Vector3d{5, 2, 9}), Equals, 2.0)
}
