/*
	Package message delivers mutation events produced by brush dispatches to the
	collaborators that consume chunk data, e.g. mesh regeneration, either in-process or
	through Kafka.
*/
package message

import (
	"fmt"
	"time"

	"github.com/twinj/uuid"

	"github.com/isoterra/sculpt/sculpt"
)

const (
	GeometryKind = "geometry"
	ColorKind    = "color"
)

// Event records one dispatch that wrote a chunk.  Payload holds the chunk's mutated
// samples, iso for geometry events and RGBA for color events, serialized with
// sculpt.SerializeData.
type Event struct {
	ID              string              `json:"id"`
	Session         string              `json:"session"`
	Brush           string              `json:"brush"`
	Variant         string              `json:"variant"`
	Chunk           sculpt.ChunkPoint3d `json:"chunk"`
	AffectsGeometry bool                `json:"affects_geometry"`
	Time            time.Time           `json:"time"`
	Elapsed         time.Duration       `json:"elapsed"`
	Payload         []byte              `json:"payload,omitempty"`
}

// NewEvent builds an event with a fresh ID, serializing the chunk samples if given.
func NewEvent(session, brush, variant string, chunk sculpt.ChunkPoint3d, geometry bool,
	samples []float32, compress sculpt.Compression, checksum sculpt.Checksum) (Event, error) {

	e := Event{
		ID:              uuid.NewV4().String(),
		Session:         session,
		Brush:           brush,
		Variant:         variant,
		Chunk:           chunk,
		AffectsGeometry: geometry,
		Time:            time.Now(),
	}
	if samples != nil {
		payload, err := sculpt.SerializeData(sculpt.Float32sToBytes(samples), compress, checksum)
		if err != nil {
			return Event{}, fmt.Errorf("can't serialize chunk %s for event: %w", chunk, err)
		}
		e.Payload = payload
	}
	return e, nil
}

// Kind is GeometryKind or ColorKind.
func (e Event) Kind() string {
	if e.AffectsGeometry {
		return GeometryKind
	}
	return ColorKind
}

// Samples decodes the payload.
func (e Event) Samples() ([]float32, error) {
	if len(e.Payload) == 0 {
		return nil, nil
	}
	data, _, err := sculpt.DeserializeData(e.Payload)
	if err != nil {
		return nil, err
	}
	return sculpt.BytesToFloat32s(data)
}

func (e Event) String() string {
	return fmt.Sprintf("%s event %s: brush %q wrote chunk %s", e.Kind(), e.ID, e.Brush, e.Chunk)
}
