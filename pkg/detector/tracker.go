package detector

import (
	"FaceGate/internal/entity"
	"FaceGate/pkg/geometry"
	"sync"
)

const DefaultTrackingIoU = 0.3

type track struct {
	id   int64
	rect entity.FaceRect
}

// Tracker hands out stable ids to faces that overlap a face seen in the previous call.
type Tracker struct {
	mu        sync.Mutex
	threshold float64
	nextID    int64
	tracks    []track
}

func NewTracker(threshold float64) *Tracker {
	if threshold <= 0 {
		threshold = DefaultTrackingIoU
	}
	return &Tracker{threshold: threshold}
}

// Assign sets TrackingID on each face in place.
func (t *Tracker) Assign(faces []entity.Face) {
	t.mu.Lock()
	defer t.mu.Unlock()

	used := make([]bool, len(t.tracks))
	next := make([]track, 0, len(faces))

	for i := range faces {
		best := -1
		bestIoU := t.threshold
		for j, prev := range t.tracks {
			if used[j] {
				continue
			}
			if iou := geometry.IoU(faces[i].Rect, prev.rect); iou >= bestIoU {
				best = j
				bestIoU = iou
			}
		}

		var id int64
		if best >= 0 {
			used[best] = true
			id = t.tracks[best].id
		} else {
			id = t.nextID
			t.nextID++
		}

		trackingID := id
		faces[i].TrackingID = &trackingID
		next = append(next, track{id: id, rect: faces[i].Rect})
	}

	t.tracks = next
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracks = nil
}
