package bytetrack

import "sync"

// defaultTrailSize is the trail length used when NewTrail is given a
// non-positive size
const defaultTrailSize = 50

// Point represents the x,y coordinates of the center of a tracked
// bounding box
type Point struct {
	X, Y int
}

// Trail keeps a bounded history of track center points used for drawing
// a movement trail per identity
type Trail struct {
	// size is the maximum number of most recent points to keep in history
	size int
	// history of tracked points keyed by track identity
	history map[int64][]Point
	sync.Mutex
}

// NewTrail returns a new trail history instance.  Size is the number of
// most recent points to keep per track and specifies the maximum length
// of the trail to maintain.
func NewTrail(size int) *Trail {

	if size < 1 {
		size = defaultTrailSize
	}

	return &Trail{
		size:    size,
		history: make(map[int64][]Point),
	}
}

// Reset clears all history
func (t *Trail) Reset() {
	t.Lock()
	defer t.Unlock()

	t.history = make(map[int64][]Point)
}

// Add appends the current center point of the track to its history
func (t *Trail) Add(track *Track) {
	t.Lock()
	defer t.Unlock()

	id := track.GetTrackID()

	points := append(t.history[id], Point{
		X: int(track.GetRect().CenterX()),
		Y: int(track.GetRect().CenterY()),
	})

	// check if history is exceeded and drop oldest point
	if len(points) > t.size {
		points = points[1:]
	}

	t.history[id] = points
}

// GetPoints gets the point history for a specific track id, oldest first
func (t *Trail) GetPoints(id int64) []Point {
	t.Lock()
	defer t.Unlock()

	return t.history[id]
}

// Forget drops the history of one track id, typically after the track has
// been removed
func (t *Trail) Forget(id int64) {
	t.Lock()
	defer t.Unlock()

	delete(t.history, id)
}
