package bytetrack

import (
	"fmt"
	"image"
	"sync"

	clipper "github.com/ctessum/go.clipper"
)

// ZoneEventType indicates whether a track entered or exited a zone
type ZoneEventType int

const (
	// ZoneEnter is emitted when a track center crosses into the inner ring
	ZoneEnter ZoneEventType = iota
	// ZoneExit is emitted when a track center leaves the outer ring
	ZoneExit
)

// String returns a human readable name of the zone event type
func (z ZoneEventType) String() string {
	switch z {
	case ZoneEnter:
		return "Enter"
	case ZoneExit:
		return "Exit"
	}
	return "Unknown"
}

// ZoneEvent records a single track crossing a zone boundary
type ZoneEvent struct {
	// TrackID is the identity of the track that crossed
	TrackID int64
	// Zone is the name of the zone that was crossed
	Zone string
	// Type indicates an enter or exit crossing
	Type ZoneEventType
	// FrameID is the frame number the crossing was observed on
	FrameID int64
}

// Zone defines a named polygonal region with a hysteresis band.  The source
// polygon is offset inwards and outwards by the margin to create inner and
// outer rings, a track must reach the inner ring to count as inside the zone
// and leave the outer ring before it counts as outside again.  The band
// between the rings stops jittery detections from flapping at the boundary.
type Zone struct {
	name   string
	points []image.Point
	inner  [][]image.Point
	outer  [][]image.Point
}

// NewZone creates a zone from a closed polygon and a hysteresis margin in
// pixels.  The polygon requires at least three points and must survive
// being shrunk by the margin.
func NewZone(name string, points []image.Point, margin float64) (*Zone, error) {

	if len(points) < 3 {
		return nil, fmt.Errorf("zone %s: polygon needs at least 3 points, got %d",
			name, len(points))
	}

	if margin < 0 {
		return nil, fmt.Errorf("zone %s: margin must not be negative", name)
	}

	inner, err := offsetPolygon(points, -margin)

	if err != nil {
		return nil, fmt.Errorf("zone %s: inner ring: %w", name, err)
	}

	outer, err := offsetPolygon(points, margin)

	if err != nil {
		return nil, fmt.Errorf("zone %s: outer ring: %w", name, err)
	}

	return &Zone{
		name:   name,
		points: points,
		inner:  inner,
		outer:  outer,
	}, nil
}

// GetName returns the zone name
func (z *Zone) GetName() string {
	return z.name
}

// GetPoints returns the source polygon the zone was created from, for
// drawing the zone outline
func (z *Zone) GetPoints() []image.Point {
	return z.points
}

// offsetPolygon grows or shrinks a closed polygon by delta pixels using a
// round join offset.  The result can be more than one ring when shrinking
// splits a concave polygon apart.
func offsetPolygon(points []image.Point, delta float64) ([][]image.Point, error) {

	// a positive offset only grows a positively oriented path, so flip a
	// clockwise polygon before handing it to Clipper
	if signedArea(points) < 0 {
		reversed := make([]image.Point, len(points))

		for i, pt := range points {
			reversed[len(points)-1-i] = pt
		}

		points = reversed
	}

	// convert the polygon points to Clipper Path
	var path clipper.Path

	for _, pt := range points {
		path = append(path, &clipper.IntPoint{X: clipper.CInt(pt.X), Y: clipper.CInt(pt.Y)})
	}

	// create a ClipperOffset object and add the path
	co := clipper.NewClipperOffset()
	co.AddPath(path, clipper.JtRound, clipper.EtClosedPolygon)

	// execute the offset operation
	solution := co.Execute(delta)

	if len(solution) == 0 {
		return nil, fmt.Errorf("offset by %.1f collapses polygon", delta)
	}

	// convert the solution back to rings of points
	rings := make([][]image.Point, 0, len(solution))

	for _, sol := range solution {

		ring := make([]image.Point, 0, len(sol))

		for _, pt := range sol {
			ring = append(ring, image.Point{X: int(pt.X), Y: int(pt.Y)})
		}

		rings = append(rings, ring)
	}

	return rings, nil
}

// signedArea returns twice the shoelace area of the polygon, positive for
// counter clockwise winding
func signedArea(points []image.Point) int {

	area := 0
	j := len(points) - 1

	for i := 0; i < len(points); i++ {
		area += points[j].X*points[i].Y - points[i].X*points[j].Y
		j = i
	}

	return area
}

// contains reports whether the point lies inside any of the rings
func contains(rings [][]image.Point, x, y float64) bool {

	for _, ring := range rings {
		if pointInRing(ring, x, y) {
			return true
		}
	}

	return false
}

// pointInRing reports whether the point lies inside the ring using even-odd
// ray casting
func pointInRing(ring []image.Point, x, y float64) bool {

	in := false
	j := len(ring) - 1

	for i := 0; i < len(ring); i++ {

		xi, yi := float64(ring[i].X), float64(ring[i].Y)
		xj, yj := float64(ring[j].X), float64(ring[j].Y)

		if (yi > y) != (yj > y) &&
			x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			in = !in
		}

		j = i
	}

	return in
}

// ZoneMonitor watches track centers against a set of zones and emits enter
// and exit events with hysteresis
type ZoneMonitor struct {
	// zones in registration order
	zones []*Zone
	// inside state per zone keyed by track identity
	inside []map[int64]bool
	sync.Mutex
}

// NewZoneMonitor creates a monitor over the given zones
func NewZoneMonitor(zones ...*Zone) *ZoneMonitor {

	m := &ZoneMonitor{
		zones:  zones,
		inside: make([]map[int64]bool, len(zones)),
	}

	for i := range m.inside {
		m.inside[i] = make(map[int64]bool)
	}

	return m
}

// Observe checks the given tracks against all zones and returns the boundary
// crossings that occurred on this frame.  Events are ordered by zone
// registration order then by track input order.
func (m *ZoneMonitor) Observe(frameID int64, tracks []*Track) []ZoneEvent {

	m.Lock()
	defer m.Unlock()

	var events []ZoneEvent

	for i, zone := range m.zones {
		for _, track := range tracks {

			x := float64(track.GetRect().CenterX())
			y := float64(track.GetRect().CenterY())

			id := track.GetTrackID()
			in := m.inside[i][id]

			if !in && contains(zone.inner, x, y) {
				m.inside[i][id] = true

				events = append(events, ZoneEvent{
					TrackID: id,
					Zone:    zone.name,
					Type:    ZoneEnter,
					FrameID: frameID,
				})

			} else if in && !contains(zone.outer, x, y) {
				delete(m.inside[i], id)

				events = append(events, ZoneEvent{
					TrackID: id,
					Zone:    zone.name,
					Type:    ZoneExit,
					FrameID: frameID,
				})
			}
		}
	}

	return events
}

// Forget drops the inside state of one track id, typically after the track
// has been removed
func (m *ZoneMonitor) Forget(id int64) {
	m.Lock()
	defer m.Unlock()

	for i := range m.inside {
		delete(m.inside[i], id)
	}
}
