package bytetrack

import (
	"image"
	"testing"
)

// trackAt creates a confirmed track whose box center sits on (cx, cy)
func trackAt(id int64, cx, cy float32) *Track {
	return makeTrack(id, cx-5, cy-5, 10, 10)
}

// TestZoneHysteresis walks one track through the hysteresis band of a
// square zone: entering requires reaching the inner ring and exiting
// requires leaving the outer ring, so jitter inside the band never flaps
func TestZoneHysteresis(t *testing.T) {

	zone, err := NewZone("gate", []image.Point{
		{0, 0}, {100, 0}, {100, 100}, {0, 100},
	}, 10)

	if err != nil {
		t.Fatalf("failed to create zone: %v", err)
	}

	mon := NewZoneMonitor(zone)

	steps := []struct {
		cx, cy float32
		events int
		etype  ZoneEventType
	}{
		// far outside
		{200, 200, 0, ZoneEnter},
		// inside the polygon but still in the band, no enter yet
		{95, 50, 0, ZoneEnter},
		// past the inner ring
		{50, 50, 1, ZoneEnter},
		// back into the band, still inside
		{95, 50, 0, ZoneExit},
		// just over the polygon edge but within the outer ring
		{105, 50, 0, ZoneExit},
		// past the outer ring
		{120, 50, 1, ZoneExit},
	}

	for i, step := range steps {

		frameID := int64(i + 1)
		events := mon.Observe(frameID, []*Track{trackAt(1, step.cx, step.cy)})

		if len(events) != step.events {
			t.Fatalf("step %d: expected %d events, got %v", i+1, step.events, events)
		}

		if step.events == 1 {

			ev := events[0]

			if ev.Type != step.etype || ev.TrackID != 1 ||
				ev.Zone != "gate" || ev.FrameID != frameID {
				t.Errorf("step %d: unexpected event %+v", i+1, ev)
			}
		}
	}
}

// TestZoneEventOrder checks the deterministic ordering: zones in
// registration order, tracks in input order
func TestZoneEventOrder(t *testing.T) {

	square := []image.Point{{0, 0}, {100, 0}, {100, 100}, {0, 100}}

	first, err := NewZone("first", square, 5)

	if err != nil {
		t.Fatalf("failed to create zone: %v", err)
	}

	second, err := NewZone("second", square, 5)

	if err != nil {
		t.Fatalf("failed to create zone: %v", err)
	}

	mon := NewZoneMonitor(first, second)

	events := mon.Observe(1, []*Track{
		trackAt(3, 50, 50),
		trackAt(1, 40, 40),
	})

	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %v", events)
	}

	wantZones := []string{"first", "first", "second", "second"}
	wantTracks := []int64{3, 1, 3, 1}

	for i, ev := range events {
		if ev.Zone != wantZones[i] || ev.TrackID != wantTracks[i] {
			t.Errorf("event %d: expected zone %s track %d, got %+v",
				i, wantZones[i], wantTracks[i], ev)
		}
	}
}

// TestZoneMonitorForget checks that dropping a track's state re-arms the
// enter event
func TestZoneMonitorForget(t *testing.T) {

	zone, err := NewZone("gate", []image.Point{
		{0, 0}, {100, 0}, {100, 100}, {0, 100},
	}, 10)

	if err != nil {
		t.Fatalf("failed to create zone: %v", err)
	}

	mon := NewZoneMonitor(zone)

	if got := mon.Observe(1, []*Track{trackAt(1, 50, 50)}); len(got) != 1 {
		t.Fatalf("expected enter event, got %v", got)
	}

	// staying inside emits nothing further
	if got := mon.Observe(2, []*Track{trackAt(1, 50, 50)}); len(got) != 0 {
		t.Fatalf("expected no events, got %v", got)
	}

	mon.Forget(1)

	if got := mon.Observe(3, []*Track{trackAt(1, 50, 50)}); len(got) != 1 {
		t.Fatalf("expected enter event after forget, got %v", got)
	}
}

// TestZoneClockwisePolygon checks that the winding order of the source
// polygon does not invert the margin direction
func TestZoneClockwisePolygon(t *testing.T) {

	// same square as elsewhere, wound the other way
	zone, err := NewZone("gate", []image.Point{
		{0, 0}, {0, 100}, {100, 100}, {100, 0},
	}, 10)

	if err != nil {
		t.Fatalf("failed to create zone: %v", err)
	}

	mon := NewZoneMonitor(zone)

	// in the band: would already be "inside" if the rings were swapped
	if got := mon.Observe(1, []*Track{trackAt(1, 95, 50)}); len(got) != 0 {
		t.Fatalf("expected no events in the band, got %v", got)
	}

	if got := mon.Observe(2, []*Track{trackAt(1, 50, 50)}); len(got) != 1 {
		t.Fatalf("expected enter event, got %v", got)
	}
}

// TestNewZoneErrors checks the construction failure cases
func TestNewZoneErrors(t *testing.T) {

	if _, err := NewZone("bad", []image.Point{{0, 0}, {10, 0}}, 5); err == nil {
		t.Errorf("expected error for a two point polygon")
	}

	square := []image.Point{{0, 0}, {100, 0}, {100, 100}, {0, 100}}

	if _, err := NewZone("bad", square, -1); err == nil {
		t.Errorf("expected error for a negative margin")
	}

	// a margin larger than the polygon collapses the inner ring
	if _, err := NewZone("bad", square, 80); err == nil {
		t.Errorf("expected error for a collapsing margin")
	}
}
