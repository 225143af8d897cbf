package bytetrack

import (
	"math"
	"testing"

	"github.com/swdee/go-bytetrack/affine"
)

// almostEqual checks if two float32 values are approximately equal
func almostEqual(a, b, tolerance float32) bool {
	return float32(math.Abs(float64(a)-float64(b))) <= tolerance
}

// makeDetection builds a detection object from a tlwh box and score
func makeDetection(x, y, width, height, score float32) Object {
	return NewObject(NewRect(x, y, width, height), 0, score)
}

// TestTrackerStableIdentity feeds the same detection for five consecutive
// steps and expects a single confirmed track with a stable identity, an
// unchanged box and near zero velocity
func TestTrackerStableIdentity(t *testing.T) {

	bt := NewTracker(Config{MaxLostFrames: 3})

	for frame := 1; frame <= 5; frame++ {

		out, err := bt.Update([]Object{makeDetection(10, 10, 20, 20, 0.9)})

		if err != nil {
			t.Fatalf("frame %d: error updating tracker: %v", frame, err)
		}

		if len(out) != 1 {
			t.Fatalf("frame %d: expected 1 track, got %d", frame, len(out))
		}

		trk := out[0]

		if trk.GetTrackID() != 1 {
			t.Errorf("frame %d: expected track ID 1, got %d", frame, trk.GetTrackID())
		}

		if trk.GetState() != Confirmed {
			t.Errorf("frame %d: expected state Confirmed, got %v", frame, trk.GetState())
		}

		if !almostEqual(trk.GetRect().TLX(), 10, 1e-3) ||
			!almostEqual(trk.GetRect().TLY(), 10, 1e-3) ||
			!almostEqual(trk.GetRect().Width(), 20, 1e-3) ||
			!almostEqual(trk.GetRect().Height(), 20, 1e-3) {
			t.Errorf("frame %d: expected rect [10 10 20 20], got %v",
				frame, trk.GetRect().Tlwh)
		}

		if !trk.Stationary(0.1) {
			t.Errorf("frame %d: expected near zero velocity", frame)
		}
	}
}

// TestTrackerStationaryThreshold checks that the configured stationary
// speed threshold reaches the tracks the tracker creates
func TestTrackerStationaryThreshold(t *testing.T) {

	strict := NewTracker(Config{})
	lenient := NewTracker(Config{StationaryThresh: 500})

	var strictOut, lenientOut []*Track

	// one object moving 10 pixels per frame
	for frame := 0; frame < 5; frame++ {

		det := []Object{makeDetection(float32(frame)*10, 10, 50, 100, 0.9)}

		var err error

		strictOut, err = strict.Update(det)

		if err != nil {
			t.Fatalf("frame %d: error updating tracker: %v", frame, err)
		}

		lenientOut, err = lenient.Update(det)

		if err != nil {
			t.Fatalf("frame %d: error updating tracker: %v", frame, err)
		}
	}

	if len(strictOut) != 1 || len(lenientOut) != 1 {
		t.Fatalf("expected 1 track each, got %d and %d",
			len(strictOut), len(lenientOut))
	}

	// the motion exceeds the default 2.0 threshold but not the raised one
	if strictOut[0].IsStationary() {
		t.Errorf("expected the default threshold to report motion")
	}

	if !lenientOut[0].IsStationary() {
		t.Errorf("expected the raised threshold to absorb the motion")
	}
}

// TestTrackerIdentityAcrossMotion tracks two objects moving steadily and
// expects both identities to survive with the boxes following the motion
func TestTrackerIdentityAcrossMotion(t *testing.T) {

	bt := NewTracker(Config{})

	var lastX float32

	for frame := 0; frame < 5; frame++ {

		dx := float32(frame) * 2
		lastX = dx

		out, err := bt.Update([]Object{
			makeDetection(dx, 0, 50, 100, 0.9),
			makeDetection(200+dx, 0, 50, 100, 0.8),
		})

		if err != nil {
			t.Fatalf("frame %d: error updating tracker: %v", frame, err)
		}

		if len(out) != 2 {
			t.Fatalf("frame %d: expected 2 tracks, got %d", frame, len(out))
		}

		if out[0].GetTrackID() != 1 || out[1].GetTrackID() != 2 {
			t.Errorf("frame %d: expected track IDs 1 and 2, got %d and %d",
				frame, out[0].GetTrackID(), out[1].GetTrackID())
		}
	}

	// the smoothed boxes lag the measurements slightly but must stay close
	out, _ := bt.Update([]Object{
		makeDetection(lastX+2, 0, 50, 100, 0.9),
		makeDetection(202+lastX, 0, 50, 100, 0.8),
	})

	if len(out) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(out))
	}

	if !almostEqual(out[0].GetRect().TLX(), lastX+2, 3) {
		t.Errorf("expected track 1 near x=%v, got %v", lastX+2, out[0].GetRect().TLX())
	}

	if !almostEqual(out[1].GetRect().TLX(), 202+lastX, 3) {
		t.Errorf("expected track 2 near x=%v, got %v", 202+lastX, out[1].GetRect().TLX())
	}
}

// TestTrackerPurgeAfterMaxLost checks that a track unmatched for more than
// MaxLostFrames consecutive steps is purged and never reappears
func TestTrackerPurgeAfterMaxLost(t *testing.T) {

	bt := NewTracker(Config{MaxLostFrames: 3})

	out, err := bt.Update([]Object{makeDetection(100, 100, 50, 50, 0.9)})

	if err != nil {
		t.Fatalf("error updating tracker: %v", err)
	}

	if len(out) != 1 {
		t.Fatalf("expected 1 track, got %d", len(out))
	}

	// misses 1 through 3 keep the track coasting in Lost state
	for miss := 1; miss <= 3; miss++ {

		out, err = bt.Update(nil)

		if err != nil {
			t.Fatalf("miss %d: error updating tracker: %v", miss, err)
		}

		if len(out) != 0 {
			t.Errorf("miss %d: expected no confirmed tracks, got %d", miss, len(out))
		}

		if len(bt.LostTracks()) != 1 {
			t.Errorf("miss %d: expected 1 lost track, got %d",
				miss, len(bt.LostTracks()))
		}
	}

	// the fourth miss exceeds the tolerance and purges the track
	out, err = bt.Update(nil)

	if err != nil {
		t.Fatalf("miss 4: error updating tracker: %v", err)
	}

	if len(out) != 0 || len(bt.LostTracks()) != 0 {
		t.Errorf("miss 4: expected no remaining tracks, got %d confirmed and %d lost",
			len(out), len(bt.LostTracks()))
	}

	removed := bt.RemovedTracks()

	if len(removed) != 1 || removed[0].GetTrackID() != 1 {
		t.Fatalf("miss 4: expected track 1 removed, got %v", removed)
	}

	// the removed set only covers the most recent step
	_, err = bt.Update(nil)

	if err != nil {
		t.Fatalf("error updating tracker: %v", err)
	}

	if len(bt.RemovedTracks()) != 0 {
		t.Errorf("expected empty removed set, got %d", len(bt.RemovedTracks()))
	}
}

// TestTrackerLowConfidenceNeverSeeds checks that low confidence detections
// cannot create tracks, and sub threshold detections are ignored entirely
func TestTrackerLowConfidenceNeverSeeds(t *testing.T) {

	bt := NewTracker(Config{})

	for frame := 1; frame <= 2; frame++ {

		out, err := bt.Update([]Object{
			makeDetection(100, 100, 50, 50, 0.2),
			makeDetection(300, 100, 50, 50, 0.05),
		})

		if err != nil {
			t.Fatalf("frame %d: error updating tracker: %v", frame, err)
		}

		if len(out) != 0 {
			t.Errorf("frame %d: expected no tracks, got %d", frame, len(out))
		}

		if len(bt.tracks) != 0 {
			t.Errorf("frame %d: expected empty track set, got %d", frame, len(bt.tracks))
		}
	}

	// a high confidence detection at the same spot gets the first identity
	out, err := bt.Update([]Object{makeDetection(100, 100, 50, 50, 0.9)})

	if err != nil {
		t.Fatalf("error updating tracker: %v", err)
	}

	if len(out) != 1 || out[0].GetTrackID() != 1 {
		t.Fatalf("expected new track with ID 1, got %v", out)
	}
}

// TestTrackerRescueAssociation checks that a weak detection re-anchors an
// established track, including one that has already gone Lost
func TestTrackerRescueAssociation(t *testing.T) {

	bt := NewTracker(Config{})

	out, err := bt.Update([]Object{makeDetection(100, 100, 60, 120, 0.9)})

	if err != nil {
		t.Fatalf("error updating tracker: %v", err)
	}

	if len(out) != 1 {
		t.Fatalf("expected 1 track, got %d", len(out))
	}

	// the detector weakens but the box stays put, the rescue stage keeps
	// the track anchored
	out, err = bt.Update([]Object{makeDetection(100, 100, 60, 120, 0.2)})

	if err != nil {
		t.Fatalf("error updating tracker: %v", err)
	}

	if len(out) != 1 || out[0].GetTrackID() != 1 {
		t.Fatalf("expected track 1 rescued, got %v", out)
	}

	if !almostEqual(out[0].GetScore(), 0.2, 1e-5) {
		t.Errorf("expected score 0.2, got %v", out[0].GetScore())
	}

	// a full miss drops the track to Lost
	out, err = bt.Update(nil)

	if err != nil {
		t.Fatalf("error updating tracker: %v", err)
	}

	if len(out) != 0 || len(bt.LostTracks()) != 1 {
		t.Fatalf("expected 1 lost track, got %d confirmed and %d lost",
			len(out), len(bt.LostTracks()))
	}

	// a weak detection recovers the lost track
	out, err = bt.Update([]Object{makeDetection(100, 100, 60, 120, 0.2)})

	if err != nil {
		t.Fatalf("error updating tracker: %v", err)
	}

	if len(out) != 1 || out[0].GetTrackID() != 1 {
		t.Fatalf("expected track 1 recovered, got %v", out)
	}

	if out[0].GetState() != Confirmed {
		t.Errorf("expected state Confirmed, got %v", out[0].GetState())
	}
}

// TestTrackerCompetingDetections offers one track a strongly and a weakly
// overlapping detection.  The strong overlap wins the track, the weak one
// fails the gate and spawns a new identity.
func TestTrackerCompetingDetections(t *testing.T) {

	bt := NewTracker(Config{})

	out, err := bt.Update([]Object{makeDetection(0, 0, 100, 100, 0.9)})

	if err != nil {
		t.Fatalf("error updating tracker: %v", err)
	}

	if len(out) != 1 {
		t.Fatalf("expected 1 track, got %d", len(out))
	}

	out, err = bt.Update([]Object{
		makeDetection(5, 0, 100, 100, 0.9),  // IoU 0.90 against the track
		makeDetection(82, 0, 100, 100, 0.9), // IoU 0.10, below the gate
	})

	if err != nil {
		t.Fatalf("error updating tracker: %v", err)
	}

	if len(out) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(out))
	}

	// output is ordered by ascending identity
	if out[0].GetTrackID() != 1 || out[1].GetTrackID() != 2 {
		t.Fatalf("expected track IDs 1 and 2, got %d and %d",
			out[0].GetTrackID(), out[1].GetTrackID())
	}

	// the established track followed the strong overlap
	if out[0].GetRect().TLX() < 0 || out[0].GetRect().TLX() > 5 {
		t.Errorf("expected track 1 between x=0 and x=5, got %v",
			out[0].GetRect().TLX())
	}

	// the new track sits exactly on the unmatched detection
	if !floatsEqual(out[1].GetRect().Tlwh, Tlwh{82, 0, 100, 100}, 1e-5) {
		t.Errorf("expected track 2 rect [82 0 100 100], got %v",
			out[1].GetRect().Tlwh)
	}
}

// TestTrackerMinHitsPromotion checks that a stricter confirmation policy
// holds new tracks out of the output until the hit streak is reached
func TestTrackerMinHitsPromotion(t *testing.T) {

	bt := NewTracker(Config{MinHits: 3})

	wantLens := []int{0, 0, 1}

	for frame, wantLen := range wantLens {

		out, err := bt.Update([]Object{
			makeDetection(float32(frame), 0, 50, 100, 0.9),
		})

		if err != nil {
			t.Fatalf("frame %d: error updating tracker: %v", frame, err)
		}

		if len(out) != wantLen {
			t.Fatalf("frame %d: expected %d tracks, got %d", frame, wantLen, len(out))
		}
	}
}

// TestTrackerTentativeCulledOnMiss checks that an unconfirmed track is
// purged on its first missed frame
func TestTrackerTentativeCulledOnMiss(t *testing.T) {

	bt := NewTracker(Config{MinHits: 3})

	out, err := bt.Update([]Object{makeDetection(100, 100, 50, 50, 0.9)})

	if err != nil {
		t.Fatalf("error updating tracker: %v", err)
	}

	if len(out) != 0 {
		t.Fatalf("expected no confirmed tracks, got %d", len(out))
	}

	_, err = bt.Update(nil)

	if err != nil {
		t.Fatalf("error updating tracker: %v", err)
	}

	removed := bt.RemovedTracks()

	if len(removed) != 1 || removed[0].GetTrackID() != 1 {
		t.Fatalf("expected tentative track 1 removed, got %v", removed)
	}
}

// TestTrackerDuplicateSuppression checks that a lost track shadowing a
// newly confirmed track on the same object is dropped
func TestTrackerDuplicateSuppression(t *testing.T) {

	bt := NewTracker(Config{})

	out, err := bt.Update([]Object{makeDetection(100, 100, 50, 100, 0.9)})

	if err != nil {
		t.Fatalf("error updating tracker: %v", err)
	}

	if len(out) != 1 {
		t.Fatalf("expected 1 track, got %d", len(out))
	}

	// object disappears for one frame
	_, err = bt.Update(nil)

	if err != nil {
		t.Fatalf("error updating tracker: %v", err)
	}

	if len(bt.LostTracks()) != 1 {
		t.Fatalf("expected 1 lost track, got %d", len(bt.LostTracks()))
	}

	// the object reappears with high confidence.  Lost tracks only see the
	// low bucket, so a fresh identity claims the detection and the stale
	// lost twin on the same box is suppressed.
	out, err = bt.Update([]Object{makeDetection(100, 100, 50, 100, 0.9)})

	if err != nil {
		t.Fatalf("error updating tracker: %v", err)
	}

	if len(out) != 1 || out[0].GetTrackID() != 2 {
		t.Fatalf("expected track 2 only, got %v", out)
	}

	if len(bt.LostTracks()) != 0 {
		t.Errorf("expected no lost tracks, got %d", len(bt.LostTracks()))
	}

	removed := bt.RemovedTracks()

	if len(removed) != 1 || removed[0].GetTrackID() != 1 {
		t.Errorf("expected track 1 suppressed, got %v", removed)
	}
}

// TestTrackerDeterminism runs two trackers over the same input sequence and
// expects byte identical results, exercising the parallel cost matrix path
func TestTrackerDeterminism(t *testing.T) {

	feed := func(bt *Tracker) [][]*Track {

		features := []Feature{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
		}

		var results [][]*Track

		for frame := 0; frame < 4; frame++ {

			dx := float32(frame) * 3

			objects := []Object{
				makeDetection(dx, 0, 50, 100, 0.9),
				makeDetection(100+dx, 10, 55, 95, 0.85),
				makeDetection(220+dx, 5, 45, 105, 0.7),
			}

			for i := range objects {
				objects[i].Feature = features[i]
			}

			out, err := bt.Update(objects)

			if err != nil {
				t.Fatalf("frame %d: error updating tracker: %v", frame, err)
			}

			results = append(results, out)
		}

		return results
	}

	first := feed(NewTracker(Config{}))
	second := feed(NewTracker(Config{}))

	for frame := range first {

		if len(first[frame]) != len(second[frame]) {
			t.Fatalf("frame %d: track counts differ, %d vs %d",
				frame, len(first[frame]), len(second[frame]))
		}

		for i := range first[frame] {

			a := first[frame][i]
			b := second[frame][i]

			if a.GetTrackID() != b.GetTrackID() {
				t.Errorf("frame %d: track IDs differ, %d vs %d",
					frame, a.GetTrackID(), b.GetTrackID())
			}

			if a.GetRect().TLX() != b.GetRect().TLX() ||
				a.GetRect().TLY() != b.GetRect().TLY() ||
				a.GetRect().BRX() != b.GetRect().BRX() ||
				a.GetRect().BRY() != b.GetRect().BRY() {
				t.Errorf("frame %d track %d: rects differ, %v vs %v",
					frame, a.GetTrackID(), a.GetRect().Tlwh, b.GetRect().Tlwh)
			}
		}
	}
}

// TestTrackerReset checks that a reset tracker starts a fresh stream with
// fresh identities
func TestTrackerReset(t *testing.T) {

	bt := NewTracker(Config{})

	for frame := 0; frame < 3; frame++ {
		_, err := bt.Update([]Object{makeDetection(10, 10, 20, 20, 0.9)})

		if err != nil {
			t.Fatalf("error updating tracker: %v", err)
		}
	}

	bt.Reset()

	if bt.FrameID() != 0 {
		t.Errorf("expected frame ID 0 after reset, got %d", bt.FrameID())
	}

	out, err := bt.Update([]Object{makeDetection(500, 500, 20, 20, 0.9)})

	if err != nil {
		t.Fatalf("error updating tracker: %v", err)
	}

	if len(out) != 1 || out[0].GetTrackID() != 1 {
		t.Fatalf("expected fresh track with ID 1, got %v", out)
	}
}

// TestTrackerUpdateWithFrame checks the appearance extraction schedule: the
// interval decides which frames extract, and only high confidence
// detections get features
func TestTrackerUpdateWithFrame(t *testing.T) {

	frame := affine.NewRaster(64, 64, 1)

	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8(40)
			if x >= 32 {
				v = 220
			}
			frame.Set(x, y, 0, v)
		}
	}

	bt := NewTracker(Config{AppearanceInterval: 2})
	bt.SetExtractor(NewHistogramExtractor())

	// frame 1 is off the extraction interval
	objects := []Object{makeDetection(0, 0, 30, 30, 0.9)}

	out, err := bt.UpdateWithFrame(frame, objects)

	if err != nil {
		t.Fatalf("error updating tracker: %v", err)
	}

	if len(out) != 1 {
		t.Fatalf("expected 1 track, got %d", len(out))
	}

	if objects[0].Feature != nil {
		t.Errorf("expected no feature on an off interval frame")
	}

	if out[0].Gallery().Size() != 0 {
		t.Errorf("expected empty gallery, got size %d", out[0].Gallery().Size())
	}

	// frame 2 extracts for the high confidence detection only
	objects = []Object{
		makeDetection(1, 0, 30, 30, 0.9),
		makeDetection(40, 40, 20, 20, 0.2),
	}

	out, err = bt.UpdateWithFrame(frame, objects)

	if err != nil {
		t.Fatalf("error updating tracker: %v", err)
	}

	if len(objects[0].Feature) != 8 {
		t.Errorf("expected 8 bin feature, got length %d", len(objects[0].Feature))
	}

	if objects[1].Feature != nil {
		t.Errorf("expected no feature on a low confidence detection")
	}

	if len(out) != 1 || out[0].Gallery().Size() != 1 {
		t.Fatalf("expected track gallery holding 1 feature, got %v", out)
	}
}
