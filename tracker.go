package bytetrack

import (
	"fmt"
	"sort"

	"github.com/swdee/go-bytetrack/affine"
)

// duplicateIoU is the overlap at which a tracked and a lost track are
// considered the same physical object seen twice
const duplicateIoU = 0.85

// Tracker assigns stable identities to detections across frames.  It owns
// the full track set and is the only writer to track lifecycle state.
//
// A Tracker serves one video stream and is not safe for concurrent use;
// run one Tracker per stream instead, they share nothing.
type Tracker struct {
	cfg Config
	// kf holds the filter parameterization shared by all tracks
	kf *KalmanFilter
	// idGen hands out track identities
	idGen *IDGenerator
	// frameID counts Update calls
	frameID int64
	// tracks is the active set in Tentative, Confirmed or Lost state
	tracks []*Track
	// removed holds the tracks purged during the most recent Update
	removed []*Track
	// extractor computes appearance features in UpdateWithFrame, optional
	extractor FeatureExtractor
}

// NewTracker creates a Tracker.  Zero valued Config fields take the
// DefaultConfig values.
func NewTracker(cfg Config) *Tracker {

	cfg = cfg.withDefaults()

	return &Tracker{
		cfg:   cfg,
		kf:    NewKalmanFilter(cfg.StdWeightPosition, cfg.StdWeightVelocity, cfg.VelocityDecay),
		idGen: &IDGenerator{},
	}
}

// SetExtractor sets the appearance feature extractor used by
// UpdateWithFrame
func (t *Tracker) SetExtractor(extractor FeatureExtractor) {
	t.extractor = extractor
}

// Config returns the effective configuration with defaults applied
func (t *Tracker) Config() Config {
	return t.cfg
}

// FrameID returns the number of frames processed so far
func (t *Tracker) FrameID() int64 {
	return t.frameID
}

// Reset clears all tracks and counters.  Identities are reset too, so only
// call this between streams, never mid stream.
func (t *Tracker) Reset() {
	t.frameID = 0
	t.idGen = &IDGenerator{}
	t.tracks = nil
	t.removed = nil
}

// Update runs one tracking step over the detections of a single frame and
// returns the confirmed tracks in ascending identity order.  Detections
// scoring below the low threshold are ignored entirely.
func (t *Tracker) Update(objects []Object) ([]*Track, error) {

	t.frameID++

	// step 1: predict every active track forward to this frame
	for _, trk := range t.tracks {
		trk.predict()
	}

	// step 2: partition detections into association buckets by confidence
	var high, low []Object

	for _, obj := range objects {
		switch {
		case obj.Score >= t.cfg.HighScoreThresh:
			high = append(high, obj)
		case obj.Score >= t.cfg.LowScoreThresh:
			low = append(low, obj)
		}
	}

	// split the track set by lifecycle state for the cascade
	var confirmed, lost, tentative []*Track

	for _, trk := range t.tracks {
		switch trk.GetState() {
		case Confirmed:
			confirmed = append(confirmed, trk)
		case Lost:
			lost = append(lost, trk)
		case Tentative:
			tentative = append(tentative, trk)
		}
	}

	// step 3: first association, confirmed tracks against high confidence
	// detections using both cues
	costA := combinedCostMatrix(confirmed, high, &t.cfg)
	matchesA, unmatchedTracksA, unmatchedDetsA := solveAssignment(
		costA, confirmed, len(high), t.cfg.Assignment)

	for _, m := range matchesA {
		err := confirmed[m.track].update(high[m.det], t.frameID, t.cfg.MinHits)

		if err != nil {
			return nil, fmt.Errorf("error updating track, first association: %w", err)
		}
	}

	// step 4: rescue association, leftover confirmed tracks plus all lost
	// tracks against low confidence detections, motion cue only with a
	// looser gate.  Weak detections may re-anchor an existing object but
	// never create one.
	rescue := make([]*Track, 0, len(unmatchedTracksA)+len(lost))

	for _, idx := range unmatchedTracksA {
		rescue = append(rescue, confirmed[idx])
	}

	rescue = append(rescue, lost...)

	costB := iouCostMatrix(rescue, low, t.cfg.LowIoUGate)
	matchesB, unmatchedTracksB, _ := solveAssignment(
		costB, rescue, len(low), t.cfg.Assignment)

	for _, m := range matchesB {
		err := rescue[m.track].update(low[m.det], t.frameID, t.cfg.MinHits)

		if err != nil {
			return nil, fmt.Errorf("error updating track, rescue association: %w", err)
		}
	}

	// step 5: tentative tracks get a chance at the high confidence
	// detections stage one left behind
	remainHigh := make([]Object, 0, len(unmatchedDetsA))

	for _, idx := range unmatchedDetsA {
		remainHigh = append(remainHigh, high[idx])
	}

	costC := iouCostMatrix(tentative, remainHigh, t.cfg.HighIoUGate)
	matchesC, unmatchedTracksC, unmatchedDetsC := solveAssignment(
		costC, tentative, len(remainHigh), t.cfg.Assignment)

	for _, m := range matchesC {
		err := tentative[m.track].update(remainHigh[m.det], t.frameID, t.cfg.MinHits)

		if err != nil {
			return nil, fmt.Errorf("error updating track, tentative association: %w", err)
		}
	}

	// step 6: mark all leftover tracks as missed
	for _, idx := range unmatchedTracksB {
		rescue[idx].markMissed(t.cfg.MaxLostFrames)
	}

	for _, idx := range unmatchedTracksC {
		tentative[idx].markMissed(t.cfg.MaxLostFrames)
	}

	// step 7: unclaimed high confidence detections seed new tracks
	for _, idx := range unmatchedDetsC {
		trk := newTrack(t.idGen.Next(), remainHigh[idx], t.kf, t.frameID,
			t.cfg.MinHits, t.cfg.GalleryCapacity, t.cfg.GalleryAlpha,
			t.cfg.StationaryThresh)
		t.tracks = append(t.tracks, trk)
	}

	// step 8: drop lost tracks shadowing a tracked object, then purge
	t.suppressDuplicates()
	t.purgeRemoved()

	// step 9: report confirmed tracks in stable identity order
	out := make([]*Track, 0, len(t.tracks))

	for _, trk := range t.tracks {
		if trk.GetState() == Confirmed {
			out = append(out, trk)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].GetTrackID() < out[j].GetTrackID()
	})

	return out, nil
}

// UpdateWithFrame runs one tracking step with appearance support.  When an
// extractor is configured and the frame lands on the extraction interval,
// features are computed for the highest priority detections and attached
// before the regular Update runs.
func (t *Tracker) UpdateWithFrame(frame *affine.Raster,
	objects []Object) ([]*Track, error) {

	next := t.frameID + 1

	if t.extractor != nil && next%int64(t.cfg.AppearanceInterval) == 0 {

		err := t.extractFeatures(frame, objects)

		if err != nil {
			return nil, fmt.Errorf("failed to extract features: %w", err)
		}
	}

	return t.Update(objects)
}

// extractFeatures fills the Feature field of up to AppearanceMaxPerFrame
// high confidence detections, in detection index order
func (t *Tracker) extractFeatures(frame *affine.Raster, objects []Object) error {

	picked := make([]int, 0, t.cfg.AppearanceMaxPerFrame)

	for i, obj := range objects {

		if obj.Score < t.cfg.HighScoreThresh {
			continue
		}

		picked = append(picked, i)

		if len(picked) == t.cfg.AppearanceMaxPerFrame {
			break
		}
	}

	if len(picked) == 0 {
		return nil
	}

	rects := make([]Rect, len(picked))

	for i, idx := range picked {
		rects[i] = objects[idx].Rect
	}

	features, err := t.extractor.Extract(frame, rects)

	if err != nil {
		return err
	}

	for i, idx := range picked {
		objects[idx].Feature = features[i]
	}

	return nil
}

// suppressDuplicates removes a lost track that overlaps a confirmed track
// at duplicateIoU or above.  The confirmed copy is the one still receiving
// measurements; the lost twin is a stale shadow of the same object.
func (t *Tracker) suppressDuplicates() {

	for _, trk := range t.tracks {

		if trk.GetState() != Confirmed {
			continue
		}

		for _, other := range t.tracks {

			if other.GetState() != Lost {
				continue
			}

			if trk.GetRect().CalcIoU(*other.GetRect()) >= duplicateIoU {
				other.state = Removed
			}
		}
	}
}

// purgeRemoved drops removed tracks from the active set.  They are kept
// until the next Update so callers can inspect which identities ended this
// step.
func (t *Tracker) purgeRemoved() {

	active := make([]*Track, 0, len(t.tracks))
	t.removed = nil

	for _, trk := range t.tracks {

		if trk.GetState() == Removed {
			t.removed = append(t.removed, trk)
		} else {
			active = append(active, trk)
		}
	}

	t.tracks = active
}

// LostTracks returns the tracks currently coasting without a match
func (t *Tracker) LostTracks() []*Track {

	var out []*Track

	for _, trk := range t.tracks {
		if trk.GetState() == Lost {
			out = append(out, trk)
		}
	}

	return out
}

// RemovedTracks returns the tracks purged during the most recent Update
func (t *Tracker) RemovedTracks() []*Track {
	return t.removed
}
