package bytetrack

import (
	"gonum.org/v1/gonum/mat"
)

// TrackState represents the lifecycle state of a track
type TrackState int

const (
	// Tentative is a newly created track not yet confirmed by enough matches
	Tentative TrackState = iota
	// Confirmed is an established track reported in tracker output
	Confirmed
	// Lost is a confirmed track that missed one or more recent frames but is
	// still within the lost frame tolerance
	Lost
	// Removed is terminal, the track is purged at the end of the step
	Removed
)

// String returns the state name
func (s TrackState) String() string {
	switch s {
	case Tentative:
		return "Tentative"
	case Confirmed:
		return "Confirmed"
	case Lost:
		return "Lost"
	case Removed:
		return "Removed"
	default:
		return "Unknown"
	}
}

// Track represents a single tracked object.  It owns its Kalman state and
// appearance gallery.  Lifecycle fields are written only by the Tracker, so
// a Track handed out in results must be treated as read only.
type Track struct {
	// id is the unique track identity, never reused
	id int64
	// state is the current lifecycle state
	state TrackState
	// kalmanFilter is the shared filter parameterization owned by the Tracker
	kalmanFilter *KalmanFilter
	// mean is the cxcywh position and velocity state vector
	mean StateMean
	// covariance is the state covariance matrix
	covariance *StateCov
	// rect is the box derived from the state mean, predicted or corrected
	rect Rect
	// score is the confidence of the most recent matched detection
	score float32
	// label is the class label of the most recent matched detection
	label int
	// age counts frames since creation
	age int
	// hitStreak counts consecutive matched frames
	hitStreak int
	// timeSinceUpdate counts consecutive missed frames, 0 after a match
	timeSinceUpdate int
	// startFrameID is the frame the track was created on
	startFrameID int64
	// frameID is the frame of the last match
	frameID int64
	// gallery holds recent appearance features
	gallery *Gallery
	// stationaryThresh is the configured center speed in pixels per frame
	// below which the track counts as stationary
	stationaryThresh float32
}

// newTrack creates a track from an unmatched detection.  The motion state is
// initialized from the detection box with zero velocity, and the track is
// promoted straight to Confirmed when minHits allows it.
func newTrack(id int64, obj Object, kf *KalmanFilter, frameID int64,
	minHits, galleryCapacity int, galleryAlpha,
	stationaryThresh float32) *Track {

	t := &Track{
		id:               id,
		state:            Tentative,
		kalmanFilter:     kf,
		mean:             make(StateMean, 8),
		covariance:       &StateCov{mat.NewDense(8, 8, nil)},
		rect:             NewRect(obj.Rect.X(), obj.Rect.Y(), obj.Rect.Width(), obj.Rect.Height()),
		score:            obj.Score,
		label:            obj.Label,
		hitStreak:        1,
		startFrameID:     frameID,
		frameID:          frameID,
		gallery:          NewGallery(galleryCapacity, galleryAlpha),
		stationaryThresh: stationaryThresh,
	}

	kf.Initiate(t.mean, t.covariance, DetectBox(t.rect.GetCxcywh()))

	if t.hitStreak >= minHits {
		t.state = Confirmed
	}

	if len(obj.Feature) > 0 {
		t.gallery.Add(obj.Feature)
	}

	return t
}

// predict advances the motion state one frame and refreshes the box so
// association compares against the predicted position
func (t *Track) predict() {

	// a track not currently confirmed has no fresh measurements, freeze its
	// height growth so the box does not balloon while coasting
	if t.state != Confirmed {
		t.mean[7] = 0
	}

	t.kalmanFilter.Predict(t.mean, t.covariance)
	t.refreshRect()
	t.age++
}

// update corrects the track with a matched detection.  A Lost track returns
// to Confirmed, a Tentative track is promoted once its hit streak reaches
// minHits.
func (t *Track) update(obj Object, frameID int64, minHits int) error {

	err := t.kalmanFilter.Update(t.mean, t.covariance, DetectBox(obj.Rect.GetCxcywh()))

	if err != nil {
		return err
	}

	t.refreshRect()

	t.score = obj.Score
	t.label = obj.Label
	t.frameID = frameID
	t.timeSinceUpdate = 0
	t.hitStreak++

	if t.state == Lost || t.hitStreak >= minHits {
		t.state = Confirmed
	}

	if len(obj.Feature) > 0 {
		t.gallery.Add(obj.Feature)
	}

	return nil
}

// markMissed records a frame with no matching detection.  A Tentative track
// is removed immediately, a Confirmed track turns Lost, and a Lost track is
// removed once it has been unmatched for more than maxLostFrames.
func (t *Track) markMissed(maxLostFrames int) {

	t.timeSinceUpdate++
	t.hitStreak = 0

	switch t.state {
	case Tentative:
		t.state = Removed

	case Confirmed:
		t.state = Lost

	case Lost:
		// stays Lost until tolerance runs out
	}

	if t.state == Lost && t.timeSinceUpdate > maxLostFrames {
		t.state = Removed
	}
}

// refreshRect derives the box from the cxcywh state mean
func (t *Track) refreshRect() {
	t.rect.SetWidth(t.mean[2])
	t.rect.SetHeight(t.mean[3])
	t.rect.SetX(t.mean[0] - t.mean[2]/2)
	t.rect.SetY(t.mean[1] - t.mean[3]/2)
}

// GetTrackID returns the unique identity of the track
func (t *Track) GetTrackID() int64 {
	return t.id
}

// GetState returns the current lifecycle state
func (t *Track) GetState() TrackState {
	return t.state
}

// GetRect returns the current smoothed bounding box
func (t *Track) GetRect() *Rect {
	return &t.rect
}

// GetScore returns the confidence of the last matched detection
func (t *Track) GetScore() float32 {
	return t.score
}

// GetLabel returns the class label of the last matched detection
func (t *Track) GetLabel() int {
	return t.label
}

// GetAge returns the number of frames since the track was created
func (t *Track) GetAge() int {
	return t.age
}

// GetHitStreak returns the number of consecutive matched frames
func (t *Track) GetHitStreak() int {
	return t.hitStreak
}

// GetTimeSinceUpdate returns the number of consecutive missed frames
func (t *Track) GetTimeSinceUpdate() int {
	return t.timeSinceUpdate
}

// GetStartFrameID returns the frame the track was created on
func (t *Track) GetStartFrameID() int64 {
	return t.startFrameID
}

// GetFrameID returns the frame of the last match
func (t *Track) GetFrameID() int64 {
	return t.frameID
}

// Gallery returns the appearance feature history of the track
func (t *Track) Gallery() *Gallery {
	return t.gallery
}

// Stationary reports whether the track center is moving slower than
// threshold pixels per frame
func (t *Track) Stationary(threshold float32) bool {
	return Stationary(t.mean, threshold)
}

// IsStationary reports whether the track center is moving slower than the
// StationaryThresh the tracker was configured with
func (t *Track) IsStationary() bool {
	return Stationary(t.mean, t.stationaryThresh)
}
