package bytetrack

// CueCombination selects how the IoU and appearance cues are fused into a
// single cost when both are available for a track/detection pair
type CueCombination int

const (
	// CombineMinimum takes the smaller of the IoU cost and the weighted
	// appearance cost
	CombineMinimum CueCombination = iota
	// CombineWeighted blends the two costs by AppearanceWeight
	CombineWeighted
)

// Assignment selects the algorithm used to solve each association stage
type Assignment int

const (
	// AssignGreedy repeatedly takes the globally cheapest remaining pair.
	// Ties break toward the lowest track identity, so results are
	// deterministic
	AssignGreedy Assignment = iota
	// AssignHungarian solves each stage optimally with the Kuhn-Munkres
	// algorithm
	AssignHungarian
)

// Config holds all tracker tuning parameters.  Zero values are replaced by
// the DefaultConfig values when passed to NewTracker, so callers only need
// to set the fields they want to change.
type Config struct {
	// HighScoreThresh splits detections into the high and low confidence
	// association buckets
	HighScoreThresh float32
	// LowScoreThresh is the floor of the low bucket, detections scoring
	// below it are discarded
	LowScoreThresh float32
	// HighIoUGate is the minimum IoU for a first stage or tentative stage
	// match
	HighIoUGate float32
	// LowIoUGate is the minimum IoU for a rescue stage match against low
	// confidence detections
	LowIoUGate float32
	// AppearanceGate is the maximum cosine distance for the appearance cue
	// to count as a match
	AppearanceGate float32
	// AppearanceWeight is the appearance share used by the cue combination
	// rules
	AppearanceWeight float32
	// CueCombination is the rule fusing IoU and appearance costs
	CueCombination CueCombination
	// Assignment is the stage assignment algorithm
	Assignment Assignment
	// MinHits is the hit streak needed before a tentative track is
	// confirmed.  The default of 1 confirms tracks on their first match
	MinHits int
	// MaxLostFrames is the number of consecutive missed frames tolerated
	// before a track is removed
	MaxLostFrames int
	// StdWeightPosition is the Kalman filter position noise weight.  Lower
	// values trust the detector more
	StdWeightPosition float32
	// StdWeightVelocity is the Kalman filter velocity noise weight
	StdWeightVelocity float32
	// VelocityDecay damps track velocity each frame so lost tracks coast
	// to a stop.  Must be in (0, 1]
	VelocityDecay float32
	// StationaryThresh is the speed in pixels per frame below which a
	// track reports as stationary
	StationaryThresh float32
	// GalleryCapacity is the number of past appearance features kept per
	// track
	GalleryCapacity int
	// GalleryAlpha is the EMA factor for the smoothed gallery feature
	GalleryAlpha float32
	// AppearanceInterval extracts features every N frames when a
	// FeatureExtractor is configured, 1 extracts every frame
	AppearanceInterval int
	// AppearanceMaxPerFrame caps how many detections get features
	// extracted in one frame
	AppearanceMaxPerFrame int
}

// DefaultConfig returns the tracker defaults.  They suit 25-30 FPS video
// with a detector emitting scores in the 0-1 range.
func DefaultConfig() Config {
	return Config{
		HighScoreThresh:       0.4,
		LowScoreThresh:        0.1,
		HighIoUGate:           0.4,
		LowIoUGate:            0.3,
		AppearanceGate:        0.35,
		AppearanceWeight:      0.6,
		CueCombination:        CombineMinimum,
		Assignment:            AssignGreedy,
		MinHits:               1,
		MaxLostFrames:         60,
		StdWeightPosition:     1.0 / 20,
		StdWeightVelocity:     1.0 / 160,
		VelocityDecay:         0.95,
		StationaryThresh:      2.0,
		GalleryCapacity:       30,
		GalleryAlpha:          0.9,
		AppearanceInterval:    1,
		AppearanceMaxPerFrame: 32,
	}
}

// withDefaults fills zero valued fields from DefaultConfig
func (c Config) withDefaults() Config {

	def := DefaultConfig()

	if c.HighScoreThresh == 0 {
		c.HighScoreThresh = def.HighScoreThresh
	}

	if c.LowScoreThresh == 0 {
		c.LowScoreThresh = def.LowScoreThresh
	}

	if c.HighIoUGate == 0 {
		c.HighIoUGate = def.HighIoUGate
	}

	if c.LowIoUGate == 0 {
		c.LowIoUGate = def.LowIoUGate
	}

	if c.AppearanceGate == 0 {
		c.AppearanceGate = def.AppearanceGate
	}

	if c.AppearanceWeight == 0 {
		c.AppearanceWeight = def.AppearanceWeight
	}

	if c.MinHits == 0 {
		c.MinHits = def.MinHits
	}

	if c.MaxLostFrames == 0 {
		c.MaxLostFrames = def.MaxLostFrames
	}

	if c.StdWeightPosition == 0 {
		c.StdWeightPosition = def.StdWeightPosition
	}

	if c.StdWeightVelocity == 0 {
		c.StdWeightVelocity = def.StdWeightVelocity
	}

	if c.VelocityDecay == 0 {
		c.VelocityDecay = def.VelocityDecay
	}

	if c.StationaryThresh == 0 {
		c.StationaryThresh = def.StationaryThresh
	}

	if c.GalleryCapacity == 0 {
		c.GalleryCapacity = def.GalleryCapacity
	}

	if c.GalleryAlpha == 0 {
		c.GalleryAlpha = def.GalleryAlpha
	}

	if c.AppearanceInterval == 0 {
		c.AppearanceInterval = def.AppearanceInterval
	}

	if c.AppearanceMaxPerFrame == 0 {
		c.AppearanceMaxPerFrame = def.AppearanceMaxPerFrame
	}

	return c
}
