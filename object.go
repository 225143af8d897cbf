package bytetrack

// Object represents a detection fed to the tracker for one frame
type Object struct {
	// Rect is the bounding box of the detection
	Rect Rect
	// Label is the class label of the detection
	Label int
	// Score is the confidence of the detection, used to split detections
	// into the high and low association buckets
	Score float32
	// Feature is an optional appearance embedding.  It is consumed by the
	// appearance cue during association and may be filled in by the tracker
	// itself when a FeatureExtractor is configured.
	Feature Feature
}

// NewObject is a constructor function for the Object struct
func NewObject(rect Rect, label int, score float32) Object {
	return Object{
		Rect:  rect,
		Label: label,
		Score: score,
	}
}
