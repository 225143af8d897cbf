package bytetrack

// Gallery is a bounded ring buffer of past appearance features for one
// track.  Once full, adding a feature overwrites the oldest entry.  It also
// maintains an EMA smoothed feature for consumers that want a single
// representative embedding.
type Gallery struct {
	items []Feature
	// head is the slot the next Add writes to
	head int
	// size is the number of stored features, at most len(items)
	size   int
	smooth Feature
	alpha  float32
}

// NewGallery creates a Gallery holding up to capacity features, with alpha
// as the EMA smoothing factor applied on each Add
func NewGallery(capacity int, alpha float32) *Gallery {
	if capacity < 1 {
		capacity = 1
	}
	return &Gallery{
		items: make([]Feature, capacity),
		alpha: alpha,
	}
}

// Size returns the number of features currently stored
func (g *Gallery) Size() int {
	return g.size
}

// Capacity returns the maximum number of features the gallery holds
func (g *Gallery) Capacity() int {
	return len(g.items)
}

// Add normalizes the feature, stores it in the ring and folds it into the
// smoothed embedding
func (g *Gallery) Add(feat Feature) {

	if len(feat) == 0 {
		return
	}

	normFeat := NormalizeVec(feat)

	g.items[g.head] = normFeat
	g.head = (g.head + 1) % len(g.items)

	if g.size < len(g.items) {
		g.size++
	}

	if g.smooth == nil {
		g.smooth = make(Feature, len(normFeat))
		copy(g.smooth, normFeat)

	} else {
		for i := range normFeat {
			g.smooth[i] = g.alpha*g.smooth[i] + (1-g.alpha)*normFeat[i]
		}
		g.smooth = NormalizeVec(g.smooth)
	}
}

// Items returns the stored features in oldest first order
func (g *Gallery) Items() []Feature {

	out := make([]Feature, 0, g.size)

	for i := 0; i < g.size; i++ {
		idx := (g.head - g.size + i + len(g.items)) % len(g.items)
		out = append(out, g.items[idx])
	}

	return out
}

// Smooth returns the EMA smoothed embedding, or nil if nothing has been
// added yet
func (g *Gallery) Smooth() Feature {
	return g.smooth
}

// Distance compares a detection feature against all stored features and
// returns the best (smallest) cosine distance.  An empty gallery returns
// the neutral maximum of 1.0.
func (g *Gallery) Distance(detFeat Feature) float32 {

	if g.size == 0 || len(detFeat) == 0 {
		return 1.0 // max distance
	}

	detNorm := NormalizeVec(detFeat)
	best := float32(2.0)

	for i := 0; i < g.size; i++ {
		idx := (g.head - g.size + i + len(g.items)) % len(g.items)
		d := CosineDistance(g.items[idx], detNorm)

		if d < best {
			best = d
		}
	}

	return best
}
