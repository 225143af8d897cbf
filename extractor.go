package bytetrack

import (
	"errors"
	"fmt"
	"sync"

	"github.com/swdee/go-bytetrack/affine"
)

// FeatureExtractor computes appearance embeddings for detection regions of
// a frame.  Implementations must return one feature per rect in the same
// order, and must be safe for use from the tracker goroutine only.
type FeatureExtractor interface {
	Extract(frame *affine.Raster, rects []Rect) ([]Feature, error)
}

const (
	// defaultPatchSize is the square patch regions are resampled to
	defaultPatchSize = 32
	// defaultBins is the histogram resolution per channel
	defaultBins = 8
)

// HistogramExtractor embeds a region as its L2 normalized per channel
// intensity histogram.  It is a classical, model free embedder: regions
// are warped to a fixed patch first so the histogram does not depend on
// the region size, only on its content.
type HistogramExtractor struct {
	// PatchSize is the square size regions are warped to before binning
	PatchSize int
	// Bins is the number of histogram buckets per channel
	Bins int
}

// NewHistogramExtractor returns a HistogramExtractor with the default
// patch size and bin count
func NewHistogramExtractor() *HistogramExtractor {
	return &HistogramExtractor{
		PatchSize: defaultPatchSize,
		Bins:      defaultBins,
	}
}

// Extract computes one feature per rect, running the regions in parallel.
// A degenerate rect with non-positive size yields a nil feature, which the
// association treats as no appearance cue.
func (h *HistogramExtractor) Extract(frame *affine.Raster,
	rects []Rect) ([]Feature, error) {

	if frame == nil {
		return nil, errors.New("nil frame")
	}

	patchSize := h.PatchSize

	if patchSize <= 0 {
		patchSize = defaultPatchSize
	}

	bins := h.Bins

	if bins <= 0 {
		bins = defaultBins
	}

	features := make([]Feature, len(rects))

	var wg sync.WaitGroup
	errCh := make(chan error, len(rects))

	for i := range rects {
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()

			feat, err := embedRegion(frame, rects[idx], patchSize, bins)

			if err != nil {
				errCh <- err
				return
			}

			features[idx] = feat
			errCh <- nil
		}(i)
	}

	wg.Wait()
	close(errCh)

	// if any region failed, just bail
	for e := range errCh {
		if e != nil {
			return nil, fmt.Errorf("histogram extraction error: %w", e)
		}
	}

	return features, nil
}

// embedRegion warps one region to the fixed patch and bins it
func embedRegion(frame *affine.Raster, rect Rect, patchSize,
	bins int) (Feature, error) {

	if rect.Width() <= 0 || rect.Height() <= 0 {
		// degenerate region carries no appearance signal
		return nil, nil
	}

	patch := affine.NewRaster(patchSize, patchSize, frame.Channels)

	// map the region onto the patch: shift the region corner to the origin,
	// then scale it to the patch size
	m := affine.Scaling(float32(patchSize)/rect.Width(),
		float32(patchSize)/rect.Height()).
		Compose(affine.Translation(-rect.X(), -rect.Y()))

	err := affine.Warp(frame, patch, m, affine.InterpBilinear,
		affine.Border{Mode: affine.BorderReplicate})

	if err != nil {
		return nil, err
	}

	// accumulate one histogram per channel
	feat := make(Feature, frame.Channels*bins)

	for i, v := range patch.Pix {
		c := i % patch.Channels
		bin := int(v) * bins / 256
		feat[c*bins+bin]++
	}

	return NormalizeVec(feat), nil
}
