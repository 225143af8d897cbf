package bytetrack

import (
	"math"
	"sort"
	"sync"

	"github.com/arthurkushman/go-hungarian"
)

// costInf marks a gated track/detection pair that may never be matched
var costInf = float32(math.Inf(1))

// profitCeiling exceeds every finite association cost.  IoU costs stay
// within [0, 1] and cosine distances within [0, 2], so flipping finite
// costs against this bound keeps every real pair above the zero profit
// of padded and gated cells in the maximization
const profitCeiling = 2.5

// matchPair holds a matched track row and detection column after an
// assignment stage
type matchPair struct {
	track int
	det   int
}

// iouCost returns 1 - IoU between the track box and the detection box,
// gated to +Inf when the overlap falls below minIoU
func iouCost(track *Track, obj Object, minIoU float32) float32 {

	iou := track.GetRect().CalcIoU(obj.Rect)

	if iou < minIoU {
		return costInf
	}

	return 1 - iou
}

// appearanceCost returns the best cosine distance between the detection
// feature and the track gallery, gated to +Inf when above maxDist.  A track
// without gallery entries or a detection without a feature has no
// appearance cue and also returns +Inf.
func appearanceCost(track *Track, obj Object, maxDist float32) float32 {

	if track.Gallery().Size() == 0 || len(obj.Feature) == 0 {
		return costInf
	}

	dist := track.Gallery().Distance(obj.Feature)

	if dist > maxDist {
		return costInf
	}

	return dist
}

// fillRows runs fill for every row index on its own goroutine and waits for
// all of them.  Each worker writes only its own row, so no locking is
// needed and results do not depend on scheduling order.
func fillRows(rows int, fill func(row int)) {

	var wg sync.WaitGroup

	for i := 0; i < rows; i++ {
		wg.Add(1)

		go func(row int) {
			defer wg.Done()
			fill(row)
		}(i)
	}

	wg.Wait()
}

// iouCostMatrix builds the motion only cost matrix with tracks as rows and
// detections as columns
func iouCostMatrix(tracks []*Track, objects []Object, minIoU float32) [][]float32 {

	cost := make([][]float32, len(tracks))

	fillRows(len(tracks), func(row int) {

		cost[row] = make([]float32, len(objects))

		for col, obj := range objects {
			cost[row][col] = iouCost(tracks[row], obj, minIoU)
		}
	})

	return cost
}

// combinedCostMatrix builds the first stage cost matrix fusing the IoU and
// appearance cues per the configured combination rule.  A pair gated on
// both cues stays at +Inf regardless of the rule.
func combinedCostMatrix(tracks []*Track, objects []Object, cfg *Config) [][]float32 {

	cost := make([][]float32, len(tracks))

	fillRows(len(tracks), func(row int) {

		cost[row] = make([]float32, len(objects))

		for col, obj := range objects {

			iou := iouCost(tracks[row], obj, cfg.HighIoUGate)
			app := appearanceCost(tracks[row], obj, cfg.AppearanceGate)

			cost[row][col] = combineCues(iou, app, cfg)
		}
	})

	return cost
}

// combineCues fuses one IoU cost and one appearance cost into the cell
// value used by assignment
func combineCues(iou, app float32, cfg *Config) float32 {

	iouOK := iou < costInf
	appOK := app < costInf

	switch {
	case iouOK && appOK:
		if cfg.CueCombination == CombineWeighted {
			return cfg.AppearanceWeight*app + (1-cfg.AppearanceWeight)*iou
		}

		weighted := cfg.AppearanceWeight * app

		if weighted < iou {
			return weighted
		}

		return iou

	case iouOK:
		return iou

	case appOK:
		return cfg.AppearanceWeight * app

	default:
		return costInf
	}
}

// solveAssignment matches track rows to detection columns, never pairing a
// gated cell, and reports the leftover indexes on both sides
func solveAssignment(cost [][]float32, tracks []*Track, numDets int,
	algo Assignment) (matches []matchPair, unmatchedTracks, unmatchedDets []int) {

	if len(tracks) > 0 && numDets > 0 {
		if algo == AssignHungarian {
			matches = solveHungarianAssignment(cost, numDets)
		} else {
			matches = solveGreedyAssignment(cost, tracks, numDets)
		}
	}

	matchedRow := make([]bool, len(tracks))
	matchedCol := make([]bool, numDets)

	for _, m := range matches {
		matchedRow[m.track] = true
		matchedCol[m.det] = true
	}

	for i := range tracks {
		if !matchedRow[i] {
			unmatchedTracks = append(unmatchedTracks, i)
		}
	}

	for j := 0; j < numDets; j++ {
		if !matchedCol[j] {
			unmatchedDets = append(unmatchedDets, j)
		}
	}

	return matches, unmatchedTracks, unmatchedDets
}

// greedyCandidate is one finite cost matrix cell up for greedy selection
type greedyCandidate struct {
	cost    float32
	row     int
	col     int
	trackID int64
}

// solveGreedyAssignment repeatedly takes the globally cheapest remaining
// pair.  Cost ties break toward the lowest track identity and then the
// lowest detection index, which keeps the result deterministic no matter
// how the cost matrix was produced.
func solveGreedyAssignment(cost [][]float32, tracks []*Track,
	numDets int) []matchPair {

	candidates := make([]greedyCandidate, 0, len(tracks)*numDets)

	for i := range cost {
		for j, c := range cost[i] {

			if c < costInf {
				candidates = append(candidates, greedyCandidate{
					cost:    c,
					row:     i,
					col:     j,
					trackID: tracks[i].GetTrackID(),
				})
			}
		}
	}

	sort.Slice(candidates, func(a, b int) bool {

		if candidates[a].cost != candidates[b].cost {
			return candidates[a].cost < candidates[b].cost
		}

		if candidates[a].trackID != candidates[b].trackID {
			return candidates[a].trackID < candidates[b].trackID
		}

		return candidates[a].col < candidates[b].col
	})

	usedRow := make([]bool, len(cost))
	usedCol := make([]bool, numDets)

	var matches []matchPair

	for _, c := range candidates {

		if usedRow[c.row] || usedCol[c.col] {
			continue
		}

		usedRow[c.row] = true
		usedCol[c.col] = true

		matches = append(matches, matchPair{track: c.row, det: c.col})
	}

	return matches
}

// solveHungarianAssignment solves the stage optimally with Kuhn-Munkres.
// The solver maximizes profit over a square matrix, so finite costs are
// flipped against profitCeiling and the matrix is zero padded; assignments
// landing on padding or on gated cells are discarded afterwards.
func solveHungarianAssignment(cost [][]float32, numDets int) []matchPair {

	numTracks := len(cost)
	size := numTracks

	if numDets > size {
		size = numDets
	}

	profit := make([][]float64, size)

	for i := range profit {
		profit[i] = make([]float64, size)
	}

	for i := range cost {
		for j, c := range cost[i] {
			if c < costInf {
				profit[i][j] = float64(profitCeiling - c)
			}
		}
	}

	solution := hungarian.SolveMax(profit)

	var matches []matchPair

	for row, cols := range solution {

		if row >= numTracks {
			continue
		}

		for col := range cols {

			if col >= numDets {
				continue
			}

			if cost[row][col] < costInf {
				matches = append(matches, matchPair{track: row, det: col})
			}
		}
	}

	// the solver returns a map, order the matches for deterministic output
	sort.Slice(matches, func(a, b int) bool {
		return matches[a].track < matches[b].track
	})

	return matches
}
