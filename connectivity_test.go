package slic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// grid builds a row-major label slice from rows of equal length.
func grid(rows ...[]int) ([]int, int, int) {
	w, h := len(rows[0]), len(rows)
	out := make([]int, 0, w*h)
	for _, r := range rows {
		out = append(out, r...)
	}
	return out, w, h
}

func TestEnforceConnectivitySplitsDisconnectedLabel(t *testing.T) {
	// Label 1 appears in two separate blobs of 6 pixels; supsz 4 keeps
	// everything above 1 pixel.
	labels, w, h := grid(
		[]int{1, 1, 0, 0, 1, 1},
		[]int{1, 1, 0, 0, 1, 1},
		[]int{1, 1, 0, 0, 1, 1},
	)
	got, n := enforceConnectivity(labels, w, h, 4)
	assert.Equal(t, 3, n)
	want, _, _ := grid(
		[]int{0, 0, 1, 1, 2, 2},
		[]int{0, 0, 1, 1, 2, 2},
		[]int{0, 0, 1, 1, 2, 2},
	)
	assert.Equal(t, want, got)
	assert.Equal(t, []int{1, 1, 0, 0, 1, 1}, labels[:6], "input must not be modified")
}

func TestEnforceConnectivityAbsorbsSinglePixel(t *testing.T) {
	labels := make([]int, 100)
	labels[labelOffset(10, 5, 5)] = 1
	got, n := enforceConnectivity(labels, 10, 10, 100)
	assert.Equal(t, 1, n)
	for p, l := range got {
		assert.Equal(t, 0, l, "pixel %d", p)
	}
}

func TestEnforceConnectivityUsesLastNeighbourFound(t *testing.T) {
	// The lone 9 at (1,1) sees left=label 0 and up=label 0 as committed
	// neighbours; right and down belong to label 1's region, which the scan
	// reaches through row 0 before (1,1). Down is checked last and wins.
	labels, w, h := grid(
		[]int{5, 5, 6, 6, 6},
		[]int{5, 9, 6, 6, 6},
		[]int{6, 6, 6, 6, 6},
		[]int{6, 6, 6, 6, 6},
	)
	got, n := enforceConnectivity(labels, w, h, 8)
	// Region 5 has 3 pixels, 6 has 16 pixels, 9 has 1; limit is 8>>2 = 2.
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, got[labelOffset(w, 1, 1)])
	assert.Equal(t, 0, got[labelOffset(w, 0, 0)])
	assert.Equal(t, 1, got[labelOffset(w, 4, 3)])
}

func TestEnforceConnectivityOriginFallback(t *testing.T) {
	checker := make([]int, 12*12)
	for p := range checker {
		checker[p] = (p%12 + p/12) % 2
	}
	originOnly, ow, oh := grid(
		[]int{7, 3, 3, 3},
		[]int{3, 3, 3, 3},
		[]int{3, 3, 3, 3},
		[]int{3, 3, 3, 3},
	)

	tests := []struct {
		name   string
		labels []int
		w, h   int
		want   int
	}{
		// The undersized origin region takes label 0, which the next kept
		// region reuses.
		{"undersized origin", originOnly, ow, oh, 1},
		// Every region is a single pixel, far below supsz/4, on an image
		// much larger than supsz/4: nothing is kept, yet every pixel ends
		// up labelled 0.
		{"only undersized regions", checker, 12, 12, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, n := enforceConnectivity(tc.labels, tc.w, tc.h, 16)
			assert.Equal(t, tc.want, n)
			for _, l := range got {
				assert.Equal(t, 0, l)
			}
		})
	}
}

func TestEnforceConnectivityDenseLabels(t *testing.T) {
	e := mustEngine(t, blocksRaster(40, 40, 21))
	e.configure(Options{GridSize: 5, Regularization: 0.05, Workers: 2})
	assert.NoError(t, e.seed())
	assert.NoError(t, e.assign())

	got, n := enforceConnectivity(e.labels, 40, 40, 25)
	maxLabel := -1
	for _, l := range got {
		assert.GreaterOrEqual(t, l, 0)
		maxLabel = max(maxLabel, l)
	}
	assert.Equal(t, n, maxLabel+1)
}
