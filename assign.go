package slic

import "math"

// unassigned is the distance every pixel starts an assignment phase with.
const unassigned = math.MaxFloat64

// penaltyCache holds the spatial term of the SLIC distance for every offset
// inside a (2*gridSize+1)^2 search window:
//
//	values[i*size+j] = ((i-gridSize)^2 + (j-gridSize)^2) * factor
type penaltyCache struct {
	gridSize int
	factor   float64
	size     int
	values   []float64
}

func (c *penaltyCache) reset() {
	c.values = nil
}

func (c *penaltyCache) valid(gridSize int, factor float64) bool {
	return c.values != nil && c.gridSize == gridSize && c.factor == factor
}

// ensure rebuilds the cache when it is empty or was built for another grid
// size or factor. It must run before the assignment workers start.
func (c *penaltyCache) ensure(gridSize int, factor float64) bool {
	if c.valid(gridSize, factor) {
		return false
	}
	size := 2*gridSize + 1
	values := make([]float64, size*size)
	for i := range size {
		di := float64(i - gridSize)
		for j := range size {
			dj := float64(j - gridSize)
			values[i*size+j] = (di*di + dj*dj) * factor
		}
	}
	c.gridSize, c.factor, c.size, c.values = gridSize, factor, size, values
	Logger().Debug("slic: penalty cache rebuilt", "gridSize", gridSize, "factor", factor)
	return true
}

func (c *penaltyCache) at(i, j int) float64 {
	return c.values[i*c.size+j]
}

// ============ ASSIGNMENT ============

// assign relabels every pixel with the cluster of minimal distance among the
// clusters whose window covers it. Workers own disjoint column ranges.
func (e *Engine) assign() error {
	e.cache.ensure(e.gridSize, e.factor)
	for i := range e.distances {
		e.distances[i] = unassigned
	}
	if err := forkJoin("assignment", partition(e.raster.W, e.workers), e.assignColumns); err != nil {
		return err
	}
	if n := e.coverUnassigned(); n > 0 {
		Logger().Warn("slic: pixels outside every cluster window", "pixels", n)
	}
	return nil
}

// coverUnassigned handles pixels no window reached after centroids drifted.
// They keep their previous label and get the full distance to that cluster,
// so the residual stays finite.
func (e *Engine) coverUnassigned() int {
	w := e.raster.W
	n := 0
	for p, d := range e.distances {
		if d != unassigned {
			continue
		}
		e.distances[p] = e.pixelDistance(p%w, p/w, e.centers[e.labels[p]])
		n++
	}
	return n
}

// assignColumns visits every cluster in ascending index order but only writes
// pixels with x in [s.start, s.end).
func (e *Engine) assignColumns(s span) {
	var (
		w, h   = e.raster.W, e.raster.H
		pix    = e.raster.Pix
		g      = e.gridSize
		cache  = e.cache
		values = cache.values
		size   = cache.size
	)
	for k, c := range e.centers {
		cx, cy := int(c.x), int(c.y)
		x0, x1 := max(s.start, cx-g), min(cx+g, s.end)
		y0, y1 := max(0, cy-g), min(cy+g, h)
		if x0 >= x1 || y0 >= y1 {
			continue
		}
		for y := y0; y < y1; y++ {
			j := cy - y + g
			for x := x0; x < x1; x++ {
				i := cx - x + g
				off := pixOffset(w, x, y)
				d0 := float64(pix[off]) - c.color[0]
				d1 := float64(pix[off+1]) - c.color[1]
				d2 := float64(pix[off+2]) - c.color[2]
				dist := d0*d0 + d1*d1 + d2*d2 + values[i*size+j]
				p := labelOffset(w, x, y)
				if dist < e.distances[p] {
					e.distances[p] = dist
					e.labels[p] = k
				}
			}
		}
	}
}
