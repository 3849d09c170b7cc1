package slic

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

type center struct {
	color [Channels]float64
	x, y  float64
}

type accumulator struct {
	c0, c1, c2, sx, sy float64
	count              int
}

// ============ SEEDING ============

// seed labels the image by a regular grid of gridSize tiles, derives the
// first centroids from it and fills distances with each pixel's distance to
// its seeded cluster.
func (e *Engine) seed() error {
	w, h, g := e.raster.W, e.raster.H, e.gridSize
	maxColumn := ceilDiv(w, g)
	nbClusters := maxColumn * ceilDiv(h, g)
	e.centers = make([]center, nbClusters)
	for y := range h {
		for x := range w {
			e.labels[labelOffset(w, x, y)] = (y/g)*maxColumn + x/g
		}
	}
	if err := e.update(); err != nil {
		return err
	}
	e.cache.reset()

	for y := range h {
		for x := range w {
			p := labelOffset(w, x, y)
			e.distances[p] = e.pixelDistance(x, y, e.centers[e.labels[p]])
		}
	}
	return nil
}

// pixelDistance is the SLIC distance without the window restriction, with the
// same truncated centroid position the penalty cache uses.
func (e *Engine) pixelDistance(x, y int, c center) float64 {
	off := pixOffset(e.raster.W, x, y)
	pix := e.raster.Pix
	d0 := float64(pix[off]) - c.color[0]
	d1 := float64(pix[off+1]) - c.color[1]
	d2 := float64(pix[off+2]) - c.color[2]
	dx := float64(x - int(c.x))
	dy := float64(y - int(c.y))
	return d0*d0 + d1*d1 + d2*d2 + (dx*dx+dy*dy)*e.factor
}

// ============ UPDATE ============

// update recomputes every centroid from the current labels. Workers own
// disjoint cluster index ranges and each one scans the whole image, so no
// accumulator is shared between goroutines.
func (e *Engine) update() error {
	acc := make([]accumulator, len(e.centers))
	return forkJoin("update", partition(len(e.centers), e.workers), func(s span) {
		e.updateClusters(s, acc)
	})
}

func (e *Engine) updateClusters(s span, acc []accumulator) {
	w, h := e.raster.W, e.raster.H
	pix := e.raster.Pix
	for y := range h {
		for x := range w {
			k := e.labels[labelOffset(w, x, y)]
			if k < s.start || k >= s.end {
				continue
			}
			off := pixOffset(w, x, y)
			a := &acc[k]
			a.c0 += float64(pix[off])
			a.c1 += float64(pix[off+1])
			a.c2 += float64(pix[off+2])
			a.sx += float64(x)
			a.sy += float64(y)
			a.count++
		}
	}
	for k := s.start; k < s.end; k++ {
		a := acc[k]
		// Empty clusters keep their previous centroid.
		if a.count == 0 {
			continue
		}
		n := float64(a.count)
		e.centers[k] = center{
			color: [Channels]float64{a.c0 / n, a.c1 / n, a.c2 / n},
			x:     a.sx / n,
			y:     a.sy / n,
		}
	}
}

// residual is the sum of every pixel's distance to its assigned cluster.
func (e *Engine) residual() float64 {
	return floats.Sum(e.distances)
}

func ceilDiv(a, b int) int {
	return int(math.Ceil(float64(a) / float64(b)))
}
