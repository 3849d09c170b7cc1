package slic

import (
	"fmt"
	"math"
)

// Channels is the number of samples per pixel in a Raster.
const Channels = 3

// Dimensionality tells whether a raster is a single plane or a stack of planes.
type Dimensionality int

const (
	Planar Dimensionality = iota + 2
	// Volumetric rasters are recognised but not segmented.
	Volumetric
)

func (d Dimensionality) String() string {
	switch d {
	case Planar:
		return "2D"
	case Volumetric:
		return "3D"
	default:
		return fmt.Sprintf("Dimensionality(%d)", int(d))
	}
}

// Raster is a 3-channel feature image, usually CIE-Lab.
type Raster struct {
	W, H int
	D    int       // Planes. 0 and 1 both mean a single plane.
	Pix  []float32 // Interleaved, row-major, len = W*H*3 for planar rasters
}

func NewRaster(w, h int) Raster {
	return Raster{W: w, H: h, Pix: make([]float32, w*h*Channels)}
}

func (r Raster) Dimensionality() Dimensionality {
	if r.D > 1 {
		return Volumetric
	}
	return Planar
}

func (r Raster) At(x, y int) [Channels]float32 {
	off := pixOffset(r.W, x, y)
	return [Channels]float32{r.Pix[off], r.Pix[off+1], r.Pix[off+2]}
}

func (r Raster) Set(x, y int, v [Channels]float32) {
	off := pixOffset(r.W, x, y)
	r.Pix[off] = v[0]
	r.Pix[off+1] = v[1]
	r.Pix[off+2] = v[2]
}

func (r Raster) Clone() Raster {
	c := r
	c.Pix = append([]float32(nil), r.Pix...)
	return c
}

func (r Raster) validate() error {
	if r.W <= 0 || r.H <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptyRaster, r.W, r.H)
	}
	if d := r.Dimensionality(); d != Planar {
		return fmt.Errorf("%w: %s with %d planes", ErrUnsupportedDimensionality, d, r.D)
	}
	if want := r.W * r.H * Channels; len(r.Pix) != want {
		return fmt.Errorf("%w: have %d samples, want %d", ErrRasterSize, len(r.Pix), want)
	}
	for i, v := range r.Pix {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			p := i / Channels
			return fmt.Errorf("%w at (%d,%d)", ErrInvalidSample, p%r.W, p/r.W)
		}
	}
	return nil
}

// LabelImage is a dense per-pixel labelling.
type LabelImage struct {
	W, H   int
	Labels []int // len = W*H
}

func (li LabelImage) At(x, y int) int {
	return li.Labels[labelOffset(li.W, x, y)]
}

// Histogram returns the pixel count of every label from 0 to the maximum label.
func (li LabelImage) Histogram() []int {
	maxLabel := -1
	for _, v := range li.Labels {
		maxLabel = max(maxLabel, v)
	}
	hist := make([]int, maxLabel+1)
	for _, v := range li.Labels {
		if v >= 0 {
			hist[v]++
		}
	}
	return hist
}

// Boundary reports whether a 4-neighbour of (x, y) carries a different label.
func (li LabelImage) Boundary(x, y int) bool {
	l := li.At(x, y)
	for n := range 4 {
		nx, ny := x+dx4[n], y+dy4[n]
		if nx < 0 || nx >= li.W || ny < 0 || ny >= li.H {
			continue
		}
		if li.At(nx, ny) != l {
			return true
		}
	}
	return false
}

func pixOffset(w, x, y int) int {
	return (y*w + x) * Channels
}

func labelOffset(w, x, y int) int {
	return y*w + x
}
