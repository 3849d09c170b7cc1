// Package slic partitions a 3-channel raster into compact superpixels with
// Simple Linear Iterative Clustering and a connectivity enforcement pass.
package slic

import (
	"fmt"
	"image"
	"math"
	"runtime"

	"gonum.org/v1/gonum/mat"
)

// MinGridSize is the smallest accepted seeding step.
const MinGridSize = 5

type Options struct {
	// Initial spacing between seeded cluster centers, also the half width of
	// every cluster's search window. Values below MinGridSize are raised to it.
	// Ideal start: 20-40 for microscopy tiles.
	GridSize int
	// Weight of the spatial term. Higher => compact, grid-like superpixels;
	// 0 => pure colour clustering inside each window. Negative values become 0.
	// Ideal start: 0.1-0.3 on CIE-Lab rasters.
	Regularization float64
	// Upper bound on assignment/update iterations.
	MaxIter int
	// Iteration stops once the residual improves by less than
	// ErrorThreshold * initial residual.
	ErrorThreshold float64
	// Goroutines per parallel phase. 0 => runtime.GOMAXPROCS(0).
	Workers int
}

func DefaultOptions() Options {
	return Options{
		GridSize:       30,
		Regularization: 0.2,
		MaxIter:        9,
		ErrorThreshold: 0.1,
	}
}

// OptionsFromSize picks a grid size that yields a few hundred superpixels.
func OptionsFromSize(size image.Point) Options {
	opt := DefaultOptions()
	if size.X <= 0 || size.Y <= 0 {
		return opt
	}
	pixels := size.X * size.Y
	n := 400
	if pixels <= 256*256 {
		n = 150
	} else if pixels > 1920*1080 {
		n = 1200
	}
	opt.GridSize = GridSizeForCount(size.X, size.Y, n)
	return opt
}

// GridSizeForCount returns the grid size giving roughly n superpixels on a
// w x h image, never below MinGridSize.
func GridSizeForCount(w, h, n int) int {
	if n <= 0 || w <= 0 || h <= 0 {
		return MinGridSize
	}
	step := int(math.Sqrt(float64(w*h)/float64(n)) + 0.5)
	return max(MinGridSize, step)
}

func (o Options) normalized() Options {
	o.GridSize = max(o.GridSize, MinGridSize)
	o.Regularization = max(o.Regularization, 0)
	o.MaxIter = max(o.MaxIter, 0)
	o.ErrorThreshold = max(o.ErrorThreshold, 0)
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Engine runs SLIC over a fixed raster. An Engine is not safe for concurrent
// use; Run parallelises internally.
type Engine struct {
	raster    Raster
	labels    []int
	distances []float64
	centers   []center
	cache     penaltyCache

	gridSize int
	factor   float64
	workers  int

	nbLabels   int
	initErr    float64
	residuals  []float64
	iterations int
}

// New validates the raster and allocates the per-pixel state. The raster is
// retained and must not be modified while the Engine is in use.
func New(raster Raster) (*Engine, error) {
	if err := raster.validate(); err != nil {
		return nil, err
	}
	sz := raster.W * raster.H
	return &Engine{
		raster:    raster,
		labels:    make([]int, sz),
		distances: make([]float64, sz),
	}, nil
}

// Run seeds the clusters, iterates assignment and update until convergence
// or opt.MaxIter, then enforces label connectivity. Parameters out of range
// are clamped. The only error is a failure inside a worker.
func (e *Engine) Run(opt Options) error {
	opt = e.configure(opt)

	log := Logger()
	log.Info("slic: run",
		"width", e.raster.W, "height", e.raster.H,
		"gridSize", e.gridSize, "regularization", opt.Regularization,
		"workers", e.workers)

	if err := e.seed(); err != nil {
		return fmt.Errorf("slic: seeding: %w", err)
	}
	e.initErr = e.residual()
	log.Debug("slic: seeded", "clusters", len(e.centers), "residual", e.initErr)

	lastErr := math.MaxFloat64
	for i := range opt.MaxIter {
		if err := e.assign(); err != nil {
			return err
		}
		resid := e.residual()
		e.residuals = append(e.residuals, resid)
		e.iterations = i + 1
		log.Debug("slic: iteration", "iter", i+1, "residual", resid)

		if err := e.update(); err != nil {
			return err
		}

		if lastErr-resid < e.initErr*opt.ErrorThreshold {
			log.Info("slic: converged", "iter", i+1, "improvement", lastErr-resid)
			break
		}
		lastErr = resid
	}

	nlabels, n := enforceConnectivity(e.labels, e.raster.W, e.raster.H, e.gridSize*e.gridSize)
	e.labels = nlabels
	e.nbLabels = n
	log.Info("slic: done", "labels", n, "iterations", e.iterations)
	return nil
}

func (e *Engine) configure(opt Options) Options {
	opt = opt.normalized()
	e.gridSize = opt.GridSize
	// Following VLFeat, regularization is squared and scaled by the grid size.
	e.factor = opt.Regularization * opt.Regularization * float64(opt.GridSize)
	e.workers = opt.Workers
	e.residuals = e.residuals[:0]
	e.iterations = 0
	return opt
}

// Labels returns a copy of the current label grid.
func (e *Engine) Labels() LabelImage {
	return LabelImage{
		W:      e.raster.W,
		H:      e.raster.H,
		Labels: append([]int(nil), e.labels...),
	}
}

// LabelCount returns the number of labels after the last Run; labels are
// dense in [0, LabelCount()).
func (e *Engine) LabelCount() int {
	return e.nbLabels
}

// Raster returns a copy of the feature raster.
func (e *Engine) Raster() Raster {
	return e.raster.Clone()
}

// Centers returns the cluster table of the last Run as an nbClusters x 5
// matrix with rows [c0, c1, c2, x, y].
func (e *Engine) Centers() *mat.Dense {
	if len(e.centers) == 0 {
		return nil
	}
	m := mat.NewDense(len(e.centers), Channels+2, nil)
	for k, c := range e.centers {
		m.SetRow(k, []float64{c.color[0], c.color[1], c.color[2], c.x, c.y})
	}
	return m
}

// Residuals returns the residual error measured after each assignment phase.
func (e *Engine) Residuals() []float64 {
	return append([]float64(nil), e.residuals...)
}

// InitialResidual is the residual of the seeded grid labelling.
func (e *Engine) InitialResidual() float64 {
	return e.initErr
}

// Iterations returns how many assignment/update rounds the last Run executed.
func (e *Engine) Iterations() int {
	return e.iterations
}
