package slic

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyRaster is returned when the raster has no rows or no columns.
	ErrEmptyRaster = errors.New("slic: empty raster")
	// ErrRasterSize is returned when the sample buffer does not match W*H*3.
	ErrRasterSize = errors.New("slic: raster buffer size mismatch")
	// ErrInvalidSample is returned when the raster holds NaN or infinite samples.
	ErrInvalidSample = errors.New("slic: raster contains NaN or Inf sample")
	// ErrUnsupportedDimensionality is returned for multi-plane (volumetric) rasters.
	ErrUnsupportedDimensionality = errors.New("slic: unsupported raster dimensionality")
)

// WorkerError reports a panic raised inside one worker of a parallel phase.
type WorkerError struct {
	Phase      string
	Start, End int
	Value      any
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("slic: %s worker [%d,%d) failed: %v", e.Phase, e.Start, e.End, e.Value)
}

// Unwrap returns the panic value when it was an error.
func (e *WorkerError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
