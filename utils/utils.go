package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"slices"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"

	"github.com/setanarut/slic"
)

// labScale maps go-colorful's L in [0,1] to the CIE range [0,100].
const labScale = 100.0

type PaletteMethod int

const (
	PaletteMethodDominantColor PaletteMethod = iota
	PaletteMethodKMeans
)

func (m PaletteMethod) String() string {
	switch m {
	case PaletteMethodKMeans:
		return "kmeans"
	default:
		return "dominantcolor"
	}
}

// ============ I/O ============

// ReadImage decodes PNG, JPEG, GIF, TIFF or BMP files.
func ReadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func SaveImage(img image.Image, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ============ RGB → LAB ============

// RasterFromImage converts any image into a CIE-Lab raster with L in
// [0,100]. Gray images produce a and b close to 0.
func RasterFromImage(img image.Image) slic.Raster {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	r := slic.NewRaster(w, h)
	for y := range h {
		for x := range w {
			c, ok := colorful.MakeColor(img.At(b.Min.X+x, b.Min.Y+y))
			if !ok {
				// Fully transparent pixel.
				c = colorful.Color{}
			}
			l, a, bb := c.Lab()
			r.Set(x, y, [slic.Channels]float32{
				float32(l * labScale),
				float32(a * labScale),
				float32(bb * labScale),
			})
		}
	}
	return r
}

func labToColorful(v [slic.Channels]float64) colorful.Color {
	return colorful.Lab(v[0]/labScale, v[1]/labScale, v[2]/labScale).Clamped()
}

// ============ OVERLAYS ============

// MeanColors returns the mean raster value of every label.
func MeanColors(r slic.Raster, labels slic.LabelImage) [][slic.Channels]float64 {
	hist := labels.Histogram()
	means := make([][slic.Channels]float64, len(hist))
	for y := range labels.H {
		for x := range labels.W {
			l := labels.At(x, y)
			if l < 0 {
				continue
			}
			v := r.At(x, y)
			for c := range slic.Channels {
				means[l][c] += float64(v[c])
			}
		}
	}
	for l, n := range hist {
		if n == 0 {
			continue
		}
		for c := range slic.Channels {
			means[l][c] /= float64(n)
		}
	}
	return means
}

// MeanColorImage paints every superpixel with its mean Lab colour.
func MeanColorImage(r slic.Raster, labels slic.LabelImage) *image.RGBA {
	means := MeanColors(r, labels)
	colors := make([]color.RGBA, len(means))
	for l, m := range means {
		cr, cg, cb := labToColorful(m).RGB255()
		colors[l] = color.RGBA{cr, cg, cb, 255}
	}
	return paintLabels(labels, colors)
}

// Posterize paints every superpixel with the palette colour closest to its
// mean colour in Lab distance.
func Posterize(r slic.Raster, labels slic.LabelImage, palette []colorful.Color) (*image.RGBA, error) {
	if len(palette) == 0 {
		return nil, errors.New("empty palette")
	}
	means := MeanColors(r, labels)
	colors := make([]color.RGBA, len(means))
	for l, m := range means {
		c := labToColorful(m)
		best, bestD := 0, c.DistanceLab(palette[0])
		for i := 1; i < len(palette); i++ {
			if d := c.DistanceLab(palette[i]); d < bestD {
				best, bestD = i, d
			}
		}
		pr, pg, pb := palette[best].Clamped().RGB255()
		colors[l] = color.RGBA{pr, pg, pb, 255}
	}
	return paintLabels(labels, colors), nil
}

func paintLabels(labels slic.LabelImage, colors []color.RGBA) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, labels.W, labels.H))
	for y := range labels.H {
		for x := range labels.W {
			if l := labels.At(x, y); l >= 0 && l < len(colors) {
				out.SetRGBA(x, y, colors[l])
			}
		}
	}
	return out
}

// DrawContours copies img and marks superpixel borders with col. A pixel is a
// border pixel when more than one of its 8 neighbours, not already marked,
// carries another label.
func DrawContours(img image.Image, labels slic.LabelImage, col color.Color) *image.RGBA {
	b := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(canvas, image.Point{}, img, b, draw.Src, nil)

	dx8 := [8]int{-1, -1, 0, 1, 1, 1, 0, -1}
	dy8 := [8]int{0, -1, -1, -1, 0, 1, 1, 1}
	w, h := labels.W, labels.H
	taken := make([]bool, w*h)
	var contour []image.Point
	for y := range h {
		for x := range w {
			l := labels.At(x, y)
			np := 0
			for i := range 8 {
				nx, ny := x+dx8[i], y+dy8[i]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				if !taken[ny*w+nx] && labels.At(nx, ny) != l {
					np++
				}
			}
			if np > 1 {
				taken[y*w+x] = true
				contour = append(contour, image.Pt(x, y))
			}
		}
	}
	for _, p := range contour {
		canvas.Set(p.X, p.Y, col)
	}
	return canvas
}

// ============ PALETTES ============

// SortPaletteByBrightness orders colors from darkest to brightest.
func SortPaletteByBrightness(palette []colorful.Color) {
	slices.SortFunc(palette, func(a, b colorful.Color) int {
		la, _, _ := a.Lab()
		lb, _, _ := b.Lab()
		switch {
		case la < lb:
			return -1
		case la > lb:
			return 1
		}
		return 0
	})
}

// DominantPalette returns up to k dominant colours of img, heaviest first.
func DominantPalette(img image.Image, k int) []colorful.Color {
	if k <= 0 {
		return nil
	}
	found := dominantcolor.FindWeight(img, k)
	slices.SortStableFunc(found, func(a, b dominantcolor.Color) int {
		switch {
		case a.Weight > b.Weight:
			return -1
		case a.Weight < b.Weight:
			return 1
		}
		return 0
	})
	out := make([]colorful.Color, 0, len(found))
	for _, c := range found {
		col, _ := colorful.MakeColor(c.RGBA)
		out = append(out, col.Clamped())
	}
	return out
}

// SuperpixelPalette clusters the mean colours of the superpixels into k
// groups and returns the group centres, most populated first.
func SuperpixelPalette(r slic.Raster, labels slic.LabelImage, k int) ([]colorful.Color, error) {
	if k <= 0 {
		return nil, nil
	}
	hist := labels.Histogram()
	means := MeanColors(r, labels)
	dataset := make(clusters.Observations, 0, len(means))
	for l, m := range means {
		if hist[l] == 0 {
			continue
		}
		dataset = append(dataset, clusters.Coordinates{m[0], m[1], m[2]})
	}
	if len(dataset) == 0 {
		return nil, errors.New("no superpixels")
	}
	km := kmeans.New()
	cc, err := km.Partition(dataset, min(k, len(dataset)))
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(cc, func(a, b clusters.Cluster) int {
		return len(b.Observations) - len(a.Observations)
	})
	out := make([]colorful.Color, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < slic.Channels || len(c.Observations) == 0 {
			continue
		}
		out = append(out, labToColorful([slic.Channels]float64{c.Center[0], c.Center[1], c.Center[2]}))
	}
	return out, nil
}

// ExtractPalette builds a k-colour palette with the given method. The k-means
// method falls back to dominant colours when it cannot produce a palette.
func ExtractPalette(img image.Image, r slic.Raster, labels slic.LabelImage, k int, method PaletteMethod) []colorful.Color {
	if method == PaletteMethodKMeans {
		p, err := SuperpixelPalette(r, labels, k)
		if err == nil && len(p) != 0 {
			return p
		}
		slic.Logger().Warn("palette: kmeans failed, falling back to dominantcolor", "err", err)
	}
	return DominantPalette(img, k)
}

// SavePalette writes the palette as a strip of tileSize squares, left to
// right. tileSize <= 0 means 64.
func SavePalette(palette []colorful.Color, tileSize int, filename string) error {
	if len(palette) == 0 {
		return errors.New("empty palette")
	}
	if tileSize <= 0 {
		tileSize = 64
	}
	img := image.NewRGBA(image.Rect(0, 0, tileSize*len(palette), tileSize))
	for i, c := range palette {
		r, g, b := c.Clamped().RGB255()
		tile := color.RGBA{r, g, b, 255}
		for y := range tileSize {
			for x := i * tileSize; x < (i+1)*tileSize; x++ {
				img.SetRGBA(x, y, tile)
			}
		}
	}
	return SaveImage(img, filename)
}
