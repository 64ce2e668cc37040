package main

import (
	"image"
	"image/color"
	"os"

	"github.com/Noofbiz/objectData/datasets"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// saveGrid pastes the images of the first n examples of src in a grid with
// cols columns, each cell sized to the largest image, and saves it to path.
// Examples with a coord grid get it rendered right below their image.
func saveGrid(src datasets.Source, n, cols int, path string) error {
	n = min(max(n, 1), src.Len())
	cols = min(max(cols, 1), n)

	tiles := make([]image.Image, 0, n)
	coords := make([]image.Image, 0, n)
	cellW, cellH := 0, 0
	for i := range n {
		ex, err := src.Example(i)
		if err != nil {
			return errors.WithMessagef(err, "preview example %d", i)
		}
		img, ok := ex.Image()
		if !ok {
			return errors.Wrapf(datasets.ErrMissingKey, "preview example %d has no %q", i, datasets.KeyImage)
		}
		tiles = append(tiles, img.ToImage())
		cellW, cellH = max(cellW, img.Width), max(cellH, img.Height)
		if coord, ok := ex.Coord(); ok {
			coords = append(coords, coord.ToImage())
		}
	}
	rowH := cellH
	if len(coords) == len(tiles) {
		rowH = 2 * cellH
	}

	const pad = 2
	rows := (n + cols - 1) / cols
	grid := imaging.New(cols*(cellW+pad)+pad, rows*(rowH+pad)+pad, color.NRGBA{R: 40, G: 40, B: 40, A: 255})
	for i, tile := range tiles {
		x := pad + (i%cols)*(cellW+pad)
		y := pad + (i/cols)*(rowH+pad)
		grid = imaging.Paste(grid, tile, image.Pt(x, y))
		if rowH > cellH {
			grid = imaging.Paste(grid, coords[i], image.Pt(x, y+cellH))
		}
	}
	if err := imaging.Save(grid, path); err != nil {
		return errors.Wrapf(err, "failed to save preview grid to %q", path)
	}
	return nil
}

// plotHistogram writes a PNG histogram of values.
func plotHistogram(path, title string, values []float64, bins int) error {
	if len(values) == 0 {
		return errors.New("no values to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "value"
	p.Y.Label.Text = "count"

	h, err := plotter.NewHist(plotter.Values(values), max(bins, 1))
	if err != nil {
		return errors.Wrap(err, "failed to build histogram")
	}
	h.FillColor = color.RGBA{R: 20, G: 80, B: 200, A: 200}
	h.LineStyle.Width = vg.Points(0.5)
	p.Add(h, plotter.NewGrid())

	p.X.Min, p.X.Max = valueRange(values)

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save histogram to %q", path)
	}
	return nil
}

// valueRange returns [-1, 1] when values fit in it, and otherwise their
// min/max padded by 6%.
func valueRange(values []float64) (lo, hi float64) {
	lo, hi = floats.Min(values), floats.Max(values)
	if lo >= -1 && hi <= 1 {
		return -1, 1
	}
	pad := (hi - lo) * 0.06
	if pad == 0 {
		pad = 1.0
	}
	return lo - pad, hi + pad
}

func ensureDir(path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(path, 0755)
}
