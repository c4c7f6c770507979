package export

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/nvlab/pulsesweep/internal/fsutil"
	"github.com/nvlab/pulsesweep/internal/sweep"
)

// newPlot draws every point as a marker and the per-value means as a line.
func newPlot(res sweep.Result) (*plot.Plot, error) {
	if len(res.Points) == 0 {
		return nil, errors.New("export: result has no points")
	}
	axis, reading := fieldNames(res)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s %s", res.Experiment, res.RunID)
	p.X.Label.Text = axis
	p.Y.Label.Text = reading
	p.Add(plotter.NewGrid())

	raw := make(plotter.XYs, len(res.Points))
	for i, pt := range res.Points {
		raw[i] = plotter.XY{X: pt.Value, Y: pt.Reading}
	}
	scatter, err := plotter.NewScatter(raw)
	if err != nil {
		return nil, fmt.Errorf("export: scatter: %w", err)
	}
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(2)
	scatter.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(scatter)
	p.Legend.Add("points", scatter)

	sum := Summarize(res)
	mean := make(plotter.XYs, len(sum.Values))
	for i := range sum.Values {
		mean[i] = plotter.XY{X: sum.Values[i], Y: sum.Means[i]}
	}
	line, err := plotter.NewLine(mean)
	if err != nil {
		return nil, fmt.Errorf("export: mean line: %w", err)
	}
	line.Width = vg.Points(1)
	line.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	p.Add(line)
	p.Legend.Add("mean", line)
	p.Legend.Top = true

	return p, nil
}

// WritePNG renders res as a PNG image to w.
func WritePNG(w io.Writer, res sweep.Result) error {
	p, err := newPlot(res)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(10*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("export: render png: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNG renders res to path on fsys.
func SavePNG(fsys fsutil.FileSystem, path string, res sweep.Result) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	if err := WritePNG(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
