package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/nvlab/pulsesweep/internal/sweep"
)

// WriteHTML renders res as a self-contained interactive scatter chart.
func WriteHTML(w io.Writer, res sweep.Result) error {
	if len(res.Points) == 0 {
		return errors.New("export: result has no points")
	}
	axis, reading := fieldNames(res)

	raw := make([]opts.ScatterData, len(res.Points))
	for i, p := range res.Points {
		raw[i] = opts.ScatterData{Value: []interface{}{p.Value, p.Reading}}
	}
	sum := Summarize(res)
	mean := make([]opts.ScatterData, len(sum.Values))
	for i := range sum.Values {
		mean[i] = opts.ScatterData{Value: []interface{}{sum.Values[i], sum.Means[i]}}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: res.Experiment + " " + res.RunID, Width: "1000px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    res.Experiment,
			Subtitle: fmt.Sprintf("run=%s status=%s points=%d", res.RunID, res.Status, len(res.Points)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: axis, NameLocation: "middle", NameGap: 25, Min: "dataMin", Max: "dataMax"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: reading, NameLocation: "middle", NameGap: 45, Min: "dataMin", Max: "dataMax"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	)
	scatter.AddSeries("points", raw, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))
	scatter.AddSeries("mean", mean, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 9}))

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("export: render html: %w", err)
	}
	return nil
}
