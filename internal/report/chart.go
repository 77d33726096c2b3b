package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderChart writes a self-contained HTML bar chart of the gap histogram.
// The count axis is logarithmic: contiguous pairs dwarf every other bin.
func RenderChart(w io.Writer, r *Report) error {
	labels := make([]string, len(r.Histogram))
	data := make([]opts.BarData, len(r.Histogram))
	for i, bin := range r.Histogram {
		labels[i] = strconv.FormatUint(bin.Value, 10)
		data[i] = opts.BarData{Value: bin.Count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "seqgap " + r.RunID, Width: "100%", Height: "640px"}),
		charts.WithTitleOpts(opts.Title{
			Title: "Sequence gap histogram",
			Subtitle: fmt.Sprintf("source=%s accepted=%d lost~%d started=%s",
				r.Source, r.Accepted, r.Summary.EstimatedLost, r.StartedAt.Format(time.RFC3339)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "gap", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "pairs", Type: "log"}),
	)
	bar.SetXAxis(labels).AddSeries("pairs", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar.Render(w)
}

// WriteChart renders the chart to path.
func WriteChart(path string, r *Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	if err := RenderChart(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return f.Close()
}
