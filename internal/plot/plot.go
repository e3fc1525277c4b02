// Package plot renders reward history as an HTML line chart.
package plot

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no reward data")

// Point is one transition on the x axis.
type Point struct {
	Label  string
	Reward float64
}

// Render writes a page with the raw reward and its running mean.
func Render(w io.Writer, title string, points []Point) error {
	if len(points) == 0 {
		return ErrNoData
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%d transitions", len(points)),
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)

	labels := make([]string, len(points))
	rewards := make([]opts.LineData, len(points))
	means := make([]opts.LineData, len(points))
	sum := 0.0
	for i, p := range points {
		labels[i] = p.Label
		if labels[i] == "" {
			labels[i] = fmt.Sprintf("%d", i+1)
		}
		sum += p.Reward
		rewards[i] = opts.LineData{Value: p.Reward}
		means[i] = opts.LineData{Value: sum / float64(i+1)}
	}

	line.SetXAxis(labels).
		AddSeries("reward", rewards).
		AddSeries("running mean", means)

	page := components.NewPage()
	page.AddCharts(line)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
