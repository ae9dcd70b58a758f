package profile

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Chart builds an interactive line chart of the profile, positions in millimeters.
func Chart(points []Point, title string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			BackgroundColor: "#ffffff",
			Width:           "100%",
			Height:          "600px",
			PageTitle:       title,
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "slider",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
			AxisPointer: &opts.AxisPointer{
				Type: "cross",
				Snap: opts.Bool(true),
			},
		}),
		charts.WithToolboxOpts(opts.Toolbox{
			Show: opts.Bool(true),
			Feature: &opts.ToolBoxFeature{
				SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{
					Show:  opts.Bool(true),
					Type:  "png",
					Name:  "profile",
					Title: "Save as image",
				},
				Restore: &opts.ToolBoxFeatureRestore{
					Show:  opts.Bool(true),
					Title: "refresh",
				},
			},
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:      "mm",
			SplitLine: &opts.SplitLine{Show: opts.Bool(true)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      "intensity",
			Type:      "value",
			Scale:     opts.Bool(true),
			SplitLine: &opts.SplitLine{Show: opts.Bool(true)},
		}),
	)

	x := make([]string, len(points))
	data := make([]opts.LineData, len(points))
	for i, p := range points {
		x[i] = fmt.Sprintf("%.4f", p.Position*1e3)
		data[i] = opts.LineData{Value: p.Intensity}
	}
	line.SetXAxis(x).AddSeries("intensity", data)
	return line
}

// RenderHTML writes the chart page to w.
func RenderHTML(w io.Writer, points []Point, title string) error {
	if err := Chart(points, title).Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// SaveHTML writes the chart page into the named file.
func SaveHTML(filename string, points []Point, title string) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return RenderHTML(f, points, title)
}
