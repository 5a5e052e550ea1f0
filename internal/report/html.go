package report

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/rkm/swathpoint/internal/swath"
)

// RenderHTML writes an interactive scatter chart of s as a standalone page.
func RenderHTML(w io.Writer, s *swath.Series, o ChartOptions) error {
	title := o.Title(s)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: o.Label,
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    o.Label,
			Subtitle: title,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:         "value",
			Name:         o.xLabel(),
			NameLocation: "middle",
			NameGap:      30,
			Min:          0,
			Max:          o.XMax(),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type: "value",
			Name: o.yLabel(),
			Min:  o.YMin,
			Max:  o.YMax,
		}),
	)

	data := make([]opts.ScatterData, 0, len(s.Samples))
	for _, smp := range s.Samples {
		data = append(data, opts.ScatterData{
			Name:  smp.GranuleID,
			Value: []interface{}{smp.DayOffset, smp.Value},
		})
	}
	scatter.AddSeries(o.Label, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	return scatter.Render(w)
}
