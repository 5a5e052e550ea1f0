package report

import (
	"fmt"
	"image/color"
	"io"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/rkm/swathpoint/internal/swath"
)

const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 5 * vg.Inch
)

// ChartOptions controls how a series is drawn.
type ChartOptions struct {
	// Label names the plotted quantity, e.g. UVAI_TEMPO.
	Label string

	// AxisLabel is the value axis caption. Label is used when empty.
	AxisLabel string

	// Start and End bound the query window. The day axis runs from 0 to the
	// window length in days.
	Start time.Time
	End   time.Time

	YMin float64
	YMax float64
}

// Title is the two-line chart title: label and window, then site and point.
func (o ChartOptions) Title(s *swath.Series) string {
	return fmt.Sprintf("%s_%s_%s\n%s, %08.4fN %08.4fW",
		o.Label, o.Start.Format("20060102"), o.End.Format("20060102"), s.Site, s.POI.Lat, -s.POI.Lon)
}

// XMax returns the length of the window in days, counting End as inclusive
// to the second.
func (o ChartOptions) XMax() float64 {
	return (o.End.Sub(o.Start) + time.Second).Hours() / 24
}

func (o ChartOptions) xLabel() string {
	return "GMT, day from beginning of " + o.Start.Format("20060102")
}

func (o ChartOptions) yLabel() string {
	if o.AxisLabel != "" {
		return o.AxisLabel
	}
	return o.Label
}

// Points returns the samples as (day offset, value) pairs.
func Points(s *swath.Series) plotter.XYs {
	pts := make(plotter.XYs, len(s.Samples))
	for i, smp := range s.Samples {
		pts[i] = plotter.XY{X: smp.DayOffset, Y: smp.Value}
	}
	return pts
}

// NewPlot builds a scatter plot of s with fixed axes.
func NewPlot(s *swath.Series, o ChartOptions) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = o.Title(s)
	p.X.Label.Text = o.xLabel()
	p.Y.Label.Text = o.yLabel()
	p.Add(plotter.NewGrid())

	if len(s.Samples) > 0 {
		scatter, err := plotter.NewScatter(Points(s))
		if err != nil {
			return nil, fmt.Errorf("create scatter: %w", err)
		}
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(2)
		scatter.GlyphStyle.Color = color.RGBA{R: 200, G: 0, B: 200, A: 255}
		p.Add(scatter)
	}

	p.X.Min, p.X.Max = 0, o.XMax()
	p.Y.Min, p.Y.Max = o.YMin, o.YMax
	return p, nil
}

// SavePlot draws s to path. The image format follows the file extension.
func SavePlot(path string, s *swath.Series, o ChartOptions) error {
	p, err := NewPlot(s, o)
	if err != nil {
		return err
	}
	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

// WritePNG draws s as a PNG image to w.
func WritePNG(w io.Writer, s *swath.Series, o ChartOptions) error {
	p, err := NewPlot(s, o)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return fmt.Errorf("create png writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
