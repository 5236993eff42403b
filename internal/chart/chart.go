package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/dvloznov/sales-analysis/internal/aggregate"
)

// Kind selects the chart flavour.
type Kind string

const (
	Bar   Kind = "bar"
	Count Kind = "count"
)

// rotateAbove is the number of x categories past which tick labels are rotated.
const rotateAbove = 8

// Series is one colour of bars; Values align with Figure.Categories.
type Series struct {
	Name   string
	Values []float64
}

// Figure is a bar chart ready to render.
type Figure struct {
	Title      string
	XLabel     string
	YLabel     string
	Kind       Kind
	Categories []string
	Series     []Series
	// Width and Height are in inches. Zero means the default 8x5.
	Width  float64
	Height float64
}

// FromPartitions lays out aggregated partitions on a figure.
//
// Single-key partitions become one series in partition order. Two-key
// partitions put the first key on the x axis and make one series per
// distinct second key; missing combinations are zero.
func FromPartitions(ps []aggregate.Partition) ([]string, []Series) {
	if len(ps) == 0 {
		return nil, nil
	}

	if len(ps[0].Keys) < 2 {
		cats := make([]string, len(ps))
		vals := make([]float64, len(ps))
		for i, p := range ps {
			cats[i] = p.Label()
			vals[i] = p.Value
		}
		return cats, []Series{{Values: vals}}
	}

	cats := aggregate.Categories(ps, 0)
	hues := aggregate.Categories(ps, 1)

	catIdx := make(map[string]int, len(cats))
	for i, c := range cats {
		catIdx[c] = i
	}
	hueIdx := make(map[string]int, len(hues))
	series := make([]Series, len(hues))
	for i, h := range hues {
		hueIdx[h] = i
		series[i] = Series{Name: h, Values: make([]float64, len(cats))}
	}
	for _, p := range ps {
		series[hueIdx[p.Keys[1]]].Values[catIdx[p.Keys[0]]] += p.Value
	}
	return cats, series
}

// Plot builds the gonum plot for f.
func (f Figure) Plot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = f.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = f.XLabel
	p.Y.Label.Text = f.YLabel
	if p.Y.Label.Text == "" && f.Kind == Count {
		p.Y.Label.Text = "count"
	}

	if len(f.Categories) == 0 {
		p.X.Min, p.X.Max = 0, 1
		p.Y.Min, p.Y.Max = 0, 1
		return p, nil
	}

	for i, s := range f.Series {
		if len(s.Values) != len(f.Categories) {
			return nil, fmt.Errorf("chart: series %d has %d values for %d categories", i, len(s.Values), len(f.Categories))
		}
	}

	width := vg.Points(20)
	n := len(f.Series)
	var peak float64
	for i, s := range f.Series {
		bars, err := plotter.NewBarChart(plotter.Values(s.Values), width)
		if err != nil {
			return nil, fmt.Errorf("chart: bars for %q: %w", s.Name, err)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		bars.Offset = vg.Length(float64(i)-float64(n-1)/2) * width
		p.Add(bars)
		if s.Name != "" {
			p.Legend.Add(s.Name, bars)
		}

		labels, err := valueLabels(s.Values, bars.Offset)
		if err != nil {
			return nil, fmt.Errorf("chart: labels for %q: %w", s.Name, err)
		}
		p.Add(labels)

		for _, v := range s.Values {
			peak = math.Max(peak, v)
		}
	}

	p.Legend.Top = true
	p.NominalX(f.Categories...)
	if len(f.Categories) > rotateAbove {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}

	p.Y.Min = 0
	if peak > 0 {
		p.Y.Max = peak * 1.1
	}
	return p, nil
}

func valueLabels(values []float64, offset vg.Length) (*plotter.Labels, error) {
	xys := make([]plotter.XY, len(values))
	texts := make([]string, len(values))
	for i, v := range values {
		xys[i] = plotter.XY{X: float64(i), Y: v}
		texts[i] = fmt.Sprintf("%.0f", v)
	}
	l, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return nil, err
	}
	l.Offset = vg.Point{X: offset - vg.Points(6), Y: vg.Points(2)}
	for i := range l.TextStyle {
		l.TextStyle[i].Font.Size = vg.Points(7)
	}
	return l, nil
}

func (f Figure) size() (vg.Length, vg.Length) {
	w, h := f.Width, f.Height
	if w <= 0 {
		w = 8
	}
	if h <= 0 {
		h = 5
	}
	return vg.Length(w) * vg.Inch, vg.Length(h) * vg.Inch
}

// Render writes f to w as PNG.
func (f Figure) Render(w io.Writer) error {
	p, err := f.Plot()
	if err != nil {
		return err
	}
	width, height := f.size()
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("chart: png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("chart: write png: %w", err)
	}
	return nil
}

// Save renders f to dir/name.png, creating dir and overwriting any existing file.
func (f Figure) Save(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("chart: create output dir: %w", err)
	}
	p, err := f.Plot()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+".png")
	width, height := f.size()
	if err := p.Save(width, height, path); err != nil {
		return "", fmt.Errorf("chart: save %s: %w", path, err)
	}
	return path, nil
}
