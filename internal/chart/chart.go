// Package chart renders report chart specs to PNG images.
package chart

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"bankreport/internal/core"
	"bankreport/internal/export"
)

var (
	ErrNoData          = errors.New("chart has no positive values")
	ErrUnsupportedKind = errors.New("unsupported chart kind")
)

var (
	creditColor = drawing.ColorFromHex("2e7d32")
	debitColor  = drawing.ColorFromHex("c62828")
)

// Renderer draws a single chart. The zero value uses the default size.
type Renderer struct {
	Width  int
	Height int
}

func (r Renderer) size() (int, int) {
	w, h := r.Width, r.Height
	if w <= 0 {
		w = 640
	}
	if h <= 0 {
		h = 480
	}
	return w, h
}

// Render writes spec as a PNG to w.
func (r Renderer) Render(spec core.ChartSpec, w io.Writer) error {
	if len(spec.Labels) != len(spec.Values) {
		return fmt.Errorf("chart %s: %d labels for %d values", spec.ID, len(spec.Labels), len(spec.Values))
	}
	switch spec.Kind {
	case core.BarChart:
		return r.bar(spec, w)
	case core.PieChart:
		return r.pie(spec, w)
	default:
		return fmt.Errorf("chart %s: %w %q", spec.ID, ErrUnsupportedKind, spec.Kind)
	}
}

func (r Renderer) bar(spec core.ChartSpec, w io.Writer) error {
	width, height := r.size()
	bars := make([]gochart.Value, len(spec.Values))
	lo, hi := 0.0, 0.0
	for i, v := range spec.Values {
		f := v.InexactFloat64()
		if f < lo {
			lo = f
		}
		if f > hi {
			hi = f
		}
		color := creditColor
		if i%2 == 1 {
			color = debitColor
		}
		bars[i] = gochart.Value{
			Label: fmt.Sprintf("%s %s", spec.Labels[i], v.StringFixed(2)),
			Value: f,
			Style: gochart.Style{FillColor: color, StrokeColor: color},
		}
	}
	// go-chart cannot draw an empty range.
	if hi == lo {
		hi = lo + 1
	}
	c := gochart.BarChart{
		Title:    spec.Title,
		Width:    width,
		Height:   height,
		BarWidth: width / (2*len(bars) + 1),
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40},
		},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: lo, Max: hi * 1.1},
		},
		Bars: bars,
	}
	if err := c.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render bar chart %s: %w", spec.ID, err)
	}
	return nil
}

func (r Renderer) pie(spec core.ChartSpec, w io.Writer) error {
	width, height := r.size()
	total := decimal.Zero
	for _, v := range spec.Values {
		if v.IsPositive() {
			total = total.Add(v)
		}
	}
	if !total.IsPositive() {
		return fmt.Errorf("chart %s: %w", spec.ID, ErrNoData)
	}

	var values []gochart.Value
	for i, v := range spec.Values {
		if !v.IsPositive() {
			continue
		}
		values = append(values, gochart.Value{
			Label: SliceLabel(spec.Labels[i], v, total),
			Value: v.InexactFloat64(),
		})
	}
	c := gochart.PieChart{
		Title:  spec.Title,
		Width:  width,
		Height: height,
		Values: values,
	}
	if err := c.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render pie chart %s: %w", spec.ID, err)
	}
	return nil
}

// SliceLabel formats a pie slice as "<label> <pct>% (<amount>)", the
// percentage with one decimal and the amount truncated to an integer.
func SliceLabel(label string, v, total decimal.Decimal) string {
	pct := v.Div(total).Mul(decimal.NewFromInt(100))
	return fmt.Sprintf("%s %s%% (%s)", label, pct.StringFixed(1), v.Truncate(0).String())
}

// FileRenderer writes charts as <id>.png files.
type FileRenderer struct {
	Renderer Renderer
}

// RenderAll renders every spec into dir and returns the written paths in spec
// order. Files already written stay in place when a later chart fails; the
// caller owns cleanup of dir.
func (f FileRenderer) RenderAll(dir string, specs []core.ChartSpec) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart directory: %w", err)
	}
	paths := make([]string, 0, len(specs))
	for _, spec := range specs {
		path := filepath.Join(dir, spec.ID+".png")
		err := export.WriteFileAtomic(path, func(out *os.File) error {
			return f.Renderer.Render(spec, out)
		})
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
