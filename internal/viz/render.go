package viz

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/datapro-cli/internal/errs"
	"github.com/KaramelBytes/datapro-cli/internal/utils"
)

// transparent hides the connecting line of a scatter series.
var transparent = drawing.Color{R: 255, G: 255, B: 255, A: 0}

// ErrUnsupported is returned by a Renderer that cannot draw a chart kind.
var ErrUnsupported = errors.New("chart kind not supported by renderer")

// Renderer draws a Spec.
type Renderer interface {
	Render(w io.Writer, s *Spec) error
}

// PNGRenderer draws scatter, line, bar, histogram and heatmap charts as PNG images.
type PNGRenderer struct {
	Width  int
	Height int
}

func NewPNGRenderer(width, height int) *PNGRenderer {
	if width <= 0 {
		width = 1200
	}
	if height <= 0 {
		height = 600
	}
	return &PNGRenderer{Width: width, Height: height}
}

func (r *PNGRenderer) Render(w io.Writer, s *Spec) error {
	col := parseColor(s.Color)
	switch s.Kind {
	case Scatter:
		return r.renderXY(w, s, chart.Style{StrokeWidth: 0, StrokeColor: transparent, DotWidth: 4, DotColor: col})
	case Line:
		return r.renderXY(w, s, chart.Style{StrokeWidth: 2, StrokeColor: col})
	case Bar, Histogram:
		return r.renderBars(w, s, col)
	case Heatmap:
		return r.renderHeatmap(w, s)
	default:
		return fmt.Errorf("%s: %w", s.Kind, ErrUnsupported)
	}
}

func (r *PNGRenderer) renderXY(w io.Writer, s *Spec, st chart.Style) error {
	if s.Points == nil || s.Points.Len() == 0 {
		return &errs.ValidationError{Field: "columns", Message: "nothing to plot: no rows with both values present"}
	}
	var series chart.Series
	xs := s.Points.X
	if len(s.Points.XTimes) > 0 {
		series = chart.TimeSeries{Name: s.YLabel, XValues: s.Points.XTimes, YValues: s.Points.Y, Style: st}
		xs = make([]float64, len(s.Points.XTimes))
		for i, t := range s.Points.XTimes {
			xs[i] = chart.TimeToFloat64(t)
		}
	} else {
		series = chart.ContinuousSeries{Name: s.YLabel, XValues: xs, YValues: s.Points.Y, Style: st}
	}
	ch := chart.Chart{
		Title:      s.Title,
		Width:      r.Width,
		Height:     r.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Name: s.XLabel},
		YAxis:      chart.YAxis{Name: s.YLabel},
		Series:     []chart.Series{series},
	}
	// go-chart rejects a zero-width range
	if xr := padRange(xs); xr != nil {
		ch.XAxis.Range = xr
	}
	if yr := padRange(s.Points.Y); yr != nil {
		ch.YAxis.Range = yr
	}
	return ch.Render(chart.PNG, w)
}

func (r *PNGRenderer) renderBars(w io.Writer, s *Spec, col drawing.Color) error {
	if len(s.Bars) == 0 {
		return &errs.ValidationError{Field: "columns", Message: "nothing to plot: no values"}
	}
	bars := make([]chart.Value, len(s.Bars))
	top := 0.0
	for i, b := range s.Bars {
		bars[i] = chart.Value{Label: b.Label, Value: b.Value, Style: chart.Style{FillColor: col, StrokeColor: col}}
		if b.Value > top {
			top = b.Value
		}
	}
	if top == 0 {
		top = 1
	}
	slot := (r.Width - 120) / len(bars)
	spacing := slot / 5
	width := slot - spacing
	if width < 2 {
		width = 2
	}
	bc := chart.BarChart{
		Title:      s.Title,
		Width:      r.Width,
		Height:     r.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		BarWidth:   width,
		BarSpacing: spacing,
		YAxis:      chart.YAxis{Name: s.YLabel, Range: &chart.ContinuousRange{Min: 0, Max: top * 1.05}},
		Bars:       bars,
	}
	return bc.Render(chart.PNG, w)
}

// padRange returns a unit range around a constant series, nil otherwise.
func padRange(vals []float64) *chart.ContinuousRange {
	if len(vals) == 0 {
		return nil
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if lo != hi {
		return nil
	}
	return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
}

// parseColor accepts #rgb, #rgba, #rrggbb and #rrggbbaa; alpha digits are ignored.
func parseColor(s string) drawing.Color {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(h) {
	case 3, 4:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	case 8:
		h = h[:6]
	case 6:
	default:
		h = strings.TrimPrefix(DefaultColor, "#")
	}
	return drawing.ColorFromHex(h)
}

// WriteFile renders s and writes the image atomically to path.
func WriteFile(path string, r Renderer, s *Spec) error {
	var buf bytes.Buffer
	if err := r.Render(&buf, s); err != nil {
		return fmt.Errorf("render %s: %w", s.Kind, err)
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}
