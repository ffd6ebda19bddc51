package viz

import (
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/datapro-cli/internal/errs"
)

// Diverging scale for coefficients in [-1, 1]; undefined cells are grey.
var (
	heatCold = drawing.ColorFromHex("3b4cc0")
	heatMid  = drawing.ColorFromHex("f7f7f7")
	heatHot  = drawing.ColorFromHex("b40426")
	heatNaN  = drawing.ColorFromHex("d9d9d9")
)

const heatPad = 12

func heatColor(v float64) drawing.Color {
	if math.IsNaN(v) {
		return heatNaN
	}
	v = max(-1, min(1, v))
	if v < 0 {
		return lerpColor(heatMid, heatCold, -v)
	}
	return lerpColor(heatMid, heatHot, v)
}

func lerpColor(a, b drawing.Color, t float64) drawing.Color {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

// renderHeatmap draws the correlation matrix as a square grid with row and
// column labels and, when cells are large enough, the coefficient in each cell.
func (r *PNGRenderer) renderHeatmap(w io.Writer, s *Spec) error {
	m := s.Heatmap
	if m == nil || len(m.Columns) == 0 {
		return &errs.ValidationError{Field: "columns", Message: "nothing to plot: no numeric columns"}
	}
	n := len(m.Columns)

	rr, err := chart.PNG(r.Width, r.Height)
	if err != nil {
		return err
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return err
	}
	label := chart.Style{Font: font, FontSize: 10, FontColor: drawing.ColorBlack}
	title := chart.Style{Font: font, FontSize: 14, FontColor: drawing.ColorBlack}

	chart.Draw.Box(rr, chart.Box{Right: r.Width, Bottom: r.Height},
		chart.Style{FillColor: drawing.ColorWhite, StrokeColor: drawing.ColorWhite, StrokeWidth: 1})

	labelW, labelH := 0, 0
	for _, c := range m.Columns {
		b := chart.Draw.MeasureText(rr, c, label)
		labelW = max(labelW, b.Width())
		labelH = max(labelH, b.Height())
	}
	plot := chart.Box{
		Top:    48,
		Left:   labelW + 2*heatPad,
		Right:  r.Width - heatPad,
		Bottom: r.Height - labelH - 2*heatPad,
	}
	side := min(plot.Width(), plot.Height()) / n
	if side < 1 {
		return &errs.ValidationError{Field: "columns", Message: fmt.Sprintf("%d columns do not fit a %dx%d image", n, r.Width, r.Height)}
	}

	if s.Title != "" {
		tb := chart.Draw.MeasureText(rr, s.Title, title)
		chart.Draw.Text(rr, s.Title, (r.Width-tb.Width())/2, 28, title)
	}

	for i := range n {
		y0 := plot.Top + i*side
		for j := range n {
			x0 := plot.Left + j*side
			v := m.Values[i][j]
			col := heatColor(v)
			chart.Draw.Box(rr, chart.Box{Top: y0, Left: x0, Right: x0 + side, Bottom: y0 + side},
				chart.Style{FillColor: col, StrokeColor: drawing.ColorWhite, StrokeWidth: 1})

			txt := "nan"
			if !math.IsNaN(v) {
				txt = fmt.Sprintf("%.2f", v)
			}
			cell := label
			if math.Abs(v) > 0.6 {
				cell.FontColor = drawing.ColorWhite
			}
			tb := chart.Draw.MeasureText(rr, txt, cell)
			if tb.Width()+4 <= side && tb.Height()+4 <= side {
				chart.Draw.Text(rr, txt, x0+(side-tb.Width())/2, y0+(side+tb.Height())/2, cell)
			}
		}
		name := m.Columns[i]
		tb := chart.Draw.MeasureText(rr, name, label)
		chart.Draw.Text(rr, name, plot.Left-heatPad-tb.Width(), y0+(side+tb.Height())/2, label)
	}

	base := plot.Top + n*side + heatPad + labelH
	for j, name := range m.Columns {
		name = fitText(rr, name, side, label)
		tb := chart.Draw.MeasureText(rr, name, label)
		chart.Draw.Text(rr, name, plot.Left+j*side+(side-tb.Width())/2, base, label)
	}
	return rr.Save(w)
}

// fitText shortens s with a trailing ".." until it is at most width pixels wide.
func fitText(rr chart.Renderer, s string, width int, st chart.Style) string {
	if chart.Draw.MeasureText(rr, s, st).Width() <= width {
		return s
	}
	runes := []rune(s)
	for k := len(runes) - 1; k > 0; k-- {
		cut := string(runes[:k]) + ".."
		if chart.Draw.MeasureText(rr, cut, st).Width() <= width {
			return cut
		}
	}
	return ""
}
