package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/verte-zerg/sarge/internal/model"
)

// Curve is one named line of a plot.
type Curve struct {
	Name   string
	Values []float64
}

type dashPattern struct {
	name   string
	period int
	on     int
}

const (
	defaultPlotHeight = 10
	minPlotWidth      = 10
	plotAxisSep       = " │ "
)

var dashPatterns = []dashPattern{
	{name: "solid", period: 1, on: 1},
	{name: "dashed", period: 6, on: 3},
	{name: "dotted", period: 4, on: 1},
}

var curveColors = []color.Attribute{color.FgCyan, color.FgMagenta, color.FgYellow}

// PlotCurves draws the curves as braille lines on a shared axis that starts
// at zero. Shorter curves are stretched to the plot width.
func PlotCurves(w io.Writer, title string, curves []Curve, width, height int, useColor bool) error {
	curves = nonEmptyCurves(curves)
	if len(curves) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	width = max(width, minPlotWidth)

	top := 0.0
	resampled := make([][]float64, len(curves))
	for i, c := range curves {
		resampled[i] = resample(c.Values, width)
		for _, v := range resampled[i] {
			top = math.Max(top, v)
		}
	}
	if top <= 0 {
		top = 1
	}

	grids := make([][][]uint8, len(curves))
	for i, values := range resampled {
		grids[i] = newGrid(height, width)
		dash := dashPatterns[i%len(dashPatterns)]
		prevX, prevY := -1, -1
		for x, v := range values {
			px, py := x*2, dotRow(v, top, height*4)
			if prevX < 0 {
				if dash.draws(px) {
					setDot(grids[i], px, py)
				}
			} else {
				bresenham(prevX, prevY, px, py, func(dx, dy int) {
					if dash.draws(dx) {
						setDot(grids[i], dx, dy)
					}
				})
			}
			prevX, prevY = px, py
		}
	}

	labels := axisLabels(top, height)
	labelWidth := 0
	for _, l := range labels {
		labelWidth = max(labelWidth, utf8.RuneCountInString(l))
	}
	colors := curvePalette(len(curves), useColor)

	var b strings.Builder
	if title != "" {
		fmt.Fprintln(&b, title)
	}
	for y := 0; y < height; y++ {
		fmt.Fprintf(&b, "%*s%s", labelWidth, labels[y], plotAxisSep)
		for x := 0; x < width; x++ {
			mask, owner := mergeCell(grids, x, y)
			ch := string(rune(0x2800 + int(mask)))
			if owner >= 0 {
				ch = colors[owner].Sprint(ch)
			}
			b.WriteString(ch)
		}
		b.WriteByte('\n')
	}
	legend := make([]string, 0, len(curves))
	for i, c := range curves {
		label := fmt.Sprintf("%c %s (%s)", rune(0x2801), c.Name, dashPatterns[i%len(dashPatterns)].name)
		legend = append(legend, colors[i].Sprint(label))
	}
	fmt.Fprintf(&b, "Legend: %s\n", strings.Join(legend, "  "))

	_, err := io.WriteString(w, b.String())
	return err
}

// PlotWidthFor returns the number of plot columns that fit into totalWidth
// next to an axis label of labelWidth runes.
func PlotWidthFor(totalWidth, labelWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	return max(totalWidth-labelWidth-utf8.RuneCountInString(plotAxisSep), minPlotWidth)
}

// MovingAverage computes a trailing mean over window values.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// RenderTrends plots focus minutes and session XP over the history entries,
// smoothed with a moving average of window sessions.
func RenderTrends(w io.Writer, entries []model.HistoryEntry, window, totalWidth, height int, useColor bool) error {
	if len(entries) < 2 {
		_, err := fmt.Fprintln(w, "Not enough sessions for a trend.")
		return err
	}
	focus := make([]float64, len(entries))
	xp := make([]float64, len(entries))
	for i, e := range entries {
		focus[i] = float64(e.FocusMinutes)
		xp[i] = float64(e.SessionXP)
	}
	curves := []Curve{
		{Name: "Focus min", Values: MovingAverage(focus, window)},
		{Name: "Session XP", Values: MovingAverage(xp, window)},
	}
	title := fmt.Sprintf("Focus and XP (moving average %d)", max(window, 1))
	top := 0.0
	for _, c := range curves {
		for _, v := range c.Values {
			top = math.Max(top, v)
		}
	}
	width := PlotWidthFor(totalWidth, len(formatAxis(math.Max(top, 1))))
	return PlotCurves(w, title, curves, width, height, useColor)
}

func nonEmptyCurves(curves []Curve) []Curve {
	out := make([]Curve, 0, len(curves))
	for _, c := range curves {
		if len(c.Values) > 0 {
			out = append(out, c)
		}
	}
	return out
}

func curvePalette(n int, useColor bool) []*color.Color {
	out := make([]*color.Color, n)
	for i := range out {
		c := color.New(curveColors[i%len(curveColors)])
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		out[i] = c
	}
	return out
}

func axisLabels(top float64, height int) []string {
	labels := make([]string, height)
	labels[0] = formatAxis(top)
	if height > 2 {
		labels[height/2] = formatAxis(top / 2)
	}
	if height > 1 {
		labels[height-1] = "0"
	}
	return labels
}

func formatAxis(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func (d dashPattern) draws(x int) bool {
	if d.period <= 1 {
		return true
	}
	if x < 0 {
		x = -x
	}
	return x%d.period < d.on
}

// resample stretches or averages values into exactly width points.
func resample(values []float64, width int) []float64 {
	out := make([]float64, width)
	switch {
	case len(values) == width:
		copy(out, values)
	case len(values) > width:
		for i := range out {
			start := i * len(values) / width
			end := max((i+1)*len(values)/width, start+1)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	case len(values) == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		for i := range out {
			pos := float64(i) * float64(len(values)-1) / float64(width-1)
			idx := int(pos)
			if idx >= len(values)-1 {
				out[i] = values[len(values)-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

func dotRow(v, top float64, rows int) int {
	if rows <= 1 {
		return 0
	}
	row := int(math.Round((1 - v/top) * float64(rows-1)))
	return min(max(row, 0), rows-1)
}

func newGrid(height, width int) [][]uint8 {
	grid := make([][]uint8, height)
	for y := range grid {
		grid[y] = make([]uint8, width)
	}
	return grid
}

// mergeCell ORs the braille masks of all curves at a cell and reports the
// first curve that drew there, or -1.
func mergeCell(grids [][][]uint8, x, y int) (uint8, int) {
	var mask uint8
	owner := -1
	for i, grid := range grids {
		cell := grid[y][x]
		if cell == 0 {
			continue
		}
		if owner < 0 {
			owner = i
		}
		mask |= cell
	}
	return mask, owner
}

func bresenham(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// braille dot bits, indexed by [column][row] inside a 2x4 cell
var brailleBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func setDot(grid [][]uint8, x, y int) {
	cy, cx := y/4, x/2
	if y < 0 || x < 0 || cy >= len(grid) || cx >= len(grid[cy]) {
		return
	}
	grid[cy][cx] |= brailleBits[x%2][y%4]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
