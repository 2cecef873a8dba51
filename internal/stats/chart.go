package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series is a named sequence of values, one per mission.
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultChartHeight = 8
	minChartWidth      = 10
	fallbackTermWidth  = 80
	chartAxis          = " │ "
	colorReset         = "\x1b[0m"
)

var seriesColors = []string{"\x1b[31m", "\x1b[33m", "\x1b[36m", "\x1b[35m"}

// ChartWidthFor returns the plot area width that fits a line of totalWidth cells
// next to the value axis.
func ChartWidthFor(totalWidth, labelWidth int) int {
	if totalWidth <= 0 {
		return minChartWidth
	}
	w := totalWidth - labelWidth - runewidth.StringWidth(chartAxis)
	if w < minChartWidth {
		return minChartWidth
	}
	return w
}

// TerminalWidth reports the width of stdout or a fallback when it is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackTermWidth
	}
	return width
}

// UseColor reports whether ANSI colors should be written to w.
func UseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// Chart renders series as braille line plots sharing one value axis.
// A zero width fills the terminal.
func Chart(w io.Writer, title string, series []Series, width, height int, color bool) error {
	var nonEmpty []Series
	for _, s := range series {
		if len(s.Values) > 0 {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultChartHeight
	}

	lo, hi := bounds(nonEmpty)
	top := formatValue(hi)
	bottom := formatValue(lo)
	labelWidth := runewidth.StringWidth(top)
	if bw := runewidth.StringWidth(bottom); bw > labelWidth {
		labelWidth = bw
	}
	if width <= 0 {
		width = ChartWidthFor(TerminalWidth(), labelWidth)
	}
	if width < minChartWidth {
		width = minChartWidth
	}

	layers := make([]*canvas, len(nonEmpty))
	for i, s := range nonEmpty {
		c := newCanvas(width, height)
		c.plot(resample(s.Values, width), lo, hi)
		layers[i] = c
	}

	var b strings.Builder
	if title != "" {
		b.WriteString(title)
		b.WriteByte('\n')
	}
	for y := 0; y < height; y++ {
		label := ""
		switch y {
		case 0:
			label = top
		case height - 1:
			label = bottom
		}
		b.WriteString(runewidth.FillLeft(label, labelWidth))
		b.WriteString(chartAxis)
		for x := 0; x < width; x++ {
			var mask uint8
			owner := -1
			for i, c := range layers {
				if m := c.cells[y][x]; m != 0 {
					mask |= m
					if owner < 0 {
						owner = i
					}
				}
			}
			ch := rune(0x2800 + int(mask))
			if color && owner >= 0 {
				b.WriteString(seriesColors[owner%len(seriesColors)])
				b.WriteRune(ch)
				b.WriteString(colorReset)
				continue
			}
			b.WriteRune(ch)
		}
		b.WriteByte('\n')
	}
	b.WriteString(legend(nonEmpty, color))
	b.WriteString("\n\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func legend(series []Series, color bool) string {
	parts := make([]string, len(series))
	for i, s := range series {
		label := fmt.Sprintf("⣿ %s", s.Name)
		if color {
			label = seriesColors[i%len(seriesColors)] + label + colorReset
		}
		parts[i] = label
	}
	return strings.Join(parts, "  ")
}

func bounds(series []Series) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if lo > 0 {
		lo = 0
	}
	if hi-lo < 1e-9 {
		hi = lo + 1
	}
	return lo, hi
}

func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

// resample stretches or averages values into exactly width points.
func resample(values []float64, width int) []float64 {
	out := make([]float64, width)
	n := len(values)
	switch {
	case n == 0:
		return out
	case n == 1:
		for i := range out {
			out[i] = values[0]
		}
	case n > width:
		for i := range out {
			start := i * n / width
			end := (i + 1) * n / width
			if end <= start {
				end = start + 1
			}
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	default:
		for i := range out {
			pos := 0.0
			if width > 1 {
				pos = float64(i) * float64(n-1) / float64(width-1)
			}
			idx := int(pos)
			if idx >= n-1 {
				out[i] = values[n-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

// canvas is a grid of braille cells, each holding a 2x4 dot matrix.
type canvas struct {
	cells [][]uint8
}

func newCanvas(width, height int) *canvas {
	cells := make([][]uint8, height)
	for y := range cells {
		cells[y] = make([]uint8, width)
	}
	return &canvas{cells: cells}
}

func (c *canvas) dotRows() int {
	return len(c.cells) * 4
}

func (c *canvas) plot(values []float64, lo, hi float64) {
	rows := c.dotRows()
	prevX, prevY := -1, -1
	for i, v := range values {
		pos := (v - lo) / (hi - lo)
		y := int(math.Round((1 - pos) * float64(rows-1)))
		y = min(max(y, 0), rows-1)
		x := i * 2
		if prevX < 0 {
			c.set(x, y)
		} else {
			c.line(prevX, prevY, x, y)
		}
		prevX, prevY = x, y
	}
}

// line draws with Bresenham's algorithm.
func (c *canvas) line(x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

var dotBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func (c *canvas) set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	row, col := y/4, x/2
	if row >= len(c.cells) || col >= len(c.cells[row]) {
		return
	}
	c.cells[row][col] |= dotBits[x%2][y%4]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
