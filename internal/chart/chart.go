// Package chart provides ASCII terminal chart rendering for dashboard series.
// Renderers:
//
//   - Plot: multi-line ASCII chart with labelled axes, for the rolling
//     CPU/memory/temperature/network series
//   - Bar: horizontal bar chart, one bar per sample
//   - Gauge: single-line percentage gauge with a minimum visible sliver
//   - Strip: one-line battery timeline coloured by charge segment
//
// All renderers treat NaN values as gaps, never as zeros.
package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/derickschaefer/pocketdash/internal/series"
)

// Sample is one labelled value. NaN marks a missing reading.
type Sample struct {
	Label string
	Value float64
}

// Samples zips a label axis with values; the shorter slice wins.
func Samples(labels []string, values []float64) []Sample {
	n := len(labels)
	if len(values) < n {
		n = len(values)
	}
	out := make([]Sample, n)
	for i := 0; i < n; i++ {
		out[i] = Sample{Label: labels[i], Value: values[i]}
	}
	return out
}

// ─── Bar ─────────────────────────────────────────────────────────────────────

// BarOptions controls horizontal bar chart rendering.
type BarOptions struct {
	// Width is the total character width available for the chart.
	// If 0, auto-detects from the terminal, falls back to 80.
	Width int
	// MaxBars keeps only the newest MaxBars samples. If 0, no limit is applied.
	MaxBars int
	// Max fixes the scale ceiling (e.g. 100 for percentages). If 0, the
	// largest sample is used.
	Max float64
}

// Bar renders a horizontal bar chart of samples to w, one bar per sample.
//
// Output example:
//
//	Battery  09:00 – 09:10
//	09:00  76.0  ████████████
//	09:05  75.0  ███████████
func Bar(w io.Writer, title string, samples []Sample, opts BarOptions) error {
	totalWidth := opts.Width
	if totalWidth <= 0 {
		totalWidth = Width()
	}

	var valid []Sample
	for _, s := range samples {
		if !math.IsNaN(s.Value) {
			valid = append(valid, s)
		}
	}
	if len(valid) < 1 {
		return fmt.Errorf("chart bar: no non-NaN samples to render")
	}

	if opts.MaxBars > 0 && len(valid) > opts.MaxBars {
		valid = valid[len(valid)-opts.MaxBars:]
	}

	if len(valid) > 60 {
		fmt.Fprintf(w, "⚠  %d samples — consider --last to narrow the window\n\n", len(valid))
	}

	minVal, maxVal := 0.0, valid[0].Value
	for _, s := range valid {
		if s.Value < minVal {
			minVal = s.Value
		}
		if s.Value > maxVal {
			maxVal = s.Value
		}
	}
	if opts.Max > maxVal {
		maxVal = opts.Max
	}

	labelWidth, valWidth := 0, 0
	for _, s := range valid {
		if l := len([]rune(s.Label)); l > labelWidth {
			labelWidth = l
		}
		if l := len(formatFloat(s.Value)); l > valWidth {
			valWidth = l
		}
	}

	barAreaWidth := totalWidth - labelWidth - valWidth - 4
	if barAreaWidth < 4 {
		barAreaWidth = 4
	}

	valRange := maxVal - minVal
	if valRange == 0 {
		valRange = 1 // flat series
	}

	hasNeg := minVal < 0
	var zeroPos int
	if hasNeg {
		zeroPos = int(math.Round((-minVal / valRange) * float64(barAreaWidth-1)))
	}

	fmt.Fprintf(w, "%s  %s – %s\n", title, valid[0].Label, valid[len(valid)-1].Label)

	for _, s := range valid {
		var bar string
		if hasNeg {
			bar = buildBiBar(s.Value, minVal, maxVal, barAreaWidth, zeroPos)
		} else {
			barLen := int(math.Round((s.Value - minVal) / valRange * float64(barAreaWidth)))
			if barLen < 1 {
				barLen = 1 // every bar stays visible
			}
			if barLen > barAreaWidth {
				barLen = barAreaWidth
			}
			bar = strings.Repeat("█", barLen)
		}
		fmt.Fprintf(w, "%-*s  %*s  %s\n", labelWidth, s.Label, valWidth, formatFloat(s.Value), bar)
	}
	return nil
}

// buildBiBar renders a bar that may extend left (negative) or right (positive)
// from a zero baseline at zeroPos within a field of width barAreaWidth.
func buildBiBar(val, minVal, maxVal float64, barAreaWidth, zeroPos int) string {
	valRange := maxVal - minVal
	buf := []rune(strings.Repeat(" ", barAreaWidth))

	if zeroPos >= 0 && zeroPos < barAreaWidth {
		buf[zeroPos] = '│'
	}

	if val >= 0 {
		end := zeroPos + int(math.Round(val/valRange*float64(barAreaWidth-1)))
		for i := zeroPos + 1; i <= end && i < barAreaWidth; i++ {
			buf[i] = '█'
		}
	} else {
		start := zeroPos - int(math.Round((-val)/valRange*float64(barAreaWidth-1)))
		if start < 0 {
			start = 0
		}
		for i := start; i < zeroPos && i < barAreaWidth; i++ {
			buf[i] = '█'
		}
	}
	return string(buf)
}

// ─── Plot ─────────────────────────────────────────────────────────────────────

// PlotOptions controls multi-line ASCII plot rendering.
type PlotOptions struct {
	// Width is the total character width of the chart (including Y-axis label).
	// If 0, auto-detects from the terminal, falls back to 80.
	Width int
	// Height is the number of data rows in the chart body (not counting axis labels).
	// If 0, defaults to 12.
	Height int
	// Unit is appended to the title, e.g. "%" or "KB/s".
	Unit string
}

// Plot renders a multi-line ASCII chart of samples to w.
func Plot(w io.Writer, title string, samples []Sample, opts PlotOptions) error {
	width := opts.Width
	if width <= 0 {
		width = Width()
	}
	height := opts.Height
	if height <= 0 {
		height = 12
	}

	var validVals []float64
	for _, s := range samples {
		if !math.IsNaN(s.Value) {
			validVals = append(validVals, s.Value)
		}
	}
	if len(validVals) < 2 {
		return fmt.Errorf("chart plot: need at least 2 non-NaN samples (got %d)", len(validVals))
	}

	minVal, maxVal := validVals[0], validVals[0]
	for _, v := range validVals[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	ticks := yTicks(minVal, maxVal, height)
	yLabelWidth := 0
	for _, t := range ticks {
		if l := len(formatFloat(t)); l > yLabelWidth {
			yLabelWidth = l
		}
	}
	yAxisWidth := yLabelWidth + 2

	plotWidth := width - yAxisWidth
	if plotWidth < 10 {
		plotWidth = 10
	}
	// Fewer samples than columns: one column per sample.
	if len(samples) < plotWidth {
		plotWidth = len(samples)
	}

	cols := sampleCols(samples, plotWidth)
	grid := buildGrid(cols, minVal, maxVal, height)

	header := title
	if opts.Unit != "" {
		header += " (" + opts.Unit + ")"
	}
	last := validVals[len(validVals)-1]
	fmt.Fprintf(w, "%s  now %s  min %s  max %s\n", header, formatFloat(last), formatFloat(minVal), formatFloat(maxVal))

	for row := 0; row < height; row++ {
		label := ""
		for _, t := range ticks {
			if math.Abs(rowForValue(t, minVal, maxVal, height)-float64(row)) < 0.5 {
				label = formatFloat(t)
				break
			}
		}
		labelPadded := fmt.Sprintf("%*s", yLabelWidth, label)

		axisCh := "┤"
		if label != "" && math.Abs(minVal) < 1e-9 && row == height-1 {
			axisCh = "┼"
		} else if label == "" {
			axisCh = " "
		}

		fmt.Fprintf(w, "%s%s%s\n", labelPadded, axisCh, string(grid[row]))
	}

	fmt.Fprintf(w, "%s└%s\n", strings.Repeat(" ", yLabelWidth), strings.Repeat("─", plotWidth))
	fmt.Fprintf(w, "%s %s\n", strings.Repeat(" ", yLabelWidth), xAxisLabels(samples, plotWidth))
	return nil
}

// ─── Grid building ────────────────────────────────────────────────────────────

// sampleCols reduces samples to exactly n columns by bucketing.
// Each column holds the average of its bucket, or NaN if all are NaN.
func sampleCols(samples []Sample, n int) []float64 {
	total := len(samples)
	cols := make([]float64, n)
	for col := 0; col < n; col++ {
		lo := col * total / n
		hi := (col+1)*total/n - 1
		if hi >= total {
			hi = total - 1
		}
		sum, count := 0.0, 0
		for i := lo; i <= hi; i++ {
			if !math.IsNaN(samples[i].Value) {
				sum += samples[i].Value
				count++
			}
		}
		if count == 0 {
			cols[col] = math.NaN()
		} else {
			cols[col] = sum / float64(count)
		}
	}
	return cols
}

// rowForValue returns the float row index (0=top=max) for a given value.
func rowForValue(v, minVal, maxVal float64, height int) float64 {
	if maxVal == minVal {
		return float64(height) / 2
	}
	return (maxVal - v) / (maxVal - minVal) * float64(height-1)
}

// buildGrid renders columns into a height×width rune grid using
// box-drawing characters to connect adjacent data points.
func buildGrid(cols []float64, minVal, maxVal float64, height int) [][]rune {
	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = make([]rune, len(cols))
		for c := range grid[r] {
			grid[r][c] = ' '
		}
	}

	rowOf := make([]int, len(cols))
	for col, v := range cols {
		if math.IsNaN(v) {
			rowOf[col] = -1 // gap
			continue
		}
		r := int(math.Round(rowForValue(v, minVal, maxVal, height)))
		if r < 0 {
			r = 0
		}
		if r >= height {
			r = height - 1
		}
		rowOf[col] = r
	}

	for col := 0; col < len(cols); col++ {
		r := rowOf[col]
		if r < 0 {
			continue
		}

		prevRow := -2
		if col > 0 {
			prevRow = rowOf[col-1]
		}
		nextRow := -2
		if col < len(cols)-1 {
			nextRow = rowOf[col+1]
		}

		if prevRow < 0 && nextRow < 0 {
			grid[r][col] = '·'
			continue
		}
		if (prevRow < 0 || prevRow == r) && (nextRow < 0 || nextRow == r) {
			grid[r][col] = '─'
			continue
		}

		switch {
		case prevRow >= 0 && prevRow < r && nextRow >= 0 && nextRow < r:
			grid[r][col] = '─'
		case prevRow >= 0 && prevRow > r && nextRow >= 0 && nextRow > r:
			grid[r][col] = '─'
		case (prevRow < 0 || prevRow < r) && nextRow >= 0 && nextRow > r:
			grid[r][col] = '╭'
		case (prevRow < 0 || prevRow > r) && nextRow >= 0 && nextRow < r:
			grid[r][col] = '╰'
		case prevRow >= 0 && prevRow < r && (nextRow < 0 || nextRow > r):
			grid[r][col] = '╮'
		case prevRow >= 0 && prevRow > r && (nextRow < 0 || nextRow < r):
			grid[r][col] = '╯'
		default:
			grid[r][col] = '│'
		}

		// Vertical connectors between this row and the previous column's row
		if prevRow >= 0 && prevRow != r {
			lo, hi := r, prevRow
			if lo > hi {
				lo, hi = hi, lo
			}
			for fill := lo + 1; fill < hi; fill++ {
				if grid[fill][col] == ' ' {
					grid[fill][col] = '│'
				}
			}
		}
	}
	return grid
}

// ─── Axis helpers ─────────────────────────────────────────────────────────────

// yTicks returns 3–4 evenly-spaced tick values for the Y axis.
func yTicks(minVal, maxVal float64, height int) []float64 {
	if maxVal == minVal {
		return []float64{minVal}
	}
	nTicks := 4
	if height <= 6 {
		nTicks = 3
	}
	ticks := make([]float64, nTicks)
	for i := 0; i < nTicks; i++ {
		ticks[i] = minVal + float64(i)*(maxVal-minVal)/float64(nTicks-1)
	}
	return ticks
}

// xAxisLabels builds a padded string with start, middle, and end labels.
func xAxisLabels(samples []Sample, plotWidth int) string {
	if len(samples) == 0 {
		return ""
	}
	startLabel := samples[0].Label
	midLabel := samples[len(samples)/2].Label
	endLabel := samples[len(samples)-1].Label

	buf := []rune(strings.Repeat(" ", plotWidth))
	writeAt := func(pos int, s string) {
		for i, ch := range []rune(s) {
			if pos+i >= 0 && pos+i < len(buf) {
				buf[pos+i] = ch
			}
		}
	}

	writeAt(0, startLabel)
	if plotWidth >= len(startLabel)+len(midLabel)+len(endLabel)+4 {
		writeAt(plotWidth/2-len(midLabel)/2, midLabel)
	}
	writeAt(plotWidth-len([]rune(endLabel)), endLabel)
	return string(buf)
}

// ─── Gauge ────────────────────────────────────────────────────────────────────

// Gauge renders a single-line percentage gauge like "Disk  [████░░░░] 41.0%".
// Any finite percentage above zero shows at least one filled cell; a missing
// value renders an empty gauge with "--".
func Gauge(w io.Writer, label string, pct float64, width int) {
	if width < 4 {
		width = 4
	}
	text := "--"
	filled := 0
	if !math.IsNaN(pct) && !math.IsInf(pct, 0) {
		p := math.Max(0, math.Min(100, pct))
		filled = int(math.Round(p / 100 * float64(width)))
		if p > 0 && filled == 0 {
			filled = 1
		}
		text = strconv.FormatFloat(pct, 'f', 1, 64) + "%"
	}
	fmt.Fprintf(w, "%s [%s%s] %s\n", label, strings.Repeat("█", filled), strings.Repeat("░", width-filled), text)
}

// ─── Strip ────────────────────────────────────────────────────────────────────

// segmentColor maps battery segments to colours: charging green,
// discharging amber, low red.
var segmentColor = map[series.Segment]*color.Color{
	series.SegmentCharging:    color.New(color.FgGreen),
	series.SegmentDischarging: color.New(color.FgYellow),
	series.SegmentLow:         color.New(color.FgRed),
}

// Strip renders the battery timeline as one coloured block per column, with
// the first and last labels underneath. Block height follows capacity.
func Strip(w io.Writer, points []series.TimelinePoint, width int) error {
	if len(points) == 0 {
		return fmt.Errorf("chart strip: no battery history")
	}
	if width <= 0 {
		width = Width()
	}
	if len(points) > width {
		points = points[len(points)-width:]
	}

	levels := []rune(" ▁▂▃▄▅▆▇█")
	var sb strings.Builder
	for _, p := range points {
		if p.Value == nil {
			sb.WriteRune(' ')
			continue
		}
		v := math.Max(0, math.Min(100, *p.Value))
		ch := levels[int(math.Round(v/100*float64(len(levels)-1)))]
		sb.WriteString(segmentColor[p.Segment].Sprint(string(ch)))
	}
	fmt.Fprintln(w, sb.String())

	first, last := points[0].Label, points[len(points)-1].Label
	pad := len(points) - len([]rune(first)) - len([]rune(last))
	if pad < 1 {
		pad = 1
	}
	fmt.Fprintf(w, "%s%s%s\n", first, strings.Repeat(" ", pad), last)
	return nil
}

// ─── Utilities ────────────────────────────────────────────────────────────────

// formatFloat formats a float for axis labels: no unnecessary trailing zeros,
// at least one decimal place, compact notation for large numbers.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	abs := math.Abs(v)
	var s string
	switch {
	case abs == 0:
		return "0"
	case abs >= 1e6:
		s = strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e3:
		s = strconv.FormatFloat(v/1e3, 'f', 1, 64) + "K"
	case abs >= 100:
		s = strconv.FormatFloat(v, 'f', 1, 64)
	case abs >= 1:
		s = strconv.FormatFloat(v, 'f', 2, 64)
	default:
		s = strconv.FormatFloat(v, 'f', 4, 64)
	}
	if strings.Contains(s, ".") && !strings.Contains(s, "M") && !strings.Contains(s, "K") {
		s = strings.TrimRight(s, "0")
		if strings.HasSuffix(s, ".") {
			s += "0"
		}
	}
	return s
}

// Width returns the width of the terminal on stdout, then $COLUMNS,
// defaulting to 80.
func Width() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		return w
	}
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 20 {
			return n
		}
	}
	return 80
}

// FromPoints converts buffer points into samples; nil values become NaN.
func FromPoints(points []series.Point) []Sample {
	out := make([]Sample, len(points))
	for i, p := range points {
		out[i] = Sample{Label: p.Label, Value: math.NaN()}
		if p.Value != nil {
			out[i].Value = *p.Value
		}
	}
	return out
}

// FromTimeline converts battery history points into samples.
func FromTimeline(points []series.TimelinePoint) []Sample {
	labels := make([]string, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		labels[i] = p.Label
		values[i] = math.NaN()
		if p.Value != nil {
			values[i] = *p.Value
		}
	}
	return Samples(labels, values)
}
