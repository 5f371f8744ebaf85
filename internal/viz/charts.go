package viz

import (
	"math"

	"github.com/guptarohit/asciigraph"
)

// chartable replaces Inf with NaN, which asciigraph leaves as a gap, and
// reports whether any finite value remains.
func chartable(values []float64) ([]float64, bool) {
	out := make([]float64, len(values))
	ok := false
	for i, v := range values {
		if math.IsInf(v, 0) {
			v = math.NaN()
		}
		if !math.IsNaN(v) {
			ok = true
		}
		out[i] = v
	}
	return out, ok
}

// SingularChart plots the singular value spectrum. It returns "" when
// there is nothing finite to plot.
func SingularChart(values []float64, width, height int, t Theme) string {
	data, ok := chartable(values)
	if !ok {
		return ""
	}
	return asciigraph.Plot(data,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.SeriesColors(t.Tip),
		asciigraph.Caption("singular values"))
}

// TipTiltChart plots the tip and tilt mode amplitudes on shared axes.
func TipTiltChart(tip, tilt []float64, width, height int, t Theme) string {
	var (
		series  [][]float64
		colors  []asciigraph.AnsiColor
		legends []string
	)
	if data, ok := chartable(tip); ok {
		series = append(series, data)
		colors = append(colors, t.Tip)
		legends = append(legends, "tip")
	}
	if data, ok := chartable(tilt); ok {
		series = append(series, data)
		colors = append(colors, t.Tilt)
		legends = append(legends, "tilt")
	}
	if len(series) == 0 {
		return ""
	}
	return asciigraph.PlotMany(series,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(legends...),
		asciigraph.Caption("tip/tilt actuation [mode]"))
}

// ProfileChart plots one row of a matrix.
func ProfileChart(values []float64, caption string, width, height int, t Theme) string {
	data, ok := chartable(values)
	if !ok {
		return ""
	}
	return asciigraph.Plot(data,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.SeriesColors(t.Tilt),
		asciigraph.Caption(caption))
}
