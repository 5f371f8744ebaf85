package viz

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// heatRamp runs from the lowest to the highest value.
var heatRamp = []rune(" .:-=+*#%@")

const heatNonFinite = '?'

// Heat renders m as shaded characters, at most w columns by h lines, with
// row 0 on the first line. Each character averages the finite entries of
// its block; a block with none is drawn as '?'.
func Heat(m mat.Matrix, w, h int) string {
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 || w <= 0 || h <= 0 {
		return ""
	}
	w, h = min(w, cols), min(h, rows)

	cells := make([][]float64, h)
	lo, hi := math.Inf(1), math.Inf(-1)
	for y := 0; y < h; y++ {
		cells[y] = make([]float64, w)
		r0, r1 := y*rows/h, (y+1)*rows/h
		for x := 0; x < w; x++ {
			c0, c1 := x*cols/w, (x+1)*cols/w
			sum, n := 0.0, 0
			for i := r0; i < r1; i++ {
				for j := c0; j < c1; j++ {
					v := m.At(i, j)
					if math.IsNaN(v) || math.IsInf(v, 0) {
						continue
					}
					sum += v
					n++
				}
			}
			if n == 0 {
				cells[y][x] = math.NaN()
				continue
			}
			avg := sum / float64(n)
			cells[y][x] = avg
			lo, hi = math.Min(lo, avg), math.Max(hi, avg)
		}
	}

	rng := hi - lo
	if rng <= 0 || math.IsInf(rng, 0) || math.IsNaN(rng) {
		rng = 1
	}

	var b strings.Builder
	for y, line := range cells {
		if y > 0 {
			b.WriteByte('\n')
		}
		for _, v := range line {
			if math.IsNaN(v) {
				b.WriteRune(heatNonFinite)
				continue
			}
			idx := int((v - lo) / rng * float64(len(heatRamp)-1))
			b.WriteRune(heatRamp[clamp(idx, 0, len(heatRamp)-1)])
		}
	}
	return b.String()
}
