package plot

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	paletteSize = 255
	colorBarW   = 2.4 * vg.Centimeter
)

var nanColor = color.Gray{Y: 200}

// Renderer writes calibration plots into a directory.
type Renderer struct {
	OutDir string
	Format string
	Width  vg.Length
	Height vg.Length
	log    *zap.Logger
}

// New returns a Renderer for images of widthCm x heightCm in the given format
// (png, pdf, svg, eps, jpg or tif).
func New(outDir, format string, widthCm, heightCm float64, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{
		OutDir: outDir,
		Format: format,
		Width:  vg.Length(widthCm) * vg.Centimeter,
		Height: vg.Length(heightCm) * vg.Centimeter,
		log:    log,
	}
}

// FileName is the title and device concatenated, with the format extension.
func FileName(title, device, format string) string {
	return title + device + "." + format
}

// Title is the caption drawn above a calibration plot.
func Title(title, device string) string {
	return title + " [" + device + "]"
}

func (r *Renderer) path(name string) (string, error) {
	if err := os.MkdirAll(r.OutDir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(r.OutDir, name), nil
}

// Matrix draws m as a heatmap with a colorbar, row 0 at the top, and returns
// the written path. Inf and NaN cells are drawn in a neutral gray.
func (r *Renderer) Matrix(m mat.Matrix, title, device string) (string, error) {
	path, err := r.path(FileName(title, device, r.Format))
	if err != nil {
		return "", err
	}

	g := newGrid(m)
	if g.nonFinite > 0 {
		r.log.Warn("non-finite values in matrix",
			zap.String("title", title),
			zap.Int("count", g.nonFinite))
	}

	cm := moreland.SmoothBlueRed()
	cm.SetMin(g.min)
	cm.SetMax(g.max)

	hm := plotter.NewHeatMap(g, cm.Palette(paletteSize))
	hm.Min, hm.Max = g.min, g.max
	hm.NaN = nanColor

	p := gplot.New()
	p.Title.Text = Title(title, device)
	p.X.Label.Text = "column"
	p.Y.Label.Text = "row"
	p.Y.Tick.Marker = rowTicks{rows: g.rows}
	p.Add(hm)

	bar := gplot.New()
	bar.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})
	bar.HideX()
	bar.Title.Text = " "

	c, err := draw.NewFormattedCanvas(r.Width+colorBarW, r.Height, r.Format)
	if err != nil {
		return "", err
	}
	dc := draw.New(c)
	p.Draw(draw.Crop(dc, 0, -colorBarW, 0, 0))
	bar.Draw(draw.Crop(dc, r.Width, 0, 0, 0))

	if err := writeCanvas(path, c); err != nil {
		return "", err
	}
	r.log.Debug("wrote heatmap", zap.String("path", path))
	return path, nil
}

// Vector draws v as a line plot against its index and returns the written path.
func (r *Renderer) Vector(v mat.Vector, title, device string) (string, error) {
	path, err := r.path(FileName(title, device, r.Format))
	if err != nil {
		return "", err
	}

	xys, dropped := points(v)
	if dropped > 0 {
		r.log.Warn("skipping non-finite values in line plot",
			zap.String("title", title),
			zap.Int("count", dropped))
	}

	p := gplot.New()
	p.Title.Text = Title(title, device)
	p.X.Label.Text = "index"
	if len(xys) > 0 {
		line, err := plotter.NewLine(xys)
		if err != nil {
			return "", err
		}
		line.Color = plotutil.Color(0)
		p.Add(line)
	}

	if err := p.Save(r.Width, r.Height, path); err != nil {
		return "", err
	}
	r.log.Debug("wrote line plot", zap.String("path", path))
	return path, nil
}

// TipTilt draws the tip and tilt responses on one set of axes into name,
// whose extension selects the format.
func (r *Renderer) TipTilt(tip, tilt mat.Vector, name string) (string, error) {
	path, err := r.path(name)
	if err != nil {
		return "", err
	}

	p := gplot.New()
	p.Title.Text = "Tip/tilt actuation"
	p.X.Label.Text = "Mode [#]"
	p.Y.Label.Text = "Amplitude [AU]"

	tipXYs, d1 := points(tip)
	tiltXYs, d2 := points(tilt)
	if d1+d2 > 0 {
		r.log.Warn("skipping non-finite tip/tilt amplitudes", zap.Int("count", d1+d2))
	}
	var lines []interface{}
	if len(tipXYs) > 0 {
		lines = append(lines, "tip", tipXYs)
	}
	if len(tiltXYs) > 0 {
		lines = append(lines, "tilt", tiltXYs)
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return "", err
	}

	if err := p.Save(r.Width, r.Height, path); err != nil {
		return "", err
	}
	r.log.Debug("wrote tip/tilt plot", zap.String("path", path))
	return path, nil
}

func writeCanvas(path string, c vg.CanvasWriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func points(v mat.Vector) (plotter.XYs, int) {
	xys := make(plotter.XYs, 0, v.Len())
	dropped := 0
	for i := 0; i < v.Len(); i++ {
		y := v.AtVec(i)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			dropped++
			continue
		}
		xys = append(xys, plotter.XY{X: float64(i), Y: y})
	}
	return xys, dropped
}

// grid adapts a matrix to plotter.GridXYZ. Grid row 0 is the bottom of the
// plot, so it maps to the last matrix row.
type grid struct {
	m          mat.Matrix
	rows, cols int
	min, max   float64
	nonFinite  int
}

func newGrid(m mat.Matrix) *grid {
	rows, cols := m.Dims()
	g := &grid{m: m, rows: rows, cols: cols, min: math.Inf(1), max: math.Inf(-1)}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				g.nonFinite++
				continue
			}
			g.min = math.Min(g.min, v)
			g.max = math.Max(g.max, v)
		}
	}
	switch {
	case g.min > g.max:
		g.min, g.max = 0, 1
	case g.min == g.max:
		g.min, g.max = g.min-0.5, g.max+0.5
	}
	return g
}

func (g *grid) Dims() (c, r int) { return g.cols, g.rows }
func (g *grid) X(c int) float64  { return float64(c) }
func (g *grid) Y(r int) float64  { return float64(r) }
func (g *grid) Min() float64     { return g.min }
func (g *grid) Max() float64     { return g.max }

func (g *grid) Z(c, r int) float64 {
	v := g.m.At(g.rows-1-r, c)
	if math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// rowTicks labels the flipped y axis with matrix row indices.
type rowTicks struct {
	rows int
}

func (t rowTicks) Ticks(min, max float64) []gplot.Tick {
	ticks := gplot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label == "" {
			continue
		}
		ticks[i].Label = strconv.FormatFloat(float64(t.rows-1)-ticks[i].Value, 'g', -1, 64)
	}
	return ticks
}
