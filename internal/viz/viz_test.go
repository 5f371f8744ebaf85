package viz

import (
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/calinspect/internal/calib"
	"github.com/san-kum/calinspect/internal/inspect"
)

func testReport(t *testing.T) *inspect.Report {
	t.Helper()
	cal, err := calib.Synthesize(calib.RandomInfluence(8, 4, 7))
	require.NoError(t, err)
	act, err := calib.Actuation(cal.U, cal.SingVal, cal.V)
	require.NoError(t, err)
	tip, tilt, err := calib.TipTilt(act)
	require.NoError(t, err)

	return &inspect.Report{
		Dir:    "/data/FOAM_data",
		Device: "ixonwfs_alpao_dm97",
		NMeas:  8,
		NModes: 4,
		Files: map[calib.Kind]string{
			calib.KindInfMat: "/data/x.ixonwfs_alpao_dm97_infmat_8_4.csv",
		},
		Stats:       calib.Analyze(cal, act, 0),
		Tip:         calib.Values(tip),
		Tilt:        calib.Values(tilt),
		Calibration: cal,
		Actuation:   act,
	}
}

func TestGetTheme(t *testing.T) {
	assert.Equal(t, "ocean", GetTheme("ocean").Name)
	assert.Equal(t, "cyberpunk", GetTheme("nonexistent").Name)
	assert.Len(t, ThemeNames(), len(Themes))

	th := ThemeCyberpunk
	for range Themes {
		th = NextTheme(th)
	}
	assert.Equal(t, ThemeCyberpunk.Name, th.Name)
}

func TestHeat(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	assert.Equal(t, "@ \n @", Heat(m, 10, 10))

	withInf := mat.NewDense(1, 3, []float64{0, math.Inf(1), 2})
	assert.Equal(t, " ?@", Heat(withInf, 3, 1))

	big := mat.NewDense(40, 60, nil)
	lines := strings.Split(Heat(big, 30, 10), "\n")
	assert.Len(t, lines, 10)
	assert.Equal(t, 30, len([]rune(lines[0])))
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "▁█", Sparkline([]float64{0, 1}, 10))
	assert.Equal(t, "▁·█", Sparkline([]float64{0, math.NaN(), 1}, 10))
	assert.Len(t, []rune(Sparkline(make([]float64, 100), 25)), 25)
	assert.Equal(t, "───", Sparkline(nil, 3))
}

func TestBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", Bar(0.5, 10))
	assert.Equal(t, "██████████", Bar(2, 10))
	assert.Equal(t, "░░░░░░░░░░", Bar(-1, 10))
}

func TestCanvasProfile(t *testing.T) {
	blank := strings.Repeat(string(rune(brailleBlank)), 4)
	c := NewCanvas(4, 2)
	assert.Equal(t, blank+"\n"+blank, c.String())

	c.Profile([]float64{0, 1, 0, math.NaN(), 1})
	assert.NotEqual(t, blank+"\n"+blank, c.String())

	c.Clear()
	c.Set(0, 0)
	c.Set(100, 100)
	assert.Equal(t, string(rune(brailleBlank|0x1))+blank[3:]+"\n"+blank, c.String())
}

func TestCharts(t *testing.T) {
	out := TipTiltChart([]float64{1, 2, 3}, []float64{3, 2, 1}, 20, 5, ThemeMinimal)
	assert.Contains(t, out, "tip")
	assert.Contains(t, out, "tilt")

	only := TipTiltChart([]float64{math.Inf(1)}, []float64{1, 2}, 20, 5, ThemeMinimal)
	assert.Contains(t, only, "tilt")

	assert.Empty(t, SingularChart([]float64{math.NaN(), math.Inf(1)}, 20, 5, ThemeMinimal))
	assert.Contains(t, SingularChart([]float64{4, 2, 1}, 20, 5, ThemeMinimal), "singular values")
}

func TestSummary(t *testing.T) {
	rep := testReport(t)
	out := Summary(rep, ThemeMinimal)

	assert.Contains(t, out, "IXONWFS_ALPAO_DM97")
	assert.Contains(t, out, "x.ixonwfs_alpao_dm97_infmat_8_4.csv")
	assert.Contains(t, out, "consistent")
	assert.Empty(t, Warnings(rep))
}

func TestWarnings(t *testing.T) {
	rep := testReport(t)
	rep.Stats.ZeroSingular = 1
	rep.Stats.ModesUsed = 2
	rep.Stats.PseudoIdentResidual = 1

	w := Warnings(rep)
	require.Len(t, w, 3)
	assert.Contains(t, w[0], "zero singular")
	assert.Contains(t, w[2], "drops 2 modes")
}

func key(s string) tea.KeyMsg {
	switch s {
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(b Browser, keys ...string) Browser {
	for _, k := range keys {
		m, _ := b.Update(key(k))
		b = m.(Browser)
	}
	return b
}

func TestPages(t *testing.T) {
	pages := Pages(testReport(t))
	require.Len(t, pages, len(calib.Kinds)+2)
	assert.Equal(t, "Influence matrix", pages[0].Title)
	assert.Equal(t, inspect.ActuationTitle, pages[len(pages)-2].Title)
	assert.Nil(t, pages[len(pages)-1].Matrix)
}

func TestBrowserNavigation(t *testing.T) {
	b := NewBrowser(testReport(t), ThemeMinimal)
	n := len(b.pages)

	b = press(b, "right", "right")
	assert.Equal(t, 2, b.Page())

	b = press(b, "left", "left", "left")
	assert.Equal(t, n-1, b.Page())

	b = press(b, "right", "down", "down")
	assert.Equal(t, 0, b.Page())
	assert.Equal(t, 2, b.Row())

	b = press(b, "tab")
	assert.True(t, b.Profile())
	assert.Contains(t, b.View(), "row 2 of 8")

	b = press(b, "right")
	assert.Equal(t, 0, b.Row())

	b = press(b, "t")
	assert.Equal(t, NextTheme(ThemeMinimal).Name, b.Theme().Name)
}

func TestBrowserRowBounds(t *testing.T) {
	b := NewBrowser(testReport(t), ThemeMinimal)
	for i := 0; i < 20; i++ {
		b = press(b, "down")
	}
	assert.Equal(t, 7, b.Row())

	b = press(b, "k", "k")
	assert.Equal(t, 5, b.Row())
}

func TestBrowserQuit(t *testing.T) {
	b := NewBrowser(testReport(t), ThemeMinimal)
	_, cmd := b.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestBrowserViewEveryPage(t *testing.T) {
	b := NewBrowser(testReport(t), ThemeMinimal)
	for i := 0; i < len(b.pages); i++ {
		out := b.View()
		assert.Contains(t, out, b.pages[i].Title)
		b = press(b, "right")
	}
}
