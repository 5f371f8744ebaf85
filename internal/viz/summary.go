package viz

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/calinspect/internal/calib"
	"github.com/san-kum/calinspect/internal/inspect"
)

// ResidualTolerance is the largest pseudo-identity residual reported as consistent.
const ResidualTolerance = 1e-6

// Summary renders the outcome of an inspection as a bordered panel.
func Summary(rep *inspect.Report, t Theme) string {
	st := NewStyles(t)
	s := rep.Stats

	row := func(label, value string) string {
		return st.Label.Render(label) + st.Value.Render(value) + "\n"
	}

	var b strings.Builder
	b.WriteString(st.Title.Render("CALIBRATION "+strings.ToUpper(rep.Device)) + "\n")
	b.WriteString(st.Subtle.Render(rep.Dir) + "\n\n")

	b.WriteString(st.Header.Render("geometry") + "\n")
	b.WriteString(row("measurements", fmt.Sprint(rep.NMeas)))
	b.WriteString(row("modes", fmt.Sprint(rep.NModes)))
	b.WriteString(row("actuation matrix", fmt.Sprintf("%d x %d", rep.NModes, rep.NMeas)))
	b.WriteString("\n")

	b.WriteString(st.Header.Render("files") + "\n")
	for _, k := range calib.Kinds {
		if path, ok := rep.Files[k]; ok {
			b.WriteString(row(string(k), filepath.Base(path)))
		}
	}
	b.WriteString("\n")

	b.WriteString(st.Header.Render("singular values") + "\n")
	b.WriteString(row("range", fmt.Sprintf("%.4g .. %.4g", s.MinSingular, s.MaxSingular)))
	b.WriteString(row("condition number", fmt.Sprintf("%.4g", s.Condition)))
	b.WriteString(row("modes used", fmt.Sprintf("%d / %d", s.ModesUsed, s.Modes)))
	b.WriteString(st.Label.Render("power used") + st.Good.Render(Bar(s.SingularUsed, 20)) +
		st.Value.Render(fmt.Sprintf(" %.1f%%", 100*s.SingularUsed)) + "\n")
	if rep.Calibration != nil && rep.Calibration.SingVal != nil {
		b.WriteString(st.Label.Render("spectrum") + st.Value.Render(Sparkline(calib.Values(rep.Calibration.SingVal), 40)) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(st.Header.Render("checks") + "\n")
	b.WriteString(row("pseudo-ident residual", fmt.Sprintf("%.3g", s.PseudoIdentResidual)))
	b.WriteString(row("|A*M - I|", fmt.Sprintf("%.3g", s.IdentityDeviation)))
	warnings := Warnings(rep)
	for _, w := range warnings {
		b.WriteString(st.Warn.Render("! "+w) + "\n")
	}
	if len(warnings) == 0 {
		b.WriteString(st.Good.Render("✓ consistent") + "\n")
	}

	if len(rep.Images) > 0 {
		b.WriteString("\n" + st.Header.Render("images") + "\n")
		for _, img := range rep.Images {
			b.WriteString(st.Subtle.Render(img) + "\n")
		}
	}
	if rep.Elapsed > 0 {
		b.WriteString("\n" + st.KeyHint.Render(fmt.Sprintf("done in %s", rep.Elapsed.Round(time.Millisecond))))
	}

	return st.Panel.Render(strings.TrimRight(b.String(), "\n"))
}

// Warnings lists the problems found in rep, if any.
func Warnings(rep *inspect.Report) []string {
	s := rep.Stats
	var out []string
	if s.ZeroSingular > 0 {
		out = append(out, fmt.Sprintf("%d zero singular values, actuation matrix is not finite", s.ZeroSingular))
	}
	if s.PseudoIdentResidual > ResidualTolerance {
		out = append(out, "actuation * influence differs from the stored pseudo-identity")
	}
	if s.ModesUsed < s.Modes {
		out = append(out, fmt.Sprintf("cutoff drops %d modes", s.Modes-s.ModesUsed))
	}
	return out
}

// TipTiltPanel shows the tip/tilt response chart with the theme's border.
func TipTiltPanel(rep *inspect.Report, width int, t Theme) string {
	chart := TipTiltChart(rep.Tip, rep.Tilt, width, 10, t)
	if chart == "" {
		chart = "no finite tip/tilt amplitudes"
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1).
		Render(chart)
}
