package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/calinspect/internal/calib"
	"github.com/san-kum/calinspect/internal/inspect"
	"gonum.org/v1/gonum/mat"
)

// Page is one screen of the browser: a matrix, or a set of line series
// when Matrix is nil.
type Page struct {
	Title  string
	Matrix mat.Matrix
	Series [][]float64
}

// Pages lists the calibration files of rep followed by the actuation matrix
// and its tip/tilt response.
func Pages(rep *inspect.Report) []Page {
	var pages []Page
	if cal := rep.Calibration; cal != nil {
		for _, k := range calib.Kinds {
			if m := cal.Matrix(k); m != nil {
				pages = append(pages, Page{Title: k.Title(), Matrix: m})
			} else if k == calib.KindSingVal && cal.SingVal != nil {
				pages = append(pages, Page{Title: k.Title(), Series: [][]float64{calib.Values(cal.SingVal)}})
			}
		}
	}
	if rep.Actuation != nil {
		pages = append(pages, Page{Title: inspect.ActuationTitle, Matrix: rep.Actuation})
	}
	pages = append(pages, Page{Title: "Tip/tilt actuation", Series: [][]float64{rep.Tip, rep.Tilt}})
	return pages
}

// Browser is the bubbletea model of the interactive matrix viewer.
type Browser struct {
	device        string
	pages         []Page
	page          int
	row           int
	profile       bool
	showHelp      bool
	theme         Theme
	styles        Styles
	width, height int
}

func NewBrowser(rep *inspect.Report, t Theme) Browser {
	return Browser{
		device: rep.Device,
		pages:  Pages(rep),
		theme:  t,
		styles: NewStyles(t),
		width:  80,
		height: 24,
	}
}

func (b Browser) Init() tea.Cmd { return nil }

func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
	case tea.KeyMsg:
		return b.handleKey(msg)
	}
	return b, nil
}

func (b Browser) handleKey(msg tea.KeyMsg) (Browser, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return b, tea.Quit
	case "right", "l", "n":
		b.page = (b.page + 1) % len(b.pages)
		b.row = 0
	case "left", "h", "p":
		b.page = (b.page - 1 + len(b.pages)) % len(b.pages)
		b.row = 0
	case "down", "j":
		if rows := b.rows(); b.row < rows-1 {
			b.row++
		}
	case "up", "k":
		if b.row > 0 {
			b.row--
		}
	case "tab", "v":
		b.profile = !b.profile
	case "t":
		b.theme = NextTheme(b.theme)
		b.styles = NewStyles(b.theme)
	case "?":
		b.showHelp = !b.showHelp
	}
	return b, nil
}

// Page returns the index of the page on screen.
func (b Browser) Page() int { return b.page }

// Row returns the matrix row selected for the profile view.
func (b Browser) Row() int { return b.row }

// Profile reports whether the row profile view is active.
func (b Browser) Profile() bool { return b.profile }

func (b Browser) Theme() Theme { return b.theme }

func (b Browser) rows() int {
	if m := b.pages[b.page].Matrix; m != nil {
		r, _ := m.Dims()
		return r
	}
	return 0
}

func (b Browser) View() string {
	st := b.styles
	p := b.pages[b.page]

	var s strings.Builder
	s.WriteString(st.Title.Render(fmt.Sprintf("%s [%s]", p.Title, b.device)))
	s.WriteString(st.Subtle.Render(fmt.Sprintf("  %d/%d", b.page+1, len(b.pages))) + "\n")

	plotW, plotH := max(b.width-16, 20), max(b.height-8, 6)
	switch {
	case p.Matrix == nil:
		s.WriteString(b.seriesView(p, plotW, plotH))
	case b.profile:
		s.WriteString(b.profileView(p, plotW, plotH))
	default:
		r, c := p.Matrix.Dims()
		s.WriteString(st.Subtle.Render(fmt.Sprintf("%d x %d", r, c)) + "\n")
		s.WriteString(st.Panel.Render(Heat(p.Matrix, plotW, plotH)))
	}

	s.WriteString("\n" + st.KeyHint.Render("←/→ page  tab profile  ↑/↓ row  t theme  ? help  q quit"))
	if b.showHelp {
		return lipgloss.JoinHorizontal(lipgloss.Top, s.String(), "  ", b.helpView())
	}
	return s.String()
}

func (b Browser) seriesView(p Page, w, h int) string {
	if len(p.Series) == 2 {
		chart := TipTiltChart(p.Series[0], p.Series[1], w, h, b.theme)
		if chart == "" {
			return b.styles.Warn.Render("no finite values")
		}
		return chart
	}
	chart := SingularChart(p.Series[0], w, h, b.theme)
	if chart == "" {
		return b.styles.Warn.Render("no finite values")
	}
	return chart + "\n" + b.styles.Subtle.Render(Sparkline(p.Series[0], w))
}

func (b Browser) profileView(p Page, w, h int) string {
	r, c := p.Matrix.Dims()
	values := make([]float64, c)
	mat.Row(values, b.row, p.Matrix)

	caption := fmt.Sprintf("row %d of %d", b.row, r)
	if chart := ProfileChart(values, caption, w, h/2, b.theme); chart != "" {
		canvas := NewCanvas(w/2, max(h/8, 2))
		canvas.Profile(values)
		return chart + "\n" + b.styles.Subtle.Render(canvas.String())
	}
	return b.styles.Warn.Render(caption + ": no finite values")
}

func (b Browser) helpView() string {
	help := strings.Join([]string{
		"←/→ h/l   previous/next matrix",
		"tab v     heatmap / row profile",
		"↑/↓ k/j   select row",
		"t         cycle theme",
		"?         toggle help",
		"q esc     quit",
	}, "\n")
	return b.styles.Panel.Render(help)
}

// Browse runs the browser on the terminal until the user quits.
func Browse(rep *inspect.Report, t Theme) error {
	_, err := tea.NewProgram(NewBrowser(rep, t), tea.WithAltScreen()).Run()
	return err
}
