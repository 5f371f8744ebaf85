// Package viz renders calibration reports on the terminal.
//
//   - [Summary]: a lipgloss panel with geometry, singular values and checks
//   - [Heat]: a shaded character heatmap of a matrix
//   - [TipTiltChart], [SingularChart]: asciigraph line charts
//   - [Browser]: a Bubble Tea viewer that pages through every matrix
//
// # Key Bindings
//
//	←/→ h/l - Previous/next matrix
//	Tab     - Toggle heatmap and row profile
//	↑/↓ k/j - Select the profiled row
//	T       - Cycle color themes
//	?       - Show help
//	Q       - Quit
package viz
