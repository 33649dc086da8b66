package ui

import "github.com/charmbracelet/lipgloss"

// Color palette: single cyan accent over grays.
const (
	colorCyan     = "51"  // primary accent
	colorCyanDim  = "30"  // inactive accent
	colorWhite    = "255" // headers
	colorGray     = "245" // labels, secondary text
	colorDarkGray = "238" // separators
	colorRed      = "196" // errors
	colorYellow   = "220" // warnings
)

// Styles holds the lipgloss styles used by the styled renderer and the
// result formatter.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Stage   lipgloss.Style
	Label   lipgloss.Style

	Path  lipgloss.Style
	Score lipgloss.Style
	Match lipgloss.Style
}

// DefaultStyles returns the colored style set.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorWhite)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(colorCyan)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorDarkGray)),
		Stage:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorCyanDim)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),

		Path:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorCyan)),
		Score: lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Match: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorYellow)),
	}
}

// NoColorStyles returns an unstyled set for plain mode.
func NoColorStyles() Styles {
	return Styles{}
}

// GetStyles selects a style set by color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
