package report

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha, the subset the reports use.
const (
	colorPink     lipgloss.Color = "#f5c2e7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface1 lipgloss.Color = "#45475a"
	colorSurface2 lipgloss.Color = "#585b70"
)

const (
	colorBrand   = colorPink
	colorSuccess = colorGreen
	colorError   = colorRed
	colorWarning = colorYellow
	colorInfo    = colorTeal
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(colorBrand).Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSurface1).
			Padding(0, 1)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSubtext0).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().Foreground(colorSurface2)
	labelStyle     = lipgloss.NewStyle().Foreground(colorSubtext0)
	valueStyle     = lipgloss.NewStyle().Foreground(colorPeach)
	textStyle      = lipgloss.NewStyle().Foreground(colorText)
	mutedStyle     = lipgloss.NewStyle().Foreground(colorOverlay1)
	accentStyle    = lipgloss.NewStyle().Foreground(colorLavender).Bold(true)

	creditStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	debitStyle  = lipgloss.NewStyle().Foreground(colorError)

	warningStyle  = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	positiveStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	infoStyle     = lipgloss.NewStyle().Foreground(colorInfo).Bold(true)
)
