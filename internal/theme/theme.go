package theme

import (
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"
)

// Colors
var (
	Primary = lipgloss.Color("#33A8FF")
	Muted   = lipgloss.Color("#6B7280")
	Success = lipgloss.Color("#10B981")
	Warning = lipgloss.Color("#F59E0B")
	Error   = lipgloss.Color("#EF4444")

	BlueEnv  = lipgloss.Color("#3B82F6")
	GreenEnv = lipgloss.Color("#22C55E")
)

// Shared styles
var (
	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	LabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Width(14)

	DashboardBoxStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(Primary).
				Padding(0, 1)

	DashboardTitleStyle = lipgloss.NewStyle().
				Bold(true)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Primary).
				Padding(0, 1)

	TableCellStyle = lipgloss.NewStyle().
			Padding(0, 1)
)

// StatusColor maps deployment states and AWS statuses to theme colors.
func StatusColor(status string) color.Color {
	switch strings.ToLower(status) {
	case "healthy", "swapped", "active", "running", "live":
		return Success
	case "failed", "unhealthy", "inactive", "error", "dropped":
		return Error
	case "starting", "pending", "draining", "maintenance":
		return Warning
	default:
		return Muted
	}
}

// RenderStatus renders a status string with a colored bullet.
func RenderStatus(status string) string {
	c := StatusColor(status)
	bullet := lipgloss.NewStyle().Foreground(c).Render("●")
	return bullet + " " + status
}

// EnvColor returns the display color of a blue/green environment.
func EnvColor(env string) color.Color {
	switch strings.ToLower(env) {
	case "blue":
		return BlueEnv
	case "green":
		return GreenEnv
	default:
		return Muted
	}
}

// RenderEnv renders an environment color in its own color.
func RenderEnv(env string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(EnvColor(env)).Render(env)
}
