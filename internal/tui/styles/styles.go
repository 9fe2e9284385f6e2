package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray
	BlueColor      = lipgloss.Color("#60A5FA") // Blue

	// Convenience styles for colors
	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)
	Text      = lipgloss.NewStyle().Foreground(TextColor)

	// Status colors
	StatusRunning  = lipgloss.Color("#10B981") // Green
	StatusPending  = lipgloss.Color("#9CA3AF") // Gray
	StatusDone     = lipgloss.Color("#A78BFA") // Purple
	StatusFailed   = lipgloss.Color("#F87171") // Red
	StatusTimeout  = lipgloss.Color("#FB923C") // Orange
	StatusCanceled = lipgloss.Color("#FBBF24") // Yellow

	// Base styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	// Content area
	ContentBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	// Help bar
	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)

	HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	// Degraded result banner
	Banner = lipgloss.NewStyle().
		Bold(true).
		Foreground(WarningColor)
)

// StatusColor returns the color for a backend or debate status.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "running", "active":
		return StatusRunning
	case "pending":
		return StatusPending
	case "done", "ended":
		return StatusDone
	case "failed", "terminated":
		return StatusFailed
	case "timeout":
		return StatusTimeout
	case "canceled":
		return StatusCanceled
	default:
		return MutedColor
	}
}

// StatusIcon returns the icon for a backend or debate status.
func StatusIcon(status string) string {
	switch status {
	case "running", "active":
		return "●"
	case "pending":
		return "○"
	case "done", "ended":
		return "✓"
	case "failed", "terminated":
		return "✗"
	case "timeout":
		return "⏰"
	case "canceled":
		return "⚡"
	default:
		return "●"
	}
}

// Status renders icon and label in the status color.
func Status(status, label string) string {
	return lipgloss.NewStyle().Foreground(StatusColor(status)).Render(StatusIcon(status) + " " + label)
}
