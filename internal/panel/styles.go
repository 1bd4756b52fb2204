package panel

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#5DADE2")
	colorOK      = lipgloss.Color("#2ECC71")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#7F8C8D")
	colorFg      = lipgloss.Color("#ECF0F1")
	colorDarkBg  = lipgloss.Color("#2C3E50")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Padding(0, 1)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)

	dotIdle       = lipgloss.NewStyle().Foreground(colorMuted)
	dotConnecting = lipgloss.NewStyle().Foreground(colorWarning)
	dotConnected  = lipgloss.NewStyle().Foreground(colorOK)

	buttonPrimary  = lipgloss.NewStyle().Bold(true).Foreground(colorFg).Background(colorPrimary).Padding(0, 1)
	buttonDanger   = lipgloss.NewStyle().Bold(true).Foreground(colorFg).Background(colorError).Padding(0, 1)
	buttonDisabled = lipgloss.NewStyle().Foreground(colorMuted).Background(colorDarkBg).Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	focusedCardStyle = cardStyle.BorderForeground(colorPrimary)

	logIncoming = lipgloss.NewStyle().Foreground(colorPrimary)
	logOutgoing = lipgloss.NewStyle().Foreground(colorOK)
	logError    = lipgloss.NewStyle().Foreground(colorError)
	logStatus   = lipgloss.NewStyle().Foreground(colorFg)

	hintKey  = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	hintDesc = lipgloss.NewStyle().Foreground(colorMuted)
)
