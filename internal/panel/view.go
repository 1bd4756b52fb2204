package panel

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rickgao/dmrelay/internal/activity"
	"github.com/rickgao/dmrelay/internal/gateway"
)

const emptyLog = "No activity yet. Configure the settings, then press c to connect."

func (m *Model) View() string {
	sections := []string{
		m.renderHeader(),
		m.renderSettings(),
		m.logView.View(),
		m.renderBottomBar(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	title := titleStyle.Render("dmrelay")
	if m.opts.Version != "" {
		title += mutedStyle.Render(m.opts.Version)
	}

	dot := dotIdle
	switch m.phase {
	case gateway.PhaseConnecting:
		dot = dotConnecting
	case gateway.PhaseConnected:
		dot = dotConnected
	}
	status := dot.Render("●") + " " + m.statusText
	if m.statusText == "" && m.phase == gateway.PhaseConnecting {
		status = dot.Render("●") + " Connecting..."
	}

	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", status, "  ", m.renderButton())
}

func (m *Model) renderButton() string {
	label := "[c] " + m.button.label
	switch {
	case m.button.disabled:
		return buttonDisabled.Render(label)
	case m.button.style == gateway.ButtonDanger:
		return buttonDanger.Render(label)
	default:
		return buttonPrimary.Render(label)
	}
}

func (m *Model) renderSettings() string {
	if !m.settingsOpen {
		return mutedStyle.Render("▸ Configuration (s to expand)")
	}

	var b strings.Builder
	b.WriteString("▾ Configuration")
	if m.notice != "" {
		b.WriteString("  " + logOutgoing.Render(m.notice))
	}
	b.WriteString("\n")

	if m.editing {
		b.WriteString("Token:   " + m.tokenInput.View() + "\n")
		b.WriteString("Allowed: " + m.usersInput.View() + "\n")
		b.WriteString(mutedStyle.Render("enter save • tab next field • esc cancel"))
		return focusedCardStyle.Render(b.String())
	}

	current := m.store.Get()
	b.WriteString("Token:   " + maskToken(current.BotToken) + "\n")
	allowed := "everyone"
	if len(current.AllowedUsers) > 0 {
		allowed = strings.Join(current.AllowedUsers, ", ")
	}
	b.WriteString("Allowed: " + allowed)
	return cardStyle.Render(b.String())
}

func (m *Model) renderLog() string {
	if len(m.entries) == 0 && m.processing == "" {
		return mutedStyle.Render(emptyLog)
	}

	lines := make([]string, 0, len(m.entries)+1)
	for _, e := range m.entries {
		lines = append(lines, renderEntry(e))
	}
	if m.processing != "" {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("Bot thinking... (channel %s)", m.processing)))
	}
	return strings.Join(lines, "\n")
}

func renderEntry(e activity.Entry) string {
	ts := mutedStyle.Render(e.OccurredAt.Format("15:04:05"))
	switch e.Kind {
	case activity.KindIncoming:
		return ts + " " + logIncoming.Render(e.Author+": ") + e.Content
	case activity.KindOutgoing:
		return ts + " " + logOutgoing.Render(e.Author+": ") + e.Content
	case activity.KindError:
		return ts + " " + logError.Render(e.Content)
	default:
		return ts + " " + logStatus.Render(e.Content)
	}
}

func (m *Model) renderBottomBar() string {
	hints := []string{
		hintKey.Render("c") + hintDesc.Render(":connect"),
		hintKey.Render("s") + hintDesc.Render(":settings"),
		hintKey.Render("e") + hintDesc.Render(":edit"),
		hintKey.Render("x") + hintDesc.Render(":clear"),
		hintKey.Render("q") + hintDesc.Render(":quit"),
	}
	return strings.Join(hints, "  ")
}

// maskToken shows only the last four characters.
func maskToken(token string) string {
	if token == "" {
		return mutedStyle.Render("not set")
	}
	if len(token) <= 4 {
		return strings.Repeat("•", len(token))
	}
	return strings.Repeat("•", 8) + token[len(token)-4:]
}
