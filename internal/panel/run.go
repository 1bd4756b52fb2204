// Package panel is the terminal control panel: connection status, the
// connect button, the bot settings card and the activity log.
package panel

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrQuit is returned by Run when the operator quits the panel.
var ErrQuit = errors.New("panel closed")

// Run shows the panel until the operator quits or ctx is cancelled.
func Run(ctx context.Context, m *Model) error {
	defer m.notifier.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	}
	if ctx.Err() != nil {
		return nil
	}
	return ErrQuit
}
