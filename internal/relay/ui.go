package relay

import (
	"log/slog"

	"github.com/rickgao/dmrelay/internal/activity"
	"github.com/rickgao/dmrelay/internal/gateway"
)

// UI shows connection state and activity to the operator. Implementations
// must be safe for concurrent use and must not block.
type UI interface {
	SetStatus(phase gateway.Phase, text string)
	SetConnectButton(label string, style gateway.ButtonStyle, disabled bool)
	CollapseSettings()
	AppendLog(e activity.Entry)
	ShowProcessing(channelID string)
	HideProcessing()
}

// LogUI is the headless UI: every notification becomes a log line.
type LogUI struct {
	logger *slog.Logger
}

// NewLogUI creates a LogUI.
func NewLogUI(logger *slog.Logger) *LogUI {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogUI{logger: logger.With("component", "ui")}
}

func (u *LogUI) SetStatus(phase gateway.Phase, text string) {
	u.logger.Info("status", "phase", phase, "text", text)
}

func (u *LogUI) SetConnectButton(label string, style gateway.ButtonStyle, disabled bool) {
	u.logger.Debug("connect button", "label", label, "style", style, "disabled", disabled)
}

func (u *LogUI) CollapseSettings() {}

func (u *LogUI) AppendLog(e activity.Entry) {
	switch e.Kind {
	case activity.KindError:
		u.logger.Error(e.Content)
	case activity.KindIncoming:
		u.logger.Info("dm received", "channel_id", e.ChannelID, "author", e.Author, "content", e.Content)
	case activity.KindOutgoing:
		u.logger.Info("dm sent", "channel_id", e.ChannelID, "content", e.Content)
	default:
		u.logger.Info(e.Content)
	}
}

func (u *LogUI) ShowProcessing(channelID string) {
	u.logger.Debug("bot thinking", "channel_id", channelID)
}

func (u *LogUI) HideProcessing() {}
