package relay

import (
	"encoding/json"
	"log/slog"

	"github.com/rickgao/dmrelay/internal/activity"
	"github.com/rickgao/dmrelay/internal/gateway"
)

// Sink adapts gateway notifications to a UI, the activity recorder and a
// Handler.
type Sink struct {
	ui       UI
	handler  *Handler
	recorder activity.Recorder
	logger   *slog.Logger
}

var _ gateway.MessageSink = (*Sink)(nil)

// NewSink creates a Sink. recorder may be nil.
func NewSink(ui UI, handler *Handler, recorder activity.Recorder, logger *slog.Logger) *Sink {
	if recorder == nil {
		recorder = activity.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		ui:       ui,
		handler:  handler,
		recorder: recorder,
		logger:   logger.With("component", "sink"),
	}
}

func (s *Sink) NotifyStatus(phase gateway.Phase, text string) {
	s.ui.SetStatus(phase, text)
	if text != "" {
		s.recorder.Record(activity.NewEntry(activity.KindStatus, "", "", text))
	}
}

func (s *Sink) NotifyConnectButton(label string, style gateway.ButtonStyle, disabled bool) {
	s.ui.SetConnectButton(label, style, disabled)
}

// NotifyLog keeps error notices in the visible activity log. System notices
// only reach the logger and the recorder.
func (s *Sink) NotifyLog(message string, severity gateway.Severity) {
	if severity != gateway.SeverityError {
		s.logger.Info(message)
		s.recorder.Record(activity.NewEntry(activity.KindStatus, "", "", message))
		return
	}

	s.logger.Warn(message)
	e := activity.NewEntry(activity.KindError, "", "", message)
	s.ui.AppendLog(e)
	s.recorder.Record(e)
}

func (s *Sink) CollapseConfigurationPanel() {
	s.ui.CollapseSettings()
}

func (s *Sink) DeliverMessageEvent(payload json.RawMessage, ownUserID string) {
	if s.handler == nil {
		return
	}
	s.handler.Dispatch(payload, ownUserID)
}
