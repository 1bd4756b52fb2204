package panel

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rickgao/dmrelay/internal/activity"
	"github.com/rickgao/dmrelay/internal/gateway"
)

type statusMsg struct {
	phase gateway.Phase
	text  string
}

type buttonMsg struct {
	label    string
	style    gateway.ButtonStyle
	disabled bool
}

type collapseMsg struct{}

type entryMsg struct {
	entry activity.Entry
}

type processingMsg struct {
	channelID string
	active    bool
}

// Notifier implements relay.UI by queueing messages for the panel model.
// Calls made after Close are dropped.
type Notifier struct {
	ch        chan tea.Msg
	done      chan struct{}
	closeOnce sync.Once
}

// NewNotifier creates a Notifier with room for buffer pending updates.
func NewNotifier(buffer int) *Notifier {
	if buffer < 1 {
		buffer = 256
	}
	return &Notifier{
		ch:   make(chan tea.Msg, buffer),
		done: make(chan struct{}),
	}
}

func (n *Notifier) SetStatus(phase gateway.Phase, text string) {
	n.send(statusMsg{phase: phase, text: text})
}

func (n *Notifier) SetConnectButton(label string, style gateway.ButtonStyle, disabled bool) {
	n.send(buttonMsg{label: label, style: style, disabled: disabled})
}

func (n *Notifier) CollapseSettings() {
	n.send(collapseMsg{})
}

func (n *Notifier) AppendLog(e activity.Entry) {
	n.send(entryMsg{entry: e})
}

func (n *Notifier) ShowProcessing(channelID string) {
	n.send(processingMsg{channelID: channelID, active: true})
}

func (n *Notifier) HideProcessing() {
	n.send(processingMsg{})
}

// Close stops delivery.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() { close(n.done) })
}

func (n *Notifier) send(msg tea.Msg) {
	select {
	case <-n.done:
		return
	default:
	}
	select {
	case <-n.done:
	case n.ch <- msg:
	}
}

// listen waits for the next queued update.
func (n *Notifier) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-n.ch:
			return msg
		case <-n.done:
			return nil
		}
	}
}
