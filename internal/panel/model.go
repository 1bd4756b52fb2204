package panel

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rickgao/dmrelay/internal/activity"
	"github.com/rickgao/dmrelay/internal/gateway"
	"github.com/rickgao/dmrelay/internal/settings"
)

// Gateway is the connection the panel controls.
type Gateway interface {
	Connect() error
	Disconnect() error
	Snapshot() gateway.Snapshot
}

// SettingsStore reads and saves the bot credentials.
type SettingsStore interface {
	Get() settings.Settings
	Update(token string, users []string) error
}

// Options configures a Model.
type Options struct {
	LogLines int    // Entries kept in the activity log
	Version  string // Shown in the title
}

type actionMsg struct {
	err error
}

type savedMsg struct {
	err error
}

type clearNoticeMsg struct{}

const savedNoticeFor = 2 * time.Second

type field int

const (
	fieldToken field = iota
	fieldUsers
)

// Model is the bubbletea control panel.
type Model struct {
	keys     KeyMap
	gw       Gateway
	store    SettingsStore
	notifier *Notifier
	opts     Options

	width  int
	height int

	phase      gateway.Phase
	statusText string
	button     buttonMsg

	settingsOpen bool
	editing      bool
	focus        field
	tokenInput   textinput.Model
	usersInput   textinput.Model
	notice       string

	entries    []activity.Entry
	processing string
	logView    viewport.Model
}

// New creates the panel model. Notifications sent to n are applied by the
// model once the program runs.
func New(gw Gateway, store SettingsStore, n *Notifier, opts Options) *Model {
	if opts.LogLines < 1 {
		opts.LogLines = 200
	}

	token := textinput.New()
	token.Placeholder = "Bot token"
	token.EchoMode = textinput.EchoPassword
	token.EchoCharacter = '•'
	token.CharLimit = 200

	users := textinput.New()
	users.Placeholder = "alice, bob (empty allows everyone)"
	users.CharLimit = 1000

	m := &Model{
		keys:         DefaultKeyMap(),
		gw:           gw,
		store:        store,
		notifier:     n,
		opts:         opts,
		phase:        gateway.PhaseIdle,
		statusText:   "Disconnected",
		button:       buttonMsg{label: "Connect", style: gateway.ButtonPrimary},
		settingsOpen: true,
		tokenInput:   token,
		usersInput:   users,
		logView:      viewport.New(80, 10),
	}
	m.refreshLog()
	return m
}

func (m *Model) Init() tea.Cmd {
	return m.notifier.listen()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case statusMsg:
		m.phase = msg.phase
		m.statusText = msg.text
		return m, m.notifier.listen()

	case buttonMsg:
		m.button = msg
		return m, m.notifier.listen()

	case collapseMsg:
		if !m.editing {
			m.settingsOpen = false
			m.resize()
		}
		return m, m.notifier.listen()

	case entryMsg:
		m.appendEntry(msg.entry)
		return m, m.notifier.listen()

	case processingMsg:
		m.processing = ""
		if msg.active {
			m.processing = msg.channelID
		}
		m.refreshLog()
		return m, m.notifier.listen()

	case actionMsg:
		if msg.err != nil && !errors.Is(msg.err, gateway.ErrClosed) {
			m.appendEntry(activity.NewEntry(activity.KindError, "", "", "Error: "+msg.err.Error()))
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.appendEntry(activity.NewEntry(activity.KindError, "", "", "Error: "+msg.err.Error()))
			return m, nil
		}
		m.editing = false
		m.tokenInput.Blur()
		m.usersInput.Blur()
		m.notice = "Saved"
		return m, tea.Tick(savedNoticeFor, func(time.Time) tea.Msg { return clearNoticeMsg{} })

	case clearNoticeMsg:
		m.notice = ""
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateNormal(msg)
	}

	return m, nil
}

func (m *Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.notifier.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		if m.button.disabled {
			return m, nil
		}
		return m, m.toggle()

	case key.Matches(msg, m.keys.Settings):
		m.settingsOpen = !m.settingsOpen
		m.resize()

	case key.Matches(msg, m.keys.Edit):
		m.startEditing()
		m.resize()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Clear):
		m.entries = nil
		m.refreshLog()

	default:
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.editing = false
		m.tokenInput.Blur()
		m.usersInput.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Next):
		if m.focus == fieldToken {
			m.focus = fieldUsers
			m.tokenInput.Blur()
			return m, m.usersInput.Focus()
		}
		m.focus = fieldToken
		m.usersInput.Blur()
		return m, m.tokenInput.Focus()

	case key.Matches(msg, m.keys.Save):
		return m, m.save()
	}

	var cmd tea.Cmd
	if m.focus == fieldToken {
		m.tokenInput, cmd = m.tokenInput.Update(msg)
	} else {
		m.usersInput, cmd = m.usersInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) startEditing() {
	current := m.store.Get()
	m.tokenInput.SetValue(current.BotToken)
	m.usersInput.SetValue(strings.Join(current.AllowedUsers, ", "))
	m.settingsOpen = true
	m.editing = true
	m.focus = fieldToken
	m.usersInput.Blur()
	m.tokenInput.Focus()
}

// toggle disconnects when a socket or a reconnect timer exists, otherwise
// connects.
func (m *Model) toggle() tea.Cmd {
	gw := m.gw
	return func() tea.Msg {
		if gw.Snapshot().Active() {
			return actionMsg{err: gw.Disconnect()}
		}
		return actionMsg{err: gw.Connect()}
	}
}

func (m *Model) save() tea.Cmd {
	store := m.store
	token := strings.TrimSpace(m.tokenInput.Value())
	users := settings.ParseUsers(m.usersInput.Value())
	return func() tea.Msg {
		return savedMsg{err: store.Update(token, users)}
	}
}

func (m *Model) appendEntry(e activity.Entry) {
	m.entries = append(m.entries, e)
	if over := len(m.entries) - m.opts.LogLines; over > 0 {
		m.entries = append(m.entries[:0], m.entries[over:]...)
	}
	m.refreshLog()
}

func (m *Model) refreshLog() {
	m.logView.SetContent(m.renderLog())
	m.logView.GotoBottom()
}

// resize fits the log viewport below the header and settings card.
func (m *Model) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	used := lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.renderSettings()) + 2
	h := m.height - used
	if h < 3 {
		h = 3
	}
	m.logView.Width = m.width
	m.logView.Height = h
	m.refreshLog()
}
