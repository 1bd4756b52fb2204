package gateway

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrNoToken = errors.New("no bot token configured")
	ErrClosed  = errors.New("connection manager closed")
)

// Opcode is a gateway frame opcode.
type Opcode int

// https://discord.com/developers/docs/topics/opcodes-and-status-codes
const (
	OpDispatch       Opcode = 0
	OpHeartbeat      Opcode = 1
	OpIdentify       Opcode = 2
	OpResume         Opcode = 6
	OpReconnect      Opcode = 7
	OpInvalidSession Opcode = 9
	OpHello          Opcode = 10
	OpHeartbeatAck   Opcode = 11
)

// Close codes sent by the client.
const (
	CloseNormal = 1000
	// CloseZombie marks closures forced by the client (missed ACK or server
	// reconnect request). Local logging only; resumability is decided from
	// session state.
	CloseZombie = 4000
)

// Dispatch event names.
const (
	EventReady         = "READY"
	EventResumed       = "RESUMED"
	EventMessageCreate = "MESSAGE_CREATE"
)

// Intent bits.
const (
	IntentGuilds         = 1 << 0
	IntentGuildMessages  = 1 << 9
	IntentDirectMessages = 1 << 12
	IntentMessageContent = 1 << 15

	DefaultIntents = IntentGuilds | IntentGuildMessages | IntentDirectMessages | IntentMessageContent
)

// Frame is an inbound gateway frame.
type Frame struct {
	Op Opcode          `json:"op"`
	D  json.RawMessage `json:"d"`
	S  *int64          `json:"s"`
	T  string          `json:"t"`
}

// outboundFrame is a client-to-server frame. D is always present on the wire.
type outboundFrame struct {
	Op Opcode `json:"op"`
	D  any    `json:"d"`
}

// HelloData is the payload of OpHello.
type HelloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

// IdentifyProperties is the client metadata sent with OpIdentify.
type IdentifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

// IdentifyData is the payload of OpIdentify.
type IdentifyData struct {
	Token      string             `json:"token"`
	Intents    int                `json:"intents"`
	Properties IdentifyProperties `json:"properties"`
}

// ResumeData is the payload of OpResume.
type ResumeData struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Seq       int64  `json:"seq"`
}

// User is the subset of a Discord user the manager needs.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot,omitempty"`
}

// ReadyData is the payload of the READY dispatch.
type ReadyData struct {
	User             User   `json:"user"`
	SessionID        string `json:"session_id"`
	ResumeGatewayURL string `json:"resume_gateway_url"`
}

// Phase is the coarse connection status shown to the user.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseConnecting Phase = "connecting"
	PhaseConnected  Phase = "connected"
)

// ButtonStyle is the visual style of the connect button.
type ButtonStyle string

const (
	ButtonPrimary ButtonStyle = "btn-primary"
	ButtonDanger  ButtonStyle = "btn-danger"
)

// Severity of a log notification. Only SeverityError is guaranteed to be
// user-visible.
type Severity string

const (
	SeveritySystem Severity = "system-msg"
	SeverityError  Severity = "error-msg"
)

// SettingsProvider supplies credentials. Read-only from the manager's side.
type SettingsProvider interface {
	Token() string
}

// MessageSink consumes status notifications and routed dispatch payloads.
// Calls are made from the event loop and must not block.
type MessageSink interface {
	NotifyStatus(phase Phase, text string)
	NotifyConnectButton(label string, style ButtonStyle, disabled bool)
	NotifyLog(message string, severity Severity)
	CollapseConfigurationPanel()
	DeliverMessageEvent(payload json.RawMessage, ownUserID string)
}

// Config configures a Connection.
type Config struct {
	URL              string             // Default gateway endpoint
	Intents          int                // Identify intent bitmask
	Properties       IdentifyProperties // Identify client metadata
	ReconnectBase    time.Duration      // Initial and post-READY backoff
	ReconnectMax     time.Duration      // Backoff ceiling
	RetryMin         time.Duration      // Invalid-session retry window start
	RetryMax         time.Duration      // Invalid-session retry window end (exclusive)
	HandshakeTimeout time.Duration      // WebSocket dial handshake timeout
	WriteTimeout     time.Duration      // Write deadline for sends
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:     "wss://gateway.discord.gg/?v=10&encoding=json",
		Intents: DefaultIntents,
		Properties: IdentifyProperties{
			OS:      "linux",
			Browser: "dmrelay",
			Device:  "dmrelay",
		},
		ReconnectBase:    1 * time.Second,
		ReconnectMax:     60 * time.Second,
		RetryMin:         1 * time.Second,
		RetryMax:         5 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// Snapshot is a point-in-time copy of observable connection state.
type Snapshot struct {
	Phase          Phase         `json:"phase"`
	Open           bool          `json:"open"`
	Stopped        bool          `json:"stopped"`
	ReconnectArmed bool          `json:"reconnect_armed"`
	SessionID      string        `json:"session_id,omitempty"`
	Sequence       *int64        `json:"sequence,omitempty"`
	UserID         string        `json:"user_id,omitempty"`
	Username       string        `json:"username,omitempty"`
	ReconnectDelay time.Duration `json:"reconnect_delay"`
	HeartbeatEvery time.Duration `json:"heartbeat_interval"`
}

// Active reports whether a socket or a pending reconnect exists.
func (s Snapshot) Active() bool {
	return s.Open || s.ReconnectArmed
}
