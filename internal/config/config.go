package config

import "time"

// Config is the root configuration for a relay instance.
type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway"`
	API      APIConfig      `yaml:"api"`
	Settings SettingsConfig `yaml:"settings"`
	Relay    RelayConfig    `yaml:"relay"`
	Database DBConfig       `yaml:"database"`
	Writer   WriterConfig   `yaml:"writer"`
	NATS     NATSConfig     `yaml:"nats"`
	Server   ServerConfig   `yaml:"server"`
	Panel    PanelConfig    `yaml:"panel"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GatewayConfig holds Discord gateway connection settings.
type GatewayConfig struct {
	URL                string        `yaml:"url"`
	Intents            int           `yaml:"intents"`
	OS                 string        `yaml:"os"`
	Browser            string        `yaml:"browser"`
	Device             string        `yaml:"device"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
}

// APIConfig holds Discord REST settings.
type APIConfig struct {
	RestURL    string        `yaml:"rest_url"`
	ProxyURL   string        `yaml:"proxy_url"` // Optional CORS-style proxy, target passed as ?url=
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// SettingsConfig locates the persisted bot settings.
type SettingsConfig struct {
	Path string `yaml:"path"`
}

// RelayConfig holds DM handling settings.
type RelayConfig struct {
	Concurrency int    `yaml:"concurrency"`
	Reply       string `yaml:"reply"`    // Static reply; empty sends nothing
	Reaction    string `yaml:"reaction"` // Emoji added to every accepted DM
}

// DBConfig holds the optional activity log database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Enabled reports whether an activity database is configured.
func (db DBConfig) Enabled() bool {
	return db.Host != ""
}

// WriterConfig holds activity batch writer settings.
type WriterConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// NATSConfig holds the optional message bus settings.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Name    string `yaml:"name"`
}

// Enabled reports whether publishing is configured.
func (n NATSConfig) Enabled() bool {
	return n.URL != ""
}

// ServerConfig holds the optional HTTP control surface settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Enabled reports whether the HTTP surface should listen.
func (s ServerConfig) Enabled() bool {
	return s.Addr != ""
}

// PanelConfig holds terminal panel settings.
type PanelConfig struct {
	LogLines int `yaml:"log_lines"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // Log destination while the panel owns the terminal
}
