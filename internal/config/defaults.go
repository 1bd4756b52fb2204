package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultGatewayURL         = "wss://gateway.discord.gg/?v=10&encoding=json"
	DefaultIntents            = 1 | 512 | 4096 | 32768
	DefaultClientName         = "dmrelay"
	DefaultClientOS           = "linux"
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultHandshakeTimeout   = 10 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultRestURL            = "https://discord.com/api/v10"
	DefaultAPITimeout         = 15 * time.Second
	DefaultMaxRetries         = 3
	DefaultSettingsPath       = "dmrelay-settings.yaml"
	DefaultRelayConcurrency   = 4
	DefaultReaction           = "👀"
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 4
	DefaultMinConns           = 1
	DefaultBatchSize          = 100
	DefaultFlushInterval      = 1 * time.Second
	DefaultBufferSize         = 1000
	DefaultNATSSubject        = "dmrelay.messages"
	DefaultLogLines           = 200
	DefaultLogLevel           = "info"
	DefaultLogFile            = "dmrelay.log"
)

func (c *Config) applyDefaults() {
	// Gateway defaults
	if c.Gateway.URL == "" {
		c.Gateway.URL = DefaultGatewayURL
	}
	if c.Gateway.Intents == 0 {
		c.Gateway.Intents = DefaultIntents
	}
	if c.Gateway.OS == "" {
		c.Gateway.OS = DefaultClientOS
	}
	if c.Gateway.Browser == "" {
		c.Gateway.Browser = DefaultClientName
	}
	if c.Gateway.Device == "" {
		c.Gateway.Device = DefaultClientName
	}
	if c.Gateway.ReconnectBaseDelay == 0 {
		c.Gateway.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Gateway.ReconnectMaxDelay == 0 {
		c.Gateway.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Gateway.HandshakeTimeout == 0 {
		c.Gateway.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Gateway.WriteTimeout == 0 {
		c.Gateway.WriteTimeout = DefaultWriteTimeout
	}

	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	if c.Settings.Path == "" {
		c.Settings.Path = DefaultSettingsPath
	}

	// Relay defaults
	if c.Relay.Concurrency == 0 {
		c.Relay.Concurrency = DefaultRelayConcurrency
	}
	if c.Relay.Reaction == "" {
		c.Relay.Reaction = DefaultReaction
	}

	// Database defaults only matter when a host is set
	if c.Database.Enabled() {
		if c.Database.Port == 0 {
			c.Database.Port = DefaultDBPort
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = DefaultDBSSLMode
		}
		if c.Database.MaxConns == 0 {
			c.Database.MaxConns = DefaultMaxConns
		}
		if c.Database.MinConns == 0 {
			c.Database.MinConns = DefaultMinConns
		}
	}

	// Writer defaults
	if c.Writer.BatchSize == 0 {
		c.Writer.BatchSize = DefaultBatchSize
	}
	if c.Writer.FlushInterval == 0 {
		c.Writer.FlushInterval = DefaultFlushInterval
	}
	if c.Writer.BufferSize == 0 {
		c.Writer.BufferSize = DefaultBufferSize
	}

	if c.NATS.Subject == "" {
		c.NATS.Subject = DefaultNATSSubject
	}
	if c.NATS.Name == "" {
		c.NATS.Name = DefaultClientName
	}

	if c.Panel.LogLines == 0 {
		c.Panel.LogLines = DefaultLogLines
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.File == "" {
		c.Logging.File = DefaultLogFile
	}
}
