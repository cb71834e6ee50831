package config

import "time"

// SyncConfig is the root configuration for a sync daemon instance.
type SyncConfig struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Server    ServerConfig    `yaml:"server"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Session   SessionConfig   `yaml:"session"`
	Keepalive KeepaliveConfig `yaml:"keepalive"`
	Database  DatabaseConfig  `yaml:"database"`
	History   HistoryConfig   `yaml:"history"`
	Health    HealthConfig    `yaml:"health"`
}

// InstanceConfig identifies this sync daemon.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig locates the status server's push endpoint.
type ServerConfig struct {
	// Origin is the server base URL. http/https origins are mapped to
	// the matching WebSocket scheme.
	Origin string `yaml:"origin"`

	// Path is the push endpoint path on the server.
	Path string `yaml:"path"`
}

// ReconnectConfig holds reconnection backoff settings.
type ReconnectConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// SessionConfig holds per-connection transport settings.
type SessionConfig struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	StaleTimeout     time.Duration `yaml:"stale_timeout"`
}

// KeepaliveConfig holds application-level keepalive settings.
type KeepaliveConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// DatabaseConfig holds the TimescaleDB connection for update history.
type DatabaseConfig struct {
	History DBConfig `yaml:"history"`
}

// DBConfig holds a single database connection.
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

// HistoryConfig holds update history recorder settings.
type HistoryConfig struct {
	// Enabled turns on persistence of accepted updates. When false the
	// daemon runs without a database.
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// HealthConfig holds the local health/debug HTTP server settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}
