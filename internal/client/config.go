package client

import (
	"errors"
	"net/url"
	"time"
)

// Default configuration values.
const (
	DefaultServerURL  = "ws://127.0.0.1:5090/ws"
	DefaultDebounce   = 100 * time.Millisecond
	DefaultQueueDepth = 64

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Config is the client configuration.
type Config struct {
	Server ServerSection `koanf:"server"`
	Auth   AuthSection   `koanf:"auth"`

	// Tenant scopes every service this client opens.
	Tenant string `koanf:"tenant"`

	Watch WatchSection `koanf:"watch"`
	Log   LogSection   `koanf:"log"`
}

// ServerSection configures the server connection.
type ServerSection struct {
	// URL is the websocket endpoint of the varmesh server.
	URL string `koanf:"url"`

	// CACertFile adds a PEM CA bundle to the trust roots for wss
	// connections. Empty means system roots only.
	CACertFile string `koanf:"ca_cert_file"`
}

// AuthSection carries the API key credentials.
type AuthSection struct {
	KeyID string `koanf:"key_id"`
	Key   string `koanf:"key"`
}

// WatchSection configures local file watching.
type WatchSection struct {
	// Dir is where local service files live. Empty means the per-user
	// default directory.
	Dir string `koanf:"dir"`

	// DebounceInterval is the quiet period after a file write before
	// changes are detected.
	DebounceInterval time.Duration `koanf:"debounce_interval"`

	// QueueDepth bounds the pending change-event queue.
	QueueDepth int `koanf:"queue_depth"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the default client configuration.
func Default() *Config {
	return &Config{
		Server: ServerSection{
			URL: DefaultServerURL,
		},
		Watch: WatchSection{
			DebounceInterval: DefaultDebounce,
			QueueDepth:       DefaultQueueDepth,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Verify validates the configuration.
func (c *Config) Verify() error {
	if c.Server.URL == "" {
		return errors.New("server.url is required")
	}
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return errors.New("server.url is not a valid URL: " + err.Error())
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.New("server.url must use ws or wss scheme")
	}
	if c.Tenant == "" {
		return errors.New("tenant is required")
	}
	if c.Watch.DebounceInterval <= 0 {
		return errors.New("watch.debounce_interval must be positive")
	}
	if c.Watch.QueueDepth < 1 {
		return errors.New("watch.queue_depth must be at least 1")
	}
	return nil
}
