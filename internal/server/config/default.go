package config

// Default configuration values.
const (
	DefaultAddr    = "127.0.0.1:5090"
	DefaultDataDir = "/var/lib/varmesh-server/data"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Addr: DefaultAddr,
		},
		Storage: StorageSection{
			DataDir: DefaultDataDir,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
