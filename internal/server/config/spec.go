package config

// ServerConfig is the root configuration for varmesh-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	// Addr is the HTTP listen address carrying the websocket endpoint.
	Addr string `koanf:"addr"`

	// TLSCertFile and TLSKeyFile enable TLS when both are set.
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
}

// StorageSection configures persistence of service file state.
type StorageSection struct {
	// DataDir is the Badger database directory. Required unless
	// Ephemeral is set.
	DataDir string `koanf:"data_dir"`

	// Ephemeral keeps all state in memory. Nothing survives a restart.
	Ephemeral bool `koanf:"ephemeral"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
