package confloader

import (
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	Server struct {
		Addr string `koanf:"addr"`
	} `koanf:"server"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}

	l = NewLoader(WithEnvPrefix("TEST_"), WithConfigFile("/path/to/config.yaml"))
	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q, want TEST_", l.envPrefix)
	}
	if l.filePath != "/path/to/config.yaml" {
		t.Errorf("filePath = %q", l.filePath)
	}
}

func TestLoader_LoadFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: "0.0.0.0:5090"
log:
  level: "debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	l := NewLoader()
	if err := l.LoadFile(configPath); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if addr := l.GetString("server.addr"); addr != "0.0.0.0:5090" {
		t.Errorf("server.addr = %q, want 0.0.0.0:5090", addr)
	}
}

func TestLoader_LoadFile_NotFound(t *testing.T) {
	l := NewLoader()
	if err := l.LoadFile("/nonexistent/config.yaml"); err == nil {
		t.Error("LoadFile() accepted a nonexistent file")
	}
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: "127.0.0.1:5090"
log:
  level: "info"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("VARMESH_LOG_LEVEL", "debug")

	var cfg testConfig
	l := NewLoader(WithConfigFile(configPath))
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:5090" {
		t.Errorf("Server.Addr = %q, want file value", cfg.Server.Addr)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want env override debug", cfg.Log.Level)
	}
}

func TestLoader_EnvMultiWordKey(t *testing.T) {
	t.Setenv("VARMESH_SERVER_TLS_CERT_FILE", "/etc/varmesh/server.crt")

	l := NewLoader()
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	if got := l.GetString("server.tls_cert_file"); got != "/etc/varmesh/server.crt" {
		t.Errorf("server.tls_cert_file = %q, want /etc/varmesh/server.crt", got)
	}
}

func TestLoader_DefaultsSurvive(t *testing.T) {
	var cfg testConfig
	cfg.Server.Addr = "default:1234"

	l := NewLoader()
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != "default:1234" {
		t.Errorf("Server.Addr = %q, want untouched default", cfg.Server.Addr)
	}
}
