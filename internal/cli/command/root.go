package command

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/varmesh/varmesh-go/internal/client"
	"github.com/varmesh/varmesh-go/internal/core/domain"
	"github.com/varmesh/varmesh-go/internal/core/vfile"
	"github.com/varmesh/varmesh-go/internal/infra/buildinfo"
	"github.com/varmesh/varmesh-go/internal/infra/confloader"
	"github.com/varmesh/varmesh-go/internal/telemetry/logger"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "varmesh-watch",
		Usage:   "VarMesh client for shared variable files",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			WatchCommand(),
			GetCommand(),
			SetCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Server websocket URL (e.g. ws://localhost:5090/ws)",
			EnvVars: []string{"VARMESH_SERVER_URL"},
		},
		&cli.StringFlag{
			Name:    "tenant",
			Aliases: []string{"t"},
			Usage:   "Tenant ID scoping every service",
			EnvVars: []string{"VARMESH_TENANT"},
		},
		&cli.StringFlag{
			Name:    "api-key-id",
			Aliases: []string{"k"},
			Usage:   "API key ID for authentication",
			EnvVars: []string{"VARMESH_AUTH_KEY_ID"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Aliases: []string{"K"},
			Usage:   "API key secret for authentication",
			EnvVars: []string{"VARMESH_AUTH_KEY"},
		},
		&cli.StringFlag{
			Name:    "watch-dir",
			Usage:   "Directory holding local service files",
			EnvVars: []string{"VARMESH_WATCH_DIR"},
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging",
		},
	}
}

// buildConfig assembles the client configuration from defaults, an
// optional config file, environment, and flag overrides, in that order.
func buildConfig(c *cli.Context) (*client.Config, error) {
	cfg := client.Default()

	opts := []confloader.Option{}
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if c.IsSet("server") {
		cfg.Server.URL = c.String("server")
	}
	if c.IsSet("tenant") {
		cfg.Tenant = c.String("tenant")
	}
	if c.IsSet("api-key-id") {
		cfg.Auth.KeyID = c.String("api-key-id")
	}
	if c.IsSet("api-key") {
		cfg.Auth.Key = c.String("api-key")
	}
	if c.IsSet("watch-dir") {
		cfg.Watch.Dir = c.String("watch-dir")
	}
	if c.Bool("verbose") {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// newClient builds a client from the CLI context.
func newClient(c *cli.Context) (*client.Client, *client.Config, error) {
	cfg, err := buildConfig(c)
	if err != nil {
		return nil, nil, err
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: "text",
		Output: os.Stderr,
	})
	logger.SetDefault(log)

	cl, err := client.New(cfg, client.WithLogger(log.Slog()))
	if err != nil {
		return nil, nil, err
	}
	return cl, cfg, nil
}

// parseVarSpec parses a "name:offset:length" variable layout spec.
func parseVarSpec(spec string) (domain.Variable, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return domain.Variable{}, fmt.Errorf("invalid variable spec %q, want name:offset:length", spec)
	}

	offset, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return domain.Variable{}, fmt.Errorf("invalid offset in %q: %w", spec, err)
	}
	length, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return domain.Variable{}, fmt.Errorf("invalid length in %q: %w", spec, err)
	}

	return domain.NewVariable(parts[0], offset, length, 0), nil
}

// registerVars applies --var specs to an opened service file.
func registerVars(vf *vfile.VirtualFile, specs []string) error {
	for _, spec := range specs {
		v, err := parseVarSpec(spec)
		if err != nil {
			return err
		}
		if err := vf.RegisterVariable(v); err != nil {
			return fmt.Errorf("register %s: %w", v.Name, err)
		}
	}
	return nil
}
