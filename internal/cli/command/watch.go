package command

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/varmesh/varmesh-go/internal/core/domain"
)

// WatchCommand streams variable change events from a local service file.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch a local service file and stream variable changes as JSON lines",
		ArgsUsage: "SERVICE_ID",
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:  "size",
				Usage: "Service file size in bytes",
				Value: 4096,
			},
			&cli.StringSliceFlag{
				Name:    "var",
				Aliases: []string{"v"},
				Usage:   "Variable layout as name:offset:length (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "push",
				Usage: "Push detected changes to the server (requires credentials)",
			},
		},
		Action: runWatch,
	}
}

func runWatch(c *cli.Context) error {
	serviceID := c.Args().First()
	if serviceID == "" {
		return errors.New("SERVICE_ID argument is required")
	}

	cl, cfg, err := newClient(c)
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	push := c.Bool("push")
	if push || cfg.Auth.KeyID != "" {
		if err := cl.Connect(ctx); err != nil {
			return err
		}
	}

	vf, err := cl.OpenLocal(cfg.Tenant, serviceID, c.Uint64("size"))
	if err != nil {
		return err
	}
	if err := registerVars(vf, c.StringSlice("var")); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for {
		ev, err := cl.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrWatcherStopped) {
				return nil
			}
			return err
		}

		if err := enc.Encode(ev); err != nil {
			return err
		}

		if push {
			if err := cl.PushChanges(ctx, cfg.Tenant, ev.ServiceID); err != nil {
				return err
			}
		}
	}
}
