package command

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

// GetCommand reads one variable from a local service file.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Read a variable from a local service file",
		ArgsUsage: "SERVICE_ID NAME",
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
				Name:  "hex",
				Usage: "Print the value hex-encoded instead of raw",
			},
		},
		Action: runGet,
	}
}

func runGet(c *cli.Context) error {
	serviceID, name := c.Args().Get(0), c.Args().Get(1)
	if serviceID == "" || name == "" {
		return errors.New("SERVICE_ID and NAME arguments are required")
	}

	cl, cfg, err := newClient(c)
	if err != nil {
		return err
	}
	defer cl.Close()

	vf, err := cl.OpenLocal(cfg.Tenant, serviceID, c.Uint64("size"))
	if err != nil {
		return err
	}
	if err := registerVars(vf, c.StringSlice("var")); err != nil {
		return err
	}

	data, err := vf.ReadVariable(name)
	if err != nil {
		return err
	}

	if c.Bool("hex") {
		fmt.Println(hex.EncodeToString(data))
		return nil
	}
	os.Stdout.Write(data)
	return nil
}

// SetCommand writes one variable in a local service file.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Write a variable in a local service file",
		ArgsUsage: "SERVICE_ID NAME VALUE",
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
				Name:  "hex",
				Usage: "Decode VALUE as hex before writing",
			},
			&cli.BoolFlag{
				Name:  "push",
				Usage: "Push the change to the server after writing",
			},
		},
		Action: runSet,
	}
}

func runSet(c *cli.Context) error {
	serviceID, name, value := c.Args().Get(0), c.Args().Get(1), c.Args().Get(2)
	if serviceID == "" || name == "" || value == "" {
		return errors.New("SERVICE_ID, NAME and VALUE arguments are required")
	}

	data := []byte(value)
	if c.Bool("hex") {
		var err error
		data, err = hex.DecodeString(value)
		if err != nil {
			return fmt.Errorf("decode hex value: %w", err)
		}
	}

	cl, cfg, err := newClient(c)
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if c.Bool("push") {
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

	if err := vf.WriteVariable(name, data); err != nil {
		return err
	}

	if c.Bool("push") {
		return cl.PushChanges(ctx, cfg.Tenant, serviceID)
	}
	return nil
}
