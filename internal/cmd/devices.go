package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/Alia5/padmap/apiclient"
	apitypes "github.com/Alia5/padmap/apitypes"
)

// Devices groups the subcommands talking to a running server.
type Devices struct {
	List     DevicesList     `cmd:"" help:"List occupied device slots"`
	State    DevicesState    `cmd:"" help:"Print the semantic state of a slot"`
	Deadzone DevicesDeadzone `cmd:"" help:"Show, set or detect the stick deadzones of a slot"`
	Watch    DevicesWatch    `cmd:"" help:"Print the XInput reports of a slot until interrupted"`
}

// ClientFlag selects the server an online command talks to.
type ClientFlag struct {
	Addr     string        `help:"API server address" default:"localhost:3252" env:"PADMAP_CLIENT_ADDR"`
	Timeout  time.Duration `help:"Request timeout" default:"5s"`
	Password string        `help:"API password, see the api.key file of the server" env:"PADMAP_API_PASSWORD"`
}

func (f ClientFlag) client() *apiclient.Client {
	return apiclient.NewWithConfig(f.Addr, &apiclient.Config{
		DialTimeout:  f.Timeout,
		ReadTimeout:  f.Timeout,
		WriteTimeout: f.Timeout,
		Password:     f.Password,
	})
}

type DevicesList struct {
	ClientFlag `embed:""`
}

func (c *DevicesList) Run() error {
	return c.run(context.Background(), os.Stdout)
}

func (c *DevicesList) run(ctx context.Context, out io.Writer) error {
	cl := c.client()
	count, err := cl.DevicesCountCtx(ctx)
	if err != nil {
		return err
	}
	list, err := cl.DevicesListCtx(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d controllers connected, %d mapped\n", count.Connected, count.Mapped)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tINDEX\tID\tLIVE\tDEADZONE")
	for _, d := range list.Devices {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%t\t%g/%g\n", d.Slot, d.Index, d.ID, d.Live, d.Deadzones.Left, d.Deadzones.Right)
	}
	return tw.Flush()
}

type DevicesState struct {
	ClientFlag `embed:""`
	Slot       int `arg:"" help:"Device slot"`
}

func (c *DevicesState) Run() error {
	return c.run(context.Background(), os.Stdout)
}

func (c *DevicesState) run(ctx context.Context, out io.Writer) error {
	st, err := c.client().DeviceStateCtx(ctx, c.Slot)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}

type DevicesDeadzone struct {
	ClientFlag `embed:""`
	Slot       int      `arg:"" help:"Device slot"`
	Left       *float64 `help:"Left stick deadzone, 0..1"`
	Right      *float64 `help:"Right stick deadzone, 0..1"`
	Detect     bool     `help:"Sample the resting sticks and apply the detected deadzones"`
}

func (c *DevicesDeadzone) Run() error {
	return c.run(context.Background(), os.Stdout)
}

func (c *DevicesDeadzone) run(ctx context.Context, out io.Writer) error {
	cl := c.client()
	var (
		res *apitypes.DeadzoneResponse
		err error
	)
	switch {
	case c.Detect && (c.Left != nil || c.Right != nil):
		return errors.New("--detect cannot be combined with --left or --right")
	case c.Detect:
		fmt.Fprintln(out, "Sampling, leave the sticks at rest...")
		ctx, cancel := context.WithTimeout(ctx, detectTimeout)
		defer cancel()
		res, err = cl.DetectDeadzoneCtx(ctx, c.Slot)
	case c.Left != nil || c.Right != nil:
		res, err = cl.SetDeadzoneCtx(ctx, c.Slot, apitypes.DeadzoneRequest{Left: c.Left, Right: c.Right})
	default:
		res, err = cl.DeviceDeadzoneCtx(ctx, c.Slot)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "slot %d: left %g right %g\n", res.Slot, res.Deadzones.Left, res.Deadzones.Right)
	return nil
}

const detectTimeout = 30 * time.Second

type DevicesWatch struct {
	ClientFlag `embed:""`
	Slot       int `arg:"" help:"Device slot"`
}

func (c *DevicesWatch) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := c.run(ctx, os.Stdout)
	if errors.Is(err, context.Canceled) {
		logger.Info("Stopped watching", "slot", c.Slot)
		return nil
	}
	return err
}

func (c *DevicesWatch) run(ctx context.Context, out io.Writer) error {
	stream, err := c.client().OpenStream(ctx, c.Slot)
	if err != nil {
		return err
	}
	defer stream.Close()

	states, errs := stream.StartReading(ctx, 16)
	for st := range states {
		fmt.Fprintf(out, "buttons=%04x lt=%3d rt=%3d lx=%6d ly=%6d rx=%6d ry=%6d\n",
			st.Buttons, st.LT, st.RT, st.LX, st.LY, st.RX, st.RY)
	}
	return <-errs
}
