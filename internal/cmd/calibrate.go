package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/Alia5/padmap/calibration"
	"github.com/Alia5/padmap/internal/engine"
	"github.com/Alia5/padmap/internal/log"
	"github.com/Alia5/padmap/internal/source"
	"github.com/Alia5/padmap/internal/store"
	"github.com/Alia5/padmap/semantic"
)

// ErrCalibrationCanceled is returned when the user aborts a terminal
// calibration.
var ErrCalibrationCanceled = errors.New("calibration canceled")

const (
	keyCtrlC  = 0x03
	keyEscape = 0x1b
)

type Calibrate struct {
	Index  int           `arg:"" optional:"" default:"0" help:"Raw controller index to calibrate"`
	Engine engine.Config `embed:"" prefix:"engine."`
	Input  source.Config `embed:"" prefix:"engine."`
	Store  string        `help:"Mappings file (.yaml, .toml or .json); defaults to mappings.yaml in the config directory" env:"PADMAP_STORE"`
	Wait   time.Duration `help:"How long to wait for the controller to show up" default:"5s"`
}

// Run is called by Kong when the calibrate command is executed.
func (c *Calibrate) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, runSource, err := openSource(c.Input, logger)
	if err != nil {
		return err
	}
	defer src.Close()
	st, err := store.NewFile(storePath(c.Store))
	if err != nil {
		return err
	}
	eng, err := engine.New(c.Engine, src, st, logger, rawLogger)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()
	if runSource != nil {
		wg.Go(func() {
			if err := runSource(runCtx); err != nil {
				logger.Error("input stopped", "error", err)
				cancel()
			}
		})
	}
	wg.Go(func() { _ = eng.Run(runCtx) })

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		old, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("raw terminal: %w", err)
		}
		defer term.Restore(fd, old)
	}

	fmt.Fprintf(os.Stdout, "Calibrating controller %d, press q or Esc to abort.\r\n", c.Index)
	if err := CalibrateInteractive(runCtx, eng, c.Index, c.Wait, os.Stdin, os.Stdout); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Saved to %s\r\n", st.Path())
	return nil
}

// CalibrateInteractive calibrates the controller at index while something
// else ticks eng. Prompts go to out; q, Esc or Ctrl-C read from keys abort
// the session. The controller may take up to wait to appear.
func CalibrateInteractive(ctx context.Context, eng *engine.Engine, index int, wait time.Duration, keys io.Reader, out io.Writer) error {
	p := newPrompter(out)
	eng.AddSink(p)

	if err := startWhenPresent(ctx, eng, index, wait); err != nil {
		return err
	}

	go func() {
		buf := make([]byte, 1)
		for {
			if _, err := keys.Read(buf); err != nil {
				return
			}
			switch buf[0] {
			case 'q', 'Q', keyEscape, keyCtrlC:
				_, _ = eng.CancelCalibration()
				return
			}
		}
	}()

	select {
	case ev := <-p.done:
		if ev.Type == calibration.EventCanceled {
			return ErrCalibrationCanceled
		}
		return nil
	case <-ctx.Done():
		_, _ = eng.CancelCalibration()
		return ctx.Err()
	}
}

func startWhenPresent(ctx context.Context, eng *engine.Engine, index int, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for {
		_, err := eng.StartCalibration(index)
		if err == nil {
			return nil
		}
		if !errors.Is(err, calibration.ErrNoDevice) || time.Now().After(deadline) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// prompter prints calibration events to a terminal.
type prompter struct {
	mu   sync.Mutex
	out  io.Writer
	done chan calibration.Event
}

func newPrompter(out io.Writer) *prompter {
	return &prompter{out: out, done: make(chan calibration.Event, 1)}
}

func (p *prompter) PublishEvent(ev calibration.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch ev.Type {
	case calibration.EventPrompt:
		fmt.Fprintf(p.out, "[%s %d] %s\r\n", ev.Phase, ev.Step+1, ev.Prompt)
		return
	case calibration.EventComplete:
		fmt.Fprintf(p.out, "Calibration of %s complete.\r\n%s\r\n", ev.DeviceID, ev.Record)
	case calibration.EventCanceled:
		fmt.Fprintf(p.out, "Calibration canceled, nothing was stored.\r\n")
	}
	select {
	case p.done <- ev:
	default:
	}
}

func (p *prompter) PublishState(int, semantic.State) {}
