package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Alia5/padmap/internal/engine"
	"github.com/Alia5/padmap/internal/hub"
	"github.com/Alia5/padmap/internal/log"
	"github.com/Alia5/padmap/internal/publish/mqtt"
	"github.com/Alia5/padmap/internal/server/api"
	"github.com/Alia5/padmap/internal/server/api/handler"
	"github.com/Alia5/padmap/internal/source"
	"github.com/Alia5/padmap/internal/store"
	"github.com/Alia5/padmap/internal/util"
)

// Version is reported by the ping route. Set at build time.
var Version = "dev"

const shutdownTimeout = 2 * time.Second

type Serve struct {
	Engine     engine.Config    `embed:"" prefix:"engine."`
	Input      source.Config    `embed:"" prefix:"engine."`
	ApiConfig  api.ServerConfig `embed:"" prefix:"api."`
	HubConfig  hub.ServerConfig `embed:"" prefix:"ws."`
	MqttConfig mqtt.Config      `embed:"" prefix:"mqtt."`
	Store      string           `help:"Mappings file (.yaml, .toml or .json); defaults to mappings.yaml in the config directory" env:"PADMAP_STORE"`
}

// Run is called by Kong when the serve command is executed.
func (s *Serve) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.StartServer(ctx, logger, rawLogger)
}

// RegisterRoutes wires every API route to e.
func RegisterRoutes(r *api.Router, e *engine.Engine) {
	r.Register("ping", handler.Ping(Version))
	r.Register("devices/list", handler.DevicesList(e))
	r.Register("devices/count", handler.DevicesCount(e))
	r.Register("devices/{slot}/state", handler.DeviceState(e))
	r.Register("devices/{slot}/deadzone", handler.DeviceDeadzone(e))
	r.Register("devices/{slot}/deadzone/detect", handler.DeviceDeadzoneDetect(e))
	r.Register("mappings/list", handler.MappingsList(e))
	r.Register("mappings/exists", handler.MappingsExists(e))
	r.Register("mappings/remove", handler.MappingsRemove(e))
	r.Register("calibration/start", handler.CalibrationStart(e))
	r.Register("calibration/cancel", handler.CalibrationCancel(e))
	r.Register("calibration/status", handler.CalibrationStatus(e))
	r.RegisterStream("devices/{slot}/stream", handler.DeviceStream(e))
}

func (s *Serve) StartServer(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	if s.ApiConfig.Addr == "" {
		logger.Error("API server address must be set (default :3252).")
		return fmt.Errorf("API server address must be set (default :3252)")
	}

	if s.ApiConfig.Password == "" {
		pwd, err := apiPassword(s.ApiConfig.KeyFile, logger)
		if err != nil {
			return err
		}
		s.ApiConfig.Password = pwd
	}

	src, runSource, err := openSource(s.Input, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	st, err := store.NewFile(storePath(s.Store))
	if err != nil {
		return err
	}
	logger.Info("Using mappings file", "path", st.Path())

	var sinks []engine.Sink
	var wsSrv *hub.Server
	h := hub.NewHub(logger)
	if s.HubConfig.Addr != "" {
		sinks = append(sinks, h)
		wsSrv = hub.NewServer(s.HubConfig.Addr, h, logger)
	}
	if s.MqttConfig.Broker != "" {
		pub, err := mqtt.Connect(s.MqttConfig, logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}

	eng, err := engine.New(s.Engine, src, st, logger, rawLogger, sinks...)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	errCh := make(chan error, 2)
	if runSource != nil {
		wg.Go(func() { errCh <- runSource(runCtx) })
	}
	wg.Go(func() { errCh <- eng.Run(runCtx) })

	if wsSrv != nil {
		wg.Go(func() { h.Run(runCtx) })
		if err := wsSrv.Start(); err != nil {
			logger.Error("failed to start websocket hub", "error", err)
			return err
		}
		defer func() {
			shCtx, shCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shCancel()
			_ = wsSrv.Shutdown(shCtx)
		}()
	}

	apiSrv := api.New(s.ApiConfig.Addr, s.ApiConfig, logger)
	RegisterRoutes(apiSrv.Router(), eng)
	if err := apiSrv.Start(); err != nil {
		logger.Error("failed to start API server", "error", err)
		if util.IsRunFromGUI() {
			fmt.Println("Press any key to exit...")
			b := make([]byte, 1)
			_, _ = os.Stdin.Read(b)
		}
		return err
	}
	defer apiSrv.Close()

	if util.IsRunFromGUI() {
		go (func() {
			time.Sleep(250 * time.Millisecond)
			util.HideConsoleWindow()
		})()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			logger.Error("input stopped", "error", err)
		}
		return err
	}
}
