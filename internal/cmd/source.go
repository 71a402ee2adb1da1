package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Alia5/padmap/internal/configpaths"
	"github.com/Alia5/padmap/internal/source"
	"github.com/Alia5/padmap/internal/source/replay"
	"github.com/Alia5/padmap/internal/source/sdl"
	"github.com/Alia5/padmap/rawinput"
)

// openSource builds the configured input source. The returned run function
// drives it until ctx ends and is nil for sources without a loop of their
// own.
func openSource(cfg source.Config, logger *slog.Logger) (rawinput.Source, func(ctx context.Context) error, error) {
	switch cfg.Source {
	case source.SourceReplay:
		if cfg.ReplayFile == "" {
			return nil, nil, fmt.Errorf("replay source needs --engine.replay-file")
		}
		src, err := replay.Load(cfg.ReplayFile)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Replaying input", "file", cfg.ReplayFile, "frames", src.Remaining())
		return src, nil, nil
	case source.SourceSDL, "":
		src := sdl.New(logger)
		return src, src.Run, nil
	}
	return nil, nil, fmt.Errorf("unknown input source %q", cfg.Source)
}

func storePath(p string) string {
	if p == "" {
		return configpaths.DefaultStorePath()
	}
	return p
}
