//go:build !linux

package cmd

import (
	"errors"
	"log/slog"
	"runtime"
)

var errServiceUnsupported = errors.New("service install needs systemd, unsupported on " + runtime.GOOS)

func install(bool, string, []string, *slog.Logger) error { return errServiceUnsupported }

func uninstall(bool, *slog.Logger) error { return errServiceUnsupported }
