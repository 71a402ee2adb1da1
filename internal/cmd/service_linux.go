//go:build linux

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const serviceName = "padmap.service"

func unitPath(user bool) (string, error) {
	if !user {
		return filepath.Join("/etc/systemd/system", serviceName), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "systemd", "user", serviceName), nil
}

func install(user bool, exe string, args []string, logger *slog.Logger) error {
	path, err := unitPath(user)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(systemdUnit(user, exe, args)), 0o644); err != nil {
		return err
	}

	for _, step := range [][]string{
		{"daemon-reload"},
		{"enable", serviceName},
		{"restart", serviceName},
	} {
		if err := systemctl(user, step...); err != nil {
			return err
		}
	}
	logger.Info("padmap service installed", "path", path, "exe", exe)
	return nil
}

func uninstall(user bool, logger *slog.Logger) error {
	path, err := unitPath(user)
	if err != nil {
		return err
	}
	var errs []error
	if err := systemctl(user, "stop", serviceName); err != nil {
		errs = append(errs, err)
	}
	if err := systemctl(user, "disable", serviceName); err != nil {
		errs = append(errs, err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	if err := systemctl(user, "daemon-reload"); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	logger.Info("padmap service removed", "path", path)
	return nil
}

// systemdUnit renders the unit file. User units start with the graphical
// session so that controller devices are accessible.
func systemdUnit(user bool, exe string, args []string) string {
	after, wantedBy := "network-online.target", "multi-user.target"
	if user {
		after, wantedBy = "graphical-session.target", "default.target"
	}
	return fmt.Sprintf(`[Unit]
Description=padmap controller mapping server
After=%s

[Service]
Type=simple
ExecStart=%q %s
WorkingDirectory=%s
Restart=on-failure

[Install]
WantedBy=%s
`, after, exe, quoteArgs(args), filepath.Dir(exe), wantedBy)
}

func systemctl(user bool, args ...string) error {
	if user {
		args = append([]string{"--user"}, args...)
	}
	out, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s failed: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
