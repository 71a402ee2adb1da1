package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Alia5/padmap/internal/configpaths"
	"github.com/Alia5/padmap/internal/server/api/auth"
)

const keyFileName = "api.key"

// apiPassword reads the API password from path, or from api.key in the
// config directory when path is empty. A missing or empty file gets a new
// random password.
func apiPassword(path string, logger *slog.Logger) (string, error) {
	if path == "" {
		dir, err := configpaths.DefaultConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolve key file: %w", err)
		}
		path = filepath.Join(dir, keyFileName)
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if pwd := strings.TrimSpace(string(b)); pwd != "" {
			return pwd, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("read key file: %w", err)
	}

	pwd, err := auth.GeneratePassword()
	if err != nil {
		return "", fmt.Errorf("generate API password: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create key file dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(pwd+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write key file: %w", err)
	}
	logger.Info("Generated API password", "path", path)
	logger.Info("Clients on other hosts need it, e.g. padmap devices list --password=" + pwd)
	return pwd, nil
}
