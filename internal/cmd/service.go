package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Service installs padmap as a background service running serve.
type Service struct {
	Install   ServiceInstall   `cmd:"" help:"Install and start the padmap service"`
	Uninstall ServiceUninstall `cmd:"" help:"Stop and remove the padmap service"`
}

type ServiceInstall struct {
	User  bool   `help:"Install as a user unit instead of a system unit"`
	Store string `help:"Mappings file passed to the service" env:"PADMAP_STORE"`
}

func (c *ServiceInstall) Run(logger *slog.Logger) error {
	exe, err := currentExecutable()
	if err != nil {
		return err
	}
	args := []string{"serve"}
	if c.Store != "" {
		store, err := filepath.Abs(c.Store)
		if err != nil {
			return err
		}
		args = append(args, "--store="+store)
	}
	return install(c.User, exe, args, logger)
}

type ServiceUninstall struct {
	User bool `help:"Remove the user unit instead of the system unit"`
}

func (c *ServiceUninstall) Run(logger *slog.Logger) error {
	return uninstall(c.User, logger)
}

func currentExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}

func quoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = fmt.Sprintf("%q", a)
	}
	return strings.Join(quoted, " ")
}
