//go:build !windows

package util

// IsRunFromGUI reports whether the binary was started by double click.
// Only Windows can tell; elsewhere padmap is assumed to run from a shell.
func IsRunFromGUI() bool {
	return false
}

func HideConsoleWindow() {}
