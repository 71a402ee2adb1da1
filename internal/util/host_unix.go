//go:build unix

package util

import (
	"strings"

	"golang.org/x/sys/unix"
)

// Platform returns the upper-case kernel name, e.g. LINUX or DARWIN.
func Platform() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "UNKNOWN"
	}
	return strings.ToUpper(unix.ByteSliceToString(u.Sysname[:]))
}

// OSVersion returns the kernel release.
func OSVersion() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return ""
	}
	return unix.ByteSliceToString(u.Release[:])
}
