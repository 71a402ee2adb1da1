//go:build !unix && !windows

package util

import (
	"runtime"
	"strings"
)

func Platform() string { return strings.ToUpper(runtime.GOOS) }

func OSVersion() string { return "" }
