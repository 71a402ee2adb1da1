//go:build windows

package util

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32         = windows.NewLazySystemDLL("kernel32.dll")
	user32           = windows.NewLazySystemDLL("user32.dll")
	getConsoleWindow = kernel32.NewProc("GetConsoleWindow")
	freeConsole      = kernel32.NewProc("FreeConsole")
	showWindow       = user32.NewProc("ShowWindow")
)

// Platform returns WIN32 on every Windows flavour.
func Platform() string {
	return "WIN32"
}

// OSVersion returns major.minor.build of the running Windows.
func OSVersion() string {
	v := windows.RtlGetVersion()
	return fmt.Sprintf("%d.%d.%d", v.MajorVersion, v.MinorVersion, v.BuildNumber)
}

// IsRunFromGUI reports whether padmap was started without a console or by
// double click in Explorer.
func IsRunFromGUI() bool {
	if consoleWindow() == 0 {
		return true
	}
	parent := strings.ToLower(parentExe())
	slog.Debug("console parent", "exe", parent)
	return parent == "explorer.exe"
}

// HideConsoleWindow detaches from the console Explorer opened for the
// server.
func HideConsoleWindow() {
	hwnd := consoleWindow()
	if hwnd == 0 {
		return
	}
	_, _, _ = showWindow.Call(hwnd, windows.SW_HIDE)
	_, _, _ = freeConsole.Call()
}

func consoleWindow() uintptr {
	hwnd, _, _ := getConsoleWindow.Call()
	return hwnd
}

// parentExe returns the executable name of the parent process, empty when
// it already exited.
func parentExe() string {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(snap)

	procs := make(map[uint32]windows.ProcessEntry32)
	pe := windows.ProcessEntry32{Size: uint32(unsafe.Sizeof(windows.ProcessEntry32{}))}
	for err := windows.Process32First(snap, &pe); err == nil; err = windows.Process32Next(snap, &pe) {
		procs[pe.ProcessID] = pe
	}
	self, ok := procs[uint32(os.Getpid())]
	if !ok {
		return ""
	}
	parent, ok := procs[self.ParentProcessID]
	if !ok {
		return ""
	}
	return windows.UTF16ToString(parent.ExeFile[:])
}
