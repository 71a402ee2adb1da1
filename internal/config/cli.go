// Package config holds the command line definition shared by the padmap
// binary.
package config

import (
	"github.com/alecthomas/kong"

	"github.com/Alia5/padmap/internal/cmd"
)

// LogConfig controls the process loggers.
type LogConfig struct {
	Level   string `help:"Log level" enum:"trace,debug,info,warn,error" default:"info" env:"PADMAP_LOG_LEVEL"`
	File    string `help:"Additionally write the log to this file" env:"PADMAP_LOG_FILE"`
	RawFile string `help:"Trace raw controller input to this file" env:"PADMAP_LOG_RAW_FILE"`
}

// CLI is the root command.
type CLI struct {
	Config  string           `help:"Path to a JSON, YAML or TOML configuration file" type:"path" env:"PADMAP_CONFIG"`
	Version kong.VersionFlag `help:"Print the version and exit"`
	Log     LogConfig        `embed:"" prefix:"log."`

	Serve     cmd.Serve         `cmd:"" help:"Run the engine with the API, websocket and MQTT outputs"`
	Calibrate cmd.Calibrate     `cmd:"" help:"Calibrate a controller interactively in the terminal"`
	Mappings  cmd.Mappings      `cmd:"" help:"Manage stored mappings"`
	Devices   cmd.Devices       `cmd:"" help:"Query a running server"`
	Service   cmd.Service       `cmd:"" help:"Manage the background service"`
	Cfg       cmd.ConfigCommand `cmd:"" name:"config" help:"Configuration helpers"`
}
