package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/Alia5/padmap/internal/configpaths"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// ConfigCommand groups the configuration helpers.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Write a configuration file holding every default of a command"`
}

// ConfigInit writes the flag defaults of a command in a form --config
// accepts.
type ConfigInit struct {
	Command string `arg:"" name:"command" help:"Command the file is for" enum:"serve,calibrate"`
	Format  string `help:"File format" enum:"json,yaml,toml" default:"json"`
	Output  string `short:"o" help:"Destination file, <command>.<format> when empty"`
	Force   bool   `help:"Overwrite an existing file"`
}

var templates = map[string]reflect.Type{
	"serve":     reflect.TypeFor[Serve](),
	"calibrate": reflect.TypeFor[Calibrate](),
}

func (c *ConfigInit) Run(logger *slog.Logger) error {
	t, ok := templates[c.Command]
	if !ok {
		return fmt.Errorf("no configuration for command %q", c.Command)
	}
	dest := c.Output
	if dest == "" {
		dest = c.Command + "." + c.Format
	}
	if _, err := os.Stat(dest); err == nil && !c.Force {
		return fmt.Errorf("%s exists, use --force to overwrite", dest)
	}

	data, err := encodeTemplate(c.Format, templateOf(t))
	if err != nil {
		return err
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return err
	}
	logger.Info("Wrote configuration", "command", c.Command, "path", dest)
	return nil
}

func encodeTemplate(format string, root map[string]any) ([]byte, error) {
	switch format {
	case "json":
		return json.MarshalIndent(root, "", "  ")
	case "yaml":
		return yaml.Marshal(root)
	case "toml":
		return toml.Marshal(root)
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// templateOf maps the flags of a command struct to their defaults, keyed
// the way the configuration loaders look them up. Embedded groups become
// sections named after their prefix; groups sharing a prefix share the
// section. Positional arguments have no configuration key.
func templateOf(t reflect.Type) map[string]any {
	out := map[string]any{}
	for i := range t.NumField() {
		f := t.Field(i)
		_, positional := f.Tag.Lookup("arg")
		if !f.IsExported() || positional || f.Tag.Get("kong") == "-" {
			continue
		}
		if _, ok := f.Tag.Lookup("embed"); ok {
			section := out
			if name := strings.TrimSuffix(f.Tag.Get("prefix"), "."); name != "" {
				sub, ok := out[name].(map[string]any)
				if !ok {
					sub = map[string]any{}
					out[name] = sub
				}
				section = sub
			}
			maps.Copy(section, templateOf(f.Type))
			continue
		}
		if v, ok := defaultOf(f.Type, f.Tag.Get("default")); ok {
			out[configKey(f.Name)] = v
		}
	}
	return out
}

func configKey(field string) string {
	r, n := utf8.DecodeRuneInString(field)
	return string(unicode.ToLower(r)) + field[n:]
}

// defaultOf converts a default tag to the value a configuration file
// holds; durations stay strings. Unparsable tags yield the zero value.
func defaultOf(t reflect.Type, def string) (any, bool) {
	if t == reflect.TypeFor[time.Duration]() {
		if def == "" {
			def = "0s"
		}
		return def, true
	}
	switch t.Kind() {
	case reflect.String:
		return def, true
	case reflect.Bool:
		b, _ := strconv.ParseBool(def)
		return b, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, _ := strconv.ParseInt(def, 10, 64)
		return n, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, _ := strconv.ParseUint(def, 10, 64)
		return n, true
	case reflect.Float32, reflect.Float64:
		v, _ := strconv.ParseFloat(def, 64)
		return v, true
	}
	return nil, false
}
