package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// File stores the document in a single file. The encoding follows the
// file extension: .yaml/.yml, .toml or .json.
type File struct {
	path   string
	format string
}

func NewFile(path string) (*File, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	return &File{path: path, format: format}, nil
}

func (f *File) Path() string { return f.path }

// FormatOf maps a file extension to an encoding name.
func FormatOf(path string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "yaml", "yml":
		return "yaml", nil
	case "toml":
		return "toml", nil
	case "json":
		return "json", nil
	}
	return "", fmt.Errorf("unsupported store format %q", filepath.Ext(path))
}

// Load reads the document. A missing file yields an empty document.
func (f *File) Load() (Data, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Data{Version: Version}, nil
	}
	if err != nil {
		return Data{}, err
	}
	var d Data
	if err := Unmarshal(f.format, b, &d); err != nil {
		return Data{}, fmt.Errorf("read %s: %w", f.path, err)
	}
	return d, nil
}

// Save replaces the file through a temporary file in the same directory.
func (f *File) Save(d Data) error {
	b, err := Marshal(f.format, d)
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".padmap-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func Marshal(format string, d Data) ([]byte, error) {
	switch format {
	case "json":
		return json.MarshalIndent(d, "", "  ")
	case "yaml":
		return yaml.Marshal(d)
	case "toml":
		return toml.Marshal(d)
	}
	return nil, fmt.Errorf("unsupported store format %q", format)
}

func Unmarshal(format string, b []byte, d *Data) error {
	switch format {
	case "json":
		return json.Unmarshal(b, d)
	case "yaml":
		return yaml.Unmarshal(b, d)
	case "toml":
		return toml.Unmarshal(b, d)
	}
	return fmt.Errorf("unsupported store format %q", format)
}
