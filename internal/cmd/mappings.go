package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/Alia5/padmap/internal/store"
	"github.com/Alia5/padmap/mapping"
	"github.com/Alia5/padmap/semantic"
)

// Mappings groups the offline mapping file subcommands.
type Mappings struct {
	List   MappingsList   `cmd:"" help:"List stored mappings"`
	Export MappingsExport `cmd:"" help:"Write the stored mapping records to a file or stdout"`
	Import MappingsImport `cmd:"" help:"Merge mapping records from a file into the store"`
	Remove MappingsRemove `cmd:"" help:"Delete the mapping of a controller"`
}

// StoreFlag selects the mappings file of an offline command.
type StoreFlag struct {
	Store string `help:"Mappings file (.yaml, .toml or .json); defaults to mappings.yaml in the config directory" env:"PADMAP_STORE"`
}

func (f StoreFlag) load(logger *slog.Logger) (*store.File, []*mapping.Mapping, map[string]semantic.Deadzones, error) {
	st, err := store.NewFile(storePath(f.Store))
	if err != nil {
		return nil, nil, nil, err
	}
	data, err := st.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	ms, dz, err := data.Decode()
	if err != nil {
		if errors.Is(err, store.ErrNewerVersion) {
			return nil, nil, nil, err
		}
		logger.Warn("skipped stored mapping records", "error", err)
	}
	return st, ms, dz, nil
}

type MappingsList struct {
	StoreFlag `embed:""`
}

func (c *MappingsList) Run(logger *slog.Logger) error {
	return c.run(os.Stdout, logger)
}

func (c *MappingsList) run(out io.Writer, logger *slog.Logger) error {
	_, ms, dz, err := c.load(logger)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tQUIRKS\tDEADZONE")
	for _, m := range ms {
		dead := "-"
		if v, ok := dz[m.ID()]; ok {
			dead = fmt.Sprintf("%g/%g", v.Left, v.Right)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID(), quirkNames(m.Quirks()), dead)
	}
	return tw.Flush()
}

func quirkNames(q mapping.Quirks) string {
	var names []string
	if q.AxisDpad {
		names = append(names, "axis-dpad")
	}
	if q.RudderShoulders {
		names = append(names, "rudder-shoulders")
	}
	if q.SingleAxisDpadHack {
		names = append(names, "single-axis-dpad")
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

type MappingsExport struct {
	StoreFlag `embed:""`
	Output    string `short:"o" help:"Destination file, stdout when empty"`
}

func (c *MappingsExport) Run(logger *slog.Logger) error {
	if c.Output == "" {
		return c.run(os.Stdout, logger)
	}
	f, err := os.Create(c.Output)
	if err != nil {
		return err
	}
	if err := c.run(f, logger); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (c *MappingsExport) run(out io.Writer, logger *slog.Logger) error {
	_, ms, _, err := c.load(logger)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, mapping.EncodeAll(ms))
	return err
}

type MappingsImport struct {
	StoreFlag `embed:""`
	File      string `arg:"" type:"existingfile" help:"File holding mapping records"`
	Keep      bool   `help:"Keep stored mappings whose identifier is also in the file"`
}

func (c *MappingsImport) Run(logger *slog.Logger) error {
	b, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	n, err := c.run(strings.TrimSpace(string(b)), logger)
	if err != nil {
		return err
	}
	logger.Info("Imported mappings", "count", n, "file", c.File)
	return nil
}

// run merges the records and returns how many were written.
func (c *MappingsImport) run(records string, logger *slog.Logger) (int, error) {
	st, stored, dz, err := c.load(logger)
	if err != nil {
		return 0, err
	}
	incoming, err := mapping.DecodeAll(records)
	if err != nil {
		if len(incoming) == 0 {
			return 0, err
		}
		logger.Warn("skipped corrupt records", "error", err)
	}

	byID := make(map[string]*mapping.Mapping, len(stored)+len(incoming))
	for _, m := range stored {
		byID[m.ID()] = m
	}
	n := 0
	for _, m := range incoming {
		if !m.Complete() {
			logger.Warn("skipped incomplete mapping", "id", m.ID(), "missing", m.Missing())
			continue
		}
		if _, ok := byID[m.ID()]; ok && c.Keep {
			continue
		}
		byID[m.ID()] = m
		n++
	}
	if err := st.Save(store.NewData(sortedMappings(byID), dz)); err != nil {
		return 0, err
	}
	return n, nil
}

type MappingsRemove struct {
	StoreFlag `embed:""`
	ID        string `arg:"" help:"Controller identifier"`
}

var errNoMapping = errors.New("no mapping stored")

func (c *MappingsRemove) Run(logger *slog.Logger) error {
	st, ms, dz, err := c.load(logger)
	if err != nil {
		return err
	}
	kept := ms[:0]
	for _, m := range ms {
		if m.ID() != c.ID {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(ms) {
		return fmt.Errorf("%w for %q", errNoMapping, c.ID)
	}
	delete(dz, c.ID)
	if err := st.Save(store.NewData(kept, dz)); err != nil {
		return err
	}
	logger.Info("Removed mapping", "id", c.ID)
	return nil
}

func sortedMappings(byID map[string]*mapping.Mapping) []*mapping.Mapping {
	out := make([]*mapping.Mapping, 0, len(byID))
	for _, m := range byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
