// Package store persists mappings and remembered deadzones.
package store

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Alia5/padmap/mapping"
	"github.com/Alia5/padmap/semantic"
)

// Version of the document layout written by Save.
const Version = 1

// ErrNewerVersion is returned by Decode for documents written by a newer
// release. Such a document must not be overwritten.
var ErrNewerVersion = errors.New("store document is newer than supported")

// Deadzone is a remembered deadzone pair for one controller identifier.
type Deadzone struct {
	ID    string  `json:"id" yaml:"id" toml:"id"`
	Left  float64 `json:"left" yaml:"left" toml:"left"`
	Right float64 `json:"right" yaml:"right" toml:"right"`
}

// Data is the persisted document. Mappings holds every mapping record in
// the joined text form of mapping.EncodeAll.
type Data struct {
	Version   int        `json:"version" yaml:"version" toml:"version"`
	Mappings  string     `json:"mappings" yaml:"mappings" toml:"mappings"`
	Deadzones []Deadzone `json:"deadzones,omitempty" yaml:"deadzones,omitempty" toml:"deadzones,omitempty"`
}

// Store is the save/load contract.
type Store interface {
	Load() (Data, error)
	Save(Data) error
}

// NewData builds a document from mappings and deadzones.
func NewData(ms []*mapping.Mapping, dz map[string]semantic.Deadzones) Data {
	d := Data{Version: Version, Mappings: mapping.EncodeAll(ms)}
	for id, v := range dz {
		d.Deadzones = append(d.Deadzones, Deadzone{ID: id, Left: v.Left, Right: v.Right})
	}
	sort.Slice(d.Deadzones, func(i, j int) bool { return d.Deadzones[i].ID < d.Deadzones[j].ID })
	return d
}

// Decode returns the mappings and deadzones of d. Corrupt records and
// invalid deadzones are skipped; the returned error describes them and
// the decoded remainder is still usable. A newer document yields
// ErrNewerVersion and nothing else.
func (d Data) Decode() ([]*mapping.Mapping, map[string]semantic.Deadzones, error) {
	if d.Version > Version {
		return nil, nil, fmt.Errorf("version %d, supported %d: %w", d.Version, Version, ErrNewerVersion)
	}
	ms, err := mapping.DecodeAll(d.Mappings)
	dz := make(map[string]semantic.Deadzones, len(d.Deadzones))
	for _, e := range d.Deadzones {
		v := semantic.Deadzones{Left: e.Left, Right: e.Right}
		if v.Validate() != nil {
			continue
		}
		dz[e.ID] = v
	}
	return ms, dz, err
}
