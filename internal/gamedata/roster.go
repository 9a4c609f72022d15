package gamedata

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/freeeve/breakline/server/pkg/sim"
)

// rosterFile mirrors an on-disk roster document (YAML or JSON). Entries
// replace built-ins with the same id and otherwise extend the tables.
type rosterFile struct {
	Units     []sim.UnitSpec     `mapstructure:"units"`
	Weapons   []sim.WeaponSpec   `mapstructure:"weapons"`
	Divisions []sim.DivisionSpec `mapstructure:"divisions"`
}

// Load returns the built-in roster with the given file merged over it.
// An empty path returns the defaults unchanged.
func Load(path string) (*Registry, error) {
	reg := Default()
	if path == "" {
		return reg, nil
	}

	vp := viper.New()
	vp.SetConfigFile(path)
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}
	var file rosterFile
	if err := vp.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("parse roster %s: %w", path, err)
	}

	for _, w := range file.Weapons {
		if w.ID == "" {
			return nil, fmt.Errorf("roster %s: weapon with empty id", path)
		}
		reg.weapons[w.ID] = w
	}
	for _, u := range file.Units {
		if u.ID == "" {
			return nil, fmt.Errorf("roster %s: unit with empty id", path)
		}
		reg.units[u.ID] = u
	}
	for _, d := range file.Divisions {
		if d.ID == "" {
			return nil, fmt.Errorf("roster %s: division with empty id", path)
		}
		reg.divisions[d.ID] = d
	}

	if err := reg.validate(); err != nil {
		return nil, fmt.Errorf("roster %s: %w", path, err)
	}
	return reg, nil
}
