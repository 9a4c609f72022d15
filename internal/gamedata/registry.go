// Package gamedata carries the unit, weapon, and division tables and the
// standard skirmish map. The built-in tables are the defaults; a roster
// file can replace or extend entries by id.
package gamedata

import (
	"fmt"
	"sort"

	"github.com/freeeve/breakline/server/pkg/sim"
)

// Registry is the concrete unit data registry handed to every game. It
// is read-only after construction and safe to share across sessions.
type Registry struct {
	units     map[string]sim.UnitSpec
	weapons   map[string]sim.WeaponSpec
	divisions map[string]sim.DivisionSpec
}

// UnitSpec returns a unit spec by id.
func (r *Registry) UnitSpec(id string) (sim.UnitSpec, bool) {
	s, ok := r.units[id]
	return s, ok
}

// WeaponSpec returns a weapon spec by id.
func (r *Registry) WeaponSpec(id string) (sim.WeaponSpec, bool) {
	s, ok := r.weapons[id]
	return s, ok
}

// DivisionSpec returns a division spec by id.
func (r *Registry) DivisionSpec(id string) (sim.DivisionSpec, bool) {
	s, ok := r.divisions[id]
	return s, ok
}

// Units returns every unit spec in id order.
func (r *Registry) Units() []sim.UnitSpec {
	ids := make([]string, 0, len(r.units))
	for id := range r.units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]sim.UnitSpec, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.units[id])
	}
	return out
}

// validate checks cross-references: every unit weapon and every division
// member must resolve.
func (r *Registry) validate() error {
	for id, u := range r.units {
		for _, wid := range u.Weapons {
			if _, ok := r.weapons[wid]; !ok {
				return fmt.Errorf("unit %q references unknown weapon %q", id, wid)
			}
		}
	}
	for id, d := range r.divisions {
		for _, uid := range d.Units {
			if _, ok := r.units[uid]; !ok {
				return fmt.Errorf("division %q references unknown unit %q", id, uid)
			}
		}
	}
	return nil
}
