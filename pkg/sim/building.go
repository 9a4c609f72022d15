package sim

import (
	"fmt"
	"math"
)

// Building is a garrisonable structure. Map buildings are registered at
// game start; defensive positions appear when heavy weapon teams dig in.
type Building struct {
	ID         string
	Position   Vec2
	Capacity   int
	HighGround bool
	Defensive  bool
	// Occupants lists garrisoned unit ids in entry order.
	Occupants []string
}

// BuildingManager owns the building set and garrison membership.
type BuildingManager struct {
	byID  map[string]*Building
	order []string
	// AllowEnemyCoGarrison permits opposing teams to share a building.
	// Off by default: a building held by one side must be cleared before
	// the other can enter.
	AllowEnemyCoGarrison bool
	seq                  int
}

func NewBuildingManager() *BuildingManager {
	return &BuildingManager{byID: make(map[string]*Building)}
}

// Register adds the map's buildings.
func (bm *BuildingManager) Register(defs []BuildingDef) {
	for _, d := range defs {
		bm.add(&Building{
			ID:         d.ID,
			Position:   d.Position,
			Capacity:   d.Capacity,
			HighGround: d.HighGround,
		})
	}
}

func (bm *BuildingManager) add(b *Building) {
	if _, exists := bm.byID[b.ID]; exists {
		return
	}
	bm.byID[b.ID] = b
	bm.order = append(bm.order, b.ID)
}

// Get returns a building by id.
func (bm *BuildingManager) Get(id string) (*Building, bool) {
	b, ok := bm.byID[id]
	return b, ok
}

// Buildings returns the buildings in registration order.
func (bm *BuildingManager) Buildings() []*Building {
	out := make([]*Building, 0, len(bm.order))
	for _, id := range bm.order {
		out = append(out, bm.byID[id])
	}
	return out
}

// TryGarrison places a unit inside a building. It fails when the unit
// cannot garrison, is mounted or already inside, the building is full,
// or an opposing team holds it.
func (bm *BuildingManager) TryGarrison(g *Game, u *Unit, buildingID string) bool {
	b, ok := bm.byID[buildingID]
	if !ok {
		return false
	}
	if !u.Spec.CanGarrison || u.Transport != "" || u.GarrisonedIn != "" {
		return false
	}
	if len(b.Occupants) >= b.Capacity {
		return false
	}
	if !bm.AllowEnemyCoGarrison {
		for _, oid := range b.Occupants {
			if o := g.unit(oid); o != nil && o.Team != u.Team {
				return false
			}
		}
	}
	u.GarrisonedIn = b.ID
	u.Position = b.Position
	b.Occupants = append(b.Occupants, u.ID)
	return true
}

// Leave removes a unit from its building and places it beside the
// entrance. Placement draws from the match RNG.
func (bm *BuildingManager) Leave(g *Game, u *Unit, rng *RNG) {
	b, ok := bm.byID[u.GarrisonedIn]
	if !ok {
		u.GarrisonedIn = ""
		return
	}
	bm.RemoveOccupant(b.ID, u.ID)
	u.GarrisonedIn = ""
	angle := rng.Next() * 2 * math.Pi
	offset := Vec2{X: math.Sin(angle), Z: math.Cos(angle)}.Scale(exitRadius)
	u.Position = g.gameMap.Clamp(b.Position.Add(offset))
}

// RemoveOccupant drops a unit from a building without repositioning it.
func (bm *BuildingManager) RemoveOccupant(buildingID, unitID string) {
	b, ok := bm.byID[buildingID]
	if !ok {
		return
	}
	kept := b.Occupants[:0]
	for _, id := range b.Occupants {
		if id != unitID {
			kept = append(kept, id)
		}
	}
	b.Occupants = kept
}

// SpawnDefensive creates a dig-in position at pos and returns it.
func (bm *BuildingManager) SpawnDefensive(pos Vec2) *Building {
	bm.seq++
	b := &Building{
		ID:        fmt.Sprintf("dug-%d", bm.seq),
		Position:  pos,
		Capacity:  defensiveStructureCapacity,
		Defensive: true,
	}
	bm.add(b)
	return b
}
