package sim

import "math"

// TerrainCell is one cell of the map grid.
type TerrainCell struct {
	// Elevation in world units. Purely cosmetic to the simulation today;
	// carried so checksummed replays survive a future line-of-sight pass.
	Elevation float64
	// Cover in [0, 1]. Scales the maximum cover damage reduction.
	Cover float64
}

// ZoneDef describes a capture zone on the map. Runtime capture state lives
// in the economy, keyed by the zone id.
type ZoneDef struct {
	ID            string
	Center        Vec2
	Width         float64
	Height        float64
	PointsPerTick int
}

// BuildingDef describes a garrisonable structure placed by the map.
type BuildingDef struct {
	ID         string
	Position   Vec2
	Capacity   int
	HighGround bool
}

// DeploymentZone is the rectangle a team may deploy into during setup.
type DeploymentZone struct {
	Team Team
	Min  Vec2
	Max  Vec2
}

// GameMap is the immutable terrain and scenario layout a match plays on.
// The seed doubles as the match RNG seed so a map value fully determines
// a replay together with its command log.
type GameMap struct {
	Seed        uint32
	CellSize    float64
	Cols        int
	Rows        int
	Terrain     [][]TerrainCell
	Zones       []ZoneDef
	Buildings   []BuildingDef
	Deployments []DeploymentZone
}

// Width returns the playable width in world units.
func (m *GameMap) Width() float64 {
	return float64(m.Cols) * m.CellSize
}

// Height returns the playable height in world units.
func (m *GameMap) Height() float64 {
	return float64(m.Rows) * m.CellSize
}

// Clamp returns p constrained to the playable area.
func (m *GameMap) Clamp(p Vec2) Vec2 {
	return Vec2{
		X: math.Min(math.Max(p.X, 0), m.Width()),
		Z: math.Min(math.Max(p.Z, 0), m.Height()),
	}
}

// CellAt returns the terrain cell containing p. Out-of-range points map to
// the nearest edge cell.
func (m *GameMap) CellAt(p Vec2) TerrainCell {
	if m.Cols == 0 || m.Rows == 0 || m.CellSize <= 0 {
		return TerrainCell{}
	}
	col := int(p.X / m.CellSize)
	row := int(p.Z / m.CellSize)
	if col < 0 {
		col = 0
	}
	if col >= m.Cols {
		col = m.Cols - 1
	}
	if row < 0 {
		row = 0
	}
	if row >= m.Rows {
		row = m.Rows - 1
	}
	return m.Terrain[row][col]
}

// CoverAt returns the cover value of the terrain under p.
func (m *GameMap) CoverAt(p Vec2) float64 {
	return m.CellAt(p).Cover
}

// ElevationAt returns the terrain height under p.
func (m *GameMap) ElevationAt(p Vec2) float64 {
	return m.CellAt(p).Elevation
}

// DeploymentFor returns the deployment rectangle for a team, if the map
// defines one.
func (m *GameMap) DeploymentFor(team Team) (DeploymentZone, bool) {
	for _, d := range m.Deployments {
		if d.Team == team {
			return d, true
		}
	}
	return DeploymentZone{}, false
}
