package gamedata

import (
	"math"

	"github.com/freeeve/breakline/server/pkg/sim"
)

// DefaultMap builds the standard skirmish map: a 200x200 world with a
// central high ground, three capture zones, four garrisonable buildings,
// and one deployment strip per team. Terrain is generated from the seed
// with the match RNG algorithm, so the same seed always produces the
// same battlefield.
func DefaultMap(seed uint32) *sim.GameMap {
	const (
		cols     = 100
		rows     = 100
		cellSize = 2.0
	)
	rng := sim.NewRNG(seed)

	terrain := make([][]sim.TerrainCell, rows)
	for r := range terrain {
		terrain[r] = make([]sim.TerrainCell, cols)
	}
	// A broad central rise gives the damage model elevation to work with.
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x := float64(c) / float64(cols-1)
			z := float64(r) / float64(rows-1)
			terrain[r][c].Elevation = 6 * math.Sin(x*math.Pi) * math.Sin(z*math.Pi)
		}
	}
	// Scattered cover patches: woods and hedgerows.
	for i := 0; i < 40; i++ {
		pr := rng.NextInt(3, rows-4)
		pc := rng.NextInt(3, cols-4)
		for dr := -2; dr <= 2; dr++ {
			for dc := -2; dc <= 2; dc++ {
				cover := 0.7 - 0.2*math.Hypot(float64(dr), float64(dc))
				if cover <= 0 {
					continue
				}
				cell := &terrain[pr+dr][pc+dc]
				if cover > cell.Cover {
					cell.Cover = cover
				}
			}
		}
	}

	return &sim.GameMap{
		Seed:     seed,
		CellSize: cellSize,
		Cols:     cols,
		Rows:     rows,
		Terrain:  terrain,
		Zones: []sim.ZoneDef{
			{ID: "center", Center: sim.Vec2{X: 100, Z: 100}, Width: 30, Height: 30, PointsPerTick: 5},
			{ID: "west", Center: sim.Vec2{X: 40, Z: 100}, Width: 24, Height: 24, PointsPerTick: 3},
			{ID: "east", Center: sim.Vec2{X: 160, Z: 100}, Width: 24, Height: 24, PointsPerTick: 3},
		},
		Buildings: []sim.BuildingDef{
			{ID: "farmhouse", Position: sim.Vec2{X: 70, Z: 80}, Capacity: 2},
			{ID: "chapel", Position: sim.Vec2{X: 130, Z: 120}, Capacity: 2, HighGround: true},
			{ID: "mill", Position: sim.Vec2{X: 60, Z: 130}, Capacity: 2},
			{ID: "barn", Position: sim.Vec2{X: 140, Z: 70}, Capacity: 3},
		},
		Deployments: []sim.DeploymentZone{
			{Team: sim.Team1, Min: sim.Vec2{X: 0, Z: 0}, Max: sim.Vec2{X: 200, Z: 20}},
			{Team: sim.Team2, Min: sim.Vec2{X: 0, Z: 180}, Max: sim.Vec2{X: 200, Z: 200}},
		},
	}
}
