package quarry

import "github.com/FrodoOf9Fingers/Quarry/internal/sim/catalogs"

// RockTypes returns the debris defs for the rock under the anchor, deriving
// them from terrain labels on first use. Terrain whose label does not name a
// known chunk def contributes nothing.
func (c *Coordinator) RockTypes() []catalogs.ThingDef {
	v, _ := c.rockTypes.get(func() ([]catalogs.ThingDef, bool) {
		v := c.deriveRockTypes()
		return v, len(v) > 0
	})
	return v
}

// GetRockTypes is RockTypes under the name the work-execution side uses.
func (c *Coordinator) GetRockTypes() []catalogs.ThingDef { return c.RockTypes() }

// ResetRockTypes drops the cached rock types so the next read re-samples the
// terrain.
func (c *Coordinator) ResetRockTypes() { c.rockTypes.reset() }

func (c *Coordinator) deriveRockTypes() []catalogs.ThingDef {
	var (
		out  []catalogs.ThingDef
		seen = map[string]bool{}
	)
	for _, cell := range c.anchorFootprint() {
		name := catalogs.RockChunkName(c.chunkPrefix, c.index.TerrainLabelAt(cell))
		if name == "" || seen[name] {
			continue
		}
		if def, ok := c.items.Named(name); ok {
			seen[name] = true
			out = append(out, def)
		}
	}
	return out
}
