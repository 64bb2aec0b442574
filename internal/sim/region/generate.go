package region

import (
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/catalogs"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/geom"
)

func (r *Region) generateChunk(ch *Chunk) {
	g := r.cfg.Gen
	if g.Flat {
		return
	}
	rocks := r.rockTerrains()
	deposits := r.depositDefs()

	for lz := 0; lz < chunkSize; lz++ {
		for lx := 0; lx < chunkSize; lx++ {
			x := ch.CX*chunkSize + lx
			z := ch.CZ*chunkSize + lz
			i := ch.index(lx, lz)

			if len(rocks) > 0 {
				rs := g.TerrainRegionSize
				if rs <= 0 {
					rs = 1
				}
				h := geom.Hash2(r.cfg.Seed, geom.FloorDiv(x, rs), geom.FloorDiv(z, rs))
				// Roughly a third of each terrain region stays soil.
				if h%3 != 0 {
					ch.Terrain[i] = rocks[int((h>>8)%uint64(len(rocks)))]
				}
			}

			if len(deposits) > 0 {
				if def, ok := depositAt(r.cfg.Seed^0x5eed, x, z, g.DepositGrid, g.DepositRadius, uint64(clampPermille(g.DepositProbPermille)), deposits); ok {
					ch.Deep[i] = def
				}
			}
		}
	}
}

// rockTerrains lists terrain palette ids other than the default terrain.
func (r *Region) rockTerrains() []uint16 {
	out := make([]uint16, 0, len(r.cats.Terrain.Palette))
	for i := 1; i < len(r.cats.Terrain.Palette); i++ {
		out = append(out, uint16(i))
	}
	return out
}

// depositDefs lists RESOURCE thing defs as deep-grid values (palette id + 1).
func (r *Region) depositDefs() []uint16 {
	var out []uint16
	for i, id := range r.cats.Things.Palette {
		if r.cats.Things.Defs[id].Kind == catalogs.KindResource {
			out = append(out, uint16(i+1))
		}
	}
	return out
}

// depositAt places circular deposit clusters on a jittered grid, checking the
// neighbouring grid cells so clusters can cross grid lines.
func depositAt(seed int64, x, z, grid, radius int, probPermille uint64, defs []uint16) (uint16, bool) {
	if grid <= 0 || radius <= 0 || probPermille == 0 {
		return 0, false
	}
	gx := geom.FloorDiv(x, grid)
	gz := geom.FloorDiv(z, grid)
	r2 := radius * radius

	for dz := -1; dz <= 1; dz++ {
		for dx := -1; dx <= 1; dx++ {
			cgx := gx + dx
			cgz := gz + dz
			h := geom.Hash2(seed, cgx, cgz)
			if h%1000 >= probPermille {
				continue
			}

			ox := int((h >> 10) % uint64(grid))
			oz := int((h >> 20) % uint64(grid))
			cx := cgx*grid + ox
			cz := cgz*grid + oz

			ddx := x - cx
			ddz := z - cz
			if ddx*ddx+ddz*ddz <= r2 {
				return defs[int((h>>32)%uint64(len(defs)))], true
			}
		}
	}
	return 0, false
}

func clampPermille(v int) int {
	if v < 0 {
		return 0
	}
	if v > 1000 {
		return 1000
	}
	return v
}
