package region

import (
	"sort"

	"github.com/FrodoOf9Fingers/Quarry/internal/sim/geom"
)

func (r *Region) chunkFor(p geom.Vec3i) (*Chunk, int, int) {
	cx := geom.FloorDiv(p.X, chunkSize)
	cz := geom.FloorDiv(p.Z, chunkSize)
	lx := geom.Mod(p.X, chunkSize)
	lz := geom.Mod(p.Z, chunkSize)
	return r.GetOrGenChunk(cx, cz), lx, lz
}

// TerrainAt returns the terrain palette id at p (default terrain out of bounds).
func (r *Region) TerrainAt(p geom.Vec3i) uint16 {
	if !r.InBounds(p) {
		return 0
	}
	ch, lx, lz := r.chunkFor(p)
	return ch.Terrain[ch.index(lx, lz)]
}

func (r *Region) SetTerrain(p geom.Vec3i, terrainID string) bool {
	id, ok := r.cats.Terrain.Index[terrainID]
	if !ok || !r.InBounds(p) {
		return false
	}
	ch, lx, lz := r.chunkFor(p)
	ch.Terrain[ch.index(lx, lz)] = id
	return true
}

func (r *Region) TerrainLabelAt(p geom.Vec3i) string {
	return r.cats.Terrain.Label(r.TerrainAt(p))
}

// DeepResourceAt returns the thing def id of the deposit under p, if any.
func (r *Region) DeepResourceAt(p geom.Vec3i) (string, bool) {
	if !r.InBounds(p) {
		return "", false
	}
	ch, lx, lz := r.chunkFor(p)
	v := ch.Deep[ch.index(lx, lz)]
	if v == 0 || int(v) > len(r.cats.Things.Palette) {
		return "", false
	}
	return r.cats.Things.Palette[v-1], true
}

// SetDeepResource places a deposit of def under p; an empty def clears it.
func (r *Region) SetDeepResource(p geom.Vec3i, def string) bool {
	if !r.InBounds(p) {
		return false
	}
	var v uint16
	if def != "" {
		idx, ok := r.cats.Things.Index[def]
		if !ok {
			return false
		}
		v = idx + 1
	}
	ch, lx, lz := r.chunkFor(p)
	ch.Deep[ch.index(lx, lz)] = v
	return true
}

func (r *Region) GetOrGenChunk(cx, cz int) *Chunk {
	k := ChunkKey{CX: cx, CZ: cz}
	if ch, ok := r.chunks[k]; ok {
		return ch
	}
	ch := &Chunk{
		CX:      cx,
		CZ:      cz,
		Terrain: make([]uint16, chunkSize*chunkSize),
		Deep:    make([]uint16, chunkSize*chunkSize),
	}
	r.generateChunk(ch)
	r.chunks[k] = ch
	return ch
}

func (r *Region) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(r.chunks))
	for k := range r.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}
