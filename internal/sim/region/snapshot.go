package region

import (
	"fmt"

	"github.com/FrodoOf9Fingers/Quarry/internal/persistence/snapshot"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/geom"
)

// ExportSnapshot fills the region-owned sections of snap.
func (r *Region) ExportSnapshot(snap *snapshot.SnapshotV1) {
	snap.Header.RegionID = r.cfg.ID
	snap.Seed = r.cfg.Seed
	snap.BoundaryR = r.cfg.BoundaryR
	snap.Faction = r.cfg.Faction
	snap.NextStructure = r.nextID

	keys := r.LoadedChunkKeys()
	snap.Chunks = make([]snapshot.ChunkV1, 0, len(keys))
	for _, k := range keys {
		ch := r.chunks[k]
		snap.Chunks = append(snap.Chunks, snapshot.ChunkV1{
			CX:      ch.CX,
			CZ:      ch.CZ,
			Terrain: append([]uint16(nil), ch.Terrain...),
			Deep:    append([]uint16(nil), ch.Deep...),
		})
	}

	structs := r.sortedStructures()
	snap.Structures = make([]snapshot.StructureV1, 0, len(structs))
	for _, s := range structs {
		snap.Structures = append(snap.Structures, snapshot.StructureV1{
			ID:      s.ID,
			Def:     s.Def,
			Pos:     s.Pos.ToArray(),
			Rot:     s.Rot,
			Faction: s.Faction,
		})
	}
}

// ImportSnapshot replaces region contents with snap. Spawn hooks are not run:
// loaded structures were already announced when they were first placed.
func (r *Region) ImportSnapshot(snap snapshot.SnapshotV1) error {
	r.chunks = map[ChunkKey]*Chunk{}
	r.structures = map[string]*Structure{}
	r.order = nil
	r.occupied = map[geom.Vec3i]*Structure{}

	for _, c := range snap.Chunks {
		if len(c.Terrain) != chunkSize*chunkSize || len(c.Deep) != chunkSize*chunkSize {
			return fmt.Errorf("chunk %d,%d: bad layer size", c.CX, c.CZ)
		}
		r.chunks[ChunkKey{CX: c.CX, CZ: c.CZ}] = &Chunk{
			CX:      c.CX,
			CZ:      c.CZ,
			Terrain: append([]uint16(nil), c.Terrain...),
			Deep:    append([]uint16(nil), c.Deep...),
		}
	}

	for _, sv := range snap.Structures {
		td, ok := r.cats.Things.Named(sv.Def)
		if !ok {
			return fmt.Errorf("structure %s: %w: %s", sv.ID, ErrUnknownDef, sv.Def)
		}
		s := &Structure{
			ID:      sv.ID,
			Def:     td.ID,
			Kind:    td.Kind,
			Pos:     geom.FromArray(sv.Pos),
			Rot:     geom.NormalizeRotation(sv.Rot),
			Size:    td.Size,
			Faction: sv.Faction,
		}
		r.insert(s, r.Footprint(s))
		if n := idNum(s.ID); n > r.nextID {
			r.nextID = n
		}
	}
	if snap.NextStructure > r.nextID {
		r.nextID = snap.NextStructure
	}
	return nil
}
