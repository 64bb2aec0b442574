package region

import (
	"errors"
	"reflect"
	"testing"

	"github.com/FrodoOf9Fingers/Quarry/internal/persistence/snapshot"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/catalogs"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/geom"
)

func loadCats(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

func newFlat(t *testing.T, boundary int) *Region {
	t.Helper()
	r, err := New(Config{ID: "R1", BoundaryR: boundary, Gen: GenParams{Flat: true}}, loadCats(t))
	if err != nil {
		t.Fatalf("new region: %v", err)
	}
	return r
}

func TestSpawnOccupiesFootprint(t *testing.T) {
	r := newFlat(t, 32)
	a, err := r.Spawn("QRY_Quarry", geom.Vec3i{X: 1, Y: 7, Z: 1}, 0, "")
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if a.ID != "S1" || a.Kind != catalogs.KindQuarryBase || a.Faction != "COLONY" || a.Pos.Y != 0 {
		t.Fatalf("unexpected structure %+v", a)
	}
	for _, p := range []geom.Vec3i{{X: -1, Z: -1}, {X: 3, Z: 3}, {X: 1, Z: 1}} {
		if r.StructureAt(p) != a {
			t.Fatalf("expected anchor at %+v", p)
		}
	}
	if r.StructureAt(geom.Vec3i{X: 4, Z: 1}) != nil {
		t.Fatalf("cell outside footprint should be empty")
	}

	if _, err := r.Spawn("QRY_Quadrant", geom.Vec3i{X: 3, Z: -1}, 0, ""); !errors.Is(err, ErrOccupied) {
		t.Fatalf("expected ErrOccupied, got %v", err)
	}
	if _, err := r.Spawn("QRY_Quadrant", geom.Vec3i{X: 33}, 0, ""); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	if _, err := r.Spawn("QRY_Quarry", geom.Vec3i{X: 31}, 0, ""); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected footprint ErrOutOfBounds, got %v", err)
	}
	if _, err := r.Spawn("Nope", geom.Vec3i{X: 10}, 0, ""); !errors.Is(err, ErrUnknownDef) {
		t.Fatalf("expected ErrUnknownDef, got %v", err)
	}
	if r.StructureCount() != 1 {
		t.Fatalf("failed spawns must not add structures, got %d", r.StructureCount())
	}
}

func TestDestroyRunsHooksOnce(t *testing.T) {
	r := newFlat(t, 0)
	var spawned, despawned []string
	r.OnSpawn(func(s *Structure) { spawned = append(spawned, s.ID) })
	r.OnDespawn(func(s *Structure) { despawned = append(despawned, s.ID) })

	a, _ := r.Spawn("QRY_Quadrant", geom.Vec3i{X: 5}, 0, "")
	b, _ := r.Spawn("QRY_Quadrant", geom.Vec3i{X: 6}, 0, "RAIDERS")
	r.Destroy(a)
	r.Destroy(a)
	r.Destroy(nil)

	if !reflect.DeepEqual(spawned, []string{"S1", "S2"}) || !reflect.DeepEqual(despawned, []string{"S1"}) {
		t.Fatalf("hooks: spawned=%v despawned=%v", spawned, despawned)
	}
	if !a.Destroyed() || Live(a) || !Live(b) {
		t.Fatalf("unexpected liveness a=%v b=%v", Live(a), Live(b))
	}
	if r.StructureAt(a.Pos) != nil || r.StructureByID("S1") != nil {
		t.Fatalf("destroyed structure still indexed")
	}
	if got := r.ColonistStructures(); len(got) != 0 {
		t.Fatalf("RAIDERS structure is not colonist-owned: %v", got)
	}

	c, _ := r.Spawn("QRY_Quadrant", geom.Vec3i{X: 5}, 0, "")
	if c.ID != "S3" {
		t.Fatalf("ids must not be reused, got %s", c.ID)
	}
}

func TestRotatedFootprint(t *testing.T) {
	r := newFlat(t, 0)
	r.cats.Things.Defs["Wide"] = catalogs.ThingDef{ID: "Wide", Kind: "WALL", Size: [2]int{3, 1}}
	s, err := r.Spawn("Wide", geom.Vec3i{}, 1, "")
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if len(r.Footprint(s)) != 3 || r.StructureAt(geom.Vec3i{Z: 1}) != s || r.StructureAt(geom.Vec3i{X: 1}) != nil {
		t.Fatalf("rotated footprint wrong: %v", r.Footprint(s))
	}
}

func TestCells(t *testing.T) {
	r := newFlat(t, 20)
	p := geom.Vec3i{X: -17, Z: 3}
	if got := r.TerrainLabelAt(p); got != "soil" {
		t.Fatalf("flat terrain label=%q", got)
	}
	if !r.SetTerrain(p, "Slate_Rough") || r.TerrainLabelAt(p) != "rough slate" {
		t.Fatalf("set terrain failed: %q", r.TerrainLabelAt(p))
	}
	if r.SetTerrain(p, "Lava") || r.SetTerrain(geom.Vec3i{X: 21}, "Gravel") {
		t.Fatalf("unknown terrain and out of bounds must be rejected")
	}

	if _, ok := r.DeepResourceAt(p); ok {
		t.Fatalf("flat region has no deposits")
	}
	if !r.SetDeepResource(p, "Gold") {
		t.Fatalf("set deposit failed")
	}
	if def, ok := r.DeepResourceAt(p); !ok || def != "Gold" {
		t.Fatalf("deposit=%q ok=%v", def, ok)
	}
	if r.SetDeepResource(p, "Nope") {
		t.Fatalf("unknown def accepted")
	}
	r.SetDeepResource(p, "")
	if _, ok := r.DeepResourceAt(p); ok {
		t.Fatalf("empty def should clear the deposit")
	}
	if got := r.LoadedChunkKeys(); !reflect.DeepEqual(got, []ChunkKey{{CX: -2, CZ: 0}}) {
		t.Fatalf("chunk keys=%v", got)
	}
}

func TestGenerationIsDeterministic(t *testing.T) {
	cats := loadCats(t)
	cfg := Config{ID: "R1", Seed: 42, Gen: GenParams{TerrainRegionSize: 8, DepositGrid: 8, DepositRadius: 3, DepositProbPermille: 1000}}
	a, _ := New(cfg, cats)
	b, _ := New(cfg, cats)

	rocky, deposits := 0, 0
	for x := -20; x < 20; x++ {
		for z := -20; z < 20; z++ {
			p := geom.Vec3i{X: x, Z: z}
			if a.TerrainAt(p) != b.TerrainAt(p) {
				t.Fatalf("terrain differs at %+v", p)
			}
			da, oka := a.DeepResourceAt(p)
			db, okb := b.DeepResourceAt(p)
			if da != db || oka != okb {
				t.Fatalf("deposit differs at %+v", p)
			}
			if a.TerrainAt(p) != 0 {
				rocky++
			}
			if oka {
				deposits++
				if cats.Things.Defs[da].Kind != catalogs.KindResource {
					t.Fatalf("deposit %s is not a resource", da)
				}
			}
		}
	}
	if rocky == 0 || deposits == 0 {
		t.Fatalf("expected some rock and deposits, got rocky=%d deposits=%d", rocky, deposits)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	r := newFlat(t, 0)
	r.SetTerrain(geom.Vec3i{X: 2, Z: 2}, "Granite_Rough")
	r.SetDeepResource(geom.Vec3i{X: 2, Z: 2}, "Jade")
	a, _ := r.Spawn("QRY_Quarry", geom.Vec3i{}, 0, "")
	gone, _ := r.Spawn("QRY_Quadrant", geom.Vec3i{X: 3, Z: 3}, 0, "")
	_, _ = r.Spawn("QRY_Quadrant", geom.Vec3i{X: -3, Z: 3}, 0, "")
	r.Destroy(gone)

	var snap snapshot.SnapshotV1
	r.ExportSnapshot(&snap)
	if snap.NextStructure != 3 || len(snap.Structures) != 2 {
		t.Fatalf("unexpected export: next=%d structures=%d", snap.NextStructure, len(snap.Structures))
	}

	spawned := 0
	r2 := newFlat(t, 0)
	r2.OnSpawn(func(*Structure) { spawned++ })
	if err := r2.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	if spawned != 0 {
		t.Fatalf("import must not run spawn hooks")
	}
	if got := r2.StructureAt(geom.Vec3i{X: 1, Z: -1}); got == nil || got.ID != a.ID {
		t.Fatalf("anchor footprint not restored: %+v", got)
	}
	if r2.TerrainLabelAt(geom.Vec3i{X: 2, Z: 2}) != "rough granite" {
		t.Fatalf("terrain not restored")
	}
	if def, _ := r2.DeepResourceAt(geom.Vec3i{X: 2, Z: 2}); def != "Jade" {
		t.Fatalf("deposit not restored: %q", def)
	}
	next, _ := r2.Spawn("QRY_Quadrant", geom.Vec3i{X: 3, Z: 3}, 0, "")
	if next.ID != "S4" {
		t.Fatalf("expected S4 after import, got %s", next.ID)
	}

	snap.Structures = append(snap.Structures, snapshot.StructureV1{ID: "S9", Def: "Nope"})
	if err := r2.ImportSnapshot(snap); !errors.Is(err, ErrUnknownDef) {
		t.Fatalf("expected ErrUnknownDef, got %v", err)
	}
}
