package quarry

import (
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/FrodoOf9Fingers/Quarry/internal/persistence/snapshot"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/catalogs"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/geom"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/region"
)

func TestDeregisterIsIdempotent(t *testing.T) {
	f := newFixture(t)
	anchor, _ := f.spawnQuarry(t, geom.Vec3i{}, allQuadrants...)
	f.coord.Register(anchor)

	f.coord.Deregister()
	anchorOnce, anchorOK := f.coord.anchor.raw()
	satsOnce := f.coord.Satellites()

	f.coord.Deregister()
	anchorTwice, anchorOK2 := f.coord.anchor.raw()
	satsTwice := f.coord.Satellites()

	if anchorOK || anchorOK2 || anchorOnce != nil || anchorTwice != nil {
		t.Fatalf("anchor should be cleared")
	}
	if satsOnce == nil || len(satsOnce) != 0 || !reflect.DeepEqual(satsOnce, satsTwice) {
		t.Fatalf("satellite list should be empty after deregister: %v / %v", satsOnce, satsTwice)
	}
	if f.coord.Active() {
		t.Fatalf("expected inactive")
	}
	if got := f.audits.actions(); !reflect.DeepEqual(got, []string{AuditRegister, AuditDeregister}) {
		t.Fatalf("unexpected audits %v", got)
	}
	// Deregister leaves the structures alone.
	if f.region.StructureCount() != 5 {
		t.Fatalf("expected 5 structures, got %d", f.region.StructureCount())
	}
}

func TestDeconstructWithMissingSatellites(t *testing.T) {
	f := newFixture(t)
	anchor, sats := f.spawnQuarry(t, geom.Vec3i{X: 8, Z: 8}, allQuadrants...)
	f.coord.Register(anchor)

	f.region.Destroy(sats[geom.UpperLeft])
	f.region.Destroy(sats[geom.LowerRight])

	f.coord.DeconstructQuarry()

	for _, s := range f.region.AllStructures() {
		if s.Kind == catalogs.KindQuarryQuadrant {
			t.Fatalf("satellite %s survived deconstruct", s.ID)
		}
	}
	if !sats[geom.UpperRight].Destroyed() || !sats[geom.LowerLeft].Destroyed() {
		t.Fatalf("remaining satellites should be destroyed")
	}
	if f.coord.Active() || len(f.coord.Satellites()) != 0 {
		t.Fatalf("coordinator should be cleared")
	}
	want := []string{AuditRegister, AuditDestroySatellite, AuditDestroySatellite, AuditDeregister, AuditDeconstruct}
	if got := f.audits.actions(); !reflect.DeepEqual(got, want) {
		t.Fatalf("audits=%v want %v", got, want)
	}
	if last := f.audits.entries[len(f.audits.entries)-1]; last.Satellites != 2 || last.AnchorID != anchor.ID {
		t.Fatalf("unexpected deconstruct audit %+v", last)
	}
	if n := f.countLevel(logrus.ErrorLevel); n != 0 {
		t.Fatalf("expected no errors, got %d", n)
	}
	// The anchor itself belongs to the placement system.
	if anchor.Destroyed() {
		t.Fatalf("anchor should not be destroyed by the coordinator")
	}
}

func TestDeconstructCatchesSatellitesMissedByCache(t *testing.T) {
	f := newFixture(t)
	anchor, _ := f.spawnQuarry(t, geom.Vec3i{}, geom.UpperLeft)
	f.coord.Register(anchor)
	// Built after registration; the cached list never saw it.
	late := f.spawn(t, "QRY_Quadrant", geom.OffsetLR(geom.Vec3i{}))

	f.coord.DeconstructQuarry()
	if !late.Destroyed() {
		t.Fatalf("late satellite should be destroyed by the scan")
	}
}

func TestRockTypes(t *testing.T) {
	f := newFixture(t)
	anchor, _ := f.spawnQuarry(t, geom.Vec3i{})
	f.region.SetTerrain(geom.Vec3i{X: -2, Z: -2}, "Granite_Rough")
	f.region.SetTerrain(geom.Vec3i{X: 0, Z: 0}, "Marble_Rough")
	f.region.SetTerrain(geom.Vec3i{X: 1, Z: 1}, "Marble_Smooth")
	f.region.SetTerrain(geom.Vec3i{X: 2, Z: 2}, "Gravel")
	f.region.SetTerrain(geom.Vec3i{X: 5, Z: 5}, "Slate_Rough")
	f.coord.Register(anchor)

	got := ids(f.coord.GetRockTypes())
	if !reflect.DeepEqual(got, []string{"ChunkGranite", "ChunkMarble"}) {
		t.Fatalf("rock types=%v", got)
	}

	f.region.SetTerrain(geom.Vec3i{X: -1, Z: 0}, "Slate_Rough")
	if got := ids(f.coord.RockTypes()); len(got) != 2 {
		t.Fatalf("expected cached rock types, got %v", got)
	}
	f.coord.ResetRockTypes()
	if got := ids(f.coord.RockTypes()); !reflect.DeepEqual(got, []string{"ChunkGranite", "ChunkSlate", "ChunkMarble"}) {
		t.Fatalf("expected recomputed rock types, got %v", got)
	}
}

func TestStateRoundTrip(t *testing.T) {
	f := newFixture(t)
	anchor, _ := f.spawnQuarry(t, geom.Vec3i{X: 4, Z: 4}, geom.UpperLeft, geom.LowerLeft)
	f.region.SetTerrain(geom.Vec3i{X: 4, Z: 4}, "Sandstone_Rough")
	f.coord.Register(anchor)
	_ = f.coord.RockTypes()

	var snap snapshot.SnapshotV1
	f.region.ExportSnapshot(&snap)
	snap.Quarry = f.coord.ExportState()
	if snap.Quarry.AnchorID != anchor.ID || !reflect.DeepEqual(snap.Quarry.RockTypes, []string{"ChunkSandstone"}) {
		t.Fatalf("unexpected exported state %+v", snap.Quarry)
	}

	reg, err := region.New(region.Config{ID: "R1", Gen: region.GenParams{Flat: true}}, f.cats)
	if err != nil {
		t.Fatalf("new region: %v", err)
	}
	if err := reg.ImportSnapshot(snap); err != nil {
		t.Fatalf("import region: %v", err)
	}
	c := New(reg, &f.cats.Things, &f.cats.Resources, Options{})
	c.ImportState(snap.Quarry)

	if a := c.Anchor(); a == nil || a.ID != anchor.ID || a.Pos != anchor.Pos {
		t.Fatalf("anchor not restored: %+v", a)
	}
	// Persisted rock types win over the live terrain until reset.
	reg.SetTerrain(geom.Vec3i{X: 4, Z: 4}, "Granite_Rough")
	if got := ids(c.RockTypes()); !reflect.DeepEqual(got, []string{"ChunkSandstone"}) {
		t.Fatalf("rock types=%v", got)
	}
	c.ResetRockTypes()
	if got := ids(c.RockTypes()); !reflect.DeepEqual(got, []string{"ChunkGranite"}) {
		t.Fatalf("rock types after reset=%v", got)
	}
	sats := c.Satellites()
	if len(sats) != 4 || sats[geom.UpperLeft] == nil || sats[geom.LowerLeft] == nil || sats[geom.UpperRight] != nil {
		t.Fatalf("satellites not rediscovered: %+v", sats)
	}
}

func TestImportStateUnknownAnchorFallsBackToScan(t *testing.T) {
	f := newFixture(t)
	anchor := f.spawn(t, "QRY_Quarry", geom.Vec3i{})
	f.coord.ImportState(snapshot.QuarryV1{AnchorID: "S999", RockTypes: []string{"ChunkNope", "ChunkSlate"}})

	if f.coord.Active() {
		t.Fatalf("unknown anchor id should leave the slot empty")
	}
	if f.coord.Anchor() != anchor {
		t.Fatalf("expected scan to find the anchor")
	}
	if got := ids(f.coord.RockTypes()); !reflect.DeepEqual(got, []string{"ChunkSlate"}) {
		t.Fatalf("rock types=%v", got)
	}
	if n := f.countLevel(logrus.WarnLevel); n != 1 {
		t.Fatalf("expected 1 warning, got %d", n)
	}
}

func ids(defs []catalogs.ThingDef) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.ID)
	}
	return out
}
