package quarry

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/FrodoOf9Fingers/Quarry/internal/sim/geom"
)

func TestRegisterFindsAllSatellites(t *testing.T) {
	f := newFixture(t)
	pos := geom.Vec3i{X: 10, Z: -6}
	anchor, sats := f.spawnQuarry(t, pos, allQuadrants...)

	f.coord.Register(anchor)
	if f.coord.Anchor() != anchor {
		t.Fatalf("anchor not cached")
	}
	got := f.coord.FindSatellites()
	if len(got) != geom.QuadrantCount {
		t.Fatalf("expected %d slots, got %d", geom.QuadrantCount, len(got))
	}
	want := geom.SatellitePositions(pos)
	for i := range got {
		if got[i] == nil || got[i] != sats[i] {
			t.Fatalf("slot %d: got %+v want %+v", i, got[i], sats[i])
		}
		if got[i].Pos != want[i] {
			t.Fatalf("slot %d at %+v want %+v", i, got[i].Pos, want[i])
		}
	}
	if cached := f.coord.Satellites(); len(cached) != 4 || cached[2] != sats[2] {
		t.Fatalf("satellite cache mismatch: %+v", cached)
	}
	if f.hook.LastEntry() != nil {
		t.Fatalf("unexpected log entry: %s", f.hook.LastEntry().Message)
	}
	if acts := f.audits.actions(); len(acts) != 1 || acts[0] != AuditRegister || f.audits.entries[0].Satellites != 4 {
		t.Fatalf("unexpected audits: %+v", f.audits.entries)
	}
}

func TestRegisterWithoutSatellites(t *testing.T) {
	f := newFixture(t)
	anchor, _ := f.spawnQuarry(t, geom.Vec3i{})

	f.coord.Register(anchor)
	got := f.coord.FindSatellites()
	if len(got) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(got))
	}
	for i, s := range got {
		if s != nil {
			t.Fatalf("slot %d should be empty, got %+v", i, s)
		}
	}
	if n := f.countLevel(logrus.ErrorLevel); n != 0 {
		t.Fatalf("expected no errors, got %d", n)
	}
}

func TestFindSatellitesIgnoresOtherStructures(t *testing.T) {
	f := newFixture(t)
	pos := geom.Vec3i{}
	anchor, sats := f.spawnQuarry(t, pos, geom.UpperRight)
	// A non-satellite building where the lower-left quadrant would go.
	f.spawn(t, "Steel", geom.OffsetLL(pos))

	f.coord.Register(anchor)
	got := f.coord.FindSatellites()
	if got[geom.UpperRight] != sats[geom.UpperRight] {
		t.Fatalf("expected UR satellite")
	}
	if got[geom.LowerLeft] != nil || got[geom.UpperLeft] != nil || got[geom.LowerRight] != nil {
		t.Fatalf("expected other slots empty: %+v", got)
	}
}

func TestFindSatellitesHealsMissingAnchor(t *testing.T) {
	f := newFixture(t)
	anchor, sats := f.spawnQuarry(t, geom.Vec3i{X: 5, Z: 5}, geom.LowerRight)

	got := f.coord.FindSatellites()
	if got == nil || got[geom.LowerRight] != sats[geom.LowerRight] {
		t.Fatalf("expected healed lookup to find LR satellite, got %+v", got)
	}
	if f.coord.Anchor() != anchor {
		t.Fatalf("expected anchor to be cached after healing")
	}
	if n := f.countLevel(logrus.WarnLevel); n != 1 {
		t.Fatalf("expected 1 warning, got %d", n)
	}
	if n := f.countLevel(logrus.ErrorLevel); n != 0 {
		t.Fatalf("expected no errors, got %d", n)
	}
}

func TestFindSatellitesWithoutAnyAnchor(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "QRY_Quadrant", geom.Vec3i{X: 3, Z: 3})

	if got := f.coord.FindSatellites(); got != nil {
		t.Fatalf("expected nil without an anchor, got %+v", got)
	}
	if n := f.countLevel(logrus.ErrorLevel); n != 1 {
		t.Fatalf("expected 1 error, got %d", n)
	}
	if f.coord.Satellites() != nil {
		t.Fatalf("expected nil satellite list")
	}
}

func TestFindAnchorReturnsFirstInSpawnOrder(t *testing.T) {
	f := newFixture(t)
	if f.coord.FindAnchor() != nil || f.coord.IsSpawned() {
		t.Fatalf("empty region should have no anchor")
	}
	f.spawn(t, "Steel", geom.Vec3i{X: 40})
	first := f.spawn(t, "QRY_Quarry", geom.Vec3i{X: 20})
	f.spawn(t, "QRY_Quarry", geom.Vec3i{X: -20})
	if got := f.coord.FindAnchor(); got != first {
		t.Fatalf("expected first anchor %s, got %+v", first.ID, got)
	}
	if !f.coord.IsSpawned() {
		t.Fatalf("expected IsSpawned")
	}
}

func TestAnchorCacheHealsWhenDestroyed(t *testing.T) {
	f := newFixture(t)
	a1 := f.spawn(t, "QRY_Quarry", geom.Vec3i{})
	f.coord.Register(a1)
	if !f.coord.Active() {
		t.Fatalf("expected active after register")
	}

	f.region.Destroy(a1)
	if f.coord.Active() {
		t.Fatalf("destroyed anchor should not count as active")
	}
	if f.coord.Anchor() != nil {
		t.Fatalf("expected no anchor after destroy")
	}

	a2 := f.spawn(t, "QRY_Quarry", geom.Vec3i{X: 30})
	if f.coord.Anchor() != a2 {
		t.Fatalf("expected lookup to find replacement anchor")
	}
}

func TestFindAllSatellites(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.spawn(t, "QRY_Quadrant", geom.Vec3i{X: i * 2})
	}
	if got := f.coord.FindAllSatellites(); len(got) != 4 {
		t.Fatalf("expected scan to stop at 4, got %d", len(got))
	}

	g := newFixture(t)
	if _, err := g.region.Spawn("QRY_Quadrant", geom.Vec3i{X: 1}, 0, "RAIDERS"); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	own := g.spawn(t, "QRY_Quadrant", geom.Vec3i{X: 3})
	got := g.coord.FindAllSatellites()
	if len(got) != 1 || got[0] != own {
		t.Fatalf("expected only the colony satellite, got %+v", got)
	}
}

func TestRegisterIgnoresDeadAnchor(t *testing.T) {
	f := newFixture(t)
	a := f.spawn(t, "QRY_Quarry", geom.Vec3i{})
	f.region.Destroy(a)
	f.coord.Register(a)
	f.coord.Register(nil)
	if f.coord.Active() {
		t.Fatalf("dead anchor should not register")
	}
	if len(f.audits.entries) != 0 {
		t.Fatalf("expected no audits, got %+v", f.audits.entries)
	}
}
