package quarry

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/FrodoOf9Fingers/Quarry/internal/sim/catalogs"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/geom"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/region"
)

type fixture struct {
	cats   *catalogs.Catalogs
	region *region.Region
	coord  *Coordinator
	hook   *logtest.Hook
	audits *auditRecorder
	rng    *scriptedRand
}

type auditRecorder struct{ entries []AuditEntry }

func (r *auditRecorder) WriteAudit(e AuditEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *auditRecorder) actions() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// scriptedRand returns values from seq in turn (mod n) and counts calls.
type scriptedRand struct {
	seq   []int
	calls int
	ns    []int
}

func (r *scriptedRand) Intn(n int) int {
	r.ns = append(r.ns, n)
	v := 0
	if len(r.seq) > 0 {
		v = r.seq[r.calls%len(r.seq)]
	}
	r.calls++
	return v % n
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	reg, err := region.New(region.Config{ID: "R1", Seed: 1, Gen: region.GenParams{Flat: true}}, cats)
	if err != nil {
		t.Fatalf("new region: %v", err)
	}
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	f := &fixture{
		cats:   cats,
		region: reg,
		hook:   hook,
		audits: &auditRecorder{},
		rng:    &scriptedRand{},
	}
	f.coord = New(reg, &cats.Things, &cats.Resources, Options{
		RegionID: "R1",
		Rand:     f.rng,
		Logger:   logger,
		Audit:    f.audits,
	})
	return f
}

func (f *fixture) spawn(t *testing.T, def string, pos geom.Vec3i) *region.Structure {
	t.Helper()
	s, err := f.region.Spawn(def, pos, 0, "")
	if err != nil {
		t.Fatalf("spawn %s at %+v: %v", def, pos, err)
	}
	return s
}

func (f *fixture) spawnQuarry(t *testing.T, pos geom.Vec3i, quadrants ...geom.Quadrant) (*region.Structure, []*region.Structure) {
	t.Helper()
	anchor := f.spawn(t, "QRY_Quarry", pos)
	sats := make([]*region.Structure, geom.QuadrantCount)
	for _, q := range quadrants {
		sats[q] = f.spawn(t, "QRY_Quadrant", q.Offset(pos))
	}
	return anchor, sats
}

func (f *fixture) countLevel(level logrus.Level) int {
	n := 0
	for _, e := range f.hook.AllEntries() {
		if e.Level == level {
			n++
		}
	}
	return n
}

var allQuadrants = []geom.Quadrant{geom.UpperLeft, geom.UpperRight, geom.LowerLeft, geom.LowerRight}
