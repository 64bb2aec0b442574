package runtime

import (
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/geom"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/region"
)

// Status is a point-in-time view of the region's quarry.
type Status struct {
	Tick       uint64
	RegionID   string
	Spawned    bool
	Active     bool
	AnchorID   string
	AnchorPos  geom.Vec3i
	Satellites []SatelliteStatus
	RockTypes  []string
	Structures int
}

// SatelliteStatus describes one quadrant slot; ID is empty when nothing
// stands there.
type SatelliteStatus struct {
	Quadrant geom.Quadrant
	ID       string
	Pos      geom.Vec3i
}

func (rt *Runtime) status() Status {
	st := Status{
		Tick:       rt.tick.Load(),
		RegionID:   rt.cfg.RegionID,
		Spawned:    rt.coord.IsSpawned(),
		Active:     rt.coord.Active(),
		Structures: rt.region.StructureCount(),
	}
	if !st.Active {
		return st
	}
	a := rt.coord.Anchor()
	st.AnchorID = a.ID
	st.AnchorPos = a.Pos

	sats := rt.coord.Satellites()
	for i, p := range geom.SatellitePositions(a.Pos) {
		ss := SatelliteStatus{Quadrant: geom.Quadrant(i), Pos: p}
		if i < len(sats) && region.Live(sats[i]) {
			ss.ID = sats[i].ID
		}
		st.Satellites = append(st.Satellites, ss)
	}
	for _, d := range rt.coord.RockTypes() {
		st.RockTypes = append(st.RockTypes, d.ID)
	}
	return st
}

// Subscribe returns a channel receiving the status after every change, and a
// function that cancels the subscription. Slow subscribers miss updates.
func (rt *Runtime) Subscribe() (<-chan Status, func()) {
	rt.subMu.Lock()
	defer rt.subMu.Unlock()
	ch := make(chan Status, 8)
	id := rt.nextID
	rt.nextID++
	if rt.subs == nil {
		close(ch)
		return ch, func() {}
	}
	rt.subs[id] = ch
	return ch, func() {
		rt.subMu.Lock()
		defer rt.subMu.Unlock()
		if c, ok := rt.subs[id]; ok {
			delete(rt.subs, id)
			close(c)
		}
	}
}

func (rt *Runtime) broadcast(st Status) {
	rt.subMu.Lock()
	defer rt.subMu.Unlock()
	for _, ch := range rt.subs {
		select {
		case ch <- st:
		default:
		}
	}
}

func (rt *Runtime) closeSubscribers() {
	rt.subMu.Lock()
	defer rt.subMu.Unlock()
	for id, ch := range rt.subs {
		delete(rt.subs, id)
		close(ch)
	}
	rt.subs = nil
}
