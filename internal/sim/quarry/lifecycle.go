package quarry

import "github.com/FrodoOf9Fingers/Quarry/internal/sim/region"

// DeconstructQuarry destroys every satellite in the region and deregisters
// the quarry. Satellites are found by a full scan rather than from the cache
// so that ones removed or replaced behind the coordinator's back are handled.
func (c *Coordinator) DeconstructQuarry() {
	anchorID := ""
	var pos [3]int
	if a, ok := c.anchor.raw(); ok {
		anchorID = a.ID
		pos = a.Pos.ToArray()
	}

	sats := c.FindAllSatellites()
	c.satellites.set(sats)
	for _, s := range sats {
		id, p := s.ID, s.Pos.ToArray()
		c.index.Destroy(s)
		c.audit(AuditEntry{Action: AuditDestroySatellite, AnchorID: anchorID, StructureID: id, Pos: p})
	}

	c.Deregister()
	c.audit(AuditEntry{Action: AuditDeconstruct, AnchorID: anchorID, Pos: pos, Satellites: len(sats)})
}

// Deregister forgets the quarry without touching any structures. Calling it
// on an inactive coordinator changes nothing.
func (c *Coordinator) Deregister() {
	a, wasActive := c.anchor.raw()
	c.anchor.reset()
	c.satellites.set([]*region.Structure{})
	c.rockTypes.reset()
	c.table.reset()
	if wasActive {
		c.audit(AuditEntry{Action: AuditDeregister, AnchorID: a.ID, Pos: a.Pos.ToArray()})
	}
}
