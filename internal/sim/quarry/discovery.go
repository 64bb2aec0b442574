package quarry

import (
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/catalogs"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/geom"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/region"
)

const (
	msgNoAnchor      = "No quarry was found while trying to get a list of quadrants. Trying to find one. - "
	msgAnchorFound   = "Quarry found."
	msgAnchorMissing = "Unable to find a quarry."
)

// Register makes anchor the region's quarry and rediscovers its satellites.
// Missing satellites are left as nil slots; a quarry under construction is
// expected to have some.
func (c *Coordinator) Register(anchor *region.Structure) {
	if !region.Live(anchor) {
		c.log.Warn("register called without a live anchor; ignoring")
		return
	}
	c.anchor.set(anchor)
	c.satellites.reset()
	if sats := c.FindSatellites(); sats != nil {
		c.satellites.set(sats)
	}
	c.table.reset()

	c.audit(AuditEntry{
		Action:     AuditRegister,
		AnchorID:   anchor.ID,
		Pos:        anchor.Pos.ToArray(),
		Satellites: countLive(c.Satellites()),
	})
}

// FindAnchor returns the first quarry anchor in the region in spawn order,
// or nil when none has been built.
func (c *Coordinator) FindAnchor() *region.Structure {
	for _, s := range c.index.AllStructures() {
		if s.Kind == catalogs.KindQuarryBase {
			return s
		}
	}
	return nil
}

// FindSatellites looks up the structures at the four quadrant offsets around
// the anchor. It always returns four slots, nil where no satellite stands,
// unless no anchor can be found at all, in which case it returns nil.
func (c *Coordinator) FindSatellites() []*region.Structure {
	anchor, ok := c.anchor.peek()
	if !ok {
		anchor = c.FindAnchor()
		if anchor == nil {
			c.log.Error(msgNoAnchor + msgAnchorMissing)
			return nil
		}
		c.anchor.set(anchor)
		c.log.WithField("anchor", anchor.ID).Warn(msgNoAnchor + msgAnchorFound)
	}

	out := make([]*region.Structure, geom.QuadrantCount)
	for i, p := range geom.SatellitePositions(anchor.Pos) {
		s := c.index.StructureAt(p)
		if s != nil && s.Kind == catalogs.KindQuarryQuadrant {
			out[i] = s
		}
	}
	return out
}

// FindAllSatellites scans every player-owned structure for satellites,
// stopping once four are found. It does not depend on the anchor, so it still
// works when the cached list is out of date.
func (c *Coordinator) FindAllSatellites() []*region.Structure {
	out := make([]*region.Structure, 0, geom.QuadrantCount)
	for _, s := range c.index.ColonistStructures() {
		if s.Kind == catalogs.KindQuarryQuadrant {
			out = append(out, s)
		}
		if len(out) == geom.QuadrantCount {
			break
		}
	}
	return out
}

func countLive(list []*region.Structure) int {
	n := 0
	for _, s := range list {
		if region.Live(s) {
			n++
		}
	}
	return n
}
