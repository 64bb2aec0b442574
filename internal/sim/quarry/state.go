package quarry

import (
	"github.com/FrodoOf9Fingers/Quarry/internal/persistence/snapshot"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/catalogs"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/region"
)

// ExportState returns the persisted part of the coordinator.
func (c *Coordinator) ExportState() snapshot.QuarryV1 {
	var st snapshot.QuarryV1
	if a, ok := c.anchor.peek(); ok {
		st.AnchorID = a.ID
	}
	if rocks, ok := c.rockTypes.raw(); ok {
		for _, d := range rocks {
			st.RockTypes = append(st.RockTypes, d.ID)
		}
	}
	return st
}

// ImportState restores persisted state after the region has been loaded.
// An anchor id that no longer resolves leaves the anchor unset; the next
// lookup searches the region instead. Unknown rock type ids are dropped.
func (c *Coordinator) ImportState(st snapshot.QuarryV1) {
	c.anchor.reset()
	c.satellites.reset()
	c.rockTypes.reset()
	c.table.reset()

	if st.AnchorID != "" {
		if a := c.index.StructureByID(st.AnchorID); region.Live(a) && a.Kind == catalogs.KindQuarryBase {
			c.anchor.set(a)
		} else {
			c.log.WithField("anchor", st.AnchorID).Warn("saved quarry anchor not found in region")
		}
	}

	var rocks []catalogs.ThingDef
	for _, id := range st.RockTypes {
		if d, ok := c.items.Named(id); ok {
			rocks = append(rocks, d)
		}
	}
	if len(rocks) > 0 {
		c.rockTypes.set(rocks)
	}
}
