package quarry

import (
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/catalogs"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/geom"
)

// GetResources returns the quarry's resource table, building it on first use.
func (c *Coordinator) GetResources() []ResourceEntry {
	v, _ := c.table.get(func() ([]ResourceEntry, bool) {
		return c.BuildResourceList(), true
	})
	return v
}

// FindResources discards the current table and builds a new one.
func (c *Coordinator) FindResources() []ResourceEntry {
	c.table.reset()
	return c.GetResources()
}

// BuildResourceList builds a fresh resource table from the catalog. Entries
// naming unknown item defs are skipped. Each entry whose item has a deep
// deposit under the anchor gets a random bonus on top of its base weight.
// The returned table is complete; callers never see a partial build.
func (c *Coordinator) BuildResourceList() []ResourceEntry {
	footprint := c.anchorFootprint()

	defs := c.resources.Entries(c.resourceList)
	table := make([]ResourceEntry, 0, len(defs))
	for _, r := range defs {
		item, ok := c.items.Named(r.ThingDef)
		if !ok {
			continue
		}
		table = append(table, ResourceEntry{
			Item:        item,
			Base:        r.Probability,
			Probability: r.Probability + c.environmentBonus(footprint, item, r.Probability),
			StackCount:  r.StackCount,
			LargeVein:   r.LargeVein,
		})
	}

	rows := make([]ResourceAudit, 0, len(table))
	for _, e := range table {
		rows = append(rows, ResourceAudit{Item: e.Item.ID, Base: e.Base, Probability: e.Probability})
	}
	entry := AuditEntry{Action: AuditBuildResources, Resources: rows}
	if a, ok := c.anchor.peek(); ok {
		entry.AnchorID = a.ID
		entry.Pos = a.Pos.ToArray()
	}
	c.audit(entry)

	return table
}

// environmentBonus returns a bonus in [1, max(2, base/4)] when a deposit of
// item lies under any footprint cell, and 0 otherwise. Several matching cells
// still award a single bonus.
func (c *Coordinator) environmentBonus(footprint []geom.Vec3i, item catalogs.ThingDef, base int) int {
	for _, cell := range footprint {
		if def, ok := c.index.DeepResourceAt(cell); ok && def == item.ID {
			return c.rangeInclusive(1, BonusCap(base))
		}
	}
	return 0
}

// BonusCap is the largest deposit bonus for an entry with the given base
// probability.
func BonusCap(base int) int {
	return max(2, geom.FloorDiv(base, 4))
}

func (c *Coordinator) rangeInclusive(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + c.rng.Intn(hi-lo+1)
}
