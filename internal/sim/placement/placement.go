// Package placement builds and removes quarries in a region and keeps the
// region's quarry coordinator informed.
package placement

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/FrodoOf9Fingers/Quarry/internal/sim/catalogs"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/geom"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/quarry"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/region"
)

var (
	ErrQuarryExists = errors.New("region already has a quarry")
	ErrNoQuarry     = errors.New("region has no quarry")
	ErrNotFound     = errors.New("structure not found")
)

type Placer struct {
	region *region.Region
	coord  *quarry.Coordinator
	layout catalogs.LayoutDef
	log    logrus.FieldLogger
}

// New returns a Placer and hooks it into the region so that removing an
// anchor by any means tears the quarry down.
func New(r *region.Region, coord *quarry.Coordinator, layout catalogs.LayoutDef, log logrus.FieldLogger) *Placer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	p := &Placer{
		region: r,
		coord:  coord,
		layout: layout,
		log:    log.WithField("component", "placement"),
	}
	r.OnDespawn(p.onDespawn)
	return p
}

// PlaceQuarry builds an anchor centered on pos and a satellite at each of
// the four quadrant offsets, then registers the anchor. Nothing is built
// unless every piece fits.
func (p *Placer) PlaceQuarry(pos geom.Vec3i, rot int) (*region.Structure, error) {
	if p.coord.IsSpawned() {
		return nil, ErrQuarryExists
	}
	pos.Y = 0
	if err := p.region.CanPlace(p.layout.AnchorDef, pos, rot); err != nil {
		return nil, fmt.Errorf("anchor: %w", err)
	}
	positions := geom.SatellitePositions(pos)
	for i, sp := range positions {
		if err := p.region.CanPlace(p.layout.SatelliteDef, sp, 0); err != nil {
			return nil, fmt.Errorf("%s satellite: %w", geom.Quadrant(i), err)
		}
	}

	anchor, err := p.region.Spawn(p.layout.AnchorDef, pos, rot, p.layout.Faction)
	if err != nil {
		return nil, fmt.Errorf("anchor: %w", err)
	}
	for i, sp := range positions {
		if _, err := p.region.Spawn(p.layout.SatelliteDef, sp, 0, p.layout.Faction); err != nil {
			// Unreachable after CanPlace; undo so the region is not left half-built.
			p.region.Destroy(anchor)
			return nil, fmt.Errorf("%s satellite: %w", geom.Quadrant(i), err)
		}
	}
	p.coord.Register(anchor)
	p.log.WithFields(logrus.Fields{"anchor": anchor.ID, "pos": anchor.Pos.ToArray()}).Info("quarry placed")
	return anchor, nil
}

// RemoveQuarry destroys the current anchor. The despawn hook deconstructs
// the rest.
func (p *Placer) RemoveQuarry() error {
	a := p.coord.Anchor()
	if a == nil {
		return ErrNoQuarry
	}
	p.region.Destroy(a)
	return nil
}

// RemoveStructure destroys a single structure by id, as if it had been
// removed by something outside the quarry's control.
func (p *Placer) RemoveStructure(id string) error {
	s := p.region.StructureByID(id)
	if s == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	p.region.Destroy(s)
	return nil
}

func (p *Placer) onDespawn(s *region.Structure) {
	if s.Kind != catalogs.KindQuarryBase {
		return
	}
	p.log.WithField("anchor", s.ID).Info("quarry anchor removed; deconstructing")
	p.coord.DeconstructQuarry()
}
