package quarry

import (
	"io"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/FrodoOf9Fingers/Quarry/internal/sim/catalogs"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/geom"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/region"
)

// SpatialIndex is the view of a region the coordinator needs.
type SpatialIndex interface {
	StructureAt(p geom.Vec3i) *region.Structure
	StructureByID(id string) *region.Structure
	TerrainLabelAt(p geom.Vec3i) string
	DeepResourceAt(p geom.Vec3i) (string, bool)
	AllStructures() []*region.Structure
	ColonistStructures() []*region.Structure
	Footprint(s *region.Structure) []geom.Vec3i
	Destroy(s *region.Structure)
}

// ItemDefs resolves item definitions by name.
type ItemDefs interface {
	Named(name string) (catalogs.ThingDef, bool)
}

// ResourceSource provides the ordered entries of a named resource list.
type ResourceSource interface {
	Entries(list string) []catalogs.ResourceDef
}

// Rand is the random source used for deposit bonuses.
type Rand interface {
	Intn(n int) int
}

// ResourceEntry is one row of a quarry's resource table.
type ResourceEntry struct {
	Item        catalogs.ThingDef
	Base        int
	Probability int
	StackCount  catalogs.IntRange
	LargeVein   bool
}

type Options struct {
	RegionID     string
	ResourceList string
	ChunkPrefix  string
	Seed         int64
	Rand         Rand
	Logger       logrus.FieldLogger
	Audit        AuditSink
}

// Coordinator tracks the single quarry of one region: its anchor, the four
// satellites around it, the rock types under it and its resource table.
//
// A Coordinator is not safe for concurrent use; it is owned by the goroutine
// that steps its region.
type Coordinator struct {
	index     SpatialIndex
	items     ItemDefs
	resources ResourceSource

	regionID     string
	resourceList string
	chunkPrefix  string
	rng          Rand
	log          logrus.FieldLogger
	sink         AuditSink

	anchor     slot[*region.Structure]
	satellites slot[[]*region.Structure]
	rockTypes  slot[[]catalogs.ThingDef]
	table      slot[[]ResourceEntry]
}

func New(index SpatialIndex, items ItemDefs, resources ResourceSource, opts Options) *Coordinator {
	if opts.ResourceList == "" {
		opts.ResourceList = catalogs.DefaultResourceList
	}
	if opts.ChunkPrefix == "" {
		opts.ChunkPrefix = catalogs.ChunkPrefix
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(opts.Seed))
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}
	c := &Coordinator{
		index:        index,
		items:        items,
		resources:    resources,
		regionID:     opts.RegionID,
		resourceList: opts.ResourceList,
		chunkPrefix:  opts.ChunkPrefix,
		rng:          opts.Rand,
		log:          opts.Logger.WithField("component", "quarry"),
		sink:         opts.Audit,
	}
	c.anchor.valid = region.Live
	return c
}

// Anchor returns the cached anchor, searching the region when the cache is
// empty or the cached structure has been destroyed.
func (c *Coordinator) Anchor() *region.Structure {
	a, _ := c.anchor.get(func() (*region.Structure, bool) {
		a := c.FindAnchor()
		return a, a != nil
	})
	return a
}

// Satellites returns the cached satellite list, discovering it on first use.
// The list has four slots (nil where no satellite stands) after discovery,
// fewer after a teardown scan, and is nil when no anchor can be found.
func (c *Coordinator) Satellites() []*region.Structure {
	s, _ := c.satellites.get(func() ([]*region.Structure, bool) {
		s := c.FindSatellites()
		return s, s != nil
	})
	return s
}

// IsSpawned reports whether an anchor currently exists in the region.
func (c *Coordinator) IsSpawned() bool {
	return c.FindAnchor() != nil
}

// Active reports whether an anchor is registered and still standing.
func (c *Coordinator) Active() bool {
	_, ok := c.anchor.peek()
	return ok
}

func (c *Coordinator) anchorFootprint() []geom.Vec3i {
	a := c.Anchor()
	if a == nil {
		return nil
	}
	return c.index.Footprint(a)
}
