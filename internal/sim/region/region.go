package region

import (
	"errors"
	"fmt"
	"sort"

	"github.com/FrodoOf9Fingers/Quarry/internal/sim/catalogs"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/geom"
)

var (
	ErrOutOfBounds = errors.New("position out of bounds")
	ErrOccupied    = errors.New("cell occupied")
	ErrUnknownDef  = errors.New("unknown thing def")
)

type Region struct {
	cfg  Config
	cats *catalogs.Catalogs

	chunks     map[ChunkKey]*Chunk
	structures map[string]*Structure
	order      []*Structure
	occupied   map[geom.Vec3i]*Structure
	nextID     uint64

	onSpawn   []func(*Structure)
	onDespawn []func(*Structure)
}

func New(cfg Config, cats *catalogs.Catalogs) (*Region, error) {
	if cats == nil {
		return nil, errors.New("region: nil catalogs")
	}
	if cfg.BoundaryR < 0 {
		return nil, fmt.Errorf("region: negative boundary %d", cfg.BoundaryR)
	}
	if cfg.Faction == "" {
		cfg.Faction = cats.Layout.Faction
	}
	return &Region{
		cfg:        cfg,
		cats:       cats,
		chunks:     map[ChunkKey]*Chunk{},
		structures: map[string]*Structure{},
		occupied:   map[geom.Vec3i]*Structure{},
	}, nil
}

func (r *Region) ID() string          { return r.cfg.ID }
func (r *Region) Config() Config      { return r.cfg }
func (r *Region) Faction() string     { return r.cfg.Faction }
func (r *Region) StructureCount() int { return len(r.order) }

// OnSpawn registers a hook run after a structure is placed via Spawn.
func (r *Region) OnSpawn(fn func(*Structure)) { r.onSpawn = append(r.onSpawn, fn) }

// OnDespawn registers a hook run after a structure is removed via Destroy.
func (r *Region) OnDespawn(fn func(*Structure)) { r.onDespawn = append(r.onDespawn, fn) }

func (r *Region) InBounds(p geom.Vec3i) bool {
	if p.Y != 0 {
		return false
	}
	b := r.cfg.BoundaryR
	if b > 0 && (p.X < -b || p.X > b || p.Z < -b || p.Z > b) {
		return false
	}
	return true
}

// Spawn places a structure of def at pos. The footprint must be in bounds and
// unoccupied.
func (r *Region) Spawn(def string, pos geom.Vec3i, rot int, faction string) (*Structure, error) {
	td, ok := r.cats.Things.Named(def)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDef, def)
	}
	pos.Y = 0
	rot = geom.NormalizeRotation(rot)
	cells := geom.OccupiedRect(pos, td.Size, rot)
	if err := r.checkFree(cells); err != nil {
		return nil, err
	}
	if faction == "" {
		faction = r.cfg.Faction
	}

	r.nextID++
	s := &Structure{
		ID:      fmt.Sprintf("S%d", r.nextID),
		Def:     td.ID,
		Kind:    td.Kind,
		Pos:     pos,
		Rot:     rot,
		Size:    td.Size,
		Faction: faction,
	}
	r.insert(s, cells)
	for _, fn := range r.onSpawn {
		fn(s)
	}
	return s, nil
}

// CanPlace reports whether a structure of def would fit at pos without
// actually placing it.
func (r *Region) CanPlace(def string, pos geom.Vec3i, rot int) error {
	td, ok := r.cats.Things.Named(def)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDef, def)
	}
	pos.Y = 0
	return r.checkFree(geom.OccupiedRect(pos, td.Size, geom.NormalizeRotation(rot)))
}

func (r *Region) checkFree(cells []geom.Vec3i) error {
	for _, c := range cells {
		if !r.InBounds(c) {
			return fmt.Errorf("%w: %+v", ErrOutOfBounds, c)
		}
		if other := r.occupied[c]; other != nil {
			return fmt.Errorf("%w: %+v by %s", ErrOccupied, c, other.ID)
		}
	}
	return nil
}

func (r *Region) insert(s *Structure, cells []geom.Vec3i) {
	r.structures[s.ID] = s
	r.order = append(r.order, s)
	for _, c := range cells {
		r.occupied[c] = s
	}
}

// Destroy removes s from the region. Destroying an already removed structure
// is a no-op.
func (r *Region) Destroy(s *Structure) {
	if !Live(s) || r.structures[s.ID] != s {
		return
	}
	s.destroyed = true
	delete(r.structures, s.ID)
	for i, o := range r.order {
		if o == s {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	for _, c := range r.Footprint(s) {
		if r.occupied[c] == s {
			delete(r.occupied, c)
		}
	}
	for _, fn := range r.onDespawn {
		fn(s)
	}
}

func (r *Region) StructureAt(p geom.Vec3i) *Structure {
	p.Y = 0
	return r.occupied[p]
}

func (r *Region) StructureByID(id string) *Structure {
	return r.structures[id]
}

// AllStructures returns every live structure in spawn order.
func (r *Region) AllStructures() []*Structure {
	out := make([]*Structure, len(r.order))
	copy(out, r.order)
	return out
}

// ColonistStructures returns live structures owned by the region's player
// faction, in spawn order.
func (r *Region) ColonistStructures() []*Structure {
	out := make([]*Structure, 0, len(r.order))
	for _, s := range r.order {
		if s.Faction == r.cfg.Faction {
			out = append(out, s)
		}
	}
	return out
}

func (r *Region) Footprint(s *Structure) []geom.Vec3i {
	if s == nil {
		return nil
	}
	return geom.OccupiedRect(s.Pos, s.Size, s.Rot)
}

// sortedStructures is used by snapshot export; spawn order is already stable
// but ids are compared numerically for determinism after imports.
func (r *Region) sortedStructures() []*Structure {
	out := r.AllStructures()
	sort.SliceStable(out, func(i, j int) bool { return idNum(out[i].ID) < idNum(out[j].ID) })
	return out
}

func idNum(id string) uint64 {
	var n uint64
	for i := 1; i < len(id); i++ {
		c := id[i]
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + uint64(c-'0')
	}
	return n
}
