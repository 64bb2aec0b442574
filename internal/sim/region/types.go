package region

import "github.com/FrodoOf9Fingers/Quarry/internal/sim/geom"

const chunkSize = 16

type ChunkKey struct {
	CX int
	CZ int
}

// Chunk holds per-cell terrain and deep-resource layers for a 16x16 area.
type Chunk struct {
	CX, CZ  int
	Terrain []uint16 // terrain palette ids
	Deep    []uint16 // thing palette id + 1; 0 = no deposit
}

func (c *Chunk) index(x, z int) int {
	return x + z*chunkSize
}

// Structure is a placed building owned by the region. Other systems keep
// *Structure back-references and must check Destroyed before trusting them.
type Structure struct {
	ID      string
	Def     string
	Kind    string
	Pos     geom.Vec3i
	Rot     int
	Size    [2]int
	Faction string

	destroyed bool
}

func (s *Structure) Destroyed() bool { return s == nil || s.destroyed }

// Live reports whether s is a non-nil structure still present in its region.
func Live(s *Structure) bool { return s != nil && !s.destroyed }

type GenParams struct {
	Flat                bool
	TerrainRegionSize   int
	DepositGrid         int
	DepositRadius       int
	DepositProbPermille int
}

type Config struct {
	ID        string
	Seed      int64
	BoundaryR int // cells; 0 = unbounded
	Faction   string
	Gen       GenParams
}
