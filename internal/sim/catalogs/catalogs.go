package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	KindChunk          = "CHUNK"
	KindResource       = "RESOURCE"
	KindQuarryBase     = "QUARRY_BASE"
	KindQuarryQuadrant = "QUARRY_QUADRANT"
)

// ChunkPrefix is prepended to a capitalized rock token to name its debris def
// ("rough sandstone" -> "ChunkSandstone").
const ChunkPrefix = "Chunk"

// DefaultResourceList is the resource list id used when tuning names none.
const DefaultResourceList = "Resources"

// DefaultTerrain is the terrain at palette id 0.
const DefaultTerrain = "Soil"

type Catalogs struct {
	Things    ThingCatalog
	Terrain   TerrainCatalog
	Resources ResourceCatalog
	Layout    LayoutDef
}

type ThingCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]ThingDef
	PaletteDigest string
	DefsDigest    string
}

type ThingDef struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"` // "CHUNK","RESOURCE","QUARRY_BASE","QUARRY_QUADRANT"
	Label string `json:"label,omitempty"`
	Size  [2]int `json:"size,omitempty"`
}

type TerrainCatalog struct {
	Palette []string
	Index   map[string]uint16
	Defs    map[string]TerrainDef
	Digest  string
}

type TerrainDef struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type ResourceCatalog struct {
	Lists  map[string]ResourceListDef
	Digest string
}

type ResourceListDef struct {
	ID        string        `json:"id"`
	Resources []ResourceDef `json:"resources"`
}

type ResourceDef struct {
	ThingDef    string   `json:"thing_def"`
	Probability int      `json:"probability"`
	StackCount  IntRange `json:"stack_count"`
	LargeVein   bool     `json:"large_vein,omitempty"`
}

type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// LayoutDef names the thing defs the placement system spawns for a quarry.
type LayoutDef struct {
	AnchorDef    string `json:"anchor_def"`
	SatelliteDef string `json:"satellite_def"`
	Faction      string `json:"faction"`
	Digest       string `json:"-"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadThings(filepath.Join(configDir, "things.json"), &c.Things); err != nil {
		return nil, err
	}
	if err := loadTerrain(filepath.Join(configDir, "terrain.json"), &c.Terrain); err != nil {
		return nil, err
	}
	if err := loadResources(filepath.Join(configDir, "quarry_resources.json"), &c.Resources); err != nil {
		return nil, err
	}
	if err := loadLayout(filepath.Join(configDir, "quarry_layout.json"), &c.Layout); err != nil {
		return nil, err
	}
	if err := c.Layout.validate(&c.Things); err != nil {
		return nil, fmt.Errorf("quarry_layout.json: %w", err)
	}

	return &c, nil
}

// Named resolves a thing def by id. Missing defs are not an error.
func (c *ThingCatalog) Named(name string) (ThingDef, bool) {
	if c == nil {
		return ThingDef{}, false
	}
	d, ok := c.Defs[name]
	return d, ok
}

// Label returns the display label for a terrain palette id.
func (c *TerrainCatalog) Label(id uint16) string {
	if c == nil || int(id) >= len(c.Palette) {
		return ""
	}
	return c.Defs[c.Palette[id]].Label
}

// Entries returns the ordered resource entries of a named list, or nil.
func (c *ResourceCatalog) Entries(list string) []ResourceDef {
	if c == nil {
		return nil
	}
	return c.Lists[list].Resources
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadThings(path string, out *ThingCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []ThingDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("things.json: %w", err)
	}
	out.Defs = map[string]ThingDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("things.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("things.json: duplicate id %q", d.ID)
		}
		if d.Size == ([2]int{}) {
			d.Size = [2]int{1, 1}
		}
		out.Defs[d.ID] = d
	}

	ids := sortedKeys(out.Defs)
	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadTerrain(path string, out *TerrainCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []TerrainDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("terrain.json: %w", err)
	}
	out.Defs = map[string]TerrainDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("terrain.json: empty id")
		}
		out.Defs[d.ID] = d
	}

	// Ensure the default terrain exists and is palette id 0.
	if _, ok := out.Defs[DefaultTerrain]; !ok {
		return fmt.Errorf("terrain.json: missing %s", DefaultTerrain)
	}
	ids := append([]string{DefaultTerrain}, filterOut(sortedKeys(out.Defs), DefaultTerrain)...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	return nil
}

func loadResources(path string, out *ResourceCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	if err := validateResources(raw); err != nil {
		return fmt.Errorf("quarry_resources.json: %w", err)
	}

	var lists []ResourceListDef
	if err := json.Unmarshal(raw, &lists); err != nil {
		return fmt.Errorf("quarry_resources.json: %w", err)
	}
	out.Lists = map[string]ResourceListDef{}
	for _, l := range lists {
		if l.ID == "" {
			return fmt.Errorf("quarry_resources.json: empty id")
		}
		out.Lists[l.ID] = l
	}
	return nil
}

func loadLayout(path string, out *LayoutDef) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		// Fall back to the stock quarry defs.
		if os.IsNotExist(err) {
			*out = DefaultLayout()
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	*out = DefaultLayout()
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("quarry_layout.json: %w", err)
	}
	out.Digest = sha256Hex(raw)
	return nil
}

func DefaultLayout() LayoutDef {
	return LayoutDef{
		AnchorDef:    "QRY_Quarry",
		SatelliteDef: "QRY_Quadrant",
		Faction:      "COLONY",
	}
}

func (l LayoutDef) validate(things *ThingCatalog) error {
	a, ok := things.Named(l.AnchorDef)
	if !ok {
		return fmt.Errorf("unknown anchor_def %q", l.AnchorDef)
	}
	if a.Kind != KindQuarryBase {
		return fmt.Errorf("anchor_def %q has kind %s", l.AnchorDef, a.Kind)
	}
	s, ok := things.Named(l.SatelliteDef)
	if !ok {
		return fmt.Errorf("unknown satellite_def %q", l.SatelliteDef)
	}
	if s.Kind != KindQuarryQuadrant {
		return fmt.Errorf("satellite_def %q has kind %s", l.SatelliteDef, s.Kind)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}
