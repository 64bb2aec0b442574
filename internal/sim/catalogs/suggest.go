package catalogs

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Suggest returns the closest known thing def id to name, if one is near
// enough to be a plausible typo or rename.
func (c *ThingCatalog) Suggest(name string) (string, bool) {
	if c == nil || name == "" {
		return "", false
	}
	want := strings.ToLower(name)
	limit := suggestLimit(len(want))

	best := ""
	bestDist := limit + 1
	for _, id := range c.Palette {
		d := levenshtein.ComputeDistance(want, strings.ToLower(id))
		if d < bestDist || (d == bestDist && id < best) {
			best, bestDist = id, d
		}
	}
	if best == "" || bestDist > limit {
		return "", false
	}
	return best, true
}

// Unresolved is a catalog reference that does not name a known thing def.
type Unresolved struct {
	Source     string
	Name       string
	Suggestion string
}

// Lint lists resource entries and terrain rock tokens that do not resolve to a
// thing def. Both are tolerated at runtime; this exists for tooling.
func (c *Catalogs) Lint(chunkPrefix string) []Unresolved {
	if chunkPrefix == "" {
		chunkPrefix = ChunkPrefix
	}
	var out []Unresolved

	listIDs := sortedKeys(c.Resources.Lists)
	for _, id := range listIDs {
		for _, r := range c.Resources.Lists[id].Resources {
			if _, ok := c.Things.Named(r.ThingDef); ok {
				continue
			}
			u := Unresolved{Source: "resources:" + id, Name: r.ThingDef}
			u.Suggestion, _ = c.Things.Suggest(r.ThingDef)
			out = append(out, u)
		}
	}

	for _, id := range c.Terrain.Palette {
		name := RockChunkName(chunkPrefix, c.Terrain.Defs[id].Label)
		if name == "" {
			continue
		}
		if _, ok := c.Things.Named(name); ok {
			continue
		}
		u := Unresolved{Source: "terrain:" + id, Name: name}
		u.Suggestion, _ = c.Things.Suggest(name)
		out = append(out, u)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

func suggestLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
