package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/FrodoOf9Fingers/Quarry/internal/sim/catalogs"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	RegionID  string `yaml:"region_id"`
	Seed      int64  `yaml:"seed"`
	BoundaryR int    `yaml:"boundary_r"`

	TickRateHz         int `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	ResourceList             string `yaml:"resource_list"`
	RockChunkPrefix          string `yaml:"rock_chunk_prefix"`
	RecomputeRockTypesOnLoad bool   `yaml:"recompute_rock_types_on_load"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	WorldGen WorldGen `yaml:"worldgen"`
}

type WorldGen struct {
	TerrainRegionSize   int `yaml:"terrain_region_size"`
	DepositGrid         int `yaml:"deposit_grid"`
	DepositRadius       int `yaml:"deposit_radius"`
	DepositProbPermille int `yaml:"deposit_prob_permille"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		Seed:               1337,
		BoundaryR:          64,
		TickRateHz:         5,
		SnapshotEveryTicks: 3000,
		ResourceList:       catalogs.DefaultResourceList,
		RockChunkPrefix:    catalogs.ChunkPrefix,
		LogLevel:           "info",
		LogFormat:          "text",
		WorldGen: WorldGen{
			TerrainRegionSize:   12,
			DepositGrid:         16,
			DepositRadius:       3,
			DepositProbPermille: 350,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Normalize fills zero values left by partial files.
func (t *Tuning) Normalize() {
	d := Defaults()
	t.RegionID = strings.TrimSpace(t.RegionID)
	t.ResourceList = strings.TrimSpace(t.ResourceList)
	if t.ResourceList == "" {
		t.ResourceList = d.ResourceList
	}
	if t.RockChunkPrefix == "" {
		t.RockChunkPrefix = d.RockChunkPrefix
	}
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.SnapshotEveryTicks < 0 {
		t.SnapshotEveryTicks = 0
	}
	if t.LogLevel == "" {
		t.LogLevel = d.LogLevel
	}
	if t.LogFormat == "" {
		t.LogFormat = d.LogFormat
	}
	if t.WorldGen.TerrainRegionSize <= 0 {
		t.WorldGen.TerrainRegionSize = d.WorldGen.TerrainRegionSize
	}
	if t.WorldGen.DepositGrid <= 0 {
		t.WorldGen.DepositGrid = d.WorldGen.DepositGrid
	}
	if t.WorldGen.DepositRadius < 0 {
		t.WorldGen.DepositRadius = 0
	}
}

func (t Tuning) Validate() error {
	if t.BoundaryR < 0 {
		return fmt.Errorf("boundary_r must be >= 0")
	}
	if t.WorldGen.DepositProbPermille < 0 || t.WorldGen.DepositProbPermille > 1000 {
		return fmt.Errorf("worldgen.deposit_prob_permille must be in [0,1000]")
	}
	switch t.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", t.LogFormat)
	}
	return nil
}
