package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRepoTuning(t *testing.T) {
	tune, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("load tuning: %v", err)
	}
	if tune.ResourceList != "Resources" || tune.RockChunkPrefix != "Chunk" {
		t.Fatalf("unexpected resource settings: %+v", tune)
	}
	if tune.Seed != 1337 || tune.TickRateHz != 5 {
		t.Fatalf("unexpected seed/tick rate: seed=%d hz=%d", tune.Seed, tune.TickRateHz)
	}
	if tune.WorldGen.DepositGrid != 16 {
		t.Fatalf("unexpected worldgen: %+v", tune.WorldGen)
	}
}

func TestLoadPartialFileNormalizes(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("seed: 7\nresource_list: \"  \"\ntick_rate_hz: 0\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tune, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tune.Seed != 7 {
		t.Fatalf("seed=%d want 7", tune.Seed)
	}
	if tune.ResourceList != "Resources" || tune.TickRateHz != 5 || tune.LogFormat != "text" {
		t.Fatalf("defaults not applied: %+v", tune)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("log_format: xml\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected log_format error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
