package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/FrodoOf9Fingers/Quarry/internal/persistence/indexdb"
	"github.com/FrodoOf9Fingers/Quarry/internal/persistence/snapshot"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/catalogs"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/quarry"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/tuning"
)

type runtimeIndex interface {
	quarry.AuditSink
	Close() error
	Stats() indexdb.Stats
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
}

func openRuntimeIndex(regionDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("QRY_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(regionDir, "index", "region.sqlite"))
	default:
		return nil, fmt.Errorf("unknown QRY_INDEX_BACKEND %q", backend)
	}
}
