package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// resolveRegionID picks the region id from the flag, then tuning, then the id
// persisted under dataDir. A fresh data dir gets a new random id.
func resolveRegionID(dataDir, flagID, tuneID string) (string, error) {
	if id := strings.TrimSpace(flagID); id != "" {
		return id, nil
	}
	if id := strings.TrimSpace(tuneID); id != "" {
		return id, nil
	}
	path := filepath.Join(dataDir, "region_id")
	if raw, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(raw)); id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	id := "region_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("persist region id: %w", err)
	}
	return id, nil
}
