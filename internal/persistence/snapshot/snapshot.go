package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version  int    `json:"version"`
	RegionID string `json:"region_id"`
	Tick     uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed      int64  `json:"seed"`
	BoundaryR int    `json:"boundary_r"`
	Faction   string `json:"faction"`

	// Catalog digests at save time; informational only.
	ThingsDigest    string `json:"things_digest,omitempty"`
	ResourcesDigest string `json:"resources_digest,omitempty"`

	NextStructure uint64        `json:"next_structure"`
	Chunks        []ChunkV1     `json:"chunks"`
	Structures    []StructureV1 `json:"structures"`

	Quarry QuarryV1 `json:"quarry"`
}

type ChunkV1 struct {
	CX      int      `json:"cx"`
	CZ      int      `json:"cz"`
	Terrain []uint16 `json:"terrain"`
	Deep    []uint16 `json:"deep"`
}

type StructureV1 struct {
	ID      string `json:"id"`
	Def     string `json:"def"`
	Pos     [3]int `json:"pos"`
	Rot     int    `json:"rot,omitempty"`
	Faction string `json:"faction,omitempty"`
}

// QuarryV1 is the persisted part of a quarry coordinator: the anchor
// back-reference by structure id and the derived rock types by def id.
type QuarryV1 struct {
	AnchorID  string   `json:"anchor_id,omitempty"`
	RockTypes []string `json:"rock_types,omitempty"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if snap.Header.Version == 0 {
		snap.Header.Version = Version
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is for humans and tools; gob carries it too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	return h, nil
}

// Latest returns the newest "<tick>.snap.zst" file in dir, or "".
func Latest(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var (
		best     string
		bestTick uint64
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var tick uint64
		if _, err := fmt.Sscanf(e.Name(), "%d.snap.zst", &tick); err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			best, bestTick = e.Name(), tick
		}
	}
	if best == "" {
		return ""
	}
	return filepath.Join(dir, best)
}

// PathFor returns the canonical snapshot path for tick under dir.
func PathFor(dir string, tick uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%d.snap.zst", tick))
}
