package log

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/FrodoOf9Fingers/Quarry/internal/sim/quarry"
)

func TestJSONLZstdWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "audit")
	clock := time.Date(2024, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		if err := w.Write(map[string]int{"n": i}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	clock = clock.Add(2 * time.Minute)
	if err := w.Write(map[string]int{"n": 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := Files(dir, "audit")
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	want := []string{
		filepath.Join(dir, "audit-2024-03-01-10.jsonl.zst"),
		filepath.Join(dir, "audit-2024-03-01-11.jsonl.zst"),
	}
	if len(files) != 2 || files[0] != want[0] || files[1] != want[1] {
		t.Fatalf("files=%v want %v", files, want)
	}

	var got []int
	for _, f := range files {
		if err := ReadJSONL(f, func(line []byte) error {
			var v map[string]int
			if err := json.Unmarshal(line, &v); err != nil {
				return err
			}
			got = append(got, v["n"])
			return nil
		}); err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
	}
	if len(got) != 4 || got[0] != 0 || got[3] != 3 {
		t.Fatalf("lines=%v", got)
	}
}

func TestJSONLZstdWriterAppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		w := NewJSONLZstdWriter(dir, "commands")
		w.now = func() time.Time { return clock }
		if err := w.Write(CommandEntry{Tick: uint64(i), Cmd: "STATUS", OK: true}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	files, _ := Files(dir, "commands")
	if len(files) != 1 {
		t.Fatalf("expected one file, got %v", files)
	}
	n := 0
	if err := ReadJSONL(files[0], func([]byte) error { n++; return nil }); err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 lines across two frames, got %d", n)
	}
}

func TestAuditLogger(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)
	entry := quarry.AuditEntry{
		Tick:      7,
		RegionID:  "R1",
		Action:    quarry.AuditBuildResources,
		AnchorID:  "S1",
		Resources: []quarry.ResourceAudit{{Item: "Steel", Base: 20, Probability: 23}},
	}
	if err := l.WriteAudit(entry); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, _ := Files(filepath.Join(dir, "audit"), "audit")
	if len(files) != 1 {
		t.Fatalf("expected one audit file, got %v", files)
	}
	var got quarry.AuditEntry
	if err := ReadJSONL(files[0], func(line []byte) error { return json.Unmarshal(line, &got) }); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Tick != 7 || got.Action != quarry.AuditBuildResources || len(got.Resources) != 1 || got.Resources[0].Probability != 23 {
		t.Fatalf("unexpected entry %+v", got)
	}
}
