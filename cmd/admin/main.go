package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	persistlog "github.com/FrodoOf9Fingers/Quarry/internal/persistence/log"
	"github.com/FrodoOf9Fingers/Quarry/internal/persistence/snapshot"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/catalogs"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/quarry"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "lint":
			lintCmd(os.Args[2:])
			return
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "log":
			logCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "status", "resources", "rebuild", "snapshot", "place", "remove", "destroy":
			remoteCmd(os.Args[1], os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "regions")
	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		snapDir := filepath.Join(base, e.Name(), "snapshots")
		latest := snapshot.Latest(snapDir)
		if latest == "" {
			fmt.Printf("%s\t(no snapshots)\n", e.Name())
			continue
		}
		h, err := snapshot.ReadHeader(latest)
		if err != nil {
			fmt.Printf("%s\t%s\t(unreadable: %v)\n", e.Name(), filepath.Base(latest), err)
			continue
		}
		fmt.Printf("%s\ttick=%d\t%s\n", e.Name(), h.Tick, describeFile(latest))
	}
}

func lintCmd(args []string) {
	fs := flag.NewFlagSet("lint", flag.ExitOnError)
	configDir := fs.String("configs", "./configs", "config directory")
	prefix := fs.String("chunk_prefix", catalogs.ChunkPrefix, "rock debris def prefix")
	strict := fs.Bool("strict", false, "exit non-zero when any reference is unresolved")
	_ = fs.Parse(args)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	issues := cats.Lint(*prefix)
	if len(issues) == 0 {
		fmt.Println("ok")
		return
	}
	for _, u := range issues {
		if u.Suggestion != "" {
			fmt.Printf("%s\t%s\t(did you mean %s?)\n", u.Source, u.Name, u.Suggestion)
		} else {
			fmt.Printf("%s\t%s\n", u.Source, u.Name)
		}
	}
	fmt.Printf("%d unresolved reference(s)\n", len(issues))
	if *strict {
		os.Exit(1)
	}
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	regionID := fs.String("region", "", "region id (used when -snapshot is empty)")
	snapPath := fs.String("snapshot", "", "snapshot path (optional; defaults to latest)")
	asJSON := fs.Bool("json", false, "print the quarry state and structures as JSON")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		if strings.TrimSpace(*regionID) == "" {
			fmt.Fprintln(os.Stderr, "missing -region or -snapshot")
			os.Exit(2)
		}
		path = snapshot.Latest(filepath.Join(*dataDir, "regions", *regionID, "snapshots"))
		if path == "" {
			fmt.Fprintln(os.Stderr, "no snapshot found")
			os.Exit(2)
		}
	}

	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{
			"header":     snap.Header,
			"quarry":     snap.Quarry,
			"structures": snap.Structures,
		})
		return
	}

	fmt.Printf("file:        %s (%s)\n", path, describeFile(path))
	fmt.Printf("region:      %s\n", snap.Header.RegionID)
	fmt.Printf("tick:        %s\n", humanize.Comma(int64(snap.Header.Tick)))
	fmt.Printf("seed:        %d\n", snap.Seed)
	fmt.Printf("chunks:      %d\n", len(snap.Chunks))
	fmt.Printf("structures:  %d\n", len(snap.Structures))
	if snap.Quarry.AnchorID == "" {
		fmt.Println("quarry:      none")
		return
	}
	fmt.Printf("quarry:      %s\n", snap.Quarry.AnchorID)
	if len(snap.Quarry.RockTypes) > 0 {
		fmt.Printf("rock types:  %s\n", strings.Join(snap.Quarry.RockTypes, ", "))
	} else {
		fmt.Println("rock types:  (not derived)")
	}
}

func logCmd(args []string) {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	regionID := fs.String("region", "", "region id (required)")
	kind := fs.String("kind", "audit", "log kind: audit or commands")
	action := fs.String("action", "", "audit action filter")
	_ = fs.Parse(args)

	if strings.TrimSpace(*regionID) == "" {
		fmt.Fprintln(os.Stderr, "missing -region")
		os.Exit(2)
	}
	dir := filepath.Join(*dataDir, "regions", *regionID, *kind)
	files, err := persistlog.Files(dir, *kind)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	for _, f := range files {
		err := persistlog.ReadJSONL(f, func(line []byte) error {
			if *action != "" {
				var e quarry.AuditEntry
				if err := json.Unmarshal(line, &e); err != nil || e.Action != *action {
					return nil
				}
			}
			fmt.Println(string(line))
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
	}
}

func describeFile(path string) string {
	st, err := os.Stat(path)
	if err != nil {
		return "missing"
	}
	return fmt.Sprintf("%s, written %s", humanize.Bytes(uint64(st.Size())), humanize.RelTime(st.ModTime(), time.Now(), "ago", "from now"))
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
