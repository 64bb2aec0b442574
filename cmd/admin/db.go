package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/FrodoOf9Fingers/Quarry/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	regionID := fs.String("region", "", "region id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	action := fs.String("action", "", "audit action filter (audits)")
	anchor := fs.String("anchor", "", "anchor id filter (audits)")
	since := fs.Uint64("since_tick", 0, "minimum tick (audits)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*regionID) == "" {
			fmt.Fprintln(os.Stderr, "missing -region or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "regions", *regionID, "index", "region.sqlite")
	}

	r, err := indexdb.OpenReader(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open db:", err)
		os.Exit(1)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	switch q {
	case "snapshots":
		rows, err := r.Snapshots(ctx, *limit)
		if err != nil {
			fail(err)
		}
		fmt.Fprintln(tw, "TICK\tSTRUCTURES\tANCHOR\tROCK TYPES\tSIZE\tPATH")
		for _, s := range rows {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
				humanize.Comma(int64(s.Tick)), s.Structures, dash(s.AnchorID),
				dash(strings.Join(s.RockTypes, ",")), fileSize(s.Path), s.Path)
		}
	case "audits":
		rows, err := r.Audits(ctx, indexdb.AuditQuery{
			Action:    strings.ToUpper(strings.TrimSpace(*action)),
			AnchorID:  strings.TrimSpace(*anchor),
			SinceTick: *since,
			Limit:     *limit,
		})
		if err != nil {
			fail(err)
		}
		counts := map[string]int{}
		fmt.Fprintln(tw, "TICK\tACTION\tANCHOR\tSTRUCTURE\tPOS\tSATELLITES")
		for _, a := range rows {
			counts[a.Action]++
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d,%d,%d\t%d\n",
				a.Tick, a.Action, dash(a.AnchorID), dash(a.StructureID),
				a.Pos[0], a.Pos[1], a.Pos[2], a.Satellites)
		}
		tw.Flush()
		for _, k := range sortedKeys(counts) {
			fmt.Printf("%s: %s\n", k, humanize.Comma(int64(counts[k])))
		}
	case "resources":
		rows, err := r.LatestResources(ctx)
		if err != nil {
			fail(err)
		}
		if len(rows) == 0 {
			fmt.Fprintln(tw, "no resource table recorded")
			return
		}
		total := 0
		for _, rr := range rows {
			total += rr.Probability
		}
		fmt.Fprintf(tw, "tick %d\n", rows[0].Tick)
		fmt.Fprintln(tw, "ITEM\tBASE\tWEIGHT\tSHARE")
		for _, rr := range rows {
			share := 0.0
			if total > 0 {
				share = 100 * float64(rr.Probability) / float64(total)
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s%%\n", rr.Item, rr.Base, rr.Probability, humanize.FtoaWithDigits(share, 1))
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown query %q (want snapshots, audits or resources)\n", q)
		os.Exit(2)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "query:", err)
	os.Exit(1)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func fileSize(path string) string {
	st, err := os.Stat(path)
	if err != nil {
		return "-"
	}
	return humanize.Bytes(uint64(st.Size()))
}
