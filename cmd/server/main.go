package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/FrodoOf9Fingers/Quarry/internal/logging"
	persistlog "github.com/FrodoOf9Fingers/Quarry/internal/persistence/log"
	"github.com/FrodoOf9Fingers/Quarry/internal/persistence/snapshot"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/catalogs"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/quarry"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/region"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/runtime"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/tuning"
	"github.com/FrodoOf9Fingers/Quarry/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		regionFlag = flag.String("region", "", "region id (default: tuning region_id, then <data>/region_id)")
		seed       = flag.Int64("seed", 0, "region seed (used only when starting a fresh region; 0 = tuning seed)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable indexing (audits + catalogs + snapshot metadata)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
		saveOnExit = flag.Bool("save_on_exit", true, "write a snapshot on shutdown")

		allowRemote = flag.Bool("allow_remote", false, "accept observer connections from non-loopback addresses")
	)
	flag.Parse()

	tp := *tuningPath
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, tuneErr := tuning.Load(tp)
	if tuneErr != nil && !os.IsNotExist(tuneErr) {
		fmt.Fprintf(os.Stderr, "load tuning: %v\n", tuneErr)
		os.Exit(1)
	}
	logger, err := logging.New(tune.LogLevel, tune.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	if tuneErr != nil {
		logger.WithField("path", tp).Warn("tuning not found; using defaults")
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	for _, u := range cats.Lint(tune.RockChunkPrefix) {
		logger.WithFields(logrus.Fields{"source": u.Source, "name": u.Name, "suggest": u.Suggestion}).Info("unresolved catalog reference")
	}

	regionID, err := resolveRegionID(*dataDir, *regionFlag, tune.RegionID)
	if err != nil {
		logger.Fatalf("region id: %v", err)
	}
	regionDir := filepath.Join(*dataDir, "regions", regionID)
	snapDir := filepath.Join(regionDir, "snapshots")
	log := logger.WithField("region", regionID)

	snapshotToLoad := *snapPath
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = snapshot.Latest(snapDir)
	}
	var snap *snapshot.SnapshotV1
	if snapshotToLoad != "" {
		s, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("load snapshot: %v", err)
		}
		snap = &s
	}

	regSeed := tune.Seed
	if *seed != 0 {
		regSeed = *seed
	}
	if snap != nil {
		regSeed = snap.Seed
	}
	reg, err := region.New(region.Config{
		ID:        regionID,
		Seed:      regSeed,
		BoundaryR: tune.BoundaryR,
		Faction:   cats.Layout.Faction,
		Gen: region.GenParams{
			TerrainRegionSize:   tune.WorldGen.TerrainRegionSize,
			DepositGrid:         tune.WorldGen.DepositGrid,
			DepositRadius:       tune.WorldGen.DepositRadius,
			DepositProbPermille: tune.WorldGen.DepositProbPermille,
		},
	}, cats)
	if err != nil {
		logger.Fatalf("region: %v", err)
	}

	idx, err := openRuntimeIndex(regionDir, *disableDB)
	if err != nil {
		logger.Fatalf("index: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			log.WithError(err).Warn("index catalogs")
		}
	}

	audits := persistlog.NewAuditLogger(regionDir)
	defer audits.Close()
	commands := persistlog.NewCommandLogger(regionDir)
	defer commands.Close()

	sinks := []quarry.AuditSink{audits}
	opts := runtime.Options{Logger: logger}
	if idx != nil {
		sinks = append(sinks, idx)
		opts.Snapshots = idx
	}
	opts.Audits = sinks

	rt := runtime.New(runtime.Config{
		RegionID:                 regionID,
		TickRateHz:               tune.TickRateHz,
		SnapshotEveryTicks:       uint64(tune.SnapshotEveryTicks),
		SnapshotDir:              snapDir,
		SaveOnExit:               *saveOnExit,
		ResourceList:             tune.ResourceList,
		ChunkPrefix:              tune.RockChunkPrefix,
		Seed:                     regSeed,
		RecomputeRockTypesOnLoad: tune.RecomputeRockTypesOnLoad,
	}, cats, reg, opts)

	if snap != nil {
		if err := rt.Restore(*snap); err != nil {
			logger.Fatalf("restore snapshot: %v", err)
		}
		log.WithField("path", snapshotToLoad).Info("loaded snapshot")
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := rt.Run(ctx); err != nil && err != context.Canceled {
			log.WithError(err).Error("runtime stopped")
		}
	}()

	obsSrv := observer.NewServer(rt, logger, observer.Options{
		Seed:        regSeed,
		AllowRemote: *allowRemote,
		Commands:    commands,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "region": regionID, "tick": rt.Tick()})
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		if !*allowRemote && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		writeMetrics(r.Context(), rw, rt, idx)
	})
	mux.HandleFunc("/observer/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/observer/ws", obsSrv.WSHandler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	log.WithField("addr", *addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	// Wait for the runtime's save-on-exit before closing the sinks.
	select {
	case <-rt.Done():
	case <-time.After(10 * time.Second):
		log.Warn("runtime did not stop in time")
	}
}

func writeMetrics(ctx context.Context, rw http.ResponseWriter, rt *runtime.Runtime, idx runtimeIndex) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(rw, "quarry_tick %d\n", rt.Tick())

	sctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if st, err := rt.RequestStatus(sctx); err == nil {
		fmt.Fprintf(rw, "quarry_structures %d\n", st.Structures)
		fmt.Fprintf(rw, "quarry_active %d\n", boolGauge(st.Active))
		fmt.Fprintf(rw, "quarry_satellites %d\n", len(st.Satellites))
		fmt.Fprintf(rw, "quarry_rock_types %d\n", len(st.RockTypes))
	}
	if idx != nil {
		s := idx.Stats()
		fmt.Fprintf(rw, "quarry_index_queue_depth %d\n", s.QueueDepth)
		fmt.Fprintf(rw, "quarry_index_queue_capacity %d\n", s.QueueCapacity)
		fmt.Fprintf(rw, "quarry_index_drop_audit_total %d\n", s.DropAuditTotal)
		fmt.Fprintf(rw, "quarry_index_drop_snapshot_total %d\n", s.DropSnapshotTotal)
	}
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
