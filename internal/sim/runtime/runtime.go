// Package runtime runs one region and its quarry coordinator on a single
// goroutine. Other goroutines talk to it through Request* methods.
package runtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/FrodoOf9Fingers/Quarry/internal/persistence/snapshot"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/catalogs"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/placement"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/quarry"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/region"
)

var ErrNotRunning = errors.New("region runtime not running")

type Config struct {
	RegionID           string
	TickRateHz         int
	SnapshotEveryTicks uint64
	SnapshotDir        string
	SaveOnExit         bool

	ResourceList             string
	ChunkPrefix              string
	Seed                     int64
	RecomputeRockTypesOnLoad bool
}

// SnapshotRecorder is told about every snapshot written.
type SnapshotRecorder interface {
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
}

type Options struct {
	Logger    logrus.FieldLogger
	Audits    []quarry.AuditSink
	Snapshots SnapshotRecorder
	// Rand overrides the coordinator's bonus source.
	Rand quarry.Rand
}

type Runtime struct {
	cfg    Config
	cats   *catalogs.Catalogs
	region *region.Region
	coord  *quarry.Coordinator
	placer *placement.Placer
	log    logrus.FieldLogger
	snaps  SnapshotRecorder
	audits []quarry.AuditSink

	tick atomic.Uint64

	reqs chan request
	stop chan struct{}
	done chan struct{}

	stopOnce sync.Once
	started  atomic.Bool

	subMu  sync.Mutex
	subs   map[int]chan Status
	nextID int
}

func New(cfg Config, cats *catalogs.Catalogs, reg *region.Region, opts Options) *Runtime {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 5
	}
	if cfg.RegionID == "" {
		cfg.RegionID = reg.ID()
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	rt := &Runtime{
		cfg:    cfg,
		cats:   cats,
		region: reg,
		log:    log.WithField("region", cfg.RegionID),
		snaps:  opts.Snapshots,
		audits: opts.Audits,
		reqs:   make(chan request),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		subs:   map[int]chan Status{},
	}
	rt.coord = quarry.New(reg, &cats.Things, &cats.Resources, quarry.Options{
		RegionID:     cfg.RegionID,
		ResourceList: cfg.ResourceList,
		ChunkPrefix:  cfg.ChunkPrefix,
		Seed:         cfg.Seed,
		Rand:         opts.Rand,
		Logger:       log,
		Audit:        auditFanout{rt: rt},
	})
	rt.placer = placement.New(reg, rt.coord, cats.Layout, log)
	return rt
}

func (rt *Runtime) Tick() uint64 { return rt.tick.Load() }

func (rt *Runtime) RegionID() string { return rt.cfg.RegionID }

func (rt *Runtime) TickRateHz() int { return rt.cfg.TickRateHz }

func (rt *Runtime) Catalogs() *catalogs.Catalogs { return rt.cats }

// Restore loads a snapshot into the region and coordinator. It must be called
// before Run.
func (rt *Runtime) Restore(snap snapshot.SnapshotV1) error {
	if rt.started.Load() {
		return errors.New("restore after start")
	}
	if snap.ThingsDigest != "" && snap.ThingsDigest != rt.cats.Things.DefsDigest {
		rt.log.Warn("snapshot was written with different thing defs")
	}
	if snap.ResourcesDigest != "" && snap.ResourcesDigest != rt.cats.Resources.Digest {
		rt.log.Warn("snapshot was written with a different resource catalog")
	}
	if err := rt.region.ImportSnapshot(snap); err != nil {
		return err
	}
	rt.coord.ImportState(snap.Quarry)
	if rt.cfg.RecomputeRockTypesOnLoad {
		rt.coord.ResetRockTypes()
	}
	rt.tick.Store(snap.Header.Tick)
	rt.log.WithFields(logrus.Fields{"tick": snap.Header.Tick, "structures": len(snap.Structures)}).Info("region restored")
	return nil
}

// Run steps the region until ctx is cancelled or Stop is called.
func (rt *Runtime) Run(ctx context.Context) error {
	if !rt.started.CompareAndSwap(false, true) {
		return errors.New("runtime already started")
	}
	defer close(rt.done)
	defer rt.closeSubscribers()

	interval := time.Second / time.Duration(rt.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rt.saveOnExit()
			return ctx.Err()
		case <-rt.stop:
			rt.saveOnExit()
			return nil
		case req := <-rt.reqs:
			rt.handle(req)
		case <-ticker.C:
			rt.StepOnce()
		}
	}
}

func (rt *Runtime) Stop() { rt.stopOnce.Do(func() { close(rt.stop) }) }

// Done is closed once Run has returned.
func (rt *Runtime) Done() <-chan struct{} { return rt.done }

// StepOnce advances the region by one tick. Outside of tests and tools it is
// only called from Run.
func (rt *Runtime) StepOnce() {
	t := rt.tick.Add(1)
	if every := rt.cfg.SnapshotEveryTicks; every > 0 && rt.cfg.SnapshotDir != "" && t%every == 0 {
		if _, err := rt.writeSnapshot(); err != nil {
			rt.log.WithError(err).Error("autosave failed")
		}
	}
}

func (rt *Runtime) saveOnExit() {
	if !rt.cfg.SaveOnExit || rt.cfg.SnapshotDir == "" {
		return
	}
	if path, err := rt.writeSnapshot(); err != nil {
		rt.log.WithError(err).Error("final snapshot failed")
	} else {
		rt.log.WithField("path", path).Info("final snapshot written")
	}
}

func (rt *Runtime) writeSnapshot() (string, error) {
	if rt.cfg.SnapshotDir == "" {
		return "", errors.New("no snapshot dir configured")
	}
	snap := rt.exportSnapshot()
	path := snapshot.PathFor(rt.cfg.SnapshotDir, snap.Header.Tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", err
	}
	if rt.snaps != nil {
		rt.snaps.RecordSnapshot(path, snap)
	}
	return path, nil
}

func (rt *Runtime) exportSnapshot() snapshot.SnapshotV1 {
	var snap snapshot.SnapshotV1
	rt.region.ExportSnapshot(&snap)
	snap.Header.Version = snapshot.Version
	snap.Header.RegionID = rt.cfg.RegionID
	snap.Header.Tick = rt.tick.Load()
	snap.ThingsDigest = rt.cats.Things.DefsDigest
	snap.ResourcesDigest = rt.cats.Resources.Digest
	snap.Quarry = rt.coord.ExportState()
	return snap
}

// auditFanout stamps the current tick on coordinator audits and forwards them
// to every configured sink.
type auditFanout struct{ rt *Runtime }

func (f auditFanout) WriteAudit(e quarry.AuditEntry) error {
	e.Tick = f.rt.tick.Load()
	var errs []error
	for _, s := range f.rt.audits {
		if s == nil {
			continue
		}
		if err := s.WriteAudit(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
