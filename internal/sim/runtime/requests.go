package runtime

import (
	"context"

	"github.com/FrodoOf9Fingers/Quarry/internal/sim/geom"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/quarry"
)

type reqKind int

const (
	reqPlaceQuarry reqKind = iota + 1
	reqRemoveQuarry
	reqRemoveStructure
	reqResources
	reqRebuildResources
	reqStatus
	reqSnapshot
)

type request struct {
	kind reqKind
	pos  geom.Vec3i
	rot  int
	id   string
	resp chan response
}

type response struct {
	status    Status
	resources ResourceTable
	snapshot  SnapshotResult
	err       error
}

// ResourceTable is a copy of the coordinator's resource table.
type ResourceTable struct {
	Tick     uint64
	AnchorID string
	Entries  []quarry.ResourceEntry
}

type SnapshotResult struct {
	Tick uint64
	Path string
}

func (rt *Runtime) RequestPlaceQuarry(ctx context.Context, pos geom.Vec3i, rot int) (Status, error) {
	resp, err := rt.do(ctx, request{kind: reqPlaceQuarry, pos: pos, rot: rot})
	return resp.status, err
}

func (rt *Runtime) RequestRemoveQuarry(ctx context.Context) (Status, error) {
	resp, err := rt.do(ctx, request{kind: reqRemoveQuarry})
	return resp.status, err
}

// RequestRemoveStructure destroys any structure by id, bypassing the quarry.
func (rt *Runtime) RequestRemoveStructure(ctx context.Context, id string) (Status, error) {
	resp, err := rt.do(ctx, request{kind: reqRemoveStructure, id: id})
	return resp.status, err
}

func (rt *Runtime) RequestResources(ctx context.Context) (ResourceTable, error) {
	resp, err := rt.do(ctx, request{kind: reqResources})
	return resp.resources, err
}

func (rt *Runtime) RequestRebuildResources(ctx context.Context) (ResourceTable, error) {
	resp, err := rt.do(ctx, request{kind: reqRebuildResources})
	return resp.resources, err
}

func (rt *Runtime) RequestStatus(ctx context.Context) (Status, error) {
	resp, err := rt.do(ctx, request{kind: reqStatus})
	return resp.status, err
}

func (rt *Runtime) RequestSnapshot(ctx context.Context) (SnapshotResult, error) {
	resp, err := rt.do(ctx, request{kind: reqSnapshot})
	return resp.snapshot, err
}

func (rt *Runtime) do(ctx context.Context, req request) (response, error) {
	if rt == nil || rt.reqs == nil {
		return response{}, ErrNotRunning
	}
	req.resp = make(chan response, 1)
	select {
	case rt.reqs <- req:
	case <-rt.done:
		return response{}, ErrNotRunning
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
	select {
	case resp := <-req.resp:
		return resp, resp.err
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

func (rt *Runtime) handle(req request) {
	resp := response{}
	defer func() {
		select {
		case req.resp <- resp:
		default:
		}
	}()

	changed := false
	switch req.kind {
	case reqPlaceQuarry:
		if _, resp.err = rt.placer.PlaceQuarry(req.pos, req.rot); resp.err == nil {
			changed = true
		}
	case reqRemoveQuarry:
		if resp.err = rt.placer.RemoveQuarry(); resp.err == nil {
			changed = true
		}
	case reqRemoveStructure:
		if resp.err = rt.placer.RemoveStructure(req.id); resp.err == nil {
			changed = true
		}
	case reqResources:
		resp.resources = rt.resourceTable(rt.coord.GetResources())
		return
	case reqRebuildResources:
		resp.resources = rt.resourceTable(rt.coord.FindResources())
		return
	case reqStatus:
	case reqSnapshot:
		path, err := rt.writeSnapshot()
		resp.snapshot = SnapshotResult{Tick: rt.tick.Load(), Path: path}
		resp.err = err
		return
	}

	resp.status = rt.status()
	if changed {
		rt.broadcast(resp.status)
	}
}

func (rt *Runtime) resourceTable(entries []quarry.ResourceEntry) ResourceTable {
	t := ResourceTable{
		Tick:    rt.tick.Load(),
		Entries: append([]quarry.ResourceEntry(nil), entries...),
	}
	if rt.coord.Active() {
		t.AnchorID = rt.coord.Anchor().ID
	}
	return t
}
