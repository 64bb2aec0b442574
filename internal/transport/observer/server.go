package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	qlog "github.com/FrodoOf9Fingers/Quarry/internal/persistence/log"
	"github.com/FrodoOf9Fingers/Quarry/internal/protocol"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/catalogs"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/geom"
	"github.com/FrodoOf9Fingers/Quarry/internal/sim/runtime"
)

// Region is the part of the region runtime the observer drives.
type Region interface {
	RegionID() string
	Tick() uint64
	TickRateHz() int
	Catalogs() *catalogs.Catalogs

	RequestPlaceQuarry(ctx context.Context, pos geom.Vec3i, rot int) (runtime.Status, error)
	RequestRemoveQuarry(ctx context.Context) (runtime.Status, error)
	RequestRemoveStructure(ctx context.Context, id string) (runtime.Status, error)
	RequestResources(ctx context.Context) (runtime.ResourceTable, error)
	RequestRebuildResources(ctx context.Context) (runtime.ResourceTable, error)
	RequestStatus(ctx context.Context) (runtime.Status, error)
	RequestSnapshot(ctx context.Context) (runtime.SnapshotResult, error)
	Subscribe() (<-chan runtime.Status, func())
}

type CommandSink interface {
	WriteCommand(qlog.CommandEntry) error
}

type Options struct {
	Seed int64
	// AllowRemote accepts connections from non-loopback addresses.
	AllowRemote bool
	Commands    CommandSink
	// RequestTimeout bounds each command round trip through the runtime.
	RequestTimeout time.Duration
}

type Server struct {
	region Region
	log    logrus.FieldLogger
	opts   Options

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(r Region, logger logrus.FieldLogger, opts Options) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	return &Server{
		region: r,
		log:    logger.WithField("component", "observer"),
		opts:   opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) welcome() protocol.WelcomeMsg {
	cats := s.region.Catalogs()
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		RegionID:        s.region.RegionID(),
		TickRateHz:      s.region.TickRateHz(),
		Seed:            s.opts.Seed,
		Catalogs: protocol.CatalogDigests{
			ThingsDigest:    cats.Things.DefsDigest,
			TerrainDigest:   cats.Terrain.Digest,
			ResourcesDigest: cats.Resources.Digest,
			LayoutDigest:    cats.Layout.Digest,
		},
	}
}

func (s *Server) allowed(r *http.Request) bool {
	return s.opts.AllowRemote || isLoopbackRemote(r.RemoteAddr)
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(s.welcome())
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		log := s.log.WithFields(logrus.Fields{"session": sid, "remote": r.RemoteAddr})
		log.Debug("observer connected")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := make(chan []byte, 64)
		send := func(v any) {
			b, err := json.Marshal(v)
			if err != nil {
				return
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
		}

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						cancel()
						return
					}
				}
			}
		}()

		send(s.welcome())

		updates, unsubscribe := s.region.Subscribe()
		defer unsubscribe()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case st, ok := <-updates:
					if !ok {
						return
					}
					send(statusMsg(st, ""))
				}
			}
		}()

		// Reader loop: one reply per command.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			send(s.handleCommand(ctx, msg, r.RemoteAddr))
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		log.Debug("observer disconnected")
	}
}

func (s *Server) handleCommand(ctx context.Context, raw []byte, remote string) any {
	var cmd protocol.CommandMsg
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return s.reject(cmd, remote, protocol.ErrProtoBadRequest, "bad json")
	}
	if code, msg := cmd.Validate(); code != "" {
		return s.reject(cmd, remote, code, msg)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	var (
		reply any
		err   error
	)
	switch cmd.Cmd {
	case protocol.CmdPlaceQuarry:
		var st runtime.Status
		st, err = s.region.RequestPlaceQuarry(ctx, geom.FromArray(*cmd.Pos), cmd.Rotation)
		reply = statusMsg(st, cmd.ID)
	case protocol.CmdRemoveQuarry:
		var st runtime.Status
		st, err = s.region.RequestRemoveQuarry(ctx)
		reply = statusMsg(st, cmd.ID)
	case protocol.CmdRemoveStructure:
		var st runtime.Status
		st, err = s.region.RequestRemoveStructure(ctx, cmd.StructureID)
		reply = statusMsg(st, cmd.ID)
	case protocol.CmdStatus:
		var st runtime.Status
		st, err = s.region.RequestStatus(ctx)
		reply = statusMsg(st, cmd.ID)
	case protocol.CmdGetResources:
		var t runtime.ResourceTable
		t, err = s.region.RequestResources(ctx)
		reply = resourcesMsg(t, cmd.ID)
	case protocol.CmdRebuildResources:
		var t runtime.ResourceTable
		t, err = s.region.RequestRebuildResources(ctx)
		reply = resourcesMsg(t, cmd.ID)
	case protocol.CmdSnapshot:
		var res runtime.SnapshotResult
		res, err = s.region.RequestSnapshot(ctx)
		reply = protocol.SnapshotDoneMsg{Type: protocol.TypeSnapshotDone, ProtocolVersion: protocol.Version, Ref: cmd.ID, Tick: res.Tick, Path: res.Path}
	}
	if err != nil {
		return s.reject(cmd, remote, runtime.ErrorCode(err), err.Error())
	}
	s.record(cmd, remote, "", "")
	return reply
}

func (s *Server) reject(cmd protocol.CommandMsg, remote, code, msg string) protocol.ErrorMsg {
	s.record(cmd, remote, code, msg)
	return protocol.NewError(cmd.ID, code, msg)
}

func (s *Server) record(cmd protocol.CommandMsg, remote, code, msg string) {
	if s.opts.Commands == nil {
		return
	}
	e := qlog.CommandEntry{
		Tick:     s.region.Tick(),
		RegionID: s.region.RegionID(),
		Cmd:      cmd.Cmd,
		Remote:   remote,
		OK:       code == "",
		Code:     code,
		Message:  msg,
	}
	if err := s.opts.Commands.WriteCommand(e); err != nil {
		s.log.WithError(err).Warn("command log write failed")
	}
}

func statusMsg(st runtime.Status, ref string) protocol.StatusMsg {
	m := protocol.StatusMsg{
		Type:            protocol.TypeStatus,
		ProtocolVersion: protocol.Version,
		Ref:             ref,
		Tick:            st.Tick,
		RegionID:        st.RegionID,
		Spawned:         st.Spawned,
		Active:          st.Active,
		AnchorID:        st.AnchorID,
		Satellites:      []protocol.SatelliteRef{},
		RockTypes:       []string{},
		Structures:      st.Structures,
	}
	if st.Active {
		p := st.AnchorPos.ToArray()
		m.AnchorPos = &p
	}
	for _, sat := range st.Satellites {
		m.Satellites = append(m.Satellites, protocol.SatelliteRef{Quadrant: sat.Quadrant.String(), ID: sat.ID, Pos: sat.Pos.ToArray()})
	}
	m.RockTypes = append(m.RockTypes, st.RockTypes...)
	return m
}

func resourcesMsg(t runtime.ResourceTable, ref string) protocol.ResourcesMsg {
	m := protocol.ResourcesMsg{
		Type:            protocol.TypeResources,
		ProtocolVersion: protocol.Version,
		Ref:             ref,
		Tick:            t.Tick,
		AnchorID:        t.AnchorID,
		Resources:       make([]protocol.ResourceRow, 0, len(t.Entries)),
	}
	for _, e := range t.Entries {
		m.Resources = append(m.Resources, protocol.ResourceRow{
			Item:        e.Item.ID,
			Label:       e.Item.Label,
			Base:        e.Base,
			Probability: e.Probability,
			StackMin:    e.StackCount.Min,
			StackMax:    e.StackCount.Max,
			LargeVein:   e.LargeVein,
		})
	}
	return m
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
