package protocol

import "fmt"

// WELCOME (server -> client), sent once per connection.
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	RegionID        string         `json:"region_id"`
	TickRateHz      int            `json:"tick_rate_hz"`
	Seed            int64          `json:"seed"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CatalogDigests struct {
	ThingsDigest    string `json:"things_digest"`
	TerrainDigest   string `json:"terrain_digest"`
	ResourcesDigest string `json:"resources_digest"`
	LayoutDigest    string `json:"layout_digest"`
}

// COMMAND (client -> server)
type CommandMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	ID              string  `json:"id,omitempty"`
	Cmd             string  `json:"cmd"`
	Pos             *[3]int `json:"pos,omitempty"`
	Rotation        int     `json:"rotation,omitempty"`
	StructureID     string  `json:"structure_id,omitempty"`
}

// Validate checks the fields each command needs and returns a protocol error
// code with a message, or "" when the command is well formed.
func (m CommandMsg) Validate() (code, msg string) {
	if m.Type != TypeCommand {
		return ErrProtoBadRequest, fmt.Sprintf("unexpected type %q", m.Type)
	}
	if m.ProtocolVersion != Version {
		return ErrProtoBadRequest, fmt.Sprintf("unsupported protocol_version %q", m.ProtocolVersion)
	}
	switch m.Cmd {
	case CmdPlaceQuarry:
		if m.Pos == nil {
			return ErrBadRequest, "missing pos"
		}
		if m.Pos[1] != 0 {
			return ErrBadRequest, "2D region requires y==0"
		}
	case CmdRemoveStructure:
		if m.StructureID == "" {
			return ErrBadRequest, "missing structure_id"
		}
	case CmdRemoveQuarry, CmdGetResources, CmdRebuildResources, CmdStatus, CmdSnapshot:
	default:
		return ErrBadRequest, fmt.Sprintf("unknown cmd %q", m.Cmd)
	}
	return "", ""
}

// STATUS (server -> client), sent in reply to commands and broadcast on change.
type StatusMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Ref             string         `json:"ref,omitempty"`
	Tick            uint64         `json:"tick"`
	RegionID        string         `json:"region_id"`
	Spawned         bool           `json:"spawned"`
	Active          bool           `json:"active"`
	AnchorID        string         `json:"anchor_id,omitempty"`
	AnchorPos       *[3]int        `json:"anchor_pos,omitempty"`
	Satellites      []SatelliteRef `json:"satellites"`
	RockTypes       []string       `json:"rock_types"`
	Structures      int            `json:"structures"`
}

type SatelliteRef struct {
	Quadrant string `json:"quadrant"`
	ID       string `json:"id,omitempty"`
	Pos      [3]int `json:"pos"`
}

// RESOURCES (server -> client)
type ResourcesMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Ref             string        `json:"ref,omitempty"`
	Tick            uint64        `json:"tick"`
	AnchorID        string        `json:"anchor_id,omitempty"`
	Resources       []ResourceRow `json:"resources"`
}

type ResourceRow struct {
	Item        string `json:"item"`
	Label       string `json:"label,omitempty"`
	Base        int    `json:"base"`
	Probability int    `json:"probability"`
	StackMin    int    `json:"stack_min"`
	StackMax    int    `json:"stack_max"`
	LargeVein   bool   `json:"large_vein,omitempty"`
}

// SNAPSHOT_DONE (server -> client)
type SnapshotDoneMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Ref             string `json:"ref,omitempty"`
	Tick            uint64 `json:"tick"`
	Path            string `json:"path"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Ref             string `json:"ref,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(ref, code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Ref: ref, Code: code, Message: msg}
}
