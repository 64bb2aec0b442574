package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeWelcome      = "WELCOME"
	TypeCommand      = "COMMAND"
	TypeStatus       = "STATUS"
	TypeResources    = "RESOURCES"
	TypeSnapshotDone = "SNAPSHOT_DONE"
	TypeError        = "ERROR"
)

// Commands carried by a COMMAND message.
const (
	CmdPlaceQuarry      = "PLACE_QUARRY"
	CmdRemoveQuarry     = "REMOVE_QUARRY"
	CmdRemoveStructure  = "REMOVE_STRUCTURE"
	CmdGetResources     = "GET_RESOURCES"
	CmdRebuildResources = "REBUILD_RESOURCES"
	CmdStatus           = "STATUS"
	CmdSnapshot         = "SNAPSHOT"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
