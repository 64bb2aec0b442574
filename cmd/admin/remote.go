package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/FrodoOf9Fingers/Quarry/internal/protocol"
)

var remoteCmds = map[string]string{
	"status":    protocol.CmdStatus,
	"resources": protocol.CmdGetResources,
	"rebuild":   protocol.CmdRebuildResources,
	"snapshot":  protocol.CmdSnapshot,
	"place":     protocol.CmdPlaceQuarry,
	"remove":    protocol.CmdRemoveQuarry,
	"destroy":   protocol.CmdRemoveStructure,
}

// remoteCmd sends one COMMAND to a running server over the observer socket and
// prints the reply.
func remoteCmd(name string, args []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	wsURL := fs.String("url", "ws://127.0.0.1:8080/observer/ws", "observer websocket url")
	timeout := fs.Duration("timeout", 10*time.Second, "reply timeout")
	pos := fs.String("pos", "", "anchor position x,z (place)")
	rot := fs.Int("rot", 0, "rotation 0..3 (place)")
	id := fs.String("id", "", "structure id (destroy)")
	_ = fs.Parse(args)

	cmd := protocol.CommandMsg{
		Type:            protocol.TypeCommand,
		ProtocolVersion: protocol.Version,
		ID:              "admin-" + uuid.NewString()[:8],
		Cmd:             remoteCmds[name],
	}
	switch cmd.Cmd {
	case protocol.CmdPlaceQuarry:
		p, err := parsePos(*pos)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -pos:", err)
			os.Exit(2)
		}
		cmd.Pos = &p
		cmd.Rotation = *rot
	case protocol.CmdRemoveStructure:
		cmd.StructureID = strings.TrimSpace(*id)
	}
	if code, msg := cmd.Validate(); code != "" {
		fmt.Fprintf(os.Stderr, "%s: %s\n", code, msg)
		os.Exit(2)
	}
	reply, err := roundTrip(strings.TrimSpace(*wsURL), cmd, *timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, name+":", err)
		os.Exit(1)
	}
	var out bytes.Buffer
	_ = json.Indent(&out, reply, "", "  ")
	fmt.Println(out.String())

	base, _ := protocol.DecodeBase(reply)
	if base.Type == protocol.TypeError {
		os.Exit(1)
	}
}

func roundTrip(url string, cmd protocol.CommandMsg, timeout time.Duration) ([]byte, error) {
	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := d.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	_ = conn.SetReadDeadline(deadline)

	_, first, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read welcome: %w", err)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(first, &welcome); err != nil || welcome.Type != protocol.TypeWelcome {
		return nil, fmt.Errorf("expected %s, got %s", protocol.TypeWelcome, first)
	}
	if welcome.ProtocolVersion != protocol.Version {
		return nil, fmt.Errorf("server speaks protocol %s, want %s", welcome.ProtocolVersion, protocol.Version)
	}

	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(cmd); err != nil {
		return nil, err
	}
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		// Status broadcasts carry no ref; skip them.
		var ref struct {
			Ref string `json:"ref"`
		}
		if json.Unmarshal(msg, &ref) == nil && ref.Ref == cmd.ID {
			return msg, nil
		}
	}
}

// parsePos accepts "x,z" or "x,y,z".
func parsePos(s string) ([3]int, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	var vals []int
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return [3]int{}, fmt.Errorf("bad coordinate %q", p)
		}
		vals = append(vals, v)
	}
	switch len(vals) {
	case 2:
		return [3]int{vals[0], 0, vals[1]}, nil
	case 3:
		return [3]int{vals[0], vals[1], vals[2]}, nil
	default:
		return [3]int{}, fmt.Errorf("want x,z or x,y,z, got %q", s)
	}
}
