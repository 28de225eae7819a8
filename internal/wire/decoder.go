package wire

import (
	"encoding/json"
	"fmt"

	"skirmish-server/internal/sim"
)

// DecodeCommand turns one inbound JSON message into a sim.Command, already
// labelled with the sending player (attached by the transport layer, never
// trusted from the payload itself — spec.md §6). An error means the message
// was malformed or of an unrecognised type; per spec.md §7 the caller should
// log and drop rather than propagate.
func DecodeCommand(player uint8, raw []byte) (sim.Command, error) {
	var env InboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return sim.Command{}, fmt.Errorf("wire: malformed message: %w", err)
	}

	switch env.Type {
	case "ping":
		var p InboundPing
		if err := json.Unmarshal(raw, &p); err != nil {
			return sim.Command{}, fmt.Errorf("wire: malformed ping: %w", err)
		}
		return sim.Command{Kind: sim.CommandPing, Player: player, PingID: p.ID}, nil

	case "move-units":
		var m InboundMoveUnits
		if err := json.Unmarshal(raw, &m); err != nil {
			return sim.Command{}, fmt.Errorf("wire: malformed move-units: %w", err)
		}
		moves := make([]sim.MoveRequest, len(m.Units))
		for i, u := range m.Units {
			moves[i] = sim.MoveRequest{ID: u.ID, X: u.X, Y: u.Y}
		}
		return sim.Command{Kind: sim.CommandMoveUnits, Player: player, Moves: moves}, nil

	case "release":
		return sim.Command{Kind: sim.CommandRelease, Player: player}, nil

	default:
		return sim.Command{}, fmt.Errorf("wire: unknown message type %q", env.Type)
	}
}
