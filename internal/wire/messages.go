// Package wire implements the message handler (C10): JSON command decoding
// from a connected player and binary game-update frame encoding, per
// spec.md §4.8. Grounded on internal/api/websocket.go's loose
// map[string]interface{} dispatch, made concrete with typed payload structs
// and a switch on the "type" field (DecodeCommand); unknown types come back
// as an error for the caller to log and drop.
package wire

import "encoding/json"

// InboundEnvelope is decoded once to read the discriminating type field,
// then the full payload is re-decoded into the type-specific struct.
type InboundEnvelope struct {
	Type string `json:"type"`
}

// InboundPing is the `ping` command payload.
type InboundPing struct {
	ID uint32 `json:"id"`
}

// InboundMoveUnit is one entry of a move-units command's unit list.
type InboundMoveUnit struct {
	ID uint16  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// InboundMoveUnits is the `move-units` command payload.
type InboundMoveUnits struct {
	Units []InboundMoveUnit `json:"units"`
}

// OutboundCreateInitialState is sent once at match start.
type OutboundCreateInitialState struct {
	Type       string     `json:"type"`
	LayoutSize [2]float64 `json:"layoutSize"`
}

// OutboundPong replies to a ping.
type OutboundPong struct {
	Type string  `json:"type"`
	ID   uint32  `json:"id"`
	Time float64 `json:"time"`
}

// OutboundGameOver announces the match result. WinningPlayer is 0, 1, or -1
// for simultaneous elimination.
type OutboundGameOver struct {
	Type          string `json:"type"`
	WinningPlayer int    `json:"winning-player"`
}

// OutboundStats is a once-per-second diagnostic message.
type OutboundStats struct {
	Type         string  `json:"type"`
	GameTime     float64 `json:"gameTime"`
	UnitCount    int     `json:"unitCount"`
	TickDuration float64 `json:"tickDurationMs"`
}

func marshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Every Outbound* struct above is a plain value type with no
		// cyclic or unsupported fields, so Marshal cannot fail on them.
		panic("wire: unexpected json marshal failure: " + err.Error())
	}
	return b
}

// EncodeCreateInitialState encodes the once-at-match-start message.
func EncodeCreateInitialState(width, height float64) []byte {
	return marshal(OutboundCreateInitialState{Type: "create-initial-state", LayoutSize: [2]float64{width, height}})
}

// EncodePong encodes a ping reply.
func EncodePong(id uint32, t float64) []byte {
	return marshal(OutboundPong{Type: "pong", ID: id, Time: t})
}

// EncodeGameOver encodes the match-result announcement.
func EncodeGameOver(winningPlayer int) []byte {
	return marshal(OutboundGameOver{Type: "game-over", WinningPlayer: winningPlayer})
}

// EncodeStats encodes the once-per-second diagnostic message.
func EncodeStats(gameTime float64, unitCount int, tickDurationMs float64) []byte {
	return marshal(OutboundStats{Type: "stats", GameTime: gameTime, UnitCount: unitCount, TickDuration: tickDurationMs})
}
