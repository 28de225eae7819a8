// Package transport adapts the websocket connection(s) of a single match to
// sim.Server's Outbound interface and inbound command queue. Grounded on
// internal/api/websocket.go's WebSocketHub (register/unregister channels,
// per-IP connection limiting, a read loop that decodes inbound JSON),
// narrowed from that file's many-viewer broadcast hub to the two-player,
// player-addressed model spec.md §6 describes: per-player send or broadcast,
// three logical channels multiplexed over one reliable-ordered websocket
// connection per spec.md §1's out-of-scope "transport multiplexing" note
// (documented in DESIGN.md).
package transport

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"skirmish-server/internal/sim"
	"skirmish-server/internal/wire"
)

// maxPlayers is fixed by spec.md's two-player match model.
const maxPlayers = 2

// Hub owns the websocket connections for one match and implements
// sim.Outbound. All Outbound methods are called from the tick goroutine
// only (per sim.Outbound's contract), but HandleConnect writes the initial
// state from the HTTP handler's goroutine, so the per-connection mutex
// below serializes writes to a connection across goroutines.
type Hub struct {
	server  *sim.Server
	encoder *wire.Encoder

	upgrader        websocket.Upgrader
	allowConnection func(ip string) bool

	mu    sync.Mutex
	conns [maxPlayers]*playerConn

	// OnFrameSent, if set, is called with the byte size of every encoded
	// update frame actually handed to the transport (i.e. after the
	// encoder's empty-frame skip).
	OnFrameSent func(n int)
	// OnCommandDropped, if set, is called whenever an inbound message is
	// discarded before it becomes a sim.Command, labelled with a reason.
	OnCommandDropped func(reason string)
}

type playerConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
	ip   string
}

// NewHub builds a Hub for one match. checkOrigin and allowConnection let the
// caller reuse its own origin-allowlist and per-IP rate limiter without this
// package importing them (internal/api owns those concerns).
func NewHub(server *sim.Server, encoder *wire.Encoder, checkOrigin func(origin string) bool, allowConnection func(ip string) bool) *Hub {
	return &Hub{
		server:  server,
		encoder: encoder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return checkOrigin(r.Header.Get("Origin"))
			},
		},
		allowConnection: allowConnection,
	}
}

// HandleConnect upgrades the request to a websocket and registers it as the
// given player's connection, replacing any prior connection for that slot
// (a reconnect). player must be 0 or 1.
func (h *Hub) HandleConnect(w http.ResponseWriter, r *http.Request, ip string, player uint8) {
	if int(player) >= maxPlayers {
		http.Error(w, "invalid player", http.StatusBadRequest)
		return
	}
	if h.allowConnection != nil && !h.allowConnection(ip) {
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("transport: upgrade error for player %d: %v", player, err)
		return
	}

	pc := &playerConn{conn: conn, ip: ip}
	h.mu.Lock()
	h.conns[player] = pc
	h.mu.Unlock()

	layout := h.server.Layout()
	pc.writeText(wire.EncodeCreateInitialState(layout.Width, layout.Height))

	go h.readLoop(player, pc)
}

func (h *Hub) readLoop(player uint8, pc *playerConn) {
	defer func() {
		h.mu.Lock()
		if h.conns[player] == pc {
			h.conns[player] = nil
		}
		h.mu.Unlock()
		pc.conn.Close()
	}()

	for {
		_, message, err := pc.conn.ReadMessage()
		if err != nil {
			return
		}
		cmd, err := wire.DecodeCommand(player, message)
		if err != nil {
			log.Printf("transport: dropping malformed message from player %d: %v", player, err)
			if h.OnCommandDropped != nil {
				h.OnCommandDropped("malformed")
			}
			continue
		}
		h.server.EnqueueCommand(cmd)
	}
}

func (pc *playerConn) writeText(payload []byte) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if err := pc.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("transport: write error: %v", err)
	}
}

func (pc *playerConn) writeBinary(payload []byte) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if err := pc.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		log.Printf("transport: write error: %v", err)
	}
}

// --- sim.Outbound ---

// SendFrame encodes and broadcasts the current tick's binary update frame
// to every connected player, per spec.md §4.8. Skips the send entirely if
// the encoder reports an empty frame.
func (h *Hub) SendFrame(s *sim.Server) {
	frame, ok := h.encoder.EncodeFrame(s)
	if !ok {
		return
	}
	if h.OnFrameSent != nil {
		h.OnFrameSent(len(frame))
	}
	h.forEachConn(func(pc *playerConn) { pc.writeBinary(frame) })
}

// SendPong replies to the given player only.
func (h *Hub) SendPong(player uint8, id uint32, gameTime float64) {
	h.mu.Lock()
	pc := h.connFor(player)
	h.mu.Unlock()
	if pc != nil {
		pc.writeText(wire.EncodePong(id, gameTime))
	}
}

// SendGameOver broadcasts the match result to every connected player.
func (h *Hub) SendGameOver(winningPlayer int) {
	payload := wire.EncodeGameOver(winningPlayer)
	h.forEachConn(func(pc *playerConn) { pc.writeText(payload) })
}

// SendStats broadcasts the once-per-second diagnostic message (spec.md
// §4.8's "stats" record) to every connected player. Unlike SendFrame this is
// not driven by the tick loop; callers decide the once-per-second cadence.
func (h *Hub) SendStats(gameTime float64, unitCount int, tickDurationMs float64) {
	payload := wire.EncodeStats(gameTime, unitCount, tickDurationMs)
	h.forEachConn(func(pc *playerConn) { pc.writeText(payload) })
}

func (h *Hub) connFor(player uint8) *playerConn {
	if int(player) >= maxPlayers {
		return nil
	}
	return h.conns[player]
}

func (h *Hub) forEachConn(fn func(*playerConn)) {
	h.mu.Lock()
	conns := h.conns
	h.mu.Unlock()
	for _, pc := range conns {
		if pc != nil {
			fn(pc)
		}
	}
}
