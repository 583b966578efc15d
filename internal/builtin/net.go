package builtin

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sentra-lang/gowam/internal/wam"
	"github.com/sentra-lang/gowam/internal/wamerr"
)

// peerBook hands out small integer handles for live peer connections —
// the same handle-table shape the teacher's network module uses for its
// WebSocketConn registry, scoped here to one PredicateTable registration
// rather than a package-global map so two engine instances never share
// sockets.
type peerBook struct {
	mu      sync.Mutex
	conns   map[int64]*websocket.Conn
	nextIdx int64
}

func newPeerBook() *peerBook {
	return &peerBook{conns: make(map[int64]*websocket.Conn)}
}

func (b *peerBook) put(c *websocket.Conn) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.nextIdx
	b.nextIdx++
	b.conns[idx] = c
	return idx
}

func (b *peerBook) get(idx int64) (*websocket.Conn, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.conns[idx]
	return c, ok
}

// RegisterNet installs the sys:net built-ins: a plain HTTP fetch (ground
// on the teacher's http_client.go) and a peer-to-peer WebSocket dial/
// send/receive trio (ground on websocket.go), each exercised through the
// same LoadBuiltin seam as every other domain collaborator.
func RegisterNet(preds *wam.PredicateTable) {
	const module = "sys"
	peers := newPeerBook()

	// sys:http_get(+URL, -Body)
	preds.LoadBuiltin(module, "http_get", 2, func(s *wam.State, arity int) (bool, error) {
		url, err := atomArg(s, 0, predName(module, "http_get", arity))
		if err != nil {
			return false, err
		}
		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Get(url)
		if err != nil {
			return false, wamerr.Resource("http_get: " + err.Error())
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false, wamerr.Resource("http_get: " + err.Error())
		}
		return unifyAtom(s, 1, string(body))
	})

	// sys:peer_dial(+URL, -Handle)
	preds.LoadBuiltin(module, "peer_dial", 2, func(s *wam.State, arity int) (bool, error) {
		url, err := atomArg(s, 0, predName(module, "peer_dial", arity))
		if err != nil {
			return false, err
		}
		dialer := websocket.DefaultDialer
		dialer.HandshakeTimeout = 10 * time.Second
		conn, _, err := dialer.Dial(url, nil)
		if err != nil {
			return false, wamerr.Resource("peer_dial: " + err.Error())
		}
		idx := peers.put(conn)
		return s.Unify(s.A[1], s.Heap().NewInt(idx)), nil
	})

	// sys:peer_send(+Handle, +Text)
	preds.LoadBuiltin(module, "peer_send", 2, func(s *wam.State, arity int) (bool, error) {
		handle, err := intArg(s, 0, predName(module, "peer_send", arity))
		if err != nil {
			return false, err
		}
		text, err := atomArg(s, 1, predName(module, "peer_send", arity))
		if err != nil {
			return false, err
		}
		conn, ok := peers.get(handle)
		if !ok {
			return false, wamerr.Existence("peer_handle", predName(module, "peer_send", arity))
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
			return false, wamerr.Resource("peer_send: " + err.Error())
		}
		return true, nil
	})

	// sys:peer_recv(+Handle, -Text)
	preds.LoadBuiltin(module, "peer_recv", 2, func(s *wam.State, arity int) (bool, error) {
		handle, err := intArg(s, 0, predName(module, "peer_recv", arity))
		if err != nil {
			return false, err
		}
		conn, ok := peers.get(handle)
		if !ok {
			return false, wamerr.Existence("peer_handle", predName(module, "peer_recv", arity))
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return false, wamerr.Resource("peer_recv: " + err.Error())
		}
		return unifyAtom(s, 1, string(msg))
	})
}
