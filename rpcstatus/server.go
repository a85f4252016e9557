// Package rpcstatus exposes a small HTTP status surface for a running
// bootloader process: a JSON-RPC endpoint for point-in-time queries and a
// websocket feed that fans out resultkeeper.Streaming events to connected
// observers. It has no bearing on proving-mode determinism (spec §5); it
// exists purely for forward-mode operability, the way the teacher's
// peer/network.go exposes a request/response surface for sync peers.
package rpcstatus

import (
	"context"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/execore/bootloader/resultkeeper"
	"github.com/gorilla/rpc"
	"github.com/gorilla/rpc/json2"
	"github.com/gorilla/websocket"
)

// StatusService implements the gorilla/rpc handler exposed at /rpc. Method
// names follow the package.Method convention gorilla/rpc's json2 codec
// expects, e.g. "Status.LastSealed".
type StatusService struct {
	mu         sync.RWMutex
	lastSealed resultkeeper.BlockHeader
}

type LastSealedArgs struct{}

type LastSealedReply struct {
	Header resultkeeper.BlockHeader `json:"header"`
}

// LastSealed returns the most recently sealed block header observed by
// the server's feed, or the zero value if none has sealed yet.
func (s *StatusService) LastSealed(r *http.Request, args *LastSealedArgs, reply *LastSealedReply) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reply.Header = s.lastSealed
	return nil
}

func (s *StatusService) recordSealed(h resultkeeper.BlockHeader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSealed = h
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server is the status HTTP server: a JSON-RPC endpoint at /rpc and a
// websocket feed at /events that streams every resultkeeper.Event pushed
// by the Streaming keeper it was constructed with.
type Server struct {
	addr    string
	feed    *resultkeeper.Streaming
	service *StatusService
	hub     *eventHub
	http    *http.Server
}

// NewServer constructs a status Server listening on addr, fanning out
// events from feed to websocket clients and tracking the last sealed
// block for the JSON-RPC LastSealed method.
func NewServer(addr string, feed *resultkeeper.Streaming) *Server {
	s := &Server{addr: addr, feed: feed, service: &StatusService{}, hub: newEventHub()}

	rpcServer := rpc.NewServer()
	rpcServer.RegisterCodec(json2.NewCodec(), "application/json")
	if err := rpcServer.RegisterService(s.service, "Status"); err != nil {
		log.Crit("rpcstatus: registering service", "err", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/rpc", rpcServer)
	mux.HandleFunc("/events", s.handleEvents)
	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

// ListenAndServe starts the HTTP server and the background feed pump; it
// blocks until the server is closed.
func (s *Server) ListenAndServe() error {
	go s.pumpFeed()
	log.Info("rpcstatus: listening", "addr", s.addr)
	return s.http.ListenAndServe()
}

// Close shuts down the server gracefully.
func (s *Server) Close(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) pumpFeed() {
	for ev := range s.feed.Events {
		if ev.Sealed != nil {
			s.service.recordSealed(*ev.Sealed)
		}
		s.broadcast(ev)
	}
}

type eventHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *eventHub) add(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *eventHub) remove(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	c.Close()
}

func (h *eventHub) broadcast(ev resultkeeper.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if err := c.WriteJSON(ev); err != nil {
			delete(h.clients, c)
			c.Close()
		}
	}
}

func (s *Server) broadcast(ev resultkeeper.Event) {
	s.hub.broadcast(ev)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("rpcstatus: websocket upgrade failed", "err", err)
		return
	}
	s.hub.add(conn)
	go func() {
		defer s.hub.remove(conn)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
}
