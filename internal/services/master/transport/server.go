// Package transport carries framed protocol messages over websocket
// connections and surfaces peer lifecycle as inbox events.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout  = 5 * time.Second
	outboundQueue = 64
	inboxDepth    = 1024
)

// Addr identifies a connected peer. It is comparable by value so it can key
// registries across the lifetime of the connection.
type Addr struct {
	Host string
	Port uint16
}

// String formats the address as host:port.
func (a Addr) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

// Event distinguishes the shapes delivered through Receive.
type Event uint8

// Inbox event shapes.
const (
	// EventPayload carries application bytes from a peer.
	EventPayload Event = iota
	// EventDisconnect reports a clean close by the peer.
	EventDisconnect
	// EventConnectionLost reports an unclean drop (timeout, reset).
	EventConnectionLost
)

// Packet is one inbox entry: payload bytes or a lifecycle event.
type Packet struct {
	Event Event
	Addr  Addr
	Data  []byte
}

// peer tracks one live connection and its outbound queue.
type peer struct {
	conn    *websocket.Conn
	out     chan []byte
	done    chan struct{}
	dropped sync.Once
}

// Server accepts fleet connections and multiplexes them into one inbox
// drained by the control loop.
type Server struct {
	logger   *log.Logger
	upgrader websocket.Upgrader

	httpSrv  *http.Server
	listener net.Listener
	port     uint16

	mu    sync.Mutex
	peers map[Addr]*peer

	// maxPeers bounds concurrent connections; 0 means unlimited.
	maxPeers int

	inbox chan Packet
}

// NewServer returns an unstarted transport server accepting at most maxPeers
// concurrent connections (0 for unlimited).
func NewServer(logger *log.Logger, maxPeers int) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		maxPeers: maxPeers,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		peers: map[Addr]*peer{},
		inbox: make(chan Packet, inboxDepth),
	}
}

// Listen binds the server and begins accepting connections. The bind address
// may use port 0; Port reports the resolved port.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		s.port = uint16(tcpAddr.Port)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	s.httpSrv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("transport serve: %v", err)
		}
	}()
	return nil
}

// Port reports the bound listen port.
func (s *Server) Port() uint16 {
	return s.port
}

// handle upgrades one fleet connection and pumps it until it drops.
func (s *Server) handle(rw http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}

	addr, err := remoteAddr(conn)
	if err != nil {
		_ = conn.Close()
		return
	}

	p := &peer{
		conn: conn,
		out:  make(chan []byte, outboundQueue),
		done: make(chan struct{}),
	}
	s.mu.Lock()
	if s.maxPeers > 0 && len(s.peers) >= s.maxPeers {
		s.mu.Unlock()
		s.logger.Printf("rejecting %s: peer limit %d reached", addr, s.maxPeers)
		_ = conn.Close()
		return
	}
	s.peers[addr] = p
	s.mu.Unlock()

	// Writer goroutine: serializes frames so Send and Broadcast never block
	// the control loop on a slow peer.
	go func() {
		for {
			select {
			case <-p.done:
				return
			case b, ok := <-p.out:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop.
	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			event := EventConnectionLost
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				event = EventDisconnect
			}
			s.drop(addr, p)
			s.inbox <- Packet{Event: event, Addr: addr}
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		s.inbox <- Packet{Event: EventPayload, Addr: addr, Data: msg}
	}
}

// drop removes a peer and stops its writer. Safe to call from both the
// reader loop and Close.
func (s *Server) drop(addr Addr, p *peer) {
	p.dropped.Do(func() {
		s.mu.Lock()
		if s.peers[addr] == p {
			delete(s.peers, addr)
		}
		s.mu.Unlock()
		close(p.done)
		_ = p.conn.Close()
	})
}

// Receive returns the next inbox packet without blocking, or nil when the
// inbox is empty.
func (s *Server) Receive() *Packet {
	select {
	case pkt := <-s.inbox:
		return &pkt
	default:
		return nil
	}
}

// Send queues data for one peer. Unknown peers report an error; a full
// outbound queue drops the frame so one wedged peer cannot stall the loop.
func (s *Server) Send(addr Addr, data []byte) error {
	s.mu.Lock()
	p, ok := s.peers[addr]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("send to %s: peer not connected", addr)
	}
	select {
	case p.out <- data:
		return nil
	default:
		return fmt.Errorf("send to %s: outbound queue full", addr)
	}
}

// Broadcast queues data for every connected peer.
func (s *Server) Broadcast(data []byte) {
	s.mu.Lock()
	targets := make([]*peer, 0, len(s.peers))
	for _, p := range s.peers {
		targets = append(targets, p)
	}
	s.mu.Unlock()
	for _, p := range targets {
		select {
		case p.out <- data:
		default:
		}
	}
}

// Close stops accepting connections and drops every peer.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	peers := make(map[Addr]*peer, len(s.peers))
	for addr, p := range s.peers {
		peers[addr] = p
	}
	s.mu.Unlock()
	for addr, p := range peers {
		s.drop(addr, p)
	}
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// remoteAddr derives the comparable peer identity from the socket.
func remoteAddr(conn *websocket.Conn) (Addr, error) {
	host, portStr, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return Addr{}, fmt.Errorf("parse remote addr: %w", err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Addr{}, fmt.Errorf("parse remote port: %w", err)
	}
	return Addr{Host: host, Port: uint16(port)}, nil
}
