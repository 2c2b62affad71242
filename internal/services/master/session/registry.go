// Package session tracks the session-key registry for the universe.
package session

import (
	"github.com/embervale/nexus/internal/services/master/wire"
)

// Broadcaster fans a packet out to every connected peer.
type Broadcaster interface {
	Broadcast(data []byte)
}

// Registry maps session keys to usernames. It is mutated only from the
// control loop goroutine, so displace-then-insert is atomic with respect to
// lookups.
type Registry struct {
	sessions map[uint32]string
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: map[uint32]string{}}
}

// Set registers key for username. An existing session for the same user is
// displaced: its entry is removed and a NEW_SESSION_ALERT carrying the new
// key is broadcast so the prior login gets booted.
func (r *Registry) Set(key uint32, username string, b Broadcaster) {
	for oldKey, name := range r.sessions {
		if name != username {
			continue
		}
		delete(r.sessions, oldKey)
		if b != nil {
			b.Broadcast(wire.NewSessionAlert{SessionKey: key, Username: username}.Encode())
		}
		break
	}
	r.sessions[key] = username
}

// Find returns the active session key for username.
func (r *Registry) Find(username string) (uint32, bool) {
	for key, name := range r.sessions {
		if name == username {
			return key, true
		}
	}
	return 0, false
}

// Len reports the number of active sessions.
func (r *Registry) Len() int {
	return len(r.sessions)
}
