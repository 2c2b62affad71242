// Package instance tracks and provisions world-server processes.
package instance

import (
	"github.com/embervale/nexus/internal/services/master/transport"
)

// Default player capacities for a world instance.
const (
	DefaultSoftCap = 12
	DefaultHardCap = 12
)

// ZoneID addresses one slice of the game world.
type ZoneID struct {
	MapID      uint16
	CloneID    uint32
	InstanceID uint16
}

// TransferRequest is one client waiting to be routed into a zone. It moves
// between the pending queue and the affirmation set; the requester address
// survives redirection so the client never notices.
type TransferRequest struct {
	RequestID    uint64
	MythranShift bool
	Requester    transport.Addr
}

// Instance is one running world-server process.
type Instance struct {
	Zone ZoneID
	IP   string
	Port uint16

	// Addr is the transport identity of the connected process. It stays
	// zero until the world announces itself with SERVER_INFO or WORLD_READY.
	Addr transport.Addr

	Ready            bool
	ShuttingDown     bool
	ShutdownComplete bool

	SoftCap int
	HardCap int
	Players int

	// PendingRequests holds transfers that arrived before the world
	// reported ready. Non-empty only while Ready is false.
	PendingRequests []TransferRequest

	// PendingAffirmations holds transfers awaiting the world's per-client
	// prep acknowledgement.
	PendingAffirmations []TransferRequest

	// AffirmationTimeout counts consecutive ticks with outstanding
	// affirmations; at the wedge threshold the instance is recycled.
	AffirmationTimeout uint32

	// PrivatePassword gates password-protected zones. Empty for public
	// instances.
	PrivatePassword string
}

// Private reports whether the instance is password-gated.
func (in *Instance) Private() bool {
	return in.PrivatePassword != ""
}

// Connected reports whether the world process has announced itself.
func (in *Instance) Connected() bool {
	return in.Addr != (transport.Addr{})
}

// HasCapacity reports whether another player fits under the soft cap.
func (in *Instance) HasCapacity() bool {
	return in.Players < in.SoftCap
}
