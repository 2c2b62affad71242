package instance

import (
	"fmt"
	"log"

	"github.com/embervale/nexus/internal/platform/discovery"
	"github.com/embervale/nexus/internal/services/master/transport"
	"github.com/embervale/nexus/internal/services/master/wire"
)

// Sender queues a packet for one connected peer.
type Sender interface {
	Send(addr transport.Addr, data []byte) error
}

// Manager resolves zones to instances, provisioning world processes on
// demand and driving the transfer affirmation handshake.
type Manager struct {
	logger   *log.Logger
	registry *Registry
	launcher Launcher
	sender   Sender

	// ip is the externally routable address handed to clients in transfer
	// responses for locally spawned worlds.
	ip string
}

// NewManager wires a manager over the given registry, launcher, and sender.
func NewManager(logger *log.Logger, ip string, registry *Registry, launcher Launcher, sender Sender) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		logger:   logger,
		registry: registry,
		launcher: launcher,
		sender:   sender,
		ip:       ip,
	}
}

// Registry exposes the managed instance set.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// GetInstance returns an instance serving (mapID, cloneID), spawning a new
// world when no usable one exists. A freshly spawned instance is not ready;
// callers queue transfers until WORLD_READY arrives.
func (m *Manager) GetInstance(mapID uint16, asPrivate bool, cloneID uint32) (*Instance, error) {
	if !asPrivate {
		for _, in := range m.registry.All() {
			if in.ShuttingDown || in.Private() {
				continue
			}
			if in.Zone.MapID != mapID || in.Zone.CloneID != cloneID {
				continue
			}
			if in.HasCapacity() {
				return in, nil
			}
		}
	}
	return m.spawn(mapID, cloneID, "")
}

// CreatePrivateInstance provisions a password-gated instance. Private zones
// skip the affirmation handshake, so they are considered ready at creation.
func (m *Manager) CreatePrivateInstance(mapID uint16, cloneID uint32, password string) (*Instance, error) {
	in, err := m.spawn(mapID, cloneID, password)
	if err != nil {
		return nil, err
	}
	in.Ready = true
	return in, nil
}

// FindPrivateInstance returns the private instance gated by password, or nil.
func (m *Manager) FindPrivateInstance(password string) *Instance {
	return m.registry.FindPrivate(password)
}

// spawn launches a world process and registers its instance record.
func (m *Manager) spawn(mapID uint16, cloneID uint32, password string) (*Instance, error) {
	port := m.freePort()
	instanceID := m.registry.NextInstanceID(mapID, cloneID)

	in := &Instance{
		Zone:            ZoneID{MapID: mapID, CloneID: cloneID, InstanceID: instanceID},
		IP:              m.ip,
		Port:            port,
		SoftCap:         DefaultSoftCap,
		HardCap:         DefaultHardCap,
		PrivatePassword: password,
	}

	err := m.launcher.LaunchWorld(WorldSpec{
		IP:         m.ip,
		Port:       port,
		MapID:      mapID,
		InstanceID: instanceID,
		CloneID:    cloneID,
		MaxPlayers: in.HardCap,
	})
	if err != nil {
		return nil, fmt.Errorf("launch world %d/%d/%d: %w", mapID, cloneID, instanceID, err)
	}

	m.registry.Add(in)
	m.logger.Printf("spawned world %d clone %d instance %d on port %d", mapID, cloneID, instanceID, port)
	return in, nil
}

// freePort picks the first unclaimed port at or above the world port base.
func (m *Manager) freePort() uint16 {
	port := uint16(discovery.WorldPortBase)
	for m.registry.IsPortInUse(port) {
		port++
	}
	return port
}

// QueueTransfer holds a transfer against a not-yet-ready instance.
func (m *Manager) QueueTransfer(in *Instance, req TransferRequest) {
	in.PendingRequests = append(in.PendingRequests, req)
}

// RequestAffirmation starts the two-phase handshake: the world preps for the
// client and the request waits in the affirmation set until it acknowledges.
func (m *Manager) RequestAffirmation(in *Instance, req TransferRequest) {
	in.PendingAffirmations = append(in.PendingAffirmations, req)

	prep := wire.PrepZone{
		RequestID:    req.RequestID,
		MythranShift: req.MythranShift,
		ZoneID:       int32(in.Zone.MapID),
	}
	if err := m.sender.Send(in.Addr, prep.Encode()); err != nil {
		m.logger.Printf("prep zone %d instance %d: %v", in.Zone.MapID, in.Zone.InstanceID, err)
	}
}

// AffirmTransfer completes the handshake for requestID: the request leaves
// the affirmation set and the original requester receives the endpoint.
func (m *Manager) AffirmTransfer(in *Instance, requestID uint64) {
	for i, req := range in.PendingAffirmations {
		if req.RequestID != requestID {
			continue
		}
		in.PendingAffirmations = append(in.PendingAffirmations[:i], in.PendingAffirmations[i+1:]...)
		m.sendTransferResponse(in, req)
		return
	}
	m.logger.Printf("affirmation for unknown request %d from zone %d", requestID, in.Zone.MapID)
}

// sendTransferResponse hands the requester the instance endpoint.
func (m *Manager) sendTransferResponse(in *Instance, req TransferRequest) {
	resp := wire.ZoneTransferResponse{
		RequestID:    req.RequestID,
		MythranShift: req.MythranShift,
		MapID:        in.Zone.MapID,
		InstanceID:   in.Zone.InstanceID,
		CloneID:      in.Zone.CloneID,
		IP:           in.IP,
		Port:         in.Port,
	}
	if err := m.sender.Send(req.Requester, resp.Encode()); err != nil {
		m.logger.Printf("zone transfer response %d: %v", req.RequestID, err)
	}
}

// SendTransferResponse routes req directly to the requester using in's
// endpoint, bypassing affirmation. Used for private zones.
func (m *Manager) SendTransferResponse(in *Instance, req TransferRequest) {
	m.sendTransferResponse(in, req)
}

// ReadyInstance marks an instance ready exactly once and drains its pending
// queue into the affirmation flow.
func (m *Manager) ReadyInstance(in *Instance) {
	if in.Ready {
		return
	}
	in.Ready = true

	pending := in.PendingRequests
	in.PendingRequests = nil
	for _, req := range pending {
		m.RequestAffirmation(in, req)
	}
}

// ShutdownInstance asks the world process to drain and exit.
func (m *Manager) ShutdownInstance(in *Instance) {
	if !in.Connected() {
		return
	}
	if err := m.sender.Send(in.Addr, wire.EncodeEmpty(wire.KindShutdown)); err != nil {
		m.logger.Printf("shutdown zone %d instance %d: %v", in.Zone.MapID, in.Zone.InstanceID, err)
	}
}

// RedirectPendingRequests re-resolves every transfer parked on a wedged
// instance against a fresh instance for the same zone. Request IDs and
// requester addresses are preserved so clients stay oblivious.
func (m *Manager) RedirectPendingRequests(in *Instance) {
	parked := make([]TransferRequest, 0, len(in.PendingAffirmations)+len(in.PendingRequests))
	parked = append(parked, in.PendingAffirmations...)
	parked = append(parked, in.PendingRequests...)
	in.PendingAffirmations = nil
	in.PendingRequests = nil

	for _, req := range parked {
		target, err := m.GetInstance(in.Zone.MapID, false, in.Zone.CloneID)
		if err != nil {
			m.logger.Printf("redirect request %d: %v", req.RequestID, err)
			continue
		}
		if !target.Ready {
			m.QueueTransfer(target, req)
			continue
		}
		m.RequestAffirmation(target, req)
	}
}
