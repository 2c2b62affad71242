// Package universe drives the master control loop: packet dispatch,
// affirmation timeouts, instance reaping, and orchestrated shutdown.
package universe

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/embervale/nexus/internal/platform/discovery"
	"github.com/embervale/nexus/internal/services/master/instance"
	"github.com/embervale/nexus/internal/services/master/objectid"
	"github.com/embervale/nexus/internal/services/master/session"
	"github.com/embervale/nexus/internal/services/master/storage"
	"github.com/embervale/nexus/internal/services/master/transport"
	"github.com/embervale/nexus/internal/services/master/wire"
)

// TickInterval is the loop cadence, matching the 60 Hz game frame rate.
const TickInterval = 16 * time.Millisecond

const (
	// logFlushTicks paces log flushing to roughly every 15 seconds.
	logFlushTicks = 900
	// sqlKeepaliveTicks paces the storage keepalive to roughly 10 minutes.
	sqlKeepaliveTicks = 40000
	// universeShutdownTicks delays loop exit after SHUTDOWN_UNIVERSE by
	// roughly 10 minutes so players can be warned and drained.
	universeShutdownTicks = 40000
	// affirmationWedgeTicks is the consecutive-tick budget an instance has
	// to answer outstanding affirmations before it is recycled.
	affirmationWedgeTicks = 1000
	// drainTicks bounds the shutdown drain at roughly 60 seconds.
	drainTicks = 3600
)

// Transport is the loop's view of the socket layer.
type Transport interface {
	Receive() *transport.Packet
	Send(addr transport.Addr, data []byte) error
	Broadcast(data []byte)
}

// Store is the run-database surface the loop touches while running.
type Store interface {
	Ping(ctx context.Context) error
	GetServer(ctx context.Context, name string) (storage.ServerRecord, error)
}

// Deps carries the collaborators for a Universe.
type Deps struct {
	Logger    *log.Logger
	Debug     bool
	Transport Transport
	Manager   *instance.Manager
	Sessions  *session.Registry
	Allocator *objectid.Allocator
	Store     Store
	Launcher  instance.Launcher

	// Flush is invoked on the log-flush cadence; nil disables it.
	Flush func() error

	// Sleep paces the shutdown drain; nil uses time.Sleep. Tests inject a
	// no-op to advance the drain instantly.
	Sleep func(time.Duration)
}

// Universe is the single-threaded control loop state. All registries are
// mutated only from the loop goroutine.
type Universe struct {
	logger    *log.Logger
	debug     bool
	transport Transport
	manager   *instance.Manager
	sessions  *session.Registry
	allocator *objectid.Allocator
	store     Store
	launcher  instance.Launcher
	flush     func() error
	sleep     func(time.Duration)
	tracer    trace.Tracer

	// chatPeer remembers the registered chat relay so it can be respawned
	// when its connection drops.
	chatPeer transport.Addr

	universeShutdown bool
	shutdownStarted  bool

	ticksSinceFlush       int
	ticksSinceKeepalive   int
	ticksSinceShutdownCmd int
}

// New returns a Universe over the given collaborators.
func New(deps Deps) *Universe {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	sleep := deps.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Universe{
		logger:    logger,
		debug:     deps.Debug,
		transport: deps.Transport,
		manager:   deps.Manager,
		sessions:  deps.Sessions,
		allocator: deps.Allocator,
		store:     deps.Store,
		launcher:  deps.Launcher,
		flush:     deps.Flush,
		sleep:     sleep,
		tracer:    otel.Tracer("nexus/master"),
	}
}

// Run drives ticks at TickInterval until the context is cancelled or a
// universe shutdown completes its drain window, then runs the shutdown
// coordinator.
func (u *Universe) Run(ctx context.Context) error {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			u.Shutdown(context.Background())
			return nil
		case <-ticker.C:
			if u.Tick(ctx) {
				u.Shutdown(context.Background())
				return nil
			}
		}
	}
}

// Tick advances the loop by one frame and reports whether the loop should
// exit because the universe shutdown window elapsed.
func (u *Universe) Tick(ctx context.Context) bool {
	for pkt := u.transport.Receive(); pkt != nil; pkt = u.transport.Receive() {
		u.handlePacket(ctx, pkt)
	}

	if u.ticksSinceFlush >= logFlushTicks {
		u.ticksSinceFlush = 0
		if u.flush != nil {
			if err := u.flush(); err != nil {
				u.logger.Printf("log flush: %v", err)
			}
		}
	} else {
		u.ticksSinceFlush++
	}

	if u.ticksSinceKeepalive >= sqlKeepaliveTicks {
		u.ticksSinceKeepalive = 0
		u.keepStorageAlive(ctx)
		if err := u.allocator.Save(ctx); err != nil {
			u.logger.Printf("checkpoint persistent id tracker: %v", err)
		}
	} else {
		u.ticksSinceKeepalive++
	}

	if u.universeShutdown {
		if u.ticksSinceShutdownCmd >= universeShutdownTicks {
			return true
		}
		u.ticksSinceShutdownCmd++
	}

	u.sweepAffirmations()
	u.reapInstances()
	return false
}

// keepStorageAlive pings the run database and re-reads the master row so
// idle connections are not dropped by the server side.
func (u *Universe) keepStorageAlive(ctx context.Context) {
	if err := u.store.Ping(ctx); err != nil {
		u.logger.Printf("storage keepalive: %v", err)
		return
	}
	if _, err := u.store.GetServer(ctx, discovery.ServiceMaster); err != nil {
		u.logger.Printf("storage keepalive read: %v", err)
	}
}

// sweepAffirmations advances per-instance affirmation timers and recycles
// instances that sat on outstanding affirmations for the whole wedge budget.
func (u *Universe) sweepAffirmations() {
	for _, in := range u.manager.Registry().All() {
		if len(in.PendingAffirmations) > 0 {
			in.AffirmationTimeout++
		} else {
			in.AffirmationTimeout = 0
		}

		if in.AffirmationTimeout == affirmationWedgeTicks {
			u.logger.Printf("zone %d instance %d wedged on affirmations, recycling",
				in.Zone.MapID, in.Zone.InstanceID)
			u.manager.ShutdownInstance(in)
			in.ShuttingDown = true
			u.manager.RedirectPendingRequests(in)
		}
	}
}

// reapInstances drops instances whose shutdown completed.
func (u *Universe) reapInstances() {
	registry := u.manager.Registry()
	all := make([]*instance.Instance, len(registry.All()))
	copy(all, registry.All())
	for _, in := range all {
		if in.ShutdownComplete {
			registry.Remove(in)
		}
	}
}

// Shutdown drains the fleet: every connected instance is told to exit, the allocator
// is checkpointed, and inbound protocol keeps being serviced until all
// instances finish or the drain window closes. Idempotent; both the signal
// path and the universe shutdown command land here.
func (u *Universe) Shutdown(ctx context.Context) {
	if u.shutdownStarted {
		return
	}
	u.shutdownStarted = true

	for _, in := range u.manager.Registry().All() {
		u.manager.ShutdownInstance(in)
	}

	if err := u.allocator.Save(ctx); err != nil {
		u.logger.Printf("save persistent id tracker: %v", err)
	} else {
		u.logger.Printf("saved persistent id tracker")
	}

	u.logger.Printf("draining instances, max 60 seconds")
	for tick := 0; tick < drainTicks; tick++ {
		for pkt := u.transport.Receive(); pkt != nil; pkt = u.transport.Receive() {
			u.handlePacket(ctx, pkt)
		}

		done := true
		for _, in := range u.manager.Registry().All() {
			if !in.ShutdownComplete {
				done = false
				break
			}
		}
		if done {
			u.logger.Printf("finished shutting down universe")
			return
		}
		u.sleep(TickInterval)
	}
	u.logger.Printf("finished shutting down by timeout")
}

// ShutdownStarted reports whether the coordinator already ran.
func (u *Universe) ShutdownStarted() bool {
	return u.shutdownStarted
}

// ChatPeer reports the remembered chat relay address.
func (u *Universe) ChatPeer() transport.Addr {
	return u.chatPeer
}

// handlePacket dispatches one inbox entry.
func (u *Universe) handlePacket(ctx context.Context, pkt *transport.Packet) {
	switch pkt.Event {
	case transport.EventDisconnect:
		u.handleDisconnect(pkt.Addr, "disconnected")
		return
	case transport.EventConnectionLost:
		u.handleDisconnect(pkt.Addr, "lost connection")
		return
	}

	kind, err := wire.ParseHeader(pkt.Data)
	if err != nil {
		u.debugf("malformed packet from %s: %v", pkt.Addr, err)
		return
	}

	_, span := u.tracer.Start(ctx, "master.dispatch",
		trace.WithAttributes(attribute.String("message.kind", kind.String())))
	defer span.End()

	switch kind {
	case wire.KindRequestPersistentID:
		u.handlePersistentIDRequest(pkt)
	case wire.KindRequestZoneTransfer:
		u.handleZoneTransferRequest(pkt)
	case wire.KindServerInfo:
		u.handleServerInfo(pkt)
	case wire.KindSetSessionKey:
		u.handleSetSessionKey(pkt)
	case wire.KindRequestSessionKey:
		u.handleSessionKeyRequest(pkt)
	case wire.KindPlayerAdded:
		u.handlePlayerCount(pkt, 1)
	case wire.KindPlayerRemoved:
		u.handlePlayerCount(pkt, -1)
	case wire.KindCreatePrivateZone:
		u.handleCreatePrivateZone(pkt)
	case wire.KindRequestPrivateZone:
		u.handleRequestPrivateZone(pkt)
	case wire.KindWorldReady:
		u.handleWorldReady(pkt)
	case wire.KindPrepZone:
		u.handlePrepZone(pkt)
	case wire.KindAffirmTransferResponse:
		u.handleAffirmTransferResponse(pkt)
	case wire.KindShutdownResponse:
		u.handleShutdownResponse(pkt)
	case wire.KindShutdownUniverse:
		u.logger.Printf("received universe shutdown command, exiting in 10 minutes")
		u.universeShutdown = true
	case wire.KindShutdownInstance:
		u.handleShutdownInstance(pkt)
	case wire.KindGetInstances:
		u.handleGetInstances(pkt)
	default:
		u.logger.Printf("unknown master packet kind %d from %s", uint8(kind), pkt.Addr)
	}
}

// handleDisconnect reaps the instance behind a dropped peer and respawns the
// chat relay when it was the one that went away.
func (u *Universe) handleDisconnect(addr transport.Addr, how string) {
	u.logger.Printf("a server %s", how)

	registry := u.manager.Registry()
	if in := registry.GetByAddr(addr); in != nil {
		u.logger.Printf("dropped zone %d clone %d instance %d port %d",
			in.Zone.MapID, in.Zone.CloneID, in.Zone.InstanceID, in.Port)
		registry.Remove(in)
	}

	if addr == u.chatPeer && u.chatPeer != (transport.Addr{}) && !u.universeShutdown && !u.shutdownStarted {
		u.chatPeer = transport.Addr{}
		if err := u.launcher.LaunchService(discovery.ServiceChat); err != nil {
			u.logger.Printf("respawn chat relay: %v", err)
		}
	}
}

func (u *Universe) handlePersistentIDRequest(pkt *transport.Packet) {
	m, err := wire.DecodePersistentIDRequest(pkt.Data)
	if err != nil {
		u.debugf("persistent id request: %v", err)
		return
	}
	resp := wire.PersistentIDResponse{RequestID: m.RequestID, ObjectID: u.allocator.Allocate()}
	if err := u.transport.Send(pkt.Addr, resp.Encode()); err != nil {
		u.logger.Printf("persistent id response: %v", err)
	}
}

func (u *Universe) handleZoneTransferRequest(pkt *transport.Packet) {
	m, err := wire.DecodeZoneTransferRequest(pkt.Data)
	if err != nil {
		u.debugf("zone transfer request: %v", err)
		return
	}

	in, err := u.manager.GetInstance(uint16(m.MapID), false, m.CloneID)
	if err != nil {
		u.logger.Printf("resolve zone %d clone %d: %v", m.MapID, m.CloneID, err)
		return
	}

	req := instance.TransferRequest{
		RequestID:    m.RequestID,
		MythranShift: m.MythranShift,
		Requester:    pkt.Addr,
	}
	if !in.Ready {
		u.logger.Printf("zone %d not ready, queueing transfer %d", m.MapID, m.RequestID)
		u.manager.QueueTransfer(in, req)
		return
	}
	u.manager.RequestAffirmation(in, req)
}

// handleServerInfo records a fleet announcement. Worlds unknown to the
// registry are reconstructed (master restarted under a live fleet); known
// worlds refresh their transport identity.
func (u *Universe) handleServerInfo(pkt *transport.Packet) {
	m, err := wire.DecodeServerInfo(pkt.Data)
	if err != nil {
		u.debugf("server info: %v", err)
		return
	}

	registry := u.manager.Registry()
	if m.ServerType == wire.ServerTypeWorld && !registry.IsPortInUse(uint16(m.Port)) {
		in := &instance.Instance{
			Zone: instance.ZoneID{
				MapID:      uint16(m.MapID),
				InstanceID: uint16(m.InstanceID),
			},
			IP:   m.IP,
			Port: uint16(m.Port),
			Addr: pkt.Addr,
			// A world announcing itself is already serving its zone.
			Ready:   true,
			SoftCap: instance.DefaultSoftCap,
			HardCap: instance.DefaultHardCap,
		}
		registry.Add(in)
	} else if m.ServerType == wire.ServerTypeWorld {
		if in := registry.FindByMapAndInstance(uint16(m.MapID), uint16(m.InstanceID)); in != nil {
			in.Addr = pkt.Addr
		}
	}

	if m.ServerType == wire.ServerTypeChat {
		u.chatPeer = pkt.Addr
	}

	u.logger.Printf("received server info, instance %d port %d", m.InstanceID, m.Port)
}

func (u *Universe) handleSetSessionKey(pkt *transport.Packet) {
	m, err := wire.DecodeSetSessionKey(pkt.Data)
	if err != nil {
		u.debugf("set session key: %v", err)
		return
	}
	u.sessions.Set(m.SessionKey, m.Username, u.transport)
	u.logger.Printf("registered session key for user %s", m.Username)
}

func (u *Universe) handleSessionKeyRequest(pkt *transport.Packet) {
	m, err := wire.DecodeSessionKeyRequest(pkt.Data)
	if err != nil {
		u.debugf("session key request: %v", err)
		return
	}
	key, ok := u.sessions.Find(m.Username)
	if !ok {
		return
	}
	resp := wire.SessionKeyResponse{SessionKey: key, Username: m.Username}
	if err := u.transport.Send(pkt.Addr, resp.Encode()); err != nil {
		u.logger.Printf("session key response: %v", err)
	}
}

func (u *Universe) handlePlayerCount(pkt *transport.Packet, delta int) {
	m, err := wire.DecodePlayerCount(pkt.Data)
	if err != nil {
		u.debugf("player count: %v", err)
		return
	}
	in := u.manager.Registry().FindByMapAndInstance(m.MapID, m.InstanceID)
	if in == nil {
		u.logger.Printf("player count for unknown zone %d instance %d", m.MapID, m.InstanceID)
		return
	}
	in.Players += delta
	if in.Players < 0 {
		in.Players = 0
	}
}

func (u *Universe) handleCreatePrivateZone(pkt *transport.Packet) {
	m, err := wire.DecodeCreatePrivateZone(pkt.Data)
	if err != nil {
		u.debugf("create private zone: %v", err)
		return
	}
	if _, err := u.manager.CreatePrivateInstance(uint16(m.MapID), m.CloneID, m.Password); err != nil {
		u.logger.Printf("create private zone %d: %v", m.MapID, err)
	}
}

// handleRequestPrivateZone answers a private-zone lookup. A wrong password
// sends nothing; the client times out on its side.
func (u *Universe) handleRequestPrivateZone(pkt *transport.Packet) {
	m, err := wire.DecodeRequestPrivateZone(pkt.Data)
	if err != nil {
		u.debugf("request private zone: %v", err)
		return
	}
	in := u.manager.FindPrivateInstance(m.Password)
	if in == nil {
		u.logger.Printf("private zone request %d matched no instance", m.RequestID)
		return
	}
	u.manager.SendTransferResponse(in, instance.TransferRequest{
		RequestID:    m.RequestID,
		MythranShift: m.MythranShift,
		Requester:    pkt.Addr,
	})
}

func (u *Universe) handleWorldReady(pkt *transport.Packet) {
	m, err := wire.DecodeWorldReady(pkt.Data)
	if err != nil {
		u.debugf("world ready: %v", err)
		return
	}
	in := u.manager.Registry().FindByMapAndInstance(m.MapID, m.InstanceID)
	if in == nil {
		u.logger.Printf("world ready for unknown zone %d instance %d", m.MapID, m.InstanceID)
		return
	}
	if !in.Connected() {
		in.Addr = pkt.Addr
	}
	u.logger.Printf("zone %d instance %d ready", m.MapID, m.InstanceID)
	u.manager.ReadyInstance(in)
}

// handlePrepZone treats an inbound prep as a pre-warm hint: resolve the zone
// so an instance is running before traffic lands on it.
func (u *Universe) handlePrepZone(pkt *transport.Packet) {
	m, err := wire.DecodePrepZone(pkt.Data)
	if err != nil {
		u.debugf("prep zone: %v", err)
		return
	}
	if m.ZoneID < 0 {
		return
	}
	if _, err := u.manager.GetInstance(uint16(m.ZoneID), false, 0); err != nil {
		u.logger.Printf("prep zone %d: %v", m.ZoneID, err)
	}
}

// handleAffirmTransferResponse completes a transfer handshake. Replies from
// peers without an instance are stale and ignored.
func (u *Universe) handleAffirmTransferResponse(pkt *transport.Packet) {
	m, err := wire.DecodeAffirmTransferResponse(pkt.Data)
	if err != nil {
		u.debugf("affirm transfer response: %v", err)
		return
	}
	in := u.manager.Registry().GetByAddr(pkt.Addr)
	if in == nil {
		return
	}
	u.manager.AffirmTransfer(in, m.RequestID)
}

func (u *Universe) handleShutdownResponse(pkt *transport.Packet) {
	in := u.manager.Registry().GetByAddr(pkt.Addr)
	if in == nil {
		return
	}
	u.logger.Printf("shutdown response from zone %d clone %d instance %d port %d",
		in.Zone.MapID, in.Zone.CloneID, in.Zone.InstanceID, in.Port)
	in.ShuttingDown = true
	in.ShutdownComplete = true
}

func (u *Universe) handleShutdownInstance(pkt *transport.Packet) {
	m, err := wire.DecodeShutdownInstance(pkt.Data)
	if err != nil {
		u.debugf("shutdown instance: %v", err)
		return
	}
	in := u.manager.Registry().FindByMapAndInstance(uint16(m.MapID), m.InstanceID)
	if in == nil {
		u.logger.Printf("shutdown request for unknown zone %d instance %d", m.MapID, m.InstanceID)
		return
	}
	u.logger.Printf("shutting down zone %d instance %d on request", m.MapID, m.InstanceID)
	u.manager.ShutdownInstance(in)
}

// handleGetInstances answers an instance census, routed to the instance
// named in the query rather than the asking peer.
func (u *Universe) handleGetInstances(pkt *transport.Packet) {
	m, err := wire.DecodeGetInstances(pkt.Data)
	if err != nil {
		u.debugf("get instances: %v", err)
		return
	}

	registry := u.manager.Registry()
	responding := registry.FindByMapAndInstance(m.RespondingMapID, m.RespondingInstanceID)
	if responding == nil {
		u.logger.Printf("instance census for unknown responder %d/%d", m.RespondingMapID, m.RespondingInstanceID)
		return
	}

	var matches []*instance.Instance
	if m.MapID == wire.MapIDAll {
		matches = registry.All()
	} else {
		matches = registry.FindByMapID(m.MapID)
	}

	resp := wire.RespondInstances{ObjectID: m.ObjectID}
	for _, in := range matches {
		resp.Instances = append(resp.Instances, wire.InstanceRef{
			MapID:      in.Zone.MapID,
			CloneID:    in.Zone.CloneID,
			InstanceID: in.Zone.InstanceID,
		})
	}
	if err := u.transport.Send(responding.Addr, resp.Encode()); err != nil {
		u.logger.Printf("instance census response: %v", err)
	}
}

// debugf logs only when debug statements are enabled.
func (u *Universe) debugf(format string, args ...any) {
	if u.debug {
		u.logger.Printf(format, args...)
	}
}
