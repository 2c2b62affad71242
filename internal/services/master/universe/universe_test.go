package universe

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/embervale/nexus/internal/platform/discovery"
	"github.com/embervale/nexus/internal/services/master/instance"
	"github.com/embervale/nexus/internal/services/master/objectid"
	"github.com/embervale/nexus/internal/services/master/session"
	"github.com/embervale/nexus/internal/services/master/storage"
	"github.com/embervale/nexus/internal/services/master/transport"
	"github.com/embervale/nexus/internal/services/master/wire"
)

var (
	worldAddr     = transport.Addr{Host: "10.0.0.5", Port: 40000}
	requesterAddr = transport.Addr{Host: "10.0.0.9", Port: 41000}
	chatAddr      = transport.Addr{Host: "10.0.0.7", Port: 42000}
)

type sentFrame struct {
	addr transport.Addr
	data []byte
}

type fakeTransport struct {
	inbox      []transport.Packet
	sent       []sentFrame
	broadcasts [][]byte
}

func (t *fakeTransport) Receive() *transport.Packet {
	if len(t.inbox) == 0 {
		return nil
	}
	pkt := t.inbox[0]
	t.inbox = t.inbox[1:]
	return &pkt
}

func (t *fakeTransport) Send(addr transport.Addr, data []byte) error {
	t.sent = append(t.sent, sentFrame{addr: addr, data: data})
	return nil
}

func (t *fakeTransport) Broadcast(data []byte) {
	t.broadcasts = append(t.broadcasts, data)
}

func (t *fakeTransport) push(addr transport.Addr, data []byte) {
	t.inbox = append(t.inbox, transport.Packet{Event: transport.EventPayload, Addr: addr, Data: data})
}

func (t *fakeTransport) pushEvent(event transport.Event, addr transport.Addr) {
	t.inbox = append(t.inbox, transport.Packet{Event: event, Addr: addr})
}

// sentKinds decodes the kinds of every frame sent so far.
func (t *fakeTransport) sentKinds(test *testing.T) []wire.Kind {
	test.Helper()
	var kinds []wire.Kind
	for _, f := range t.sent {
		kind, err := wire.ParseHeader(f.data)
		if err != nil {
			test.Fatalf("parse sent frame: %v", err)
		}
		kinds = append(kinds, kind)
	}
	return kinds
}

type fakeLauncher struct {
	worlds   []instance.WorldSpec
	services []string
}

func (l *fakeLauncher) LaunchWorld(spec instance.WorldSpec) error {
	l.worlds = append(l.worlds, spec)
	return nil
}

func (l *fakeLauncher) LaunchService(service string) error {
	l.services = append(l.services, service)
	return nil
}

type fakeStore struct {
	persistentID uint32
	saved        []uint32
	pings        int
	reads        int
}

func (s *fakeStore) Ping(ctx context.Context) error {
	s.pings++
	return nil
}

func (s *fakeStore) GetServer(ctx context.Context, name string) (storage.ServerRecord, error) {
	s.reads++
	return storage.ServerRecord{Name: name}, nil
}

func (s *fakeStore) CurrentPersistentID(ctx context.Context) (uint32, error) {
	return s.persistentID, nil
}

func (s *fakeStore) SavePersistentID(ctx context.Context, id uint32) error {
	s.saved = append(s.saved, id)
	return nil
}

type universeHarness struct {
	u         *Universe
	transport *fakeTransport
	launcher  *fakeLauncher
	store     *fakeStore
	manager   *instance.Manager
	sessions  *session.Registry
}

func newHarness(t *testing.T) *universeHarness {
	t.Helper()
	ft := &fakeTransport{}
	launcher := &fakeLauncher{}
	store := &fakeStore{}
	logger := log.New(universeTestWriter{t}, "", 0)

	allocator, err := objectid.NewAllocator(context.Background(), store)
	if err != nil {
		t.Fatalf("new allocator: %v", err)
	}

	manager := instance.NewManager(logger, "10.0.0.1", instance.NewRegistry(), launcher, ft)
	sessions := session.NewRegistry()

	u := New(Deps{
		Logger:    logger,
		Transport: ft,
		Manager:   manager,
		Sessions:  sessions,
		Allocator: allocator,
		Store:     store,
		Launcher:  launcher,
		Sleep:     func(time.Duration) {},
	})
	return &universeHarness{u: u, transport: ft, launcher: launcher, store: store, manager: manager, sessions: sessions}
}

func (h *universeHarness) tick(t *testing.T) {
	t.Helper()
	if h.u.Tick(context.Background()) {
		t.Fatal("unexpected loop exit")
	}
}

// requestTransfer drives a cold zone transfer up to the queued state and
// returns the spawned instance.
func (h *universeHarness) requestTransfer(t *testing.T, requestID uint64, mapID uint32, cloneID uint32) *instance.Instance {
	t.Helper()
	h.transport.push(requesterAddr, encodeZoneTransferRequest(requestID, mapID, cloneID))
	h.tick(t)

	all := h.manager.Registry().FindByMapID(uint16(mapID))
	if len(all) == 0 {
		t.Fatal("expected a spawned instance")
	}
	return all[len(all)-1]
}

// encodeZoneTransferRequest builds a REQUEST_ZONE_TRANSFER packet.
func encodeZoneTransferRequest(requestID uint64, mapID, cloneID uint32) []byte {
	w := wire.NewWriter()
	w.WriteHeader(wire.KindRequestZoneTransfer)
	w.U64(requestID)
	w.Bool(false)
	w.U32(mapID)
	w.U32(cloneID)
	return w.Bytes()
}

func TestColdZoneTransfer(t *testing.T) {
	h := newHarness(t)

	// A transfer against an empty registry spawns a world and parks the
	// request until the world reports ready.
	in := h.requestTransfer(t, 7, 1200, 0)
	if len(h.launcher.worlds) != 1 || h.launcher.worlds[0].MapID != 1200 {
		t.Fatalf("expected world spawn for map 1200, got %+v", h.launcher.worlds)
	}
	if in.Ready {
		t.Fatal("fresh spawn must not be ready")
	}
	if len(in.PendingRequests) != 1 || in.PendingRequests[0].RequestID != 7 {
		t.Fatalf("expected parked request 7, got %+v", in.PendingRequests)
	}
	if len(h.transport.sent) != 0 {
		t.Fatalf("nothing should be sent before ready, got %d frames", len(h.transport.sent))
	}

	// WORLD_READY drains the queue into the affirmation handshake.
	h.transport.push(worldAddr, wire.WorldReady{MapID: 1200, InstanceID: in.Zone.InstanceID}.Encode())
	h.tick(t)

	if len(in.PendingRequests) != 0 {
		t.Fatal("pending queue must drain on ready")
	}
	kinds := h.transport.sentKinds(t)
	if len(kinds) != 1 || kinds[0] != wire.KindPrepZone {
		t.Fatalf("expected PREP_ZONE to the instance, got %v", kinds)
	}
	if h.transport.sent[0].addr != worldAddr {
		t.Fatal("prep must target the world peer")
	}
	prep, err := wire.DecodePrepZone(h.transport.sent[0].data)
	if err != nil {
		t.Fatalf("decode prep: %v", err)
	}
	if prep.ZoneID != 1200 || prep.RequestID != 7 {
		t.Fatalf("unexpected prep %+v", prep)
	}

	// The affirmation releases the endpoint to the original requester.
	h.transport.push(worldAddr, wire.AffirmTransferResponse{RequestID: 7}.Encode())
	h.tick(t)

	kinds = h.transport.sentKinds(t)
	if len(kinds) != 2 || kinds[1] != wire.KindZoneTransferResponse {
		t.Fatalf("expected ZONE_TRANSFER_RESPONSE, got %v", kinds)
	}
	if h.transport.sent[1].addr != requesterAddr {
		t.Fatal("response must reach the original requester")
	}
	resp, err := wire.DecodeZoneTransferResponse(h.transport.sent[1].data)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RequestID != 7 || resp.MapID != 1200 || resp.InstanceID != in.Zone.InstanceID ||
		resp.CloneID != 0 || resp.IP != "10.0.0.1" || resp.Port != in.Port {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestSessionDisplacement(t *testing.T) {
	h := newHarness(t)

	h.transport.push(requesterAddr, wire.SetSessionKey{SessionKey: 100, Username: "alice"}.Encode())
	h.tick(t)
	if len(h.transport.broadcasts) != 0 {
		t.Fatal("first login must not broadcast")
	}

	h.transport.push(requesterAddr, wire.SetSessionKey{SessionKey: 200, Username: "alice"}.Encode())
	h.tick(t)

	if h.sessions.Len() != 1 {
		t.Fatalf("expected one session, got %d", h.sessions.Len())
	}
	if key, ok := h.sessions.Find("alice"); !ok || key != 200 {
		t.Fatalf("expected key 200 for alice, got %d (found=%v)", key, ok)
	}
	if len(h.transport.broadcasts) != 1 {
		t.Fatalf("expected one NEW_SESSION_ALERT, got %d", len(h.transport.broadcasts))
	}
	alert, err := wire.DecodeNewSessionAlert(h.transport.broadcasts[0])
	if err != nil {
		t.Fatalf("decode alert: %v", err)
	}
	if alert.SessionKey != 200 || alert.Username != "alice" {
		t.Fatalf("unexpected alert %+v", alert)
	}
}

func TestSessionKeyLookup(t *testing.T) {
	h := newHarness(t)

	h.transport.push(requesterAddr, wire.SetSessionKey{SessionKey: 100, Username: "alice"}.Encode())
	h.transport.push(worldAddr, func() []byte {
		w := wire.NewWriter()
		w.WriteHeader(wire.KindRequestSessionKey)
		w.CString("alice")
		return w.Bytes()
	}())
	h.tick(t)

	kinds := h.transport.sentKinds(t)
	if len(kinds) != 1 || kinds[0] != wire.KindSessionKeyResponse {
		t.Fatalf("expected SESSION_KEY_RESPONSE, got %v", kinds)
	}
	resp, err := wire.DecodeSessionKeyResponse(h.transport.sent[0].data)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionKey != 100 || resp.Username != "alice" {
		t.Fatalf("unexpected response %+v", resp)
	}

	// Unknown users get no reply at all.
	h.transport.push(worldAddr, func() []byte {
		w := wire.NewWriter()
		w.WriteHeader(wire.KindRequestSessionKey)
		w.CString("ghost")
		return w.Bytes()
	}())
	h.tick(t)
	if len(h.transport.sent) != 1 {
		t.Fatal("unknown user lookup must send nothing")
	}
}

func TestPrivateZoneFlow(t *testing.T) {
	h := newHarness(t)

	h.transport.push(requesterAddr, wire.CreatePrivateZone{MapID: 1300, CloneID: 5, Password: "hunter2"}.Encode())
	h.tick(t)
	if len(h.launcher.worlds) != 1 {
		t.Fatalf("expected private world spawn, got %d", len(h.launcher.worlds))
	}

	h.transport.push(requesterAddr, wire.RequestPrivateZone{RequestID: 9, MythranShift: true, Password: "hunter2"}.Encode())
	h.tick(t)

	kinds := h.transport.sentKinds(t)
	if len(kinds) != 1 || kinds[0] != wire.KindZoneTransferResponse {
		t.Fatalf("expected direct ZONE_TRANSFER_RESPONSE without PREP_ZONE, got %v", kinds)
	}
	resp, err := wire.DecodeZoneTransferResponse(h.transport.sent[0].data)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RequestID != 9 || resp.CloneID != 5 || !resp.MythranShift {
		t.Fatalf("unexpected response %+v", resp)
	}

	// A wrong password is dropped silently.
	h.transport.push(requesterAddr, wire.RequestPrivateZone{RequestID: 10, Password: "wrong"}.Encode())
	h.tick(t)
	if len(h.transport.sent) != 1 {
		t.Fatal("wrong password must send nothing")
	}
}

func TestAffirmationWedgeRedirects(t *testing.T) {
	h := newHarness(t)

	in := h.requestTransfer(t, 7, 1200, 0)
	h.transport.push(worldAddr, wire.WorldReady{MapID: 1200, InstanceID: in.Zone.InstanceID}.Encode())
	h.tick(t)
	if len(in.PendingAffirmations) != 1 {
		t.Fatalf("expected outstanding affirmation, got %d", len(in.PendingAffirmations))
	}

	// Withhold the affirmation for the full wedge budget.
	for i := 0; i < 1000; i++ {
		h.tick(t)
	}

	if !in.ShuttingDown {
		t.Fatal("wedged instance must be shutting down")
	}
	var sawShutdown bool
	for _, f := range h.transport.sent {
		kind, err := wire.ParseHeader(f.data)
		if err != nil {
			t.Fatalf("parse frame: %v", err)
		}
		if kind == wire.KindShutdown && f.addr == worldAddr {
			sawShutdown = true
		}
	}
	if !sawShutdown {
		t.Fatal("wedged instance must receive SHUTDOWN")
	}

	if len(h.launcher.worlds) != 2 {
		t.Fatalf("expected replacement spawn, got %d launches", len(h.launcher.worlds))
	}
	replacement := h.manager.Registry().All()[1]
	if len(replacement.PendingRequests) != 1 || replacement.PendingRequests[0].RequestID != 7 {
		t.Fatalf("expected request 7 redirected, got %+v", replacement.PendingRequests)
	}
	if replacement.PendingRequests[0].Requester != requesterAddr {
		t.Fatal("redirection must preserve the requester")
	}
}

func TestAffirmationTimerResetsWhenClear(t *testing.T) {
	h := newHarness(t)

	in := h.requestTransfer(t, 7, 1200, 0)
	h.transport.push(worldAddr, wire.WorldReady{MapID: 1200, InstanceID: in.Zone.InstanceID}.Encode())
	h.tick(t)

	for i := 0; i < 500; i++ {
		h.tick(t)
	}
	if in.AffirmationTimeout == 0 {
		t.Fatal("expected timer to be running")
	}

	h.transport.push(worldAddr, wire.AffirmTransferResponse{RequestID: 7}.Encode())
	h.tick(t)
	if in.AffirmationTimeout != 0 {
		t.Fatalf("expected timer reset after affirmation, got %d", in.AffirmationTimeout)
	}
	if in.ShuttingDown {
		t.Fatal("affirmed instance must keep running")
	}
}

func TestCrashRecoveryFromServerInfo(t *testing.T) {
	h := newHarness(t)

	h.transport.push(worldAddr, wire.ServerInfo{
		Port:       3007,
		MapID:      1200,
		InstanceID: 4,
		ServerType: wire.ServerTypeWorld,
		IP:         "10.0.0.5",
	}.Encode())
	h.tick(t)

	in := h.manager.Registry().FindByMapAndInstance(1200, 4)
	if in == nil {
		t.Fatal("expected reconstructed instance")
	}
	if in.IP != "10.0.0.5" || in.Port != 3007 || in.Addr != worldAddr {
		t.Fatalf("unexpected reconstruction %+v", in)
	}
	if !in.Ready {
		t.Fatal("a world announcing itself is already serving and must be ready")
	}

	// A second announcement for a known port only refreshes the address.
	newAddr := transport.Addr{Host: "10.0.0.5", Port: 40001}
	h.transport.push(newAddr, wire.ServerInfo{
		Port:       3007,
		MapID:      1200,
		InstanceID: 4,
		ServerType: wire.ServerTypeWorld,
		IP:         "10.0.0.5",
	}.Encode())
	h.tick(t)

	if h.manager.Registry().Len() != 1 {
		t.Fatalf("expected no duplicate instance, got %d", h.manager.Registry().Len())
	}
	if in.Addr != newAddr {
		t.Fatal("expected refreshed transport address")
	}
}

func TestUniverseShutdownWindow(t *testing.T) {
	h := newHarness(t)

	in := h.requestTransfer(t, 7, 1200, 0)
	h.transport.push(worldAddr, wire.WorldReady{MapID: 1200, InstanceID: in.Zone.InstanceID}.Encode())
	h.transport.push(worldAddr, wire.AffirmTransferResponse{RequestID: 7}.Encode())
	h.tick(t)

	h.transport.push(requesterAddr, wire.EncodeEmpty(wire.KindShutdownUniverse))

	ticks := 0
	for !h.u.Tick(context.Background()) {
		ticks++
		if ticks > universeShutdownTicks+10 {
			t.Fatal("loop never exited after universe shutdown")
		}
	}
	if ticks < universeShutdownTicks-1 {
		t.Fatalf("loop exited early after %d ticks", ticks)
	}

	// The coordinator tells every instance to exit and checkpoints the
	// allocator while still servicing shutdown responses.
	h.transport.push(worldAddr, wire.EncodeEmpty(wire.KindShutdownResponse))
	h.u.Shutdown(context.Background())

	if len(h.store.saved) == 0 {
		t.Fatal("expected persistent id checkpoint during shutdown")
	}
	var sawShutdown bool
	for _, f := range h.transport.sent {
		kind, err := wire.ParseHeader(f.data)
		if err != nil {
			t.Fatalf("parse frame: %v", err)
		}
		if kind == wire.KindShutdown && f.addr == worldAddr {
			sawShutdown = true
		}
	}
	if !sawShutdown {
		t.Fatal("every instance must receive SHUTDOWN")
	}
	if !h.u.ShutdownStarted() {
		t.Fatal("coordinator must record that it ran")
	}

	// Re-entry is a no-op.
	frames := len(h.transport.sent)
	h.u.Shutdown(context.Background())
	if len(h.transport.sent) != frames {
		t.Fatal("second shutdown must not resend")
	}
}

func TestPersistentIDRequest(t *testing.T) {
	h := newHarness(t)
	h.store.persistentID = 40

	// Allocator was loaded before the bump; rebuild the harness state by
	// sending two requests and checking monotonicity instead.
	h.transport.push(worldAddr, func() []byte {
		w := wire.NewWriter()
		w.WriteHeader(wire.KindRequestPersistentID)
		w.U64(31)
		return w.Bytes()
	}())
	h.transport.push(worldAddr, func() []byte {
		w := wire.NewWriter()
		w.WriteHeader(wire.KindRequestPersistentID)
		w.U64(32)
		return w.Bytes()
	}())
	h.tick(t)

	if len(h.transport.sent) != 2 {
		t.Fatalf("expected two responses, got %d", len(h.transport.sent))
	}
	first := decodePersistentIDResponse(t, h.transport.sent[0].data)
	second := decodePersistentIDResponse(t, h.transport.sent[1].data)
	if first.RequestID != 31 || second.RequestID != 32 {
		t.Fatalf("request ids must echo back, got %d and %d", first.RequestID, second.RequestID)
	}
	if second.ObjectID <= first.ObjectID {
		t.Fatalf("object ids must increase, got %d then %d", first.ObjectID, second.ObjectID)
	}
}

func decodePersistentIDResponse(t *testing.T, data []byte) wire.PersistentIDResponse {
	t.Helper()
	r := wire.NewReader(data[wire.HeaderSize:])
	resp := wire.PersistentIDResponse{RequestID: r.U64(), ObjectID: r.U32()}
	if err := r.Err(); err != nil {
		t.Fatalf("decode persistent id response: %v", err)
	}
	return resp
}

func TestPlayerCountsGateResolution(t *testing.T) {
	h := newHarness(t)

	in := h.requestTransfer(t, 7, 1200, 0)
	h.transport.push(worldAddr, wire.WorldReady{MapID: 1200, InstanceID: in.Zone.InstanceID}.Encode())
	h.tick(t)

	for i := 0; i < in.SoftCap; i++ {
		h.transport.push(worldAddr, wire.EncodePlayerCount(wire.KindPlayerAdded, wire.PlayerCount{MapID: 1200, InstanceID: in.Zone.InstanceID}))
	}
	h.tick(t)
	if in.Players != in.SoftCap {
		t.Fatalf("expected %d players, got %d", in.SoftCap, in.Players)
	}

	// The saturated instance no longer satisfies resolution.
	h.transport.push(requesterAddr, encodeZoneTransferRequest(8, 1200, 0))
	h.tick(t)
	if len(h.launcher.worlds) != 2 {
		t.Fatalf("expected a second spawn past the soft cap, got %d", len(h.launcher.worlds))
	}

	h.transport.push(worldAddr, wire.EncodePlayerCount(wire.KindPlayerRemoved, wire.PlayerCount{MapID: 1200, InstanceID: in.Zone.InstanceID}))
	h.tick(t)
	if in.Players != in.SoftCap-1 {
		t.Fatalf("expected %d players after removal, got %d", in.SoftCap-1, in.Players)
	}
}

func TestDisconnectRemovesInstance(t *testing.T) {
	h := newHarness(t)

	in := h.requestTransfer(t, 7, 1200, 0)
	h.transport.push(worldAddr, wire.WorldReady{MapID: 1200, InstanceID: in.Zone.InstanceID}.Encode())
	h.tick(t)

	h.transport.pushEvent(transport.EventConnectionLost, worldAddr)
	h.tick(t)

	if h.manager.Registry().Len() != 0 {
		t.Fatalf("expected instance removed on connection loss, got %d", h.manager.Registry().Len())
	}
}

func TestChatPeerRespawnsOnLoss(t *testing.T) {
	h := newHarness(t)

	h.transport.push(chatAddr, wire.ServerInfo{Port: 2005, ServerType: wire.ServerTypeChat, IP: "10.0.0.7"}.Encode())
	h.tick(t)
	if h.u.ChatPeer() != chatAddr {
		t.Fatal("expected chat peer remembered")
	}

	h.transport.pushEvent(transport.EventConnectionLost, chatAddr)
	h.tick(t)

	if len(h.launcher.services) != 1 || h.launcher.services[0] != discovery.ServiceChat {
		t.Fatalf("expected chat relay respawn, got %v", h.launcher.services)
	}
}

func TestChatPeerNotRespawnedDuringUniverseShutdown(t *testing.T) {
	h := newHarness(t)

	h.transport.push(chatAddr, wire.ServerInfo{Port: 2005, ServerType: wire.ServerTypeChat, IP: "10.0.0.7"}.Encode())
	h.transport.push(requesterAddr, wire.EncodeEmpty(wire.KindShutdownUniverse))
	h.tick(t)

	h.transport.pushEvent(transport.EventConnectionLost, chatAddr)
	h.tick(t)

	if len(h.launcher.services) != 0 {
		t.Fatalf("chat must stay down during universe shutdown, got %v", h.launcher.services)
	}
}

func TestGetInstancesRoutedToResponder(t *testing.T) {
	h := newHarness(t)

	first := h.requestTransfer(t, 7, 1200, 0)
	h.transport.push(worldAddr, wire.WorldReady{MapID: 1200, InstanceID: first.Zone.InstanceID}.Encode())
	h.tick(t)

	h.transport.push(requesterAddr, wire.GetInstances{
		ObjectID:             77,
		MapID:                wire.MapIDAll,
		RespondingMapID:      1200,
		RespondingInstanceID: first.Zone.InstanceID,
	}.Encode())
	h.tick(t)

	last := h.transport.sent[len(h.transport.sent)-1]
	if last.addr != worldAddr {
		t.Fatal("census must go to the responding instance")
	}
	resp, err := wire.DecodeRespondInstances(last.data)
	if err != nil {
		t.Fatalf("decode census: %v", err)
	}
	if resp.ObjectID != 77 || len(resp.Instances) != 1 {
		t.Fatalf("unexpected census %+v", resp)
	}
	if resp.Instances[0].MapID != 1200 {
		t.Fatalf("unexpected census entry %+v", resp.Instances[0])
	}
}

func TestStaleAffirmationIgnored(t *testing.T) {
	h := newHarness(t)

	h.transport.push(worldAddr, wire.AffirmTransferResponse{RequestID: 7}.Encode())
	h.tick(t)

	if len(h.transport.sent) != 0 {
		t.Fatalf("stale affirmation must send nothing, got %d frames", len(h.transport.sent))
	}
}

func TestMalformedPacketIsDropped(t *testing.T) {
	h := newHarness(t)

	h.transport.push(requesterAddr, []byte{0x53})
	h.transport.push(requesterAddr, wire.EncodeEmpty(wire.Kind(200)))
	h.tick(t)

	if len(h.transport.sent) != 0 {
		t.Fatal("malformed packets must be ignored")
	}
}

func TestInstanceKeyUniqueness(t *testing.T) {
	h := newHarness(t)

	first := h.requestTransfer(t, 1, 1200, 0)
	first.Players = first.SoftCap
	second := h.requestTransfer(t, 2, 1200, 0)
	third := h.requestTransfer(t, 3, 1200, 5)

	seen := map[instance.ZoneID]bool{}
	for _, in := range []*instance.Instance{first, second, third} {
		if seen[in.Zone] {
			t.Fatalf("duplicate zone triple %+v", in.Zone)
		}
		seen[in.Zone] = true
	}
}

// universeTestWriter routes loop logs through the test output.
type universeTestWriter struct{ t *testing.T }

func (w universeTestWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", p)
	return len(p), nil
}
