package wire

// Fixed outbound string widths. The fleet decodes these fields by width, so
// the values are part of the wire contract.
const (
	sessionUsernameWidth = 64
	transferIPWidth      = 255
)

// ServerType distinguishes fleet members in SERVER_INFO announcements.
type ServerType uint32

// Fleet server types.
const (
	ServerTypeMaster ServerType = 0
	ServerTypeAuth   ServerType = 1
	ServerTypeChat   ServerType = 2
	ServerTypeWorld  ServerType = 4
)

// PersistentIDRequest asks master for a fresh persistent object ID.
type PersistentIDRequest struct {
	RequestID uint64
}

// DecodePersistentIDRequest decodes a REQUEST_PERSISTENT_ID packet.
func DecodePersistentIDRequest(data []byte) (PersistentIDRequest, error) {
	r := payloadReader(data)
	m := PersistentIDRequest{RequestID: r.U64()}
	return m, r.Err()
}

// PersistentIDResponse carries the allocated object ID back to the requester.
type PersistentIDResponse struct {
	RequestID uint64
	ObjectID  uint32
}

// Encode marshals the response with its header.
func (m PersistentIDResponse) Encode() []byte {
	w := NewWriter()
	w.WriteHeader(KindPersistentIDResponse)
	w.U64(m.RequestID)
	w.U32(m.ObjectID)
	return w.Bytes()
}

// ZoneTransferRequest asks master to place a client into a zone.
type ZoneTransferRequest struct {
	RequestID    uint64
	MythranShift bool
	MapID        uint32
	CloneID      uint32
}

// DecodeZoneTransferRequest decodes a REQUEST_ZONE_TRANSFER packet.
func DecodeZoneTransferRequest(data []byte) (ZoneTransferRequest, error) {
	r := payloadReader(data)
	m := ZoneTransferRequest{
		RequestID:    r.U64(),
		MythranShift: r.Bool(),
		MapID:        r.U32(),
		CloneID:      r.U32(),
	}
	return m, r.Err()
}

// ZoneTransferResponse hands the requester a routable instance endpoint.
type ZoneTransferResponse struct {
	RequestID    uint64
	MythranShift bool
	MapID        uint16
	InstanceID   uint16
	CloneID      uint32
	IP           string
	Port         uint16
}

// Encode marshals the response with its header.
func (m ZoneTransferResponse) Encode() []byte {
	w := NewWriter()
	w.WriteHeader(KindZoneTransferResponse)
	w.U64(m.RequestID)
	w.Bool(m.MythranShift)
	w.U16(m.MapID)
	w.U16(m.InstanceID)
	w.U32(m.CloneID)
	w.FixedString(m.IP, transferIPWidth)
	w.U16(m.Port)
	return w.Bytes()
}

// DecodeZoneTransferResponse decodes a ZONE_TRANSFER_RESPONSE packet.
func DecodeZoneTransferResponse(data []byte) (ZoneTransferResponse, error) {
	r := payloadReader(data)
	m := ZoneTransferResponse{
		RequestID:    r.U64(),
		MythranShift: r.Bool(),
		MapID:        r.U16(),
		InstanceID:   r.U16(),
		CloneID:      r.U32(),
		IP:           r.FixedString(transferIPWidth),
		Port:         r.U16(),
	}
	return m, r.Err()
}

// ServerInfo announces a fleet member to master, including worlds
// reconnecting after a master restart.
type ServerInfo struct {
	Port       uint32
	MapID      uint32
	InstanceID uint32
	ServerType ServerType
	IP         string
}

// Encode marshals the announcement with its header.
func (m ServerInfo) Encode() []byte {
	w := NewWriter()
	w.WriteHeader(KindServerInfo)
	w.U32(m.Port)
	w.U32(m.MapID)
	w.U32(m.InstanceID)
	w.U32(uint32(m.ServerType))
	w.CString(m.IP)
	return w.Bytes()
}

// DecodeServerInfo decodes a SERVER_INFO packet.
func DecodeServerInfo(data []byte) (ServerInfo, error) {
	r := payloadReader(data)
	m := ServerInfo{
		Port:       r.U32(),
		MapID:      r.U32(),
		InstanceID: r.U32(),
		ServerType: ServerType(r.U32()),
		IP:         r.CString(),
	}
	return m, r.Err()
}

// SetSessionKey registers a session token for a username.
type SetSessionKey struct {
	SessionKey uint32
	Username   string
}

// Encode marshals the registration with its header.
func (m SetSessionKey) Encode() []byte {
	w := NewWriter()
	w.WriteHeader(KindSetSessionKey)
	w.U32(m.SessionKey)
	w.CString(m.Username)
	return w.Bytes()
}

// DecodeSetSessionKey decodes a SET_SESSION_KEY packet.
func DecodeSetSessionKey(data []byte) (SetSessionKey, error) {
	r := payloadReader(data)
	m := SetSessionKey{
		SessionKey: r.U32(),
		Username:   r.CString(),
	}
	return m, r.Err()
}

// NewSessionAlert is broadcast when a fresh login displaces an older session
// for the same user.
type NewSessionAlert struct {
	SessionKey uint32
	Username   string
}

// Encode marshals the alert with its header.
func (m NewSessionAlert) Encode() []byte {
	w := NewWriter()
	w.WriteHeader(KindNewSessionAlert)
	w.U32(m.SessionKey)
	w.PrefixedString(m.Username)
	return w.Bytes()
}

// DecodeNewSessionAlert decodes a NEW_SESSION_ALERT packet.
func DecodeNewSessionAlert(data []byte) (NewSessionAlert, error) {
	r := payloadReader(data)
	m := NewSessionAlert{
		SessionKey: r.U32(),
		Username:   r.PrefixedString(),
	}
	return m, r.Err()
}

// SessionKeyRequest looks up the active session for a username.
type SessionKeyRequest struct {
	Username string
}

// DecodeSessionKeyRequest decodes a REQUEST_SESSION_KEY packet.
func DecodeSessionKeyRequest(data []byte) (SessionKeyRequest, error) {
	r := payloadReader(data)
	m := SessionKeyRequest{Username: r.CString()}
	return m, r.Err()
}

// SessionKeyResponse answers a session lookup.
type SessionKeyResponse struct {
	SessionKey uint32
	Username   string
}

// Encode marshals the response with its header.
func (m SessionKeyResponse) Encode() []byte {
	w := NewWriter()
	w.WriteHeader(KindSessionKeyResponse)
	w.U32(m.SessionKey)
	w.FixedString(m.Username, sessionUsernameWidth)
	return w.Bytes()
}

// DecodeSessionKeyResponse decodes a SESSION_KEY_RESPONSE packet.
func DecodeSessionKeyResponse(data []byte) (SessionKeyResponse, error) {
	r := payloadReader(data)
	m := SessionKeyResponse{
		SessionKey: r.U32(),
		Username:   r.FixedString(sessionUsernameWidth),
	}
	return m, r.Err()
}

// PlayerCount reports a player entering or leaving an instance; the kind
// distinguishes add from remove.
type PlayerCount struct {
	MapID      uint16
	InstanceID uint16
}

// EncodePlayerCount marshals a PLAYER_ADDED or PLAYER_REMOVED packet.
func EncodePlayerCount(kind Kind, m PlayerCount) []byte {
	w := NewWriter()
	w.WriteHeader(kind)
	w.U16(m.MapID)
	w.U16(m.InstanceID)
	return w.Bytes()
}

// DecodePlayerCount decodes a PLAYER_ADDED or PLAYER_REMOVED packet.
func DecodePlayerCount(data []byte) (PlayerCount, error) {
	r := payloadReader(data)
	m := PlayerCount{
		MapID:      r.U16(),
		InstanceID: r.U16(),
	}
	return m, r.Err()
}

// CreatePrivateZone provisions a password-gated instance.
type CreatePrivateZone struct {
	MapID    uint32
	CloneID  uint32
	Password string
}

// Encode marshals the request with its header.
func (m CreatePrivateZone) Encode() []byte {
	w := NewWriter()
	w.WriteHeader(KindCreatePrivateZone)
	w.U32(m.MapID)
	w.U32(m.CloneID)
	w.PrefixedString(m.Password)
	return w.Bytes()
}

// DecodeCreatePrivateZone decodes a CREATE_PRIVATE_ZONE packet.
func DecodeCreatePrivateZone(data []byte) (CreatePrivateZone, error) {
	r := payloadReader(data)
	m := CreatePrivateZone{
		MapID:    r.U32(),
		CloneID:  r.U32(),
		Password: r.PrefixedString(),
	}
	return m, r.Err()
}

// RequestPrivateZone asks for the endpoint of a password-gated instance.
type RequestPrivateZone struct {
	RequestID    uint64
	MythranShift bool
	Password     string
}

// Encode marshals the request with its header.
func (m RequestPrivateZone) Encode() []byte {
	w := NewWriter()
	w.WriteHeader(KindRequestPrivateZone)
	w.U64(m.RequestID)
	w.Bool(m.MythranShift)
	w.PrefixedString(m.Password)
	return w.Bytes()
}

// DecodeRequestPrivateZone decodes a REQUEST_PRIVATE_ZONE packet.
func DecodeRequestPrivateZone(data []byte) (RequestPrivateZone, error) {
	r := payloadReader(data)
	m := RequestPrivateZone{
		RequestID:    r.U64(),
		MythranShift: r.Bool(),
		Password:     r.PrefixedString(),
	}
	return m, r.Err()
}

// WorldReady reports that a world finished loading its zone.
type WorldReady struct {
	MapID      uint16
	InstanceID uint16
}

// Encode marshals the report with its header.
func (m WorldReady) Encode() []byte {
	w := NewWriter()
	w.WriteHeader(KindWorldReady)
	w.U16(m.MapID)
	w.U16(m.InstanceID)
	return w.Bytes()
}

// DecodeWorldReady decodes a WORLD_READY packet.
func DecodeWorldReady(data []byte) (WorldReady, error) {
	r := payloadReader(data)
	m := WorldReady{
		MapID:      r.U16(),
		InstanceID: r.U16(),
	}
	return m, r.Err()
}

// PrepZone asks a world to finish per-client setup for a pending transfer.
// Peers may also send it with a zero request ID as a pre-warm hint for a
// zone they expect traffic on.
type PrepZone struct {
	RequestID    uint64
	MythranShift bool
	ZoneID       int32
}

// Encode marshals the message with its header.
func (m PrepZone) Encode() []byte {
	w := NewWriter()
	w.WriteHeader(KindPrepZone)
	w.U64(m.RequestID)
	w.Bool(m.MythranShift)
	w.I32(m.ZoneID)
	return w.Bytes()
}

// DecodePrepZone decodes a PREP_ZONE packet.
func DecodePrepZone(data []byte) (PrepZone, error) {
	r := payloadReader(data)
	m := PrepZone{
		RequestID:    r.U64(),
		MythranShift: r.Bool(),
		ZoneID:       r.I32(),
	}
	return m, r.Err()
}

// AffirmTransferResponse acknowledges that a world is ready to receive the
// client of a specific transfer.
type AffirmTransferResponse struct {
	RequestID uint64
}

// Encode marshals the acknowledgement with its header.
func (m AffirmTransferResponse) Encode() []byte {
	w := NewWriter()
	w.WriteHeader(KindAffirmTransferResponse)
	w.U64(m.RequestID)
	return w.Bytes()
}

// DecodeAffirmTransferResponse decodes an AFFIRM_TRANSFER_RESPONSE packet.
func DecodeAffirmTransferResponse(data []byte) (AffirmTransferResponse, error) {
	r := payloadReader(data)
	m := AffirmTransferResponse{RequestID: r.U64()}
	return m, r.Err()
}

// EncodeEmpty marshals a header-only packet such as SHUTDOWN.
func EncodeEmpty(kind Kind) []byte {
	w := NewWriter()
	w.WriteHeader(kind)
	return w.Bytes()
}

// ShutdownInstance asks master to shut down one specific instance.
type ShutdownInstance struct {
	MapID      uint32
	InstanceID uint16
}

// Encode marshals the request with its header.
func (m ShutdownInstance) Encode() []byte {
	w := NewWriter()
	w.WriteHeader(KindShutdownInstance)
	w.U32(m.MapID)
	w.U16(m.InstanceID)
	return w.Bytes()
}

// DecodeShutdownInstance decodes a SHUTDOWN_INSTANCE packet.
func DecodeShutdownInstance(data []byte) (ShutdownInstance, error) {
	r := payloadReader(data)
	m := ShutdownInstance{
		MapID:      r.U32(),
		InstanceID: r.U16(),
	}
	return m, r.Err()
}

// MapIDAll in a GetInstances request selects every known instance.
const MapIDAll = ^uint16(0)

// GetInstances asks for the instance list, optionally filtered by map, with
// the answer routed to the named responding instance.
type GetInstances struct {
	ObjectID             uint64
	MapID                uint16
	RespondingMapID      uint16
	RespondingInstanceID uint16
}

// Encode marshals the query with its header. The map filter is carried
// behind a presence flag.
func (m GetInstances) Encode() []byte {
	w := NewWriter()
	w.WriteHeader(KindGetInstances)
	w.U64(m.ObjectID)
	if m.MapID != MapIDAll {
		w.U8(1)
		w.U16(m.MapID)
	} else {
		w.U8(0)
	}
	w.U16(m.RespondingMapID)
	w.U16(m.RespondingInstanceID)
	return w.Bytes()
}

// DecodeGetInstances decodes a GET_INSTANCES packet. An absent map filter
// decodes as MapIDAll.
func DecodeGetInstances(data []byte) (GetInstances, error) {
	r := payloadReader(data)
	m := GetInstances{ObjectID: r.U64(), MapID: MapIDAll}
	if r.Bool() {
		m.MapID = r.U16()
	}
	m.RespondingMapID = r.U16()
	m.RespondingInstanceID = r.U16()
	return m, r.Err()
}

// InstanceRef is one (map, clone, instance) triple in a RESPOND_INSTANCES
// answer.
type InstanceRef struct {
	MapID      uint16
	CloneID    uint32
	InstanceID uint16
}

// RespondInstances answers a GET_INSTANCES query.
type RespondInstances struct {
	ObjectID  uint64
	Instances []InstanceRef
}

// Encode marshals the answer with its header.
func (m RespondInstances) Encode() []byte {
	w := NewWriter()
	w.WriteHeader(KindRespondInstances)
	w.U64(m.ObjectID)
	w.U32(uint32(len(m.Instances)))
	for _, ref := range m.Instances {
		w.U16(ref.MapID)
		w.U32(ref.CloneID)
		w.U16(ref.InstanceID)
	}
	return w.Bytes()
}

// DecodeRespondInstances decodes a RESPOND_INSTANCES packet.
func DecodeRespondInstances(data []byte) (RespondInstances, error) {
	r := payloadReader(data)
	m := RespondInstances{ObjectID: r.U64()}
	count := r.U32()
	for i := uint32(0); i < count && r.Err() == nil; i++ {
		m.Instances = append(m.Instances, InstanceRef{
			MapID:      r.U16(),
			CloneID:    r.U32(),
			InstanceID: r.U16(),
		})
	}
	return m, r.Err()
}
