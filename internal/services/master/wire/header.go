package wire

import "fmt"

// HeaderSize is the fixed length of the packet header.
const HeaderSize = 8

// idApplication marks an application payload at the transport level.
const idApplication = 0x53

// connMaster tags the master subsystem in header byte 1.
const connMaster = 0x00

// Kind identifies a master-subsystem message.
type Kind uint8

// Master-subsystem message kinds.
const (
	KindRequestPersistentID    Kind = 1
	KindPersistentIDResponse   Kind = 2
	KindRequestZoneTransfer    Kind = 3
	KindZoneTransferResponse   Kind = 4
	KindServerInfo             Kind = 5
	KindSetSessionKey          Kind = 6
	KindRequestSessionKey      Kind = 7
	KindSessionKeyResponse     Kind = 8
	KindPlayerAdded            Kind = 9
	KindPlayerRemoved          Kind = 10
	KindCreatePrivateZone      Kind = 11
	KindRequestPrivateZone     Kind = 12
	KindWorldReady             Kind = 13
	KindPrepZone               Kind = 14
	KindAffirmTransferResponse Kind = 15
	KindShutdown               Kind = 16
	KindShutdownResponse       Kind = 17
	KindShutdownUniverse       Kind = 18
	KindShutdownInstance       Kind = 19
	KindGetInstances           Kind = 20
	KindRespondInstances       Kind = 21
	KindNewSessionAlert        Kind = 22
)

// String names the kind for log lines.
func (k Kind) String() string {
	switch k {
	case KindRequestPersistentID:
		return "REQUEST_PERSISTENT_ID"
	case KindPersistentIDResponse:
		return "PERSISTENT_ID_RESPONSE"
	case KindRequestZoneTransfer:
		return "REQUEST_ZONE_TRANSFER"
	case KindZoneTransferResponse:
		return "ZONE_TRANSFER_RESPONSE"
	case KindServerInfo:
		return "SERVER_INFO"
	case KindSetSessionKey:
		return "SET_SESSION_KEY"
	case KindRequestSessionKey:
		return "REQUEST_SESSION_KEY"
	case KindSessionKeyResponse:
		return "SESSION_KEY_RESPONSE"
	case KindPlayerAdded:
		return "PLAYER_ADDED"
	case KindPlayerRemoved:
		return "PLAYER_REMOVED"
	case KindCreatePrivateZone:
		return "CREATE_PRIVATE_ZONE"
	case KindRequestPrivateZone:
		return "REQUEST_PRIVATE_ZONE"
	case KindWorldReady:
		return "WORLD_READY"
	case KindPrepZone:
		return "PREP_ZONE"
	case KindAffirmTransferResponse:
		return "AFFIRM_TRANSFER_RESPONSE"
	case KindShutdown:
		return "SHUTDOWN"
	case KindShutdownResponse:
		return "SHUTDOWN_RESPONSE"
	case KindShutdownUniverse:
		return "SHUTDOWN_UNIVERSE"
	case KindShutdownInstance:
		return "SHUTDOWN_INSTANCE"
	case KindGetInstances:
		return "GET_INSTANCES"
	case KindRespondInstances:
		return "RESPOND_INSTANCES"
	case KindNewSessionAlert:
		return "NEW_SESSION_ALERT"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// WriteHeader appends the 8-byte master-subsystem header for kind.
func (w *Writer) WriteHeader(kind Kind) {
	w.U8(idApplication)
	w.U8(connMaster)
	w.U8(0)
	w.U8(uint8(kind))
	w.U32(0)
}

// ParseHeader validates the header and returns the message kind. Packets for
// other subsystems report an error and are dropped by the dispatcher.
func ParseHeader(data []byte) (Kind, error) {
	if len(data) < HeaderSize {
		return 0, fmt.Errorf("packet too short for header: %d bytes", len(data))
	}
	if data[1] != connMaster {
		return 0, fmt.Errorf("packet for subsystem %d is not for master", data[1])
	}
	return Kind(data[3]), nil
}

// payloadReader positions a Reader just past the header.
func payloadReader(data []byte) *Reader {
	r := NewReader(data)
	r.take(HeaderSize)
	return r
}
