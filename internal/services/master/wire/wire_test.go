package wire

import (
	"bytes"
	"testing"
)

func TestParseHeader(t *testing.T) {
	pkt := EncodeEmpty(KindShutdownUniverse)
	kind, err := ParseHeader(pkt)
	if err != nil {
		t.Fatalf("parse header: %v", err)
	}
	if kind != KindShutdownUniverse {
		t.Fatalf("expected SHUTDOWN_UNIVERSE, got %v", kind)
	}
}

func TestParseHeaderRejectsShortPacket(t *testing.T) {
	if _, err := ParseHeader([]byte{0x53, 0x00, 0x00}); err == nil {
		t.Fatal("expected short packet error")
	}
}

func TestParseHeaderRejectsOtherSubsystem(t *testing.T) {
	pkt := EncodeEmpty(KindShutdown)
	pkt[1] = 0x04
	if _, err := ParseHeader(pkt); err == nil {
		t.Fatal("expected foreign subsystem error")
	}
}

func TestReaderShortReadIsSticky(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02})
	_ = r.U32()
	if r.Err() == nil {
		t.Fatal("expected short read error")
	}
	if got := r.U64(); got != 0 {
		t.Fatalf("reads after error must return zero, got %d", got)
	}
}

func TestDecodeSetSessionKeyFromRawBytes(t *testing.T) {
	// Hand-built packet: header, little-endian key, NUL-terminated name.
	raw := []byte{0x53, 0x00, 0x00, byte(KindSetSessionKey), 0, 0, 0, 0}
	raw = append(raw, 0x64, 0x00, 0x00, 0x00) // key 100
	raw = append(raw, 'a', 'l', 'i', 'c', 'e', 0x00)

	m, err := DecodeSetSessionKey(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.SessionKey != 100 {
		t.Fatalf("expected key 100, got %d", m.SessionKey)
	}
	if m.Username != "alice" {
		t.Fatalf("expected alice, got %q", m.Username)
	}
}

func TestDecodeSessionKeyRequestWithoutTerminator(t *testing.T) {
	// A name running to the end of the packet still decodes.
	raw := EncodeEmpty(KindRequestSessionKey)
	raw = append(raw, 'b', 'o', 'b')

	m, err := DecodeSessionKeyRequest(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Username != "bob" {
		t.Fatalf("expected bob, got %q", m.Username)
	}
}

func TestZoneTransferResponseLayout(t *testing.T) {
	m := ZoneTransferResponse{
		RequestID:    7,
		MythranShift: false,
		MapID:        1200,
		InstanceID:   3,
		CloneID:      0,
		IP:           "10.0.0.5",
		Port:         3001,
	}
	pkt := m.Encode()

	// Header + u64 + u8 + u16 + u16 + u32 + 255-byte IP + u16.
	if len(pkt) != 8+8+1+2+2+4+255+2 {
		t.Fatalf("unexpected packet length %d", len(pkt))
	}

	got, err := DecodeZoneTransferResponse(pkt)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != m {
		t.Fatalf("round trip mismatch: %+v != %+v", got, m)
	}
}

func TestSessionKeyResponsePadsUsername(t *testing.T) {
	pkt := SessionKeyResponse{SessionKey: 9, Username: "carol"}.Encode()
	if len(pkt) != 8+4+64 {
		t.Fatalf("unexpected packet length %d", len(pkt))
	}
	if !bytes.Equal(pkt[12:17], []byte("carol")) {
		t.Fatalf("expected name bytes at field start, got %v", pkt[12:17])
	}
	if pkt[17] != 0 {
		t.Fatal("expected NUL padding after name")
	}
}

func TestGetInstancesPresenceFlag(t *testing.T) {
	filtered := GetInstances{ObjectID: 42, MapID: 1200, RespondingMapID: 1000, RespondingInstanceID: 1}
	got, err := DecodeGetInstances(filtered.Encode())
	if err != nil {
		t.Fatalf("decode filtered: %v", err)
	}
	if got != filtered {
		t.Fatalf("filtered mismatch: %+v != %+v", got, filtered)
	}

	all := GetInstances{ObjectID: 42, MapID: MapIDAll, RespondingMapID: 1000, RespondingInstanceID: 1}
	got, err = DecodeGetInstances(all.Encode())
	if err != nil {
		t.Fatalf("decode unfiltered: %v", err)
	}
	if got.MapID != MapIDAll {
		t.Fatalf("expected absent filter to decode as MapIDAll, got %d", got.MapID)
	}
	if len(all.Encode()) != len(filtered.Encode())-2 {
		t.Fatal("absent filter must omit the map field")
	}
}

func TestRespondInstancesRoundTrip(t *testing.T) {
	m := RespondInstances{
		ObjectID: 11,
		Instances: []InstanceRef{
			{MapID: 1000, CloneID: 0, InstanceID: 1},
			{MapID: 1200, CloneID: 5, InstanceID: 2},
		},
	}
	got, err := DecodeRespondInstances(m.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Instances) != 2 || got.Instances[1] != m.Instances[1] {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestDecodeRequestPrivateZoneTruncatedPassword(t *testing.T) {
	m := RequestPrivateZone{RequestID: 9, MythranShift: true, Password: "hunter2"}
	pkt := m.Encode()

	// Claiming more password bytes than the packet carries must error, not
	// read past the buffer.
	_, err := DecodeRequestPrivateZone(pkt[:len(pkt)-3])
	if err == nil {
		t.Fatal("expected truncated password to fail decoding")
	}
}
