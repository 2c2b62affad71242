// Package discovery centralizes fleet naming and port conventions.
package discovery

import "strings"

const (
	// ServiceMaster is the master orchestrator identity.
	ServiceMaster = "master"
	// ServiceAuth is the authentication frontend identity.
	ServiceAuth = "auth"
	// ServiceChat is the chat relay identity.
	ServiceChat = "chat"
	// ServiceWorld is the per-zone world instance identity.
	ServiceWorld = "world"
)

// binaries maps a service identity to the child binary launched for it.
var binaries = map[string]string{
	ServiceAuth:  "AuthServer",
	ServiceChat:  "ChatServer",
	ServiceWorld: "WorldServer",
}

var defaultPorts = map[string]int{
	ServiceMaster: 2000,
	ServiceAuth:   1001,
	ServiceChat:   2005,
}

// WorldPortBase is the first port probed when placing a new world instance.
const WorldPortBase = 3000

// BinaryName returns the child binary name for a spawnable service, or ""
// when the service is not launched by master.
func BinaryName(service string) string {
	return binaries[strings.TrimSpace(service)]
}

// DefaultPort returns the conventional listen port for a service, or 0 when
// the service has no fixed port (world instances are placed dynamically).
func DefaultPort(service string) int {
	return defaultPorts[strings.TrimSpace(service)]
}
