package instance

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/embervale/nexus/internal/platform/discovery"
)

// WorldSpec carries the launch arguments for a world-server process.
type WorldSpec struct {
	IP         string
	Port       uint16
	MapID      uint16
	InstanceID uint16
	CloneID    uint32
	MaxPlayers int
}

// Launcher starts fleet child processes. The process must be started without
// blocking on its readiness; the ready gate covers the gap.
type Launcher interface {
	// LaunchWorld spawns a world server for the given zone slice.
	LaunchWorld(spec WorldSpec) error
	// LaunchService spawns a named fleet service (auth, chat).
	LaunchService(service string) error
}

// ProcessLauncher spawns child binaries from a directory with inherited
// stdio, replacing the shell-out launch of older builds.
type ProcessLauncher struct {
	logger *log.Logger
	binDir string

	// Sudo elevation per service, preserved for deployments that bind
	// privileged ports.
	sudoServices map[string]bool
}

// NewProcessLauncher returns a launcher rooted at binDir.
func NewProcessLauncher(logger *log.Logger, binDir string, sudoAuth, sudoChat bool) *ProcessLauncher {
	if logger == nil {
		logger = log.Default()
	}
	return &ProcessLauncher{
		logger: logger,
		binDir: binDir,
		sudoServices: map[string]bool{
			discovery.ServiceAuth: sudoAuth,
			discovery.ServiceChat: sudoChat,
		},
	}
}

// LaunchWorld spawns a world server for the given zone slice.
func (l *ProcessLauncher) LaunchWorld(spec WorldSpec) error {
	binary := discovery.BinaryName(discovery.ServiceWorld)
	args := []string{
		"-ip", spec.IP,
		"-port", strconv.Itoa(int(spec.Port)),
		"-zone", strconv.Itoa(int(spec.MapID)),
		"-instance", strconv.Itoa(int(spec.InstanceID)),
		"-clone", strconv.FormatUint(uint64(spec.CloneID), 10),
		"-maxclients", strconv.Itoa(spec.MaxPlayers),
	}
	return l.start(binary, false, args...)
}

// LaunchService spawns a named fleet service.
func (l *ProcessLauncher) LaunchService(service string) error {
	binary := discovery.BinaryName(service)
	if binary == "" {
		return fmt.Errorf("service %q is not spawnable", service)
	}
	return l.start(binary, l.sudoServices[service])
}

// start runs a child binary detached from the loop, reaping it in the
// background so no zombies accumulate.
func (l *ProcessLauncher) start(binary string, sudo bool, args ...string) error {
	path := filepath.Join(l.binDir, binary)

	var cmd *exec.Cmd
	if sudo {
		cmd = exec.Command("sudo", append([]string{path}, args...)...)
	} else {
		cmd = exec.Command(path, args...)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", binary, err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			l.logger.Printf("%s exited: %v", binary, err)
		}
	}()
	return nil
}
