// Package app wires the master orchestrator together and runs its lifecycle.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/embervale/nexus/internal/platform/discovery"
	"github.com/embervale/nexus/internal/services/master/content"
	"github.com/embervale/nexus/internal/services/master/instance"
	"github.com/embervale/nexus/internal/services/master/objectid"
	"github.com/embervale/nexus/internal/services/master/session"
	"github.com/embervale/nexus/internal/services/master/storage"
	"github.com/embervale/nexus/internal/services/master/storage/sqlite"
	"github.com/embervale/nexus/internal/services/master/transport"
	"github.com/embervale/nexus/internal/services/master/universe"
)

// serverVersion is recorded in the master's servers-table row.
const serverVersion = 171023

// prestartZones are resolved and marked ready at startup when prestart is
// enabled, so the first players skip the cold-spawn wait.
var prestartZones = []uint16{0, 1000}

// Config carries the resolved master configuration.
type Config struct {
	// ExternalIP is the address handed to clients for spawned worlds.
	ExternalIP string
	// MasterIP is the address advertised in the servers table; defaults to
	// ExternalIP when empty.
	MasterIP string
	// Port is the master listen port.
	Port int
	// MaxClients bounds concurrent fleet connections.
	MaxClients int
	// PrestartServers launches chat, auth, and the prestart zones at boot.
	PrestartServers bool
	// LogDebugStatements enables debug-level protocol logging.
	LogDebugStatements bool
	// UseSudoAuth and UseSudoChat elevate the respective child binaries.
	UseSudoAuth bool
	UseSudoChat bool
	// DatabasePath locates the run database.
	DatabasePath string
	// ClientLocation is the client resource root holding the content
	// database.
	ClientLocation string
	// BinDir holds the fleet child binaries.
	BinDir string
	// Flush is called on the log-flush cadence; nil disables it.
	Flush func() error
}

// Run starts the master orchestrator and blocks until shutdown completes.
// Startup failures (storage, content database, bind) are returned so main
// can exit non-zero.
func Run(ctx context.Context, logger *log.Logger, cfg Config) error {
	if logger == nil {
		logger = log.Default()
	}

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("connect run database: %w", err)
	}
	defer store.Close()

	contentDB, err := content.Open(cfg.ClientLocation)
	if err != nil {
		return fmt.Errorf("open content database: %w", err)
	}
	defer contentDB.Close()
	logger.Printf("content database at %s", contentDB.Path())

	ts := transport.NewServer(logger, cfg.MaxClients)
	if err := ts.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		return fmt.Errorf("bind master port: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ts.Close(closeCtx)
	}()
	logger.Printf("master listening on port %d", ts.Port())

	masterIP := cfg.MasterIP
	if masterIP == "" {
		masterIP = cfg.ExternalIP
	}
	err = store.UpsertServer(ctx, storage.ServerRecord{
		Name:    discovery.ServiceMaster,
		IP:      masterIP,
		Port:    int(ts.Port()),
		Version: serverVersion,
	})
	if err != nil {
		return fmt.Errorf("advertise master: %w", err)
	}

	allocator, err := objectid.NewAllocator(ctx, store)
	if err != nil {
		return fmt.Errorf("initialize object id allocator: %w", err)
	}

	launcher := instance.NewProcessLauncher(logger, cfg.BinDir, cfg.UseSudoAuth, cfg.UseSudoChat)
	manager := instance.NewManager(logger, cfg.ExternalIP, instance.NewRegistry(), launcher, ts)
	sessions := session.NewRegistry()

	u := universe.New(universe.Deps{
		Logger:    logger,
		Debug:     cfg.LogDebugStatements,
		Transport: ts,
		Manager:   manager,
		Sessions:  sessions,
		Allocator: allocator,
		Store:     store,
		Launcher:  launcher,
		Flush:     cfg.Flush,
	})

	if cfg.PrestartServers {
		prestart(logger, launcher, manager)
	}

	return u.Run(ctx)
}

// prestart brings up the chat relay, the always-on zones, and the auth
// frontend so a fresh universe is immediately playable.
func prestart(logger *log.Logger, launcher instance.Launcher, manager *instance.Manager) {
	if err := launcher.LaunchService(discovery.ServiceChat); err != nil {
		logger.Printf("prestart chat relay: %v", err)
	}

	for _, mapID := range prestartZones {
		in, err := manager.GetInstance(mapID, false, 0)
		if err != nil {
			logger.Printf("prestart zone %d: %v", mapID, err)
			continue
		}
		in.Ready = true
	}

	if err := launcher.LaunchService(discovery.ServiceAuth); err != nil {
		logger.Printf("prestart auth frontend: %v", err)
	}
}
