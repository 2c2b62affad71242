// Package master parses master command flags and starts the orchestrator.
package master

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	entrypoint "github.com/embervale/nexus/internal/platform/cmd"
	"github.com/embervale/nexus/internal/platform/discovery"
	"github.com/embervale/nexus/internal/services/master/account"
	"github.com/embervale/nexus/internal/services/master/app"
	"github.com/embervale/nexus/internal/services/master/storage/sqlite"
)

// Config holds master command configuration.
type Config struct {
	ExternalIP         string `env:"NEXUS_EXTERNAL_IP" envDefault:"127.0.0.1"`
	MasterIP           string `env:"NEXUS_MASTER_IP"`
	Port               int    `env:"NEXUS_MASTER_PORT" envDefault:"2000"`
	MaxClients         int    `env:"NEXUS_MAX_CLIENTS" envDefault:"999"`
	PrestartServers    bool   `env:"NEXUS_PRESTART_SERVERS"`
	LogToConsole       bool   `env:"NEXUS_LOG_TO_CONSOLE" envDefault:"true"`
	LogDebugStatements bool   `env:"NEXUS_LOG_DEBUG_STATEMENTS"`
	UseSudoAuth        bool   `env:"NEXUS_USE_SUDO_AUTH"`
	UseSudoChat        bool   `env:"NEXUS_USE_SUDO_CHAT"`
	DatabasePath       string `env:"NEXUS_DATABASE_PATH" envDefault:"master.sqlite"`
	ClientLocation     string `env:"NEXUS_CLIENT_LOCATION" envDefault:"./res"`
	BinDir             string `env:"NEXUS_BIN_DIR" envDefault:"."`
	LogDir             string `env:"NEXUS_LOG_DIR" envDefault:"logs"`

	// CreateAccount switches the binary into interactive operator-account
	// creation instead of serving.
	CreateAccount bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The master listen port")
	fs.BoolVar(&cfg.CreateAccount, "a", cfg.CreateAccount, "Create an operator account and exit")
	fs.BoolVar(&cfg.CreateAccount, "account", cfg.CreateAccount, "Create an operator account and exit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the master orchestrator, or the account-creation path when
// requested.
func Run(ctx context.Context, cfg Config) error {
	if cfg.CreateAccount {
		return createAccount(ctx, cfg)
	}

	logger, flush, closeLog := buildLogger(cfg)
	defer closeLog()

	return entrypoint.RunWithTelemetry(ctx, discovery.ServiceMaster, func(ctx context.Context) error {
		return app.Run(ctx, logger, app.Config{
			ExternalIP:         cfg.ExternalIP,
			MasterIP:           cfg.MasterIP,
			Port:               cfg.Port,
			MaxClients:         cfg.MaxClients,
			PrestartServers:    cfg.PrestartServers,
			LogDebugStatements: cfg.LogDebugStatements,
			UseSudoAuth:        cfg.UseSudoAuth,
			UseSudoChat:        cfg.UseSudoChat,
			DatabasePath:       cfg.DatabasePath,
			ClientLocation:     cfg.ClientLocation,
			BinDir:             cfg.BinDir,
			Flush:              flush,
		})
	})
}

// createAccount opens the run database and walks the operator through
// account creation.
func createAccount(ctx context.Context, cfg Config) error {
	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("connect run database: %w", err)
	}
	defer store.Close()
	return account.RunInteractive(ctx, store, os.Stdin, os.Stdout)
}

// buildLogger opens the timestamped master log file, optionally teeing to
// the console. A file-open failure falls back to console-only logging.
func buildLogger(cfg Config) (logger *log.Logger, flush func() error, closeLog func()) {
	path := filepath.Join(cfg.LogDir, fmt.Sprintf("master_%d.log", time.Now().Unix()))
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return log.New(os.Stdout, "[MASTER] ", log.LstdFlags), nil, func() {}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return log.New(os.Stdout, "[MASTER] ", log.LstdFlags), nil, func() {}
	}

	var out io.Writer = file
	if cfg.LogToConsole {
		out = io.MultiWriter(file, os.Stdout)
	}
	return log.New(out, "[MASTER] ", log.LstdFlags), file.Sync, func() { _ = file.Close() }
}
