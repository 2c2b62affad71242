package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/embervale/nexus/internal/services/master/content"
	"github.com/embervale/nexus/internal/services/master/storage/sqlite"
	_ "modernc.org/sqlite"
)

// seedContentDB drops a minimal content database under dir.
func seedContentDB(t *testing.T, dir string) {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(dir, content.DatabaseFile))
	if err != nil {
		t.Fatalf("seed content db: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE zones (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("seed content schema: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close content seed: %v", err)
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	resDir := filepath.Join(dir, "res")
	if err := os.MkdirAll(resDir, 0o755); err != nil {
		t.Fatalf("mkdir res: %v", err)
	}
	seedContentDB(t, resDir)

	return Config{
		ExternalIP:     "127.0.0.1",
		Port:           0,
		MaxClients:     16,
		DatabasePath:   filepath.Join(dir, "master.sqlite"),
		ClientLocation: resDir,
		BinDir:         dir,
	}
}

func TestRunAdvertisesMasterAndShutsDownCleanly(t *testing.T) {
	cfg := testConfig(t)
	logger := log.New(appTestWriter{t}, "", 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, logger, cfg)
	}()

	// Give startup time to bind and upsert, then stop the universe.
	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run never returned after cancel")
	}

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()

	rec, err := store.GetServer(context.Background(), "master")
	if err != nil {
		t.Fatalf("read master row: %v", err)
	}
	if rec.IP != "127.0.0.1" || rec.Version != serverVersion {
		t.Fatalf("unexpected master row %+v", rec)
	}
}

func TestRunFailsWithoutContentDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.ClientLocation = t.TempDir()

	err := Run(context.Background(), log.New(appTestWriter{t}, "", 0), cfg)
	if err == nil {
		t.Fatal("expected missing content database to be fatal")
	}
}

func TestRunFailsOnUnopenableRunDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabasePath = "   "

	err := Run(context.Background(), log.New(appTestWriter{t}, "", 0), cfg)
	if err == nil {
		t.Fatal("expected storage failure to be fatal")
	}
	if errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected error: %v", err)
	}
}

// appTestWriter routes app logs through the test output.
type appTestWriter struct{ t *testing.T }

func (w appTestWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", p)
	return len(p), nil
}
