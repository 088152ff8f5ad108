package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "mealplan.db", cfg.Database.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Messaging.Provider)
	assert.Equal(t, 5*time.Minute, cfg.Shopping.CacheTTL)
	assert.Empty(t, cfg.Source())
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
app:
  log_level: debug
database:
  driver: postgres
  database: plans
  read_replicas: ["replica-1", "replica-2"]
shopping:
  cache_ttl: 30s
`)
	t.Setenv("MEALPLAN_SERVER_PORT", "9091")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, []string{"replica-1", "replica-2"}, cfg.Database.ReadReplicas)
	assert.Equal(t, 30*time.Second, cfg.Shopping.CacheTTL)
	assert.Equal(t, 9091, cfg.Server.Port)
	assert.Equal(t, path, cfg.Source())
	assert.Contains(t, cfg.GetDSN(), "dbname=plans")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "unsupported database.driver"},
		{"auth without secret", func(c *Config) { c.Auth.Enabled = true }, "jwt_secret"},
		{"production without secret", func(c *Config) { c.App.Environment = "production" }, "jwt_secret"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad messaging", func(c *Config) { c.Messaging.Provider = "kafka" }, "messaging.provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			cfg, err := Load("")
			require.NoError(t, err)

			tt.mutate(cfg)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "app:\n  log_level: info\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	w, err := NewWatcher(cfg, zap.NewNop())
	require.NoError(t, err)
	w.debounceDelay = 10 * time.Millisecond
	defer w.Close()

	levels := make(chan string, 4)
	w.OnChange(func(c *Config) { levels <- c.App.LogLevel })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeConfig(t, dir, "app:\n  log_level: debug\n")

	select {
	case level := <-levels:
		assert.Equal(t, "debug", level)
	case <-time.After(5 * time.Second):
		t.Fatal("configuration change was not observed")
	}
}

func TestWatcher_NoReloadAfterClose(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "app:\n  log_level: info\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	w, err := NewWatcher(cfg, zap.NewNop())
	require.NoError(t, err)
	w.debounceDelay = time.Millisecond

	var calls atomic.Int32
	w.OnChange(func(*Config) { calls.Add(1) })

	require.NoError(t, w.Close())

	// a timer that fired before Close lands here
	w.reload()
	w.schedule()
	time.Sleep(20 * time.Millisecond)

	assert.Zero(t, calls.Load())
	w.mu.Lock()
	assert.Nil(t, w.timer)
	w.mu.Unlock()
}

func TestNewWatcher_RequiresFile(t *testing.T) {
	_, err := NewWatcher(&Config{}, zap.NewNop())
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
