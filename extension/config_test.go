package extension

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/escrow"
	audithook "github.com/xraph/escrow/audit_hook"
	"github.com/xraph/escrow/host/sim"
	"github.com/xraph/escrow/store/memory"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "escrow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
driver: sqlite
dsn: "file:escrow.db"
crank_schedule: "@every 1m"
plugin_timeout: 2s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.Equal(t, "file:escrow.db", cfg.DSN)
	assert.Equal(t, "@every 1m", cfg.CrankSchedule)
	assert.Equal(t, 2*time.Second, cfg.PluginTimeout)
	assert.Equal(t, DefaultConfig().CrankBatchSize, cfg.CrankBatchSize)
	assert.Equal(t, "escrow", cfg.Database)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, "driver: memory\n")
	t.Setenv("ESCROW_CRANK_BATCH_SIZE", "7")
	t.Setenv("ESCROW_METRICS", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.CrankBatchSize)
	assert.True(t, cfg.Metrics)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "driver: postgres\n"))
	assert.ErrorContains(t, err, "requires a dsn")

	_, err = LoadConfig(writeConfig(t, "driver: cassandra\n"))
	assert.ErrorContains(t, err, "unknown store driver")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMergeConfigurations(t *testing.T) {
	yaml := Config{Driver: DriverSQLite, DSN: "file:a.db"}
	prog := Config{Driver: DriverPostgres, DSN: "postgres://x", DisableMigrate: true, CrankSchedule: "@hourly"}

	got := mergeConfigurations(yaml, prog)
	assert.Equal(t, DriverSQLite, got.Driver)
	assert.Equal(t, "file:a.db", got.DSN)
	assert.True(t, got.DisableMigrate)
	assert.Equal(t, "@hourly", got.CrankSchedule)
	assert.Equal(t, DefaultConfig().PluginTimeout, got.PluginTimeout)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, err := OpenStore(ctx, DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)

	cfg := DefaultConfig()
	cfg.Driver, cfg.DSN = DriverSQLite, "file:openstore?mode=memory&cache=shared"
	s, err = OpenStore(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Ping(ctx))
}

func TestBuildEscrowOpts(t *testing.T) {
	e := New(WithConfig(Config{Keeper: "not-an-address"}))
	_, err := e.buildEscrowOpts()
	assert.ErrorContains(t, err, "keeper")

	e = New(WithConfig(mergeWithDefaults(Config{Keeper: "0x00000000000000000000000000000000000000aa"})))
	opts, err := e.buildEscrowOpts()
	require.NoError(t, err)
	assert.NotEmpty(t, opts)
}

func TestAuditRecorderIsRegistered(t *testing.T) {
	e := New(
		WithConfig(mergeWithDefaults(Config{})),
		WithAuditRecorder(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error { return nil })),
	)
	opts, err := e.buildEscrowOpts()
	require.NoError(t, err)

	eng := escrow.New(memory.New(), sim.New(), opts...)
	assert.NotNil(t, eng.Plugins().Get("audit-hook"))
}
