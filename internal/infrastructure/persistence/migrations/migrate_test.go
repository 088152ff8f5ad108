package migrations

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "migrate.db")+"?_foreign_keys=on")
	require.NoError(t, err)
	return db
}

func columnExists(t *testing.T, db *sql.DB, table, column string) bool {
	t.Helper()
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestMigrator_SQLiteUpDown(t *testing.T) {
	db := openSQLite(t)
	m, err := New(db, DriverSQLite, zap.NewNop())
	require.NoError(t, err)
	defer m.Close()

	// Up applies all migrations and is idempotent
	require.NoError(t, m.Up())
	require.NoError(t, m.Up())

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
	assert.False(t, dirty)
	assert.True(t, columnExists(t, db, "shopping_item_contributions", "planner_entry_id"))
	assert.False(t, columnExists(t, db, "shopping_items", "state_key"))

	// Down restores the legacy state key
	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.True(t, columnExists(t, db, "shopping_items", "state_key"))

	status, err := m.Status()
	require.NoError(t, err)
	assert.Len(t, status.Applied, 2)
	require.Len(t, status.Pending, 1)
	assert.Equal(t, uint(3), status.Pending[0].Version)
	assert.Equal(t, "create_shopping_item_contributions", status.Pending[0].Name)

	require.NoError(t, m.Reset())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}

func TestMigrator_UpgradeDropsStateKeyedLines(t *testing.T) {
	db := openSQLite(t)
	m, err := New(db, DriverSQLite, zap.NewNop())
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.migrate.Steps(2))
	_, err = db.Exec(`INSERT INTO shopping_lists (user_id, version) VALUES ('u1', 1)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO shopping_items (id, user_id, ingredient_name, dimension, manual, state_key)
		VALUES ('derived', 'u1', 'flour', 'volume', FALSE, 'e1,e2'),
		       ('manual', 'u1', 'foil', 'count', TRUE, '')`)
	require.NoError(t, err)

	require.NoError(t, m.Up())

	var ids []string
	rows, err := db.Query(`SELECT id FROM shopping_items`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"manual"}, ids)
}

func TestMigrator_UnsupportedDriver(t *testing.T) {
	_, err := New(nil, "mysql", zap.NewNop())
	assert.Error(t, err)
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	up, down, err := CreateMigration(dir, "add_aisles")
	require.NoError(t, err)

	assert.FileExists(t, up)
	assert.FileExists(t, down)
	body, err := os.ReadFile(up)
	require.NoError(t, err)
	assert.Contains(t, string(body), "add_aisles")
}
