package container

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/sqlite"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func writeConfig(t *testing.T, port int) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`
app:
  log_level: error
server:
  host: 127.0.0.1
  port: %d
database:
  driver: sqlite
  path: %s
  seed: true
rate_limit:
  enable: false
`, port, filepath.Join(dir, "mealplan.db"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestModule_Validates(t *testing.T) {
	err := fx.ValidateApp(
		Module,
		fx.Supply(ConfigPath("")),
	)
	require.NoError(t, err)
}

func TestModule_ServesSeededPlan(t *testing.T) {
	port := freePort(t)

	var service inbound.ShoppingService
	app := fxtest.New(t,
		Module,
		fx.Supply(ConfigPath(writeConfig(t, port))),
		fx.Populate(&service),
	)
	app.RequireStart()
	defer app.RequireStop()

	userID := uuid.New()
	change, err := service.AddEntry(context.Background(), inbound.AddEntryCommand{
		UserID:   userID,
		EntryID:  uuid.New(),
		RecipeID: sqlite.SeedPancakesID,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, change.Affected)

	list, err := service.GetList(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Version)

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/live")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	req, err := http.NewRequest(http.MethodGet, base+"/api/v1/shopping-list", nil)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", userID.String())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
