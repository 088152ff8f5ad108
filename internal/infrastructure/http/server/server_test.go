package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alchemorsel/mealplan/internal/application/shopping"
	"github.com/alchemorsel/mealplan/internal/domain/recipe"
	"github.com/alchemorsel/mealplan/internal/infrastructure/config"
	"github.com/alchemorsel/mealplan/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/mealplan/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/mealplan/internal/infrastructure/http/server"
	"github.com/alchemorsel/mealplan/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/pkg/errors"
	"github.com/alchemorsel/mealplan/pkg/healthcheck"
	"github.com/alchemorsel/mealplan/test/testutils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type ServerTestSuite struct {
	suite.Suite
	cfg    *config.Config
	cache  *memory.CacheRepository
	bread  *recipe.Recipe
	soup   *recipe.Recipe
	userID uuid.UUID
	router http.Handler
}

func (s *ServerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	chdir(s.T(), s.T().TempDir())

	cfg, err := config.Load("")
	s.Require().NoError(err)
	cfg.RateLimit.Enable = false
	s.cfg = cfg

	s.userID = uuid.New()
	s.bread = testutils.NewRecipeBuilder().
		WithTitle("Bread").
		WithServings(1).
		WithIngredient("flour", 2, "cup").
		MustBuild()
	s.soup = testutils.NewRecipeBuilder().
		WithTitle("Soup").
		WithServings(1).
		WithIngredient("Flour", 1, "cup").
		WithIngredient("garlic", 3, "clove").
		MustBuild()

	s.cache = memory.NewCacheRepository()
	s.router = s.newRouter(cfg)
}

func (s *ServerTestSuite) TearDownTest() {
	s.cache.Close()
}

func (s *ServerTestSuite) newRouter(cfg *config.Config) http.Handler {
	logger := zap.NewNop()
	metrics := monitoring.NewMetricsCollector(logger)
	bus := testutils.NewMockMessageBus()
	bus.SetupStandardMockBehavior()

	service := shopping.NewService(
		memory.NewShoppingListRepository(),
		memory.NewRecipeRepository(s.bread, s.soup),
		s.cache,
		bus,
		metrics,
		noop.NewTracerProvider().Tracer("test"),
		shopping.Config{CacheTTL: time.Minute, SaveRetries: 2, MaxManualName: 40, SubjectPrefix: "mealplan"},
		logger,
	)

	health := healthcheck.New("test", logger)
	srv, err := server.NewServer(
		cfg,
		logger,
		middleware.New(cfg, logger, noop.NewTracerProvider().Tracer("test")),
		middleware.NewAuthenticator(cfg.Auth, logger),
		handlers.NewShoppingHandlers(service, logger),
		health,
		metrics,
	)
	s.Require().NoError(err)
	return srv.Handler()
}

func (s *ServerTestSuite) do(method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		s.Require().NoError(err)
	}

	req := httptest.NewRequest(method, server.APIPrefix+path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.UserIDHeader, s.userID.String())
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *ServerTestSuite) decode(w *httptest.ResponseRecorder, out interface{}) {
	var resp apiResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	s.True(resp.Success)
	s.Require().NoError(json.Unmarshal(resp.Data, out))
}

func (s *ServerTestSuite) errorCode(w *httptest.ResponseRecorder) errors.ErrorCode {
	var resp errors.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error.Code
}

func (s *ServerTestSuite) addEntry(r *recipe.Recipe) uuid.UUID {
	entryID := uuid.New()
	w := s.do(http.MethodPost, "/entries", map[string]interface{}{
		"entry_id":  entryID,
		"recipe_id": r.ID(),
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	return entryID
}

func (s *ServerTestSuite) list() inbound.ShoppingListDTO {
	w := s.do(http.MethodGet, "", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var list inbound.ShoppingListDTO
	s.decode(w, &list)
	return list
}

func (s *ServerTestSuite) TestEntryLifecycle() {
	s.addEntry(s.bread)
	soupEntry := s.addEntry(s.soup)

	list := s.list()
	s.Equal(2, list.ItemCount)
	s.Equal("flour", list.Items[0].Name)
	s.Equal(3.0, list.Items[0].Quantity)
	s.Equal("cups", list.Items[0].Unit)

	w := s.do(http.MethodDelete, "/entries/"+soupEntry.String(), nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var change inbound.ListChangeDTO
	s.decode(w, &change)
	s.Len(change.Affected, 2)

	list = s.list()
	s.Require().Equal(1, list.ItemCount)
	s.InDelta(473.176, list.Items[0].TotalBaseQuantity, 1e-6)
	s.Equal(2.0, list.Items[0].Quantity)
}

func (s *ServerTestSuite) TestRebuild() {
	s.addEntry(s.bread)

	w := s.do(http.MethodPost, "/rebuild", map[string]interface{}{
		"entries": []inbound.PlannedEntry{testutils.PlannedEntry(s.soup, 2)},
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	list := s.list()
	s.Equal(2, list.ItemCount)
	for _, item := range list.Items {
		if item.Name == "garlic" {
			s.Equal(6.0, item.Quantity)
			s.Equal("clove", item.Unit)
		}
	}
}

func (s *ServerTestSuite) TestValidation() {
	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		code   errors.ErrorCode
	}{
		{"missing recipe", http.MethodPost, "/entries", map[string]interface{}{"entry_id": uuid.New()}, errors.CodeValidationFailed},
		{"negative servings", http.MethodPost, "/entries", map[string]interface{}{"entry_id": uuid.New(), "recipe_id": uuid.New(), "servings": -1}, errors.CodeValidationFailed},
		{"malformed body", http.MethodPost, "/items", "not an object", errors.CodeBadRequest},
		{"missing have", http.MethodPatch, "/items/" + uuid.NewString(), map[string]interface{}{}, errors.CodeValidationFailed},
		{"bad entry id", http.MethodDelete, "/entries/not-a-uuid", nil, errors.CodeValidationFailed},
		{"bad breakdown id", http.MethodGet, "/breakdown?item=nope", nil, errors.CodeValidationFailed},
		{"rebuild entry without recipe", http.MethodPost, "/rebuild", map[string]interface{}{"entries": []map[string]interface{}{{"entry_id": uuid.New()}}}, errors.CodeValidationFailed},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.do(tt.method, tt.path, tt.body)
			s.Equal(http.StatusBadRequest, w.Code, w.Body.String())
			s.Equal(tt.code, s.errorCode(w))
		})
	}
}

func (s *ServerTestSuite) TestUnknownRecipe() {
	w := s.do(http.MethodPost, "/entries", map[string]interface{}{
		"entry_id":  uuid.New(),
		"recipe_id": uuid.New(),
	})
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal(errors.CodeRecipeNotFound, s.errorCode(w))
}

func (s *ServerTestSuite) TestManualItems() {
	w := s.do(http.MethodPost, "/items", map[string]interface{}{"name": "Paper Towels", "quantity": 2, "unit": "rolls"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var item inbound.ShoppingItemDTO
	s.decode(w, &item)
	s.True(item.Manual)

	w = s.do(http.MethodPatch, "/items/"+item.ID.String(), map[string]interface{}{"have": true})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.decode(w, &item)
	s.True(item.Have)

	w = s.do(http.MethodDelete, "/items/"+item.ID.String(), nil)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodDelete, "/items/"+item.ID.String(), nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal(errors.CodeShoppingItemNotFound, s.errorCode(w))

	s.addEntry(s.bread)
	derived := s.list().Items[0]
	w = s.do(http.MethodDelete, "/items/"+derived.ID.String(), nil)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal(errors.CodeItemNotManual, s.errorCode(w))
}

func (s *ServerTestSuite) TestBreakdown() {
	s.addEntry(s.bread)
	s.addEntry(s.soup)
	flour := s.list().Items[0]

	w := s.do(http.MethodGet, "/breakdown?item="+flour.ID.String(), nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var breakdown []inbound.IngredientBreakdownDTO
	s.decode(w, &breakdown)
	s.Require().Len(breakdown, 1)
	s.Require().Len(breakdown[0].Recipes, 2)

	var sum float64
	titles := map[string]bool{}
	for _, r := range breakdown[0].Recipes {
		sum += r.BaseQuantity
		titles[r.RecipeTitle] = true
	}
	s.InDelta(breakdown[0].TotalBaseQuantity, sum, 1e-9)
	s.Equal(map[string]bool{"Bread": true, "Soup": true}, titles)

	w = s.do(http.MethodGet, "/breakdown", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &breakdown)
	s.Len(breakdown, 2)
}

func (s *ServerTestSuite) TestRequiresUser() {
	req := httptest.NewRequest(http.MethodGet, server.APIPrefix, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal(errors.CodeUnauthorized, s.errorCode(w))
}

func (s *ServerTestSuite) TestRequestIDEchoed() {
	w := s.do(http.MethodGet, "", nil, middleware.RequestIDHeader, "req-123")
	s.Equal("req-123", w.Header().Get(middleware.RequestIDHeader))

	w = s.do(http.MethodGet, "", nil)
	s.NotEmpty(w.Header().Get(middleware.RequestIDHeader))
}

func (s *ServerTestSuite) TestJWTAuthentication() {
	s.cfg.Auth = config.AuthConfig{Enabled: true, JWTSecret: "test-secret", Issuer: "alchemorsel"}
	s.router = s.newRouter(s.cfg)

	sign := func(issuer, secret string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   s.userID.String(),
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := token.SignedString([]byte(secret))
		s.Require().NoError(err)
		return "Bearer " + signed
	}

	w := s.do(http.MethodGet, "", nil, "Authorization", sign("alchemorsel", "test-secret"))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var list inbound.ShoppingListDTO
	s.decode(w, &list)
	s.Equal(s.userID, list.UserID)

	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "", nil, "Authorization", sign("someone-else", "test-secret")).Code)
	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "", nil, "Authorization", sign("alchemorsel", "wrong")).Code)
	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "", nil).Code, "X-User-ID is ignored when auth is enabled")
}

func (s *ServerTestSuite) TestRateLimit() {
	s.cfg.RateLimit.Enable = true
	s.cfg.RateLimit.RequestsPerMin = 1
	s.cfg.RateLimit.BurstSize = 2
	s.router = s.newRouter(s.cfg)

	s.Equal(http.StatusOK, s.do(http.MethodGet, "", nil).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "", nil).Code)

	w := s.do(http.MethodGet, "", nil)
	s.Equal(http.StatusTooManyRequests, w.Code)
	s.Equal(errors.CodeTooManyRequests, s.errorCode(w))
	s.Equal("60", w.Header().Get("Retry-After"))

	other := s.userID
	s.userID = uuid.New()
	s.Equal(http.StatusOK, s.do(http.MethodGet, "", nil).Code, "limits are per user")
	s.userID = other
}

func (s *ServerTestSuite) TestOperationalEndpoints() {
	s.addEntry(s.bread)

	for _, path := range []string{"/health", "/ready", "/live"} {
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		s.Equal(http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Require().Equal(http.StatusOK, w.Code)
	body := w.Body.String()
	s.True(strings.Contains(body, `mealplan_shopping_operations_total{operation="add_entry",status="success"} 1`), body)
	s.Contains(body, fmt.Sprintf(`http_requests_total{method="POST",path="%s/entries",status="200"}`, server.APIPrefix))

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal(errors.CodeNotFound, s.errorCode(w))
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
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
