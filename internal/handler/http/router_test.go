package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/darshil44/AI-Powered-Content-Explorer/internal/auth"
	"github.com/darshil44/AI-Powered-Content-Explorer/internal/cache"
	"github.com/darshil44/AI-Powered-Content-Explorer/internal/domain"
	"github.com/darshil44/AI-Powered-Content-Explorer/internal/event"
	"github.com/darshil44/AI-Powered-Content-Explorer/internal/service"
	apperrors "github.com/darshil44/AI-Powered-Content-Explorer/pkg/errors"
	"github.com/darshil44/AI-Powered-Content-Explorer/pkg/health"
	pkgkafka "github.com/darshil44/AI-Powered-Content-Explorer/pkg/kafka"
	"github.com/darshil44/AI-Powered-Content-Explorer/pkg/middleware"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockHistoryRepo struct {
	mock.Mock
}

func (m *mockHistoryRepo) CreateSearch(ctx context.Context, rec *domain.SearchRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockHistoryRepo) CreateImage(ctx context.Context, rec *domain.ImageRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockHistoryRepo) List(ctx context.Context, userID string, filter domain.HistoryFilter) ([]domain.HistoryItem, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.HistoryItem), args.Error(1)
}

func (m *mockHistoryRepo) DeleteSearch(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *mockHistoryRepo) DeleteImage(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

type mockTool struct {
	mock.Mock
}

func (m *mockTool) CallTool(ctx context.Context, name string, arguments any) (json.RawMessage, error) {
	args := m.Called(ctx, name, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *mockTool) Endpoint() string {
	return "https://tools.test/mcp"
}

// ============================================================================
// Fixture
// ============================================================================

type routerFixture struct {
	router     http.Handler
	users      *mockUserRepo
	history    *mockHistoryRepo
	searchTool *mockTool
	imageTool  *mockTool
	jwt        *auth.JWTManager
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	jwtManager := auth.NewJWTManager("test-secret-key-for-testing", time.Hour)

	kafkaProducer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig([]string{"localhost:9092"}), logger)
	producer := event.NewProducer(kafkaProducer, logger)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := cache.NewStore(client, 300*time.Second, 10*time.Second, 5*time.Millisecond)

	users := new(mockUserRepo)
	history := new(mockHistoryRepo)
	searchTool := new(mockTool)
	imageTool := new(mockTool)

	userService := service.NewUserService(users, jwtManager, producer, logger)
	explorerService := service.NewExplorerService(searchTool, imageTool, store, history, producer, logger)

	router := NewRouter(userService, explorerService, health.NewHandler(), logger, RouterConfig{
		TokenExpiry:  time.Hour,
		CookieSecure: false,
		CORS:         middleware.CORSConfig{AllowedOrigins: []string{"*"}, Environment: "development"},
	})

	return &routerFixture{
		router:     router,
		users:      users,
		history:    history,
		searchTool: searchTool,
		imageTool:  imageTool,
		jwt:        jwtManager,
	}
}

func (f *routerFixture) activeUser(id string) *domain.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte("Password1"), bcrypt.MinCost)
	return &domain.User{
		ID:           id,
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		IsActive:     true,
	}
}

// authedRequest builds a request carrying a valid bearer token for the user.
func (f *routerFixture) authedRequest(t *testing.T, method, target string, body []byte) *http.Request {
	t.Helper()
	token, err := f.jwt.Generate("u-1")
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func (f *routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// ============================================================================
// Auth endpoints
// ============================================================================

func TestRegister_SetsCookieAndReturnsToken(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("Create", mock.Anything, mock.Anything).Return(nil)

	body := []byte(`{"email":"alice@example.com","password":"Password1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := f.do(req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data AuthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.AccessToken)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.AccessTokenCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, resp.Data.AccessToken, cookies[0].Value)
}

func TestRegister_ValidationFailure(t *testing.T) {
	f := newRouterFixture(t)

	body := []byte(`{"email":"not-an-email","password":"Password1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := f.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("Create", mock.Anything, mock.Anything).
		Return(apperrors.AlreadyExists("user", "email", "alice@example.com"))

	body := []byte(`{"email":"alice@example.com","password":"Password1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := f.do(req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin_WrongPasswordIs401(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("GetByEmail", mock.Anything, "alice@example.com").Return(f.activeUser("u-1"), nil)

	body := []byte(`{"email":"alice@example.com","password":"WrongPass1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := f.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_ClearsCookie(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("GetByID", mock.Anything, "u-1").Return(f.activeUser("u-1"), nil)

	req := f.authedRequest(t, http.MethodPost, "/api/v1/auth/logout", nil)
	rec := f.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.AccessTokenCookie, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestMe_ReturnsProfile(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("GetByID", mock.Anything, "u-1").Return(f.activeUser("u-1"), nil)

	req := f.authedRequest(t, http.MethodGet, "/api/v1/auth/me", nil)
	rec := f.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice@example.com")
	assert.NotContains(t, rec.Body.String(), "password_hash")
}

// ============================================================================
// Session enforcement
// ============================================================================

func TestProtectedRoutes_RequireSession(t *testing.T) {
	f := newRouterFixture(t)

	targets := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/search"},
		{http.MethodPost, "/api/v1/image"},
		{http.MethodGet, "/api/v1/dashboard"},
		{http.MethodDelete, "/api/v1/dashboard/search/8b9f8a94-54d4-4581-9c1c-d1a88e5096c1"},
		{http.MethodGet, "/api/v1/auth/me"},
	}

	for _, target := range targets {
		req := httptest.NewRequest(target.method, target.path, nil)
		rec := f.do(req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", target.method, target.path)
	}
}

func TestSession_CookieCredentialAccepted(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("GetByID", mock.Anything, "u-1").Return(f.activeUser("u-1"), nil)

	token, err := f.jwt.Generate("u-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: token})

	rec := f.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSession_ExpiredTokenRejected(t *testing.T) {
	f := newRouterFixture(t)

	expired := auth.NewJWTManager("test-secret-key-for-testing", -time.Minute)
	token, err := expired.Generate("u-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := f.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ============================================================================
// Tool endpoints
// ============================================================================

func TestSearch_EndToEnd(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("GetByID", mock.Anything, "u-1").Return(f.activeUser("u-1"), nil)

	payload := json.RawMessage(`{"results":[{"title":"hit"}]}`)
	f.searchTool.On("CallTool", mock.Anything, "tavily-search", mock.Anything).Return(payload, nil).Once()
	f.history.On("CreateSearch", mock.Anything, mock.Anything).Return(nil).Once()

	req := f.authedRequest(t, http.MethodPost, "/api/v1/search", []byte(`{"query":"golang"}`))
	rec := f.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data service.SearchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Data.Cached)
	assert.NotEmpty(t, resp.Data.SavedID)

	// Second request is served from the cache.
	req = f.authedRequest(t, http.MethodPost, "/api/v1/search", []byte(`{"query":"golang"}`))
	rec = f.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Cached)
	f.searchTool.AssertNumberOfCalls(t, "CallTool", 1)
}

func TestSearch_EmptyQueryIs400(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("GetByID", mock.Anything, "u-1").Return(f.activeUser("u-1"), nil)

	req := f.authedRequest(t, http.MethodPost, "/api/v1/search", []byte(`{"query":""}`))
	rec := f.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_ToolUnavailableIs502(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("GetByID", mock.Anything, "u-1").Return(f.activeUser("u-1"), nil)

	f.searchTool.On("CallTool", mock.Anything, "tavily-search", mock.Anything).
		Return(nil, apperrors.ToolUnavailable("search provider", assert.AnError)).Once()

	req := f.authedRequest(t, http.MethodPost, "/api/v1/search", []byte(`{"query":"golang"}`))
	rec := f.do(req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOOL_UNAVAILABLE")
}

func TestImage_EndToEnd(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("GetByID", mock.Anything, "u-1").Return(f.activeUser("u-1"), nil)

	payload := json.RawMessage(`{"url":"https://img.example.com/cat.png"}`)
	f.imageTool.On("CallTool", mock.Anything, "generateImageUrl", mock.Anything).Return(payload, nil).Once()
	f.history.On("CreateImage", mock.Anything, mock.Anything).Return(nil).Once()

	req := f.authedRequest(t, http.MethodPost, "/api/v1/image", []byte(`{"prompt":"a cat"}`))
	rec := f.do(req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data service.ImageResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://img.example.com/cat.png", resp.Data.ImageURL)
}

func TestImage_MissingURLIs502(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("GetByID", mock.Anything, "u-1").Return(f.activeUser("u-1"), nil)

	f.imageTool.On("CallTool", mock.Anything, "generateImageUrl", mock.Anything).
		Return(json.RawMessage(`{"status":"ok"}`), nil).Once()

	req := f.authedRequest(t, http.MethodPost, "/api/v1/image", []byte(`{"prompt":"a cat"}`))
	rec := f.do(req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "BAD_GATEWAY_RESPONSE")
}

// ============================================================================
// Dashboard endpoints
// ============================================================================

func TestDashboard_ListWithFilters(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("GetByID", mock.Anything, "u-1").Return(f.activeUser("u-1"), nil)

	items := []domain.HistoryItem{{ID: "s-1", Kind: domain.ToolSearch, Input: "golang"}}
	f.history.On("List", mock.Anything, "u-1", mock.MatchedBy(func(filter domain.HistoryFilter) bool {
		return filter.Kind == domain.ToolSearch && filter.Keyword == "go" && filter.From != nil
	})).Return(items, nil)

	req := f.authedRequest(t, http.MethodGet, "/api/v1/dashboard?type=search&keyword=go&date_from=2026-01-01", nil)
	rec := f.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"s-1"`)
}

func TestDashboard_BadDateIs400(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("GetByID", mock.Anything, "u-1").Return(f.activeUser("u-1"), nil)

	req := f.authedRequest(t, http.MethodGet, "/api/v1/dashboard?date_from=tomorrow", nil)
	rec := f.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboard_DeleteSearch(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("GetByID", mock.Anything, "u-1").Return(f.activeUser("u-1"), nil)

	id := "8b9f8a94-54d4-4581-9c1c-d1a88e5096c1"
	f.history.On("DeleteSearch", mock.Anything, "u-1", id).Return(nil)

	req := f.authedRequest(t, http.MethodDelete, "/api/v1/dashboard/search/"+id, nil)
	rec := f.do(req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDashboard_DeleteForeignRecordIs404(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("GetByID", mock.Anything, "u-1").Return(f.activeUser("u-1"), nil)

	id := "8b9f8a94-54d4-4581-9c1c-d1a88e5096c1"
	f.history.On("DeleteImage", mock.Anything, "u-1", id).
		Return(apperrors.NotFound("history record", id))

	req := f.authedRequest(t, http.MethodDelete, "/api/v1/dashboard/image/"+id, nil)
	rec := f.do(req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboard_DeleteBadUUIDIs400(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("GetByID", mock.Anything, "u-1").Return(f.activeUser("u-1"), nil)

	req := f.authedRequest(t, http.MethodDelete, "/api/v1/dashboard/search/not-a-uuid", nil)
	rec := f.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
