package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calendrier-dev/calendrier/internal/config"
	"github.com/calendrier-dev/calendrier/internal/models"
	"github.com/calendrier-dev/calendrier/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var userA = models.User{ID: 1, Username: "a", Email: "a@a.com"}

// fakeAPI is a scripted remote API that counts calls per path
type fakeAPI struct {
	mu      sync.Mutex
	calls   map[string]int
	handler http.HandlerFunc
	total   int32
}

func newFakeAPI(t *testing.T, handler http.HandlerFunc) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{calls: map[string]int{}, handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.total, 1)
		f.mu.Lock()
		f.calls[r.URL.Path]++
		f.mu.Unlock()
		f.handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeAPI) Total() int {
	return int(atomic.LoadInt32(&f.total))
}

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:        "3000",
			Environment: "test",
			PublicURL:   "http://localhost:3000",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		API: config.APIConfig{
			BaseURL: apiURL,
			Timeout: 5 * time.Second,
		},
		Auth: config.AuthConfig{
			GuardWait: 2 * time.Second,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s, err := New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)
	return s
}

// sessionCookies returns the cookies a browser holds after a login
func sessionCookies(t *testing.T, token string, user models.User) []*http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	store := storage.NewCookieStore(rec, httptest.NewRequest(http.MethodGet, "/", nil), storage.CookieOptions{}, zerolog.Nop())
	store.SetToken(token)
	store.SetUser(user)
	return rec.Result().Cookies()
}

func do(s *Server, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig("http://127.0.0.1:1"))
	rec := do(s, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"online"`)
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, testConfig("http://127.0.0.1:1"))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	_, err := ulid.ParseStrict(rec.Header().Get(requestIDHeader))
	assert.NoError(t, err)

	id := ulid.Make().String()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, id)
	rec = do(s, req)
	assert.Equal(t, id, rec.Header().Get(requestIDHeader))
}

func TestEdgeGuard(t *testing.T) {
	api, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(userA)
	})
	s := newTestServer(t, testConfig(srv.URL))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/dashboard/teams/mine", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = do(s, httptest.NewRequest(http.MethodGet, "/login", nil), &http.Cookie{Name: storage.TokenKey, Value: "t1"})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = do(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 0, api.Total())
}

func TestEdgeGuard_DisabledInDevMode(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Auth.DevMode = true
	s := newTestServer(t, cfg)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/login", nil), &http.Cookie{Name: storage.TokenKey, Value: "t1"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Signed in as Developer")
}

func TestLogin_InvalidFormNeverCallsAPI(t *testing.T) {
	api, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {})
	s := newTestServer(t, testConfig(srv.URL))

	tests := []struct {
		name  string
		form  url.Values
		field string
		msg   string
	}{
		{"bad email", url.Values{"email": {"nope"}, "password": {"x"}}, "email", "Invalid email"},
		{"empty password", url.Values{"email": {"a@a.com"}, "password": {""}}, "password", "Password is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, postForm("/login", tt.form))
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, rec.Body.String(), `data-field="`+tt.field+`">`+tt.msg)
		})
	}
	assert.Equal(t, 0, api.Total())
}

func TestLogin_Success(t *testing.T) {
	api, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.AuthResponse{Token: "t1", User: userA})
	})
	s := newTestServer(t, testConfig(srv.URL))

	rec := do(s, postForm("/login", url.Values{"email": {"a@a.com"}, "password": {"x"}}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Equal(t, 1, api.Calls("/user/login"))

	token := findCookie(rec, storage.TokenKey)
	require.NotNil(t, token)
	assert.Equal(t, "t1", token.Value)
	assert.Equal(t, http.SameSiteStrictMode, token.SameSite)
	assert.True(t, token.HttpOnly)
	require.NotNil(t, findCookie(rec, storage.UserKey))

	// the success banner survives the redirect
	require.NotNil(t, findCookie(rec, flashCookie))

	next := do(s, httptest.NewRequest(http.MethodGet, "/dashboard", nil), rec.Result().Cookies()...)
	assert.Equal(t, http.StatusOK, next.Code)
	assert.Contains(t, next.Body.String(), "Signed in successfully")
	assert.Contains(t, next.Body.String(), "Signed in as a")
}

func TestLogin_Unauthorized(t *testing.T) {
	_, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Invalid email or password"}`))
	})
	s := newTestServer(t, testConfig(srv.URL))

	rec := do(s, postForm("/login", url.Values{"email": {"a@a.com"}, "password": {"wrong"}}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password")
	assert.Contains(t, rec.Body.String(), `value="a@a.com"`)

	if c := findCookie(rec, storage.TokenKey); c != nil {
		assert.Empty(t, c.Value)
	}
}

func TestRegister_MismatchNeverCallsAPI(t *testing.T) {
	api, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {})
	s := newTestServer(t, testConfig(srv.URL))

	rec := do(s, postForm("/register", url.Values{
		"username":        {"ab"},
		"email":           {"a@a.com"},
		"password":        {"secret1"},
		"confirmPassword": {"secret2"},
	}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-field="confirmPassword">Passwords do not match`)
	assert.Equal(t, 0, api.Total())
}

func TestForms_UnreadableBodyIsFormError(t *testing.T) {
	api, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {})
	s := newTestServer(t, testConfig(srv.URL))

	for _, path := range []string{"/login", "/register"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"email":`))
			req.Header.Set("Content-Type", "application/json")

			rec := do(s, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `data-field="form">`+msgFormUnreadable)
			assert.NotContains(t, rec.Body.String(), `data-field="email"`)
		})
	}
	assert.Equal(t, 0, api.Total())
}

func TestRegister_Success(t *testing.T) {
	api, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NotContains(t, string(body), "confirm")
		w.WriteHeader(http.StatusCreated)
	})
	s := newTestServer(t, testConfig(srv.URL))

	rec := do(s, postForm("/register", url.Values{
		"username":        {"ab"},
		"email":           {"a@a.com"},
		"password":        {"secret1"},
		"confirmPassword": {"secret1"},
	}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Equal(t, 1, api.Calls("/user/register"))
	assert.Nil(t, findCookie(rec, storage.TokenKey))
}

func TestDashboard_ValidSession(t *testing.T) {
	api, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer t2", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(userA)
	})
	s := newTestServer(t, testConfig(srv.URL))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/dashboard/teams/roles", nil), sessionCookies(t, "t2", userA)...)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Signed in as a")
	assert.Contains(t, body, `<a href="/dashboard/teams/roles" class="active" aria-current="page">Roles</a>`)
	assert.NotContains(t, body, "data-pending")
	assert.Equal(t, 1, api.Calls("/user/me"))
}

func TestDashboard_UnknownSection(t *testing.T) {
	_, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(userA)
	})
	s := newTestServer(t, testConfig(srv.URL))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/dashboard/nope", nil), sessionCookies(t, "t2", userA)...)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboard_RejectedSessionLogsOut(t *testing.T) {
	_, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	s := newTestServer(t, testConfig(srv.URL))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/dashboard", nil), sessionCookies(t, "t2", userA)...)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	token := findCookie(rec, storage.TokenKey)
	require.NotNil(t, token)
	assert.Empty(t, token.Value)
	assert.Less(t, token.MaxAge, 0)
}

func TestDashboard_PartialSessionReachesLogin(t *testing.T) {
	tests := []struct {
		name    string
		cookies []*http.Cookie
	}{
		{"token without user", []*http.Cookie{{Name: storage.TokenKey, Value: "t2"}}},
		{"malformed user", []*http.Cookie{
			{Name: storage.TokenKey, Value: "t2"},
			{Name: storage.UserKey, Value: "%%%not-base64"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {})
			s := newTestServer(t, testConfig(srv.URL))

			rec := do(s, httptest.NewRequest(http.MethodGet, "/dashboard", nil), tt.cookies...)

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/login", rec.Header().Get("Location"))
			assert.Equal(t, 0, api.Total())

			token := findCookie(rec, storage.TokenKey)
			require.NotNil(t, token)
			assert.Empty(t, token.Value)
			assert.Less(t, token.MaxAge, 0)

			// the browser drops the cleared cookies and lands on the form
			login := do(s, httptest.NewRequest(http.MethodGet, "/login", nil))
			assert.Equal(t, http.StatusOK, login.Code)
			assert.Contains(t, login.Body.String(), `action="/login"`)
		})
	}
}

func TestDashboard_SlowValidationShowsLoading(t *testing.T) {
	release := make(chan struct{})
	_, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	cfg := testConfig(srv.URL)
	cfg.Auth.GuardWait = 20 * time.Millisecond
	s := newTestServer(t, cfg)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/dashboard", nil), sessionCookies(t, "t2", userA)...)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "data-loading")
	assert.Contains(t, rec.Body.String(), `http-equiv="refresh"`)
	assert.Nil(t, findCookie(rec, storage.TokenKey))
}

func TestLogout(t *testing.T) {
	api, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {})
	s := newTestServer(t, testConfig(srv.URL))

	rec := do(s, httptest.NewRequest(http.MethodPost, "/logout", nil), sessionCookies(t, "t2", userA)...)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	for _, name := range []string{storage.TokenKey, storage.UserKey} {
		c := findCookie(rec, name)
		require.NotNil(t, c, name)
		assert.Less(t, c.MaxAge, 0)
	}
	assert.Equal(t, 0, api.Total())
}

func TestRefreshProfile_FailureLogsOut(t *testing.T) {
	var calls int32
	_, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		// the guard's check passes, the refresh fails
		if atomic.AddInt32(&calls, 1) == 1 {
			json.NewEncoder(w).Encode(userA)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})
	s := newTestServer(t, testConfig(srv.URL))

	rec := do(s, httptest.NewRequest(http.MethodPost, "/dashboard/refresh", nil), sessionCookies(t, "t2", userA)...)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestAPISession(t *testing.T) {
	_, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(userA)
	})
	s := newTestServer(t, testConfig(srv.URL))

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := do(s, req, sessionCookies(t, "t2", userA)...)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "authenticated", resp.Status)
	assert.True(t, resp.Authenticated)
	assert.True(t, resp.Confirmed)
	assert.Equal(t, userA, *resp.User)
}

func TestAPISession_DevModeNoNetwork(t *testing.T) {
	api, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {})
	cfg := testConfig(srv.URL)
	cfg.Auth.DevMode = true
	s := newTestServer(t, cfg)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Authenticated)
	assert.True(t, resp.DevMode)
	assert.Equal(t, "Developer", resp.User.Username)
	assert.Equal(t, 0, api.Total())
}

func TestAPISession_Anonymous(t *testing.T) {
	s := newTestServer(t, testConfig("http://127.0.0.1:1"))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unauthenticated", resp.Status)
	assert.False(t, resp.Authenticated)
	assert.Nil(t, resp.User)
}
