package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dunvault/dunvault/internal/audit"
	"github.com/dunvault/dunvault/internal/auth"
	"github.com/dunvault/dunvault/internal/password"
	"github.com/dunvault/dunvault/internal/rbac"
	"github.com/dunvault/dunvault/internal/shared"
	"github.com/dunvault/dunvault/internal/token"
	_ "github.com/dunvault/dunvault/testing"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

type stubRepo struct {
	mu    sync.Mutex
	users map[int64]*auth.User
}

func (s *stubRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubRepo) UpdatePassword(ctx context.Context, id int64, digest string, mustChange bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = digest
	u.MustChangePassword = mustChange
	return nil
}

func (s *stubRepo) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (s *stubRepo) set(id int64, fn func(u *auth.User)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.users[id])
}

type memoryRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *memoryRecorder) Record(ctx context.Context, entry audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryRecorder) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

type fixture struct {
	repo     *stubRepo
	recorder *memoryRecorder
	codec    *token.Codec
	router   http.Handler
}

func digest(t *testing.T, plaintext string) string {
	t.Helper()
	h, err := password.NewHasherWithCost(bcrypt.MinCost).Hash(plaintext)
	require.NoError(t, err)
	return h
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := &stubRepo{users: map[int64]*auth.User{
		1: {ID: 1, Username: "admin", PasswordHash: digest(t, "admin-pass-1"), Role: "super_admin", IsActive: true},
		2: {ID: 2, Username: "pdm_kawang", PasswordHash: digest(t, "kawang-pass"), Role: "pdm", DUN: "Kawang", FullName: "PDM Kawang", IsActive: true, MustChangePassword: true},
		3: {ID: 3, Username: "retired", PasswordHash: digest(t, "retired-pass"), Role: "candidate", DUN: "Limbahau", IsActive: false},
		4: {ID: 4, Username: "legacy", PasswordHash: digest(t, "legacy-pass"), Role: "viewer", IsActive: true},
	}}
	codec, err := token.NewCodec(testKey)
	require.NoError(t, err)
	recorder := &memoryRecorder{}
	service := auth.NewService(repo, password.NewHasherWithCost(bcrypt.MinCost), codec, audit.NewTrail(recorder, nil), nil)
	handler := auth.NewHandler(nil, service)
	r := chi.NewRouter()
	r.Route("/api/auth", handler.MountRoutes)
	return &fixture{repo: repo, recorder: recorder, codec: codec, router: r}
}

func (f *fixture) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) login(t *testing.T, username, pass string) auth.LoginResult {
	t.Helper()
	rr := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": pass})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var result auth.LoginResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	return result
}

func problemDetail(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Detail
}

func TestLoginExpiresAfterFixedTTL(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	clock := func() time.Time { return fixed }
	repo := &stubRepo{users: map[int64]*auth.User{
		2: {ID: 2, Username: "pdm_kawang", PasswordHash: digest(t, "kawang-pass"), Role: "pdm", DUN: "Kawang", IsActive: true},
	}}
	codec, err := token.NewCodec(testKey, token.WithClock(clock))
	require.NoError(t, err)
	recorder := &memoryRecorder{}
	service := auth.NewService(repo, password.NewHasherWithCost(bcrypt.MinCost), codec,
		audit.NewTrail(recorder, nil), nil, auth.WithClock(clock))

	res, err := service.Login(context.Background(), auth.LoginInput{Username: "pdm_kawang", Password: "kawang-pass"})
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(8*time.Hour), res.ExpiresAt.UTC())
	require.NotNil(t, repo.users[2].LastLogin)
	assert.Equal(t, fixed, *repo.users[2].LastLogin)
}

func TestLoginSuccess(t *testing.T) {
	f := newFixture(t)
	result := f.login(t, "pdm_kawang", "kawang-pass")

	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, "bearer", result.TokenType)
	assert.Equal(t, rbac.RolePDM, result.User.Role)
	assert.Equal(t, "Kawang", result.User.DUN)
	assert.True(t, result.MustChangePassword)

	claims, err := f.codec.Verify(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(2), claims.UserID)
	assert.Equal(t, "Kawang", claims.DUN)
	assert.Equal(t, token.DefaultTTL, claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time))
	assert.Equal(t, 8*time.Hour, token.DefaultTTL)
	assert.Contains(t, f.recorder.actions(), audit.ActionLogin)
}

func TestLoginResponseHasNoDigest(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "admin-pass-1"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password_hash")
	assert.NotContains(t, rr.Body.String(), "$2a$")
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	unknown := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "ghost", "password": "whatever1"})
	wrong := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "wrong-pass"})

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, problemDetail(t, unknown), problemDetail(t, wrong))
	assert.Equal(t, "Invalid username or password", problemDetail(t, wrong))
	assert.Equal(t, "Bearer", wrong.Header().Get("WWW-Authenticate"))
	assert.Empty(t, f.recorder.actions())
}

func TestLoginInactiveAccount(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "retired", "password": "retired-pass"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "User account is inactive", problemDetail(t, rr))

	// The password is checked first, so a wrong guess reveals nothing.
	rr = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "retired", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginUnknownStoredRole(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "legacy", "password": "legacy-pass"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginValidation(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString("{not json"))
	out := httptest.NewRecorder()
	f.router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
}

func TestMeRequiresBearer(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))

	rr = f.do(t, http.MethodGet, "/api/auth/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMeReturnsPrincipal(t *testing.T) {
	f := newFixture(t)
	result := f.login(t, "pdm_kawang", "kawang-pass")

	rr := f.do(t, http.MethodGet, "/api/auth/me", result.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var info auth.UserInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	assert.Equal(t, "pdm_kawang", info.Username)
	assert.Equal(t, rbac.RolePDM, info.Role)
	assert.Equal(t, "Kawang", info.DUN)
}

func TestDeactivatedPrincipalRejectedOnNextRequest(t *testing.T) {
	f := newFixture(t)
	result := f.login(t, "pdm_kawang", "kawang-pass")

	f.repo.set(2, func(u *auth.User) { u.IsActive = false })
	rr := f.do(t, http.MethodGet, "/api/auth/me", result.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "User account is inactive", problemDetail(t, rr))
}

func TestDeletedPrincipalRejected(t *testing.T) {
	f := newFixture(t)
	result := f.login(t, "admin", "admin-pass-1")

	f.repo.mu.Lock()
	delete(f.repo.users, 1)
	f.repo.mu.Unlock()
	rr := f.do(t, http.MethodGet, "/api/auth/me", result.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestResolveFallsBackToStoredDUN(t *testing.T) {
	f := newFixture(t)
	raw, _, err := f.codec.Issue(token.Subject{UserID: 2, Username: "pdm_kawang", Role: rbac.RolePDM}, time.Hour)
	require.NoError(t, err)

	rr := f.do(t, http.MethodGet, "/api/auth/me", raw, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var info auth.UserInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	assert.Equal(t, "Kawang", info.DUN)
}

func TestLogoutIsClientSide(t *testing.T) {
	f := newFixture(t)
	result := f.login(t, "admin", "admin-pass-1")

	rr := f.do(t, http.MethodPost, "/api/auth/logout", result.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, http.MethodGet, "/api/auth/me", result.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	result := f.login(t, "pdm_kawang", "kawang-pass")

	rr := f.do(t, http.MethodPost, "/api/auth/change-password", result.AccessToken,
		map[string]string{"current_password": "wrong-one", "new_password": "brand-new-pass"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/auth/change-password", result.AccessToken,
		map[string]string{"current_password": "kawang-pass", "new_password": "short"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/auth/change-password", result.AccessToken,
		map[string]string{"current_password": "kawang-pass", "new_password": "kawang-pass"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/auth/change-password", result.AccessToken,
		map[string]string{"current_password": "kawang-pass", "new_password": "brand-new-pass"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, f.recorder.actions(), audit.ActionPasswordChanged)

	next := f.login(t, "pdm_kawang", "brand-new-pass")
	assert.False(t, next.MustChangePassword)

	rr = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "pdm_kawang", "password": "kawang-pass"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
