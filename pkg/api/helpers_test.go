package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskhub/taskhub/pkg/auth"
	"github.com/taskhub/taskhub/pkg/config"
	"github.com/taskhub/taskhub/pkg/observability"
	"github.com/taskhub/taskhub/pkg/storage"
	"github.com/taskhub/taskhub/pkg/storage/sqlite"
)

// testEnv runs the full HTTP stack against an in-memory SQLite database
type testEnv struct {
	handler http.Handler
	store   storage.Store
	t       *testing.T
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.InitSchema(context.Background()))

	cfg := config.Defaults()
	cfg.Auth.SecretKey = "api-test-secret"
	cfg.Auth.BcryptCost = bcrypt.MinCost

	logger := observability.NewLogger("error", io.Discard)
	server := NewServer(cfg, store, logger, nil)

	return &testEnv{
		handler: server.Handler(),
		store:   store,
		t:       t,
	}
}

// request sends an HTTP request through the full middleware chain
func (e *testEnv) request(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) decode(rec *httptest.ResponseRecorder, dest interface{}) {
	e.t.Helper()
	require.NoError(e.t, json.NewDecoder(rec.Body).Decode(dest))
}

// register creates an account through the API and returns the user body
func (e *testEnv) register(email, password string) map[string]interface{} {
	e.t.Helper()

	rec := e.request(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, "register failed: %s", rec.Body.String())

	var user map[string]interface{}
	e.decode(rec, &user)
	return user
}

// login returns a bearer token for the credentials
func (e *testEnv) login(email, password string) string {
	e.t.Helper()

	rec := e.request(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(e.t, http.StatusOK, rec.Code, "login failed: %s", rec.Body.String())

	var resp TokenResponse
	e.decode(rec, &resp)
	require.NotEmpty(e.t, resp.AccessToken)
	return resp.AccessToken
}

// registerAndLogin is the common two-step setup for authenticated tests
func (e *testEnv) registerAndLogin(email, password string) string {
	e.t.Helper()
	e.register(email, password)
	return e.login(email, password)
}

// idOf extracts the numeric id from a decoded JSON body as a path segment
func idOf(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	id, ok := body["id"].(float64)
	require.True(t, ok, "body has no numeric id: %v", body)
	return strconv.FormatInt(int64(id), 10)
}

// createAdmin inserts an admin account directly into storage; there is no
// API path that grants admin rights
func (e *testEnv) createAdmin(email, password string) string {
	e.t.Helper()

	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	hashed, err := hasher.Hash(password)
	require.NoError(e.t, err)

	user := &storage.User{
		Email:          email,
		HashedPassword: hashed,
		IsActive:       true,
		IsAdmin:        true,
	}
	require.NoError(e.t, e.store.CreateUser(context.Background(), user))
	return e.login(email, password)
}
