package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/tournament-auth/config"
	"github.com/FACorreiaa/tournament-auth/internal/api/auth"
	"github.com/FACorreiaa/tournament-auth/internal/api/security"
	"github.com/FACorreiaa/tournament-auth/internal/audit"
	"github.com/FACorreiaa/tournament-auth/internal/container"
)

type RouterSuite struct {
	suite.Suite
	server *httptest.Server
	c      *container.Container
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	var cfg config.Config
	cfg.JWT.Secret = "router-test-secret"
	cfg.JWT.ExpirationMs = 3600000
	cfg.JWT.Issuer = "tournament-auth"
	cfg.Password.BcryptCost = bcrypt.MinCost
	cfg.Storage.Driver = "memory"
	cfg.Security.SealingSecret = "router-sealing-secret"

	c, err := container.NewContainer(context.Background(), &cfg, slog.Default())
	s.Require().NoError(err)
	s.c = c

	s.server = httptest.NewServer(SetupRouter(&Config{
		AuthHandler:     c.AuthHandler,
		SecurityHandler: c.SecurityHandler,
		Gatekeeper:      c.AuthService,
		Logger:          slog.Default(),
		AllowedOrigins:  []string{"http://localhost:3000"},
	}))
}

func (s *RouterSuite) TearDownTest() {
	s.server.Close()
	s.c.Close()
}

func (s *RouterSuite) do(method, path, token string, body interface{}) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	s.T().Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *RouterSuite) decode(resp *http.Response, dst interface{}) {
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(dst))
}

func (s *RouterSuite) register(username, email, password, role string) {
	resp := s.do(http.MethodPost, "/api/v1/auth/register", "", auth.RegisterRequest{
		Username: username, Email: email, Password: password, Role: role,
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
}

func (s *RouterSuite) login(username, password string) string {
	resp := s.do(http.MethodPost, "/api/v1/auth/login", "", auth.LoginRequest{Username: username, Password: password})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var body auth.LoginResponse
	s.decode(resp, &body)
	return body.Token
}

func (s *RouterSuite) TestPing() {
	resp := s.do(http.MethodGet, "/ping", "", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Equal("pong", string(body))
}

func (s *RouterSuite) TestPlayerFlow() {
	s.register("alice", "alice@example.com", "Str0ng!Pass12", "PLAYER")
	token := s.login("alice", "Str0ng!Pass12")

	resp := s.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var me auth.MeResponse
	s.decode(resp, &me)
	s.Equal("alice", me.Username)
	s.Equal([]string{"ROLE_PLAYER"}, me.Roles)

	resp = s.do(http.MethodPut, "/api/v1/auth/password", token, auth.ChangePasswordRequest{NewPassword: "Str0ng!Pass12"})
	s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)

	resp = s.do(http.MethodPut, "/api/v1/auth/password", token, auth.ChangePasswordRequest{NewPassword: "Str0nger!Pass99"})
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/v1/auth/login", "", auth.LoginRequest{Username: "alice", Password: "Str0ng!Pass12"})
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.login("alice", "Str0nger!Pass99")

	resp = s.do(http.MethodGet, "/api/v1/security/audit", token, nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/v1/security/encrypt", token, security.SealRequest{Data: "x"})
	s.Equal(http.StatusForbidden, resp.StatusCode)
}

func (s *RouterSuite) TestUnauthenticated() {
	for _, path := range []string{"/api/v1/auth/me", "/api/v1/security/audit", "/api/v1/auth/password/expired"} {
		resp := s.do(http.MethodGet, path, "", nil)
		s.Equal(http.StatusUnauthorized, resp.StatusCode, path)
	}

	resp := s.do(http.MethodGet, "/api/v1/auth/me", "not.a.token", nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/v1/auth/login", "", auth.LoginRequest{Username: "ghost", Password: "x"})
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *RouterSuite) TestAdminFlow() {
	s.register("root", "root@example.com", "Adm1n!Secure#99", "ADMIN")
	s.register("alice", "alice@example.com", "Str0ng!Pass12", "PLAYER")
	adminToken := s.login("root", "Adm1n!Secure#99")
	playerToken := s.login("alice", "Str0ng!Pass12")

	// denied and recorded
	resp := s.do(http.MethodGet, "/api/v1/security/audit", playerToken, nil)
	s.Require().Equal(http.StatusForbidden, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/v1/security/encrypt", adminToken, security.SealRequest{Data: "passport 123"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var sealed security.SealResponse
	s.decode(resp, &sealed)

	resp = s.do(http.MethodPost, "/api/v1/security/decrypt", adminToken, sealed)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var opened security.SealResponse
	s.decode(resp, &opened)
	s.Equal("passport 123", opened.Data)

	resp = s.do(http.MethodGet, "/api/v1/auth/password/expired?username=alice", adminToken, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var expiry auth.PasswordExpiredResponse
	s.decode(resp, &expiry)
	s.False(expiry.Expired)

	resp = s.do(http.MethodGet, "/api/v1/security/audit?limit=50", adminToken, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var listed security.AuditEventsResponse
	s.decode(resp, &listed)

	types := map[string]bool{}
	for _, e := range listed.Events {
		types[e.Type] = true
	}
	s.True(types[audit.TypeUserRegistered])
	s.True(types[audit.TypeLoginSuccess])
	s.True(types[audit.TypeUnauthorizedOperation])
}

func TestSetupRouter_CORS(t *testing.T) {
	h := SetupRouter(&Config{
		AuthHandler:     auth.NewAuthHandler(nil, slog.Default()),
		SecurityHandler: security.NewSecurityHandler(nil, slog.Default()),
		Logger:          slog.Default(),
		AllowedOrigins:  []string{"http://localhost:3000"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}
