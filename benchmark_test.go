package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/FACorreiaa/tournament-auth/internal/api/auth"
	"github.com/FACorreiaa/tournament-auth/internal/api/security"
	"github.com/FACorreiaa/tournament-auth/internal/container"
	"github.com/FACorreiaa/tournament-auth/internal/router"
)

// BenchmarkSuite provides benchmark testing for the API
type BenchmarkSuite struct {
	router     http.Handler
	c          *container.Container
	authToken  string
	adminToken string
}

const benchPassword = "B3nch!Mark#2025"

// setupBenchmarkSuite builds the real stack over the in-memory store and signs in a
// player and an admin.
func setupBenchmarkSuite(b *testing.B) *BenchmarkSuite {
	b.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := container.NewContainer(context.Background(), testConfig(), logger)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(c.Close)

	suite := &BenchmarkSuite{
		c: c,
		router: router.SetupRouter(&router.Config{
			AuthHandler:     c.AuthHandler,
			SecurityHandler: c.SecurityHandler,
			Gatekeeper:      c.AuthService,
			Logger:          logger,
		}),
	}
	suite.authToken = suite.signUp(b, "benchplayer", "PLAYER")
	suite.adminToken = suite.signUp(b, "benchadmin", "ADMIN")
	return suite
}

func (suite *BenchmarkSuite) signUp(b *testing.B, username, role string) string {
	w := suite.makeRequest(http.MethodPost, "/api/v1/auth/register", "", auth.RegisterRequest{
		Username: username, Email: username + "@example.com", Password: benchPassword, Role: role,
	})
	if w.Code != http.StatusCreated {
		b.Fatalf("register %s: %d %s", username, w.Code, w.Body.String())
	}
	w = suite.makeRequest(http.MethodPost, "/api/v1/auth/login", "", auth.LoginRequest{Username: username, Password: benchPassword})
	var resp auth.LoginResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		b.Fatal(err)
	}
	return resp.Token
}

// makeRequest helper for benchmark tests
func (suite *BenchmarkSuite) makeRequest(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

// BenchmarkUserRegistration benchmarks user registration endpoint
func BenchmarkUserRegistration(b *testing.B) {
	suite := setupBenchmarkSuite(b)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		name := fmt.Sprintf("reg%d", i)
		suite.makeRequest(http.MethodPost, "/api/v1/auth/register", "", auth.RegisterRequest{
			Username: name, Email: name + "@example.com", Password: benchPassword,
		})
	}
}

// BenchmarkUserLogin benchmarks user login endpoint
func BenchmarkUserLogin(b *testing.B) {
	suite := setupBenchmarkSuite(b)
	creds := auth.LoginRequest{Username: "benchplayer", Password: benchPassword}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		suite.makeRequest(http.MethodPost, "/api/v1/auth/login", "", creds)
	}
}

// BenchmarkAuthenticatedRequest measures token verification in the middleware chain.
func BenchmarkAuthenticatedRequest(b *testing.B) {
	suite := setupBenchmarkSuite(b)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		suite.makeRequest(http.MethodGet, "/api/v1/auth/me", suite.authToken, nil)
	}
}

// BenchmarkConcurrentRequests benchmarks concurrent requests handling
func BenchmarkConcurrentRequests(b *testing.B) {
	suite := setupBenchmarkSuite(b)

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			suite.makeRequest(http.MethodGet, "/api/v1/auth/me", suite.authToken, nil)
		}
	})
}

// BenchmarkInputValidation benchmarks the validate-input endpoint across input kinds
func BenchmarkInputValidation(b *testing.B) {
	suite := setupBenchmarkSuite(b)
	inputs := []security.ValidateInputRequest{
		{Input: "alice@example.com", Type: "EMAIL"},
		{Input: "Cristiano Ronaldo", Type: "NAME"},
		{Input: "<script>alert(1)</script>", Type: "GENERAL_TEXT"},
		{Input: "FIFA000123", Type: "EXTERNAL_ID"},
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		suite.makeRequest(http.MethodPost, "/api/v1/security/validate-input", "", inputs[i%len(inputs)])
	}
}

// BenchmarkSealRoundTrip benchmarks encrypt followed by decrypt
func BenchmarkSealRoundTrip(b *testing.B) {
	suite := setupBenchmarkSuite(b)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		w := suite.makeRequest(http.MethodPost, "/api/v1/security/encrypt", suite.adminToken, security.SealRequest{Data: "passport P1234567"})
		var sealed security.SealResponse
		_ = json.NewDecoder(w.Body).Decode(&sealed)
		suite.makeRequest(http.MethodPost, "/api/v1/security/decrypt", suite.adminToken, sealed)
	}
}

// BenchmarkPasswordRotation benchmarks change-password, which runs the policy and
// the history check on every call.
func BenchmarkPasswordRotation(b *testing.B) {
	suite := setupBenchmarkSuite(b)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		pw := fmt.Sprintf("R0tate!Pw%d", i)
		suite.makeRequest(http.MethodPut, "/api/v1/auth/password", suite.authToken, auth.ChangePasswordRequest{NewPassword: pw})
	}
}

// BenchmarkRequestRouting benchmarks the router performance
func BenchmarkRequestRouting(b *testing.B) {
	suite := setupBenchmarkSuite(b)

	routes := []string{
		"/ping",
		"/api/v1/auth/me",
		"/api/v1/auth/password/expired",
		"/api/v1/security/audit",
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		suite.makeRequest(http.MethodGet, routes[i%len(routes)], suite.adminToken, nil)
	}
}
