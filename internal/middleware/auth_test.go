package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/docudrive/document-layer/internal/app/domain/credential"
	"github.com/docudrive/document-layer/internal/app/services/accounts"
	"github.com/docudrive/document-layer/pkg/logger"
)

type staticParser struct {
	secret []byte
}

func (p staticParser) ParseToken(tokenString string) (*accounts.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &accounts.Claims{}, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	})
	if err != nil {
		return nil, err
	}
	return token.Claims.(*accounts.Claims), nil
}

func signToken(t *testing.T, secret []byte, subject, role string, delegated []string, expired bool) string {
	t.Helper()
	claims := accounts.Claims{
		Role:             role,
		DelegatedTenants: delegated,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	if expired {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newTestMiddleware() *AuthMiddleware {
	return NewAuthMiddleware(staticParser{secret: []byte("test-secret")}, logger.Discard(), []string{"/health"})
}

func TestAuthMiddlewarePlacesPrincipalInContext(t *testing.T) {
	m := newTestMiddleware()

	var got credential.Principal
	var gotOK bool
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, gotOK = PrincipalFrom(r.Context())
		if UserID(r.Context()) != "user-1" {
			t.Errorf("UserID = %q", UserID(r.Context()))
		}
	}))

	token := signToken(t, []byte("test-secret"), "user-1", "user", []string{"tenant-a"}, false)
	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !gotOK || got.ID != "user-1" || got.Role != credential.RoleUser || !got.DelegatedTo("tenant-a") {
		t.Fatalf("principal = %+v", got)
	}
}

func TestAuthMiddlewareRejections(t *testing.T) {
	m := newTestMiddleware()
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without valid token")
	}))

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwdw=="},
		{"garbage token", "Bearer not.a.token"},
		{"expired token", "Bearer " + signToken(t, []byte("test-secret"), "user-1", "user", nil, true)},
		{"wrong secret", "Bearer " + signToken(t, []byte("other-secret"), "user-1", "user", nil, false)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/files", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestAuthMiddlewareSkipPaths(t *testing.T) {
	m := newTestMiddleware()
	reached := false
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if !reached || rec.Code != http.StatusOK {
		t.Fatalf("skip path blocked: reached=%v status=%d", reached, rec.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	m := NewCORSMiddleware([]string{"https://app.example.com"})
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Fatalf("allowed origin not reflected: %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unlisted origin allowed")
	}

	req = httptest.NewRequest(http.MethodOptions, "/files", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
}
