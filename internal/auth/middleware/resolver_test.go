package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-assess/internal/apperr"
	"github.com/mind-engage/mindengage-assess/internal/db/dbtest"
	"github.com/mind-engage/mindengage-assess/internal/directory"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

func quietLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func setup(t *testing.T) (*AuthService, *directory.SQLStore, *Resolver) {
	t.Helper()
	a := NewAuthService("test-secret", "https://issuer.test", "lms")
	users := directory.NewSQLStore(dbtest.Open(t))
	return a, users, &Resolver{Tokens: a, Users: users, Log: quietLog()}
}

func TestResolveProvisionsStudentOnFirstSight(t *testing.T) {
	ctx := context.Background()
	a, users, res := setup(t)

	tok, err := a.IssueJWT("ext|42", "Grace", "grace@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, err := res.Resolve(ctx, tok)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id.Role != directory.RoleStudent || id.Name != "Grace" {
		t.Fatalf("identity = %+v", id)
	}

	// second resolve returns the same row, not a new user
	again, err := res.Resolve(ctx, tok)
	if err != nil || again.ID != id.ID {
		t.Fatalf("second resolve id=%q err=%v", again.ID, err)
	}

	// role changes are visible on the very next call
	if _, err := users.UpdateUserRole(ctx, id.ID, directory.RoleInstructor); err != nil {
		t.Fatalf("update role: %v", err)
	}
	again, _ = res.Resolve(ctx, tok)
	if again.Role != directory.RoleInstructor {
		t.Fatalf("stale role %q", again.Role)
	}
}

func TestResolveRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	_, _, res := setup(t)

	other := NewAuthService("other-secret", "https://issuer.test", "lms")
	forged, _ := other.IssueJWT("ext|1", "", "")
	wrongAud := NewAuthService("test-secret", "https://issuer.test", "someone-else")
	misaddressed, _ := wrongAud.IssueJWT("ext|1", "", "")

	for name, cred := range map[string]string{
		"empty":          "",
		"garbage":        "not-a-jwt",
		"wrong secret":   forged,
		"wrong audience": misaddressed,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := res.Resolve(ctx, cred)
			if apperr.KindOf(err) != apperr.KindUnauthenticated {
				t.Fatalf("kind = %v, err = %v", apperr.KindOf(err), err)
			}
		})
	}
}

func TestAuthenticateMiddleware(t *testing.T) {
	a, _, res := setup(t)
	var seen rbac.Identity
	h := Authenticate(res, quietLog())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = rbac.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token code = %d", rec.Code)
	}

	tok, _ := a.IssueJWT("ext|7", "Linus", "")
	req := httptest.NewRequest(http.MethodGet, "/progress", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("code = %d body=%s", rec.Code, rec.Body.String())
	}
	if seen.Anonymous() || seen.Name != "Linus" {
		t.Fatalf("identity = %+v", seen)
	}
}

func TestLoginHandler(t *testing.T) {
	a, users, res := setup(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	h := LoginHandler(a, users, "admin", string(hash))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"username":"admin","password":"nope"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"username":"admin","password":"s3cret"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login code = %d body=%s", rec.Code, rec.Body.String())
	}
	var out struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	id, err := res.Resolve(context.Background(), out.Data.AccessToken)
	if err != nil {
		t.Fatalf("resolve issued token: %v", err)
	}
	if id.Role != directory.RoleAdmin {
		t.Fatalf("role = %q", id.Role)
	}
}
