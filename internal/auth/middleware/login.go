package auth

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-assess/internal/directory"
)

// LocalSubjectPrefix namespaces accounts created by the bootstrap login so
// they never collide with subjects from the identity provider.
const LocalSubjectPrefix = "local|"

// POST /auth/login  { "username": "...", "password": "..." }
//
// Only the configured bootstrap admin can log in here; everyone else comes
// through the external identity provider.
func LoginHandler(a *AuthService, users directory.Store, adminUser, adminPassHash string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if req.Username != adminUser ||
			bcrypt.CompareHashAndPassword([]byte(adminPassHash), []byte(req.Password)) != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		u, err := users.CreateUser(r.Context(), directory.User{
			Subject: LocalSubjectPrefix + req.Username,
			Name:    req.Username,
			Role:    directory.RoleAdmin,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		tok, err := a.IssueJWT(u.Subject, u.Name, u.Email)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "issue token")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]string{"access_token": tok},
		})
	}
}
