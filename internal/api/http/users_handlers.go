package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-assess/internal/directory"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
	syncx "github.com/mind-engage/mindengage-assess/internal/sync"
)

// MeHandler returns the caller as currently stored.
func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, rbac.IdentityFromContext(r.Context()).User)
	}
}

func UpdateUserRoleHandler(users directory.Store, events *syncx.EventRepo, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Role directory.Role `json:"role"`
		}
		if err := decode(r, &req); err != nil {
			fail(w, r, log, err)
			return
		}
		id := rbac.IdentityFromContext(r.Context())
		u, err := rbac.ChangeRole(r.Context(), users, id, chi.URLParam(r, "userID"), req.Role)
		if err != nil {
			fail(w, r, log, err)
			return
		}
		if events != nil {
			if err := events.Append(r.Context(), syncx.UserRoleChanged, u.ID,
				map[string]string{"role": string(u.Role), "by": id.ID}); err != nil {
				log.WarnContext(r.Context(), "event log append failed", "type", syncx.UserRoleChanged, "err", err)
			}
		}
		writeOK(w, u)
	}
}
