package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-assess/internal/directory"
	"github.com/mind-engage/mindengage-assess/internal/progress"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
	syncx "github.com/mind-engage/mindengage-assess/internal/sync"
)

// EnrollHandler enrolls the caller. Repeating it is harmless: 201 when a new
// enrollment was written, 200 when it already existed.
func EnrollHandler(users directory.Store, events *syncx.EventRepo, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := rbac.IdentityFromContext(r.Context())
		c, err := users.GetCourse(r.Context(), chi.URLParam(r, "courseID"))
		if err != nil {
			fail(w, r, log, err)
			return
		}
		isNew, err := users.Enroll(r.Context(), id.ID, c.ID)
		if err != nil {
			fail(w, r, log, err)
			return
		}
		body := map[string]any{"course": c.ID, "enrolled": true, "created": isNew}
		if !isNew {
			writeOK(w, body)
			return
		}
		if events != nil {
			if err := events.Append(r.Context(), syncx.StudentEnrolled, c.ID, map[string]string{"user": id.ID}); err != nil {
				log.WarnContext(r.Context(), "event log append failed", "type", syncx.StudentEnrolled, "err", err)
			}
		}
		writeCreated(w, body)
	}
}

// CourseStudentsHandler is the owner's roster with per-student progress.
func CourseStudentsHandler(ledger *progress.Ledger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roster, err := ledger.CourseRoster(r.Context(), rbac.IdentityFromContext(r.Context()), chi.URLParam(r, "courseID"))
		if err != nil {
			fail(w, r, log, err)
			return
		}
		writeList(w, roster)
	}
}
