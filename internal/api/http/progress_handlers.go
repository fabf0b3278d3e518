package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-assess/internal/progress"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

// ListMyProgressHandler lists the caller's rows without attempt detail.
func ListMyProgressHandler(ledger *progress.Ledger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := rbac.IdentityFromContext(r.Context())
		rows, err := ledger.ListForUser(r.Context(), id.ID)
		if err != nil {
			fail(w, r, log, err)
			return
		}
		writeList(w, rows)
	}
}

func GetCourseProgressHandler(ledger *progress.Ledger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := rbac.IdentityFromContext(r.Context())
		p, err := ledger.GetOrCreate(r.Context(), id.ID, chi.URLParam(r, "courseID"))
		if err != nil {
			fail(w, r, log, err)
			return
		}
		writeOK(w, p)
	}
}

func CompleteCourseHandler(ledger *progress.Ledger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := rbac.IdentityFromContext(r.Context())
		p, err := ledger.CompleteCourse(r.Context(), id.ID, chi.URLParam(r, "courseID"))
		if err != nil {
			fail(w, r, log, err)
			return
		}
		writeOK(w, p)
	}
}

func CompleteMaterialHandler(ledger *progress.Ledger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := rbac.IdentityFromContext(r.Context())
		p, err := ledger.CompleteMaterial(r.Context(), id.ID, chi.URLParam(r, "materialID"))
		if err != nil {
			fail(w, r, log, err)
			return
		}
		writeOK(w, p)
	}
}
