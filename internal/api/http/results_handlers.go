package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-assess/internal/rbac"
	"github.com/mind-engage/mindengage-assess/internal/results"
)

// QuizResultsHandler renders the owner view as a list of latest attempts and
// the student view as the caller's latest attempt or null.
func QuizResultsHandler(gate *results.Gate, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := gate.GetResults(r.Context(), rbac.IdentityFromContext(r.Context()), chi.URLParam(r, "quizID"))
		if err != nil {
			fail(w, r, log, err)
			return
		}
		if !v.Privileged {
			writeOK(w, map[string]any{"quiz": v.QuizID, "attempt": v.Mine})
			return
		}
		n := len(v.Results)
		writeJSON(w, http.StatusOK, envelope{
			Success: true,
			Count:   &n,
			Data: map[string]any{
				"quiz":             v.QuizID,
				"resultsPublished": v.ResultsPublished,
				"results":          v.Results,
			},
		})
	}
}
