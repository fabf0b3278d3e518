package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-assess/internal/apperr"
	syncx "github.com/mind-engage/mindengage-assess/internal/sync"
)

// AuditEventsHandler serves the event log. With ?q= it searches type and key
// (newest first); otherwise it pages forward from ?since= in sequence order.
func AuditEventsHandler(events *syncx.EventRepo, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()
		limit, err := intParam(qs.Get("limit"))
		if err != nil {
			fail(w, r, log, apperr.Validation("limit must be an integer"))
			return
		}
		var out []syncx.Event
		if q := strings.TrimSpace(qs.Get("q")); q != "" {
			out, err = events.Search(r.Context(), q, limit)
		} else {
			var since int
			if since, err = intParam(qs.Get("since")); err != nil {
				fail(w, r, log, apperr.Validation("since must be an integer"))
				return
			}
			out, err = events.Since(r.Context(), int64(since), limit)
		}
		if err != nil {
			fail(w, r, log, err)
			return
		}
		writeList(w, out)
	}
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
