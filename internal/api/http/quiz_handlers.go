package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-assess/internal/quiz"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

func CreateQuizHandler(svc *quiz.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in quiz.Input
		if err := decode(r, &in); err != nil {
			fail(w, r, log, err)
			return
		}
		q, err := svc.Create(r.Context(), rbac.IdentityFromContext(r.Context()), in)
		if err != nil {
			fail(w, r, log, err)
			return
		}
		writeCreated(w, q)
	}
}

func UpdateQuizHandler(svc *quiz.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in quiz.Input
		if err := decode(r, &in); err != nil {
			fail(w, r, log, err)
			return
		}
		q, err := svc.Update(r.Context(), rbac.IdentityFromContext(r.Context()), chi.URLParam(r, "quizID"), in)
		if err != nil {
			fail(w, r, log, err)
			return
		}
		writeOK(w, q)
	}
}

func DeleteQuizHandler(svc *quiz.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), rbac.IdentityFromContext(r.Context()), chi.URLParam(r, "quizID")); err != nil {
			fail(w, r, log, err)
			return
		}
		writeOK(w, map[string]any{})
	}
}

func GetQuizHandler(svc *quiz.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := svc.Get(r.Context(), rbac.IdentityFromContext(r.Context()), chi.URLParam(r, "quizID"))
		if err != nil {
			fail(w, r, log, err)
			return
		}
		writeOK(w, q)
	}
}

func ListCourseQuizzesHandler(svc *quiz.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := svc.ListForCourse(r.Context(), rbac.IdentityFromContext(r.Context()), chi.URLParam(r, "courseID"))
		if err != nil {
			fail(w, r, log, err)
			return
		}
		writeList(w, qs)
	}
}

func ListAllQuizzesHandler(svc *quiz.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := svc.ListAll(r.Context(), rbac.IdentityFromContext(r.Context()))
		if err != nil {
			fail(w, r, log, err)
			return
		}
		writeList(w, qs)
	}
}

type transitionFunc func(ctx context.Context, id rbac.Identity, quizID string) (quiz.Quiz, error)

// TransitionHandler serves publish, unpublish and the results toggles.
func TransitionHandler(fn transitionFunc, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := fn(r.Context(), rbac.IdentityFromContext(r.Context()), chi.URLParam(r, "quizID"))
		if err != nil {
			fail(w, r, log, err)
			return
		}
		writeOK(w, q)
	}
}

// SubmitQuizHandler always records a new attempt; clients must not retry it
// blindly.
func SubmitQuizHandler(svc *quiz.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answers []any `json:"answers"`
		}
		if err := decode(r, &req); err != nil {
			fail(w, r, log, err)
			return
		}
		sub, err := svc.Submit(r.Context(), rbac.IdentityFromContext(r.Context()), chi.URLParam(r, "quizID"), req.Answers)
		if err != nil {
			fail(w, r, log, err)
			return
		}
		writeCreated(w, sub)
	}
}
