package http

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/mindengage-assess/internal/auth/middleware"
	"github.com/mind-engage/mindengage-assess/internal/directory"
	"github.com/mind-engage/mindengage-assess/internal/progress"
	"github.com/mind-engage/mindengage-assess/internal/quiz"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
	"github.com/mind-engage/mindengage-assess/internal/results"
	syncx "github.com/mind-engage/mindengage-assess/internal/sync"
)

type Deps struct {
	Resolver *auth.Resolver
	Users    directory.Store
	Quizzes  *quiz.Service
	Ledger   *progress.Ledger
	Results  *results.Gate
	Events   *syncx.EventRepo
	Log      *slog.Logger
}

// MountAPI registers the authenticated assessment routes on r. Route-level
// permissions only check the role; ownership, enrollment and publication
// are decided per resource by the services.
func MountAPI(r chi.Router, d Deps) {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	r.Group(func(pr chi.Router) {
		pr.Use(auth.Authenticate(d.Resolver, log))

		pr.Get("/me", MeHandler())

		// Progress ledger (always the caller's own rows)
		pr.Route("/progress", func(pg chi.Router) {
			pg.Use(rbac.Require("progress:self"))
			pg.Get("/", ListMyProgressHandler(d.Ledger, log))
			pg.Get("/courses/{courseID}", GetCourseProgressHandler(d.Ledger, log))
			pg.Post("/courses/{courseID}/complete", CompleteCourseHandler(d.Ledger, log))
			pg.Post("/materials/{materialID}/complete", CompleteMaterialHandler(d.Ledger, log))
		})

		// Courses
		pr.With(rbac.Require("course:enroll")).
			Post("/courses/{courseID}/enroll", EnrollHandler(d.Users, d.Events, log))
		pr.With(rbac.Require("course:roster")).
			Get("/courses/{courseID}/students", CourseStudentsHandler(d.Ledger, log))
		pr.With(rbac.Require("quiz:view")).
			Get("/courses/{courseID}/quizzes", ListCourseQuizzesHandler(d.Quizzes, log))

		// Quizzes
		pr.With(rbac.Require("admin:quizzes")).
			Get("/quizzes", ListAllQuizzesHandler(d.Quizzes, log))
		pr.With(rbac.Require("quiz:create")).
			Post("/quizzes", CreateQuizHandler(d.Quizzes, log))
		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes/{quizID}", GetQuizHandler(d.Quizzes, log))
		pr.With(rbac.Require("quiz:update")).
			Put("/quizzes/{quizID}", UpdateQuizHandler(d.Quizzes, log))
		pr.With(rbac.Require("quiz:delete")).
			Delete("/quizzes/{quizID}", DeleteQuizHandler(d.Quizzes, log))

		pr.Group(func(pub chi.Router) {
			pub.Use(rbac.Require("quiz:publish"))
			pub.Post("/quizzes/{quizID}/publish", TransitionHandler(d.Quizzes.Publish, log))
			pub.Post("/quizzes/{quizID}/unpublish", TransitionHandler(d.Quizzes.Unpublish, log))
			pub.Post("/quizzes/{quizID}/results/publish", TransitionHandler(d.Quizzes.PublishResults, log))
			pub.Post("/quizzes/{quizID}/results/unpublish", TransitionHandler(d.Quizzes.UnpublishResults, log))
		})

		pr.With(rbac.Require("quiz:submit")).
			Post("/quizzes/{quizID}/submit", SubmitQuizHandler(d.Quizzes, log))
		pr.With(rbac.Require("results:view")).
			Get("/quizzes/{quizID}/results", QuizResultsHandler(d.Results, log))

		// Users
		pr.With(rbac.Require("users:role")).
			Put("/users/{userID}/role", UpdateUserRoleHandler(d.Users, d.Events, log))

		// Audit
		pr.With(rbac.Require("admin:events")).
			Get("/admin/events", AuditEventsHandler(d.Events, log))
	})
}
