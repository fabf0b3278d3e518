// Package results shapes quiz attempt data for the caller asking for it.
package results

import (
	"context"
	"log/slog"

	"github.com/mind-engage/mindengage-assess/internal/apperr"
	"github.com/mind-engage/mindengage-assess/internal/directory"
	"github.com/mind-engage/mindengage-assess/internal/progress"
	"github.com/mind-engage/mindengage-assess/internal/quiz"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

// StudentResult is one student's latest attempt in the owner view.
type StudentResult struct {
	Student directory.Profile `json:"student"`
	progress.Attempt
}

// View is what GetResults returns. Owners get Results for every student who
// attempted the quiz; students get Mine, which is nil without an attempt.
type View struct {
	QuizID           string            `json:"quiz"`
	ResultsPublished bool              `json:"resultsPublished"`
	Privileged       bool              `json:"-"`
	Results          []StudentResult   `json:"results,omitempty"`
	Mine             *progress.Attempt `json:"mine,omitempty"`
}

type Gate struct {
	quizzes  quiz.Store
	dir      directory.Store
	attempts progress.Store
	log      *slog.Logger
}

func NewGate(quizzes quiz.Store, dir directory.Store, attempts progress.Store, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{quizzes: quizzes, dir: dir, attempts: attempts, log: log}
}

func (g *Gate) GetResults(ctx context.Context, id rbac.Identity, quizID string) (View, error) {
	q, err := g.quizzes.Get(ctx, quizID)
	if err != nil {
		return View{}, err
	}
	c, err := g.dir.GetCourse(ctx, q.CourseID)
	if err != nil {
		return View{}, err
	}
	acc, err := rbac.Authorize(id, rbac.ViewResults, rbac.Target{
		Course:           c,
		QuizPublished:    q.Published(),
		ResultsPublished: q.ResultsPublished(),
	})
	if err != nil {
		if !id.Anonymous() {
			g.log.DebugContext(ctx, "results withheld",
				"quiz", q.ID, "user", id.ID, "reason", apperr.ReasonOf(err))
		}
		return View{}, err
	}

	v := View{QuizID: q.ID, ResultsPublished: q.ResultsPublished(), Privileged: acc.Privileged}
	if !acc.Privileged {
		a, err := g.attempts.LatestAttempt(ctx, q.ID, id.ID)
		switch {
		case apperr.KindOf(err) == apperr.KindNotFound:
			return v, nil
		case err != nil:
			return View{}, err
		}
		v.Mine = &a
		return v, nil
	}

	latest, err := g.attempts.LatestAttempts(ctx, q.ID)
	if err != nil {
		return View{}, err
	}
	ids := make([]string, len(latest))
	for i, a := range latest {
		ids[i] = a.UserID
	}
	users, err := g.dir.ListUsers(ctx, ids)
	if err != nil {
		return View{}, err
	}
	profiles := make(map[string]directory.Profile, len(users))
	for _, u := range users {
		profiles[u.ID] = u.Profile()
	}
	v.Results = make([]StudentResult, 0, len(latest))
	for _, a := range latest {
		p, ok := profiles[a.UserID]
		if !ok {
			p = directory.Profile{ID: a.UserID}
		}
		v.Results = append(v.Results, StudentResult{Student: p, Attempt: a.Attempt})
	}
	return v, nil
}
