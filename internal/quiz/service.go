package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-assess/internal/apperr"
	"github.com/mind-engage/mindengage-assess/internal/directory"
	"github.com/mind-engage/mindengage-assess/internal/grading"
	"github.com/mind-engage/mindengage-assess/internal/progress"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
	syncx "github.com/mind-engage/mindengage-assess/internal/sync"
)

const DefaultTimeLimit = 30

// Service runs every quiz operation through rbac.Authorize before touching
// the store.
type Service struct {
	store    Store
	dir      directory.Store
	ledger   *progress.Ledger
	grader   grading.Grader
	events   *syncx.EventRepo
	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time
}

func NewService(store Store, dir directory.Store, ledger *progress.Ledger, grader grading.Grader,
	events *syncx.EventRepo, log *slog.Logger) *Service {
	if grader == nil {
		grader = grading.NewDefaultGrader()
	}
	if log == nil {
		log = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{
		store:    store,
		dir:      dir,
		ledger:   ledger,
		grader:   grader,
		events:   events,
		validate: v,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// load returns the quiz with the course it belongs to.
func (s *Service) load(ctx context.Context, quizID string) (Quiz, directory.Course, error) {
	q, err := s.store.Get(ctx, quizID)
	if err != nil {
		return Quiz{}, directory.Course{}, err
	}
	c, err := s.dir.GetCourse(ctx, q.CourseID)
	if err != nil {
		return Quiz{}, directory.Course{}, err
	}
	return q, c, nil
}

func target(c directory.Course, q Quiz) rbac.Target {
	return rbac.Target{Course: c, QuizPublished: q.Published(), ResultsPublished: q.ResultsPublished()}
}

func (s *Service) Create(ctx context.Context, id rbac.Identity, in Input) (Quiz, error) {
	if err := s.check(in); err != nil {
		return Quiz{}, err
	}
	c, err := s.dir.GetCourse(ctx, in.CourseID)
	if err != nil {
		return Quiz{}, err
	}
	if _, err := rbac.Authorize(id, rbac.ManageCourse, rbac.Target{Course: c}); err != nil {
		return Quiz{}, err
	}
	q, err := s.store.Create(ctx, fromInput(Quiz{CourseID: c.ID, State: StateDraft}, in))
	if err != nil {
		return Quiz{}, err
	}
	s.audit(ctx, syncx.QuizCreated, q.ID, map[string]any{"course": c.ID, "by": id.ID})
	return q, nil
}

// Update replaces title, description, time limit and questions. The course
// and lifecycle state cannot be changed here.
func (s *Service) Update(ctx context.Context, id rbac.Identity, quizID string, in Input) (Quiz, error) {
	q, c, err := s.load(ctx, quizID)
	if err != nil {
		return Quiz{}, err
	}
	if _, err := rbac.Authorize(id, rbac.ManageCourse, target(c, q)); err != nil {
		return Quiz{}, err
	}
	if in.CourseID == "" {
		in.CourseID = q.CourseID
	}
	if in.CourseID != q.CourseID {
		return Quiz{}, apperr.Validation("course cannot be changed")
	}
	if err := s.check(in); err != nil {
		return Quiz{}, err
	}
	q, err = s.store.Update(ctx, fromInput(q, in))
	if err != nil {
		return Quiz{}, err
	}
	s.audit(ctx, syncx.QuizUpdated, q.ID, map[string]any{"by": id.ID})
	return q, nil
}

func (s *Service) Delete(ctx context.Context, id rbac.Identity, quizID string) error {
	q, c, err := s.load(ctx, quizID)
	if err != nil {
		return err
	}
	if _, err := rbac.Authorize(id, rbac.ManageCourse, target(c, q)); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, q.ID); err != nil {
		return err
	}
	s.audit(ctx, syncx.QuizDeleted, q.ID, map[string]any{"course": c.ID, "by": id.ID})
	return nil
}

// Get returns the full quiz to the course owner and an answer-free copy of
// a published quiz to enrolled students.
func (s *Service) Get(ctx context.Context, id rbac.Identity, quizID string) (Quiz, error) {
	q, c, err := s.load(ctx, quizID)
	if err != nil {
		return Quiz{}, err
	}
	acc, err := rbac.Authorize(id, rbac.ReadQuiz, target(c, q))
	if err != nil {
		return Quiz{}, err
	}
	if !acc.Privileged {
		q = q.WithoutAnswers()
	}
	return q, nil
}

func (s *Service) ListForCourse(ctx context.Context, id rbac.Identity, courseID string) ([]Quiz, error) {
	c, err := s.dir.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	acc, err := rbac.Authorize(id, rbac.ListQuizzes, rbac.Target{Course: c})
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListByCourse(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if acc.Privileged {
		return all, nil
	}
	out := make([]Quiz, 0, len(all))
	for _, q := range all {
		if q.Published() {
			out = append(out, q.WithoutAnswers())
		}
	}
	return out, nil
}

// ListAll is the admin view across every course.
func (s *Service) ListAll(ctx context.Context, id rbac.Identity) ([]Quiz, error) {
	if err := rbac.RequireRole(id, directory.RoleAdmin); err != nil {
		return nil, err
	}
	return s.store.ListAll(ctx)
}

func (s *Service) Publish(ctx context.Context, id rbac.Identity, quizID string) (Quiz, error) {
	return s.transition(ctx, id, quizID, Publish)
}

func (s *Service) Unpublish(ctx context.Context, id rbac.Identity, quizID string) (Quiz, error) {
	return s.transition(ctx, id, quizID, Unpublish)
}

func (s *Service) PublishResults(ctx context.Context, id rbac.Identity, quizID string) (Quiz, error) {
	return s.transition(ctx, id, quizID, PublishResults)
}

func (s *Service) UnpublishResults(ctx context.Context, id rbac.Identity, quizID string) (Quiz, error) {
	return s.transition(ctx, id, quizID, UnpublishResults)
}

// stateRetries bounds how often a transition re-reads a quiz whose state
// moved underneath it.
const stateRetries = 3

func (s *Service) transition(ctx context.Context, id rbac.Identity, quizID string, t Transition) (Quiz, error) {
	q, c, err := s.load(ctx, quizID)
	if err != nil {
		return Quiz{}, err
	}
	if _, err := rbac.Authorize(id, rbac.ManageCourse, target(c, q)); err != nil {
		return Quiz{}, err
	}

	for i := 0; i < stateRetries; i++ {
		next, changed, err := q.State.Apply(t)
		if err != nil {
			return Quiz{}, apperr.Internal(err)
		}
		if !changed {
			return q, nil
		}
		var publishAt *time.Time
		if q.State.StampsPublishAt(next) {
			now := s.now()
			publishAt = &now
		}
		ok, err := s.store.SetState(ctx, q.ID, q.State, next, publishAt)
		if err != nil {
			return Quiz{}, err
		}
		if ok {
			s.audit(ctx, syncx.QuizStateChanged, q.ID, map[string]any{
				"transition": t, "from": q.State, "to": next, "by": id.ID,
			})
			return s.store.Get(ctx, q.ID)
		}
		// another writer moved the quiz; apply t to what is stored now
		if q, err = s.store.Get(ctx, q.ID); err != nil {
			return Quiz{}, err
		}
	}
	return Quiz{}, apperr.Internal(fmt.Errorf("quiz %s: state kept changing during %s", quizID, t))
}

// Submit grades answers and appends a new attempt to the caller's progress.
// Every call creates an attempt.
func (s *Service) Submit(ctx context.Context, id rbac.Identity, quizID string, answers []any) (Submission, error) {
	q, c, err := s.load(ctx, quizID)
	if err != nil {
		return Submission{}, err
	}
	if _, err := rbac.Authorize(id, rbac.SubmitQuiz, target(c, q)); err != nil {
		return Submission{}, err
	}
	if len(answers) > len(q.Questions) {
		return Submission{}, apperr.Validation(fmt.Sprintf("quiz has %d questions, got %d answers", len(q.Questions), len(answers)))
	}

	qs := make([]grading.Q, len(q.Questions))
	for i, qq := range q.Questions {
		qs[i] = qq.grading()
	}
	sum := s.grader.Score(ctx, qs, answers)

	a, err := s.ledger.RecordQuizAttempt(ctx, id.ID, c.ID, progress.Attempt{
		QuizID:      q.ID,
		Score:       sum.Score,
		TotalPoints: sum.TotalPoints,
		Percentage:  sum.Percentage,
		TakenAt:     s.now(),
	})
	if err != nil {
		return Submission{}, err
	}
	s.audit(ctx, syncx.AttemptSubmitted, a.ID, map[string]any{
		"quiz": q.ID, "user": id.ID, "score": sum.Score, "totalPoints": sum.TotalPoints,
	})
	s.log.InfoContext(ctx, "quiz submitted",
		"quiz", q.ID, "user", id.ID, "attempt", a.ID, "score", sum.Score, "total", sum.TotalPoints)
	return Submission{
		AttemptID:   a.ID,
		Score:       a.Score,
		TotalPoints: a.TotalPoints,
		Percentage:  a.Percentage,
		SubmittedAt: a.TakenAt,
	}, nil
}

func fromInput(q Quiz, in Input) Quiz {
	q.Title = strings.TrimSpace(in.Title)
	q.Description = in.Description
	q.TimeLimit = in.TimeLimit
	if q.TimeLimit == 0 {
		q.TimeLimit = DefaultTimeLimit
	}
	q.Questions = make([]Question, len(in.Questions))
	for i, qq := range in.Questions {
		if qq.Type == "" {
			qq.Type = grading.TypeMultipleChoice
		}
		if qq.Points <= 0 {
			qq.Points = grading.DefaultPoints
		}
		q.Questions[i] = qq
	}
	return q
}

// check validates in and folds every violation into one Validation error.
func (s *Service) check(in Input) error {
	in.Title = strings.TrimSpace(in.Title)
	var msgs []string
	if err := s.validate.Struct(in); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return apperr.Internal(err)
		}
		for _, fe := range ve {
			msgs = append(msgs, fieldMessage(fe))
		}
	}
	for i, qq := range in.Questions {
		if qq.CorrectAnswer == nil {
			msgs = append(msgs, fmt.Sprintf("questions[%d].correctAnswer is required", i))
		}
		typ := qq.Type
		if typ == "" {
			typ = grading.TypeMultipleChoice
		}
		switch typ {
		case grading.TypeMultipleChoice:
			if len(qq.Options) < 2 {
				msgs = append(msgs, fmt.Sprintf("questions[%d].options needs at least 2 entries", i))
			} else if key, ok := qq.CorrectAnswer.(string); qq.CorrectAnswer != nil && (!ok || !slices.Contains(qq.Options, key)) {
				msgs = append(msgs, fmt.Sprintf("questions[%d].correctAnswer must be one of the options", i))
			}
		case grading.TypeTrueFalse:
			if qq.CorrectAnswer != nil && !grading.ValidTrueFalse(qq.CorrectAnswer) {
				msgs = append(msgs, fmt.Sprintf("questions[%d].correctAnswer must be true or false", i))
			}
		}
	}
	if len(msgs) > 0 {
		return apperr.Validation(strings.Join(msgs, "; "))
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Input.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max", "lte":
		return field + " must be at most " + fe.Param()
	case "min":
		return field + " must have at least " + fe.Param()
	case "gte":
		return field + " must be at least " + fe.Param()
	case "oneof":
		return field + " must be one of " + fe.Param()
	}
	return field + " is invalid"
}

func (s *Service) audit(ctx context.Context, typ, key string, data any) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, typ, key, data); err != nil {
		s.log.WarnContext(ctx, "event log append failed", "type", typ, "key", key, "err", err)
	}
}
