package http_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	api "github.com/mind-engage/mindengage-assess/internal/api/http"
	auth "github.com/mind-engage/mindengage-assess/internal/auth/middleware"
	"github.com/mind-engage/mindengage-assess/internal/db/dbtest"
	"github.com/mind-engage/mindengage-assess/internal/directory"
	"github.com/mind-engage/mindengage-assess/internal/directory/directorytest"
	"github.com/mind-engage/mindengage-assess/internal/grading"
	"github.com/mind-engage/mindengage-assess/internal/progress"
	"github.com/mind-engage/mindengage-assess/internal/quiz"
	"github.com/mind-engage/mindengage-assess/internal/results"
	syncx "github.com/mind-engage/mindengage-assess/internal/sync"
)

type server struct {
	t       *testing.T
	h       http.Handler
	authSvc *auth.AuthService
	db      *sql.DB
	dir     *directory.SQLStore
	course  directory.Course
}

type reply struct {
	Code    int
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
	Message string          `json:"message"`
	Raw     string
}

func newServer(t *testing.T) *server {
	t.Helper()
	ctx := context.Background()
	dbh := dbtest.Open(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := directory.NewSQLStore(dbh)
	events := syncx.NewEventRepo(dbh, "")
	pstore := progress.NewSQLStore(dbh)
	qstore := quiz.NewSQLStore(dbh)
	ledger := progress.NewLedger(pstore, dir, events, log)
	authSvc := auth.NewAuthService("test-secret", "", "")

	r := chi.NewRouter()
	api.MountAPI(r, api.Deps{
		Resolver: &auth.Resolver{Tokens: authSvc, Users: dir, Log: log},
		Users:    dir,
		Quizzes:  quiz.NewService(qstore, dir, ledger, grading.NewDefaultGrader(), events, log),
		Ledger:   ledger,
		Results:  results.NewGate(qstore, dir, pstore, log),
		Events:   events,
		Log:      log,
	})

	instructor, err := dir.CreateUser(ctx, directory.User{Subject: "instructor", Name: "Instructor", Role: directory.RoleInstructor})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dir.CreateUser(ctx, directory.User{Subject: "root", Name: "Root", Role: directory.RoleAdmin}); err != nil {
		t.Fatal(err)
	}
	course := directorytest.CreateCourse(t, dbh, directory.Course{Title: "Go", InstructorID: instructor.ID})
	return &server{t: t, h: r, authSvc: authSvc, db: dbh, dir: dir, course: course}
}

// do sends a request as the user with the given token subject; an empty
// subject sends no credential.
func (s *server) do(method, path, subject, body string) reply {
	s.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if subject != "" {
		tok, err := s.authSvc.IssueJWT(subject, strings.ToUpper(subject[:1])+subject[1:], subject+"@example.com")
		if err != nil {
			s.t.Fatal(err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	out := reply{Code: rec.Code, Raw: rec.Body.String()}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		s.t.Fatalf("%s %s: body %q: %v", method, path, out.Raw, err)
	}
	return out
}

func (s *server) expect(rep reply, code int) reply {
	s.t.Helper()
	if rep.Code != code {
		s.t.Fatalf("status %d, want %d: %s", rep.Code, code, rep.Raw)
	}
	if rep.Success != (code < 400) {
		s.t.Fatalf("success flag %v for status %d", rep.Success, code)
	}
	return rep
}

const quizBody = `{"course":"%s","title":"Week 1","questions":[
	{"question":"Pick B","type":"multiple-choice","options":["A","B"],"correctAnswer":"B"},
	{"question":"Go has generics","type":"true-false","correctAnswer":true}
]}`

func (s *server) createQuiz() string {
	s.t.Helper()
	rep := s.expect(s.do("POST", "/quizzes", "instructor", strings.Replace(quizBody, "%s", s.course.ID, 1)), 201)
	var q struct {
		ID        string `json:"id"`
		Published bool   `json:"published"`
	}
	json.Unmarshal(rep.Data, &q)
	if q.ID == "" || q.Published {
		s.t.Fatalf("created quiz = %s", rep.Data)
	}
	return q.ID
}

func TestAssessmentFlow(t *testing.T) {
	s := newServer(t)
	quizID := s.createQuiz()
	base := "/quizzes/" + quizID

	// unauthenticated vs forbidden
	s.expect(s.do("GET", base, "", ""), 401)
	s.expect(s.do("GET", base, "student", ""), 403)

	// enrollment is idempotent
	s.expect(s.do("POST", "/courses/"+s.course.ID+"/enroll", "student", ""), 201)
	s.expect(s.do("POST", "/courses/"+s.course.ID+"/enroll", "student", ""), 200)

	// enrolled but still a draft
	denied := s.expect(s.do("GET", base, "student", ""), 403)
	if denied.Message != "not authorized to access this resource" {
		t.Fatalf("forbidden message = %q", denied.Message)
	}
	s.expect(s.do("POST", base+"/submit", "student", `{"answers":["B",true]}`), 403)

	s.expect(s.do("POST", base+"/publish", "student", ""), 403)
	s.expect(s.do("POST", base+"/publish", "instructor", ""), 200)

	got := s.expect(s.do("GET", base, "student", ""), 200)
	if strings.Contains(string(got.Data), "correctAnswer") {
		t.Fatalf("student sees answer keys: %s", got.Data)
	}
	list := s.expect(s.do("GET", "/courses/"+s.course.ID+"/quizzes", "student", ""), 200)
	if list.Count == nil || *list.Count != 1 {
		t.Fatalf("student quiz list = %s", list.Raw)
	}

	sub := s.expect(s.do("POST", base+"/submit", "student", `{"answers":["B","false"]}`), 201)
	var score struct {
		AttemptID   string  `json:"attemptId"`
		Score       float64 `json:"score"`
		TotalPoints float64 `json:"totalPoints"`
		Percentage  float64 `json:"percentage"`
	}
	json.Unmarshal(sub.Data, &score)
	if score.Score != 1 || score.TotalPoints != 2 || score.Percentage != 50 || score.AttemptID == "" {
		t.Fatalf("score = %+v", score)
	}

	// results stay hidden until the owner releases them
	s.expect(s.do("GET", base+"/results", "student", ""), 403)
	owner := s.expect(s.do("GET", base+"/results", "instructor", ""), 200)
	if owner.Count == nil || *owner.Count != 1 || !strings.Contains(string(owner.Data), `"resultsPublished":false`) {
		t.Fatalf("owner results = %s", owner.Raw)
	}

	s.expect(s.do("POST", base+"/results/publish", "instructor", ""), 200)
	mine := s.expect(s.do("GET", base+"/results", "student", ""), 200)
	var view struct {
		Attempt *struct {
			ID string `json:"id"`
		} `json:"attempt"`
	}
	json.Unmarshal(mine.Data, &view)
	if view.Attempt == nil || view.Attempt.ID != score.AttemptID {
		t.Fatalf("student results = %s", mine.Raw)
	}

	// the attempt is on the student's progress row, which lists without detail
	prog := s.expect(s.do("GET", "/progress/courses/"+s.course.ID, "student", ""), 200)
	if !strings.Contains(string(prog.Data), score.AttemptID) {
		t.Fatalf("progress = %s", prog.Raw)
	}
	all := s.expect(s.do("GET", "/progress", "student", ""), 200)
	if strings.Contains(string(all.Data), "quizAttempts") {
		t.Fatalf("progress list carries attempts: %s", all.Raw)
	}
}

func TestStatusTaxonomy(t *testing.T) {
	s := newServer(t)

	s.expect(s.do("GET", "/quizzes/missing", "instructor", ""), 404)
	s.expect(s.do("POST", "/progress/materials/missing/complete", "student", ""), 404)

	bad := s.expect(s.do("POST", "/quizzes", "instructor", `{"course":"`+s.course.ID+`","questions":[]}`), 400)
	if !strings.Contains(bad.Message, "title") || !strings.Contains(bad.Message, "questions") {
		t.Fatalf("validation message = %q", bad.Message)
	}
	s.expect(s.do("POST", "/quizzes", "instructor", `{"title":`), 400)

	// students are stopped at the route
	s.expect(s.do("POST", "/quizzes", "student", strings.Replace(quizBody, "%s", s.course.ID, 1)), 403)
	s.expect(s.do("GET", "/quizzes", "instructor", ""), 403)
	admin := s.expect(s.do("GET", "/quizzes", "root", ""), 200)
	if admin.Count == nil || *admin.Count != 0 {
		t.Fatalf("admin list = %s", admin.Raw)
	}
}

func TestProgressAndRosterRoutes(t *testing.T) {
	s := newServer(t)
	m1 := directorytest.AddMaterial(t, s.db, directory.Material{CourseID: s.course.ID, Title: "one", FileURL: "u1"})
	directorytest.AddMaterial(t, s.db, directory.Material{CourseID: s.course.ID, Title: "two", FileURL: "u2"})

	s.expect(s.do("POST", "/courses/"+s.course.ID+"/enroll", "student", ""), 201)
	done := s.expect(s.do("POST", "/progress/materials/"+m1.ID+"/complete", "student", ""), 200)
	if !strings.Contains(string(done.Data), `"percentComplete":50`) {
		t.Fatalf("material completion = %s", done.Raw)
	}
	again := s.expect(s.do("POST", "/progress/materials/"+m1.ID+"/complete", "student", ""), 200)
	if !strings.Contains(string(again.Data), `"percentComplete":50`) {
		t.Fatalf("repeat completion = %s", again.Raw)
	}
	full := s.expect(s.do("POST", "/progress/courses/"+s.course.ID+"/complete", "student", ""), 200)
	if !strings.Contains(string(full.Data), `"percentComplete":100`) {
		t.Fatalf("course completion = %s", full.Raw)
	}

	s.expect(s.do("GET", "/courses/"+s.course.ID+"/students", "student", ""), 403)
	roster := s.expect(s.do("GET", "/courses/"+s.course.ID+"/students", "instructor", ""), 200)
	if roster.Count == nil || *roster.Count != 1 || !strings.Contains(string(roster.Data), `"completed":true`) {
		t.Fatalf("roster = %s", roster.Raw)
	}
}

func TestRoleChangeRoute(t *testing.T) {
	s := newServer(t)
	me := s.expect(s.do("GET", "/me", "student", ""), 200)
	var u struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	}
	json.Unmarshal(me.Data, &u)
	if u.Role != "student" {
		t.Fatalf("provisioned = %s", me.Raw)
	}

	s.expect(s.do("PUT", "/users/"+u.ID+"/role", "instructor", `{"role":"admin"}`), 403)
	s.expect(s.do("PUT", "/users/"+u.ID+"/role", "root", `{"role":"wizard"}`), 400)
	s.expect(s.do("PUT", "/users/"+u.ID+"/role", "root", `{"role":"instructor"}`), 200)

	// the next request sees the new role
	me = s.expect(s.do("GET", "/me", "student", ""), 200)
	json.Unmarshal(me.Data, &u)
	if u.Role != "instructor" {
		t.Fatalf("role after change = %s", me.Raw)
	}
}

func TestAuditEventsRoute(t *testing.T) {
	s := newServer(t)
	quizID := s.createQuiz()
	s.expect(s.do("POST", "/quizzes/"+quizID+"/publish", "instructor", ""), 200)

	s.expect(s.do("GET", "/admin/events", "instructor", ""), 403)

	all := s.expect(s.do("GET", "/admin/events", "root", ""), 200)
	if all.Count == nil || *all.Count != 2 {
		t.Fatalf("events = %s", all.Raw)
	}
	var evs []struct {
		Seq  int64  `json:"seq"`
		Type string `json:"type"`
		Key  string `json:"key"`
	}
	json.Unmarshal(all.Data, &evs)
	if evs[0].Type != "QuizCreated" || evs[1].Type != "QuizStateChanged" || evs[1].Key != quizID {
		t.Fatalf("events = %s", all.Raw)
	}

	tail := s.expect(s.do("GET", fmt.Sprintf("/admin/events?since=%d", evs[0].Seq), "root", ""), 200)
	if tail.Count == nil || *tail.Count != 1 {
		t.Fatalf("since = %s", tail.Raw)
	}
	hits := s.expect(s.do("GET", "/admin/events?q=StateChanged&limit=5", "root", ""), 200)
	if hits.Count == nil || *hits.Count != 1 {
		t.Fatalf("search = %s", hits.Raw)
	}
	s.expect(s.do("GET", "/admin/events?limit=lots", "root", ""), 400)
}
