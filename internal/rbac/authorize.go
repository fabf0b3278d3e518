package rbac

import (
	"slices"

	"github.com/mind-engage/mindengage-assess/internal/apperr"
	"github.com/mind-engage/mindengage-assess/internal/directory"
)

// Identity is the caller as persisted right now. It is rebuilt from the
// directory on every request and never cached across requests.
type Identity struct {
	directory.User
}

func (id Identity) Anonymous() bool { return id.ID == "" }

// IsOwnerOrAdmin reports whether id may manage the course.
func IsOwnerOrAdmin(id Identity, c directory.Course) bool {
	if id.Anonymous() {
		return false
	}
	return id.Role == directory.RoleAdmin || c.InstructorID == id.ID
}

func IsEnrolled(id Identity, c directory.Course) bool {
	return !id.Anonymous() && slices.Contains(id.EnrolledCourses, c.ID)
}

// RequireRole fails with Forbidden unless id has one of the roles.
func RequireRole(id Identity, allowed ...directory.Role) error {
	if id.Anonymous() {
		return apperr.Forbidden(apperr.ReasonAnonymous, "authentication required")
	}
	if !slices.Contains(allowed, id.Role) {
		return apperr.Forbidden(apperr.ReasonRole, "role "+string(id.Role)+" is not allowed")
	}
	return nil
}

type Capability int

const (
	// ManageCourse covers quiz authoring, lifecycle transitions and rosters.
	ManageCourse Capability = iota
	ListQuizzes
	ReadQuiz
	SubmitQuiz
	ViewResults
)

func (c Capability) String() string {
	switch c {
	case ManageCourse:
		return "manage_course"
	case ListQuizzes:
		return "list_quizzes"
	case ReadQuiz:
		return "read_quiz"
	case SubmitQuiz:
		return "submit_quiz"
	case ViewResults:
		return "view_results"
	}
	return "unknown"
}

// Target describes the resource a capability is checked against. The quiz
// flags come from the quiz's lifecycle state.
type Target struct {
	Course           directory.Course
	QuizPublished    bool
	ResultsPublished bool
}

// Access is what a successful check grants. Privileged callers (course
// owner or admin) get unfiltered views.
type Access struct {
	Privileged bool
}

// Authorize is the single capability check every assessment operation goes
// through.
func Authorize(id Identity, want Capability, t Target) (Access, error) {
	if id.Anonymous() {
		return Access{}, apperr.Forbidden(apperr.ReasonAnonymous, "authentication required")
	}
	owner := IsOwnerOrAdmin(id, t.Course)

	switch want {
	case ManageCourse:
		if err := RequireRole(id, directory.RoleInstructor, directory.RoleAdmin); err != nil {
			return Access{}, err
		}
		if !owner {
			return Access{}, apperr.Forbidden(apperr.ReasonNotOwner, "not the course instructor")
		}
		return Access{Privileged: true}, nil

	case ListQuizzes, ReadQuiz:
		if owner {
			return Access{Privileged: true}, nil
		}
		if !IsEnrolled(id, t.Course) {
			return Access{}, apperr.Forbidden(apperr.ReasonNotEnrolled, "not enrolled in this course")
		}
		if want == ReadQuiz && !t.QuizPublished {
			return Access{}, apperr.Forbidden(apperr.ReasonQuizNotPublished, "quiz is not published yet")
		}
		return Access{}, nil

	case SubmitQuiz:
		if !owner && !IsEnrolled(id, t.Course) {
			return Access{}, apperr.Forbidden(apperr.ReasonNotEnrolled, "not enrolled in this course")
		}
		// owners are held to the same publication rule when they submit
		if !t.QuizPublished {
			return Access{}, apperr.Forbidden(apperr.ReasonQuizNotPublished, "quiz is not published yet")
		}
		return Access{Privileged: owner}, nil

	case ViewResults:
		if owner {
			return Access{Privileged: true}, nil
		}
		if !IsEnrolled(id, t.Course) {
			return Access{}, apperr.Forbidden(apperr.ReasonNotEnrolled, "not enrolled in this course")
		}
		if !t.ResultsPublished {
			return Access{}, apperr.Forbidden(apperr.ReasonResultsNotPublished, "results are not published yet")
		}
		return Access{}, nil
	}
	return Access{}, apperr.Forbidden(apperr.ReasonRole, "unknown capability")
}
