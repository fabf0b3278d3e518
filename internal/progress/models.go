// Package progress keeps the per (user, course) completion ledger and the
// quiz attempts recorded against it.
package progress

import (
	"math"
	"time"

	"github.com/mind-engage/mindengage-assess/internal/directory"
)

// Attempt is one graded submission. It is never modified after it is
// appended.
type Attempt struct {
	ID          string    `json:"id"`
	QuizID      string    `json:"quiz"`
	Score       float64   `json:"score"`
	TotalPoints float64   `json:"totalPoints"`
	Percentage  float64   `json:"percentage"`
	TakenAt     time.Time `json:"takenAt"`
}

// UserAttempt is an attempt together with the user it belongs to.
type UserAttempt struct {
	UserID string `json:"user"`
	Attempt
}

type Progress struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user"`
	CourseID           string    `json:"course"`
	CompletedMaterials []string  `json:"completedMaterials"`
	QuizAttempts       []Attempt `json:"quizAttempts,omitempty"`
	PercentComplete    int       `json:"percentComplete"`
	LastAccessed       time.Time `json:"lastAccessed"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// RosterEntry is one enrolled student as seen by the course owner.
type RosterEntry struct {
	Student         directory.Profile `json:"student"`
	PercentComplete int               `json:"percentComplete"`
	LastAccessed    *time.Time        `json:"lastAccessed"`
	Completed       bool              `json:"completed"`
}

// Percent is min(100, round(100*completed/total)). ok is false for a course
// without materials, where the proportional rule does not apply.
func Percent(completed, total int) (pct int, ok bool) {
	if total <= 0 {
		return 0, false
	}
	p := int(math.Round(100 * float64(completed) / float64(total)))
	return min(p, 100), true
}
