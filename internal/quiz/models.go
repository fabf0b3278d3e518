// Package quiz implements quiz authoring, the publication lifecycle and
// answer submission.
package quiz

import (
	"encoding/json"
	"time"

	"github.com/mind-engage/mindengage-assess/internal/grading"
)

type Question struct {
	Text          string   `json:"question" validate:"required,max=1000"`
	Type          string   `json:"type" validate:"omitempty,oneof=multiple-choice true-false short-answer"`
	Options       []string `json:"options,omitempty" validate:"omitempty,dive,required"`
	CorrectAnswer any      `json:"correctAnswer,omitempty"`
	Points        float64  `json:"points" validate:"gte=0"`
}

func (q Question) grading() grading.Q {
	return grading.Q{Type: q.Type, Points: q.Points, Correct: q.CorrectAnswer}
}

type Quiz struct {
	ID          string     `json:"id"`
	CourseID    string     `json:"course"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	TimeLimit   int        `json:"timeLimit"` // minutes
	Questions   []Question `json:"questions"`
	State       State      `json:"state"`
	PublishAt   *time.Time `json:"publishAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (q Quiz) Published() bool        { return q.State.Published() }
func (q Quiz) ResultsPublished() bool { return q.State.ResultsPublished() }

// MarshalJSON adds the two lifecycle flags next to the state tag.
func (q Quiz) MarshalJSON() ([]byte, error) {
	type plain Quiz
	return json.Marshal(struct {
		plain
		Published        bool `json:"published"`
		ResultsPublished bool `json:"resultsPublished"`
	}{plain(q), q.Published(), q.ResultsPublished()})
}

// WithoutAnswers returns a copy with every answer key removed.
func (q Quiz) WithoutAnswers() Quiz {
	qs := make([]Question, len(q.Questions))
	copy(qs, q.Questions)
	for i := range qs {
		qs[i].CorrectAnswer = nil
	}
	q.Questions = qs
	return q
}

// Input is the author-editable part of a quiz. Lifecycle state is only
// changed through transitions.
type Input struct {
	CourseID    string     `json:"course" validate:"required"`
	Title       string     `json:"title" validate:"required,max=100"`
	Description string     `json:"description" validate:"max=500"`
	TimeLimit   int        `json:"timeLimit" validate:"gte=0,lte=1440"`
	Questions   []Question `json:"questions" validate:"required,min=1,dive"`
}

// Submission is what a caller gets back after submitting answers.
type Submission struct {
	AttemptID   string    `json:"attemptId"`
	Score       float64   `json:"score"`
	TotalPoints float64   `json:"totalPoints"`
	Percentage  float64   `json:"percentage"`
	SubmittedAt time.Time `json:"submittedAt"`
}
