package grading

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"
)

const (
	TypeMultipleChoice = "multiple-choice"
	TypeTrueFalse      = "true-false"
	TypeShortAnswer    = "short-answer"
)

// DefaultPoints is the weight of a question that does not set one.
const DefaultPoints = 1.0

// Q is a minimal view of a question needed for grading.
type Q struct {
	Type    string
	Points  float64 // <= 0 means DefaultPoints
	Correct any
}

func (q Q) weight() float64 {
	if q.Points <= 0 {
		return DefaultPoints
	}
	return q.Points
}

// Result is the outcome of grading a single question response.
type Result struct {
	AutoPoints  float64  `json:"autoPoints"`
	MaxPoints   float64  `json:"maxPoints"`
	Excluded    bool     `json:"excluded,omitempty"` // not counted toward the total
	NeedsManual bool     `json:"needsManual,omitempty"`
	Feedback    []string `json:"feedback,omitempty"`
}

// Summary is an immutable graded submission.
type Summary struct {
	Score       float64  `json:"score"`
	TotalPoints float64  `json:"totalPoints"`
	Percentage  float64  `json:"percentage"`
	Items       []Result `json:"-"`
}

// Strategy grades a single question.
type Strategy interface {
	Grade(ctx context.Context, q Q, response interface{}) (Result, error)
}

// Grader routes by question type to the correct Strategy and totals a
// whole submission.
type Grader interface {
	Grade(ctx context.Context, q Q, response interface{}) (Result, error)
	Score(ctx context.Context, questions []Q, answers []interface{}) Summary
}

// ShortAnswerPolicy decides what an ungraded short-answer question does to
// the total.
type ShortAnswerPolicy string

const (
	// ShortAnswerZero counts the question's points in the total and never
	// awards them automatically.
	ShortAnswerZero ShortAnswerPolicy = "zero"
	// ShortAnswerExclude leaves the question out of the total entirely.
	ShortAnswerExclude ShortAnswerPolicy = "exclude"
)

// ParseShortAnswerPolicy falls back to ShortAnswerZero for unknown values.
func ParseShortAnswerPolicy(s string) ShortAnswerPolicy {
	if ShortAnswerPolicy(strings.ToLower(strings.TrimSpace(s))) == ShortAnswerExclude {
		return ShortAnswerExclude
	}
	return ShortAnswerZero
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, response interface{}) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{MaxPoints: q.weight(), NeedsManual: true, Feedback: []string{"no strategy available"}}, nil
	}
	return s.Grade(ctx, q, response)
}

// Score grades answers positionally against questions. A missing or
// malformed answer earns nothing for its question.
func (g *defaultGrader) Score(ctx context.Context, questions []Q, answers []interface{}) Summary {
	sum := Summary{Items: make([]Result, 0, len(questions))}
	for i, q := range questions {
		var resp interface{}
		if i < len(answers) {
			resp = answers[i]
		}
		res, err := g.Grade(ctx, q, resp)
		if err != nil {
			res = Result{MaxPoints: q.weight(), Feedback: []string{err.Error()}}
		}
		sum.Items = append(sum.Items, res)
		if res.Excluded {
			continue
		}
		sum.TotalPoints += res.MaxPoints
		sum.Score += res.AutoPoints
	}
	sum.Percentage = Percentage(sum.Score, sum.TotalPoints)
	return sum
}

// Percentage is score/total*100 rounded to two decimals; 0 when total is 0.
func Percentage(score, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(score/total*100*100) / 100
}

// Engine options

type Option func(*config)

type config struct {
	ShortAnswer ShortAnswerPolicy
}

func WithShortAnswerPolicy(p ShortAnswerPolicy) Option {
	return func(c *config) { c.ShortAnswer = p }
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := &config{ShortAnswer: ShortAnswerZero}
	for _, o := range opts {
		o(cfg)
	}
	return &defaultGrader{
		strategies: map[string]Strategy{
			TypeMultipleChoice: multipleChoiceStrategy{},
			TypeTrueFalse:      trueFalseStrategy{},
			TypeShortAnswer:    shortAnswerStrategy{policy: cfg.ShortAnswer},
		},
	}
}

// --- Strategies ---

type multipleChoiceStrategy struct{}

func (multipleChoiceStrategy) Grade(_ context.Context, q Q, response interface{}) (Result, error) {
	res := Result{MaxPoints: q.weight()}
	if response == nil {
		return res, nil
	}
	if reflect.DeepEqual(response, q.Correct) {
		res.AutoPoints = res.MaxPoints
	}
	return res, nil
}

type trueFalseStrategy struct{}

func (trueFalseStrategy) Grade(_ context.Context, q Q, response interface{}) (Result, error) {
	res := Result{MaxPoints: q.weight()}
	if response == nil {
		return res, nil
	}
	want, ok := asBool(q.Correct)
	if !ok {
		return res, errors.New("correct answer is not a boolean")
	}
	got, ok := asBool(response)
	if !ok {
		return res, errors.New("response must be true or false")
	}
	if got == want {
		res.AutoPoints = res.MaxPoints
	}
	return res, nil
}

type shortAnswerStrategy struct{ policy ShortAnswerPolicy }

func (s shortAnswerStrategy) Grade(_ context.Context, q Q, _ interface{}) (Result, error) {
	res := Result{MaxPoints: q.weight(), Feedback: []string{"short answers are not auto-graded"}}
	if s.policy == ShortAnswerExclude {
		res.Excluded = true
	}
	return res, nil
}

// ValidTrueFalse reports whether v can serve as a true-false answer key.
func ValidTrueFalse(v interface{}) bool {
	_, ok := asBool(v)
	return ok
}

// helpers

func asBool(v interface{}) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	case float64:
		switch t {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	case int:
		switch t {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	}
	return false, false
}
