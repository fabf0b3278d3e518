package grading

import (
	"context"
	"testing"
)

func TestMultipleChoiceExactMatch(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Type: TypeMultipleChoice, Correct: "B"}

	for _, tc := range []struct {
		resp interface{}
		want float64
	}{
		{"B", 1},
		{"A", 0},
		{"b", 0},
		{nil, 0},
		{[]interface{}{"B"}, 0},
	} {
		res, err := g.Grade(context.Background(), q, tc.resp)
		if err != nil {
			t.Fatalf("%v: %v", tc.resp, err)
		}
		if res.AutoPoints != tc.want || res.MaxPoints != 1 {
			t.Fatalf("resp %v: got %v/%v want %v/1", tc.resp, res.AutoPoints, res.MaxPoints, tc.want)
		}
	}
}

func TestTrueFalseCoercion(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Type: TypeTrueFalse, Correct: true, Points: 2}

	for _, tc := range []struct {
		resp interface{}
		want float64
	}{
		{true, 2},
		{"true", 2},
		{" TRUE ", 2},
		{float64(1), 2},
		{false, 0},
		{"false", 0},
		{"maybe", 0},
	} {
		res, _ := g.Grade(context.Background(), q, tc.resp)
		if res.AutoPoints != tc.want {
			t.Fatalf("resp %#v: got %v want %v", tc.resp, res.AutoPoints, tc.want)
		}
	}

	// a stored string key coerces the same way
	res, _ := g.Grade(context.Background(), Q{Type: TypeTrueFalse, Correct: "false"}, false)
	if res.AutoPoints != 1 {
		t.Fatalf("string key: got %v", res.AutoPoints)
	}
}

func TestScoreTwoQuestionsOneCorrect(t *testing.T) {
	g := NewDefaultGrader()
	qs := []Q{
		{Type: TypeMultipleChoice, Correct: "B"},
		{Type: TypeTrueFalse, Correct: true},
	}
	sum := g.Score(context.Background(), qs, []interface{}{"B", "false"})
	if sum.Score != 1 || sum.TotalPoints != 2 || sum.Percentage != 50 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestScoreRoundsAndHandlesShortAnswers(t *testing.T) {
	qs := []Q{
		{Type: TypeMultipleChoice, Correct: "A"},
		{Type: TypeMultipleChoice, Correct: "A"},
		{Type: TypeShortAnswer, Correct: "anything", Points: 1},
	}
	answers := []interface{}{"A", "C", "anything"}

	zero := NewDefaultGrader().Score(context.Background(), qs, answers)
	if zero.Score != 1 || zero.TotalPoints != 3 || zero.Percentage != 33.33 {
		t.Fatalf("zero policy = %+v", zero)
	}

	excl := NewDefaultGrader(WithShortAnswerPolicy(ShortAnswerExclude)).Score(context.Background(), qs, answers)
	if excl.Score != 1 || excl.TotalPoints != 2 || excl.Percentage != 50 {
		t.Fatalf("exclude policy = %+v", excl)
	}
}

func TestScoreMissingAnswersAndZeroTotal(t *testing.T) {
	g := NewDefaultGrader(WithShortAnswerPolicy(ShortAnswerExclude))

	sum := g.Score(context.Background(), []Q{{Type: TypeMultipleChoice, Correct: "A", Points: 3}}, nil)
	if sum.Score != 0 || sum.TotalPoints != 3 || sum.Percentage != 0 {
		t.Fatalf("missing answer = %+v", sum)
	}

	sum = g.Score(context.Background(), []Q{{Type: TypeShortAnswer}}, []interface{}{"x"})
	if sum.TotalPoints != 0 || sum.Percentage != 0 {
		t.Fatalf("zero total = %+v", sum)
	}

	sum = g.Score(context.Background(), nil, nil)
	if sum.Percentage != 0 {
		t.Fatalf("empty quiz = %+v", sum)
	}
}

func TestParseShortAnswerPolicy(t *testing.T) {
	if ParseShortAnswerPolicy("Exclude") != ShortAnswerExclude {
		t.Fatal("exclude")
	}
	if ParseShortAnswerPolicy("") != ShortAnswerZero || ParseShortAnswerPolicy("manual") != ShortAnswerZero {
		t.Fatal("fallback")
	}
}

func TestValidTrueFalse(t *testing.T) {
	for _, v := range []interface{}{true, false, "true", " False ", float64(1), float64(0), 1} {
		if !ValidTrueFalse(v) {
			t.Fatalf("%#v should be a valid key", v)
		}
	}
	for _, v := range []interface{}{nil, "maybe", float64(5), "", []interface{}{true}} {
		if ValidTrueFalse(v) {
			t.Fatalf("%#v should be rejected", v)
		}
	}
}
