package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-assess/internal/apperr"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const quizCols = `id, course_id, title, description, time_limit_min, questions_json, state, publish_at, created_at, updated_at`

func scanQuiz(row interface{ Scan(...any) error }) (Quiz, error) {
	var q Quiz
	var qjson, state string
	var publishAt sql.NullInt64
	var created, updated int64
	if err := row.Scan(&q.ID, &q.CourseID, &q.Title, &q.Description, &q.TimeLimit,
		&qjson, &state, &publishAt, &created, &updated); err != nil {
		return Quiz{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &q.Questions); err != nil {
		return Quiz{}, err
	}
	q.State = State(state)
	if publishAt.Valid {
		t := time.UnixMilli(publishAt.Int64).UTC()
		q.PublishAt = &t
	}
	q.CreatedAt = time.UnixMilli(created).UTC()
	q.UpdatedAt = time.UnixMilli(updated).UTC()
	return q, nil
}

func (s *SQLStore) Create(ctx context.Context, q Quiz) (Quiz, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if !q.State.Valid() {
		q.State = StateDraft
	}
	qj, err := json.Marshal(q.Questions)
	if err != nil {
		return Quiz{}, err
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes (`+quizCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULL,$8,$8)`,
		q.ID, q.CourseID, q.Title, q.Description, q.TimeLimit, string(qj), string(q.State), now.UnixMilli())
	if err != nil {
		return Quiz{}, err
	}
	return s.Get(ctx, q.ID)
}

func (s *SQLStore) Get(ctx context.Context, id string) (Quiz, error) {
	q, err := scanQuiz(s.db.QueryRowContext(ctx, `SELECT `+quizCols+` FROM quizzes WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, apperr.NotFound("quiz")
		}
		return Quiz{}, err
	}
	return q, nil
}

func (s *SQLStore) Update(ctx context.Context, q Quiz) (Quiz, error) {
	qj, err := json.Marshal(q.Questions)
	if err != nil {
		return Quiz{}, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE quizzes
		SET title=$2, description=$3, time_limit_min=$4, questions_json=$5, updated_at=$6
		WHERE id=$1`,
		q.ID, q.Title, q.Description, q.TimeLimit, string(qj), time.Now().UnixMilli())
	if err != nil {
		return Quiz{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Quiz{}, apperr.NotFound("quiz")
	}
	return s.Get(ctx, q.ID)
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("quiz")
	}
	return nil
}

func (s *SQLStore) list(ctx context.Context, query string, args ...any) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Quiz{}
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListByCourse(ctx context.Context, courseID string) ([]Quiz, error) {
	return s.list(ctx, `SELECT `+quizCols+` FROM quizzes WHERE course_id=$1 ORDER BY created_at, id`, courseID)
}

func (s *SQLStore) ListAll(ctx context.Context) ([]Quiz, error) {
	return s.list(ctx, `SELECT `+quizCols+` FROM quizzes ORDER BY course_id, created_at, id`)
}

func (s *SQLStore) SetState(ctx context.Context, id string, from, to State, publishAt *time.Time) (bool, error) {
	now := time.Now().UnixMilli()
	var (
		res sql.Result
		err error
	)
	if publishAt != nil {
		res, err = s.db.ExecContext(ctx,
			`UPDATE quizzes SET state=$3, publish_at=$4, updated_at=$5 WHERE id=$1 AND state=$2`,
			id, string(from), string(to), publishAt.UnixMilli(), now)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE quizzes SET state=$3, updated_at=$4 WHERE id=$1 AND state=$2`,
			id, string(from), string(to), now)
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
