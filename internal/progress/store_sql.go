package progress

import (
	"context"
	"database/sql"
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

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const progressCols = `id, user_id, course_id, percent_complete, last_accessed, created_at, updated_at`

func scanProgress(row interface{ Scan(...any) error }) (Progress, error) {
	var p Progress
	var last, created, updated int64
	if err := row.Scan(&p.ID, &p.UserID, &p.CourseID, &p.PercentComplete, &last, &created, &updated); err != nil {
		return Progress{}, err
	}
	p.LastAccessed = time.UnixMilli(last).UTC()
	p.CreatedAt = time.UnixMilli(created).UTC()
	p.UpdatedAt = time.UnixMilli(updated).UTC()
	return p, nil
}

func (s *SQLStore) Find(ctx context.Context, userID, courseID string) (Progress, error) {
	p, err := scanProgress(s.db.QueryRowContext(ctx,
		`SELECT `+progressCols+` FROM progress WHERE user_id=$1 AND course_id=$2`, userID, courseID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Progress{}, apperr.NotFound("progress")
		}
		return Progress{}, err
	}
	return s.hydrate(ctx, s.db, p, true)
}

func (s *SQLStore) byID(ctx context.Context, q queryer, id string) (Progress, error) {
	p, err := scanProgress(q.QueryRowContext(ctx, `SELECT `+progressCols+` FROM progress WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Progress{}, apperr.NotFound("progress")
		}
		return Progress{}, err
	}
	return s.hydrate(ctx, q, p, true)
}

// hydrate loads the completed set and, when withAttempts is set, the
// attempt list in append order.
func (s *SQLStore) hydrate(ctx context.Context, q queryer, p Progress, withAttempts bool) (Progress, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT material_id FROM progress_materials WHERE progress_id=$1 ORDER BY completed_at, material_id`, p.ID)
	if err != nil {
		return Progress{}, err
	}
	p.CompletedMaterials = []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			rows.Close()
			return Progress{}, err
		}
		p.CompletedMaterials = append(p.CompletedMaterials, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Progress{}, err
	}
	if !withAttempts {
		return p, nil
	}

	rows, err = q.QueryContext(ctx,
		`SELECT id, quiz_id, score, total_points, percentage, taken_at
		 FROM quiz_attempts WHERE progress_id=$1 ORDER BY seq`, p.ID)
	if err != nil {
		return Progress{}, err
	}
	defer rows.Close()
	p.QuizAttempts = []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return Progress{}, err
		}
		p.QuizAttempts = append(p.QuizAttempts, a)
	}
	return p, rows.Err()
}

func scanAttempt(row interface{ Scan(...any) error }, extra ...any) (Attempt, error) {
	var a Attempt
	var taken int64
	dest := append([]any{&a.ID, &a.QuizID, &a.Score, &a.TotalPoints, &a.Percentage, &taken}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Attempt{}, err
	}
	a.TakenAt = time.UnixMilli(taken).UTC()
	return a, nil
}

func (s *SQLStore) Create(ctx context.Context, userID, courseID string, at time.Time) (Progress, error) {
	ms := at.UnixMilli()
	_, err := s.db.ExecContext(ctx, `INSERT INTO progress (`+progressCols+`)
		VALUES ($1,$2,$3,0,$4,$4,$4)
		ON CONFLICT (user_id, course_id) DO NOTHING`,
		uuid.NewString(), userID, courseID, ms)
	if err != nil {
		return Progress{}, err
	}
	return s.Find(ctx, userID, courseID)
}

const (
	touchAccess = `UPDATE progress SET last_accessed=$2, updated_at=$2 WHERE id=$1`
	touchUpdate = `UPDATE progress SET updated_at=$2 WHERE id=$1`
)

// withTx runs fn in a transaction that starts by touching the progress row,
// so concurrent writers to the same row queue behind each other.
func (s *SQLStore) withTx(ctx context.Context, progressID string, at time.Time, fn func(tx *sql.Tx) error) (Progress, error) {
	return s.lockedTx(ctx, touchAccess, progressID, at, fn)
}

func (s *SQLStore) lockedTx(ctx context.Context, touch, progressID string, at time.Time, fn func(tx *sql.Tx) error) (Progress, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Progress{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, touch, progressID, at.UnixMilli())
	if err != nil {
		return Progress{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Progress{}, apperr.NotFound("progress")
	}
	if err := fn(tx); err != nil {
		return Progress{}, err
	}
	p, err := s.byID(ctx, tx, progressID)
	if err != nil {
		return Progress{}, err
	}
	return p, tx.Commit()
}

// recount sets the percentage from the stored completed set. It leaves the
// row alone for a course without materials.
func recount(ctx context.Context, tx *sql.Tx, progressID string, total int) error {
	var done int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM progress_materials WHERE progress_id=$1`, progressID).Scan(&done); err != nil {
		return err
	}
	pct, ok := Percent(done, total)
	if !ok {
		return nil
	}
	_, err := tx.ExecContext(ctx, `UPDATE progress SET percent_complete=$2 WHERE id=$1`, progressID, pct)
	return err
}

func insertMaterial(ctx context.Context, tx *sql.Tx, progressID, materialID string, ms int64) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO progress_materials (progress_id, material_id, completed_at)
		VALUES ($1,$2,$3) ON CONFLICT (progress_id, material_id) DO NOTHING`, progressID, materialID, ms)
	return err
}

func (s *SQLStore) AddMaterial(ctx context.Context, progressID, materialID string, total int, at time.Time) (Progress, error) {
	return s.withTx(ctx, progressID, at, func(tx *sql.Tx) error {
		if err := insertMaterial(ctx, tx, progressID, materialID, at.UnixMilli()); err != nil {
			return err
		}
		return recount(ctx, tx, progressID, total)
	})
}

func (s *SQLStore) CompleteAll(ctx context.Context, progressID string, materialIDs []string, at time.Time) (Progress, error) {
	return s.withTx(ctx, progressID, at, func(tx *sql.Tx) error {
		for _, m := range materialIDs {
			if err := insertMaterial(ctx, tx, progressID, m, at.UnixMilli()); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `UPDATE progress SET percent_complete=100 WHERE id=$1`, progressID)
		return err
	})
}

func (s *SQLStore) Recount(ctx context.Context, progressID string, total int) (Progress, error) {
	return s.lockedTx(ctx, touchUpdate, progressID, time.Now().UTC(), func(tx *sql.Tx) error {
		return recount(ctx, tx, progressID, total)
	})
}

func (s *SQLStore) AppendAttempt(ctx context.Context, progressID string, a Attempt) (Attempt, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.TakenAt.IsZero() {
		a.TakenAt = time.Now().UTC()
	}
	_, err := s.withTx(ctx, progressID, a.TakenAt, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO quiz_attempts
			(id, progress_id, quiz_id, score, total_points, percentage, taken_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			a.ID, progressID, a.QuizID, a.Score, a.TotalPoints, a.Percentage, a.TakenAt.UnixMilli())
		return err
	})
	if err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) list(ctx context.Context, where string, arg string) ([]Progress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+progressCols+` FROM progress WHERE `+where+`=$1 ORDER BY last_accessed DESC, id`, arg)
	if err != nil {
		return nil, err
	}
	var out []Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// hydrate after the cursor is closed; sqlite runs on a single connection
	for i := range out {
		if out[i], err = s.hydrate(ctx, s.db, out[i], false); err != nil {
			return nil, err
		}
	}
	if out == nil {
		out = []Progress{}
	}
	return out, nil
}

func (s *SQLStore) ListForUser(ctx context.Context, userID string) ([]Progress, error) {
	return s.list(ctx, "user_id", userID)
}

func (s *SQLStore) ListForCourse(ctx context.Context, courseID string) ([]Progress, error) {
	return s.list(ctx, "course_id", courseID)
}

func (s *SQLStore) LatestAttempts(ctx context.Context, quizID string) ([]UserAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.quiz_id, a.score, a.total_points, a.percentage, a.taken_at, p.user_id
		FROM quiz_attempts a JOIN progress p ON p.id = a.progress_id
		WHERE a.quiz_id=$1
		ORDER BY p.user_id, a.taken_at DESC, a.seq DESC`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []UserAttempt{}
	for rows.Next() {
		var ua UserAttempt
		a, err := scanAttempt(rows, &ua.UserID)
		if err != nil {
			return nil, err
		}
		ua.Attempt = a
		// rows are grouped by user, newest first
		if n := len(out); n > 0 && out[n-1].UserID == ua.UserID {
			continue
		}
		out = append(out, ua)
	}
	return out, rows.Err()
}

func (s *SQLStore) LatestAttempt(ctx context.Context, quizID, userID string) (Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx, `
		SELECT a.id, a.quiz_id, a.score, a.total_points, a.percentage, a.taken_at
		FROM quiz_attempts a JOIN progress p ON p.id = a.progress_id
		WHERE a.quiz_id=$1 AND p.user_id=$2
		ORDER BY a.taken_at DESC, a.seq DESC LIMIT 1`, quizID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, apperr.NotFound("attempt")
		}
		return Attempt{}, err
	}
	return a, nil
}
