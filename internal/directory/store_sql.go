package directory

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
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

const userCols = `id, subject, name, email, avatar, role, created_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	var role string
	var created int64
	if err := row.Scan(&u.ID, &u.Subject, &u.Name, &u.Email, &u.Avatar, &role, &created); err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	u.CreatedAt = time.UnixMilli(created).UTC()
	return u, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperr.NotFound("user")
		}
		return User{}, err
	}
	return s.withEnrollments(ctx, u)
}

func (s *SQLStore) FindUserBySubject(ctx context.Context, subject string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE subject=$1`, subject))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperr.NotFound("user")
		}
		return User{}, err
	}
	return s.withEnrollments(ctx, u)
}

func (s *SQLStore) withEnrollments(ctx context.Context, u User) (User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT course_id FROM enrollments WHERE user_id=$1 ORDER BY enrolled_at, course_id`, u.ID)
	if err != nil {
		return User{}, err
	}
	defer rows.Close()
	u.EnrolledCourses = []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return User{}, err
		}
		u.EnrolledCourses = append(u.EnrolledCourses, c)
	}
	return u, rows.Err()
}

func (s *SQLStore) CreateUser(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Subject == "" {
		u.Subject = u.ID
	}
	if u.Role == "" {
		u.Role = RoleStudent
	}
	now := time.Now().UTC()
	// a concurrent first login for the same subject loses the insert and
	// reads the winner's row
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (`+userCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (subject) DO NOTHING`,
		u.ID, u.Subject, u.Name, u.Email, u.Avatar, string(u.Role), now.UnixMilli())
	if err != nil {
		return User{}, err
	}
	return s.FindUserBySubject(ctx, u.Subject)
}

func (s *SQLStore) ListUsers(ctx context.Context, ids []string) ([]User, error) {
	out := make([]User, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	ph := make([]string, len(ids))
	for i, id := range ids {
		args[i] = id
		ph[i] = "$" + strconv.Itoa(i+1)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userCols+` FROM users WHERE id IN (`+strings.Join(ph, ",")+`) ORDER BY name, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateUserRole(ctx context.Context, id string, role Role) (User, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET role=$2 WHERE id=$1`, id, string(role))
	if err != nil {
		return User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return User{}, apperr.NotFound("user")
	}
	return s.GetUser(ctx, id)
}

func (s *SQLStore) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE role='admin'`).Scan(&n)
	return n, err
}

func (s *SQLStore) Enroll(ctx context.Context, userID, courseID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO enrollments (user_id, course_id, enrolled_at)
		VALUES ($1,$2,$3) ON CONFLICT (user_id, course_id) DO NOTHING`,
		userID, courseID, time.Now().UnixMilli())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLStore) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM enrollments WHERE user_id=$1 AND course_id=$2`, userID, courseID).Scan(&n)
	return n > 0, err
}

func (s *SQLStore) ListEnrolledUserIDs(ctx context.Context, courseID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM enrollments WHERE course_id=$1 ORDER BY enrolled_at, user_id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetCourse(ctx context.Context, id string) (Course, error) {
	var c Course
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, instructor_id, created_at FROM courses WHERE id=$1`, id).
		Scan(&c.ID, &c.Title, &c.InstructorID, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Course{}, apperr.NotFound("course")
		}
		return Course{}, err
	}
	c.CreatedAt = time.UnixMilli(created).UTC()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM materials WHERE course_id=$1 ORDER BY position, created_at, id`, id)
	if err != nil {
		return Course{}, err
	}
	defer rows.Close()
	c.MaterialIDs = []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return Course{}, err
		}
		c.MaterialIDs = append(c.MaterialIDs, m)
	}
	return c, rows.Err()
}

func (s *SQLStore) GetMaterial(ctx context.Context, id string) (Material, error) {
	var m Material
	err := s.db.QueryRowContext(ctx,
		`SELECT id, course_id, title, file_url, file_type FROM materials WHERE id=$1`, id).
		Scan(&m.ID, &m.CourseID, &m.Title, &m.FileURL, &m.FileType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Material{}, apperr.NotFound("material")
		}
		return Material{}, err
	}
	return m, nil
}
