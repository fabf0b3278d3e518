// Package directorytest writes course and material rows for tests. Course
// authoring lives outside this service, so the production store only reads
// them.
package directorytest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-assess/internal/directory"
)

// CreateCourse inserts c with a fresh id when none is set.
func CreateCourse(t testing.TB, db *sql.DB, c directory.Course) directory.Course {
	t.Helper()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO courses (id, title, instructor_id, created_at) VALUES ($1,$2,$3,$4)`,
		c.ID, c.Title, c.InstructorID, c.CreatedAt.UnixMilli())
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	c.MaterialIDs = []string{}
	return c
}

// AddMaterial appends m to the end of its course.
func AddMaterial(t testing.TB, db *sql.DB, m directory.Material) directory.Material {
	t.Helper()
	ctx := context.Background()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.FileType == "" {
		m.FileType = "other"
	}
	var pos int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM materials WHERE course_id=$1`, m.CourseID).Scan(&pos); err != nil {
		t.Fatalf("count materials: %v", err)
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO materials (id, course_id, title, file_url, file_type, position, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.CourseID, m.Title, m.FileURL, m.FileType, pos, time.Now().UnixMilli())
	if err != nil {
		t.Fatalf("add material: %v", err)
	}
	return m
}

func RemoveMaterial(t testing.TB, db *sql.DB, id string) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(), `DELETE FROM materials WHERE id=$1`, id); err != nil {
		t.Fatalf("remove material: %v", err)
	}
}
