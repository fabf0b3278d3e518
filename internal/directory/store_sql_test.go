package directory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mind-engage/mindengage-assess/internal/apperr"
	"github.com/mind-engage/mindengage-assess/internal/db/dbtest"
	"github.com/mind-engage/mindengage-assess/internal/directory"
	"github.com/mind-engage/mindengage-assess/internal/directory/directorytest"
)

func TestCreateUserIsIdempotentPerSubject(t *testing.T) {
	ctx := context.Background()
	s := directory.NewSQLStore(dbtest.Open(t))

	first, err := s.CreateUser(ctx, directory.User{Subject: "ext|1", Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Role != directory.RoleStudent {
		t.Fatalf("default role = %q", first.Role)
	}
	again, err := s.CreateUser(ctx, directory.User{Subject: "ext|1", Name: "Someone Else"})
	if err != nil {
		t.Fatalf("create again: %v", err)
	}
	if again.ID != first.ID || again.Name != "Ada" {
		t.Fatalf("expected existing user back, got %+v", again)
	}
}

func TestEnrollTwiceKeepsSingleRow(t *testing.T) {
	ctx := context.Background()
	dbh := dbtest.Open(t)
	s := directory.NewSQLStore(dbh)

	inst, _ := s.CreateUser(ctx, directory.User{Subject: "inst", Role: directory.RoleInstructor})
	stu, _ := s.CreateUser(ctx, directory.User{Subject: "stu"})
	c := directorytest.CreateCourse(t, dbh, directory.Course{Title: "Go 101", InstructorID: inst.ID})

	created, err := s.Enroll(ctx, stu.ID, c.ID)
	if err != nil || !created {
		t.Fatalf("first enroll created=%v err=%v", created, err)
	}
	created, err = s.Enroll(ctx, stu.ID, c.ID)
	if err != nil || created {
		t.Fatalf("second enroll created=%v err=%v", created, err)
	}

	u, err := s.GetUser(ctx, stu.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if len(u.EnrolledCourses) != 1 || u.EnrolledCourses[0] != c.ID {
		t.Fatalf("enrolled = %v", u.EnrolledCourses)
	}
	ids, _ := s.ListEnrolledUserIDs(ctx, c.ID)
	if len(ids) != 1 {
		t.Fatalf("roster = %v", ids)
	}
}

func TestCourseMaterialsAreReadLive(t *testing.T) {
	ctx := context.Background()
	dbh := dbtest.Open(t)
	s := directory.NewSQLStore(dbh)

	inst, _ := s.CreateUser(ctx, directory.User{Subject: "inst", Role: directory.RoleInstructor})
	c := directorytest.CreateCourse(t, dbh, directory.Course{Title: "Go 101", InstructorID: inst.ID})
	m1 := directorytest.AddMaterial(t, dbh, directory.Material{CourseID: c.ID, Title: "intro", FileURL: "/m/1"})
	m2 := directorytest.AddMaterial(t, dbh, directory.Material{CourseID: c.ID, Title: "loops", FileURL: "/m/2"})

	got, err := s.GetCourse(ctx, c.ID)
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if len(got.MaterialIDs) != 2 || got.MaterialIDs[0] != m1.ID || got.MaterialIDs[1] != m2.ID {
		t.Fatalf("materials = %v", got.MaterialIDs)
	}

	directorytest.RemoveMaterial(t, dbh, m1.ID)
	got, _ = s.GetCourse(ctx, c.ID)
	if len(got.MaterialIDs) != 1 {
		t.Fatalf("after remove = %v", got.MaterialIDs)
	}
}

func TestMissingRowsMapToNotFound(t *testing.T) {
	ctx := context.Background()
	s := directory.NewSQLStore(dbtest.Open(t))

	if _, err := s.GetCourse(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("course err = %v", err)
	}
	if _, err := s.GetMaterial(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("material err = %v", err)
	}
	if _, err := s.UpdateUserRole(ctx, "nope", directory.RoleAdmin); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("role err = %v", err)
	}
}
