package directory

import "context"

type Store interface {
	GetUser(ctx context.Context, id string) (User, error)
	FindUserBySubject(ctx context.Context, subject string) (User, error)
	// CreateUser inserts u; when the subject already exists the stored
	// user is returned instead.
	CreateUser(ctx context.Context, u User) (User, error)
	ListUsers(ctx context.Context, ids []string) ([]User, error)
	UpdateUserRole(ctx context.Context, id string, role Role) (User, error)
	CountAdmins(ctx context.Context) (int, error)

	// Enroll reports whether a new enrollment row was written.
	Enroll(ctx context.Context, userID, courseID string) (bool, error)
	IsEnrolled(ctx context.Context, userID, courseID string) (bool, error)
	ListEnrolledUserIDs(ctx context.Context, courseID string) ([]string, error)

	GetCourse(ctx context.Context, id string) (Course, error)
	GetMaterial(ctx context.Context, id string) (Material, error)
}
