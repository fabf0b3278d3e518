package progress

import (
	"context"
	"time"
)

type Store interface {
	// Find returns the row for (userID, courseID) or a NotFound error.
	Find(ctx context.Context, userID, courseID string) (Progress, error)
	// Create inserts an empty row. If another caller created it first, that
	// row is returned.
	Create(ctx context.Context, userID, courseID string, at time.Time) (Progress, error)

	// AddMaterial unions materialID into the completed set and recomputes
	// the percentage against total materials.
	AddMaterial(ctx context.Context, progressID, materialID string, total int, at time.Time) (Progress, error)
	// CompleteAll marks every id complete and forces 100 percent.
	CompleteAll(ctx context.Context, progressID string, materialIDs []string, at time.Time) (Progress, error)
	// Recount recomputes the percentage from the stored completed set
	// against total materials, under the same row lock as the writers.
	Recount(ctx context.Context, progressID string, total int) (Progress, error)

	AppendAttempt(ctx context.Context, progressID string, a Attempt) (Attempt, error)

	// ListForUser and ListForCourse omit quiz attempts.
	ListForUser(ctx context.Context, userID string) ([]Progress, error)
	ListForCourse(ctx context.Context, courseID string) ([]Progress, error)

	// LatestAttempts returns each user's most recent attempt on quizID.
	LatestAttempts(ctx context.Context, quizID string) ([]UserAttempt, error)
	// LatestAttempt returns NotFound when the user has no attempt.
	LatestAttempt(ctx context.Context, quizID, userID string) (Attempt, error)
}
