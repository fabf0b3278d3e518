package quiz

import (
	"context"
	"time"
)

type Store interface {
	Create(ctx context.Context, q Quiz) (Quiz, error)
	Get(ctx context.Context, id string) (Quiz, error)
	// Update replaces the authored content. State and publishAt are kept.
	Update(ctx context.Context, q Quiz) (Quiz, error)
	Delete(ctx context.Context, id string) error
	ListByCourse(ctx context.Context, courseID string) ([]Quiz, error)
	ListAll(ctx context.Context) ([]Quiz, error)
	// SetState moves the quiz from one state to another. It reports false
	// without writing when the stored state is no longer from. publishAt is
	// only written when non-nil.
	SetState(ctx context.Context, id string, from, to State, publishAt *time.Time) (bool, error)
}
