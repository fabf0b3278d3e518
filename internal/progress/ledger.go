package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/mind-engage/mindengage-assess/internal/apperr"
	"github.com/mind-engage/mindengage-assess/internal/directory"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
	syncx "github.com/mind-engage/mindengage-assess/internal/sync"
)

// Ledger owns every mutation of progress rows. Course shape is read from the
// directory on each call.
type Ledger struct {
	store  Store
	dir    directory.Store
	events *syncx.EventRepo
	log    *slog.Logger
	now    func() time.Time
}

func NewLedger(store Store, dir directory.Store, events *syncx.EventRepo, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{
		store:  store,
		dir:    dir,
		events: events,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreate returns the caller's row for the course, creating an empty one
// when absent. A stored percentage that disagrees with the live material
// count is corrected and persisted before returning.
func (l *Ledger) GetOrCreate(ctx context.Context, userID, courseID string) (Progress, error) {
	course, err := l.dir.GetCourse(ctx, courseID)
	if err != nil {
		return Progress{}, err
	}
	return l.getOrCreate(ctx, userID, course)
}

func (l *Ledger) getOrCreate(ctx context.Context, userID string, course directory.Course) (Progress, error) {
	p, err := l.store.Find(ctx, userID, course.ID)
	if apperr.KindOf(err) == apperr.KindNotFound {
		p, err = l.store.Create(ctx, userID, course.ID, l.now())
	}
	if err != nil {
		return Progress{}, err
	}
	return l.reconcile(ctx, p, course)
}

func (l *Ledger) reconcile(ctx context.Context, p Progress, course directory.Course) (Progress, error) {
	pct, ok := Percent(len(p.CompletedMaterials), len(course.MaterialIDs))
	if !ok || pct == p.PercentComplete {
		return p, nil
	}
	fresh, err := l.store.Recount(ctx, p.ID, len(course.MaterialIDs))
	if err != nil {
		return Progress{}, err
	}
	l.log.DebugContext(ctx, "progress reconciled",
		"progress", p.ID, "from", p.PercentComplete, "to", fresh.PercentComplete, "materials", len(course.MaterialIDs))
	// keep the caller's attempt detail; a listing never carries it
	p.CompletedMaterials = fresh.CompletedMaterials
	p.PercentComplete = fresh.PercentComplete
	p.UpdatedAt = fresh.UpdatedAt
	return p, nil
}

// CompleteMaterial adds one material to the caller's completed set for the
// material's course and recomputes the percentage proportionally.
func (l *Ledger) CompleteMaterial(ctx context.Context, userID, materialID string) (Progress, error) {
	m, err := l.dir.GetMaterial(ctx, materialID)
	if err != nil {
		return Progress{}, err
	}
	course, err := l.dir.GetCourse(ctx, m.CourseID)
	if err != nil {
		return Progress{}, err
	}
	p, err := l.getOrCreate(ctx, userID, course)
	if err != nil {
		return Progress{}, err
	}
	p, err = l.store.AddMaterial(ctx, p.ID, m.ID, len(course.MaterialIDs), l.now())
	if err != nil {
		return Progress{}, err
	}
	l.audit(ctx, syncx.MaterialCompleted, p.ID, map[string]any{
		"user": userID, "course": course.ID, "material": m.ID, "percentComplete": p.PercentComplete,
	})
	return p, nil
}

// CompleteCourse marks the whole course complete regardless of how many
// materials it has.
func (l *Ledger) CompleteCourse(ctx context.Context, userID, courseID string) (Progress, error) {
	course, err := l.dir.GetCourse(ctx, courseID)
	if err != nil {
		return Progress{}, err
	}
	p, err := l.getOrCreate(ctx, userID, course)
	if err != nil {
		return Progress{}, err
	}
	p, err = l.store.CompleteAll(ctx, p.ID, course.MaterialIDs, l.now())
	if err != nil {
		return Progress{}, err
	}
	l.audit(ctx, syncx.CourseCompleted, p.ID, map[string]any{"user": userID, "course": courseID})
	return p, nil
}

// RecordQuizAttempt appends a graded attempt to the caller's row for the
// course.
func (l *Ledger) RecordQuizAttempt(ctx context.Context, userID, courseID string, a Attempt) (Attempt, error) {
	course, err := l.dir.GetCourse(ctx, courseID)
	if err != nil {
		return Attempt{}, err
	}
	p, err := l.getOrCreate(ctx, userID, course)
	if err != nil {
		return Attempt{}, err
	}
	if a.TakenAt.IsZero() {
		a.TakenAt = l.now()
	}
	return l.store.AppendAttempt(ctx, p.ID, a)
}

// ListForUser returns every row of the user without attempt detail.
func (l *Ledger) ListForUser(ctx context.Context, userID string) ([]Progress, error) {
	rows, err := l.store.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i, p := range rows {
		course, err := l.dir.GetCourse(ctx, p.CourseID)
		if err != nil {
			return nil, err
		}
		if rows[i], err = l.reconcile(ctx, p, course); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// CourseRoster lists enrolled students with their progress. Only the course
// owner or an admin may see it.
func (l *Ledger) CourseRoster(ctx context.Context, id rbac.Identity, courseID string) ([]RosterEntry, error) {
	course, err := l.dir.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if _, err := rbac.Authorize(id, rbac.ManageCourse, rbac.Target{Course: course}); err != nil {
		return nil, err
	}
	ids, err := l.dir.ListEnrolledUserIDs(ctx, courseID)
	if err != nil {
		return nil, err
	}
	users, err := l.dir.ListUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	rows, err := l.store.ListForCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	byUser := make(map[string]Progress, len(rows))
	for _, p := range rows {
		byUser[p.UserID] = p
	}

	out := make([]RosterEntry, 0, len(users))
	for _, u := range users {
		e := RosterEntry{Student: u.Profile()}
		if p, ok := byUser[u.ID]; ok {
			if p, err = l.reconcile(ctx, p, course); err != nil {
				return nil, err
			}
			last := p.LastAccessed
			e.PercentComplete = p.PercentComplete
			e.LastAccessed = &last
			e.Completed = p.PercentComplete >= 100
		}
		out = append(out, e)
	}
	return out, nil
}

func (l *Ledger) audit(ctx context.Context, typ, key string, data any) {
	if l.events == nil {
		return
	}
	if err := l.events.Append(ctx, typ, key, data); err != nil {
		l.log.WarnContext(ctx, "event log append failed", "type", typ, "key", key, "err", err)
	}
}
