package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Event types written by the assessment services.
const (
	QuizCreated       = "QuizCreated"
	QuizUpdated       = "QuizUpdated"
	QuizDeleted       = "QuizDeleted"
	QuizStateChanged  = "QuizStateChanged"
	AttemptSubmitted  = "AttemptSubmitted"
	MaterialCompleted = "MaterialCompleted"
	CourseCompleted   = "CourseCompleted"
	StudentEnrolled   = "StudentEnrolled"
	UserRoleChanged   = "UserRoleChanged"
)

type Event struct {
	Seq       int64           `json:"seq"`
	SiteID    string          `json:"siteId"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

type EventRepo struct {
	db     *sql.DB
	siteID string
}

func NewEventRepo(db *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID}
}

// Append records an event after the change it describes has committed. A
// failed append does not undo that change; callers log and carry on.
func (r *EventRepo) Append(ctx context.Context, typ, key string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		r.siteID, typ, key, string(b), time.Now().UnixMilli())
	return err
}

// Since lists events after seq in append order, at most limit of them.
func (r *EventRepo) Since(ctx context.Context, seq int64, limit int) ([]Event, error) {
	return r.query(ctx, `SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE seq > $1 ORDER BY seq LIMIT $2`, seq, clampLimit(limit))
}

// Search returns the newest events whose type or key contains q.
func (r *EventRepo) Search(ctx context.Context, q string, limit int) ([]Event, error) {
	return r.query(ctx, `SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE typ LIKE $1 OR key LIKE $1
		 ORDER BY seq DESC LIMIT $2`, "%"+q+"%", clampLimit(limit))
}

func clampLimit(n int) int {
	if n <= 0 || n > 500 {
		return 500
	}
	return n
}

func (r *EventRepo) query(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		var data string
		var created int64
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &data, &created); err != nil {
			return nil, err
		}
		e.Data = json.RawMessage(data)
		e.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
