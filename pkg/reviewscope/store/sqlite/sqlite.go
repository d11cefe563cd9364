package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/cognicore/reviewscope/pkg/reviewscope/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

var _ store.Store = (*sqliteStore)(nil)

// OpenSQLite opens a SQLite database with WAL mode enabled and the schema applied.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	// busy_timeout must be set per connection, so it goes in the DSN
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", path+sep+"_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}

	// Enable WAL mode so topic reads can run alongside collector writes
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS reviews (
	review_id TEXT PRIMARY KEY,
	source TEXT NOT NULL DEFAULT '',
	app_id TEXT NOT NULL,
	author TEXT,
	rating INTEGER NOT NULL DEFAULT 0,
	title TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	sentiment REAL,
	counts_toward_score INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reviews_app ON reviews(app_id, created_at);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	app_id TEXT NOT NULL,
	app_name TEXT NOT NULL DEFAULT '',
	actor TEXT NOT NULL,
	task_type TEXT NOT NULL DEFAULT '',
	target INTEGER NOT NULL,
	current INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	progress_percent INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	started_at TEXT,
	completed_at TEXT,
	result_message TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_tasks_app_actor ON tasks(app_id, actor, status);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertReview inserts a review or refreshes the mutable fields of an existing one
func (s *sqliteStore) UpsertReview(ctx context.Context, r store.Review) (bool, error) {
	if r.ReviewID == "" {
		return false, fmt.Errorf("upsert review: empty review id")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	createdAt := formatTime(r.CreatedAt)
	res, err := tx.ExecContext(ctx, `
INSERT INTO reviews (review_id, source, app_id, author, rating, title, content, sentiment, counts_toward_score, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(review_id) DO NOTHING;
`,
		r.ReviewID,
		r.Source,
		r.AppID,
		nullString(r.Author),
		r.Rating,
		r.Title,
		r.Content,
		nullFloat(r.Sentiment),
		boolInt(r.CountsTowardScore),
		createdAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	created := n == 1
	if !created {
		if _, err := tx.ExecContext(ctx, `
UPDATE reviews
SET sentiment = COALESCE(?, sentiment),
	created_at = ?
WHERE review_id = ?;
`, nullFloat(r.Sentiment), createdAt, r.ReviewID); err != nil {
			return false, fmt.Errorf("update review: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return created, nil
}

var reviewColumns = []string{
	"review_id", "source", "app_id", "author", "rating", "title",
	"content", "sentiment", "counts_toward_score", "created_at",
}

// GetReview retrieves a review by its external id
func (s *sqliteStore) GetReview(ctx context.Context, reviewID string) (store.Review, bool, error) {
	query, args, err := sq.Select(reviewColumns...).
		From("reviews").
		Where(sq.Eq{"review_id": reviewID}).
		ToSql()
	if err != nil {
		return store.Review{}, false, err
	}

	r, err := scanReview(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return store.Review{}, false, nil
	}
	if err != nil {
		return store.Review{}, false, err
	}
	return r, true, nil
}

// ListReviews returns reviews matching the query, newest first
func (s *sqliteStore) ListReviews(ctx context.Context, q store.ReviewQuery) ([]store.Review, error) {
	qb := sq.Select(reviewColumns...).
		From("reviews").
		OrderBy("created_at DESC", "review_id")
	qb = applyFilters(qb, q.AppIDs, q.ScoredOnly)

	switch q.Polarity {
	case store.PolarityPositive:
		qb = qb.Where(sq.Gt{"sentiment": store.PositiveThreshold})
	case store.PolarityNegative:
		qb = qb.Where(sq.Lt{"sentiment": store.NegativeThreshold})
	}
	if q.Limit > 0 {
		qb = qb.Limit(uint64(q.Limit))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var out []store.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SentimentStats aggregates scored reviews that count toward the app score
func (s *sqliteStore) SentimentStats(ctx context.Context, appIDs []string) (store.Stats, error) {
	qb := sq.Select().
		Column("COUNT(*)").
		Column(sq.Expr("COALESCE(SUM(CASE WHEN sentiment > ? THEN 1 ELSE 0 END), 0)", store.PositiveThreshold)).
		Column(sq.Expr("COALESCE(SUM(CASE WHEN sentiment < ? THEN 1 ELSE 0 END), 0)", store.NegativeThreshold)).
		Column("COALESCE(SUM(sentiment), 0.0)").
		From("reviews").
		Where(sq.NotEq{"sentiment": nil})
	qb = applyFilters(qb, appIDs, true)

	query, args, err := qb.ToSql()
	if err != nil {
		return store.Stats{}, err
	}

	var (
		total, positive, negative int64
		sum                       float64
	)
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total, &positive, &negative, &sum); err != nil {
		return store.Stats{}, fmt.Errorf("sentiment stats: %w", err)
	}
	return store.NewStats(int(total), int(positive), int(negative), sum), nil
}

func applyFilters(qb sq.SelectBuilder, appIDs []string, scoredOnly bool) sq.SelectBuilder {
	if len(appIDs) > 0 {
		qb = qb.Where(sq.Eq{"app_id": appIDs})
	}
	if scoredOnly {
		qb = qb.Where(sq.Eq{"counts_toward_score": 1})
	}
	return qb
}

// CreateTask inserts a new task record
func (s *sqliteStore) CreateTask(ctx context.Context, t store.Task) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO tasks (id, app_id, app_name, actor, task_type, target, current, status,
	progress_percent, created_at, started_at, completed_at, result_message, error_message)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
		t.ID, t.AppID, t.AppName, t.Actor, t.TaskType, t.Target, t.Current, string(t.Status),
		t.ProgressPercent, formatTime(t.CreatedAt), nullTime(t.StartedAt), nullTime(t.CompletedAt),
		t.ResultMessage, t.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// UpdateTask overwrites the mutable fields of a task
func (s *sqliteStore) UpdateTask(ctx context.Context, t store.Task) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE tasks SET
	current = ?,
	status = ?,
	progress_percent = ?,
	started_at = ?,
	completed_at = ?,
	result_message = ?,
	error_message = ?
WHERE id = ?;
`,
		t.Current, string(t.Status), t.ProgressPercent, nullTime(t.StartedAt), nullTime(t.CompletedAt),
		t.ResultMessage, t.ErrorMessage, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update task %s: no such task", t.ID)
	}
	return nil
}

var taskColumns = []string{
	"id", "app_id", "app_name", "actor", "task_type", "target", "current", "status",
	"progress_percent", "created_at", "started_at", "completed_at", "result_message", "error_message",
}

// GetTask retrieves a task by ID
func (s *sqliteStore) GetTask(ctx context.Context, id string) (store.Task, bool, error) {
	query, args, err := sq.Select(taskColumns...).From("tasks").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return store.Task{}, false, err
	}
	t, err := scanTask(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return store.Task{}, false, nil
	}
	if err != nil {
		return store.Task{}, false, err
	}
	return t, true, nil
}

// ActiveTask returns the most recent running task for an app and actor
func (s *sqliteStore) ActiveTask(ctx context.Context, appID, actor string) (store.Task, bool, error) {
	query, args, err := sq.Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{
			"app_id": appID,
			"actor":  actor,
			"status": []string{string(store.StatusPending), string(store.StatusStarted), string(store.StatusProgress)},
		}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return store.Task{}, false, err
	}
	t, err := scanTask(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return store.Task{}, false, nil
	}
	if err != nil {
		return store.Task{}, false, err
	}
	return t, true, nil
}

// ListTasks returns recent tasks, optionally restricted to one app
func (s *sqliteStore) ListTasks(ctx context.Context, appID string, limit int) ([]store.Task, error) {
	if limit <= 0 {
		limit = 20
	}
	qb := sq.Select(taskColumns...).From("tasks").OrderBy("created_at DESC").Limit(uint64(limit))
	if appID != "" {
		qb = qb.Where(sq.Eq{"app_id": appID})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []store.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (store.Review, error) {
	var (
		r         store.Review
		author    sql.NullString
		sentiment sql.NullFloat64
		counts    int64
		createdAt string
	)
	if err := row.Scan(&r.ReviewID, &r.Source, &r.AppID, &author, &r.Rating, &r.Title,
		&r.Content, &sentiment, &counts, &createdAt); err != nil {
		return store.Review{}, err
	}
	r.Author = author.String
	if sentiment.Valid {
		v := sentiment.Float64
		r.Sentiment = &v
	}
	r.CountsTowardScore = counts != 0
	r.CreatedAt = parseTime(createdAt)
	return r, nil
}

func scanTask(row rowScanner) (store.Task, error) {
	var (
		t                      store.Task
		status, createdAt      string
		startedAt, completedAt sql.NullString
	)
	if err := row.Scan(&t.ID, &t.AppID, &t.AppName, &t.Actor, &t.TaskType, &t.Target, &t.Current,
		&status, &t.ProgressPercent, &createdAt, &startedAt, &completedAt,
		&t.ResultMessage, &t.ErrorMessage); err != nil {
		return store.Task{}, err
	}
	t.Status = store.TaskStatus(status)
	t.CreatedAt = parseTime(createdAt)
	if startedAt.Valid && startedAt.String != "" {
		ts := parseTime(startedAt.String)
		t.StartedAt = &ts
	}
	if completedAt.Valid && completedAt.String != "" {
		ts := parseTime(completedAt.String)
		t.CompletedAt = &ts
	}
	return t, nil
}

// timeLayout is fixed-width so that TEXT ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
