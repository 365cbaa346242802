package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"NewsletterEngine/internal/domain"
	"NewsletterEngine/internal/ports"
)

const (
	subscriptionsTable = "newsletter_subscriptions"
	newslettersTable   = "generated_newsletters"

	// Fixed-width UTC text so lexical order matches chronological order in sqlite.
	sqliteTimeLayout = "2006-01-02 15:04:05.000000000"
)

var subscriptionColumns = []string{
	"id", "user_id", "api_query", "cron_schedule", "summarization_prompt", "is_active", "created_at",
}

// SQLRepository persists subscriptions and generated newsletters in Postgres or SQLite.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	builder sq.StatementBuilderType
	now     func() time.Time
	newID   func() string
}

var (
	_ ports.SubscriptionRepository = (*SQLRepository)(nil)
	_ ports.NewsletterRepository   = (*SQLRepository)(nil)
)

// NewSQLRepository wires an open sql.DB. Call Migrate before first use.
func NewSQLRepository(db *sql.DB, dialect Dialect) *SQLRepository {
	var format sq.PlaceholderFormat = sq.Question
	if dialect == DialectPostgres {
		format = sq.Dollar
	}
	return &SQLRepository{
		db:      db,
		dialect: dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(format),
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

// Migrate creates the tables if they do not exist.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if r.dialect == DialectPostgres {
		schema = postgresSchema
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply %s schema: %w", r.dialect, err)
	}
	return nil
}

// Close releases the connection pool.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// Ping checks connectivity for health probes.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateSubscription inserts an active subscription and returns the stored row.
func (r *SQLRepository) CreateSubscription(ctx context.Context, in domain.NewSubscription) (domain.Subscription, error) {
	sub := domain.Subscription{
		ID:                  r.newID(),
		UserID:              in.UserID,
		APIQuery:            in.APIQuery,
		CronSchedule:        in.CronSchedule,
		SummarizationPrompt: in.SummarizationPrompt,
		IsActive:            true,
		CreatedAt:           r.now().UTC(),
	}

	query, args, err := r.builder.Insert(subscriptionsTable).
		Columns(subscriptionColumns...).
		Values(sub.ID, sub.UserID, sub.APIQuery, sub.CronSchedule,
			nullString(sub.SummarizationPrompt), sub.IsActive, r.timeArg(sub.CreatedAt)).
		ToSql()
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("build insert subscription: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return domain.Subscription{}, fmt.Errorf("insert subscription: %w", err)
	}
	return sub, nil
}

// ListActiveSubscriptions returns active subscriptions in creation order.
func (r *SQLRepository) ListActiveSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	return r.querySubscriptions(ctx, r.builder.Select(subscriptionColumns...).
		From(subscriptionsTable).
		Where(sq.Eq{"is_active": true}).
		OrderBy("created_at ASC", "id ASC"))
}

// ListSubscriptionsByUser returns every subscription owned by userID, newest first.
func (r *SQLRepository) ListSubscriptionsByUser(ctx context.Context, userID string) ([]domain.Subscription, error) {
	return r.querySubscriptions(ctx, r.builder.Select(subscriptionColumns...).
		From(subscriptionsTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC"))
}

// SetSubscriptionActive updates is_active on a row owned by userID.
// Rows owned by someone else are reported as domain.ErrNotFound.
func (r *SQLRepository) SetSubscriptionActive(ctx context.Context, userID, id string, active bool) (domain.Subscription, error) {
	query, args, err := r.builder.Update(subscriptionsTable).
		Set("is_active", active).
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("build update subscription: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("update subscription: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.Subscription{}, fmt.Errorf("%w: subscription %s", domain.ErrNotFound, id)
	}

	subs, err := r.querySubscriptions(ctx, r.builder.Select(subscriptionColumns...).
		From(subscriptionsTable).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.Subscription{}, err
	}
	if len(subs) == 0 {
		return domain.Subscription{}, fmt.Errorf("%w: subscription %s", domain.ErrNotFound, id)
	}
	return subs[0], nil
}

func (r *SQLRepository) querySubscriptions(ctx context.Context, builder sq.SelectBuilder) ([]domain.Subscription, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select subscriptions: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var (
			sub     domain.Subscription
			prompt  sql.NullString
			created timestamp
		)
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.APIQuery, &sub.CronSchedule,
			&prompt, &sub.IsActive, &created); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		sub.SummarizationPrompt = prompt.String
		sub.CreatedAt = created.Time
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return subs, nil
}

// SaveNewsletter inserts one generated issue. Each call creates a new row.
func (r *SQLRepository) SaveNewsletter(ctx context.Context, in domain.NewNewsletter) (domain.Newsletter, error) {
	sources := in.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	encoded, err := json.Marshal(sources)
	if err != nil {
		return domain.Newsletter{}, fmt.Errorf("encode sources: %w", err)
	}

	issue := domain.Newsletter{
		ID:             r.newID(),
		SubscriptionID: in.SubscriptionID,
		Content:        in.Content,
		Sources:        sources,
		CreatedAt:      r.now().UTC(),
	}

	query, args, err := r.builder.Insert(newslettersTable).
		Columns("id", "subscription_id", "content", "sources", "created_at").
		Values(issue.ID, issue.SubscriptionID, issue.Content, string(encoded), r.timeArg(issue.CreatedAt)).
		ToSql()
	if err != nil {
		return domain.Newsletter{}, fmt.Errorf("build insert newsletter: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return domain.Newsletter{}, fmt.Errorf("insert newsletter: %w", err)
	}
	return issue, nil
}

// ListNewslettersByUser returns up to limit issues across the user's subscriptions, newest first.
func (r *SQLRepository) ListNewslettersByUser(ctx context.Context, userID string, limit int) ([]domain.Newsletter, error) {
	builder := r.builder.Select("n.id", "n.subscription_id", "n.content", "n.sources", "n.created_at").
		From(newslettersTable + " n").
		Join(subscriptionsTable + " s ON s.id = n.subscription_id").
		Where(sq.Eq{"s.user_id": userID}).
		OrderBy("n.created_at DESC", "n.id DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select newsletters: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query newsletters: %w", err)
	}
	defer rows.Close()

	var issues []domain.Newsletter
	for rows.Next() {
		var (
			issue   domain.Newsletter
			raw     []byte
			created timestamp
		)
		if err := rows.Scan(&issue.ID, &issue.SubscriptionID, &issue.Content, &raw, &created); err != nil {
			return nil, fmt.Errorf("scan newsletter: %w", err)
		}
		if err := json.Unmarshal(raw, &issue.Sources); err != nil {
			return nil, fmt.Errorf("decode sources for %s: %w", issue.ID, err)
		}
		issue.CreatedAt = created.Time
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return issues, nil
}

func (r *SQLRepository) timeArg(t time.Time) any {
	if r.dialect == DialectSQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// timestamp scans both native time columns and sqlite text.
type timestamp struct {
	time.Time
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *timestamp) parse(s string) error {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparsable timestamp %q", s)
}
