package feed

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS webhook_subscriber (
	id SERIAL PRIMARY KEY,
	program_title TEXT NOT NULL,
	webhook_url TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	active BOOLEAN NOT NULL DEFAULT true,
	UNIQUE (program_title, webhook_url)
);

CREATE TABLE IF NOT EXISTS notification_log (
	id BIGSERIAL PRIMARY KEY,
	program_title TEXT NOT NULL,
	channel TEXT NOT NULL,
	start_time TEXT NOT NULL,
	webhook_url TEXT NOT NULL,
	status TEXT NOT NULL,
	response_code INTEGER NOT NULL,
	sent_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notification_log_sent_at ON notification_log(sent_at DESC);`

// PGRegistry keeps subscriptions and the delivery log in PostgreSQL.
// Unsubscribing deactivates a row rather than deleting it.
type PGRegistry struct {
	db *sql.DB
}

// OpenPGRegistry connects with a lib/pq connection string and creates the
// tables when missing.
func OpenPGRegistry(ctx context.Context, conn string) (*PGRegistry, error) {
	db, err := sql.Open("postgres", conn)
	if err != nil {
		return nil, fmt.Errorf("open registry database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect registry database: %w", err)
	}
	if _, err := db.ExecContext(ctx, pgSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create registry schema: %w", err)
	}
	return &PGRegistry{db: db}, nil
}

func (p *PGRegistry) Close() error {
	return p.db.Close()
}

func (p *PGRegistry) Subscribe(ctx context.Context, title, webhookURL string) error {
	_, err := p.db.ExecContext(ctx, `
INSERT INTO webhook_subscriber (program_title, webhook_url) VALUES ($1, $2)
ON CONFLICT (program_title, webhook_url) DO UPDATE SET active = true`, title, webhookURL)
	if err != nil {
		return fmt.Errorf("subscribe %q: %w", title, err)
	}
	return nil
}

func (p *PGRegistry) Unsubscribe(ctx context.Context, title, webhookURL string) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_subscriber SET active = false WHERE program_title = $1 AND webhook_url = $2`,
		title, webhookURL)
	if err != nil {
		return fmt.Errorf("unsubscribe %q: %w", title, err)
	}
	return nil
}

func (p *PGRegistry) Subscriptions(ctx context.Context) (map[string][]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT program_title, webhook_url FROM webhook_subscriber WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := map[string][]string{}
	for rows.Next() {
		var title, webhookURL string
		if err := rows.Scan(&title, &webhookURL); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs[title] = append(subs[title], webhookURL)
	}
	return subs, rows.Err()
}

func (p *PGRegistry) Record(ctx context.Context, n Notification) error {
	_, err := p.db.ExecContext(ctx, `
INSERT INTO notification_log (program_title, channel, start_time, webhook_url, status, response_code, sent_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ProgramTitle, n.Channel, n.StartTime, n.WebhookURL, n.Status, n.ResponseCode, n.SentAt)
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

func (p *PGRegistry) Logs(ctx context.Context, limit int) ([]Notification, error) {
	rows, err := p.db.QueryContext(ctx, `
SELECT id, program_title, channel, start_time, webhook_url, status, response_code, sent_at
FROM notification_log
ORDER BY sent_at DESC, id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	logs := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.ProgramTitle, &n.Channel, &n.StartTime, &n.WebhookURL, &n.Status, &n.ResponseCode, &n.SentAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		logs = append(logs, n)
	}
	return logs, rows.Err()
}
