// Package archive keeps a durable copy of every listing seen by the poller.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"listings_dashboard/internal/model"
)

const (
	batchSize     = 50
	columnsPerRow = 10
)

const schema = `
	CREATE TABLE IF NOT EXISTS listings (
		identifier    BIGINT       PRIMARY KEY,
		listing_type  TEXT         NOT NULL DEFAULT '',
		property_type TEXT         NOT NULL DEFAULT '',
		project_name  TEXT         NOT NULL DEFAULT '',
		price         NUMERIC(14,2) NOT NULL DEFAULT 0,
		is_owner      BOOLEAN      NOT NULL DEFAULT FALSE,
		url           TEXT         NOT NULL DEFAULT '',
		post_date     TEXT         NOT NULL DEFAULT '',
		raw_text      TEXT         NOT NULL DEFAULT '',
		first_seen_at TIMESTAMPTZ  NOT NULL,
		last_seen_at  TIMESTAMPTZ  NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_listings_property_type ON listings(property_type);
	CREATE INDEX IF NOT EXISTS idx_listings_last_seen     ON listings(last_seen_at);
`

// Postgres upserts listings into a PostgreSQL table keyed by identifier.
type Postgres struct {
	db  *sql.DB
	log *zap.Logger
}

// NewPostgres opens the database, waits for it to accept connections and
// creates the listings table if needed.
func NewPostgres(ctx context.Context, dsn string, log *zap.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}

	for i := 0; i < 5; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		log.Warn("archive database not ready", zap.Int("attempt", i+1), zap.Error(err))
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("archive: ping: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: ping failed after retries: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}
	return &Postgres{db: db, log: log}, nil
}

// Archive upserts records in batches. Records without a positive identifier
// are skipped.
func (p *Postgres) Archive(ctx context.Context, records []model.Listing, at time.Time) error {
	rows := archivable(records)
	for i := 0; i < len(rows); i += batchSize {
		end := min(i+batchSize, len(rows))
		query, args := upsertQuery(rows[i:end], at)
		if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("archive: upsert: %w", err)
		}
	}
	p.log.Debug("archived listings", zap.Int("count", len(rows)))
	return nil
}

// Close closes the database.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// archivable drops records without a positive identifier and keeps only the
// first occurrence of each identifier, since one statement may not update
// the same row twice.
func archivable(records []model.Listing) []model.Listing {
	seen := make(map[int64]struct{}, len(records))
	out := make([]model.Listing, 0, len(records))
	for _, r := range records {
		if r.Identifier <= 0 {
			continue
		}
		if _, ok := seen[r.Identifier]; ok {
			continue
		}
		seen[r.Identifier] = struct{}{}
		out = append(out, r)
	}
	return out
}

func upsertQuery(batch []model.Listing, at time.Time) (string, []any) {
	values := make([]string, 0, len(batch))
	args := make([]any, 0, len(batch)*columnsPerRow)

	for idx, l := range batch {
		base := idx * columnsPerRow
		placeholders := make([]string, columnsPerRow+1)
		for c := range columnsPerRow {
			placeholders[c] = fmt.Sprintf("$%d", base+c+1)
		}
		// last_seen_at repeats first_seen_at on insert.
		placeholders[columnsPerRow] = fmt.Sprintf("$%d", base+columnsPerRow)
		values = append(values, "("+strings.Join(placeholders, ",")+")")
		args = append(args,
			l.Identifier, l.ListingType, l.PropertyType, l.ProjectName, l.Price,
			l.IsOwner, l.URL, l.PostDate, l.RawText, at.UTC())
	}

	query := fmt.Sprintf(`
		INSERT INTO listings (identifier, listing_type, property_type, project_name, price,
			is_owner, url, post_date, raw_text, first_seen_at, last_seen_at)
		VALUES %s
		ON CONFLICT (identifier) DO UPDATE SET
			listing_type  = EXCLUDED.listing_type,
			property_type = EXCLUDED.property_type,
			project_name  = EXCLUDED.project_name,
			price         = EXCLUDED.price,
			is_owner      = EXCLUDED.is_owner,
			url           = EXCLUDED.url,
			post_date     = EXCLUDED.post_date,
			raw_text      = EXCLUDED.raw_text,
			last_seen_at  = EXCLUDED.last_seen_at
	`, strings.Join(values, ","))
	return query, args
}
