package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/randunun/bom-pricer/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS listings (
	variant_id       TEXT PRIMARY KEY,
	source           TEXT NOT NULL DEFAULT 'prod',
	spec_key         TEXT NOT NULL,
	canonical_type   TEXT NOT NULL,
	title            TEXT NOT NULL,
	variant_label    TEXT NOT NULL,
	brand            TEXT,
	pack_qty         INTEGER NOT NULL DEFAULT 1,
	price            REAL NOT NULL,
	currency         TEXT NOT NULL,
	seller_name      TEXT,
	seller_rating    REAL,
	review_count     INTEGER,
	sold_count       INTEGER,
	store_age_years  REAL,
	has_choice_badge INTEGER NOT NULL DEFAULT 0,
	has_photos       INTEGER NOT NULL DEFAULT 0,
	stock_available  INTEGER NOT NULL DEFAULT 1,
	product_url      TEXT NOT NULL,
	first_seen       DATETIME NOT NULL,
	last_seen        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS price_history (
	id             TEXT PRIMARY KEY,
	variant_id     TEXT NOT NULL,
	source         TEXT NOT NULL DEFAULT 'prod',
	unit_price_usd REAL,
	pack_price     REAL NOT NULL,
	currency       TEXT NOT NULL,
	in_stock       INTEGER NOT NULL DEFAULT 1,
	recorded_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS trust (
	user_key      TEXT NOT NULL,
	brand         TEXT NOT NULL,
	seller        TEXT NOT NULL,
	score         REAL NOT NULL DEFAULT 0,
	select_count  INTEGER NOT NULL DEFAULT 0,
	last_selected DATETIME NOT NULL,
	PRIMARY KEY (user_key, brand, seller)
);

CREATE TABLE IF NOT EXISTS crawl_keywords (
	keyword        TEXT PRIMARY KEY,
	canonical_type TEXT,
	priority       INTEGER NOT NULL DEFAULT 0,
	status         TEXT NOT NULL DEFAULT 'pending',
	fail_count     INTEGER NOT NULL DEFAULT 0,
	enqueued_at    DATETIME NOT NULL,
	next_retry     DATETIME
);

CREATE INDEX IF NOT EXISTS idx_listings_spec_key ON listings(spec_key);
CREATE INDEX IF NOT EXISTS idx_price_history_variant ON price_history(variant_id, source, recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_trust_user ON trust(user_key);
CREATE INDEX IF NOT EXISTS idx_crawl_keywords_status ON crawl_keywords(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUpsertListing = `
INSERT INTO listings (
	variant_id, source, spec_key, canonical_type, title, variant_label, brand,
	pack_qty, price, currency, seller_name, seller_rating, review_count,
	sold_count, store_age_years, has_choice_badge, has_photos, stock_available,
	product_url, first_seen, last_seen
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (variant_id) DO UPDATE SET
	source           = excluded.source,
	spec_key         = excluded.spec_key,
	canonical_type   = excluded.canonical_type,
	title            = excluded.title,
	variant_label    = excluded.variant_label,
	brand            = excluded.brand,
	pack_qty         = excluded.pack_qty,
	price            = excluded.price,
	currency         = excluded.currency,
	seller_name      = excluded.seller_name,
	seller_rating    = excluded.seller_rating,
	review_count     = excluded.review_count,
	sold_count       = excluded.sold_count,
	store_age_years  = excluded.store_age_years,
	has_choice_badge = excluded.has_choice_badge,
	has_photos       = excluded.has_photos,
	stock_available  = excluded.stock_available,
	product_url      = excluded.product_url,
	last_seen        = excluded.last_seen`

func (s *SQLiteStore) UpsertListing(ctx context.Context, l model.Listing) error {
	now := time.Now().UTC()
	if l.FirstSeen.IsZero() {
		l.FirstSeen = now
	}
	if l.LastSeen.IsZero() {
		l.LastSeen = now
	}

	_, err := s.db.ExecContext(ctx, sqliteUpsertListing,
		l.VariantID, l.Source, l.SpecKey, string(l.Type), l.Title, l.VariantLabel, l.Brand,
		l.PackQty, l.Price, l.Currency, l.SellerName, l.SellerRating, l.ReviewCount,
		l.SoldCount, l.StoreAgeYears, l.HasChoiceBadge, l.HasPhotos, l.StockAvailable,
		l.ProductURL, l.FirstSeen, l.LastSeen,
	)
	return eris.Wrapf(err, "sqlite: upsert listing %s", l.VariantID)
}

func (s *SQLiteStore) UpsertListings(ctx context.Context, ls []model.Listing) (int, error) {
	if len(ls) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertListing)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, l := range ls {
		if l.FirstSeen.IsZero() {
			l.FirstSeen = now
		}
		if l.LastSeen.IsZero() {
			l.LastSeen = now
		}
		_, err := stmt.ExecContext(ctx,
			l.VariantID, l.Source, l.SpecKey, string(l.Type), l.Title, l.VariantLabel, l.Brand,
			l.PackQty, l.Price, l.Currency, l.SellerName, l.SellerRating, l.ReviewCount,
			l.SoldCount, l.StoreAgeYears, l.HasChoiceBadge, l.HasPhotos, l.StockAvailable,
			l.ProductURL, l.FirstSeen, l.LastSeen,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert listing %s", l.VariantID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert tx")
	}
	return len(ls), nil
}

const sqliteListingColumns = `variant_id, source, spec_key, canonical_type, title, variant_label, brand,
	pack_qty, price, currency, seller_name, seller_rating, review_count,
	sold_count, store_age_years, has_choice_badge, has_photos, stock_available,
	product_url, first_seen, last_seen`

func (s *SQLiteStore) GetListing(ctx context.Context, variantID string) (*model.Listing, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteListingColumns+` FROM listings WHERE variant_id = ?`,
		variantID,
	)
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get listing %s", variantID)
	}
	return l, nil
}

func (s *SQLiteStore) ListCandidates(ctx context.Context, specKey string) ([]model.Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteListingColumns+` FROM listings
		 WHERE spec_key = ? AND stock_available = 1
		 ORDER BY price / pack_qty ASC, variant_id ASC`,
		specKey,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list candidates %s", specKey)
	}
	defer rows.Close()

	var out []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan candidate")
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list candidates iterate")
}

func (s *SQLiteStore) AppendPriceSample(ctx context.Context, sample model.PriceHistorySample) (bool, error) {
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = time.Now().UTC()
	}

	// Append only when the price or stock state actually moved.
	var lastPrice *float64
	var lastStock bool
	err := s.db.QueryRowContext(ctx,
		`SELECT unit_price_usd, in_stock FROM price_history
		 WHERE variant_id = ? AND source = ?
		 ORDER BY recorded_at DESC LIMIT 1`,
		sample.VariantID, sample.Source,
	).Scan(&lastPrice, &lastStock)
	switch {
	case err == sql.ErrNoRows:
		// first sample
	case err != nil:
		return false, eris.Wrapf(err, "sqlite: latest sample %s", sample.VariantID)
	default:
		if samePrice(lastPrice, sample.UnitPriceUSD) && lastStock == sample.InStock {
			return false, nil
		}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO price_history (id, variant_id, source, unit_price_usd, pack_price, currency, in_stock, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), sample.VariantID, sample.Source, sample.UnitPriceUSD,
		sample.PackPrice, sample.Currency, sample.InStock, sample.RecordedAt,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: append sample %s", sample.VariantID)
	}
	return true, nil
}

func (s *SQLiteStore) ListPriceHistory(ctx context.Context, variantID, source string, limit int) ([]model.PriceHistorySample, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT variant_id, source, unit_price_usd, pack_price, currency, in_stock, recorded_at
		 FROM price_history
		 WHERE variant_id = ? AND source = ?
		 ORDER BY recorded_at DESC LIMIT ?`,
		variantID, source, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list history %s", variantID)
	}
	defer rows.Close()

	var out []model.PriceHistorySample
	for rows.Next() {
		var h model.PriceHistorySample
		if err := rows.Scan(&h.VariantID, &h.Source, &h.UnitPriceUSD, &h.PackPrice, &h.Currency, &h.InStock, &h.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sample")
		}
		out = append(out, h)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list history iterate")
}

func (s *SQLiteStore) GetTrust(ctx context.Context, userKey string) (map[string]model.TrustEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_key, brand, seller, score, select_count, last_selected FROM trust WHERE user_key = ?`,
		userKey,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get trust %s", userKey)
	}
	defer rows.Close()

	out := map[string]model.TrustEntry{}
	for rows.Next() {
		var e model.TrustEntry
		if err := rows.Scan(&e.UserKey, &e.Brand, &e.Seller, &e.Score, &e.SelectCount, &e.LastSelect); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan trust")
		}
		out[model.TrustKey(e.Brand, e.Seller)] = e
	}
	return out, eris.Wrap(rows.Err(), "sqlite: get trust iterate")
}

func (s *SQLiteStore) RecordSelection(ctx context.Context, userKey, brand, seller string, step, cap float64) (*model.TrustEntry, error) {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trust (user_key, brand, seller, score, select_count, last_selected)
		 VALUES (?, ?, ?, MIN(?, ?), 1, ?)
		 ON CONFLICT (user_key, brand, seller) DO UPDATE SET
			score         = MIN(score + ?, ?),
			select_count  = select_count + 1,
			last_selected = excluded.last_selected`,
		userKey, brand, seller, step, cap, now, step, cap,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: record selection %s", userKey)
	}

	var e model.TrustEntry
	err = s.db.QueryRowContext(ctx,
		`SELECT user_key, brand, seller, score, select_count, last_selected FROM trust
		 WHERE user_key = ? AND brand = ? AND seller = ?`,
		userKey, brand, seller,
	).Scan(&e.UserKey, &e.Brand, &e.Seller, &e.Score, &e.SelectCount, &e.LastSelect)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read back trust")
	}
	return &e, nil
}

func (s *SQLiteStore) EnqueueCrawl(ctx context.Context, keyword string, componentType model.ComponentType, priority int) error {
	now := time.Now().UTC()

	// Idempotent: an existing row keeps its status unless a soft failure
	// whose retry window has passed, which reverts to pending.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO crawl_keywords (keyword, canonical_type, priority, status, fail_count, enqueued_at)
		 VALUES (?, ?, ?, 'pending', 0, ?)
		 ON CONFLICT (keyword) DO UPDATE SET
			status     = 'pending',
			next_retry = NULL
		 WHERE crawl_keywords.status = 'soft_fail'
		   AND crawl_keywords.next_retry IS NOT NULL
		   AND crawl_keywords.next_retry <= ?`,
		keyword, string(componentType), priority, now, now,
	)
	return eris.Wrapf(err, "sqlite: enqueue crawl %q", keyword)
}

func (s *SQLiteStore) GetCrawlKeyword(ctx context.Context, keyword string) (*model.CrawlRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT keyword, canonical_type, priority, status, fail_count, enqueued_at, next_retry
		 FROM crawl_keywords WHERE keyword = ?`,
		keyword,
	)
	var r model.CrawlRequest
	var ctype string
	err := row.Scan(&r.Keyword, &ctype, &r.Priority, &r.Status, &r.FailCount, &r.EnqueuedAt, &r.NextRetry)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get crawl keyword %q", keyword)
	}
	r.Type = model.ComponentType(ctype)
	return &r, nil
}

func (s *SQLiteStore) UpdateCrawlStatus(ctx context.Context, keyword string, status model.CrawlStatus, nextRetry *time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE crawl_keywords SET
			status     = ?,
			fail_count = CASE WHEN ? = 'soft_fail' THEN fail_count + 1 ELSE fail_count END,
			next_retry = ?
		 WHERE keyword = ?`,
		string(status), string(status), nextRetry, keyword,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update crawl status %q", keyword)
	}
	return checkRowsAffected(res, "crawl keyword", keyword)
}

func (s *SQLiteStore) ListCrawlQueue(ctx context.Context, filter CrawlFilter) ([]model.CrawlRequest, error) {
	query := `SELECT keyword, canonical_type, priority, status, fail_count, enqueued_at, next_retry
		 FROM crawl_keywords WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY priority DESC, enqueued_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list crawl queue")
	}
	defer rows.Close()

	var out []model.CrawlRequest
	for rows.Next() {
		var r model.CrawlRequest
		var ctype string
		if err := rows.Scan(&r.Keyword, &ctype, &r.Priority, &r.Status, &r.FailCount, &r.EnqueuedAt, &r.NextRetry); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan crawl keyword")
		}
		r.Type = model.ComponentType(ctype)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list crawl queue iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func samePrice(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type scannable interface {
	Scan(dest ...any) error
}

func scanListing(row scannable) (*model.Listing, error) {
	var l model.Listing
	var ctype string
	err := row.Scan(
		&l.VariantID, &l.Source, &l.SpecKey, &ctype, &l.Title, &l.VariantLabel, &l.Brand,
		&l.PackQty, &l.Price, &l.Currency, &l.SellerName, &l.SellerRating, &l.ReviewCount,
		&l.SoldCount, &l.StoreAgeYears, &l.HasChoiceBadge, &l.HasPhotos, &l.StockAvailable,
		&l.ProductURL, &l.FirstSeen, &l.LastSeen,
	)
	if err != nil {
		return nil, err
	}
	l.Type = model.ComponentType(ctype)
	return &l, nil
}
