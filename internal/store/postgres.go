package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/randunun/bom-pricer/internal/db"
	"github.com/randunun/bom-pricer/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the hottest store operations on the pricing path.
var preparedStatements = map[string]string{
	"list_candidates": `SELECT ` + pgListingColumns + ` FROM listings
		WHERE spec_key = $1 AND stock_available ORDER BY price / pack_qty ASC, variant_id ASC`,
	"get_trust":     `SELECT user_key, brand, seller, score, select_count, last_selected FROM trust WHERE user_key = $1`,
	"latest_sample": `SELECT unit_price_usd, in_stock FROM price_history WHERE variant_id = $1 AND source = $2 ORDER BY recorded_at DESC LIMIT 1`,
	"get_crawl_keyword": `SELECT keyword, canonical_type, priority, status, fail_count, enqueued_at, next_retry
		FROM crawl_keywords WHERE keyword = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS listings (
	variant_id       TEXT PRIMARY KEY,
	source           TEXT NOT NULL DEFAULT 'prod',
	spec_key         TEXT NOT NULL,
	canonical_type   TEXT NOT NULL,
	title            TEXT NOT NULL,
	variant_label    TEXT NOT NULL,
	brand            TEXT,
	pack_qty         INTEGER NOT NULL DEFAULT 1,
	price            DOUBLE PRECISION NOT NULL,
	currency         TEXT NOT NULL,
	seller_name      TEXT,
	seller_rating    DOUBLE PRECISION,
	review_count     INTEGER,
	sold_count       INTEGER,
	store_age_years  DOUBLE PRECISION,
	has_choice_badge BOOLEAN NOT NULL DEFAULT false,
	has_photos       BOOLEAN NOT NULL DEFAULT false,
	stock_available  BOOLEAN NOT NULL DEFAULT true,
	product_url      TEXT NOT NULL,
	first_seen       TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_seen        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS price_history (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	variant_id     TEXT NOT NULL,
	source         TEXT NOT NULL DEFAULT 'prod',
	unit_price_usd DOUBLE PRECISION,
	pack_price     DOUBLE PRECISION NOT NULL,
	currency       TEXT NOT NULL,
	in_stock       BOOLEAN NOT NULL DEFAULT true,
	recorded_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS trust (
	user_key      TEXT NOT NULL,
	brand         TEXT NOT NULL,
	seller        TEXT NOT NULL,
	score         DOUBLE PRECISION NOT NULL DEFAULT 0,
	select_count  INTEGER NOT NULL DEFAULT 0,
	last_selected TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_key, brand, seller)
);

CREATE TABLE IF NOT EXISTS crawl_keywords (
	keyword        TEXT PRIMARY KEY,
	canonical_type TEXT,
	priority       INTEGER NOT NULL DEFAULT 0,
	status         TEXT NOT NULL DEFAULT 'pending',
	fail_count     INTEGER NOT NULL DEFAULT 0,
	enqueued_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	next_retry     TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_listings_spec_key ON listings(spec_key);
CREATE INDEX IF NOT EXISTS idx_price_history_variant ON price_history(variant_id, source, recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_trust_user ON trust(user_key);
CREATE INDEX IF NOT EXISTS idx_crawl_keywords_status ON crawl_keywords(status);
`

const pgListingColumns = `variant_id, source, spec_key, canonical_type, title, variant_label, brand,
	pack_qty, price, currency, seller_name, seller_rating, review_count,
	sold_count, store_age_years, has_choice_badge, has_photos, stock_available,
	product_url, first_seen, last_seen`

var listingColumnNames = []string{
	"variant_id", "source", "spec_key", "canonical_type", "title", "variant_label", "brand",
	"pack_qty", "price", "currency", "seller_name", "seller_rating", "review_count",
	"sold_count", "store_age_years", "has_choice_badge", "has_photos", "stock_available",
	"product_url", "first_seen", "last_seen",
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertListing(ctx context.Context, l model.Listing) error {
	now := time.Now().UTC()
	if l.FirstSeen.IsZero() {
		l.FirstSeen = now
	}
	if l.LastSeen.IsZero() {
		l.LastSeen = now
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO listings (`+pgListingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		 ON CONFLICT (variant_id) DO UPDATE SET
			source           = EXCLUDED.source,
			spec_key         = EXCLUDED.spec_key,
			canonical_type   = EXCLUDED.canonical_type,
			title            = EXCLUDED.title,
			variant_label    = EXCLUDED.variant_label,
			brand            = EXCLUDED.brand,
			pack_qty         = EXCLUDED.pack_qty,
			price            = EXCLUDED.price,
			currency         = EXCLUDED.currency,
			seller_name      = EXCLUDED.seller_name,
			seller_rating    = EXCLUDED.seller_rating,
			review_count     = EXCLUDED.review_count,
			sold_count       = EXCLUDED.sold_count,
			store_age_years  = EXCLUDED.store_age_years,
			has_choice_badge = EXCLUDED.has_choice_badge,
			has_photos       = EXCLUDED.has_photos,
			stock_available  = EXCLUDED.stock_available,
			product_url      = EXCLUDED.product_url,
			last_seen        = EXCLUDED.last_seen`,
		l.VariantID, l.Source, l.SpecKey, string(l.Type), l.Title, l.VariantLabel, l.Brand,
		l.PackQty, l.Price, l.Currency, l.SellerName, l.SellerRating, l.ReviewCount,
		l.SoldCount, l.StoreAgeYears, l.HasChoiceBadge, l.HasPhotos, l.StockAvailable,
		l.ProductURL, l.FirstSeen, l.LastSeen,
	)
	return eris.Wrapf(err, "postgres: upsert listing %s", l.VariantID)
}

// UpsertListings bulk-upserts via COPY into a temp table. first_seen is
// excluded from the conflict update so the original discovery time survives.
func (s *PostgresStore) UpsertListings(ctx context.Context, ls []model.Listing) (int, error) {
	if len(ls) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(ls))
	for _, l := range ls {
		if l.FirstSeen.IsZero() {
			l.FirstSeen = now
		}
		if l.LastSeen.IsZero() {
			l.LastSeen = now
		}
		rows = append(rows, []any{
			l.VariantID, l.Source, l.SpecKey, string(l.Type), l.Title, l.VariantLabel, l.Brand,
			l.PackQty, l.Price, l.Currency, l.SellerName, l.SellerRating, l.ReviewCount,
			l.SoldCount, l.StoreAgeYears, l.HasChoiceBadge, l.HasPhotos, l.StockAvailable,
			l.ProductURL, l.FirstSeen, l.LastSeen,
		})
	}

	updateCols := make([]string, 0, len(listingColumnNames)-2)
	for _, c := range listingColumnNames {
		if c == "variant_id" || c == "first_seen" {
			continue
		}
		updateCols = append(updateCols, c)
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "listings",
		Columns:      listingColumnNames,
		ConflictKeys: []string{"variant_id"},
		UpdateCols:   updateCols,
	}, rows)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *PostgresStore) GetListing(ctx context.Context, variantID string) (*model.Listing, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgListingColumns+` FROM listings WHERE variant_id = $1`,
		variantID,
	)
	l, err := scanListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get listing %s", variantID)
	}
	return l, nil
}

func (s *PostgresStore) ListCandidates(ctx context.Context, specKey string) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgListingColumns+` FROM listings
		 WHERE spec_key = $1 AND stock_available
		 ORDER BY price / pack_qty ASC, variant_id ASC`,
		specKey,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list candidates %s", specKey)
	}
	defer rows.Close()

	var out []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate")
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list candidates iterate")
}

func (s *PostgresStore) AppendPriceSample(ctx context.Context, sample model.PriceHistorySample) (bool, error) {
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = time.Now().UTC()
	}

	var lastPrice *float64
	var lastStock bool
	err := s.pool.QueryRow(ctx,
		`SELECT unit_price_usd, in_stock FROM price_history
		 WHERE variant_id = $1 AND source = $2
		 ORDER BY recorded_at DESC LIMIT 1`,
		sample.VariantID, sample.Source,
	).Scan(&lastPrice, &lastStock)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// first sample
	case err != nil:
		return false, eris.Wrapf(err, "postgres: latest sample %s", sample.VariantID)
	default:
		if samePrice(lastPrice, sample.UnitPriceUSD) && lastStock == sample.InStock {
			return false, nil
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO price_history (id, variant_id, source, unit_price_usd, pack_price, currency, in_stock, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New().String(), sample.VariantID, sample.Source, sample.UnitPriceUSD,
		sample.PackPrice, sample.Currency, sample.InStock, sample.RecordedAt,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: append sample %s", sample.VariantID)
	}
	return true, nil
}

func (s *PostgresStore) ListPriceHistory(ctx context.Context, variantID, source string, limit int) ([]model.PriceHistorySample, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT variant_id, source, unit_price_usd, pack_price, currency, in_stock, recorded_at
		 FROM price_history
		 WHERE variant_id = $1 AND source = $2
		 ORDER BY recorded_at DESC LIMIT $3`,
		variantID, source, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list history %s", variantID)
	}
	defer rows.Close()

	var out []model.PriceHistorySample
	for rows.Next() {
		var h model.PriceHistorySample
		if err := rows.Scan(&h.VariantID, &h.Source, &h.UnitPriceUSD, &h.PackPrice, &h.Currency, &h.InStock, &h.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sample")
		}
		out = append(out, h)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list history iterate")
}

func (s *PostgresStore) GetTrust(ctx context.Context, userKey string) (map[string]model.TrustEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_key, brand, seller, score, select_count, last_selected FROM trust WHERE user_key = $1`,
		userKey,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get trust %s", userKey)
	}
	defer rows.Close()

	out := map[string]model.TrustEntry{}
	for rows.Next() {
		var e model.TrustEntry
		if err := rows.Scan(&e.UserKey, &e.Brand, &e.Seller, &e.Score, &e.SelectCount, &e.LastSelect); err != nil {
			return nil, eris.Wrap(err, "postgres: scan trust")
		}
		out[model.TrustKey(e.Brand, e.Seller)] = e
	}
	return out, eris.Wrap(rows.Err(), "postgres: get trust iterate")
}

func (s *PostgresStore) RecordSelection(ctx context.Context, userKey, brand, seller string, step, cap float64) (*model.TrustEntry, error) {
	now := time.Now().UTC()

	var e model.TrustEntry
	err := s.pool.QueryRow(ctx,
		`INSERT INTO trust (user_key, brand, seller, score, select_count, last_selected)
		 VALUES ($1, $2, $3, LEAST($4, $5), 1, $6)
		 ON CONFLICT (user_key, brand, seller) DO UPDATE SET
			score         = LEAST(trust.score + $4, $5),
			select_count  = trust.select_count + 1,
			last_selected = EXCLUDED.last_selected
		 RETURNING user_key, brand, seller, score, select_count, last_selected`,
		userKey, brand, seller, step, cap, now,
	).Scan(&e.UserKey, &e.Brand, &e.Seller, &e.Score, &e.SelectCount, &e.LastSelect)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: record selection %s", userKey)
	}
	return &e, nil
}

func (s *PostgresStore) EnqueueCrawl(ctx context.Context, keyword string, componentType model.ComponentType, priority int) error {
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO crawl_keywords (keyword, canonical_type, priority, status, fail_count, enqueued_at)
		 VALUES ($1, $2, $3, 'pending', 0, $4)
		 ON CONFLICT (keyword) DO UPDATE SET
			status     = 'pending',
			next_retry = NULL
		 WHERE crawl_keywords.status = 'soft_fail'
		   AND crawl_keywords.next_retry IS NOT NULL
		   AND crawl_keywords.next_retry <= $4`,
		keyword, string(componentType), priority, now,
	)
	return eris.Wrapf(err, "postgres: enqueue crawl %q", keyword)
}

func (s *PostgresStore) GetCrawlKeyword(ctx context.Context, keyword string) (*model.CrawlRequest, error) {
	var r model.CrawlRequest
	var ctype string
	err := s.pool.QueryRow(ctx,
		`SELECT keyword, canonical_type, priority, status, fail_count, enqueued_at, next_retry
		 FROM crawl_keywords WHERE keyword = $1`,
		keyword,
	).Scan(&r.Keyword, &ctype, &r.Priority, &r.Status, &r.FailCount, &r.EnqueuedAt, &r.NextRetry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get crawl keyword %q", keyword)
	}
	r.Type = model.ComponentType(ctype)
	return &r, nil
}

func (s *PostgresStore) UpdateCrawlStatus(ctx context.Context, keyword string, status model.CrawlStatus, nextRetry *time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE crawl_keywords SET
			status     = $1,
			fail_count = CASE WHEN $1 = 'soft_fail' THEN fail_count + 1 ELSE fail_count END,
			next_retry = $2
		 WHERE keyword = $3`,
		string(status), nextRetry, keyword,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update crawl status %q", keyword)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("crawl keyword not found: %s", keyword)
	}
	return nil
}

func (s *PostgresStore) ListCrawlQueue(ctx context.Context, filter CrawlFilter) ([]model.CrawlRequest, error) {
	query := `SELECT keyword, canonical_type, priority, status, fail_count, enqueued_at, next_retry
		 FROM crawl_keywords WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY priority DESC, enqueued_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list crawl queue")
	}
	defer rows.Close()

	var out []model.CrawlRequest
	for rows.Next() {
		var r model.CrawlRequest
		var ctype string
		if err := rows.Scan(&r.Keyword, &ctype, &r.Priority, &r.Status, &r.FailCount, &r.EnqueuedAt, &r.NextRetry); err != nil {
			return nil, eris.Wrap(err, "postgres: scan crawl keyword")
		}
		r.Type = model.ComponentType(ctype)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list crawl queue iterate")
}
