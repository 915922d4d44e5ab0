// Package repository provides SQLite-backed persistence for feeds, items, and
// the fetch log, including a full-text search index over item text columns.
//
// It uses WAL mode for better concurrency, normal synchronous mode, foreign
// keys enforcement, and an in-memory temp store, matching the configuration a
// long-running single-process poller needs.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrFeedNotFound = errors.New("feed not found")
	ErrItemNotFound = errors.New("item not found")
	ErrLockHeld     = errors.New("feed lock already held")
)

// Feed status values, matching last_fetch_status.
const (
	StatusPending     = "pending"
	StatusSuccess     = "success"
	StatusNotModified = "not_modified"
	StatusNoItems     = "no_items"
	StatusError       = "error"
)

// Feed represents a subscribed source.
type Feed struct {
	ID                int64
	Name              string
	URL               string
	IntervalSeconds   int
	Enabled           bool
	ETag              string
	LastModified      string
	LastFetchStatus   string
	LastFetchTime     time.Time
	IsFetching        bool
	ConsecutiveErrors int
	BackoffMultiplier float64
	LastPublishedTime time.Time // zero value means "never observed"
	Degraded          bool
	CreatedAt         time.Time
}

// Item is a normalized, persisted article.
type Item struct {
	ID        int64
	FeedID    int64
	Title     string
	Link      string
	Published time.Time // zero value means "unknown"
	Author    string
	Summary   string
	Thumbnail string
	GUID      string
	CreatedAt time.Time
	IsNew     bool
}

// FetchLogEntry is an append-only record of one fetch attempt.
type FetchLogEntry struct {
	FeedID       int64
	StatusCode   int // 0 for transport error
	ItemsFound   int
	ItemsNew     int
	ErrorMessage string
	FetchTime    time.Time
	DurationMs   int64
}

// FeedStats summarizes store size for status reporting.
type FeedStats struct {
	TotalFeeds    int64
	ActiveFeeds   int64
	DegradedFeeds int64
	TotalItems    int64
}

const timeLayout = time.RFC3339Nano

// Repository handles database operations against the feed/item/fetchlog schema.
type Repository struct {
	db *sql.DB
}

// New opens (creating if necessary) the SQLite database at dbPath and
// initializes its schema.
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}

	repo := &Repository{db: db}
	if err := repo.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return repo, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS feed (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL UNIQUE,
		interval_seconds INTEGER NOT NULL DEFAULT 3600,
		enabled INTEGER NOT NULL DEFAULT 1,
		etag TEXT NOT NULL DEFAULT '',
		last_modified TEXT NOT NULL DEFAULT '',
		last_fetch_status TEXT NOT NULL DEFAULT 'pending',
		last_fetch_time TEXT,
		is_fetching INTEGER NOT NULL DEFAULT 0,
		consecutive_errors INTEGER NOT NULL DEFAULT 0,
		backoff_multiplier REAL NOT NULL DEFAULT 1.0,
		last_published_time TEXT,
		degraded INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS item (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		feed_id INTEGER NOT NULL REFERENCES feed(id) ON DELETE CASCADE,
		title TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL DEFAULT '',
		published TEXT,
		author TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		thumbnail TEXT NOT NULL DEFAULT '',
		guid TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL,
		is_new INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS fetchlog (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		feed_id INTEGER NOT NULL REFERENCES feed(id) ON DELETE CASCADE,
		status_code INTEGER NOT NULL,
		items_found INTEGER NOT NULL DEFAULT 0,
		items_new INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		fetch_time TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_feed_enabled ON feed(enabled);
	CREATE INDEX IF NOT EXISTS idx_item_feed_id ON item(feed_id);
	CREATE INDEX IF NOT EXISTS idx_item_published ON item(published DESC);
	CREATE INDEX IF NOT EXISTS idx_item_created_at ON item(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_fetchlog_feed_id ON fetchlog(feed_id);
	CREATE INDEX IF NOT EXISTS idx_fetchlog_fetch_time ON fetchlog(fetch_time);

	CREATE VIRTUAL TABLE IF NOT EXISTS item_fts USING fts5(
		title, summary, author, content=item, content_rowid=id
	);

	CREATE TRIGGER IF NOT EXISTS item_ai AFTER INSERT ON item BEGIN
		INSERT INTO item_fts(rowid, title, summary, author) VALUES (new.id, new.title, new.summary, new.author);
	END;
	CREATE TRIGGER IF NOT EXISTS item_ad AFTER DELETE ON item BEGIN
		INSERT INTO item_fts(item_fts, rowid, title, summary, author) VALUES ('delete', old.id, old.title, old.summary, old.author);
	END;
	CREATE TRIGGER IF NOT EXISTS item_au AFTER UPDATE ON item BEGIN
		INSERT INTO item_fts(item_fts, rowid, title, summary, author) VALUES ('delete', old.id, old.title, old.summary, old.author);
		INSERT INTO item_fts(rowid, title, summary, author) VALUES (new.id, new.title, new.summary, new.author);
	END;
	`

	_, err := r.db.Exec(schema)
	return err
}

// AddFeed upserts a feed by url: if it already exists and interval differs, the
// interval is updated; the resulting row is returned either way.
func (r *Repository) AddFeed(ctx context.Context, name, url string, intervalSeconds int) (*Feed, error) {
	if intervalSeconds < 60 {
		intervalSeconds = 60
	}

	existing, err := r.GetFeedByURL(ctx, url)
	if err == nil {
		if existing.IntervalSeconds != intervalSeconds {
			if _, err := r.db.ExecContext(ctx, `UPDATE feed SET interval_seconds = ? WHERE id = ?`, intervalSeconds, existing.ID); err != nil {
				return nil, fmt.Errorf("update feed interval: %w", err)
			}
			existing.IntervalSeconds = intervalSeconds
		}
		return existing, nil
	}
	if !errors.Is(err, ErrFeedNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO feed (name, url, interval_seconds, enabled, last_fetch_status, backoff_multiplier, created_at)
		VALUES (?, ?, ?, 1, ?, 1.0, ?)
	`, name, url, intervalSeconds, StatusPending, now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("insert feed: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetFeed(ctx, id)
}

// GetFeed returns a feed by id.
func (r *Repository) GetFeed(ctx context.Context, id int64) (*Feed, error) {
	row := r.db.QueryRowContext(ctx, feedSelectColumns+` FROM feed WHERE id = ?`, id)
	feed := &Feed{}
	if err := scanFeed(row, feed); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrFeedNotFound
		}
		return nil, fmt.Errorf("query feed: %w", err)
	}
	return feed, nil
}

// GetFeedByURL returns a feed by its canonical URL.
func (r *Repository) GetFeedByURL(ctx context.Context, url string) (*Feed, error) {
	row := r.db.QueryRowContext(ctx, feedSelectColumns+` FROM feed WHERE url = ?`, url)
	feed := &Feed{}
	if err := scanFeed(row, feed); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrFeedNotFound
		}
		return nil, fmt.Errorf("query feed: %w", err)
	}
	return feed, nil
}

// GetFeeds returns all feeds, optionally filtered to enabled ones only.
func (r *Repository) GetFeeds(ctx context.Context, enabledOnly bool) ([]Feed, error) {
	query := feedSelectColumns + ` FROM feed`
	if enabledOnly {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		var f Feed
		if err := scanFeed(rows, &f); err != nil {
			return nil, err
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

// RemoveFeed deletes a feed and, via ON DELETE CASCADE, its items and fetch log.
func (r *Repository) RemoveFeed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM feed WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete feed: %w", err)
	}
	return nil
}

// AcquireFeedLock atomically tests and sets is_fetching. Returns false if the
// lock was already held — the caller's tick must be dropped, not queued.
func (r *Repository) AcquireFeedLock(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE feed SET is_fetching = 1 WHERE id = ? AND is_fetching = 0`, id)
	if err != nil {
		return false, fmt.Errorf("acquire feed lock: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseFeedLock unconditionally clears is_fetching. Must be called even when
// the job panics or errors, so the next tick is not permanently dropped.
func (r *Repository) ReleaseFeedLock(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE feed SET is_fetching = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("release feed lock: %w", err)
	}
	return nil
}

// UpdateFeedStatus sets last_fetch_status, bumps last_fetch_time, and
// conditionally replaces the cache validators: an empty string for etag or
// lastModified means "leave the stored value alone."
func (r *Repository) UpdateFeedStatus(ctx context.Context, id int64, status, etag, lastModified string) error {
	now := time.Now().UTC().Format(timeLayout)
	if etag == "" && lastModified == "" {
		_, err := r.db.ExecContext(ctx, `UPDATE feed SET last_fetch_status = ?, last_fetch_time = ? WHERE id = ?`, status, now, id)
		return err
	}

	query := `UPDATE feed SET last_fetch_status = ?, last_fetch_time = ?`
	args := []interface{}{status, now}
	if etag != "" {
		query += `, etag = ?`
		args = append(args, etag)
	}
	if lastModified != "" {
		query += `, last_modified = ?`
		args = append(args, lastModified)
	}
	query += ` WHERE id = ?`
	args = append(args, id)

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update feed status: %w", err)
	}
	return nil
}

// UpdateAdaptiveBackoff applies the terminal-transition update: on success,
// consecutive_errors resets to 0 and multiplier to 1.0; on failure,
// consecutive_errors increments and multiplier = min(4.0, 1 + 0.5*errors).
func (r *Repository) UpdateAdaptiveBackoff(ctx context.Context, id int64, success bool) error {
	if success {
		_, err := r.db.ExecContext(ctx, `UPDATE feed SET consecutive_errors = 0, backoff_multiplier = 1.0 WHERE id = ?`, id)
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE feed SET
			consecutive_errors = consecutive_errors + 1,
			backoff_multiplier = MIN(4.0, 1.0 + 0.5 * (consecutive_errors + 1))
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("update adaptive backoff: %w", err)
	}
	return nil
}

// UpdateFeedPublishedTime records the newest upstream item timestamp observed
// and clears degraded, since a fresh item has now been seen.
func (r *Repository) UpdateFeedPublishedTime(ctx context.Context, id int64, t time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE feed SET last_published_time = ?, degraded = 0 WHERE id = ?`, t.UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("update feed published time: %w", err)
	}
	return nil
}

// CheckAndDegradeFeeds sets degraded=true on every feed (enabled or not) whose
// last_published_time is older than ttlHours and returns the count transitioned.
func (r *Repository) CheckAndDegradeFeeds(ctx context.Context, ttlHours int) (int64, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(ttlHours) * time.Hour).Format(timeLayout)
	result, err := r.db.ExecContext(ctx, `
		UPDATE feed SET degraded = 1
		WHERE degraded = 0 AND last_published_time IS NOT NULL AND last_published_time < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("check and degrade feeds: %w", err)
	}
	return result.RowsAffected()
}

// AddItems inserts each item iff no row with the same guid exists yet, in a
// single transaction; it then enforces the item cap by evicting the oldest
// (by published, then created_at) until the corpus is back at cap. A partial
// failure rolls back the whole batch. Returns the count of items actually new.
func (r *Repository) AddItems(ctx context.Context, items []Item, itemCap int64) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var newCount int64
	now := time.Now().UTC().Format(timeLayout)

	for _, item := range items {
		var published sql.NullString
		if !item.Published.IsZero() {
			published = sql.NullString{String: item.Published.UTC().Format(timeLayout), Valid: true}
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO item (feed_id, title, link, published, author, summary, thumbnail, guid, created_at, is_new)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
			ON CONFLICT(guid) DO NOTHING
		`, item.FeedID, item.Title, item.Link, published, item.Author, item.Summary, item.Thumbnail, item.GUID, now)
		if err != nil {
			return 0, fmt.Errorf("insert item: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		newCount += n
	}

	if itemCap > 0 {
		if err := enforceCap(ctx, tx, itemCap); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return newCount, nil
}

func enforceCap(ctx context.Context, tx *sql.Tx, itemCap int64) error {
	var total int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM item`).Scan(&total); err != nil {
		return fmt.Errorf("count items: %w", err)
	}
	if total <= itemCap {
		return nil
	}

	excess := total - itemCap
	_, err := tx.ExecContext(ctx, `
		DELETE FROM item WHERE id IN (
			SELECT id FROM item ORDER BY published ASC, created_at ASC LIMIT ?
		)
	`, excess)
	if err != nil {
		return fmt.Errorf("evict over cap: %w", err)
	}
	return nil
}

// GetItemsOptions configures GetItems.
type GetItemsOptions struct {
	Page   int
	Limit  int
	FeedID *int64
	Search string
	Sort   string // "recent" (default), "oldest", "title", "feed"
}

// GetItems returns a page of items, sorted per opts.Sort; when Search is set it
// routes through the FTS index, falling back to a substring match over
// title/summary/author if the FTS query fails.
func (r *Repository) GetItems(ctx context.Context, opts GetItemsOptions) ([]Item, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	orderBy := "i.published DESC"
	switch opts.Sort {
	case "oldest":
		orderBy = "i.published ASC"
	case "title":
		orderBy = "i.title ASC"
	case "feed":
		orderBy = "i.feed_id ASC, i.published DESC"
	}

	var whereClauses []string
	var args []interface{}

	if opts.FeedID != nil {
		whereClauses = append(whereClauses, "i.feed_id = ?")
		args = append(args, *opts.FeedID)
	}

	if opts.Search != "" {
		items, err := r.searchFTS(ctx, opts.Search, whereClauses, args, orderBy, limit, offset)
		if err == nil {
			return items, nil
		}
		// FTS unavailable or query malformed: fall back to substring match.
		whereClauses = append(whereClauses, "(i.title LIKE ? OR i.summary LIKE ? OR i.author LIKE ?)")
		needle := "%" + opts.Search + "%"
		args = append(args, needle, needle, needle)
	}

	query := "SELECT i.id, i.feed_id, i.title, i.link, i.published, i.author, i.summary, i.thumbnail, i.guid, i.created_at, i.is_new FROM item i"
	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY %s LIMIT ? OFFSET ?", orderBy)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *Repository) searchFTS(ctx context.Context, search string, whereClauses []string, baseArgs []interface{}, orderBy string, limit, offset int) ([]Item, error) {
	query := `
		SELECT i.id, i.feed_id, i.title, i.link, i.published, i.author, i.summary, i.thumbnail, i.guid, i.created_at, i.is_new
		FROM item i
		JOIN item_fts ON item_fts.rowid = i.id
		WHERE item_fts MATCH ?
	`
	args := append([]interface{}{search}, baseArgs...)
	for _, clause := range whereClauses {
		query += " AND " + clause
	}
	query += fmt.Sprintf(" ORDER BY %s LIMIT ? OFFSET ?", orderBy)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// LogFetch appends a row to the fetch log.
func (r *Repository) LogFetch(ctx context.Context, entry FetchLogEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fetchlog (feed_id, status_code, items_found, items_new, error_message, fetch_time, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.FeedID, entry.StatusCode, entry.ItemsFound, entry.ItemsNew, entry.ErrorMessage,
		entry.FetchTime.UTC().Format(timeLayout), entry.DurationMs)
	if err != nil {
		return fmt.Errorf("log fetch: %w", err)
	}
	return nil
}

// PruneOldFetchLogs deletes fetch log rows older than the retention window
// (30 days per the fetch log's retention policy).
func (r *Repository) PruneOldFetchLogs(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(timeLayout)
	result, err := r.db.ExecContext(ctx, `DELETE FROM fetchlog WHERE fetch_time < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune fetch logs: %w", err)
	}
	return result.RowsAffected()
}

// PruneOldItems deletes items published before the given age in days. Exposed
// for the CLI's age-based prune command; core cap enforcement happens in
// AddItems and does not depend on this.
func (r *Repository) PruneOldItems(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(timeLayout)
	result, err := r.db.ExecContext(ctx, `DELETE FROM item WHERE published IS NOT NULL AND published < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune items: %w", err)
	}
	return result.RowsAffected()
}

// MarkOldItemsAsRead flips is_new to false for items older than ageHours.
func (r *Repository) MarkOldItemsAsRead(ctx context.Context, ageHours int) (int64, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(ageHours) * time.Hour).Format(timeLayout)
	result, err := r.db.ExecContext(ctx, `UPDATE item SET is_new = 0 WHERE is_new = 1 AND created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("mark old items as read: %w", err)
	}
	return result.RowsAffected()
}

// CountItems returns the total number of items in the database.
func (r *Repository) CountItems(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM item`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

// CountItemsForFeed returns the number of items belonging to a single feed,
// used to warn how much will be deleted before a feed is removed.
func (r *Repository) CountItemsForFeed(ctx context.Context, feedID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM item WHERE feed_id = ?`, feedID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count items for feed: %w", err)
	}
	return count, nil
}

// GetFeedStats summarizes feed/item counts for status reporting.
func (r *Repository) GetFeedStats(ctx context.Context) (FeedStats, error) {
	var stats FeedStats
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feed`).Scan(&stats.TotalFeeds); err != nil {
		return stats, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feed WHERE enabled = 1`).Scan(&stats.ActiveFeeds); err != nil {
		return stats, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feed WHERE degraded = 1`).Scan(&stats.DegradedFeeds); err != nil {
		return stats, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM item`).Scan(&stats.TotalItems); err != nil {
		return stats, err
	}
	return stats, nil
}

// Vacuum runs VACUUM and ANALYZE against the database file, reclaiming space
// freed by cap eviction and log pruning and refreshing the query planner's
// statistics. Part of the daily maintenance sweep alongside log pruning and
// is_new demotion.
func (r *Repository) Vacuum(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `ANALYZE`); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	return nil
}

// DBSize returns the on-disk size in bytes of the database file, used for the
// db_size_bytes metrics gauge.
func (r *Repository) DBSize(ctx context.Context) (int64, error) {
	var pageCount, pageSize int64
	if err := r.db.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pageCount); err != nil {
		return 0, fmt.Errorf("page_count: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("page_size: %w", err)
	}
	return pageCount * pageSize, nil
}

const feedSelectColumns = `SELECT id, name, url, interval_seconds, enabled, etag, last_modified, last_fetch_status,
	last_fetch_time, is_fetching, consecutive_errors, backoff_multiplier, last_published_time, degraded, created_at`

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanFeed(row scannable, f *Feed) error {
	var lastFetchTime, lastPublishedTime sql.NullString
	var createdAt string
	var enabled, isFetching, degraded int

	err := row.Scan(
		&f.ID, &f.Name, &f.URL, &f.IntervalSeconds, &enabled, &f.ETag, &f.LastModified, &f.LastFetchStatus,
		&lastFetchTime, &isFetching, &f.ConsecutiveErrors, &f.BackoffMultiplier, &lastPublishedTime, &degraded, &createdAt,
	)
	if err != nil {
		return err
	}

	f.Enabled = enabled == 1
	f.IsFetching = isFetching == 1
	f.Degraded = degraded == 1

	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		f.CreatedAt = t
	}
	if lastFetchTime.Valid && lastFetchTime.String != "" {
		if t, err := time.Parse(timeLayout, lastFetchTime.String); err == nil {
			f.LastFetchTime = t
		}
	}
	if lastPublishedTime.Valid && lastPublishedTime.String != "" {
		if t, err := time.Parse(timeLayout, lastPublishedTime.String); err == nil {
			f.LastPublishedTime = t
		}
	}

	return nil
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		var item Item
		var published sql.NullString
		var createdAt string
		var isNew int

		err := rows.Scan(&item.ID, &item.FeedID, &item.Title, &item.Link, &published,
			&item.Author, &item.Summary, &item.Thumbnail, &item.GUID, &createdAt, &isNew)
		if err != nil {
			return nil, err
		}
		if published.Valid && published.String != "" {
			if t, err := time.Parse(timeLayout, published.String); err == nil {
				item.Published = t
			}
		}
		if t, err := time.Parse(timeLayout, createdAt); err == nil {
			item.CreatedAt = t
		}
		item.IsNew = isNew == 1
		items = append(items, item)
	}
	return items, rows.Err()
}
