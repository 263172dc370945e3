// Package tracking keeps the user's local library in SQLite: favorites,
// watch history, continue watching, downloads and search history.
package tracking

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/alvarorichard/hianime/internal/models"
	"github.com/alvarorichard/hianime/internal/util"
)

var (
	ErrCgoDisabled      = errors.New("CGO disabled: sqlite library not available")
	ErrTrackerNotInited = errors.New("library not initialized")
	ErrInvalidStatus    = errors.New("invalid download status")
)

const (
	defaultCacheSize  = -20000 // 20MB
	busyTimeout       = 5000   // ms
	walAutoCheckpoint = 1000   // pages
	maxOpenConns      = 5
	maxIdleConns      = 2
)

// Option configures a Library
type Option func(*Library)

// WithClock replaces time.Now for every stored timestamp
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// Library is the SQLite-backed local library. Lists are kept newest first.
type Library struct {
	db  *sql.DB
	now func() time.Time

	addFavoritePS    *sql.Stmt
	removeFavoritePS *sql.Stmt
	isFavoritePS     *sql.Stmt
	favoritesPS      *sql.Stmt
}

// Open opens (creating if needed) the library database at dbPath
func Open(dbPath string, opts ...Option) (*Library, error) {
	if !cgoEnabled {
		return nil, ErrCgoDisabled
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory failed: %w", err)
	}

	db, err := sql.Open("sqlite3", buildDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database failed: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	if err := initializeDatabase(db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			util.Warn("Error closing database", "error", closeErr)
		}
		return nil, err
	}

	l := &Library{db: db, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.prepareStatements(); err != nil {
		if closeErr := l.Close(); closeErr != nil {
			util.Warn("Error closing database", "error", closeErr)
		}
		return nil, err
	}

	util.Debug("Library opened", "path", dbPath)
	return l, nil
}

func buildDSN(dbPath string) string {
	path := dbPath
	if runtime.GOOS == "windows" {
		path = strings.ReplaceAll(dbPath, "\\", "/")
	}
	return fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_synchronous=NORMAL&_wal_autocheckpoint=%d&"+
			"_busy_timeout=%d&_cache_size=%d&_txlock=immediate",
		path,
		walAutoCheckpoint,
		busyTimeout,
		defaultCacheSize,
	)
}

func initializeDatabase(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS favorites (
			id       TEXT    PRIMARY KEY,
			title    TEXT    NOT NULL,
			poster   TEXT    NOT NULL,
			url      TEXT    NOT NULL,
			year     TEXT    NOT NULL,
			type     TEXT    NOT NULL,
			episodes TEXT    NOT NULL,
			added_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS watch_history (
			id           TEXT    PRIMARY KEY,
			title        TEXT    NOT NULL,
			poster       TEXT    NOT NULL,
			url          TEXT    NOT NULL,
			year         TEXT    NOT NULL,
			type         TEXT    NOT NULL,
			episodes     TEXT    NOT NULL,
			last_watched INTEGER NOT NULL,
			last_episode TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS continue_watching (
			id              TEXT    PRIMARY KEY,
			title           TEXT    NOT NULL,
			poster          TEXT    NOT NULL,
			url             TEXT    NOT NULL,
			year            TEXT    NOT NULL,
			type            TEXT    NOT NULL,
			episodes        TEXT    NOT NULL,
			current_episode TEXT    NOT NULL,
			progress        REAL    NOT NULL CHECK(progress >= 0),
			updated_at      INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS downloads (
			id           TEXT    PRIMARY KEY,
			anime        TEXT    NOT NULL,
			episode      TEXT    NOT NULL,
			file_path    TEXT    NOT NULL,
			status       TEXT    NOT NULL CHECK(status IN ('pending','downloading','completed','failed')),
			progress     REAL    NOT NULL DEFAULT 0,
			added_at     INTEGER NOT NULL,
			completed_at INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS search_history (
			query TEXT PRIMARY KEY
		)`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("schema creation failed: %w", err)
		}
	}
	return nil
}

// Every list is ordered by rowid: a re-added row is deleted and inserted
// again, so the newest row always carries the highest rowid.
const (
	animeColumns = "id, title, poster, url, year, type, episodes"

	selectFavorites = `SELECT ` + animeColumns + `, added_at FROM favorites ORDER BY rowid DESC`
	insertFavorite  = `INSERT INTO favorites (` + animeColumns + `, added_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO NOTHING`
)

func (l *Library) prepareStatements() error {
	var err error

	if l.addFavoritePS, err = l.db.Prepare(insertFavorite); err != nil {
		return fmt.Errorf("add favorite preparation failed: %w", err)
	}
	if l.removeFavoritePS, err = l.db.Prepare(`DELETE FROM favorites WHERE id = ?`); err != nil {
		return fmt.Errorf("remove favorite preparation failed: %w", err)
	}
	if l.isFavoritePS, err = l.db.Prepare(`SELECT 1 FROM favorites WHERE id = ?`); err != nil {
		return fmt.Errorf("is favorite preparation failed: %w", err)
	}
	if l.favoritesPS, err = l.db.Prepare(selectFavorites); err != nil {
		return fmt.Errorf("favorites preparation failed: %w", err)
	}
	return nil
}

func (l *Library) ready() error {
	if l == nil || l.db == nil {
		return ErrTrackerNotInited
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back when it fails
func (l *Library) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction failed: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			util.Warn("Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

// trimTable keeps only the newest limit rows of table
func trimTable(tx *sql.Tx, table string, limit int) error {
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE rowid NOT IN (SELECT rowid FROM %s ORDER BY rowid DESC LIMIT ?)`,
		table, table,
	)
	if _, err := tx.Exec(query, limit); err != nil {
		return fmt.Errorf("trimming %s failed: %w", table, err)
	}
	return nil
}

func animeArgs(a models.Anime) []any {
	return []any{a.ID, a.Title, a.Poster, a.URL, a.Year, string(a.Type), a.Episodes}
}

func animeDest(a *models.Anime) []any {
	return []any{&a.ID, &a.Title, &a.Poster, &a.URL, &a.Year, (*string)(&a.Type), &a.Episodes}
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// ClearAll empties every list
func (l *Library) ClearAll() error {
	if err := l.ready(); err != nil {
		return err
	}
	return l.withTx(clearTables)
}

func clearTables(tx *sql.Tx) error {
	for _, table := range []string{"favorites", "watch_history", "continue_watching", "downloads", "search_history"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing %s failed: %w", table, err)
		}
	}
	return nil
}

// Close releases the prepared statements and the database
func (l *Library) Close() error {
	if l == nil || l.db == nil {
		return nil
	}

	var finalErr error

	closeStmt := func(stmt *sql.Stmt, name string) {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				finalErr = fmt.Errorf("%s statement close error: %w", name, err)
			}
		}
	}

	closeStmt(l.addFavoritePS, "add favorite")
	closeStmt(l.removeFavoritePS, "remove favorite")
	closeStmt(l.isFavoritePS, "is favorite")
	closeStmt(l.favoritesPS, "favorites")

	if err := l.db.Close(); err != nil {
		finalErr = fmt.Errorf("database close error: %w", err)
	}

	return finalErr
}
