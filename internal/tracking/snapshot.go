package tracking

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// Stats counts favorites, history entries and downloads
func (l *Library) Stats() (Stats, error) {
	if err := l.ready(); err != nil {
		return Stats{}, err
	}

	var s Stats
	row := l.db.QueryRow(`SELECT
		(SELECT COUNT(*) FROM favorites),
		(SELECT COUNT(*) FROM watch_history),
		(SELECT COUNT(*) FROM downloads),
		(SELECT COUNT(*) FROM downloads WHERE status = 'completed')`)
	if err := row.Scan(&s.Favorites, &s.WatchHistory, &s.Downloads, &s.CompletedDownloads); err != nil {
		return Stats{}, fmt.Errorf("stats query failed: %w", err)
	}
	return s, nil
}

// Snapshot reads every list of the library
func (l *Library) Snapshot() (Snapshot, error) {
	var (
		s   Snapshot
		err error
	)

	if s.Favorites, err = l.Favorites(); err != nil {
		return Snapshot{}, err
	}
	if s.WatchHistory, err = l.History(); err != nil {
		return Snapshot{}, err
	}
	if s.ContinueWatching, err = l.ContinueWatching(); err != nil {
		return Snapshot{}, err
	}
	if s.Downloads, err = l.Downloads(); err != nil {
		return Snapshot{}, err
	}
	if s.SearchHistory, err = l.SearchHistory(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Export serializes the library as indented JSON
func (l *Library) Export() ([]byte, error) {
	s, err := l.Snapshot()
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot failed: %w", err)
	}
	return data, nil
}

// Import replaces the whole library with the snapshot in data. Lists the
// snapshot omits come back empty, unknown fields are ignored.
func (l *Library) Import(data []byte) error {
	if err := l.ready(); err != nil {
		return err
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding snapshot failed: %w", err)
	}

	return l.withTx(func(tx *sql.Tx) error {
		if err := clearTables(tx); err != nil {
			return err
		}

		// lists are newest first; insert oldest first so rowids keep the order
		for i := len(s.Favorites) - 1; i >= 0; i-- {
			f := s.Favorites[i]
			args := append(animeArgs(f.Anime), toMillis(l.timestamp(f.AddedAt)))
			if _, err := tx.Exec(insertFavorite, args...); err != nil {
				return fmt.Errorf("import favorite failed: %w", err)
			}
		}
		for i := len(s.WatchHistory) - 1; i >= 0; i-- {
			e := s.WatchHistory[i]
			e.LastWatched = l.timestamp(e.LastWatched)
			if _, err := tx.Exec(`DELETE FROM watch_history WHERE id = ?`, e.ID); err != nil {
				return fmt.Errorf("import history failed: %w", err)
			}
			if err := insertHistory(tx, e); err != nil {
				return err
			}
		}
		for i := len(s.ContinueWatching) - 1; i >= 0; i-- {
			e := s.ContinueWatching[i]
			e.UpdatedAt = l.timestamp(e.UpdatedAt)
			if e.Progress < 0 {
				e.Progress = 0
			}
			if _, err := tx.Exec(`DELETE FROM continue_watching WHERE id = ?`, e.ID); err != nil {
				return fmt.Errorf("import continue entry failed: %w", err)
			}
			if err := insertContinue(tx, e); err != nil {
				return err
			}
		}
		for i := len(s.Downloads) - 1; i >= 0; i-- {
			dl := s.Downloads[i]
			if dl.ID == "" {
				dl.ID = DownloadID(dl.Anime.ID, dl.Episode.Number)
			}
			if !dl.Status.Valid() {
				dl.Status = StatusPending
			}
			dl.AddedAt = l.timestamp(dl.AddedAt)
			if _, err := tx.Exec(`DELETE FROM downloads WHERE id = ?`, dl.ID); err != nil {
				return fmt.Errorf("import download failed: %w", err)
			}
			if err := insertDownload(tx, dl); err != nil {
				return err
			}
		}
		for i := len(s.SearchHistory) - 1; i >= 0; i-- {
			query := strings.TrimSpace(s.SearchHistory[i])
			if query == "" {
				continue
			}
			if err := insertSearch(tx, query); err != nil {
				return err
			}
		}

		if err := trimTable(tx, "watch_history", maxHistory); err != nil {
			return err
		}
		if err := trimTable(tx, "continue_watching", maxContinueWatching); err != nil {
			return err
		}
		return trimTable(tx, "search_history", maxSearchHistory)
	})
}
