package tracking

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alvarorichard/hianime/internal/models"
)

// AddToHistory moves anime to the top of the watch history, recording the
// episode played. Only the newest 100 entries are kept.
func (l *Library) AddToHistory(anime models.Anime, episode *models.Episode) error {
	if err := l.ready(); err != nil {
		return err
	}

	entry := HistoryEntry{Anime: anime, LastWatched: l.now(), LastEpisode: episode}
	return l.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM watch_history WHERE id = ?`, anime.ID); err != nil {
			return fmt.Errorf("remove history entry failed: %w", err)
		}
		if err := insertHistory(tx, entry); err != nil {
			return err
		}
		return trimTable(tx, "watch_history", maxHistory)
	})
}

func insertHistory(tx *sql.Tx, entry HistoryEntry) error {
	var lastEpisode sql.NullString
	if entry.LastEpisode != nil {
		raw, err := json.Marshal(entry.LastEpisode)
		if err != nil {
			return fmt.Errorf("encoding episode failed: %w", err)
		}
		lastEpisode = sql.NullString{String: string(raw), Valid: true}
	}

	args := append(animeArgs(entry.Anime), toMillis(entry.LastWatched), lastEpisode)
	_, err := tx.Exec(`INSERT INTO watch_history (`+animeColumns+`, last_watched, last_episode)
		VALUES (?,?,?,?,?,?,?,?,?)`, args...)
	if err != nil {
		return fmt.Errorf("insert history entry failed: %w", err)
	}
	return nil
}

// History lists watched titles, most recent first
func (l *Library) History() ([]HistoryEntry, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}

	rows, err := l.db.Query(`SELECT ` + animeColumns + `, last_watched, last_episode
		FROM watch_history ORDER BY rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer closeRows(rows)

	list := make([]HistoryEntry, 0)
	for rows.Next() {
		var e HistoryEntry
		var lastWatched int64
		var lastEpisode sql.NullString
		if err := rows.Scan(append(animeDest(&e.Anime), &lastWatched, &lastEpisode)...); err != nil {
			return nil, fmt.Errorf("row scan failed: %w", err)
		}
		e.LastWatched = fromMillis(lastWatched)
		if lastEpisode.Valid {
			var ep models.Episode
			if err := json.Unmarshal([]byte(lastEpisode.String), &ep); err != nil {
				return nil, fmt.Errorf("decoding episode failed: %w", err)
			}
			e.LastEpisode = &ep
		}
		list = append(list, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return list, nil
}

// ClearHistory empties the watch history
func (l *Library) ClearHistory() error {
	if err := l.ready(); err != nil {
		return err
	}
	if _, err := l.db.Exec(`DELETE FROM watch_history`); err != nil {
		return fmt.Errorf("clear history failed: %w", err)
	}
	return nil
}

// UpdateContinueWatching records playback progress (0..1) for anime.
// The previous entry is replaced; once progress reaches 0.9 the title is
// considered watched and leaves the list. Only the newest 20 are kept.
func (l *Library) UpdateContinueWatching(anime models.Anime, episode models.Episode, progress float64) error {
	if err := l.ready(); err != nil {
		return err
	}
	if progress < 0 {
		progress = 0
	}

	entry := ContinueEntry{Anime: anime, CurrentEpisode: episode, Progress: progress, UpdatedAt: l.now()}
	return l.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM continue_watching WHERE id = ?`, anime.ID); err != nil {
			return fmt.Errorf("remove continue entry failed: %w", err)
		}
		if progress >= completedProgress {
			return nil
		}
		if err := insertContinue(tx, entry); err != nil {
			return err
		}
		return trimTable(tx, "continue_watching", maxContinueWatching)
	})
}

func insertContinue(tx *sql.Tx, entry ContinueEntry) error {
	raw, err := json.Marshal(entry.CurrentEpisode)
	if err != nil {
		return fmt.Errorf("encoding episode failed: %w", err)
	}

	args := append(animeArgs(entry.Anime), string(raw), entry.Progress, toMillis(entry.UpdatedAt))
	_, err = tx.Exec(`INSERT INTO continue_watching (`+animeColumns+`, current_episode, progress, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`, args...)
	if err != nil {
		return fmt.Errorf("insert continue entry failed: %w", err)
	}
	return nil
}

// ContinueWatching lists partially watched titles, most recent first
func (l *Library) ContinueWatching() ([]ContinueEntry, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}

	rows, err := l.db.Query(`SELECT ` + animeColumns + `, current_episode, progress, updated_at
		FROM continue_watching ORDER BY rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer closeRows(rows)

	list := make([]ContinueEntry, 0)
	for rows.Next() {
		var e ContinueEntry
		var episode string
		var updatedAt int64
		if err := rows.Scan(append(animeDest(&e.Anime), &episode, &e.Progress, &updatedAt)...); err != nil {
			return nil, fmt.Errorf("row scan failed: %w", err)
		}
		if err := json.Unmarshal([]byte(episode), &e.CurrentEpisode); err != nil {
			return nil, fmt.Errorf("decoding episode failed: %w", err)
		}
		e.UpdatedAt = fromMillis(updatedAt)
		list = append(list, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return list, nil
}

// RemoveContinueWatching drops anime from the continue watching list
func (l *Library) RemoveContinueWatching(animeID string) error {
	if err := l.ready(); err != nil {
		return err
	}
	if _, err := l.db.Exec(`DELETE FROM continue_watching WHERE id = ?`, animeID); err != nil {
		return fmt.Errorf("remove continue entry failed: %w", err)
	}
	return nil
}

// timestamp returns t, or the library clock when t is zero
func (l *Library) timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return l.now()
	}
	return t
}
