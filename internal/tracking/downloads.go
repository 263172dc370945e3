package tracking

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alvarorichard/hianime/internal/models"
)

// AddDownload records a download of episode at the top of the list. Adding
// the same episode again replaces the earlier record.
func (l *Library) AddDownload(anime models.Anime, episode models.Episode, filePath string, status DownloadStatus) (Download, error) {
	if err := l.ready(); err != nil {
		return Download{}, err
	}
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return Download{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	dl := Download{
		ID:       DownloadID(anime.ID, episode.Number),
		Anime:    anime,
		Episode:  episode,
		FilePath: filePath,
		Status:   status,
		AddedAt:  l.now(),
	}
	if status == StatusCompleted {
		completed := dl.AddedAt
		dl.CompletedAt = &completed
	}

	err := l.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM downloads WHERE id = ?`, dl.ID); err != nil {
			return fmt.Errorf("remove download failed: %w", err)
		}
		return insertDownload(tx, dl)
	})
	if err != nil {
		return Download{}, err
	}
	return dl, nil
}

func insertDownload(tx *sql.Tx, dl Download) error {
	anime, err := json.Marshal(dl.Anime)
	if err != nil {
		return fmt.Errorf("encoding anime failed: %w", err)
	}
	episode, err := json.Marshal(dl.Episode)
	if err != nil {
		return fmt.Errorf("encoding episode failed: %w", err)
	}

	var completedAt sql.NullInt64
	if dl.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: toMillis(*dl.CompletedAt), Valid: true}
	}

	_, err = tx.Exec(`INSERT INTO downloads (id, anime, episode, file_path, status, progress, added_at, completed_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		dl.ID, string(anime), string(episode), dl.FilePath, string(dl.Status), dl.Progress,
		toMillis(dl.AddedAt), completedAt,
	)
	if err != nil {
		return fmt.Errorf("insert download failed: %w", err)
	}
	return nil
}

// UpdateDownload applies update to the download with the given ID and
// reports whether it exists. Moving to completed stamps CompletedAt.
func (l *Library) UpdateDownload(id string, update DownloadUpdate) (bool, error) {
	if err := l.ready(); err != nil {
		return false, err
	}
	if update.Status != nil && !update.Status.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidStatus, *update.Status)
	}

	found := false
	err := l.withTx(func(tx *sql.Tx) error {
		row := tx.QueryRow(`SELECT status, progress, file_path FROM downloads WHERE id = ?`, id)

		var status string
		var progress float64
		var filePath string
		if err := row.Scan(&status, &progress, &filePath); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("query failed: %w", err)
		}
		found = true

		if update.Status != nil {
			status = string(*update.Status)
		}
		if update.Progress != nil {
			progress = *update.Progress
		}
		if update.FilePath != nil {
			filePath = *update.FilePath
		}

		if update.Status != nil && *update.Status == StatusCompleted {
			_, err := tx.Exec(`UPDATE downloads SET status = ?, progress = ?, file_path = ?, completed_at = ? WHERE id = ?`,
				status, progress, filePath, toMillis(l.now()), id)
			if err != nil {
				return fmt.Errorf("update download failed: %w", err)
			}
			return nil
		}

		_, err := tx.Exec(`UPDATE downloads SET status = ?, progress = ?, file_path = ? WHERE id = ?`,
			status, progress, filePath, id)
		if err != nil {
			return fmt.Errorf("update download failed: %w", err)
		}
		return nil
	})
	return found, err
}

// RemoveDownload deletes a download record and reports whether it existed
func (l *Library) RemoveDownload(id string) (bool, error) {
	if err := l.ready(); err != nil {
		return false, err
	}

	res, err := l.db.Exec(`DELETE FROM downloads WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("remove download failed: %w", err)
	}
	return affected(res)
}

// Downloads lists download records, most recently added first
func (l *Library) Downloads() ([]Download, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}

	rows, err := l.db.Query(`SELECT id, anime, episode, file_path, status, progress, added_at, completed_at
		FROM downloads ORDER BY rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer closeRows(rows)

	list := make([]Download, 0)
	for rows.Next() {
		var dl Download
		var anime, episode, status string
		var addedAt int64
		var completedAt sql.NullInt64
		if err := rows.Scan(&dl.ID, &anime, &episode, &dl.FilePath, &status, &dl.Progress, &addedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("row scan failed: %w", err)
		}
		if err := json.Unmarshal([]byte(anime), &dl.Anime); err != nil {
			return nil, fmt.Errorf("decoding anime failed: %w", err)
		}
		if err := json.Unmarshal([]byte(episode), &dl.Episode); err != nil {
			return nil, fmt.Errorf("decoding episode failed: %w", err)
		}
		dl.Status = DownloadStatus(status)
		dl.AddedAt = fromMillis(addedAt)
		if completedAt.Valid {
			t := fromMillis(completedAt.Int64)
			dl.CompletedAt = &t
		}
		list = append(list, dl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return list, nil
}
