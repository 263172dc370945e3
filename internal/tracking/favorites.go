package tracking

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/alvarorichard/hianime/internal/models"
	"github.com/alvarorichard/hianime/internal/util"
)

// AddFavorite saves anime at the top of the favorites. It reports false
// when the title was already a favorite, which leaves the list untouched.
func (l *Library) AddFavorite(anime models.Anime) (bool, error) {
	if err := l.ready(); err != nil {
		return false, err
	}

	args := append(animeArgs(anime), toMillis(l.now()))
	res, err := l.addFavoritePS.Exec(args...)
	if err != nil {
		return false, fmt.Errorf("add favorite failed: %w", err)
	}
	return affected(res)
}

// RemoveFavorite deletes a favorite and reports whether it existed
func (l *Library) RemoveFavorite(animeID string) (bool, error) {
	if err := l.ready(); err != nil {
		return false, err
	}

	res, err := l.removeFavoritePS.Exec(animeID)
	if err != nil {
		return false, fmt.Errorf("remove favorite failed: %w", err)
	}
	return affected(res)
}

// IsFavorite reports whether animeID is a favorite
func (l *Library) IsFavorite(animeID string) (bool, error) {
	if err := l.ready(); err != nil {
		return false, err
	}

	var one int
	err := l.isFavoritePS.QueryRow(animeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query failed: %w", err)
	}
	return true, nil
}

// Favorites lists the favorites, most recently added first
func (l *Library) Favorites() ([]Favorite, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}

	rows, err := l.favoritesPS.Query()
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return scanFavorites(rows)
}

func scanFavorites(rows *sql.Rows) ([]Favorite, error) {
	defer closeRows(rows)

	list := make([]Favorite, 0)
	for rows.Next() {
		var f Favorite
		var addedAt int64
		if err := rows.Scan(append(animeDest(&f.Anime), &addedAt)...); err != nil {
			return nil, fmt.Errorf("row scan failed: %w", err)
		}
		f.AddedAt = fromMillis(addedAt)
		list = append(list, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return list, nil
}

// UpdateFavoriteEpisodes stores a new episode count for a favorite,
// keeping its position in the list
func (l *Library) UpdateFavoriteEpisodes(animeID, episodes string) (bool, error) {
	if err := l.ready(); err != nil {
		return false, err
	}

	res, err := l.db.Exec(`UPDATE favorites SET episodes = ? WHERE id = ?`, episodes, animeID)
	if err != nil {
		return false, fmt.Errorf("update favorite failed: %w", err)
	}
	return affected(res)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected failed: %w", err)
	}
	return n > 0, nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		util.Warn("Error closing rows", "error", err)
	}
}
