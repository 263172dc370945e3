package tracking

import (
	"database/sql"
	"fmt"
	"strings"
)

// AddSearch puts query at the top of the search history. Blank queries
// are ignored and repeats move to the top; 20 queries are kept.
func (l *Library) AddSearch(query string) error {
	if err := l.ready(); err != nil {
		return err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	return l.withTx(func(tx *sql.Tx) error {
		if err := insertSearch(tx, query); err != nil {
			return err
		}
		return trimTable(tx, "search_history", maxSearchHistory)
	})
}

func insertSearch(tx *sql.Tx, query string) error {
	if _, err := tx.Exec(`DELETE FROM search_history WHERE query = ?`, query); err != nil {
		return fmt.Errorf("remove search failed: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO search_history (query) VALUES (?)`, query); err != nil {
		return fmt.Errorf("insert search failed: %w", err)
	}
	return nil
}

// SearchHistory lists past queries, most recent first
func (l *Library) SearchHistory() ([]string, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}

	rows, err := l.db.Query(`SELECT query FROM search_history ORDER BY rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer closeRows(rows)

	list := make([]string, 0, maxSearchHistory)
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("row scan failed: %w", err)
		}
		list = append(list, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return list, nil
}

// ClearSearchHistory empties the search history
func (l *Library) ClearSearchHistory() error {
	if err := l.ready(); err != nil {
		return err
	}
	if _, err := l.db.Exec(`DELETE FROM search_history`); err != nil {
		return fmt.Errorf("clear search history failed: %w", err)
	}
	return nil
}
