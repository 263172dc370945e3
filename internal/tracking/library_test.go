package tracking

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alvarorichard/hianime/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func openTestLibrary(t *testing.T) (*Library, *testClock) {
	t.Helper()
	if !IsCgoEnabled() {
		t.Skip("sqlite library requires cgo")
	}

	clock := &testClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	lib, err := Open(filepath.Join(t.TempDir(), "library.db"), WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := lib.Close(); err != nil {
			t.Logf("Error closing library: %v", err)
		}
	})
	return lib, clock
}

func anime(id string) models.Anime {
	return models.Anime{
		ID:       id,
		Title:    "Title " + id,
		Poster:   "https://img.test/" + id + ".jpg",
		URL:      "/watch/" + id,
		Year:     "2023",
		Type:     models.TypeTV,
		Episodes: "12",
	}
}

func ids[T interface{ animeID() string }](items []T) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.animeID())
	}
	return out
}

func (f Favorite) animeID() string      { return f.ID }
func (e HistoryEntry) animeID() string  { return e.ID }
func (e ContinueEntry) animeID() string { return e.ID }

func TestOpenCreatesDatabase(t *testing.T) {
	if !IsCgoEnabled() {
		t.Skip("sqlite library requires cgo")
	}

	dbPath := filepath.Join(t.TempDir(), "nested", "library.db")
	lib, err := Open(dbPath)
	require.NoError(t, err)

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
	assert.NoError(t, lib.Close())
}

func TestNilLibrary(t *testing.T) {
	var lib *Library

	_, err := lib.Favorites()
	assert.ErrorIs(t, err, ErrTrackerNotInited)
	assert.ErrorIs(t, lib.AddSearch("x"), ErrTrackerNotInited)
	assert.NoError(t, lib.Close())
}

func TestFavorites(t *testing.T) {
	lib, clock := openTestLibrary(t)

	added, err := lib.AddFavorite(anime("a"))
	require.NoError(t, err)
	assert.True(t, added)

	clock.Advance(time.Minute)
	added, err = lib.AddFavorite(anime("b"))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = lib.AddFavorite(anime("a"))
	require.NoError(t, err)
	assert.False(t, added, "duplicates are rejected")

	favs, err := lib.Favorites()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(favs))
	assert.Equal(t, anime("b"), favs[0].Anime)
	assert.True(t, favs[0].AddedAt.Equal(clock.Now()))

	ok, err := lib.IsFavorite("a")
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := lib.RemoveFavorite("a")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = lib.RemoveFavorite("a")
	require.NoError(t, err)
	assert.False(t, removed)

	ok, err = lib.IsFavorite("a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateFavoriteEpisodesKeepsOrder(t *testing.T) {
	lib, _ := openTestLibrary(t)

	for _, id := range []string{"a", "b", "c"} {
		_, err := lib.AddFavorite(anime(id))
		require.NoError(t, err)
	}

	updated, err := lib.UpdateFavoriteEpisodes("b", "13")
	require.NoError(t, err)
	assert.True(t, updated)

	updated, err = lib.UpdateFavoriteEpisodes("missing", "1")
	require.NoError(t, err)
	assert.False(t, updated)

	favs, err := lib.Favorites()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(favs))
	assert.Equal(t, "13", favs[1].Episodes)
}

func TestHistoryMovesEntryToTop(t *testing.T) {
	lib, clock := openTestLibrary(t)

	require.NoError(t, lib.AddToHistory(anime("a"), nil))
	require.NoError(t, lib.AddToHistory(anime("b"), nil))

	clock.Advance(time.Hour)
	ep := &models.Episode{Number: 4, Title: "Episode 4", URL: "/ep/4", ID: "404"}
	require.NoError(t, lib.AddToHistory(anime("a"), ep))

	history, err := lib.History()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(history))
	require.NotNil(t, history[0].LastEpisode)
	assert.Equal(t, *ep, *history[0].LastEpisode)
	assert.True(t, history[0].LastWatched.Equal(clock.Now()))
	assert.Nil(t, history[1].LastEpisode)

	require.NoError(t, lib.ClearHistory())
	history, err = lib.History()
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHistoryKeepsNewest100(t *testing.T) {
	lib, _ := openTestLibrary(t)

	for i := 0; i < 105; i++ {
		require.NoError(t, lib.AddToHistory(anime(fmt.Sprintf("a%d", i)), nil))
	}

	history, err := lib.History()
	require.NoError(t, err)
	require.Len(t, history, 100)
	assert.Equal(t, "a104", history[0].ID)
	assert.Equal(t, "a5", history[99].ID)
}

func TestContinueWatching(t *testing.T) {
	lib, _ := openTestLibrary(t)
	ep := models.Episode{Number: 2, Title: "Episode 2"}

	require.NoError(t, lib.UpdateContinueWatching(anime("a"), ep, 0.3))
	require.NoError(t, lib.UpdateContinueWatching(anime("b"), ep, 0.5))
	require.NoError(t, lib.UpdateContinueWatching(anime("a"), ep, 0.6))

	list, err := lib.ContinueWatching()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(list))
	assert.InDelta(t, 0.6, list[0].Progress, 1e-9)
	assert.Equal(t, ep, list[0].CurrentEpisode)

	// reaching 90% drops the entry
	require.NoError(t, lib.UpdateContinueWatching(anime("b"), ep, 0.9))
	list, err = lib.ContinueWatching()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(list))

	require.NoError(t, lib.RemoveContinueWatching("a"))
	list, err = lib.ContinueWatching()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestContinueWatchingKeepsNewest20(t *testing.T) {
	lib, _ := openTestLibrary(t)

	for i := 0; i < 25; i++ {
		require.NoError(t, lib.UpdateContinueWatching(anime(fmt.Sprintf("a%d", i)), models.Episode{Number: 1}, 0.1))
	}

	list, err := lib.ContinueWatching()
	require.NoError(t, err)
	require.Len(t, list, 20)
	assert.Equal(t, "a24", list[0].ID)
	assert.Equal(t, "a5", list[19].ID)
}

func TestDownloads(t *testing.T) {
	lib, clock := openTestLibrary(t)
	ep := models.Episode{Number: 3, Title: "Episode 3", ID: "ep3"}

	dl, err := lib.AddDownload(anime("a"), ep, "/tmp/a-3.mp4", "")
	require.NoError(t, err)
	assert.Equal(t, "a-3", dl.ID)
	assert.Equal(t, StatusPending, dl.Status)
	assert.Nil(t, dl.CompletedAt)

	_, err = lib.AddDownload(anime("b"), models.Episode{Number: 1}, "/tmp/b-1.mp4", StatusDownloading)
	require.NoError(t, err)

	_, err = lib.AddDownload(anime("c"), ep, "", DownloadStatus("paused"))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	clock.Advance(10 * time.Minute)
	progress := 0.5
	found, err := lib.UpdateDownload("a-3", DownloadUpdate{Progress: &progress})
	require.NoError(t, err)
	assert.True(t, found)

	downloads, err := lib.Downloads()
	require.NoError(t, err)
	require.Len(t, downloads, 2)
	assert.Equal(t, "b-1", downloads[0].ID)
	assert.Equal(t, "a-3", downloads[1].ID)
	assert.InDelta(t, 0.5, downloads[1].Progress, 1e-9)
	assert.Nil(t, downloads[1].CompletedAt)
	assert.Equal(t, anime("a"), downloads[1].Anime)
	assert.Equal(t, ep, downloads[1].Episode)

	completed := StatusCompleted
	found, err = lib.UpdateDownload("a-3", DownloadUpdate{Status: &completed})
	require.NoError(t, err)
	assert.True(t, found)

	downloads, err = lib.Downloads()
	require.NoError(t, err)
	require.NotNil(t, downloads[1].CompletedAt)
	assert.True(t, downloads[1].CompletedAt.Equal(clock.Now()))
	assert.Equal(t, StatusCompleted, downloads[1].Status)

	found, err = lib.UpdateDownload("missing", DownloadUpdate{Status: &completed})
	require.NoError(t, err)
	assert.False(t, found)

	removed, err := lib.RemoveDownload("b-1")
	require.NoError(t, err)
	assert.True(t, removed)

	stats, err := lib.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Downloads: 1, CompletedDownloads: 1}, stats)
}

func TestSearchHistory(t *testing.T) {
	lib, _ := openTestLibrary(t)

	require.NoError(t, lib.AddSearch("naruto"))
	require.NoError(t, lib.AddSearch("   "))
	require.NoError(t, lib.AddSearch("bleach"))
	require.NoError(t, lib.AddSearch("naruto"))

	history, err := lib.SearchHistory()
	require.NoError(t, err)
	assert.Equal(t, []string{"naruto", "bleach"}, history)

	for i := 0; i < 25; i++ {
		require.NoError(t, lib.AddSearch(fmt.Sprintf("q%d", i)))
	}
	history, err = lib.SearchHistory()
	require.NoError(t, err)
	require.Len(t, history, 20)
	assert.Equal(t, "q24", history[0])

	require.NoError(t, lib.ClearSearchHistory())
	history, err = lib.SearchHistory()
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestExportImportRoundTrip(t *testing.T) {
	lib, clock := openTestLibrary(t)

	_, err := lib.AddFavorite(anime("a"))
	require.NoError(t, err)
	_, err = lib.AddFavorite(anime("b"))
	require.NoError(t, err)
	require.NoError(t, lib.AddToHistory(anime("a"), &models.Episode{Number: 1, Title: "Episode 1"}))
	require.NoError(t, lib.UpdateContinueWatching(anime("a"), models.Episode{Number: 1}, 0.2))
	_, err = lib.AddDownload(anime("a"), models.Episode{Number: 1}, "/tmp/a.mp4", StatusCompleted)
	require.NoError(t, err)
	require.NoError(t, lib.AddSearch("frieren"))

	data, err := lib.Export()
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "favorites")
	assert.Contains(t, raw, "watchHistory")
	assert.Contains(t, raw, "continueWatching")
	assert.Contains(t, raw, "downloads")
	assert.Contains(t, raw, "searchHistory")

	before, err := lib.Snapshot()
	require.NoError(t, err)

	require.NoError(t, lib.ClearAll())
	stats, err := lib.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)

	clock.Advance(time.Hour)
	require.NoError(t, lib.Import(data))

	after, err := lib.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	stats, err = lib.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Favorites: 2, WatchHistory: 1, Downloads: 1, CompletedDownloads: 1}, stats)
}

func TestImportMissingListsResetToEmpty(t *testing.T) {
	lib, _ := openTestLibrary(t)

	_, err := lib.AddFavorite(anime("a"))
	require.NoError(t, err)
	require.NoError(t, lib.AddSearch("old"))

	require.NoError(t, lib.Import([]byte(`{"searchHistory":["new", " "], "settings":{"theme":"light"}}`)))

	favs, err := lib.Favorites()
	require.NoError(t, err)
	assert.Empty(t, favs)

	history, err := lib.SearchHistory()
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, history)
}

func TestImportRejectsMalformedJSON(t *testing.T) {
	lib, _ := openTestLibrary(t)

	_, err := lib.AddFavorite(anime("a"))
	require.NoError(t, err)

	err = lib.Import([]byte(`{not json`))
	require.Error(t, err)

	var syntaxErr *json.SyntaxError
	assert.True(t, errors.As(err, &syntaxErr))

	favs, err := lib.Favorites()
	require.NoError(t, err)
	assert.Len(t, favs, 1, "state is untouched")
}
