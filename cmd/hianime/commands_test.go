package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alvarorichard/hianime/internal/tracking"
	"github.com/alvarorichard/hianime/pkg/hianime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cardsPage = `<div class="flw-item">
  <div class="film-poster"><img src="p.jpg"><a href="/watch/bleach-806"></a></div>
  <div class="film-detail"><h3 class="film-name"><a href="/bleach-806">Bleach</a></h3>
  <div class="fd-infor">TV 2004 366 eps</div></div>
</div>`

const watchPage = `<div class="anisc-detail"><h3>Bleach</h3></div>
<div class="anisc-info">
  <div class="item"><span class="item-title">Aired:</span><span class="name">Oct 5, 2004 to Mar 27, 2012</span></div>
  <div class="item"><span class="item-title">Episodes:</span><span class="name">366</span></div>
</div>
<div class="ss-list"><a href="/watch/bleach-806?ep=1" data-id="1">The Day I Became a Shinigami</a></div>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/home", "/search", "/genre/action":
			_, _ = w.Write([]byte(cardsPage))
		case "/watch/bleach-806":
			_, _ = w.Write([]byte(watchPage))
		case "/ajax/v2/episode/sources":
			fmt.Fprintf(w, `{"link":"http://%s/video/ep1.mp4"}`, r.Host)
		case "/video/ep1.mp4":
			_, _ = w.Write([]byte("not really a video"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	server := newSite(t)
	var out bytes.Buffer
	client := hianime.NewClient(hianime.WithBaseURL(server.URL), hianime.WithHTTPClient(server.Client()))
	return newApp(client, &out, 1), &out
}

func TestRunListings(t *testing.T) {
	a, out := newTestApp(t)
	assert.False(t, a.interactive)

	require.NoError(t, a.run(context.Background(), "trending", nil))
	assert.Contains(t, out.String(), "Trending (1)")
	assert.Contains(t, out.String(), "Bleach (TV, 2004, 366 eps)")

	out.Reset()
	require.NoError(t, a.run(context.Background(), "new", nil))
	assert.Contains(t, out.String(), "New releases (0)")
}

func TestRunSearchWithoutTerminal(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, a.run(context.Background(), "search", []string{"bleach"}))
	assert.Contains(t, out.String(), `Results for "bleach", page 1 (1)`)
	assert.Contains(t, out.String(), "bleach-806")
}

func TestRunDetailsAndSources(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, a.run(context.Background(), "details", []string{"bleach-806"}))
	assert.Contains(t, out.String(), "366")
	assert.Contains(t, out.String(), "Episode list (1)")

	out.Reset()
	require.NoError(t, a.run(context.Background(), "sources", []string{"1"}))
	assert.Contains(t, out.String(), "/video/ep1.mp4")

	err := a.run(context.Background(), "details", []string{"missing-1"})
	assert.Error(t, err)
}

func TestRunGenreAndCalendar(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, a.run(context.Background(), "genre", []string{"Action"}))
	assert.Contains(t, out.String(), "Action, page 1 (1)")

	out.Reset()
	require.NoError(t, a.run(context.Background(), "calendar", nil))
	assert.Contains(t, out.String(), "Monday (0)")
	assert.Contains(t, out.String(), "Sunday (0)")
}

func TestRunUsageErrors(t *testing.T) {
	a, _ := newTestApp(t)

	for _, tc := range []struct {
		cmd  string
		args []string
	}{
		{"dance", nil},
		{"details", nil},
		{"sources", nil},
		{"genre", nil},
		{"export", nil},
		{"import", nil},
		{"download", []string{"bleach-806"}},
		{"download", []string{"bleach-806", "zero"}},
	} {
		err := a.run(context.Background(), tc.cmd, tc.args)
		assert.ErrorIs(t, err, errUsage, tc.cmd)
	}
}

func TestRunWithoutStorage(t *testing.T) {
	a, _ := newTestApp(t)

	for _, cmd := range []string{"favorites", "history", "continue", "downloads", "searches", "stats"} {
		assert.ErrorIs(t, a.run(context.Background(), cmd, nil), hianime.ErrLibraryUnavailable, cmd)
	}
	assert.ErrorIs(t, a.run(context.Background(), "settings", nil), hianime.ErrNoPreferences)
}

func openTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	server := newSite(t)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("HIANIME_SITE_BASE_URL", server.URL)
	t.Setenv("HIANIME_STORAGE_DATA_DIR", t.TempDir())

	cfg, err := hianime.LoadConfig("")
	require.NoError(t, err)
	client, err := hianime.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	var out bytes.Buffer
	return newApp(client, &out, 1), &out
}

func TestRunSettings(t *testing.T) {
	a, out := openTestApp(t)

	require.NoError(t, a.run(context.Background(), "settings", nil))
	assert.Contains(t, out.String(), "Settings (9)")
	assert.Contains(t, out.String(), "dark")

	out.Reset()
	require.NoError(t, a.run(context.Background(), "settings", []string{"set", "theme", "light"}))
	assert.Contains(t, out.String(), "theme updated")
	assert.Contains(t, out.String(), "light")

	assert.Error(t, a.run(context.Background(), "settings", []string{"set", "volume", "11"}))
	assert.ErrorIs(t, a.run(context.Background(), "settings", []string{"set", "theme"}), errUsage)

	out.Reset()
	require.NoError(t, a.run(context.Background(), "settings", []string{"reset"}))
	assert.Contains(t, out.String(), "dark")
}

func TestRunFavoritesExportImport(t *testing.T) {
	if !tracking.IsCgoEnabled() {
		t.Skip("local library requires cgo")
	}
	a, out := openTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.run(ctx, "favorites", []string{"add", "bleach-806"}))
	assert.Contains(t, out.String(), "added Bleach to favorites")

	lib, err := a.client.Library()
	require.NoError(t, err)
	favorites, err := lib.Favorites()
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, "366", favorites[0].Episodes)
	assert.Equal(t, "2004", favorites[0].Year)

	require.NoError(t, a.run(ctx, "search", []string{"bleach"}))

	file := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, a.run(ctx, "export", []string{file}))
	_, err = os.Stat(file)
	require.NoError(t, err)

	require.NoError(t, a.run(ctx, "favorites", []string{"remove", "bleach-806"}))
	assert.Error(t, a.run(ctx, "favorites", []string{"remove", "bleach-806"}))

	out.Reset()
	require.NoError(t, a.run(ctx, "import", []string{file}))
	assert.Contains(t, out.String(), "Favorites:")

	searches, err := lib.SearchHistory()
	require.NoError(t, err)
	assert.Equal(t, []string{"bleach"}, searches)

	ok, err := lib.IsFavorite("bleach-806")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunDownload(t *testing.T) {
	a, out := openTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.run(ctx, "download", []string{"bleach-806", "1"}))
	assert.Contains(t, out.String(), "saved to")

	path := a.client.NewDownloader().Path(hianime.Anime{ID: "bleach-806"}, hianime.Episode{Number: 1})
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not really a video", string(data))

	assert.Error(t, a.run(ctx, "download", []string{"bleach-806", "2"}))

	if !tracking.IsCgoEnabled() {
		return
	}
	out.Reset()
	require.NoError(t, a.run(ctx, "downloads", nil))
	assert.Contains(t, out.String(), "completed 100%")
}
