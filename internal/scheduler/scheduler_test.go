package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alvarorichard/hianime/internal/cache"
	"github.com/alvarorichard/hianime/internal/models"
	"github.com/alvarorichard/hianime/internal/settings"
	"github.com/alvarorichard/hianime/internal/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetails struct {
	episodes map[string]string
}

func (f fakeDetails) GetAnimeDetails(_ context.Context, id string) *models.AnimeDetail {
	eps, ok := f.episodes[id]
	if !ok {
		return nil
	}
	return &models.AnimeDetail{Title: id, Episodes: eps}
}

type fakeFavorites struct {
	mu      sync.Mutex
	items   []tracking.Favorite
	updated map[string]string
	err     error
}

func (f *fakeFavorites) Favorites() ([]tracking.Favorite, error) {
	return f.items, f.err
}

func (f *fakeFavorites) UpdateFavoriteEpisodes(id, episodes string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updated == nil {
		f.updated = make(map[string]string)
	}
	f.updated[id] = episodes
	return true, nil
}

type fakePrefs struct {
	notifications bool
}

func (f fakePrefs) Load() (settings.Settings, error) {
	s := settings.Defaults()
	s.Notifications = f.notifications
	return s, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (f *fakeNotifier) Notify(_ context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return nil
}

func favorite(id, episodes string) tracking.Favorite {
	return tracking.Favorite{Anime: models.Anime{ID: id, Title: "Title " + id, Episodes: episodes}}
}

func TestCheckNewEpisodesNotifiesOnChangedCount(t *testing.T) {
	favs := &fakeFavorites{items: []tracking.Favorite{
		favorite("a", "12"),
		favorite("b", "24"),
		favorite("gone", "5"),
	}}
	details := fakeDetails{episodes: map[string]string{"a": "13", "b": "24"}}
	notifier := &fakeNotifier{}

	s := New(nil, details, favs, fakePrefs{notifications: true}, notifier, Config{})
	changed, err := s.CheckNewEpisodes(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, changed)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "New Episode Available!", notifier.sent[0].Title)
	assert.Equal(t, "Title a has new episodes (13 total)", notifier.sent[0].Body)
	assert.Equal(t, "new-episode-a", notifier.sent[0].Tag)
	assert.Equal(t, map[string]string{"a": "13"}, favs.updated)
}

func TestCheckNewEpisodesDisabledByPreference(t *testing.T) {
	favs := &fakeFavorites{items: []tracking.Favorite{favorite("a", "12")}}
	details := fakeDetails{episodes: map[string]string{"a": "13"}}
	notifier := &fakeNotifier{}

	s := New(nil, details, favs, fakePrefs{notifications: false}, notifier, Config{})
	changed, err := s.CheckNewEpisodes(context.Background())
	require.NoError(t, err)

	assert.Zero(t, changed)
	assert.Empty(t, notifier.sent)
	assert.Empty(t, favs.updated)
}

func TestCheckNewEpisodesFavoritesError(t *testing.T) {
	favs := &fakeFavorites{err: errors.New("db locked")}

	s := New(nil, fakeDetails{}, favs, fakePrefs{notifications: true}, &fakeNotifier{}, Config{})
	_, err := s.CheckNewEpisodes(context.Background())
	assert.ErrorContains(t, err, "db locked")
}

func TestSweepOnceUsesInjectedClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	clock := func() time.Time { return now }

	results := cache.New(cache.WithClock(clock))
	results.Put("trending", []models.Anime{})
	now = now.Add(10 * time.Minute)
	results.Put("ongoing", []models.Anime{})

	s := New(results, nil, nil, nil, nil, Config{}, WithClock(clock))

	now = start.Add(35 * time.Minute)
	assert.Equal(t, 1, s.SweepOnce())
	assert.Equal(t, 1, results.Len())

	now = start.Add(time.Hour)
	assert.Equal(t, 1, s.SweepOnce())
	assert.Zero(t, results.Len())
}

func TestStartTicksUntilCancelled(t *testing.T) {
	start := time.Now()
	results := cache.New(cache.WithClock(func() time.Time { return start }))
	results.Put("old", 1)

	later := func() time.Time { return start.Add(time.Hour) }
	s := New(results, nil, nil, nil, nil, Config{
		SweepInterval:        5 * time.Millisecond,
		EpisodeCheckInterval: 5 * time.Millisecond,
	}, WithClock(later))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	assert.Eventually(t, func() bool { return results.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() {
		s.StopWait(time.Second)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestStartAgainAfterStop(t *testing.T) {
	s := New(cache.New(), nil, nil, nil, nil, Config{
		SweepInterval:        5 * time.Millisecond,
		EpisodeCheckInterval: 5 * time.Millisecond,
	})

	s.StopWait(time.Second)
	assert.False(t, s.Running())

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	s.Start(ctx)
	assert.True(t, s.Running())
	cancel()
	s.StopWait(time.Second)
	assert.Eventually(t, func() bool { return !s.Running() }, time.Second, 5*time.Millisecond)

	ctx2, cancel2 := context.WithCancel(context.Background())
	s.Start(ctx2)
	assert.True(t, s.Running())
	cancel2()
	s.StopWait(time.Second)
	assert.Eventually(t, func() bool { return !s.Running() }, time.Second, 5*time.Millisecond)
}

func TestConsoleNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewEpisodeNotification(models.Anime{ID: "x", Title: "Frieren"}, "28")

	require.NoError(t, ConsoleNotifier{W: &buf}.Notify(context.Background(), n))
	assert.Contains(t, buf.String(), "New Episode Available!")
	assert.Contains(t, buf.String(), "Frieren has new episodes (28 total)")
}
