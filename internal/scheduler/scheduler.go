// Package scheduler drives the periodic background work: sweeping stale
// cache entries and checking favorites for new episodes.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alvarorichard/hianime/internal/models"
	"github.com/alvarorichard/hianime/internal/settings"
	"github.com/alvarorichard/hianime/internal/tracking"
	"github.com/alvarorichard/hianime/internal/util"
)

const (
	DefaultSweepInterval        = time.Hour
	DefaultEpisodeCheckInterval = 30 * time.Minute

	defaultWorkers = 4
)

// Sweeper evicts stale cache entries
type Sweeper interface {
	Sweep(now time.Time) int
}

type detailsSource interface {
	GetAnimeDetails(ctx context.Context, animeID string) *models.AnimeDetail
}

type favoriteStore interface {
	Favorites() ([]tracking.Favorite, error)
	UpdateFavoriteEpisodes(animeID, episodes string) (bool, error)
}

type preferences interface {
	Load() (settings.Settings, error)
}

// Config sets the tick intervals and how many favorites are checked at once
type Config struct {
	SweepInterval        time.Duration
	EpisodeCheckInterval time.Duration
	Workers              int
}

// Scheduler runs the sweep and the new-episode check on their own tickers
type Scheduler struct {
	cache     Sweeper
	details   detailsSource
	favorites favoriteStore
	prefs     preferences
	notifier  Notifier
	cfg       Config
	now       func() time.Time

	// runMu guards running and stopCh; each Start gets its own stopCh
	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithClock replaces time.Now for the sweep
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a scheduler. Zero intervals take the defaults; a nil notifier
// only logs.
func New(cache Sweeper, details detailsSource, favorites favoriteStore, prefs preferences, notifier Notifier, cfg Config, opts ...Option) *Scheduler {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.EpisodeCheckInterval <= 0 {
		cfg.EpisodeCheckInterval = DefaultEpisodeCheckInterval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}

	s := &Scheduler{
		cache:     cache,
		details:   details,
		favorites: favorites,
		prefs:     prefs,
		notifier:  notifier,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs both tickers in the background until ctx is cancelled.
// It does nothing while a previous Start is still running.
func (s *Scheduler) Start(ctx context.Context) {
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		util.Debug("Scheduler already running")
		return
	}
	s.running = true
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	s.runMu.Unlock()

	util.Info("Scheduler started",
		"sweep", s.cfg.SweepInterval.String(),
		"episodeCheck", s.cfg.EpisodeCheckInterval.String())

	sweepTicker := time.NewTicker(s.cfg.SweepInterval)
	checkTicker := time.NewTicker(s.cfg.EpisodeCheckInterval)

	go func() {
		defer sweepTicker.Stop()
		defer checkTicker.Stop()

		for {
			select {
			case <-ctx.Done():
				util.Info("Scheduler stopped")
				s.runMu.Lock()
				s.running = false
				s.runMu.Unlock()
				close(stopCh)
				return
			case <-sweepTicker.C:
				s.SweepOnce()
			case <-checkTicker.C:
				if _, err := s.CheckNewEpisodes(ctx); err != nil {
					util.Warn("Episode check failed", "error", err)
				}
			}
		}
	}()
}

// Running reports whether a Start goroutine is active
func (s *Scheduler) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.running
}

// StopWait blocks until the scheduler goroutine exits or timeout passes.
// It returns at once when the scheduler was never started.
func (s *Scheduler) StopWait(timeout time.Duration) {
	s.runMu.Lock()
	stopCh := s.stopCh
	s.runMu.Unlock()
	if stopCh == nil {
		return
	}

	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	select {
	case <-stopCh:
	case <-time.After(timeout):
	}
}

// SweepOnce evicts stale cache entries and reports how many were removed
func (s *Scheduler) SweepOnce() int {
	if s.cache == nil {
		return 0
	}
	removed := s.cache.Sweep(s.now())
	util.Debug("Cache swept", "removed", removed)
	return removed
}

// CheckNewEpisodes compares every favorite's stored episode count with the
// site's. Changed counts are notified and written back. Nothing happens
// while the notifications preference is off. It returns the number of
// favorites that changed.
func (s *Scheduler) CheckNewEpisodes(ctx context.Context) (int, error) {
	if s.prefs == nil || s.favorites == nil || s.details == nil {
		return 0, nil
	}

	prefs, err := s.prefs.Load()
	if err != nil {
		return 0, fmt.Errorf("load preferences: %w", err)
	}
	if !prefs.Notifications {
		return 0, nil
	}

	favorites, err := s.favorites.Favorites()
	if err != nil {
		return 0, fmt.Errorf("load favorites for episode check: %w", err)
	}

	var (
		changed atomic.Int32
		mu      sync.Mutex
	)

	tasks := make([]func(), 0, len(favorites))
	for _, fav := range favorites {
		fav := fav
		tasks = append(tasks, func() {
			if ctx.Err() != nil {
				return
			}

			details := s.details.GetAnimeDetails(ctx, fav.ID)
			if details == nil || details.Episodes == fav.Episodes {
				return
			}
			changed.Add(1)

			// notifier and store calls are serialized
			mu.Lock()
			defer mu.Unlock()

			if err := s.notifier.Notify(ctx, NewEpisodeNotification(fav.Anime, details.Episodes)); err != nil {
				util.Warn("Notification failed", "anime", fav.ID, "error", err)
			}
			if _, err := s.favorites.UpdateFavoriteEpisodes(fav.ID, details.Episodes); err != nil {
				util.Warn("Updating favorite failed", "anime", fav.ID, "error", err)
			}
		})
	}

	util.ParallelExecute(s.cfg.Workers, tasks...)
	return int(changed.Load()), ctx.Err()
}
