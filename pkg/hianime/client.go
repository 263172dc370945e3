// Package hianime exposes the HiAnime scraping service and the local
// library as a library for other Go programs.
//
// NewClient gives a query-only client. Open also opens the on-disk
// library and preferences described by a Config.
package hianime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/alvarorichard/hianime/internal/api"
	"github.com/alvarorichard/hianime/internal/cache"
	"github.com/alvarorichard/hianime/internal/config"
	"github.com/alvarorichard/hianime/internal/downloader"
	"github.com/alvarorichard/hianime/internal/models"
	"github.com/alvarorichard/hianime/internal/scheduler"
	"github.com/alvarorichard/hianime/internal/settings"
	"github.com/alvarorichard/hianime/internal/tracking"
	"github.com/alvarorichard/hianime/internal/util"
)

type (
	Anime          = models.Anime
	AnimeDetail    = models.AnimeDetail
	Episode        = models.Episode
	EpisodeSources = models.EpisodeSources
	Genre          = models.Genre
	Schedule       = models.Schedule
	HomeFeed       = models.HomeFeed

	Config       = config.Config
	Library      = tracking.Library
	Settings     = settings.Settings
	Preferences  = settings.Store
	Scheduler    = scheduler.Scheduler
	Notifier     = scheduler.Notifier
	Notification = scheduler.Notification
	Downloader   = downloader.Downloader
)

var (
	// ErrLibraryUnavailable is returned by clients without an on-disk library
	ErrLibraryUnavailable = errors.New("local library not available")
	ErrNoPreferences      = errors.New("preferences not available")
)

// LoadConfig reads the configuration from configFile, or from the default
// locations when it is empty
func LoadConfig(configFile string) (*Config, error) {
	return config.Load(configFile)
}

type clientOptions struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	freshness  time.Duration
	staleness  time.Duration
}

// Option configures NewClient
type Option func(*clientOptions)

// WithBaseURL points the client at another site root
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) { o.baseURL = baseURL }
}

// WithHTTPClient replaces the shared HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithTimeout sets the request timeout of a dedicated HTTP client
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithCacheWindows sets how long results are served and kept
func WithCacheWindows(freshness, staleness time.Duration) Option {
	return func(o *clientOptions) {
		o.freshness = freshness
		o.staleness = staleness
	}
}

// Client is the entry point of the package
type Client struct {
	cfg      *Config
	service  *api.Service
	library  *tracking.Library
	settings *settings.Store
}

// NewClient creates a query-only client
func NewClient(opts ...Option) *Client {
	o := clientOptions{
		freshness: cache.DefaultFreshness,
		staleness: cache.DefaultStaleness,
	}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil && o.timeout > 0 {
		httpClient = util.NewHTTPClient(o.timeout)
	}

	results := cache.New(cache.WithFreshness(o.freshness), cache.WithStaleness(o.staleness))
	return &Client{
		service: api.NewService(util.NewFetcher(httpClient), results, o.baseURL),
	}
}

// Open creates a client from cfg and opens its library and preferences.
// Builds without cgo get no library; every other failure is returned.
func Open(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	c := NewClient(
		WithBaseURL(cfg.Site.BaseURL),
		WithTimeout(cfg.HTTP.Timeout),
		WithCacheWindows(cfg.Cache.Freshness, cfg.Cache.Staleness),
	)
	c.cfg = cfg

	prefs, err := settings.Open(cfg.SettingsPath())
	if err != nil {
		return nil, err
	}
	c.settings = prefs

	lib, err := tracking.Open(cfg.LibraryPath())
	switch {
	case errors.Is(err, tracking.ErrCgoDisabled):
		util.Warn("Local library disabled", "reason", err)
	case err != nil:
		_ = prefs.Close()
		return nil, err
	default:
		c.library = lib
	}

	return c, nil
}

// Close releases the library and preferences files
func (c *Client) Close() error {
	var errs []error
	if c.library != nil {
		errs = append(errs, c.library.Close())
	}
	if c.settings != nil {
		errs = append(errs, c.settings.Close())
	}
	return errors.Join(errs...)
}

// Library returns the local library
func (c *Client) Library() (*Library, error) {
	if c.library == nil {
		return nil, ErrLibraryUnavailable
	}
	return c.library, nil
}

// Preferences returns the preferences store
func (c *Client) Preferences() (*Preferences, error) {
	if c.settings == nil {
		return nil, ErrNoPreferences
	}
	return c.settings, nil
}

// NewScheduler builds the background scheduler for this client. Only
// the cache sweep runs without a library and preferences.
func (c *Client) NewScheduler(notifier Notifier) *Scheduler {
	var cfg scheduler.Config
	if c.cfg != nil {
		cfg.SweepInterval = c.cfg.Scheduler.SweepInterval
		cfg.EpisodeCheckInterval = c.cfg.Scheduler.EpisodeCheckInterval
	}

	if c.library != nil && c.settings != nil {
		return scheduler.New(c.service.Cache(), c.service, c.library, c.settings, notifier, cfg)
	}
	return scheduler.New(c.service.Cache(), c.service, nil, nil, notifier, cfg)
}

// NewDownloader builds a downloader that records into the library when
// there is one. Files go to the downloadDirectory preference, or to
// downloads/ under the data dir.
func (c *Client) NewDownloader() *Downloader {
	dir := "downloads"
	if c.cfg != nil {
		dir = filepath.Join(c.cfg.Storage.DataDir, "downloads")
	}
	if c.settings != nil {
		if prefs, err := c.settings.Load(); err == nil && prefs.DownloadDirectory != "" {
			dir = prefs.DownloadDirectory
		}
	}

	if c.library != nil {
		return downloader.New(dir, c.library)
	}
	return downloader.New(dir, nil)
}

// ResolveURL turns a site-relative link into an absolute URL
func (c *Client) ResolveURL(ref string) string {
	return c.service.ResolveURL(ref)
}

// ClearCache drops every cached result
func (c *Client) ClearCache() {
	c.service.Cache().Clear()
}

// CachedResults returns the number of cached results, fresh or not
func (c *Client) CachedResults() int {
	return c.service.Cache().Len()
}

func (c *Client) GetTrendingAnime(ctx context.Context) []Anime {
	return c.service.GetTrendingAnime(ctx)
}

func (c *Client) GetNewReleases(ctx context.Context) []Anime {
	return c.service.GetNewReleases(ctx)
}

func (c *Client) GetOngoingAnime(ctx context.Context) []Anime {
	return c.service.GetOngoingAnime(ctx)
}

// GetHomeFeed loads the three home listings concurrently
func (c *Client) GetHomeFeed(ctx context.Context) HomeFeed {
	return c.service.GetHomeFeed(ctx)
}

// SearchAnime searches by keyword; page starts at 1
func (c *Client) SearchAnime(ctx context.Context, query string, page int) []Anime {
	return c.service.SearchAnime(ctx, query, page)
}

// GetAnimeDetails returns nil when the title could not be loaded
func (c *Client) GetAnimeDetails(ctx context.Context, animeID string) *AnimeDetail {
	return c.service.GetAnimeDetails(ctx, animeID)
}

func (c *Client) GetEpisodeSources(ctx context.Context, episodeID string) EpisodeSources {
	return c.service.GetEpisodeSources(ctx, episodeID)
}

func (c *Client) GetGenres(ctx context.Context) []Genre {
	return c.service.GetGenres(ctx)
}

func (c *Client) GetAnimeByGenre(ctx context.Context, genre string, page int) []Anime {
	return c.service.GetAnimeByGenre(ctx, genre, page)
}

func (c *Client) GetAnimeCalendar(ctx context.Context) Schedule {
	return c.service.GetAnimeCalendar(ctx)
}
