package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alvarorichard/hianime/internal/downloader"
	"github.com/alvarorichard/hianime/internal/models"
	"github.com/alvarorichard/hianime/internal/scheduler"
	"github.com/alvarorichard/hianime/internal/scraper"
	"github.com/alvarorichard/hianime/internal/settings"
	"github.com/alvarorichard/hianime/internal/tracking"
	"github.com/alvarorichard/hianime/internal/util"
	"github.com/alvarorichard/hianime/pkg/hianime"
	"github.com/mattn/go-isatty"
)

// app carries what every command needs
type app struct {
	client      *hianime.Client
	out         io.Writer
	page        int
	interactive bool
}

func newApp(client *hianime.Client, out io.Writer, page int) *app {
	interactive := false
	if f, ok := out.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &app{client: client, out: out, page: page, interactive: interactive}
}

// errUsage is wrapped by every argument error
var errUsage = errors.New("usage")

func usage(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...)
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "", "home":
		return a.home(ctx)
	case "trending", "new", "ongoing":
		return a.listing(ctx, cmd)
	case "search":
		return a.search(ctx, args)
	case "details":
		return a.details(ctx, args)
	case "sources":
		return a.sources(ctx, args)
	case "genres":
		return a.genres(ctx)
	case "genre":
		return a.genre(ctx, args)
	case "calendar":
		return a.calendar(ctx)
	case "favorites":
		return a.favorites(ctx, args)
	case "history":
		return a.history(args)
	case "continue":
		return a.continueWatching()
	case "downloads":
		return a.downloads()
	case "download":
		return a.download(ctx, args)
	case "searches":
		return a.searches(args)
	case "settings":
		return a.settings(args)
	case "stats":
		return a.stats()
	case "export":
		return a.export(args)
	case "import":
		return a.importLibrary(args)
	case "watch":
		return a.watch(ctx)
	default:
		return usage("unknown command %q, run hianime -help", cmd)
	}
}

func (a *app) home(ctx context.Context) error {
	var feed models.HomeFeed
	a.spin("Loading home feed...", func() {
		feed = a.client.GetHomeFeed(ctx)
	})
	renderHome(a.out, feed)
	return nil
}

func (a *app) listing(ctx context.Context, which string) error {
	var (
		title  string
		animes []models.Anime
	)
	a.spin("Loading "+which+"...", func() {
		switch which {
		case "trending":
			title, animes = "Trending", a.client.GetTrendingAnime(ctx)
		case "new":
			title, animes = "New releases", a.client.GetNewReleases(ctx)
		default:
			title, animes = "Ongoing", a.client.GetOngoingAnime(ctx)
		}
	})
	renderListing(a.out, title, animes)
	return nil
}

func (a *app) search(ctx context.Context, args []string) error {
	query, err := util.GetSearchQuery(args)
	if err != nil {
		return err
	}

	if lib, err := a.client.Library(); err == nil {
		if err := lib.AddSearch(query); err != nil {
			util.Warn("Failed to record search", "query", query, "error", err)
		}
	}

	var results []models.Anime
	a.spin("Searching for "+query+"...", func() {
		results = a.client.SearchAnime(ctx, query, a.page)
	})

	if !a.interactive || len(results) == 0 {
		renderListing(a.out, fmt.Sprintf("Results for %q, page %d", query, a.page), results)
		return nil
	}

	anime, err := pickAnime(results)
	if errors.Is(err, errCancelled) {
		return nil
	}
	if err != nil {
		return err
	}
	return a.open(ctx, anime)
}

// open shows a picked title, records it and lets the user pick an episode
func (a *app) open(ctx context.Context, anime models.Anime) error {
	detail, err := a.loadDetail(ctx, anime.ID)
	if err != nil {
		return err
	}
	renderDetail(a.out, detail)

	lib, libErr := a.client.Library()
	if libErr != nil {
		return nil
	}

	if err := lib.AddToHistory(anime, nil); err != nil {
		util.Warn("Failed to record history", "anime", anime.ID, "error", err)
	}

	if fav, err := lib.IsFavorite(anime.ID); err == nil && !fav && confirm("Add "+anime.Title+" to favorites?") {
		anime.Episodes = detail.Episodes
		if _, err := lib.AddFavorite(anime); err != nil {
			return fmt.Errorf("failed to add favorite: %w", err)
		}
		success(a.out, "added to favorites")
	}

	if len(detail.EpisodeList) == 0 {
		return nil
	}
	ep, err := pickEpisode(detail.EpisodeList)
	if errors.Is(err, errCancelled) {
		return nil
	}
	if err != nil {
		return err
	}

	var sources models.EpisodeSources
	a.spin("Loading episode sources...", func() {
		sources = a.client.GetEpisodeSources(ctx, ep.ID)
	})
	renderSources(a.out, sources)

	if err := lib.AddToHistory(anime, &ep); err != nil {
		util.Warn("Failed to record history", "anime", anime.ID, "error", err)
	}
	if err := lib.UpdateContinueWatching(anime, ep, 0); err != nil {
		util.Warn("Failed to update continue watching", "anime", anime.ID, "error", err)
	}
	return nil
}

func (a *app) loadDetail(ctx context.Context, id string) (*models.AnimeDetail, error) {
	var detail *models.AnimeDetail
	a.spin("Loading details...", func() {
		detail = a.client.GetAnimeDetails(ctx, id)
	})
	if detail == nil {
		return nil, fmt.Errorf("could not load anime %q", id)
	}
	return detail, nil
}

// animeFromDetail builds the listing record of a title opened by id
func animeFromDetail(id string, detail *models.AnimeDetail) models.Anime {
	return models.Anime{
		ID:       id,
		Title:    detail.Title,
		Poster:   detail.Poster,
		URL:      "/watch/" + id,
		Year:     scraper.ExtractYear(detail.Year),
		Type:     models.TypeTV,
		Episodes: detail.Episodes,
	}
}

func (a *app) details(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("details <anime id>")
	}
	detail, err := a.loadDetail(ctx, args[0])
	if err != nil {
		return err
	}
	renderDetail(a.out, detail)
	return nil
}

func (a *app) sources(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("sources <episode id>")
	}
	var sources models.EpisodeSources
	a.spin("Loading episode sources...", func() {
		sources = a.client.GetEpisodeSources(ctx, args[0])
	})
	renderSources(a.out, sources)
	return nil
}

func (a *app) genres(ctx context.Context) error {
	var genres []models.Genre
	a.spin("Loading genres...", func() {
		genres = a.client.GetGenres(ctx)
	})
	renderGenres(a.out, genres)
	return nil
}

func (a *app) genre(ctx context.Context, args []string) error {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		return usage("genre <name>")
	}
	var animes []models.Anime
	a.spin("Loading "+name+"...", func() {
		animes = a.client.GetAnimeByGenre(ctx, name, a.page)
	})
	renderListing(a.out, fmt.Sprintf("%s, page %d", name, a.page), animes)
	return nil
}

func (a *app) calendar(ctx context.Context) error {
	var schedule models.Schedule
	a.spin("Loading schedule...", func() {
		schedule = a.client.GetAnimeCalendar(ctx)
	})
	renderSchedule(a.out, schedule)
	return nil
}

func (a *app) favorites(ctx context.Context, args []string) error {
	lib, err := a.client.Library()
	if err != nil {
		return err
	}

	sub := ""
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}

	switch sub {
	case "":
		favorites, err := lib.Favorites()
		if err != nil {
			return err
		}
		renderFavorites(a.out, favorites)
		return nil

	case "add":
		if len(args) < 2 {
			return usage("favorites add <anime id>")
		}
		id := args[1]
		detail, err := a.loadDetail(ctx, id)
		if err != nil {
			return err
		}
		added, err := lib.AddFavorite(animeFromDetail(id, detail))
		if err != nil {
			return err
		}
		if !added {
			success(a.out, detail.Title+" is already a favorite")
			return nil
		}
		success(a.out, "added "+detail.Title+" to favorites")
		return nil

	case "remove":
		if len(args) < 2 {
			return usage("favorites remove <anime id>")
		}
		removed, err := lib.RemoveFavorite(args[1])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%q is not a favorite", args[1])
		}
		success(a.out, "removed "+args[1])
		return nil

	default:
		return usage("favorites [add|remove <anime id>]")
	}
}

func (a *app) history(args []string) error {
	lib, err := a.client.Library()
	if err != nil {
		return err
	}
	if len(args) > 0 && strings.EqualFold(args[0], "clear") {
		if err := lib.ClearHistory(); err != nil {
			return err
		}
		success(a.out, "history cleared")
		return nil
	}
	history, err := lib.History()
	if err != nil {
		return err
	}
	renderHistory(a.out, history)
	return nil
}

func (a *app) continueWatching() error {
	lib, err := a.client.Library()
	if err != nil {
		return err
	}
	entries, err := lib.ContinueWatching()
	if err != nil {
		return err
	}
	renderContinue(a.out, entries)
	return nil
}

func (a *app) downloads() error {
	lib, err := a.client.Library()
	if err != nil {
		return err
	}
	downloads, err := lib.Downloads()
	if err != nil {
		return err
	}
	renderDownloads(a.out, downloads)
	return nil
}

func (a *app) download(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("download <anime id> <episode number>")
	}
	number, err := strconv.Atoi(args[1])
	if err != nil || number < 1 {
		return usage("episode number must be a positive integer, got %q", args[1])
	}

	detail, err := a.loadDetail(ctx, args[0])
	if err != nil {
		return err
	}
	if number > len(detail.EpisodeList) {
		return fmt.Errorf("%s has %d episodes listed", detail.Title, len(detail.EpisodeList))
	}
	ep := detail.EpisodeList[number-1]

	var sources models.EpisodeSources
	a.spin("Loading episode sources...", func() {
		sources = a.client.GetEpisodeSources(ctx, ep.ID)
	})

	req := downloader.Request{
		Anime:   animeFromDetail(args[0], detail),
		Episode: ep,
		URL:     a.preferredSource(sources),
	}

	d := a.client.NewDownloader()
	var dl tracking.Download
	title := fmt.Sprintf("Downloading %s episode %d", detail.Title, ep.Number)
	if a.interactive {
		err = downloader.RunWithProgress(ctx, title, func(ctx context.Context, progress downloader.ProgressFunc) error {
			var err error
			dl, err = d.Download(ctx, req, progress)
			return err
		})
	} else {
		dl, err = d.Download(ctx, req, nil)
	}
	if err != nil {
		return err
	}
	success(a.out, "saved to "+dl.FilePath)
	return nil
}

// preferredSource picks the source matching the downloadQuality preference,
// the first one otherwise
func (a *app) preferredSource(sources models.EpisodeSources) string {
	if len(sources.Sources) == 0 {
		return ""
	}
	if prefs, err := a.client.Preferences(); err == nil {
		if s, err := prefs.Load(); err == nil {
			for _, src := range sources.Sources {
				if src.Quality == s.DownloadQuality {
					return src.URL
				}
			}
		}
	}
	return sources.Sources[0].URL
}

func (a *app) searches(args []string) error {
	lib, err := a.client.Library()
	if err != nil {
		return err
	}
	if len(args) > 0 && strings.EqualFold(args[0], "clear") {
		if err := lib.ClearSearchHistory(); err != nil {
			return err
		}
		success(a.out, "search history cleared")
		return nil
	}
	searches, err := lib.SearchHistory()
	if err != nil {
		return err
	}
	renderSearches(a.out, searches)
	return nil
}

func (a *app) settings(args []string) error {
	prefs, err := a.client.Preferences()
	if err != nil {
		return err
	}

	sub := ""
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}

	switch sub {
	case "":
	case "edit":
		current, err := prefs.Load()
		if err != nil {
			return err
		}
		updated, err := editSettings(current)
		if errors.Is(err, errCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := prefs.Save(updated); err != nil {
			return err
		}
		success(a.out, "settings saved")
	case "reset":
		if err := prefs.Reset(); err != nil {
			return err
		}
		success(a.out, "settings reset to defaults")
	case "set":
		if len(args) < 3 {
			return usage("settings set <key> <value>")
		}
		if err := prefs.SetFromString(args[1], strings.Join(args[2:], " ")); err != nil {
			return err
		}
		success(a.out, args[1]+" updated")
	default:
		return usage("settings [edit|reset|set <key> <value>]")
	}

	return a.showSettings(prefs)
}

// showSettings prints the effective preferences, defaults included
func (a *app) showSettings(prefs *settings.Store) error {
	current, err := prefs.Load()
	if err != nil {
		return err
	}
	data, err := json.Marshal(current)
	if err != nil {
		return err
	}
	values := make(map[string]any)
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	renderSettings(a.out, settings.Keys(), func(k string) string { return fmt.Sprint(values[k]) })
	return nil
}

func (a *app) stats() error {
	lib, err := a.client.Library()
	if err != nil {
		return err
	}
	s, err := lib.Stats()
	if err != nil {
		return err
	}
	renderStats(a.out, s, a.client.CachedResults())
	return nil
}

func (a *app) export(args []string) error {
	if len(args) == 0 {
		return usage("export <file>")
	}
	lib, err := a.client.Library()
	if err != nil {
		return err
	}
	data, err := lib.Export()
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], data, 0600); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	success(a.out, "library exported to "+args[0])
	return nil
}

func (a *app) importLibrary(args []string) error {
	if len(args) == 0 {
		return usage("import <file>")
	}
	lib, err := a.client.Library()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read import: %w", err)
	}
	if err := lib.Import(data); err != nil {
		return fmt.Errorf("failed to import %s: %w", args[0], err)
	}
	success(a.out, "library imported from "+args[0])
	return a.stats()
}

// watch runs the scheduler in the foreground until ctx is cancelled
func (a *app) watch(ctx context.Context) error {
	sched := a.client.NewScheduler(scheduler.ConsoleNotifier{W: a.out})

	success(a.out, "watching for new episodes, press Ctrl+C to stop")
	if _, err := sched.CheckNewEpisodes(ctx); err != nil {
		util.Warn("Episode check failed", "error", err)
	}

	sched.Start(ctx)
	<-ctx.Done()
	sched.StopWait(5 * time.Second)
	return nil
}
