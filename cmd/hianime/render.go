package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alvarorichard/hianime/internal/models"
	"github.com/alvarorichard/hianime/internal/tracking"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6366F1")).
			Bold(true).
			MarginTop(1)

	itemStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EEEEEE"))
	idStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5A5A5A")).Italic(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A9A9A9")).Italic(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF7F")).Bold(true)

	synopsisStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A9A9A9")).
			Width(76).
			PaddingLeft(2)
)

const timeLayout = "2006-01-02 15:04"

func header(w io.Writer, title string, count int) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s (%d)", title, count)))
}

func empty(w io.Writer, what string) {
	fmt.Fprintln(w, mutedStyle.Render("  no "+what))
}

func success(w io.Writer, msg string) {
	fmt.Fprintln(w, okStyle.Render("✓ "+msg))
}

func animeLine(a models.Anime) string {
	return fmt.Sprintf("  %s  %s", itemStyle.Render(a.DisplayName()), idStyle.Render(a.ID))
}

func renderListing(w io.Writer, title string, animes []models.Anime) {
	header(w, title, len(animes))
	if len(animes) == 0 {
		empty(w, "titles")
		return
	}
	for _, a := range animes {
		fmt.Fprintln(w, animeLine(a))
	}
}

func renderHome(w io.Writer, feed models.HomeFeed) {
	renderListing(w, "Trending", feed.Trending)
	renderListing(w, "New releases", feed.NewReleases)
	renderListing(w, "Ongoing", feed.Ongoing)
}

func field(w io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(label+":"), itemStyle.Render(value))
}

func renderDetail(w io.Writer, d *models.AnimeDetail) {
	fmt.Fprintln(w, headerStyle.Render(d.Title))
	field(w, "Aired", d.Year)
	field(w, "Status", d.Status)
	field(w, "Episodes", d.Episodes)
	field(w, "Score", d.Rating)
	field(w, "Genres", d.GetGenresDisplay())
	if d.Synopsis != "" {
		fmt.Fprintln(w, synopsisStyle.Render(d.Synopsis))
	}

	header(w, "Episode list", len(d.EpisodeList))
	for _, ep := range d.EpisodeList {
		fmt.Fprintf(w, "  %3d. %s  %s\n", ep.Number, itemStyle.Render(ep.Title), idStyle.Render(ep.ID))
	}
}

func renderSources(w io.Writer, s models.EpisodeSources) {
	header(w, "Sources", len(s.Sources))
	if len(s.Sources) == 0 {
		empty(w, "sources")
	}
	for _, src := range s.Sources {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(src.Quality+" "+src.Type), itemStyle.Render(src.URL))
	}

	header(w, "Subtitles", len(s.Subtitles))
	for _, sub := range s.Subtitles {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(sub.Label+" ("+sub.Language+")"), itemStyle.Render(sub.URL))
	}
}

func renderGenres(w io.Writer, genres []models.Genre) {
	header(w, "Genres", len(genres))
	if len(genres) == 0 {
		empty(w, "genres")
		return
	}
	names := make([]string, len(genres))
	for i, g := range genres {
		names[i] = g.Name
	}
	fmt.Fprintln(w, synopsisStyle.Render(strings.Join(names, ", ")))
}

func renderSchedule(w io.Writer, schedule models.Schedule) {
	for _, day := range models.Weekdays {
		entries := schedule[day]
		header(w, strings.ToUpper(day[:1])+day[1:], len(entries))
		if len(entries) == 0 {
			empty(w, "titles")
		}
		for _, a := range entries {
			fmt.Fprintln(w, animeLine(a))
		}
	}
}

func stamp(t time.Time) string {
	return mutedStyle.Render(t.Local().Format(timeLayout))
}

func renderFavorites(w io.Writer, favorites []tracking.Favorite) {
	header(w, "Favorites", len(favorites))
	if len(favorites) == 0 {
		empty(w, "favorites")
	}
	for _, f := range favorites {
		fmt.Fprintf(w, "%s  %s\n", animeLine(f.Anime), stamp(f.AddedAt))
	}
}

func renderHistory(w io.Writer, history []tracking.HistoryEntry) {
	header(w, "Watch history", len(history))
	if len(history) == 0 {
		empty(w, "history")
	}
	for _, h := range history {
		line := animeLine(h.Anime)
		if h.LastEpisode != nil {
			line += mutedStyle.Render(fmt.Sprintf("  ep %d", h.LastEpisode.Number))
		}
		fmt.Fprintf(w, "%s  %s\n", line, stamp(h.LastWatched))
	}
}

func renderContinue(w io.Writer, entries []tracking.ContinueEntry) {
	header(w, "Continue watching", len(entries))
	if len(entries) == 0 {
		empty(w, "titles in progress")
	}
	for _, c := range entries {
		fmt.Fprintf(w, "%s  %s  %s\n",
			animeLine(c.Anime),
			labelStyle.Render(fmt.Sprintf("ep %d %.0f%%", c.CurrentEpisode.Number, c.Progress*100)),
			stamp(c.UpdatedAt))
	}
}

func renderDownloads(w io.Writer, downloads []tracking.Download) {
	header(w, "Downloads", len(downloads))
	if len(downloads) == 0 {
		empty(w, "downloads")
	}
	for _, d := range downloads {
		fmt.Fprintf(w, "  %s  %s  %s\n",
			itemStyle.Render(fmt.Sprintf("%s ep %d", d.Anime.Title, d.Episode.Number)),
			labelStyle.Render(fmt.Sprintf("%s %.0f%%", d.Status, d.Progress*100)),
			idStyle.Render(d.FilePath))
	}
}

func renderSearches(w io.Writer, searches []string) {
	header(w, "Recent searches", len(searches))
	if len(searches) == 0 {
		empty(w, "searches")
	}
	for _, q := range searches {
		fmt.Fprintln(w, "  "+itemStyle.Render(q))
	}
}

// renderSettings prints one line per key, in key order
func renderSettings(w io.Writer, keys []string, value func(string) string) {
	header(w, "Settings", len(keys))
	for _, k := range keys {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(k+":"), itemStyle.Render(value(k)))
	}
}

func renderStats(w io.Writer, s tracking.Stats, cached int) {
	fmt.Fprintln(w, headerStyle.Render("Library"))
	field(w, "Favorites", fmt.Sprint(s.Favorites))
	field(w, "Watch history", fmt.Sprint(s.WatchHistory))
	field(w, "Downloads", fmt.Sprintf("%d (%d completed)", s.Downloads, s.CompletedDownloads))
	field(w, "Cached results", fmt.Sprint(cached))
}
