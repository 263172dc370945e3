package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alvarorichard/hianime/internal/models"
	"github.com/alvarorichard/hianime/internal/settings"
	"github.com/alvarorichard/hianime/internal/util"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/manifoldco/promptui"
)

// errCancelled is returned when the user leaves a prompt
var errCancelled = errors.New("cancelled")

// spin runs action behind a spinner when attached to a terminal
func (a *app) spin(title string, action func()) {
	if !a.interactive {
		action()
		return
	}
	_ = spinner.New().
		Title(title).
		Type(spinner.Dots).
		Action(action).
		Run()
}

// pickAnime lets the user fuzzy-find one of the results
func pickAnime(animes []models.Anime) (models.Anime, error) {
	idx, err := fuzzyfinder.Find(
		animes,
		func(i int) string {
			return animes[i].DisplayName()
		},
		fuzzyfinder.WithPromptString("Select the anime: "),
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i < 0 {
				return ""
			}
			return previewAnime(animes[i])
		}),
	)
	if errors.Is(err, fuzzyfinder.ErrAbort) {
		return models.Anime{}, errCancelled
	}
	if err != nil {
		return models.Anime{}, fmt.Errorf("failed to select anime with go-fuzzyfinder: %w", err)
	}
	if idx < 0 || idx >= len(animes) {
		return models.Anime{}, errors.New("invalid index returned by fuzzyfinder")
	}
	return animes[idx], nil
}

func previewAnime(anime models.Anime) string {
	var b strings.Builder
	b.WriteString(anime.Title + "\n\n")
	for _, kv := range [][2]string{
		{"Type", string(anime.Type)},
		{"Year", anime.Year},
		{"Episodes", anime.Episodes},
		{"ID", anime.ID},
	} {
		if kv[1] != "" {
			fmt.Fprintf(&b, "%-9s %s\n", kv[0]+":", kv[1])
		}
	}
	return b.String()
}

// pickEpisode asks which episode to open
func pickEpisode(episodes []models.Episode) (models.Episode, error) {
	items := make([]string, len(episodes))
	for i, ep := range episodes {
		items[i] = fmt.Sprintf("%d. %s", ep.Number, ep.Title)
	}

	idx, _, err := util.SelectMenuItem("Select the episode", items)
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return models.Episode{}, errCancelled
	}
	if err != nil {
		return models.Episode{}, err
	}
	return episodes[idx], nil
}

func confirm(title string) bool {
	var ok bool
	if err := huh.NewConfirm().Title(title).Value(&ok).Run(); err != nil {
		return false
	}
	return ok
}

var (
	qualities     = []string{"auto", "1080p", "720p", "480p", "360p"}
	themes        = []string{"dark", "light", "system"}
	subtitleSizes = []string{"small", "medium", "large"}
)

// editSettings shows the preferences form filled with current
func editSettings(current settings.Settings) (settings.Settings, error) {
	s := current
	countdown := strconv.Itoa(s.AutoplayCountdown)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Theme").
				Options(huh.NewOptions(themes...)...).
				Value(&s.Theme),
			huh.NewSelect[string]().
				Title("Default quality").
				Options(huh.NewOptions(qualities...)...).
				Value(&s.DefaultQuality),
			huh.NewConfirm().
				Title("Autoplay next episode?").
				Value(&s.AutoplayNext),
			huh.NewInput().
				Title("Autoplay countdown (seconds)").
				Value(&countdown).
				Validate(func(v string) error {
					n, err := strconv.Atoi(strings.TrimSpace(v))
					if err != nil {
						return errors.New("enter a whole number of seconds")
					}
					return settings.CheckCountdown(n)
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Subtitle language").
				Value(&s.DefaultSubtitleLang),
			huh.NewSelect[string]().
				Title("Subtitle size").
				Options(huh.NewOptions(subtitleSizes...)...).
				Value(&s.SubtitleSize),
			huh.NewInput().
				Title("Download directory").
				Value(&s.DownloadDirectory),
			huh.NewSelect[string]().
				Title("Download quality").
				Options(huh.NewOptions(qualities[1:]...)...).
				Value(&s.DownloadQuality),
			huh.NewConfirm().
				Title("Notify about new episodes of favorites?").
				Value(&s.Notifications),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return current, errCancelled
		}
		return current, fmt.Errorf("failed to show settings form: %w", err)
	}

	n, err := strconv.Atoi(strings.TrimSpace(countdown))
	if err != nil {
		return current, fmt.Errorf("invalid autoplay countdown %q: %w", countdown, err)
	}
	if err := settings.CheckCountdown(n); err != nil {
		return current, err
	}
	s.AutoplayCountdown = n
	return s, nil
}
