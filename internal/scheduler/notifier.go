package scheduler

import (
	"context"
	"fmt"
	"io"

	"github.com/alvarorichard/hianime/internal/models"
	"github.com/alvarorichard/hianime/internal/util"
	"github.com/charmbracelet/lipgloss"
)

// Notification is a message for the user about one title
type Notification struct {
	Title string
	Body  string
	Tag   string
	Icon  string
	Anime models.Anime
}

// NewEpisodeNotification announces a changed episode count for anime
func NewEpisodeNotification(anime models.Anime, episodes string) Notification {
	return Notification{
		Title: "New Episode Available!",
		Body:  fmt.Sprintf("%s has new episodes (%s total)", anime.Title, episodes),
		Tag:   "new-episode-" + anime.ID,
		Icon:  anime.Poster,
		Anime: anime,
	}
}

// Notifier shows notifications to the user
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the process logger
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	util.Info(n.Title, "anime", n.Anime.ID, "message", n.Body)
	return nil
}

var (
	notifyTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF69B4")).Bold(true)
	notifyBodyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EEEEEE"))
)

// ConsoleNotifier prints styled notifications to W
type ConsoleNotifier struct {
	W io.Writer
}

func (c ConsoleNotifier) Notify(_ context.Context, n Notification) error {
	_, err := fmt.Fprintf(c.W, "%s %s\n", notifyTitleStyle.Render("🔔 "+n.Title), notifyBodyStyle.Render(n.Body))
	return err
}
