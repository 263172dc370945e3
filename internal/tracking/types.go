package tracking

import (
	"strconv"
	"time"

	"github.com/alvarorichard/hianime/internal/models"
)

const (
	maxHistory          = 100
	maxContinueWatching = 20
	maxSearchHistory    = 20

	// progress at or past this fraction counts as watched
	completedProgress = 0.9
)

// Favorite is a saved title
type Favorite struct {
	models.Anime
	AddedAt time.Time `json:"addedAt"`
}

// HistoryEntry is a title the user opened, with the last episode played
type HistoryEntry struct {
	models.Anime
	LastWatched time.Time       `json:"lastWatched"`
	LastEpisode *models.Episode `json:"lastEpisode"`
}

// ContinueEntry is a partially watched title
type ContinueEntry struct {
	models.Anime
	CurrentEpisode models.Episode `json:"currentEpisode"`
	Progress       float64        `json:"progress"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// DownloadStatus is the lifecycle state of a download record
type DownloadStatus string

const (
	StatusPending     DownloadStatus = "pending"
	StatusDownloading DownloadStatus = "downloading"
	StatusCompleted   DownloadStatus = "completed"
	StatusFailed      DownloadStatus = "failed"
)

// Valid reports whether s is a known status
func (s DownloadStatus) Valid() bool {
	switch s {
	case StatusPending, StatusDownloading, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Download records an episode saved to disk
type Download struct {
	ID          string         `json:"id"`
	Anime       models.Anime   `json:"anime"`
	Episode     models.Episode `json:"episode"`
	FilePath    string         `json:"filePath"`
	Status      DownloadStatus `json:"status"`
	Progress    float64        `json:"progress"`
	AddedAt     time.Time      `json:"addedAt"`
	CompletedAt *time.Time     `json:"completedAt"`
}

// DownloadUpdate lists the fields to change on a download; nil fields are kept
type DownloadUpdate struct {
	Status   *DownloadStatus
	Progress *float64
	FilePath *string
}

// Stats summarizes the library
type Stats struct {
	Favorites          int `json:"favorites"`
	WatchHistory       int `json:"watchHistory"`
	Downloads          int `json:"downloads"`
	CompletedDownloads int `json:"completedDownloads"`
}

// Snapshot is the exported form of the whole library, lists newest first.
// Missing lists import as empty.
type Snapshot struct {
	Favorites        []Favorite      `json:"favorites"`
	WatchHistory     []HistoryEntry  `json:"watchHistory"`
	ContinueWatching []ContinueEntry `json:"continueWatching"`
	Downloads        []Download      `json:"downloads"`
	SearchHistory    []string        `json:"searchHistory"`
}

// DownloadID is the identifier of the download of one episode
func DownloadID(animeID string, episodeNumber int) string {
	return animeID + "-" + strconv.Itoa(episodeNumber)
}
