// Package models contains anime-specific data structures
package models

import (
	"fmt"
	"strings"
)

// AnimeType is the format of a title as printed on a listing card
type AnimeType string

const (
	TypeTV      AnimeType = "TV"
	TypeMovie   AnimeType = "Movie"
	TypeOVA     AnimeType = "OVA"
	TypeONA     AnimeType = "ONA"
	TypeSpecial AnimeType = "Special"
)

// AnimeTypes lists the known formats in match priority order
var AnimeTypes = []AnimeType{TypeTV, TypeMovie, TypeOVA, TypeONA, TypeSpecial}

// Anime represents one listing card on a browse, search or home page
type Anime struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Poster   string    `json:"poster"`
	URL      string    `json:"url"`
	Year     string    `json:"year"`
	Type     AnimeType `json:"type"`
	Episodes string    `json:"episodes"`
}

// AnimeDetail contains the information shown on a title's watch page
type AnimeDetail struct {
	Title       string    `json:"title"`
	Poster      string    `json:"poster"`
	Synopsis    string    `json:"synopsis"`
	Year        string    `json:"year"`
	Status      string    `json:"status"`
	Episodes    string    `json:"episodes"`
	Rating      string    `json:"rating"`
	Genres      []string  `json:"genres"`
	EpisodeList []Episode `json:"episodeList"`
}

// Episode is a reference to a single episode of a title.
// Number is the 1-based position in the page's episode list.
type Episode struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	ID     string `json:"id"`
}

// Genre is an entry of the site's genre index
type Genre struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Weekdays are the keys of a Schedule, monday first
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Schedule maps a lower-case weekday to the titles airing that day
type Schedule map[string][]Anime

// HomeFeed groups the three sections of the home page
type HomeFeed struct {
	Trending    []Anime `json:"trending"`
	NewReleases []Anime `json:"newReleases"`
	Ongoing     []Anime `json:"ongoing"`
}

// DisplayName returns the title decorated with year and format
func (a Anime) DisplayName() string {
	var tags []string
	if a.Type != "" {
		tags = append(tags, string(a.Type))
	}
	if a.Year != "" {
		tags = append(tags, a.Year)
	}
	if a.Episodes != "" {
		tags = append(tags, a.Episodes+" eps")
	}
	if len(tags) == 0 {
		return a.Title
	}
	return fmt.Sprintf("%s (%s)", a.Title, strings.Join(tags, ", "))
}

// GetGenresDisplay returns genres as comma-separated string
func (d *AnimeDetail) GetGenresDisplay() string {
	if d == nil || len(d.Genres) == 0 {
		return ""
	}
	return strings.Join(d.Genres, ", ")
}
