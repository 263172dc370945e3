// Package scraper turns HiAnime pages into structured records.
//
// Every extractor is pure: markup in, records out. Missing elements never
// produce an error; the corresponding field falls back to an empty value.
package scraper

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvarorichard/hianime/internal/models"
)

var (
	yearPattern     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	episodesPattern = regexp.MustCompile(`(?i)(\d+)\s*eps?`)
)

// ParseError reports an episode-sources payload that is not valid JSON
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse episode sources: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// newDocument parses markup and never fails: an unreadable page is an empty document
func newDocument(html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	return doc
}

// ExtractListing parses every listing card of a browse, search or home page
func ExtractListing(html string) []models.Anime {
	return listing(newDocument(html))
}

func listing(doc *goquery.Document) []models.Anime {
	animes := make([]models.Anime, 0)

	doc.Find(".flw-item").Each(func(i int, card *goquery.Selection) {
		animes = append(animes, parseCard(card))
	})

	return animes
}

func parseCard(card *goquery.Selection) models.Anime {
	link := card.Find(".film-poster a").First()
	href, _ := link.Attr("href")

	img := card.Find(".film-poster img").First()
	poster, _ := img.Attr("data-src")
	if poster == "" {
		poster, _ = img.Attr("src")
	}

	meta := card.Find(".film-detail .fd-infor").First().Text()

	return models.Anime{
		ID:       lastSegment(href),
		Title:    strings.TrimSpace(card.Find(".film-detail .film-name a").First().Text()),
		Poster:   poster,
		URL:      href,
		Year:     ExtractYear(meta),
		Type:     ExtractType(meta),
		Episodes: ExtractEpisodes(meta),
	}
}

// lastSegment returns what follows the final slash of href, without
// any query or fragment
func lastSegment(href string) string {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	if i := strings.LastIndex(href, "/"); i >= 0 {
		return href[i+1:]
	}
	return href
}

// ExtractYear returns the first 19xx/20xx token in text
func ExtractYear(text string) string {
	return yearPattern.FindString(text)
}

// ExtractType returns the first known format found in text, TV when none matches
func ExtractType(text string) models.AnimeType {
	for _, t := range models.AnimeTypes {
		if strings.Contains(text, string(t)) {
			return t
		}
	}
	return models.TypeTV
}

// ExtractEpisodes returns the digits in front of the first "ep"/"eps"
func ExtractEpisodes(text string) string {
	if m := episodesPattern.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	return ""
}

// ExtractDetail parses a title's watch page
func ExtractDetail(html string) models.AnimeDetail {
	doc := newDocument(html)

	title := strings.TrimSpace(doc.Find(".anisc-detail h3").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find(".anisc-detail .film-name").First().Text())
	}

	img := doc.Find(".film-poster img").First()
	poster, _ := img.Attr("src")
	if poster == "" {
		poster, _ = img.Attr("data-src")
	}

	metadata := make(map[string]string)
	genres := make([]string, 0)

	doc.Find(".anisc-info .item").Each(func(i int, item *goquery.Selection) {
		label := normalizeLabel(item.Find(".item-title").First().Text())
		if label == "" {
			return
		}

		value := strings.TrimSpace(item.Find(".name").First().Text())
		if value == "" {
			value = strings.TrimSpace(item.Text())
		}
		metadata[label] = value

		if label == "genres" {
			item.Find("a").Each(func(_ int, a *goquery.Selection) {
				if name := strings.TrimSpace(a.Text()); name != "" {
					genres = append(genres, name)
				}
			})
		}
	})

	episodes := episodeList(doc)

	episodeCount := metadata["episodes"]
	if episodeCount == "" {
		episodeCount = strconv.Itoa(len(episodes))
	}

	return models.AnimeDetail{
		Title:       title,
		Poster:      poster,
		Synopsis:    strings.TrimSpace(doc.Find(".film-description .text").First().Text()),
		Year:        metadata["aired"],
		Status:      metadata["status"],
		Episodes:    episodeCount,
		Rating:      metadata["mal score"],
		Genres:      genres,
		EpisodeList: episodes,
	}
}

// normalizeLabel lower-cases a metadata label and drops the trailing colon
func normalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	return strings.TrimSpace(strings.TrimSuffix(label, ":"))
}

// ExtractEpisodeList parses the episode block of a watch page.
// Numbers follow display order; any number printed on the page is ignored.
func ExtractEpisodeList(html string) []models.Episode {
	return episodeList(newDocument(html))
}

func episodeList(doc *goquery.Document) []models.Episode {
	episodes := make([]models.Episode, 0)

	doc.Find(".ss-list a").Each(func(i int, s *goquery.Selection) {
		number := i + 1

		title := strings.TrimSpace(s.Text())
		if title == "" {
			title = fmt.Sprintf("Episode %d", number)
		}
		href, _ := s.Attr("href")
		dataID, _ := s.Attr("data-id")

		episodes = append(episodes, models.Episode{
			Number: number,
			Title:  title,
			URL:    href,
			ID:     dataID,
		})
	})

	return episodes
}

// ExtractGenres parses the genre index page
func ExtractGenres(html string) []models.Genre {
	doc := newDocument(html)
	genres := make([]models.Genre, 0)

	doc.Find(".genre-list a").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		genres = append(genres, models.Genre{
			Name: strings.TrimSpace(s.Text()),
			URL:  href,
		})
	})

	return genres
}

// ExtractCalendar returns the weekly schedule skeleton: every weekday
// present with no entries. Schedule markup is not parsed yet, so an
// empty day means "not populated", not "nothing airs".
func ExtractCalendar(html string) models.Schedule {
	schedule := make(models.Schedule, len(models.Weekdays))
	for _, day := range models.Weekdays {
		schedule[day] = []models.Anime{}
	}
	return schedule
}

// errNullSources is wrapped in the ParseError of a "null" payload
var errNullSources = errors.New("episode sources payload is null")

// ParseEpisodeSources decodes the episode sources JSON. Only the single
// "link" field is read: it becomes one 1080p mp4 source, alongside a
// placeholder English subtitle track. A scalar link is kept as its text;
// a payload that is not an object has no link.
func ParseEpisodeSources(body string) (models.EpisodeSources, error) {
	var payload any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return models.EmptySources(), &ParseError{Err: err}
	}
	if payload == nil {
		return models.EmptySources(), &ParseError{Err: errNullSources}
	}

	var link string
	if obj, ok := payload.(map[string]any); ok {
		link = linkText(obj["link"])
	}

	return models.EpisodeSources{
		Sources: []models.VideoSource{
			{URL: link, Quality: "1080p", Type: "mp4"},
		},
		Subtitles: []models.Subtitle{
			{URL: "", Language: "en", Label: "English"},
		},
	}, nil
}

func linkText(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
