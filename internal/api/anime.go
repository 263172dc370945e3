package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/alvarorichard/hianime/internal/models"
	"github.com/alvarorichard/hianime/internal/scraper"
	"github.com/alvarorichard/hianime/internal/util"
	"golang.org/x/sync/errgroup"
)

// GetTrendingAnime returns the cards of the home page
func (s *Service) GetTrendingAnime(ctx context.Context) []models.Anime {
	return cachedQuery(ctx, s, "trending", "/home", scraper.ExtractListing, []models.Anime{})
}

// GetNewReleases returns the newest releases listing
func (s *Service) GetNewReleases(ctx context.Context) []models.Anime {
	return cachedQuery(ctx, s, "new-releases", "/new-release", scraper.ExtractListing, []models.Anime{})
}

// GetOngoingAnime returns the currently airing listing
func (s *Service) GetOngoingAnime(ctx context.Context) []models.Anime {
	return cachedQuery(ctx, s, "ongoing", "/ongoing", scraper.ExtractListing, []models.Anime{})
}

// SearchAnime searches titles by keyword. A blank query yields no results
// without touching the network.
func (s *Service) SearchAnime(ctx context.Context, query string, page int) []models.Anime {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Anime{}
	}
	page = normalizePage(page)

	key := fmt.Sprintf("search-%s-%d", query, page)
	path := fmt.Sprintf("/search?keyword=%s&page=%d", url.QueryEscape(query), page)
	return cachedQuery(ctx, s, key, path, scraper.ExtractListing, []models.Anime{})
}

// GetAnimeDetails returns the detail record of one title, nil when the
// page could not be fetched
func (s *Service) GetAnimeDetails(ctx context.Context, animeID string) *models.AnimeDetail {
	animeID = strings.TrimSpace(animeID)
	if animeID == "" {
		return nil
	}

	extract := func(html string) *models.AnimeDetail {
		detail := scraper.ExtractDetail(html)
		return &detail
	}
	return cachedQuery(ctx, s, "details-"+animeID, "/watch/"+url.PathEscape(animeID), extract, nil)
}

// GetEpisodeSources resolves the streams of one episode. Sources are
// short-lived and never cached.
func (s *Service) GetEpisodeSources(ctx context.Context, episodeID string) models.EpisodeSources {
	endpoint := fmt.Sprintf("%s/ajax/v2/episode/sources?id=%s", s.baseURL, url.QueryEscape(episodeID))

	body, err := s.fetcher.Fetch(ctx, endpoint,
		util.WithHeader("Accept", "application/json, text/javascript, */*; q=0.01"),
		util.WithHeader("X-Requested-With", "XMLHttpRequest"),
	)
	if err != nil {
		util.Error("Failed to fetch episode sources", "episode", episodeID, "error", err)
		return models.EmptySources()
	}

	sources, err := scraper.ParseEpisodeSources(body)
	if err != nil {
		util.Error("Failed to parse episode sources", "episode", episodeID, "error", err)
		return models.EmptySources()
	}
	return sources
}

// GetGenres returns the genre index
func (s *Service) GetGenres(ctx context.Context) []models.Genre {
	return cachedQuery(ctx, s, "genres", "/genre", scraper.ExtractGenres, []models.Genre{})
}

// GetAnimeByGenre lists the titles of one genre
func (s *Service) GetAnimeByGenre(ctx context.Context, genre string, page int) []models.Anime {
	slug := genreSlug(genre)
	if slug == "" {
		return []models.Anime{}
	}
	page = normalizePage(page)

	key := fmt.Sprintf("genre-%s-%d", slug, page)
	path := fmt.Sprintf("/genre/%s?page=%d", url.PathEscape(slug), page)
	return cachedQuery(ctx, s, key, path, scraper.ExtractListing, []models.Anime{})
}

// GetAnimeCalendar returns the weekly schedule, an empty map on failure
func (s *Service) GetAnimeCalendar(ctx context.Context) models.Schedule {
	return cachedQuery(ctx, s, "calendar", "/schedule", scraper.ExtractCalendar, models.Schedule{})
}

// GetHomeFeed loads trending, new releases and ongoing concurrently.
// Each query absorbs its own failure, so the feed is always complete.
func (s *Service) GetHomeFeed(ctx context.Context) models.HomeFeed {
	var feed models.HomeFeed

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		feed.Trending = s.GetTrendingAnime(gctx)
		return nil
	})
	g.Go(func() error {
		feed.NewReleases = s.GetNewReleases(gctx)
		return nil
	})
	g.Go(func() error {
		feed.Ongoing = s.GetOngoingAnime(gctx)
		return nil
	})
	_ = g.Wait()

	return feed
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// genreSlug lower-cases a genre name and joins its words with dashes
func genreSlug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}
