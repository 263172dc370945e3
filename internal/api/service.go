// Package api answers every logical anime query: it consults the result
// cache, fetches the page on a miss, extracts records and stores them.
//
// Service methods never return errors. A failed fetch is logged and the
// caller receives the empty value for that query.
package api

import (
	"context"
	"net/url"
	"strings"

	"github.com/alvarorichard/hianime/internal/cache"
	"github.com/alvarorichard/hianime/internal/util"
)

// DefaultBaseURL is the site the service scrapes when none is configured
const DefaultBaseURL = "https://hianime.to"

// Fetcher retrieves the body of a page
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts ...util.FetchOption) (string, error)
}

// Service is the anime data service
type Service struct {
	fetcher Fetcher
	results *cache.Cache
	baseURL string
}

// NewService builds a service. A nil fetcher uses the shared HTTP client,
// a nil cache gets a default one and an empty baseURL means DefaultBaseURL.
func NewService(fetcher Fetcher, results *cache.Cache, baseURL string) *Service {
	if fetcher == nil {
		fetcher = util.NewFetcher(nil)
	}
	if results == nil {
		results = cache.New()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Service{
		fetcher: fetcher,
		results: results,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Cache exposes the result cache so a scheduler can sweep it
func (s *Service) Cache() *cache.Cache {
	return s.results
}

// BaseURL returns the site root without a trailing slash
func (s *Service) BaseURL() string {
	return s.baseURL
}

// ResolveURL turns a site-relative link from a listing into an absolute URL
func (s *Service) ResolveURL(ref string) string {
	base, err := url.Parse(s.baseURL + "/")
	if err != nil {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(refURL).String()
}

// cachedQuery runs the lookup shared by every cached query: a fresh cache
// hit is returned as is, otherwise path is fetched, extracted and stored.
// Only successful extractions are cached.
func cachedQuery[T any](ctx context.Context, s *Service, key, path string, extract func(string) T, empty T) T {
	if payload, ok := s.results.Get(key); ok {
		if typed, ok := payload.(T); ok {
			util.Debug("Cache hit", "key", key)
			return typed
		}
	}

	body, err := s.fetcher.Fetch(ctx, s.baseURL+path)
	if err != nil {
		util.Error("Query failed", "key", key, "error", err)
		return empty
	}

	result := extract(body)
	s.results.Put(key, result)
	return result
}
