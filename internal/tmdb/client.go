// Package tmdb is a small client for The Movie Database HTTP API: movie
// search and movie details.  Failures are not retried; a non-2xx status
// is returned to the caller as a *StatusError.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	DefaultBaseURL  = "https://api.themoviedb.org/3"
	DefaultImageURL = "https://image.tmdb.org/t/p/w500"
)

// StatusError reports a non-success HTTP status from the movie database.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("movie database returned status %d for %s", e.StatusCode, e.URL)
}

// IsNotFound reports whether err is a 404 from the movie database.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Cache is the lookup cache used by the client.  *cache.JSONCache
// satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Options configures a Client.  Zero values fall back to defaults.
type Options struct {
	BaseURL    string
	ImageURL   string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Cache      Cache
	CacheTTL   time.Duration
	Logger     hclog.Logger
}

// Client handles all movie database API interactions.
type Client struct {
	baseURL    string
	imageURL   string
	apiKey     string
	httpClient *http.Client
	cache      Cache
	cacheTTL   time.Duration
	logger     hclog.Logger
}

// New creates a movie database client.
func New(opts Options) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		imageURL:   opts.ImageURL,
		apiKey:     opts.APIKey,
		httpClient: opts.HTTPClient,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		logger:     opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.imageURL == "" {
		c.imageURL = DefaultImageURL
	}
	if c.httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if c.logger == nil {
		c.logger = hclog.NewNullLogger()
	}
	return c
}

// Search looks movies up by title.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	cacheKey := "search:" + strings.ToLower(query)
	var cached []SearchResult
	if c.fromCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	var resp searchResponse
	if err := c.get(ctx, "/search/movie", params, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if resp.Results == nil {
		resp.Results = []SearchResult{}
	}
	c.toCache(ctx, cacheKey, resp.Results)
	return resp.Results, nil
}

// Details fetches the detail document of one movie.
func (c *Client) Details(ctx context.Context, id int64) (*MovieDetails, error) {
	cacheKey := "movie:" + strconv.FormatInt(id, 10)
	var cached MovieDetails
	if c.fromCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	params := url.Values{}
	params.Set("language", "en-US")
	var details MovieDetails
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10), params, &details); err != nil {
		return nil, fmt.Errorf("details %d: %w", id, err)
	}
	c.toCache(ctx, cacheKey, details)
	return &details, nil
}

// PosterURL joins a poster path with the image base URL.
func (c *Client) PosterURL(path string) string {
	if path == "" {
		return ""
	}
	return strings.TrimRight(c.imageURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	// v4 read-access tokens are JWTs and go in the Authorization header;
	// v3 keys travel as a query parameter.
	bearer := isReadAccessToken(c.apiKey)
	if !bearer {
		params.Set("api_key", c.apiKey)
	}
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if bearer {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("movie database request", "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = c.baseURL + path // keep the api key out of error messages
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, URL: c.baseURL + path}
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) fromCache(ctx context.Context, key string, dest any) bool {
	if c.cache == nil {
		return false
	}
	found, err := c.cache.GetJSON(ctx, key, dest)
	if err != nil {
		c.logger.Warn("lookup cache read failed", "key", key, "error", err)
		return false
	}
	return found
}

func (c *Client) toCache(ctx context.Context, key string, value any) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	if err := c.cache.SetJSON(ctx, key, value, c.cacheTTL); err != nil {
		c.logger.Warn("lookup cache write failed", "key", key, "error", err)
	}
}

func isReadAccessToken(key string) bool {
	return strings.HasPrefix(key, "eyJ") && strings.Count(key, ".") == 2
}
