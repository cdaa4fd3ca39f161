// Package service holds the movie workflows that sit between the HTTP
// handlers and the repository: external lookups, rating rules, poster
// mirroring and event publication.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-hclog"

	"github.com/iliyamo/top-movies/internal/model"
	"github.com/iliyamo/top-movies/internal/queue"
	"github.com/iliyamo/top-movies/internal/tmdb"
)

// MaxReviewLength is the longest review accepted, in characters.
const MaxReviewLength = 250

// refreshBatch bounds the number of movies refreshed per run.
const refreshBatch = 50

var (
	// ErrEmptyQuery is returned by Search for a blank title.
	ErrEmptyQuery = errors.New("search title is required")
	// ErrInvalidRating is returned when a rating is outside 0..10.
	ErrInvalidRating = errors.New("rating must be a number between 0 and 10")
	// ErrReviewTooLong is returned when a review exceeds MaxReviewLength.
	ErrReviewTooLong = fmt.Errorf("review must be at most %d characters", MaxReviewLength)
)

// MovieStore persists movies.
type MovieStore interface {
	ListRanked(ctx context.Context) ([]model.Movie, error)
	GetByID(ctx context.Context, id uint64) (*model.Movie, error)
	Create(ctx context.Context, m *model.Movie) error
	UpdateReview(ctx context.Context, id uint64, rating float64, review string) (*model.Movie, error)
	UpdateDetails(ctx context.Context, id uint64, year, description, imgURL string) error
	Delete(ctx context.Context, id uint64) error
	ListIncomplete(ctx context.Context, limit int) ([]model.Movie, error)
}

// MovieLookup queries the external movie database.
type MovieLookup interface {
	Search(ctx context.Context, query string) ([]tmdb.SearchResult, error)
	Details(ctx context.Context, id int64) (*tmdb.MovieDetails, error)
	PosterURL(path string) string
}

// PosterMirror copies a poster to storage the app controls.
type PosterMirror interface {
	Mirror(ctx context.Context, srcURL, title string, externalID int64) (string, error)
}

// EventPublisher publishes movie events.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.MovieEvent) error
}

// CacheInvalidator drops cached responses derived from the movie list.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Deps bundles the collaborators of a MovieService.  Posters, Events and
// Cache are optional; leave them nil when the backing system is not
// configured.
type Deps struct {
	Store   MovieStore
	Lookup  MovieLookup
	Posters PosterMirror
	Events  EventPublisher
	Cache   CacheInvalidator
	Logger  hclog.Logger
}

// MovieService implements the movie workflows.
type MovieService struct {
	store   MovieStore
	lookup  MovieLookup
	posters PosterMirror
	events  EventPublisher
	cache   CacheInvalidator
	log     hclog.Logger
}

// NewMovieService builds a MovieService from d.
func NewMovieService(d Deps) *MovieService {
	logger := d.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &MovieService{
		store:   d.Store,
		lookup:  d.Lookup,
		posters: d.Posters,
		events:  d.Events,
		cache:   d.Cache,
		log:     logger.Named("movies"),
	}
}

// List returns every movie in ranking order (see repository.Rank).
func (s *MovieService) List(ctx context.Context) ([]model.Movie, error) {
	return s.store.ListRanked(ctx)
}

// Get returns one movie.
func (s *MovieService) Get(ctx context.Context, id uint64) (*model.Movie, error) {
	return s.store.GetByID(ctx, id)
}

// Search looks candidate movies up by title in the movie database.
func (s *MovieService) Search(ctx context.Context, title string) ([]tmdb.SearchResult, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyQuery
	}
	return s.lookup.Search(ctx, title)
}

// AddFromExternal fetches the movie database entry externalID and stores
// it as a new, unrated movie.
func (s *MovieService) AddFromExternal(ctx context.Context, externalID int64) (*model.Movie, error) {
	d, err := s.lookup.Details(ctx, externalID)
	if err != nil {
		return nil, err
	}

	m := &model.Movie{
		ExternalID:  d.ID,
		Title:       strings.TrimSpace(d.Title),
		Year:        d.Year(),
		Description: d.Overview,
		ImgURL:      s.posterURL(ctx, d.Title, d.ID, d.PosterPath),
	}
	if m.ExternalID == 0 {
		m.ExternalID = externalID
	}
	if m.Title == "" {
		return nil, fmt.Errorf("movie %d has no title", externalID)
	}
	if err := s.store.Create(ctx, m); err != nil {
		return nil, err
	}
	s.log.Info("movie added", "id", m.ID, "title", m.Title, "external_id", m.ExternalID)

	s.afterChange(ctx, queue.MovieEvent{
		Type:       queue.EventMovieAdded,
		MovieID:    m.ID,
		ExternalID: m.ExternalID,
		Title:      m.Title,
	})
	return m, nil
}

// Rate stores the rating and review of a movie.
func (s *MovieService) Rate(ctx context.Context, id uint64, rating float64, review string) (*model.Movie, error) {
	if math.IsNaN(rating) || rating < 0 || rating > 10 {
		return nil, ErrInvalidRating
	}
	review = strings.TrimSpace(review)
	if utf8.RuneCountInString(review) > MaxReviewLength {
		return nil, ErrReviewTooLong
	}
	m, err := s.store.UpdateReview(ctx, id, rating, review)
	if err != nil {
		return nil, err
	}
	s.log.Info("movie rated", "id", id, "rating", rating)

	s.afterChange(ctx, queue.MovieEvent{
		Type:       queue.EventMovieRated,
		MovieID:    m.ID,
		ExternalID: m.ExternalID,
		Title:      m.Title,
		Rating:     m.Rating,
		Review:     review,
	})
	return m, nil
}

// Delete removes a movie.
func (s *MovieService) Delete(ctx context.Context, id uint64) error {
	m, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("movie deleted", "id", id, "title", m.Title)

	s.afterChange(ctx, queue.MovieEvent{
		Type:       queue.EventMovieDeleted,
		MovieID:    m.ID,
		ExternalID: m.ExternalID,
		Title:      m.Title,
		Rating:     m.Rating,
	})
	return nil
}

// RefreshIncomplete re-fetches the movie database details of movies that
// lack a poster or a description and returns how many rows were updated.
// Lookup failures for one movie are logged and skipped.
func (s *MovieService) RefreshIncomplete(ctx context.Context) (int, error) {
	movies, err := s.store.ListIncomplete(ctx, refreshBatch)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, m := range movies {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		d, err := s.lookup.Details(ctx, m.ExternalID)
		if err != nil {
			s.log.Warn("refresh lookup failed", "id", m.ID, "external_id", m.ExternalID, "error", err)
			continue
		}
		year := firstNonEmpty(m.Year, d.Year())
		description := firstNonEmpty(m.Description, d.Overview)
		img := m.ImgURL
		if img == "" {
			img = s.posterURL(ctx, m.Title, m.ExternalID, d.PosterPath)
		}
		if year == m.Year && description == m.Description && img == m.ImgURL {
			continue
		}
		if err := s.store.UpdateDetails(ctx, m.ID, year, description, img); err != nil {
			s.log.Warn("refresh update failed", "id", m.ID, "error", err)
			continue
		}
		updated++
	}
	if updated > 0 {
		s.invalidate(ctx)
		s.log.Info("refreshed movie details", "updated", updated, "candidates", len(movies))
	}
	return updated, nil
}

// posterURL resolves the poster of a movie, mirroring it when a poster
// store is configured.  Mirror failures keep the movie database URL.
func (s *MovieService) posterURL(ctx context.Context, title string, externalID int64, path string) string {
	src := s.lookup.PosterURL(path)
	if src == "" || s.posters == nil {
		return src
	}
	mirrored, err := s.posters.Mirror(ctx, src, title, externalID)
	if err != nil {
		s.log.Warn("poster mirror failed", "external_id", externalID, "error", err)
		return src
	}
	return mirrored
}

func (s *MovieService) afterChange(ctx context.Context, ev queue.MovieEvent) {
	s.invalidate(ctx)
	if s.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.events.Publish(pctx, ev); err != nil {
		s.log.Warn("publish movie event failed", "type", ev.Type, "error", err)
	}
}

func (s *MovieService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("response cache invalidation failed", "error", err)
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
