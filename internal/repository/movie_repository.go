// Package repository contains data access logic separated from HTTP handlers.
// This file defines the movie repository: list-all with ranking recompute,
// insert, rating/review update and delete over the single movies table.
package repository

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"gorm.io/gorm"

	"github.com/iliyamo/top-movies/internal/model"
)

// MovieRepo encapsulates all database queries related to movies.  It
// depends on a GORM handle which should be configured elsewhere.
type MovieRepo struct {
	db *gorm.DB
}

// NewMovieRepo constructs a MovieRepo with the provided DB handle.
func NewMovieRepo(db *gorm.DB) *MovieRepo {
	return &MovieRepo{db: db}
}

// Migrate creates or updates the movies table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Movie{})
}

// Rank orders movies by rating ascending (unrated first, ties by id) and
// assigns each one its ranking: the last, best-rated movie gets 1.  The
// slice is sorted in place.
func Rank(movies []model.Movie) {
	slices.SortStableFunc(movies, func(a, b model.Movie) int {
		switch {
		case a.Rating == nil && b.Rating != nil:
			return -1
		case a.Rating != nil && b.Rating == nil:
			return 1
		case a.Rating != nil && b.Rating != nil && *a.Rating != *b.Rating:
			return cmp.Compare(*a.Rating, *b.Rating)
		}
		return cmp.Compare(a.ID, b.ID)
	})
	n := len(movies)
	for i := range movies {
		rank := n - i
		movies[i].Ranking = &rank
	}
}

// ListRanked returns every movie in ranking order (see Rank) and persists
// the recomputed rankings.  Only rows whose ranking changed are written.
func (r *MovieRepo) ListRanked(ctx context.Context) ([]model.Movie, error) {
	var movies []model.Movie
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("id").Find(&movies).Error; err != nil {
			return err
		}
		before := make(map[uint64]int, len(movies))
		for _, m := range movies {
			if m.Ranking != nil {
				before[m.ID] = *m.Ranking
			}
		}
		Rank(movies)
		for _, m := range movies {
			if old, ok := before[m.ID]; ok && old == *m.Ranking {
				continue
			}
			if err := tx.Model(&model.Movie{}).Where("id = ?", m.ID).
				UpdateColumn("ranking", *m.Ranking).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movies, nil
}

// GetByID fetches a movie by its id.  It returns ErrMovieNotFound if no
// row is found.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	var m model.Movie
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetByTitle fetches a movie by its exact title.
func (r *MovieRepo) GetByTitle(ctx context.Context, title string) (*model.Movie, error) {
	var m model.Movie
	if err := r.db.WithContext(ctx).First(&m, "title = ?", title).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Create inserts a new movie.  On success the movie's ID field is
// populated with the generated value.  Rating, ranking and review are
// stored as NULL regardless of what the caller set.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	m.Rating, m.Ranking, m.Review = nil, nil, nil
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Movie{}).Where("title = ?", m.Title).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateTitle
		}
		if err := tx.Create(m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateTitle
			}
			return err
		}
		return nil
	})
}

// UpdateReview sets the rating/review pair of a movie and returns the
// updated row.  Concurrent updates are not coordinated: the last writer wins.
func (r *MovieRepo) UpdateReview(ctx context.Context, id uint64, rating float64, review string) (*model.Movie, error) {
	var m model.Movie
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMovieNotFound
			}
			return err
		}
		m.Rating = &rating
		m.Review = &review
		return tx.Model(&m).Select("rating", "review").Updates(&m).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateDetails refreshes the movie database fields of a movie.
func (r *MovieRepo) UpdateDetails(ctx context.Context, id uint64, year, description, imgURL string) error {
	res := r.db.WithContext(ctx).Model(&model.Movie{}).Where("id = ?", id).
		Updates(map[string]any{"year": year, "description": description, "img_url": imgURL})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMovieNotFound
	}
	return nil
}

// Delete removes a movie by id.  It returns ErrMovieNotFound when no row
// was removed.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Delete(&model.Movie{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMovieNotFound
	}
	return nil
}

// ListIncomplete returns up to limit movies created from the movie
// database that still lack a poster or a description.
func (r *MovieRepo) ListIncomplete(ctx context.Context, limit int) ([]model.Movie, error) {
	var movies []model.Movie
	err := r.db.WithContext(ctx).
		Where("external_id <> 0 AND (img_url = '' OR description = '')").
		Order("id").Limit(limit).Find(&movies).Error
	if err != nil {
		return nil, err
	}
	return movies, nil
}
