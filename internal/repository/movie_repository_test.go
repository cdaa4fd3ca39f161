package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/iliyamo/top-movies/internal/model"
)

func newTestRepo(t *testing.T) *MovieRepo {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, Migrate(db))
	return NewMovieRepo(db)
}

func addMovie(t *testing.T, r *MovieRepo, title string) *model.Movie {
	t.Helper()
	m := &model.Movie{Title: title, Year: "1999", Description: "d", ImgURL: "http://img/" + title}
	require.NoError(t, r.Create(context.Background(), m))
	return m
}

func ptr[T any](v T) *T { return &v }

func TestRank(t *testing.T) {
	movies := []model.Movie{
		{ID: 1, Title: "a", Rating: ptr(7.5)},
		{ID: 2, Title: "b"},
		{ID: 3, Title: "c", Rating: ptr(9.0)},
		{ID: 4, Title: "d", Rating: ptr(7.5)},
	}

	Rank(movies)

	var order []uint64
	var ranks []int
	for _, m := range movies {
		order = append(order, m.ID)
		ranks = append(ranks, *m.Ranking)
	}
	assert.Equal(t, []uint64{2, 1, 4, 3}, order)
	assert.Equal(t, []int{4, 3, 2, 1}, ranks)
}

func TestRankEmpty(t *testing.T) {
	var movies []model.Movie
	Rank(movies)
	assert.Empty(t, movies)
}

func TestCreateThenListRanked(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	first := addMovie(t, r, "Phone Booth")
	second := addMovie(t, r, "Avatar")
	assert.NotZero(t, first.ID)
	assert.Nil(t, first.Rating)

	_, err := r.UpdateReview(ctx, first.ID, 7.3, "My favourite character was the caller.")
	require.NoError(t, err)
	_, err = r.UpdateReview(ctx, second.ID, 8.1, "Looks great")
	require.NoError(t, err)

	movies, err := r.ListRanked(ctx)
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "Phone Booth", movies[0].Title)
	assert.Equal(t, 2, *movies[0].Ranking)
	assert.Equal(t, "Avatar", movies[1].Title)
	assert.Equal(t, 1, *movies[1].Ranking)

	stored, err := r.GetByID(ctx, second.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Ranking)
	assert.Equal(t, 1, *stored.Ranking)
}

func TestCreateDuplicateTitle(t *testing.T) {
	r := newTestRepo(t)
	addMovie(t, r, "Heat")

	err := r.Create(context.Background(), &model.Movie{Title: "Heat"})
	assert.ErrorIs(t, err, ErrDuplicateTitle)
}

func TestCreateClearsRatingFields(t *testing.T) {
	r := newTestRepo(t)
	m := &model.Movie{Title: "Alien", Rating: ptr(10.0), Review: ptr("x"), Ranking: ptr(1)}

	require.NoError(t, r.Create(context.Background(), m))

	stored, err := r.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Rating)
	assert.Nil(t, stored.Review)
	assert.Nil(t, stored.Ranking)
}

func TestUpdateReviewPersists(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	m := addMovie(t, r, "Drive")

	updated, err := r.UpdateReview(ctx, m.ID, 6.5, "quiet")
	require.NoError(t, err)
	assert.Equal(t, 6.5, *updated.Rating)

	stored, err := r.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.5, *stored.Rating)
	assert.Equal(t, "quiet", *stored.Review)
	assert.Equal(t, "Drive", stored.Title)
}

func TestUpdateReviewUnknownID(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.UpdateReview(context.Background(), 42, 5, "")
	assert.ErrorIs(t, err, ErrMovieNotFound)
}

func TestDelete(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	m := addMovie(t, r, "Memento")

	require.NoError(t, r.Delete(ctx, m.ID))

	_, err := r.GetByID(ctx, m.ID)
	assert.ErrorIs(t, err, ErrMovieNotFound)
	assert.ErrorIs(t, r.Delete(ctx, m.ID), ErrMovieNotFound)

	movies, err := r.ListRanked(ctx)
	require.NoError(t, err)
	assert.Empty(t, movies)
}

func TestGetByTitle(t *testing.T) {
	r := newTestRepo(t)
	addMovie(t, r, "Up")

	m, err := r.GetByTitle(context.Background(), "Up")
	require.NoError(t, err)
	assert.Equal(t, "Up", m.Title)

	_, err = r.GetByTitle(context.Background(), "Down")
	assert.ErrorIs(t, err, ErrMovieNotFound)
}

func TestListIncompleteAndUpdateDetails(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	complete := &model.Movie{Title: "Complete", ExternalID: 1, Description: "d", ImgURL: "u"}
	noPoster := &model.Movie{Title: "No poster", ExternalID: 2, Description: "d"}
	manual := &model.Movie{Title: "Manual"}
	for _, m := range []*model.Movie{complete, noPoster, manual} {
		require.NoError(t, r.Create(ctx, m))
	}

	movies, err := r.ListIncomplete(ctx, 10)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, noPoster.ID, movies[0].ID)

	require.NoError(t, r.UpdateDetails(ctx, noPoster.ID, "2001", "d2", "http://img"))
	movies, err = r.ListIncomplete(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, movies)

	assert.ErrorIs(t, r.UpdateDetails(ctx, 999, "", "", ""), ErrMovieNotFound)
}

// newMockRepo backs a MovieRepo with go-sqlmock for failure paths.
func newMockRepo(t *testing.T) (*MovieRepo, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewMovieRepo(db), mock
}

func TestListRankedPropagatesQueryError(t *testing.T) {
	r, mock := newMockRepo(t)
	boom := errors.New("connection reset")
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "movies"`).WillReturnError(boom)
	mock.ExpectRollback()

	_, err := r.ListRanked(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDPropagatesQueryError(t *testing.T) {
	r, mock := newMockRepo(t)
	boom := errors.New("timeout")
	mock.ExpectQuery(`SELECT \* FROM "movies" WHERE id = \$1`).WillReturnError(boom)

	_, err := r.GetByID(context.Background(), 1)

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrMovieNotFound)
}
