package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/iliyamo/top-movies/internal/repository"
	"github.com/iliyamo/top-movies/internal/service"
	"github.com/iliyamo/top-movies/internal/tmdb"
)

var errInvalidID = errors.New("a valid numeric id is required")

// statusFor maps a service error to an HTTP status and a message safe to
// show to the user.  Unknown errors map to 500.
func statusFor(err error) (int, string) {
	var se *tmdb.StatusError
	switch {
	case errors.Is(err, errInvalidID):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, repository.ErrMovieNotFound):
		return http.StatusNotFound, "movie not found"
	case errors.Is(err, repository.ErrDuplicateTitle):
		return http.StatusConflict, "this movie is already on the list"
	case errors.Is(err, service.ErrEmptyQuery),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrReviewTooLong):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &se) && se.StatusCode < http.StatusBadRequest:
		return http.StatusBadGateway, "unexpected answer from the movie database"
	case errors.As(err, &se):
		return se.StatusCode, fmt.Sprintf("the movie database answered %d %s", se.StatusCode, http.StatusText(se.StatusCode))
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "the request timed out"
	default:
		return http.StatusInternalServerError, "something went wrong"
	}
}

// parseID parses a positive integer id.
func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// parseExternalID parses a positive movie database id.
func parseExternalID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}
