package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/top-movies/internal/service"
)

// APIHandler serves the JSON API under /v1.
type APIHandler struct {
	Movies *service.MovieService
	Log    hclog.Logger
}

// NewAPIHandler constructs an APIHandler.
func NewAPIHandler(movies *service.MovieService, logger hclog.Logger) *APIHandler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &APIHandler{Movies: movies, Log: logger.Named("api")}
}

// ----- DTOs -----

type createMovieReq struct {
	ExternalID int64 `json:"external_id" validate:"required,gt=0"`
}

type updateMovieReq struct {
	Rating *float64 `json:"rating" validate:"required,gte=0,lte=10"`
	Review string   `json:"review" validate:"max=250"`
}

// ListMovies returns every movie in ranking order.
func (h *APIHandler) ListMovies(c echo.Context) error {
	movies, err := h.Movies.List(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": movies})
}

// GetMovie returns one movie.
func (h *APIHandler) GetMovie(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	m, err := h.Movies.Get(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Search proxies a title search to the movie database.
func (h *APIHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	ctx, cancel := context.WithTimeout(c.Request().Context(), lookupTimeout)
	defer cancel()
	results, err := h.Movies.Search(ctx, q)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"query": q, "items": results})
}

// CreateMovie adds a movie from its movie database id.
func (h *APIHandler) CreateMovie(c echo.Context) error {
	var req createMovieReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": fieldErrors(err)})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), lookupTimeout)
	defer cancel()
	m, err := h.Movies.AddFromExternal(ctx, req.ExternalID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// UpdateMovie sets the rating and review of a movie.
func (h *APIHandler) UpdateMovie(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	var req updateMovieReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": fieldErrors(err)})
	}
	m, err := h.Movies.Rate(c.Request().Context(), id, *req.Rating, req.Review)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// DeleteMovie removes a movie.
func (h *APIHandler) DeleteMovie(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.Movies.Delete(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *APIHandler) fail(c echo.Context, err error) error {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Log.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
	}
	return c.JSON(status, echo.Map{"error": msg})
}
