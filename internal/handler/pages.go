package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/top-movies/internal/service"
	"github.com/iliyamo/top-movies/internal/view"
)

// csrfContextKey is where echo's CSRF middleware stores the form token.
const csrfContextKey = "csrf"

// lookupTimeout bounds requests that call the movie database.
const lookupTimeout = 15 * time.Second

// PageHandler serves the server-rendered pages.
type PageHandler struct {
	Movies *service.MovieService
	Log    hclog.Logger
}

// NewPageHandler constructs a PageHandler.
func NewPageHandler(movies *service.MovieService, logger hclog.Logger) *PageHandler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &PageHandler{Movies: movies, Log: logger.Named("pages")}
}

type addForm struct {
	Title string `form:"title" validate:"required,max=250"`
}

type editForm struct {
	Rating string `form:"rating" validate:"required"`
	Review string `form:"review" validate:"max=250"`
}

// Home lists every movie, best ranked last.
func (h *PageHandler) Home(c echo.Context) error {
	movies, err := h.Movies.List(c.Request().Context())
	if err != nil {
		return h.renderError(c, err)
	}
	return c.Render(http.StatusOK, view.PageIndex, view.Page{Movies: movies})
}

// AddForm shows the title search form.
func (h *PageHandler) AddForm(c echo.Context) error {
	return c.Render(http.StatusOK, view.PageAdd, view.Page{Title: "Add Movie", CSRF: csrfToken(c)})
}

// AddSubmit searches the movie database and lists the candidates.
func (h *PageHandler) AddSubmit(c echo.Context) error {
	var form addForm
	if err := c.Bind(&form); err != nil {
		return h.renderStatus(c, http.StatusBadRequest, "invalid form")
	}
	form.Title = strings.TrimSpace(form.Title)
	if err := c.Validate(&form); err != nil {
		return c.Render(http.StatusBadRequest, view.PageAdd, view.Page{
			Title:  "Add Movie",
			CSRF:   csrfToken(c),
			Query:  form.Title,
			Errors: fieldErrors(err),
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), lookupTimeout)
	defer cancel()
	results, err := h.Movies.Search(ctx, form.Title)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.Render(http.StatusOK, view.PageSelect, view.Page{
		Title:   "Select Movie",
		Query:   form.Title,
		Results: results,
	})
}

// SelectMovie stores the chosen movie database entry and continues to the
// rating form.
func (h *PageHandler) SelectMovie(c echo.Context) error {
	externalID, err := parseExternalID(c.QueryParam("id"))
	if err != nil {
		return h.renderError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), lookupTimeout)
	defer cancel()
	m, err := h.Movies.AddFromExternal(ctx, externalID)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.Redirect(http.StatusSeeOther, "/edit?id="+strconv.FormatUint(m.ID, 10))
}

// EditForm shows the rating form of one movie.
func (h *PageHandler) EditForm(c echo.Context) error {
	id, err := parseID(c.QueryParam("id"))
	if err != nil {
		return h.renderError(c, err)
	}
	m, err := h.Movies.Get(c.Request().Context(), id)
	if err != nil {
		return h.renderError(c, err)
	}
	form := view.EditForm{}
	if m.Rating != nil {
		form.Rating = strconv.FormatFloat(*m.Rating, 'f', -1, 64)
	}
	if m.Review != nil {
		form.Review = *m.Review
	}
	return c.Render(http.StatusOK, view.PageEdit, view.Page{
		Title: m.Title,
		CSRF:  csrfToken(c),
		Movie: m,
		Form:  form,
	})
}

// EditSubmit validates and stores the rating and review.
func (h *PageHandler) EditSubmit(c echo.Context) error {
	id, err := parseID(c.QueryParam("id"))
	if err != nil {
		return h.renderError(c, err)
	}
	ctx := c.Request().Context()
	m, err := h.Movies.Get(ctx, id)
	if err != nil {
		return h.renderError(c, err)
	}

	var form editForm
	if err := c.Bind(&form); err != nil {
		return h.renderStatus(c, http.StatusBadRequest, "invalid form")
	}
	form.Rating = strings.TrimSpace(form.Rating)
	invalid := func(errs map[string]string) error {
		return c.Render(http.StatusBadRequest, view.PageEdit, view.Page{
			Title:  m.Title,
			CSRF:   csrfToken(c),
			Movie:  m,
			Form:   view.EditForm{Rating: form.Rating, Review: form.Review},
			Errors: errs,
		})
	}
	if err := c.Validate(&form); err != nil {
		return invalid(fieldErrors(err))
	}
	rating, err := parseRating(form.Rating)
	if err != nil {
		return invalid(map[string]string{"rating": "Must be a number."})
	}

	if _, err := h.Movies.Rate(ctx, id, rating, form.Review); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRating):
			return invalid(map[string]string{"rating": "Rating must be between 0 and 10."})
		case errors.Is(err, service.ErrReviewTooLong):
			return invalid(map[string]string{"review": err.Error()})
		}
		return h.renderError(c, err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// parseRating accepts decimal numbers such as "7", "7.5", ".5" and "7.".
func parseRating(s string) (float64, error) {
	if strings.ContainsAny(s, "xX_") {
		return 0, service.ErrInvalidRating
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, service.ErrInvalidRating
	}
	return v, nil
}

// Delete removes a movie and returns to the list.
func (h *PageHandler) Delete(c echo.Context) error {
	id, err := parseID(c.QueryParam("id"))
	if err != nil {
		return h.renderError(c, err)
	}
	if err := h.Movies.Delete(c.Request().Context(), id); err != nil {
		return h.renderError(c, err)
	}
	return c.Redirect(http.StatusFound, "/")
}

func (h *PageHandler) renderError(c echo.Context, err error) error {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Log.Error("request failed", "path", c.Path(), "query", c.QueryString(), "error", err)
	}
	return h.renderStatus(c, status, msg)
}

func (h *PageHandler) renderStatus(c echo.Context, status int, msg string) error {
	return c.Render(status, view.PageError, view.Page{
		Title:   http.StatusText(status),
		Status:  status,
		Message: msg,
	})
}

func csrfToken(c echo.Context) string {
	tok, _ := c.Get(csrfContextKey).(string)
	return tok
}
