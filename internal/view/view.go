// Package view renders the HTML pages of the site.  Each page is parsed
// together with base.html; the page file defines the "content" block.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"reflect"
	"strconv"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/top-movies/internal/model"
	"github.com/iliyamo/top-movies/internal/tmdb"
)

//go:embed templates/*.html
var embedded embed.FS

// Page names.
const (
	PageIndex  = "index.html"
	PageAdd    = "add.html"
	PageSelect = "select.html"
	PageEdit   = "edit.html"
	PageError  = "error.html"
)

var pages = []string{PageIndex, PageAdd, PageSelect, PageEdit, PageError}

// EditForm holds the raw values of the rating form so they can be shown
// again after a validation error.
type EditForm struct {
	Rating string
	Review string
}

// Page is the data handed to every template.  Handlers fill in the fields
// their page uses.
type Page struct {
	Title   string
	CSRF    string
	Movies  []model.Movie
	Query   string
	Results []tmdb.SearchResult
	Movie   *model.Movie
	Form    EditForm
	Errors  map[string]string
	Status  int
	Message string
}

// Renderer implements echo.Renderer.
type Renderer struct {
	mu    sync.RWMutex
	fsys  fs.FS
	pages map[string]*template.Template
	log   hclog.Logger
}

// New parses the templates embedded in the binary.
func New(logger hclog.Logger) (*Renderer, error) {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, err
	}
	return NewFromFS(sub, logger)
}

// NewFromFS parses the templates found at the root of fsys.
func NewFromFS(fsys fs.FS, logger hclog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	r := &Renderer{fsys: fsys, log: logger.Named("view")}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-parses every page.  On error the previous templates stay in use.
func (r *Renderer) Reload() error {
	parsed := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		t, err := template.New("base.html").Funcs(funcs).ParseFS(r.fsys, "base.html", name)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		parsed[name] = t
	}
	r.mu.Lock()
	r.pages = parsed
	r.mu.Unlock()
	return nil
}

// Render executes page name inside the base layout.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	r.mu.RLock()
	t, ok := r.pages[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "base.html", data)
}

var funcs = template.FuncMap{
	"deref":      deref,
	"rating":     formatRating,
	"statusText": http.StatusText,
}

// deref returns the value a pointer points at, or "" for nil.
func deref(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return ""
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		return rv.Elem().Interface()
	}
	return v
}

func formatRating(r *float64) string {
	if r == nil {
		return "Not rated yet"
	}
	return strconv.FormatFloat(*r, 'f', -1, 64) + "/10"
}
