package router // package router defines how HTTP routes are registered

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/iliyamo/top-movies/internal/config"
	"github.com/iliyamo/top-movies/internal/handler"
	"github.com/iliyamo/top-movies/internal/middleware"
	"github.com/iliyamo/top-movies/internal/service"
)

// Deps carries what the routes need.  Redis and ResponseCache may be nil.
type Deps struct {
	Cfg           config.Config
	RateLimit     config.RateLimitConfig
	Log           hclog.Logger
	DB            *gorm.DB
	Redis         *redis.Client
	ResponseCache *middleware.ResponseCache
	Movies        *service.MovieService
	Renderer      echo.Renderer
}

// New builds the Echo instance with global middleware and every route.
func New(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = hclog.NewNullLogger()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = d.Renderer
	e.Validator = handler.NewValidator()
	e.IPExtractor = ipExtractor(d.Cfg.TrustedProxies, d.Log)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log))

	// routes that call the movie database share a smaller bucket
	lookupLimit := middleware.NewTokenBucket(d.RateLimit.Lookup(), d.Redis, d.Log)
	api := handler.NewAPIHandler(d.Movies, d.Log)

	RegisterRoutes(e, d)
	RegisterPages(e, handler.NewPageHandler(d.Movies, d.Log), d.Cfg, lookupLimit)
	RegisterAPI(e, api, d.ResponseCache, lookupLimit)
	if d.Cfg.APIWritesEnabled() {
		RegisterAuth(e, handler.NewAuthHandler(d.Cfg), api, d.Cfg.JWTSecret, lookupLimit)
	} else {
		d.Log.Info("JSON write API disabled; set JWT_SECRET and ADMIN_PASSWORD_HASH to enable it")
	}
	return e
}

// ipExtractor reads the client address from the connection unless trusted
// proxies are configured, in which case X-Forwarded-For is honoured for
// requests arriving from those proxies only.
func ipExtractor(proxies []string, log hclog.Logger) echo.IPExtractor {
	if len(proxies) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, p := range proxies {
		if !strings.Contains(p, "/") {
			if ip := net.ParseIP(p); ip != nil && ip.To4() == nil {
				p += "/128"
			} else {
				p += "/32"
			}
		}
		_, ipNet, err := net.ParseCIDR(p)
		if err != nil {
			log.Warn("ignoring invalid trusted proxy", "value", p, "error", err)
			continue
		}
		opts = append(opts, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

// RegisterRoutes registers routes that do not belong to a feature group.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
}

// RegisterPages registers the HTML pages.  Forms carry a CSRF token in the
// csrf_token field.
func RegisterPages(e *echo.Echo, p *handler.PageHandler, cfg config.Config, lookupLimit echo.MiddlewareFunc) {
	csrf := echomw.CSRFWithConfig(echomw.CSRFConfig{
		TokenLookup:    "form:csrf_token",
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   !cfg.IsDev(),
		CookieSameSite: http.SameSiteLaxMode,
	})

	e.GET("/", p.Home, csrf)
	e.GET("/add", p.AddForm, csrf)
	e.POST("/add", p.AddSubmit, csrf, lookupLimit)
	// Search results link here with GET; a POST is accepted for forms.
	e.GET("/select_movie", p.SelectMovie, csrf, lookupLimit)
	e.POST("/select_movie", p.SelectMovie, csrf, lookupLimit)
	e.GET("/edit", p.EditForm, csrf)
	e.POST("/edit", p.EditSubmit, csrf)
	e.GET("/delete", p.Delete, csrf)
}

// RegisterAPI registers the public read endpoints of the JSON API.  The
// movie list is served through the Redis response cache.
func RegisterAPI(e *echo.Echo, a *handler.APIHandler, rc *middleware.ResponseCache, lookupLimit echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/movies", a.ListMovies, rc.Middleware())
	g.GET("/movies/:id", a.GetMovie)
	g.GET("/search", a.Search, lookupLimit)
}

// RegisterAuth registers the login endpoint and the write endpoints that
// require an owner access token.
func RegisterAuth(e *echo.Echo, auth *handler.AuthHandler, a *handler.APIHandler, jwtSecret string, lookupLimit echo.MiddlewareFunc) {
	e.POST("/v1/auth/login", auth.Login)

	owner := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.RequireRole(middleware.RoleOwner)}
	e.POST("/v1/movies", a.CreateMovie, append(owner, lookupLimit)...)
	e.PATCH("/v1/movies/:id", a.UpdateMovie, owner...)
	e.DELETE("/v1/movies/:id", a.DeleteMovie, owner...)
}
