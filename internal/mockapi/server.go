// Package mockapi is an in-memory implementation of the movie service REST contract.
// It backs local development (flixctl mock-api) and the HTTP tests.
package mockapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/alt-project/flixctl/internal/domain"
	"github.com/alt-project/flixctl/internal/token"
)

// Seeded accounts.
const (
	AdminEmail    = "admin@movieflix.dev"
	AdminPassword = "Admin123!"
	ViewerEmail   = "jane@movieflix.dev"
	ViewerPass    = "Viewer123!"
)

// Config holds mock service settings.
type Config struct {
	Secret   string
	TokenTTL time.Duration
	// PasswordCost is the bcrypt cost. Tests use bcrypt.MinCost.
	PasswordCost int
	// Seed loads the demo catalogue and accounts.
	Seed  bool
	Clock func() time.Time
}

// Server serves the mock REST API.
type Server struct {
	echo   *echo.Echo
	store  *store
	issuer *token.Issuer
	logger *slog.Logger

	mu   sync.Mutex
	hits map[string]int
}

// New builds a server with its routes registered.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Secret == "" {
		cfg.Secret = "flixctl-mock-secret"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.PasswordCost == 0 {
		cfg.PasswordCost = bcrypt.DefaultCost
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	issuer := token.NewIssuer(token.IssuerConfig{Secret: cfg.Secret, Issuer: "movieflix-mock", TTL: cfg.TokenTTL})
	if cfg.Clock != nil {
		issuer = issuer.WithClock(cfg.Clock)
	}

	s := &Server{
		store:  newStore(cfg.PasswordCost, now),
		issuer: issuer,
		logger: logger,
		hits:   make(map[string]int),
	}
	if cfg.Seed {
		if err := s.seed(); err != nil {
			return nil, fmt.Errorf("seeding mock catalogue: %w", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.DebugContext(c.Request().Context(), "mock request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds())
			return nil
		},
	}))
	e.Use(s.countRequests)

	s.routes(e)
	s.echo = e
	return s, nil
}

func (s *Server) routes(e *echo.Echo) {
	e.POST("/user/login/", s.handleLogin)
	e.POST("/user/signup/", s.handleSignup)

	e.GET("/movies/latest", s.handleLatest, s.optionalAuth)
	e.GET("/movies", s.handleList, s.optionalAuth)
	e.GET("/movies/genre/:id", s.handleGenreMovies, s.optionalAuth)
	e.GET("/movie/:id", s.handleMovie, s.optionalAuth)
	e.GET("/genres", s.handleGenres)

	e.POST("/rating/add", s.handleRate, s.requireAuth)
	e.GET("/favorite/:id", s.handleFavorite, s.requireAuth)
	e.POST("/movie/comments/add", s.handleComment, s.requireAuth)
	e.POST("/images/upload", s.handleUpload, s.requireAuth, s.requireAdmin)

	admin := e.Group("/admin", s.requireAuth, s.requireAdmin)
	admin.POST("/movie/add", s.handleAddMovie)
	admin.GET("/movie/delete/:id", s.handleDeleteMovie)
}

// ServeHTTP lets the server run under httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting mock movie service", "address", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Requests returns how many requests reached path.
func (s *Server) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// IssueToken signs a token for an arbitrary principal.
func (s *Server) IssueToken(subject, name string, role domain.Role) (string, error) {
	return s.issuer.Issue(subject, name, role)
}

func (s *Server) countRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		s.hits[c.Request().URL.Path]++
		s.mu.Unlock()
		return next(c)
	}
}

// errorHandler renders echo errors in the service's {"message"} shape.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := "Internal server error."
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(status)
		}
	} else {
		s.logger.ErrorContext(c.Request().Context(), "mock handler failed", "error", err)
	}

	if err := c.JSON(status, map[string]string{"message": msg}); err != nil {
		s.logger.ErrorContext(c.Request().Context(), "failed to write error response", "error", err)
	}
}

func (s *Server) seed() error {
	for _, g := range []string{"Drama", "Comedy", "Action", "Horror", "Romance", "Mystery", "Sci-Fi"} {
		s.store.addGenre(g)
	}

	if _, err := s.store.addUser("Site Admin", AdminEmail, AdminPassword, domain.RoleAdmin); err != nil {
		return err
	}
	if _, err := s.store.addUser("Jane Viewer", ViewerEmail, ViewerPass, domain.RoleStandard); err != nil {
		return err
	}

	catalogue := []domain.MovieInput{
		{Title: "Heat", Description: "A heist crew and the detective hunting them.", Runtime: "170", ReleaseDate: "1995-12-15", Genres: map[string]string{"1": "Drama", "3": "Action"}, Year: "1995"},
		{Title: "Se7en", Description: "Two detectives track a killer.", Runtime: "127", ReleaseDate: "1995-09-22", Genres: map[string]string{"6": "Mystery", "1": "Drama"}, Year: "1995"},
		{Title: "Mad Max: Fury Road", Description: "A chase across the wasteland.", Runtime: "120", ReleaseDate: "2015-05-15", Genres: map[string]string{"3": "Action", "7": "Sci-Fi"}, Year: "2015"},
		{Title: "Knives Out", Description: "A detective investigates a family.", Runtime: "130", ReleaseDate: "2019-11-27", Genres: map[string]string{"6": "Mystery", "2": "Comedy"}, Year: "2019"},
		{Title: "Whiplash", Description: "A drummer and his instructor.", Runtime: "106", ReleaseDate: "2014-10-10", Genres: map[string]string{"1": "Drama"}, Year: "2014"},
		{Title: "Arrival", Description: "A linguist meets visitors.", Runtime: "116", ReleaseDate: "2016-11-11", Genres: map[string]string{"7": "Sci-Fi", "1": "Drama"}, Year: "2016"},
	}
	for _, in := range catalogue {
		in.ImageID = s.store.addImage(in.Title + ".jpg")
		if _, err := s.store.addMovie(in); err != nil {
			return err
		}
	}
	return nil
}
