// Package movies is the movie service endpoint catalogue, served through the query cache.
package movies

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/alt-project/flixctl/internal/domain"
	"github.com/alt-project/flixctl/internal/gateway"
	"github.com/alt-project/flixctl/internal/querycache"
	"github.com/alt-project/flixctl/internal/sanitize"
	"github.com/alt-project/flixctl/internal/validate"
)

// Cache tags.
const (
	TagMoviesAPI     querycache.Tag = "Movies-API"
	TagAllMovies     querycache.Tag = "All-Movies"
	TagSingleMovie   querycache.Tag = "Single-Movie"
	TagFeatureMovies querycache.Tag = "Feature-Movies"
	TagFeatureSlide  querycache.Tag = "Feature-Movies-Slide"
	TagGenres        querycache.Tag = "Genres"
)

// Genre ids used by the featured rows.
const (
	GenreDrama   = 1
	GenreAction  = 3
	GenreMystery = 6
)

const featuredLimit = 5

// API is the transport the service sends requests through.
type API interface {
	Do(ctx context.Context, req gateway.Request) ([]byte, error)
	UploadImage(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
}

// Service exposes typed queries and mutations over the movie service.
type Service struct {
	api       API
	cache     *querycache.Cache
	sanitizer *sanitize.Sanitizer
	logger    *slog.Logger
}

// NewService creates a service.
func NewService(api API, cache *querycache.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		api:       api,
		cache:     cache,
		sanitizer: sanitize.New(),
		logger:    logger,
	}
}

// query runs a cached GET and decodes the payload into out.
func (s *Service) query(ctx context.Context, key querycache.Key, tags []querycache.Tag, out any) error {
	data, err := s.cache.Query(ctx, key, tags, func(ctx context.Context) ([]byte, error) {
		return s.api.Do(ctx, gateway.Request{Method: http.MethodGet, Path: key.String()})
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s: %w", key.Endpoint, err)
	}
	return nil
}

// mutate sends a request through the cache's mutation path and decodes the result.
func (s *Service) mutate(ctx context.Context, req gateway.Request, tags []querycache.Tag) (*domain.MutationResult, error) {
	data, err := s.cache.Mutate(ctx, tags, func(ctx context.Context) ([]byte, error) {
		return s.api.Do(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	result := &domain.MutationResult{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			s.logger.DebugContext(ctx, "mutation response not decodable", "path", req.Path, "error", err)
		}
	}
	return result, nil
}

func (s *Service) moviesPage(ctx context.Context, key querycache.Key, tags ...querycache.Tag) (*domain.MoviesPage, error) {
	page := &domain.MoviesPage{}
	if err := s.query(ctx, key, tags, page); err != nil {
		return nil, err
	}
	for i := range page.Movies {
		s.clean(&page.Movies[i])
	}
	return page, nil
}

func (s *Service) clean(m *domain.Movie) {
	m.Description = s.sanitizer.Text(m.Description)
	for i := range m.Comments {
		m.Comments[i].Comment = s.sanitizer.Text(m.Comments[i].Comment)
	}
}

// FeatureMovies returns the latest movies shown in the slide.
func (s *Service) FeatureMovies(ctx context.Context) (*domain.MoviesPage, error) {
	return s.moviesPage(ctx, querycache.Key{Endpoint: "/movies/latest"}, TagFeatureSlide)
}

// PopularMovies returns the top rated movies.
func (s *Service) PopularMovies(ctx context.Context) (*domain.MoviesPage, error) {
	key := querycache.Key{Endpoint: "/movies", Params: "order_by=rating&limit=" + strconv.Itoa(featuredLimit)}
	return s.moviesPage(ctx, key, TagFeatureMovies)
}

// GenreMovies returns a short list of movies in one genre.
func (s *Service) GenreMovies(ctx context.Context, genreID int) (*domain.MoviesPage, error) {
	key := querycache.Key{
		Endpoint: "/movies/genre/" + strconv.Itoa(genreID),
		Params:   "limit=" + strconv.Itoa(featuredLimit),
	}
	return s.moviesPage(ctx, key, TagFeatureMovies)
}

// ActionMovies returns the action row.
func (s *Service) ActionMovies(ctx context.Context) (*domain.MoviesPage, error) {
	return s.GenreMovies(ctx, GenreAction)
}

// DramaMovies returns the drama row.
func (s *Service) DramaMovies(ctx context.Context) (*domain.MoviesPage, error) {
	return s.GenreMovies(ctx, GenreDrama)
}

// MysteryMovies returns the mystery row.
func (s *Service) MysteryMovies(ctx context.Context) (*domain.MoviesPage, error) {
	return s.GenreMovies(ctx, GenreMystery)
}

// Featured is everything the landing page shows.
type Featured struct {
	Latest  *domain.MoviesPage
	Popular *domain.MoviesPage
	Action  *domain.MoviesPage
	Drama   *domain.MoviesPage
	Mystery *domain.MoviesPage
}

// Featured loads the five feature rows concurrently. The first failure cancels the rest.
func (s *Service) Featured(ctx context.Context) (*Featured, error) {
	out := &Featured{}
	g, ctx := errgroup.WithContext(ctx)

	load := func(dst **domain.MoviesPage, fn func(context.Context) (*domain.MoviesPage, error)) {
		g.Go(func() error {
			page, err := fn(ctx)
			if err != nil {
				return err
			}
			*dst = page
			return nil
		})
	}
	load(&out.Latest, s.FeatureMovies)
	load(&out.Popular, s.PopularMovies)
	load(&out.Action, s.ActionMovies)
	load(&out.Drama, s.DramaMovies)
	load(&out.Mystery, s.MysteryMovies)

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FilteredMovies returns one page of the catalogue listing.
func (s *Service) FilteredMovies(ctx context.Context, filter MovieFilter) (*domain.MoviesPage, error) {
	return s.moviesPage(ctx, querycache.Key{Endpoint: "/movies", Params: filter.Query()}, TagAllMovies)
}

// SingleMovie returns one movie with its comments.
func (s *Service) SingleMovie(ctx context.Context, id int) (*domain.Movie, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: movie id must be positive", domain.ErrInvalidInput)
	}

	resp := &domain.MovieResponse{}
	key := querycache.Key{Endpoint: "/movie/" + strconv.Itoa(id)}
	if err := s.query(ctx, key, []querycache.Tag{TagSingleMovie}, resp); err != nil {
		return nil, err
	}
	s.clean(&resp.Movie)
	return &resp.Movie, nil
}

// Genres returns every genre.
func (s *Service) Genres(ctx context.Context) ([]domain.Genre, error) {
	resp := &domain.GenresResponse{}
	if err := s.query(ctx, querycache.Key{Endpoint: "/genres"}, []querycache.Tag{TagGenres}, resp); err != nil {
		return nil, err
	}
	return resp.Genres, nil
}

// CreateRating rates a movie.
func (s *Service) CreateRating(ctx context.Context, input domain.RatingInput) (*domain.MutationResult, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return s.mutate(ctx,
		gateway.Request{Method: http.MethodPost, Path: "/rating/add", Body: input},
		[]querycache.Tag{TagSingleMovie, TagAllMovies, TagFeatureMovies})
}

// ManageFavorite toggles a movie in the user's favorites.
func (s *Service) ManageFavorite(ctx context.Context, id int) (*domain.MutationResult, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: movie id must be positive", domain.ErrInvalidInput)
	}
	return s.mutate(ctx,
		gateway.Request{Method: http.MethodGet, Path: "/favorite/" + strconv.Itoa(id)},
		[]querycache.Tag{TagSingleMovie, TagAllMovies, TagFeatureMovies})
}

// AddComment posts a comment. Markup is stripped before sending.
func (s *Service) AddComment(ctx context.Context, input domain.CommentInput) (*domain.MutationResult, error) {
	input.Comment = s.sanitizer.Comment(input.Comment)
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return s.mutate(ctx,
		gateway.Request{Method: http.MethodPost, Path: "/movie/comments/add", Body: input},
		[]querycache.Tag{TagSingleMovie, TagAllMovies})
}

// AddMovie creates a movie. The payload is validated locally first.
func (s *Service) AddMovie(ctx context.Context, input domain.MovieInput) (*domain.MutationResult, error) {
	if err := ValidateMovieInput(input); err != nil {
		return nil, err
	}
	return s.mutate(ctx,
		gateway.Request{Method: http.MethodPost, Path: "/admin/movie/add", Body: input},
		[]querycache.Tag{TagSingleMovie, TagAllMovies})
}

// DeleteMovie removes a movie.
func (s *Service) DeleteMovie(ctx context.Context, id int) (*domain.MutationResult, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: movie id must be positive", domain.ErrInvalidInput)
	}
	return s.mutate(ctx,
		gateway.Request{Method: http.MethodGet, Path: "/admin/movie/delete/" + strconv.Itoa(id)},
		[]querycache.Tag{TagMoviesAPI, TagAllMovies, TagSingleMovie, TagFeatureMovies, TagFeatureSlide})
}

// UploadImage uploads a poster and returns its image id. It is not cached.
func (s *Service) UploadImage(ctx context.Context, file validate.ImageFile, r io.Reader) (string, error) {
	if res := validate.Image(&file); !res.Valid {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidInput, res.Message)
	}
	return s.api.UploadImage(ctx, file.Name, file.ContentType, r)
}

// ValidateMovieInput checks an admin payload with both the struct rules and the field validators.
func ValidateMovieInput(input domain.MovieInput) error {
	if err := validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	checks := []validate.Result{validate.Title(input.Title)}

	year, err := strconv.Atoi(input.Year)
	if err != nil {
		return fmt.Errorf("%w: year must be numeric", domain.ErrInvalidInput)
	}
	checks = append(checks, validate.MovieYear(year))

	runtime, err := strconv.Atoi(input.Runtime)
	if err != nil {
		return fmt.Errorf("%w: runtime must be numeric", domain.ErrInvalidInput)
	}
	checks = append(checks, validate.Runtime(runtime))

	for _, res := range checks {
		if !res.Valid {
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, res.Message)
		}
	}
	return nil
}

// MovieFilter selects a page of the catalogue.
type MovieFilter struct {
	Limit   int
	Page    int
	Search  string
	Genre   string
	Year    string
	OrderBy string
}

// Query renders the filter in the fixed order limit, page, s, genre, year, order_by.
// Limit defaults to 10 and page to 1. Empty optional fields are omitted.
func (f MovieFilter) Query() string {
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}

	q := "limit=" + strconv.Itoa(limit) + "&page=" + strconv.Itoa(page)
	for _, p := range []struct{ name, value string }{
		{"s", f.Search},
		{"genre", f.Genre},
		{"year", f.Year},
		{"order_by", f.OrderBy},
	} {
		if p.value != "" {
			q += "&" + p.name + "=" + url.QueryEscape(p.value)
		}
	}
	return q
}
