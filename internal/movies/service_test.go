package movies

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alt-project/flixctl/internal/domain"
	"github.com/alt-project/flixctl/internal/gateway"
	"github.com/alt-project/flixctl/internal/mockapi"
	"github.com/alt-project/flixctl/internal/querycache"
	"github.com/alt-project/flixctl/internal/validate"
)

type harness struct {
	svc   *Service
	api   *mockapi.Server
	cache *querycache.Cache
	token string
}

func newHarness(t *testing.T, role domain.Role) *harness {
	t.Helper()
	api, err := mockapi.New(mockapi.Config{Seed: true, PasswordCost: bcrypt.MinCost}, nil)
	require.NoError(t, err)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	h := &harness{api: api}
	if role != "" {
		subject := "2"
		if role == domain.RoleAdmin {
			subject = "1"
		}
		h.token, err = api.IssueToken(subject, "Jane Viewer", role)
		require.NoError(t, err)
	}

	client, err := gateway.New(gateway.Config{BaseURL: srv.URL}, func(context.Context) string { return h.token }, nil)
	require.NoError(t, err)
	h.cache, err = querycache.New(querycache.Config{}, nil)
	require.NoError(t, err)
	h.svc = NewService(client, h.cache, nil)
	return h
}

func TestMovieFilter_Query(t *testing.T) {
	tests := []struct {
		name   string
		filter MovieFilter
		want   string
	}{
		{"defaults", MovieFilter{}, "limit=10&page=1"},
		{"fixed order", MovieFilter{OrderBy: "rating", Year: "1995", Genre: "3", Search: "heat", Page: 2, Limit: 5}, "limit=5&page=2&s=heat&genre=3&year=1995&order_by=rating"},
		{"escaped search", MovieFilter{Search: "mad max"}, "limit=10&page=1&s=mad+max"},
		{"partial", MovieFilter{Genre: "6"}, "limit=10&page=1&genre=6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Query())
		})
	}
}

func TestFeatured_CachesEveryRow(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()

	featured, err := h.svc.Featured(ctx)
	require.NoError(t, err)
	assert.Len(t, featured.Latest.Movies, 5)
	assert.Len(t, featured.Popular.Movies, 5)
	assert.Len(t, featured.Mystery.Movies, 2)
	for _, m := range featured.Action.Movies {
		assert.Contains(t, m.Genres, "3")
	}

	_, err = h.svc.Featured(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, h.api.Requests("/movies/latest"))
	assert.Equal(t, 1, h.api.Requests("/movies"))
	assert.Equal(t, 1, h.api.Requests("/movies/genre/6"))
	assert.Len(t, h.cache.KeysFor(TagFeatureMovies), 4)
}

func TestFilteredMovies_Pagination(t *testing.T) {
	h := newHarness(t, "")

	page, err := h.svc.FilteredMovies(context.Background(), MovieFilter{Limit: 4, Page: 2})
	require.NoError(t, err)

	assert.Len(t, page.Movies, 2)
	assert.Equal(t, 2, page.TotalPages())
	assert.Equal(t, 1, page.PrevPage())
	assert.False(t, page.HasNext())
}

func TestRating_InvalidatesSingleMovie(t *testing.T) {
	h := newHarness(t, domain.RoleStandard)
	ctx := context.Background()

	before, err := h.svc.SingleMovie(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, before.Rating)

	_, err = h.svc.SingleMovie(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 1, h.api.Requests("/movie/2"))

	_, err = h.svc.Genres(ctx)
	require.NoError(t, err)

	_, err = h.svc.CreateRating(ctx, domain.RatingInput{MovieID: 2, Rating: 9})
	require.NoError(t, err)

	after, err := h.svc.SingleMovie(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, h.api.Requests("/movie/2"))
	assert.InDelta(t, 9.0, after.Rating, 0.001)

	_, err = h.svc.Genres(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.api.Requests("/genres"))
}

func TestRating_FailureKeepsCache(t *testing.T) {
	h := newHarness(t, domain.RoleStandard)
	ctx := context.Background()

	_, err := h.svc.CreateRating(ctx, domain.RatingInput{MovieID: 2, Rating: 9})
	require.NoError(t, err)
	_, err = h.svc.SingleMovie(ctx, 2)
	require.NoError(t, err)

	_, err = h.svc.CreateRating(ctx, domain.RatingInput{MovieID: 2, Rating: 3})
	require.Error(t, err)
	assert.Equal(t, "You have already rated this movie.", gateway.MessageOf(err))

	_, err = h.svc.SingleMovie(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, h.api.Requests("/movie/2"))
}

func TestMutation_UnauthorizedSurfaces(t *testing.T) {
	h := newHarness(t, "")

	_, err := h.svc.ManageFavorite(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, gateway.IsUnauthorized(err))
}

func TestAddComment_StripsMarkup(t *testing.T) {
	h := newHarness(t, domain.RoleStandard)
	ctx := context.Background()

	_, err := h.svc.AddComment(ctx, domain.CommentInput{MovieID: 1, Comment: "<b>Loved</b> it"})
	require.NoError(t, err)

	movie, err := h.svc.SingleMovie(ctx, 1)
	require.NoError(t, err)
	require.Len(t, movie.Comments, 1)
	assert.Equal(t, "Loved it", movie.Comments[0].Comment)

	_, err = h.svc.AddComment(ctx, domain.CommentInput{MovieID: 1, Comment: "<script>x</script>"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, h.api.Requests("/movie/comments/add"))
}

func TestAddMovie_ValidatesLocally(t *testing.T) {
	h := newHarness(t, domain.RoleAdmin)
	ctx := context.Background()

	input := domain.MovieInput{
		Title:       "Dune",
		Description: "Spice.",
		Runtime:     "30",
		ReleaseDate: "2021-10-22",
		Genres:      map[string]string{"7": "Sci-Fi"},
		ImageID:     "1",
		Year:        "2021",
	}
	_, err := h.svc.AddMovie(ctx, input)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "Runtime cannot be less than 50.")
	assert.Zero(t, h.api.Requests("/admin/movie/add"))

	input.Runtime = "155"
	result, err := h.svc.AddMovie(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, 7, result.ID)
}

func TestDeleteMovie_InvalidatesEverything(t *testing.T) {
	h := newHarness(t, domain.RoleAdmin)
	ctx := context.Background()

	_, err := h.svc.Featured(ctx)
	require.NoError(t, err)
	_, err = h.svc.SingleMovie(ctx, 6)
	require.NoError(t, err)
	_, err = h.svc.Genres(ctx)
	require.NoError(t, err)

	_, err = h.svc.DeleteMovie(ctx, 6)
	require.NoError(t, err)

	assert.Empty(t, h.cache.KeysFor(TagFeatureSlide))
	assert.Empty(t, h.cache.KeysFor(TagFeatureMovies))
	assert.Empty(t, h.cache.KeysFor(TagSingleMovie))
	assert.Equal(t, []string{"/genres"}, h.cache.KeysFor(TagGenres))

	latest, err := h.svc.FeatureMovies(ctx)
	require.NoError(t, err)
	for _, m := range latest.Movies {
		assert.NotEqual(t, 6, m.ID)
	}

	_, err = h.svc.SingleMovie(ctx, 6)
	require.Error(t, err)
	assert.Equal(t, "Movie not found.", gateway.MessageOf(err))
}

func TestUploadImage(t *testing.T) {
	h := newHarness(t, domain.RoleAdmin)
	ctx := context.Background()

	_, err := h.svc.UploadImage(ctx, validate.ImageFile{Name: "a.gif", ContentType: "image/gif"}, strings.NewReader("gif"))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, h.api.Requests("/images/upload"))

	id, err := h.svc.UploadImage(ctx, validate.ImageFile{Name: "a.png", ContentType: "image/png"}, strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "7", id)
	assert.Zero(t, h.cache.Len())
}

func TestSingleMovie_RejectsBadID(t *testing.T) {
	h := newHarness(t, "")
	_, err := h.svc.SingleMovie(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
