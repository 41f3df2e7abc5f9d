package domain

import "math"

// Movie is a catalogue entry as returned by the movie service.
type Movie struct {
	ID             int               `json:"id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Year           int               `json:"year"`
	Runtime        int               `json:"runtime"`
	Rating         float64           `json:"rating"`
	Image          string            `json:"image"`
	ReleaseDate    string            `json:"release_date"`
	Genres         map[string]string `json:"genres"`
	IsFavorite     bool              `json:"is_favorite"`
	TotalFavorites int               `json:"total_favorites"`
	TotalComments  int               `json:"total_comments"`
	Comments       []Comment         `json:"comments,omitempty"`
}

// Comment is a user comment attached to a movie.
type Comment struct {
	ID          int    `json:"id"`
	UserName    string `json:"user_name"`
	Comment     string `json:"comment"`
	CommentedAt string `json:"commented_at"`
}

// Genre is a movie category.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"genre_name"`
}

// MoviesPage is one page of a movie listing.
type MoviesPage struct {
	Movies      []Movie `json:"movies"`
	TotalCount  int     `json:"total_count"`
	PerPage     int     `json:"per_page"`
	CurrentPage int     `json:"current_page"`
}

// TotalPages returns the number of pages for the listing.
func (p *MoviesPage) TotalPages() int {
	if p.PerPage <= 0 {
		return 0
	}
	return int(math.Ceil(float64(p.TotalCount) / float64(p.PerPage)))
}

// PrevPage returns the previous page number, or 0 when on the first page.
func (p *MoviesPage) PrevPage() int {
	if p.CurrentPage > 1 {
		return p.CurrentPage - 1
	}
	return 0
}

// HasNext reports whether a page follows the current one.
func (p *MoviesPage) HasNext() bool {
	return p.CurrentPage < p.TotalPages()
}

// MovieResponse wraps a single movie.
type MovieResponse struct {
	Movie Movie `json:"movie"`
}

// GenresResponse wraps the genre list.
type GenresResponse struct {
	Genres []Genre `json:"genres"`
}

// RatingInput rates a movie.
type RatingInput struct {
	MovieID int `json:"movie_id" validate:"required,gt=0"`
	Rating  int `json:"rating" validate:"min=1,max=10"`
}

// CommentInput adds a comment to a movie.
type CommentInput struct {
	MovieID int    `json:"movie_id" validate:"required,gt=0"`
	Comment string `json:"comment" validate:"required"`
}

// MovieInput is the admin payload for a new movie.
type MovieInput struct {
	Title       string            `json:"title" validate:"required"`
	Description string            `json:"description" validate:"required"`
	Runtime     string            `json:"runtime" validate:"required,numeric"`
	ReleaseDate string            `json:"release_date" validate:"required,datetime=2006-01-02"`
	Genres      map[string]string `json:"genres" validate:"required,min=1"`
	ImageID     string            `json:"image_id" validate:"required"`
	Year        string            `json:"year" validate:"required,numeric"`
}

// MutationResult is the generic body of a successful mutation.
type MutationResult struct {
	ID      int    `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}
