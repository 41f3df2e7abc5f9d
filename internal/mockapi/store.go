package mockapi

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/alt-project/flixctl/internal/domain"
)

var (
	errEmailTaken      = errors.New("email already registered")
	errInvalidLogin    = errors.New("invalid email or password")
	errMovieNotFound   = errors.New("movie not found")
	errUnknownImage    = errors.New("image not found")
	errRatingDuplicate = errors.New("movie already rated")
)

type user struct {
	ID           int
	Name         string
	Email        string
	PasswordHash string
	Role         domain.Role
}

type movieRecord struct {
	domain.Movie
	ratings    map[int]int
	favoriters map[int]struct{}
	createdAt  time.Time
}

// store is the in-memory catalogue behind the mock service.
type store struct {
	mu         sync.RWMutex
	cost       int
	users      map[string]*user
	nextUserID int
	genres     []domain.Genre
	movies     map[int]*movieRecord
	nextMovie  int
	nextCmt    int
	images     map[string]string
	nextImage  int
	now        func() time.Time
}

func newStore(cost int, now func() time.Time) *store {
	return &store{
		cost:       cost,
		users:      make(map[string]*user),
		nextUserID: 1,
		movies:     make(map[int]*movieRecord),
		nextMovie:  1,
		nextCmt:    1,
		images:     make(map[string]string),
		nextImage:  1,
		now:        now,
	}
}

func (s *store) addUser(name, email, password string, role domain.Role) (*user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	if _, ok := s.users[key]; ok {
		return nil, errEmailTaken
	}
	u := &user{ID: s.nextUserID, Name: name, Email: email, PasswordHash: string(hash), Role: role}
	s.users[key] = u
	s.nextUserID++
	return u, nil
}

func (s *store) authenticate(email, password string) (*user, error) {
	s.mu.RLock()
	u, ok := s.users[strings.ToLower(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, errInvalidLogin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, errInvalidLogin
	}
	return u, nil
}

func (s *store) addGenre(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.genres = append(s.genres, domain.Genre{ID: len(s.genres) + 1, Name: name})
}

func (s *store) listGenres() []domain.Genre {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Genre(nil), s.genres...)
}

func (s *store) addImage(filename string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strconv.Itoa(s.nextImage)
	s.nextImage++
	s.images[id] = "/images/" + id + "-" + filename
	return id
}

func (s *store) addMovie(in domain.MovieInput) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	image, ok := s.images[in.ImageID]
	if !ok {
		return 0, errUnknownImage
	}
	year, _ := strconv.Atoi(in.Year)
	runtime, _ := strconv.Atoi(in.Runtime)

	genres := make(map[string]string, len(in.Genres))
	for id, name := range in.Genres {
		genres[id] = name
	}

	id := s.nextMovie
	s.nextMovie++
	s.movies[id] = &movieRecord{
		Movie: domain.Movie{
			ID:          id,
			Title:       in.Title,
			Description: in.Description,
			Year:        year,
			Runtime:     runtime,
			Image:       image,
			ReleaseDate: in.ReleaseDate,
			Genres:      genres,
		},
		ratings:    make(map[int]int),
		favoriters: make(map[int]struct{}),
		createdAt:  s.now(),
	}
	return id, nil
}

func (s *store) deleteMovie(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[id]; !ok {
		return errMovieNotFound
	}
	delete(s.movies, id)
	return nil
}

// view renders a movie for one viewer. viewer 0 is anonymous.
func (r *movieRecord) view(viewer int, withComments bool) domain.Movie {
	m := r.Movie
	m.Genres = make(map[string]string, len(r.Genres))
	for k, v := range r.Genres {
		m.Genres[k] = v
	}
	_, m.IsFavorite = r.favoriters[viewer]
	m.TotalFavorites = len(r.favoriters)
	m.TotalComments = len(r.Comments)
	if len(r.ratings) > 0 {
		sum := 0
		for _, v := range r.ratings {
			sum += v
		}
		m.Rating = float64(sum) / float64(len(r.ratings))
	}
	if withComments {
		m.Comments = append([]domain.Comment(nil), r.Comments...)
	} else {
		m.Comments = nil
	}
	return m
}

func (s *store) movie(id, viewer int) (domain.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.movies[id]
	if !ok {
		return domain.Movie{}, errMovieNotFound
	}
	return r.view(viewer, true), nil
}

type listQuery struct {
	limit   int
	page    int
	search  string
	genreID string
	year    int
	orderBy string
	latest  bool
}

func (s *store) list(q listQuery, viewer int) domain.MoviesPage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*movieRecord
	for _, r := range s.movies {
		if q.search != "" && !strings.Contains(strings.ToLower(r.Title), strings.ToLower(q.search)) {
			continue
		}
		if q.genreID != "" {
			if _, ok := r.Genres[q.genreID]; !ok {
				continue
			}
		}
		if q.year != 0 && r.Year != q.year {
			continue
		}
		matched = append(matched, r)
	}

	views := make([]domain.Movie, len(matched))
	created := make(map[int]time.Time, len(matched))
	for i, r := range matched {
		views[i] = r.view(viewer, false)
		created[r.ID] = r.createdAt
	}

	sort.SliceStable(views, func(i, j int) bool {
		switch {
		case q.latest:
			if !created[views[i].ID].Equal(created[views[j].ID]) {
				return created[views[i].ID].After(created[views[j].ID])
			}
			return views[i].ID > views[j].ID
		case q.orderBy == "rating":
			if views[i].Rating != views[j].Rating {
				return views[i].Rating > views[j].Rating
			}
		case q.orderBy == "year":
			if views[i].Year != views[j].Year {
				return views[i].Year > views[j].Year
			}
		case q.orderBy == "title":
			return views[i].Title < views[j].Title
		}
		return views[i].ID < views[j].ID
	})

	total := len(views)
	start := (q.page - 1) * q.limit
	if start > total {
		start = total
	}
	end := start + q.limit
	if end > total {
		end = total
	}

	return domain.MoviesPage{
		Movies:      views[start:end],
		TotalCount:  total,
		PerPage:     q.limit,
		CurrentPage: q.page,
	}
}

func (s *store) rate(movieID, userID, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.movies[movieID]
	if !ok {
		return errMovieNotFound
	}
	if _, rated := r.ratings[userID]; rated {
		return errRatingDuplicate
	}
	r.ratings[userID] = rating
	return nil
}

// toggleFavorite flips the favorite flag and reports the new state.
func (s *store) toggleFavorite(movieID, userID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.movies[movieID]
	if !ok {
		return false, errMovieNotFound
	}
	if _, fav := r.favoriters[userID]; fav {
		delete(r.favoriters, userID)
		return false, nil
	}
	r.favoriters[userID] = struct{}{}
	return true, nil
}

func (s *store) comment(movieID int, userName, text string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.movies[movieID]
	if !ok {
		return 0, errMovieNotFound
	}
	id := s.nextCmt
	s.nextCmt++
	r.Comments = append(r.Comments, domain.Comment{
		ID:          id,
		UserName:    userName,
		Comment:     text,
		CommentedAt: s.now().UTC().Format(time.DateTime),
	})
	return id, nil
}
