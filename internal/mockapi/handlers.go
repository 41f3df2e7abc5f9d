package mockapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/alt-project/flixctl/internal/domain"
	"github.com/alt-project/flixctl/internal/validate"
)

const sessionContextKey = "session"

// fieldError is one entry of an {"errors":{...}} body.
type fieldError struct {
	Field   string
	Message string
}

// fieldErrors marshals as a JSON object that keeps insertion order.
type fieldErrors []fieldError

func (fe fieldErrors) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range fe {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Field)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Message)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func messageJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"message": msg})
}

func nestedErrorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]any{"error": map[string]string{"message": msg}})
}

func fieldErrorsJSON(c echo.Context, fe fieldErrors) error {
	return c.JSON(http.StatusUnprocessableEntity, map[string]any{"errors": fe})
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(tok)
	}
	return ""
}

func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := bearerToken(c)
		if raw == "" {
			return messageJSON(c, http.StatusUnauthorized, "Unauthenticated.")
		}
		session, err := s.issuer.Verify(raw)
		if err != nil {
			return messageJSON(c, http.StatusUnauthorized, "Unauthenticated.")
		}
		c.Set(sessionContextKey, session)
		return next(c)
	}
}

// optionalAuth attaches the session when a valid token is present and ignores it otherwise.
func (s *Server) optionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if raw := bearerToken(c); raw != "" {
			if session, err := s.issuer.Verify(raw); err == nil {
				c.Set(sessionContextKey, session)
			}
		}
		return next(c)
	}
}

func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !sessionOf(c).IsAdmin() {
			return nestedErrorJSON(c, http.StatusForbidden, "Admin access required.")
		}
		return next(c)
	}
}

func sessionOf(c echo.Context) *domain.Session {
	session, _ := c.Get(sessionContextKey).(*domain.Session)
	return session
}

func viewerID(c echo.Context) int {
	session := sessionOf(c)
	if session == nil {
		return 0
	}
	id, _ := strconv.Atoi(session.Subject)
	return id
}

func (s *Server) handleLogin(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return messageJSON(c, http.StatusBadRequest, "Invalid request body.")
	}

	u, err := s.store.authenticate(req.Email, req.Password)
	if err != nil {
		return messageJSON(c, http.StatusUnauthorized, "Invalid email or password.")
	}

	tok, err := s.issuer.Issue(strconv.Itoa(u.ID), u.Name, u.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"token": tok})
}

func (s *Server) handleSignup(c echo.Context) error {
	var req domain.SignupInput
	if err := c.Bind(&req); err != nil {
		return nestedErrorJSON(c, http.StatusBadRequest, "Invalid request body.")
	}

	var fe fieldErrors
	for _, check := range []struct {
		field string
		res   validate.Result
	}{
		{"name", validate.FullName(req.Name)},
		{"email", validate.Email(req.Email)},
		{"password", validate.Password(req.Password)},
	} {
		if !check.res.Valid {
			fe = append(fe, fieldError{Field: check.field, Message: check.res.Message})
		}
	}
	if len(fe) > 0 {
		return fieldErrorsJSON(c, fe)
	}

	u, err := s.store.addUser(req.Name, req.Email, req.Password, domain.RoleStandard)
	if errors.Is(err, errEmailTaken) {
		return fieldErrorsJSON(c, fieldErrors{{Field: "email", Message: "Email is already registered."}})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"id": u.ID, "message": "Signup successful."})
}

func intParam(raw string, def int) int {
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	return def
}

func (s *Server) handleLatest(c echo.Context) error {
	page := s.store.list(listQuery{limit: intParam(c.QueryParam("limit"), 5), page: 1, latest: true}, viewerID(c))
	return c.JSON(http.StatusOK, page)
}

func (s *Server) handleList(c echo.Context) error {
	year, _ := strconv.Atoi(c.QueryParam("year"))
	q := listQuery{
		limit:   intParam(c.QueryParam("limit"), 10),
		page:    intParam(c.QueryParam("page"), 1),
		search:  c.QueryParam("s"),
		genreID: c.QueryParam("genre"),
		year:    year,
		orderBy: c.QueryParam("order_by"),
	}
	return c.JSON(http.StatusOK, s.store.list(q, viewerID(c)))
}

func (s *Server) handleGenreMovies(c echo.Context) error {
	q := listQuery{
		limit:   intParam(c.QueryParam("limit"), 10),
		page:    intParam(c.QueryParam("page"), 1),
		genreID: c.Param("id"),
	}
	return c.JSON(http.StatusOK, s.store.list(q, viewerID(c)))
}

func (s *Server) handleMovie(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nestedErrorJSON(c, http.StatusBadRequest, "Invalid movie id.")
	}
	m, err := s.store.movie(id, viewerID(c))
	if err != nil {
		return nestedErrorJSON(c, http.StatusNotFound, "Movie not found.")
	}
	return c.JSON(http.StatusOK, domain.MovieResponse{Movie: m})
}

func (s *Server) handleGenres(c echo.Context) error {
	return c.JSON(http.StatusOK, domain.GenresResponse{Genres: s.store.listGenres()})
}

func (s *Server) handleRate(c echo.Context) error {
	var req domain.RatingInput
	if err := c.Bind(&req); err != nil {
		return nestedErrorJSON(c, http.StatusBadRequest, "Invalid request body.")
	}
	if err := validate.Struct(req); err != nil {
		return nestedErrorJSON(c, http.StatusUnprocessableEntity, err.Error())
	}

	switch err := s.store.rate(req.MovieID, viewerID(c), req.Rating); {
	case errors.Is(err, errMovieNotFound):
		return nestedErrorJSON(c, http.StatusNotFound, "Movie not found.")
	case errors.Is(err, errRatingDuplicate):
		return nestedErrorJSON(c, http.StatusConflict, "You have already rated this movie.")
	case err != nil:
		return err
	}
	return messageJSON(c, http.StatusOK, "Rating added.")
}

func (s *Server) handleFavorite(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nestedErrorJSON(c, http.StatusBadRequest, "Invalid movie id.")
	}
	added, err := s.store.toggleFavorite(id, viewerID(c))
	if err != nil {
		return nestedErrorJSON(c, http.StatusNotFound, "Movie not found.")
	}
	if added {
		return messageJSON(c, http.StatusOK, "Added to favorites.")
	}
	return messageJSON(c, http.StatusOK, "Removed from favorites.")
}

func (s *Server) handleComment(c echo.Context) error {
	var req domain.CommentInput
	if err := c.Bind(&req); err != nil {
		return nestedErrorJSON(c, http.StatusBadRequest, "Invalid request body.")
	}
	if err := validate.Struct(req); err != nil {
		return nestedErrorJSON(c, http.StatusUnprocessableEntity, err.Error())
	}

	id, err := s.store.comment(req.MovieID, sessionOf(c).Name, req.Comment)
	if err != nil {
		return nestedErrorJSON(c, http.StatusNotFound, "Movie not found.")
	}
	return c.JSON(http.StatusCreated, domain.MutationResult{ID: id, Message: "Comment added."})
}

func (s *Server) handleAddMovie(c echo.Context) error {
	var req domain.MovieInput
	if err := c.Bind(&req); err != nil {
		return nestedErrorJSON(c, http.StatusBadRequest, "Invalid request body.")
	}
	if err := validate.Struct(req); err != nil {
		var fe validate.FieldErrors
		if errors.As(err, &fe) {
			out := make(fieldErrors, 0, len(fe))
			for _, field := range fe.Fields() {
				out = append(out, fieldError{Field: field, Message: field + " " + fe[field]})
			}
			return fieldErrorsJSON(c, out)
		}
		return err
	}

	id, err := s.store.addMovie(req)
	if errors.Is(err, errUnknownImage) {
		return fieldErrorsJSON(c, fieldErrors{{Field: "image_id", Message: "Image not found."}})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, domain.MutationResult{ID: id, Message: "Movie added."})
}

func (s *Server) handleDeleteMovie(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nestedErrorJSON(c, http.StatusBadRequest, "Invalid movie id.")
	}
	if err := s.store.deleteMovie(id); err != nil {
		return nestedErrorJSON(c, http.StatusNotFound, "Movie not found.")
	}
	return c.JSON(http.StatusOK, domain.MutationResult{ID: id, Message: "Movie deleted."})
}

func (s *Server) handleUpload(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return fieldErrorsJSON(c, fieldErrors{{Field: "image", Message: "Please upload an image."}})
	}

	res := validate.Image(&validate.ImageFile{Name: fh.Filename, ContentType: fh.Header.Get(echo.HeaderContentType)})
	if !res.Valid {
		return fieldErrorsJSON(c, fieldErrors{{Field: "image", Message: res.Message}})
	}

	id, _ := strconv.Atoi(s.store.addImage(fh.Filename))
	return c.JSON(http.StatusCreated, map[string]int{"id": id})
}
