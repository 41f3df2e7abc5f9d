package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/alt-project/flixctl/internal/app"
	"github.com/alt-project/flixctl/internal/domain"
	"github.com/alt-project/flixctl/internal/movies"
	"github.com/alt-project/flixctl/internal/validate"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Catalogue administration (admin accounts only)",
}

var adminAddMovieCmd = &cobra.Command{
	Use:   "add-movie",
	Short: "Add a movie to the catalogue",
	Long: `Add a movie. The poster is uploaded first when --image is given.

Examples:
  flixctl admin add-movie --title Dune --description "Spice." \
    --runtime 155 --release-date 2021-10-22 --genre 7 --image dune.png
  flixctl admin add-movie --title Dune ... --image-id 12`,
	Args: cobra.NoArgs,
	RunE: runAdminAddMovie,
}

var adminDeleteMovieCmd = &cobra.Command{
	Use:   "delete-movie <id>",
	Short: "Delete a movie",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminDeleteMovie,
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminAddMovieCmd, adminDeleteMovieCmd)

	f := adminAddMovieCmd.Flags()
	f.String("title", "", "movie title")
	f.String("description", "", "synopsis")
	f.Int("runtime", 0, "runtime in minutes")
	f.String("release-date", "", "release date (YYYY-MM-DD)")
	f.Int("year", 0, "release year (default: year of --release-date)")
	f.IntSlice("genre", nil, "genre id, repeatable")
	f.String("image", "", "poster file to upload (JPEG or PNG)")
	f.String("image-id", "", "id of an already uploaded poster")
	for _, name := range []string{"title", "description", "runtime", "release-date", "genre"} {
		_ = adminAddMovieCmd.MarkFlagRequired(name)
	}
	adminAddMovieCmd.MarkFlagsMutuallyExclusive("image", "image-id")
	adminAddMovieCmd.MarkFlagsOneRequired("image", "image-id")
}

func runAdminAddMovie(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	title, _ := f.GetString("title")
	description, _ := f.GetString("description")
	runtime, _ := f.GetInt("runtime")
	releaseDate, _ := f.GetString("release-date")
	year, _ := f.GetInt("year")
	genreIDs, _ := f.GetIntSlice("genre")
	imagePath, _ := f.GetString("image")
	imageID, _ := f.GetString("image-id")

	released, err := time.Parse(time.DateOnly, releaseDate)
	if err != nil {
		return usageError("release date must be YYYY-MM-DD, got " + strconv.Quote(releaseDate))
	}
	if year == 0 {
		year = released.Year()
	}

	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}
	if err := requireAdmin(a); err != nil {
		return err
	}

	genres, err := resolveGenres(cmd, a, genreIDs)
	if err != nil {
		return err
	}

	input := domain.MovieInput{
		Title:       title,
		Description: description,
		Runtime:     strconv.Itoa(runtime),
		ReleaseDate: releaseDate,
		Genres:      genres,
		ImageID:     imageID,
		Year:        strconv.Itoa(year),
	}
	if imagePath != "" {
		// Placeholder so validation runs before the upload.
		input.ImageID = "pending"
	}
	if err := movies.ValidateMovieInput(input); err != nil {
		return toCLIError(a, err)
	}

	if imagePath != "" {
		input.ImageID, err = uploadPoster(cmd, a, imagePath)
		if err != nil {
			return err
		}
		printer.Info("Uploaded poster %s as image %s", filepath.Base(imagePath), input.ImageID)
	}

	res, err := a.Movies.AddMovie(ctx, input)
	if err != nil {
		return toCLIError(a, err)
	}
	printer.Success("Added %q (id %d)", title, res.ID)
	printer.PrintHints("admin add-movie")
	return nil
}

func resolveGenres(cmd *cobra.Command, a *app.App, ids []int) (map[string]string, error) {
	all, err := a.Movies.Genres(cmd.Context())
	if err != nil {
		return nil, toCLIError(a, err)
	}
	names := make(map[int]string, len(all))
	for _, g := range all {
		names[g.ID] = g.Name
	}

	out := make(map[string]string, len(ids))
	for _, id := range ids {
		name, ok := names[id]
		if !ok {
			return nil, usageError(fmt.Sprintf("unknown genre id %d (see 'flixctl genres')", id))
		}
		out[strconv.Itoa(id)] = name
	}
	return out, nil
}

func uploadPoster(cmd *cobra.Command, a *app.App, path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", usageError(fmt.Sprintf("reading poster: %v", err))
	}
	file := validate.ImageFile{Name: filepath.Base(path), ContentType: mt.String()}
	if res := validate.Image(&file); !res.Valid {
		return "", usageError(res.Message)
	}

	fh, err := os.Open(path)
	if err != nil {
		return "", usageError(fmt.Sprintf("opening poster: %v", err))
	}
	defer fh.Close()

	id, err := a.Movies.UploadImage(cmd.Context(), file, fh)
	if err != nil {
		return "", toCLIError(a, err)
	}
	return id, nil
}

func runAdminDeleteMovie(cmd *cobra.Command, args []string) error {
	id, err := parseMovieID(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}
	if err := requireAdmin(a); err != nil {
		return err
	}

	res, err := a.Movies.DeleteMovie(ctx, id)
	if err != nil {
		return toCLIError(a, err)
	}
	printer.Success("%s", resultMessage(res, "Movie deleted."))
	return nil
}
