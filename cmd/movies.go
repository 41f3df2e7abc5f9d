package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alt-project/flixctl/internal/domain"
	"github.com/alt-project/flixctl/internal/movies"
	"github.com/alt-project/flixctl/internal/validate"
)

var moviesCmd = &cobra.Command{
	Use:   "movies",
	Short: "Browse the catalogue",
}

var moviesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List movies with filters and pagination",
	Long: `List one page of the catalogue.

Examples:
  flixctl movies list                          # First page, 10 per page
  flixctl movies list --search heat            # Title search
  flixctl movies list --genre 3 --year 1995    # Action movies from 1995
  flixctl movies list --order-by rating -p 2   # Second page by rating
  flixctl movies list -q                       # Ids only`,
	Args: cobra.NoArgs,
	RunE: runMoviesList,
}

var moviesFeaturedCmd = &cobra.Command{
	Use:   "featured",
	Short: "Show the landing page rows",
	Long:  `Show the latest and popular movies plus the Action, Drama and Mystery rows.`,
	Args:  cobra.NoArgs,
	RunE:  runMoviesFeatured,
}

var genresCmd = &cobra.Command{
	Use:   "genres",
	Short: "List genres",
	Args:  cobra.NoArgs,
	RunE:  runGenres,
}

func init() {
	rootCmd.AddCommand(moviesCmd, genresCmd)
	moviesCmd.AddCommand(moviesListCmd, moviesFeaturedCmd)

	moviesListCmd.Flags().IntP("limit", "l", 10, "movies per page")
	moviesListCmd.Flags().IntP("page", "p", 1, "page number")
	moviesListCmd.Flags().StringP("search", "s", "", "title search")
	moviesListCmd.Flags().String("genre", "", "genre id")
	moviesListCmd.Flags().String("year", "", "release year")
	moviesListCmd.Flags().String("order-by", "", "sort order (rating, year, title or latest)")
	moviesListCmd.Flags().Bool("json", false, "output as JSON")

	moviesFeaturedCmd.Flags().Bool("json", false, "output as JSON")
	genresCmd.Flags().Bool("json", false, "output as JSON")
}

func writeJSON(v any) error {
	enc := json.NewEncoder(printer.Out())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func genreNames(g map[string]string) string {
	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = g[id]
	}
	return strings.Join(names, ", ")
}

func renderMovies(page *domain.MoviesPage) error {
	if printer.IsQuiet() {
		for _, m := range page.Movies {
			outf("%d", m.ID)
		}
		return nil
	}
	if len(page.Movies) == 0 {
		printer.Info("No movies found")
		return nil
	}

	table := printer.NewTable("ID", "TITLE", "YEAR", "RATING", "GENRES")
	for _, m := range page.Movies {
		title := m.Title
		if m.IsFavorite {
			title += " ♥"
		}
		table.AddRow(
			strconv.Itoa(m.ID),
			title,
			strconv.Itoa(m.Year),
			printer.Stars(m.Rating),
			genreNames(m.Genres),
		)
	}
	return table.Render()
}

func runMoviesList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	page, _ := cmd.Flags().GetInt("page")
	search, _ := cmd.Flags().GetString("search")
	genre, _ := cmd.Flags().GetString("genre")
	year, _ := cmd.Flags().GetString("year")
	orderBy, _ := cmd.Flags().GetString("order-by")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if year != "" {
		if res := validate.Year(year); !res.Valid {
			return usageError(res.Message)
		}
	}

	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}

	result, err := a.Movies.FilteredMovies(ctx, movies.MovieFilter{
		Limit:   limit,
		Page:    page,
		Search:  search,
		Genre:   genre,
		Year:    year,
		OrderBy: orderBy,
	})
	if err != nil {
		return toCLIError(a, err)
	}

	if jsonOutput {
		return writeJSON(result)
	}
	if err := renderMovies(result); err != nil {
		return err
	}

	if total := result.TotalPages(); total > 0 {
		footer := fmt.Sprintf("Page %d of %d (%d movies)", result.CurrentPage, total, result.TotalCount)
		if result.HasNext() {
			footer += fmt.Sprintf(", next: --page %d", result.CurrentPage+1)
		}
		printer.Info("%s", printer.Dim(footer))
	}
	printer.PrintHints("movies list")
	return nil
}

func runMoviesFeatured(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}

	featured, err := a.Movies.Featured(ctx)
	if err != nil {
		return toCLIError(a, err)
	}
	if jsonOutput {
		return writeJSON(featured)
	}

	for _, row := range []struct {
		title string
		page  *domain.MoviesPage
	}{
		{"Latest", featured.Latest},
		{"Popular", featured.Popular},
		{"Action", featured.Action},
		{"Drama", featured.Drama},
		{"Mystery", featured.Mystery},
	} {
		printer.Header(row.title)
		if err := renderMovies(row.page); err != nil {
			return err
		}
	}
	printer.PrintHints("movies featured")
	return nil
}

func runGenres(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}

	genres, err := a.Movies.Genres(ctx)
	if err != nil {
		return toCLIError(a, err)
	}
	if jsonOutput {
		return writeJSON(genres)
	}
	if printer.IsQuiet() {
		for _, g := range genres {
			outf("%d\t%s", g.ID, g.Name)
		}
		return nil
	}

	table := printer.NewTable("ID", "NAME")
	for _, g := range genres {
		table.AddRow(strconv.Itoa(g.ID), g.Name)
	}
	if err := table.Render(); err != nil {
		return err
	}
	printer.PrintHints("genres")
	return nil
}
