package cmd

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alt-project/flixctl/internal/domain"
)

var movieCmd = &cobra.Command{
	Use:   "movie",
	Short: "Show, rate, comment on or favorite one movie",
}

var movieShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show movie details and comments",
	Args:  cobra.ExactArgs(1),
	RunE:  runMovieShow,
}

var movieRateCmd = &cobra.Command{
	Use:   "rate <id> <1-10>",
	Short: "Rate a movie",
	Long: `Rate a movie from 1 to 10. Each account can rate a movie once.

Examples:
  flixctl movie rate 2 9`,
	Args: cobra.ExactArgs(2),
	RunE: runMovieRate,
}

var movieCommentCmd = &cobra.Command{
	Use:   "comment <id> <text>...",
	Short: "Comment on a movie",
	Long: `Add a comment to a movie. Markup is stripped before sending.

Examples:
  flixctl movie comment 1 "Loved the ending"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMovieComment,
}

var movieFavoriteCmd = &cobra.Command{
	Use:   "favorite <id>",
	Short: "Toggle a movie in your favorites",
	Args:  cobra.ExactArgs(1),
	RunE:  runMovieFavorite,
}

func init() {
	rootCmd.AddCommand(movieCmd)
	movieCmd.AddCommand(movieShowCmd, movieRateCmd, movieCommentCmd, movieFavoriteCmd)

	movieShowCmd.Flags().Bool("json", false, "output as JSON")
}

func parseMovieID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, usageError("movie id must be a positive number, got " + strconv.Quote(raw))
	}
	return id, nil
}

func runMovieShow(cmd *cobra.Command, args []string) error {
	id, err := parseMovieID(args[0])
	if err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}

	m, err := a.Movies.SingleMovie(ctx, id)
	if err != nil {
		return toCLIError(a, err)
	}
	if jsonOutput {
		return writeJSON(m)
	}

	title := printer.Bold(m.Title)
	if m.IsFavorite {
		title += " ♥"
	}
	outf("%s (%d)", title, m.Year)
	outf("%s  %.1f/10", printer.Stars(m.Rating), m.Rating)
	outf("%s", printer.Dim(strings.Join([]string{
		genreNames(m.Genres),
		strconv.Itoa(m.Runtime) + " min",
		"released " + m.ReleaseDate,
	}, " · ")))
	outf("")
	outf("%s", m.Description)
	outf("")
	outf("%d favorites · %d comments", m.TotalFavorites, m.TotalComments)

	if len(m.Comments) > 0 {
		printer.Header("Comments")
		for _, c := range m.Comments {
			outf("%s %s", printer.Bold(c.UserName), printer.Dim(c.CommentedAt))
			outf("  %s", c.Comment)
		}
	}
	printer.PrintHints("movie show")
	return nil
}

func runMovieRate(cmd *cobra.Command, args []string) error {
	id, err := parseMovieID(args[0])
	if err != nil {
		return err
	}
	rating, err := strconv.Atoi(args[1])
	if err != nil || rating < 1 || rating > 10 {
		return usageError("rating must be a number from 1 to 10")
	}

	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}
	if err := requireSession(a); err != nil {
		return err
	}

	res, err := a.Movies.CreateRating(ctx, domain.RatingInput{MovieID: id, Rating: rating})
	if err != nil {
		return toCLIError(a, err)
	}
	printer.Success("%s", resultMessage(res, "Rating added."))
	return nil
}

func runMovieComment(cmd *cobra.Command, args []string) error {
	id, err := parseMovieID(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}
	if err := requireSession(a); err != nil {
		return err
	}

	res, err := a.Movies.AddComment(ctx, domain.CommentInput{MovieID: id, Comment: strings.Join(args[1:], " ")})
	if err != nil {
		return toCLIError(a, err)
	}
	printer.Success("%s", resultMessage(res, "Comment added."))
	return nil
}

func runMovieFavorite(cmd *cobra.Command, args []string) error {
	id, err := parseMovieID(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}
	if err := requireSession(a); err != nil {
		return err
	}

	res, err := a.Movies.ManageFavorite(ctx, id)
	if err != nil {
		return toCLIError(a, err)
	}
	printer.Success("%s", resultMessage(res, "Favorites updated."))
	return nil
}

func resultMessage(res *domain.MutationResult, fallback string) string {
	if res != nil && res.Message != "" {
		return res.Message
	}
	return fallback
}
