package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alt-project/flixctl/internal/auth"
	"github.com/alt-project/flixctl/internal/domain"
	"github.com/alt-project/flixctl/internal/output"
	"github.com/alt-project/flixctl/internal/validate"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	Long: `Exchange email and password for a session token. The session is stored
in the configured backend and reused by later commands until it nears expiry.

Examples:
  flixctl login --email jane@movieflix.dev            # Prompt for the password
  echo "$PW" | flixctl login --email jane@movieflix.dev`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	Long: `Register a new account. Sign in afterwards with 'flixctl login'.

Examples:
  flixctl signup --name "Sam Smith" --email sam@movieflix.dev`,
	Args: cobra.NoArgs,
	RunE: runSignup,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, whoamiCmd)

	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password (prompted when omitted)")
	_ = loginCmd.MarkFlagRequired("email")

	signupCmd.Flags().String("name", "", "full name")
	signupCmd.Flags().String("email", "", "account email")
	signupCmd.Flags().String("password", "", "password (prompted when omitted)")
	_ = signupCmd.MarkFlagRequired("name")
	_ = signupCmd.MarkFlagRequired("email")

	whoamiCmd.Flags().Bool("json", false, "output as JSON")
}

// readPassword returns the flag value, or prompts. Non-terminal input is read as one line.
func readPassword(cmd *cobra.Command, flag string) (string, error) {
	if pw, _ := cmd.Flags().GetString(flag); pw != "" {
		return pw, nil
	}

	if shellInput != nil {
		if !printer.IsQuiet() {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		}
		if !shellInput.Scan() {
			if err := shellInput.Err(); err != nil {
				return "", fmt.Errorf("reading password: %w", err)
			}
			return "", nil
		}
		return strings.TrimRight(shellInput.Text(), "\r"), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, err := readPassword(cmd, "password")
	if err != nil {
		return err
	}

	if res := validate.Email(email); !res.Valid {
		return usageError(res.Message)
	}
	if password == "" {
		return usageError("Password is required.")
	}

	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}

	snap := a.Auth.Login(ctx, email, password)
	if snap.State != auth.Authenticated {
		return &output.CLIError{Summary: snap.LoginError, ExitCode: output.ExitAuthError}
	}
	// Cached pages carry the previous viewer's favorites.
	a.Cache.Purge()

	printer.Success("Signed in as %s", snap.Session.Name)
	printer.PrintHints("login")
	return nil
}

func runSignup(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	password, err := readPassword(cmd, "password")
	if err != nil {
		return err
	}

	for _, res := range []validate.Result{validate.FullName(name), validate.Email(email), validate.Password(password)} {
		if !res.Valid {
			return usageError(res.Message)
		}
	}

	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}

	snap := a.Auth.Signup(ctx, domain.SignupInput{Name: name, Email: email, Password: password})
	if snap.State != auth.SignupPending {
		return &output.CLIError{Summary: snap.SignupError, ExitCode: output.ExitAPIError}
	}

	printer.Success("Account created (id %s)", snap.PendingSubject)
	printer.PrintHints("signup")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}
	a.Auth.Logout(ctx)
	a.Cache.Purge()

	printer.Success("Signed out")
	printer.PrintHints("logout")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}

	snap := a.Auth.Snapshot()
	if snap.State != auth.Authenticated {
		return notSignedIn()
	}
	s := snap.Session

	if jsonOutput {
		enc := json.NewEncoder(printer.Out())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"id":         s.Subject,
			"name":       s.Name,
			"role":       s.Role,
			"expires_at": s.ExpiryTime().UTC().Format(time.RFC3339),
		})
	}

	outf("%s", printer.Bold(s.Name))
	outf("  id:      %s", s.Subject)
	outf("  role:    %s", s.Role)
	outf("  expires: %s", s.ExpiryTime().Local().Format(time.RFC1123))
	printer.PrintHints("whoami")
	return nil
}
