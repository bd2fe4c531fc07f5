package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/evanschultz/mailkan/internal/adapters/api"
	"github.com/evanschultz/mailkan/internal/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// googleAuthCode runs the browser consent flow; tests replace it.
var googleAuthCode = api.GoogleAuthCode

func newLoginCmd(c *cli) *cobra.Command {
	var (
		creds  domain.Credentials
		signup bool
		google bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with email and password, or with --google through the browser.

The password is read from --password, then MAILKAN_PASSWORD, then one line of stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			env, err := c.open(ctx, "login", false)
			if err != nil {
				return err
			}
			defer env.Close()

			var user domain.User
			switch {
			case google:
				user, err = loginWithGoogle(ctx, c, env)
			default:
				if creds.Password == "" {
					creds.Password = c.env("MAILKAN_PASSWORD")
				}
				if creds.Password == "" {
					creds.Password, err = readSecret(c.stdin, cmd.ErrOrStderr(), "Password: ")
					if err != nil {
						return err
					}
				}
				if signup {
					user, err = env.svc.Signup(ctx, creds)
				} else {
					user, err = env.svc.Login(ctx, creds)
				}
			}
			if err != nil {
				env.logger.Error("login failed", "err", err)
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", user.DisplayName())
			return err
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	cmd.Flags().StringVar(&creds.Name, "name", "", "display name for --signup")
	cmd.Flags().BoolVar(&signup, "signup", false, "create the account first")
	cmd.Flags().BoolVar(&google, "google", false, "sign in with Google in the browser")
	cmd.MarkFlagsMutuallyExclusive("google", "signup")
	cmd.MarkFlagsMutuallyExclusive("google", "password")
	return cmd
}

// loginWithGoogle prints the consent URL and exchanges the returned code with the backend.
func loginWithGoogle(ctx context.Context, c *cli, env *runtimeEnv) (domain.User, error) {
	code, err := googleAuthCode(ctx, api.GoogleConfig{
		ClientID:     env.cfg.API.GoogleClientID,
		ClientSecret: env.cfg.API.GoogleClientSecret,
	}, func(url string) error {
		_, err := fmt.Fprintf(c.stderr, "Open this URL to sign in:\n\n  %s\n\n", url)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	return env.svc.GoogleLogin(ctx, code)
}

// readSecret reads one trimmed line from in after writing prompt. Terminal input is not echoed.
func readSecret(in io.Reader, prompt io.Writer, label string) (string, error) {
	_, _ = fmt.Fprint(prompt, label)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(secret), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	_, _ = fmt.Fprintln(prompt)
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget stored tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := c.open(cmd.Context(), "logout", false)
			if err != nil {
				return err
			}
			defer env.Close()
			if !env.svc.LoggedIn() {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
				return err
			}
			if err := env.svc.Logout(cmd.Context()); err != nil {
				env.logger.Warn("logout request failed; local tokens cleared", "err", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return err
		},
	}
}

func newWhoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := c.open(cmd.Context(), "whoami", false)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.requireLogin(); err != nil {
				return err
			}
			user, err := env.svc.CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s <%s>\n", user.DisplayName(), user.Email)
			if user.Provider != "" {
				_, _ = fmt.Fprintf(out, "provider: %s\n", user.Provider)
			}
			if env.svc.Offline() {
				_, _ = fmt.Fprintln(out, "(offline: served from cache)")
			}
			return nil
		},
	}
}
