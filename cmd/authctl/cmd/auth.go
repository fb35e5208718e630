package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	authclient "github.com/eyoklama/authclient"
	"github.com/eyoklama/authclient/cmd/authctl/internal/config"
	"github.com/eyoklama/authclient/guard"
	"github.com/eyoklama/authclient/jwt"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	auth := &cobra.Command{
		Use:   "auth",
		Short: "Manage the session",
	}
	auth.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newRefreshCmd(),
		newPasswordCmd(),
		newVerifyCmd(),
	)
	return auth
}

func newLoginCmd() *cobra.Command {
	var (
		mail          string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with mail and password",
		Long: `Exchanges mail and password for a token pair and stores the session.

The password is prompted for on a terminal. Use --password-stdin to read it
from standard input instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			gc := config.MustFromContext(cmd.Context())
			if strings.TrimSpace(mail) == "" {
				return errors.New("--mail is required")
			}
			password, err := newSecretReader(gc, passwordStdin).read("Password")
			if err != nil {
				return err
			}

			c, err := gc.Provider.Client(cmd.Context())
			if err != nil {
				return err
			}
			sess, err := c.Manager().Login(cmd.Context(), mail, password)
			if err != nil {
				var apiErr *authclient.APIError
				if errors.As(err, &apiErr) && apiErr.Message != "" {
					return fmt.Errorf("login failed: %s", apiErr.Message)
				}
				return fmt.Errorf("login failed: %w", err)
			}

			role, _ := sess.User.CanonicalRole()
			out := cmd.OutOrStdout()
			pterm.Success.WithWriter(out).Printfln("Logged in as %s (%s)", sess.User.DisplayName(), role)
			return nil
		},
	}
	cmd.Flags().StringVar(&mail, "mail", "", "account mail address")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.MustFromContext(cmd.Context()).Provider.Client(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.Manager().Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.MustFromContext(cmd.Context()).Provider.Client(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			sess := c.Manager().Session()
			if sess == nil {
				pterm.Warning.WithWriter(out).Println("Not logged in")
				return nil
			}

			role, _ := sess.User.CanonicalRole()
			data := pterm.TableData{
				{"FIELD", "VALUE"},
				{"State", c.Manager().State().String()},
				{"User", sess.User.DisplayName()},
				{"Mail", sess.User.Mail},
				{"Role", fmt.Sprintf("%s (stored %q)", role, sess.User.Role)},
				{"Access token", describeToken(sess.AccessToken)},
				{"Home", guard.ForClient(c).HomeFor()},
			}
			return pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(data).Render()
		},
	}
}

func describeToken(token string) string {
	claims, err := jwt.Inspect(token)
	if err != nil {
		return "opaque"
	}
	exp, ok := claims.Expiry()
	if !ok {
		return "jwt, no expiry"
	}
	left := time.Until(exp).Round(time.Second)
	if left <= 0 {
		return fmt.Sprintf("expired at %s", exp.Format(time.RFC1123))
	}
	return fmt.Sprintf("expires %s (in %s)", exp.Format(time.RFC1123), left)
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.MustFromContext(cmd.Context()).Provider.Client(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := c.Manager().Refresh(cmd.Context()); err != nil {
				if errors.Is(err, authclient.ErrSessionExpired) {
					return errors.New("session expired; please run `authctl auth login`")
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Access token refreshed")
			return nil
		},
	}
}

func newPasswordCmd() *cobra.Command {
	var fromStdin bool
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change the account password",
		Long: `Changes the password of the logged in account. With --stdin the current
and the new password are read from the first two lines of standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			gc := config.MustFromContext(cmd.Context())
			r := newSecretReader(gc, fromStdin)
			current, err := r.read("Current password")
			if err != nil {
				return err
			}
			next, err := r.read("New password")
			if err != nil {
				return err
			}

			c, err := gc.Provider.Client(cmd.Context())
			if err != nil {
				return err
			}
			msg, err := c.Manager().ChangePassword(cmd.Context(), current, next)
			if err != nil {
				var apiErr *authclient.APIError
				if errors.As(err, &apiErr) && apiErr.Message != "" {
					return fmt.Errorf("password change rejected: %s", apiErr.Message)
				}
				return err
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Println(msg)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read passwords from stdin")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Ask the backend whether the access token is valid",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.MustFromContext(cmd.Context()).Provider.Client(cmd.Context())
			if err != nil {
				return err
			}
			v, err := c.Manager().Verify(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "valid: %t\n", v.Valid)
			if v.Claims != nil {
				fmt.Fprintf(out, "user_id: %s\nrole: %s\nsubject: %s\n", v.Claims.UserID, v.Claims.Role, v.Claims.Subject)
			}
			return nil
		},
	}
}
