package cli

import (
	"bufio"
	"errors"
	"strings"

	"tache-cli/internal/api"
	"tache-cli/internal/session"

	"github.com/spf13/cobra"
)

func newLoginCmd(app *App) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Authenticate against the remote service and store the token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := strings.TrimSpace(args[0])
			if username == "" {
				return writeErr(cmd, errors.New("username must not be empty"))
			}

			pw := password
			if pw == "" {
				// Allow piping the password: `echo s3cret | tache login alice`.
				sc := bufio.NewScanner(cmd.InOrStdin())
				if sc.Scan() {
					pw = strings.TrimSpace(sc.Text())
				}
			}
			if pw == "" {
				return writeErr(cmd, errors.New("missing password (use --password or pipe it on stdin)"))
			}

			base := baseURL(app, "")
			client := api.New(api.WithBaseURL(base))

			// The token is stored only after the endpoint confirms it.
			token, err := client.Login(cmd.Context(), username, pw)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := session.SaveFile(token, base); err != nil {
				return writeErr(cmd, err)
			}

			return writeOut(cmd, app, map[string]any{"loggedIn": true, "api": base})
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when omitted)")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored token (no remote call)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := session.DeleteFile(); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"loggedIn": false})
		},
	}
}
