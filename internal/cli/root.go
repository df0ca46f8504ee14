package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"tache-cli/internal/api"
	"tache-cli/internal/format"
	"tache-cli/internal/session"
	"tache-cli/internal/tui"

	"github.com/spf13/cobra"
)

// App carries persistent flag state shared by all commands.
type App struct {
	API        string
	PrettyJSON bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "tache",
		Short:        "Tâches client: task list + report generation over a remote service",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  tache

  # Scriptable commands
  tache login alice --password s3cret
  tache tasks list
  tache tasks add "Acheter du pain"
  tache report start
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.API, "api", "", "base URL of the remote service (default $TACHE_API, then the login-time URL)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "pretty-print JSON output")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newReportCmd(app))

	return cmd
}

// baseURL resolves the service URL: explicit flag, then environment, then the
// URL recorded at login time, then the built-in default.
func baseURL(app *App, saved string) string {
	if v := strings.TrimSpace(app.API); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("TACHE_API")); v != "" {
		return v
	}
	if v := strings.TrimSpace(saved); v != "" {
		return v
	}
	return api.DefaultBaseURL
}

// loadSession returns an api client and the persisted token. Commands that
// require authentication fail fast here, before any network call.
func loadSession(app *App) (*api.Client, string, error) {
	token, savedBase, err := session.LoadFile()
	if err != nil {
		return nil, "", err
	}
	client := api.New(api.WithBaseURL(baseURL(app, savedBase)))
	return client, token, nil
}

func requireSession(app *App) (*api.Client, string, error) {
	client, token, err := loadSession(app)
	if err != nil {
		return nil, "", err
	}
	if token == "" {
		return nil, "", errors.New("not logged in; run `tache login <username>` first")
	}
	return client, token, nil
}

func runTUI(app *App) error {
	token, savedBase, err := session.LoadFile()
	if err != nil {
		return err
	}
	return tui.Run(tui.Config{
		BaseURL: baseURL(app, savedBase),
		Token:   token,
	})
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.WriteJSON(cmd.OutOrStdout(), v, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
