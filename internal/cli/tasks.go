package cli

import (
	"strconv"

	"tache-cli/internal/api"
	"tache-cli/internal/model"
	"tache-cli/internal/session"
	"tache-cli/internal/store"

	"github.com/spf13/cobra"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Task commands",
	}

	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksAddCmd(app))
	cmd.AddCommand(newTasksDoneCmd(app, "done", true))
	cmd.AddCommand(newTasksDoneCmd(app, "undone", false))
	cmd.AddCommand(newTasksToggleCmd(app))
	cmd.AddCommand(newTasksRemoveCmd(app))
	cmd.AddCommand(newTasksSetTitleCmd(app))
	cmd.AddCommand(newTasksSetDescriptionCmd(app))

	return cmd
}

// dropSessionOnAuthError removes the stored token when the service reports it
// invalid, so the next command lands on "not logged in" instead of a 401.
func dropSessionOnAuthError(err error) error {
	if api.IsUnauthorized(err) {
		_ = session.DeleteFile()
	}
	return err
}

func parseTaskID(arg string) (int, error) {
	return strconv.Atoi(arg)
}

func newTasksListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, token, err := requireSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			var tasks store.Tasks
			if err := tasks.Load(cmd.Context(), client, token); err != nil {
				return writeErr(cmd, dropSessionOnAuthError(err))
			}
			return writeOut(cmd, app, tasks.Snapshot())
		},
	}
}

func newTasksAddCmd(app *App) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, token, err := requireSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			var tasks store.Tasks
			created, err := tasks.Create(cmd.Context(), client, token, args[0], description)
			if err != nil {
				return writeErr(cmd, dropSessionOnAuthError(err))
			}
			return writeOut(cmd, app, created)
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "optional description")
	return cmd
}

func newTasksDoneCmd(app *App, use string, done bool) *cobra.Command {
	short := "Mark a task done"
	if !done {
		short = "Mark a task not done"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			client, token, err := requireSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			var tasks store.Tasks
			if err := tasks.Load(cmd.Context(), client, token); err != nil {
				return writeErr(cmd, dropSessionOnAuthError(err))
			}
			updated, err := tasks.Update(cmd.Context(), client, token, id, model.TaskPatch{Done: model.BoolPtr(done)})
			if err != nil {
				return writeErr(cmd, dropSessionOnAuthError(err))
			}
			return writeOut(cmd, app, updated)
		},
	}
}

func newTasksToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a task's done flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			client, token, err := requireSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			var tasks store.Tasks
			if err := tasks.Load(cmd.Context(), client, token); err != nil {
				return writeErr(cmd, dropSessionOnAuthError(err))
			}
			updated, err := tasks.ToggleDone(cmd.Context(), client, token, id)
			if err != nil {
				return writeErr(cmd, dropSessionOnAuthError(err))
			}
			return writeOut(cmd, app, updated)
		},
	}
}

func newTasksRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			client, token, err := requireSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			var tasks store.Tasks
			if err := tasks.Delete(cmd.Context(), client, token, id); err != nil {
				return writeErr(cmd, dropSessionOnAuthError(err))
			}
			return writeOut(cmd, app, map[string]any{"deleted": id})
		},
	}
}

func newTasksSetTitleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set-title <id> <title>",
		Short: "Change a task's title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskPatch(cmd, app, args[0], model.TaskPatch{Title: model.StrPtr(args[1])})
		},
	}
}

func newTasksSetDescriptionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set-description <id> <description>",
		Short: "Change a task's description",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskPatch(cmd, app, args[0], model.TaskPatch{Description: model.StrPtr(args[1])})
		},
	}
}

func runTaskPatch(cmd *cobra.Command, app *App, idArg string, patch model.TaskPatch) error {
	id, err := parseTaskID(idArg)
	if err != nil {
		return writeErr(cmd, err)
	}
	client, token, err := requireSession(app)
	if err != nil {
		return writeErr(cmd, err)
	}
	var tasks store.Tasks
	if err := tasks.Load(cmd.Context(), client, token); err != nil {
		return writeErr(cmd, dropSessionOnAuthError(err))
	}
	updated, err := tasks.Update(cmd.Context(), client, token, id, patch)
	if err != nil {
		return writeErr(cmd, dropSessionOnAuthError(err))
	}
	return writeOut(cmd, app, updated)
}
