package cli

import (
	"fmt"
	"time"

	"tache-cli/internal/report"

	"github.com/spf13/cobra"
)

func newReportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report generation commands",
	}

	cmd.AddCommand(newReportStartCmd(app))
	cmd.AddCommand(newReportStatusCmd(app))

	return cmd
}

func newReportStartCmd(app *App) *cobra.Command {
	var interval time.Duration
	var noWait bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Submit a report job and poll it to completion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, token, err := requireSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}

			var machine report.Machine
			jobID, err := machine.Submit(cmd.Context(), client, token)
			if err != nil {
				return writeErr(cmd, dropSessionOnAuthError(err))
			}

			if noWait {
				return writeOut(cmd, app, map[string]any{"jobId": jobID, "state": machine.Status().State.String()})
			}

			fmt.Fprintln(cmd.ErrOrStderr(), machine.Status().Text)
			machine.Watch(cmd.Context(), client, token, interval, func(st report.Status) {
				fmt.Fprintln(cmd.ErrOrStderr(), st.Text)
			})

			final := machine.Status()
			return writeOut(cmd, app, map[string]any{
				"jobId":  final.JobID,
				"state":  final.State.String(),
				"result": final.Result,
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", report.DefaultInterval, "poll period")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "submit only; check later with `tache report status <job-id>`")
	return cmd
}

func newReportStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Perform a single status check for a report job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, token, err := requireSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := client.CheckReport(cmd.Context(), token, args[0])
			if err != nil {
				return writeErr(cmd, dropSessionOnAuthError(err))
			}
			out := map[string]any{"jobId": args[0], "state": st.State}
			if st.Result != nil {
				out["result"] = *st.Result
			}
			return writeOut(cmd, app, out)
		},
	}
}
