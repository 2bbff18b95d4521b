package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewWorkerCmd создаёт группу команд для управления worker'ом.
func NewWorkerCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Control the worker",
	}

	cmd.AddCommand(
		newWorkerStateCmd(clientFn, outputFn),
		newWorkerBeginCmd(clientFn, outputFn),
		newWorkerPauseCmd(clientFn, outputFn),
		newWorkerResumeCmd(clientFn, outputFn),
		newWorkerCancelCmd(clientFn, outputFn),
	)

	return cmd
}

func newWorkerStateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show worker state and active task",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			state, err := client.WorkerState()
			if err != nil {
				return err
			}

			out.KeyValue([][2]string{
				{"State", state.State},
				{"Active task", state.ActiveTaskID},
			}, state)
			return nil
		},
	}
}

func newWorkerBeginCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var taskID string

	cmd := &cobra.Command{
		Use:   "begin",
		Short: "Start executing a task (head of queue by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			resp, err := client.Begin(taskID)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Task started: %s", resp.TaskID))
			return nil
		},
	}

	cmd.Flags().StringVar(&taskID, "task-id", "", "Start a specific pending task instead of the queue head")

	return cmd
}

func newWorkerPauseCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var immediate bool

	cmd := &cobra.Command{
		Use:   "pause",
		Short: "Pause the active task",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.Pause(immediate); err != nil {
				return err
			}

			out.Success("Worker paused")
			return nil
		},
	}

	cmd.Flags().BoolVar(&immediate, "immediate", false, "Pause at the next instruction instead of the next step boundary")

	return cmd
}

func newWorkerResumeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused task",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.Resume(); err != nil {
				return err
			}

			out.Success("Worker resumed")
			return nil
		},
	}
}

func newWorkerCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var fail bool
	var reason string

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Stop the active task",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			resp, err := client.Cancel(fail, reason)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Task cancelled: %s", resp.TaskID))
			return nil
		},
	}

	cmd.Flags().BoolVar(&fail, "fail", false, "Mark the task as failed instead of cleanly stopped")
	cmd.Flags().StringVar(&reason, "reason", "", "Failure reason recorded in the task (with --fail)")

	return cmd
}
