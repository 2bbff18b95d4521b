package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewTaskCmd создаёт группу команд для управления tasks.
func NewTaskCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	cmd.AddCommand(
		newTaskListCmd(clientFn, outputFn),
		newTaskSubmitCmd(clientFn, outputFn),
		newTaskShowCmd(clientFn, outputFn),
		newTaskClearCmd(clientFn, outputFn),
	)

	return cmd
}

func newTaskListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in submission order",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			tasks, err := client.ListTasks(status)
			if err != nil {
				return err
			}

			headers := []string{"ID", "PLAN", "STATUS", "ERRORS", "SUBMITTED"}
			rows := make([][]string, len(tasks))
			for i, t := range tasks {
				rows[i] = []string{t.ID, t.Plan, t.Status, strings.Join(t.Errors, "; "), t.SubmittedAt}
			}

			out.Print(headers, rows, tasks)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, RUNNING, COMPLETE)")

	return cmd
}

func newTaskSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "submit PLAN",
		Short: "Submit a new task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := SubmitTaskRequest{Plan: args[0]}

			if len(params) > 0 {
				req.Params = make(map[string]any)
				for _, kv := range params {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid param format %q, expected KEY=VALUE", kv)
					}
					req.Params[parts[0]] = parseParamValue(parts[1])
				}
			}

			task, err := client.SubmitTask(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Task submitted: %s", task.ID))
			out.Print(
				[]string{"ID", "PLAN", "STATUS", "SUBMITTED"},
				[][]string{{task.ID, task.Plan, task.Status, task.SubmittedAt}},
				task,
			)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&params, "param", nil, "Plan parameter as KEY=VALUE (repeatable)")

	return cmd
}

func newTaskShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show task details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			task, err := client.GetTask(args[0])
			if err != nil {
				return err
			}

			out.KeyValue([][2]string{
				{"ID", task.ID},
				{"Plan", task.Plan},
				{"Status", task.Status},
				{"Errors", strings.Join(task.Errors, "; ")},
				{"Submitted", task.SubmittedAt},
				{"Started", task.StartedAt},
				{"Finished", task.FinishedAt},
				{"Duration", fmt.Sprintf("%dms", task.DurationMs)},
			}, task)
			return nil
		},
	}
}

func newTaskClearCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "clear ID",
		Short: "Remove a pending or completed task from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.ClearTask(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Task cleared: %s", args[0]))
			return nil
		},
	}
}

// parseParamValue пытается разобрать значение как bool, int или float,
// иначе оставляет строку. Планы сами валидируют типы параметров.
func parseParamValue(s string) any {
	if s == "true" {
		return true
	}
	if s == "false" {
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
