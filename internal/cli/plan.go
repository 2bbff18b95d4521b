package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewPlanCmd создаёт группу команд для просмотра планов.
func NewPlanCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Inspect registered plans",
	}

	cmd.AddCommand(
		newPlanListCmd(clientFn, outputFn),
		newPlanShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newPlanListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			plans, err := client.ListPlans()
			if err != nil {
				return err
			}

			headers := []string{"NAME", "PARAMS", "DESCRIPTION"}
			rows := make([][]string, len(plans))
			for i, p := range plans {
				rows[i] = []string{p.Name, strconv.Itoa(len(p.Params)), p.Description}
			}

			out.Print(headers, rows, plans)
			return nil
		},
	}
}

func newPlanShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show plan parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			p, err := client.GetPlan(args[0])
			if err != nil {
				return err
			}

			if p.Description != "" {
				out.Success(fmt.Sprintf("%s — %s", p.Name, p.Description))
			}

			headers := []string{"PARAM", "KIND", "REQUIRED", "DEFAULT", "DESCRIPTION"}
			rows := make([][]string, len(p.Params))
			for i, param := range p.Params {
				def := ""
				if param.Default != nil {
					def = fmt.Sprintf("%v", param.Default)
				}
				rows[i] = []string{param.Name, param.Kind, strconv.FormatBool(param.Required), def, param.Description}
			}

			out.Print(headers, rows, p)
			return nil
		},
	}
}

// NewDeviceCmd создаёт группу команд для просмотра devices.
func NewDeviceCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Inspect registered devices",
	}

	cmd.AddCommand(
		newDeviceListCmd(clientFn, outputFn),
		newDeviceShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newDeviceListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			devices, err := client.ListDevices()
			if err != nil {
				return err
			}

			headers := []string{"NAME", "PROTOCOLS"}
			rows := make([][]string, len(devices))
			for i, d := range devices {
				rows[i] = []string{d.Name, strings.Join(d.Protocols, ", ")}
			}

			out.Print(headers, rows, devices)
			return nil
		},
	}
}

func newDeviceShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show device details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			d, err := client.GetDevice(args[0])
			if err != nil {
				return err
			}

			out.KeyValue([][2]string{
				{"Name", d.Name},
				{"Protocols", strings.Join(d.Protocols, ", ")},
			}, d)
			return nil
		},
	}
}
