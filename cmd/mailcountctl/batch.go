package main

import (
	"errors"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch <read|unread> <source> <id>... | batch move <source> <destination> <id>...",
	Short: "Queue a bulk action",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		action, source, rest := args[0], args[1], args[2:]
		destination := ""
		if action == "move" {
			if len(rest) < 2 {
				return errors.New("move needs a destination and at least one message ID")
			}
			destination, rest = rest[0], rest[1:]
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()
		id, err := conn.SubmitBatch(ctx, action, source, destination, rest)
		if err != nil {
			return err
		}
		if global.json {
			return outputJSON(map[string]any{"job_id": id})
		}
		pterm.Println(id)
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a queued or running batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		resp, err := conn.CancelJob(ctx, args[0])
		if err != nil {
			return err
		}
		if global.json {
			return outputJSON(resp)
		}
		if resp["cancelled"] == true {
			pterm.Success.Printfln("job %s cancelled", args[0])
		} else {
			pterm.Warning.Printfln("job %s already finished", args[0])
		}
		return nil
	},
}

var jobCmd = &cobra.Command{
	Use:   "job <job-id>",
	Short: "Show a batch's state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		resp, err := conn.JobStatus(ctx, args[0])
		if err != nil {
			return err
		}
		if global.json {
			return outputJSON(resp)
		}
		pterm.Printfln("%v: %v", resp["job_id"], resp["state"])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd, cancelCmd, jobCmd)
}
