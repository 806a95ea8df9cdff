package main

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "Import and list cached messages",
}

var messagesImportCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Import one messages page, moving counters with it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(args[0])
		if err != nil {
			return fmt.Errorf("read page: %w", err)
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()
		resp, err := conn.ImportMessages(ctx, payload)
		if err != nil {
			return err
		}
		if global.json {
			return outputJSON(resp)
		}
		pterm.Success.Printfln("imported %v of %v", resp["imported"], resp["total"])
		if resp["counters_changed"] == true {
			pterm.Info.Println("unread counters updated")
		}
		return nil
	},
}

var messagesList struct {
	location string
	limit    int
}

var messagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the newest cached messages in a location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		resp, err := conn.ListMessages(ctx, messagesList.location, messagesList.limit)
		if err != nil {
			return err
		}
		if global.json {
			return outputJSON(resp)
		}
		list, _ := resp["messages"].([]any)
		table := pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{{"ID", "Time", "Unread", "Subject"}})
		for _, item := range list {
			m, _ := item.(map[string]any)
			ts, _ := m["time"].(float64)
			unread := ""
			if m["is_read"] != true {
				unread = "*"
			}
			table.Data = append(table.Data, []string{
				fmt.Sprint(m["id"]),
				time.Unix(int64(ts), 0).Format(time.DateTime),
				unread,
				fmt.Sprint(m["subject"]),
			})
		}
		return table.Render()
	},
}

func init() {
	flag := messagesListCmd.Flags()
	flag.StringVarP(&messagesList.location, "location", "L", "inbox", "location name or code")
	flag.IntVarP(&messagesList.limit, "limit", "l", 50, "maximum messages to show")
	messagesCmd.AddCommand(messagesImportCmd, messagesListCmd)
	rootCmd.AddCommand(messagesCmd)
}
