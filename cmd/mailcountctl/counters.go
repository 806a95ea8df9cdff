package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		resp, err := conn.Status(ctx)
		if err != nil {
			return err
		}
		if global.json {
			return outputJSON(resp)
		}
		pterm.Printfln("Account: %v", resp["account"])
		pterm.Printfln("State:   %v", resp["state"])
		pterm.Printfln("Uptime:  %vms", resp["uptime_ms"])
		pterm.Printfln("Watchers: %v", resp["subscribers"])
		return nil
	},
}

var countersCmd = &cobra.Command{
	Use:   "counters",
	Short: "List unread counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		resp, err := conn.ListCounters(ctx)
		if err != nil {
			return err
		}
		return printCounters(resp)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed [location...]",
	Short: "Create missing counters at zero (all locations when none given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		resp, err := conn.SeedCounters(ctx, args)
		if err != nil {
			return err
		}
		if global.json {
			return outputJSON(resp)
		}
		created, _ := resp["created"].([]any)
		pterm.Success.Printfln("created %d counters", len(created))
		return nil
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild [location...]",
	Short: "Recompute counters from the message cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		resp, err := conn.RebuildCounters(ctx, args)
		if err != nil {
			return err
		}
		return printCounters(resp)
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <source> <message-id>...",
	Short: "Correct counters for messages a cancelled job left behind",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		resp, err := conn.Reconcile(ctx, args[0], args[1:])
		if err != nil {
			return err
		}
		if global.json {
			return outputJSON(resp)
		}
		if resp["refreshed"] != true {
			pterm.Warning.Printfln("no counter for %s; nothing changed", args[0])
			return nil
		}
		pterm.Success.Printfln("%v unread moved out of %s (now %v)", resp["total_unread"], args[0], resp["source_count"])
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream counter updates until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		err := conn.WatchCounters(ctx, func(m map[string]any) error {
			if !global.json {
				ms, _ := m["occurred_at_unix_ms"].(float64)
				pterm.Info.Printfln("%v at %s", m["kind"], time.UnixMilli(int64(ms)).Format(time.TimeOnly))
			}
			return printCounters(m)
		})
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, countersCmd, seedCmd, rebuildCmd, reconcileCmd, watchCmd)
}

func printCounters(resp map[string]any) error {
	if global.json {
		return outputJSON(resp)
	}
	list, _ := resp["counters"].([]any)
	if len(list) == 0 {
		pterm.Warning.Println("no counters; run 'mailcountctl seed' first")
		return nil
	}
	table := pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"Location", "Code", "Unread"},
	})
	for _, item := range list {
		m, _ := item.(map[string]any)
		table.Data = append(table.Data, []string{
			fmt.Sprint(m["location"]), fmt.Sprint(m["code"]), fmt.Sprint(m["count"]),
		})
	}
	return table.Render()
}
