package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/mailcount/internal/account"
	"github.com/matheus3301/mailcount/internal/client"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var global struct {
	account string
	json    bool
	timeout time.Duration
}

var conn *client.Client

var rootCmd = &cobra.Command{
	Use:           "mailcountctl",
	Short:         "Inspect and drive a mailcount account daemon",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		name := account.Resolve(global.account)
		if err := account.ValidateName(name); err != nil {
			return err
		}
		c, err := client.New(account.SocketPath(name))
		if err != nil {
			return fmt.Errorf("cannot connect to daemon for account %q: %w", name, err)
		}
		conn = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if conn != nil {
			_ = conn.Close()
		}
	},
}

func init() {
	flag := rootCmd.PersistentFlags()
	flag.StringVarP(&global.account, "account", "a", "", "account name (overrides config default)")
	flag.BoolVar(&global.json, "json", false, "output in JSON format")
	flag.DurationVar(&global.timeout, "timeout", 10*time.Second, "request timeout")
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), global.timeout)
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
