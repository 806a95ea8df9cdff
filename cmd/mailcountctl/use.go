package main

import (
	"github.com/matheus3301/mailcount/internal/account"
	"github.com/matheus3301/mailcount/internal/config"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var useCmd = &cobra.Command{
	Use:   "use <account>",
	Short: "Set the default account in config.toml",
	Args:  cobra.ExactArgs(1),
	// Only touches the config file, no daemon connection.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := account.ValidateName(args[0]); err != nil {
			return err
		}
		path := account.ConfigPath()
		cfg, err := config.LoadOrDefault(path)
		if err != nil {
			return err
		}
		cfg.DefaultAccount = args[0]
		if err := config.Save(path, cfg); err != nil {
			return err
		}
		pterm.Success.Printfln("default account set to %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(useCmd)
}
