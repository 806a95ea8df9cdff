package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Import and list cached contacts",
}

var contactsImportCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Import one contacts listing page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(args[0])
		if err != nil {
			return fmt.Errorf("read listing: %w", err)
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()
		resp, err := conn.ImportContacts(ctx, payload)
		if err != nil {
			return err
		}
		if global.json {
			return outputJSON(resp)
		}
		pterm.Success.Printfln("imported %v; cached %v of %v", resp["imported"], resp["stored"], resp["total"])
		if resp["has_more"] == true {
			pterm.Info.Println("more pages remain on the server")
		}
		return nil
	},
}

var contactsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one cached contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		resp, err := conn.GetContact(ctx, args[0])
		if err != nil {
			return err
		}
		if global.json {
			return outputJSON(resp)
		}
		pterm.Printfln("ID:     %v", resp["id"])
		pterm.Printfln("Name:   %v", resp["name"])
		pterm.Printfln("UID:    %v", resp["uid"])
		pterm.Printfln("Labels: %v", resp["label_ids"])
		return nil
	},
}

var contactsList struct {
	limit  int
	offset int
}

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached contacts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		resp, err := conn.ListContacts(ctx, contactsList.limit, contactsList.offset)
		if err != nil {
			return err
		}
		if global.json {
			return outputJSON(resp)
		}
		list, _ := resp["contacts"].([]any)
		table := pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{{"ID", "Name"}})
		for _, item := range list {
			m, _ := item.(map[string]any)
			table.Data = append(table.Data, []string{fmt.Sprint(m["id"]), fmt.Sprint(m["name"])})
		}
		if err := table.Render(); err != nil {
			return err
		}
		pterm.Printfln("%d shown, %v cached, %v on server", len(list), resp["total"], resp["server_total"])
		return nil
	},
}

func init() {
	flag := contactsListCmd.Flags()
	flag.IntVarP(&contactsList.limit, "limit", "l", 50, "maximum contacts to show")
	flag.IntVarP(&contactsList.offset, "offset", "o", 0, "contacts to skip")
	contactsCmd.AddCommand(contactsImportCmd, contactsGetCmd, contactsListCmd)
	rootCmd.AddCommand(contactsCmd)
}

func readPayload(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
