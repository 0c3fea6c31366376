package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomcms/loom/pkg/loom"
)

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Manage content entries",
}

var (
	entriesPage   int
	entriesLimit  int
	entriesSearch string
	entriesData   string
)

func init() {
	entriesListCmd.Flags().IntVar(&entriesPage, "page", 1, "page number (1-based)")
	entriesListCmd.Flags().IntVar(&entriesLimit, "limit", 10, "entries per page")
	entriesListCmd.Flags().StringVar(&entriesSearch, "search", "", "substring search across string fields")
	entriesCreateCmd.Flags().StringVarP(&entriesData, "data", "d", "", "entry payload as JSON")
	entriesUpdateCmd.Flags().StringVarP(&entriesData, "data", "d", "", "patch payload as JSON")

	entriesCmd.AddCommand(entriesListCmd)
	entriesCmd.AddCommand(entriesGetCmd)
	entriesCmd.AddCommand(entriesCreateCmd)
	entriesCmd.AddCommand(entriesUpdateCmd)
	entriesCmd.AddCommand(entriesDeleteCmd)
	entriesCmd.AddCommand(entriesStateCmd)
}

var entriesListCmd = &cobra.Command{
	Use:   "list <api-id>",
	Short: "List entries of a content type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := svc.ListEntries(cmd.Context(), loom.ListEntriesRequest{
			TypeID: args[0],
			Page:   entriesPage,
			Limit:  entriesLimit,
			Search: entriesSearch,
		})
		if err != nil {
			return err
		}
		return printResult(list, func() {
			for _, e := range list.Entries {
				fmt.Printf("%s\t%s\t%s\n", e.ID, e.State, e.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			fmt.Printf("total: %d\n", list.TotalCount)
		})
	},
}

var entriesGetCmd = &cobra.Command{
	Use:   "get <api-id> <id>",
	Short: "Show one entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := svc.GetEntry(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printResult(entry, func() {
			fmt.Printf("%s (%s)\n", entry.ID, entry.State)
			for k, v := range entry.Data {
				fmt.Printf("  %s: %v\n", k, v)
			}
		})
	},
}

var entriesCreateCmd = &cobra.Command{
	Use:   "create <api-id>",
	Short: "Create an entry from a JSON payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := decodePayload()
		if err != nil {
			return err
		}
		entry, err := svc.CreateEntry(cmd.Context(), loom.CreateEntryRequest{
			TypeID: args[0],
			Data:   data,
			Actor:  cliActor,
		})
		if err != nil {
			return err
		}
		return printResult(entry, func() {
			fmt.Printf("created %s\n", entry.ID)
		})
	},
}

var entriesUpdateCmd = &cobra.Command{
	Use:   "update <api-id> <id>",
	Short: "Merge a JSON payload over an entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := decodePayload()
		if err != nil {
			return err
		}
		entry, err := svc.UpdateEntry(cmd.Context(), loom.UpdateEntryRequest{
			TypeID:  args[0],
			EntryID: args[1],
			Data:    data,
			Actor:   cliActor,
		})
		if err != nil {
			return err
		}
		return printResult(entry, func() {
			fmt.Printf("updated %s\n", entry.ID)
		})
	},
}

var entriesDeleteCmd = &cobra.Command{
	Use:   "delete <api-id> <id>",
	Short: "Delete one entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := svc.DeleteEntry(cmd.Context(), loom.DeleteEntryRequest{
			TypeID:  args[0],
			EntryID: args[1],
			Actor:   cliActor,
		})
		if err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[1])
		return nil
	},
}

var entriesStateCmd = &cobra.Command{
	Use:   "state <api-id> <id> <state>",
	Short: "Request a workflow transition for an entry",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := svc.ChangeEntryState(cmd.Context(), loom.ChangeEntryStateRequest{
			TypeID:  args[0],
			EntryID: args[1],
			State:   loom.EntryState(args[2]),
			Actor:   cliActor,
		})
		if err != nil {
			return err
		}
		return printResult(entry, func() {
			fmt.Printf("%s is now %s\n", entry.ID, entry.State)
		})
	},
}

func decodePayload() (map[string]interface{}, error) {
	if entriesData == "" {
		return nil, fmt.Errorf("--data is required")
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(entriesData), &data); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return data, nil
}
