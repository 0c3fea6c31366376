package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomcms/loom/pkg/loom"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "Manage content type definitions",
}

var typesFile string

func init() {
	typesDefineCmd.Flags().StringVarP(&typesFile, "file", "f", "", "definition JSON file (default: stdin)")
	typesReplaceCmd.Flags().StringVarP(&typesFile, "file", "f", "", "definition JSON file (default: stdin)")

	typesCmd.AddCommand(typesListCmd)
	typesCmd.AddCommand(typesGetCmd)
	typesCmd.AddCommand(typesDefineCmd)
	typesCmd.AddCommand(typesReplaceCmd)
	typesCmd.AddCommand(typesDeleteCmd)
}

var typesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List content types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		types, err := svc.ListContentTypes(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(types, func() {
			for _, ct := range types {
				fmt.Printf("%s\t%s\t%d fields\n", ct.APIID, ct.DisplayName, len(ct.Fields))
			}
		})
	},
}

var typesGetCmd = &cobra.Command{
	Use:   "get <api-id>",
	Short: "Show one content type definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ct, err := svc.GetContentType(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(ct, func() {
			fmt.Printf("%s (%s)\n", ct.APIID, ct.DisplayName)
			for _, f := range ct.Fields {
				flags := ""
				if f.Required {
					flags += " required"
				}
				if f.Unique {
					flags += " unique"
				}
				fmt.Printf("  %s\t%s%s\n", f.Name, f.Type, flags)
			}
		})
	},
}

var typesDefineCmd = &cobra.Command{
	Use:   "define",
	Short: "Define a content type from a JSON definition",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := readDefinition()
		if err != nil {
			return err
		}
		ct, err := svc.DefineContentType(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printResult(ct, func() {
			fmt.Printf("defined %s with %d fields\n", ct.APIID, len(ct.Fields))
		})
	},
}

var typesReplaceCmd = &cobra.Command{
	Use:   "replace <api-id>",
	Short: "Replace a content type definition whole",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := readDefinition()
		if err != nil {
			return err
		}
		if req.APIID == "" {
			req.APIID = args[0]
		}
		ct, err := svc.ReplaceContentType(cmd.Context(), args[0], req)
		if err != nil {
			return err
		}
		return printResult(ct, func() {
			fmt.Printf("replaced %s\n", ct.APIID)
		})
	},
}

var typesDeleteCmd = &cobra.Command{
	Use:   "delete <api-id>",
	Short: "Delete a content type and every entry of it",
	Long: `Delete removes the content type definition, its compiled model and, as a
non-reversible cascade, all entries of that type.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svc.DeleteContentType(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

// readDefinition decodes a content type definition from --file or stdin.
func readDefinition() (loom.DefineContentTypeRequest, error) {
	var req struct {
		APIID       string       `json:"api_id"`
		DisplayName string       `json:"display_name"`
		Description string       `json:"description"`
		Fields      []loom.Field `json:"fields"`
	}

	in := os.Stdin
	if typesFile != "" {
		f, err := os.Open(typesFile)
		if err != nil {
			return loom.DefineContentTypeRequest{}, err
		}
		defer f.Close()
		in = f
	}

	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return loom.DefineContentTypeRequest{}, fmt.Errorf("decode definition: %w", err)
	}
	return loom.DefineContentTypeRequest{
		APIID:       req.APIID,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Fields:      req.Fields,
	}, nil
}
