package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// TablesResponse represents the tables API response.
type TablesResponse struct {
	Tables []string `json:"tables"`
}

// TablesCmd creates the tables command.
func TablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List searchable tables",
		Long:  "Lists the tables available for search and record lookup.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runTables(cmd, outputJSON)
		},
	}
}

func runTables(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/tables")
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}

	var tablesResp TablesResponse
	if err := json.Unmarshal(resp.Data, &tablesResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(tablesResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	for _, table := range tablesResp.Tables {
		fmt.Println(table)
	}
	return nil
}
