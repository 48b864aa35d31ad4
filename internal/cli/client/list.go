package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// ListAPIResponse represents the record list API response.
type ListAPIResponse struct {
	Items   []Record `json:"items"`
	Cursor  string   `json:"cursor,omitempty"`
	HasMore bool     `json:"has_more"`
}

// ListCmd creates the list command.
func ListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
		lang   string
	)

	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "List records in a table",
		Long:  "Lists records from a whitelisted table, newest first, with cursor pagination.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runList(cmd, args[0], limit, cursor, lang, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	cmd.Flags().StringVar(&lang, "lang", "en", "Display language (en or ar)")

	return cmd
}

func runList(cmd *cobra.Command, table string, limit int, cursor, lang string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	resp, err := api.Get(fmt.Sprintf("/records/%s?%s", table, params.Encode()))
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var listResp ListAPIResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Items) == 0 {
		fmt.Println("No records found.")
		return nil
	}

	fmt.Printf("Found %d records:\n\n", len(listResp.Items))
	for i, item := range listResp.Items {
		name := localized(item.Name, lang)
		if name == "" {
			name = fmt.Sprintf("#%d", item.ID)
		}
		fmt.Printf("%d. %s\n", i+1, name)
		if item.Latitude != nil && item.Longitude != nil {
			fmt.Printf("   Location: %.5f, %.5f\n", *item.Latitude, *item.Longitude)
		}
		if item.UpdatedAt != "" {
			fmt.Printf("   Updated: %s\n", item.UpdatedAt)
		}
		fmt.Printf("   ID: %s/%d\n", table, item.ID)
		if i < len(listResp.Items)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	if listResp.HasMore && listResp.Cursor != "" {
		fmt.Printf("\n%s\n", strings.Repeat("-", 40))
		fmt.Printf("More results available. Use --cursor %s\n", listResp.Cursor)
	}

	return nil
}
