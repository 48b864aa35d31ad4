package client

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// Record represents a record item from the API.
type Record struct {
	ID          int64             `json:"id"`
	Table       string            `json:"table"`
	Name        map[string]string `json:"name,omitempty"`
	Description map[string]string `json:"description,omitempty"`
	Latitude    *float64          `json:"latitude,omitempty"`
	Longitude   *float64          `json:"longitude,omitempty"`
	Data        map[string]any    `json:"data,omitempty"`
	CreatedAt   string            `json:"created_at,omitempty"`
	UpdatedAt   string            `json:"updated_at,omitempty"`
}

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:     "get <table> <id>",
		Short:   "Get a record by table and ID",
		Long:    "Retrieves a record from a whitelisted table and displays its content.",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid record id %q", args[1])
			}
			return runGet(cmd, args[0], id, lang, outputJSON)
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "en", "Display language (en or ar)")

	return cmd
}

func runGet(cmd *cobra.Command, table string, id int64, lang string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/records/%s/%d", table, id))
	if err != nil {
		return fmt.Errorf("failed to get record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(resp.Data, &record); err != nil {
		return fmt.Errorf("failed to parse record: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(record, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	name := localized(record.Name, lang)
	if name == "" {
		name = fmt.Sprintf("#%d", record.ID)
	}
	fmt.Printf("Name: %s\n", name)
	fmt.Printf("Table: %s\n", record.Table)
	fmt.Printf("ID: %d\n", record.ID)
	if record.Latitude != nil && record.Longitude != nil {
		fmt.Printf("Location: %.5f, %.5f\n", *record.Latitude, *record.Longitude)
	}
	if record.CreatedAt != "" {
		fmt.Printf("Created: %s\n", record.CreatedAt)
	}
	if record.UpdatedAt != "" {
		fmt.Printf("Updated: %s\n", record.UpdatedAt)
	}
	if desc := localized(record.Description, lang); desc != "" {
		fmt.Println()
		fmt.Println("--- Description ---")
		fmt.Println(desc)
	}
	if len(record.Data) > 0 {
		fmt.Println()
		fmt.Println("--- Details ---")
		keys := make([]string, 0, len(record.Data))
		for k := range record.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s: %v\n", strings.ReplaceAll(k, "_", " "), record.Data[k])
		}
	}

	return nil
}
