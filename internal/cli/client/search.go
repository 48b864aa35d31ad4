package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Table    string          `json:"table"`
	Query    string          `json:"query,omitempty"`
	Location *SearchLocation `json:"location,omitempty"`
	RadiusKm float64         `json:"radius_km,omitempty"`
	Filters  map[string]any  `json:"filters,omitempty"`
	Limit    int             `json:"limit,omitempty"`
}

// SearchLocation is a coordinate pair for geo-weighted search.
type SearchLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SearchResultItem represents one search result.
type SearchResultItem struct {
	Record     SearchRecord `json:"record"`
	Score      float64      `json:"score"`
	SearchType string       `json:"search_type"`
	DistanceKm *float64     `json:"distance_km,omitempty"`
}

// SearchRecord is the record payload inside a search result.
type SearchRecord struct {
	ID          int64             `json:"id"`
	Table       string            `json:"table"`
	Name        map[string]string `json:"name,omitempty"`
	Description map[string]string `json:"description,omitempty"`
	Latitude    *float64          `json:"latitude,omitempty"`
	Longitude   *float64          `json:"longitude,omitempty"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results []SearchResultItem `json:"results"`
	Count   int                `json:"count"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		table    string
		limit    int
		lat      float64
		lon      float64
		radiusKm float64
		lang     string
		filters  []string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search records",
		Long:  "Searches a table using hybrid semantic, text and geo ranking.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			req := SearchRequest{
				Table: table,
				Query: query,
				Limit: limit,
			}
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				req.Location = &SearchLocation{Latitude: lat, Longitude: lon}
				req.RadiusKm = radiusKm
			}
			parsed, err := parseFilters(filters)
			if err != nil {
				return err
			}
			req.Filters = parsed

			return runSearch(cmd, req, lang, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&table, "table", "t", "attractions", "Table to search")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude for geo-weighted ranking")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude for geo-weighted ranking")
	cmd.Flags().Float64Var(&radiusKm, "radius", 10, "Geo radius in kilometers")
	cmd.Flags().StringVar(&lang, "lang", "en", "Display language (en or ar)")
	cmd.Flags().StringSliceVarP(&filters, "filter", "f", nil, "Column filter as key=value (repeatable)")

	return cmd
}

func runSearch(cmd *cobra.Command, req SearchRequest, lang string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/search", req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(searchResp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(searchResp.Results))
	for i, result := range searchResp.Results {
		name := localized(result.Record.Name, lang)
		if name == "" {
			name = fmt.Sprintf("#%d", result.Record.ID)
		}
		fmt.Printf("%d. %s (%.2f)\n", i+1, name, result.Score)
		if desc := localized(result.Record.Description, lang); desc != "" {
			if len(desc) > 100 {
				desc = desc[:97] + "..."
			}
			fmt.Printf("   %s\n", desc)
		}
		if result.DistanceKm != nil {
			fmt.Printf("   Distance: %.1f km\n", *result.DistanceKm)
		}
		fmt.Printf("   ID: %s/%d\n", result.Record.Table, result.Record.ID)
		if i < len(searchResp.Results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}

// parseFilters turns repeated key=value flags into a filter map.
func parseFilters(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filters := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid filter %q (expected key=value)", pair)
		}
		filters[key] = value
	}
	return filters, nil
}

func localized(m map[string]string, lang string) string {
	if v := m[lang]; v != "" {
		return v
	}
	return m["en"]
}
