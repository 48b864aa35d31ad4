package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func InitCmd() *cobra.Command {
	var apiKey string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Configure the tourbase CLI",
		Long:  "Saves the server URL and optional API key to the global config file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runInit(apiKey, apiURL, outputJSON)
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for authentication (omit for open servers)")
	cmd.Flags().StringVar(&apiURL, "api-url", defaultAPIURL, "API base URL")

	return cmd
}

func runInit(apiKey, apiURL string, outputJSON bool) error {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	// Verify the server is reachable before saving anything
	api, err := NewAPIClientWithConfig(apiKey, apiURL)
	if err != nil {
		return err
	}
	if _, err := api.Get("/health"); err != nil {
		return fmt.Errorf("server check failed for %s: %w", apiURL, err)
	}

	cfg := &GlobalConfig{APIKey: apiKey, APIURL: apiURL}
	if err := SaveGlobalConfig(cfg); err != nil {
		return err
	}

	configPath, _ := GetConfigPath()

	if outputJSON {
		result := map[string]interface{}{
			"success": true,
			"api_url": apiURL,
			"config":  configPath,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("Connected to %s\n", apiURL)
		fmt.Printf("Config saved to %s\n", configPath)
	}

	return nil
}
