package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// endpointCmd represents the endpoint command
var endpointCmd = &cobra.Command{
	Use:   "endpoint",
	Short: "Manage webhook endpoints",
	Long:  `Create and manage webhook endpoints that will receive event deliveries.`,
}

// createEndpointCmd represents the create endpoint command
var createEndpointCmd = &cobra.Command{
	Use:   "create [url]",
	Short: "Register a new webhook endpoint",
	Long: `Register a new webhook endpoint subscribed to one or more event types.
The generated secret is printed once; store it on the receiver.

Example:
  fxhookctl endpoint create https://example.com/webhook --events user.registered,transaction.completed`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		events, _ := cmd.Flags().GetStringSlice("events")
		secret, _ := cmd.Flags().GetString("secret")

		body := map[string]interface{}{"url": url, "events": events}
		if secret != "" {
			body["secret"] = secret
		}

		var ep endpointView
		if err := doJSON("POST", "/v1/endpoints", body, &ep); err != nil {
			return fmt.Errorf("failed to create endpoint: %w", err)
		}

		if !outputJSON {
			fmt.Printf("Created endpoint: %s\n", ep.ID)
			printEndpoint(ep)
		}
		return nil
	},
}

// listEndpointsCmd represents the list endpoints command
var listEndpointsCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Endpoints []endpointView `json:"endpoints"`
			Count     int            `json:"count"`
		}
		if err := doJSON("GET", "/v1/endpoints", nil, &resp); err != nil {
			return fmt.Errorf("failed to list endpoints: %w", err)
		}

		if !outputJSON {
			fmt.Printf("%d endpoint(s)\n", resp.Count)
			for _, ep := range resp.Endpoints {
				state := "active"
				if !ep.Active {
					state = "inactive"
				}
				fmt.Printf("  %s  %-8s  %s  [%s]\n", ep.ID, state, ep.URL, strings.Join(ep.Events, ","))
			}
		}
		return nil
	},
}

// getEndpointCmd represents the get endpoint command
var getEndpointCmd = &cobra.Command{
	Use:   "get [endpoint-id]",
	Short: "Show one endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var ep endpointView
		if err := doJSON("GET", "/v1/endpoints/"+args[0], nil, &ep); err != nil {
			return fmt.Errorf("failed to get endpoint: %w", err)
		}
		if !outputJSON {
			printEndpoint(ep)
		}
		return nil
	},
}

// updateEndpointCmd represents the update endpoint command
var updateEndpointCmd = &cobra.Command{
	Use:   "update [endpoint-id]",
	Short: "Update an endpoint",
	Long: `Update an endpoint's URL, event subscriptions or active flag.
Reactivating a deactivated endpoint resets its failure streak.

Example:
  fxhookctl endpoint update ep_123 --active=true`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]interface{}{}
		if cmd.Flags().Changed("url") {
			url, _ := cmd.Flags().GetString("url")
			body["url"] = url
		}
		if cmd.Flags().Changed("events") {
			events, _ := cmd.Flags().GetStringSlice("events")
			body["events"] = events
		}
		if cmd.Flags().Changed("active") {
			active, _ := cmd.Flags().GetBool("active")
			body["active"] = active
		}
		if len(body) == 0 {
			return fmt.Errorf("nothing to update: pass --url, --events or --active")
		}

		var ep endpointView
		if err := doJSON("PATCH", "/v1/endpoints/"+args[0], body, &ep); err != nil {
			return fmt.Errorf("failed to update endpoint: %w", err)
		}
		if !outputJSON {
			fmt.Printf("Updated endpoint: %s\n", ep.ID)
			printEndpoint(ep)
		}
		return nil
	},
}

// deleteEndpointCmd represents the delete endpoint command
var deleteEndpointCmd = &cobra.Command{
	Use:   "delete [endpoint-id]",
	Short: "Remove an endpoint",
	Long:  `Remove an endpoint. Pending retries for it are cancelled where the queue backend allows.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doJSON("DELETE", "/v1/endpoints/"+args[0], nil, nil); err != nil {
			return fmt.Errorf("failed to delete endpoint: %w", err)
		}
		if !outputJSON {
			fmt.Printf("Deleted endpoint: %s\n", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(endpointCmd)
	endpointCmd.AddCommand(createEndpointCmd)
	endpointCmd.AddCommand(listEndpointsCmd)
	endpointCmd.AddCommand(getEndpointCmd)
	endpointCmd.AddCommand(updateEndpointCmd)
	endpointCmd.AddCommand(deleteEndpointCmd)

	// Flags for create endpoint
	createEndpointCmd.Flags().StringSlice("events", nil, "event types to subscribe to (comma separated)")
	createEndpointCmd.Flags().String("secret", "", "webhook secret (if not provided, one will be generated)")

	// Flags for update endpoint
	updateEndpointCmd.Flags().String("url", "", "new delivery URL")
	updateEndpointCmd.Flags().StringSlice("events", nil, "replacement event subscriptions")
	updateEndpointCmd.Flags().Bool("active", true, "activate or deactivate the endpoint")
}
