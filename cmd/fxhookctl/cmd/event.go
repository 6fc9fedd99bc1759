package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// eventCmd represents the event command
var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Publish events and list event types",
}

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish [event-type] [payload-json]",
	Short: "Publish an event to all subscribed endpoints",
	Long: `Publish an event with a JSON payload. Delivery is fire-and-forget:
the command returns once deliveries are scheduled, not delivered.

Example:
  fxhookctl event publish user.registered '{"user_id":"u_42","email":"a@b.c"}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eventType := args[0]
		payloadJSON := args[1]

		if !json.Valid([]byte(payloadJSON)) {
			return fmt.Errorf("invalid payload JSON")
		}

		body := map[string]interface{}{
			"event": eventType,
			"data":  json.RawMessage(payloadJSON),
		}

		var resp struct {
			Event     string `json:"event"`
			Scheduled int    `json:"deliveries_scheduled"`
		}
		if err := doJSON("POST", "/v1/events", body, &resp); err != nil {
			return fmt.Errorf("failed to publish event: %w", err)
		}

		if !outputJSON {
			fmt.Printf("Published event: %s\n", resp.Event)
			fmt.Printf("  Deliveries scheduled: %d\n", resp.Scheduled)
		}
		return nil
	},
}

// eventTypesCmd represents the types command
var eventTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the known event types",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			EventTypes []string `json:"event_types"`
		}
		if err := doJSON("GET", "/v1/event-types", nil, &resp); err != nil {
			return fmt.Errorf("failed to list event types: %w", err)
		}
		if !outputJSON {
			for _, et := range resp.EventTypes {
				fmt.Println(et)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventCmd)
	eventCmd.AddCommand(publishCmd)
	eventCmd.AddCommand(eventTypesCmd)
}
