package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// deliveryCmd represents the delivery command
var deliveryCmd = &cobra.Command{
	Use:   "delivery",
	Short: "Inspect recent webhook deliveries",
}

// deliveryEntry mirrors the API's delivery log record.
type deliveryEntry struct {
	ID         string `json:"id"`
	TaskID     string `json:"task_id"`
	EndpointID string `json:"endpoint_id"`
	EventType  string `json:"event_type"`
	URL        string `json:"url"`
	Status     string `json:"status"`
	Attempt    int    `json:"attempt"`
	HTTPStatus int    `json:"http_status,omitempty"`
	Error      string `json:"error,omitempty"`
	Reason     string `json:"reason,omitempty"`
	At         string `json:"at"`
}

// listDeliveriesCmd represents the list deliveries command
var listDeliveriesCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent delivery attempts, newest first",
	Long: `List recent delivery attempts from the in-memory delivery log.

Example:
  fxhookctl delivery list --limit 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		path := "/v1/deliveries"
		if limit > 0 {
			path += "?limit=" + strconv.Itoa(limit)
		}

		var resp struct {
			Deliveries []deliveryEntry `json:"deliveries"`
			Count      int             `json:"count"`
		}
		if err := doJSON("GET", path, nil, &resp); err != nil {
			return fmt.Errorf("failed to list deliveries: %w", err)
		}

		if !outputJSON {
			fmt.Printf("%d delivery attempt(s)\n", resp.Count)
			for _, d := range resp.Deliveries {
				line := fmt.Sprintf("  %s  %-9s  attempt %d  %s -> %s", d.At, d.Status, d.Attempt, d.EventType, d.URL)
				if d.HTTPStatus != 0 {
					line += fmt.Sprintf("  (HTTP %d)", d.HTTPStatus)
				}
				if d.Reason != "" {
					line += "  " + d.Reason
				}
				fmt.Println(line)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deliveryCmd)
	deliveryCmd.AddCommand(listDeliveriesCmd)

	listDeliveriesCmd.Flags().Int("limit", 0, "maximum entries to return (0 = server default)")
}
