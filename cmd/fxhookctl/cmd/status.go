package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show subsystem statistics",
	Long:  `Show endpoint counts and cumulative delivery outcomes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var st struct {
			TotalEndpoints   int    `json:"total_endpoints"`
			ActiveEndpoints  int    `json:"active_endpoints"`
			TotalEvents      uint64 `json:"total_events"`
			SuccessfulEvents uint64 `json:"successful_events"`
			FailedEvents     uint64 `json:"failed_events"`
		}
		if err := doJSON("GET", "/v1/stats", nil, &st); err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		if !outputJSON {
			fmt.Printf("Endpoints: %d total, %d active\n", st.TotalEndpoints, st.ActiveEndpoints)
			fmt.Printf("Deliveries: %d total, %d succeeded, %d failed\n",
				st.TotalEvents, st.SuccessfulEvents, st.FailedEvents)
		}
		return nil
	},
}

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the fxhooks service",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := makeRequest("GET", "/healthz", nil)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == 200 {
			fmt.Println("✓ Service is healthy")
		} else {
			fmt.Printf("✗ Service is unhealthy (HTTP %d)\n", resp.StatusCode)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(healthCmd)
}
