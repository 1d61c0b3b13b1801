package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tripwise/internal/core/domain"
)

var (
	planDestination string
	planDays        int
	planPreferences string
	planJSON        bool
	planWait        bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate a travel itinerary",
	Long: `Generates a day-by-day itinerary for a destination, grounded in the
ingested documents. The command waits for the model backend to be ready
unless --wait=false is given.`,
	Example: `  tripwise plan --destination Tokyo --days 3
  tripwise plan -d Lisbon -n 2 -p "wheelchair accessible, seafood" --json`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planDestination, "destination", "d", "", "destination city or region")
	planCmd.Flags().IntVarP(&planDays, "days", "n", 3, "trip length in days")
	planCmd.Flags().StringVarP(&planPreferences, "preferences", "p", "", "free-text traveller preferences")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "output the full result as JSON")
	planCmd.Flags().BoolVar(&planWait, "wait", true, "wait for the model backend before generating")
	_ = planCmd.MarkFlagRequired("destination")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	if itineraryService == nil {
		return errors.New("itinerary service not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if planWait && readinessGate != nil {
		if _, err := readinessGate.Ensure(ctx); err != nil {
			return fmt.Errorf("model backend: %w", err)
		}
	}

	result, err := itineraryService.Generate(ctx, domain.ItineraryRequest{
		Destination:  planDestination,
		DurationDays: planDays,
		Preferences:  planPreferences,
	})
	if err != nil {
		return err
	}

	if planJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal itinerary: %w", err)
		}
		cmd.Println(string(data))
	} else {
		printItinerary(cmd, result)
	}

	if result.Status == domain.StatusError {
		return errors.New(result.Message)
	}
	return nil
}

func printItinerary(cmd *cobra.Command, result *domain.ItineraryResult) {
	switch result.Status {
	case domain.StatusProcessing:
		cmd.Println(result.Message)
		return
	case domain.StatusError:
		return
	}

	cmd.Println(result.Markdown)
	if len(result.Sources) == 0 {
		cmd.Println()
		cmd.Println("No reference documents were used.")
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, s := range result.Sources {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, s.Name, s.Score)
	}
}
