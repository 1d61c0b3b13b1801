package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tripwise/internal/core/domain"
)

var (
	askFilters []string
	askJSON    bool
	askWait    bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the ingested documents",
	Long: `Answers a free-form question from the ingested documents. Use --filter
to restrict the search to matching documents; repeating a key matches any
of its values.`,
	Example: `  tripwise ask "When is the Louvre closed?"
  tripwise ask "Where can I eat late?" --filter filename=paris.txt --filter filename=lyon.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringArrayVarP(&askFilters, "filter", "f", nil, "restrict to documents with key=value (repeatable)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the full answer as JSON")
	askCmd.Flags().BoolVar(&askWait, "wait", true, "wait for the model backend before answering")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	filter, err := parseFilters(askFilters)
	if err != nil {
		return err
	}
	if err := requireServices(); err != nil {
		return err
	}
	if questionService == nil {
		return errors.New("question service not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if askWait && readinessGate != nil {
		if _, err := readinessGate.Ensure(ctx); err != nil {
			return fmt.Errorf("model backend: %w", err)
		}
	}

	answer, err := questionService.Ask(ctx, domain.Question{
		Text:   strings.Join(args, " "),
		Filter: filter,
	})
	if err != nil {
		return err
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
	} else {
		printAnswer(cmd, answer)
	}

	if answer.Status == domain.StatusError {
		return errors.New(answer.Message)
	}
	return nil
}

// parseFilters turns key=value flags into a filter. A key given more than
// once matches any of its values.
func parseFilters(flags []string) (domain.MetadataFilter, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	filter := make(domain.MetadataFilter, len(flags))
	for _, f := range flags {
		key, value, ok := strings.Cut(f, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q: expected key=value", f)
		}
		value = strings.TrimSpace(value)
		switch prev := filter[key].(type) {
		case nil:
			filter[key] = value
		case []any:
			filter[key] = append(prev, value)
		default:
			filter[key] = []any{prev, value}
		}
	}
	return filter, nil
}

func printAnswer(cmd *cobra.Command, answer *domain.Answer) {
	switch answer.Status {
	case domain.StatusProcessing:
		cmd.Println(answer.Message)
		return
	case domain.StatusError:
		return
	}

	cmd.Println(answer.Answer)
	if len(answer.Sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, s := range answer.Sources {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, s.Name, s.Score)
	}
}
