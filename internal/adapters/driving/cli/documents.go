package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tripwise/internal/core/domain"
)

var documentsJSON bool

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List ingested documents",
	Args:    cobra.NoArgs,
	RunE:    runDocuments,
}

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every document, chunk and vector",
	Long: `Deletes the whole corpus: document metadata, chunks and the vector index.
Cached itineraries are forgotten too. Requires --force.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	documentsCmd.Flags().BoolVar(&documentsJSON, "json", false, "output documents as JSON")
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "confirm the reset")
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(resetCmd)
}

func runDocuments(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentsJSON {
		if docs == nil {
			docs = []domain.DocumentSummary{}
		}
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		d := &docs[i]
		cmd.Printf("  %s\n", d.Name)
		cmd.Printf("    ID: %s\n", d.ID)
		cmd.Printf("    Format: %s, %s, %d chunks\n", d.Format, formatSize(d.Size), d.Chunks)
		if !d.UploadedAt.IsZero() {
			cmd.Printf("    Uploaded: %s\n", d.UploadedAt.Local().Format("2006-01-02 15:04"))
		}
		cmd.Println()
	}
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runReset(cmd *cobra.Command, _ []string) error {
	if !resetForce {
		return errors.New("reset deletes every ingested document; rerun with --force to confirm")
	}
	if err := requireServices(); err != nil {
		return err
	}
	if documentService == nil {
		return errors.New("document service not configured")
	}

	if err := documentService.Reset(cmd.Context()); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	cmd.Println("Corpus reset.")
	return nil
}
