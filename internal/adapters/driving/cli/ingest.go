package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tripwise/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files or directories...]",
	Short: "Ingest reference documents",
	Long: `Extracts, chunks, embeds and indexes the given files. Directories are
walked recursively. Each file succeeds or fails on its own; files that
cannot be ingested are listed with the reason.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	uploads, unreadable := collectUploads(args)
	for _, sk := range unreadable {
		cmd.Printf("  skipped %s: %s\n", sk.Name, sk.Reason)
	}
	if len(uploads) == 0 {
		return errors.New("no readable files")
	}

	result, err := ingestService.IngestBatch(cmd.Context(), uploads)
	if result != nil {
		for i := range result.Ingested {
			d := &result.Ingested[i]
			cmd.Printf("  ingested %s (%s, %d chunks)\n", d.Name, formatSize(d.Size), d.Chunks)
		}
		for _, sk := range result.Skipped {
			cmd.Printf("  skipped %s: %s\n", sk.Name, sk.Reason)
		}
	}
	if err != nil {
		if errors.Is(err, domain.ErrNoValidFiles) {
			return errors.New("no valid files were ingested")
		}
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("\nIngested %d of %d files.\n", len(result.Ingested), len(uploads)+len(unreadable))
	return nil
}

// collectUploads reads every file named by paths, walking directories.
// Files that cannot be read are returned as skipped.
func collectUploads(paths []string) ([]domain.Upload, []domain.SkippedFile) {
	var uploads []domain.Upload
	var skipped []domain.SkippedFile

	add := func(path string) {
		content, err := os.ReadFile(path)
		if err != nil {
			skipped = append(skipped, domain.SkippedFile{Name: path, Reason: "cannot read file", Err: err})
			return
		}
		uploads = append(uploads, domain.Upload{Filename: filepath.Base(path), Content: content})
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			skipped = append(skipped, domain.SkippedFile{Name: root, Reason: "not found", Err: err})
			continue
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				skipped = append(skipped, domain.SkippedFile{Name: path, Reason: "cannot read directory", Err: err})
				return nil
			}
			if d.IsDir() {
				if path != root && len(d.Name()) > 1 && d.Name()[0] == '.' {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Name()[0] == '.' {
				return nil
			}
			add(path)
			return nil
		})
	}
	return uploads, skipped
}

// formatSize renders a byte count for humans.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
