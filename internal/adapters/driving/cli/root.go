// Package cli implements the tripwise command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tripwise/internal/adapters/driven/ai"
	"github.com/custodia-labs/tripwise/internal/core/ports/driving"
	"github.com/custodia-labs/tripwise/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=1.2.3".
var version = "dev"

// Global flags.
var (
	verbose    bool
	configFile string
	dataDir    string
)

// BackendChecker pings the model backends.
type BackendChecker interface {
	ValidateAll(ctx context.Context) ([]ai.Check, error)
}

// Services are the core ports the commands drive.
type Services struct {
	Ingest    driving.IngestService
	Documents driving.DocumentService
	Itinerary driving.ItineraryService
	Questions driving.QuestionService
	Readiness driving.ReadinessGate
	Checker   BackendChecker
}

// Runtime is what a Bootstrap produces.
type Runtime struct {
	Services

	// HTTPAddr is the default listen address for serve.
	HTTPAddr string

	// MaxUploadBytes is the per-file upload limit.
	MaxUploadBytes int64

	// Close releases the runtime's resources.
	Close func() error
}

// Options carries the global flags to a Bootstrap.
type Options struct {
	ConfigFile string
	DataDir    string
	Verbose    bool
}

// Bootstrap builds the runtime from the global flags.
type Bootstrap func(opts Options) (*Runtime, error)

// Service instances, set by SetServices or built lazily by the bootstrap.
var (
	ingestService    driving.IngestService
	documentService  driving.DocumentService
	itineraryService driving.ItineraryService
	questionService  driving.QuestionService
	readinessGate    driving.ReadinessGate
	backendChecker   BackendChecker

	httpAddr       = ":8000"
	maxUploadBytes int64

	bootstrap Bootstrap
	active    *Runtime
)

var rootCmd = &cobra.Command{
	Use:   "tripwise",
	Short: "Grounded travel itineraries from your own documents",
	Long: `Tripwise ingests travel documents (PDF, DOCX, HTML, Markdown, text),
indexes them for semantic retrieval and asks a local Ollama model for
day-by-day itineraries grounded in what you uploaded.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./tripwise.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (overrides INDEX_DIR)")
}

// SetServices injects the services directly, bypassing the bootstrap.
func SetServices(s Services) {
	ingestService = s.Ingest
	documentService = s.Documents
	itineraryService = s.Itinerary
	questionService = s.Questions
	readinessGate = s.Readiness
	backendChecker = s.Checker
}

// SetBootstrap registers the function that builds services on first use.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// requireServices runs the bootstrap once if no services were injected.
func requireServices() error {
	if active != nil || ingestService != nil {
		return nil
	}
	if bootstrap == nil {
		return errors.New("services not configured")
	}

	rt, err := bootstrap(Options{ConfigFile: configFile, DataDir: dataDir, Verbose: verbose})
	if err != nil {
		return err
	}
	active = rt
	SetServices(rt.Services)
	if rt.HTTPAddr != "" {
		httpAddr = rt.HTTPAddr
	}
	maxUploadBytes = rt.MaxUploadBytes
	return nil
}

// closeRuntime releases whatever the bootstrap opened.
func closeRuntime() {
	if active == nil || active.Close == nil {
		return
	}
	if err := active.Close(); err != nil {
		logger.Warn("shutdown: %v", err)
	}
	active = nil
}

// Execute runs the root command.
func Execute() error {
	defer closeRuntime()
	return rootCmd.Execute()
}
