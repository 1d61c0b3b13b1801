package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tripwise/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/tripwise/internal/logger"
)

// shutdownTimeout bounds how long in-flight requests may run after a signal.
const shutdownTimeout = 10 * time.Second

var (
	serveAddr       string
	serveWaitForLLM bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Starts the HTTP API. By default the server waits until the Ollama backend
answers and the configured models are installed (pulling them if needed)
before it listens. With --wait-for-backend=false it listens at once and
itinerary requests report status "processing" until the backend is ready.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default HTTP_ADDR or :8000)")
	serveCmd.Flags().BoolVar(&serveWaitForLLM, "wait-for-backend", true, "wait for the model backend before listening")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if readinessGate != nil {
		if serveWaitForLLM {
			logger.Info("waiting for the model backend")
			state, err := readinessGate.Ensure(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			logger.Info("model backend %s", state)
		} else {
			go func() {
				if state, err := readinessGate.Ensure(ctx); err == nil {
					logger.Info("model backend %s", state)
				}
			}()
		}
	}

	addr := serveAddr
	if addr == "" {
		addr = httpAddr
	}
	srv := httpapi.New(httpapi.Services{
		Ingest:    ingestService,
		Documents: documentService,
		Itinerary: itineraryService,
		Questions: questionService,
		Readiness: readinessGate,
	}, httpapi.WithMaxUploadBytes(maxUploadBytes))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
