// Command tripwise plans travel itineraries grounded in uploaded documents.
package main

import (
	"os"

	"github.com/custodia-labs/tripwise/internal/adapters/driving/cli"
	"github.com/custodia-labs/tripwise/internal/app"
)

func main() {
	cli.SetBootstrap(bootstrap)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration and wires the application.
func bootstrap(opts cli.Options) (*cli.Runtime, error) {
	cfg, err := app.LoadConfig(app.LoadOptions{
		ConfigFile: opts.ConfigFile,
		DataDir:    opts.DataDir,
	})
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}

	c, err := app.New(cfg)
	if err != nil {
		return nil, err
	}
	return &cli.Runtime{
		Services: cli.Services{
			Ingest:    c.Ingest,
			Documents: c.Documents,
			Itinerary: c.Itinerary,
			Questions: c.Questions,
			Readiness: c.Readiness,
			Checker:   c.Validator,
		},
		HTTPAddr:       cfg.HTTPAddr,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Close:          c.Close,
	}, nil
}
