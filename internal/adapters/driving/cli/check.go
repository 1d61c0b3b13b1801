package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the embedding and generation backends are reachable",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	if backendChecker == nil {
		return errors.New("backend checker not configured")
	}

	checks, err := backendChecker.ValidateAll(cmd.Context())
	for _, c := range checks {
		if c.OK() {
			cmd.Printf("  ok    %-10s %s\n", c.Name, c.Target)
			continue
		}
		cmd.Printf("  FAIL  %-10s %s: %v\n", c.Name, c.Target, c.Err)
	}
	if err != nil {
		return errors.New("one or more backends are unreachable")
	}
	cmd.Println("All backends reachable.")
	return nil
}
