package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/torosent/vuload/internal/config"
)

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "vuload",
		Short: "Closed-model HTTP load generator",
		Long: `vuload runs a fixed pool of virtual users against an HTTP endpoint.
Each iteration samples an id, issues one GET to the target template and
evaluates the configured checks. Running vuload without a subcommand is
the same as "vuload run".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFromFlags(cmd, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	config.RegisterFlags(root)

	root.AddCommand(newRunCommand(stdout, stderr))
	root.AddCommand(newHistoryCommand(stdout))
	return root
}

func newRunCommand(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a load test",
		Example: `  vuload run
  vuload run --vus 10 --duration 1m --target 'http://localhost:8000/events/{id}'
  vuload run --config run.yaml --threshold 'http_req_duration:p95 < 500'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFromFlags(cmd, stdout, stderr)
		},
	}
	config.RegisterFlags(cmd)
	return cmd
}

func runFromFlags(cmd *cobra.Command, stdout, stderr io.Writer) error {
	cfg, err := config.NewLoader().Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, w := range cfg.Warnings() {
		fmt.Fprintf(stderr, "[vuload] WARNING: %s\n", w)
	}
	return runLoad(cmd.Context(), *cfg, stdout, stderr)
}
