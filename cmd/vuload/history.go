package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/torosent/vuload/internal/history"
)

func newHistoryCommand(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect saved runs",
	}
	cmd.PersistentFlags().String("history-file", "", "Path to the history database (default ~/.vuload/history.db)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openHistory(cmd)
			if err != nil {
				return err
			}
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return err
			}
			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return history.WriteTable(stdout, records)
		},
	}
	list.Flags().IntP("limit", "n", 20, "Maximum number of runs to list (0 for all)")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved run as YAML",
		Long:  "Show a saved run. The id may be any unique prefix of the run id.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(cmd)
			if err != nil {
				return err
			}
			rec, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}
			return history.WriteYAML(stdout, rec)
		},
	}
	show.Flags().Bool("json", false, "Print JSON instead of YAML")

	cmd.AddCommand(list, show)
	return cmd
}

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	path, err := cmd.Flags().GetString("history-file")
	if err != nil {
		return nil, err
	}
	return history.Open(strings.TrimSpace(path))
}
