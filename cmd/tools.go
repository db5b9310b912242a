package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saker-ai/realtime-assistant/pkg/runtime"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List or invoke the assistant tools",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Print the tool definitions sent to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := runtime.Bootstrap(configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()

			registry, release, err := runtime.BuildTools(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer release()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(registry.Definitions())
		},
	}

	call := &cobra.Command{
		Use:   "call <name> [json-args]",
		Short: "Invoke a tool the way the model would",
		Example: `  realtime-assistant tools call get_grievance_status_def '{"grievance_id": 10042}'
  realtime-assistant tools call perform_search_based_qna '{"query": "exam dates"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := runtime.Bootstrap(configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()

			registry, release, err := runtime.BuildTools(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer release()

			raw := json.RawMessage("{}")
			if len(args) == 2 {
				raw = json.RawMessage(args[1])
			}
			res, err := registry.Invoke(cmd.Context(), args[0], raw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Output)
			if res.Degraded {
				fmt.Fprintf(cmd.ErrOrStderr(), "degraded after %s\n", res.Elapsed)
			}
			return nil
		},
	}

	cmd.AddCommand(list, call)
	return cmd
}
