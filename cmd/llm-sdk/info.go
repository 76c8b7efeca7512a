package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/earthboundkid/versioninfo/v2"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ncecere/llm-sdk/internal/config"
)

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := setup(ctx)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Name", "Type", "Params"})
			table.SetAutoWrapText(false)
			table.SetAlignment(tablewriter.ALIGN_LEFT)

			for _, name := range rt.registry.Names() {
				m, err := rt.registry.LLM(name)
				if err != nil {
					continue
				}
				var params map[string]any
				if id, ok := m.(interface{ IdentifyingParams() map[string]any }); ok {
					params = id.IdentifyingParams()
				}
				table.Append([]string{name, m.Type(), formatParams(params)})
			}
			table.Render()
			return nil
		},
	}
}

func formatParams(params map[string]any) string {
	var out string
	for i, k := range slices.Sorted(maps.Keys(params)) {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%v", k, params[k])
	}
	return out
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versioninfo.Short())
			if versioninfo.Revision != "unknown" {
				fmt.Fprintf(cmd.OutOrStdout(), "revision %s (%s)\n", versioninfo.Revision, versioninfo.LastCommit.Format("2006-01-02"))
			}
		},
	}
}

func envCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Describe the environment variables read at startup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Usage()
		},
	}
}
