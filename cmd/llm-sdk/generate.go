package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	llm "github.com/ncecere/llm-sdk"
	"github.com/ncecere/llm-sdk/internal/config"
	"github.com/ncecere/llm-sdk/provider"
)

type generateFlags struct {
	model       string
	stop        []string
	asJSON      bool
	temperature float64
	maxTokens   int
	n           int
	bestOf      int
	logprobs    int
	batchSize   int
}

func generateCmd() *cobra.Command {
	var f generateFlags

	cmd := &cobra.Command{
		Use:   "generate [flags] PROMPT...",
		Short: "Generate completions for one or more prompts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := setup(ctx)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			name := f.model
			if name == "" {
				name = rt.cfg.DefaultModel
			}

			model, err := rt.registry.LLM(name)
			if err != nil {
				return err
			}
			if overrides := f.overrides(cmd); len(overrides) > 0 {
				spec, err := rt.spec(name)
				if err != nil {
					return err
				}
				for _, apply := range overrides {
					apply(&spec)
				}
				reg, err := config.BuildRegistry(rt.client, &config.Catalog{Models: []config.ModelSpec{spec}}, rt.middlewares...)
				if err != nil {
					return err
				}
				if model, err = reg.LLM(name); err != nil {
					return err
				}
			}

			res, err := llm.Generate(ctx, model, args, f.stop)
			if err != nil {
				return err
			}

			if f.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			renderResult(cmd.OutOrStdout(), args, res)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.model, "model", "m", "", "registered model name (defaults to LLM_SDK_DEFAULT_MODEL)")
	flags.StringSliceVar(&f.stop, "stop", nil, "stop sequence for this call, repeatable")
	flags.BoolVar(&f.asJSON, "json", false, "print the raw result as JSON")
	flags.Float64Var(&f.temperature, "temperature", 0, "override the sampling temperature")
	flags.IntVar(&f.maxTokens, "max-tokens", 0, "override max tokens; -1 fills the context window")
	flags.IntVar(&f.n, "n", 0, "override completions per prompt")
	flags.IntVar(&f.bestOf, "best-of", 0, "override server-side candidates per prompt")
	flags.IntVar(&f.logprobs, "logprobs", 0, "request log probabilities for the top K tokens")
	flags.IntVar(&f.batchSize, "batch-size", 0, "override prompts per request")
	return cmd
}

// overrides returns one setter per flag the user changed.
func (f *generateFlags) overrides(cmd *cobra.Command) []func(*config.ModelSpec) {
	var out []func(*config.ModelSpec)
	changed := cmd.Flags().Changed
	if changed("temperature") {
		v := f.temperature
		out = append(out, func(s *config.ModelSpec) { s.Temperature = &v })
	}
	if changed("max-tokens") {
		v := f.maxTokens
		out = append(out, func(s *config.ModelSpec) { s.MaxTokens = &v })
	}
	if changed("n") {
		v := f.n
		out = append(out, func(s *config.ModelSpec) { s.N = &v })
	}
	if changed("best-of") {
		v := f.bestOf
		out = append(out, func(s *config.ModelSpec) { s.BestOf = &v })
	}
	if changed("logprobs") {
		v := f.logprobs
		out = append(out, func(s *config.ModelSpec) { s.Logprobs = &v })
	}
	if changed("batch-size") {
		v := f.batchSize
		out = append(out, func(s *config.ModelSpec) { s.BatchSize = &v })
	}
	return out
}

func renderResult(w io.Writer, prompts []string, res *provider.LLMResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Prompt", "#", "Text", "Finish"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for i, gens := range res.Generations {
		prompt := ""
		if i < len(prompts) {
			prompt = prompts[i]
		}
		for j, g := range gens {
			table.Append([]string{prompt, strconv.Itoa(j), g.Text, g.FinishReason()})
		}
	}
	table.Render()

	if usage, ok := res.TokenUsage(); ok {
		fmt.Fprintf(w, "model=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d\n",
			res.ModelName(), usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
	}
}
