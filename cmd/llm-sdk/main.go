package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "llm-sdk",
	Short: "Run prompts through OpenAI text-completion models",
	Long: `llm-sdk sends prompts to the OpenAI /v1/completions endpoint.

Models are read from the catalog named by LLM_SDK_MODELS_FILE. Without one,
LLM_SDK_DEFAULT_MODEL is served under its own name.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(generateCmd(), serveCmd(), modelsCmd(), versionCmd(), envCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
