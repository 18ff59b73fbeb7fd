package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/internal/config"
	"github.com/parley-ai/parley/internal/provider"
)

var modelsCmd = &cobra.Command{
	Use:   "models [provider]",
	Short: "List available models",
	Long: `List all models from configured providers.

Examples:
  parley models              # List all models
  parley models anthropic    # List only Anthropic models`,
	RunE: runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	workDir, err := os.Getwd()
	if err != nil {
		return err
	}

	appConfig, err := config.Load(workDir)
	if err != nil {
		return err
	}

	registry := provider.InitializeProviders(context.Background(), appConfig)

	var providerFilter string
	if len(args) > 0 {
		providerFilter = args[0]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tMODEL\tCONTEXT\tMAX OUTPUT\tFEATURES\t")

	for _, p := range registry.List() {
		if providerFilter != "" && p.ID() != providerFilter {
			continue
		}
		for _, model := range p.Models() {
			features := ""
			if model.SupportsTools {
				features += "tools "
			}
			if model.SupportsReasoning {
				features += "reasoning "
			}
			fmt.Fprintf(w, "%s\t%s\t%dk\t%d\t%s\t\n",
				p.ID(), model.ID, model.ContextLength/1000, model.MaxOutputTokens, features)
		}
	}
	return w.Flush()
}
