package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/diagram-rag/internal/runtime"
)

var (
	enrichPrompt      string
	enrichDiagramFile string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Print the enriched prompt for a diagram",
	Args:  cobra.NoArgs,
	RunE:  runEnrich,
}

func init() {
	enrichCmd.Flags().StringVarP(&enrichPrompt, "prompt", "p", "", "user prompt (required)")
	enrichCmd.Flags().StringVarP(&enrichDiagramFile, "diagram-file", "d", "", "BPMN or PNML file")
	_ = enrichCmd.MarkFlagRequired("prompt")
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, _ []string) error {
	var diagram string
	if enrichDiagramFile != "" {
		data, err := os.ReadFile(enrichDiagramFile)
		if err != nil {
			return fmt.Errorf("read diagram: %w", err)
		}
		diagram = string(data)
	}

	return withServices(cmd.Context(), func(svc *runtime.Services) error {
		enriched, err := svc.RAG.ProcessRAGRequest(cmd.Context(), enrichPrompt, diagram)
		if err != nil {
			return err
		}
		cmd.Println(enriched)
		return nil
	})
}
