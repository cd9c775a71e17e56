package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/diagram-rag/internal/config"
	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/services"
	"github.com/custodia-labs/diagram-rag/internal/runtime"
)

var (
	ingestSource string
	ingestJSON   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir|file]",
	Short: "Ingest PDF files into the index",
	Long: `Ingests one PDF or every PDF in a directory. Each file replaces all chunks
of its source, named after the file without extension unless --source is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "source prefix for a single file")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}

	if cfg.VectorStore == config.StoreMemory {
		logger.Warn("ingesting into the in-memory vector store; nothing is persisted after this command")
	}

	return withServices(cmd.Context(), func(svc *runtime.Services) error {
		if info.IsDir() {
			result, err := svc.Ingestion.IngestDirectory(cmd.Context(), path)
			if err != nil {
				return err
			}
			return printBatch(cmd, result)
		}

		source := ingestSource
		if source == "" {
			source = services.SourceIDFromPath(path)
		}
		n, err := svc.Ingestion.IngestDocument(cmd.Context(), source, path)
		if err != nil {
			return err
		}
		return printBatch(cmd, &domain.BatchResult{Succeeded: 1, Chunks: n, Errors: []domain.FileError{}})
	})
}

func printBatch(cmd *cobra.Command, result *domain.BatchResult) error {
	if ingestJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Ingested %d file(s), %d chunk(s), %d failed\n", result.Succeeded, result.Chunks, result.Failed)
	for _, fe := range result.Errors {
		cmd.Printf("  %s: %s\n", fe.File, fe.Error)
	}
	return nil
}
