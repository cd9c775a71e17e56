package cli

import (
	"github.com/spf13/cobra"

	httpserver "github.com/custodia-labs/diagram-rag/internal/adapters/driving/http"
	"github.com/custodia-labs/diagram-rag/internal/config"
	"github.com/custodia-labs/diagram-rag/internal/runtime"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Starts the REST API. When PDF_DIRECTORY is set its files are ingested
before the listener starts; ingestion failures are logged and never stop the server.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	return withServices(ctx, func(svc *runtime.Services) error {
		svc.Config.Version = version

		if cfg.VectorStore == config.StoreMemory {
			logger.Warn("using the in-memory vector store; the index is lost on restart")
		}

		if cfg.PDFDirectory != "" {
			result, err := svc.Ingestion.LoadStartupDocuments(ctx)
			if err != nil {
				logger.Error("startup ingestion failed", "directory", cfg.PDFDirectory, "error", err)
			} else {
				svc.Metrics.RecordIngestion(result.Succeeded, result.Failed, result.Chunks)
			}
		} else {
			logger.Info("PDF_DIRECTORY not set, skipping startup ingestion")
		}

		server := httpserver.NewServer(
			httpserver.Config{
				Host:           cfg.Host,
				Port:           cfg.Port,
				Version:        version,
				MaxUploadBytes: cfg.MaxUploadBytes(),
				PDFDirectory:   cfg.PDFDirectory,
				Logger:         logger,
			},
			svc.RAG,
			svc.Documents,
			svc.Ingestion,
			svc.Auth,
			svc.Metrics,
			httpserver.PingerFunc(svc.Ready),
			svc.Config,
		)
		return server.Start(ctx)
	})
}
