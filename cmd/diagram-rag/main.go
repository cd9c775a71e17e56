package main

// @title           diagram-rag API
// @version         1.0
// @description     Retrieval support for process diagram prompts. Indexes PDF documents and enriches prompts about BPMN and PNML diagrams with retrieved context.

// @contact.name   Custodia Labs
// @contact.url    https://github.com/custodia-labs/diagram-rag/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/diagram-rag/internal/adapters/driving/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(context.Background(), version); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
