package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/diagram-rag/internal/adapters/driven/auth"
	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/services"
)

var (
	tokenSubject string
	tokenRole    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an HS256 API token",
	Long:  `Signs a bearer token with JWT_SECRET for calling mutating API routes.`,
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "admin", "token subject")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(domain.RoleAdmin), "role: admin or reader")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	if !cfg.AuthEnabled() {
		return errors.New("JWT_SECRET is not set")
	}

	svc := services.NewAuthService(auth.NewAdapter(cfg.JWTSecret))
	token, err := svc.IssueToken(tokenSubject, domain.Role(tokenRole), tokenTTL)
	if err != nil {
		return err
	}
	cmd.Println(token)
	return nil
}
