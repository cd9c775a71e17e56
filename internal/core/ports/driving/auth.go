package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
)

// AuthService validates API callers
type AuthService interface {
	// ValidateToken validates a bearer token and returns the caller
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)

	// IssueToken mints a token for subject with the given role
	IssueToken(subject string, role domain.Role, ttl time.Duration) (string, error)
}
