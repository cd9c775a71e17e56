package driven

import "github.com/custodia-labs/diagram-rag/internal/core/domain"

// TokenVerifier signs and validates API bearer tokens.
type TokenVerifier interface {
	GenerateToken(claims *domain.TokenClaims) (string, error)
	ParseToken(token string) (*domain.TokenClaims, error)
}
