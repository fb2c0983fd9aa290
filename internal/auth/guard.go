package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/raffle-service/internal/domain"
	"github.com/spec-kit/raffle-service/internal/repository"
	apperrors "github.com/spec-kit/raffle-service/pkg/util"
)

// Guard is the authorization chokepoint: every protected action resolves its
// caller here before touching state.
type Guard struct {
	tokens   *TokenManager
	accounts repository.AccountRepository
}

// NewGuard constructs the guard.
func NewGuard(tokens *TokenManager, accounts repository.AccountRepository) *Guard {
	return &Guard{tokens: tokens, accounts: accounts}
}

// BearerToken extracts the token from an Authorization header value.
// Returns "" when the header is absent or not a bearer scheme.
func BearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Authorize resolves the bearer token to a stored account and enforces the
// lifecycle and role gates. An empty requiredRole admits any live account.
// The stored status alone decides the gates; expiry is never computed or
// persisted here, login owns that transition.
func (g *Guard) Authorize(ctx context.Context, bearerToken string, requiredRole domain.StaffRole) (*domain.StaffAccount, error) {
	token := strings.TrimSpace(bearerToken)
	if token == "" {
		return nil, apperrors.NewAuthRequired("missing bearer token")
	}

	claims, err := g.tokens.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewAuthRequired("invalid or expired token")
	}

	account, err := g.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("account not found")
		}
		return nil, apperrors.MapError(err)
	}

	if account.Status == domain.AccountStatusPending {
		return nil, apperrors.NewAccountPending()
	}
	if account.Status == domain.AccountStatusDisabled || account.Status == domain.AccountStatusRejected || !account.Active {
		return nil, apperrors.NewAccountDisabled()
	}
	if account.Status == domain.AccountStatusExpired {
		return nil, apperrors.NewAccountExpired(account.ValidUntil())
	}

	if requiredRole != "" && !account.HasRole(requiredRole) {
		return nil, apperrors.NewInsufficientRole(string(requiredRole))
	}
	return account, nil
}
