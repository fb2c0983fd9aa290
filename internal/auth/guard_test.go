package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/raffle-service/internal/domain"
	"github.com/spec-kit/raffle-service/internal/repository"
	apperrors "github.com/spec-kit/raffle-service/pkg/util"
)

// stubAccounts serves a fixed set of accounts and counts writes so tests can
// prove the guard never persists anything.
type stubAccounts struct {
	byID    map[string]*domain.StaffAccount
	getErr  error
	updates int
}

func (s *stubAccounts) Create(ctx context.Context, account *domain.StaffAccount) error { return nil }

func (s *stubAccounts) Update(ctx context.Context, account *domain.StaffAccount) error {
	s.updates++
	return nil
}

func (s *stubAccounts) GetByID(ctx context.Context, id string) (*domain.StaffAccount, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	account, ok := s.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *account
	return &copied, nil
}

func (s *stubAccounts) GetByEmail(ctx context.Context, email string) (*domain.StaffAccount, error) {
	return nil, pgx.ErrNoRows
}

func (s *stubAccounts) List(ctx context.Context, filter repository.AccountFilter) ([]domain.StaffAccount, error) {
	return nil, nil
}

func newGuardHarness(t *testing.T, accounts ...*domain.StaffAccount) (*Guard, *TokenManager, *stubAccounts) {
	t.Helper()
	store := &stubAccounts{byID: map[string]*domain.StaffAccount{}}
	for _, account := range accounts {
		store.byID[account.ID] = account
	}
	tm := NewTokenManager("test-secret", 60)
	return NewGuard(tm, store), tm, store
}

func issueToken(t *testing.T, tm *TokenManager, account *domain.StaffAccount) string {
	t.Helper()
	token, _, err := tm.GenerateToken(account)
	require.NoError(t, err)
	return token
}

func guardCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	return domainErr.Code
}

func liveAccount(id string, role domain.StaffRole) *domain.StaffAccount {
	return &domain.StaffAccount{
		ID:           id,
		Email:        id + "@example.org",
		Role:         role,
		Status:       domain.AccountStatusApproved,
		Active:       true,
		ValidityDays: 30,
		CreatedAt:    time.Now(),
	}
}

func TestAuthorize_MissingToken(t *testing.T) {
	guard, _, _ := newGuardHarness(t)

	_, err := guard.Authorize(context.Background(), "", "")
	assert.Equal(t, "AUTH_REQUIRED", guardCode(t, err))

	_, err = guard.Authorize(context.Background(), "   ", "")
	assert.Equal(t, "AUTH_REQUIRED", guardCode(t, err))
}

func TestAuthorize_MalformedToken(t *testing.T) {
	guard, _, _ := newGuardHarness(t)

	_, err := guard.Authorize(context.Background(), "not-a-jwt", "")
	assert.Equal(t, "AUTH_REQUIRED", guardCode(t, err))
}

func TestAuthorize_WrongSecret(t *testing.T) {
	account := liveAccount("acc-1", domain.StaffRoleStaff)
	guard, _, _ := newGuardHarness(t, account)

	foreign := NewTokenManager("other-secret", 60)
	_, err := guard.Authorize(context.Background(), issueToken(t, foreign, account), "")
	assert.Equal(t, "AUTH_REQUIRED", guardCode(t, err))
}

func TestAuthorize_UnknownAccount(t *testing.T) {
	guard, tm, _ := newGuardHarness(t)

	token := issueToken(t, tm, &domain.StaffAccount{ID: "ghost"})
	_, err := guard.Authorize(context.Background(), token, "")
	assert.Equal(t, "UNAUTHORIZED", guardCode(t, err))
}

func TestAuthorize_LifecycleGates(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*domain.StaffAccount)
		wantCode string
	}{
		{"pending", func(a *domain.StaffAccount) { a.Status = domain.AccountStatusPending }, "ACCOUNT_PENDING"},
		{"disabled", func(a *domain.StaffAccount) { a.Status = domain.AccountStatusDisabled }, "ACCOUNT_DISABLED"},
		{"rejected", func(a *domain.StaffAccount) { a.Status = domain.AccountStatusRejected }, "ACCOUNT_DISABLED"},
		{"inactive", func(a *domain.StaffAccount) { a.Active = false }, "ACCOUNT_DISABLED"},
		{"expired", func(a *domain.StaffAccount) { a.Status = domain.AccountStatusExpired }, "ACCOUNT_EXPIRED"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			account := liveAccount("acc-1", domain.StaffRoleStaff)
			tc.mutate(account)
			guard, tm, _ := newGuardHarness(t, account)

			_, err := guard.Authorize(context.Background(), issueToken(t, tm, account), "")
			assert.Equal(t, tc.wantCode, guardCode(t, err))
		})
	}
}

// A stored APPROVED account whose validity window has lapsed on the clock
// still passes: only login moves accounts to EXPIRED, the guard trusts the
// stored status and never writes.
func TestAuthorize_LapsedApprovedPasses(t *testing.T) {
	account := liveAccount("acc-1", domain.StaffRoleStaff)
	account.CreatedAt = time.Now().AddDate(0, 0, -90)
	guard, tm, store := newGuardHarness(t, account)

	got, err := guard.Authorize(context.Background(), issueToken(t, tm, account), "")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", got.ID)
	assert.Equal(t, domain.AccountStatusApproved, got.Status)
	assert.Zero(t, store.updates)
}

func TestAuthorize_RoleGates(t *testing.T) {
	staff := liveAccount("acc-staff", domain.StaffRoleStaff)
	admin := liveAccount("acc-admin", domain.StaffRoleAdmin)
	guard, tm, _ := newGuardHarness(t, staff, admin)

	_, err := guard.Authorize(context.Background(), issueToken(t, tm, staff), domain.StaffRoleAdmin)
	assert.Equal(t, "INSUFFICIENT_ROLE", guardCode(t, err))

	got, err := guard.Authorize(context.Background(), issueToken(t, tm, admin), domain.StaffRoleStaff)
	require.NoError(t, err)
	assert.Equal(t, "acc-admin", got.ID)

	_, err = guard.Authorize(context.Background(), issueToken(t, tm, staff), domain.StaffRoleStaff)
	assert.NoError(t, err)

	_, err = guard.Authorize(context.Background(), issueToken(t, tm, staff), "")
	assert.NoError(t, err)
}

func TestAuthorize_StoreError(t *testing.T) {
	account := liveAccount("acc-1", domain.StaffRoleStaff)
	guard, tm, store := newGuardHarness(t, account)
	store.getErr = errors.New("connection refused")

	_, err := guard.Authorize(context.Background(), issueToken(t, tm, account), "")
	assert.Equal(t, "SERVER_ERROR", guardCode(t, err))
}
