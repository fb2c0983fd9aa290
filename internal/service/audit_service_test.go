package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/raffle-service/internal/domain"
	"github.com/spec-kit/raffle-service/internal/events"
)

// fakeAuditRepo collects audit entries in memory.
type fakeAuditRepo struct {
	mu        sync.Mutex
	entries   []domain.AuditEntry
	createErr error
}

func (f *fakeAuditRepo) Create(_ context.Context, entry *domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) ListRecent(_ context.Context, limit int) ([]domain.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := append([]domain.AuditEntry(nil), f.entries...)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeAuditRepo) all() []domain.AuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.AuditEntry(nil), f.entries...)
}

func newAuditHarness(t *testing.T) (events.Dispatcher, *fakeAuditRepo) {
	t.Helper()
	repo := &fakeAuditRepo{}
	bus := events.NewInMemoryDispatcher()
	svc := NewAuditService(AuditDependencies{Dispatcher: bus, AuditRepo: repo})
	svc.RegisterHandlers()
	return bus, repo
}

func TestAudit_RecordsAccountEvents(t *testing.T) {
	bus, repo := newAuditHarness(t)

	require.NoError(t, bus.Publish(context.Background(), events.Event{
		Type:    events.EventAccountRegistered,
		Payload: events.AccountRegisteredPayload{Email: "seller@example.org", Name: "Sam"},
	}))
	require.NoError(t, bus.Publish(context.Background(), events.Event{
		Type: events.EventAccountDecided,
		Payload: events.AccountDecidedPayload{
			Email:    "seller@example.org",
			Decision: DecisionApprove,
			Status:   domain.AccountStatusApproved,
		},
	}))

	entries := repo.all()
	require.Len(t, entries, 2)

	assert.Equal(t, "account_registered", entries[0].EventType)
	assert.Equal(t, "seller@example.org", entries[0].Subject)
	assert.Equal(t, "Sam", entries[0].Detail["name"])

	assert.Equal(t, "account_decided", entries[1].EventType)
	assert.Equal(t, "seller@example.org", entries[1].Subject)
	assert.Equal(t, "approve", entries[1].Detail["decision"])
	assert.Equal(t, "APPROVED", entries[1].Detail["status"])
}

func TestAudit_RecordsTicketSale(t *testing.T) {
	bus, repo := newAuditHarness(t)

	require.NoError(t, bus.Publish(context.Background(), events.Event{
		Type:    events.EventTicketSold,
		Payload: events.TicketSoldPayload{Number: 7, BuyerName: "Anna", SoldBy: "seller@example.org"},
	}))

	entries := repo.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "ticket_sold", entries[0].EventType)
	assert.Equal(t, "7", entries[0].Subject)
	assert.Equal(t, "Anna", entries[0].Detail["buyerName"])
	assert.Equal(t, "seller@example.org", entries[0].Detail["soldBy"])
}

// The trail must never hold a usable reset code, and the address is masked.
func TestAudit_MasksOTPEvents(t *testing.T) {
	bus, repo := newAuditHarness(t)

	require.NoError(t, bus.Publish(context.Background(), events.Event{
		Type: events.EventOTPRequested,
		Payload: events.OTPRequestedPayload{
			Email:     "seller@example.org",
			OTP:       "123456",
			ExpiresAt: time.Now().Add(10 * time.Minute),
		},
	}))

	entries := repo.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "se****@example.org", entries[0].Subject)
	assert.NotContains(t, entries[0].Detail, "otp")
	assert.Contains(t, entries[0].Detail, "expiresAt")
}

func TestAudit_StoreFailureDoesNotPropagate(t *testing.T) {
	bus, repo := newAuditHarness(t)
	repo.createErr = errors.New("insert failed")

	err := bus.Publish(context.Background(), events.Event{
		Type:    events.EventAccountRegistered,
		Payload: events.AccountRegisteredPayload{Email: "seller@example.org"},
	})
	assert.NoError(t, err)
	assert.Empty(t, repo.all())
}
