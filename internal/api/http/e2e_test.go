package http

import (
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/raffle-service/internal/api/http/handlers"
	"github.com/spec-kit/raffle-service/internal/auth"
	"github.com/spec-kit/raffle-service/internal/config"
	"github.com/spec-kit/raffle-service/internal/domain"
	"github.com/spec-kit/raffle-service/internal/events"
	"github.com/spec-kit/raffle-service/internal/observability"
	"github.com/spec-kit/raffle-service/internal/ratelimit"
	"github.com/spec-kit/raffle-service/internal/service"
)

// serverHarness runs the full route table against in-memory stores.
type serverHarness struct {
	app      *fiber.App
	accounts *memAccountRepo
	tickets  *memTicketRepo
	metrics  *observability.Metrics
}

func newServerHarness(t *testing.T) *serverHarness {
	t.Helper()
	cfg := config.Config{
		App: config.AppConfig{Name: "raffle-service", Version: "test"},
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 60,
			OTPTTLMinutes:         10,
			BcryptCost:            4,
			DefaultValidityDays:   30,
		},
	}

	accounts := newMemAccountRepo()
	tickets := newMemTicketRepo()
	bus := events.NewInMemoryDispatcher()

	accountService := service.NewAccountService(cfg, service.AccountDependencies{
		AccountRepo: accounts,
		Dispatcher:  bus,
	})
	ticketService := service.NewTicketService(cfg, service.TicketDependencies{
		TicketRepo: tickets,
		Dispatcher: bus,
	})

	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), nil)
	guard := auth.NewGuard(accountService.TokenManager(), accounts)
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:     handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, nil, nil),
		Accounts:   handlers.NewAccountHandler(accountService),
		Tickets:    handlers.NewTicketHandler(ticketService),
		Dispatcher: NewDispatcher(guard, limiter, metrics, logger),
	})

	return &serverHarness{app: app, accounts: accounts, tickets: tickets, metrics: metrics}
}

func (h *serverHarness) register(t *testing.T, email string) {
	t.Helper()
	form := url.Values{
		"email":           {email},
		"name":            {"Test Seller"},
		"password":        {"secret1"},
		"confirmPassword": {"secret1"},
	}.Encode()
	status, body := doRequest(t, h.app, fiber.MethodPost, "/api?action=register", form, formHeader())
	require.Equal(t, fiber.StatusOK, status, "register %s: %v", email, body)
}

func (h *serverHarness) login(t *testing.T, email, password string) (string, map[string]any) {
	t.Helper()
	form := url.Values{"email": {email}, "password": {password}}.Encode()
	status, body := doRequest(t, h.app, fiber.MethodPost, "/api?action=login", form, formHeader())
	require.Equal(t, fiber.StatusOK, status, "login %s: %v", email, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token, body
}

// seedAdmin plants an approved admin directly in the store and logs it in.
func (h *serverHarness) seedAdmin(t *testing.T) string {
	t.Helper()
	hash, err := auth.HashPassword("admin-secret", 4)
	require.NoError(t, err)
	h.accounts.seed(&domain.StaffAccount{
		Email:        "admin@example.org",
		Name:         "Admin",
		PasswordHash: hash,
		Role:         domain.StaffRoleAdmin,
		Status:       domain.AccountStatusApproved,
		Active:       true,
		ValidityDays: 365,
		CreatedAt:    time.Now(),
	})
	token, _ := h.login(t, "admin@example.org", "admin-secret")
	return token
}

func (h *serverHarness) approve(t *testing.T, adminToken, email string) {
	t.Helper()
	form := url.Values{"email": {email}, "decision": {"approve"}}.Encode()
	status, body := doRequest(t, h.app, fiber.MethodPost, "/api?action=approve_staff", form,
		merge(formHeader(), bearer(adminToken)))
	require.Equal(t, fiber.StatusOK, status, "approve %s: %v", email, body)
}

func merge(maps ...map[string]string) map[string]string {
	merged := map[string]string{}
	for _, m := range maps {
		for key, value := range m {
			merged[key] = value
		}
	}
	return merged
}

func TestServer_RegistrationApprovalLogin(t *testing.T) {
	h := newServerHarness(t)
	adminToken := h.seedAdmin(t)

	h.register(t, "alice@example.org")

	// Pending accounts authenticate but cannot enter.
	form := url.Values{"email": {"alice@example.org"}, "password": {"secret1"}}.Encode()
	status, body := doRequest(t, h.app, fiber.MethodPost, "/api?action=login", form, formHeader())
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "ACCOUNT_PENDING", body["code"])

	h.approve(t, adminToken, "alice@example.org")

	token, loginBody := h.login(t, "alice@example.org", "secret1")
	assert.Equal(t, float64(30), loginBody["daysRemaining"])
	assert.NotEmpty(t, loginBody["validUntil"])
	user, ok := loginBody["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "APPROVED", user["status"])

	status, body = doRequest(t, h.app, fiber.MethodGet, "/api?action=me", "", bearer(token))
	assert.Equal(t, fiber.StatusOK, status)
	me, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice@example.org", me["email"])
}

func TestServer_WrongPasswordsDoNotLockOut(t *testing.T) {
	h := newServerHarness(t)
	adminToken := h.seedAdmin(t)
	h.register(t, "dave@example.org")
	h.approve(t, adminToken, "dave@example.org")

	for i := 0; i < 3; i++ {
		form := url.Values{"email": {"dave@example.org"}, "password": {"wrong-pass"}}.Encode()
		status, body := doRequest(t, h.app, fiber.MethodPost, "/api?action=login", form, formHeader())
		require.Equal(t, fiber.StatusUnauthorized, status)
		require.Equal(t, "INVALID_CREDENTIALS", body["code"])
	}

	h.login(t, "dave@example.org", "secret1")
}

func TestServer_PasswordResetFlow(t *testing.T) {
	h := newServerHarness(t)
	adminToken := h.seedAdmin(t)
	h.register(t, "bob@example.org")
	h.approve(t, adminToken, "bob@example.org")

	// The response shape is identical for known and unknown addresses.
	status, known := doRequest(t, h.app, fiber.MethodPost, "/api?action=forgot_password",
		url.Values{"email": {"bob@example.org"}}.Encode(), formHeader())
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "bo*@example.org", known["email"])

	status, unknown := doRequest(t, h.app, fiber.MethodPost, "/api?action=forgot_password",
		url.Values{"email": {"ghost@example.org"}}.Encode(), formHeader())
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "gh***@example.org", unknown["email"])
	assert.Equal(t, known["message"], unknown["message"])

	otp := h.accounts.stored("bob@example.org").OTP
	require.Len(t, otp, 6)

	status, body := doRequest(t, h.app, fiber.MethodPost, "/api?action=verify_otp",
		url.Values{"email": {"bob@example.org"}, "otp": {"invalid"}}.Encode(), formHeader())
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_OTP", body["code"])

	status, body = doRequest(t, h.app, fiber.MethodPost, "/api?action=verify_otp",
		url.Values{"email": {"bob@example.org"}, "otp": {otp}}.Encode(), formHeader())
	require.Equal(t, fiber.StatusOK, status)
	resetToken, ok := body["resetToken"].(string)
	require.True(t, ok)
	require.NotEmpty(t, resetToken)

	// A code is single-use.
	status, body = doRequest(t, h.app, fiber.MethodPost, "/api?action=verify_otp",
		url.Values{"email": {"bob@example.org"}, "otp": {otp}}.Encode(), formHeader())
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_OTP", body["code"])

	status, _ = doRequest(t, h.app, fiber.MethodPost, "/api?action=reset_password",
		url.Values{"email": {"bob@example.org"}, "resetToken": {resetToken}, "newPassword": {"renewed1"}}.Encode(), formHeader())
	require.Equal(t, fiber.StatusOK, status)

	status, body = doRequest(t, h.app, fiber.MethodPost, "/api?action=login",
		url.Values{"email": {"bob@example.org"}, "password": {"secret1"}}.Encode(), formHeader())
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_CREDENTIALS", body["code"])

	h.login(t, "bob@example.org", "renewed1")
}

func TestServer_TicketLifecycle(t *testing.T) {
	h := newServerHarness(t)
	adminToken := h.seedAdmin(t)
	h.register(t, "seller@example.org")
	h.approve(t, adminToken, "seller@example.org")
	sellerToken, _ := h.login(t, "seller@example.org", "secret1")

	// Only admins manage inventory.
	status, body := doRequest(t, h.app, fiber.MethodPost, "/api?action=add_tickets&from=1&to=20", "", bearer(sellerToken))
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "INSUFFICIENT_ROLE", body["code"])

	status, body = doRequest(t, h.app, fiber.MethodPost, "/api?action=add_tickets&from=1&to=20", "", bearer(adminToken))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(20), body["created"])

	saleForm := url.Values{
		"number":     {"7"},
		"buyerName":  {"Anna Jones"},
		"buyerPhone": {"0812-345-4567"},
	}.Encode()
	status, body = doRequest(t, h.app, fiber.MethodPost, "/api?action=record_sale", saleForm,
		merge(formHeader(), bearer(sellerToken)))
	require.Equal(t, fiber.StatusOK, status)
	ticket, ok := body["ticket"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "SOLD", ticket["status"])
	assert.Equal(t, "seller@example.org", ticket["soldBy"])

	// Selling the same ticket twice is a conflict.
	status, body = doRequest(t, h.app, fiber.MethodPost, "/api?action=record_sale", saleForm,
		merge(formHeader(), bearer(sellerToken)))
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "VERSION_CONFLICT", body["code"])

	status, body = doRequest(t, h.app, fiber.MethodGet, "/api?action=get_ticket&number=7", "", bearer(sellerToken))
	require.Equal(t, fiber.StatusOK, status)
	ticket = body["ticket"].(map[string]any)
	assert.Equal(t, "Anna Jones", ticket["buyerName"])

	status, body = doRequest(t, h.app, fiber.MethodGet, "/api?action=search_tickets&query=ann", "", bearer(sellerToken))
	require.Equal(t, fiber.StatusOK, status)
	matches, ok := body["matches"].([]any)
	require.True(t, ok)
	require.Len(t, matches, 1)
	best := matches[0].(map[string]any)
	assert.Equal(t, float64(7), best["number"])
	assert.Equal(t, float64(1030), best["score"])

	status, body = doRequest(t, h.app, fiber.MethodGet, "/api?action=ticket_stats", "", bearer(sellerToken))
	require.Equal(t, fiber.StatusOK, status)
	stats, ok := body["stats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(20), stats["total"])
	assert.Equal(t, float64(19), stats["available"])
	assert.Equal(t, float64(1), stats["sold"])

	status, body = doRequest(t, h.app, fiber.MethodPost, "/api?action=bulk_update_status&numbers=1,2,3&status=VOID", "", bearer(sellerToken))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(3), body["updated"])

	status, body = doRequest(t, h.app, fiber.MethodPost, "/api?action=update_ticket_status&number=7&status=AVAILABLE", "", bearer(sellerToken))
	require.Equal(t, fiber.StatusOK, status)
	ticket = body["ticket"].(map[string]any)
	assert.Equal(t, "AVAILABLE", ticket["status"])
	assert.NotContains(t, ticket, "buyerName")

	// Appending by count continues after the highest number.
	status, body = doRequest(t, h.app, fiber.MethodPost, "/api?action=add_tickets&count=5", "", bearer(adminToken))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(21), body["from"])
	assert.Equal(t, float64(25), body["to"])
	assert.Equal(t, float64(5), body["created"])
}

// A valid token alone is not enough: the stored lifecycle state decides.
func TestServer_PendingAccountBlockedOnProtectedActions(t *testing.T) {
	h := newServerHarness(t)
	h.register(t, "carol@example.org")

	pending := h.accounts.stored("carol@example.org")
	require.NotNil(t, pending)
	token, _, err := auth.NewTokenManager("test-secret", 60).GenerateToken(pending)
	require.NoError(t, err)

	status, body := doRequest(t, h.app, fiber.MethodGet, "/api?action=me", "", bearer(token))
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "ACCOUNT_PENDING", body["code"])
}

func TestServer_Ping(t *testing.T) {
	h := newServerHarness(t)

	status, body := doRequest(t, h.app, fiber.MethodGet, "/api?action=ping", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "pong", body["message"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, int64(1), h.metrics.ActionCount("ping", ""))
	assert.Zero(t, h.metrics.ActionCount("ping", "SERVER_ERROR"))
}

func TestServer_HealthProbes(t *testing.T) {
	h := newServerHarness(t)

	status, body := doRequest(t, h.app, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])
	assert.Equal(t, "raffle-service", body["service"])

	// No database wired in this harness; readiness must say so.
	status, body = doRequest(t, h.app, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", body["code"])
}
