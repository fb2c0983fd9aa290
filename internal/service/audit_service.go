package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/spec-kit/raffle-service/internal/domain"
	"github.com/spec-kit/raffle-service/internal/events"
	"github.com/spec-kit/raffle-service/internal/repository"
	"github.com/spec-kit/raffle-service/pkg/util"
)

// AuditService copies every published event into the durable audit trail.
type AuditService struct {
	dispatcher events.Dispatcher
	entries    repository.AuditLogRepository
	logger     *zap.Logger
}

// AuditDependencies bundles audit collaborators.
type AuditDependencies struct {
	Dispatcher events.Dispatcher
	AuditRepo  repository.AuditLogRepository
	Logger     *zap.Logger
}

// NewAuditService constructs the audit sink.
func NewAuditService(deps AuditDependencies) *AuditService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: deps.Dispatcher,
		entries:    deps.AuditRepo,
		logger:     logger,
	}
}

// RegisterHandlers subscribes the sink to every event type.
func (a *AuditService) RegisterHandlers() {
	for _, eventType := range []events.EventType{
		events.EventAccountRegistered,
		events.EventAccountDecided,
		events.EventOTPRequested,
		events.EventTicketSold,
	} {
		a.dispatcher.Subscribe(eventType, a.handleEvent)
	}
}

func (a *AuditService) handleEvent(ctx context.Context, event events.Event) error {
	subject, detail := auditFields(event)
	entry := &domain.AuditEntry{
		EventType: string(event.Type),
		Subject:   subject,
		Detail:    detail,
	}
	if err := a.entries.Create(ctx, entry); err != nil {
		a.logger.Warn("audit entry not recorded", zap.String("event", string(event.Type)), zap.Error(err))
	}
	return nil
}

// auditFields flattens an event payload into a subject plus detail columns.
// Reset codes never reach the trail; only the masked address does.
func auditFields(event events.Event) (string, map[string]any) {
	switch payload := event.Payload.(type) {
	case events.AccountRegisteredPayload:
		return payload.Email, map[string]any{"name": payload.Name}
	case events.AccountDecidedPayload:
		return payload.Email, map[string]any{"decision": payload.Decision, "status": string(payload.Status)}
	case events.OTPRequestedPayload:
		return util.MaskEmail(payload.Email), map[string]any{"expiresAt": payload.ExpiresAt}
	case events.TicketSoldPayload:
		return strconv.Itoa(payload.Number), map[string]any{"buyerName": payload.BuyerName, "soldBy": payload.SoldBy}
	default:
		return "", nil
	}
}
