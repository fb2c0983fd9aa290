package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/raffle-service/internal/config"
	"github.com/spec-kit/raffle-service/internal/domain"
	"github.com/spec-kit/raffle-service/internal/events"
	"github.com/spec-kit/raffle-service/internal/mail"
	"github.com/spec-kit/raffle-service/internal/repository"
	"github.com/spec-kit/raffle-service/pkg/util"
)

// NotificationService turns domain events into outbound mail. Delivery is
// best-effort: failures are logged and never reach the operation that raised
// the event.
type NotificationService struct {
	dispatcher events.Dispatcher
	accounts   repository.AccountRepository
	mailer     *mail.Client
	logger     *zap.Logger
	appName    string
}

// NotificationDependencies encapsulates collaborator requirements.
type NotificationDependencies struct {
	Dispatcher  events.Dispatcher
	AccountRepo repository.AccountRepository
	Mailer      *mail.Client
	Logger      *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(cfg config.Config, deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		accounts:   deps.AccountRepo,
		mailer:     deps.Mailer,
		logger:     logger,
		appName:    cfg.App.Name,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAccountRegistered, n.handleAccountRegistered)
	n.dispatcher.Subscribe(events.EventAccountDecided, n.handleAccountDecided)
	n.dispatcher.Subscribe(events.EventOTPRequested, n.handleOTPRequested)
	n.dispatcher.Subscribe(events.EventTicketSold, n.handleTicketSold)
}

func (n *NotificationService) handleAccountRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AccountRegisteredPayload)
	if !ok {
		return nil
	}
	n.logger.Info("AccountRegistered", zap.String("email", payload.Email))

	adminRole := domain.StaffRoleAdmin
	admins, err := n.accounts.List(ctx, repository.AccountFilter{Role: &adminRole})
	if err != nil {
		n.logger.Warn("admin lookup failed", zap.Error(err))
		return nil
	}

	subject := fmt.Sprintf("[%s] new staff registration", n.appName)
	body := fmt.Sprintf("%s <%s> registered and is awaiting review.", payload.Name, payload.Email)
	for _, admin := range admins {
		n.send(ctx, admin.Email, subject, body)
	}
	return nil
}

func (n *NotificationService) handleAccountDecided(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AccountDecidedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("AccountDecided", zap.String("email", payload.Email), zap.String("decision", payload.Decision))

	var subject, body string
	switch payload.Decision {
	case DecisionApprove:
		subject = fmt.Sprintf("[%s] your account was approved", n.appName)
		body = fmt.Sprintf("Hi %s, your seller account is active. You can log in now.", payload.Name)
	case DecisionReject:
		subject = fmt.Sprintf("[%s] your registration was declined", n.appName)
		body = fmt.Sprintf("Hi %s, your registration was not approved.", payload.Name)
	default:
		subject = fmt.Sprintf("[%s] your account was disabled", n.appName)
		body = fmt.Sprintf("Hi %s, your seller account has been disabled.", payload.Name)
	}
	n.send(ctx, payload.Email, subject, body)
	return nil
}

func (n *NotificationService) handleOTPRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.OTPRequestedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("OTPRequested", zap.String("email", util.MaskEmail(payload.Email)))

	subject := fmt.Sprintf("[%s] password reset code", n.appName)
	body := fmt.Sprintf("Hi %s, your password reset code is %s. It expires at %s.",
		payload.Name, payload.OTP, payload.ExpiresAt.Format(time.RFC1123))
	n.send(ctx, payload.Email, subject, body)
	return nil
}

func (n *NotificationService) handleTicketSold(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketSoldPayload)
	if !ok {
		return nil
	}
	n.logger.Info("TicketSold",
		zap.Int("number", payload.Number),
		zap.String("sold_by", payload.SoldBy))
	return nil
}

func (n *NotificationService) send(ctx context.Context, to, subject, body string) {
	if n.mailer == nil || !n.mailer.Configured() {
		n.logger.Debug("mail delivery skipped", zap.String("to", to), zap.String("subject", subject))
		return
	}
	if err := n.mailer.Send(ctx, to, subject, body); err != nil {
		n.logger.Warn("mail delivery failed", zap.String("to", to), zap.Error(err))
	}
}
