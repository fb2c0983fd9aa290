package events

import (
	"time"

	"github.com/spec-kit/raffle-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered EventType = "account_registered"
	EventAccountDecided    EventType = "account_decided"
	EventOTPRequested      EventType = "otp_requested"
	EventTicketSold        EventType = "ticket_sold"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AccountRegisteredPayload announces a signup awaiting review.
type AccountRegisteredPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// AccountDecidedPayload carries an admin decision on an account.
type AccountDecidedPayload struct {
	Email    string               `json:"email"`
	Name     string               `json:"name"`
	Decision string               `json:"decision"`
	Status   domain.AccountStatus `json:"status"`
}

// OTPRequestedPayload carries a password-reset code for delivery.
type OTPRequestedPayload struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	OTP       string    `json:"otp"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TicketSoldPayload records a completed sale.
type TicketSoldPayload struct {
	Number    int    `json:"number"`
	BuyerName string `json:"buyer_name"`
	SoldBy    string `json:"sold_by"`
}
