package dto

import (
	"time"

	"github.com/spec-kit/raffle-service/internal/domain"
)

// AccountView is the staff-account shape returned to clients. The password
// hash and OTP state never leave the service.
type AccountView struct {
	Email        string               `json:"email"`
	Name         string               `json:"name"`
	Role         domain.StaffRole     `json:"role"`
	Status       domain.AccountStatus `json:"status"`
	Active       bool                 `json:"active"`
	ValidityDays int                  `json:"validityDays"`
	ValidUntil   time.Time            `json:"validUntil"`
	DayURLs      domain.DayURLs       `json:"dayUrls,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
	Version      int                  `json:"version"`
}

// NewAccountView maps a domain account to its client shape.
func NewAccountView(account *domain.StaffAccount) AccountView {
	return AccountView{
		Email:        account.Email,
		Name:         account.Name,
		Role:         account.Role,
		Status:       account.Status,
		Active:       account.Active,
		ValidityDays: account.ValidityDays,
		ValidUntil:   account.ValidUntil(),
		DayURLs:      account.DayURLs,
		CreatedAt:    account.CreatedAt,
		Version:      account.Version,
	}
}

// AccountViews maps a list of accounts.
func AccountViews(accounts []domain.StaffAccount) []AccountView {
	views := make([]AccountView, len(accounts))
	for i := range accounts {
		views[i] = NewAccountView(&accounts[i])
	}
	return views
}

// TicketView is the ticket shape returned to clients.
type TicketView struct {
	Number     int                 `json:"number"`
	Status     domain.TicketStatus `json:"status"`
	BuyerName  string              `json:"buyerName,omitempty"`
	BuyerPhone string              `json:"buyerPhone,omitempty"`
	SoldBy     string              `json:"soldBy,omitempty"`
	SoldAt     *time.Time          `json:"soldAt,omitempty"`
	Version    int                 `json:"version"`
}

// NewTicketView maps a domain ticket to its client shape.
func NewTicketView(ticket *domain.Ticket) TicketView {
	return TicketView{
		Number:     ticket.Number,
		Status:     ticket.Status,
		BuyerName:  ticket.BuyerName,
		BuyerPhone: ticket.BuyerPhone,
		SoldBy:     ticket.SoldBy,
		SoldAt:     ticket.SoldAt,
		Version:    ticket.Version,
	}
}

// TicketViews maps a list of tickets.
func TicketViews(tickets []domain.Ticket) []TicketView {
	views := make([]TicketView, len(tickets))
	for i := range tickets {
		views[i] = NewTicketView(&tickets[i])
	}
	return views
}

// TicketMatchView pairs a ticket view with its search score.
type TicketMatchView struct {
	TicketView
	Score int `json:"score"`
}
