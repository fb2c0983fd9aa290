package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for raffle tickets.
type TicketStatus string

const (
	TicketStatusAvailable TicketStatus = "AVAILABLE"
	TicketStatusSold      TicketStatus = "SOLD"
	TicketStatusVoid      TicketStatus = "VOID"
)

// ParseTicketStatus maps request values to a status, case-insensitively.
func ParseTicketStatus(value string) (TicketStatus, bool) {
	switch TicketStatus(strings.ToUpper(strings.TrimSpace(value))) {
	case TicketStatusAvailable:
		return TicketStatusAvailable, true
	case TicketStatusSold:
		return TicketStatusSold, true
	case TicketStatusVoid:
		return TicketStatusVoid, true
	default:
		return "", false
	}
}

// Ticket is one printed raffle ticket, keyed by its printed number.
type Ticket struct {
	ID         string
	Number     int
	Status     TicketStatus
	BuyerName  string
	BuyerPhone string
	SoldBy     string // seller's account email
	SoldAt     *time.Time
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
