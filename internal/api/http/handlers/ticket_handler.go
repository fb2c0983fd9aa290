package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/raffle-service/internal/api/dto"
	"github.com/spec-kit/raffle-service/internal/domain"
	"github.com/spec-kit/raffle-service/internal/repository"
	"github.com/spec-kit/raffle-service/internal/service"
	apperrors "github.com/spec-kit/raffle-service/pkg/util"
)

// TicketHandler exposes the ticket inventory actions.
type TicketHandler struct {
	tickets *service.TicketService
}

// NewTicketHandler constructs handler.
func NewTicketHandler(tickets *service.TicketService) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

// RecordSale handles the record_sale action.
func (h *TicketHandler) RecordSale(c *fiber.Ctx, params dto.Params, actor *domain.StaffAccount) (fiber.Map, error) {
	number, err := params.Int("number", 0)
	if err != nil {
		return nil, err
	}

	ticket, err := h.tickets.RecordSale(c.UserContext(), number, params.Str("buyerName"), params.Str("buyerPhone"), actor)
	if err != nil {
		return nil, err
	}
	return fiber.Map{"ticket": dto.NewTicketView(ticket)}, nil
}

// UpdateStatus handles the update_ticket_status action.
func (h *TicketHandler) UpdateStatus(c *fiber.Ctx, params dto.Params, _ *domain.StaffAccount) (fiber.Map, error) {
	number, err := params.Int("number", 0)
	if err != nil {
		return nil, err
	}
	status, ok := domain.ParseTicketStatus(params.Str("status"))
	if !ok {
		return nil, apperrors.NewInvalidInput("status must be AVAILABLE, SOLD or VOID", nil)
	}

	ticket, err := h.tickets.UpdateTicketStatus(c.UserContext(), number, status)
	if err != nil {
		return nil, err
	}
	return fiber.Map{"ticket": dto.NewTicketView(ticket)}, nil
}

// BulkUpdateStatus handles the bulk_update_status action; numbers is a
// comma-separated list.
func (h *TicketHandler) BulkUpdateStatus(c *fiber.Ctx, params dto.Params, _ *domain.StaffAccount) (fiber.Map, error) {
	numbers, err := params.IntList("numbers")
	if err != nil {
		return nil, err
	}
	status, ok := domain.ParseTicketStatus(params.Str("status"))
	if !ok {
		return nil, apperrors.NewInvalidInput("status must be AVAILABLE, SOLD or VOID", nil)
	}

	ranges, err := h.tickets.BulkUpdateStatus(c.UserContext(), numbers, status)
	if err != nil {
		return nil, err
	}
	var updated int64
	for _, rg := range ranges {
		updated += rg.Updated
	}
	return fiber.Map{"ranges": ranges, "updated": updated}, nil
}

// Search handles the search_tickets action.
func (h *TicketHandler) Search(c *fiber.Ctx, params dto.Params, _ *domain.StaffAccount) (fiber.Map, error) {
	limit, err := params.Int("limit", 0)
	if err != nil {
		return nil, err
	}

	matches, err := h.tickets.SearchTickets(c.UserContext(), params.Str("query"), limit)
	if err != nil {
		return nil, err
	}
	views := make([]dto.TicketMatchView, 0, len(matches))
	for i := range matches {
		views = append(views, dto.TicketMatchView{
			TicketView: dto.NewTicketView(&matches[i].Ticket),
			Score:      matches[i].Score,
		})
	}
	return fiber.Map{"matches": views, "count": len(views)}, nil
}

// Get handles the get_ticket action.
func (h *TicketHandler) Get(c *fiber.Ctx, params dto.Params, _ *domain.StaffAccount) (fiber.Map, error) {
	number, err := params.Int("number", 0)
	if err != nil {
		return nil, err
	}

	ticket, err := h.tickets.GetTicket(c.UserContext(), number)
	if err != nil {
		return nil, err
	}
	return fiber.Map{"ticket": dto.NewTicketView(ticket)}, nil
}

// List handles the list_tickets action.
func (h *TicketHandler) List(c *fiber.Ctx, params dto.Params, _ *domain.StaffAccount) (fiber.Map, error) {
	filter, err := parseTicketFilter(params)
	if err != nil {
		return nil, err
	}

	tickets, err := h.tickets.ListTickets(c.UserContext(), filter)
	if err != nil {
		return nil, err
	}
	views := dto.TicketViews(tickets)
	return fiber.Map{"tickets": views, "count": len(views)}, nil
}

// Stats handles the ticket_stats action.
func (h *TicketHandler) Stats(c *fiber.Ctx, _ dto.Params, _ *domain.StaffAccount) (fiber.Map, error) {
	stats, err := h.tickets.Stats(c.UserContext())
	if err != nil {
		return nil, err
	}
	return fiber.Map{"stats": stats}, nil
}

// Add handles the admin add_tickets action: either an explicit from/to range
// or a count appended after the highest existing number.
func (h *TicketHandler) Add(c *fiber.Ctx, params dto.Params, _ *domain.StaffAccount) (fiber.Map, error) {
	var (
		result *service.AddResult
		err    error
	)
	if params.Has("count") && !params.Has("from") {
		var count int
		if count, err = params.Int("count", 0); err != nil {
			return nil, err
		}
		result, err = h.tickets.AppendTickets(c.UserContext(), count)
	} else {
		var from, to int
		if from, err = params.Int("from", 0); err != nil {
			return nil, err
		}
		if to, err = params.Int("to", 0); err != nil {
			return nil, err
		}
		result, err = h.tickets.AddTickets(c.UserContext(), from, to)
	}
	if err != nil {
		return nil, err
	}
	return fiber.Map{"from": result.From, "to": result.To, "created": result.Created}, nil
}

func parseTicketFilter(params dto.Params) (repository.TicketFilter, error) {
	var filter repository.TicketFilter
	if params.Has("status") {
		status, ok := domain.ParseTicketStatus(params.Str("status"))
		if !ok {
			return filter, apperrors.NewInvalidInput("unknown status filter", nil)
		}
		filter.Status = &status
	}
	if params.Has("soldBy") {
		soldBy := domain.NormalizeEmail(params.Str("soldBy"))
		filter.SoldBy = &soldBy
	}

	var err error
	if filter.Limit, err = params.Int("limit", 0); err != nil {
		return filter, err
	}
	if filter.Offset, err = params.Int("offset", 0); err != nil {
		return filter, err
	}
	return filter, nil
}
