package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/raffle-service/internal/config"
	"github.com/spec-kit/raffle-service/internal/domain"
	"github.com/spec-kit/raffle-service/internal/events"
	"github.com/spec-kit/raffle-service/internal/repository"
	"github.com/spec-kit/raffle-service/pkg/util"
)

const (
	statsCacheKey      = "cache:ticket_stats"
	maxTicketBatch     = 10000
	searchScanLimit    = 5000
	defaultSearchLimit = 20
)

// Cache is the short-TTL cache surface backing stats responses. A missing
// key surfaces as redis.Nil.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// TicketService records sales and keeps the printed ticket inventory
// consistent.
type TicketService struct {
	tickets    repository.TicketRepository
	cache      Cache
	dispatcher events.Dispatcher
	logger     *zap.Logger
	statsTTL   time.Duration
	now        func() time.Time
}

// TicketDependencies encapsulates collaborator requirements.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Cache      Cache
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewTicketService builds the service.
func NewTicketService(cfg config.Config, deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		statsTTL:   cfg.Cache.StatsTTL(),
		now:        now,
	}
}

// RecordSale marks an available ticket sold and stamps the buyer and seller.
// A ticket that is already sold, or that a concurrent sale won first, fails
// with a version conflict.
func (s *TicketService) RecordSale(ctx context.Context, number int, buyerName, buyerPhone string, actor *domain.StaffAccount) (*domain.Ticket, error) {
	if number <= 0 {
		return nil, util.NewInvalidInput("number must be positive", nil)
	}
	buyerName = strings.TrimSpace(buyerName)
	if buyerName == "" {
		return nil, util.NewInvalidInput("buyerName is required", nil)
	}

	ticket, err := s.getByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusAvailable {
		return nil, util.NewVersionConflict("ticket")
	}

	now := s.now()
	ticket.Status = domain.TicketStatusSold
	ticket.BuyerName = buyerName
	ticket.BuyerPhone = strings.TrimSpace(buyerPhone)
	ticket.SoldBy = actor.Email
	ticket.SoldAt = &now
	if err := s.saveTicket(ctx, ticket); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTicketSold, events.TicketSoldPayload{
		Number:    ticket.Number,
		BuyerName: ticket.BuyerName,
		SoldBy:    ticket.SoldBy,
	})
	return ticket, nil
}

// UpdateTicketStatus corrects a single ticket's status. Moving a ticket back
// to AVAILABLE erases the sale columns.
func (s *TicketService) UpdateTicketStatus(ctx context.Context, number int, status domain.TicketStatus) (*domain.Ticket, error) {
	ticket, err := s.getByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	ticket.Status = status
	if status == domain.TicketStatusAvailable {
		ticket.BuyerName = ""
		ticket.BuyerPhone = ""
		ticket.SoldBy = ""
		ticket.SoldAt = nil
	}
	if err := s.saveTicket(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// RangeResult reports one contiguous span's update outcome.
type RangeResult struct {
	From    int   `json:"from"`
	To      int   `json:"to"`
	Updated int64 `json:"updated"`
}

// BulkUpdateStatus applies one status to many tickets. Numbers are grouped
// into maximal contiguous ranges so the store sees one statement per range
// instead of one per ticket.
func (s *TicketService) BulkUpdateStatus(ctx context.Context, numbers []int, status domain.TicketStatus) ([]RangeResult, error) {
	if len(numbers) == 0 {
		return nil, util.NewInvalidInput("numbers is required", nil)
	}
	for _, n := range numbers {
		if n <= 0 {
			return nil, util.NewInvalidInput("ticket numbers must be positive", nil)
		}
	}

	ranges := groupRanges(numbers)
	counts, err := s.tickets.UpdateRanges(ctx, ranges, status)
	if err != nil {
		return nil, util.MapError(err)
	}

	results := make([]RangeResult, len(ranges))
	for i, rg := range ranges {
		results[i] = RangeResult{From: rg.From, To: rg.To, Updated: counts[i]}
	}
	return results, nil
}

// groupRanges sorts, dedupes, and folds numbers into maximal contiguous
// inclusive ranges.
func groupRanges(numbers []int) []repository.NumberRange {
	if len(numbers) == 0 {
		return nil
	}
	sorted := append([]int(nil), numbers...)
	sort.Ints(sorted)

	ranges := []repository.NumberRange{}
	start, prev := sorted[0], sorted[0]
	for _, n := range sorted[1:] {
		if n == prev || n == prev+1 {
			prev = n
			continue
		}
		ranges = append(ranges, repository.NumberRange{From: start, To: prev})
		start, prev = n, n
	}
	return append(ranges, repository.NumberRange{From: start, To: prev})
}

// TicketMatch pairs a ticket with its fuzzy-match score.
type TicketMatch struct {
	Ticket domain.Ticket `json:"ticket"`
	Score  int           `json:"score"`
}

// SearchTickets scores sold tickets against the query by buyer name and
// phone suffix, best matches first.
func (s *TicketService) SearchTickets(ctx context.Context, query string, limit int) ([]TicketMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, util.NewInvalidInput("query is required", nil)
	}
	if limit <= 0 || limit > searchScanLimit {
		limit = defaultSearchLimit
	}

	sold := domain.TicketStatusSold
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{Status: &sold, Limit: searchScanLimit})
	if err != nil {
		return nil, util.MapError(err)
	}

	matches := []TicketMatch{}
	for _, t := range tickets {
		score := fuzzyScore(query, t.BuyerName)
		if phoneScore := phoneSuffixScore(query, t.BuyerPhone); phoneScore > score {
			score = phoneScore
		}
		if score > 0 {
			matches = append(matches, TicketMatch{Ticket: t, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// fuzzyScore rates how well query matches candidate. An exact substring
// scores highest, earlier matches beating later ones. Otherwise a single
// pass consumes query characters in order, rewarding tight runs; a query
// that is not a subsequence scores zero.
func fuzzyScore(query, candidate string) int {
	q := []rune(strings.ToLower(strings.TrimSpace(query)))
	c := []rune(strings.ToLower(candidate))
	if len(q) == 0 || len(c) == 0 {
		return 0
	}

	if idx := strings.Index(string(c), string(q)); idx >= 0 {
		return 1000 + len(q)*10 - idx
	}

	score, qi, streak := 0, 0, 0
	for ci := 0; ci < len(c) && qi < len(q); ci++ {
		if c[ci] == q[qi] {
			qi++
			streak++
			score += streak * 2
		} else {
			streak = 0
		}
	}
	if qi < len(q) {
		return 0
	}
	return score
}

// phoneSuffixScore matches a digit query against the end of the stored phone
// number. Queries under three digits are ignored.
func phoneSuffixScore(query, phone string) int {
	digits := strings.Map(keepDigits, query)
	if len(digits) < 3 || phone == "" {
		return 0
	}
	phoneDigits := strings.Map(keepDigits, phone)
	if strings.HasSuffix(phoneDigits, digits) {
		return 1000 + len(digits)*10
	}
	return 0
}

func keepDigits(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}

// GetTicket loads one ticket by printed number.
func (s *TicketService) GetTicket(ctx context.Context, number int) (*domain.Ticket, error) {
	return s.getByNumber(ctx, number)
}

// ListTickets returns tickets in number order.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, util.MapError(err)
	}
	return tickets, nil
}

// TicketStats summarizes the inventory.
type TicketStats struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Sold      int `json:"sold"`
	Void      int `json:"void"`
}

// Stats counts tickets per status, served from the short-TTL cache when
// fresh.
func (s *TicketService) Stats(ctx context.Context) (TicketStats, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, statsCacheKey)
		if err == nil {
			var stats TicketStats
			if json.Unmarshal([]byte(raw), &stats) == nil {
				return stats, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
	}

	counts, err := s.tickets.CountByStatus(ctx)
	if err != nil {
		return TicketStats{}, util.MapError(err)
	}
	stats := TicketStats{
		Available: counts[domain.TicketStatusAvailable],
		Sold:      counts[domain.TicketStatusSold],
		Void:      counts[domain.TicketStatusVoid],
	}
	stats.Total = stats.Available + stats.Sold + stats.Void

	if s.cache != nil {
		if encoded, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, string(encoded), s.statsTTL); err != nil {
				s.logger.Warn("stats cache write failed", zap.Error(err))
			}
		}
	}
	return stats, nil
}

// AddResult reports an inventory append.
type AddResult struct {
	From    int   `json:"from"`
	To      int   `json:"to"`
	Created int64 `json:"created"`
}

// AddTickets appends the explicit inclusive number range. Numbers that
// already exist are skipped, so Created may be below the range size.
func (s *TicketService) AddTickets(ctx context.Context, from, to int) (*AddResult, error) {
	if from <= 0 || to < from {
		return nil, util.NewInvalidInput("range must satisfy 0 < from <= to", nil)
	}
	if to-from+1 > maxTicketBatch {
		return nil, util.NewInvalidInput("too many tickets in one batch", map[string]any{"max": maxTicketBatch})
	}

	created, err := s.tickets.CreateRange(ctx, from, to)
	if err != nil {
		return nil, util.MapError(err)
	}
	return &AddResult{From: from, To: to, Created: created}, nil
}

// AppendTickets adds count tickets numbered after the current highest.
func (s *TicketService) AppendTickets(ctx context.Context, count int) (*AddResult, error) {
	if count <= 0 || count > maxTicketBatch {
		return nil, util.NewInvalidInput("count must be between 1 and the batch maximum", map[string]any{"max": maxTicketBatch})
	}

	max, err := s.tickets.MaxNumber(ctx)
	if err != nil {
		return nil, util.MapError(err)
	}
	return s.AddTickets(ctx, max+1, max+count)
}

func (s *TicketService) getByNumber(ctx context.Context, number int) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"number": number})
		}
		return nil, util.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) saveTicket(ctx context.Context, ticket *domain.Ticket) error {
	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return util.NewVersionConflict("ticket")
		}
		return util.MapError(err)
	}
	return nil
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: s.now(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
