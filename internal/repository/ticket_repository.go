package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/raffle-service/internal/domain"
)

// NumberRange is an inclusive span of ticket numbers.
type NumberRange struct {
	From int
	To   int
}

// TicketFilter captures ticket listing parameters.
type TicketFilter struct {
	Status *domain.TicketStatus
	SoldBy *string
	Limit  int
	Offset int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	CreateRange(ctx context.Context, from, to int) (int64, error)
	MaxNumber(ctx context.Context) (int, error)
	GetByNumber(ctx context.Context, number int) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error
	UpdateRanges(ctx context.Context, ranges []NumberRange, status domain.TicketStatus) ([]int64, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountByStatus(ctx context.Context) (map[domain.TicketStatus]int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, number, status, buyer_name, buyer_phone, sold_by, sold_at, version, created_at, updated_at`

// CreateRange appends the inclusive number range, skipping numbers that
// already exist. Returns how many rows were inserted.
func (r *ticketRepository) CreateRange(ctx context.Context, from, to int) (int64, error) {
	const query = `
        INSERT INTO tickets (number)
        SELECT n FROM generate_series($1::int, $2::int) AS n
        ON CONFLICT (number) DO NOTHING`

	cmd, err := r.pool.Exec(ctx, query, from, to)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) MaxNumber(ctx context.Context) (int, error) {
	const query = `SELECT COALESCE(MAX(number), 0) FROM tickets`

	var max int
	if err := r.pool.QueryRow(ctx, query).Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number int) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE number=$1`

	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, number).Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.Status,
		&ticket.BuyerName,
		&ticket.BuyerPhone,
		&ticket.SoldBy,
		&ticket.SoldAt,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// Update writes the mutable columns guarded by the version the caller read.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets
        SET status=$1, buyer_name=$2, buyer_phone=$3, sold_by=$4, sold_at=$5, version=version+1, updated_at=NOW()
        WHERE id=$6 AND version=$7
        RETURNING version, updated_at`

	err := r.pool.QueryRow(ctx, query,
		ticket.Status,
		ticket.BuyerName,
		ticket.BuyerPhone,
		ticket.SoldBy,
		ticket.SoldAt,
		ticket.ID,
		ticket.Version,
	).Scan(&ticket.Version, &ticket.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionConflict
	}
	return err
}

// UpdateRanges applies one BETWEEN update per contiguous range, all queued on
// a single batch round trip. Moving rows back to AVAILABLE also clears the
// sale columns. Returns the affected-row count per range.
func (r *ticketRepository) UpdateRanges(ctx context.Context, ranges []NumberRange, status domain.TicketStatus) ([]int64, error) {
	query := `
        UPDATE tickets
        SET status=$1, version=version+1, updated_at=NOW()
        WHERE number BETWEEN $2 AND $3`
	if status == domain.TicketStatusAvailable {
		query = `
        UPDATE tickets
        SET status=$1, buyer_name='', buyer_phone='', sold_by='', sold_at=NULL, version=version+1, updated_at=NOW()
        WHERE number BETWEEN $2 AND $3`
	}

	batch := &pgx.Batch{}
	for _, rg := range ranges {
		batch.Queue(query, status, rg.From, rg.To)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	counts := make([]int64, 0, len(ranges))
	for range ranges {
		cmd, err := results.Exec()
		if err != nil {
			return nil, err
		}
		counts = append(counts, cmd.RowsAffected())
	}
	return counts, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets`
	args := []any{}
	clauses := []string{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.SoldBy != nil {
		args = append(args, *filter.SoldBy)
		clauses = append(clauses, fmt.Sprintf("sold_by=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY number ASC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Number,
			&ticket.Status,
			&ticket.BuyerName,
			&ticket.BuyerPhone,
			&ticket.SoldBy,
			&ticket.SoldAt,
			&ticket.Version,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) CountByStatus(ctx context.Context) (map[domain.TicketStatus]int, error) {
	const query = `SELECT status, COUNT(*) FROM tickets GROUP BY status`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TicketStatus]int)
	for rows.Next() {
		var status domain.TicketStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
