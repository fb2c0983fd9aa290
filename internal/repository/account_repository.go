package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/raffle-service/internal/domain"
)

// ErrVersionConflict signals a stale optimistic write: the row exists but its
// version no longer matches the one the caller read.
var ErrVersionConflict = errors.New("version conflict")

// ErrDuplicate signals a unique-constraint violation on insert.
var ErrDuplicate = errors.New("duplicate record")

// AccountRepository handles persistence for staff accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.StaffAccount) error
	Update(ctx context.Context, account *domain.StaffAccount) error
	GetByID(ctx context.Context, id string) (*domain.StaffAccount, error)
	GetByEmail(ctx context.Context, email string) (*domain.StaffAccount, error)
	List(ctx context.Context, filter AccountFilter) ([]domain.StaffAccount, error)
}

// AccountFilter defines query params for account listing.
type AccountFilter struct {
	Role   *domain.StaffRole
	Status *domain.AccountStatus
	Active *bool
	Limit  int
	Offset int
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository instantiates the repository.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountColumns = `id, email, name, password_hash, role, status, active, validity_days,
               otp, otp_expiry, day_urls, version, created_at, updated_at`

func (r *accountRepository) Create(ctx context.Context, account *domain.StaffAccount) error {
	const query = `
        INSERT INTO staff_accounts (email, name, password_hash, role, status, active, validity_days, otp, otp_expiry, day_urls)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, version, created_at, updated_at`

	if account.DayURLs == nil {
		account.DayURLs = domain.DayURLs{}
	}
	err := r.pool.QueryRow(ctx, query,
		account.Email,
		account.Name,
		account.PasswordHash,
		account.Role,
		account.Status,
		account.Active,
		account.ValidityDays,
		account.OTP,
		account.OTPExpiry,
		account.DayURLs,
	).Scan(&account.ID, &account.Version, &account.CreatedAt, &account.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

// Update writes every mutable column guarded by the version the caller read.
// created_at is included because approval restarts the validity window.
func (r *accountRepository) Update(ctx context.Context, account *domain.StaffAccount) error {
	const query = `
        UPDATE staff_accounts
        SET email=$1, name=$2, password_hash=$3, role=$4, status=$5, active=$6, validity_days=$7,
            otp=$8, otp_expiry=$9, day_urls=$10, created_at=$11, version=version+1, updated_at=NOW()
        WHERE id=$12 AND version=$13
        RETURNING version, updated_at`

	if account.DayURLs == nil {
		account.DayURLs = domain.DayURLs{}
	}
	err := r.pool.QueryRow(ctx, query,
		account.Email,
		account.Name,
		account.PasswordHash,
		account.Role,
		account.Status,
		account.Active,
		account.ValidityDays,
		account.OTP,
		account.OTPExpiry,
		account.DayURLs,
		account.CreatedAt,
		account.ID,
		account.Version,
	).Scan(&account.Version, &account.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionConflict
	}
	return err
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.StaffAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM staff_accounts WHERE id=$1`
	return r.fetchOne(ctx, query, id)
}

// GetByEmail expects a normalized email; rows are stored normalized.
func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.StaffAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM staff_accounts WHERE email=$1`
	return r.fetchOne(ctx, query, email)
}

func (r *accountRepository) fetchOne(ctx context.Context, query string, arg any) (*domain.StaffAccount, error) {
	var account domain.StaffAccount
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&account.ID,
		&account.Email,
		&account.Name,
		&account.PasswordHash,
		&account.Role,
		&account.Status,
		&account.Active,
		&account.ValidityDays,
		&account.OTP,
		&account.OTPExpiry,
		&account.DayURLs,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) List(ctx context.Context, filter AccountFilter) ([]domain.StaffAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM staff_accounts`
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
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

	var result []domain.StaffAccount
	for rows.Next() {
		var account domain.StaffAccount
		if err := rows.Scan(
			&account.ID,
			&account.Email,
			&account.Name,
			&account.PasswordHash,
			&account.Role,
			&account.Status,
			&account.Active,
			&account.ValidityDays,
			&account.OTP,
			&account.OTPExpiry,
			&account.DayURLs,
			&account.Version,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, account)
	}
	return result, rows.Err()
}
