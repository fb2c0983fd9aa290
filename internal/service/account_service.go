package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/raffle-service/internal/auth"
	"github.com/spec-kit/raffle-service/internal/config"
	"github.com/spec-kit/raffle-service/internal/domain"
	"github.com/spec-kit/raffle-service/internal/events"
	"github.com/spec-kit/raffle-service/internal/repository"
	"github.com/spec-kit/raffle-service/pkg/util"
)

// Decision values accepted by ApproveStaff.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
	DecisionDisable = "disable"
)

// AccountService drives the staff-account lifecycle: registration, login,
// password reset, and the admin decisions that gate access.
type AccountService struct {
	accounts     repository.AccountRepository
	tokenMgr     *auth.TokenManager
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	bcryptCost   int
	otpTTL       time.Duration
	validityDays int
	now          func() time.Time
}

// AccountDependencies encapsulates collaborator requirements.
type AccountDependencies struct {
	AccountRepo repository.AccountRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Now         func() time.Time
}

// NewAccountService builds the service.
func NewAccountService(cfg config.Config, deps AccountDependencies) *AccountService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		accounts:     deps.AccountRepo,
		tokenMgr:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		dispatcher:   deps.Dispatcher,
		logger:       logger,
		bcryptCost:   cfg.Auth.BcryptCost,
		otpTTL:       cfg.Auth.OTPTTL(),
		validityDays: cfg.Auth.DefaultValidityDays,
		now:          now,
	}
}

// TokenManager exposes the underlying token manager for guard wiring.
func (s *AccountService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Register creates a staff account awaiting admin review.
func (s *AccountService) Register(ctx context.Context, email, name, password, confirmPassword string) (*domain.StaffAccount, error) {
	email = domain.NormalizeEmail(email)
	if !util.IsValidEmail(email) {
		return nil, util.NewInvalidInput("invalid email address", nil)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, util.NewInvalidInput("name is required", nil)
	}
	if len(password) < auth.MinPasswordLength {
		return nil, util.NewInvalidInput(fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength), nil)
	}
	if password != confirmPassword {
		return nil, util.NewInvalidInput("password confirmation does not match", nil)
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, util.NewEmailExists(email)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, util.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, util.MapError(err)
	}

	account := &domain.StaffAccount{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         domain.StaffRoleStaff,
		Status:       domain.AccountStatusPending,
		Active:       false,
		ValidityDays: s.validityDays,
		DayURLs:      domain.DayURLs{},
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, util.NewEmailExists(email)
		}
		return nil, util.MapError(err)
	}

	s.publish(ctx, events.EventAccountRegistered, events.AccountRegisteredPayload{
		Email: account.Email,
		Name:  account.Name,
	})
	return account, nil
}

// LoginResult is everything a successful login hands back to the caller.
type LoginResult struct {
	Account       *domain.StaffAccount
	Token         string
	TokenExpires  time.Time
	DaysRemaining int
	RedirectURL   string
	ValidUntil    time.Time
}

// Login authenticates a seller. Credentials are checked before any lifecycle
// gate so a wrong password never leaks account state. A lapsed validity
// window is persisted as EXPIRED here and nowhere else.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.accounts.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewInvalidCredentials()
		}
		return nil, util.MapError(err)
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, util.NewInvalidCredentials()
	}

	if account.Status == domain.AccountStatusPending {
		return nil, util.NewAccountPending()
	}
	if account.Status == domain.AccountStatusDisabled || account.Status == domain.AccountStatusRejected || !account.Active {
		return nil, util.NewAccountDisabled()
	}
	if account.Status == domain.AccountStatusExpired {
		return nil, util.NewAccountExpired(account.ValidUntil())
	}

	now := s.now()
	expiry := account.ValidUntil()
	if now.After(expiry) {
		account.Status = domain.AccountStatusExpired
		if err := s.accounts.Update(ctx, account); err != nil && !errors.Is(err, repository.ErrVersionConflict) {
			s.logger.Warn("expiry transition not persisted", zap.String("email", account.Email), zap.Error(err))
		}
		return nil, util.NewAccountExpired(expiry)
	}

	token, tokenExpires, err := s.tokenMgr.GenerateToken(account)
	if err != nil {
		return nil, util.MapError(err)
	}

	return &LoginResult{
		Account:       account,
		Token:         token,
		TokenExpires:  tokenExpires,
		DaysRemaining: int(math.Ceil(expiry.Sub(now).Hours() / 24)),
		RedirectURL:   account.DayURLs[now.Weekday()],
		ValidUntil:    expiry,
	}, nil
}

// ForgotPassword stores a short-lived one-time code and hands it to the
// notification pipeline. The returned masked address is identical whether or
// not the account exists, so callers cannot probe for registrations.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) (string, error) {
	normalized := domain.NormalizeEmail(email)
	masked := util.MaskEmail(normalized)

	account, err := s.accounts.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return masked, nil
		}
		return "", util.MapError(err)
	}

	otp, err := generateOTP()
	if err != nil {
		return "", util.MapError(err)
	}
	expiry := s.now().Add(s.otpTTL)
	account.OTP = otp
	account.OTPExpiry = &expiry
	if err := s.saveAccount(ctx, account); err != nil {
		return "", err
	}

	s.publish(ctx, events.EventOTPRequested, events.OTPRequestedPayload{
		Email:     account.Email,
		Name:      account.Name,
		OTP:       otp,
		ExpiresAt: expiry,
	})
	return masked, nil
}

// VerifyOTP exchanges a valid one-time code for a reset token. The stored
// otp field flips from code to RESET:<token>, so the code cannot be replayed.
func (s *AccountService) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	account, err := s.accounts.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", util.NewInvalidOTP()
		}
		return "", util.MapError(err)
	}

	stored := account.OTP
	if stored == "" || strings.HasPrefix(stored, domain.ResetTokenPrefix) {
		return "", util.NewInvalidOTP()
	}
	if otp == "" || stored != otp {
		return "", util.NewInvalidOTP()
	}
	if account.OTPExpiry == nil || s.now().After(*account.OTPExpiry) {
		return "", util.NewInvalidOTP()
	}

	resetToken := uuid.NewString()
	account.OTP = domain.ResetTokenPrefix + resetToken
	if err := s.saveAccount(ctx, account); err != nil {
		return "", err
	}
	return resetToken, nil
}

// ResetPassword sets a new password when the reset token matches, then
// clears the otp field.
func (s *AccountService) ResetPassword(ctx context.Context, email, resetToken, newPassword string) error {
	if len(newPassword) < auth.MinPasswordLength {
		return util.NewInvalidInput(fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength), nil)
	}

	account, err := s.accounts.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewInvalidOTP()
		}
		return util.MapError(err)
	}
	if resetToken == "" || account.OTP != domain.ResetTokenPrefix+resetToken {
		return util.NewInvalidOTP()
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return util.MapError(err)
	}
	account.PasswordHash = hash
	account.OTP = ""
	account.OTPExpiry = nil
	return s.saveAccount(ctx, account)
}

// ApproveStaff applies an admin decision. Approval restarts the validity
// window by resetting creation time to now.
func (s *AccountService) ApproveStaff(ctx context.Context, targetEmail, decision string) (*domain.StaffAccount, error) {
	account, err := s.getByEmail(ctx, targetEmail)
	if err != nil {
		return nil, err
	}

	switch decision {
	case DecisionApprove:
		account.Status = domain.AccountStatusApproved
		account.Active = true
		account.CreatedAt = s.now()
	case DecisionReject:
		account.Status = domain.AccountStatusRejected
		account.Active = false
	case DecisionDisable:
		account.Status = domain.AccountStatusDisabled
		account.Active = false
	default:
		return nil, util.NewInvalidInput("decision must be approve, reject or disable", nil)
	}

	if err := s.saveAccount(ctx, account); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventAccountDecided, events.AccountDecidedPayload{
		Email:    account.Email,
		Name:     account.Name,
		Decision: decision,
		Status:   account.Status,
	})
	return account, nil
}

// ExtendValidity grants additional days and resurrects an expired account.
func (s *AccountService) ExtendValidity(ctx context.Context, targetEmail string, additionalDays int) (*domain.StaffAccount, error) {
	if additionalDays <= 0 {
		return nil, util.NewInvalidInput("additionalDays must be positive", nil)
	}

	account, err := s.getByEmail(ctx, targetEmail)
	if err != nil {
		return nil, err
	}

	account.ValidityDays += additionalDays
	if account.Status == domain.AccountStatusExpired {
		account.Status = domain.AccountStatusApproved
		account.Active = true
	}

	if err := s.saveAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// StaffPatch lists the admin-mutable account fields. Nil pointers leave the
// stored value untouched; DayURLs merges per weekday, an empty URL clears
// that day.
type StaffPatch struct {
	Name         *string
	Role         *domain.StaffRole
	ValidityDays *int
	DayURLs      domain.DayURLs
}

// UpdateStaff applies the patch fields that are present and nothing else.
func (s *AccountService) UpdateStaff(ctx context.Context, targetEmail string, patch StaffPatch) (*domain.StaffAccount, error) {
	account, err := s.getByEmail(ctx, targetEmail)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, util.NewInvalidInput("name cannot be empty", nil)
		}
		account.Name = name
	}
	if patch.Role != nil {
		account.Role = *patch.Role
	}
	if patch.ValidityDays != nil {
		if *patch.ValidityDays <= 0 {
			return nil, util.NewInvalidInput("validityDays must be positive", nil)
		}
		account.ValidityDays = *patch.ValidityDays
	}
	if patch.DayURLs != nil {
		if account.DayURLs == nil {
			account.DayURLs = domain.DayURLs{}
		}
		for day, url := range patch.DayURLs {
			if url == "" {
				delete(account.DayURLs, day)
				continue
			}
			account.DayURLs[day] = url
		}
	}

	if err := s.saveAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// GetStaff loads one account by email.
func (s *AccountService) GetStaff(ctx context.Context, email string) (*domain.StaffAccount, error) {
	return s.getByEmail(ctx, email)
}

// ListStaff returns accounts matching the filter, newest first.
func (s *AccountService) ListStaff(ctx context.Context, filter repository.AccountFilter) ([]domain.StaffAccount, error) {
	accounts, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, util.MapError(err)
	}
	return accounts, nil
}

func (s *AccountService) getByEmail(ctx context.Context, email string) (*domain.StaffAccount, error) {
	normalized := domain.NormalizeEmail(email)
	account, err := s.accounts.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("staff account", map[string]any{"email": normalized})
		}
		return nil, util.MapError(err)
	}
	return account, nil
}

func (s *AccountService) saveAccount(ctx context.Context, account *domain.StaffAccount) error {
	if err := s.accounts.Update(ctx, account); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return util.NewVersionConflict("staff account")
		}
		return util.MapError(err)
	}
	return nil
}

func (s *AccountService) publish(ctx context.Context, eventType events.EventType, payload interface{}) {
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

// generateOTP returns a 6-digit numeric code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
