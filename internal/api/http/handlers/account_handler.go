package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/raffle-service/internal/api/dto"
	"github.com/spec-kit/raffle-service/internal/domain"
	"github.com/spec-kit/raffle-service/internal/repository"
	"github.com/spec-kit/raffle-service/internal/service"
	apperrors "github.com/spec-kit/raffle-service/pkg/util"
)

// dayURLParams maps the per-weekday URL parameter names.
var dayURLParams = map[string]time.Weekday{
	"sundayUrl":    time.Sunday,
	"mondayUrl":    time.Monday,
	"tuesdayUrl":   time.Tuesday,
	"wednesdayUrl": time.Wednesday,
	"thursdayUrl":  time.Thursday,
	"fridayUrl":    time.Friday,
	"saturdayUrl":  time.Saturday,
}

// AccountHandler exposes the account lifecycle actions.
type AccountHandler struct {
	accounts *service.AccountService
}

// NewAccountHandler constructs handler.
func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Register handles the public register action.
func (h *AccountHandler) Register(c *fiber.Ctx, params dto.Params, _ *domain.StaffAccount) (fiber.Map, error) {
	account, err := h.accounts.Register(c.UserContext(), params.Str("email"), params.Str("name"), params.Str("password"), params.Str("confirmPassword"))
	if err != nil {
		return nil, err
	}
	return fiber.Map{
		"message": "registration received, awaiting admin approval",
		"user":    dto.NewAccountView(account),
	}, nil
}

// Login handles the public login action.
func (h *AccountHandler) Login(c *fiber.Ctx, params dto.Params, _ *domain.StaffAccount) (fiber.Map, error) {
	email, password := params.Str("email"), params.Str("password")
	if email == "" || password == "" {
		return nil, apperrors.NewInvalidInput("email and password required", nil)
	}

	result, err := h.accounts.Login(c.UserContext(), email, password)
	if err != nil {
		return nil, err
	}
	return fiber.Map{
		"user":          dto.NewAccountView(result.Account),
		"token":         result.Token,
		"tokenExpires":  result.TokenExpires,
		"daysRemaining": result.DaysRemaining,
		"redirectUrl":   result.RedirectURL,
		"validUntil":    result.ValidUntil,
	}, nil
}

// ForgotPassword handles the public forgot_password action. The response is
// shaped identically whether or not the account exists.
func (h *AccountHandler) ForgotPassword(c *fiber.Ctx, params dto.Params, _ *domain.StaffAccount) (fiber.Map, error) {
	email := params.Str("email")
	if email == "" {
		return nil, apperrors.NewInvalidInput("email required", nil)
	}

	masked, err := h.accounts.ForgotPassword(c.UserContext(), email)
	if err != nil {
		return nil, err
	}
	return fiber.Map{
		"message": "password reset code sent",
		"email":   masked,
	}, nil
}

// VerifyOTP handles the public verify_otp action.
func (h *AccountHandler) VerifyOTP(c *fiber.Ctx, params dto.Params, _ *domain.StaffAccount) (fiber.Map, error) {
	email, otp := params.Str("email"), params.Str("otp")
	if email == "" || otp == "" {
		return nil, apperrors.NewInvalidInput("email and otp required", nil)
	}

	token, err := h.accounts.VerifyOTP(c.UserContext(), email, otp)
	if err != nil {
		return nil, err
	}
	return fiber.Map{"resetToken": token}, nil
}

// ResetPassword handles the public reset_password action.
func (h *AccountHandler) ResetPassword(c *fiber.Ctx, params dto.Params, _ *domain.StaffAccount) (fiber.Map, error) {
	email, token := params.Str("email"), params.Str("resetToken")
	if email == "" || token == "" {
		return nil, apperrors.NewInvalidInput("email and resetToken required", nil)
	}

	if err := h.accounts.ResetPassword(c.UserContext(), email, token, params.Str("newPassword")); err != nil {
		return nil, err
	}
	return fiber.Map{"message": "password updated"}, nil
}

// Me returns the calling account.
func (h *AccountHandler) Me(_ *fiber.Ctx, _ dto.Params, actor *domain.StaffAccount) (fiber.Map, error) {
	return fiber.Map{"user": dto.NewAccountView(actor)}, nil
}

// ApproveStaff handles the admin approve_staff action; decision is one of
// approve, reject or disable.
func (h *AccountHandler) ApproveStaff(c *fiber.Ctx, params dto.Params, _ *domain.StaffAccount) (fiber.Map, error) {
	email := params.Str("email")
	if email == "" {
		return nil, apperrors.NewInvalidInput("email required", nil)
	}

	account, err := h.accounts.ApproveStaff(c.UserContext(), email, params.Str("decision"))
	if err != nil {
		return nil, err
	}
	return fiber.Map{"user": dto.NewAccountView(account)}, nil
}

// ExtendValidity handles the admin extend_validity action.
func (h *AccountHandler) ExtendValidity(c *fiber.Ctx, params dto.Params, _ *domain.StaffAccount) (fiber.Map, error) {
	email := params.Str("email")
	if email == "" {
		return nil, apperrors.NewInvalidInput("email required", nil)
	}
	days, err := params.Int("additionalDays", 0)
	if err != nil {
		return nil, err
	}

	account, err := h.accounts.ExtendValidity(c.UserContext(), email, days)
	if err != nil {
		return nil, err
	}
	return fiber.Map{"user": dto.NewAccountView(account)}, nil
}

// UpdateStaff handles the admin update_staff action. Only parameters present
// in the request are applied.
func (h *AccountHandler) UpdateStaff(c *fiber.Ctx, params dto.Params, _ *domain.StaffAccount) (fiber.Map, error) {
	email := params.Str("email")
	if email == "" {
		return nil, apperrors.NewInvalidInput("email required", nil)
	}

	patch := service.StaffPatch{}
	if params.Has("name") {
		name := params.Str("name")
		patch.Name = &name
	}
	if params.Has("role") {
		role, ok := domain.ParseStaffRole(params.Str("role"))
		if !ok {
			return nil, apperrors.NewInvalidInput("role must be staff or admin", nil)
		}
		patch.Role = &role
	}
	if params.Has("validityDays") {
		days, err := params.Int("validityDays", 0)
		if err != nil {
			return nil, err
		}
		patch.ValidityDays = &days
	}
	for param, day := range dayURLParams {
		if params.Has(param) {
			if patch.DayURLs == nil {
				patch.DayURLs = domain.DayURLs{}
			}
			patch.DayURLs[day] = params.Str(param)
		}
	}

	account, err := h.accounts.UpdateStaff(c.UserContext(), email, patch)
	if err != nil {
		return nil, err
	}
	return fiber.Map{"user": dto.NewAccountView(account)}, nil
}

// GetStaff handles the admin get_staff action.
func (h *AccountHandler) GetStaff(c *fiber.Ctx, params dto.Params, _ *domain.StaffAccount) (fiber.Map, error) {
	email := params.Str("email")
	if email == "" {
		return nil, apperrors.NewInvalidInput("email required", nil)
	}

	account, err := h.accounts.GetStaff(c.UserContext(), email)
	if err != nil {
		return nil, err
	}
	return fiber.Map{"user": dto.NewAccountView(account)}, nil
}

// ListStaff handles the admin list_staff action.
func (h *AccountHandler) ListStaff(c *fiber.Ctx, params dto.Params, _ *domain.StaffAccount) (fiber.Map, error) {
	filter, err := parseAccountFilter(params)
	if err != nil {
		return nil, err
	}

	accounts, err := h.accounts.ListStaff(c.UserContext(), filter)
	if err != nil {
		return nil, err
	}
	views := dto.AccountViews(accounts)
	return fiber.Map{"users": views, "count": len(views)}, nil
}

func parseAccountFilter(params dto.Params) (repository.AccountFilter, error) {
	var filter repository.AccountFilter
	if params.Has("status") {
		status, ok := domain.ParseAccountStatus(params.Str("status"))
		if !ok {
			return filter, apperrors.NewInvalidInput("unknown status filter", nil)
		}
		filter.Status = &status
	}
	if params.Has("role") {
		role, ok := domain.ParseStaffRole(params.Str("role"))
		if !ok {
			return filter, apperrors.NewInvalidInput("role must be staff or admin", nil)
		}
		filter.Role = &role
	}
	if params.Has("active") {
		active, err := strconv.ParseBool(params.Str("active"))
		if err != nil {
			return filter, apperrors.NewInvalidInput("active must be a boolean", nil)
		}
		filter.Active = &active
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
