package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/raffle-service/internal/api/dto"
	"github.com/spec-kit/raffle-service/internal/auth"
	"github.com/spec-kit/raffle-service/internal/domain"
	"github.com/spec-kit/raffle-service/internal/observability"
	"github.com/spec-kit/raffle-service/internal/ratelimit"
	apperrors "github.com/spec-kit/raffle-service/pkg/util"
)

// ActionFunc executes one dispatched action. actor is nil for public actions.
type ActionFunc func(c *fiber.Ctx, params dto.Params, actor *domain.StaffAccount) (fiber.Map, error)

type actionSpec struct {
	fn      ActionFunc
	public  bool
	limited bool
	role    domain.StaffRole
}

// Dispatcher routes requests by their action parameter, applying the
// public/protected split, authorization and rate limiting before the handler
// runs.
type Dispatcher struct {
	guard   *auth.Guard
	limiter *ratelimit.Limiter
	metrics *observability.Metrics
	logger  *zap.Logger
	actions map[string]actionSpec
}

// NewDispatcher builds an empty dispatcher; actions are attached via Public,
// PublicLimited and Protected.
func NewDispatcher(guard *auth.Guard, limiter *ratelimit.Limiter, metrics *observability.Metrics, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		guard:   guard,
		limiter: limiter,
		metrics: metrics,
		logger:  logger,
		actions: map[string]actionSpec{},
	}
}

// Public registers an action reachable without a bearer token and without
// rate limiting.
func (d *Dispatcher) Public(action string, fn ActionFunc) {
	d.actions[action] = actionSpec{fn: fn, public: true}
}

// PublicLimited registers a public action still counted against its class
// budget, keyed by the caller's email parameter when present, else the
// client IP.
func (d *Dispatcher) PublicLimited(action string, fn ActionFunc) {
	d.actions[action] = actionSpec{fn: fn, public: true, limited: true}
}

// Protected registers an action behind the access guard. role narrows it
// further; empty admits any approved account.
func (d *Dispatcher) Protected(action string, role domain.StaffRole, fn ActionFunc) {
	d.actions[action] = actionSpec{fn: fn, role: role}
}

// Handle serves every dispatched request.
func (d *Dispatcher) Handle(c *fiber.Ctx) error {
	params, err := ParseParams(c)
	if err != nil {
		return err
	}

	action := params.Str("action")
	spec, ok := d.actions[action]
	if !ok {
		return apperrors.NewInvalidAction(action)
	}

	payload, err := d.invoke(c, action, spec, params)
	d.record(action, err)
	if err != nil {
		return err
	}
	return Success(c, payload)
}

func (d *Dispatcher) invoke(c *fiber.Ctx, action string, spec actionSpec, params dto.Params) (fiber.Map, error) {
	var actor *domain.StaffAccount
	if spec.public {
		if spec.limited {
			identity := domain.NormalizeEmail(params.Str("email"))
			if identity == "" {
				identity = c.IP()
			}
			if err := d.allow(c, action, identity); err != nil {
				return nil, err
			}
		}
	} else {
		var err error
		actor, err = d.guard.Authorize(c.UserContext(), auth.BearerToken(c.Get(fiber.HeaderAuthorization)), spec.role)
		if err != nil {
			return nil, err
		}
		if err := d.allow(c, action, actor.Email); err != nil {
			return nil, err
		}
	}
	return spec.fn(c, params, actor)
}

// allow charges one request against the identity's class budget. Backend
// failures log and admit the request rather than blocking traffic.
func (d *Dispatcher) allow(c *fiber.Ctx, action, identity string) error {
	if d.limiter == nil {
		return nil
	}
	class := ratelimit.ClassOf(action)
	res, err := d.limiter.Check(c.UserContext(), identity, class)
	if err != nil {
		d.logger.Warn("rate limit check failed", zap.String("action", action), zap.Error(err))
		return nil
	}
	if !res.Allowed {
		if d.metrics != nil {
			d.metrics.RecordRateLimited(string(class))
		}
		return apperrors.NewRateLimit(res.RetryAfter)
	}
	return nil
}

func (d *Dispatcher) record(action string, err error) {
	if d.metrics == nil {
		return
	}
	code := ""
	if err != nil {
		code = apperrors.ToDomainError(err).Code
	}
	d.metrics.RecordAction(action, code)
}
