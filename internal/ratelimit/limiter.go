package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Class buckets actions into independently limited groups.
type Class string

const (
	ClassRead   Class = "read"
	ClassWrite  Class = "write"
	ClassSearch Class = "search"
	ClassAuth   Class = "auth"
)

// actionClasses maps every known action to its class. Unknown protected
// actions deliberately fall back to read.
var actionClasses = map[string]Class{
	"ping":            ClassRead,
	"register":        ClassAuth,
	"login":           ClassAuth,
	"forgot_password": ClassAuth,
	"verify_otp":      ClassAuth,
	"reset_password":  ClassAuth,

	"me":           ClassRead,
	"get_ticket":   ClassRead,
	"list_tickets": ClassRead,
	"ticket_stats": ClassRead,
	"list_staff":   ClassRead,
	"get_staff":    ClassRead,

	"search_tickets": ClassSearch,

	"record_sale":          ClassWrite,
	"update_ticket_status": ClassWrite,
	"bulk_update_status":   ClassWrite,
	"add_tickets":          ClassWrite,
	"approve_staff":        ClassWrite,
	"extend_validity":      ClassWrite,
	"update_staff":         ClassWrite,
}

// ClassOf returns the action's limit class, defaulting to read.
func ClassOf(action string) Class {
	if class, ok := actionClasses[action]; ok {
		return class
	}
	return ClassRead
}

// Window describes one class's budget.
type Window struct {
	Requests int
	Length   time.Duration
}

// Defaults returns the standard per-class budgets.
func Defaults() map[Class]Window {
	return map[Class]Window{
		ClassRead:   {Requests: 100, Length: time.Minute},
		ClassWrite:  {Requests: 30, Length: time.Minute},
		ClassSearch: {Requests: 20, Length: time.Minute},
		ClassAuth:   {Requests: 10, Length: time.Minute},
	}
}

// Result reports one Check outcome. RetryAfter is the whole seconds until
// the window resets, set only when the request was denied.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter int
}

// Store is the counter backend. Incr atomically bumps the key's window
// counter, creating it with the window TTL on first use, and reports the new
// count plus the time left in the window.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// Limiter applies a fixed-window budget per (identity, class).
type Limiter struct {
	store   Store
	windows map[Class]Window
}

// NewLimiter builds a limiter from the default budgets overlaid with any
// valid overrides.
func NewLimiter(store Store, overrides map[Class]Window) *Limiter {
	windows := Defaults()
	for class, w := range overrides {
		if w.Requests > 0 && w.Length > 0 {
			windows[class] = w
		}
	}
	return &Limiter{store: store, windows: windows}
}

// Check counts one request for the identity against the class window and
// reports whether it fits the budget.
func (l *Limiter) Check(ctx context.Context, identity string, class Class) (Result, error) {
	window, ok := l.windows[class]
	if !ok {
		window = l.windows[ClassRead]
	}

	key := fmt.Sprintf("rl:%s:%s", class, identity)
	count, ttl, err := l.store.Incr(ctx, key, window.Length)
	if err != nil {
		return Result{}, err
	}

	if count > int64(window.Requests) {
		retryAfter := int((ttl + time.Second - 1) / time.Second)
		if retryAfter < 1 {
			retryAfter = 1
		}
		return Result{Allowed: false, RetryAfter: retryAfter}, nil
	}
	return Result{Allowed: true, Remaining: window.Requests - int(count)}, nil
}
