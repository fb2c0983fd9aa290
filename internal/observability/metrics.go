package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metric series names.
const (
	seriesRequests    = "requests"
	seriesErrors      = "errors"
	seriesActions     = "actions"
	seriesRateLimited = "rate_limited"
)

// Metrics keeps in-memory counters per series. All methods are safe on a
// nil receiver so callers never guard their instrumentation.
type Metrics struct {
	mu     sync.Mutex
	counts map[string]map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{counts: map[string]map[string]int64{}}
}

func (m *Metrics) bump(series, key string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts[series] == nil {
		m.counts[series] = map[string]int64{}
	}
	m.counts[series][key]++
}

// RecordRequest counts one completed request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	m.bump(seriesRequests, path+"|"+method+"|"+strconv.Itoa(status))
}

// RecordError counts one error response by code.
func (m *Metrics) RecordError(path, method, code string) {
	m.bump(seriesErrors, path+"|"+method+"|"+code)
}

// RecordAction counts one dispatched action; code is the error code or ""
// on success.
func (m *Metrics) RecordAction(action, code string) {
	m.bump(seriesActions, actionKey(action, code))
}

// RecordRateLimited counts one denied request per action class.
func (m *Metrics) RecordRateLimited(class string) {
	m.bump(seriesRateLimited, class)
}

// ActionCount returns the counter for an action/code pair.
func (m *Metrics) ActionCount(action, code string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[seriesActions][actionKey(action, code)]
}

func actionKey(action, code string) string {
	if code == "" {
		return action
	}
	return action + "|" + code
}
