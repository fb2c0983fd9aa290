package domain

import "time"

// AuditEntry is one recorded lifecycle or sale event.
type AuditEntry struct {
	ID        string
	EventType string
	Subject   string
	Detail    map[string]any
	CreatedAt time.Time
}
