package model

import "time"

// AuditEntry is one persisted request record. Entries are written exactly
// once, asynchronously, and never mutated. A lost write on crash is
// acceptable; audit persistence is best-effort.
type AuditEntry struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Method         string    `json:"method"`
	Path           string    `json:"path"`
	StatusCode     int       `json:"status_code"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	UserID         *string   `json:"user_id,omitempty"`
	IPAddress      string    `json:"ip_address,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	RequestBody    string    `json:"request_body,omitempty"`
	ResponseBody   string    `json:"response_body,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
}

// AuditQuery carries the admin listing filters. Zero values mean "no
// filter"; StatusCode uses a pointer so 0 is distinguishable from unset.
type AuditQuery struct {
	Page       int
	Limit      int
	Method     string
	StatusCode *int
	UserID     string
	From       time.Time
	To         time.Time
}
