package audit

import (
	"errors"
	"time"
)

// Level is the severity of an entry.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
	// LevelAudit marks administrative actions kept for accountability.
	LevelAudit Level = "audit"
)

// Valid reports whether l is a declared level.
func (l Level) Valid() bool {
	switch l {
	case LevelInfo, LevelWarning, LevelCritical, LevelAudit:
		return true
	}
	return false
}

// EventType classifies what happened.
type EventType string

const (
	EventAuthSuccess        EventType = "AUTH_SUCCESS"
	EventAuthFailure        EventType = "AUTH_FAILURE"
	EventUnauthorizedAccess EventType = "UNAUTHORIZED_ACCESS"
	EventAccountBanned      EventType = "ACCOUNT_BANNED"
	EventAccountUnbanned    EventType = "ACCOUNT_UNBANNED"
	EventAdminAction        EventType = "ADMIN_ACTION"
	EventFileUpload         EventType = "FILE_UPLOAD"
	EventMaliciousFile      EventType = "MALICIOUS_FILE"
	EventValidationFailure  EventType = "VALIDATION_FAILURE"
	EventRateLimitExceeded  EventType = "RATE_LIMIT_EXCEEDED"
	EventSuspiciousActivity EventType = "SUSPICIOUS_ACTIVITY"
)

var eventTypes = map[EventType]struct{}{
	EventAuthSuccess:        {},
	EventAuthFailure:        {},
	EventUnauthorizedAccess: {},
	EventAccountBanned:      {},
	EventAccountUnbanned:    {},
	EventAdminAction:        {},
	EventFileUpload:         {},
	EventMaliciousFile:      {},
	EventValidationFailure:  {},
	EventRateLimitExceeded:  {},
	EventSuspiciousActivity: {},
}

// Valid reports whether e is a declared event type.
func (e EventType) Valid() bool {
	_, ok := eventTypes[e]
	return ok
}

// ErrInvalidRecord is returned by Log.Record for an unknown level or event type.
var ErrInvalidRecord = errors.New("invalid audit record")

// Actor identifies who performed the action, when known.
type Actor struct {
	UserID string
	Email  string
}

// Origin describes where the request came from.
type Origin struct {
	IPAddress string
	UserAgent string
}

// Record is the caller-supplied part of an entry.
type Record struct {
	Level     Level
	EventType EventType
	Action    string
	Actor     Actor
	Origin    Origin
	Resource  string
	Details   map[string]any
	Success   bool
}

// Entry is one line of the trail. Entries are values; nothing in this
// package mutates an Entry after Log.Record returned it.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	EventType EventType      `json:"eventType"`
	Action    string         `json:"action"`
	Success   bool           `json:"success"`
	IPAddress string         `json:"ipAddress,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	Email     string         `json:"email,omitempty"`
	Resource  string         `json:"resource,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	PrevHash  string         `json:"prevHash"`
	Hash      string         `json:"hash"`
}

func (r Record) validate() error {
	if !r.Level.Valid() {
		return errors.Join(ErrInvalidRecord, errors.New("unknown level "+string(r.Level)))
	}
	if !r.EventType.Valid() {
		return errors.Join(ErrInvalidRecord, errors.New("unknown event type "+string(r.EventType)))
	}
	return nil
}

func copyDetails(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
