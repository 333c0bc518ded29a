// Package audit records security-relevant events: registrations, logins,
// failed attempts, lockouts, round runs. The sink is injected into the
// services that emit events so tests can capture them in memory.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event kinds.
const (
	KindRegistration   = "user_registration"
	KindLogin          = "log_in"
	KindLogout         = "log_out"
	KindInvalidLogin   = "invalid_login_attempt"
	KindLockout        = "lockout"
	KindUnauthorised   = "unauthorised_access"
	KindPasswordChange = "password_change"
	KindRoundRun       = "round_run"
)

// Event is one structured security event.
type Event struct {
	Kind       string
	UserID     uint
	Email      string
	SourceAddr string
	Time       time.Time
}

// Sink accepts security events.
type Sink interface {
	Record(ctx context.Context, e Event)
}

// SlogSink writes events through a structured logger.
type SlogSink struct {
	l *slog.Logger
}

var _ Sink = (*SlogSink)(nil)

// NewSlogSink wraps the given logger; a nil logger falls back to slog.Default.
func NewSlogSink(l *slog.Logger) *SlogSink {
	if l == nil {
		l = slog.Default()
	}
	return &SlogSink{l: l}
}

// Record logs the event at warn level so security entries survive any
// info-level filtering on the shared logger.
func (s *SlogSink) Record(ctx context.Context, e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	s.l.WarnContext(ctx, "SECURITY",
		"kind", e.Kind,
		"user_id", e.UserID,
		"email", e.Email,
		"source", e.SourceAddr,
		"at", e.Time,
	)
}

// MemorySink retains events in memory for assertions in tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

var _ Sink = (*MemorySink)(nil)

// Record appends the event.
func (s *MemorySink) Record(_ context.Context, e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// Events returns a copy of everything recorded so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByKind returns recorded events with the given kind.
func (s *MemorySink) ByKind(kind string) []Event {
	var out []Event
	for _, e := range s.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
