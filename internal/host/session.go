package host

import (
	"fmt"
	"io"
	"slices"
	"sync"
)

// MessageLevel orders session notifications.
type MessageLevel int

const (
	LevelInfo MessageLevel = iota
	LevelWarning
	LevelError
)

func (l MessageLevel) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Session is the per-request state the host layer reads and writes: who is
// acting, in which entity, and the messages queued for the next page.
type Session struct {
	UserID   string
	Profile  string
	Entity   int64
	Entities []int64

	mu            sync.Mutex
	notifications map[MessageLevel][]string
	sqlErrors     []string
	out           io.Writer
}

// NewSession returns a session acting in entity, allowed in entities.
// entity is always allowed.
func NewSession(userID, profile string, entity int64, entities ...int64) *Session {
	if !slices.Contains(entities, entity) {
		entities = append([]int64{entity}, entities...)
	}
	return &Session{
		UserID:   userID,
		Profile:  profile,
		Entity:   entity,
		Entities: entities,
		out:      io.Discard,
	}
}

// CanAccessEntity reports whether id is one of the session's entities.
func (s *Session) CanAccessEntity(id int64) bool {
	return slices.Contains(s.Entities, id)
}

// AddNotification queues msg for display after the current operation.
func (s *Session) AddNotification(level MessageLevel, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notifications == nil {
		s.notifications = make(map[MessageLevel][]string)
	}
	s.notifications[level] = append(s.notifications[level], msg)
}

// Notifications returns the queued messages, info first, without clearing them.
func (s *Session) Notifications() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, level := range []MessageLevel{LevelInfo, LevelWarning, LevelError} {
		out = append(out, s.notifications[level]...)
	}
	return out
}

// ClearNotifications drops every queued message.
func (s *Session) ClearNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = nil
}

// LogSQLError records a storage failure for the current operation.
func (s *Session) LogSQLError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sqlErrors = append(s.sqlErrors, err.Error())
}

// DrainSQLErrors returns the recorded storage failures and forgets them.
func (s *Session) DrainSQLErrors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sqlErrors
	s.sqlErrors = nil
	return out
}

// Output is where host code writes direct output.
func (s *Session) Output() io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out == nil {
		return io.Discard
	}
	return s.out
}

// SetOutput replaces the output writer and returns the previous one.
func (s *Session) SetOutput(w io.Writer) io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.out
	s.out = w
	return prev
}

// Printf writes to the session output.
func (s *Session) Printf(format string, args ...any) {
	fmt.Fprintf(s.Output(), format, args...)
}
