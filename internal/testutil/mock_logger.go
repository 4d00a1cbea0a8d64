// Package testutil provides shared test doubles.
package testutil

import (
	"sync"

	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
)

// MockLogger implements logging.Logger and records every entry.
type MockLogger struct {
	mu       sync.Mutex
	fields   []logging.Field
	parent   *MockLogger
	Messages []LogMessage
}

// LogMessage is one recorded entry.
type LogMessage struct {
	Level   string
	Message string
	Fields  []logging.Field
}

// Field returns the value of the named field, if present.
func (m LogMessage) Field(key string) (interface{}, bool) {
	for _, f := range m.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// NewMockLogger creates an empty MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) root() *MockLogger {
	r := m
	for r.parent != nil {
		r = r.parent
	}
	return r
}

func (m *MockLogger) log(level, msg string, fields []logging.Field) {
	all := make([]logging.Field, 0, len(m.fields)+len(fields))
	all = append(all, m.fields...)
	all = append(all, fields...)

	r := m.root()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, LogMessage{Level: level, Message: msg, Fields: all})
}

func (m *MockLogger) Debug(msg string, fields ...logging.Field) { m.log("debug", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...logging.Field)  { m.log("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...logging.Field)  { m.log("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...logging.Field) { m.log("error", msg, fields) }
func (m *MockLogger) Fatal(msg string, fields ...logging.Field) { m.log("fatal", msg, fields) }

// With returns a child that shares the parent's message buffer.
func (m *MockLogger) With(fields ...logging.Field) logging.Logger {
	child := &MockLogger{parent: m.root()}
	child.fields = append(append(child.fields, m.fields...), fields...)
	return child
}

// Named is a no-op for the mock.
func (m *MockLogger) Named(string) logging.Logger { return m }

func (m *MockLogger) Sync() error { return nil }

// GetMessages returns a copy of the recorded entries.
func (m *MockLogger) GetMessages() []LogMessage {
	r := m.root()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogMessage, len(r.Messages))
	copy(out, r.Messages)
	return out
}

// HasMessage reports whether an entry with level and exact message exists.
func (m *MockLogger) HasMessage(level, msg string) bool {
	for _, logged := range m.GetMessages() {
		if logged.Level == level && logged.Message == msg {
			return true
		}
	}
	return false
}
