// Package testutil provides shared test helpers: a recording logger and a
// fixture set of molecules.
package testutil

import (
	"sync"

	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
)

// MockLogger implements logging.Logger and records every entry.  Children
// created by With/Named/WithError share the parent's record.
type MockLogger struct {
	mu       *sync.Mutex
	store    *[]LogMessage
	name     string
	fields   []logging.Field
	Messages []LogMessage
}

// LogMessage represents a single log entry captured by MockLogger.
type LogMessage struct {
	Level   string
	Logger  string
	Message string
	Fields  []logging.Field
}

// NewMockLogger creates a new MockLogger instance.
func NewMockLogger() *MockLogger {
	m := &MockLogger{mu: &sync.Mutex{}}
	m.store = &m.Messages
	return m
}

func (m *MockLogger) log(level, msg string, fields []logging.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := append(append([]logging.Field(nil), m.fields...), fields...)
	*m.store = append(*m.store, LogMessage{Level: level, Logger: m.name, Message: msg, Fields: all})
}

func (m *MockLogger) Debug(msg string, fields ...logging.Field) { m.log("debug", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...logging.Field)  { m.log("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...logging.Field)  { m.log("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...logging.Field) { m.log("error", msg, fields) }
func (m *MockLogger) Fatal(msg string, fields ...logging.Field) { m.log("fatal", msg, fields) }

func (m *MockLogger) child(name string, fields []logging.Field) *MockLogger {
	return &MockLogger{
		mu:     m.mu,
		store:  m.store,
		name:   name,
		fields: append(append([]logging.Field(nil), m.fields...), fields...),
	}
}

func (m *MockLogger) With(fields ...logging.Field) logging.Logger { return m.child(m.name, fields) }

func (m *MockLogger) Named(name string) logging.Logger {
	if m.name != "" {
		name = m.name + "." + name
	}
	return m.child(name, nil)
}

func (m *MockLogger) WithError(err error) logging.Logger {
	return m.child(m.name, []logging.Field{logging.Err(err)})
}

// GetMessages returns a copy of all logged messages.
func (m *MockLogger) GetMessages() []LogMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]LogMessage, len(*m.store))
	copy(result, *m.store)
	return result
}

// Clear removes all logged messages.
func (m *MockLogger) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.store = (*m.store)[:0]
}

// HasMessage checks if a message with the given level and content was logged.
func (m *MockLogger) HasMessage(level, msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, logged := range *m.store {
		if logged.Level == level && logged.Message == msg {
			return true
		}
	}
	return false
}

// Count returns how many entries were logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, logged := range *m.store {
		if logged.Level == level {
			n++
		}
	}
	return n
}

//Personal.AI order the ending
