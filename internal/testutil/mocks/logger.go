package mocks

import (
	"sync"

	"github.com/kevin07696/book-market-service/internal/domain/ports"
)

// LogEntry is one captured log call.
type LogEntry struct {
	Level   string
	Message string
	Fields  []ports.Field
}

// MockLogger records every entry in call order.
type MockLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ ports.Logger = (*MockLogger)(nil)

func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) record(level, msg string, fields []ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, LogEntry{Level: level, Message: msg, Fields: fields})
}

func (m *MockLogger) Debug(msg string, fields ...ports.Field) { m.record("debug", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...ports.Field)  { m.record("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...ports.Field)  { m.record("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...ports.Field) { m.record("error", msg, fields) }

// Entries returns a copy of everything logged at level, or all entries when level is empty.
func (m *MockLogger) Entries(level string) []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LogEntry
	for _, e := range m.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// HasWarn reports whether a warning with msg was logged
func (m *MockLogger) HasWarn(msg string) bool {
	for _, e := range m.Entries("warn") {
		if e.Message == msg {
			return true
		}
	}
	return false
}
