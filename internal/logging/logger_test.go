package logging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		serviceName string
	}{
		{name: "simple service name", serviceName: "fxhooks"},
		{name: "versioned service name", serviceName: "fxhooks-worker-v2.1.3"},
		{name: "empty service name", serviceName: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.serviceName)
			if logger == nil {
				t.Fatal("New() returned nil")
			}
			if logger.service != tt.serviceName {
				t.Errorf("service = %q, want %q", logger.service, tt.serviceName)
			}
		})
	}
}

func TestLogger_WithContext(t *testing.T) {
	logger := New("fxhooks-test")
	entry := logger.WithContext(context.Background())

	if entry == nil {
		t.Fatal("WithContext() returned nil")
	}
	if entry.Service != "fxhooks-test" {
		t.Errorf("Service = %q, want %q", entry.Service, "fxhooks-test")
	}
	if entry.Time.IsZero() {
		t.Error("Time not set")
	}
	// Background context has no active span, so no trace ID
	if entry.TraceID != "" {
		t.Errorf("TraceID = %q, want empty for background context", entry.TraceID)
	}
}

func TestLogger_WithFields(t *testing.T) {
	logger := New("fxhooks-test")
	fields := map[string]any{"driver": "redis", "workers": 4}

	entry := logger.WithFields(fields)
	if entry.Fields["driver"] != "redis" {
		t.Errorf("Fields[driver] = %v, want redis", entry.Fields["driver"])
	}
	if entry.Fields["workers"] != 4 {
		t.Errorf("Fields[workers] = %v, want 4", entry.Fields["workers"])
	}
}

func TestLogEntry_FluentMethods(t *testing.T) {
	logger := New("fxhooks-test")

	tests := []struct {
		name  string
		build func(*LogEntry) *LogEntry
		check func(*testing.T, *LogEntry)
	}{
		{
			name: "WithTask",
			build: func(e *LogEntry) *LogEntry {
				return e.WithTask("task-123")
			},
			check: func(t *testing.T, e *LogEntry) {
				if e.TaskID != "task-123" {
					t.Errorf("TaskID = %q, want %q", e.TaskID, "task-123")
				}
			},
		},
		{
			name: "WithEventType",
			build: func(e *LogEntry) *LogEntry {
				return e.WithEventType("user.registered")
			},
			check: func(t *testing.T, e *LogEntry) {
				if e.EventType != "user.registered" {
					t.Errorf("EventType = %q, want %q", e.EventType, "user.registered")
				}
			},
		},
		{
			name: "WithEndpoint",
			build: func(e *LogEntry) *LogEntry {
				return e.WithEndpoint("ep-456")
			},
			check: func(t *testing.T, e *LogEntry) {
				if e.EndpointID != "ep-456" {
					t.Errorf("EndpointID = %q, want %q", e.EndpointID, "ep-456")
				}
			},
		},
		{
			name: "chained",
			build: func(e *LogEntry) *LogEntry {
				return e.WithTask("task-123").WithEventType("transaction.completed").WithEndpoint("ep-456")
			},
			check: func(t *testing.T, e *LogEntry) {
				if e.TaskID != "task-123" || e.EventType != "transaction.completed" || e.EndpointID != "ep-456" {
					t.Errorf("chained entry = %+v", e)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := tt.build(logger.Plain())
			tt.check(t, entry)
		})
	}
}

func TestLogEntry_WithField(t *testing.T) {
	entry := New("fxhooks-test").Plain().WithField("attempt", 2).WithField("status", 502)

	if entry.Fields["attempt"] != 2 {
		t.Errorf("Fields[attempt] = %v, want 2", entry.Fields["attempt"])
	}
	if entry.Fields["status"] != 502 {
		t.Errorf("Fields[status] = %v, want 502", entry.Fields["status"])
	}

	// WithField must work on entries constructed without a field map
	bare := &LogEntry{}
	bare.WithField("k", "v")
	if bare.Fields["k"] != "v" {
		t.Error("WithField on bare entry did not allocate the field map")
	}
}

func TestLogEntry_WithFields(t *testing.T) {
	entry := New("fxhooks-test").Plain().
		WithFields(map[string]any{"a": 1}).
		WithFields(map[string]any{"b": 2, "a": 3})

	if entry.Fields["a"] != 3 {
		t.Errorf("Fields[a] = %v, want later write 3", entry.Fields["a"])
	}
	if entry.Fields["b"] != 2 {
		t.Errorf("Fields[b] = %v, want 2", entry.Fields["b"])
	}
}

func TestLogEntry_WithError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantKey bool
	}{
		{name: "real error", err: errors.New("connection refused"), wantKey: true},
		{name: "nil error ignored", err: nil, wantKey: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := (&LogEntry{}).WithError(tt.err)
			_, ok := entry.Fields["error"]
			if ok != tt.wantKey {
				t.Errorf("error field present = %v, want %v", ok, tt.wantKey)
			}
			if tt.wantKey && entry.Fields["error"] != "connection refused" {
				t.Errorf("Fields[error] = %v", entry.Fields["error"])
			}
		})
	}
}

func TestGlobalFunctions(t *testing.T) {
	if e := WithContext(context.Background()); e == nil || e.Service != "fxhooks" {
		t.Errorf("WithContext() entry = %+v, want default service fxhooks", e)
	}
	if e := WithFields(map[string]any{"k": "v"}); e.Fields["k"] != "v" {
		t.Errorf("WithFields() did not carry fields: %+v", e.Fields)
	}
	if e := Plain(); e == nil || e.Service != "fxhooks" {
		t.Errorf("Plain() entry = %+v, want default service fxhooks", e)
	}
}

func TestLogEntryJSONSerialization(t *testing.T) {
	entry := &LogEntry{
		Time:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Level:      LevelInfo,
		Message:    "delivery sent",
		Service:    "fxhooks",
		TaskID:     "task-123",
		EventType:  "user.registered",
		EndpointID: "ep-456",
		Fields:     map[string]any{"attempt": 1},
	}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := map[string]string{
		"level":       "info",
		"msg":         "delivery sent",
		"service":     "fxhooks",
		"task_id":     "task-123",
		"event_type":  "user.registered",
		"endpoint_id": "ep-456",
	}
	for key, val := range want {
		if decoded[key] != val {
			t.Errorf("%s = %v, want %v", key, decoded[key], val)
		}
	}
	if _, ok := decoded["fields"]; !ok {
		t.Error("fields object missing from JSON")
	}
}

func TestLogLevelConstants(t *testing.T) {
	levels := map[LogLevel]string{
		LevelDebug: "debug",
		LevelInfo:  "info",
		LevelWarn:  "warn",
		LevelError: "error",
		LevelFatal: "fatal",
	}
	for level, want := range levels {
		if string(level) != want {
			t.Errorf("level %v = %q, want %q", level, string(level), want)
		}
	}
}
