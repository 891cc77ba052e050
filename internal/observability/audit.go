package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventRunStart     AuditEventType = "run.start"
	AuditEventRunComplete  AuditEventType = "run.complete"
	AuditEventRunError     AuditEventType = "run.error"
	AuditEventExtract      AuditEventType = "extract"
	AuditEventSnapshotSave AuditEventType = "snapshot.save"
	AuditEventSnapshotDiff AuditEventType = "snapshot.diff"
	AuditEventStoreWrite   AuditEventType = "store.write"
	AuditEventStoreRead    AuditEventType = "store.read"
)

// AuditEvent represents a single audit log entry, written as one JSONL line.
type AuditEvent struct {
	Timestamp   time.Time      `json:"timestamp"`
	EventType   AuditEventType `json:"event_type"`
	SessionID   string         `json:"session_id"`
	Success     bool           `json:"success"`
	Duration    time.Duration  `json:"duration_ms,omitempty"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	ErrorDetail string         `json:"error_detail,omitempty"`
}

// AuditLogger appends analysis audit events to a writer.
type AuditLogger struct {
	mu        sync.Mutex
	writer    io.Writer
	closer    io.Closer
	sessionID string
	enabled   bool
}

// AuditConfig configures the audit logger.
type AuditConfig struct {
	Enabled    bool
	OutputPath string // File path or "stdout"/"stderr"
	SessionID  string
}

// DefaultAuditConfig returns default audit configuration.
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		Enabled:    true,
		OutputPath: "stdout",
	}
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(config *AuditConfig) (*AuditLogger, error) {
	if config == nil {
		config = DefaultAuditConfig()
	}

	var writer io.Writer
	var closer io.Closer
	switch config.OutputPath {
	case "stdout", "":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		writer = f
		closer = f
	}

	sessionID := config.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("session-%d", time.Now().UnixNano())
	}

	return &AuditLogger{
		writer:    writer,
		closer:    closer,
		sessionID: sessionID,
		enabled:   config.Enabled,
	}, nil
}

// Log writes an audit event.
func (l *AuditLogger) Log(event *AuditEvent) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.SessionID == "" {
		event.SessionID = l.sessionID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// LogRunStart records the beginning of an analysis run.
func (l *AuditLogger) LogRunStart(edges, typeCounts int) error {
	return l.Log(&AuditEvent{
		EventType: AuditEventRunStart,
		Success:   true,
		Details: map[string]any{
			"edges":       edges,
			"type_counts": typeCounts,
		},
	})
}

// LogRunComplete records a finished run and its headline numbers.
func (l *AuditLogger) LogRunComplete(modules, cycles, violations int, duration time.Duration) error {
	return l.Log(&AuditEvent{
		EventType: AuditEventRunComplete,
		Success:   true,
		Duration:  duration,
		Details: map[string]any{
			"modules":    modules,
			"cycles":     cycles,
			"violations": violations,
		},
	})
}

// LogRunError records a run aborted by an input error.
func (l *AuditLogger) LogRunError(err error) error {
	return l.Log(&AuditEvent{
		EventType:   AuditEventRunError,
		Success:     false,
		ErrorDetail: err.Error(),
	})
}

// LogExtract records one extractor invocation.
func (l *AuditLogger) LogExtract(extractor, source string, edges int, err error) error {
	event := &AuditEvent{
		EventType: AuditEventExtract,
		Success:   err == nil,
		Message:   extractor,
		Details: map[string]any{
			"source": source,
			"edges":  edges,
		},
	}
	if err != nil {
		event.ErrorDetail = err.Error()
	}
	return l.Log(event)
}

// LogSnapshotSave records a persisted analysis snapshot.
func (l *AuditLogger) LogSnapshotSave(snapshotID string) error {
	return l.Log(&AuditEvent{
		EventType: AuditEventSnapshotSave,
		Success:   true,
		Message:   snapshotID,
	})
}

// LogStoreWrite records a graph written to the backing store.
func (l *AuditLogger) LogStoreWrite(project string, modules int, err error) error {
	event := &AuditEvent{
		EventType: AuditEventStoreWrite,
		Success:   err == nil,
		Message:   project,
		Details:   map[string]any{"modules": modules},
	}
	if err != nil {
		event.ErrorDetail = err.Error()
	}
	return l.Log(event)
}

// Close releases the underlying file, if any.
func (l *AuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}
