// Package logging implements the two append-only observability sinks:
// a protocol usage log and an interaction log. Each is an interface with
// a synchronous newline-delimited-JSON file sink as the default backend,
// so no database driver dependency is carried for what is an append-only
// audit trail.
package logging

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// UsageEntry is the wire format of the usage log: executor.UsageEntry's
// fields (without Metadata) plus timestamp, time zone, and user/device/
// location. ExecutorUsageAdapter in adapter.go converts between the two.
type UsageEntry struct {
	ProtocolName  string                 `json:"protocol_name"`
	ProtocolID    string                 `json:"protocol_id"`
	Arguments     map[string]interface{} `json:"arguments,omitempty"`
	TriggerPhrase string                 `json:"trigger_phrase,omitempty"`
	MatchedPhrase string                 `json:"matched_phrase,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	TimeZone      string                 `json:"time_zone,omitempty"`
	Success       bool                   `json:"success"`
	LatencyMS     int64                  `json:"latency_ms"`
	UserID        string                 `json:"user_id,omitempty"`
	Device        string                 `json:"device,omitempty"`
	Location      string                 `json:"location,omitempty"`
}

// InteractionEntry is one user-facing request/response record.
type InteractionEntry struct {
	Utterance        string    `json:"utterance"`
	Response         string    `json:"response"`
	Intent           string    `json:"intent,omitempty"`
	Capability       string    `json:"capability,omitempty"`
	ProtocolExecuted string    `json:"protocol_executed,omitempty"`
	LatencyMS        int64     `json:"latency_ms"`
	Success          bool      `json:"success"`
	UserID           string    `json:"user_id,omitempty"`
	Device           string    `json:"device,omitempty"`
	Location         string    `json:"location,omitempty"`
	Source           string    `json:"source,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// ProtocolUsageLogger records one entry per completed protocol run.
type ProtocolUsageLogger interface {
	LogUsage(entry UsageEntry)
}

// InteractionLogger records one entry per user-facing request.
type InteractionLogger interface {
	LogInteraction(entry InteractionEntry)
}

// fileSink appends newline-delimited JSON to path, one write per call,
// under a mutex. Single writer, append only.
type fileSink struct {
	mu   sync.Mutex
	file *os.File
}

func openFileSink(path string) (*fileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &fileSink{file: f}, nil
}

func (s *fileSink) appendLine(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file.Write(append(data, '\n'))
}

func (s *fileSink) Close() error {
	return s.file.Close()
}

// FileUsageLogger is a ProtocolUsageLogger backed by an append-only file.
type FileUsageLogger struct {
	sink *fileSink
}

func NewFileUsageLogger(path string) (*FileUsageLogger, error) {
	sink, err := openFileSink(path)
	if err != nil {
		return nil, err
	}
	return &FileUsageLogger{sink: sink}, nil
}

func (l *FileUsageLogger) LogUsage(entry UsageEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	l.sink.appendLine(entry)
}

func (l *FileUsageLogger) Close() error { return l.sink.Close() }

// FileInteractionLogger is an InteractionLogger backed by an append-only
// file.
type FileInteractionLogger struct {
	sink *fileSink
}

func NewFileInteractionLogger(path string) (*FileInteractionLogger, error) {
	sink, err := openFileSink(path)
	if err != nil {
		return nil, err
	}
	return &FileInteractionLogger{sink: sink}, nil
}

func (l *FileInteractionLogger) LogInteraction(entry InteractionEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	l.sink.appendLine(entry)
}

func (l *FileInteractionLogger) Close() error { return l.sink.Close() }
