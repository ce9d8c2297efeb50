package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/Paintersrp/protonctl/internal/engine"
	"github.com/Paintersrp/protonctl/internal/runtime"
)

// LogRecord represents a structured log event ready for JSON encoding.
type LogRecord struct {
	Timestamp time.Time `json:"ts"`
	Game      string    `json:"game,omitempty"`
	LaunchID  string    `json:"launch_id,omitempty"`
	Type      string    `json:"type"`
	Level     string    `json:"level"`
	Message   string    `json:"msg"`
	Source    string    `json:"source"`
	Reason    string    `json:"reason,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// NewLogRecord converts an engine event into a structured log record.
func NewLogRecord(event engine.Event) LogRecord {
	level := event.Level
	if level == "" {
		if inferred := inferLogLevel(event.Message); inferred != "" {
			level = inferred
		} else {
			level = "info"
		}
	}
	source := event.Source
	if source == "" {
		source = runtime.LogSourceSystem
	}
	record := LogRecord{
		Timestamp: event.Timestamp,
		Game:      event.Game,
		LaunchID:  event.LaunchID,
		Type:      string(event.Type),
		Level:     level,
		Message:   RedactSecrets(event.Message),
		Source:    source,
		Reason:    event.Reason,
	}
	if event.Err != nil && event.Err.Error() != event.Message {
		record.Error = RedactSecrets(event.Err.Error())
	}
	return record
}

var levelTokenPattern = regexp.MustCompile(`(?i)\b(err|error|warn|warning|fixme|info)\b`)

// inferLogLevel maps common tokens found in game and wine output. Wine prints
// "err:" and "fixme:" channel prefixes.
func inferLogLevel(message string) string {
	matches := levelTokenPattern.FindStringSubmatch(message)
	if len(matches) < 2 {
		return ""
	}
	switch strings.ToLower(matches[1]) {
	case "err", "error":
		return "error"
	case "warn", "warning", "fixme":
		return "warn"
	case "info":
		return "info"
	default:
		return ""
	}
}

// EncodeLogEvent encodes a log event to JSON, reporting errors to stderr if needed.
func EncodeLogEvent(enc *json.Encoder, stderr io.Writer, event engine.Event) {
	if enc == nil {
		return
	}
	record := NewLogRecord(event)
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if err := enc.Encode(&record); err != nil {
		fmt.Fprintf(stderr, "error: encode log: %v\n", err)
	}
}

// FormatText renders an event as a single human readable line.
func FormatText(event engine.Event) string {
	record := NewLogRecord(event)
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	var b strings.Builder
	b.WriteString(record.Timestamp.Format("15:04:05"))
	if record.Game != "" {
		fmt.Fprintf(&b, " [%s]", record.Game)
	}
	if record.Type != "" && record.Type != string(engine.EventTypeLog) {
		fmt.Fprintf(&b, " %s", record.Type)
	}
	if record.Level != "info" {
		fmt.Fprintf(&b, " %s:", strings.ToUpper(record.Level))
	}
	if record.Message != "" {
		b.WriteByte(' ')
		b.WriteString(record.Message)
	}
	if record.Error != "" {
		fmt.Fprintf(&b, ": %s", record.Error)
	}
	return b.String()
}
