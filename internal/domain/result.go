package domain

import (
	"encoding/json"
	"fmt"
)

// ProbeError classifies why a probe produced no response.
type ProbeError string

const (
	ErrorNone    ProbeError = ""
	ErrorNetwork ProbeError = "network-error"
	ErrorTimeout ProbeError = "timeout"
)

// Outcome is the settled result of a single probe. ResponseCode is zero
// when no response arrived.
type Outcome struct {
	ResponseCode int        `json:"responseCode,omitempty"`
	Error        ProbeError `json:"error,omitempty"`
	Detail       string     `json:"detail,omitempty"`
	LatencyMS    int64      `json:"latencyMs"`
}

func (o Outcome) Failed() bool { return o.Error != ErrorNone }

// LogRecord is one audit line: the check as it was probed, what happened
// and what the worker decided.
type LogRecord struct {
	Check     Check   `json:"check"`
	Outcome   Outcome `json:"outcome"`
	State     State   `json:"state"`
	AlertSent bool    `json:"alert"`
	Time      Millis  `json:"time"`
}

// ParseLogRecord decodes a single audit line.
func ParseLogRecord(line []byte) (LogRecord, error) {
	var r LogRecord
	if err := json.Unmarshal(line, &r); err != nil {
		return LogRecord{}, fmt.Errorf("decode log record: %w", err)
	}
	return r, nil
}
