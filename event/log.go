package event

import "time"

// NextLogEntryEvent is a log entry published for remote log viewers.
type NextLogEntryEvent struct {
	Time       time.Time              `json:"time"`
	Message    string                 `json:"message"`
	Level      string                 `json:"level"`
	LoggerName string                 `json:"logger_name"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}
