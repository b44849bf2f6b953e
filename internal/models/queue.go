package models

import (
	"encoding/json"
	"time"
)

type ActionType string

const (
	ActionCompleteTask ActionType = "complete_task"
	ActionReportIssue  ActionType = "report_issue"
)

// QueueItem is a mutation recorded while the backend could not be reached.
type QueueItem struct {
	ID         string          `json:"id"`
	ActionType ActionType      `json:"actionType"`
	Payload    json.RawMessage `json:"payload"`
	Timestamp  time.Time       `json:"timestamp"`
}
