package models

import (
	"errors"
	"time"
)

// Severity classifies how urgent an alert is.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Alert is an immutable notification produced by a detector. It is consumed
// exactly once by the dispatcher and never retried.
type Alert struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
}

// Validate checks alert field constraints.
func (a *Alert) Validate() error {
	if a.Kind == "" {
		return errors.New("alert kind must not be empty")
	}
	if a.Message == "" {
		return errors.New("alert message must not be empty")
	}
	switch a.Severity {
	case SeverityInfo, SeverityWarning, SeverityCritical:
	default:
		return errors.New("alert severity must be one of: INFO, WARNING, CRITICAL")
	}
	if a.Time.IsZero() {
		return errors.New("alert time must be set")
	}
	return nil
}
