// Package models contains domain entities and business models for the dashboard
package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// DeliveryStatus is the lifecycle state shared by campaigns, ad sets and ads
type DeliveryStatus string

const (
	DeliveryStatusDraft     DeliveryStatus = "DRAFT"
	DeliveryStatusActive    DeliveryStatus = "ACTIVE"
	DeliveryStatusPaused    DeliveryStatus = "PAUSED"
	DeliveryStatusCompleted DeliveryStatus = "COMPLETED"
	DeliveryStatusArchived  DeliveryStatus = "ARCHIVED"
)

// deliveryTransitions lists the user-initiated next states for each status.
// COMPLETED is entered only by the lifecycle scheduler and so never appears as a target.
var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryStatusDraft:     {DeliveryStatusActive, DeliveryStatusPaused},
	DeliveryStatusActive:    {DeliveryStatusPaused},
	DeliveryStatusPaused:    {DeliveryStatusActive, DeliveryStatusArchived},
	DeliveryStatusCompleted: {DeliveryStatusArchived},
	DeliveryStatusArchived:  {},
}

// ParseDeliveryStatus accepts any letter case
func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	status := DeliveryStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("invalid delivery status: %q", s)
	}
	return status, nil
}

// AllDeliveryStatuses returns every status in lifecycle order
func AllDeliveryStatuses() []DeliveryStatus {
	return []DeliveryStatus{
		DeliveryStatusDraft,
		DeliveryStatusActive,
		DeliveryStatusPaused,
		DeliveryStatusCompleted,
		DeliveryStatusArchived,
	}
}

// String returns the string representation of the status
func (s DeliveryStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryStatusDraft, DeliveryStatusActive, DeliveryStatusPaused,
		DeliveryStatusCompleted, DeliveryStatusArchived:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for DeliveryStatus
func (s *DeliveryStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = DeliveryStatus(v)
	case []byte:
		*s = DeliveryStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DeliveryStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for DeliveryStatus
func (s DeliveryStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid DeliveryStatus: %s", s)
	}
	return string(s), nil
}

// AvailableTransitions returns the statuses a user may move s to. The result is a fresh slice.
func AvailableTransitions(s DeliveryStatus) []DeliveryStatus {
	next := deliveryTransitions[s]
	out := make([]DeliveryStatus, len(next))
	copy(out, next)
	return out
}

// CanTransitionTo checks if a user may move s to next
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	for _, allowed := range deliveryTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsEditable reports whether entities in this status accept field edits
func (s DeliveryStatus) IsEditable() bool {
	return s != DeliveryStatusCompleted && s != DeliveryStatusArchived
}

// IsTerminal reports whether no further delivery can happen
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusArchived
}

// GetStatusDisplayName returns a human-readable status name
func (s DeliveryStatus) GetStatusDisplayName() string {
	switch s {
	case DeliveryStatusDraft:
		return "Draft"
	case DeliveryStatusActive:
		return "Active"
	case DeliveryStatusPaused:
		return "Paused"
	case DeliveryStatusCompleted:
		return "Completed"
	case DeliveryStatusArchived:
		return "Archived"
	default:
		return "Unknown"
	}
}

// GetStatusColor returns a color code for the status badge
func (s DeliveryStatus) GetStatusColor() string {
	switch s {
	case DeliveryStatusDraft:
		return "#6c757d" // gray
	case DeliveryStatusActive:
		return "#28a745" // green
	case DeliveryStatusPaused:
		return "#ffc107" // yellow
	case DeliveryStatusCompleted:
		return "#007bff" // blue
	case DeliveryStatusArchived:
		return "#343a40" // dark
	default:
		return "#6c757d" // gray
	}
}
