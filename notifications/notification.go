package notifications

import (
	"time"
)

type Type string

const (
	TypeOrder     Type = "order"
	TypeComplaint Type = "complaint"
	TypeSystem    Type = "system"
	TypeReminder  Type = "reminder"
)

var AllTypes = []Type{TypeOrder, TypeComplaint, TypeSystem, TypeReminder}

// SettingsKey is the key under Settings.Types that enables or disables this type.
func (t Type) SettingsKey() string {
	switch t {
	case TypeOrder:
		return "orders"
	case TypeComplaint:
		return "complaints"
	case TypeReminder:
		return "reminders"
	default:
		return string(t)
	}
}

func (t Type) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Notification is a single user-facing record describing one business event.
type Notification struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	CreatedAt time.Time      `json:"createdAt"`
	Unread    bool           `json:"unread"`
	Priority  Priority       `json:"priority"`
	OrderID   string         `json:"orderId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// DataString returns Data[key] when it holds a string.
func (n Notification) DataString(key string) string {
	if n.Data == nil {
		return ""
	}
	s, _ := n.Data[key].(string)
	return s
}
