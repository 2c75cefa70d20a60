package models

// NotificationMessage is the body consumers read for one processed document.
type NotificationMessage struct {
	SessionID string         `json:"sessionId"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
}

// Notification is the outbound envelope; one is produced per processed document.
type Notification struct {
	ID      string              `json:"id"`
	Message NotificationMessage `json:"message"`
}
