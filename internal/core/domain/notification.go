package domain

// NotificationContent is the user-visible rendering of a job transition.
// Derived from status and error kind on every transition, never stored.
type NotificationContent struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	ActionLabel string `json:"action_label,omitempty"`
	IsOngoing   bool   `json:"is_ongoing"`
}
