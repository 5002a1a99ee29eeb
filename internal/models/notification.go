package models

import "time"

// NotificationType labels the notification for client rendering.
type NotificationType string

const (
	NotificationSimulationReady     NotificationType = "simulation_ready"
	NotificationSimulationCompleted NotificationType = "simulation_completed"
	NotificationChildProgress       NotificationType = "child_progress"
	NotificationAchievement         NotificationType = "achievement_unlocked"
)

// Notification is one persisted message for a user.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Data      JSONMap          `db:"data" json:"data,omitempty"`
	Link      string           `db:"link" json:"link,omitempty"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
