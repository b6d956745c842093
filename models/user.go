package models

import "time"

// User wird lazy beim ersten Kontakt mit einer Slack-Identität angelegt.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SlackUserID string `json:"slack_user_id" gorm:"uniqueIndex;not null"`

	// GeminiAPIKey wird für die AI-Zusammenfassung des Users verwendet.
	GeminiAPIKey string `json:"-"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (User) TableName() string {
	return "users"
}
