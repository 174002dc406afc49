package model

import "time"

type Session struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"not null;index" json:"user_id"`
	Title  string `gorm:"size:128;not null" json:"title"`

	// Summary is kept for clients that render a session overview; the
	// conversation context never reads it.
	Summary string `gorm:"type:text" json:"summary"`

	// LatestFileName/LatestFileText mirror the most recently uploaded
	// file-type message of the session. They are refreshed in the same
	// transaction that creates that message.
	LatestFileName string `gorm:"size:256" json:"latest_file_name"`
	LatestFileText string `gorm:"type:longtext" json:"latest_file_text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasLatestFile reports whether the session carries file memory worth
// injecting into the conversation context.
func (s *Session) HasLatestFile() bool {
	return s != nil && s.LatestFileText != ""
}
