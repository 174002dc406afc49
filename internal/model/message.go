package model

import "time"

const (
	MessageTypeText  = "text"
	MessageTypeFile  = "file"
	MessageTypeImage = "image"
	MessageTypeCode  = "code"
	MessageTypeVoice = "voice"
)

type Message struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	SessionID uint   `gorm:"not null;index" json:"session_id"`
	UserID    uint   `gorm:"not null;index" json:"user_id"`
	IsUser    bool   `gorm:"not null" json:"is_user"`
	Content   string `gorm:"type:text;not null" json:"content"`

	// MessageType is one of the MessageType* constants. File messages carry
	// the attachment fields below; all other types leave them empty.
	MessageType string `gorm:"size:16;not null;default:text" json:"message_type"`

	File FileAttachment `gorm:"embedded;embeddedPrefix:file_" json:"file"`

	CreatedAt time.Time `json:"created_at"`
}

// FileAttachment records the artifact of one extraction run. It lives only
// inside its owning message.
type FileAttachment struct {
	StoredKey     string `gorm:"size:64" json:"stored_key"`
	OriginalName  string `gorm:"size:256" json:"original_name"`
	ExtractedText string `gorm:"type:longtext" json:"extracted_text"`
}

// IsFile reports whether the message is a file upload rather than a chat turn.
func (m *Message) IsFile() bool {
	return m.MessageType == MessageTypeFile
}
