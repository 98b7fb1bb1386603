package models

import "gorm.io/gorm"

// Signals emitted on util.Sig(). Sender is the affected record (or its id for deletes).
const (
	SigVoiceCreated   = "voice.created"
	SigVoiceCompleted = "voice.completed"
	SigVoiceFailed    = "voice.failed"
	SigVoiceUpdated   = "voice.updated"
	SigVoiceDeleted   = "voice.deleted"
	SigDisplayChanged = "display.changed"
)

// Migrate creates or updates the tables owned by this package.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&VoiceMessage{}, &DisplayMessage{})
}
