package models

import (
	"VoiceBoard/pkg/errors"
	"VoiceBoard/pkg/util"
	"time"

	"gorm.io/gorm"
)

// DisplayMessage is one entry of the signage rotation.
type DisplayMessage struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	MessageText  string    `json:"message_text" gorm:"type:text;not null"`
	IsActive     bool      `json:"is_active" gorm:"not null;default:true;index"`
	DisplayOrder int       `json:"display_order" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// DisplayMessageUpdate is a partial update; nil means "not supplied".
type DisplayMessageUpdate struct {
	MessageText  *string `json:"message_text"`
	IsActive     *bool   `json:"is_active"`
	DisplayOrder *int    `json:"display_order"`
}

func (u DisplayMessageUpdate) Empty() bool {
	return u.MessageText == nil && u.IsActive == nil && u.DisplayOrder == nil
}

func (u DisplayMessageUpdate) columns() map[string]any {
	cols := make(map[string]any, 4)
	if u.MessageText != nil {
		cols["message_text"] = *u.MessageText
	}
	if u.IsActive != nil {
		cols["is_active"] = *u.IsActive
	}
	if u.DisplayOrder != nil {
		cols["display_order"] = *u.DisplayOrder
	}
	return cols
}

// ListDisplayMessages orders by display_order ascending, newest first on ties.
func ListDisplayMessages(db *gorm.DB, activeOnly bool) ([]DisplayMessage, error) {
	q := db.Model(&DisplayMessage{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	messages := make([]DisplayMessage, 0)
	err := q.Order("display_order ASC").Order("created_at DESC").Order("id DESC").Find(&messages).Error
	if err != nil {
		return nil, errors.Internal(err)
	}
	return messages, nil
}

func GetDisplayMessage(db *gorm.DB, id uint) (*DisplayMessage, error) {
	var msg DisplayMessage
	if err := db.First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("display message not found")
		}
		return nil, errors.Internal(err)
	}
	return &msg, nil
}

// CreateDisplayMessage inserts an active entry.
func CreateDisplayMessage(db *gorm.DB, text string, order int) (*DisplayMessage, error) {
	if text == "" {
		return nil, errors.Validation("message text is required")
	}
	msg := &DisplayMessage{
		MessageText:  text,
		IsActive:     true,
		DisplayOrder: order,
	}
	if err := db.Create(msg).Error; err != nil {
		return nil, errors.Internal(err)
	}
	util.Sig().Emit(SigDisplayChanged, msg)
	return msg, nil
}

// UpdateDisplayMessage changes only the supplied columns.
func UpdateDisplayMessage(db *gorm.DB, id uint, upd DisplayMessageUpdate) (*DisplayMessage, error) {
	if upd.Empty() {
		return nil, errors.Validation("no fields to update")
	}
	if upd.MessageText != nil && *upd.MessageText == "" {
		return nil, errors.Validation("message text is required")
	}
	cols := upd.columns()
	cols["updated_at"] = time.Now()

	res := db.Model(&DisplayMessage{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return nil, errors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errors.NotFound("display message not found")
	}
	msg, err := GetDisplayMessage(db, id)
	if err != nil {
		return nil, err
	}
	util.Sig().Emit(SigDisplayChanged, msg)
	return msg, nil
}

// ToggleDisplayMessage flips is_active.
func ToggleDisplayMessage(db *gorm.DB, id uint) (*DisplayMessage, error) {
	current, err := GetDisplayMessage(db, id)
	if err != nil {
		return nil, err
	}
	active := !current.IsActive
	return UpdateDisplayMessage(db, id, DisplayMessageUpdate{IsActive: &active})
}

func DeleteDisplayMessage(db *gorm.DB, id uint) error {
	res := db.Delete(&DisplayMessage{}, id)
	if res.Error != nil {
		return errors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.NotFound("display message not found")
	}
	util.Sig().Emit(SigDisplayChanged, id)
	return nil
}
