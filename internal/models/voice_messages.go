package models

import (
	"VoiceBoard/pkg/errors"
	"VoiceBoard/pkg/util"
	"math"
	"time"

	"gorm.io/gorm"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var openStatuses = []string{StatusPending, StatusProcessing}

// VoiceMessage is one recorded submission and its processing lifecycle.
type VoiceMessage struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	Filename         string    `json:"filename" gorm:"size:255;not null"`
	OriginalFilename string    `json:"original_filename" gorm:"size:255"`
	FileURL          string    `json:"file_url" gorm:"type:text;not null"`
	Transcription    *string   `json:"transcription" gorm:"type:text"`
	ModeratedText    *string   `json:"moderated_text" gorm:"type:text"`
	Status           string    `json:"status" gorm:"size:50;default:pending;index"`
	IsApproved       bool      `json:"is_approved" gorm:"default:false"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// DisplayText is the text an admin would push to the signage:
// the moderated text, else the raw transcription.
func (m *VoiceMessage) DisplayText() string {
	if m.ModeratedText != nil && *m.ModeratedText != "" {
		return *m.ModeratedText
	}
	if m.Transcription != nil {
		return *m.Transcription
	}
	return ""
}

func IsValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

type VoiceQuery struct {
	Page   int
	Limit  int
	Status string
}

func (q *VoiceQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
}

type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	HasNext     bool  `json:"hasNext"`
	HasPrev     bool  `json:"hasPrev"`
}

func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  total,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// CreateVoiceMessage inserts a freshly uploaded recording in the processing state.
func CreateVoiceMessage(db *gorm.DB, filename, originalFilename, fileURL string) (*VoiceMessage, error) {
	msg := &VoiceMessage{
		Filename:         filename,
		OriginalFilename: originalFilename,
		FileURL:          fileURL,
		Status:           StatusProcessing,
	}
	if err := db.Create(msg).Error; err != nil {
		return nil, errors.Internal(err)
	}
	util.Sig().Emit(SigVoiceCreated, msg)
	return msg, nil
}

func GetVoiceMessage(db *gorm.DB, id uint) (*VoiceMessage, error) {
	var msg VoiceMessage
	if err := db.First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("voice message not found")
		}
		return nil, errors.Internal(err)
	}
	return &msg, nil
}

// ListVoiceMessages returns one page, newest first, and the total matching count.
func ListVoiceMessages(db *gorm.DB, q VoiceQuery) ([]VoiceMessage, int64, Pagination, error) {
	q.normalize()
	base := db.Model(&VoiceMessage{})
	if q.Status != "" {
		base = base.Where("status = ?", q.Status)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, Pagination{}, errors.Internal(err)
	}

	messages := make([]VoiceMessage, 0, q.Limit)
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC").Order("id DESC").
		Limit(q.Limit).Offset((q.Page - 1) * q.Limit).
		Find(&messages).Error
	if err != nil {
		return nil, 0, Pagination{}, errors.Internal(err)
	}
	return messages, total, NewPagination(q.Page, q.Limit, total), nil
}

// UpdateVoiceMessage is the administrator override of the moderated text.
func UpdateVoiceMessage(db *gorm.DB, id uint, moderatedText string, isApproved bool) (*VoiceMessage, error) {
	if moderatedText == "" {
		return nil, errors.Validation("moderated text is required")
	}
	res := db.Model(&VoiceMessage{}).Where("id = ?", id).Updates(map[string]any{
		"moderated_text": moderatedText,
		"is_approved":    isApproved,
		"updated_at":     time.Now(),
	})
	if res.Error != nil {
		return nil, errors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errors.NotFound("voice message not found")
	}
	msg, err := GetVoiceMessage(db, id)
	if err != nil {
		return nil, err
	}
	util.Sig().Emit(SigVoiceUpdated, msg)
	return msg, nil
}

// DeleteVoiceMessage removes the row only; the stored audio object is kept.
func DeleteVoiceMessage(db *gorm.DB, id uint) error {
	res := db.Delete(&VoiceMessage{}, id)
	if res.Error != nil {
		return errors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.NotFound("voice message not found")
	}
	util.Sig().Emit(SigVoiceDeleted, id)
	return nil
}

// CompleteVoiceMessage stores the pipeline result. It only touches records that
// are still pending/processing and reports false when the record was already final.
func CompleteVoiceMessage(db *gorm.DB, id uint, transcription, moderatedText string, isApproved bool) (bool, error) {
	res := db.Model(&VoiceMessage{}).
		Where("id = ? AND status IN ?", id, openStatuses).
		Updates(map[string]any{
			"transcription":  transcription,
			"moderated_text": moderatedText,
			"is_approved":    isApproved,
			"status":         StatusCompleted,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return false, errors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if msg, err := GetVoiceMessage(db, id); err == nil {
		util.Sig().Emit(SigVoiceCompleted, msg)
	}
	return true, nil
}

// FailVoiceMessage moves an open record to the terminal error state.
func FailVoiceMessage(db *gorm.DB, id uint) (bool, error) {
	res := db.Model(&VoiceMessage{}).
		Where("id = ? AND status IN ?", id, openStatuses).
		Updates(map[string]any{"status": StatusError, "updated_at": time.Now()})
	if res.Error != nil {
		return false, errors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	util.Sig().Emit(SigVoiceFailed, id)
	return true, nil
}

// FailStaleVoiceMessages marks open records created before cutoff as error
// and emits SigVoiceFailed for each of them.
func FailStaleVoiceMessages(db *gorm.DB, cutoff time.Time) (int64, error) {
	var ids []uint
	err := db.Model(&VoiceMessage{}).
		Where("status IN ? AND created_at < ?", openStatuses, cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, errors.Internal(err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.Model(&VoiceMessage{}).
		Where("id IN ? AND status IN ?", ids, openStatuses).
		Updates(map[string]any{"status": StatusError, "updated_at": time.Now()})
	if res.Error != nil {
		return 0, errors.Internal(res.Error)
	}
	for _, id := range ids {
		util.Sig().Emit(SigVoiceFailed, id)
	}
	return res.RowsAffected, nil
}

// VoiceStatusCounts returns the number of records per status; absent statuses are 0.
func VoiceStatusCounts(db *gorm.DB) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := db.Model(&VoiceMessage{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, errors.Internal(err)
	}
	counts := map[string]int64{
		StatusPending:    0,
		StatusProcessing: 0,
		StatusCompleted:  0,
		StatusError:      0,
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
