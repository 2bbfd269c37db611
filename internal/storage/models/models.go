package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// CounselSession 咨询会话主表
type CounselSession struct {
	SessionID       string    `gorm:"type:char(36);primaryKey"`
	Name            string    `gorm:"type:varchar(255);not null"`
	Status          string    `gorm:"type:varchar(50);not null;index:idx_cs_status"`
	Age             int       `gorm:"type:int;not null"`
	ResumeObjectKey string    `gorm:"type:varchar(1024)"` // MinIO对象键，为空表示未上传简历
	ResumeTextMD5   string    `gorm:"type:char(32)"`
	CreatedAt       time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt       time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (CounselSession) TableName() string {
	return "counsel_sessions"
}

// ConversationMessage 会话消息表，消息追加后不可变
type ConversationMessage struct {
	MessageID uint64    `gorm:"primaryKey;autoIncrement"`
	SessionID string    `gorm:"type:char(36);not null;index:idx_cm_session_id;uniqueIndex:idx_cm_session_ordinal,priority:1"`
	Ordinal   int       `gorm:"not null;uniqueIndex:idx_cm_session_ordinal,priority:2"`
	Role      string    `gorm:"type:varchar(20);not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`

	Session *CounselSession `gorm:"foreignKey:SessionID;references:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (ConversationMessage) TableName() string {
	return "conversation_messages"
}

// RoadmapSnapshot 路线图生成结果快照表
type RoadmapSnapshot struct {
	SnapshotID  uint64         `gorm:"primaryKey;autoIncrement"`
	SessionID   string         `gorm:"type:char(36);not null;index:idx_rs_session_id"`
	Variant     string         `gorm:"type:varchar(20);not null"`
	RoadmapJSON datatypes.JSON `gorm:"type:json;not null"`
	GeneratedAt time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_rs_generated_at"`

	Session *CounselSession `gorm:"foreignKey:SessionID;references:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (RoadmapSnapshot) TableName() string {
	return "roadmap_snapshots"
}

// StringToJSON Helper function to convert string to datatypes.JSON
func StringToJSON(s string) datatypes.JSON {
	return datatypes.JSON(s)
}

// MapToJSON Helper function to convert map[string]interface{} to datatypes.JSON
func MapToJSON(m map[string]interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}
