package models

import (
	"time"

	"gorm.io/gorm"
)

// Room 表示一個估點房間
type Room struct {
	gorm.Model
	HostID          uint       `json:"host_id"`
	Code            string     `gorm:"uniqueIndex;size:10;not null" json:"code"` // 房間代碼，建立後不可變更
	ProjectName     string     `gorm:"size:100" json:"project_name"`
	PointSystem     string     `gorm:"size:20" json:"point_system"`
	Status          RoomStatus `gorm:"size:10" json:"status"`
	AutoRevealCards bool       `json:"auto_reveal_cards"` // 所有參與者選牌後自動開牌
	AllowSkip       bool       `json:"allow_skip"`        // 允許跳過本輪選牌
	EnableTimer     bool       `json:"enable_timer"`
	TimerDuration   int        `gorm:"default:60" json:"timer_duration"` // 計時器長度（秒）
	TimerStartTime  *time.Time `json:"timer_start_time"`
	TimerEndTime    *time.Time `json:"timer_end_time"`
	IsTimerActive   bool       `json:"is_timer_active"`
	LastActivity    time.Time  `json:"last_activity"`
	AutoClosed      bool       `json:"auto_closed"` // 是否因閒置被系統關閉

	Participants []Participant `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"-"`
}

// RoomStatus 定義房間狀態的類型
type RoomStatus string

const (
	RoomStatusPending   RoomStatus = "PENDING"   // 已建立，尚未開始估點
	RoomStatusActive    RoomStatus = "ACTIVE"    // 估點進行中
	RoomStatusCompleted RoomStatus = "COMPLETED" // 已開牌或已關閉
)
