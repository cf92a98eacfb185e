package models

import (
	"time"

	"gorm.io/gorm"
)

// CardSkipped 是被跳過的參與者的選牌標記
const CardSkipped = "SKIPPED"

// Participant 表示房間內的一位參與者
// 同一個身分在同一個房間內最多只會有一列，由複合唯一索引在資料層保證；
// 投票以房間為界，不跨房間沿用
type Participant struct {
	gorm.Model
	RoomID        uint    `gorm:"not null;uniqueIndex:idx_participant_room_user,priority:1;uniqueIndex:idx_participant_room_anon,priority:1" json:"room_id"`
	UserID        *uint   `gorm:"uniqueIndex:idx_participant_room_user,priority:2" json:"user_id"`      // 註冊用戶，匿名參與者為 nil
	AnonymousID   *uint   `gorm:"uniqueIndex:idx_participant_room_anon,priority:2" json:"anonymous_id"` // 匿名身分，註冊用戶為 nil
	DisplayName   string  `gorm:"size:100" json:"display_name"`
	CardSelection *string `gorm:"size:50" json:"-"` // nil 表示尚未選牌，開牌前不對外揭露
}

// HasVoted 回報參與者是否已經選牌
func (p *Participant) HasVoted() bool {
	return p.CardSelection != nil
}

// AnonymousIdentity 表示以 session token 追蹤的訪客身分
// 與房間無關，斷線重連時憑 token 取回同一個顯示名稱
type AnonymousIdentity struct {
	gorm.Model
	SessionToken string    `gorm:"uniqueIndex;size:64;not null" json:"session_token"`
	DisplayName  string    `gorm:"size:100;not null" json:"display_name"`
	LastSeen     time.Time `json:"last_seen"` // 超過保留期限未活動的身分會被清除
}
