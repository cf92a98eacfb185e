package models

import (
	"gorm.io/gorm"
)

// User 表示系統中的註冊用戶
type User struct {
	gorm.Model        // 內嵌 gorm.Model，提供 ID、CreatedAt、UpdatedAt 和 DeletedAt 字段
	Username    string `gorm:"uniqueIndex;not null" json:"username"` // 用戶名，必須唯一
	Password    string `gorm:"not null" json:"-"`                    // 密碼，json 序列化時會被忽略
	IsSuperuser bool   `json:"-"`
	IsStaff     bool   `json:"-"`
}

// UserRole 記錄用戶的角色與最近主持的房間
type UserRole struct {
	gorm.Model
	UserID     uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	Role       Role   `gorm:"size:20;not null" json:"role"`
	LastRoomID *uint  `json:"last_room_id"` // 管理員最近建立的房間，供「繼續上次房間」使用
}

// Role 定義用戶角色的類型
type Role string

const (
	RoleAdmin       Role = "admin"       // 管理員角色
	RoleParticipant Role = "participant" // 一般參與者角色
)

// EffectiveRole 計算用戶的有效角色
// superuser 或 staff 一律視為管理員，其餘依照儲存的角色；讀取時推導，不回寫資料庫
func EffectiveRole(user *User, stored Role) Role {
	if user != nil && (user.IsSuperuser || user.IsStaff) {
		return RoleAdmin
	}
	if stored == "" {
		return RoleParticipant
	}
	return stored
}
