package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// SessionLog 表示一次開牌留下的不可變紀錄
// 建立後不再修改；刪除房間以外的流程都不會清除它
type SessionLog struct {
	gorm.Model
	RoomID            uint         `gorm:"index;not null" json:"room_id"`
	StoryPointAverage float64      `json:"story_point_average"`
	Selections        SelectionMap `gorm:"type:jsonb" json:"participant_selections"` // 顯示名稱 -> 最終選牌
	Timestamp         time.Time    `json:"timestamp"`
}

// SelectionMap 將參與者選牌結果存成 jsonb
type SelectionMap map[string]string

// Value 實作 driver.Valuer，寫入時序列化為 JSON
func (m SelectionMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan 實作 sql.Scanner，讀取時反序列化
func (m *SelectionMap) Scan(value interface{}) error {
	if value == nil {
		*m = SelectionMap{}
		return nil
	}
	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, m)
	case string:
		return json.Unmarshal([]byte(data), m)
	default:
		return errors.New("unsupported type for SelectionMap")
	}
}
