// Package tasks 定義背景任務的類型常數
package tasks

// 週期性巡查任務，不帶 payload
const (
	// TypeCloseInactiveRooms 關閉閒置逾時的房間
	TypeCloseInactiveRooms = "room:close_inactive"
	// TypeExpireTimers 停掉已到期的回合計時器
	TypeExpireTimers = "room:expire_timers"
	// TypePurgeAnonymous 清除保留期限外的匿名身分
	TypePurgeAnonymous = "identity:purge_stale"
)
