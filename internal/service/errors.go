package service

import "errors"

// 服務層的錯誤分類
// 處理器負責把它們對應到 HTTP 狀態碼或 WebSocket 錯誤事件
var (
	// ErrInvalidCard 表示選牌不在房間使用的點數系統內
	ErrInvalidCard = errors.New("card value is not in the room's point system")

	// ErrForbidden 表示非主持人也非管理員嘗試執行控制操作
	ErrForbidden = errors.New("only the host or an admin can control the room")

	// ErrCodeGenerationExhausted 表示房間代碼重試次數用盡仍然碰撞
	ErrCodeGenerationExhausted = errors.New("could not generate a unique room code")

	// ErrTimerDisabled 表示房間未啟用計時器
	ErrTimerDisabled = errors.New("timer is not enabled for this room")

	// ErrTimerNotRunning 表示計時器目前沒有在倒數
	ErrTimerNotRunning = errors.New("timer is not running")

	// ErrStaleRoom 表示連線目標房間已閒置逾時，連線被拒絕
	ErrStaleRoom = errors.New("room closed due to inactivity")

	// ErrAlreadyRevealed 表示本輪已經開牌，重複的開牌請求不再套用
	ErrAlreadyRevealed = errors.New("cards already revealed for this round")

	// ErrNotParticipant 表示操作者不是房間的參與者
	ErrNotParticipant = errors.New("not a participant of this room")

	// ErrEmptyMessage 表示聊天訊息內容為空
	ErrEmptyMessage = errors.New("message cannot be empty")
)
