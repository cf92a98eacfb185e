package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"planning_poker/internal/repository"
	"planning_poker/internal/service"
)

// RoomHandler 處理與估點房間相關的請求
type RoomHandler struct {
	roomService *service.RoomService
	sessions    *service.RoomSessionManager
}

// NewRoomHandler 創建一個新的 RoomHandler 實例
func NewRoomHandler(roomService *service.RoomService, sessions *service.RoomSessionManager) *RoomHandler {
	return &RoomHandler{roomService: roomService, sessions: sessions}
}

// CreateRoom 處理創建新房間的請求
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var input struct {
		ProjectName     string `json:"project_name"`
		PointSystem     string `json:"point_system"`
		AutoRevealCards bool   `json:"auto_reveal_cards"`
		AllowSkip       *bool  `json:"allow_skip"`
		EnableTimer     bool   `json:"enable_timer"`
		TimerDuration   int    `json:"timer_duration"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")

	allowSkip := true
	if input.AllowSkip != nil {
		allowSkip = *input.AllowSkip
	}

	room, err := h.roomService.CreateRoom(userID.(uint), service.CreateRoomOptions{
		ProjectName:     input.ProjectName,
		PointSystem:     input.PointSystem,
		AutoRevealCards: input.AutoRevealCards,
		AllowSkip:       allowSkip,
		EnableTimer:     input.EnableTimer,
		TimerDuration:   input.TimerDuration,
	})
	if err != nil {
		if errors.Is(err, service.ErrCodeGenerationExhausted) {
			// 代碼重試用盡屬於暫時性錯誤，客戶端可以重試
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "暫時無法產生房間代碼，請稍後再試"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "創建房間失敗"})
		return
	}

	c.JSON(http.StatusCreated, room)
}

// GetRoom 處理獲取房間訊息的請求，代碼或數字 ID 皆可
// 未認證的呼叫者只會拿到參與者人數，不會拿到名單
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.roomService.GetRoomByIDOrCode(c.Param("identifier"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "房間不存在"})
		return
	}

	payload := gin.H{
		"id":            room.ID,
		"code":          room.Code,
		"project_name":  room.ProjectName,
		"point_system":  room.PointSystem,
		"status":        room.Status,
		"auto_closed":   room.AutoClosed,
		"host_username": h.roomService.HostUsername(room),
	}

	if _, authenticated := c.Get("userID"); authenticated {
		participants, err := h.roomService.ListParticipants(room, false)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "無法取得參與者"})
			return
		}
		payload["participants"] = participants
	} else {
		count, _ := h.roomService.ParticipantCount(room.ID)
		payload["participant_count"] = count
	}

	c.JSON(http.StatusOK, payload)
}

// identityFromContext 把已驗證的用戶轉成連線身分
func (h *RoomHandler) identityFromContext(c *gin.Context) (service.Identity, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return service.Identity{}, false
	}
	identity, err := h.roomService.ResolveUserIdentity(userID.(uint))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return service.Identity{}, false
	}
	return identity, true
}

// roomCode 解析路徑中的房間識別字並回傳其代碼
func (h *RoomHandler) roomCode(c *gin.Context) (string, bool) {
	room, err := h.roomService.GetRoomByIDOrCode(c.Param("identifier"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "房間不存在"})
		return "", false
	}
	return room.Code, true
}

// StartRound 處理開始新一輪的請求，與 WebSocket 指令共用同一條串行路徑
func (h *RoomHandler) StartRound(c *gin.Context) {
	identity, ok := h.identityFromContext(c)
	if !ok {
		return
	}
	code, ok := h.roomCode(c)
	if !ok {
		return
	}

	if err := h.sessions.StartRound(code, identity, ""); err != nil {
		respondCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "新一輪開始"})
}

// Reveal 處理開牌請求
func (h *RoomHandler) Reveal(c *gin.Context) {
	identity, ok := h.identityFromContext(c)
	if !ok {
		return
	}
	code, ok := h.roomCode(c)
	if !ok {
		return
	}

	if err := h.sessions.RevealCards(code, identity); err != nil {
		respondCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已開牌"})
}

// Skip 處理跳過參與者的請求
func (h *RoomHandler) Skip(c *gin.Context) {
	var input struct {
		ParticipantID uint `json:"participant_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity, ok := h.identityFromContext(c)
	if !ok {
		return
	}
	code, ok := h.roomCode(c)
	if !ok {
		return
	}

	if err := h.sessions.SkipParticipant(code, identity, input.ParticipantID); err != nil {
		respondCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已跳過參與者"})
}

// GetSessionLogs 列出房間的開牌紀錄
func (h *RoomHandler) GetSessionLogs(c *gin.Context) {
	room, err := h.roomService.GetRoomByIDOrCode(c.Param("identifier"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "房間不存在"})
		return
	}

	logs, err := h.roomService.SessionLogs(room.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "無法取得開牌紀錄"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room_id":   room.ID,
		"room_code": room.Code,
		"logs":      logs,
	})
}

// AdminLastRoom 回傳管理員最近主持的房間，供「繼續上次房間」使用
func (h *RoomHandler) AdminLastRoom(c *gin.Context) {
	userID, _ := c.Get("userID")

	room, err := h.roomService.LastRoomForAdmin(userID.(uint))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "沒有最近的房間"})
		return
	}
	c.JSON(http.StatusOK, room)
}

// respondCommandError 把房間指令的錯誤對應到 HTTP 狀態碼
func respondCommandError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "只有主持人或管理員可以執行此操作"})
	case errors.Is(err, service.ErrAlreadyRevealed):
		c.JSON(http.StatusConflict, gin.H{"error": "本輪已經開牌"})
	case errors.Is(err, service.ErrInvalidCard):
		c.JSON(http.StatusBadRequest, gin.H{"error": "無效的牌面"})
	case errors.Is(err, service.ErrTimerDisabled):
		c.JSON(http.StatusBadRequest, gin.H{"error": "此房間未啟用計時器"})
	case errors.Is(err, service.ErrTimerNotRunning):
		c.JSON(http.StatusBadRequest, gin.H{"error": "計時器尚未啟動"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "房間不存在"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
