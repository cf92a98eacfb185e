package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"planning_poker/internal/service"
)

// SessionLogHandler 處理開牌紀錄的報表匯出
type SessionLogHandler struct {
	roomService *service.RoomService
}

func NewSessionLogHandler(roomService *service.RoomService) *SessionLogHandler {
	return &SessionLogHandler{roomService: roomService}
}

// ExportAll 匯出呼叫者主持的所有房間的開牌紀錄，CSV 格式
func (h *SessionLogHandler) ExportAll(c *gin.Context) {
	userID, _ := c.Get("userID")

	logs, err := h.roomService.SessionLogsByHost(userID.(uint))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "無法取得開牌紀錄"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="session_logs.csv"`)

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{"room_id", "timestamp", "average", "participant", "selection"})
	for _, log := range logs {
		roomID := strconv.FormatUint(uint64(log.RoomID), 10)
		timestamp := log.Timestamp.Format("2006-01-02 15:04:05")
		average := fmt.Sprintf("%.2f", log.StoryPointAverage)
		for name, selection := range log.Selections {
			writer.Write([]string{roomID, timestamp, average, name, selection})
		}
	}
}

// ListAll 列出呼叫者主持的所有房間的開牌紀錄
func (h *SessionLogHandler) ListAll(c *gin.Context) {
	userID, _ := c.Get("userID")

	logs, err := h.roomService.SessionLogsByHost(userID.(uint))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "無法取得開牌紀錄"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
