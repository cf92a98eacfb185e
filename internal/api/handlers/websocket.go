package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"planning_poker/internal/service"
)

// 定義 WebSocket 升級器
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 注意：在生產環境中，應該檢查 origin
	},
}

// WebSocketHandler 處理 WebSocket 連接
type WebSocketHandler struct {
	sessions *service.RoomSessionManager
}

// NewWebSocketHandler 創建一個新的 WebSocketHandler 實例
func NewWebSocketHandler(sessions *service.RoomSessionManager) *WebSocketHandler {
	return &WebSocketHandler{sessions: sessions}
}

// HandleWebSocket 處理房間即時通道的連線請求
// 認證是選擇性的：帶有效 token 的請求以註冊用戶連線，
// 其餘以 session_token 取回或鑄造匿名身分
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	roomIdentifier := c.Param("identifier")
	if roomIdentifier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "錯誤的房間識別字"})
		return
	}

	var userID *uint
	if value, exists := c.Get("userID"); exists {
		id := value.(uint)
		userID = &id
	}
	sessionToken := c.Query("session_token")

	// 升級 HTTP 連接為 WebSocket 連接
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "升級WebSocket失敗"})
		return
	}

	// 房間查驗與身分解析交給 session manager，連線結束前不返回
	h.sessions.HandleConnection(conn, roomIdentifier, userID, sessionToken)
}
