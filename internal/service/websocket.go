package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"planning_poker/internal/ws"
)

// Client 代表一個 WebSocket 客戶端連線
type Client struct {
	conn      *websocket.Conn
	identity  Identity
	roomID    uint
	roomCode  string
	send      chan ws.Event // 事件發送通道，用於異步傳送訊息
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, identity Identity, roomID uint, roomCode string) *Client {
	return &Client{
		conn:     conn,
		identity: identity,
		roomID:   roomID,
		roomCode: roomCode,
		send:     make(chan ws.Event, 256), // 緩衝大小 256 的事件通道
		done:     make(chan struct{}),
	}
}

// Identity 回傳這條連線的身分
func (c *Client) Identity() Identity {
	return c.identity
}

// trySend 把事件放進發送佇列
// 佇列滿時回傳 false，呼叫端據此把過慢的連線踢掉，不讓它拖慢整個房間
func (c *Client) trySend(event ws.Event) bool {
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

// close 標記連線結束，writePump 看到後收尾
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump 持續監聽並處理從客戶端接收的指令
func (m *RoomSessionManager) readPump(client *Client) {
	client.conn.SetReadLimit(4096) // 最大訊息 4KB
	client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.log.WithError(err).Debug("websocket unexpected close")
			}
			return
		}

		cmd, err := ws.ParseCommand(message)
		if err != nil {
			client.trySend(ws.ErrorEvent("無法解析的訊息"))
			continue
		}

		m.dispatch(client, cmd)
	}
}

// writePump 處理向客戶端發送事件的邏輯
func (m *RoomSessionManager) writePump(client *Client) {
	// 心跳計時器
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case event := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			payload, err := json.Marshal(event)
			if err != nil {
				m.log.WithError(err).WithField("event", event["type"]).Error("event encoding error")
				continue
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			// 發送心跳包
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-client.done:
			client.conn.SetWriteDeadline(time.Now().Add(time.Second))
			client.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// rejectConnection 在升級後立即以指定代碼關閉連線
func rejectConnection(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	conn.Close()
}

func logFields(roomCode string, identity Identity) logrus.Fields {
	return logrus.Fields{"room": roomCode, "user": identity.DisplayName}
}
