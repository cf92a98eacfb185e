package service

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"planning_poker/internal/models"
	"planning_poker/internal/points"
	"planning_poker/internal/ws"
)

// 拒絕連線時使用的 WebSocket 關閉代碼
const (
	CloseRoomNotFound = 4404 // 查無此房間
	CloseRoomStale    = 4410 // 房間已因閒置被關閉
)

// RoomSession 是單一房間的即時會話
// mu 串行化該房間所有的狀態變更：同一房間內的指令一次只會執行一個，
// 不同房間的會話彼此完全平行。廣播在變更完成、快照凍結後才對外送出。
type RoomSession struct {
	code string
	refs int // 由 manager 的鎖保護，歸零時會話被回收

	mu sync.Mutex // 房間層級的串行化鎖

	clientsMu sync.RWMutex
	clients   map[*Client]bool
}

func newRoomSession(code string) *RoomSession {
	return &RoomSession{
		code:    code,
		clients: make(map[*Client]bool),
	}
}

func (s *RoomSession) addClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[client] = true
}

func (s *RoomSession) removeClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, client)
}

func (s *RoomSession) snapshotClients() []*Client {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	clients := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	return clients
}

// RoomSessionManager 管理所有房間會話
// 會話在第一條連線進來時建立，最後一條連線離開後回收；
// HTTP 控制端點與背景巡查透過 withRoom 取得同一把房間鎖，
// 確保每個房間的變更走同一條串行路徑。
type RoomSessionManager struct {
	mu       sync.Mutex
	sessions map[string]*RoomSession

	roomService *RoomService
	log         *logrus.Entry
}

func NewRoomSessionManager(roomService *RoomService, logger *logrus.Logger) *RoomSessionManager {
	return &RoomSessionManager{
		sessions:    make(map[string]*RoomSession),
		roomService: roomService,
		log:         logger.WithField("component", "room_session"),
	}
}

// acquire 取得房間會話，沒有時建立；以引用計數決定回收時機
func (m *RoomSessionManager) acquire(code string) *RoomSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[code]
	if !ok {
		session = newRoomSession(code)
		m.sessions[code] = session
	}
	session.refs++
	return session
}

func (m *RoomSessionManager) release(session *RoomSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session.refs--
	if session.refs == 0 {
		delete(m.sessions, session.code)
	}
}

// ActiveSessionCount 回傳目前存活的房間會話數
func (m *RoomSessionManager) ActiveSessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// withRoom 在房間鎖內執行一段變更
// 進入臨界區後才重新載入房間，保證看到的是最新狀態
func (m *RoomSessionManager) withRoom(code string, fn func(session *RoomSession, room *models.Room) error) error {
	session := m.acquire(code)
	defer m.release(session)

	session.mu.Lock()
	defer session.mu.Unlock()

	room, err := m.roomService.GetRoomByIDOrCode(code)
	if err != nil {
		return err
	}
	return fn(session, room)
}

// HandleConnection 處理一條新的房間連線，阻塞到連線結束
// userID 為 nil 時走匿名路徑，以 sessionToken 取回或鑄造匿名身分
func (m *RoomSessionManager) HandleConnection(conn *websocket.Conn, roomIdentifier string, userID *uint, sessionToken string) {
	room, err := m.roomService.GetRoomByIDOrCode(roomIdentifier)
	if err != nil {
		rejectConnection(conn, CloseRoomNotFound, "room not found")
		return
	}

	// 閒置房間在連線時就擋下來，不讓客戶端進入一個早該關閉的房間
	if room.AutoClosed {
		rejectConnection(conn, CloseRoomStale, ErrStaleRoom.Error())
		return
	}
	if m.roomService.IsStale(room, time.Now()) {
		if closed, err := m.roomService.MarkRoomAutoClosed(room.ID); err != nil {
			m.log.WithError(err).WithField("room", room.Code).Error("failed to auto-close stale room")
		} else if closed {
			m.log.WithField("room", room.Code).Info("auto-closed stale room at connect")
		}
		rejectConnection(conn, CloseRoomStale, ErrStaleRoom.Error())
		return
	}

	identity, err := m.resolveIdentity(userID, sessionToken)
	if err != nil {
		m.log.WithError(err).WithField("room", room.Code).Error("failed to resolve identity")
		rejectConnection(conn, websocket.CloseInternalServerErr, "identity error")
		return
	}

	session := m.acquire(room.Code)
	client := newClient(conn, identity, room.ID, room.Code)
	session.addClient(client)

	defer func() {
		session.removeClient(client)
		client.close()
		conn.Close()

		// 匿名參與者斷線即移除資料列，身分保留供重連
		session.mu.Lock()
		if identity.IsAnonymous() {
			m.roomService.RemoveAnonymousParticipant(room, identity)
		}
		m.broadcastEvent(session, ws.NewEvent(ws.EvtUserDisconnected).
			With("display_name", identity.DisplayName))
		if fresh, err := m.roomService.GetRoom(room.ID); err == nil {
			m.broadcastState(session, fresh)
		}
		session.mu.Unlock()

		m.release(session)
		m.log.WithFields(logFields(room.Code, identity)).Info("client disconnected")
	}()

	// 註冊參與者並送出首份快照，之後通知群組有人加入
	session.mu.Lock()
	if _, err := m.roomService.GetOrCreateParticipant(room, identity); err != nil {
		m.log.WithError(err).WithFields(logFields(room.Code, identity)).Error("failed to register participant")
	}
	m.roomService.TouchActivity(room.ID)
	m.broadcastEvent(session, ws.NewEvent(ws.EvtUserConnected).
		With("display_name", identity.DisplayName))
	if fresh, err := m.roomService.GetRoom(room.ID); err == nil {
		m.broadcastState(session, fresh)
	}
	session.mu.Unlock()

	m.log.WithFields(logFields(room.Code, identity)).Info("client connected")

	go m.writePump(client)
	m.readPump(client)
}

func (m *RoomSessionManager) resolveIdentity(userID *uint, sessionToken string) (Identity, error) {
	if userID != nil {
		identity, err := m.roomService.ResolveUserIdentity(*userID)
		if err == nil {
			return identity, nil
		}
		m.log.WithError(err).WithField("user_id", *userID).Warn("authenticated user not found, falling back to guest")
	}
	return m.roomService.ResolveAnonymousIdentity(sessionToken)
}

// dispatch 把客戶端指令導向對應的操作
// 操作失敗只通知發出指令的那條連線，不影響房間裡的其他人
func (m *RoomSessionManager) dispatch(client *Client, cmd *ws.Command) {
	var err error
	switch cmd.Type {
	case ws.CmdSubmitVote:
		err = m.SubmitVote(client.roomCode, client.identity, cmd.CardValue)
	case ws.CmdRevealCards:
		err = m.RevealCards(client.roomCode, client.identity)
	case ws.CmdResetVotes:
		err = m.ResetVotes(client.roomCode, client.identity)
	case ws.CmdSkipParticipant:
		err = m.SkipParticipant(client.roomCode, client.identity, cmd.ParticipantID)
	case ws.CmdStartRound:
		err = m.StartRound(client.roomCode, client.identity, cmd.StoryTitle)
	case ws.CmdStartTimer:
		err = m.StartTimer(client.roomCode, client.identity)
	case ws.CmdStopTimer:
		err = m.StopTimer(client.roomCode, client.identity)
	case ws.CmdPauseTimer:
		err = m.PauseTimer(client.roomCode, client.identity)
	case ws.CmdChatMessage:
		err = m.Chat(client.roomCode, client.identity, cmd.Message)
	case ws.CmdJoinRoom:
		err = m.sendStateTo(client)
	default:
		client.trySend(ws.ErrorEvent("未知的訊息類型"))
		return
	}

	if err != nil {
		client.trySend(ws.ErrorEvent(err.Error()))
	}
}

// SubmitVote 記錄一張選牌並廣播，必要時自動開牌
// 任何已連線的身分都可以投票，包含匿名訪客
func (m *RoomSessionManager) SubmitVote(code string, identity Identity, cardValue string) error {
	return m.withRoom(code, func(session *RoomSession, room *models.Room) error {
		participant, err := m.roomService.SubmitVote(room, identity, cardValue)
		if err != nil {
			return err
		}

		m.broadcastEvent(session, ws.NewEvent(ws.EvtVoteSubmitted).
			With("participant_id", participant.ID).
			With("display_name", identity.DisplayName).
			With("has_voted", true))

		// 所有人都選牌後自動開牌，同一輪只會留下一筆紀錄
		autoReveal, err := m.roomService.ShouldAutoReveal(room)
		if err != nil {
			return err
		}
		if autoReveal {
			if err := m.revealLocked(session, room); err != nil && err != ErrAlreadyRevealed {
				return err
			}
		}

		m.broadcastState(session, room)
		return nil
	})
}

// RevealCards 由主持人或管理員開牌
func (m *RoomSessionManager) RevealCards(code string, identity Identity) error {
	return m.withRoom(code, func(session *RoomSession, room *models.Room) error {
		if !m.roomService.CanControl(room, identity) {
			return ErrForbidden
		}
		if err := m.revealLocked(session, room); err != nil {
			return err
		}
		m.broadcastState(session, room)
		return nil
	})
}

// revealLocked 在房間鎖內執行開牌並廣播結果
func (m *RoomSessionManager) revealLocked(session *RoomSession, room *models.Room) error {
	sessionLog, stats, participants, err := m.roomService.Reveal(room)
	if err != nil {
		return err
	}
	m.broadcastEvent(session, ws.NewEvent(ws.EvtCardsRevealed).
		With("participants", participants).
		With("statistics", stats).
		With("session_log_id", sessionLog.ID))
	return nil
}

// ResetVotes 清空本輪選牌並重新開始
func (m *RoomSessionManager) ResetVotes(code string, identity Identity) error {
	return m.withRoom(code, func(session *RoomSession, room *models.Room) error {
		if !m.roomService.CanControl(room, identity) {
			return ErrForbidden
		}
		if err := m.roomService.ResetVotes(room); err != nil {
			return err
		}
		m.broadcastEvent(session, ws.NewEvent(ws.EvtVotesReset))
		m.broadcastState(session, room)
		return nil
	})
}

// StartRound 開始新的一輪估點
func (m *RoomSessionManager) StartRound(code string, identity Identity, storyTitle string) error {
	return m.withRoom(code, func(session *RoomSession, room *models.Room) error {
		if !m.roomService.CanControl(room, identity) {
			return ErrForbidden
		}
		if err := m.roomService.StartRound(room); err != nil {
			return err
		}
		m.broadcastEvent(session, ws.NewEvent(ws.EvtRoundStarted).
			With("story_title", storyTitle))
		m.broadcastState(session, room)
		return nil
	})
}

// SkipParticipant 跳過指定參與者，目標不在房間內時是無害的空操作
func (m *RoomSessionManager) SkipParticipant(code string, identity Identity, participantID uint) error {
	return m.withRoom(code, func(session *RoomSession, room *models.Room) error {
		if !m.roomService.CanControl(room, identity) {
			return ErrForbidden
		}
		if err := m.roomService.SkipParticipant(room, participantID); err != nil {
			return err
		}
		m.broadcastEvent(session, ws.NewEvent(ws.EvtParticipantSkipped).
			With("participant_id", participantID))
		m.broadcastState(session, room)
		return nil
	})
}

// StartTimer 啟動本輪計時器
func (m *RoomSessionManager) StartTimer(code string, identity Identity) error {
	return m.withRoom(code, func(session *RoomSession, room *models.Room) error {
		if !m.roomService.CanControl(room, identity) {
			return ErrForbidden
		}
		if err := m.roomService.StartTimer(room); err != nil {
			return err
		}
		m.broadcastEvent(session, ws.NewEvent(ws.EvtTimerStarted).
			With("timer_end_time", room.TimerEndTime).
			With("timer_duration", room.TimerDuration))
		m.broadcastState(session, room)
		return nil
	})
}

// StopTimer 停止計時器
func (m *RoomSessionManager) StopTimer(code string, identity Identity) error {
	return m.withRoom(code, func(session *RoomSession, room *models.Room) error {
		if !m.roomService.CanControl(room, identity) {
			return ErrForbidden
		}
		if err := m.roomService.StopTimer(room); err != nil {
			return err
		}
		m.broadcastEvent(session, ws.NewEvent(ws.EvtTimerStopped))
		m.broadcastState(session, room)
		return nil
	})
}

// PauseTimer 暫停計時器，剩餘時間保留到下次啟動
func (m *RoomSessionManager) PauseTimer(code string, identity Identity) error {
	return m.withRoom(code, func(session *RoomSession, room *models.Room) error {
		if !m.roomService.CanControl(room, identity) {
			return ErrForbidden
		}
		if err := m.roomService.PauseTimer(room); err != nil {
			return err
		}
		m.broadcastEvent(session, ws.NewEvent(ws.EvtTimerPaused).
			With("remaining_seconds", room.TimerDuration))
		m.broadcastState(session, room)
		return nil
	})
}

// Chat 廣播一則聊天訊息，任何已連線的身分都可以發言
func (m *RoomSessionManager) Chat(code string, identity Identity, message string) error {
	if message == "" {
		return ErrEmptyMessage
	}
	return m.withRoom(code, func(session *RoomSession, room *models.Room) error {
		m.roomService.TouchActivity(room.ID)
		m.broadcastEvent(session, ws.NewEvent(ws.EvtChatMessage).
			With("display_name", identity.DisplayName).
			With("message", message).
			With("timestamp", time.Now().Format(time.RFC3339)))
		return nil
	})
}

// CloseInactiveRoom 供背景巡查關閉閒置房間
// 條件式更新確保關閉只套用一次；真的套用時才廣播
func (m *RoomSessionManager) CloseInactiveRoom(code string, roomID uint) (bool, error) {
	var closed bool
	err := m.withRoom(code, func(session *RoomSession, room *models.Room) error {
		var err error
		closed, err = m.roomService.MarkRoomAutoClosed(roomID)
		if err != nil {
			return err
		}
		if closed {
			m.broadcastEvent(session, ws.NewEvent(ws.EvtRoomAutoClosed).
				With("reason", "Room closed due to inactivity (30 minutes)"))
		}
		return nil
	})
	return closed, err
}

// ExpireTimer 供背景巡查停掉到期的計時器
func (m *RoomSessionManager) ExpireTimer(code string, roomID uint, now time.Time) (bool, error) {
	var stopped bool
	err := m.withRoom(code, func(session *RoomSession, room *models.Room) error {
		var err error
		stopped, err = m.roomService.StopExpiredTimer(roomID, now)
		if err != nil {
			return err
		}
		if stopped {
			m.broadcastEvent(session, ws.NewEvent(ws.EvtTimerExpired))
			room.IsTimerActive = false
			m.broadcastState(session, room)
		}
		return nil
	})
	return stopped, err
}

// broadcastEvent 把同一個事件送到房間內的每一條連線
// 發送是非阻塞的；佇列塞滿的連線會被踢掉，不影響其他人
func (m *RoomSessionManager) broadcastEvent(session *RoomSession, event ws.Event) {
	for _, client := range session.snapshotClients() {
		if !client.trySend(event) {
			m.log.WithFields(logFields(session.code, client.identity)).Warn("dropping slow client")
			session.removeClient(client)
			client.close()
		}
	}
}

// broadcastState 重新計算房間快照並逐一送出
// 共用的快照只算一次；角色、控制權與身分回聲等連線專屬欄位在送出前個別附加
func (m *RoomSessionManager) broadcastState(session *RoomSession, room *models.Room) {
	base, err := m.buildStateEvent(room)
	if err != nil {
		m.log.WithError(err).WithField("room", room.Code).Error("failed to build room snapshot")
		return
	}

	for _, client := range session.snapshotClients() {
		event := m.personalize(base, room, client.identity)
		if !client.trySend(event) {
			m.log.WithFields(logFields(session.code, client.identity)).Warn("dropping slow client")
			session.removeClient(client)
			client.close()
		}
	}
}

// sendStateTo 重送快照給單一連線，處理 join_room 指令
func (m *RoomSessionManager) sendStateTo(client *Client) error {
	room, err := m.roomService.GetRoom(client.roomID)
	if err != nil {
		return err
	}
	base, err := m.buildStateEvent(room)
	if err != nil {
		return err
	}
	client.trySend(m.personalize(base, room, client.identity))
	return nil
}

// buildStateEvent 組出房間的完整快照
// 開牌前參與者投影只含是否已選牌，牌面由 cards_revealed 事件揭露
func (m *RoomSessionManager) buildStateEvent(room *models.Room) (ws.Event, error) {
	participants, err := m.roomService.ListParticipants(room, false)
	if err != nil {
		return nil, err
	}

	return ws.NewEvent(ws.EvtRoomState).
		With("room", map[string]interface{}{
			"id":                room.ID,
			"code":              room.Code,
			"project_name":      room.ProjectName,
			"point_system":      room.PointSystem,
			"status":            room.Status,
			"auto_reveal_cards": room.AutoRevealCards,
			"allow_skip":        room.AllowSkip,
			"auto_closed":       room.AutoClosed,
			"host_username":     m.roomService.HostUsername(room),
		}).
		With("participants", participants).
		With("cards", points.Cards(room.PointSystem)).
		With("timer", map[string]interface{}{
			"enable_timer":     room.EnableTimer,
			"timer_duration":   room.TimerDuration,
			"timer_start_time": room.TimerStartTime,
			"timer_end_time":   room.TimerEndTime,
			"is_timer_active":  room.IsTimerActive,
		}), nil
}

// personalize 在共用快照上附加連線專屬的欄位
func (m *RoomSessionManager) personalize(base ws.Event, room *models.Room, identity Identity) ws.Event {
	event := base.Clone().
		With("display_name", identity.DisplayName).
		With("role", string(identity.Role)).
		With("is_host", identity.UserID != nil && room.HostID == *identity.UserID).
		With("can_control", m.roomService.CanControl(room, identity))
	if identity.IsAnonymous() {
		// 匿名客戶端要保存這個 token 才能在重連時取回同一個身分
		event.With("session_token", identity.SessionToken)
	}
	return event
}
