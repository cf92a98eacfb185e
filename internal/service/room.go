package service

import (
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"planning_poker/internal/config"
	"planning_poker/internal/models"
	"planning_poker/internal/namegen"
	"planning_poker/internal/points"
	"planning_poker/internal/repository"
)

// Identity 表示連上房間的一個身分，註冊用戶或匿名訪客二擇一
type Identity struct {
	UserID       *uint
	AnonymousID  *uint
	SessionToken string // 匿名身分的 session token，回傳給客戶端保存
	DisplayName  string
	Role         models.Role
}

// IsAnonymous 回報這個身分是否為匿名訪客
func (i Identity) IsAnonymous() bool {
	return i.UserID == nil
}

// ParticipantView 是參與者的對外投影
// 開牌前 CardSelection 一律為 nil，只揭露是否已選牌
type ParticipantView struct {
	ID            uint    `json:"id"`
	DisplayName   string  `json:"display_name"`
	Role          string  `json:"role"`
	HasVoted      bool    `json:"has_voted"`
	CardSelection *string `json:"card_selection,omitempty"`
}

// CreateRoomOptions 是建立房間時的可選設定
type CreateRoomOptions struct {
	ProjectName     string
	PointSystem     string
	AutoRevealCards bool
	AllowSkip       bool
	EnableTimer     bool
	TimerDuration   int
}

// RoomService 實作房間生命週期與投票、開牌的所有狀態轉換
type RoomService struct {
	repos  *repository.Repositories
	policy config.SessionConfig
	log    *logrus.Entry
}

func NewRoomService(repos *repository.Repositories, policy config.SessionConfig, logger *logrus.Logger) *RoomService {
	return &RoomService{
		repos:  repos,
		policy: policy,
		log:    logger.WithField("component", "room_service"),
	}
}

// Policy 回傳房間生命週期的策略設定
func (s *RoomService) Policy() config.SessionConfig {
	return s.policy
}

// CreateRoom 建立一個新房間
// 房間代碼會重試產生直到唯一，重試次數用盡時回傳 ErrCodeGenerationExhausted。
// 建立者若是管理員，會一併更新其「最近房間」指標。
func (s *RoomService) CreateRoom(hostID uint, opts CreateRoomOptions) (*models.Room, error) {
	code, err := s.generateUniqueCode()
	if err != nil {
		return nil, err
	}

	projectName := opts.ProjectName
	if projectName == "" {
		projectName = namegen.ProjectName()
	}
	pointSystem := opts.PointSystem
	if !points.Known(pointSystem) {
		pointSystem = points.Fibonacci
	}
	timerDuration := opts.TimerDuration
	if timerDuration <= 0 {
		timerDuration = 60
	}

	room := &models.Room{
		HostID:          hostID,
		Code:            code,
		ProjectName:     projectName,
		PointSystem:     pointSystem,
		Status:          models.RoomStatusPending,
		AutoRevealCards: opts.AutoRevealCards,
		AllowSkip:       opts.AllowSkip,
		EnableTimer:     opts.EnableTimer,
		TimerDuration:   timerDuration,
		LastActivity:    time.Now(),
	}
	if err := s.repos.Room.Create(room); err != nil {
		return nil, err
	}

	if role, err := s.EffectiveRole(hostID); err == nil && role == models.RoleAdmin {
		if err := s.repos.UserRole.SetLastRoom(hostID, room.ID); err != nil {
			s.log.WithError(err).WithField("room", room.Code).Warn("failed to update admin last room")
		}
	}

	s.log.WithFields(logrus.Fields{"room": room.Code, "host": hostID}).Info("room created")
	return room, nil
}

func (s *RoomService) generateUniqueCode() (string, error) {
	for attempt := 0; attempt < s.policy.CodeMaxAttempts; attempt++ {
		code := namegen.RoomCode(s.policy.CodeLength)
		exists, err := s.repos.Room.CodeExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeGenerationExhausted
}

// GetRoomByIDOrCode 先以代碼查詢，失敗再嘗試以數字 ID 查詢
func (s *RoomService) GetRoomByIDOrCode(identifier string) (*models.Room, error) {
	room, err := s.repos.Room.FindByCode(identifier)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	id, convErr := strconv.ParseUint(identifier, 10, 32)
	if convErr != nil {
		return nil, repository.ErrNotFound
	}
	return s.repos.Room.FindByID(uint(id))
}

// GetRoom 以數字 ID 查詢房間
func (s *RoomService) GetRoom(roomID uint) (*models.Room, error) {
	return s.repos.Room.FindByID(roomID)
}

// HostUsername 查詢房間主持人的顯示名稱
func (s *RoomService) HostUsername(room *models.Room) string {
	host, err := s.repos.User.FindByID(room.HostID)
	if err != nil {
		return ""
	}
	return host.Username
}

// EffectiveRole 計算用戶的有效角色
// superuser/staff 一律視為管理員，讀取時推導，不改寫儲存的角色
func (s *RoomService) EffectiveRole(userID uint) (models.Role, error) {
	user, err := s.repos.User.FindByID(userID)
	if err != nil {
		return models.RoleParticipant, err
	}
	role, err := s.repos.UserRole.GetOrCreate(userID)
	if err != nil {
		return models.RoleParticipant, err
	}
	return models.EffectiveRole(user, role.Role), nil
}

// CanControl 回報身分是否可以執行房間的控制操作
// 只有房間主持人或管理員可以開牌、重置、跳過與操作計時器
func (s *RoomService) CanControl(room *models.Room, identity Identity) bool {
	if identity.UserID == nil {
		return false
	}
	if room.HostID == *identity.UserID {
		return true
	}
	role, err := s.EffectiveRole(*identity.UserID)
	if err != nil {
		return false
	}
	return role == models.RoleAdmin
}

// IsStale 回報房間是否已閒置逾時且尚未被自動關閉
func (s *RoomService) IsStale(room *models.Room, now time.Time) bool {
	return !room.AutoClosed && now.Sub(room.LastActivity) > s.policy.InactivityThreshold
}

// TouchActivity 更新房間的最後活動時間
func (s *RoomService) TouchActivity(roomID uint) {
	if err := s.repos.Room.TouchActivity(roomID, time.Now()); err != nil {
		s.log.WithError(err).WithField("room_id", roomID).Warn("failed to touch room activity")
	}
}

// ResolveUserIdentity 將已驗證的用戶 ID 轉成連線身分
func (s *RoomService) ResolveUserIdentity(userID uint) (Identity, error) {
	user, err := s.repos.User.FindByID(userID)
	if err != nil {
		return Identity{}, err
	}
	role, err := s.EffectiveRole(userID)
	if err != nil {
		return Identity{}, err
	}
	id := user.ID
	return Identity{UserID: &id, DisplayName: user.Username, Role: role}, nil
}

// ResolveAnonymousIdentity 依 session token 取回或建立匿名身分
// token 缺失或查無對應時鑄造一個新身分；同一個 token 重連會拿回同一個顯示名稱
func (s *RoomService) ResolveAnonymousIdentity(token string) (Identity, error) {
	now := time.Now()
	if token != "" {
		identity, err := s.repos.Anonymous.FindByToken(token)
		if err == nil {
			if err := s.repos.Anonymous.TouchLastSeen(identity.ID, now); err != nil {
				s.log.WithError(err).Warn("failed to touch anonymous identity")
			}
			id := identity.ID
			return Identity{
				AnonymousID:  &id,
				SessionToken: identity.SessionToken,
				DisplayName:  identity.DisplayName,
				Role:         models.RoleParticipant,
			}, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return Identity{}, err
		}
	}

	identity := &models.AnonymousIdentity{
		SessionToken: uuid.NewString(),
		DisplayName:  namegen.GuestName(),
		LastSeen:     now,
	}
	if err := s.repos.Anonymous.Create(identity); err != nil {
		return Identity{}, err
	}
	id := identity.ID
	return Identity{
		AnonymousID:  &id,
		SessionToken: identity.SessionToken,
		DisplayName:  identity.DisplayName,
		Role:         models.RoleParticipant,
	}, nil
}

// GetOrCreateParticipant 取得或建立身分在房間內的參與者列，重複呼叫回傳同一列
func (s *RoomService) GetOrCreateParticipant(room *models.Room, identity Identity) (*models.Participant, error) {
	if identity.UserID != nil {
		return s.repos.Participant.GetOrCreateForUser(room.ID, *identity.UserID, identity.DisplayName)
	}
	if identity.AnonymousID != nil {
		return s.repos.Participant.GetOrCreateForAnonymous(room.ID, *identity.AnonymousID, identity.DisplayName)
	}
	return nil, ErrNotParticipant
}

// RemoveAnonymousParticipant 移除匿名參與者的資料列，匿名身分本身保留
func (s *RoomService) RemoveAnonymousParticipant(room *models.Room, identity Identity) {
	if identity.AnonymousID == nil {
		return
	}
	if err := s.repos.Participant.DeleteAnonymous(room.ID, *identity.AnonymousID); err != nil {
		s.log.WithError(err).WithField("room", room.Code).Warn("failed to remove anonymous participant")
	}
}

// ListParticipants 列出房間的參與者投影
// revealed 為 false 時只揭露是否已選牌，牌面留到開牌才給
func (s *RoomService) ListParticipants(room *models.Room, revealed bool) ([]ParticipantView, error) {
	participants, err := s.repos.Participant.ListByRoom(room.ID)
	if err != nil {
		return nil, err
	}

	views := make([]ParticipantView, 0, len(participants))
	for _, p := range participants {
		view := ParticipantView{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Role:        string(models.RoleParticipant),
			HasVoted:    p.HasVoted(),
		}
		if p.UserID != nil {
			if role, err := s.EffectiveRole(*p.UserID); err == nil {
				view.Role = string(role)
			}
		}
		if revealed {
			view.CardSelection = p.CardSelection
		}
		views = append(views, view)
	}
	return views, nil
}

// SubmitVote 驗證並記錄一張選牌
// 牌面必須屬於房間的點數系統，否則回傳 ErrInvalidCard
func (s *RoomService) SubmitVote(room *models.Room, identity Identity, cardValue string) (*models.Participant, error) {
	if !points.Valid(room.PointSystem, cardValue) {
		return nil, ErrInvalidCard
	}
	participant, err := s.GetOrCreateParticipant(room, identity)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Participant.SetVote(participant.ID, &cardValue); err != nil {
		return nil, err
	}
	participant.CardSelection = &cardValue
	s.TouchActivity(room.ID)
	return participant, nil
}

// ShouldAutoReveal 判斷是否該自動開牌
// 條件：房間啟用自動開牌、至少一位參與者、而且所有人都已選牌
func (s *RoomService) ShouldAutoReveal(room *models.Room) (bool, error) {
	if !room.AutoRevealCards {
		return false, nil
	}
	participants, err := s.repos.Participant.ListByRoom(room.ID)
	if err != nil {
		return false, err
	}
	if len(participants) == 0 {
		return false, nil
	}
	for _, p := range participants {
		if !p.HasVoted() {
			return false, nil
		}
	}
	return true, nil
}

// Reveal 開牌並結束本輪
// 先以條件式更新把房間轉成 COMPLETED，搶到轉換的呼叫才會快照選牌、
// 計算統計並寫入 SessionLog。搶輸的或失敗後重試的呼叫在寫入任何紀錄前
// 就得到 ErrAlreadyRevealed，同一輪永遠只留下一筆紀錄。
func (s *RoomService) Reveal(room *models.Room) (*models.SessionLog, Statistics, []ParticipantView, error) {
	if room.Status == models.RoomStatusCompleted {
		return nil, Statistics{}, nil, ErrAlreadyRevealed
	}

	completed, err := s.repos.Room.CompleteRound(room.ID)
	if err != nil {
		return nil, Statistics{}, nil, err
	}
	if !completed {
		return nil, Statistics{}, nil, ErrAlreadyRevealed
	}
	room.Status = models.RoomStatusCompleted

	participants, err := s.repos.Participant.ListByRoom(room.ID)
	if err != nil {
		return nil, Statistics{}, nil, err
	}

	selections := make([]string, 0, len(participants))
	selectionMap := make(models.SelectionMap, len(participants))
	for _, p := range participants {
		if p.CardSelection == nil {
			continue
		}
		selections = append(selections, *p.CardSelection)
		selectionMap[p.DisplayName] = *p.CardSelection
	}

	stats := ComputeStatistics(selections)
	sessionLog := &models.SessionLog{
		RoomID:            room.ID,
		StoryPointAverage: stats.Average,
		Selections:        selectionMap,
		Timestamp:         time.Now(),
	}
	if err := s.repos.SessionLog.Create(sessionLog); err != nil {
		return nil, Statistics{}, nil, err
	}
	s.TouchActivity(room.ID)

	views, err := s.ListParticipants(room, true)
	if err != nil {
		return nil, Statistics{}, nil, err
	}

	s.log.WithFields(logrus.Fields{"room": room.Code, "average": stats.Average}).Info("cards revealed")
	return sessionLog, stats, views, nil
}

// StartRound 開始新的一輪：清空所有選牌並把房間轉成 ACTIVE
// 被自動關閉的房間由此重新啟用
func (s *RoomService) StartRound(room *models.Room) error {
	if err := s.repos.Participant.ClearVotes(room.ID); err != nil {
		return err
	}
	room.Status = models.RoomStatusActive
	room.AutoClosed = false
	room.IsTimerActive = false
	room.TimerStartTime = nil
	room.TimerEndTime = nil
	room.LastActivity = time.Now()
	return s.repos.Room.Update(room)
}

// ResetVotes 清空本輪選牌，語意與開始新一輪相同
func (s *RoomService) ResetVotes(room *models.Room) error {
	return s.StartRound(room)
}

// SkipParticipant 將參與者標記為跳過
// 參與者不在房間內時靜默略過，不視為錯誤
func (s *RoomService) SkipParticipant(room *models.Room, participantID uint) error {
	if err := s.repos.Participant.Skip(participantID, room.ID); err != nil {
		return err
	}
	s.TouchActivity(room.ID)
	return nil
}

// StartTimer 啟動本輪計時器，房間未啟用計時器時回傳 ErrTimerDisabled
func (s *RoomService) StartTimer(room *models.Room) error {
	if !room.EnableTimer {
		return ErrTimerDisabled
	}
	start := time.Now()
	end := start.Add(time.Duration(room.TimerDuration) * time.Second)
	if err := s.repos.Room.SetTimer(room.ID, &start, &end, true); err != nil {
		return err
	}
	room.TimerStartTime = &start
	room.TimerEndTime = &end
	room.IsTimerActive = true
	s.TouchActivity(room.ID)
	return nil
}

// StopTimer 停止計時器並清除起迄時間
func (s *RoomService) StopTimer(room *models.Room) error {
	if err := s.repos.Room.SetTimer(room.ID, nil, nil, false); err != nil {
		return err
	}
	room.TimerStartTime = nil
	room.TimerEndTime = nil
	room.IsTimerActive = false
	s.TouchActivity(room.ID)
	return nil
}

// PauseTimer 暫停計時器，剩餘秒數記回 TimerDuration，再次啟動時從剩餘時間繼續
func (s *RoomService) PauseTimer(room *models.Room) error {
	if !room.IsTimerActive || room.TimerEndTime == nil {
		return ErrTimerNotRunning
	}
	remaining := int(time.Until(*room.TimerEndTime).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	room.TimerDuration = remaining
	room.TimerStartTime = nil
	room.TimerEndTime = nil
	room.IsTimerActive = false
	room.LastActivity = time.Now()
	return s.repos.Room.Update(room)
}

// MarkRoomAutoClosed 把房間標記為閒置自動關閉
// 條件式更新保證同一個房間只會被關閉一次
func (s *RoomService) MarkRoomAutoClosed(roomID uint) (bool, error) {
	return s.repos.Room.MarkAutoClosed(roomID)
}

// FindInactiveRooms 找出超過閒置門檻、尚未被自動關閉的房間
func (s *RoomService) FindInactiveRooms(now time.Time) ([]models.Room, error) {
	return s.repos.Room.FindInactiveSince(now.Add(-s.policy.InactivityThreshold))
}

// FindExpiredTimers 找出計時器已到期的房間
func (s *RoomService) FindExpiredTimers(now time.Time) ([]models.Room, error) {
	return s.repos.Room.FindExpiredTimers(now)
}

// StopExpiredTimer 停掉已到期的計時器，已被搶先停掉時回報 false
func (s *RoomService) StopExpiredTimer(roomID uint, now time.Time) (bool, error) {
	return s.repos.Room.StopExpiredTimer(roomID, now)
}

// PurgeStaleIdentities 清除保留期限外未活動的匿名身分
func (s *RoomService) PurgeStaleIdentities(now time.Time) (int64, error) {
	return s.repos.Anonymous.PurgeStale(now.Add(-s.policy.AnonymousRetention))
}

// SessionLogs 列出房間的開牌紀錄，新的在前
func (s *RoomService) SessionLogs(roomID uint) ([]models.SessionLog, error) {
	return s.repos.SessionLog.FindByRoomID(roomID)
}

// SessionLogsByHost 列出某位主持人所有房間的開牌紀錄
func (s *RoomService) SessionLogsByHost(hostID uint) ([]models.SessionLog, error) {
	return s.repos.SessionLog.FindByHostID(hostID)
}

// LastRoomForAdmin 回傳管理員最近主持的房間
func (s *RoomService) LastRoomForAdmin(userID uint) (*models.Room, error) {
	role, err := s.repos.UserRole.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}
	if role.LastRoomID == nil {
		return nil, repository.ErrNotFound
	}
	return s.repos.Room.FindByID(*role.LastRoomID)
}

// ParticipantCount 回傳房間目前的參與者數量
func (s *RoomService) ParticipantCount(roomID uint) (int64, error) {
	return s.repos.Participant.CountByRoom(roomID)
}
