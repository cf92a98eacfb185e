package service

import (
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"planning_poker/internal/config"
	"planning_poker/internal/models"
	"planning_poker/internal/repository"
)

// memStore 是測試用的記憶體後端
// 所有 fake repository 共用同一個 store，並以同一把鎖模擬資料庫的一致性，
// 讓併發測試能真實地打在同一份資料上。
type memStore struct {
	mu sync.Mutex

	users        map[uint]*models.User
	roles        map[uint]*models.UserRole // 以 userID 為鍵
	rooms        map[uint]*models.Room
	participants map[uint]*models.Participant
	logs         []*models.SessionLog
	identities   map[uint]*models.AnonymousIdentity

	userSeq        uint
	roleSeq        uint
	roomSeq        uint
	participantSeq uint
	logSeq         uint
	identitySeq    uint
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[uint]*models.User),
		roles:        make(map[uint]*models.UserRole),
		rooms:        make(map[uint]*models.Room),
		participants: make(map[uint]*models.Participant),
		identities:   make(map[uint]*models.AnonymousIdentity),
	}
}

func (s *memStore) repositories() *repository.Repositories {
	return &repository.Repositories{
		User:        &memUserRepo{s},
		UserRole:    &memUserRoleRepo{s},
		Room:        &memRoomRepo{s},
		Participant: &memParticipantRepo{s},
		SessionLog:  &memSessionLogRepo{s},
		Anonymous:   &memAnonymousRepo{s},
	}
}

func testPolicy() config.SessionConfig {
	return config.SessionConfig{
		InactivityThreshold: 30 * time.Minute,
		SweepInterval:       time.Minute,
		AnonymousRetention:  7 * 24 * time.Hour,
		CodeLength:          6,
		CodeMaxAttempts:     100,
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestRoomService() (*RoomService, *memStore) {
	store := newMemStore()
	return NewRoomService(store.repositories(), testPolicy(), testLogger()), store
}

// seedUser 直接往 store 塞一個用戶
func (s *memStore) seedUser(username string, superuser bool) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userSeq++
	user := &models.User{Username: username, IsSuperuser: superuser}
	user.ID = s.userSeq
	s.users[user.ID] = user
	out := *user
	return &out
}

// --- User ---

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) Create(user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.userSeq++
	user.ID = r.s.userSeq
	stored := *user
	r.s.users[user.ID] = &stored
	return nil
}

func (r *memUserRepo) FindByID(id uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *user
	return &out, nil
}

func (r *memUserRepo) FindByUsername(username string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if user.Username == username {
			out := *user
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

// --- UserRole ---

type memUserRoleRepo struct{ s *memStore }

func (r *memUserRoleRepo) GetOrCreate(userID uint) (*models.UserRole, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	role, ok := r.s.roles[userID]
	if !ok {
		r.s.roleSeq++
		role = &models.UserRole{UserID: userID, Role: models.RoleParticipant}
		role.ID = r.s.roleSeq
		r.s.roles[userID] = role
	}
	out := *role
	return &out, nil
}

func (r *memUserRoleRepo) SetLastRoom(userID, roomID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if role, ok := r.s.roles[userID]; ok {
		id := roomID
		role.LastRoomID = &id
	}
	return nil
}

// --- Room ---

type memRoomRepo struct{ s *memStore }

func (r *memRoomRepo) Create(room *models.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.roomSeq++
	room.ID = r.s.roomSeq
	stored := *room
	r.s.rooms[room.ID] = &stored
	return nil
}

func (r *memRoomRepo) FindByID(id uint) (*models.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	room, ok := r.s.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *room
	return &out, nil
}

func (r *memRoomRepo) FindByCode(code string) (*models.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, room := range r.s.rooms {
		if room.Code == code {
			out := *room
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memRoomRepo) Update(room *models.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := *room
	r.s.rooms[room.ID] = &stored
	return nil
}

func (r *memRoomRepo) CodeExists(code string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, room := range r.s.rooms {
		if room.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRoomRepo) CompleteRound(roomID uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	room, ok := r.s.rooms[roomID]
	if !ok || room.Status == models.RoomStatusCompleted {
		return false, nil
	}
	room.Status = models.RoomStatusCompleted
	return true, nil
}

func (r *memRoomRepo) TouchActivity(roomID uint, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if room, ok := r.s.rooms[roomID]; ok {
		room.LastActivity = at
	}
	return nil
}

func (r *memRoomRepo) SetTimer(roomID uint, start, end *time.Time, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if room, ok := r.s.rooms[roomID]; ok {
		room.TimerStartTime = start
		room.TimerEndTime = end
		room.IsTimerActive = active
	}
	return nil
}

func (r *memRoomRepo) MarkAutoClosed(roomID uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	room, ok := r.s.rooms[roomID]
	if !ok || room.AutoClosed {
		return false, nil
	}
	room.AutoClosed = true
	room.Status = models.RoomStatusCompleted
	return true, nil
}

func (r *memRoomRepo) FindInactiveSince(threshold time.Time) ([]models.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Room
	for _, room := range r.s.rooms {
		if room.AutoClosed || room.Status == models.RoomStatusCompleted {
			continue
		}
		if room.LastActivity.Before(threshold) {
			out = append(out, *room)
		}
	}
	return out, nil
}

func (r *memRoomRepo) FindExpiredTimers(now time.Time) ([]models.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Room
	for _, room := range r.s.rooms {
		if room.IsTimerActive && room.EnableTimer &&
			room.TimerEndTime != nil && room.TimerEndTime.Before(now) {
			out = append(out, *room)
		}
	}
	return out, nil
}

func (r *memRoomRepo) StopExpiredTimer(roomID uint, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	room, ok := r.s.rooms[roomID]
	if !ok || !room.IsTimerActive || room.TimerEndTime == nil || !room.TimerEndTime.Before(now) {
		return false, nil
	}
	room.IsTimerActive = false
	return true, nil
}

// --- Participant ---

type memParticipantRepo struct{ s *memStore }

func (r *memParticipantRepo) GetOrCreateForUser(roomID, userID uint, displayName string) (*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.participants {
		if p.RoomID == roomID && p.UserID != nil && *p.UserID == userID {
			out := *p
			return &out, nil
		}
	}
	r.s.participantSeq++
	id := userID
	p := &models.Participant{RoomID: roomID, UserID: &id, DisplayName: displayName}
	p.ID = r.s.participantSeq
	r.s.participants[p.ID] = p
	out := *p
	return &out, nil
}

func (r *memParticipantRepo) GetOrCreateForAnonymous(roomID, anonymousID uint, displayName string) (*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.participants {
		if p.RoomID == roomID && p.AnonymousID != nil && *p.AnonymousID == anonymousID {
			out := *p
			return &out, nil
		}
	}
	r.s.participantSeq++
	id := anonymousID
	p := &models.Participant{RoomID: roomID, AnonymousID: &id, DisplayName: displayName}
	p.ID = r.s.participantSeq
	r.s.participants[p.ID] = p
	out := *p
	return &out, nil
}

func (r *memParticipantRepo) FindByID(id uint) (*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.participants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (r *memParticipantRepo) SetVote(participantID uint, value *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.participants[participantID]; ok {
		p.CardSelection = value
	}
	return nil
}

func (r *memParticipantRepo) ClearVotes(roomID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.participants {
		if p.RoomID == roomID {
			p.CardSelection = nil
		}
	}
	return nil
}

func (r *memParticipantRepo) Skip(participantID, roomID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.participants[participantID]; ok && p.RoomID == roomID {
		skipped := models.CardSkipped
		p.CardSelection = &skipped
	}
	return nil
}

func (r *memParticipantRepo) ListByRoom(roomID uint) ([]models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Participant
	for _, p := range r.s.participants {
		if p.RoomID == roomID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memParticipantRepo) CountByRoom(roomID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, p := range r.s.participants {
		if p.RoomID == roomID {
			count++
		}
	}
	return count, nil
}

func (r *memParticipantRepo) DeleteAnonymous(roomID, anonymousID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.participants {
		if p.RoomID == roomID && p.AnonymousID != nil && *p.AnonymousID == anonymousID {
			delete(r.s.participants, id)
		}
	}
	return nil
}

// --- SessionLog ---

type memSessionLogRepo struct{ s *memStore }

func (r *memSessionLogRepo) Create(log *models.SessionLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.logSeq++
	log.ID = r.s.logSeq
	stored := *log
	r.s.logs = append(r.s.logs, &stored)
	return nil
}

func (r *memSessionLogRepo) FindByRoomID(roomID uint) ([]models.SessionLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.SessionLog
	for _, log := range r.s.logs {
		if log.RoomID == roomID {
			out = append(out, *log)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (r *memSessionLogRepo) FindByHostID(hostID uint) ([]models.SessionLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.SessionLog
	for _, log := range r.s.logs {
		room, ok := r.s.rooms[log.RoomID]
		if ok && room.HostID == hostID {
			out = append(out, *log)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// --- AnonymousIdentity ---

type memAnonymousRepo struct{ s *memStore }

func (r *memAnonymousRepo) Create(identity *models.AnonymousIdentity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.identitySeq++
	identity.ID = r.s.identitySeq
	stored := *identity
	r.s.identities[identity.ID] = &stored
	return nil
}

func (r *memAnonymousRepo) FindByToken(token string) (*models.AnonymousIdentity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, identity := range r.s.identities {
		if identity.SessionToken == token {
			out := *identity
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memAnonymousRepo) TouchLastSeen(id uint, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if identity, ok := r.s.identities[id]; ok {
		identity.LastSeen = at
	}
	return nil
}

func (r *memAnonymousRepo) PurgeStale(before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var purged int64
	for id, identity := range r.s.identities {
		if identity.LastSeen.Before(before) {
			delete(r.s.identities, id)
			purged++
		}
	}
	return purged, nil
}
