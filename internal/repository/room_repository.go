package repository

import (
	"time"

	"planning_poker/internal/models"
	"planning_poker/internal/storage"
)

type RoomRepository interface {
	Create(room *models.Room) error
	FindByID(id uint) (*models.Room, error)
	FindByCode(code string) (*models.Room, error)
	Update(room *models.Room) error
	CodeExists(code string) (bool, error)
	CompleteRound(roomID uint) (bool, error)
	TouchActivity(roomID uint, at time.Time) error
	SetTimer(roomID uint, start, end *time.Time, active bool) error
	MarkAutoClosed(roomID uint) (bool, error)
	FindInactiveSince(threshold time.Time) ([]models.Room, error)
	FindExpiredTimers(now time.Time) ([]models.Room, error)
	StopExpiredTimer(roomID uint, now time.Time) (bool, error)
}

type roomRepository struct {
	db *storage.PostgresDB
}

func NewRoomRepository(db *storage.PostgresDB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) Create(room *models.Room) error {
	return r.db.Create(room).Error
}

func (r *roomRepository) FindByID(id uint) (*models.Room, error) {
	var room models.Room
	if err := r.db.First(&room, id).Error; err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

func (r *roomRepository) FindByCode(code string) (*models.Room, error) {
	var room models.Room
	if err := r.db.Where("code = ?", code).First(&room).Error; err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

func (r *roomRepository) Update(room *models.Room) error {
	return r.db.Save(room).Error
}

func (r *roomRepository) CodeExists(code string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Room{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

// CompleteRound 以條件式更新把房間轉成 COMPLETED
// 回傳值指出這次呼叫是否真的搶到了轉換，已完成的房間不會被重複轉換
func (r *roomRepository) CompleteRound(roomID uint) (bool, error) {
	result := r.db.Model(&models.Room{}).
		Where("id = ? AND status <> ?", roomID, models.RoomStatusCompleted).
		Update("status", models.RoomStatusCompleted)
	return result.RowsAffected > 0, result.Error
}

func (r *roomRepository) TouchActivity(roomID uint, at time.Time) error {
	return r.db.Model(&models.Room{}).Where("id = ?", roomID).
		Update("last_activity", at).Error
}

func (r *roomRepository) SetTimer(roomID uint, start, end *time.Time, active bool) error {
	return r.db.Model(&models.Room{}).Where("id = ?", roomID).
		Updates(map[string]interface{}{
			"timer_start_time": start,
			"timer_end_time":   end,
			"is_timer_active":  active,
		}).Error
}

// MarkAutoClosed 以條件式更新把房間標記為自動關閉
// 回傳值指出這次呼叫是否真的套用了轉換，已被關閉的房間不會重複套用
func (r *roomRepository) MarkAutoClosed(roomID uint) (bool, error) {
	result := r.db.Model(&models.Room{}).
		Where("id = ? AND auto_closed = ?", roomID, false).
		Updates(map[string]interface{}{
			"status":      models.RoomStatusCompleted,
			"auto_closed": true,
		})
	return result.RowsAffected > 0, result.Error
}

// FindInactiveSince 找出最後活動早於門檻且尚未被自動關閉的房間
func (r *roomRepository) FindInactiveSince(threshold time.Time) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.Where("last_activity < ? AND auto_closed = ? AND status IN ?",
		threshold, false,
		[]models.RoomStatus{models.RoomStatusActive, models.RoomStatusPending}).
		Find(&rooms).Error
	return rooms, err
}

func (r *roomRepository) FindExpiredTimers(now time.Time) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.Where("is_timer_active = ? AND enable_timer = ? AND timer_end_time < ?",
		true, true, now).
		Find(&rooms).Error
	return rooms, err
}

// StopExpiredTimer 停掉已到期的計時器
// 同樣採條件式更新，Coordinator 搶先停掉的計時器不會被重複處理
func (r *roomRepository) StopExpiredTimer(roomID uint, now time.Time) (bool, error) {
	result := r.db.Model(&models.Room{}).
		Where("id = ? AND is_timer_active = ? AND timer_end_time < ?", roomID, true, now).
		Update("is_timer_active", false)
	return result.RowsAffected > 0, result.Error
}
