package repository

import (
	"planning_poker/internal/models"
	"planning_poker/internal/storage"
)

type SessionLogRepository interface {
	Create(log *models.SessionLog) error
	FindByRoomID(roomID uint) ([]models.SessionLog, error)
	FindByHostID(hostID uint) ([]models.SessionLog, error)
}

type sessionLogRepository struct {
	db *storage.PostgresDB
}

func NewSessionLogRepository(db *storage.PostgresDB) SessionLogRepository {
	return &sessionLogRepository{db: db}
}

func (r *sessionLogRepository) Create(log *models.SessionLog) error {
	return r.db.Create(log).Error
}

func (r *sessionLogRepository) FindByRoomID(roomID uint) ([]models.SessionLog, error) {
	var logs []models.SessionLog
	err := r.db.Where("room_id = ?", roomID).Order("timestamp desc").Find(&logs).Error
	return logs, err
}

// FindByHostID 查詢某位主持人所有房間的開牌紀錄，供匯出報表使用
func (r *sessionLogRepository) FindByHostID(hostID uint) ([]models.SessionLog, error) {
	var logs []models.SessionLog
	err := r.db.
		Joins("JOIN rooms ON rooms.id = session_logs.room_id").
		Where("rooms.host_id = ?", hostID).
		Order("session_logs.timestamp desc").
		Find(&logs).Error
	return logs, err
}
