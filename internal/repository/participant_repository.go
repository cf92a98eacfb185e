package repository

import (
	"planning_poker/internal/models"
	"planning_poker/internal/storage"
)

type ParticipantRepository interface {
	GetOrCreateForUser(roomID, userID uint, displayName string) (*models.Participant, error)
	GetOrCreateForAnonymous(roomID, anonymousID uint, displayName string) (*models.Participant, error)
	FindByID(id uint) (*models.Participant, error)
	SetVote(participantID uint, value *string) error
	ClearVotes(roomID uint) error
	Skip(participantID, roomID uint) error
	ListByRoom(roomID uint) ([]models.Participant, error)
	CountByRoom(roomID uint) (int64, error)
	DeleteAnonymous(roomID, anonymousID uint) error
}

type participantRepository struct {
	db *storage.PostgresDB
}

func NewParticipantRepository(db *storage.PostgresDB) ParticipantRepository {
	return &participantRepository{db: db}
}

// GetOrCreateForUser 取得或建立註冊用戶在房間內的參與者列
// 同一個 (用戶, 房間) 重複呼叫會得到同一列
func (r *participantRepository) GetOrCreateForUser(roomID, userID uint, displayName string) (*models.Participant, error) {
	var participant models.Participant
	err := r.db.Where("room_id = ? AND user_id = ?", roomID, userID).
		Attrs(models.Participant{DisplayName: displayName}).
		FirstOrCreate(&participant, models.Participant{RoomID: roomID, UserID: &userID}).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// GetOrCreateForAnonymous 取得或建立匿名身分在房間內的參與者列
func (r *participantRepository) GetOrCreateForAnonymous(roomID, anonymousID uint, displayName string) (*models.Participant, error) {
	var participant models.Participant
	err := r.db.Where("room_id = ? AND anonymous_id = ?", roomID, anonymousID).
		Attrs(models.Participant{DisplayName: displayName}).
		FirstOrCreate(&participant, models.Participant{RoomID: roomID, AnonymousID: &anonymousID}).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (r *participantRepository) FindByID(id uint) (*models.Participant, error) {
	var participant models.Participant
	if err := r.db.First(&participant, id).Error; err != nil {
		return nil, translate(err)
	}
	return &participant, nil
}

func (r *participantRepository) SetVote(participantID uint, value *string) error {
	return r.db.Model(&models.Participant{}).Where("id = ?", participantID).
		Update("card_selection", value).Error
}

// ClearVotes 清除房間內所有參與者的選牌，單一 UPDATE 一次完成
func (r *participantRepository) ClearVotes(roomID uint) error {
	return r.db.Model(&models.Participant{}).Where("room_id = ?", roomID).
		Update("card_selection", nil).Error
}

// Skip 將參與者標記為跳過
// 參與者不在房間內時不回報錯誤，跳過不存在的人是無害的
func (r *participantRepository) Skip(participantID, roomID uint) error {
	return r.db.Model(&models.Participant{}).
		Where("id = ? AND room_id = ?", participantID, roomID).
		Update("card_selection", models.CardSkipped).Error
}

func (r *participantRepository) ListByRoom(roomID uint) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.db.Where("room_id = ?", roomID).Order("id asc").Find(&participants).Error
	return participants, err
}

func (r *participantRepository) CountByRoom(roomID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Participant{}).Where("room_id = ?", roomID).Count(&count).Error
	return count, err
}

// DeleteAnonymous 移除匿名參與者的資料列
// 匿名身分本身保留，重連時仍會拿回同一個顯示名稱
func (r *participantRepository) DeleteAnonymous(roomID, anonymousID uint) error {
	return r.db.Unscoped().
		Where("room_id = ? AND anonymous_id = ?", roomID, anonymousID).
		Delete(&models.Participant{}).Error
}
